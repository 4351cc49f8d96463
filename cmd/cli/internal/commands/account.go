package commands

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/blackwatch/internal/models"
)

var errNothingToUpdate = errors.New("nothing to update, pass at least one of --username, --locale or --time-zone")

// AccountCmd reads and edits the signed in user's profile.
type AccountCmd struct {
	Show   AccountShowCmd   `cmd:"" default:"1" help:"Show your profile"`
	Update AccountUpdateCmd `cmd:"" help:"Change profile fields"`
}

type AccountShowCmd struct {
	JSON bool `help:"Print the profile as JSON" name:"json"`
}

func (c *AccountShowCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := globals.App(ctx)
	if err != nil {
		return err
	}
	if err := app.require(""); err != nil {
		return err
	}

	profile, err := app.API.Account.Me(ctx)
	if err != nil {
		return failed("account", err)
	}
	if err := app.Accessor.SetUser(profile); err != nil {
		return err
	}

	if c.JSON {
		return app.printJSON(profile)
	}
	printProfile(app, profile)
	return nil
}

type AccountUpdateCmd struct {
	Username string `help:"New username"`
	Locale   string `help:"Preferred locale, for example en-US"`
	TimeZone string `help:"IANA time zone, for example Asia/Seoul" name:"time-zone"`
}

func (c *AccountUpdateCmd) patch() models.AccountUpdate {
	var patch models.AccountUpdate
	if v := strings.TrimSpace(c.Username); v != "" {
		patch.Username = &v
	}
	if v := strings.TrimSpace(c.Locale); v != "" {
		patch.Locale = &v
	}
	if v := strings.TrimSpace(c.TimeZone); v != "" {
		patch.TimeZone = &v
	}
	return patch
}

func (c *AccountUpdateCmd) Run(ctx context.Context, globals *Globals) error {
	patch := c.patch()
	if patch.IsEmpty() {
		return errNothingToUpdate
	}

	app, err := globals.App(ctx)
	if err != nil {
		return err
	}
	if err := app.require(""); err != nil {
		return err
	}

	profile, err := app.API.Account.Update(ctx, patch)
	if err != nil {
		return failed("account update", err)
	}
	log.Debug().Str("user_id", profile.UserID).Bool("echoed", profile.UserID != "").Msg("account updated")

	// the server echoes the full profile, fall back to a local merge when it does not
	if profile.UserID != "" {
		err = app.Accessor.SetUser(profile)
	} else {
		err = app.Accessor.UpdateUser(patch)
	}
	if err != nil {
		return err
	}

	app.printf("Profile updated\n")
	return nil
}

// UsersCmd looks up other accounts.
type UsersCmd struct {
	Show UsersShowCmd `cmd:"" help:"Show a user's public profile"`
}

type UsersShowCmd struct {
	UserID string `arg:"" help:"User ID"`
	JSON   bool   `help:"Print the profile as JSON" name:"json"`
}

func (c *UsersShowCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := globals.App(ctx)
	if err != nil {
		return err
	}
	if err := app.require(""); err != nil {
		return err
	}

	profile, err := app.API.Users.Get(ctx, c.UserID)
	if err != nil {
		return failed("user lookup", err)
	}

	if c.JSON {
		return app.printJSON(profile)
	}
	printProfile(app, profile)
	return nil
}

func printProfile(app *App, p models.UserProfile) {
	app.printf("User ID:     %s\n", p.UserID)
	app.printf("Username:    %s\n", p.Username)
	if p.Email != "" {
		app.printf("Email:       %s\n", p.Email)
	}
	if len(p.Roles) > 0 {
		app.printf("Roles:       %s\n", strings.Join(p.Roles, ", "))
	}
	if p.EmailVerified != nil {
		app.printf("Verified:    %v\n", *p.EmailVerified)
	}
	if p.MfaEnabled != nil {
		app.printf("MFA:         %v\n", *p.MfaEnabled)
	}
	if p.Locale != "" {
		app.printf("Locale:      %s\n", p.Locale)
	}
	if p.TimeZone != "" {
		app.printf("Time zone:   %s\n", p.TimeZone)
	}
	if p.CreatedAt != "" {
		app.printf("Created:     %s\n", p.CreatedAt)
	}
	if p.LastLoginAt != "" {
		app.printf("Last login:  %s\n", p.LastLoginAt)
	}
}
