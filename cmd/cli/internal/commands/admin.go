package commands

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/blackwatch/internal/models"
)

// AdminCmd reviews contributor applications.
type AdminCmd struct {
	Applications AdminApplicationsCmd `cmd:"" help:"Review contributor applications"`
}

type AdminApplicationsCmd struct {
	List    AdminListCmd    `cmd:"" default:"1" help:"List applications"`
	Approve AdminApproveCmd `cmd:"" help:"Approve an application"`
	Deny    AdminDenyCmd    `cmd:"" help:"Deny an application"`
	Reset   AdminResetCmd   `cmd:"" help:"Return an application to pending"`
}

type AdminListCmd struct {
	Pending bool `help:"Only pending applications"`
	JSON    bool `help:"Print the applications as JSON" name:"json"`
}

func (c *AdminListCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := globals.App(ctx)
	if err != nil {
		return err
	}
	if err := app.require(models.RoleAdmin); err != nil {
		return err
	}

	apps, err := app.API.Admin.Applications(ctx, c.Pending)
	if err != nil {
		return failed("application list", err)
	}

	if c.JSON {
		return app.printJSON(apps)
	}

	if len(apps) == 0 {
		app.printf("No applications found.\n")
		return nil
	}

	app.printf("%-36s %-18s %-20s %-40s\n", "User ID", "Status", "Submitted", "Jobs")
	app.printf("%s\n", strings.Repeat("─", 117))
	for _, a := range apps {
		app.printf("%-36s %-18s %-20s %-40s\n",
			truncate(a.UserID, 36),
			a.Status,
			formatTimestamp(a.CreatedAt),
			truncate(a.Jobs, 40))
	}
	app.printf("\nTotal applications: %d\n", len(apps))
	return nil
}

type AdminApproveCmd struct {
	UserID string `arg:"" help:"Applicant user ID"`
}

func (c *AdminApproveCmd) Run(ctx context.Context, globals *Globals) error {
	return decide(ctx, globals, "approve", c.UserID)
}

type AdminDenyCmd struct {
	UserID string `arg:"" help:"Applicant user ID"`
}

func (c *AdminDenyCmd) Run(ctx context.Context, globals *Globals) error {
	return decide(ctx, globals, "deny", c.UserID)
}

type AdminResetCmd struct {
	UserID string `arg:"" help:"Applicant user ID"`
}

func (c *AdminResetCmd) Run(ctx context.Context, globals *Globals) error {
	return decide(ctx, globals, "reset", c.UserID)
}

func decide(ctx context.Context, globals *Globals, action, userID string) error {
	app, err := globals.App(ctx)
	if err != nil {
		return err
	}
	if err := app.require(models.RoleAdmin); err != nil {
		return err
	}

	var resp models.MessageResponse
	switch action {
	case "approve":
		resp, err = app.API.Admin.Approve(ctx, userID)
	case "deny":
		resp, err = app.API.Admin.Deny(ctx, userID)
	default:
		resp, err = app.API.Admin.Reset(ctx, userID)
	}
	if err != nil {
		return failed("application "+action, err)
	}
	log.Debug().Str("action", action).Str("user_id", userID).Msg("application decided")

	app.printf("%s\n", messageOr(resp.Message, "Application "+userID+" updated"))
	return nil
}
