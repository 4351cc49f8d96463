package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/blackwatch/internal/models"
)

// ContribCmd covers the contributor application and credentials.
type ContribCmd struct {
	Apply    ContribApplyCmd    `cmd:"" help:"Apply to become a contributor"`
	Status   ContribStatusCmd   `cmd:"" help:"Show your application status"`
	Secret   ContribSecretCmd   `cmd:"" help:"Generate a new client secret"`
	Info     ContribInfoCmd     `cmd:"" help:"Show your contributor credentials"`
	Sessions ContribSessionsCmd `cmd:"" help:"Manage contributor API sessions"`
}

type ContribApplyCmd struct {
	Contact    string `help:"Contact address" required:""`
	Handle     string `help:"Public handle" required:""`
	Jobs       string `help:"What you do"`
	Motivation string `help:"Why you want to contribute"`
	Law        bool   `help:"Agree to comply with applicable law" required:""`
	License    bool   `help:"Agree to the data license" required:""`
}

func (c *ContribApplyCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := globals.App(ctx)
	if err != nil {
		return err
	}
	if err := app.require(""); err != nil {
		return err
	}

	resp, err := app.API.Contrib.Apply(ctx, models.ContributionApplication{
		Contact:    c.Contact,
		Handle:     c.Handle,
		Jobs:       c.Jobs,
		Motivation: c.Motivation,
		Law:        c.Law,
		License:    c.License,
	})
	if err != nil {
		return failed("contributor application", err)
	}
	log.Debug().Str("status", resp.Status).Msg("contributor application submitted")

	app.printf("Application submitted (status: %s)\n", resp.Status)
	return nil
}

type ContribStatusCmd struct{}

func (c *ContribStatusCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := globals.App(ctx)
	if err != nil {
		return err
	}
	if err := app.require(""); err != nil {
		return err
	}

	status, err := app.API.Contrib.ApplicationStatus(ctx)
	if err != nil {
		return failed("application status", err)
	}

	app.printf("Status:     %s\n", status.Status)
	if status.ClientID != "" {
		app.printf("Client ID:  %s\n", status.ClientID)
	}
	app.printf("Submitted:  %s\n", status.CreatedAt)
	if status.UpdatedAt != "" {
		app.printf("Updated:    %s\n", status.UpdatedAt)
	}
	switch status.Status {
	case models.ApplicationAccept, models.ApplicationTemporaryAccept:
		if !app.Accessor.IsContributor() {
			app.printf("\nSign in again to pick up the contributor role.\n")
		}
	case models.ApplicationReject:
		app.printf("\nYour application was not accepted.\n")
	}
	return nil
}

type ContribSecretCmd struct {
	JSON bool `help:"Print the credentials as JSON" name:"json"`
}

func (c *ContribSecretCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := globals.App(ctx)
	if err != nil {
		return err
	}
	if err := app.require(models.RoleContributor); err != nil {
		return err
	}

	secret, err := app.API.Contrib.GenerateSecret(ctx)
	if err != nil {
		return failed("secret generation", err)
	}
	log.Debug().Str("client_id", secret.ClientID).Str("expires_at", secret.ExpiresAt).Msg("contributor secret issued")

	if c.JSON {
		return app.printJSON(secret)
	}
	app.printf("Client ID:      %s\n", secret.ClientID)
	app.printf("Client secret:  %s\n", secret.ClientSecret)
	app.printf("Expires:        %s\n", secret.ExpiresAt)
	app.printf("\nStore the secret now, it will not be shown again.\n")
	return nil
}

type ContribInfoCmd struct{}

func (c *ContribInfoCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := globals.App(ctx)
	if err != nil {
		return err
	}
	if err := app.require(models.RoleContributor); err != nil {
		return err
	}

	info, err := app.API.Contrib.Info(ctx)
	if err != nil {
		return failed("contributor info", err)
	}

	app.printf("Client ID:  %s\n", info.ClientID)
	app.printf("Status:     %s\n", info.Status)
	if info.ClientSecret.ExpiresAt != "" {
		app.printf("Secret:     created %s, expires %s\n", info.ClientSecret.CreatedAt, info.ClientSecret.ExpiresAt)
	} else {
		app.printf("Secret:     none, run 'blackwatch contrib secret'\n")
	}
	return nil
}

type ContribSessionsCmd struct {
	List   ContribSessionsListCmd   `cmd:"" default:"1" help:"List contributor API sessions"`
	Delete ContribSessionsDeleteCmd `cmd:"" help:"Revoke every contributor API session"`
}

type ContribSessionsListCmd struct{}

func (c *ContribSessionsListCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := globals.App(ctx)
	if err != nil {
		return err
	}
	if err := app.require(models.RoleContributor); err != nil {
		return err
	}

	sessions, err := app.API.Contrib.Sessions(ctx)
	if err != nil {
		return failed("session list", err)
	}

	printSessions(app, sessions, time.Now())
	return nil
}

type ContribSessionsDeleteCmd struct{}

func (c *ContribSessionsDeleteCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := globals.App(ctx)
	if err != nil {
		return err
	}
	if err := app.require(models.RoleContributor); err != nil {
		return err
	}

	resp, err := app.API.Contrib.DeleteSessions(ctx)
	if err != nil {
		return failed("session revoke", err)
	}
	log.Debug().Msg("contributor sessions revoked")
	app.printf("%s\n", messageOr(resp.Message, "Sessions revoked"))
	return nil
}

// DBSessionsCmd manages short lived direct database sessions.
type DBSessionsCmd struct {
	Create    DBSessionsCreateCmd    `cmd:"" help:"Open a database session"`
	List      DBSessionsListCmd      `cmd:"" default:"1" help:"List database sessions"`
	Extend    DBSessionsExtendCmd    `cmd:"" help:"Extend a database session"`
	Delete    DBSessionsDeleteCmd    `cmd:"" help:"Close a database session"`
	DeleteAll DBSessionsDeleteAllCmd `cmd:"" name:"delete-all" help:"Close every database session"`
}

type DBSessionsCreateCmd struct {
	Hours int  `help:"Hours beyond the default lifetime" default:"0"`
	JSON  bool `help:"Print the session as JSON" name:"json"`
}

func (c *DBSessionsCreateCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := globals.App(ctx)
	if err != nil {
		return err
	}
	if err := app.require(models.RoleContributor); err != nil {
		return err
	}

	info, err := app.API.DBSessions.Create(ctx, models.DBSessionCreate{AdditionalHours: c.Hours})
	if err != nil {
		return failed("database session", err)
	}
	log.Debug().Str("session_id", info.SessionID).Int("hours", c.Hours).Msg("database session created")

	if c.JSON {
		return app.printJSON(info)
	}
	printDBSession(app, info, time.Now())
	return nil
}

type DBSessionsListCmd struct {
	Watch bool `help:"Refresh every 30 seconds" default:"false"`
}

func (c *DBSessionsListCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := globals.App(ctx)
	if err != nil {
		return err
	}
	if err := app.require(models.RoleContributor); err != nil {
		return err
	}

	if c.Watch {
		return c.watch(ctx, app)
	}
	return c.list(ctx, app)
}

func (c *DBSessionsListCmd) list(ctx context.Context, app *App) error {
	sessions, err := app.API.DBSessions.List(ctx)
	if err != nil {
		return failed("database session list", err)
	}

	printSessions(app, sessions, time.Now())
	return nil
}

func (c *DBSessionsListCmd) watch(ctx context.Context, app *App) error {
	app.printf("Watching database sessions (press Ctrl+C to stop)...\n\n")

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	if err := c.list(ctx, app); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			app.printf("\033[2J\033[H")
			app.printf("Database sessions (updated at %s)\n\n", time.Now().Format("15:04:05"))

			if err := c.list(ctx, app); err != nil {
				return err
			}
		}
	}
}

type DBSessionsExtendCmd struct {
	SessionID string `arg:"" help:"Session ID"`
	Hours     int    `help:"Hours to add" default:"1"`
}

func (c *DBSessionsExtendCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := globals.App(ctx)
	if err != nil {
		return err
	}
	if err := app.require(models.RoleContributor); err != nil {
		return err
	}

	info, err := app.API.DBSessions.Extend(ctx, c.SessionID, c.Hours)
	if err != nil {
		return failed("database session extend", err)
	}
	log.Debug().Str("session_id", info.SessionID).Int("hours", c.Hours).Str("expires_at", info.ExpiresAt).Msg("database session extended")

	app.printf("Session %s now expires %s (%d minutes)\n", info.SessionID, info.ExpiresAt, info.RemainingMinutes(time.Now()))
	return nil
}

type DBSessionsDeleteCmd struct {
	SessionID string `arg:"" help:"Session ID"`
}

func (c *DBSessionsDeleteCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := globals.App(ctx)
	if err != nil {
		return err
	}
	if err := app.require(models.RoleContributor); err != nil {
		return err
	}

	resp, err := app.API.DBSessions.Delete(ctx, c.SessionID)
	if err != nil {
		return failed("database session delete", err)
	}
	log.Debug().Str("session_id", c.SessionID).Msg("database session closed")
	app.printf("%s\n", messageOr(resp.Message, "Session closed"))
	return nil
}

type DBSessionsDeleteAllCmd struct{}

func (c *DBSessionsDeleteAllCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := globals.App(ctx)
	if err != nil {
		return err
	}
	if err := app.require(models.RoleContributor); err != nil {
		return err
	}

	resp, err := app.API.DBSessions.DeleteAll(ctx)
	if err != nil {
		return failed("database session delete", err)
	}
	log.Debug().Msg("all database sessions closed")
	app.printf("%s\n", messageOr(resp.Message, "All sessions closed"))
	return nil
}

func printSessions(app *App, sessions []models.ContributorSession, now time.Time) {
	if len(sessions) == 0 {
		app.printf("No sessions found.\n")
		return
	}

	app.printf("%-36s %-16s %-20s %-20s %-8s\n", "Session ID", "IP", "Created At", "Expires At", "State")
	app.printf("%s\n", strings.Repeat("─", 104))

	for _, s := range sessions {
		state := "active"
		if s.IsExpired(now) {
			state = "expired"
		}
		app.printf("%-36s %-16s %-20s %-20s %-8s\n",
			truncate(s.SessionID, 36),
			truncate(s.IP, 16),
			formatTimestamp(s.CreatedAt),
			formatTimestamp(s.ExpiresAt),
			state)
	}

	app.printf("\nTotal sessions: %d\n", len(sessions))
}

func printDBSession(app *App, info models.DBSessionInfo, now time.Time) {
	app.printf("Session ID:   %s\n", info.SessionID)
	app.printf("Database:     %s\n", info.DatabaseName)
	app.printf("Username:     %s\n", info.Username)
	if info.Password != "" {
		app.printf("Password:     %s\n", info.Password)
	}
	app.printf("Connection:   %s\n", info.ConnectionString)
	if len(info.Permissions) > 0 {
		app.printf("Permissions:  %s\n", strings.Join(info.Permissions, ", "))
	}
	app.printf("Expires:      %s (%d minutes)\n", formatTimestamp(info.ExpiresAt), info.RemainingMinutes(now))
	if info.IsExpiringSoon(now, models.DefaultDBSessionExpiringSoon) {
		app.printf("\nThis session expires soon, extend it with:\n  blackwatch db-sessions extend %s\n", info.SessionID)
	}
}

// formatTimestamp renders server timestamps in local time, passing through
// anything it cannot parse.
func formatTimestamp(s string) string {
	t, err := models.ParseTimestamp(s)
	if err != nil {
		return s
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
