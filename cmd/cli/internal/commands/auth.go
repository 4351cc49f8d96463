package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/blackwatch/internal/client"
	"github.com/wolfeidau/blackwatch/internal/flow"
	"github.com/wolfeidau/blackwatch/internal/session"
)

const maxMfaAttempts = 5

// SignupCmd registers a new account in two steps.
type SignupCmd struct {
	Request SignupRequestCmd `cmd:"" help:"Email a signup verification code"`
	Verify  SignupVerifyCmd  `cmd:"" help:"Complete signup with the emailed code"`
}

type SignupRequestCmd struct {
	Email string `arg:"" help:"Email address to register"`
}

func (c *SignupRequestCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := globals.App(ctx)
	if err != nil {
		return err
	}
	if err := app.Guard.RequireAnonymous(); err != nil {
		return err
	}

	out, err := app.Flow.RequestSignup(ctx, c.Email)
	if err != nil {
		return failed("signup request", err)
	}

	app.printf("%s\n\n", messageOr(out.Message, "Verification code sent to "+c.Email))
	app.printf("To finish signing up:\n  blackwatch %s --email %s\n", out.Next, c.Email)
	return nil
}

type SignupVerifyCmd struct {
	Email    string `help:"Email address the code was sent to" required:""`
	Code     string `help:"6 digit verification code (prompted when omitted)"`
	Username string `help:"Username (prompted when omitted)"`
	Password string `help:"Password (prompted when omitted)" env:"BLACKWATCH_PASSWORD"`
}

func (c *SignupVerifyCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := globals.App(ctx)
	if err != nil {
		return err
	}
	if err := app.Flow.ResumeSignup(c.Email); err != nil {
		return failed("signup verify", err)
	}

	code, err := app.prompt.Line("Verification code", c.Code)
	if err != nil {
		return err
	}
	username, err := app.prompt.Line("Username", c.Username)
	if err != nil {
		return err
	}
	password, err := app.prompt.Secret("Password", c.Password)
	if err != nil {
		return err
	}

	out, err := app.Flow.VerifySignup(ctx, code, username, password)
	if err != nil {
		return failed("signup verify", err)
	}

	app.printf("%s\n\nSign in with:\n  blackwatch %s %s\n", out.Message, out.Next, c.Email)
	return nil
}

// SigninCmd signs in, prompting for an MFA code when the server asks for one.
type SigninCmd struct {
	Email          string `arg:"" help:"Account email"`
	Password       string `help:"Password (prompted when omitted)" env:"BLACKWATCH_PASSWORD"`
	NonInteractive bool   `help:"Print the MFA session key instead of prompting for the code"`
}

func (c *SigninCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := globals.App(ctx)
	if err != nil {
		return err
	}
	if err := app.Guard.RequireAnonymous(); err != nil {
		app.printf("Already signed in as %s. Run 'blackwatch logout' first to switch accounts.\n", app.Accessor.Role())
		return nil
	}

	password, err := app.prompt.Secret("Password", c.Password)
	if err != nil {
		return err
	}

	out, err := app.Flow.SignIn(ctx, c.Email, password)
	if err != nil {
		return failed("signin", err)
	}

	if out.State == flow.AwaitingMfaCode {
		app.printf("%s\n", messageOr(out.Message, "A verification code was sent to "+c.Email))
		if c.NonInteractive {
			app.printf("\nTo finish signing in:\n  blackwatch %s --session-key %s --email %s --code <CODE>\n",
				out.Next, app.Flow.SessionKey(), c.Email)
			return nil
		}
		if err := promptMfa(ctx, app); err != nil {
			return err
		}
	}

	return signedIn(ctx, app)
}

// promptMfa reads codes until one is accepted. Entering "r" resends the code.
func promptMfa(ctx context.Context, app *App) error {
	for attempt := 0; attempt < maxMfaAttempts; attempt++ {
		code, err := app.prompt.Line("MFA code (r to resend)", "")
		if err != nil {
			return err
		}

		if strings.EqualFold(code, "r") {
			out, err := app.Flow.ResendMFA(ctx)
			if err != nil {
				return failed("mfa resend", err)
			}
			app.printf("%s\n", out.Message)
			continue
		}

		_, err = app.Flow.VerifyMFA(ctx, code)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, flow.ErrInvalidCode):
			app.printf("%s\n", err)
		case client.KindOf(err) == client.KindValidation:
			app.printf("%s\n", flow.UserMessage(err))
		default:
			return failed("mfa verify", err)
		}
	}

	return fmt.Errorf("mfa verify: too many attempts\n\nRun 'blackwatch signin' to start again")
}

// signedIn caches the profile and prints a summary.
func signedIn(ctx context.Context, app *App) error {
	profile, err := app.API.Account.Me(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to fetch profile after signin")
	} else if err := app.Accessor.SetUser(profile); err != nil {
		return err
	}

	minutes, _ := app.Accessor.TokenExpiryMinutes()
	app.printf("Signed in as %s (%s), session valid for %d minutes\n", displayName(app), app.Accessor.Role(), minutes)
	return nil
}

// MfaCmd completes or manages multi factor authentication.
type MfaCmd struct {
	Verify  MfaVerifyCmd  `cmd:"" help:"Finish a signin with the emailed MFA code"`
	Resend  MfaResendCmd  `cmd:"" help:"Send a new MFA code"`
	Enable  MfaEnableCmd  `cmd:"" help:"Turn on MFA for your account"`
	Disable MfaDisableCmd `cmd:"" help:"Turn off MFA for your account"`
}

type MfaVerifyCmd struct {
	SessionKey string `help:"Session key printed by signin" required:""`
	Email      string `help:"Account email"`
	Code       string `help:"6 digit code (prompted when omitted)"`
}

func (c *MfaVerifyCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := globals.App(ctx)
	if err != nil {
		return err
	}
	if err := app.Flow.ResumeMFA(c.SessionKey, c.Email); err != nil {
		return failed("mfa verify", err)
	}

	if c.Code == "" {
		if err := promptMfa(ctx, app); err != nil {
			return err
		}
		return signedIn(ctx, app)
	}

	if _, err := app.Flow.VerifyMFA(ctx, c.Code); err != nil {
		return failed("mfa verify", err)
	}
	return signedIn(ctx, app)
}

type MfaResendCmd struct {
	SessionKey string `help:"Session key printed by signin" required:""`
	Email      string `help:"Account email"`
}

func (c *MfaResendCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := globals.App(ctx)
	if err != nil {
		return err
	}
	if err := app.Flow.ResumeMFA(c.SessionKey, c.Email); err != nil {
		return failed("mfa resend", err)
	}

	out, err := app.Flow.ResendMFA(ctx)
	if err != nil {
		return failed("mfa resend", err)
	}

	app.printf("%s\n", out.Message)
	if key := app.Flow.SessionKey(); key != c.SessionKey {
		app.printf("\nThe session key changed, use:\n  blackwatch %s --session-key %s\n", out.Next, key)
	}
	return nil
}

type MfaEnableCmd struct{}

func (c *MfaEnableCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := globals.App(ctx)
	if err != nil {
		return err
	}
	if err := app.require(""); err != nil {
		return err
	}

	resp, err := app.API.Auth.EnableMfa(ctx)
	if err != nil {
		return failed("mfa enable", err)
	}
	app.printf("%s\n", messageOr(resp.Message, "MFA enabled"))
	return nil
}

type MfaDisableCmd struct{}

func (c *MfaDisableCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := globals.App(ctx)
	if err != nil {
		return err
	}
	if err := app.require(""); err != nil {
		return err
	}

	resp, err := app.API.Auth.DisableMfa(ctx)
	if err != nil {
		return failed("mfa disable", err)
	}
	app.printf("%s\n", messageOr(resp.Message, "MFA disabled"))
	return nil
}

// ResetPasswordCmd recovers an account in two steps.
type ResetPasswordCmd struct {
	Request ResetPasswordRequestCmd `cmd:"" help:"Email a password reset code"`
	Confirm ResetPasswordConfirmCmd `cmd:"" help:"Set a new password with the emailed code"`
}

type ResetPasswordRequestCmd struct {
	Email string `arg:"" help:"Account email"`
}

func (c *ResetPasswordRequestCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := globals.App(ctx)
	if err != nil {
		return err
	}

	out, err := app.Flow.RequestPasswordReset(ctx, c.Email)
	if err != nil {
		return failed("reset request", err)
	}

	app.printf("%s\n\nTo choose a new password:\n  blackwatch %s --email %s\n",
		messageOr(out.Message, "Reset code sent to "+c.Email), out.Next, c.Email)
	return nil
}

type ResetPasswordConfirmCmd struct {
	Email    string `help:"Account email the code was sent to" required:""`
	Code     string `help:"6 digit reset code (prompted when omitted)"`
	Password string `help:"New password (prompted when omitted)" env:"BLACKWATCH_NEW_PASSWORD"`
	Confirm  string `help:"Repeat the new password (prompted when omitted)"`
}

func (c *ResetPasswordConfirmCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := globals.App(ctx)
	if err != nil {
		return err
	}
	if err := app.Flow.ResumeReset(c.Email); err != nil {
		return failed("reset confirm", err)
	}

	code, err := app.prompt.Line("Reset code", c.Code)
	if err != nil {
		return err
	}
	password, err := app.prompt.Secret("New password", c.Password)
	if err != nil {
		return err
	}
	confirm, err := app.prompt.Secret("Confirm password", c.Confirm)
	if err != nil {
		return err
	}

	out, err := app.Flow.ConfirmPasswordReset(ctx, code, password, confirm)
	if err != nil {
		return failed("reset confirm", err)
	}

	app.printf("%s\n\nSign in with:\n  blackwatch %s %s\n", out.Message, out.Next, c.Email)
	return nil
}

type LogoutCmd struct{}

func (c *LogoutCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := globals.App(ctx)
	if err != nil {
		return err
	}

	app.Flow.Logout()
	app.printf("Signed out\n")
	return nil
}

// StatusCmd shows the local session without contacting the server.
type StatusCmd struct{}

func (c *StatusCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := globals.App(ctx)
	if err != nil {
		return err
	}

	if !app.Accessor.IsAuthenticated() {
		snap := app.Accessor.Snapshot()
		if snap.Token != "" && snap.ExpiresAt == "" {
			app.printf("Not signed in: %s\n", session.ErrNoExpiry)
		} else {
			app.printf("Not signed in\n")
		}
		app.printf("\nTo sign in:\n  blackwatch %s <EMAIL>\n", flow.RouteSignin)
		return nil
	}

	snap := app.Accessor.Snapshot()
	minutes, _ := app.Accessor.TokenExpiryMinutes()

	app.printf("User:         %s\n", displayName(app))
	app.printf("Role:         %s\n", snap.Role)
	app.printf("Expires:      %s (%d minutes)\n", snap.ExpiresAt, minutes)
	app.printf("Fingerprint:  %s\n", app.Accessor.Fingerprint())
	if claims, err := app.Accessor.Claims(); err == nil && claims.Subject != "" {
		app.printf("Subject:      %s\n", claims.Subject)
	}
	if snap.User != nil && snap.User.MfaEnabled != nil {
		app.printf("MFA:          %v\n", *snap.User.MfaEnabled)
	}
	if app.Accessor.IsTokenExpiringSoon(session.DefaultExpiringSoonThreshold) {
		app.printf("\nYour session expires soon. Sign in again to keep working.\n")
	}
	return nil
}

func displayName(app *App) string {
	if user := app.Accessor.User(); user != nil {
		if user.Email != "" {
			return user.Username + " <" + user.Email + ">"
		}
		return user.Username
	}
	return "unknown user"
}

func messageOr(msg, fallback string) string {
	if msg != "" {
		return msg
	}
	return fallback
}
