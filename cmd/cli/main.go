package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/blackwatch/cmd/cli/internal/commands"
	"github.com/wolfeidau/blackwatch/internal/logger"
)

var (
	version = "dev"
	cli     struct {
		Signup        commands.SignupCmd        `cmd:"" help:"Create an account"`
		Signin        commands.SigninCmd        `cmd:"" help:"Sign in"`
		Mfa           commands.MfaCmd           `cmd:"" help:"Multi factor authentication"`
		ResetPassword commands.ResetPasswordCmd `cmd:"" name:"reset-password" help:"Recover a forgotten password"`
		Logout        commands.LogoutCmd        `cmd:"" help:"Sign out and forget the session"`
		Status        commands.StatusCmd        `cmd:"" help:"Show the current session"`
		Account       commands.AccountCmd       `cmd:"" help:"Your profile"`
		Users         commands.UsersCmd         `cmd:"" help:"Look up users"`
		Contrib       commands.ContribCmd       `cmd:"" help:"Contributor application and credentials"`
		DBSessions    commands.DBSessionsCmd    `cmd:"" name:"db-sessions" help:"Contributor database sessions"`
		Leaked        commands.LeakedCmd        `cmd:"" help:"Leaked data"`
		Vulns         commands.VulnsCmd         `cmd:"" help:"Vulnerability data"`
		Upload        commands.UploadCmd        `cmd:"" help:"Upload a file"`
		Admin         commands.AdminCmd         `cmd:"" help:"Administration"`

		Debug      bool          `help:"Enable debug mode." env:"BLACKWATCH_DEBUG"`
		Profile    string        `help:"Environment profile (dev or production)" env:"BLACKWATCH_PROFILE"`
		BaseURL    string        `help:"API base URL" name:"base-url" env:"BLACKWATCH_API_BASE_URL"`
		Timeout    time.Duration `help:"Request timeout" env:"BLACKWATCH_API_TIMEOUT"`
		SessionDir string        `help:"Directory holding the saved session" env:"BLACKWATCH_SESSION_DIR"`
		Config     string        `help:"Config file" type:"path" env:"BLACKWATCH_CONFIG"`
		Cache      bool          `help:"Cache GET responses that allow it" env:"BLACKWATCH_CACHE"`
		CacheDir   string        `help:"Persist the response cache in this directory" env:"BLACKWATCH_CACHE_DIR"`
		Telemetry  bool          `help:"Export traces and metrics over OTLP" env:"BLACKWATCH_TELEMETRY"`
		Version    kong.VersionFlag
	}
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := kong.Parse(&cli,
		kong.Name("blackwatch"),
		kong.Description("Command line client for the Blackwatch threat intelligence API."),
		kong.UsageOnError(),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))

	log.Logger = logger.Setup(cli.Debug)

	globals := &commands.Globals{
		Debug:      cli.Debug,
		Version:    version,
		Profile:    cli.Profile,
		BaseURL:    cli.BaseURL,
		Timeout:    cli.Timeout,
		SessionDir: cli.SessionDir,
		ConfigFile: cli.Config,
		Cache:      cli.Cache,
		CacheDir:   cli.CacheDir,
		Telemetry:  cli.Telemetry,
	}

	err := cmd.Run(globals)
	globals.Close()
	cmd.FatalIfErrorf(err)
}
