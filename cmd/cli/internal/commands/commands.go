package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/blackwatch/internal/api"
	"github.com/wolfeidau/blackwatch/internal/client"
	"github.com/wolfeidau/blackwatch/internal/config"
	"github.com/wolfeidau/blackwatch/internal/flow"
	"github.com/wolfeidau/blackwatch/internal/session"
	"github.com/wolfeidau/blackwatch/internal/telemetry"
)

const serviceName = "blackwatch-cli"

// Globals carries the flags shared by every command.
type Globals struct {
	Debug      bool
	Version    string
	Profile    string
	BaseURL    string
	Timeout    time.Duration
	SessionDir string
	ConfigFile string
	Cache      bool
	CacheDir   string
	Telemetry  bool

	// Out, Err and In default to the process stdio.
	Out io.Writer
	Err io.Writer
	In  io.Reader

	app *App
}

// App is everything a command needs to talk to the API.
type App struct {
	Config   config.Config
	Accessor *session.Accessor
	Client   *client.Client
	API      *api.Services
	Flow     *flow.Flow
	Guard    *flow.Guard

	out      io.Writer
	errOut   io.Writer
	in       io.Reader
	prompt   *Prompter
	shutdown telemetry.ShutdownFunc
}

func (g *Globals) stdout() io.Writer {
	if g.Out != nil {
		return g.Out
	}
	return os.Stdout
}

func (g *Globals) stderr() io.Writer {
	if g.Err != nil {
		return g.Err
	}
	return os.Stderr
}

func (g *Globals) stdin() io.Reader {
	if g.In != nil {
		return g.In
	}
	return os.Stdin
}

// App resolves configuration and wires the session, client and flow. It is
// built once per process.
func (g *Globals) App(ctx context.Context) (*App, error) {
	if g.app != nil {
		return g.app, nil
	}

	cfg, err := config.Load(g.ConfigFile)
	if err != nil {
		return nil, err
	}
	cfg.Apply(config.Overrides{
		Profile:    g.Profile,
		BaseURL:    g.BaseURL,
		Timeout:    g.Timeout,
		Debug:      g.Debug,
		SessionDir: g.SessionDir,
		Cache:      g.Cache,
		CacheDir:   g.CacheDir,
		Telemetry:  g.Telemetry,
	})
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Debug && log.Logger.GetLevel() > zerolog.DebugLevel {
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	}

	store, err := session.NewFileStore(cfg.SessionDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session store: %w", err)
	}

	accessor, err := session.NewAccessor(store)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:   cfg,
		Accessor: accessor,
		out:      g.stdout(),
		errOut:   g.stderr(),
		in:       g.stdin(),
		prompt:   NewPrompter(g.stdin(), g.stdout()),
		shutdown: telemetry.Noop,
	}

	opts := []client.Option{client.WithNotifier(client.NotifierFunc(app.notify))}
	if cfg.Telemetry {
		shutdown, err := telemetry.InitTelemetry(ctx, serviceName, g.Version)
		if err != nil {
			log.Warn().Err(err).Msg("telemetry disabled")
		} else {
			app.shutdown = shutdown
			opts = append(opts, client.WithMetrics(telemetry.GetMetrics()))
		}
	}

	app.Client, err = client.New(cfg.Client(), accessor, opts...)
	if err != nil {
		return nil, err
	}

	app.API = api.New(app.Client)
	app.Guard = flow.NewGuard(accessor, flow.NavigatorFunc(app.navigate))
	app.Flow = flow.New(app.API.Auth, accessor, flow.WithGuard(app.Guard))

	app.Client.OnSessionInvalid(app.Flow.SessionInvalidated)
	app.Client.OnSessionInvalid(app.Guard.HandleSessionInvalid)

	log.Debug().
		Str("profile", cfg.Profile).
		Str("baseURL", cfg.BaseURL).
		Str("session", store.Path()).
		Msg("client initialized")
	accessor.DebugState()

	g.app = app
	return app, nil
}

// Close flushes telemetry. It is safe to call when no App was built.
func (g *Globals) Close() {
	if g.app == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := g.app.shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to flush telemetry")
	}
}

// navigate is the CLI rendition of moving to another screen.
func (a *App) navigate(to flow.Route, reason string) {
	fmt.Fprintf(a.errOut, "%s: run 'blackwatch %s'\n", reason, to)
}

// notify prints client notifications, keeping the structured copy in the debug log.
func (a *App) notify(n client.Notification) {
	log.Debug().Str("kind", n.Kind.String()).Int("status", n.Status).Msg(n.Message)
	fmt.Fprintf(a.errOut, "error: %s\n", n.Message)
}

// require applies the guard for role, where "" means any signed in user.
func (a *App) require(role string) error {
	if err := a.Guard.RequireAuth(role); err != nil {
		var redirect *flow.RedirectError
		if errors.As(err, &redirect) {
			return fmt.Errorf("%s\n\nRun 'blackwatch %s' to continue", redirect.Reason, redirect.To)
		}
		return err
	}
	return nil
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *App) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// failed turns an error from a server call into the one message shown for it.
// Classified failures other than validation were already notified by the
// client, so only a short summary is returned for those.
func failed(action string, err error) error {
	var stateErr *flow.InvalidStateError
	if errors.As(err, &stateErr) {
		return fmt.Errorf("%s: %w\n\nRun 'blackwatch %s' to start again", action, err, stateErr.Back)
	}

	switch client.KindOf(err) {
	case 0, client.KindCanceled:
		return fmt.Errorf("%s: %w", action, err)
	case client.KindValidation:
		return fmt.Errorf("%s: %s", action, client.MessageOf(err, flow.UserMessage(err)))
	default:
		return &notifiedError{action: action, err: err}
	}
}

type notifiedError struct {
	action string
	err    error
}

func (e *notifiedError) Error() string {
	return e.action + " failed"
}

func (e *notifiedError) Unwrap() error {
	return e.err
}
