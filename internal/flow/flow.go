// Package flow drives the signup, signin, MFA and password reset steps and
// writes their results into the session.
package flow

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/blackwatch/internal/api"
	"github.com/wolfeidau/blackwatch/internal/client"
	"github.com/wolfeidau/blackwatch/internal/models"
	"github.com/wolfeidau/blackwatch/internal/session"
)

type State int

const (
	Anonymous State = iota
	AwaitingSignupCode
	AwaitingMfaCode
	AwaitingResetCode
	Authenticated
)

func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case AwaitingSignupCode:
		return "awaiting signup code"
	case AwaitingMfaCode:
		return "awaiting MFA code"
	case AwaitingResetCode:
		return "awaiting reset code"
	case Authenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Route names a screen, expressed as the command that shows it.
type Route string

const (
	RouteSignin        Route = "signin"
	RouteSignup        Route = "signup request"
	RouteSignupVerify  Route = "signup verify"
	RouteMfa           Route = "mfa verify"
	RouteResetPassword Route = "reset-password request"
	RouteResetConfirm  Route = "reset-password confirm"
	RouteDashboard     Route = "status"
)

// Outcome is the result of a successful step.
type Outcome struct {
	State   State
	Next    Route
	Message string
}

var codePattern = regexp.MustCompile(`^\d{6}$`)

// Flow is one combined state machine for the authentication screens. The
// email and MFA session key carried between steps live only in memory.
type Flow struct {
	auth     *api.Auth
	accessor *session.Accessor
	guard    *Guard

	mu         sync.Mutex
	state      State
	email      string
	sessionKey string
}

type Option func(*Flow)

// WithGuard re-arms guard after every successful sign in.
func WithGuard(guard *Guard) Option {
	return func(f *Flow) {
		f.guard = guard
	}
}

func New(auth *api.Auth, accessor *session.Accessor, opts ...Option) *Flow {
	f := &Flow{
		auth:     auth,
		accessor: accessor,
		state:    Anonymous,
	}
	if accessor.IsAuthenticated() {
		f.state = Authenticated
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Email returns the address carried by the current step.
func (f *Flow) Email() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.email
}

// SessionKey returns the MFA session key, which may have been rotated by a resend.
func (f *Flow) SessionKey() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessionKey
}

func (f *Flow) RequestSignup(ctx context.Context, email string) (Outcome, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return Outcome{}, ErrEmailRequired
	}

	resp, err := f.auth.SignupRequest(ctx, models.SignupRequest{Email: email})
	if err != nil {
		return Outcome{}, f.failed("signup request", "failed to send the verification code", err)
	}

	f.enter(AwaitingSignupCode, email, "")
	return Outcome{State: AwaitingSignupCode, Next: RouteSignupVerify, Message: resp.Message}, nil
}

func (f *Flow) VerifySignup(ctx context.Context, code, username, password string) (Outcome, error) {
	email, err := f.carried(AwaitingSignupCode, RouteSignup)
	if err != nil {
		return Outcome{}, err
	}
	if !codePattern.MatchString(code) {
		return Outcome{}, ErrInvalidCode
	}

	resp, err := f.auth.SignupVerify(ctx, models.SignupVerify{
		Email:    email,
		Code:     code,
		Username: username,
		Password: password,
	})
	if err != nil {
		return Outcome{}, f.failed("signup verify", "failed to complete signup", err)
	}

	f.enter(Anonymous, "", "")
	return Outcome{State: Anonymous, Next: RouteSignin, Message: messageOr(resp.Message, "signup complete")}, nil
}

// SignIn either completes authentication or moves to AwaitingMfaCode,
// carrying the session key and email. The session is untouched in that case.
func (f *Flow) SignIn(ctx context.Context, email, password string) (Outcome, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return Outcome{}, ErrEmailRequired
	}

	res, err := f.auth.Signin(ctx, models.SigninRequest{Email: email, Password: password})
	if err != nil {
		return Outcome{}, f.failed("signin", "failed to sign in", err)
	}

	if res.StepUp() {
		if res.SessionKey == "" {
			return Outcome{}, &StepError{Op: "signin", Fallback: "failed to sign in", Err: ErrMissingChallenge}
		}
		f.enter(AwaitingMfaCode, email, res.SessionKey)
		return Outcome{State: AwaitingMfaCode, Next: RouteMfa, Message: res.Message}, nil
	}

	return f.login(res.SigninResponse)
}

// ResumeMFA restores the challenge when MFA verification is entered directly.
func (f *Flow) ResumeMFA(sessionKey, email string) error {
	if strings.TrimSpace(sessionKey) == "" {
		return &InvalidStateError{Step: AwaitingMfaCode, Back: RouteSignin, Missing: "session key"}
	}
	f.enter(AwaitingMfaCode, strings.TrimSpace(email), sessionKey)
	return nil
}

func (f *Flow) VerifyMFA(ctx context.Context, code string) (Outcome, error) {
	sessionKey, err := f.challenge()
	if err != nil {
		return Outcome{}, err
	}
	if !codePattern.MatchString(code) {
		return Outcome{}, ErrInvalidCode
	}

	resp, err := f.auth.MfaVerify(ctx, models.MfaVerify{SessionKey: sessionKey, Code: code})
	if err != nil {
		return Outcome{}, f.failed("mfa verify", "MFA verification failed", err)
	}

	return f.login(resp)
}

// ResendMFA requests a new code. A rotated session key replaces the carried one.
func (f *Flow) ResendMFA(ctx context.Context) (Outcome, error) {
	sessionKey, err := f.challenge()
	if err != nil {
		return Outcome{}, err
	}

	resp, err := f.auth.MfaResend(ctx, sessionKey)
	if err != nil {
		return Outcome{}, f.failed("mfa resend", "failed to resend the code", err)
	}

	f.mu.Lock()
	if resp.SessionKey != "" && resp.SessionKey != f.sessionKey {
		log.Debug().Msg("MFA session key rotated")
		f.sessionKey = resp.SessionKey
	}
	f.mu.Unlock()

	return Outcome{State: AwaitingMfaCode, Next: RouteMfa, Message: messageOr(resp.Message, "verification code resent")}, nil
}

// ResumeSignup restores the carried email when signup verification is entered directly.
func (f *Flow) ResumeSignup(email string) error {
	if strings.TrimSpace(email) == "" {
		return &InvalidStateError{Step: AwaitingSignupCode, Back: RouteSignup, Missing: "email"}
	}
	f.enter(AwaitingSignupCode, strings.TrimSpace(email), "")
	return nil
}

func (f *Flow) RequestPasswordReset(ctx context.Context, email string) (Outcome, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return Outcome{}, ErrEmailRequired
	}

	resp, err := f.auth.ResetPasswordRequest(ctx, models.ResetPasswordRequest{Email: email})
	if err != nil {
		return Outcome{}, f.failed("reset request", "failed to send the reset code", err)
	}

	f.enter(AwaitingResetCode, email, "")
	return Outcome{State: AwaitingResetCode, Next: RouteResetConfirm, Message: resp.Message}, nil
}

// ResumeReset restores the carried email when reset confirmation is entered directly.
func (f *Flow) ResumeReset(email string) error {
	if strings.TrimSpace(email) == "" {
		return &InvalidStateError{Step: AwaitingResetCode, Back: RouteResetPassword, Missing: "email"}
	}
	f.enter(AwaitingResetCode, strings.TrimSpace(email), "")
	return nil
}

// ConfirmPasswordReset checks the confirmation locally before anything is sent.
func (f *Flow) ConfirmPasswordReset(ctx context.Context, code, password, confirm string) (Outcome, error) {
	email, err := f.carried(AwaitingResetCode, RouteResetPassword)
	if err != nil {
		return Outcome{}, err
	}
	if !codePattern.MatchString(code) {
		return Outcome{}, ErrInvalidCode
	}
	if password != confirm {
		return Outcome{}, ErrPasswordMismatch
	}

	resp, err := f.auth.ResetPasswordConfirm(ctx, models.ResetPasswordConfirm{
		Email:    email,
		Code:     code,
		Password: password,
	})
	if err != nil {
		return Outcome{}, f.failed("reset confirm", "failed to change the password", err)
	}

	f.enter(Anonymous, "", "")
	return Outcome{State: Anonymous, Next: RouteSignin, Message: messageOr(resp.Message, "password changed")}, nil
}

func (f *Flow) Logout() Outcome {
	f.accessor.Clear()
	f.enter(Anonymous, "", "")
	return Outcome{State: Anonymous, Next: RouteSignin}
}

// SessionInvalidated drops any carried context after the server rejected the
// session. Register it with client.OnSessionInvalid.
func (f *Flow) SessionInvalidated() {
	f.enter(Anonymous, "", "")
}

func (f *Flow) login(resp models.SigninResponse) (Outcome, error) {
	if err := f.accessor.Login(resp.AccessToken, resp.ExpiresAt, resp.Role); err != nil {
		return Outcome{}, err
	}

	if !f.accessor.IsAuthenticated() {
		log.Warn().Str("expiresAt", resp.ExpiresAt).Msg("token issued without a usable expiry, treating session as signed out")
		f.accessor.Clear()
		f.enter(Anonymous, "", "")
		return Outcome{}, &StepError{Op: "signin", Fallback: "the server issued a session without an expiry", Err: session.ErrNoExpiry}
	}

	if f.guard != nil {
		f.guard.Rearm()
	}

	f.enter(Authenticated, "", "")
	return Outcome{State: Authenticated, Next: RouteDashboard, Message: "signed in"}, nil
}

// failed leaves the state alone except for a rejected session, which ends
// every step.
func (f *Flow) failed(op, fallback string, err error) error {
	if errors.Is(err, client.ErrSessionInvalid) {
		f.enter(Anonymous, "", "")
	}
	return &StepError{Op: op, Fallback: fallback, Err: err}
}

func (f *Flow) enter(state State, email, sessionKey string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = state
	f.email = email
	f.sessionKey = sessionKey
}

func (f *Flow) carried(step State, back Route) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != step || f.email == "" {
		return "", &InvalidStateError{Step: step, Back: back, Missing: "email"}
	}
	return f.email, nil
}

func (f *Flow) challenge() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != AwaitingMfaCode || f.sessionKey == "" {
		return "", &InvalidStateError{Step: AwaitingMfaCode, Back: RouteSignin, Missing: "session key"}
	}
	return f.sessionKey, nil
}

func messageOr(msg, fallback string) string {
	if msg != "" {
		return msg
	}
	return fallback
}
