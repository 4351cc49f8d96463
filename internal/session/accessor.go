package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/blackwatch/internal/models"
)

// DefaultExpiringSoonThreshold is the window, in minutes, used by IsTokenExpiringSoon callers
// that have no preference.
const DefaultExpiringSoonThreshold = 5

// Accessor is the only component that makes expiry judgments about the session.
// Every mutation is written through to the Store before the call returns.
type Accessor struct {
	store Store
	now   func() time.Time

	mu    sync.Mutex
	state Session
}

// Option configures an Accessor.
type Option func(*Accessor)

// WithClock overrides the wall clock used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(a *Accessor) {
		a.now = now
	}
}

// NewAccessor rehydrates the session from store.
func NewAccessor(store Store, opts ...Option) (*Accessor, error) {
	state, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	a := &Accessor{
		store: store,
		now:   time.Now,
		state: state,
	}
	for _, opt := range opts {
		opt(a)
	}

	return a, nil
}

// Token returns the bearer token unless it is known to be expired, in which case
// the session is cleared and "" is returned.
func (a *Accessor) Token() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state.Token == "" {
		return ""
	}

	if expiresAt, ok := a.expiry(); ok && !a.now().Before(expiresAt) {
		log.Warn().Time("expiresAt", expiresAt).Msg("token expired, clearing auth state")
		a.clearLocked()
		return ""
	}

	return a.state.Token
}

// IsAuthenticated requires both a token and a parseable expiry in the future.
// A token without expiry information is not authenticated.
func (a *Accessor) IsAuthenticated() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state.Token == "" || a.state.ExpiresAt == "" {
		return false
	}

	expiresAt, ok := a.expiry()
	if !ok {
		return false
	}

	if !a.now().Before(expiresAt) {
		log.Warn().Time("expiresAt", expiresAt).Msg("token expired during auth check")
		a.clearLocked()
		return false
	}

	return a.state.IsAuthenticated
}

// Clear resets the session to anonymous. Clearing an anonymous session is a no-op.
func (a *Accessor) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.clearLocked()
}

func (a *Accessor) clearLocked() {
	if a.state.IsAnonymous() {
		return
	}
	a.state = Anonymous()
	if err := a.store.Save(a.state); err != nil {
		log.Error().Err(err).Msg("failed to persist cleared session")
	}
}

// Login records a freshly issued token.
func (a *Accessor) Login(token, expiresAt, role string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.state.IsAuthenticated = true
	a.state.Token = token
	a.state.ExpiresAt = expiresAt
	a.state.Role = role

	return a.saveLocked()
}

// SetUser caches the profile snapshot. The scalar role stays authoritative for
// authorization; a profile whose role list disagrees with it is only logged.
func (a *Accessor) SetUser(user models.UserProfile) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state.Role != "" && len(user.Roles) > 0 && !user.HasRole(a.state.Role) {
		log.Warn().
			Str("role", a.state.Role).
			Strs("roles", user.Roles).
			Msg("profile roles do not include session role")
	}

	a.state.User = &user
	return a.saveLocked()
}

// UpdateUser patches the cached profile. Without a cached profile it does nothing.
func (a *Accessor) UpdateUser(patch models.AccountUpdate) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state.User == nil {
		return nil
	}

	user := *a.state.User
	patch.Apply(&user)
	a.state.User = &user
	return a.saveLocked()
}

func (a *Accessor) saveLocked() error {
	if err := a.store.Save(a.state); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}
	return nil
}

// Role returns the scalar role tag.
func (a *Accessor) Role() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.Role
}

// User returns a copy of the cached profile, or nil.
func (a *Accessor) User() *models.UserProfile {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.clone().User
}

// Snapshot returns a copy of the whole record without any expiry side effect.
func (a *Accessor) Snapshot() Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.clone()
}

// HasRole is true for an exact match, and always for ADMIN. An empty target
// or an anonymous session never matches.
func (a *Accessor) HasRole(target string) bool {
	role := a.Role()
	if target == "" || role == "" {
		return false
	}
	return role == target || role == models.RoleAdmin
}

func (a *Accessor) IsContributor() bool {
	return a.HasRole(models.RoleContributor)
}

func (a *Accessor) IsAdmin() bool {
	return a.Role() == models.RoleAdmin
}

// TokenExpiryMinutes returns the whole minutes left before expiry, floored and
// clamped to zero. ok is false when no usable expiry is recorded.
func (a *Accessor) TokenExpiryMinutes() (minutes int, ok bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	expiresAt, ok := a.expiry()
	if !ok {
		return 0, false
	}

	diff := expiresAt.Sub(a.now())
	if diff <= 0 {
		return 0, true
	}

	return int(diff / time.Minute), true
}

// IsTokenExpiringSoon is true iff an expiry is known and at most thresholdMinutes remain.
func (a *Accessor) IsTokenExpiringSoon(thresholdMinutes int) bool {
	minutes, ok := a.TokenExpiryMinutes()
	return ok && minutes <= thresholdMinutes
}

// DebugState logs the session without exposing the token.
func (a *Accessor) DebugState() {
	snap := a.Snapshot()
	minutes, ok := a.TokenExpiryMinutes()

	evt := log.Debug().
		Bool("isAuthenticated", snap.IsAuthenticated).
		Bool("hasToken", snap.Token != "").
		Str("role", snap.Role).
		Str("expiresAt", snap.ExpiresAt)
	if snap.User != nil {
		evt = evt.Str("user", snap.User.Username)
	}
	if ok {
		evt = evt.Int("remainingMinutes", minutes)
	}
	evt.Msg("auth state")
}

// expiry parses the stored expiry. Callers hold a.mu.
func (a *Accessor) expiry() (time.Time, bool) {
	if a.state.ExpiresAt == "" {
		return time.Time{}, false
	}
	t, err := models.ParseTimestamp(a.state.ExpiresAt)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
