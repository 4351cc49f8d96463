package flow

import (
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/blackwatch/internal/session"
)

// Navigator moves the user to another screen.
type Navigator interface {
	Navigate(to Route, reason string)
}

type NavigatorFunc func(to Route, reason string)

func (f NavigatorFunc) Navigate(to Route, reason string) {
	f(to, reason)
}

// Guard decides whether a screen may be entered with the current session.
type Guard struct {
	accessor *session.Accessor
	nav      Navigator

	mu    sync.Mutex
	fired bool
}

func NewGuard(accessor *session.Accessor, nav Navigator) *Guard {
	return &Guard{accessor: accessor, nav: nav}
}

// RequireAuth admits authenticated sessions holding requiredRole. An empty
// requiredRole admits any authenticated session and ADMIN passes every check.
func (g *Guard) RequireAuth(requiredRole string) error {
	if !g.accessor.IsAuthenticated() {
		return &RedirectError{To: RouteSignin, Reason: "not signed in"}
	}

	if requiredRole != "" && !g.accessor.HasRole(requiredRole) {
		return &RedirectError{To: RouteDashboard, Reason: "requires the " + requiredRole + " role"}
	}

	return nil
}

// RequireAnonymous keeps signed in users away from the signin and signup screens.
func (g *Guard) RequireAnonymous() error {
	if g.accessor.IsAuthenticated() {
		return &RedirectError{To: RouteDashboard, Reason: "already signed in"}
	}
	return nil
}

// HandleSessionInvalid navigates to signin once per burst of rejected
// requests. Register it with client.OnSessionInvalid.
func (g *Guard) HandleSessionInvalid() {
	g.mu.Lock()
	if g.fired {
		g.mu.Unlock()
		return
	}
	g.fired = true
	g.mu.Unlock()

	log.Debug().Msg("session rejected by server, redirecting to signin")
	g.nav.Navigate(RouteSignin, "session expired")
}

// Rearm lets the next rejected session navigate again.
func (g *Guard) Rearm() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fired = false
}
