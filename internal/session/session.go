// Package session holds the client's authentication state: the persisted
// session record and the expiry-aware accessor every other component reads it through.
package session

import (
	"errors"

	"github.com/wolfeidau/blackwatch/internal/models"
)

// Namespace is the fixed key the session record is persisted under.
const Namespace = "auth-storage"

// ErrNoExpiry is returned when a token was issued without a usable expiry.
// Such a session is never considered authenticated.
var ErrNoExpiry = errors.New("token has no usable expiry")

// Session is the persisted authentication record. Empty strings mean absent.
type Session struct {
	IsAuthenticated bool                `json:"isAuthenticated"`
	Token           string              `json:"token,omitempty"`
	User            *models.UserProfile `json:"user,omitempty"`
	Role            string              `json:"role,omitempty"`
	ExpiresAt       string              `json:"expiresAt,omitempty"`
}

// IsAnonymous returns true when the record carries no authentication state at all.
func (s Session) IsAnonymous() bool {
	return !s.IsAuthenticated && s.Token == "" && s.User == nil && s.Role == "" && s.ExpiresAt == ""
}

// Anonymous returns the logged out record.
func Anonymous() Session {
	return Session{}
}

func (s Session) clone() Session {
	if s.User != nil {
		u := *s.User
		u.Roles = append([]string(nil), s.User.Roles...)
		s.User = &u
	}
	return s
}
