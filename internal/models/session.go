package models

import (
	"time"
)

// DefaultDBSessionExpiringSoon is the warning window for contributor database sessions.
const DefaultDBSessionExpiringSoon = 30

// ContributorSession is a contributor's API or database session as listed by the server.
type ContributorSession struct {
	SessionID string `json:"sessionId"`
	ClientID  string `json:"clientId"`
	IP        string `json:"ip"`
	CreatedAt string `json:"createdAt"`
	ExpiresAt string `json:"expiresAt"`
}

// IsExpired returns true if the session has expired. Unparseable expiry counts as expired.
func (s *ContributorSession) IsExpired(now time.Time) bool {
	expiresAt, err := ParseTimestamp(s.ExpiresAt)
	if err != nil {
		return true
	}
	return !now.Before(expiresAt)
}

// DBSessionInfo holds the connection details of a direct database session.
// The password is only returned when the session is created or extended.
type DBSessionInfo struct {
	SessionID        string   `json:"sessionId"`
	ClientID         string   `json:"clientId"`
	ConnectionString string   `json:"connectionString"`
	DatabaseName     string   `json:"databaseName"`
	Username         string   `json:"username"`
	Password         string   `json:"password"`
	CreatedAt        string   `json:"createdAt"`
	ExpiresAt        string   `json:"expiresAt"`
	Permissions      []string `json:"permissions"`
}

// IsActive returns true while the session has not reached its expiry.
func (s *DBSessionInfo) IsActive(now time.Time) bool {
	expiresAt, err := ParseTimestamp(s.ExpiresAt)
	if err != nil {
		return false
	}
	return now.Before(expiresAt)
}

// RemainingMinutes returns whole minutes until expiry, never negative.
func (s *DBSessionInfo) RemainingMinutes(now time.Time) int {
	expiresAt, err := ParseTimestamp(s.ExpiresAt)
	if err != nil {
		return 0
	}
	return minutesUntil(expiresAt, now)
}

// IsExpiringSoon reports whether at most thresholdMinutes remain.
func (s *DBSessionInfo) IsExpiringSoon(now time.Time, thresholdMinutes int) bool {
	return s.RemainingMinutes(now) <= thresholdMinutes
}

// DBSessionCreate carries optional creation parameters.
type DBSessionCreate struct {
	AdditionalHours int `json:"additionalHours,omitempty"`
}
