package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)

	tests := []struct {
		name  string
		input string
		want  time.Time
		err   bool
	}{
		{name: "rfc3339 utc", input: "2026-03-01T12:30:00Z", want: want},
		{name: "rfc3339 offset", input: "2026-03-01T21:30:00+09:00", want: want},
		{name: "fractional", input: "2026-03-01T12:30:00.123456", want: want.Add(123456 * time.Microsecond)},
		{name: "zoneless", input: "2026-03-01T12:30:00", want: want},
		{name: "space separated", input: " 2026-03-01 12:30:00 ", want: want},
		{name: "empty", input: "", err: true},
		{name: "garbage", input: "soon", err: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimestamp(tt.input)
			if tt.err {
				assert.ErrorIs(t, err, ErrInvalidTimestamp)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestDBSessionInfo(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	info := DBSessionInfo{ExpiresAt: "2026-03-01T12:45:30"}
	assert.True(t, info.IsActive(now))
	assert.Equal(t, 45, info.RemainingMinutes(now))
	assert.False(t, info.IsExpiringSoon(now, DefaultDBSessionExpiringSoon))
	assert.True(t, info.IsExpiringSoon(now.Add(20*time.Minute), DefaultDBSessionExpiringSoon))

	expired := now.Add(time.Hour)
	assert.False(t, info.IsActive(expired))
	assert.Equal(t, 0, info.RemainingMinutes(expired))

	broken := DBSessionInfo{ExpiresAt: "never"}
	assert.False(t, broken.IsActive(now))
	assert.Equal(t, 0, broken.RemainingMinutes(now))
}

func TestContributorSession_IsExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.False(t, (&ContributorSession{ExpiresAt: "2026-03-01T13:00:00Z"}).IsExpired(now))
	assert.True(t, (&ContributorSession{ExpiresAt: "2026-03-01T12:00:00Z"}).IsExpired(now))
	assert.True(t, (&ContributorSession{}).IsExpired(now))
}

func TestSearchValues(t *testing.T) {
	t.Run("empty search sends nothing", func(t *testing.T) {
		assert.Empty(t, LeakedDataSearch{}.Values())
		assert.Empty(t, VulnerabilityDataSearch{}.Values())
	})

	t.Run("leaked", func(t *testing.T) {
		lo, hi := 10, 500
		v := LeakedDataSearch{
			SearchParams: SearchParams{Query: "acme", Limit: 20, TitleContains: "db"},
			RecordMin:    &lo,
			RecordMax:    &hi,
			IOCContains:  "1.2.3.4",
		}.Values()

		assert.Equal(t, "acme", v.Get("q"))
		assert.Equal(t, "20", v.Get("limit"))
		assert.Equal(t, "db", v.Get("titleContains"))
		assert.Equal(t, "10", v.Get("recordMin"))
		assert.Equal(t, "500", v.Get("recordMax"))
		assert.Equal(t, "1.2.3.4", v.Get("iocContains"))
		assert.Empty(t, v.Get("page"))
	})

	t.Run("vulnerability", func(t *testing.T) {
		lo := 7.5
		v := VulnerabilityDataSearch{
			CVEs:      []string{"CVE-2024-1", "CVE-2024-2"},
			CVSSMin:   &lo,
			VulnClass: "RCE",
		}.Values()

		assert.Equal(t, "CVE-2024-1,CVE-2024-2", v.Get("cve"))
		assert.Equal(t, "7.5", v.Get("cvssMin"))
		assert.Empty(t, v.Get("cvssMax"))
		assert.Equal(t, "RCE", v.Get("vulnClass"))
	})
}

func TestAccountUpdate(t *testing.T) {
	assert.True(t, AccountUpdate{}.IsEmpty())

	tz := "Asia/Seoul"
	patch := AccountUpdate{TimeZone: &tz}
	assert.False(t, patch.IsEmpty())

	profile := UserProfile{Username: "alice", TimeZone: "UTC", Roles: []string{RoleUser}}
	patch.Apply(&profile)
	assert.Equal(t, "alice", profile.Username)
	assert.Equal(t, "Asia/Seoul", profile.TimeZone)
	assert.True(t, profile.HasRole(RoleUser))
	assert.False(t, profile.HasRole(RoleAdmin))
}

func TestSigninResult_StepUp(t *testing.T) {
	assert.True(t, (&SigninResult{MfaResponse: MfaResponse{NeedMfa: true}}).StepUp())
	assert.False(t, (&SigninResult{SigninResponse: SigninResponse{AccessToken: "t"}}).StepUp())
}
