package session

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/blackwatch/internal/models"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestAccessor(t *testing.T, initial Session) (*Accessor, *MemoryStore, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: baseTime}
	store := NewMemoryStore(initial)
	a, err := NewAccessor(store, WithClock(clock.Now))
	require.NoError(t, err)
	return a, store, clock
}

func authenticated(expiresAt string) Session {
	return Session{
		IsAuthenticated: true,
		Token:           "t1",
		ExpiresAt:       expiresAt,
		Role:            models.RoleUser,
		User:            &models.UserProfile{UserID: "u1", Username: "alice"},
	}
}

func TestAccessor_ExpiredSession(t *testing.T) {
	past := baseTime.Add(-time.Minute).Format(time.RFC3339)

	t.Run("token read clears once", func(t *testing.T) {
		a, store, _ := newTestAccessor(t, authenticated(past))

		assert.Empty(t, a.Token())
		assert.Empty(t, a.Token())
		assert.False(t, a.IsAuthenticated())

		assert.Equal(t, 1, store.Saves())
		persisted, err := store.Load()
		require.NoError(t, err)
		assert.True(t, persisted.IsAnonymous())
	})

	t.Run("auth check clears once", func(t *testing.T) {
		a, store, _ := newTestAccessor(t, authenticated(past))

		assert.False(t, a.IsAuthenticated())
		assert.False(t, a.IsAuthenticated())
		assert.Empty(t, a.Token())

		assert.Equal(t, 1, store.Saves())
		assert.Empty(t, a.Role())
		assert.Nil(t, a.User())
	})

	t.Run("expiry equal to now is expired", func(t *testing.T) {
		a, _, _ := newTestAccessor(t, authenticated(baseTime.Format(time.RFC3339)))
		assert.False(t, a.IsAuthenticated())
	})
}

func TestAccessor_FailClosedWithoutExpiry(t *testing.T) {
	t.Run("missing expiry", func(t *testing.T) {
		a, store, _ := newTestAccessor(t, authenticated(""))

		assert.False(t, a.IsAuthenticated())
		assert.Equal(t, "t1", a.Token())
		assert.Equal(t, 0, store.Saves())
	})

	t.Run("unparseable expiry", func(t *testing.T) {
		a, _, _ := newTestAccessor(t, authenticated("next tuesday"))

		assert.False(t, a.IsAuthenticated())
		assert.Equal(t, "t1", a.Token())

		_, ok := a.TokenExpiryMinutes()
		assert.False(t, ok)
	})
}

func TestAccessor_ValidSession(t *testing.T) {
	a, store, clock := newTestAccessor(t, authenticated(baseTime.Add(time.Hour).Format(time.RFC3339)))

	assert.True(t, a.IsAuthenticated())
	assert.Equal(t, "t1", a.Token())
	assert.Equal(t, 0, store.Saves())

	clock.Advance(2 * time.Hour)
	assert.False(t, a.IsAuthenticated())
	assert.Equal(t, 1, store.Saves())
}

func TestAccessor_HasRole(t *testing.T) {
	roles := []string{models.RoleUser, models.RoleContributor, models.RoleAdmin, "ADMIN_OR_ANYTHING", ""}

	for _, current := range []string{models.RoleUser, models.RoleContributor, models.RoleAdmin} {
		for _, target := range roles {
			t.Run(current+"/"+target, func(t *testing.T) {
				sess := authenticated(baseTime.Add(time.Hour).Format(time.RFC3339))
				sess.Role = current
				a, _, _ := newTestAccessor(t, sess)

				want := target != "" && (current == models.RoleAdmin || current == target)
				assert.Equal(t, want, a.HasRole(target))
			})
		}
	}

	t.Run("anonymous", func(t *testing.T) {
		a, _, _ := newTestAccessor(t, Anonymous())

		assert.False(t, a.HasRole(""))
		assert.False(t, a.HasRole(models.RoleUser))
		assert.False(t, a.IsContributor())
	})

	t.Run("helpers", func(t *testing.T) {
		sess := authenticated(baseTime.Add(time.Hour).Format(time.RFC3339))
		sess.Role = models.RoleContributor
		a, _, _ := newTestAccessor(t, sess)

		assert.True(t, a.IsContributor())
		assert.False(t, a.IsAdmin())
	})
}

func TestAccessor_TokenExpiryMinutes(t *testing.T) {
	t.Run("floors to whole minutes", func(t *testing.T) {
		a, _, _ := newTestAccessor(t, authenticated(baseTime.Add(90*time.Second).Format(time.RFC3339)))

		minutes, ok := a.TokenExpiryMinutes()
		require.True(t, ok)
		assert.Equal(t, 1, minutes)
	})

	t.Run("zero once expired", func(t *testing.T) {
		a, _, _ := newTestAccessor(t, authenticated(baseTime.Add(-time.Hour).Format(time.RFC3339)))

		minutes, ok := a.TokenExpiryMinutes()
		require.True(t, ok)
		assert.Equal(t, 0, minutes)
	})

	t.Run("absent without expiry", func(t *testing.T) {
		a, _, _ := newTestAccessor(t, Anonymous())

		_, ok := a.TokenExpiryMinutes()
		assert.False(t, ok)
		assert.False(t, a.IsTokenExpiringSoon(DefaultExpiringSoonThreshold))
	})

	t.Run("decreases as time advances", func(t *testing.T) {
		a, _, clock := newTestAccessor(t, authenticated(baseTime.Add(10*time.Minute).Format(time.RFC3339)))

		prev, ok := a.TokenExpiryMinutes()
		require.True(t, ok)
		for i := 0; i < 10; i++ {
			clock.Advance(time.Minute)
			next, ok := a.TokenExpiryMinutes()
			require.True(t, ok)
			assert.GreaterOrEqual(t, next, 0)
			assert.Less(t, next, prev)
			prev = next
		}
		assert.Equal(t, 0, prev)
	})

	t.Run("expiring soon threshold", func(t *testing.T) {
		a, _, clock := newTestAccessor(t, authenticated(baseTime.Add(6*time.Minute).Format(time.RFC3339)))

		assert.False(t, a.IsTokenExpiringSoon(DefaultExpiringSoonThreshold))
		clock.Advance(time.Minute)
		assert.True(t, a.IsTokenExpiringSoon(DefaultExpiringSoonThreshold))
	})
}

func TestAccessor_LoginAndProfile(t *testing.T) {
	a, store, _ := newTestAccessor(t, Anonymous())

	require.NoError(t, a.Login("t1", "2999-01-01T00:00:00Z", models.RoleUser))
	assert.True(t, a.IsAuthenticated())
	assert.Equal(t, models.RoleUser, a.Role())

	t.Run("update without user is a no-op", func(t *testing.T) {
		saves := store.Saves()
		name := "bob"
		require.NoError(t, a.UpdateUser(models.AccountUpdate{Username: &name}))
		assert.Nil(t, a.User())
		assert.Equal(t, saves, store.Saves())
	})

	t.Run("set and patch user", func(t *testing.T) {
		require.NoError(t, a.SetUser(models.UserProfile{UserID: "u1", Username: "alice", Locale: "en"}))

		locale := "ko"
		require.NoError(t, a.UpdateUser(models.AccountUpdate{Locale: &locale}))

		user := a.User()
		require.NotNil(t, user)
		assert.Equal(t, "alice", user.Username)
		assert.Equal(t, "ko", user.Locale)
	})

	t.Run("user copy is detached", func(t *testing.T) {
		user := a.User()
		user.Username = "mallory"
		assert.Equal(t, "alice", a.User().Username)
	})

	t.Run("clear is idempotent", func(t *testing.T) {
		a.Clear()
		saves := store.Saves()
		a.Clear()
		a.Clear()
		assert.Equal(t, saves, store.Saves())
		assert.True(t, a.Snapshot().IsAnonymous())
	})
}

func TestAccessor_Fingerprint(t *testing.T) {
	a, _, _ := newTestAccessor(t, Anonymous())
	assert.Empty(t, a.Fingerprint())

	_, err := a.Claims()
	assert.ErrorIs(t, err, ErrNoToken)

	require.NoError(t, a.Login("t1", "2999-01-01T00:00:00Z", models.RoleUser))
	fp := a.Fingerprint()
	assert.NotEmpty(t, fp)
	assert.NotEqual(t, "t1", fp)

	_, err = a.Claims()
	assert.Error(t, err)
}

func TestAccessor_Claims(t *testing.T) {
	a, _, _ := newTestAccessor(t, Anonymous())

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "u1",
		Issuer:    "blackwatch",
		ExpiresAt: jwt.NewNumericDate(baseTime.Add(time.Hour)),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	require.NoError(t, a.Login(token, baseTime.Add(time.Hour).Format(time.RFC3339), models.RoleUser))

	claims, err := a.Claims()
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, "blackwatch", claims.Issuer)
	assert.True(t, claims.ExpiresAt.Equal(baseTime.Add(time.Hour)))
}
