package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/blackwatch/internal/models"
	"github.com/wolfeidau/blackwatch/internal/session"
)

type testEnv struct {
	mux        *http.ServeMux
	srv        *httptest.Server
	sessionDir string
	configFile string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	env := &testEnv{
		mux:        http.NewServeMux(),
		sessionDir: filepath.Join(dir, "session"),
		configFile: filepath.Join(dir, "config.yaml"),
	}
	env.writeConfig(t, "profile: production\n")
	env.srv = httptest.NewServer(env.mux)
	t.Cleanup(env.srv.Close)
	return env
}

func (e *testEnv) writeConfig(t *testing.T, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(e.configFile, []byte(contents), 0600))
}

// globals returns fresh flags, so every call builds a new App that reloads the
// session from disk.
func (e *testEnv) globals(stdin string) (*Globals, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return &Globals{
		BaseURL:    e.srv.URL,
		SessionDir: e.sessionDir,
		ConfigFile: e.configFile,
		Timeout:    5 * time.Second,
		Out:        &out,
		Err:        &errOut,
		In:         strings.NewReader(stdin),
	}, &out, &errOut
}

func (e *testEnv) signIn(t *testing.T, role string) {
	t.Helper()
	store, err := session.NewFileStore(e.sessionDir)
	require.NoError(t, err)
	accessor, err := session.NewAccessor(store)
	require.NoError(t, err)
	require.NoError(t, accessor.Login("token-abc", time.Now().Add(time.Hour).UTC().Format(time.RFC3339), role))
}

func (e *testEnv) reply(pattern string, status int, body string) {
	e.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	})
}

func signinBody(role string) string {
	b, _ := json.Marshal(models.SigninResponse{
		AccessToken: "token-abc",
		ExpiresAt:   time.Now().Add(time.Hour).UTC().Format(time.RFC3339),
		Role:        role,
	})
	return string(b)
}

func TestSigninCmd(t *testing.T) {
	env := newTestEnv(t)
	env.reply("POST /auth/signin", http.StatusOK, signinBody(models.RoleUser))
	env.reply("GET /account/me", http.StatusOK, `{"userId":"u1","username":"alice","email":"alice@example.com","roles":["USER"]}`)

	globals, out, _ := env.globals("")
	err := (&SigninCmd{Email: "alice@example.com", Password: "pw"}).Run(context.Background(), globals)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Signed in as alice <alice@example.com> (USER)")

	globals, out, _ = env.globals("")
	require.NoError(t, (&StatusCmd{}).Run(context.Background(), globals))
	assert.Contains(t, out.String(), "Role:         USER")
	assert.Contains(t, out.String(), "alice <alice@example.com>")

	t.Run("already signed in", func(t *testing.T) {
		globals, out, _ := env.globals("")
		err := (&SigninCmd{Email: "alice@example.com", Password: "pw"}).Run(context.Background(), globals)
		require.NoError(t, err)
		assert.Contains(t, out.String(), "Already signed in")
	})
}

func TestSigninCmd_MFA(t *testing.T) {
	env := newTestEnv(t)
	env.reply("POST /auth/signin", http.StatusOK, `{"needMfa":true,"sessionKey":"k1","message":"code sent"}`)
	env.reply("GET /auth/mfa/resend", http.StatusOK, `{"needMfa":true,"sessionKey":"k2","message":"code resent"}`)
	env.reply("GET /account/me", http.StatusOK, `{"userId":"u1","username":"alice"}`)

	var verified atomic.Value
	env.mux.HandleFunc("POST /auth/mfa", func(w http.ResponseWriter, r *http.Request) {
		var req models.MfaVerify
		_ = json.NewDecoder(r.Body).Decode(&req)
		verified.Store(req)
		_, _ = io.WriteString(w, signinBody(models.RoleUser))
	})

	t.Run("interactive with resend", func(t *testing.T) {
		globals, out, _ := env.globals("r\n12\n123456\n")
		err := (&SigninCmd{Email: "alice@example.com", Password: "pw"}).Run(context.Background(), globals)
		require.NoError(t, err)

		assert.Contains(t, out.String(), "code resent")
		assert.Contains(t, out.String(), "code must be 6 digits")
		assert.Contains(t, out.String(), "Signed in as alice")

		req := verified.Load().(models.MfaVerify)
		assert.Equal(t, "k2", req.SessionKey)
		assert.Equal(t, "123456", req.Code)
	})

	t.Run("non interactive prints the session key", func(t *testing.T) {
		globals, _, _ := env.globals("")
		require.NoError(t, (&LogoutCmd{}).Run(context.Background(), globals))

		globals, out, _ := env.globals("")
		err := (&SigninCmd{Email: "alice@example.com", Password: "pw", NonInteractive: true}).Run(context.Background(), globals)
		require.NoError(t, err)
		assert.Contains(t, out.String(), "blackwatch mfa verify --session-key k1 --email alice@example.com")

		globals, out, _ = env.globals("")
		err = (&MfaVerifyCmd{SessionKey: "k1", Email: "alice@example.com", Code: "654321"}).Run(context.Background(), globals)
		require.NoError(t, err)
		assert.Contains(t, out.String(), "Signed in as alice")
		assert.Equal(t, "k1", verified.Load().(models.MfaVerify).SessionKey)
	})
}

func TestMfaVerifyCmd_MissingSessionKey(t *testing.T) {
	env := newTestEnv(t)

	globals, _, _ := env.globals("")
	err := (&MfaVerifyCmd{Code: "123456"}).Run(context.Background(), globals)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing session key")
	assert.Contains(t, err.Error(), "blackwatch signin")
}

func TestResetPasswordConfirmCmd(t *testing.T) {
	env := newTestEnv(t)

	var calls atomic.Int32
	env.mux.HandleFunc("POST /auth/reset-password/confirm", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = io.WriteString(w, `{"message":"password changed"}`)
	})

	t.Run("mismatch is caught locally", func(t *testing.T) {
		globals, _, _ := env.globals("")
		err := (&ResetPasswordConfirmCmd{Email: "a@example.com", Code: "123456", Password: "one", Confirm: "two"}).Run(context.Background(), globals)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "passwords do not match")
		assert.Zero(t, calls.Load())
	})

	t.Run("prompts for missing values", func(t *testing.T) {
		globals, out, _ := env.globals("123456\nsecret\nsecret\n")
		err := (&ResetPasswordConfirmCmd{Email: "a@example.com"}).Run(context.Background(), globals)
		require.NoError(t, err)
		assert.Contains(t, out.String(), "password changed")
		assert.Contains(t, out.String(), "blackwatch signin a@example.com")
		assert.Equal(t, int32(1), calls.Load())
	})
}

func TestSignupCmd(t *testing.T) {
	env := newTestEnv(t)
	env.reply("POST /auth/signup/request", http.StatusOK, `{"message":"check your inbox"}`)
	env.reply("POST /auth/signup/verify", http.StatusBadRequest, `{"message":"code expired"}`)

	globals, out, _ := env.globals("")
	require.NoError(t, (&SignupRequestCmd{Email: "new@example.com"}).Run(context.Background(), globals))
	assert.Contains(t, out.String(), "check your inbox")
	assert.Contains(t, out.String(), "blackwatch signup verify --email new@example.com")

	globals, _, errOut := env.globals("")
	err := (&SignupVerifyCmd{Email: "new@example.com", Code: "123456", Username: "new", Password: "pw"}).Run(context.Background(), globals)
	require.Error(t, err)
	assert.Equal(t, "signup verify: code expired", err.Error())
	assert.Empty(t, errOut.String(), "validation failures are not notified")
}

func TestGuards(t *testing.T) {
	env := newTestEnv(t)

	t.Run("signed out", func(t *testing.T) {
		globals, _, _ := env.globals("")
		err := (&LeakedListCmd{}).Run(context.Background(), globals)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not signed in")
		assert.Contains(t, err.Error(), "blackwatch signin")
	})

	t.Run("missing role", func(t *testing.T) {
		env.signIn(t, models.RoleUser)
		globals, _, _ := env.globals("")
		err := (&DBSessionsListCmd{}).Run(context.Background(), globals)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "requires the CONTRIBUTOR role")
	})

	t.Run("admin passes contributor checks", func(t *testing.T) {
		env.reply("GET /contrib/mongo-sessions", http.StatusOK, `[]`)
		env.signIn(t, models.RoleAdmin)
		globals, out, _ := env.globals("")
		require.NoError(t, (&DBSessionsListCmd{}).Run(context.Background(), globals))
		assert.Contains(t, out.String(), "No sessions found.")
	})
}

func TestSessionRejected(t *testing.T) {
	env := newTestEnv(t)
	env.reply("GET /account/me", http.StatusUnauthorized, `{"message":"token revoked"}`)
	env.signIn(t, models.RoleUser)

	globals, _, errOut := env.globals("")
	err := (&AccountShowCmd{}).Run(context.Background(), globals)
	require.Error(t, err)
	assert.Equal(t, "account failed", err.Error())

	assert.Equal(t, 1, strings.Count(errOut.String(), "your session has expired, please sign in again"))
	assert.Contains(t, errOut.String(), "session expired: run 'blackwatch signin'")

	globals, out, _ := env.globals("")
	require.NoError(t, (&StatusCmd{}).Run(context.Background(), globals))
	assert.Contains(t, out.String(), "Not signed in")
}

func TestAccountUpdateCmd(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t, models.RoleUser)

	t.Run("nothing to update", func(t *testing.T) {
		globals, _, _ := env.globals("")
		err := (&AccountUpdateCmd{}).Run(context.Background(), globals)
		require.ErrorIs(t, err, errNothingToUpdate)
	})

	t.Run("server rejects", func(t *testing.T) {
		env.reply("PATCH /account/me", http.StatusConflict, `{"message":"username taken"}`)
		globals, _, errOut := env.globals("")
		err := (&AccountUpdateCmd{Username: "bob"}).Run(context.Background(), globals)
		require.Error(t, err)
		assert.Equal(t, "account update: username taken", err.Error())
		assert.Empty(t, errOut.String())
	})
}

func TestLeakedSubmitCmd_Retry(t *testing.T) {
	prev := retryInterval
	retryInterval = time.Millisecond
	t.Cleanup(func() { retryInterval = prev })

	env := newTestEnv(t)
	env.signIn(t, models.RoleContributor)

	var calls atomic.Int32
	env.mux.HandleFunc("POST /data/leaked", func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = io.WriteString(w, `{"result":"ACCEPTED"}`)
	})

	file := filepath.Join(t.TempDir(), "entry.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"clientId":"c1","host":"example.onion","title":"dump","article":"x"}`), 0600))

	globals, out, errOut := env.globals("")
	err := (&LeakedSubmitCmd{File: file, Retry: 3}).Run(context.Background(), globals)
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.Contains(t, out.String(), "ACCEPTED")
	assert.Equal(t, 2, strings.Count(errOut.String(), "too many requests"))

	t.Run("stdin", func(t *testing.T) {
		globals, out, _ := env.globals(`{"clientId":"c1","host":"h","title":"t","article":"a"}`)
		require.NoError(t, (&LeakedSubmitCmd{File: "-"}).Run(context.Background(), globals))
		assert.Contains(t, out.String(), "ACCEPTED")
	})

	t.Run("unknown fields are rejected", func(t *testing.T) {
		globals, _, _ := env.globals(`{"hostname":"h"}`)
		err := (&LeakedSubmitCmd{File: "-"}).Run(context.Background(), globals)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse")
	})
}

func TestUploadCmd(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t, models.RoleContributor)

	var received atomic.Int64
	env.mux.HandleFunc("POST /contrib/uploads", func(w http.ResponseWriter, r *http.Request) {
		f, _, err := r.FormFile("file")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		n, _ := io.Copy(io.Discard, f)
		received.Store(n)
		_, _ = io.WriteString(w, `{"result":"stored"}`)
	})

	file := filepath.Join(t.TempDir(), "dump.csv")
	require.NoError(t, os.WriteFile(file, bytes.Repeat([]byte("a,b\n"), 4096), 0600))

	globals, out, _ := env.globals("")
	err := (&UploadCmd{File: file, Path: "/contrib/uploads", Field: "file"}).Run(context.Background(), globals)
	require.NoError(t, err)
	assert.Equal(t, int64(4*4096), received.Load())
	assert.Contains(t, out.String(), "100%")
	assert.Contains(t, out.String(), "Uploaded dump.csv (16384 bytes)")
}

func TestDBSessionsCmd(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t, models.RoleContributor)

	expires := time.Now().Add(10 * time.Minute).UTC().Format("2006-01-02T15:04:05")
	env.reply("POST /contrib/mongo-sessions", http.StatusOK,
		`{"sessionId":"s1","databaseName":"intel","username":"u","password":"p","connectionString":"mongodb://db","expiresAt":"`+expires+`"}`)
	env.reply("PUT /contrib/mongo-sessions/s1/extend", http.StatusOK, `{"sessionId":"s1","expiresAt":"`+expires+`"}`)

	globals, out, _ := env.globals("")
	require.NoError(t, (&DBSessionsCreateCmd{}).Run(context.Background(), globals))
	assert.Contains(t, out.String(), "Password:     p")
	assert.Contains(t, out.String(), "blackwatch db-sessions extend s1")

	globals, out, _ = env.globals("")
	require.NoError(t, (&DBSessionsExtendCmd{SessionID: "s1", Hours: 2}).Run(context.Background(), globals))
	assert.Contains(t, out.String(), "Session s1 now expires")

	globals, _, _ = env.globals("")
	err := (&DBSessionsExtendCmd{SessionID: "s1", Hours: 0}).Run(context.Background(), globals)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "additional hours must be positive")
}

func TestAdminApplicationsCmd(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t, models.RoleAdmin)
	env.reply("GET /admin/applications/pending", http.StatusOK, `[{"userId":"u9","status":"PENDING","jobs":"analyst","createdAt":"2026-03-01T12:00:00"}]`)
	env.reply("POST /admin/applications/u9/approve", http.StatusOK, `{"message":"approved"}`)

	globals, out, _ := env.globals("")
	require.NoError(t, (&AdminListCmd{Pending: true}).Run(context.Background(), globals))
	assert.Contains(t, out.String(), "u9")
	assert.Contains(t, out.String(), "Total applications: 1")

	globals, out, _ = env.globals("")
	require.NoError(t, (&AdminApproveCmd{UserID: "u9"}).Run(context.Background(), globals))
	assert.Contains(t, out.String(), "approved")

	t.Run("debug event", func(t *testing.T) {
		prev := log.Logger
		t.Cleanup(func() { log.Logger = prev })

		var buf bytes.Buffer
		log.Logger = zerolog.New(&buf).Level(zerolog.DebugLevel)

		globals, _, _ := env.globals("")
		require.NoError(t, (&AdminApproveCmd{UserID: "u9"}).Run(context.Background(), globals))
		assert.Contains(t, buf.String(), `"message":"application decided"`)
		assert.Contains(t, buf.String(), `"action":"approve"`)
		assert.Contains(t, buf.String(), `"user_id":"u9"`)
	})
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab...", truncate("abcdefgh", 5))
	assert.Equal(t, "ab", truncate("abcdefgh", 2))
}

func TestConfigDebugLogsRequests(t *testing.T) {
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })

	var buf bytes.Buffer
	log.Logger = zerolog.New(&buf).Level(zerolog.InfoLevel)

	env := newTestEnv(t)
	env.writeConfig(t, "profile: production\ndebug: true\n")
	env.signIn(t, models.RoleUser)
	env.reply("GET /account/me", http.StatusOK, `{"userId":"u1","username":"alice","email":"alice@example.com"}`)

	globals, out, _ := env.globals("")
	require.NoError(t, (&AccountShowCmd{}).Run(context.Background(), globals))
	assert.Contains(t, out.String(), "alice")

	assert.Contains(t, buf.String(), `"message":"api call"`)
	assert.Contains(t, buf.String(), "/account/me")
}

func TestCorruptSessionFile(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.MkdirAll(env.sessionDir, 0700))
	sessionFile := filepath.Join(env.sessionDir, session.Namespace+".json")
	require.NoError(t, os.WriteFile(sessionFile, []byte("{not json"), 0600))

	t.Run("status", func(t *testing.T) {
		globals, out, _ := env.globals("")
		require.NoError(t, (&StatusCmd{}).Run(context.Background(), globals))
		assert.Contains(t, out.String(), "Not signed in")
	})

	t.Run("logout", func(t *testing.T) {
		globals, out, _ := env.globals("")
		require.NoError(t, (&LogoutCmd{}).Run(context.Background(), globals))
		assert.Contains(t, out.String(), "Signed out")
	})

	t.Run("signin replaces the file", func(t *testing.T) {
		env.reply("POST /auth/signin", http.StatusOK, signinBody(models.RoleUser))
		env.reply("GET /account/me", http.StatusOK, `{"userId":"u1","username":"alice","email":"alice@example.com"}`)

		globals, out, _ := env.globals("")
		require.NoError(t, (&SigninCmd{Email: "alice@example.com", Password: "pw"}).Run(context.Background(), globals))
		assert.Contains(t, out.String(), "Signed in as alice")

		data, err := os.ReadFile(sessionFile)
		require.NoError(t, err)
		assert.True(t, json.Valid(data))
	})
}
