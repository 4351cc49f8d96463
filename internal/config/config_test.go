package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("explicit file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
profile: staging
baseUrl: https://api.example.com/api
timeout: 10s
cache: true
`), 0o600))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "staging", cfg.Profile)
		assert.Equal(t, "https://api.example.com/api", cfg.BaseURL)
		assert.Equal(t, 10*time.Second, cfg.Timeout)
		assert.True(t, cfg.Cache)
	})

	t.Run("explicit file must exist", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)
	})

	t.Run("default location may be absent", func(t *testing.T) {
		t.Setenv("HOME", t.TempDir())

		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})

	t.Run("malformed file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("timeout: [nope"), 0o600))

		_, err := Load(path)
		assert.Error(t, err)
	})
}

func TestApply(t *testing.T) {
	cfg := Config{Profile: "staging", BaseURL: "https://a.example.com", Timeout: 10 * time.Second, Cache: true}

	cfg.Apply(Overrides{BaseURL: "https://b.example.com", Debug: true})

	assert.Equal(t, "staging", cfg.Profile)
	assert.Equal(t, "https://b.example.com", cfg.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.True(t, cfg.Debug)
	assert.True(t, cfg.Cache, "flags cannot switch off a file setting")
}

func TestValidate(t *testing.T) {
	t.Run("dev profile defaults the base url", func(t *testing.T) {
		cfg := Default()
		cfg.Profile = ProfileDev

		require.NoError(t, cfg.Validate())
		assert.Equal(t, DefaultDevBaseURL, cfg.BaseURL)
	})

	t.Run("missing base url outside dev", func(t *testing.T) {
		cfg := Default()
		assert.ErrorIs(t, cfg.Validate(), ErrMissingBaseURL)
	})

	t.Run("base url must be absolute", func(t *testing.T) {
		cfg := Default()
		cfg.BaseURL = "/api"
		assert.Error(t, cfg.Validate())
	})

	t.Run("timeout must be positive", func(t *testing.T) {
		cfg := Default()
		cfg.BaseURL = "https://api.example.com"
		cfg.Timeout = 0
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidTimeout)
	})

	t.Run("client settings", func(t *testing.T) {
		cfg := Default()
		cfg.BaseURL = "https://api.example.com"
		cfg.Cache = true
		require.NoError(t, cfg.Validate())

		cc := cfg.Client()
		assert.Equal(t, "https://api.example.com", cc.BaseURL)
		assert.Equal(t, DefaultTimeout, cc.Timeout)
		assert.True(t, cc.Cache)
	})
}
