// Package config resolves client settings from defaults, an optional YAML
// file and command line flags or environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/wolfeidau/blackwatch/internal/client"
	"gopkg.in/yaml.v3"
)

const (
	ProfileDev        = "dev"
	ProfileProduction = "production"

	DefaultDevBaseURL = "http://localhost:8080/api"
	DefaultTimeout    = 30 * time.Second
	DefaultDirName    = ".blackwatch"
	DefaultFileName   = "config.yaml"
)

var (
	ErrMissingBaseURL = errors.New("api base url is required outside the dev profile")
	ErrInvalidTimeout = errors.New("timeout must be positive")
)

type Config struct {
	Profile    string        `yaml:"profile"`
	BaseURL    string        `yaml:"baseUrl"`
	Timeout    time.Duration `yaml:"timeout"`
	Debug      bool          `yaml:"debug"`
	SessionDir string        `yaml:"sessionDir"`
	Cache      bool          `yaml:"cache"`
	CacheDir   string        `yaml:"cacheDir"`
	Telemetry  bool          `yaml:"telemetry"`
}

// Overrides are values supplied on the command line or through the
// environment. Zero values leave the loaded setting alone.
type Overrides struct {
	Profile    string
	BaseURL    string
	Timeout    time.Duration
	Debug      bool
	SessionDir string
	Cache      bool
	CacheDir   string
	Telemetry  bool
}

func Default() Config {
	return Config{
		Profile: ProfileProduction,
		Timeout: DefaultTimeout,
	}
}

// DefaultDir returns ~/.blackwatch.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, DefaultDirName), nil
}

// Load reads path over the defaults. An empty path means the default location,
// which may be absent; an explicit path must exist.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		dir, err := DefaultDir()
		if err != nil {
			return cfg, err
		}
		path = filepath.Join(dir, DefaultFileName)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return cfg, nil
}

// Apply layers o over c.
func (c *Config) Apply(o Overrides) {
	if o.Profile != "" {
		c.Profile = o.Profile
	}
	if o.BaseURL != "" {
		c.BaseURL = o.BaseURL
	}
	if o.Timeout != 0 {
		c.Timeout = o.Timeout
	}
	if o.SessionDir != "" {
		c.SessionDir = o.SessionDir
	}
	if o.CacheDir != "" {
		c.CacheDir = o.CacheDir
	}
	c.Debug = c.Debug || o.Debug
	c.Cache = c.Cache || o.Cache
	c.Telemetry = c.Telemetry || o.Telemetry
}

// Validate fills profile defaults and rejects settings the client cannot run with.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		if c.Profile != ProfileDev {
			return fmt.Errorf("%w (profile %q): set --base-url or BLACKWATCH_API_BASE_URL", ErrMissingBaseURL, c.Profile)
		}
		c.BaseURL = DefaultDevBaseURL
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid api base url %q", c.BaseURL)
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("%w, got %s", ErrInvalidTimeout, c.Timeout)
	}

	return nil
}

// Client returns the request pipeline settings.
func (c Config) Client() client.Config {
	return client.Config{
		BaseURL:  c.BaseURL,
		Timeout:  c.Timeout,
		Debug:    c.Debug,
		Cache:    c.Cache,
		CacheDir: c.CacheDir,
	}
}
