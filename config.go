// CLAUDE:SUMMARY Configuration struct, defaults, YAML loading and env overrides for the hydrate decoder.
package hydrate

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/hydrate/locate"
	"github.com/hazyhaar/hydrate/shield"
)

// EnvPayloadMode selects the decode mode: "js" means script execution,
// anything else (or unset) means data island.
const EnvPayloadMode = "HYDRATE_PAYLOAD"

// Config configures a Decoder. The mode is a deployment setting: it must
// match how the paired server encoder was configured.
type Config struct {
	// Mode is "json" (data island, default) or "js" (inline script).
	Mode locate.Mode `yaml:"mode"`

	// MaxDocumentSize rejects larger documents (default: 10 MB).
	MaxDocumentSize int64 `yaml:"max_document_size"`

	// ScriptTimeout bounds script-mode evaluation (default: 5s).
	ScriptTimeout time.Duration `yaml:"script_timeout"`

	// Fetch configures the HTTP acquisition used by the CLI.
	Fetch FetchConfig `yaml:"fetch"`

	// RateLimit caps HTTP API requests per client IP. Zero disables it.
	RateLimit shield.RateLimitConfig `yaml:"rate_limit"`

	// Logger for debug/error messages.
	Logger *slog.Logger `yaml:"-"`
}

// FetchConfig controls retrieval of rendered pages.
type FetchConfig struct {
	UserAgent    string `yaml:"user_agent"`
	AllowPrivate bool   `yaml:"allow_private"` // allow localhost dev servers
	MaxBytes     int64  `yaml:"max_bytes"`
}

func (c *Config) defaults() {
	if c.Mode == "" {
		c.Mode = locate.ModeDataIsland
	}
	if c.MaxDocumentSize <= 0 {
		c.MaxDocumentSize = 10 * 1024 * 1024
	}
	if c.ScriptTimeout <= 0 {
		c.ScriptTimeout = 5 * time.Second
	}
	if c.Fetch.MaxBytes <= 0 {
		c.Fetch.MaxBytes = c.MaxDocumentSize
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

func (c *Config) validate() error {
	m, err := locate.ParseMode(string(c.Mode))
	if err != nil {
		return fmt.Errorf("hydrate: config: %w", err)
	}
	c.Mode = m
	return nil
}

// ModeFromEnv reads EnvPayloadMode through getenv.
func ModeFromEnv(getenv func(string) string) locate.Mode {
	if getenv(EnvPayloadMode) == string(locate.ModeScript) {
		return locate.ModeScript
	}
	return locate.ModeDataIsland
}

// LoadConfigFile reads a YAML configuration file. EnvPayloadMode, when set,
// overrides the file's mode.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("hydrate: parse %s: %w", path, err)
	}
	if os.Getenv(EnvPayloadMode) != "" {
		cfg.Mode = ModeFromEnv(os.Getenv)
	}

	cfg.defaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
