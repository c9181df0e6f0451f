// Package config loads outlookctl settings from a YAML file and
// OUTLOOKCTL_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/daviddao/outlookctl/internal/errs"
)

// Backend names.
const (
	BackendOutlook = "outlook"
	BackendLocal   = "local"
	BackendGmail   = "gmail"
)

// Backends lists every accepted backend.
var Backends = []string{BackendOutlook, BackendLocal, BackendGmail}

// EnvPrefix namespaces environment overrides, e.g. OUTLOOKCTL_BACKEND or
// OUTLOOKCTL_AUDIT_PATH.
const EnvPrefix = "OUTLOOKCTL"

// AuditConfig locates the audit log.
type AuditConfig struct {
	// Path is empty for the platform default.
	Path string `mapstructure:"path" yaml:"path"`
}

// RetryConfig bounds connection attempts to the host.
type RetryConfig struct {
	Attempts int           `mapstructure:"attempts" yaml:"attempts"`
	Delay    time.Duration `mapstructure:"delay" yaml:"delay"`
}

// LocalConfig configures the SQLite mailbox.
type LocalConfig struct {
	Path       string `mapstructure:"path" yaml:"path"`
	OwnerName  string `mapstructure:"owner_name" yaml:"owner_name"`
	OwnerEmail string `mapstructure:"owner_email" yaml:"owner_email"`
}

// GmailConfig locates the OAuth client and token files.
type GmailConfig struct {
	Credentials string `mapstructure:"credentials" yaml:"credentials"`
	// Token is a file, defaulting to token.json next to Credentials, or
	// keyring:<key> for the system keyring.
	Token string `mapstructure:"token" yaml:"token"`
}

// Config is the full settings tree.
type Config struct {
	Backend      string      `mapstructure:"backend" yaml:"backend"`
	LogLevel     string      `mapstructure:"log_level" yaml:"log_level"`
	SnippetChars int         `mapstructure:"snippet_chars" yaml:"snippet_chars"`
	Audit        AuditConfig `mapstructure:"audit" yaml:"audit"`
	Retry        RetryConfig `mapstructure:"retry" yaml:"retry"`
	Local        LocalConfig `mapstructure:"local" yaml:"local"`
	Gmail        GmailConfig `mapstructure:"gmail" yaml:"gmail"`
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

// DefaultPath is ~/.config/outlookctl/config.yaml.
func DefaultPath() string {
	return filepath.Join(homeDir(), ".config", "outlookctl", "config.yaml")
}

func setDefaults(v *viper.Viper) {
	data := filepath.Join(homeDir(), ".outlookctl")
	v.SetDefault("backend", BackendOutlook)
	v.SetDefault("log_level", "warn")
	v.SetDefault("snippet_chars", 200)
	v.SetDefault("audit.path", "")
	v.SetDefault("retry.attempts", 3)
	v.SetDefault("retry.delay", time.Second)
	v.SetDefault("local.path", filepath.Join(data, "mailbox.db"))
	v.SetDefault("local.owner_name", "")
	v.SetDefault("local.owner_email", "me@localhost")
	v.SetDefault("gmail.credentials", filepath.Join(data, "gmail", "credentials.json"))
	v.SetDefault("gmail.token", "")
}

// Load reads path (DefaultPath when empty) and applies environment
// overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		var pathErr *os.PathError
		if !errors.As(err, &notFound) && !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if cfg.Gmail.Token == "" {
		cfg.Gmail.Token = filepath.Join(filepath.Dir(cfg.Gmail.Credentials), "token.json")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values viper cannot type-check.
func (c *Config) Validate() error {
	known := false
	for _, b := range Backends {
		if c.Backend == b {
			known = true
		}
	}
	if !known {
		return errs.New(errs.Validation, "config", "unknown backend %q", c.Backend).
			WithHint("Set backend to one of: " + strings.Join(Backends, ", ") + ".")
	}
	if c.Retry.Attempts < 1 {
		return errs.New(errs.Validation, "config", "retry.attempts must be at least 1")
	}
	if c.SnippetChars < 1 {
		return errs.New(errs.Validation, "config", "snippet_chars must be at least 1")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps debug/info/warn/error to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, errs.New(errs.Validation, "config", "unknown log level %q", s)
	}
	return l, nil
}

// Logger returns a text logger on w at the configured level.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, err := ParseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
