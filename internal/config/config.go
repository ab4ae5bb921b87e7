// Package config loads adminctl settings from ~/.adminconsole/config.yaml
// with ADMINCONSOLE_* environment overrides.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/adminconsole/internal/errors"
)

const (
	// DirName is the per-user state directory under $HOME.
	DirName = ".adminconsole"
	// FileName is the config file inside DirName.
	FileName = "config.yaml"
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "ADMINCONSOLE_"

	DefaultAPIURL          = "http://localhost:8000/api"
	DefaultTimeout         = 10 * time.Second
	DefaultFreshnessWindow = 5 * time.Minute
)

// Config is the adminctl configuration.
type Config struct {
	APIURL          string          `yaml:"api_url"`
	SystemCode      string          `yaml:"system_code,omitempty"`
	ClientCode      string          `yaml:"client_code,omitempty"`
	Timeout         Duration        `yaml:"timeout"`
	FreshnessWindow Duration        `yaml:"freshness_window"`
	DemoLogin       bool            `yaml:"demo_login"`
	StateDir        string          `yaml:"state_dir,omitempty"`
	LogLevel        string          `yaml:"log_level,omitempty"`
	LogFormat       string          `yaml:"log_format,omitempty"`
	Telemetry       TelemetryConfig `yaml:"telemetry,omitempty"`

	// Passphrase seals the credential file with age. Environment only.
	Passphrase string `yaml:"-"`
}

// TelemetryConfig controls trace export.
type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled,omitempty"`
	Endpoint string `yaml:"endpoint,omitempty"`
}

// Duration is a time.Duration written as "10s" in YAML.
type Duration time.Duration

// UnmarshalYAML accepts Go duration strings and bare seconds.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := parseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return d, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		APIURL:          DefaultAPIURL,
		Timeout:         Duration(DefaultTimeout),
		FreshnessWindow: Duration(DefaultFreshnessWindow),
		DemoLogin:       true,
		LogLevel:        "warn",
		LogFormat:       "text",
	}
}

// Dir returns ~/.adminconsole.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, DirName), nil
}

// Path returns the config file path. ADMINCONSOLE_CONFIG overrides it.
func Path() (string, error) {
	if p := os.Getenv(EnvPrefix + "CONFIG"); p != "" {
		return p, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName), nil
}

// Load reads path (a missing file yields defaults), applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if cfg.StateDir == "" {
		cfg.StateDir = filepath.Dir(path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads path on top of the defaults without environment
// overrides or validation. A missing file yields the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, errors.Wrap(errors.ErrCodeConfig, errors.KindUnknown, "failed to read config", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(errors.ErrCodeConfig, errors.KindUnknown, "failed to parse config", err).
				WithSuggestion("Check " + path + " for YAML syntax errors")
		}
	}
	return cfg, nil
}

// ApplyEnv overrides fields from ADMINCONSOLE_* variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			*dst = v
		}
	}
	str("API_URL", &c.APIURL)
	str("SYSTEM_CODE", &c.SystemCode)
	str("CLIENT_CODE", &c.ClientCode)
	str("STATE_DIR", &c.StateDir)
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FORMAT", &c.LogFormat)
	str("PASSPHRASE", &c.Passphrase)
	str("TELEMETRY_ENDPOINT", &c.Telemetry.Endpoint)

	for key, dst := range map[string]*Duration{"TIMEOUT": &c.Timeout, "FRESHNESS_WINDOW": &c.FreshnessWindow} {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			d, err := parseDuration(v)
			if err != nil {
				return errors.Wrap(errors.ErrCodeConfig, errors.KindValidation, EnvPrefix+key, err)
			}
			*dst = Duration(d)
		}
	}
	for key, dst := range map[string]*bool{"DEMO_LOGIN": &c.DemoLogin, "TELEMETRY_ENABLED": &c.Telemetry.Enabled} {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return errors.Wrap(errors.ErrCodeConfig, errors.KindValidation, EnvPrefix+key, err)
			}
			*dst = b
		}
	}
	return nil
}

// Validate rejects unusable settings.
func (c *Config) Validate() error {
	fields := make(map[string][]string)

	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		fields["api_url"] = append(fields["api_url"], "must be an absolute http(s) URL")
	}
	if c.Timeout <= 0 {
		fields["timeout"] = append(fields["timeout"], "must be positive")
	}
	if c.FreshnessWindow <= 0 {
		fields["freshness_window"] = append(fields["freshness_window"], "must be positive")
	}
	if c.Telemetry.Enabled && c.Telemetry.Endpoint != "" {
		if e, err := url.Parse(c.Telemetry.Endpoint); err != nil || e.Host == "" {
			fields["telemetry.endpoint"] = append(fields["telemetry.endpoint"], "must be a URL")
		}
	}

	if len(fields) == 0 {
		return nil
	}
	return errors.New(errors.ErrCodeConfig, errors.KindValidation, "invalid configuration").WithFields(fields)
}

// Save writes c to path with mode 0600, creating the directory.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Keys lists the settable keys.
func Keys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var setters = map[string]func(*Config, string) error{
	"api_url":     func(c *Config, v string) error { c.APIURL = v; return nil },
	"system_code": func(c *Config, v string) error { c.SystemCode = v; return nil },
	"client_code": func(c *Config, v string) error { c.ClientCode = v; return nil },
	"state_dir":   func(c *Config, v string) error { c.StateDir = v; return nil },
	"log_level":   func(c *Config, v string) error { c.LogLevel = v; return nil },
	"log_format":  func(c *Config, v string) error { c.LogFormat = v; return nil },
	"timeout": func(c *Config, v string) error {
		d, err := parseDuration(v)
		c.Timeout = Duration(d)
		return err
	},
	"freshness_window": func(c *Config, v string) error {
		d, err := parseDuration(v)
		c.FreshnessWindow = Duration(d)
		return err
	},
	"demo_login": func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		c.DemoLogin = b
		return err
	},
	"telemetry.enabled": func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		c.Telemetry.Enabled = b
		return err
	},
	"telemetry.endpoint": func(c *Config, v string) error { c.Telemetry.Endpoint = v; return nil },
}

// Set assigns value to a dotted key and re-validates.
func (c *Config) Set(key, value string) error {
	set, ok := setters[key]
	if !ok {
		return errors.New(errors.ErrCodeConfig, errors.KindValidation, "unknown config key: "+key).
			WithSuggestion("Valid keys: " + strings.Join(Keys(), ", "))
	}
	if err := set(c, value); err != nil {
		return errors.Wrap(errors.ErrCodeConfig, errors.KindValidation, "invalid value for "+key, err)
	}
	return c.Validate()
}
