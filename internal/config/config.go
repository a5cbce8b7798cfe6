package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"
)

const (
	AppName = "voipcheck"

	DefaultFetchTimeout    = "90s"
	DefaultStepTimeout     = "30s"
	DefaultPingTimeout     = "20s"
	DefaultLogLevel        = "info"
	DefaultLogMaxSizeMB    = 5
	DefaultLogMaxBackups   = 3
	DefaultAdapterPolicy   = PolicyEveryCycle
	DefaultRegistrationPol = PolicyOnChange
)

// Policy controls when a success heartbeat is repeated
type Policy string

const (
	// PolicyEveryCycle sends the success signal on every cycle the condition holds
	PolicyEveryCycle Policy = "every_cycle"
	// PolicyOnChange sends the success signal only when the condition starts to hold
	PolicyOnChange Policy = "on_change"
)

// Config represents the voipcheck configuration
type Config struct {
	AdapterURL string `toml:"adapter_url"`
	// AdapterIP is the older form of AdapterURL
	AdapterIP string `toml:"adapter_ip"`
	Service   string `toml:"service"`
	Username  string `toml:"username"`

	AdapterPingURL           string `toml:"adapter_ping_url"`
	RegistrationStatePingURL string `toml:"registration_state_ping_url"`
	Line1                    Line   `toml:"line1"`
	Line2                    Line   `toml:"line2"`

	AdapterPingPolicy      Policy `toml:"adapter_ping_policy"`
	RegistrationPingPolicy Policy `toml:"registration_ping_policy"`

	FetchTimeout string `toml:"fetch_timeout"`
	StepTimeout  string `toml:"step_timeout"`
	PingTimeout  string `toml:"ping_timeout"`

	StateFile string  `toml:"state_file"`
	Browser   Browser `toml:"browser"`
	Log       Log     `toml:"log"`
}

// Line holds the per-line heartbeat settings
type Line struct {
	HookStatePingURL string `toml:"hook_state_ping_url"`
}

// Browser configures the headless browser used to read the status page
type Browser struct {
	Bin      string `toml:"bin"`
	Headless *bool  `toml:"headless"`
}

// Log configures the rotating log file
type Log struct {
	Level      string `toml:"level"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
}

// ConfigError reports missing or invalid settings
type ConfigError struct {
	Path     string
	Problems []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %s", e.Path, strings.Join(e.Problems, "; "))
}

// GetConfigPath returns the path to the user's config file
func GetConfigPath() (string, error) {
	path, err := xdg.ConfigFile(filepath.Join(AppName, AppName+".toml"))
	if err != nil {
		return "", fmt.Errorf("failed to resolve config path: %w", err)
	}
	return path, nil
}

// GetStatePath returns the default location of the persisted check state
func GetStatePath() (string, error) {
	path, err := xdg.StateFile(filepath.Join(AppName, "state.yaml"))
	if err != nil {
		return "", fmt.Errorf("failed to resolve state path: %w", err)
	}
	return path, nil
}

// GetLogPath returns the default location of the log file
func GetLogPath() (string, error) {
	path, err := xdg.StateFile(filepath.Join(AppName, "log", AppName+".log"))
	if err != nil {
		return "", fmt.Errorf("failed to resolve log path: %w", err)
	}
	return path, nil
}

// InitConfig writes the default config file to path
func InitConfig(path string, force bool) error {
	return WriteConfig(path, DefaultConfigText(), force)
}

// WriteConfig writes content to path, creating the directory
func WriteConfig(path, content string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// ping URLs are bearer credentials
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadConfig reads, normalizes and validates the config file at path.
// Keys the file sets but Config does not know are returned as warnings.
func LoadConfig(path string) (*Config, []string, error) {
	var cfg Config
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, fmt.Errorf("config file not found: %w", err)
		}
		return nil, nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	var warnings []string
	for _, key := range meta.Undecoded() {
		warnings = append(warnings, fmt.Sprintf("unknown setting %q ignored", key.String()))
	}
	sort.Strings(warnings)

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		var cerr *ConfigError
		if errors.As(err, &cerr) {
			cerr.Path = path
		}
		return nil, warnings, err
	}

	return &cfg, warnings, nil
}

// normalize fills defaults and resolves environment references
func (c *Config) normalize() {
	if c.AdapterURL == "" && c.AdapterIP != "" {
		c.AdapterURL = "http://" + strings.TrimSpace(c.AdapterIP) + "/"
	}
	c.AdapterURL = strings.TrimSpace(c.AdapterURL)

	c.AdapterPingURL = ResolveEnv(strings.TrimSpace(c.AdapterPingURL))
	c.RegistrationStatePingURL = ResolveEnv(strings.TrimSpace(c.RegistrationStatePingURL))
	c.Line1.HookStatePingURL = ResolveEnv(strings.TrimSpace(c.Line1.HookStatePingURL))
	c.Line2.HookStatePingURL = ResolveEnv(strings.TrimSpace(c.Line2.HookStatePingURL))

	if c.AdapterPingPolicy == "" {
		c.AdapterPingPolicy = DefaultAdapterPolicy
	}
	if c.RegistrationPingPolicy == "" {
		c.RegistrationPingPolicy = DefaultRegistrationPol
	}
	if c.FetchTimeout == "" {
		c.FetchTimeout = DefaultFetchTimeout
	}
	if c.StepTimeout == "" {
		c.StepTimeout = DefaultStepTimeout
	}
	if c.PingTimeout == "" {
		c.PingTimeout = DefaultPingTimeout
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.MaxSizeMB <= 0 {
		c.Log.MaxSizeMB = DefaultLogMaxSizeMB
	}
	if c.Log.MaxBackups <= 0 {
		c.Log.MaxBackups = DefaultLogMaxBackups
	}
}

// Validate checks that required settings are present and well formed
func (c *Config) Validate() error {
	var problems []string

	if c.AdapterURL == "" {
		problems = append(problems, `"adapter_url" is required`)
	} else if CheckURL(c.AdapterURL) != nil {
		problems = append(problems, fmt.Sprintf(`"adapter_url" %q must be an http(s) URL`, c.AdapterURL))
	}
	if strings.TrimSpace(c.Service) == "" {
		problems = append(problems, `"service" is required`)
	}
	if strings.TrimSpace(c.Username) == "" {
		problems = append(problems, `"username" is required`)
	}

	for name, value := range map[string]string{
		"adapter_ping_url":            c.AdapterPingURL,
		"registration_state_ping_url": c.RegistrationStatePingURL,
		"line1.hook_state_ping_url":   c.Line1.HookStatePingURL,
		"line2.hook_state_ping_url":   c.Line2.HookStatePingURL,
	} {
		if value == "" {
			continue
		}
		if CheckURL(value) != nil {
			problems = append(problems, fmt.Sprintf("%q %q must be an http(s) URL", name, value))
		}
	}

	for name, p := range map[string]Policy{
		"adapter_ping_policy":      c.AdapterPingPolicy,
		"registration_ping_policy": c.RegistrationPingPolicy,
	} {
		if p != PolicyEveryCycle && p != PolicyOnChange {
			problems = append(problems, fmt.Sprintf("%q must be %q or %q, got %q", name, PolicyEveryCycle, PolicyOnChange, p))
		}
	}

	for name, value := range map[string]string{
		"fetch_timeout": c.FetchTimeout,
		"step_timeout":  c.StepTimeout,
		"ping_timeout":  c.PingTimeout,
	} {
		if d, err := time.ParseDuration(value); err != nil || d <= 0 {
			problems = append(problems, fmt.Sprintf("%q %q is not a positive duration", name, value))
		}
	}

	if len(problems) == 0 {
		return nil
	}
	sort.Strings(problems)
	return &ConfigError{Problems: problems}
}

// CheckURL returns an error unless value is an absolute http(s) URL
func CheckURL(value string) error {
	u, err := url.Parse(value)
	if err != nil {
		return err
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%q is not an http(s) URL", value)
	}
	return nil
}

// Timeouts returns the parsed fetch, per-step and ping timeouts.
// Validate guarantees they parse.
func (c *Config) Timeouts() (fetch, step, ping time.Duration) {
	fetch, _ = time.ParseDuration(c.FetchTimeout)
	step, _ = time.ParseDuration(c.StepTimeout)
	ping, _ = time.ParseDuration(c.PingTimeout)
	return fetch, step, ping
}

// IsHeadless reports whether the browser runs without a window (default true)
func (b Browser) IsHeadless() bool {
	return b.Headless == nil || *b.Headless
}

// StatePath returns the configured state file or the default location
func (c *Config) StatePath() (string, error) {
	if c.StateFile != "" {
		return c.StateFile, nil
	}
	return GetStatePath()
}

// LogPath returns the configured log file or the default location
func (c *Config) LogPath() (string, error) {
	if c.Log.File != "" {
		return c.Log.File, nil
	}
	return GetLogPath()
}

// DefaultConfigText returns the default configuration as TOML
func DefaultConfigText() string {
	return RenderConfig(Template{
		AdapterURL: "http://192.168.1.1/",
		Service:    "2100-VOIP2CS",
		Username:   "admin",
	})
}

// Template holds the values written by init
type Template struct {
	AdapterURL               string
	Service                  string
	Username                 string
	AdapterPingURL           string
	RegistrationStatePingURL string
	Line1HookStatePingURL    string
	Line2HookStatePingURL    string
}

// RenderConfig renders a commented config file from t
func RenderConfig(t Template) string {
	return fmt.Sprintf(`# voipcheck configuration

# Status page of the analog telephone adapter
adapter_url = %q

# Keyring entry holding the adapter password (see "voipcheck password")
service = %q
username = %q

# Heartbeat URLs. Leave a URL empty to disable that signal.
# ${VAR} references are read from the environment.
adapter_ping_url = %q
registration_state_ping_url = %q

# When to repeat success pings: "every_cycle" or "on_change"
adapter_ping_policy = %q
registration_ping_policy = %q

fetch_timeout = %q
step_timeout = %q
ping_timeout = %q

[line1]
hook_state_ping_url = %q

[line2]
hook_state_ping_url = %q

[browser]
# Chromium binary; empty downloads or finds one automatically
bin = ""
headless = true

[log]
level = %q
max_size_mb = %d
max_backups = %d
`, t.AdapterURL, t.Service, t.Username,
		t.AdapterPingURL, t.RegistrationStatePingURL,
		DefaultAdapterPolicy, DefaultRegistrationPol,
		DefaultFetchTimeout, DefaultStepTimeout, DefaultPingTimeout,
		t.Line1HookStatePingURL, t.Line2HookStatePingURL,
		DefaultLogLevel, DefaultLogMaxSizeMB, DefaultLogMaxBackups)
}

// ResolveEnv replaces environment variable placeholders with actual values
// Supports ${VAR_NAME} syntax
func ResolveEnv(value string) string {
	if !strings.Contains(value, "${") {
		return value
	}
	return os.Expand(value, os.Getenv)
}
