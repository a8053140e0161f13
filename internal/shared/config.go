package shared

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Session     SessionConfig     `toml:"session"`
	Playback    PlaybackConfig    `toml:"playback"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	YouTube YouTubeConfig `toml:"youtube"`
}

// YouTubeConfig contains the implicit-grant client settings and API endpoints.
type YouTubeConfig struct {
	ClientID    string `toml:"client_id"`
	RedirectURI string `toml:"redirect_uri"`
	Scope       string `toml:"scope"`
	AuthURL     string `toml:"auth_url"`
	RevokeURL   string `toml:"revoke_url"`
	APIURL      string `toml:"api_url"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains settings for the local callback server.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// SessionConfig controls credential renewal and idle supervision.
type SessionConfig struct {
	IdleLimit      Duration `toml:"idle_limit"`
	IdleInterval   Duration `toml:"idle_check_interval"`
	PlaybackGrace  Duration `toml:"playback_grace"`
	RenewalLead    Duration `toml:"renewal_lead"`
	LoginTimeout   Duration `toml:"login_timeout"`
	MaxPages       int      `toml:"max_pages"`
	DurationBatch  int      `toml:"duration_batch"`
	RequestsPerSec float64  `toml:"requests_per_second"`
}

// PlaybackConfig controls progress polling, watch credit and the display window.
type PlaybackConfig struct {
	PollInterval   Duration `toml:"poll_interval"`
	WatchThreshold float64  `toml:"watch_threshold"`
	WindowSize     int      `toml:"window_size"`
	PageStep       int      `toml:"page_step"`
	Player         string   `toml:"player"`
	MPVPath        string   `toml:"mpv_path"`
}

// Duration wraps [time.Duration] so TOML files can use strings like "15m".
type Duration struct {
	time.Duration
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: duration %q: %v", ErrInvalidConfig, string(text), err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements [encoding.TextMarshaler].
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// Validate checks values the engine cannot run without.
func (c *Config) Validate() error {
	if c.Playback.WatchThreshold <= 0 || c.Playback.WatchThreshold > 1 {
		return fmt.Errorf("%w: playback.watch_threshold must be in (0, 1]", ErrInvalidConfig)
	}
	if c.Playback.WindowSize <= 0 || c.Playback.PageStep <= 0 {
		return fmt.Errorf("%w: playback.window_size and playback.page_step must be positive", ErrInvalidConfig)
	}
	if c.Session.IdleLimit.Duration <= 0 || c.Session.IdleInterval.Duration <= 0 {
		return fmt.Errorf("%w: session idle settings must be positive", ErrInvalidConfig)
	}
	if c.Session.DurationBatch <= 0 || c.Session.DurationBatch > 50 {
		return fmt.Errorf("%w: session.duration_batch must be in 1..50", ErrInvalidConfig)
	}
	return nil
}

// CallbackAddr returns the host:port the local callback server listens on.
func (c *Config) CallbackAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// SaveConfig writes the configuration to path as TOML.
func SaveConfig(path string, config *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
