package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Extraction backends.
const (
	BackendYouTube = "youtube"
	BackendYtDlp   = "ytdlp"
)

const (
	minChunkSize = 4 * 1024
	maxChunkSize = 8 * 1024 * 1024
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Extractor ExtractorConfig `yaml:"extractor"`
	Relay     RelayConfig     `yaml:"relay"`
	History   HistoryConfig   `yaml:"history"`
}

// ServerConfig holds HTTP server configuration.
// There is deliberately no write timeout: downloads may run for a long time.
type ServerConfig struct {
	Host              string        `yaml:"host" envconfig:"SERVER_HOST"`
	Port              int           `yaml:"port" envconfig:"SERVER_PORT"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout" envconfig:"SERVER_READ_HEADER_TIMEOUT"`
	IdleTimeout       time.Duration `yaml:"idle_timeout" envconfig:"SERVER_IDLE_TIMEOUT"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout" envconfig:"SERVER_SHUTDOWN_TIMEOUT"`
	CORSOrigins       []string      `yaml:"cors_origins" envconfig:"SERVER_CORS_ORIGINS"`
}

// ExtractorConfig configures the metadata extraction collaborator.
// Header sets and cookies are origin tuning, injected here rather than in code.
type ExtractorConfig struct {
	Backend           string        `yaml:"backend" envconfig:"EXTRACTOR_BACKEND"`
	Timeout           time.Duration `yaml:"timeout" envconfig:"EXTRACTOR_TIMEOUT"`
	YtDlpPath         string        `yaml:"ytdlp_path" envconfig:"EXTRACTOR_YTDLP_PATH"`
	UserAgent         string        `yaml:"user_agent" envconfig:"EXTRACTOR_USER_AGENT"`
	Headers           Headers       `yaml:"headers" envconfig:"EXTRACTOR_HEADERS"`
	CookiesFile       string        `yaml:"cookies_file" envconfig:"EXTRACTOR_COOKIES_FILE"`
	CookiesPassphrase string        `yaml:"-" envconfig:"EXTRACTOR_COOKIES_PASSPHRASE"`
}

// RelayConfig configures the streaming relay.
type RelayConfig struct {
	ChunkSize     int           `yaml:"chunk_size" envconfig:"RELAY_CHUNK_SIZE"`
	DialTimeout   time.Duration `yaml:"dial_timeout" envconfig:"RELAY_DIAL_TIMEOUT"`
	HeaderTimeout time.Duration `yaml:"header_timeout" envconfig:"RELAY_HEADER_TIMEOUT"`
	ReadTimeout   time.Duration `yaml:"read_timeout" envconfig:"RELAY_READ_TIMEOUT"`
	FallbackURL   string        `yaml:"fallback_url" envconfig:"RELAY_FALLBACK_URL"`
	UserAgent     string        `yaml:"user_agent" envconfig:"RELAY_USER_AGENT"`
	Headers       Headers       `yaml:"headers" envconfig:"RELAY_HEADERS"`
}

// Headers is a set of extra request headers.
//
// From the environment it is read as comma-separated Name:value items. Only
// the first colon of an item separates name from value, so URL values work.
// An item with no colon, or whose name is not a header token, continues the
// previous value: "Accept-Language:en-US,en;q=0.9" is one header.
type Headers map[string]string

// Decode implements envconfig.Decoder.
func (h *Headers) Decode(value string) error {
	if strings.TrimSpace(value) == "" {
		*h = nil
		return nil
	}

	out := Headers{}
	var last string
	for _, item := range strings.Split(value, ",") {
		name, val, ok := strings.Cut(item, ":")
		name = strings.TrimSpace(name)
		if !ok || !isHeaderToken(name) {
			if last == "" {
				return fmt.Errorf("invalid header item %q: want Name:value", item)
			}
			out[last] += "," + item
			continue
		}
		out[name] = strings.TrimSpace(val)
		last = name
	}

	*h = out
	return nil
}

func isHeaderToken(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c <= ' ' || c >= 0x7f || strings.ContainsRune(`"(),/:;<=>?@[\]{}`, c) {
			return false
		}
	}
	return true
}

// HistoryConfig configures the opt-in download history. An empty Path disables it.
type HistoryConfig struct {
	Path          string        `yaml:"path" envconfig:"HISTORY_PATH"`
	Retention     time.Duration `yaml:"retention" envconfig:"HISTORY_RETENTION"`
	PruneInterval time.Duration `yaml:"prune_interval" envconfig:"HISTORY_PRUNE_INTERVAL"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	const browserUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              5000,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       2 * time.Minute,
			ShutdownTimeout:   30 * time.Second,
			CORSOrigins:       []string{"*"},
		},
		Extractor: ExtractorConfig{
			Backend:   BackendYouTube,
			Timeout:   30 * time.Second,
			YtDlpPath: "yt-dlp",
			UserAgent: browserUA,
		},
		Relay: RelayConfig{
			ChunkSize:     256 * 1024,
			DialTimeout:   15 * time.Second,
			HeaderTimeout: 30 * time.Second,
			ReadTimeout:   30 * time.Second,
			UserAgent:     browserUA,
		},
		History: HistoryConfig{
			Retention:     30 * 24 * time.Hour,
			PruneInterval: time.Hour,
		},
	}
}

// Load reads configuration from defaults, then the YAML file, then
// environment variables. Later sources override earlier ones.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are usable.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT %d out of range", c.Server.Port)
	}

	switch c.Extractor.Backend {
	case BackendYouTube:
	case BackendYtDlp:
		if c.Extractor.YtDlpPath == "" {
			return fmt.Errorf("EXTRACTOR_YTDLP_PATH is required for the %s backend", BackendYtDlp)
		}
	default:
		return fmt.Errorf("EXTRACTOR_BACKEND %q is not one of %s, %s", c.Extractor.Backend, BackendYouTube, BackendYtDlp)
	}
	if c.Extractor.Timeout <= 0 {
		return fmt.Errorf("EXTRACTOR_TIMEOUT must be positive")
	}

	if c.Relay.ChunkSize < minChunkSize || c.Relay.ChunkSize > maxChunkSize {
		return fmt.Errorf("RELAY_CHUNK_SIZE %d must be between %d and %d", c.Relay.ChunkSize, minChunkSize, maxChunkSize)
	}
	if c.Relay.DialTimeout <= 0 || c.Relay.HeaderTimeout <= 0 {
		return fmt.Errorf("RELAY_DIAL_TIMEOUT and RELAY_HEADER_TIMEOUT must be positive")
	}
	if c.Relay.FallbackURL != "" {
		u, err := url.Parse(c.Relay.FallbackURL)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("RELAY_FALLBACK_URL %q is not an absolute http(s) URL", c.Relay.FallbackURL)
		}
	}

	if c.History.Path != "" {
		if c.History.Retention <= 0 {
			return fmt.Errorf("HISTORY_RETENTION must be positive when history is enabled")
		}
		if c.History.PruneInterval <= 0 {
			return fmt.Errorf("HISTORY_PRUNE_INTERVAL must be positive when history is enabled")
		}
	}

	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// FallbackEnabled reports whether a fallback source is configured.
func (c *RelayConfig) FallbackEnabled() bool {
	return c.FallbackURL != ""
}

// Enabled reports whether download history is recorded.
func (c *HistoryConfig) Enabled() bool {
	return c.Path != ""
}
