// Package config loads the aviator server configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/zoobzio/aviator"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// Feed types.
const (
	FeedHTTP  = "http"
	FeedRedis = "redis"
	FeedFile  = "file"
)

// Config is the root of the server configuration file.
type Config struct {
	Addr     string          `yaml:"addr" validate:"required"`
	Log      LogConfig       `yaml:"log"`
	Metrics  MetricsConfig   `yaml:"metrics"`
	Journal  JournalConfig   `yaml:"journal"`
	Scene    SceneConfig     `yaml:"scene"`
	Sessions []SessionConfig `yaml:"sessions" validate:"required,min=1,unique=ID,dive"`
}

// LogConfig selects the log level and output format.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace" validate:"required_if=Enabled true"`
}

// JournalConfig locates the round journal. An empty path disables it.
type JournalConfig struct {
	Path string `yaml:"path"`
}

// SceneConfig configures the websocket scene hubs.
type SceneConfig struct {
	AllowedOrigins []string      `yaml:"allowed_origins"`
	WriteWait      time.Duration `yaml:"write_wait" validate:"gte=0"`
}

// SessionConfig describes one scene/feed pairing.
type SessionConfig struct {
	ID                 string        `yaml:"id" validate:"required,hostname_rfc1123"`
	PollInterval       time.Duration `yaml:"poll_interval" validate:"gte=0"`
	TransitionDuration time.Duration `yaml:"transition_duration" validate:"gte=0"`
	FrameInterval      time.Duration `yaml:"frame_interval" validate:"gte=0"`
	Protocol           string        `yaml:"protocol" validate:"oneof=default legacy"`
	FlagEncoding       string        `yaml:"flag_encoding" validate:"oneof=bool string"`
	FlagPolicy         string        `yaml:"flag_policy" validate:"oneof=on_change always"`
	ErrorHistory       int           `yaml:"error_history" validate:"gte=0,lte=1000"`
	Feed               FeedConfig    `yaml:"feed"`
}

// FeedConfig selects and configures the session's value source.
type FeedConfig struct {
	Type    string            `yaml:"type" validate:"oneof=http redis file"`
	URL     string            `yaml:"url" validate:"required_if=Type http,omitempty,url"`
	Token   string            `yaml:"token"`
	Headers map[string]string `yaml:"headers"`
	Timeout time.Duration     `yaml:"timeout" validate:"gte=0"`
	Legacy  bool              `yaml:"legacy"`
	Addr    string            `yaml:"addr" validate:"required_if=Type redis"`
	DB      int               `yaml:"db" validate:"gte=0"`
	Key     string            `yaml:"key" validate:"required_if=Type redis"`
	Path    string            `yaml:"path" validate:"required_if=Type file"`
}

// Default returns a configuration with every optional field set.
func Default() Config {
	return Config{
		Addr: ":8080",
		Log:  LogConfig{Level: "info", Format: "text"},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "aviator",
		},
		Scene: SceneConfig{WriteWait: time.Second},
	}
}

// Load reads path, applies defaults and AVIATOR_* environment overrides,
// and validates the result.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML configuration bytes. See Load.
func Parse(b []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration against its struct tags.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c *Config) applyDefaults() {
	for i := range c.Sessions {
		s := &c.Sessions[i]
		if s.PollInterval == 0 {
			s.PollInterval = aviator.DefaultPollInterval
		}
		if s.TransitionDuration == 0 {
			s.TransitionDuration = aviator.DefaultTransitionDuration
		}
		if s.FrameInterval == 0 {
			s.FrameInterval = aviator.DefaultFrameInterval
		}
		if s.Protocol == "" {
			s.Protocol = "default"
		}
		if s.FlagEncoding == "" {
			s.FlagEncoding = "bool"
		}
		if s.FlagPolicy == "" {
			s.FlagPolicy = "on_change"
		}
		if s.Feed.Type == "" {
			s.Feed.Type = FeedHTTP
		}
	}
}

// applyEnv overrides top-level settings from the environment. Feed
// overrides apply to the first session.
func (c *Config) applyEnv() {
	if v := os.Getenv("AVIATOR_ADDR"); v != "" {
		c.Addr = v
	}
	if v := os.Getenv("AVIATOR_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("AVIATOR_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv("AVIATOR_JOURNAL_PATH"); v != "" {
		c.Journal.Path = v
	}
	if len(c.Sessions) == 0 {
		return
	}
	first := &c.Sessions[0]
	if v := os.Getenv("AVIATOR_FEED_URL"); v != "" {
		first.Feed.URL = v
	}
	if v := os.Getenv("AVIATOR_FEED_TOKEN"); v != "" {
		first.Feed.Token = v
	}
	if ms := envInt("AVIATOR_POLL_INTERVAL_MS", 0); ms > 0 {
		first.PollInterval = time.Duration(ms) * time.Millisecond
	}
	if ms := envInt("AVIATOR_TRANSITION_MS", 0); ms > 0 {
		first.TransitionDuration = time.Duration(ms) * time.Millisecond
	}
}

func envInt(k string, def int) int {
	if s := os.Getenv(k); s != "" {
		var v int
		if _, err := fmt.Sscanf(s, "%d", &v); err == nil {
			return v
		}
	}
	return def
}

// SessionProtocol returns the scene protocol named by the session.
func (s SessionConfig) SessionProtocol() aviator.Protocol {
	if s.Protocol == "legacy" {
		return aviator.LegacyProtocol
	}
	return aviator.DefaultProtocol
}

// SessionFlagEncoding returns the crash flag encoding named by the session.
func (s SessionConfig) SessionFlagEncoding() aviator.FlagEncoding {
	if s.FlagEncoding == "string" {
		return aviator.FlagEncodingString
	}
	return aviator.FlagEncodingBool
}

// SessionFlagPolicy returns the crash flag policy named by the session.
func (s SessionConfig) SessionFlagPolicy() aviator.FlagPolicy {
	if s.FlagPolicy == "always" {
		return aviator.FlagAlways
	}
	return aviator.FlagOnChange
}
