// Package config loads TalkBridge configuration from an optional YAML file
// overlaid by TALKBRIDGE_* environment variables. A .env file in the working
// directory is honored when present.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration for TalkBridge.
type Config struct {
	ListenAddr string `yaml:"listenAddr" envconfig:"LISTEN_ADDR"`
	LogLevel   string `yaml:"logLevel" envconfig:"LOG_LEVEL"`

	TalkTalk TalkTalkConfig `yaml:"talktalk"`
	Sendbird SendbirdConfig `yaml:"sendbird"`

	// BotUserID is the Sendbird identity whose messages are relayed back to
	// TalkTalk. Messages from any other sender are dropped.
	BotUserID string `yaml:"botUserId" envconfig:"BOT_USER_ID"`

	// RequestTimeout bounds every outbound platform call.
	RequestTimeout time.Duration `yaml:"requestTimeout" envconfig:"REQUEST_TIMEOUT"`
	// DedupWindow is how long a relayed delivery's fingerprint suppresses
	// redeliveries of the same (user, text) pair.
	DedupWindow time.Duration `yaml:"dedupWindow" envconfig:"DEDUP_WINDOW"`
}

// TalkTalkConfig configures the Naver TalkTalk event API client.
type TalkTalkConfig struct {
	APIURL string `yaml:"apiUrl" envconfig:"API_URL"`
	Token  string `yaml:"token" envconfig:"TOKEN"`
}

// SendbirdConfig configures the Sendbird Platform API client.
type SendbirdConfig struct {
	APIURL   string `yaml:"apiUrl" envconfig:"API_URL"`
	APIToken string `yaml:"apiToken" envconfig:"API_TOKEN"`
}

// Defaults returns a Config with default values applied.
func Defaults() *Config {
	return &Config{
		ListenAddr: ":8000",
		LogLevel:   "info",
		TalkTalk: TalkTalkConfig{
			APIURL: "https://gw.talk.naver.com/chatbot/v1/event",
		},
		RequestTimeout: 10 * time.Second,
		DedupWindow:    10 * time.Minute,
	}
}

// Load builds the effective configuration: defaults, then the YAML file at
// path (if path is non-empty), then environment variables. Missing required
// values are a fatal startup condition surfaced as an error here.
func Load(path string) (*Config, error) {
	// Best effort; deployments without a .env file use the platform environment.
	_ = godotenv.Load()

	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
		}
	}

	if err := envconfig.Process("TALKBRIDGE", cfg); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// Validate checks that the config has valid values.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.ListenAddr == "" {
		errs = append(errs, "listenAddr must not be empty")
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, "logLevel must be one of: debug, info, warn, error")
	}
	if cfg.TalkTalk.APIURL == "" {
		errs = append(errs, "talktalk.apiUrl is required")
	}
	if cfg.TalkTalk.Token == "" {
		errs = append(errs, "talktalk.token is required (TALKBRIDGE_TALKTALK_TOKEN)")
	}
	if cfg.Sendbird.APIURL == "" {
		errs = append(errs, "sendbird.apiUrl is required (TALKBRIDGE_SENDBIRD_API_URL)")
	}
	if cfg.Sendbird.APIToken == "" {
		errs = append(errs, "sendbird.apiToken is required (TALKBRIDGE_SENDBIRD_API_TOKEN)")
	}
	if cfg.BotUserID == "" {
		errs = append(errs, "botUserId is required (TALKBRIDGE_BOT_USER_ID)")
	}
	if cfg.RequestTimeout <= 0 {
		errs = append(errs, "requestTimeout must be positive")
	}
	if cfg.DedupWindow <= 0 {
		errs = append(errs, "dedupWindow must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// SlogLevel maps the configured log level to a slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
