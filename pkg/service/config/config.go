package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/craftwatch/statusbot/pkg/domain/errors"
	"github.com/joho/godotenv"
)

// Environment variable names. BOT_TOKEN and SERVER_IP keep the names the
// container image has always been built with.
const (
	EnvBotToken       = "BOT_TOKEN"
	EnvServerIP       = "SERVER_IP"
	EnvTelegramAPI    = "STATUSBOT_TELEGRAM_API"
	EnvStatusAPI      = "STATUSBOT_STATUS_API"
	EnvPollInterval   = "STATUSBOT_POLL_INTERVAL"
	EnvPollTimeout    = "STATUSBOT_POLL_TIMEOUT"
	EnvMaxBackoff     = "STATUSBOT_MAX_BACKOFF"
	EnvCommandTimeout = "STATUSBOT_COMMAND_TIMEOUT"
	EnvStatusCacheTTL = "STATUSBOT_STATUS_CACHE_TTL"
	EnvStatePath      = "STATUSBOT_STATE_PATH"
	EnvLogLevel       = "STATUSBOT_LOG_LEVEL"
	EnvLogFormat      = "STATUSBOT_LOG_FORMAT"
	EnvMetricsAddr    = "STATUSBOT_METRICS_ADDR"
	EnvOTELEnabled    = "STATUSBOT_OTEL_ENABLED"
	EnvOTELEndpoint   = "STATUSBOT_OTEL_ENDPOINT"
	EnvOTELInsecure   = "STATUSBOT_OTEL_INSECURE"
	EnvOTELSampleRate = "STATUSBOT_OTEL_SAMPLE_RATE"
)

// Config is the bot's runtime configuration
type Config struct {
	// Required
	BotToken string
	ServerIP string

	// Upstream APIs
	TelegramAPI string
	StatusAPI   string

	// Poll loop
	PollInterval   time.Duration
	PollTimeout    time.Duration
	MaxBackoff     time.Duration
	CommandTimeout time.Duration
	StatusCacheTTL time.Duration

	// State file, ":memory:" keeps state in process
	StatePath string

	// Logging settings
	LogLevel  string
	LogFormat string

	// Observability
	MetricsAddr    string
	OTELEnabled    bool
	OTELEndpoint   string
	OTELInsecure   bool
	OTELSampleRate float64
}

// Load builds a Config from defaults, the optional env file and the process
// environment, in that order of precedence (lowest first). Values already
// present in the environment win over the env file.
func Load(envFile string) (*Config, error) {
	cfg := DefaultConfig()

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return nil, errors.New(errors.CodeConfigurationInvalid, "config", "failed to load env file "+envFile, err)
		}
	}

	if err := loadFromEnv(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DefaultConfig returns the configuration used when nothing is set
func DefaultConfig() *Config {
	return &Config{
		TelegramAPI:    "https://api.telegram.org",
		StatusAPI:      "https://api.mcsrvstat.us/2",
		PollInterval:   time.Second,
		PollTimeout:    25 * time.Second,
		MaxBackoff:     time.Minute,
		CommandTimeout: 10 * time.Second,
		StatusCacheTTL: 30 * time.Second,
		StatePath:      filepath.Join(os.TempDir(), "statusbot.db"),
		LogLevel:       "info",
		LogFormat:      "console",
		OTELEndpoint:   "localhost:4318",
		OTELInsecure:   true,
		OTELSampleRate: 1.0,
	}
}

func loadFromEnv(cfg *Config) error {
	var problems []string

	str := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				problems = append(problems, fmt.Sprintf("%s: %q is not a duration", key, v))
				return
			}
			*dst = d
		}
	}
	boolean := func(key string, dst *bool) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				problems = append(problems, fmt.Sprintf("%s: %q is not a boolean", key, v))
				return
			}
			*dst = b
		}
	}

	str(EnvBotToken, &cfg.BotToken)
	str(EnvServerIP, &cfg.ServerIP)
	str(EnvTelegramAPI, &cfg.TelegramAPI)
	str(EnvStatusAPI, &cfg.StatusAPI)
	dur(EnvPollInterval, &cfg.PollInterval)
	dur(EnvPollTimeout, &cfg.PollTimeout)
	dur(EnvMaxBackoff, &cfg.MaxBackoff)
	dur(EnvCommandTimeout, &cfg.CommandTimeout)
	dur(EnvStatusCacheTTL, &cfg.StatusCacheTTL)
	str(EnvStatePath, &cfg.StatePath)
	str(EnvLogLevel, &cfg.LogLevel)
	str(EnvLogFormat, &cfg.LogFormat)
	str(EnvMetricsAddr, &cfg.MetricsAddr)
	boolean(EnvOTELEnabled, &cfg.OTELEnabled)
	str(EnvOTELEndpoint, &cfg.OTELEndpoint)
	boolean(EnvOTELInsecure, &cfg.OTELInsecure)
	if v := strings.TrimSpace(os.Getenv(EnvOTELSampleRate)); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: %q is not a number", EnvOTELSampleRate, v))
		} else {
			cfg.OTELSampleRate = f
		}
	}

	if len(problems) > 0 {
		return errors.New(errors.CodeConfigurationInvalid, "config", strings.Join(problems, "; "), nil)
	}
	return nil
}

// Validate checks everything `run` needs
func (c *Config) Validate() error {
	var missing []string
	if c.BotToken == "" {
		missing = append(missing, EnvBotToken)
	}
	if c.ServerIP == "" {
		missing = append(missing, EnvServerIP)
	}
	if len(missing) > 0 {
		return errors.New(errors.CodeConfigurationInvalid, "config",
			"missing environment variables: "+strings.Join(missing, ", "), nil)
	}
	return c.ValidateCommon()
}

// ValidateCommon checks the settings shared by every command, leaving out
// the Telegram token
func (c *Config) ValidateCommon() error {
	var problems []string

	if c.PollInterval < 0 {
		problems = append(problems, "poll_interval must not be negative")
	}
	if c.PollTimeout < 0 {
		problems = append(problems, "poll_timeout must not be negative")
	}
	if c.MaxBackoff <= 0 {
		problems = append(problems, "max_backoff must be positive")
	}
	if c.CommandTimeout <= 0 {
		problems = append(problems, "command_timeout must be positive")
	}
	if c.StatePath == "" {
		problems = append(problems, "state_path is required")
	}

	validLogLevels := []string{"trace", "debug", "info", "warn", "error"}
	valid := false
	for _, level := range validLogLevels {
		if c.LogLevel == level {
			valid = true
			break
		}
	}
	if !valid {
		problems = append(problems, "log_level must be one of: "+strings.Join(validLogLevels, ", "))
	}
	if c.LogFormat != "console" && c.LogFormat != "json" {
		problems = append(problems, "log_format must be console or json")
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1 {
		problems = append(problems, "otel_sample_rate must be between 0 and 1")
	}

	if len(problems) > 0 {
		return errors.New(errors.CodeConfigurationInvalid, "config", strings.Join(problems, "; "), nil)
	}
	return nil
}

// String renders the configuration for logs with the token redacted
func (c *Config) String() string {
	token := ""
	if c.BotToken != "" {
		token = "<redacted>"
	}
	return fmt.Sprintf("server=%s token=%s poll_interval=%s poll_timeout=%s state=%s log_level=%s metrics=%q otel=%t",
		c.ServerIP, token, c.PollInterval, c.PollTimeout, c.StatePath, c.LogLevel, c.MetricsAddr, c.OTELEnabled)
}
