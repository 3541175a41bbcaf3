package config

import (
	"log/slog"
	"net"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/viper"

	"github.com/angeloszaimis/archive-gate/internal/archive"
)

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

type ServerConfig struct {
	Address     string `mapstructure:"address"`
	Environment string `mapstructure:"environment"`
}

type ProbeConfig struct {
	Timeout   string `mapstructure:"timeout"`
	UserAgent string `mapstructure:"user_agent"`
}

type BackoffConfig struct {
	Base string `mapstructure:"base"`
	Max  string `mapstructure:"max"`
}

type ReconcileConfig struct {
	Interval   string `mapstructure:"interval"`
	RequireAll bool   `mapstructure:"require_all"`
}

type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Archives  []string        `mapstructure:"archives"`
	Probe     ProbeConfig     `mapstructure:"probe"`
	Backoff   BackoffConfig   `mapstructure:"backoff"`
	Reconcile ReconcileConfig `mapstructure:"reconcile"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// Load reads config.yaml from ./config or the working directory, applies
// environment overrides (PROBE_TIMEOUT for probe.timeout) and validates the
// result. A missing file is not an error.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("server.environment", EnvDev)
	v.SetDefault("server.address", ":8080")
	v.SetDefault("archives", []string{})
	v.SetDefault("probe.timeout", "10s")
	v.SetDefault("probe.user_agent", archive.DefaultUserAgent)
	v.SetDefault("backoff.base", "15s")
	v.SetDefault("backoff.max", "300s")
	v.SetDefault("reconcile.interval", "60s")
	v.SetDefault("reconcile.require_all", false)
	v.SetDefault("rate_limit.rps", 20)
	v.SetDefault("rate_limit.burst", 40)
	v.SetDefault("logging.level", LogLevelInfo)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Error("failed to read config file", slog.String("error", err.Error()))
			return nil, err
		}
		slog.Warn("config file not found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", slog.String("file", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		slog.Error("failed to unmarshal config", slog.String("error", err.Error()))
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server,
			validation.By(func(value interface{}) error {
				sc, ok := value.(ServerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ServerConfig")
				}
				return validation.ValidateStruct(&sc,
					validation.Field(&sc.Environment,
						validation.Required,
						validation.In(EnvDev, EnvStaging, EnvProd),
					),
					validation.Field(&sc.Address,
						validation.Required,
						validation.By(validateHostPort),
					),
				)
			}),
		),
		// Archive URLs are probed as given; a malformed one is reported
		// unhealthy at runtime rather than rejected here.
		validation.Field(&c.Archives,
			validation.Each(validation.By(validateArchive)),
		),
		validation.Field(&c.Probe,
			validation.By(func(value interface{}) error {
				pc, ok := value.(ProbeConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ProbeConfig")
				}
				return validation.ValidateStruct(&pc,
					validation.Field(&pc.Timeout, validation.Required, validation.By(validateDuration)),
					validation.Field(&pc.UserAgent, validation.Required),
				)
			}),
		),
		validation.Field(&c.Backoff,
			validation.By(func(value interface{}) error {
				bc, ok := value.(BackoffConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a BackoffConfig")
				}
				if err := validation.ValidateStruct(&bc,
					validation.Field(&bc.Base, validation.Required, validation.By(validateDuration)),
					validation.Field(&bc.Max, validation.Required, validation.By(validateDuration)),
				); err != nil {
					return err
				}
				if mustDuration(bc.Max) < mustDuration(bc.Base) {
					return validation.NewError("validation_backoff_range", "max must not be less than base")
				}
				return nil
			}),
		),
		validation.Field(&c.Reconcile,
			validation.By(func(value interface{}) error {
				rc, ok := value.(ReconcileConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ReconcileConfig")
				}
				return validation.ValidateStruct(&rc,
					validation.Field(&rc.Interval, validation.Required, validation.By(validateDuration)),
				)
			}),
		),
		validation.Field(&c.RateLimit,
			validation.By(func(value interface{}) error {
				rl, ok := value.(RateLimitConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a RateLimitConfig")
				}
				return validation.ValidateStruct(&rl,
					validation.Field(&rl.RPS, validation.Required, validation.Min(1.0)),
					validation.Field(&rl.Burst, validation.Required, validation.Min(1)),
				)
			}),
		),
		validation.Field(&c.Logging,
			validation.By(func(value interface{}) error {
				lc, ok := value.(LoggingConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a LoggingConfig")
				}
				return validation.ValidateStruct(&lc,
					validation.Field(&lc.Level,
						validation.Required,
						validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
					),
				)
			}),
		),
	)
}

func (c *Config) ProbeTimeout() time.Duration {
	return mustDuration(c.Probe.Timeout)
}

func (c *Config) ReconcileInterval() time.Duration {
	return mustDuration(c.Reconcile.Interval)
}

func (c *Config) BackoffPolicy() archive.BackoffPolicy {
	return archive.BackoffPolicy{
		Base: mustDuration(c.Backoff.Base),
		Max:  mustDuration(c.Backoff.Max),
	}
}

// mustDuration parses a duration that Validate has already accepted.
func mustDuration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}

func validateHostPort(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	if port == "" {
		return validation.NewError("validation_invalid_port", "port cannot be empty")
	}

	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}

	return nil
}

func validateDuration(value interface{}) error {
	durationStr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	d, err := time.ParseDuration(durationStr)
	if err != nil {
		return validation.NewError("validation_invalid_duration", "must be a valid duration (e.g., 2s, 5m, 1h)")
	}

	if d <= 0 {
		return validation.NewError("validation_nonpositive_duration", "must be positive")
	}

	return nil
}

func validateArchive(value interface{}) error {
	url, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if strings.TrimSpace(url) == "" {
		return validation.NewError("validation_empty_url", "archive URL cannot be empty")
	}

	return nil
}
