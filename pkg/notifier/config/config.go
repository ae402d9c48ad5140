// Package config loads notifier settings from YAML, .env and NOTIFIER_*
// environment variables and builds a ready Notifier from them.
//
// The loading sequence is:
//  1. Load a .env file via godotenv (non-fatal if absent).
//  2. Register defaults on a fresh viper instance.
//  3. Read the YAML file, if any, with ${VAR}, ${VAR:-default} and
//     ${VAR:?message} references expanded. Bare $VAR is kept as written.
//  4. Apply NOTIFIER_* overrides (blocking.gzip -> NOTIFIER_BLOCKING_GZIP);
//     NOTIFIER_ACCESS_TOKEN and NOTIFIER_ENVIRONMENT are short aliases.
//  5. Validate the struct using go-playground/validator.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/strongdm/diag-notifier/pkg/notifier"
	"github.com/strongdm/diag-notifier/pkg/notifier/logging"
	"github.com/strongdm/diag-notifier/pkg/notifier/senders/blocking"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "NOTIFIER"

// ConfigErrorType categorizes configuration loading failures to aid debugging.
type ConfigErrorType string

const (
	// ErrReading indicates the config file could not be read.
	ErrReading ConfigErrorType = "READ_FAILED"
	// ErrParsing indicates the file or an override could not be decoded.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrSender indicates the configured sender could not be created.
	ErrSender ConfigErrorType = "SENDER_FAILED"
)

// ConfigError is returned by Load and Build.
type ConfigError struct {
	Type    ConfigErrorType
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Config is the file representation of a notifier setup.
type Config struct {
	Notifier NotifierConfig `mapstructure:"notifier"`
	Blocking BlockingConfig `mapstructure:"blocking"`
	Agent    AgentConfig    `mapstructure:"agent"`
	Logging  logging.Config `mapstructure:"logging"`

	// Debug mirrors every delivered payload to stderr.
	Debug bool `mapstructure:"debug"`
}

// NotifierConfig maps onto notifier.Config. The access token is not
// validated here: a notifier with a bad token is built disabled.
type NotifierConfig struct {
	AccessToken            string   `mapstructure:"access_token"`
	Environment            string   `mapstructure:"environment" validate:"required"`
	Root                   string   `mapstructure:"root"`
	CodeVersion            string   `mapstructure:"code_version"`
	Branch                 string   `mapstructure:"branch"`
	Host                   string   `mapstructure:"host"`
	Framework              string   `mapstructure:"framework"`
	Batched                bool     `mapstructure:"batched"`
	BatchSize              int      `mapstructure:"batch_size" validate:"gte=1"`
	Handler                string   `mapstructure:"handler" validate:"oneof=blocking agent"`
	ScrubFields            []string `mapstructure:"scrub_fields"`
	CaptureErrorBacktraces bool     `mapstructure:"capture_error_backtraces"`
	Fingerprinting         bool     `mapstructure:"fingerprinting"`
}

// BlockingConfig configures the HTTP sender.
type BlockingConfig struct {
	Endpoint string        `mapstructure:"endpoint" validate:"required,url"`
	Timeout  time.Duration `mapstructure:"timeout" validate:"gt=0"`
	Gzip     bool          `mapstructure:"gzip"`
}

// AgentConfig configures the relay file sender.
type AgentConfig struct {
	Dir        string `mapstructure:"dir"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"gte=1"`
	MaxBackups int    `mapstructure:"max_backups" validate:"gte=0"`
}

// Load reads the configuration. path may be empty to use defaults and
// environment variables only.
func Load(path string) (*Config, error) {
	// godotenv does NOT override variables already set in the environment.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("notifier.access_token", EnvPrefix+"_ACCESS_TOKEN")
	_ = v.BindEnv("notifier.environment", EnvPrefix+"_ENVIRONMENT")

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &ConfigError{Type: ErrReading, Message: "failed to read config file", Err: err}
		}
		expanded, err := expandEnv(string(data))
		if err != nil {
			return nil, &ConfigError{Type: ErrParsing, Message: "failed to expand config file", Err: err}
		}
		if err := v.ReadConfig(strings.NewReader(expanded)); err != nil {
			return nil, &ConfigError{Type: ErrParsing, Message: "failed to parse config file", Err: err}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &ConfigError{Type: ErrParsing, Message: "failed to unmarshal config", Err: err}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("notifier.access_token", "")
	v.SetDefault("notifier.environment", "production")
	v.SetDefault("notifier.root", "")
	v.SetDefault("notifier.code_version", "")
	v.SetDefault("notifier.branch", "")
	v.SetDefault("notifier.host", "")
	v.SetDefault("notifier.framework", "")
	v.SetDefault("notifier.batched", true)
	v.SetDefault("notifier.batch_size", notifier.DefaultBatchSize)
	v.SetDefault("notifier.handler", string(notifier.HandlerBlocking))
	v.SetDefault("notifier.scrub_fields", notifier.DefaultScrubFields)
	v.SetDefault("notifier.capture_error_backtraces", true)
	v.SetDefault("notifier.fingerprinting", false)

	v.SetDefault("blocking.endpoint", blocking.DefaultEndpoint)
	v.SetDefault("blocking.timeout", blocking.DefaultTimeout)
	v.SetDefault("blocking.gzip", false)

	v.SetDefault("agent.dir", "")
	v.SetDefault("agent.max_size_mb", 10)
	v.SetDefault("agent.max_backups", 0)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output_path", "stderr")
	v.SetDefault("logging.max_size", 0)
	v.SetDefault("logging.max_backups", 0)
	v.SetDefault("logging.max_age", 0)
	v.SetDefault("logging.compress", false)
	v.SetDefault("logging.local_time", false)

	v.SetDefault("debug", false)
}

// Validate checks struct rules and the handler-specific requirements.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return &ConfigError{Type: ErrValidation, Message: "configuration validation failed", Err: err}
	}
	if notifier.HandlerMode(c.Notifier.Handler) == notifier.HandlerAgent && c.Agent.Dir == "" {
		return &ConfigError{Type: ErrValidation, Message: "agent.dir is required for the agent handler"}
	}
	return nil
}

// ToNotifier converts the file settings into a notifier.Config.
func (c *Config) ToNotifier() notifier.Config {
	nc := c.Notifier
	return notifier.Config{
		AccessToken:            nc.AccessToken,
		Environment:            nc.Environment,
		Root:                   nc.Root,
		CodeVersion:            nc.CodeVersion,
		Branch:                 nc.Branch,
		Host:                   nc.Host,
		Framework:              nc.Framework,
		Batched:                nc.Batched,
		BatchSize:              nc.BatchSize,
		Handler:                notifier.HandlerMode(nc.Handler),
		ScrubFields:            append([]string(nil), nc.ScrubFields...),
		CaptureErrorBacktraces: nc.CaptureErrorBacktraces,
		Fingerprinting:         nc.Fingerprinting,
	}
}
