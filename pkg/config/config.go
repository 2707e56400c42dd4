package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/smith3v/tutor625/pkg/logger"
	"github.com/spf13/pflag"
)

// EnvPrefix marks environment overrides. Nested keys use a double
// underscore: TUTOR_DATABASE__HOST sets database.host.
const EnvPrefix = "TUTOR_"

type Config struct {
	Database DatabaseConfig `koanf:"database"`
	Telegram TelegramConfig `koanf:"telegram"`
	Logging  LoggingConfig  `koanf:"logging"`
	HTTP     HTTPConfig     `koanf:"http"`
	AI       AIConfig       `koanf:"ai"`
	Session  SessionConfig  `koanf:"session"`
}

type DatabaseConfig struct {
	Driver   string `koanf:"driver" validate:"oneof=postgres sqlite"`
	Host     string `koanf:"host" validate:"required_if=Driver postgres"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	DBName   string `koanf:"dbname" validate:"required_if=Driver postgres"`
	Port     int    `koanf:"port" validate:"gte=0,lte=65535"`
	SSLMode  string `koanf:"sslmode"`
	Path     string `koanf:"path" validate:"required_if=Driver sqlite"`
}

type TelegramConfig struct {
	Token string `koanf:"token" validate:"required"`
}

type LoggingConfig struct {
	Level     string `koanf:"level"`
	File      string `koanf:"file"`
	Format    string `koanf:"format" validate:"omitempty,oneof=text json"`
	GormLevel string `koanf:"gorm_level"`
}

type HTTPConfig struct {
	Addr      string  `koanf:"addr"`
	RateLimit float64 `koanf:"rate_limit" validate:"gte=0"`
	Burst     int     `koanf:"burst" validate:"gte=0"`
	// APIToken is the bearer token required on /api routes. Empty closes
	// them.
	APIToken string `koanf:"api_token"`
}

// AIConfig selects the Q&A backend. An empty provider disables /ask.
type AIConfig struct {
	Provider   string        `koanf:"provider" validate:"omitempty,oneof=openai gemini"`
	APIKey     string        `koanf:"api_key" validate:"required_with=Provider"`
	BaseURL    string        `koanf:"base_url" validate:"omitempty,url"`
	Model      string        `koanf:"model"`
	MaxRetries int           `koanf:"max_retries" validate:"gte=0"`
	Timeout    time.Duration `koanf:"timeout"`
}

type SessionConfig struct {
	InactivityTimeout time.Duration `koanf:"inactivity_timeout"`
	ReviewBatchSize   int           `koanf:"review_batch_size" validate:"gte=1"`
}

var AppConfig = Default()

// Default returns the values used for any key the sources leave unset.
func Default() Config {
	return Config{
		Database: DatabaseConfig{
			Driver:  "postgres",
			Port:    5432,
			SSLMode: "disable",
		},
		Logging: LoggingConfig{
			Level:     "info",
			Format:    "text",
			GormLevel: "warn",
		},
		HTTP: HTTPConfig{
			Addr:      "127.0.0.1:8080",
			RateLimit: 1,
			Burst:     5,
		},
		AI: AIConfig{
			MaxRetries: 3,
			Timeout:    30 * time.Second,
		},
		Session: SessionConfig{
			InactivityTimeout: 2 * time.Hour,
			ReviewBatchSize:   20,
		},
	}
}

// flagKeys maps command-line flag names onto configuration keys.
var flagKeys = map[string]string{
	"log-level":   "logging.level",
	"log-file":    "logging.file",
	"log-format":  "logging.format",
	"db-driver":   "database.driver",
	"db-path":     "database.path",
	"http-addr":   "http.addr",
	"ai-provider": "ai.provider",
}

func LoadConfig(filename string) error {
	return LoadConfigWithFlags(filename, nil)
}

// LoadConfigWithFlags layers defaults, the yaml file, TUTOR_ environment
// variables and explicitly set flags, in that order, into AppConfig.
func LoadConfigWithFlags(filename string, flags *pflag.FlagSet) error {
	cfg, err := Load(filename, flags)
	if err != nil {
		return err
	}
	AppConfig = cfg
	return nil
}

func Load(filename string, flags *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	if filename != "" {
		if err := k.Load(file.Provider(filename), yaml.Parser()); err != nil {
			logger.Error("failed to read config file", "file", filename, "error", err)
			return Config{}, fmt.Errorf("load config file %s: %w", filename, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		logger.Error("failed to read config environment", "error", err)
		return Config{}, fmt.Errorf("load config env: %w", err)
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			logger.Error("failed to read config flags", "error", err)
			return Config{}, fmt.Errorf("load config flags: %w", err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		logger.Error("failed to decode config", "error", err)
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		logger.Error("invalid config", "error", err)
		return Config{}, err
	}
	return cfg, nil
}

func Validate(cfg Config) error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// RegisterFlags declares the flags understood by LoadConfigWithFlags.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("log-file", "", "append logs to this file as well as stdout")
	flags.String("log-format", "", "log output format (text, json)")
	flags.String("db-driver", "", "database driver (postgres, sqlite)")
	flags.String("db-path", "", "sqlite database file")
	flags.String("http-addr", "", "HTTP listen address")
	flags.String("ai-provider", "", "AI backend (openai, gemini)")
}

func envKey(s string) string {
	key := strings.TrimPrefix(s, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(key), "__", ".")
}
