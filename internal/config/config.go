package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/harshitk99/excali-new/internal/repositories"
)

const (
	EnvDevelopment = "development"

	DefaultJWTSecret = "dev-secret"
)

// Keys double as environment variable names once upper-cased.
const (
	KeyEnv              = "app_env"
	KeyPort             = "port"
	KeyJWTSecret        = "jwt_secret"
	KeyDatabaseDriver   = "database_driver"
	KeyDatabaseDSN      = "database_dsn"
	KeyRedisAddr        = "redis_addr"
	KeyImageProvider    = "image_provider"
	KeyPlaceholderDelay = "image_placeholder_delay"
	KeyGeminiAPIKey     = "gemini_api_key"
	KeyGeminiModel      = "gemini_image_model"
	KeyAllowedOrigins   = "allowed_origins"
	KeyStatsSchedule    = "stats_schedule"
	KeyOTELEndpoint     = "otel_endpoint"
	KeyLogLevel         = "log_level"
	KeyLogFormat        = "log_format"
)

// app config for the realtime server
type Config struct {
	Env              string
	Port             string
	JWTSecret        string
	DatabaseDriver   string
	DatabaseDSN      string
	RedisAddr        string
	ImageProvider    string
	PlaceholderDelay time.Duration
	GeminiAPIKey     string
	GeminiModel      string
	AllowedOrigins   []string
	StatsSchedule    string
	OTELEndpoint     string
	LogLevel         string
	LogFormat        string
}

var supportedDrivers = map[string]bool{"sqlite": true, "postgres": true}

var supportedProviders = map[string]bool{"placeholder": true, "gemini": true}

// New returns a viper instance carrying defaults and reading the environment.
// Callers may bind flags or a config file to it before Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyEnv, EnvDevelopment)
	v.SetDefault(KeyPort, "8080")
	v.SetDefault(KeyJWTSecret, DefaultJWTSecret)
	v.SetDefault(KeyDatabaseDriver, "sqlite")
	v.SetDefault(KeyDatabaseDSN, repositories.DefaultSQLiteDSN)
	v.SetDefault(KeyRedisAddr, "")
	v.SetDefault(KeyImageProvider, "placeholder")
	v.SetDefault(KeyPlaceholderDelay, 2*time.Second)
	v.SetDefault(KeyGeminiAPIKey, "")
	v.SetDefault(KeyGeminiModel, "imagen-3.0-generate-002")
	v.SetDefault(KeyAllowedOrigins, "")
	v.SetDefault(KeyStatsSchedule, "@every 1m")
	v.SetDefault(KeyOTELEndpoint, "")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "json")
	v.AutomaticEnv()
	return v
}

// loads configuration from defaults and environment variables
func LoadConfig() (*Config, error) {
	return Load(New())
}

// ReadFile merges a YAML config file into v. Values from the environment and
// bound flags still win.
func ReadFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return nil
}

func Load(v *viper.Viper) (*Config, error) {
	config := &Config{
		Env:              strings.ToLower(v.GetString(KeyEnv)),
		Port:             v.GetString(KeyPort),
		JWTSecret:        v.GetString(KeyJWTSecret),
		DatabaseDriver:   strings.ToLower(v.GetString(KeyDatabaseDriver)),
		DatabaseDSN:      v.GetString(KeyDatabaseDSN),
		RedisAddr:        v.GetString(KeyRedisAddr),
		ImageProvider:    strings.ToLower(v.GetString(KeyImageProvider)),
		PlaceholderDelay: v.GetDuration(KeyPlaceholderDelay),
		GeminiAPIKey:     v.GetString(KeyGeminiAPIKey),
		GeminiModel:      v.GetString(KeyGeminiModel),
		AllowedOrigins:   stringList(v, KeyAllowedOrigins),
		StatsSchedule:    v.GetString(KeyStatsSchedule),
		OTELEndpoint:     v.GetString(KeyOTELEndpoint),
		LogLevel:         v.GetString(KeyLogLevel),
		LogFormat:        v.GetString(KeyLogFormat),
	}
	if config.ImageProvider == "" {
		config.ImageProvider = "placeholder"
	}
	if err := validateConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

func validateConfig(config *Config) error {
	if port, err := strconv.Atoi(config.Port); err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("invalid PORT %q", config.Port)
	}
	if config.JWTSecret == "" {
		return errors.New("JWT_SECRET must not be empty")
	}
	if config.Env != EnvDevelopment && config.JWTSecret == DefaultJWTSecret {
		return errors.New("JWT_SECRET must be set outside development")
	}
	if !supportedDrivers[config.DatabaseDriver] {
		return errors.New("unsupported DATABASE_DRIVER: " + config.DatabaseDriver + ". Currently supported: sqlite, postgres")
	}
	if config.DatabaseDSN == "" {
		return errors.New("DATABASE_DSN must not be empty")
	}
	if !supportedProviders[config.ImageProvider] {
		return errors.New("unsupported IMAGE_PROVIDER: " + config.ImageProvider + ". Currently supported: placeholder, gemini")
	}
	if config.ImageProvider == "gemini" && config.GeminiAPIKey == "" {
		return errors.New("GEMINI_API_KEY is required when IMAGE_PROVIDER is gemini")
	}
	if config.PlaceholderDelay < 0 {
		return errors.New("IMAGE_PLACEHOLDER_DELAY must not be negative")
	}
	return nil
}

// stringList accepts a YAML list or a comma separated string.
func stringList(v *viper.Viper, key string) []string {
	raw, ok := v.Get(key).(string)
	if !ok {
		return v.GetStringSlice(key)
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
