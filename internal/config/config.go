package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Backend   Backend   `mapstructure:"backend"`
	Dashboard Dashboard `mapstructure:"dashboard"`
	Exports   Exports   `mapstructure:"exports"`
	Sync      Sync      `mapstructure:"sync"`
	Logger    Logger    `mapstructure:"logger"`
	Server    Server    `mapstructure:"server"`
	Database  Database  `mapstructure:"database"`
	Tracing   Tracing   `mapstructure:"tracing"`
}

// Backend holds the configuration for the remote analytics API.
type Backend struct {
	APIBase        string  `mapstructure:"api_base"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
	MaxAttempts    int     `mapstructure:"max_attempts"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
}

// Timeout returns the per-request timeout. Zero means no timeout.
func (b Backend) Timeout() time.Duration {
	return time.Duration(b.TimeoutSeconds) * time.Second
}

// Dashboard holds the widget settings.
type Dashboard struct {
	Account          string `mapstructure:"account"`
	FallbackAccount  string `mapstructure:"fallback_account"`
	TradesLimit      int    `mapstructure:"trades_limit"`
	ChartsLimit      int    `mapstructure:"charts_limit"`
	HeatmapLimit     int    `mapstructure:"heatmap_limit"`
	TradesWindowDays int    `mapstructure:"trades_window_days"`
	Timezone         string `mapstructure:"timezone"`
}

// Location resolves the configured display timezone, falling back to the
// host's local zone.
func (d Dashboard) Location() *time.Location {
	if d.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(d.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Exports holds the export orchestrator settings.
type Exports struct {
	Limit       int    `mapstructure:"limit"`
	DriveFolder string `mapstructure:"drive_folder"`
	HistorySize int    `mapstructure:"history_size"`
}

// Sync holds the auto-sync worker settings.
type Sync struct {
	Account      string              `mapstructure:"account"`
	TickInterval int                 `mapstructure:"tick_interval"`
	ApiPort      int                 `mapstructure:"api_port"`
	Schedules    map[string]Schedule `mapstructure:"schedules"`
}

// Schedule is the auto-sync configuration for one platform.
type Schedule struct {
	Enabled   bool   `mapstructure:"enabled"`
	Frequency string `mapstructure:"frequency"`
	DayOfWeek string `mapstructure:"day_of_week"`
	TimeOfDay string `mapstructure:"time_of_day"`
}

// Server holds the configuration for the web server.
type Server struct {
	Port int `mapstructure:"port"`
}

// Database holds the configuration for the export job ledger.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Tracing toggles the stdout span exporter.
type Tracing struct {
	Enabled bool `mapstructure:"enabled"`
}

// LoadConfig reads configuration from file or environment variables.
// A .env file in the working directory is loaded first if present.
func LoadConfig(path string) (config Config, err error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config") // name of config file (without extension)
	v.SetConfigType("yml")

	// Allow environment variables to override config file
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	err = v.ReadInConfig()
	if err != nil {
		return
	}

	err = v.Unmarshal(&config)
	return
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend.api_base", "http://localhost:8000")
	v.SetDefault("backend.rate_limit", 20) // requests per second
	v.SetDefault("backend.rate_limit_burst", 5)
	v.SetDefault("backend.max_attempts", 1)
	v.SetDefault("backend.timeout_seconds", 0)

	v.SetDefault("dashboard.fallback_account", "APEX1840700000143")
	v.SetDefault("dashboard.trades_limit", 100)
	v.SetDefault("dashboard.charts_limit", 100)
	v.SetDefault("dashboard.heatmap_limit", 500)
	v.SetDefault("dashboard.trades_window_days", 30)

	v.SetDefault("exports.limit", 10000)
	v.SetDefault("exports.drive_folder", "Trading Analytics")
	v.SetDefault("exports.history_size", 10)

	v.SetDefault("sync.tick_interval", 60)
	v.SetDefault("sync.api_port", 8081)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("server.port", 8080)
	v.SetDefault("database.dsn", "file::memory:?cache=shared")
}
