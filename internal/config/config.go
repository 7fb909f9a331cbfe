package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration. It is read once at process
// start; there is no hot reload.
type Config struct {
	DatabaseURL string `mapstructure:"database_url"`
	UseDatabase bool   `mapstructure:"use_database"`
	RedisURL    string `mapstructure:"redis_url"`
	Port        string `mapstructure:"port"`

	// Data storage
	DataDir   string `mapstructure:"data_dir"`
	CachePath string `mapstructure:"cache_path"`

	// n8n webhooks
	CalendarWebhookURL string `mapstructure:"calendar_webhook_url"`
	TestWebhookURL     string `mapstructure:"test_webhook_url"`

	// Calendar polling
	PollIntervalSeconds int `mapstructure:"poll_interval_seconds"`
}

// RemoteStoreConfigured reports whether the Postgres tier should be
// attempted at all. An unconfigured tier is skipped without an attempt.
func (c Config) RemoteStoreConfigured() bool {
	return c.UseDatabase && c.DatabaseURL != ""
}

// PollInterval returns the calendar poll interval as a duration.
func (c Config) PollInterval() time.Duration {
	if c.PollIntervalSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// App holds the global config instance
var App Config

// LoadConfig loads configuration from file and environment variables
func LoadConfig(path string) error {
	// Auto-load .env file if present so 'go run' works without manually
	// exporting env vars. Missing .env is fine.
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded .env file")
	}

	v := viper.New()

	// Set default values
	v.SetDefault("port", "8080")
	v.SetDefault("use_database", true)
	v.SetDefault("data_dir", "./data")
	v.SetDefault("cache_path", "./data/calendar_cache.db")
	v.SetDefault("poll_interval_seconds", 30)

	// Config file settings
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		v.SetConfigName("dev.config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("ringboard")

	// Bind standard environment variables (Docker/deploy compatibility)
	// so standard keys like DATABASE_URL work without the prefix.
	_ = v.BindEnv("database_url", "DATABASE_URL")
	_ = v.BindEnv("use_database", "USE_DATABASE")
	_ = v.BindEnv("redis_url", "REDIS_URL")
	_ = v.BindEnv("port", "PORT")
	_ = v.BindEnv("data_dir", "DATA_DIR")
	_ = v.BindEnv("cache_path", "CACHE_PATH")
	_ = v.BindEnv("calendar_webhook_url", "RINGBOARD_CALENDAR_WEBHOOK_URL")
	_ = v.BindEnv("test_webhook_url", "RINGBOARD_TEST_WEBHOOK_URL")
	_ = v.BindEnv("poll_interval_seconds", "POLL_INTERVAL_SECONDS")

	v.AutomaticEnv()

	// 1. Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found, using defaults and environment variables")
		} else {
			return err
		}
	} else {
		log.Printf("Loaded config from: %s", v.ConfigFileUsed())
	}

	// 2. Unmarshal into struct
	if err := v.Unmarshal(&App); err != nil {
		return err
	}

	// 3. Backfill environment variables for code that still reads os.Getenv()
	setEnvIfEmpty("DATABASE_URL", App.DatabaseURL)
	setEnvIfEmpty("REDIS_URL", App.RedisURL)
	setEnvIfEmpty("PORT", App.Port)
	setEnvIfEmpty("RINGBOARD_CALENDAR_WEBHOOK_URL", App.CalendarWebhookURL)
	setEnvIfEmpty("RINGBOARD_TEST_WEBHOOK_URL", App.TestWebhookURL)

	return nil
}

func setEnvIfEmpty(key, value string) {
	if value != "" && os.Getenv(key) == "" {
		os.Setenv(key, value)
	}
}
