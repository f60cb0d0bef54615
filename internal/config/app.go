package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Бэкенды журнала интервью
const (
	StorageJSON   = "json"
	StorageSQLite = "sqlite"
	StorageNone   = "none"
)

type AppConfig struct {
	ConfigPath string
	OpenAI     OpenAIConfig
	Telegram   TelegramConfig
	Storage    StorageConfig
	Log        LogConfig
	Metrics    MetricsConfig
}

type TelegramConfig struct {
	Token         string
	PollTimeout   int
	RateLimit     int
	SessionMaxAge time.Duration
}

type StorageConfig struct {
	Backend    string
	Dir        string
	SQLitePath string
}

type LogConfig struct {
	Level  string
	Format string
}

type MetricsConfig struct {
	Addr string
}

// LoadAppConfig читает настройки приложения из переменных окружения
func LoadAppConfig() *AppConfig {
	return &AppConfig{
		ConfigPath: getEnv("INTERVIEW_CONFIG", "config/interview.yaml"),
		OpenAI:     *LoadOpenAIConfig(),
		Telegram: TelegramConfig{
			Token:         getEnv("TELEGRAM_BOT_TOKEN", ""),
			PollTimeout:   getEnvAsInt("TELEGRAM_POLL_TIMEOUT", 30),
			RateLimit:     getEnvAsInt("TELEGRAM_RATE_LIMIT", 20),
			SessionMaxAge: getEnvAsDuration("TELEGRAM_SESSION_MAX_AGE", 2*time.Hour),
		},
		Storage: StorageConfig{
			Backend:    strings.ToLower(getEnv("STORAGE_BACKEND", StorageJSON)),
			Dir:        getEnv("STORAGE_DIR", "results"),
			SQLitePath: getEnv("SQLITE_PATH", "results/interviews.db"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
		},
		Metrics: MetricsConfig{
			Addr: getEnv("METRICS_ADDR", ""),
		},
	}
}

// Validate проверяет настройки, не зависящие от режима запуска
func (c *AppConfig) Validate() error {
	switch c.Storage.Backend {
	case StorageJSON, StorageSQLite, StorageNone:
	default:
		return fmt.Errorf("неизвестный STORAGE_BACKEND %q", c.Storage.Backend)
	}
	if c.Telegram.RateLimit <= 0 {
		return fmt.Errorf("TELEGRAM_RATE_LIMIT должно быть больше 0")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
