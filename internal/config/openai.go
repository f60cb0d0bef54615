package config

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"interview-coach/internal/api"
)

type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	RateLimit  float64
	MaxRetries int
}

// LoadOpenAIConfig загружает конфигурацию сервиса генерации из переменных окружения.
// OPENROUTER_API_KEY используется, если OPENAI_API_KEY не задан.
func LoadOpenAIConfig() *OpenAIConfig {
	return &OpenAIConfig{
		APIKey:     getEnv("OPENAI_API_KEY", getEnv("OPENROUTER_API_KEY", "")),
		BaseURL:    getEnv("OPENAI_BASE_URL", api.DefaultBaseURL),
		Timeout:    getEnvAsDuration("OPENAI_TIMEOUT", 60*time.Second),
		RateLimit:  getEnvAsFloat("OPENAI_RATE_LIMIT", 5),
		MaxRetries: getEnvAsInt("OPENAI_MAX_RETRIES", 2),
	}
}

// ValidateConfig проверяет корректность конфигурации
func (c *OpenAIConfig) ValidateConfig() error {
	if c.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY не установлен")
	}
	if c.RateLimit <= 0 {
		return fmt.Errorf("OPENAI_RATE_LIMIT должно быть больше 0")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("OPENAI_MAX_RETRIES не может быть отрицательным")
	}
	return nil
}

// ClientOptions возвращает параметры клиента API
func (c *OpenAIConfig) ClientOptions(recorder api.CallRecorder, logger *zap.Logger) api.Options {
	return api.Options{
		APIKey:     c.APIKey,
		BaseURL:    c.BaseURL,
		Timeout:    c.Timeout,
		RateLimit:  c.RateLimit,
		MaxRetries: c.MaxRetries,
		Recorder:   recorder,
		Logger:     logger,
	}
}
