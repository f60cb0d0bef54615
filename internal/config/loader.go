package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultModel             = "openai/gpt-4o-mini"
	defaultMaxTurns          = 20
	defaultQuestionsPerTopic = 2
	defaultMinAnswers        = 3
	defaultFallbackQuestion  = "Расскажите о проекте, которым вы гордитесь, и о своей роли в нем."
)

// Load загружает конфигурацию из YAML файла. Пустой путь означает значения по умолчанию.
func Load(filename string) (*Config, error) {
	if filename == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения файла %s: %w", filename, err)
	}
	return Parse(data)
}

// Parse разбирает YAML конфигурацию
func Parse(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("ошибка парсинга YAML: %w", err)
	}

	applyDefaults(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("ошибка валидации конфигурации: %w", err)
	}
	return &config, nil
}

func applyDefaults(c *Config) {
	iv := &c.Interview
	if iv.MinDifficulty == 0 && iv.MaxDifficulty == 0 {
		iv.MinDifficulty, iv.MaxDifficulty = 1, 5
	}
	if iv.StartDifficulty == 0 {
		iv.StartDifficulty = 2
	}
	if iv.MaxTurns == 0 {
		iv.MaxTurns = defaultMaxTurns
	}
	if iv.QuestionsPerTopic == 0 {
		iv.QuestionsPerTopic = defaultQuestionsPerTopic
	}
	if iv.MinQuestionsForAssessment == 0 {
		iv.MinQuestionsForAssessment = defaultMinAnswers
	}
	if strings.TrimSpace(iv.FallbackQuestion) == "" {
		iv.FallbackQuestion = defaultFallbackQuestion
	}

	ob := &c.Observer
	if ob.CallTimeout == 0 {
		ob.CallTimeout = 20 * time.Second
	}
	if ob.PlanningRetries == 0 {
		ob.PlanningRetries = 1
	}
	if ob.InterviewerTimeout == 0 {
		ob.InterviewerTimeout = 30 * time.Second
	}
	if ob.ReportTimeout == 0 {
		ob.ReportTimeout = 60 * time.Second
	}

	if c.Models.Default == "" {
		c.Models.Default = defaultModel
	}
}

// validateConfig проверяет корректность конфигурации
func validateConfig(config *Config) error {
	if err := config.Limits().Validate(); err != nil {
		return err
	}

	iv := config.Interview
	if iv.MaxTurns < 0 {
		return fmt.Errorf("max_turns не может быть отрицательным")
	}
	if iv.MaxDuration < 0 {
		return fmt.Errorf("max_duration не может быть отрицательным")
	}
	if iv.QuestionsPerTopic < 0 {
		return fmt.Errorf("questions_per_topic не может быть отрицательным")
	}
	if iv.MinQuestionsForAssessment < 0 {
		return fmt.Errorf("min_questions_for_assessment не может быть отрицательным")
	}

	ob := config.Observer
	if ob.CallTimeout < 0 || ob.InterviewerTimeout < 0 || ob.ReportTimeout < 0 {
		return fmt.Errorf("таймауты не могут быть отрицательными")
	}
	if ob.PlanningRetries < 0 || ob.PlanningRetries > 3 {
		return fmt.Errorf("planning_retries должно быть от 0 до 3, получено %d", ob.PlanningRetries)
	}
	return nil
}
