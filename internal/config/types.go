package config

import (
	"time"

	"interview-coach/internal/api"
	"interview-coach/internal/interview"
	"interview-coach/internal/observer"
)

// Config представляет конфигурацию интервью
type Config struct {
	Interview    InterviewConfig `yaml:"interview"`
	Observer     ObserverConfig  `yaml:"observer"`
	Models       ModelsConfig    `yaml:"models"`
	QuestionBank string          `yaml:"question_bank"`
}

// InterviewConfig содержит общие настройки интервью
type InterviewConfig struct {
	StartDifficulty           int           `yaml:"start_difficulty"`
	MinDifficulty             int           `yaml:"min_difficulty"`
	MaxDifficulty             int           `yaml:"max_difficulty"`
	MaxTurns                  int           `yaml:"max_turns"`
	MaxDuration               time.Duration `yaml:"max_duration"`
	QuestionsPerTopic         int           `yaml:"questions_per_topic"`
	MinQuestionsForAssessment int           `yaml:"min_questions_for_assessment"`
	FallbackQuestion          string        `yaml:"fallback_question"`
}

// ObserverConfig содержит таймауты и повторы агентов
type ObserverConfig struct {
	CallTimeout        time.Duration `yaml:"call_timeout"`
	PlanningRetries    int           `yaml:"planning_retries"`
	InterviewerTimeout time.Duration `yaml:"interviewer_timeout"`
	ReportTimeout      time.Duration `yaml:"report_timeout"`
}

// ModelsConfig задает модель для каждой роли. Пустое значение означает Default.
type ModelsConfig struct {
	Default     string `yaml:"default"`
	Classifier  string `yaml:"classifier"`
	Guard       string `yaml:"guard"`
	Grader      string `yaml:"grader"`
	Interviewer string `yaml:"interviewer"`
	Hiring      string `yaml:"hiring_manager"`
}

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	c := &Config{}
	applyDefaults(c)
	return c
}

// Limits возвращает границы сложности
func (c *Config) Limits() interview.Limits {
	return interview.Limits{
		MinDifficulty:   c.Interview.MinDifficulty,
		MaxDifficulty:   c.Interview.MaxDifficulty,
		StartDifficulty: c.Interview.StartDifficulty,
	}
}

// Policy возвращает правила завершения для планировщика
func (c *Config) Policy() observer.Policy {
	return observer.Policy{
		MaxTurns:          c.Interview.MaxTurns,
		MaxDuration:       c.Interview.MaxDuration,
		QuestionsPerTopic: c.Interview.QuestionsPerTopic,
	}
}

// Model возвращает модель для роли
func (c *Config) Model(role api.Role) string {
	var m string
	switch role {
	case api.RoleClassifier:
		m = c.Models.Classifier
	case api.RoleGuard:
		m = c.Models.Guard
	case api.RoleGrader:
		m = c.Models.Grader
	case api.RoleInterviewer:
		m = c.Models.Interviewer
	case api.RoleHiring:
		m = c.Models.Hiring
	}
	if m == "" {
		return c.Models.Default
	}
	return m
}
