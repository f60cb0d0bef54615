package session

import (
	"go.uber.org/zap"

	"interview-coach/internal/api"
	"interview-coach/internal/config"
	"interview-coach/internal/hiring"
	"interview-coach/internal/interview"
	"interview-coach/internal/interviewer"
	"interview-coach/internal/metrics"
	"interview-coach/internal/observer"
	"interview-coach/internal/questionbank"
)

// NewFactory собирает агентов по конфигурации и возвращает фабрику сессий.
// Агенты не хранят состояния и общие для всех сессий.
func NewFactory(llm api.Completer, bank *questionbank.Bank, cfg *config.Config, journal TurnLogger, m *metrics.Metrics, logger *zap.Logger) Factory {
	if logger == nil {
		logger = zap.NewNop()
	}

	var steps observer.StepRecorder
	if m != nil {
		steps = m
	}
	obs := observer.New(
		observer.NewClassifier(llm, cfg.Model(api.RoleClassifier)),
		observer.NewGuard(llm, cfg.Model(api.RoleGuard)),
		observer.NewPlanner(llm, cfg.Model(api.RoleGrader), bank, cfg.Policy()),
		observer.Config{CallTimeout: cfg.Observer.CallTimeout},
		steps,
		logger,
	)
	iv := interviewer.New(llm, cfg.Model(api.RoleInterviewer), cfg.Observer.InterviewerTimeout, logger)
	hm := hiring.New(llm, cfg.Model(api.RoleHiring), hiring.Options{
		MinAnswers: cfg.Interview.MinQuestionsForAssessment,
		Timeout:    cfg.Observer.ReportTimeout,
		Titles:     bank.Title,
	}, logger)

	deps := Deps{
		Observer:    obs,
		Interviewer: iv,
		Hiring:      hm,
		Journal:     journal,
		Metrics:     m,
		Logger:      logger,
	}
	opts := Options{
		Limits:           cfg.Limits(),
		PlanningRetries:  cfg.Observer.PlanningRetries,
		FallbackQuestion: cfg.Interview.FallbackQuestion,
	}
	return func(id string, profile interview.CandidateProfile) (*Session, error) {
		return New(id, profile, deps, opts)
	}
}
