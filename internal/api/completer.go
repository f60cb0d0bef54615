package api

import (
	"context"
	"time"
)

// Role: роль агента, от имени которой идет запрос к модели
type Role string

const (
	RoleClassifier  Role = "classifier"
	RoleGuard       Role = "guard"
	RoleGrader      Role = "grader"
	RoleInterviewer Role = "interviewer"
	RoleHiring      Role = "hiring_manager"
)

// CompletionRequest описывает один вызов модели
type CompletionRequest struct {
	Role        Role
	Model       string
	System      string
	User        string
	JSONMode    bool
	Temperature float64
	MaxTokens   int

	// Input: исходное сообщение кандидата, если запрос его анализирует
	Input string
}

// Completer: внешний сервис генерации текста.
// Реализации должны быть безопасны для конкурентного использования.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// CompleterFunc позволяет использовать функцию как Completer
type CompleterFunc func(ctx context.Context, req CompletionRequest) (string, error)

// Complete вызывает f
func (f CompleterFunc) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	return f(ctx, req)
}

// CallRecorder получает сведения о каждом вызове модели
type CallRecorder interface {
	RecordAPICall(role string, duration time.Duration, err error)
}
