package observer

import (
	"context"
	"fmt"

	"interview-coach/internal/api"
	"interview-coach/internal/interview"
	"interview-coach/internal/prompts"
)

// Classification: результат классификации сообщения кандидата
type Classification struct {
	Intent     interview.InputType `json:"intent"`
	Entities   []string            `json:"entities,omitempty"`
	Confidence float64             `json:"confidence"`
	Reasoning  string              `json:"reasoning,omitempty"`
	Fallback   bool                `json:"fallback,omitempty"`
}

// Classifier определяет намерение сообщения кандидата
type Classifier struct {
	llm   api.Completer
	model string
}

// NewClassifier создает классификатор
func NewClassifier(llm api.Completer, model string) *Classifier {
	return &Classifier{llm: llm, model: model}
}

type classifierResponse struct {
	Intent     string   `json:"intent"`
	InputType  string   `json:"input_type"`
	Entities   []string `json:"entities"`
	Confidence float64  `json:"confidence"`
	Reasoning  string   `json:"reasoning"`
}

// Classify возвращает метку сообщения.
// Любой сбой возвращается как *interview.ClassificationError.
func (c *Classifier) Classify(ctx context.Context, snap interview.Snapshot, message string) (Classification, error) {
	raw, err := c.llm.Complete(ctx, api.CompletionRequest{
		Role:        api.RoleClassifier,
		Model:       c.model,
		System:      prompts.ClassifierSystem,
		User:        prompts.ClassifierUser(snap, message),
		JSONMode:    true,
		Temperature: 0,
		MaxTokens:   200,
		Input:       message,
	})
	if err != nil {
		return Classification{}, &interview.ClassificationError{Err: err}
	}

	var resp classifierResponse
	if err := api.DecodeJSON(raw, &resp); err != nil {
		return Classification{}, &interview.ClassificationError{Raw: raw, Err: err}
	}
	label := resp.Intent
	if label == "" {
		label = resp.InputType
	}
	intent, ok := interview.ParseInputType(label)
	if !ok {
		return Classification{}, &interview.ClassificationError{Raw: raw, Err: fmt.Errorf("неизвестная метка %q", label)}
	}

	return normalize(snap, Classification{
		Intent:     intent,
		Entities:   resp.Entities,
		Confidence: resp.Confidence,
		Reasoning:  resp.Reasoning,
	}), nil
}

// FallbackClassification: консервативная метка при сбое классификатора:
// явная команда остановки дает STOP, все остальное ANSWER.
func FallbackClassification(snap interview.Snapshot, message string, cause error) Classification {
	intent := interview.InputAnswer
	if interview.IsStopRequest(message) {
		intent = interview.InputStop
	}
	reason := "классификатор недоступен"
	if cause != nil {
		reason = cause.Error()
	}
	return normalize(snap, Classification{
		Intent:     intent,
		Confidence: 0.5,
		Reasoning:  "[fallback] " + reason,
		Fallback:   true,
	})
}

// normalize приводит метку к контексту интервью: приветствие возможно только
// до первого вопроса, а ответ до первого вопроса считается представлением.
func normalize(snap interview.Snapshot, c Classification) Classification {
	first := snap.IsFirstExchange()
	switch {
	case c.Intent == interview.InputGreeting && !first:
		c.Intent = interview.InputOffTopic
	case c.Intent == interview.InputAnswer && first:
		c.Intent = interview.InputGreeting
	}
	return c
}
