package observer

import (
	"context"
	"fmt"
	"strings"

	"interview-coach/internal/api"
	"interview-coach/internal/interview"
	"interview-coach/internal/prompts"
)

// Guard ищет ложные технические утверждения в сообщении кандидата
type Guard struct {
	llm   api.Completer
	model string
}

// NewGuard создает проверку фактов
func NewGuard(llm api.Completer, model string) *Guard {
	return &Guard{llm: llm, model: model}
}

type guardResponse struct {
	HasIssue            *bool  `json:"has_issue"`
	IsHallucination     *bool  `json:"is_hallucination"`
	Claim               string `json:"claim"`
	WhyIncorrect        string `json:"why_incorrect"`
	SuggestedCorrection string `json:"suggested_correction"`
}

// Check возвращает исправление или nil, если ошибок не найдено.
// Любой сбой возвращается как *interview.HallucinationCheckError.
func (g *Guard) Check(ctx context.Context, snap interview.Snapshot, message string) (*interview.Correction, error) {
	raw, err := g.llm.Complete(ctx, api.CompletionRequest{
		Role:        api.RoleGuard,
		Model:       g.model,
		System:      prompts.GuardSystem,
		User:        prompts.GuardUser(snap, message),
		JSONMode:    true,
		Temperature: 0,
		MaxTokens:   300,
		Input:       message,
	})
	if err != nil {
		return nil, &interview.HallucinationCheckError{Err: err}
	}

	var resp guardResponse
	if err := api.DecodeJSON(raw, &resp); err != nil {
		return nil, &interview.HallucinationCheckError{Raw: raw, Err: err}
	}

	flag := resp.HasIssue
	if flag == nil {
		flag = resp.IsHallucination
	}
	if flag == nil {
		return nil, &interview.HallucinationCheckError{Raw: raw, Err: fmt.Errorf("в ответе нет поля has_issue")}
	}
	if !*flag {
		return nil, nil
	}

	c := &interview.Correction{
		Claim:               strings.TrimSpace(resp.Claim),
		WhyIncorrect:        strings.TrimSpace(resp.WhyIncorrect),
		SuggestedCorrection: strings.TrimSpace(resp.SuggestedCorrection),
	}
	if c.WhyIncorrect == "" && c.SuggestedCorrection == "" {
		return nil, &interview.HallucinationCheckError{Raw: raw, Err: fmt.Errorf("исправление без объяснения")}
	}
	if c.Claim == "" {
		c.Claim = strings.TrimSpace(message)
	}
	return c, nil
}
