package interviewer

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"interview-coach/internal/api"
	"interview-coach/internal/interview"
	"interview-coach/internal/prompts"
)

// Service представляет сервис интервьюера: исполняет директиву и пишет видимое сообщение
type Service struct {
	llm     api.Completer
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// Reply: сообщение для кандидата
type Reply struct {
	Text     string
	Fallback bool
}

// New создает новый сервис интервьюера
func New(llm api.Completer, model string, timeout time.Duration, logger *zap.Logger) *Service {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{llm: llm, model: model, timeout: timeout, logger: logger}
}

// Respond формирует ровно одно сообщение по действию директивы.
// snap: состояние после применения хода. Ошибки модели заменяются шаблоном.
func (s *Service) Respond(ctx context.Context, snap interview.Snapshot, message string, d interview.Directive) Reply {
	lead, fallback := s.leadIn(ctx, snap, message, d)
	return Reply{Text: compose(lead, questionFor(snap, d), d), Fallback: fallback}
}

func (s *Service) leadIn(ctx context.Context, snap interview.Snapshot, message string, d interview.Directive) (string, bool) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := s.llm.Complete(callCtx, api.CompletionRequest{
		Role:        api.RoleInterviewer,
		Model:       s.model,
		System:      prompts.InterviewerSystem,
		User:        prompts.InterviewerUser(snap, message, d),
		Temperature: 0.7,
		MaxTokens:   300,
		Input:       message,
	})
	text := clean(raw)
	if err != nil || text == "" {
		s.logger.Warn("интервьюер использует шаблон",
			zap.String("session_id", snap.SessionID),
			zap.String("action", string(d.NextAction)),
			zap.Error(err))
		return FallbackLeadIn(snap, d), true
	}
	return text, false
}

// questionFor возвращает вопрос, который должен завершать сообщение
func questionFor(snap interview.Snapshot, d interview.Directive) *interview.QuestionPlan {
	switch d.NextAction {
	case interview.ActionAskNext, interview.ActionCorrect:
		return d.NextQuestion
	case interview.ActionClarify, interview.ActionRedirect, interview.ActionAnswerCandidateQuestion:
		if d.NextQuestion != nil {
			return d.NextQuestion
		}
		return snap.LastQuestion()
	}
	return nil
}

func compose(lead string, q *interview.QuestionPlan, d interview.Directive) string {
	if q == nil {
		if d.NextAction == interview.ActionCorrect {
			return lead + "\n\nДавайте продолжим."
		}
		return lead
	}
	if lead == "" {
		return q.Text
	}
	return lead + "\n\n" + q.Text
}

func clean(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "\"«»")
	return strings.TrimSpace(s)
}
