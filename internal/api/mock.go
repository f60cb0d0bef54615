package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"interview-coach/internal/interview"
)

// MockCompleter: детерминированный офлайн-сервис для локального запуска и тестов.
// Отвечает по роли запроса и эвристикам над сообщением кандидата.
type MockCompleter struct {
	mu    sync.Mutex
	calls map[Role]int
}

// NewMockCompleter создает мок-сервис
func NewMockCompleter() *MockCompleter {
	return &MockCompleter{calls: make(map[Role]int)}
}

// Calls возвращает число вызовов для роли
func (m *MockCompleter) Calls(role Role) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[role]
}

type knownFalseClaim struct {
	marker     string
	why        string
	correction string
}

var mockFalseClaims = []knownFalseClaim{
	{
		marker:     "python компилируется в машинный код",
		why:        "CPython компилирует исходный код в байт-код и исполняет его виртуальной машиной",
		correction: "Python (CPython) интерпретирует байт-код, а не генерирует машинный код",
	},
	{
		marker:     "http работает поверх udp",
		why:        "HTTP/1.1 и HTTP/2 используют TCP; поверх UDP работает только HTTP/3 через QUIC",
		correction: "HTTP/1.1 и HTTP/2 работают поверх TCP",
	},
	{
		marker:     "поиск в хеш-таблице всегда o(n)",
		why:        "средняя сложность поиска в хеш-таблице O(1), O(n) только в худшем случае",
		correction: "поиск в хеш-таблице в среднем O(1)",
	},
}

// Complete возвращает заготовленный ответ для роли
func (m *MockCompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	m.calls[req.Role]++
	m.mu.Unlock()

	switch req.Role {
	case RoleClassifier:
		return m.classify(req.Input), nil
	case RoleGuard:
		return m.guard(req.Input), nil
	case RoleGrader:
		return m.grade(req.Input), nil
	case RoleInterviewer:
		return "Спасибо, идем дальше.", nil
	case RoleHiring:
		return m.report(), nil
	}
	return "", fmt.Errorf("мок не поддерживает роль %q", req.Role)
}

func mustJSON(v any) string {
	data, _ := json.Marshal(v)
	return string(data)
}

func (m *MockCompleter) classify(input string) string {
	intent := interview.InputAnswer
	switch {
	case interview.IsStopRequest(input):
		intent = interview.InputStop
	case interview.LooksLikeGreeting(input):
		intent = interview.InputGreeting
	case interview.LooksLikeCandidateQuestion(input):
		intent = interview.InputCandidateQuestion
	case interview.LooksOffTopic(input):
		intent = interview.InputOffTopic
	}
	return mustJSON(map[string]any{
		"intent":     intent,
		"confidence": 0.9,
		"reasoning":  "эвристика мок-сервиса",
	})
}

func (m *MockCompleter) guard(input string) string {
	lower := strings.ToLower(input)
	for _, c := range mockFalseClaims {
		if strings.Contains(lower, c.marker) {
			return mustJSON(map[string]any{
				"has_issue":            true,
				"claim":                c.marker,
				"why_incorrect":        c.why,
				"suggested_correction": c.correction,
			})
		}
	}
	return `{"has_issue": false}`
}

func (m *MockCompleter) grade(input string) string {
	n := utf8.RuneCountInString(strings.TrimSpace(input))
	correctness, completeness := 0.3, 0.2
	switch {
	case n >= 120:
		correctness, completeness = 0.9, 0.85
	case n >= 40:
		correctness, completeness = 0.8, 0.65
	}
	return mustJSON(map[string]any{
		"correctness":    correctness,
		"completeness":   completeness,
		"gaps":           []string{},
		"correct_answer": "",
		"soft_signals":   map[string]float64{"clarity": 0.7, "honesty": 0.8, "engagement": 0.7},
		"notes":          fmt.Sprintf("длина ответа %d символов", n),
	})
}

func (m *MockCompleter) report() string {
	return mustJSON(map[string]any{
		"assessed_grade": "Junior",
		"recommendation": "Hire",
		"confidence":     60,
		"strengths":      []string{"уверенно отвечает на базовые вопросы"},
		"soft_skills": map[string]any{
			"clarity":    map[string]any{"score": 7, "note": "излагает мысли последовательно"},
			"honesty":    map[string]any{"score": 8, "note": "признает пробелы"},
			"engagement": map[string]any{"score": 7, "note": "активно участвует"},
		},
		"topics_to_study": []string{},
		"resources":       []string{},
		"summary":         "Отчет сформирован мок-сервисом.",
	})
}

var _ Completer = (*MockCompleter)(nil)
