package prompts

import (
	"fmt"
	"strings"

	"interview-coach/internal/interview"
)

// historyWindow: сколько последних реплик попадает в контекст промптов
const historyWindow = 6

// writeSection добавляет в промпт раздел с заголовком капсом
func writeSection(b *strings.Builder, title, body string) {
	b.WriteString(title)
	b.WriteString(":\n")
	b.WriteString(strings.TrimSpace(body))
	b.WriteString("\n\n")
}

func formatProfile(p interview.CandidateProfile) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Имя: %s\n", orDash(p.Name)))
	b.WriteString(fmt.Sprintf("Позиция: %s\n", orDash(p.Role)))
	b.WriteString(fmt.Sprintf("Грейд: %s\n", orDash(p.Grade)))
	if p.Experience != "" {
		b.WriteString(fmt.Sprintf("Опыт: %s\n", p.Experience))
	}
	return b.String()
}

func formatQuestion(q *interview.QuestionPlan) string {
	if q == nil {
		return "Вопросов еще не было."
	}
	return fmt.Sprintf("[%s, сложность %d] %s", q.Topic, q.Difficulty, q.Text)
}

func quote(message string) string {
	return "\"" + strings.TrimSpace(message) + "\""
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
