package prompts

import (
	"fmt"
	"sort"
	"strings"

	"interview-coach/internal/interview"
)

// HiringSystem: системный промпт итогового отчета
const HiringSystem = `Ты Hiring Manager и готовишь итоговый отчет по техническому интервью.
Опирайся только на данные интервью. Отчет должен быть полезен кандидату для обучения.

ФОРМАТ ОТВЕТА (только JSON):
{
  "assessed_grade": "Junior | Middle | Senior",
  "recommendation": "Strong Hire | Hire | No Hire",
  "confidence": 0-100,
  "strengths": ["подтвержденные навыки"],
  "weaknesses": [{"topic": "тема", "gap": "что не знал", "correct_answer": "правильный ответ"}],
  "soft_skills": {
    "clarity": {"score": 1-10, "note": "..."},
    "honesty": {"score": 1-10, "note": "..."},
    "engagement": {"score": 1-10, "note": "..."}
  },
  "topics_to_study": ["..."],
  "resources": ["ссылки или книги"],
  "summary": "2-3 предложения"
}`

// HiringUser формирует данные интервью для отчета
func HiringUser(snap interview.Snapshot, titles func(string) string) string {
	var b strings.Builder
	writeSection(&b, "КАНДИДАТ", formatProfile(snap.Profile))
	writeSection(&b, "СТАТИСТИКА", fmt.Sprintf("Задано вопросов: %d\nОценено ответов: %d\nТем: %d\nФактических ошибок: %d\nОтвлечений от темы: %d\nИтоговая сложность: %d/%d",
		len(snap.QuestionsAsked), len(snap.AllScores), len(snap.TopicsCovered),
		snap.Flags.HallucinationCount, snap.Flags.OffTopicCount, snap.Difficulty, snap.Limits.MaxDifficulty))

	var topics strings.Builder
	for _, t := range snap.TopicsCovered {
		ts := snap.TopicStats[t]
		topics.WriteString(fmt.Sprintf("- %s: средний балл %.2f, вопросов %d\n", titles(t), ts.Average(), ts.Asked))
		gaps := append([]string(nil), ts.Gaps...)
		sort.Strings(gaps)
		for _, g := range gaps {
			topics.WriteString(fmt.Sprintf("  пробел: %s\n", g))
		}
		for _, a := range ts.CorrectAnswers {
			topics.WriteString(fmt.Sprintf("  правильный ответ: %s\n", a))
		}
	}
	if topics.Len() == 0 {
		topics.WriteString("Темы не затрагивались.")
	}
	writeSection(&b, "ТЕМЫ", topics.String())
	writeSection(&b, "ДИАЛОГ", snap.FormatHistory(0))
	b.WriteString("Составь итоговый отчет.")
	return b.String()
}
