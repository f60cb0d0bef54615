package interviewer

import (
	"fmt"
	"strings"

	"interview-coach/internal/interview"
)

// FallbackLeadIn возвращает шаблонную реплику для действия, когда модель недоступна
func FallbackLeadIn(snap interview.Snapshot, d interview.Directive) string {
	switch d.NextAction {
	case interview.ActionAskNext:
		if d.Intent == interview.InputGreeting {
			if name := strings.TrimSpace(snap.Profile.Name); name != "" {
				return fmt.Sprintf("Здравствуйте, %s! Давайте начнем.", name)
			}
			return "Здравствуйте! Давайте начнем."
		}
		return "Спасибо за ответ. Следующий вопрос."
	case interview.ActionCorrect:
		if d.Correction != nil && d.Correction.SuggestedCorrection != "" {
			return fmt.Sprintf("Небольшое уточнение: %s.", strings.TrimRight(d.Correction.SuggestedCorrection, "."))
		}
		return "Небольшое уточнение: в ответе есть фактическая неточность."
	case interview.ActionClarify:
		if q := snap.LastQuestion(); q != nil {
			return "Подсказка: вспомните основные понятия этой темы и попробуйте ответить еще раз."
		}
		return "Попробуйте ответить подробнее."
	case interview.ActionRedirect:
		return "Давайте вернемся к интервью."
	case interview.ActionAnswerCandidateQuestion:
		return "Хороший вопрос, подробнее об этом расскажет команда на следующем этапе. А пока продолжим."
	case interview.ActionStop:
		if d.Correction != nil && d.Correction.SuggestedCorrection != "" {
			return fmt.Sprintf("Небольшое уточнение: %s. Спасибо за интервью! Сейчас подготовлю обратную связь.", strings.TrimRight(d.Correction.SuggestedCorrection, "."))
		}
		return "Спасибо за интервью! Сейчас подготовлю обратную связь."
	}
	return "Продолжим."
}
