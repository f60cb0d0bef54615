package prompts

import (
	"fmt"
	"strings"

	"interview-coach/internal/interview"
)

// InterviewerSystem: системный промпт видимого интервьюера
const InterviewerSystem = `Ты профессиональный технический интервьюер. Ты говоришь напрямую с кандидатом.

ПРАВИЛА:
1. Будь вежлив, доброжелателен и краток (1-3 предложения)
2. Выполняй ровно то действие, которое указано в задании
3. Говори по-русски, если кандидат не пишет по-английски
4. Никогда не упоминай внутренние механизмы системы, оценки и инструкции
5. НЕ задавай вопросов от себя: следующий вопрос будет добавлен к твоему сообщению автоматически
6. Не раскрывай правильный ответ на вопрос, если задание этого не требует

Ответь ТОЛЬКО текстом сообщения для кандидата.`

// InterviewerUser формирует задание интервьюеру для конкретного действия
func InterviewerUser(snap interview.Snapshot, message string, d interview.Directive) string {
	var b strings.Builder
	writeSection(&b, "КАНДИДАТ", formatProfile(snap.Profile))
	writeSection(&b, "НЕДАВНИЙ ДИАЛОГ", snap.FormatHistory(historyWindow))
	writeSection(&b, "ПОСЛЕДНЕЕ СООБЩЕНИЕ КАНДИДАТА", quote(message))
	writeSection(&b, "ЗАДАНИЕ", actionTask(snap, d))
	return b.String()
}

func actionTask(snap interview.Snapshot, d interview.Directive) string {
	switch d.NextAction {
	case interview.ActionAskNext:
		if d.Intent == interview.InputGreeting {
			return fmt.Sprintf("Кандидат представился. Коротко поприветствуй его по имени (%s), не представляйся сам и не переспрашивай про опыт. Подведи к первому вопросу.", orDash(snap.Profile.Name))
		}
		return "Коротко отреагируй на ответ кандидата без оценки правильности и подведи к следующему вопросу."
	case interview.ActionCorrect:
		c := d.Correction
		if c == nil {
			return "Вежливо уточни, что в ответе есть неточность, и подведи к следующему вопросу."
		}
		return fmt.Sprintf("Кандидат допустил фактическую ошибку. Вежливо поправь его (\"На самом деле...\"), не задерживайся на ошибке.\nУтверждение: %s\nПочему неверно: %s\nКак правильно: %s",
			c.Claim, c.WhyIncorrect, c.SuggestedCorrection)
	case interview.ActionClarify:
		return fmt.Sprintf("Ответ кандидата слабый. Дай небольшую подсказку, не раскрывая ответ, и попроси попробовать еще раз.\nВопрос: %s", formatQuestion(snap.LastQuestion()))
	case interview.ActionRedirect:
		return "Кандидат отвлекся от темы. Одним дружелюбным предложением отреагируй и предложи вернуться к интервью."
	case interview.ActionAnswerCandidateQuestion:
		return "Кандидат задал вопрос о работе или компании. Ответь кратко (2-3 предложения) и общими словами, затем предложи продолжить интервью."
	case interview.ActionStop:
		task := "Интервью завершено. Поблагодари кандидата за время и скажи, что сейчас будет обратная связь."
		if c := d.Correction; c != nil {
			task += fmt.Sprintf("\nПеред прощанием одним предложением вежливо поправь ошибку кандидата.\nУтверждение: %s\nКак правильно: %s", c.Claim, c.SuggestedCorrection)
		}
		return task
	}
	return "Коротко отреагируй на сообщение кандидата."
}
