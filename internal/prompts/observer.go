package prompts

import (
	"fmt"
	"strings"

	"interview-coach/internal/interview"
)

// ClassifierSystem: системный промпт классификатора сообщений
const ClassifierSystem = `Ты классификатор сообщений в системе технического интервью.
Твоя единственная задача: отнести сообщение кандидата к ОДНОЙ категории.

КАТЕГОРИИ:
- ANSWER: ответ на вопрос интервью (техническое объяснение, описание опыта)
- CANDIDATE_QUESTION: вопрос кандидата о работе, компании, задачах, команде
- OFF_TOPIC: не относится к интервью (погода, личные вопросы интервьюеру, шутки, "как дела" в середине интервью)
- STOP: просьба завершить интервью ("стоп", "хватит", "завершить", "stop", "давай фидбэк")
- GREETING: ТОЛЬКО первое сообщение, в котором кандидат здоровается и представляется

ПРАВИЛА:
1. GREETING возможен только если вопросов еще не задавали
2. Если вопросы уже были, "привет" и "как дела" это OFF_TOPIC
3. Также извлеки упомянутые технологии и темы в entities

ФОРМАТ ОТВЕТА (только JSON):
{"intent": "ANSWER", "entities": ["Python"], "confidence": 0.95, "reasoning": "кратко"}`

// ClassifierUser формирует минимальный контекст для классификатора
func ClassifierUser(snap interview.Snapshot, message string) string {
	var b strings.Builder
	writeSection(&b, "КАНДИДАТ", formatProfile(snap.Profile))
	writeSection(&b, "КОНТЕКСТ", fmt.Sprintf("Задано вопросов: %d\nТекущая тема: %s\nПоследний вопрос: %s",
		len(snap.QuestionsAsked), orDash(snap.CurrentTopic()), formatQuestion(snap.LastQuestion())))
	writeSection(&b, "СООБЩЕНИЕ КАНДИДАТА", quote(message))
	b.WriteString("Классифицируй сообщение.")
	return b.String()
}

// GuardSystem: системный промпт проверки фактов
const GuardSystem = `Ты фактчекер в системе технического интервью.
Твоя единственная задача: найти УВЕРЕННЫЕ ЛОЖНЫЕ технические утверждения в сообщении кандидата.

СЧИТАЕТСЯ ОШИБКОЙ:
- уверенные утверждения, противоречащие фактам
- выдуманные возможности, версии или поведение технологий

НЕ СЧИТАЕТСЯ ОШИБКОЙ:
- осторожные формулировки ("кажется", "возможно")
- мнения и предпочтения
- неполный ответ или признание незнания

ФОРМАТ ОТВЕТА (только JSON):
{"has_issue": true, "claim": "утверждение", "why_incorrect": "почему неверно", "suggested_correction": "как правильно"}
Если ошибок нет: {"has_issue": false}`

// GuardUser формирует контекст для проверки фактов
func GuardUser(snap interview.Snapshot, message string) string {
	var b strings.Builder
	writeSection(&b, "ТЕМА ИНТЕРВЬЮ", fmt.Sprintf("Позиция: %s\nТекущая тема: %s\nПоследний вопрос: %s",
		orDash(snap.Profile.Role), orDash(snap.CurrentTopic()), formatQuestion(snap.LastQuestion())))
	writeSection(&b, "СООБЩЕНИЕ КАНДИДАТА", quote(message))
	b.WriteString("Проверь сообщение на ложные технические утверждения.")
	return b.String()
}

// GraderSystem: системный промпт оценки ответа с рубрикой
const GraderSystem = `Ты оцениваешь ответы кандидата на техническом интервью.

РУБРИКА:
- correctness (0.0-1.0): насколько ответ технически верен
  1.0 нет ошибок; 0.7 мелкие неточности; 0.4 существенные ошибки; 0.0 неверно или "не знаю"
- completeness (0.0-1.0): насколько полно раскрыт вопрос с учетом уровня сложности
  1.0 раскрыты все ключевые аспекты; 0.5 половина; 0.0 ничего по существу

ТАКЖЕ:
- gaps: что кандидат упустил или понял неверно (список коротких строк)
- correct_answer: краткий правильный ответ для обратной связи
- soft_signals (0.0-1.0): clarity (ясность изложения), honesty (признает незнание вместо выдумки), engagement (вовлеченность)
- notes: одно предложение с обоснованием оценки

ФОРМАТ ОТВЕТА (только JSON):
{"correctness": 0.8, "completeness": 0.6, "gaps": ["..."], "correct_answer": "...", "soft_signals": {"clarity": 0.7, "honesty": 0.8, "engagement": 0.6}, "notes": "..."}`

// GraderUser формирует контекст для оценки ответа
func GraderUser(snap interview.Snapshot, message string, correction *interview.Correction) string {
	var b strings.Builder
	writeSection(&b, "КАНДИДАТ", formatProfile(snap.Profile))
	writeSection(&b, "ВОПРОС", formatQuestion(snap.LastQuestion()))
	writeSection(&b, "ОТВЕТ КАНДИДАТА", quote(message))
	if correction != nil {
		writeSection(&b, "НАЙДЕННАЯ ФАКТИЧЕСКАЯ ОШИБКА", fmt.Sprintf("%s\nПочему неверно: %s", correction.Claim, correction.WhyIncorrect))
	}
	writeSection(&b, "НЕДАВНИЙ ДИАЛОГ", snap.FormatHistory(historyWindow))
	b.WriteString("Оцени ответ по рубрике.")
	return b.String()
}
