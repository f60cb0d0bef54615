package interview

import (
	"strings"
	"time"
)

// InputType представляет намерение последнего сообщения кандидата
type InputType string

const (
	InputAnswer            InputType = "ANSWER"
	InputCandidateQuestion InputType = "CANDIDATE_QUESTION"
	InputOffTopic          InputType = "OFF_TOPIC"
	InputStop              InputType = "STOP"
	InputGreeting          InputType = "GREETING"
)

// ParseInputType разбирает метку классификатора. Регистр и пробелы не важны.
func ParseInputType(raw string) (InputType, bool) {
	switch t := InputType(strings.ToUpper(strings.TrimSpace(raw))); t {
	case InputAnswer, InputCandidateQuestion, InputOffTopic, InputStop, InputGreeting:
		return t, true
	}
	return "", false
}

// NextAction: действие, которое должен выполнить интервьюер
type NextAction string

const (
	ActionAskNext                 NextAction = "ASK_NEXT"
	ActionClarify                 NextAction = "CLARIFY"
	ActionCorrect                 NextAction = "CORRECT"
	ActionRedirect                NextAction = "REDIRECT"
	ActionAnswerCandidateQuestion NextAction = "ANSWER_CANDIDATE_QUESTION"
	ActionStop                    NextAction = "STOP"
)

// Speaker: автор реплики в истории
type Speaker string

const (
	SpeakerCandidate   Speaker = "candidate"
	SpeakerInterviewer Speaker = "interviewer"
)

// CandidateProfile представляет профиль кандидата
type CandidateProfile struct {
	Name       string `yaml:"name" json:"name"`
	Role       string `yaml:"role" json:"role"`
	Grade      string `yaml:"grade" json:"grade"`
	Experience string `yaml:"experience" json:"experience,omitempty"`
}

// Turn представляет одну реплику диалога
type Turn struct {
	Speaker Speaker   `json:"speaker"`
	Text    string    `json:"text"`
	At      time.Time `json:"at"`
}

// QuestionPlan: вопрос из банка, запланированный к заданию
type QuestionPlan struct {
	ID         string `json:"id"`
	Topic      string `json:"topic"`
	Difficulty int    `json:"difficulty"`
	Text       string `json:"text"`
}

// SoftSignals: оценка soft skills за один ответ
type SoftSignals struct {
	Clarity    float64 `json:"clarity"`
	Honesty    float64 `json:"honesty"`
	Engagement float64 `json:"engagement"`
}

// TopicStats накапливает результаты по одной теме
type TopicStats struct {
	Asked          int       `json:"asked"`
	Scores         []float64 `json:"scores"`
	Gaps           []string  `json:"gaps,omitempty"`
	CorrectAnswers []string  `json:"correct_answers,omitempty"`
}

// Average возвращает средний балл по теме, 0 если оценок нет
func (t TopicStats) Average() float64 {
	if len(t.Scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range t.Scores {
		sum += s
	}
	return sum / float64(len(t.Scores))
}

// Flags: накопительные отметки сессии. Значения только растут.
type Flags struct {
	OffTopicCount           int  `json:"off_topic_count"`
	HallucinationCount      int  `json:"hallucination_count"`
	HallucinationDetected   bool `json:"hallucination_detected"`
	ClassificationFallbacks int  `json:"classification_fallbacks"`
	GuardFailures           int  `json:"guard_failures"`
	PlanningFailures        int  `json:"planning_failures"`
	InterviewerFallbacks    int  `json:"interviewer_fallbacks"`
}

// Thought: запись скрытого рассуждения одного шага Observer
type Thought struct {
	Turn    int       `json:"turn"`
	Step    string    `json:"step"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}
