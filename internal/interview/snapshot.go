package interview

import (
	"fmt"
	"strings"
	"time"
)

// Snapshot: копия состояния, которую читают этапы Observer, интервьюер и отчет
type Snapshot struct {
	SessionID      string
	Profile        CandidateProfile
	Limits         Limits
	StartedAt      time.Time
	History        []Turn
	TopicsCovered  []string
	TopicStats     map[string]TopicStats
	QuestionsAsked []QuestionPlan
	Difficulty     int
	RecentScores   []float64
	AllScores      []float64
	SoftSignals    []SoftSignals
	Flags          Flags
	CandidateTurns int
	AnswersToLast  int
	Frozen         bool
}

// LastQuestion возвращает последний заданный вопрос или nil
func (s Snapshot) LastQuestion() *QuestionPlan {
	if len(s.QuestionsAsked) == 0 {
		return nil
	}
	q := s.QuestionsAsked[len(s.QuestionsAsked)-1]
	return &q
}

// CurrentTopic возвращает тему последнего вопроса
func (s Snapshot) CurrentTopic() string {
	if q := s.LastQuestion(); q != nil {
		return q.Topic
	}
	return ""
}

// Covered сообщает, затрагивалась ли тема
func (s Snapshot) Covered(topic string) bool {
	for _, t := range s.TopicsCovered {
		if t == topic {
			return true
		}
	}
	return false
}

// AskedIDs возвращает множество идентификаторов заданных вопросов
func (s Snapshot) AskedIDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(s.QuestionsAsked))
	for _, q := range s.QuestionsAsked {
		ids[q.ID] = struct{}{}
	}
	return ids
}

// AskedInTopic возвращает число вопросов, заданных по теме
func (s Snapshot) AskedInTopic(topic string) int {
	return s.TopicStats[topic].Asked
}

// IsFirstExchange сообщает, что интервью еще не дошло до первого вопроса
func (s Snapshot) IsFirstExchange() bool {
	return len(s.QuestionsAsked) == 0
}

// RecentHistory возвращает последние n реплик
func (s Snapshot) RecentHistory(n int) []Turn {
	if n <= 0 || len(s.History) <= n {
		return s.History
	}
	return s.History[len(s.History)-n:]
}

// FormatHistory форматирует последние n реплик для промпта
func (s Snapshot) FormatHistory(n int) string {
	turns := s.RecentHistory(n)
	if len(turns) == 0 {
		return "Диалога пока нет."
	}
	var b strings.Builder
	for _, t := range turns {
		who := "Кандидат"
		if t.Speaker == SpeakerInterviewer {
			who = "Интервьюер"
		}
		b.WriteString(fmt.Sprintf("%s: %s\n", who, t.Text))
	}
	return strings.TrimRight(b.String(), "\n")
}

// Summary возвращает краткую сводку для промптов
func (s Snapshot) Summary() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Кандидат: %s\n", s.Profile.Name))
	b.WriteString(fmt.Sprintf("Позиция: %s (%s)\n", s.Profile.Role, s.Profile.Grade))
	if s.Profile.Experience != "" {
		b.WriteString(fmt.Sprintf("Опыт: %s\n", s.Profile.Experience))
	}
	b.WriteString(fmt.Sprintf("Текущая сложность: %d/%d\n", s.Difficulty, s.Limits.MaxDifficulty))
	b.WriteString(fmt.Sprintf("Задано вопросов: %d\n", len(s.QuestionsAsked)))
	if len(s.TopicsCovered) > 0 {
		parts := make([]string, 0, len(s.TopicsCovered))
		for _, t := range s.TopicsCovered {
			ts := s.TopicStats[t]
			parts = append(parts, fmt.Sprintf("%s: %.2f (%d в.)", t, ts.Average(), ts.Asked))
		}
		b.WriteString("Темы: " + strings.Join(parts, ", ") + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
