package hiring

import (
	"fmt"
	"math"
	"strings"
	"time"

	"interview-coach/internal/interview"
)

// Recommendation: итоговая рекомендация по найму
type Recommendation string

const (
	StrongHire Recommendation = "Strong Hire"
	Hire       Recommendation = "Hire"
	NoHire     Recommendation = "No Hire"
)

// ParseRecommendation разбирает рекомендацию модели
func ParseRecommendation(raw string) (Recommendation, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "strong hire", "strong_hire":
		return StrongHire, true
	case "hire":
		return Hire, true
	case "no hire", "no_hire":
		return NoHire, true
	}
	return "", false
}

// Weakness: пробел в знаниях с правильным ответом
type Weakness struct {
	Topic         string `json:"topic"`
	Gap           string `json:"gap"`
	CorrectAnswer string `json:"correct_answer,omitempty"`
}

// SoftSkill: оценка навыка по шкале 1..10
type SoftSkill struct {
	Score int    `json:"score"`
	Note  string `json:"note,omitempty"`
}

// SoftSkills: оценки soft skills
type SoftSkills struct {
	Clarity    SoftSkill `json:"clarity"`
	Honesty    SoftSkill `json:"honesty"`
	Engagement SoftSkill `json:"engagement"`
}

// TopicSummary: итог по одной теме
type TopicSummary struct {
	Topic     string  `json:"topic"`
	Title     string  `json:"title"`
	Asked     int     `json:"asked"`
	Answered  int     `json:"answered"`
	Average   float64 `json:"average"`
	Confirmed bool    `json:"confirmed"`
}

// ScoreSummary: сводка оценок, посчитанная по состоянию
type ScoreSummary struct {
	Answered int            `json:"answered"`
	Average  float64        `json:"average"`
	Min      float64        `json:"min"`
	Max      float64        `json:"max"`
	Topics   []TopicSummary `json:"topics"`
}

// Report: итоговый отчет по интервью
type Report struct {
	SessionID      string                     `json:"session_id"`
	Candidate      interview.CandidateProfile `json:"candidate"`
	GeneratedAt    time.Time                  `json:"generated_at"`
	Duration       time.Duration              `json:"duration"`
	AssessedGrade  string                     `json:"assessed_grade"`
	Recommendation Recommendation             `json:"recommendation"`
	Confidence     int                        `json:"confidence"`
	Strengths      []string                   `json:"strengths"`
	Weaknesses     []Weakness                 `json:"weaknesses"`
	SoftSkills     SoftSkills                 `json:"soft_skills"`
	TopicsToStudy  []string                   `json:"topics_to_study"`
	Resources      []string                   `json:"resources,omitempty"`
	Summary        string                     `json:"summary"`
	Scores         ScoreSummary               `json:"scores"`
	Flags          interview.Flags            `json:"flags"`
	FinalLevel     int                        `json:"final_difficulty"`
	Fallback       bool                       `json:"fallback,omitempty"`
}

// confirmedThreshold: средний балл темы, с которого навык считается подтвержденным
const confirmedThreshold = 0.7

// Summarize считает сводку оценок по состоянию без обращения к модели
func Summarize(snap interview.Snapshot, title func(string) string) ScoreSummary {
	s := ScoreSummary{Answered: len(snap.AllScores)}
	if s.Answered > 0 {
		s.Min, s.Max = math.Inf(1), math.Inf(-1)
		var sum float64
		for _, v := range snap.AllScores {
			sum += v
			s.Min = math.Min(s.Min, v)
			s.Max = math.Max(s.Max, v)
		}
		s.Average = round2(sum / float64(s.Answered))
	}
	for _, t := range snap.TopicsCovered {
		ts := snap.TopicStats[t]
		s.Topics = append(s.Topics, TopicSummary{
			Topic:     t,
			Title:     title(t),
			Asked:     ts.Asked,
			Answered:  len(ts.Scores),
			Average:   round2(ts.Average()),
			Confirmed: len(ts.Scores) > 0 && ts.Average() >= confirmedThreshold,
		})
	}
	return s
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Markdown отображает отчет для кандидата
func (r *Report) Markdown() string {
	var b strings.Builder

	b.WriteString("# Итоговый отчет по интервью\n\n")
	b.WriteString(fmt.Sprintf("Кандидат: **%s**, позиция: %s (%s)\n\n", orDash(r.Candidate.Name), orDash(r.Candidate.Role), orDash(r.Candidate.Grade)))

	b.WriteString("## Вердикт\n\n")
	b.WriteString("| Параметр | Значение |\n|---|---|\n")
	b.WriteString(fmt.Sprintf("| Грейд | %s |\n", r.AssessedGrade))
	b.WriteString(fmt.Sprintf("| Рекомендация | %s |\n", r.Recommendation))
	b.WriteString(fmt.Sprintf("| Уверенность | %d%% |\n\n", r.Confidence))
	if r.Summary != "" {
		b.WriteString(r.Summary + "\n\n")
	}

	b.WriteString("## Hard skills\n\n")
	if len(r.Scores.Topics) == 0 {
		b.WriteString("Темы не затрагивались.\n\n")
	} else {
		b.WriteString("| Тема | Статус | Средний балл | Вопросов |\n|---|---|---|---|\n")
		for _, t := range r.Scores.Topics {
			status := "❌"
			if t.Confirmed {
				status = "✅"
			}
			b.WriteString(fmt.Sprintf("| %s | %s | %.2f | %d |\n", t.Title, status, t.Average, t.Asked))
		}
		b.WriteString("\n")
	}
	b.WriteString(fmt.Sprintf("Ответов оценено: %d, средний балл: %.2f (мин %.2f, макс %.2f), итоговая сложность: %d\n\n",
		r.Scores.Answered, r.Scores.Average, r.Scores.Min, r.Scores.Max, r.FinalLevel))

	if len(r.Strengths) > 0 {
		b.WriteString("### Подтвержденные навыки\n\n")
		for _, s := range r.Strengths {
			b.WriteString("- " + s + "\n")
		}
		b.WriteString("\n")
	}
	if len(r.Weaknesses) > 0 {
		b.WriteString("### Пробелы в знаниях\n\n")
		for _, w := range r.Weaknesses {
			b.WriteString(fmt.Sprintf("- **%s**: %s\n", w.Topic, w.Gap))
			if w.CorrectAnswer != "" {
				b.WriteString(fmt.Sprintf("  - Правильный ответ: %s\n", w.CorrectAnswer))
			}
		}
		b.WriteString("\n")
	}

	b.WriteString("## Soft skills\n\n")
	b.WriteString("| Навык | Оценка | Комментарий |\n|---|---|---|\n")
	b.WriteString(fmt.Sprintf("| Ясность | %d/10 | %s |\n", r.SoftSkills.Clarity.Score, r.SoftSkills.Clarity.Note))
	b.WriteString(fmt.Sprintf("| Честность | %d/10 | %s |\n", r.SoftSkills.Honesty.Score, r.SoftSkills.Honesty.Note))
	b.WriteString(fmt.Sprintf("| Вовлеченность | %d/10 | %s |\n\n", r.SoftSkills.Engagement.Score, r.SoftSkills.Engagement.Note))

	if len(r.TopicsToStudy) > 0 || len(r.Resources) > 0 {
		b.WriteString("## Что изучить\n\n")
		for _, t := range r.TopicsToStudy {
			b.WriteString("- " + t + "\n")
		}
		for _, res := range r.Resources {
			b.WriteString("- " + res + "\n")
		}
		b.WriteString("\n")
	}

	if r.Flags.HallucinationCount > 0 || r.Flags.OffTopicCount > 0 {
		b.WriteString(fmt.Sprintf("Фактических ошибок: %d, отвлечений от темы: %d\n", r.Flags.HallucinationCount, r.Flags.OffTopicCount))
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
