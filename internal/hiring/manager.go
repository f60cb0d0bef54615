package hiring

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"interview-coach/internal/api"
	"interview-coach/internal/interview"
	"interview-coach/internal/prompts"
)

// lowEvidenceConfidence: потолок уверенности при недостатке ответов
const lowEvidenceConfidence = 40

// Options: параметры итогового отчета
type Options struct {
	MinAnswers int
	Timeout    time.Duration
	Titles     func(topic string) string
}

// Manager формирует итоговый отчет. Вызывается один раз на сессию.
type Manager struct {
	llm    api.Completer
	model  string
	opts   Options
	logger *zap.Logger
	now    func() time.Time
}

// New создает менеджера отчетов
func New(llm api.Completer, model string, opts Options, logger *zap.Logger) *Manager {
	if opts.MinAnswers <= 0 {
		opts.MinAnswers = 3
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.Titles == nil {
		opts.Titles = func(t string) string { return strings.ReplaceAll(t, "_", " ") }
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{llm: llm, model: model, opts: opts, logger: logger, now: time.Now}
}

type llmReport struct {
	AssessedGrade  string     `json:"assessed_grade"`
	Recommendation string     `json:"recommendation"`
	Confidence     *int       `json:"confidence"`
	Strengths      []string   `json:"strengths"`
	Weaknesses     []Weakness `json:"weaknesses"`
	SoftSkills     SoftSkills `json:"soft_skills"`
	TopicsToStudy  []string   `json:"topics_to_study"`
	Resources      []string   `json:"resources"`
	Summary        string     `json:"summary"`
}

// Generate формирует отчет по финальному состоянию.
// Сводка оценок всегда считается по состоянию; качественная часть берется у модели,
// а при ее сбое строится по тем же данным.
func (m *Manager) Generate(ctx context.Context, snap interview.Snapshot) *Report {
	now := m.now()
	r := &Report{
		SessionID:   snap.SessionID,
		Candidate:   snap.Profile,
		GeneratedAt: now,
		Duration:    now.Sub(snap.StartedAt),
		Scores:      Summarize(snap, m.opts.Titles),
		Flags:       snap.Flags,
		FinalLevel:  snap.Difficulty,
	}

	if err := m.fromLLM(ctx, snap, r); err != nil {
		m.logger.Warn("отчет построен без модели",
			zap.String("session_id", snap.SessionID),
			zap.Error(err))
		m.fallback(snap, r)
	}

	if r.Scores.Answered < m.opts.MinAnswers && r.Confidence > lowEvidenceConfidence {
		r.Confidence = lowEvidenceConfidence
	}
	if r.Scores.Answered < m.opts.MinAnswers {
		r.Summary = strings.TrimSpace(r.Summary + fmt.Sprintf(" Оценено ответов: %d из минимально нужных %d, вывод предварительный.", r.Scores.Answered, m.opts.MinAnswers))
	}
	return r
}

func (m *Manager) fromLLM(ctx context.Context, snap interview.Snapshot, r *Report) error {
	callCtx, cancel := context.WithTimeout(ctx, m.opts.Timeout)
	defer cancel()

	raw, err := m.llm.Complete(callCtx, api.CompletionRequest{
		Role:        api.RoleHiring,
		Model:       m.model,
		System:      prompts.HiringSystem,
		User:        prompts.HiringUser(snap, m.opts.Titles),
		JSONMode:    true,
		Temperature: 0.3,
		MaxTokens:   2000,
	})
	if err != nil {
		return fmt.Errorf("ошибка вызова модели: %w", err)
	}

	var resp llmReport
	if err := api.DecodeJSON(raw, &resp); err != nil {
		return err
	}
	rec, ok := ParseRecommendation(resp.Recommendation)
	if !ok {
		return fmt.Errorf("неизвестная рекомендация %q", resp.Recommendation)
	}

	r.AssessedGrade = strings.TrimSpace(resp.AssessedGrade)
	if r.AssessedGrade == "" {
		r.AssessedGrade = assessGrade(snap, r.Scores)
	}
	r.Recommendation = rec
	r.Confidence = confidenceFor(r.Scores)
	if resp.Confidence != nil {
		r.Confidence = clampInt(*resp.Confidence, 0, 100)
	}
	r.Strengths = resp.Strengths
	r.Weaknesses = resp.Weaknesses
	if len(r.Weaknesses) == 0 {
		r.Weaknesses = weaknessesFrom(snap, m.opts.Titles)
	}
	r.SoftSkills = normalizeSoft(resp.SoftSkills, snap)
	r.TopicsToStudy = resp.TopicsToStudy
	r.Resources = resp.Resources
	r.Summary = strings.TrimSpace(resp.Summary)
	return nil
}

func (m *Manager) fallback(snap interview.Snapshot, r *Report) {
	r.Fallback = true
	r.AssessedGrade = assessGrade(snap, r.Scores)
	r.Recommendation = recommend(r.Scores)
	r.Confidence = confidenceFor(r.Scores)
	r.Strengths = nil
	r.TopicsToStudy = nil
	for _, t := range r.Scores.Topics {
		if t.Confirmed {
			r.Strengths = append(r.Strengths, t.Title)
		} else if t.Answered > 0 {
			r.TopicsToStudy = append(r.TopicsToStudy, t.Title)
		}
	}
	r.Weaknesses = weaknessesFrom(snap, m.opts.Titles)
	r.SoftSkills = softFromSignals(snap.SoftSignals)
	r.Summary = fmt.Sprintf("Средний балл %.2f по %d ответам, итоговая сложность %d.", r.Scores.Average, r.Scores.Answered, snap.Difficulty)
}

// recommend выводит рекомендацию из среднего балла
func recommend(s ScoreSummary) Recommendation {
	switch {
	case s.Answered == 0:
		return NoHire
	case s.Average >= 0.8:
		return StrongHire
	case s.Average >= 0.6:
		return Hire
	}
	return NoHire
}

// assessGrade оценивает грейд по достигнутой сложности и среднему баллу
func assessGrade(snap interview.Snapshot, s ScoreSummary) string {
	switch {
	case s.Answered == 0:
		return "Не определен"
	case snap.Difficulty >= 4 && s.Average >= 0.7:
		return "Senior"
	case snap.Difficulty >= 3 && s.Average >= 0.6:
		return "Middle"
	}
	return "Junior"
}

func confidenceFor(s ScoreSummary) int {
	return clampInt(40+s.Answered*8, 0, 90)
}

func weaknessesFrom(snap interview.Snapshot, title func(string) string) []Weakness {
	var out []Weakness
	for _, t := range snap.TopicsCovered {
		ts := snap.TopicStats[t]
		for i, g := range ts.Gaps {
			w := Weakness{Topic: title(t), Gap: g}
			if i < len(ts.CorrectAnswers) {
				w.CorrectAnswer = ts.CorrectAnswers[i]
			}
			out = append(out, w)
		}
	}
	return out
}

func softFromSignals(signals []interview.SoftSignals) SoftSkills {
	if len(signals) == 0 {
		neutral := SoftSkill{Score: 5, Note: "недостаточно данных"}
		return SoftSkills{Clarity: neutral, Honesty: neutral, Engagement: neutral}
	}
	var c, h, e float64
	for _, s := range signals {
		c += s.Clarity
		h += s.Honesty
		e += s.Engagement
	}
	n := float64(len(signals))
	return SoftSkills{
		Clarity:    SoftSkill{Score: toTen(c / n)},
		Honesty:    SoftSkill{Score: toTen(h / n)},
		Engagement: SoftSkill{Score: toTen(e / n)},
	}
}

func normalizeSoft(s SoftSkills, snap interview.Snapshot) SoftSkills {
	derived := softFromSignals(snap.SoftSignals)
	fix := func(v, d SoftSkill) SoftSkill {
		if v.Score < 1 || v.Score > 10 {
			v.Score = d.Score
		}
		return v
	}
	return SoftSkills{
		Clarity:    fix(s.Clarity, derived.Clarity),
		Honesty:    fix(s.Honesty, derived.Honesty),
		Engagement: fix(s.Engagement, derived.Engagement),
	}
}

func toTen(v float64) int {
	return clampInt(int(v*10+0.5), 1, 10)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
