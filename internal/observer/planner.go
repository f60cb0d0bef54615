package observer

import (
	"context"
	"fmt"
	"math"
	"time"

	"interview-coach/internal/api"
	"interview-coach/internal/interview"
	"interview-coach/internal/prompts"
)

const (
	// веса рубрики: score = 0.6*correctness + 0.4*completeness
	correctnessWeight  = 0.6
	completenessWeight = 0.4

	// NeutralScore ставится, если ответ оценщика не удалось разобрать
	NeutralScore = 0.5

	highScore    = 0.8
	lowScore     = 0.4
	clarifyScore = 0.3
)

// QuestionSource: банк вопросов, из которого планировщик выбирает следующий вопрос
type QuestionSource interface {
	TopicsFor(role, grade string) []string
	EligibleQuestions(topicFilter []string, difficulty int, excluded map[string]struct{}) []interview.QuestionPlan
}

// Policy: правила завершения и покрытия тем
type Policy struct {
	MaxTurns          int
	MaxDuration       time.Duration
	QuestionsPerTopic int
}

// Planner оценивает ответ и принимает решение о следующем шаге
type Planner struct {
	llm    api.Completer
	model  string
	bank   QuestionSource
	policy Policy
	now    func() time.Time
}

// NewPlanner создает планировщик
func NewPlanner(llm api.Completer, model string, bank QuestionSource, policy Policy) *Planner {
	if policy.QuestionsPerTopic <= 0 {
		policy.QuestionsPerTopic = 2
	}
	return &Planner{llm: llm, model: model, bank: bank, policy: policy, now: time.Now}
}

// PlanInput: результаты первых двух шагов и снимок состояния
type PlanInput struct {
	Snapshot       interview.Snapshot
	Message        string
	Classification Classification
	Correction     *interview.Correction
}

// Plan: директива и заметки планировщика для журнала рассуждений
type Plan struct {
	Directive interview.Directive
	Notes     []string
}

type gradingResponse struct {
	Correctness   *float64              `json:"correctness"`
	Completeness  *float64              `json:"completeness"`
	Gaps          []string              `json:"gaps"`
	CorrectAnswer string                `json:"correct_answer"`
	Soft          interview.SoftSignals `json:"soft_signals"`
	Notes         string                `json:"notes"`
}

// Plan строит директиву хода.
// Сбой вызова оценщика возвращается как *interview.PlanningError.
func (p *Planner) Plan(ctx context.Context, in PlanInput) (Plan, error) {
	snap := in.Snapshot
	d := interview.Directive{
		Intent:     in.Classification.Intent,
		Correction: in.Correction,
	}
	var notes []string

	if d.Intent == interview.InputAnswer && snap.LastQuestion() != nil {
		grading, score, note, err := p.grade(ctx, snap, in.Message, in.Correction)
		if err != nil {
			return Plan{}, &interview.PlanningError{Err: err}
		}
		d.Score = &score
		d.Grading = grading
		d.DifficultyDelta = DifficultyDelta(snap.RecentScores, d.Score, snap.Difficulty, snap.Limits)
		notes = append(notes, note)
	}

	target := snap.Limits.Clamp(snap.Difficulty + d.DifficultyDelta)
	next := SelectQuestion(p.bank, snap, target, p.policy.QuestionsPerTopic)

	d.NextAction, d.StopReason = p.decide(snap, d, next != nil)

	switch d.NextAction {
	case interview.ActionAskNext, interview.ActionCorrect:
		d.NextQuestion = next
	case interview.ActionRedirect, interview.ActionAnswerCandidateQuestion:
		// без ожидающего вопроса интервью не продвинется
		if snap.LastQuestion() == nil {
			d.NextQuestion = next
		}
	}

	notes = append(notes, fmt.Sprintf("действие=%s сложность=%d→%d вопрос=%s", d.NextAction, snap.Difficulty, target, questionID(d.NextQuestion)))
	if d.StopReason != interview.StopNone {
		notes = append(notes, fmt.Sprintf("завершение: %s", d.StopReason))
	}
	return Plan{Directive: d, Notes: notes}, nil
}

func (p *Planner) decide(snap interview.Snapshot, d interview.Directive, hasNext bool) (interview.NextAction, interview.StopReason) {
	// завершение важнее исправления, исправление остается в директиве для прощания
	if d.Intent == interview.InputStop {
		return interview.ActionStop, interview.StopCandidate
	}
	if p.policy.MaxTurns > 0 && snap.CandidateTurns+1 >= p.policy.MaxTurns {
		return interview.ActionStop, interview.StopTurnBudget
	}
	if p.policy.MaxDuration > 0 && p.now().Sub(snap.StartedAt) >= p.policy.MaxDuration {
		return interview.ActionStop, interview.StopTimeBudget
	}
	if d.Correction != nil {
		return interview.ActionCorrect, interview.StopNone
	}
	needsQuestion := d.Intent == interview.InputAnswer || d.Intent == interview.InputGreeting || snap.LastQuestion() == nil
	if needsQuestion && !hasNext {
		return interview.ActionStop, interview.StopCoverage
	}

	switch d.Intent {
	case interview.InputCandidateQuestion:
		return interview.ActionAnswerCandidateQuestion, interview.StopNone
	case interview.InputOffTopic:
		return interview.ActionRedirect, interview.StopNone
	case interview.InputAnswer:
		if d.Score != nil && *d.Score <= clarifyScore && d.DifficultyDelta == 0 && snap.AnswersToLast == 0 {
			return interview.ActionClarify, interview.StopNone
		}
	}
	return interview.ActionAskNext, interview.StopNone
}

func (p *Planner) grade(ctx context.Context, snap interview.Snapshot, message string, correction *interview.Correction) (*interview.Grading, float64, string, error) {
	raw, err := p.llm.Complete(ctx, api.CompletionRequest{
		Role:        api.RoleGrader,
		Model:       p.model,
		System:      prompts.GraderSystem,
		User:        prompts.GraderUser(snap, message, correction),
		JSONMode:    true,
		Temperature: 0.2,
		MaxTokens:   600,
		Input:       message,
	})
	if err != nil {
		return nil, 0, "", fmt.Errorf("ошибка вызова оценщика: %w", err)
	}

	var resp gradingResponse
	if err := api.DecodeJSON(raw, &resp); err != nil || resp.Correctness == nil || resp.Completeness == nil {
		note := "ответ оценщика не разобран, выставлена нейтральная оценка"
		if err != nil {
			note = fmt.Sprintf("%s: %v", note, err)
		}
		return &interview.Grading{Notes: note}, NeutralScore, note, nil
	}

	g := &interview.Grading{
		Correctness:   clamp01(*resp.Correctness),
		Completeness:  clamp01(*resp.Completeness),
		Gaps:          resp.Gaps,
		CorrectAnswer: resp.CorrectAnswer,
		Soft: interview.SoftSignals{
			Clarity:    clamp01(resp.Soft.Clarity),
			Honesty:    clamp01(resp.Soft.Honesty),
			Engagement: clamp01(resp.Soft.Engagement),
		},
		Notes: resp.Notes,
	}
	score := Score(g.Correctness, g.Completeness)
	return g, score, fmt.Sprintf("correctness=%.2f completeness=%.2f score=%.2f %s", g.Correctness, g.Completeness, score, g.Notes), nil
}

// Score считает итоговый балл ответа по рубрике
func Score(correctness, completeness float64) float64 {
	s := correctnessWeight*clamp01(correctness) + completenessWeight*clamp01(completeness)
	return clamp01(math.Round(s*100) / 100)
}

// DifficultyDelta возвращает изменение сложности по окну из двух последних оценок.
// Без новой оценки на этом ходу сложность не меняется.
func DifficultyDelta(recent []float64, score *float64, current int, limits interview.Limits) int {
	if score == nil {
		return 0
	}
	window := interview.SlideWindow(recent, *score)
	if len(window) < interview.ScoreWindow {
		return 0
	}

	allHigh, allLow := true, true
	for _, s := range window {
		if s < highScore {
			allHigh = false
		}
		if s > lowScore {
			allLow = false
		}
	}
	switch {
	case allHigh && current < limits.MaxDifficulty:
		return 1
	case allLow && current > limits.MinDifficulty:
		return -1
	}
	return 0
}

// SelectQuestion выбирает следующий вопрос: сначала точная сложность, затем ближайшие уровни;
// на каждом уровне незатронутые темы идут раньше частично раскрытых.
// Возвращает nil, если подходящих вопросов не осталось.
func SelectQuestion(bank QuestionSource, snap interview.Snapshot, difficulty, perTopic int) *interview.QuestionPlan {
	var fresh, partial []string
	for _, t := range bank.TopicsFor(snap.Profile.Role, snap.Profile.Grade) {
		switch n := snap.AskedInTopic(t); {
		case n >= perTopic:
		case n == 0:
			fresh = append(fresh, t)
		default:
			partial = append(partial, t)
		}
	}
	if len(fresh)+len(partial) == 0 {
		return nil
	}

	excluded := snap.AskedIDs()
	for _, level := range nearestLevels(difficulty, snap.Limits) {
		for _, group := range [][]string{fresh, partial} {
			if len(group) == 0 {
				continue
			}
			if qs := bank.EligibleQuestions(group, level, excluded); len(qs) > 0 {
				q := qs[0]
				return &q
			}
		}
	}
	return nil
}

// nearestLevels перечисляет уровни по удалению от d, при равенстве сначала более легкий
func nearestLevels(d int, limits interview.Limits) []int {
	d = limits.Clamp(d)
	levels := []int{d}
	for step := 1; ; step++ {
		lo, hi := d-step, d+step
		if lo < limits.MinDifficulty && hi > limits.MaxDifficulty {
			return levels
		}
		if lo >= limits.MinDifficulty {
			levels = append(levels, lo)
		}
		if hi <= limits.MaxDifficulty {
			levels = append(levels, hi)
		}
	}
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

func questionID(q *interview.QuestionPlan) string {
	if q == nil {
		return "-"
	}
	return q.ID
}
