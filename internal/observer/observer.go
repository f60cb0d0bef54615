package observer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"interview-coach/internal/interview"
)

// Шаги конвейера в журнале рассуждений
const (
	StepClassifier = "classifier"
	StepGuard      = "guard"
	StepPlanner    = "planner"
	StepDirective  = "directive"
)

// StepRecorder получает длительность и исход каждого шага
type StepRecorder interface {
	ObserveStep(step string, duration time.Duration, failed bool)
}

// Config: параметры конвейера
type Config struct {
	CallTimeout time.Duration
}

// Observer: конвейер анализа хода: классификатор ∥ проверка фактов → планировщик
type Observer struct {
	classifier *Classifier
	guard      *Guard
	planner    *Planner
	cfg        Config
	recorder   StepRecorder
	logger     *zap.Logger
	now        func() time.Time
}

// New создает конвейер
func New(classifier *Classifier, guard *Guard, planner *Planner, cfg Config, recorder StepRecorder, logger *zap.Logger) *Observer {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 20 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Observer{
		classifier: classifier,
		guard:      guard,
		planner:    planner,
		cfg:        cfg,
		recorder:   recorder,
		logger:     logger,
		now:        time.Now,
	}
}

// Result: итог анализа хода. Thoughts не предназначены для кандидата.
type Result struct {
	Directive          interview.Directive
	Classification     Classification
	Thoughts           []interview.Thought
	ClassifierFallback bool
	GuardFailed        bool
}

// Analyze выполняет конвейер для сообщения кандидата.
// Сбои классификатора и проверки фактов поглощаются; наружу выходит только
// *interview.PlanningError или отмена контекста.
func (o *Observer) Analyze(ctx context.Context, snap interview.Snapshot, message string) (Result, error) {
	turn := snap.CandidateTurns + 1
	log := o.logger.With(zap.String("session_id", snap.SessionID), zap.Int("turn", turn))

	var (
		cls        Classification
		clsErr     error
		correction *interview.Correction
		guardErr   error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		callCtx, cancel := context.WithTimeout(gctx, o.cfg.CallTimeout)
		defer cancel()
		start := time.Now()
		cls, clsErr = o.classifier.Classify(callCtx, snap, message)
		o.observe(StepClassifier, start, clsErr)
		return nil
	})
	g.Go(func() error {
		callCtx, cancel := context.WithTimeout(gctx, o.cfg.CallTimeout)
		defer cancel()
		start := time.Now()
		correction, guardErr = o.guard.Check(callCtx, snap, message)
		o.observe(StepGuard, start, guardErr)
		return nil
	})
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	res := Result{}
	if clsErr != nil {
		log.Warn("классификатор недоступен, используется консервативная метка",
			zap.String("step", StepClassifier), zap.Error(clsErr))
		cls = FallbackClassification(snap, message, clsErr)
		res.ClassifierFallback = true
	}
	res.Classification = cls
	res.Thoughts = append(res.Thoughts, o.thought(turn, StepClassifier,
		fmt.Sprintf("intent=%s confidence=%.2f entities=%v %s", cls.Intent, cls.Confidence, cls.Entities, cls.Reasoning)))

	if guardErr != nil {
		log.Warn("проверка фактов недоступна, считаем что ошибок нет",
			zap.String("step", StepGuard), zap.Error(guardErr))
		correction = nil
		res.GuardFailed = true
		res.Thoughts = append(res.Thoughts, o.thought(turn, StepGuard, "[fail-open] "+guardErr.Error()))
	} else if correction != nil {
		res.Thoughts = append(res.Thoughts, o.thought(turn, StepGuard,
			fmt.Sprintf("ошибка: %q; %s; правильно: %s", correction.Claim, correction.WhyIncorrect, correction.SuggestedCorrection)))
	} else {
		res.Thoughts = append(res.Thoughts, o.thought(turn, StepGuard, "ошибок не найдено"))
	}

	planCtx, cancel := context.WithTimeout(ctx, o.cfg.CallTimeout)
	defer cancel()
	start := time.Now()
	plan, err := o.planner.Plan(planCtx, PlanInput{
		Snapshot:       snap,
		Message:        message,
		Classification: cls,
		Correction:     correction,
	})
	o.observe(StepPlanner, start, err)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, ctxErr
		}
		var pe *interview.PlanningError
		if !errors.As(err, &pe) {
			err = &interview.PlanningError{Err: err}
		}
		log.Warn("планировщик не выполнил ход", zap.String("step", StepPlanner), zap.Error(err))
		res.Thoughts = append(res.Thoughts, o.thought(turn, StepPlanner, "[error] "+err.Error()))
		return res, err
	}

	for _, n := range plan.Notes {
		res.Thoughts = append(res.Thoughts, o.thought(turn, StepPlanner, n))
	}
	res.Directive = plan.Directive
	res.Thoughts = append(res.Thoughts, o.thought(turn, StepDirective, describe(plan.Directive)))
	return res, nil
}

// Degraded строит директиву для хода, который не удалось спланировать:
// ASK_NEXT с первым подходящим вопросом банка или запасным вопросом.
func (o *Observer) Degraded(snap interview.Snapshot, cls Classification, fallbackQuestion string) interview.Directive {
	d := interview.Directive{
		Intent:     cls.Intent,
		NextAction: interview.ActionAskNext,
		Degraded:   true,
	}
	if q := SelectQuestion(o.planner.bank, snap, snap.Difficulty, o.planner.policy.QuestionsPerTopic); q != nil {
		d.NextQuestion = q
		return d
	}
	d.NextQuestion = &interview.QuestionPlan{
		ID:         fmt.Sprintf("fallback-%d", len(snap.QuestionsAsked)+1),
		Topic:      "general",
		Difficulty: snap.Difficulty,
		Text:       fallbackQuestion,
	}
	return d
}

func (o *Observer) observe(step string, start time.Time, err error) {
	if o.recorder != nil {
		o.recorder.ObserveStep(step, time.Since(start), err != nil)
	}
}

func (o *Observer) thought(turn int, step, content string) interview.Thought {
	return interview.Thought{Turn: turn, Step: step, Content: content, At: o.now()}
}

func describe(d interview.Directive) string {
	s := fmt.Sprintf("intent=%s action=%s delta=%+d", d.Intent, d.NextAction, d.DifficultyDelta)
	if d.Score != nil {
		s += fmt.Sprintf(" score=%.2f", *d.Score)
	}
	if d.NextQuestion != nil {
		s += fmt.Sprintf(" next=%s", d.NextQuestion.ID)
	}
	if d.StopReason != interview.StopNone {
		s += fmt.Sprintf(" stop=%s", d.StopReason)
	}
	return s
}
