package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"interview-coach/internal/hiring"
	"interview-coach/internal/interview"
	"interview-coach/internal/interviewer"
	"interview-coach/internal/metrics"
	"interview-coach/internal/observer"
	"interview-coach/internal/storage"
)

// Status: состояние сессии
type Status string

const (
	StatusActive         Status = "ACTIVE"
	StatusAwaitingReport Status = "AWAITING_REPORT"
	StatusTerminated     Status = "TERMINATED"
)

// ErrEmptyMessage возвращается для пустого сообщения кандидата
var ErrEmptyMessage = errors.New("пустое сообщение")

// Pipeline анализирует ход и строит директиву
type Pipeline interface {
	Analyze(ctx context.Context, snap interview.Snapshot, message string) (observer.Result, error)
	Degraded(snap interview.Snapshot, cls observer.Classification, fallbackQuestion string) interview.Directive
}

// Responder пишет видимое сообщение по директиве
type Responder interface {
	Respond(ctx context.Context, snap interview.Snapshot, message string, d interview.Directive) interviewer.Reply
}

// Reporter формирует итоговый отчет
type Reporter interface {
	Generate(ctx context.Context, snap interview.Snapshot) *hiring.Report
}

// TurnLogger: журнал ходов и отчетов. Только дописывает.
type TurnLogger interface {
	LogTurn(ctx context.Context, rec storage.TurnRecord) error
	LogReport(ctx context.Context, rec storage.ReportRecord) error
}

// Deps: агенты и внешние зависимости сессии
type Deps struct {
	Observer    Pipeline
	Interviewer Responder
	Hiring      Reporter
	Journal     TurnLogger
	Metrics     *metrics.Metrics
	Logger      *zap.Logger
}

// Options: параметры сессии, неизменные до ее конца
type Options struct {
	Limits           interview.Limits
	PlanningRetries  int
	FallbackQuestion string
}

// TurnResult: итог хода. Кандидату показывается только Reply и отчет.
type TurnResult struct {
	Turn      int
	Reply     string
	Directive interview.Directive
	Report    *hiring.Report
	Trace     []interview.Thought
}

// Session ведет одно интервью
type Session struct {
	id   string
	deps Deps
	opts Options
	log  *zap.Logger
	now  func() time.Time

	busy atomic.Bool

	mu     sync.RWMutex
	state  *interview.State
	status Status
	report *hiring.Report
}

// New создает сессию в состоянии ACTIVE
func New(id string, profile interview.CandidateProfile, deps Deps, opts Options) (*Session, error) {
	if deps.Observer == nil || deps.Interviewer == nil || deps.Hiring == nil {
		return nil, errors.New("не заданы агенты сессии")
	}
	if opts.Limits == (interview.Limits{}) {
		opts.Limits = interview.DefaultLimits()
	}
	if opts.PlanningRetries < 0 {
		opts.PlanningRetries = 0
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	now := time.Now
	state, err := interview.NewState(id, profile, opts.Limits, now())
	if err != nil {
		return nil, fmt.Errorf("ошибка создания состояния: %w", err)
	}
	deps.Metrics.SessionStarted()

	return &Session{
		id:     id,
		deps:   deps,
		opts:   opts,
		log:    deps.Logger.With(zap.String("session_id", id)),
		now:    now,
		state:  state,
		status: StatusActive,
	}, nil
}

// ID возвращает идентификатор сессии
func (s *Session) ID() string { return s.id }

// Status возвращает текущее состояние
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Snapshot возвращает копию состояния интервью
func (s *Session) Snapshot() interview.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Snapshot()
}

// Report возвращает итоговый отчет или nil, пока интервью не завершено
func (s *Session) Report() *hiring.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.report
}

// Thoughts возвращает полный журнал рассуждений
func (s *Session) Thoughts() []interview.Thought {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Thoughts()
}

// ProcessTurn обрабатывает сообщение кандидата и возвращает ровно одно видимое сообщение.
// Параллельный вызов на той же сессии сразу получает interview.ErrTurnInProgress,
// вызов после завершения получает *interview.SessionClosedError.
func (s *Session) ProcessTurn(ctx context.Context, text string) (*TurnResult, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return nil, interview.ErrTurnInProgress
	}
	defer s.busy.Store(false)

	if s.Status() != StatusActive {
		return nil, &interview.SessionClosedError{SessionID: s.id}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	snap := s.Snapshot()
	turn := snap.CandidateTurns + 1
	log := s.log.With(zap.Int("turn", turn))

	res, planningFailed, err := s.analyze(ctx, snap, text, log)
	if err != nil {
		return nil, err
	}
	d := res.Directive

	s.mu.Lock()
	err = s.state.ApplyTurn(interview.TurnUpdate{
		Message:            text,
		At:                 s.now(),
		Directive:          d,
		Thoughts:           res.Thoughts,
		ClassifierFallback: res.ClassifierFallback,
		GuardFailed:        res.GuardFailed,
		PlanningFailed:     planningFailed,
	})
	if err == nil && d.Terminal() {
		s.status = StatusAwaitingReport
	}
	post := s.state.Snapshot()
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("ошибка применения хода: %w", err)
	}

	reply := s.deps.Interviewer.Respond(ctx, post, text, d)
	s.mu.Lock()
	err = s.state.RecordReply(reply.Text, s.now(), reply.Fallback)
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("ошибка записи ответа: %w", err)
	}
	if reply.Fallback {
		s.deps.Metrics.Fallback("interviewer")
	}

	result := &TurnResult{
		Turn:      turn,
		Reply:     reply.Text,
		Directive: d,
		Trace:     res.Thoughts,
	}
	s.journalTurn(ctx, post, result, text, log)

	if d.Terminal() {
		result.Report = s.finish(ctx, d, log)
	}

	s.deps.Metrics.TurnProcessed(string(d.NextAction))
	log.Debug("ход обработан",
		zap.String("intent", string(d.Intent)),
		zap.String("action", string(d.NextAction)),
		zap.Bool("degraded", d.Degraded))
	return result, nil
}

// analyze запускает конвейер, повторяет его при ошибке планирования и
// в крайнем случае деградирует до ASK_NEXT с запасным вопросом
func (s *Session) analyze(ctx context.Context, snap interview.Snapshot, text string, log *zap.Logger) (observer.Result, bool, error) {
	var (
		pe      *interview.PlanningError
		earlier []interview.Thought
	)
	for attempt := 0; ; attempt++ {
		res, err := s.deps.Observer.Analyze(ctx, snap, text)
		res.Thoughts = append(earlier, res.Thoughts...)
		if err == nil {
			return res, false, nil
		}
		if !errors.As(err, &pe) {
			return observer.Result{}, false, err
		}
		earlier = res.Thoughts
		if attempt < s.opts.PlanningRetries {
			log.Warn("повтор конвейера после ошибки планирования", zap.Int("attempt", attempt+1), zap.Error(err))
			continue
		}

		log.Warn("ход выполнен в деградированном режиме", zap.Error(err))
		s.deps.Metrics.Fallback("planning")
		res.Directive = s.deps.Observer.Degraded(snap, res.Classification, s.opts.FallbackQuestion)
		res.Thoughts = append(res.Thoughts, interview.Thought{
			Turn:    snap.CandidateTurns + 1,
			Step:    observer.StepDirective,
			Content: fmt.Sprintf("[degraded] ASK_NEXT %s", res.Directive.NextQuestion.ID),
			At:      s.now(),
		})
		return res, true, nil
	}
}

// finish формирует отчет один раз и закрывает состояние
func (s *Session) finish(ctx context.Context, d interview.Directive, log *zap.Logger) *hiring.Report {
	s.mu.RLock()
	if s.report != nil {
		s.mu.RUnlock()
		return s.report
	}
	final := s.state.Snapshot()
	s.mu.RUnlock()

	report := s.deps.Hiring.Generate(ctx, final)

	s.mu.Lock()
	err := s.state.AppendThoughts(interview.Thought{
		Turn:    final.CandidateTurns,
		Step:    "hiring_manager",
		Content: fmt.Sprintf("грейд=%s рекомендация=%s уверенность=%d резервный=%t", report.AssessedGrade, report.Recommendation, report.Confidence, report.Fallback),
		At:      s.now(),
	})
	s.state.Freeze()
	s.report = report
	s.status = StatusTerminated
	s.mu.Unlock()
	if err != nil {
		log.Warn("не удалось записать рассуждение отчета", zap.Error(err))
	}

	s.deps.Metrics.SessionCompleted(string(d.StopReason))
	if report.Fallback {
		s.deps.Metrics.Fallback("hiring")
	}
	if s.deps.Journal != nil {
		rec := storage.ReportRecord{SessionID: s.id, Report: report, Markdown: report.Markdown()}
		if err := s.deps.Journal.LogReport(ctx, rec); err != nil {
			log.Warn("не удалось записать отчет в журнал", zap.Error(err))
		}
	}
	log.Info("интервью завершено",
		zap.String("reason", string(d.StopReason)),
		zap.String("recommendation", string(report.Recommendation)))
	return report
}

func (s *Session) journalTurn(ctx context.Context, post interview.Snapshot, r *TurnResult, text string, log *zap.Logger) {
	if s.deps.Journal == nil {
		return
	}
	rec := storage.TurnRecord{
		SessionID:        s.id,
		Candidate:        post.Profile,
		TurnID:           r.Turn,
		CandidateMessage: text,
		AgentMessage:     r.Reply,
		Directive:        r.Directive,
		Thoughts:         r.Trace,
		At:               s.now(),
	}
	if err := s.deps.Journal.LogTurn(ctx, rec); err != nil {
		log.Warn("не удалось записать ход в журнал", zap.Error(err))
	}
}
