package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"interview-coach/internal/api"
	"interview-coach/internal/hiring"
	"interview-coach/internal/interview"
	"interview-coach/internal/interviewer"
	"interview-coach/internal/observer"
	"interview-coach/internal/questionbank"
	"interview-coach/internal/storage"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const testBank = `
roles:
  - name: "Backend Developer"
    grades:
      Junior: [data_structures, databases, networking]
topics:
  - id: data_structures
    questions:
      - {id: ds-2a, difficulty: 2, text: "Что такое хеш-таблица?"}
      - {id: ds-2b, difficulty: 2, text: "Чем массив отличается от списка?"}
  - id: databases
    questions:
      - {id: db-2a, difficulty: 2, text: "Что такое индекс?"}
  - id: networking
    questions:
      - {id: net-2a, difficulty: 2, text: "Что такое TCP?"}
`

var junior = interview.CandidateProfile{Name: "Алекс", Role: "Backend Developer", Grade: "Junior"}

type handler func(ctx context.Context, req api.CompletionRequest) (string, error)

// scripted отвечает по роли запроса и считает вызовы
type scripted struct {
	mu       sync.Mutex
	handlers map[api.Role]handler
	calls    map[api.Role]int
}

func newScripted() *scripted {
	mock := api.NewMockCompleter()
	return &scripted{
		handlers: map[api.Role]handler{
			api.RoleClassifier:  reply(`{"intent": "ANSWER", "confidence": 0.9}`),
			api.RoleGuard:       reply(`{"has_issue": false}`),
			api.RoleGrader:      reply(`{"correctness": 0.75, "completeness": 0.75}`),
			api.RoleInterviewer: reply("Спасибо."),
			api.RoleHiring:      mock.Complete,
		},
		calls: make(map[api.Role]int),
	}
}

func reply(s string) handler {
	return func(context.Context, api.CompletionRequest) (string, error) { return s, nil }
}

func hang(ctx context.Context, _ api.CompletionRequest) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func (s *scripted) set(role api.Role, h handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[role] = h
}

func (s *scripted) count(role api.Role) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[role]
}

func (s *scripted) Complete(ctx context.Context, req api.CompletionRequest) (string, error) {
	s.mu.Lock()
	s.calls[req.Role]++
	h := s.handlers[req.Role]
	s.mu.Unlock()
	return h(ctx, req)
}

// countingReporter считает вызовы формирования отчета
type countingReporter struct {
	inner Reporter
	calls atomic.Int32
}

func (c *countingReporter) Generate(ctx context.Context, snap interview.Snapshot) *hiring.Report {
	c.calls.Add(1)
	return c.inner.Generate(ctx, snap)
}

// memoryJournal хранит записи журнала в памяти
type memoryJournal struct {
	mu      sync.Mutex
	turns   []storage.TurnRecord
	reports []storage.ReportRecord
}

func (j *memoryJournal) LogTurn(_ context.Context, rec storage.TurnRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.turns = append(j.turns, rec)
	return nil
}

func (j *memoryJournal) LogReport(_ context.Context, rec storage.ReportRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.reports = append(j.reports, rec)
	return nil
}

type fixture struct {
	llm      api.Completer
	bank     *questionbank.Bank
	policy   observer.Policy
	timeout  time.Duration
	reporter *countingReporter
	journal  *memoryJournal
}

func newFixture(t *testing.T, llm api.Completer, bank *questionbank.Bank) *fixture {
	t.Helper()
	if bank == nil {
		var err error
		bank, err = questionbank.Parse([]byte(testBank))
		require.NoError(t, err)
	}
	return &fixture{
		llm:     llm,
		bank:    bank,
		policy:  observer.Policy{MaxTurns: 20},
		timeout: time.Second,
		journal: &memoryJournal{},
	}
}

func (f *fixture) session(t *testing.T) *Session {
	t.Helper()
	obs := observer.New(
		observer.NewClassifier(f.llm, "cls"),
		observer.NewGuard(f.llm, "guard"),
		observer.NewPlanner(f.llm, "grader", f.bank, f.policy),
		observer.Config{CallTimeout: f.timeout},
		nil,
		nil,
	)
	f.reporter = &countingReporter{inner: hiring.New(f.llm, "hm", hiring.Options{Titles: f.bank.Title}, nil)}
	s, err := New("s-1", junior, Deps{
		Observer:    obs,
		Interviewer: interviewer.New(f.llm, "iv", f.timeout, nil),
		Hiring:      f.reporter,
		Journal:     f.journal,
	}, Options{PlanningRetries: 1, FallbackQuestion: "Расскажите о своем проекте."})
	require.NoError(t, err)
	return s
}

func askedIDs(snap interview.Snapshot) []string {
	var ids []string
	for _, q := range snap.QuestionsAsked {
		ids = append(ids, q.ID)
	}
	return ids
}

func TestHashMapAnswerMovesToUncoveredTopic(t *testing.T) {
	llm := newScripted()
	s := newFixture(t, llm, nil).session(t)
	ctx := context.Background()

	first, err := s.ProcessTurn(ctx, "Привет, я Алекс")
	require.NoError(t, err)
	assert.Equal(t, interview.InputGreeting, first.Directive.Intent)
	assert.Equal(t, "Спасибо.\n\nЧто такое хеш-таблица?", first.Reply)

	res, err := s.ProcessTurn(ctx, "Хеш-таблица хранит пары ключ-значение и ищет по хешу ключа")
	require.NoError(t, err)

	d := res.Directive
	assert.Equal(t, interview.InputAnswer, d.Intent)
	assert.Nil(t, d.Correction)
	require.NotNil(t, d.Score)
	assert.Equal(t, 0.75, *d.Score)
	assert.Equal(t, 0, d.DifficultyDelta)
	assert.Equal(t, interview.ActionAskNext, d.NextAction)
	require.NotNil(t, d.NextQuestion)
	assert.Equal(t, "databases", d.NextQuestion.Topic)
	assert.True(t, strings.HasSuffix(res.Reply, "Что такое индекс?"))

	snap := s.Snapshot()
	assert.Equal(t, []float64{0.75}, snap.RecentScores)
	assert.Equal(t, 2, snap.Difficulty)
	assert.Equal(t, []string{"ds-2a", "db-2a"}, askedIDs(snap))
	assert.Equal(t, StatusActive, s.Status())
	assert.NotEmpty(t, res.Trace)
	assert.NotContains(t, res.Reply, "score")
}

func TestStopProducesSingleReportAndClosesSession(t *testing.T) {
	llm := api.NewMockCompleter()
	f := newFixture(t, llm, nil)
	s := f.session(t)
	ctx := context.Background()

	_, err := s.ProcessTurn(ctx, "Привет")
	require.NoError(t, err)
	res, err := s.ProcessTurn(ctx, "Стоп, давай фидбэк")
	require.NoError(t, err)

	assert.Equal(t, interview.ActionStop, res.Directive.NextAction)
	assert.Equal(t, interview.StopCandidate, res.Directive.StopReason)
	require.NotNil(t, res.Report)
	assert.Same(t, res.Report, s.Report())
	assert.Equal(t, int32(1), f.reporter.calls.Load())
	assert.Equal(t, StatusTerminated, s.Status())
	assert.True(t, s.Snapshot().Frozen)

	_, err = s.ProcessTurn(ctx, "А можно еще вопрос?")
	var closed *interview.SessionClosedError
	require.ErrorAs(t, err, &closed)
	assert.Equal(t, "s-1", closed.SessionID)
	assert.Equal(t, int32(1), f.reporter.calls.Load())
	assert.Equal(t, 1, llm.Calls(api.RoleHiring))

	require.Len(t, f.journal.turns, 2)
	require.Len(t, f.journal.reports, 1)
	assert.Contains(t, f.journal.reports[0].Markdown, "# Итоговый отчет по интервью")

	last := s.Thoughts()[len(s.Thoughts())-1]
	assert.Equal(t, "hiring_manager", last.Step)
}

func TestObserverTimeoutsStillProduceReply(t *testing.T) {
	llm := newScripted()
	llm.set(api.RoleClassifier, hang)
	llm.set(api.RoleGuard, hang)
	f := newFixture(t, llm, nil)
	f.timeout = 20 * time.Millisecond
	s := f.session(t)

	res, err := s.ProcessTurn(context.Background(), "Здравствуйте")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Reply)
	assert.Equal(t, interview.ActionAskNext, res.Directive.NextAction)

	flags := s.Snapshot().Flags
	assert.Equal(t, 1, flags.ClassificationFallbacks)
	assert.Equal(t, 1, flags.GuardFailures)
}

func TestPlanningFailureRetriesThenDegrades(t *testing.T) {
	llm := newScripted()
	s := newFixture(t, llm, nil).session(t)
	ctx := context.Background()

	_, err := s.ProcessTurn(ctx, "Привет")
	require.NoError(t, err)

	llm.set(api.RoleGrader, func(context.Context, api.CompletionRequest) (string, error) {
		return "", errors.New("grader unavailable")
	})
	res, err := s.ProcessTurn(ctx, "Хеш-таблица ищет по ключу")
	require.NoError(t, err)

	assert.Equal(t, 2, llm.count(api.RoleGrader))
	assert.True(t, res.Directive.Degraded)
	assert.Equal(t, interview.ActionAskNext, res.Directive.NextAction)
	require.NotNil(t, res.Directive.NextQuestion)
	assert.Equal(t, "db-2a", res.Directive.NextQuestion.ID)
	assert.Nil(t, res.Directive.Score)
	assert.Equal(t, 1, s.Snapshot().Flags.PlanningFailures)

	errorsSeen := 0
	for _, th := range res.Trace {
		if th.Step == observer.StepPlanner && strings.HasPrefix(th.Content, "[error]") {
			errorsSeen++
		}
	}
	assert.Equal(t, 2, errorsSeen, "рассуждения каждой неудачной попытки сохраняются")
	assert.Equal(t, observer.StepDirective, res.Trace[len(res.Trace)-1].Step)
}

func TestPlanningRetryKeepsFailedAttemptThoughts(t *testing.T) {
	llm := newScripted()
	s := newFixture(t, llm, nil).session(t)
	ctx := context.Background()

	_, err := s.ProcessTurn(ctx, "Привет")
	require.NoError(t, err)

	var calls atomic.Int32
	llm.set(api.RoleGrader, func(context.Context, api.CompletionRequest) (string, error) {
		if calls.Add(1) == 1 {
			return "", errors.New("grader unavailable")
		}
		return `{"correctness": 0.75, "completeness": 0.75}`, nil
	})
	res, err := s.ProcessTurn(ctx, "Хеш-таблица ищет по ключу")
	require.NoError(t, err)
	assert.False(t, res.Directive.Degraded)
	require.NotNil(t, res.Directive.Score)

	var contents []string
	for _, th := range s.Thoughts() {
		if th.Turn == 2 && th.Step == observer.StepPlanner {
			contents = append(contents, th.Content)
		}
	}
	require.NotEmpty(t, contents)
	assert.True(t, strings.HasPrefix(contents[0], "[error]"), contents[0])
	assert.Equal(t, 0, s.Snapshot().Flags.PlanningFailures)
}

func TestCoverageCompleteStopsInterview(t *testing.T) {
	llm := newScripted()
	f := newFixture(t, llm, nil)
	f.policy.QuestionsPerTopic = 1
	s := f.session(t)
	ctx := context.Background()

	var last *TurnResult
	for i := 0; i < 10 && s.Status() == StatusActive; i++ {
		res, err := s.ProcessTurn(ctx, "Подробный ответ на вопрос")
		require.NoError(t, err)
		last = res
	}
	require.NotNil(t, last)
	assert.Equal(t, interview.StopCoverage, last.Directive.StopReason)
	assert.Equal(t, []string{"ds-2a", "db-2a", "net-2a"}, askedIDs(s.Snapshot()))
	assert.NotNil(t, last.Report)
}

func TestLongSessionKeepsInvariants(t *testing.T) {
	bank, err := questionbank.Default()
	require.NoError(t, err)
	llm := api.NewMockCompleter()
	f := newFixture(t, llm, bank)
	f.policy.QuestionsPerTopic = 5
	s := f.session(t)
	ctx := context.Background()

	answers := []string{
		"Не знаю",
		strings.Repeat("Подробный ответ с примерами и объяснением компромиссов. ", 3),
		strings.Repeat("Развернутый ответ про устройство и сложность операций. ", 3),
		"Кажется, это связано с памятью",
	}
	turns := 0
	for s.Status() == StatusActive {
		_, err := s.ProcessTurn(ctx, answers[turns%len(answers)])
		require.NoError(t, err)
		turns++

		snap := s.Snapshot()
		assert.LessOrEqual(t, len(snap.RecentScores), interview.ScoreWindow)
		assert.GreaterOrEqual(t, snap.Difficulty, snap.Limits.MinDifficulty)
		assert.LessOrEqual(t, snap.Difficulty, snap.Limits.MaxDifficulty)
		require.Less(t, turns, 50)
	}

	snap := s.Snapshot()
	seen := make(map[string]bool)
	for _, id := range askedIDs(snap) {
		assert.False(t, seen[id], "вопрос %s задан дважды", id)
		seen[id] = true
	}
	assert.Equal(t, 20, turns)
	assert.Equal(t, interview.StopTurnBudget, f.journal.turns[len(f.journal.turns)-1].Directive.StopReason)
	assert.Equal(t, int32(1), f.reporter.calls.Load())
}

// blockingResponder держит ход, пока тест не отпустит его
type blockingResponder struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingResponder) Respond(context.Context, interview.Snapshot, string, interview.Directive) interviewer.Reply {
	close(b.entered)
	<-b.release
	return interviewer.Reply{Text: "Продолжим."}
}

func TestConcurrentTurnIsRejected(t *testing.T) {
	llm := newScripted()
	f := newFixture(t, llm, nil)
	s := f.session(t)
	br := &blockingResponder{entered: make(chan struct{}), release: make(chan struct{})}
	s.deps.Interviewer = br

	done := make(chan error, 1)
	go func() {
		_, err := s.ProcessTurn(context.Background(), "Привет")
		done <- err
	}()
	<-br.entered

	_, err := s.ProcessTurn(context.Background(), "Еще одно сообщение")
	assert.ErrorIs(t, err, interview.ErrTurnInProgress)

	close(br.release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, s.Snapshot().CandidateTurns)
}

func TestEmptyMessageIsRejected(t *testing.T) {
	s := newFixture(t, newScripted(), nil).session(t)
	_, err := s.ProcessTurn(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Equal(t, 0, s.Snapshot().CandidateTurns)
}

func TestCancelledContextLeavesStateUntouched(t *testing.T) {
	s := newFixture(t, newScripted(), nil).session(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.ProcessTurn(ctx, "Привет")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, s.Snapshot().History)
	assert.Equal(t, StatusActive, s.Status())
}

func TestNewRequiresAgents(t *testing.T) {
	_, err := New("s-1", junior, Deps{}, Options{})
	assert.Error(t, err)
}
