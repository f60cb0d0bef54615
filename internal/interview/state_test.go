package interview

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestState(t *testing.T) *State {
	t.Helper()
	s, err := NewState("s-1", CandidateProfile{Name: "Алекс", Role: "backend", Grade: "middle"}, DefaultLimits(), t0)
	require.NoError(t, err)
	return s
}

func score(v float64) *float64 { return &v }

func TestNewStateRejectsBadLimits(t *testing.T) {
	_, err := NewState("s", CandidateProfile{}, Limits{MinDifficulty: 3, MaxDifficulty: 2, StartDifficulty: 2}, t0)
	assert.Error(t, err)

	_, err = NewState("s", CandidateProfile{}, Limits{MinDifficulty: 1, MaxDifficulty: 5, StartDifficulty: 9}, t0)
	assert.Error(t, err)
}

func TestSlideWindowKeepsLastTwo(t *testing.T) {
	var w []float64
	for _, v := range []float64{0.1, 0.2, 0.3, 0.4, 0.5} {
		w = SlideWindow(w, v)
		assert.LessOrEqual(t, len(w), ScoreWindow)
	}
	assert.Equal(t, []float64{0.4, 0.5}, w)
}

func TestSlideWindowDoesNotAliasInput(t *testing.T) {
	in := []float64{0.1, 0.2}
	out := SlideWindow(in, 0.3)
	out[0] = 9
	assert.Equal(t, []float64{0.1, 0.2}, in)
}

func TestApplyTurnRecordsScoreAndQuestion(t *testing.T) {
	s := newTestState(t)
	q1 := QuestionPlan{ID: "ds-1", Topic: "структуры данных", Difficulty: 2, Text: "Что такое хеш-таблица?"}
	require.NoError(t, s.ApplyTurn(TurnUpdate{
		Message:   "Привет",
		At:        t0,
		Directive: Directive{Intent: InputGreeting, NextAction: ActionAskNext, NextQuestion: &q1},
	}))
	require.NoError(t, s.RecordReply("Здравствуйте! "+q1.Text, t0.Add(time.Second), false))

	q2 := QuestionPlan{ID: "db-1", Topic: "базы данных", Difficulty: 2, Text: "Что такое индекс?"}
	require.NoError(t, s.ApplyTurn(TurnUpdate{
		Message: "Это структура с доступом по ключу за O(1)",
		At:      t0.Add(time.Minute),
		Directive: Directive{
			Intent:       InputAnswer,
			Score:        score(0.75),
			Grading:      &Grading{Correctness: 0.8, Completeness: 0.7, Gaps: []string{"коллизии"}, Soft: SoftSignals{Clarity: 0.8}},
			NextAction:   ActionAskNext,
			NextQuestion: &q2,
		},
		Thoughts: []Thought{{Turn: 2, Step: "grader", Content: "score=0.75"}},
	}))

	snap := s.Snapshot()
	assert.Equal(t, []float64{0.75}, snap.RecentScores)
	assert.Equal(t, []float64{0.75}, snap.AllScores)
	assert.Equal(t, []string{"структуры данных", "базы данных"}, snap.TopicsCovered)
	assert.Equal(t, []float64{0.75}, snap.TopicStats["структуры данных"].Scores)
	assert.Equal(t, []string{"коллизии"}, snap.TopicStats["структуры данных"].Gaps)
	assert.Equal(t, 1, snap.AskedInTopic("базы данных"))
	assert.Equal(t, 2, snap.Difficulty)
	assert.Len(t, snap.History, 3)
	assert.Equal(t, SpeakerInterviewer, snap.History[1].Speaker)
	assert.Equal(t, "db-1", snap.LastQuestion().ID)
	assert.Equal(t, "базы данных", snap.CurrentTopic())
	assert.Len(t, s.Thoughts(), 1)
}

func TestApplyTurnRejectsDuplicateQuestionWithoutMutation(t *testing.T) {
	s := newTestState(t)
	q := QuestionPlan{ID: "ds-1", Topic: "структуры данных", Difficulty: 2}
	require.NoError(t, s.ApplyTurn(TurnUpdate{Message: "a", Directive: Directive{Intent: InputAnswer, NextAction: ActionAskNext, NextQuestion: &q}}))
	before := s.Snapshot()

	err := s.ApplyTurn(TurnUpdate{
		Message:   "b",
		Directive: Directive{Intent: InputAnswer, Score: score(0.9), NextAction: ActionAskNext, NextQuestion: &q, DifficultyDelta: 1},
	})
	require.Error(t, err)

	if diff := cmp.Diff(before, s.Snapshot()); diff != "" {
		t.Fatalf("state changed after rejected turn (-want +got):\n%s", diff)
	}
}

func TestApplyTurnRejectsOversizedDelta(t *testing.T) {
	s := newTestState(t)
	err := s.ApplyTurn(TurnUpdate{Message: "x", Directive: Directive{Intent: InputAnswer, DifficultyDelta: 2}})
	assert.Error(t, err)
	assert.Empty(t, s.Snapshot().History)
}

func TestDifficultyStaysInBounds(t *testing.T) {
	s := newTestState(t)
	for i := 0; i < 10; i++ {
		require.NoError(t, s.ApplyTurn(TurnUpdate{Message: "x", Directive: Directive{Intent: InputAnswer, DifficultyDelta: 1}}))
	}
	assert.Equal(t, 5, s.Snapshot().Difficulty)
	for i := 0; i < 10; i++ {
		require.NoError(t, s.ApplyTurn(TurnUpdate{Message: "x", Directive: Directive{Intent: InputAnswer, DifficultyDelta: -1}}))
	}
	assert.Equal(t, 1, s.Snapshot().Difficulty)
}

func TestFlagsAccumulate(t *testing.T) {
	s := newTestState(t)
	require.NoError(t, s.ApplyTurn(TurnUpdate{
		Message:            "погода?",
		Directive:          Directive{Intent: InputOffTopic, NextAction: ActionRedirect},
		ClassifierFallback: true,
		GuardFailed:        true,
	}))
	require.NoError(t, s.ApplyTurn(TurnUpdate{
		Message:        "Python компилируется в машинный код",
		Directive:      Directive{Intent: InputAnswer, Correction: &Correction{Claim: "x"}, NextAction: ActionCorrect},
		PlanningFailed: true,
	}))
	require.NoError(t, s.RecordReply("...", t0, true))

	f := s.Snapshot().Flags
	assert.Equal(t, Flags{
		OffTopicCount:           1,
		HallucinationCount:      1,
		HallucinationDetected:   true,
		ClassificationFallbacks: 1,
		GuardFailures:           1,
		PlanningFailures:        1,
		InterviewerFallbacks:    1,
	}, f)
}

func TestFrozenStateRejectsMutation(t *testing.T) {
	s := newTestState(t)
	s.Freeze()
	assert.True(t, s.Frozen())

	err := s.ApplyTurn(TurnUpdate{Message: "x"})
	assert.True(t, errors.Is(err, ErrStateFrozen))
	assert.ErrorIs(t, s.RecordReply("x", t0, false), ErrStateFrozen)
	assert.ErrorIs(t, s.AppendThoughts(Thought{Step: "report"}), ErrStateFrozen)
}

func TestSnapshotIsIndependent(t *testing.T) {
	s := newTestState(t)
	q := QuestionPlan{ID: "ds-1", Topic: "структуры данных"}
	require.NoError(t, s.ApplyTurn(TurnUpdate{Message: "a", Directive: Directive{Intent: InputAnswer, NextAction: ActionAskNext, NextQuestion: &q}}))

	snap := s.Snapshot()
	snap.History[0].Text = "changed"
	snap.QuestionsAsked[0].ID = "changed"
	snap.TopicsCovered[0] = "changed"

	again := s.Snapshot()
	assert.Equal(t, "a", again.History[0].Text)
	assert.Equal(t, "ds-1", again.QuestionsAsked[0].ID)
	assert.True(t, again.Covered("структуры данных"))
}

func TestFormatHistory(t *testing.T) {
	s := newTestState(t)
	assert.Equal(t, "Диалога пока нет.", s.Snapshot().FormatHistory(4))

	require.NoError(t, s.ApplyTurn(TurnUpdate{Message: "Привет", Directive: Directive{Intent: InputGreeting}}))
	require.NoError(t, s.RecordReply("Добрый день", t0, false))
	assert.Equal(t, "Кандидат: Привет\nИнтервьюер: Добрый день", s.Snapshot().FormatHistory(4))
	assert.Equal(t, "Интервьюер: Добрый день", s.Snapshot().FormatHistory(1))
}

func TestParseInputType(t *testing.T) {
	got, ok := ParseInputType(" answer\n")
	assert.True(t, ok)
	assert.Equal(t, InputAnswer, got)

	_, ok = ParseInputType("QUESTION")
	assert.False(t, ok)
}
