package observer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"interview-coach/internal/interview"
)

func ptr(v float64) *float64 { return &v }

func TestDifficultyDelta(t *testing.T) {
	limits := interview.DefaultLimits()
	tests := []struct {
		name    string
		recent  []float64
		score   *float64
		current int
		want    int
	}{
		{"two high scores raise", []float64{0.9}, ptr(0.85), 3, 1},
		{"two low scores lower", []float64{0.3}, ptr(0.2), 3, -1},
		{"mixed scores keep", []float64{0.9}, ptr(0.3), 3, 0},
		{"single score keeps", nil, ptr(0.95), 3, 0},
		{"no new score keeps", []float64{0.9, 0.9}, nil, 3, 0},
		{"capped at max", []float64{0.9}, ptr(0.9), 5, 0},
		{"floored at min", []float64{0.1}, ptr(0.1), 1, 0},
		{"only last two count", []float64{0.1, 0.9}, ptr(0.9), 2, 1},
		{"boundaries are inclusive", []float64{0.8}, ptr(0.8), 2, 1},
		{"low boundary inclusive", []float64{0.4}, ptr(0.4), 2, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DifficultyDelta(tt.recent, tt.score, tt.current, limits))
		})
	}
}

func TestScore(t *testing.T) {
	assert.InDelta(t, 0.75, Score(0.75, 0.75), 1e-9)
	assert.InDelta(t, 1.0, Score(1, 1), 1e-9)
	assert.InDelta(t, 0.6, Score(2, -1), 1e-9)
	assert.InDelta(t, 0.74, Score(0.8, 0.65), 1e-9)
}

func TestNearestLevels(t *testing.T) {
	limits := interview.DefaultLimits()
	assert.Equal(t, []int{3, 2, 4, 1, 5}, nearestLevels(3, limits))
	assert.Equal(t, []int{1, 2, 3, 4, 5}, nearestLevels(1, limits))
	assert.Equal(t, []int{5, 4, 3, 2, 1}, nearestLevels(9, limits))
}

func TestSelectQuestionPrefersFreshTopicsAtExactLevel(t *testing.T) {
	bank := mustBank(t)
	st := askedState(t)

	q := SelectQuestion(bank, st.Snapshot(), 2, 2)
	require.NotNil(t, q)
	assert.Equal(t, "db-2a", q.ID)

	// на уровне 3 свежая тема databases идет раньше частично раскрытой data_structures
	q = SelectQuestion(bank, st.Snapshot(), 3, 2)
	require.NotNil(t, q)
	assert.Equal(t, "db-3a", q.ID)
}

func TestSelectQuestionFallsBackToNearestLevel(t *testing.T) {
	bank := mustBank(t)
	st, err := interview.NewState("s", interview.CandidateProfile{Role: "Backend Developer", Grade: "Junior"}, interview.DefaultLimits(), time.Now())
	require.NoError(t, err)

	q := SelectQuestion(bank, st.Snapshot(), 5, 2)
	require.NotNil(t, q)
	assert.Equal(t, 3, q.Difficulty)
	assert.Equal(t, "ds-3a", q.ID)
}

func TestSelectQuestionNeverRepeats(t *testing.T) {
	bank := mustBank(t)
	st, err := interview.NewState("s", interview.CandidateProfile{Role: "Backend Developer", Grade: "Junior"}, interview.DefaultLimits(), time.Now())
	require.NoError(t, err)

	seen := map[string]bool{}
	for {
		q := SelectQuestion(bank, st.Snapshot(), 2, 10)
		if q == nil {
			break
		}
		assert.False(t, seen[q.ID], "повтор %s", q.ID)
		seen[q.ID] = true
		require.NoError(t, st.ApplyTurn(interview.TurnUpdate{Message: "x", Directive: interview.Directive{NextQuestion: q}}))
	}
	assert.Len(t, seen, 6)
}
