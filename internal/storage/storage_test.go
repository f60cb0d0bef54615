package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"interview-coach/internal/hiring"
	"interview-coach/internal/interview"
)

var at = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func turn(n int) TurnRecord {
	score := 0.75
	return TurnRecord{
		SessionID:        "s-1",
		Candidate:        interview.CandidateProfile{Name: "Алекс", Role: "Backend Developer", Grade: "Junior"},
		TurnID:           n,
		CandidateMessage: "ответ",
		AgentMessage:     "Следующий вопрос",
		Directive: interview.Directive{
			Intent:       interview.InputAnswer,
			Score:        &score,
			NextAction:   interview.ActionAskNext,
			NextQuestion: &interview.QuestionPlan{ID: "db-2a", Topic: "databases", Difficulty: 2, Text: "Что такое индекс?"},
		},
		Thoughts: []interview.Thought{{Turn: n, Step: "planner", Content: "score=0.75", At: at}},
		At:       at.Add(time.Duration(n) * time.Minute),
	}
}

func report() ReportRecord {
	r := &hiring.Report{SessionID: "s-1", Recommendation: hiring.Hire, Confidence: 60, GeneratedAt: at.Add(time.Hour)}
	return ReportRecord{SessionID: "s-1", Report: r, Markdown: r.Markdown()}
}

func TestFileLoggerAppendsTurnsAndReport(t *testing.T) {
	l, err := NewFileLogger(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, l.LogTurn(ctx, turn(1)))
	require.NoError(t, l.LogTurn(ctx, turn(2)))
	require.NoError(t, l.LogReport(ctx, report()))

	log, err := l.Load("s-1")
	require.NoError(t, err)
	assert.Equal(t, "Алекс", log.ParticipantName)
	require.Len(t, log.Turns, 2)
	assert.Equal(t, 2, log.Turns[1].TurnID)
	assert.Equal(t, "db-2a", log.Turns[0].Directive.NextQuestion.ID)
	require.NotNil(t, log.FinalFeedback)
	assert.Equal(t, hiring.Hire, log.FinalFeedback.Report.Recommendation)

	ids, err := l.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"s-1"}, ids)
}

func TestFileLoggerRejectsSecondReport(t *testing.T) {
	l, err := NewFileLogger(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, l.LogReport(context.Background(), report()))
	assert.Error(t, l.LogReport(context.Background(), report()))
}

func TestFileLoggerLoadMissing(t *testing.T) {
	l, err := NewFileLogger(t.TempDir())
	require.NoError(t, err)
	_, err = l.Load("nope")
	assert.Error(t, err)
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "interviews.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	ctx := context.Background()

	require.NoError(t, s.LogTurn(ctx, turn(1)))
	require.NoError(t, s.LogTurn(ctx, turn(2)))

	turns, err := s.Turns(ctx, "s-1")
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, interview.ActionAskNext, turns[0].Directive.NextAction)
	assert.Equal(t, 0.75, *turns[0].Directive.Score)
	assert.Equal(t, "planner", turns[1].Thoughts[0].Step)
	assert.True(t, turns[1].At.Equal(at.Add(2*time.Minute)))

	missing, err := s.Report(ctx, "s-1")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, s.LogReport(ctx, report()))
	r, err := s.Report(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, 60, r.Confidence)
}

func TestSQLiteStoreRejectsDuplicates(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "interviews.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	ctx := context.Background()

	require.NoError(t, s.LogTurn(ctx, turn(1)))
	assert.Error(t, s.LogTurn(ctx, turn(1)))

	require.NoError(t, s.LogReport(ctx, report()))
	assert.Error(t, s.LogReport(ctx, report()))
	assert.Error(t, s.LogReport(ctx, ReportRecord{SessionID: "s-1"}))
}
