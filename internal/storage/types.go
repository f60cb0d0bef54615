package storage

import (
	"time"

	"interview-coach/internal/hiring"
	"interview-coach/internal/interview"
)

// TurnRecord представляет один ход интервью в журнале
type TurnRecord struct {
	SessionID        string                     `json:"session_id"`
	Candidate        interview.CandidateProfile `json:"-"`
	TurnID           int                        `json:"turn_id"`
	CandidateMessage string                     `json:"user_message"`
	AgentMessage     string                     `json:"agent_visible_message"`
	Directive        interview.Directive        `json:"directive"`
	Thoughts         []interview.Thought        `json:"internal_thoughts"`
	At               time.Time                  `json:"at"`
}

// ReportRecord представляет итоговый отчет в журнале
type ReportRecord struct {
	SessionID string         `json:"session_id"`
	Report    *hiring.Report `json:"report"`
	Markdown  string         `json:"markdown"`
}

// InterviewLog представляет журнал всего интервью
type InterviewLog struct {
	SessionID       string        `json:"session_id"`
	ParticipantName string        `json:"participant_name"`
	Role            string        `json:"role,omitempty"`
	Grade           string        `json:"grade,omitempty"`
	Turns           []TurnRecord  `json:"turns"`
	FinalFeedback   *ReportRecord `json:"final_feedback,omitempty"`
	UpdatedAt       time.Time     `json:"updated_at"`
}
