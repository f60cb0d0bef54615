package interview

// Correction: исправление ложного технического утверждения кандидата
type Correction struct {
	Claim               string `json:"claim"`
	WhyIncorrect        string `json:"why_incorrect"`
	SuggestedCorrection string `json:"suggested_correction"`
}

// Grading: разбор ответа по рубрике
type Grading struct {
	Correctness   float64     `json:"correctness"`
	Completeness  float64     `json:"completeness"`
	Gaps          []string    `json:"gaps,omitempty"`
	CorrectAnswer string      `json:"correct_answer,omitempty"`
	Soft          SoftSignals `json:"soft_signals"`
	Notes         string      `json:"notes,omitempty"`
}

// StopReason объясняет, почему директива завершает интервью
type StopReason string

const (
	StopNone       StopReason = ""
	StopCandidate  StopReason = "candidate"
	StopTurnBudget StopReason = "turn_budget"
	StopTimeBudget StopReason = "time_budget"
	StopCoverage   StopReason = "coverage_complete"
)

// Directive: решение Observer на один ход.
// Передается по значению и живет только в пределах хода.
type Directive struct {
	Intent          InputType     `json:"classified_intent"`
	Correction      *Correction   `json:"hallucination_correction,omitempty"`
	Score           *float64      `json:"score,omitempty"`
	Grading         *Grading      `json:"grading,omitempty"`
	NextAction      NextAction    `json:"next_action"`
	DifficultyDelta int           `json:"difficulty_delta"`
	NextQuestion    *QuestionPlan `json:"next_question_plan,omitempty"`
	StopReason      StopReason    `json:"stop_reason,omitempty"`
	Degraded        bool          `json:"degraded,omitempty"`
}

// HasScore сообщает, содержит ли директива оценку ответа
func (d Directive) HasScore() bool {
	return d.Score != nil
}

// Terminal сообщает, завершает ли директива интервью
func (d Directive) Terminal() bool {
	return d.NextAction == ActionStop
}
