package interview

import (
	"fmt"
	"time"
)

// ScoreWindow: размер окна последних оценок для адаптации сложности
const ScoreWindow = 2

// Limits задает границы сложности
type Limits struct {
	MinDifficulty   int
	MaxDifficulty   int
	StartDifficulty int
}

// DefaultLimits возвращает шкалу 1..5 со стартом на 2
func DefaultLimits() Limits {
	return Limits{MinDifficulty: 1, MaxDifficulty: 5, StartDifficulty: 2}
}

// Validate проверяет корректность границ
func (l Limits) Validate() error {
	if l.MinDifficulty < 1 {
		return fmt.Errorf("min_difficulty должно быть не меньше 1")
	}
	if l.MaxDifficulty < l.MinDifficulty {
		return fmt.Errorf("max_difficulty (%d) меньше min_difficulty (%d)", l.MaxDifficulty, l.MinDifficulty)
	}
	if l.StartDifficulty < l.MinDifficulty || l.StartDifficulty > l.MaxDifficulty {
		return fmt.Errorf("start_difficulty (%d) вне диапазона %d..%d", l.StartDifficulty, l.MinDifficulty, l.MaxDifficulty)
	}
	return nil
}

// Clamp приводит уровень к границам
func (l Limits) Clamp(level int) int {
	if level < l.MinDifficulty {
		return l.MinDifficulty
	}
	if level > l.MaxDifficulty {
		return l.MaxDifficulty
	}
	return level
}

// SlideWindow добавляет оценку в окно и отбрасывает самые старые
func SlideWindow(window []float64, score float64) []float64 {
	out := make([]float64, 0, ScoreWindow)
	out = append(out, window...)
	out = append(out, score)
	if len(out) > ScoreWindow {
		out = out[len(out)-ScoreWindow:]
	}
	return out
}

// State: память сессии интервью. Меняется только оркестратором сессии.
type State struct {
	sessionID string
	profile   CandidateProfile
	limits    Limits
	startedAt time.Time

	history        []Turn
	topicsCovered  []string
	topicSet       map[string]struct{}
	topicStats     map[string]*TopicStats
	questionsAsked []QuestionPlan
	askedIDs       map[string]struct{}
	difficulty     int
	recentScores   []float64
	allScores      []float64
	softSignals    []SoftSignals
	flags          Flags
	thoughts       []Thought
	candidateTurns int
	answersToLast  int
	frozen         bool
}

// NewState создает состояние новой сессии
func NewState(sessionID string, profile CandidateProfile, limits Limits, startedAt time.Time) (*State, error) {
	if err := limits.Validate(); err != nil {
		return nil, err
	}
	return &State{
		sessionID:  sessionID,
		profile:    profile,
		limits:     limits,
		startedAt:  startedAt,
		topicSet:   make(map[string]struct{}),
		topicStats: make(map[string]*TopicStats),
		askedIDs:   make(map[string]struct{}),
		difficulty: limits.StartDifficulty,
	}, nil
}

// TurnUpdate: все изменения состояния за один ход
type TurnUpdate struct {
	Message   string
	At        time.Time
	Directive Directive
	Thoughts  []Thought

	ClassifierFallback bool
	GuardFailed        bool
	PlanningFailed     bool
}

// ApplyTurn применяет изменения хода атомарно: либо все, либо ничего
func (s *State) ApplyTurn(u TurnUpdate) error {
	if s.frozen {
		return ErrStateFrozen
	}
	d := u.Directive
	if d.DifficultyDelta < -1 || d.DifficultyDelta > 1 {
		return fmt.Errorf("недопустимое изменение сложности: %d", d.DifficultyDelta)
	}
	if d.NextQuestion != nil {
		if _, dup := s.askedIDs[d.NextQuestion.ID]; dup {
			return fmt.Errorf("вопрос %s уже задавался", d.NextQuestion.ID)
		}
	}
	if d.Score != nil && (*d.Score < 0 || *d.Score > 1) {
		return fmt.Errorf("оценка %.2f вне диапазона [0,1]", *d.Score)
	}

	s.history = append(s.history, Turn{Speaker: SpeakerCandidate, Text: u.Message, At: u.At})
	s.candidateTurns++

	if d.Intent == InputOffTopic {
		s.flags.OffTopicCount++
	}
	if d.Correction != nil {
		s.flags.HallucinationCount++
		s.flags.HallucinationDetected = true
	}
	if u.ClassifierFallback {
		s.flags.ClassificationFallbacks++
	}
	if u.GuardFailed {
		s.flags.GuardFailures++
	}
	if u.PlanningFailed {
		s.flags.PlanningFailures++
	}

	if d.Score != nil {
		s.recordScore(*d.Score, d.Grading)
	}

	s.difficulty = s.limits.Clamp(s.difficulty + d.DifficultyDelta)

	if d.NextQuestion != nil {
		s.addQuestion(*d.NextQuestion)
	}

	s.thoughts = append(s.thoughts, u.Thoughts...)
	return nil
}

func (s *State) recordScore(score float64, g *Grading) {
	s.recentScores = SlideWindow(s.recentScores, score)
	s.allScores = append(s.allScores, score)
	s.answersToLast++

	// оценка относится к теме последнего заданного вопроса
	if len(s.questionsAsked) > 0 {
		topic := s.questionsAsked[len(s.questionsAsked)-1].Topic
		ts := s.statsFor(topic)
		ts.Scores = append(ts.Scores, score)
		if g != nil {
			ts.Gaps = append(ts.Gaps, g.Gaps...)
			if g.CorrectAnswer != "" {
				ts.CorrectAnswers = append(ts.CorrectAnswers, g.CorrectAnswer)
			}
		}
	}
	if g != nil {
		s.softSignals = append(s.softSignals, g.Soft)
	}
}

func (s *State) addQuestion(q QuestionPlan) {
	s.questionsAsked = append(s.questionsAsked, q)
	s.askedIDs[q.ID] = struct{}{}
	s.answersToLast = 0
	if _, ok := s.topicSet[q.Topic]; !ok {
		s.topicSet[q.Topic] = struct{}{}
		s.topicsCovered = append(s.topicsCovered, q.Topic)
	}
	s.statsFor(q.Topic).Asked++
}

func (s *State) statsFor(topic string) *TopicStats {
	ts, ok := s.topicStats[topic]
	if !ok {
		ts = &TopicStats{}
		s.topicStats[topic] = ts
	}
	return ts
}

// RecordReply добавляет видимую реплику интервьюера в историю
func (s *State) RecordReply(text string, at time.Time, fallback bool) error {
	if s.frozen {
		return ErrStateFrozen
	}
	s.history = append(s.history, Turn{Speaker: SpeakerInterviewer, Text: text, At: at})
	if fallback {
		s.flags.InterviewerFallbacks++
	}
	return nil
}

// AppendThoughts дописывает скрытые рассуждения вне основного хода (например, отчет)
func (s *State) AppendThoughts(th ...Thought) error {
	if s.frozen {
		return ErrStateFrozen
	}
	s.thoughts = append(s.thoughts, th...)
	return nil
}

// Freeze делает состояние доступным только для чтения
func (s *State) Freeze() { s.frozen = true }

// Frozen сообщает, закрыто ли состояние
func (s *State) Frozen() bool { return s.frozen }

// Thoughts возвращает копию журнала скрытых рассуждений для логгера
func (s *State) Thoughts() []Thought {
	out := make([]Thought, len(s.thoughts))
	copy(out, s.thoughts)
	return out
}

// Snapshot возвращает независимую копию состояния для чтения
func (s *State) Snapshot() Snapshot {
	stats := make(map[string]TopicStats, len(s.topicStats))
	for k, v := range s.topicStats {
		stats[k] = TopicStats{
			Asked:          v.Asked,
			Scores:         append([]float64(nil), v.Scores...),
			Gaps:           append([]string(nil), v.Gaps...),
			CorrectAnswers: append([]string(nil), v.CorrectAnswers...),
		}
	}
	return Snapshot{
		SessionID:      s.sessionID,
		Profile:        s.profile,
		Limits:         s.limits,
		StartedAt:      s.startedAt,
		History:        append([]Turn(nil), s.history...),
		TopicsCovered:  append([]string(nil), s.topicsCovered...),
		TopicStats:     stats,
		QuestionsAsked: append([]QuestionPlan(nil), s.questionsAsked...),
		Difficulty:     s.difficulty,
		RecentScores:   append([]float64(nil), s.recentScores...),
		AllScores:      append([]float64(nil), s.allScores...),
		SoftSignals:    append([]SoftSignals(nil), s.softSignals...),
		Flags:          s.flags,
		CandidateTurns: s.candidateTurns,
		AnswersToLast:  s.answersToLast,
		Frozen:         s.frozen,
	}
}
