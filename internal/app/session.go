package app

import (
	"context"
	"sync"
	"time"

	"quiz-score-service/internal/domain"
)

// SessionStatus is the position of a session in its lifecycle.
type SessionStatus string

const (
	StatusNotStarted SessionStatus = "not_started"
	StatusInProgress SessionStatus = "in_progress"
	StatusCompleted  SessionStatus = "completed"
)

// SessionState is the serialisable part of a session. The authoritative
// score lives in the ScoreRecord; Score here mirrors it.
type SessionState struct {
	ID              string           `json:"id"`
	QuizID          string           `json:"quizId"`
	ParticipantID   string           `json:"participantId"`
	ParticipantName string           `json:"participantName"`
	Status          SessionStatus    `json:"status"`
	QuestionIndex   int              `json:"questionIndex"`
	QuestionCount   int              `json:"questionCount"`
	Selection       []int            `json:"selection"`
	Answers         domain.AnswerMap `json:"answers"`
	Score           int              `json:"score"`
	StartedAt       time.Time        `json:"startedAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

// Persister stores the running score after each question.
type Persister func(ctx context.Context, participantID, quizID string, score int, answers domain.AnswerMap) error

// AdvanceResult describes one ADVANCE transition.
type AdvanceResult struct {
	QuestionIndex int  `json:"questionIndex"`
	Delta         int  `json:"delta"`
	Score         int  `json:"score"`
	Completed     bool `json:"completed"`
	// PersistErr is set when the upsert failed after retries. The transition
	// has still been applied.
	PersistErr error `json:"-"`
}

// Session is a participant's progress through one quiz attempt. It is owned
// by the calling flow and reached through its ID handle.
type Session struct {
	mu    sync.Mutex
	busy  bool
	now   func() time.Time
	state SessionState
}

// NewSession binds a fresh session to a participant. It starts NotStarted.
func NewSession(id string, quiz domain.Quiz, participant domain.Participant) *Session {
	return newSessionWithClock(id, quiz, participant, time.Now)
}

func newSessionWithClock(id string, quiz domain.Quiz, participant domain.Participant, now func() time.Time) *Session {
	ts := now()
	return &Session{
		now: now,
		state: SessionState{
			ID:              id,
			QuizID:          quiz.ID,
			ParticipantID:   participant.ID,
			ParticipantName: participant.Name,
			Status:          StatusNotStarted,
			QuestionCount:   len(quiz.Questions),
			Answers:         make(domain.AnswerMap),
			StartedAt:       ts,
			UpdatedAt:       ts,
		},
	}
}

// RestoreSession rebuilds a session from a stored snapshot.
func RestoreSession(state SessionState) *Session {
	if state.Answers == nil {
		state.Answers = make(domain.AnswerMap)
	}
	return &Session{now: time.Now, state: state}
}

// ID returns the session handle.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ID
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Busy reports whether an ADVANCE is in flight.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Begin moves a NotStarted session to the first question.
func (s *Session) Begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Status != StatusNotStarted {
		return domain.ErrNotInProgress
	}
	if s.state.QuestionCount == 0 {
		return &domain.ValidationError{Field: "questions", Msg: "quiz has no questions"}
	}
	s.state.Status = StatusInProgress
	s.state.QuestionIndex = 0
	s.state.UpdatedAt = s.now()
	return nil
}

// Answer records the selection for the current question, replacing any
// earlier selection. It fails with ErrSessionBusy while an ADVANCE is in flight.
func (s *Session) Answer(selected []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return domain.ErrSessionBusy
	}
	if s.state.Status != StatusInProgress {
		return domain.ErrNotInProgress
	}
	s.state.Selection = domain.SortIndices(selected)
	s.state.UpdatedAt = s.now()
	return nil
}

// Advance scores the current selection, floors the running total at zero,
// persists it, and moves to the next question or completes. A second call
// while one is in flight fails with ErrSessionBusy. Persistence failures do
// not undo the transition; they are reported in the result.
func (s *Session) Advance(ctx context.Context, quiz domain.Quiz, weights Weights, persist Persister) (AdvanceResult, error) {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return AdvanceResult{}, domain.ErrSessionBusy
	}
	if s.state.Status != StatusInProgress {
		s.mu.Unlock()
		return AdvanceResult{}, domain.ErrNotInProgress
	}
	if len(s.state.Selection) == 0 {
		s.mu.Unlock()
		return AdvanceResult{}, domain.ErrEmptySelection
	}
	idx := s.state.QuestionIndex
	if idx >= len(quiz.Questions) {
		s.mu.Unlock()
		return AdvanceResult{}, &domain.ValidationError{Field: "questionIndex", Msg: "quiz changed under the session"}
	}

	selected := append([]int(nil), s.state.Selection...)
	delta := Score(quiz.Questions[idx], selected, weights)
	total := floorZero(s.state.Score + delta)
	answers := s.state.Answers.Clone()
	answers[idx] = selected
	participantID, quizID := s.state.ParticipantID, s.state.QuizID
	s.busy = true
	s.mu.Unlock()

	persistErr := persist(ctx, participantID, quizID, total, answers)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
	s.state.Score = total
	s.state.Answers = answers
	s.state.UpdatedAt = s.now()
	completed := idx == s.state.QuestionCount-1
	if completed {
		s.state.Status = StatusCompleted
	} else {
		s.state.QuestionIndex = idx + 1
		s.state.Selection = nil
	}
	return AdvanceResult{
		QuestionIndex: idx,
		Delta:         delta,
		Score:         total,
		Completed:     completed,
		PersistErr:    persistErr,
	}, nil
}

func (s *Session) snapshotLocked() SessionState {
	out := s.state
	out.Selection = append([]int(nil), s.state.Selection...)
	out.Answers = s.state.Answers.Clone()
	return out
}
