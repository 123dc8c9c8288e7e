package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"quiz-score-service/internal/domain"
)

// Options tunes a QuizService. Zero values fall back to defaults.
type Options struct {
	Weights          WeightsSource
	Logger           *slog.Logger
	LeaderboardLimit int
	GlobalLimit      int
}

// QuizService contains the core quiz use cases.
type QuizService struct {
	sessions SessionRepository
	quizzes  QuizRepository
	store    Store
	weights  WeightsSource
	logger   *slog.Logger

	guard    *ParticipationGuard
	registry *Registry
	boards   *LeaderboardAggregator
	stats    *PlayerStatsAggregator
}

// NewQuizService wires the use cases. store is expected to already carry
// the retry policy (see RetryingStore).
func NewQuizService(sessions SessionRepository, quizzes QuizRepository, store Store, opts Options) *QuizService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	weights := opts.Weights
	if weights == nil {
		weights = StaticWeights(DefaultWeights())
	}
	return &QuizService{
		sessions: sessions,
		quizzes:  quizzes,
		store:    store,
		weights:  weights,
		logger:   logger,
		guard:    NewParticipationGuard(store, store),
		registry: NewRegistry(store),
		boards:   NewLeaderboardAggregator(store, opts.LeaderboardLimit, opts.GlobalLimit),
		stats:    NewPlayerStatsAggregator(store, store, quizzes, logger),
	}
}

// QuestionView is a question as shown to a player, without the answers.
type QuestionView struct {
	Index   int      `json:"index"`
	ID      int      `json:"id"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

// SessionView is the session state plus the question currently on screen.
type SessionView struct {
	SessionState
	Question *QuestionView `json:"question,omitempty"`
}

// AdvanceOutcome is returned by Advance.
type AdvanceOutcome struct {
	Result  AdvanceResult `json:"result"`
	Session SessionView   `json:"session"`
}

// Start validates the registration, applies the participation guard,
// registers the participant and opens a session on the first question.
func (s *QuizService) Start(ctx context.Context, quizID string, reg Registration) (SessionView, error) {
	reg = reg.Normalize()
	if err := reg.Validate(); err != nil {
		return SessionView{}, err
	}

	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return SessionView{}, err
	}
	if !quiz.IsActive {
		return SessionView{}, domain.ErrQuizInactive
	}
	if len(quiz.Questions) == 0 {
		return SessionView{}, &domain.ValidationError{Field: "questions", Msg: "quiz has no questions"}
	}

	if err := s.guard.Check(ctx, reg.Name, quizID); err != nil {
		return SessionView{}, err
	}
	participant, err := s.registry.GetOrCreate(ctx, reg)
	if err != nil {
		return SessionView{}, err
	}

	if err := s.store.IncrementParticipants(ctx, quizID); err != nil {
		return SessionView{}, fmt.Errorf("increment participants: %w", err)
	}

	session := NewSession(uuid.NewString(), quiz, *participant)
	if err := session.Begin(); err != nil {
		return SessionView{}, err
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return SessionView{}, fmt.Errorf("save session: %w", err)
	}
	s.logger.Info("session started", "session_id", session.ID(), "quiz_id", quizID, "participant_id", participant.ID)
	return view(session.Snapshot(), quiz), nil
}

// Session returns the current view of a session.
func (s *QuizService) Session(ctx context.Context, sessionID string) (SessionView, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return SessionView{}, err
	}
	state := session.Snapshot()
	quiz, err := s.quizzes.GetQuiz(ctx, state.QuizID)
	if err != nil {
		return SessionView{}, err
	}
	return view(state, quiz), nil
}

// Answer records the selection for the current question.
func (s *QuizService) Answer(ctx context.Context, sessionID string, selected []int) (SessionView, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return SessionView{}, err
	}
	state := session.Snapshot()
	quiz, err := s.quizzes.GetQuiz(ctx, state.QuizID)
	if err != nil {
		return SessionView{}, err
	}
	if state.Status == StatusInProgress && state.QuestionIndex < len(quiz.Questions) {
		options := len(quiz.Questions[state.QuestionIndex].Options)
		for _, idx := range selected {
			if idx < 0 || idx >= options {
				return SessionView{}, &domain.ValidationError{Field: "selected", Msg: fmt.Sprintf("option %d out of range", idx)}
			}
		}
	}
	if err := session.Answer(selected); err != nil {
		return SessionView{}, err
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return SessionView{}, fmt.Errorf("save session: %w", err)
	}
	return view(session.Snapshot(), quiz), nil
}

// Advance scores the current question and persists the running total.
// When the upsert fails after retries the session still moves on; the
// failure is logged and reported in the result.
func (s *QuizService) Advance(ctx context.Context, sessionID string) (AdvanceOutcome, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return AdvanceOutcome{}, err
	}
	state := session.Snapshot()
	quiz, err := s.quizzes.GetQuiz(ctx, state.QuizID)
	if err != nil {
		return AdvanceOutcome{}, err
	}
	weights, err := s.weights.Weights(ctx)
	if err != nil {
		return AdvanceOutcome{}, fmt.Errorf("load scoring weights: %w", err)
	}

	result, err := session.Advance(ctx, quiz, weights, s.persist)
	if err != nil {
		return AdvanceOutcome{}, err
	}
	if result.PersistErr != nil {
		s.logger.Error("score not persisted", "session_id", sessionID, "quiz_id", state.QuizID,
			"participant_id", state.ParticipantID, "score", result.Score, "error", result.PersistErr)
	}

	// the transition is applied; store it even if the caller has gone
	ctx = context.WithoutCancel(ctx)
	if result.Completed {
		if err := s.sessions.Delete(ctx, sessionID); err != nil {
			s.logger.Warn("drop completed session", "session_id", sessionID, "error", err)
		}
		s.logger.Info("session completed", "session_id", sessionID, "quiz_id", state.QuizID, "score", result.Score)
	} else if err := s.sessions.Save(ctx, session); err != nil {
		return AdvanceOutcome{}, fmt.Errorf("save session: %w", err)
	}
	return AdvanceOutcome{Result: result, Session: view(session.Snapshot(), quiz)}, nil
}

// persist runs detached from the caller's cancellation: once issued, the
// upsert and its retries run to completion.
func (s *QuizService) persist(ctx context.Context, participantID, quizID string, score int, answers domain.AnswerMap) error {
	_, err := s.store.SaveScore(context.WithoutCancel(ctx), participantID, quizID, score, answers)
	return err
}

// Abandon discards a session. Scores already persisted stay.
func (s *QuizService) Abandon(ctx context.Context, sessionID string) error {
	if _, err := s.sessions.Get(ctx, sessionID); err != nil {
		return err
	}
	return s.sessions.Delete(ctx, sessionID)
}

// Leaderboard returns the top 10 positive scores of a quiz.
func (s *QuizService) Leaderboard(ctx context.Context, quizID string) (domain.Leaderboard, error) {
	return s.boards.Leaderboard(ctx, quizID)
}

// GlobalLeaderboard ranks participants by their total across quizzes.
func (s *QuizService) GlobalLeaderboard(ctx context.Context) ([]domain.GlobalEntry, error) {
	return s.boards.GlobalLeaderboard(ctx)
}

// PlayerStats returns the statistics of the named participant.
func (s *QuizService) PlayerStats(ctx context.Context, name string) (*domain.PlayerStats, error) {
	return s.stats.Stats(ctx, name)
}

// UserScore returns the participant's row for a quiz, or nil when there is none.
func (s *QuizService) UserScore(ctx context.Context, participantID, quizID string) (*domain.ScoreRecord, error) {
	rec, err := s.store.GetScore(ctx, participantID, quizID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// SaveScore upserts a score row directly.
func (s *QuizService) SaveScore(ctx context.Context, participantID, quizID string, score int, answers domain.AnswerMap) (*domain.ScoreRecord, error) {
	if score < 0 {
		return nil, &domain.ValidationError{Field: "score", Msg: "score cannot be negative"}
	}
	return s.store.SaveScore(ctx, participantID, quizID, score, answers)
}

// ClearQuizScores deletes every score of a quiz and resets its participant count.
func (s *QuizService) ClearQuizScores(ctx context.Context, quizID string) (int64, error) {
	n, err := s.store.ClearQuizScores(ctx, quizID)
	if err != nil {
		return 0, fmt.Errorf("clear scores: %w", err)
	}
	if err := s.store.ResetParticipants(ctx, quizID); err != nil {
		return n, fmt.Errorf("reset participants: %w", err)
	}
	s.logger.Info("quiz scores cleared", "quiz_id", quizID, "deleted", n)
	return n, nil
}

// NameExists reports whether a participant already uses name.
func (s *QuizService) NameExists(ctx context.Context, name string) (bool, error) {
	return s.registry.NameExists(ctx, name)
}

// CreateParticipant returns the participant for reg, creating it if needed.
func (s *QuizService) CreateParticipant(ctx context.Context, reg Registration) (*domain.Participant, error) {
	return s.registry.GetOrCreate(ctx, reg)
}

func view(state SessionState, quiz domain.Quiz) SessionView {
	v := SessionView{SessionState: state}
	if state.Status == StatusInProgress && state.QuestionIndex < len(quiz.Questions) {
		q := quiz.Questions[state.QuestionIndex]
		v.Question = &QuestionView{
			Index:   state.QuestionIndex,
			ID:      q.ID,
			Text:    q.Text,
			Options: append([]string(nil), q.Options...),
		}
	}
	return v
}
