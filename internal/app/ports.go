package app

import (
	"context"

	"quiz-score-service/internal/domain"
)

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// QuizCounter maintains the participants counter stored with each quiz.
type QuizCounter interface {
	IncrementParticipants(ctx context.Context, quizID string) error
	ResetParticipants(ctx context.Context, quizID string) error
}

// ParticipantStore persists participants. Names are matched case-insensitively.
type ParticipantStore interface {
	FindParticipantByName(ctx context.Context, name string) (*domain.Participant, error)
	GetParticipant(ctx context.Context, id string) (*domain.Participant, error)
	// CreateParticipant fails with domain.ErrDuplicate if the name is taken.
	CreateParticipant(ctx context.Context, p domain.Participant) (*domain.Participant, error)
}

// ScoreStore persists score rows keyed by (participant, quiz).
type ScoreStore interface {
	// SaveScore inserts or replaces the row for the pair and returns it.
	SaveScore(ctx context.Context, participantID, quizID string, score int, answers domain.AnswerMap) (*domain.ScoreRecord, error)
	// GetScore fails with domain.ErrScoreNotFound when the pair has no row.
	GetScore(ctx context.Context, participantID, quizID string) (*domain.ScoreRecord, error)
	// ListQuizScores returns every row of a quiz with its participant.
	ListQuizScores(ctx context.Context, quizID string) ([]domain.ScoreRecord, error)
	ListParticipantScores(ctx context.Context, participantID string) ([]domain.ScoreRecord, error)
	// ListScores returns every row with its participant.
	ListScores(ctx context.Context) ([]domain.ScoreRecord, error)
	// ClearQuizScores deletes every row of a quiz and reports how many went.
	ClearQuizScores(ctx context.Context, quizID string) (int64, error)
}

// Store is the full remote store consumed by the services.
type Store interface {
	ParticipantStore
	ScoreStore
	QuizCounter
}

// SessionRepository abstracts how quiz sessions are stored (in-memory, Redis, etc).
type SessionRepository interface {
	Save(ctx context.Context, session *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
}
