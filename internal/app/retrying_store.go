package app

import (
	"context"
	"log/slog"
	"time"

	"quiz-score-service/internal/domain"
	"quiz-score-service/internal/retry"
)

// RetryingStore applies the retry policy to every remote call of a Store.
type RetryingStore struct {
	next   Store
	policy retry.Policy
	logger *slog.Logger
}

var _ Store = (*RetryingStore)(nil)

func NewRetryingStore(next Store, policy retry.Policy, logger *slog.Logger) *RetryingStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &RetryingStore{next: next, policy: policy, logger: logger}
}

func (s *RetryingStore) onRetry(op string) retry.Option {
	return retry.OnRetry(func(attempt int, err error, next time.Duration) {
		s.logger.Warn("store call failed, retrying", "op", op, "attempt", attempt, "next_in", next, "error", err)
	})
}

func (s *RetryingStore) FindParticipantByName(ctx context.Context, name string) (*domain.Participant, error) {
	return retry.Do(ctx, s.policy, func(ctx context.Context) (*domain.Participant, error) {
		return s.next.FindParticipantByName(ctx, name)
	}, s.onRetry("find_participant"))
}

func (s *RetryingStore) GetParticipant(ctx context.Context, id string) (*domain.Participant, error) {
	return retry.Do(ctx, s.policy, func(ctx context.Context) (*domain.Participant, error) {
		return s.next.GetParticipant(ctx, id)
	}, s.onRetry("get_participant"))
}

func (s *RetryingStore) CreateParticipant(ctx context.Context, p domain.Participant) (*domain.Participant, error) {
	return retry.Do(ctx, s.policy, func(ctx context.Context) (*domain.Participant, error) {
		return s.next.CreateParticipant(ctx, p)
	}, s.onRetry("create_participant"))
}

func (s *RetryingStore) SaveScore(ctx context.Context, participantID, quizID string, score int, answers domain.AnswerMap) (*domain.ScoreRecord, error) {
	return retry.Do(ctx, s.policy, func(ctx context.Context) (*domain.ScoreRecord, error) {
		return s.next.SaveScore(ctx, participantID, quizID, score, answers)
	}, s.onRetry("save_score"))
}

func (s *RetryingStore) GetScore(ctx context.Context, participantID, quizID string) (*domain.ScoreRecord, error) {
	return retry.Do(ctx, s.policy, func(ctx context.Context) (*domain.ScoreRecord, error) {
		return s.next.GetScore(ctx, participantID, quizID)
	}, s.onRetry("get_score"))
}

func (s *RetryingStore) ListQuizScores(ctx context.Context, quizID string) ([]domain.ScoreRecord, error) {
	return retry.Do(ctx, s.policy, func(ctx context.Context) ([]domain.ScoreRecord, error) {
		return s.next.ListQuizScores(ctx, quizID)
	}, s.onRetry("list_quiz_scores"))
}

func (s *RetryingStore) ListParticipantScores(ctx context.Context, participantID string) ([]domain.ScoreRecord, error) {
	return retry.Do(ctx, s.policy, func(ctx context.Context) ([]domain.ScoreRecord, error) {
		return s.next.ListParticipantScores(ctx, participantID)
	}, s.onRetry("list_participant_scores"))
}

func (s *RetryingStore) ListScores(ctx context.Context) ([]domain.ScoreRecord, error) {
	return retry.Do(ctx, s.policy, func(ctx context.Context) ([]domain.ScoreRecord, error) {
		return s.next.ListScores(ctx)
	}, s.onRetry("list_scores"))
}

// ClearQuizScores is a delete: zero affected rows is a valid outcome.
func (s *RetryingStore) ClearQuizScores(ctx context.Context, quizID string) (int64, error) {
	return retry.Do(ctx, s.policy, func(ctx context.Context) (int64, error) {
		return s.next.ClearQuizScores(ctx, quizID)
	}, retry.AbsentOK(), s.onRetry("clear_quiz_scores"))
}

func (s *RetryingStore) IncrementParticipants(ctx context.Context, quizID string) error {
	return retry.Exec(ctx, s.policy, func(ctx context.Context) error {
		return s.next.IncrementParticipants(ctx, quizID)
	}, s.onRetry("increment_participants"))
}

func (s *RetryingStore) ResetParticipants(ctx context.Context, quizID string) error {
	return retry.Exec(ctx, s.policy, func(ctx context.Context) error {
		return s.next.ResetParticipants(ctx, quizID)
	}, s.onRetry("reset_participants"))
}
