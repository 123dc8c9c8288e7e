package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"quiz-score-service/internal/domain"
)

func (s *Store) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	var (
		quiz domain.Quiz
		raw  string
	)
	err := s.db.QueryRowContext(ctx, `
SELECT id, title, image_url, is_active, questions_json, participants_count
FROM quizzes WHERE id = ?`, quizID).
		Scan(&quiz.ID, &quiz.Title, &quiz.ImageURL, &quiz.IsActive, &raw, &quiz.ParticipantsCount)
	if err != nil {
		return domain.Quiz{}, mapErr(err, domain.ErrQuizNotFound)
	}
	if err := json.Unmarshal([]byte(raw), &quiz.Questions); err != nil {
		return domain.Quiz{}, fmt.Errorf("unmarshal quiz: %w", err)
	}
	return quiz, nil
}

// SaveQuiz inserts or replaces a quiz definition, keeping its participant counter.
func (s *Store) SaveQuiz(ctx context.Context, quiz domain.Quiz) error {
	if err := quiz.Validate(); err != nil {
		return err
	}
	questions := quiz.Questions
	if questions == nil {
		questions = []domain.Question{}
	}
	raw, err := json.Marshal(questions)
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}
	now := toUnix(s.now())
	_, err = s.db.ExecContext(ctx, `
INSERT INTO quizzes (id, title, image_url, is_active, questions_json, created_at_unix, updated_at_unix)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE
SET title = excluded.title,
    image_url = excluded.image_url,
    is_active = excluded.is_active,
    questions_json = excluded.questions_json,
    updated_at_unix = excluded.updated_at_unix`,
		quiz.ID, quiz.Title, quiz.ImageURL, quiz.IsActive, string(raw), now, now)
	return mapErr(err, domain.ErrQuizNotFound)
}

func (s *Store) IncrementParticipants(ctx context.Context, quizID string) error {
	return s.updateCounter(ctx, `participants_count + 1`, quizID)
}

func (s *Store) ResetParticipants(ctx context.Context, quizID string) error {
	return s.updateCounter(ctx, `0`, quizID)
}

func (s *Store) updateCounter(ctx context.Context, expr, quizID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE quizzes SET participants_count = `+expr+`, updated_at_unix = ? WHERE id = ?`,
		toUnix(s.now()), quizID)
	if err != nil {
		return mapErr(err, domain.ErrQuizNotFound)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrQuizNotFound
	}
	return nil
}
