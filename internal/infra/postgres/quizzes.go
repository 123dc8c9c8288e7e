package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"

	"quiz-score-service/internal/app"
	"quiz-score-service/internal/domain"
)

// LoadQuiz loads a quiz row with its JSONB question list.
func (s *Store) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	var (
		quiz domain.Quiz
		raw  []byte
	)
	err := s.pool.QueryRow(ctx, `
SELECT id, title, coalesce(image_url, ''), is_active, questions, participants_count
FROM quizzes WHERE id = $1`, quizID).
		Scan(&quiz.ID, &quiz.Title, &quiz.ImageURL, &quiz.IsActive, &raw, &quiz.ParticipantsCount)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", mapErr(err, domain.ErrQuizNotFound))
	}
	if err := json.Unmarshal(raw, &quiz.Questions); err != nil {
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
	_, err = s.pool.Exec(ctx, `
INSERT INTO quizzes (id, title, image_url, is_active, questions)
VALUES ($1, $2, NULLIF($3, ''), $4, $5)
ON CONFLICT (id) DO UPDATE
SET title = EXCLUDED.title,
    image_url = EXCLUDED.image_url,
    is_active = EXCLUDED.is_active,
    questions = EXCLUDED.questions,
    updated_at = now()`, quiz.ID, quiz.Title, quiz.ImageURL, quiz.IsActive, raw)
	return mapErr(err, domain.ErrQuizNotFound)
}

func (s *Store) IncrementParticipants(ctx context.Context, quizID string) error {
	return s.updateCounter(ctx, `participants_count + 1`, quizID)
}

func (s *Store) ResetParticipants(ctx context.Context, quizID string) error {
	return s.updateCounter(ctx, `0`, quizID)
}

func (s *Store) updateCounter(ctx context.Context, expr, quizID string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE quizzes SET participants_count = `+expr+`, updated_at = now() WHERE id = $1`, quizID)
	if err != nil {
		return mapErr(err, domain.ErrQuizNotFound)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuizNotFound
	}
	return nil
}

// Weights reads the platform_settings row. A missing row or a zero column
// falls back to the default weight.
func (s *Store) Weights(ctx context.Context) (app.Weights, error) {
	w := app.DefaultWeights()
	var correct, incorrect int
	err := s.pool.QueryRow(ctx, `SELECT correct_answer_score, incorrect_answer_score FROM platform_settings WHERE id = 1`).
		Scan(&correct, &incorrect)
	if errors.Is(err, pgx.ErrNoRows) {
		return w, nil
	}
	if err != nil {
		return w, mapErr(err, domain.ErrNotFound)
	}
	if correct != 0 {
		w.CorrectPoints = correct
	}
	if incorrect != 0 {
		w.IncorrectPoints = incorrect
	}
	return w, nil
}

// SaveWeights upserts the platform_settings row.
func (s *Store) SaveWeights(ctx context.Context, w app.Weights) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO platform_settings (id, correct_answer_score, incorrect_answer_score)
VALUES (1, $1, $2)
ON CONFLICT (id) DO UPDATE
SET correct_answer_score = EXCLUDED.correct_answer_score,
    incorrect_answer_score = EXCLUDED.incorrect_answer_score,
    updated_at = now()`, w.CorrectPoints, w.IncorrectPoints)
	return mapErr(err, domain.ErrNotFound)
}
