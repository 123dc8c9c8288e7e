package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"quiz-score-service/internal/domain"
)

const statsConcurrency = 4

// PlayerStatsAggregator summarises one participant across every quiz.
type PlayerStatsAggregator struct {
	participants ParticipantStore
	scores       ScoreStore
	quizzes      QuizRepository
	logger       *slog.Logger
}

func NewPlayerStatsAggregator(participants ParticipantStore, scores ScoreStore, quizzes QuizRepository, logger *slog.Logger) *PlayerStatsAggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &PlayerStatsAggregator{participants: participants, scores: scores, quizzes: quizzes, logger: logger}
}

// Stats returns total score, quizzes played and the dense rank the
// participant holds in each quiz. Unknown names yield ErrParticipantNotFound.
func (a *PlayerStatsAggregator) Stats(ctx context.Context, name string) (*domain.PlayerStats, error) {
	p, err := a.participants.FindParticipantByName(ctx, name)
	if err != nil {
		return nil, err
	}
	rows, err := a.scores.ListParticipantScores(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("list participant scores: %w", err)
	}

	stats := &domain.PlayerStats{
		Name:          p.Name,
		IsTeam:        p.IsTeam,
		TeamMembers:   p.TeamMembers,
		QuizzesPlayed: len(rows),
		QuizScores:    make([]domain.QuizScore, len(rows)),
	}
	for _, r := range rows {
		stats.TotalScore += r.Score
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(statsConcurrency)
	for i, r := range rows {
		i, r := i, r
		g.Go(func() error {
			quizRows, err := a.scores.ListQuizScores(gctx, r.QuizID)
			if err != nil {
				return fmt.Errorf("rank quiz %s: %w", r.QuizID, err)
			}
			line := domain.QuizScore{
				QuizID: r.QuizID,
				Score:  r.Score,
				Rank:   DenseRank(quizRows, r.Score),
			}
			quiz, err := a.quizzes.GetQuiz(gctx, r.QuizID)
			switch {
			case err == nil:
				line.QuizTitle = quiz.Title
			case errors.Is(err, domain.ErrNotFound):
				a.logger.Debug("score row for unknown quiz", "quiz_id", r.QuizID, "participant_id", p.ID)
			default:
				return fmt.Errorf("load quiz %s: %w", r.QuizID, err)
			}
			stats.QuizScores[i] = line
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return stats, nil
}

// DenseRank is the 1-based rank of score within rows: one more than the
// number of distinct scores strictly above it. Ties share a rank.
func DenseRank(rows []domain.ScoreRecord, score int) int {
	above := make(map[int]struct{})
	for _, r := range rows {
		if r.Score > score {
			above[r.Score] = struct{}{}
		}
	}
	return len(above) + 1
}
