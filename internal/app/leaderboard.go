package app

import (
	"context"
	"fmt"
	"sort"

	"quiz-score-service/internal/domain"
)

const (
	DefaultLeaderboardLimit       = 10
	DefaultGlobalLeaderboardLimit = 100
)

// LeaderboardAggregator ranks score rows into per-quiz and global boards.
type LeaderboardAggregator struct {
	scores      ScoreStore
	limit       int
	globalLimit int
}

func NewLeaderboardAggregator(scores ScoreStore, limit, globalLimit int) *LeaderboardAggregator {
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	if globalLimit <= 0 {
		globalLimit = DefaultGlobalLeaderboardLimit
	}
	return &LeaderboardAggregator{scores: scores, limit: limit, globalLimit: globalLimit}
}

// Leaderboard returns the top scorers of a quiz, positive scores only.
func (a *LeaderboardAggregator) Leaderboard(ctx context.Context, quizID string) (domain.Leaderboard, error) {
	rows, err := a.scores.ListQuizScores(ctx, quizID)
	if err != nil {
		return domain.Leaderboard{}, fmt.Errorf("list quiz scores: %w", err)
	}
	return domain.Leaderboard{QuizID: quizID, Entries: RankQuiz(rows, a.limit)}, nil
}

// GlobalLeaderboard sums every participant's scores across quizzes.
func (a *LeaderboardAggregator) GlobalLeaderboard(ctx context.Context) ([]domain.GlobalEntry, error) {
	rows, err := a.scores.ListScores(ctx)
	if err != nil {
		return nil, fmt.Errorf("list scores: %w", err)
	}
	return RankGlobal(rows, a.globalLimit), nil
}

// RankQuiz keeps rows with a positive score, orders them by score
// descending and truncates to limit. Equal scores are ordered by the
// earliest UpdatedAt, then by name.
func RankQuiz(rows []domain.ScoreRecord, limit int) []domain.LeaderboardEntry {
	positive := make([]domain.ScoreRecord, 0, len(rows))
	for _, r := range rows {
		if r.Score > 0 {
			positive = append(positive, r)
		}
	}
	sortScores(positive)
	if limit > 0 && len(positive) > limit {
		positive = positive[:limit]
	}

	entries := make([]domain.LeaderboardEntry, 0, len(positive))
	for _, r := range positive {
		entry := domain.LeaderboardEntry{ParticipantID: r.ParticipantID, Score: r.Score}
		if r.Participant != nil {
			entry.Name = r.Participant.Name
			entry.IsTeam = r.Participant.IsTeam
			entry.TeamMembers = r.Participant.TeamMembers
		}
		entries = append(entries, entry)
	}
	return entries
}

// RankGlobal aggregates rows per participant. Participants whose total is
// zero are left out.
func RankGlobal(rows []domain.ScoreRecord, limit int) []domain.GlobalEntry {
	byID := make(map[string]*domain.GlobalEntry)
	order := make([]string, 0)
	for _, r := range rows {
		e, ok := byID[r.ParticipantID]
		if !ok {
			e = &domain.GlobalEntry{}
			if r.Participant != nil {
				e.Name = r.Participant.Name
				e.IsTeam = r.Participant.IsTeam
				e.TeamMembers = r.Participant.TeamMembers
			}
			byID[r.ParticipantID] = e
			order = append(order, r.ParticipantID)
		}
		e.TotalScore += r.Score
		e.QuizzesPlayed++
	}

	out := make([]domain.GlobalEntry, 0, len(order))
	for _, id := range order {
		if e := byID[id]; e.TotalScore > 0 {
			out = append(out, *e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].TotalScore != out[j].TotalScore {
			return out[i].TotalScore > out[j].TotalScore
		}
		return out[i].Name < out[j].Name
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func sortScores(rows []domain.ScoreRecord) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Score != rows[j].Score {
			return rows[i].Score > rows[j].Score
		}
		if !rows[i].UpdatedAt.Equal(rows[j].UpdatedAt) {
			return rows[i].UpdatedAt.Before(rows[j].UpdatedAt)
		}
		return participantName(rows[i]) < participantName(rows[j])
	})
}

func participantName(r domain.ScoreRecord) string {
	if r.Participant == nil {
		return ""
	}
	return r.Participant.Name
}
