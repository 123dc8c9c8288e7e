package domain

import (
	"sort"
	"strings"
	"time"
)

// Question models a multi-select question. Correct holds option indices.
type Question struct {
	ID      int      `json:"id" yaml:"id"`
	Text    string   `json:"text" yaml:"text"`
	Options []string `json:"options" yaml:"options"`
	Correct []int    `json:"correctAnswers" yaml:"correct"`
}

// Validate checks that every correct index points at an option.
func (q Question) Validate() error {
	if len(q.Options) == 0 {
		return &ValidationError{Field: "options", Msg: "question needs at least one option"}
	}
	for _, idx := range q.Correct {
		if idx < 0 || idx >= len(q.Options) {
			return &ValidationError{Field: "correctAnswers", Msg: "correct index out of range"}
		}
	}
	return nil
}

// IsCorrect reports whether idx belongs to the correct set.
func (q Question) IsCorrect(idx int) bool {
	for _, c := range q.Correct {
		if c == idx {
			return true
		}
	}
	return false
}

// Quiz is an ordered collection of questions.
type Quiz struct {
	ID                string     `json:"id" yaml:"id"`
	Title             string     `json:"title" yaml:"title"`
	ImageURL          string     `json:"imageUrl,omitempty" yaml:"image_url"`
	IsActive          bool       `json:"isActive" yaml:"active"`
	Questions         []Question `json:"questions" yaml:"questions"`
	ParticipantsCount int        `json:"participantsCount" yaml:"-"`
}

// Validate enforces the quiz invariants: an active quiz has questions and
// every question is well formed.
func (q Quiz) Validate() error {
	if q.IsActive && len(q.Questions) == 0 {
		return &ValidationError{Field: "questions", Msg: "an active quiz needs at least one question"}
	}
	for _, question := range q.Questions {
		if err := question.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Participant is an individual or a team identified by a unique name.
type Participant struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	IsTeam      bool      `json:"isTeam"`
	TeamMembers []string  `json:"teamMembers,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// NormalizeName is the lookup key for participant names.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// AnswerMap maps a question index to the option indices selected for it.
type AnswerMap map[int][]int

// Clone returns a deep copy.
func (m AnswerMap) Clone() AnswerMap {
	out := make(AnswerMap, len(m))
	for k, v := range m {
		out[k] = append([]int(nil), v...)
	}
	return out
}

// ScoreRecord is the single row binding one participant to one quiz.
type ScoreRecord struct {
	ID            string    `json:"id"`
	ParticipantID string    `json:"userId"`
	QuizID        string    `json:"quizId"`
	Score         int       `json:"score"`
	Answers       AnswerMap `json:"answers"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`

	// Participant is populated by listing queries that join the owner row.
	Participant *Participant `json:"user,omitempty"`
}

// LeaderboardEntry is one ranked row of a quiz leaderboard.
type LeaderboardEntry struct {
	ParticipantID string   `json:"userId"`
	Name          string   `json:"name"`
	IsTeam        bool     `json:"isTeam"`
	TeamMembers   []string `json:"teamMembers,omitempty"`
	Score         int      `json:"score"`
}

// Leaderboard captures the ordered scoreboard for a quiz.
type Leaderboard struct {
	QuizID  string             `json:"quizId"`
	Entries []LeaderboardEntry `json:"entries"`
}

// GlobalEntry aggregates one participant across every quiz.
type GlobalEntry struct {
	Name          string   `json:"name"`
	IsTeam        bool     `json:"isTeam"`
	TeamMembers   []string `json:"teamMembers,omitempty"`
	TotalScore    int      `json:"totalScore"`
	QuizzesPlayed int      `json:"quizzesPlayed"`
}

// QuizScore is one quiz line of a player's statistics.
type QuizScore struct {
	QuizID    string `json:"quizId"`
	QuizTitle string `json:"quizTitle"`
	Score     int    `json:"score"`
	Rank      int    `json:"rank"`
}

// PlayerStats summarises a participant's results.
type PlayerStats struct {
	Name          string      `json:"name"`
	IsTeam        bool        `json:"isTeam"`
	TeamMembers   []string    `json:"teamMembers,omitempty"`
	TotalScore    int         `json:"totalScore"`
	QuizzesPlayed int         `json:"quizzesPlayed"`
	QuizScores    []QuizScore `json:"quizScores"`
}

// SortIndices returns a sorted copy of idx without duplicates.
func SortIndices(idx []int) []int {
	out := make([]int, 0, len(idx))
	seen := make(map[int]struct{}, len(idx))
	for _, i := range idx {
		if _, ok := seen[i]; ok {
			continue
		}
		seen[i] = struct{}{}
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}
