package app

import (
	"testing"

	"quiz-score-service/internal/domain"
)

func TestScore(t *testing.T) {
	q := domain.Question{ID: 1, Options: []string{"A", "B", "C"}, Correct: []int{0}}
	w := DefaultWeights()

	cases := []struct {
		name     string
		selected []int
		want     int
	}{
		{"correct only", []int{0}, 5},
		{"correct and wrong", []int{0, 1}, 3},
		{"two wrong", []int{1, 2}, -4},
		{"nothing", nil, 0},
		{"out of range counts as wrong", []int{7}, -2},
	}
	for _, tc := range cases {
		if got := Score(q, tc.selected, w); got != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, got)
		}
	}
}

func TestScoreOmittedCorrectOptionIsNeutral(t *testing.T) {
	q := domain.Question{ID: 1, Options: []string{"A", "B", "C"}, Correct: []int{0, 1}}
	if got := Score(q, []int{0}, DefaultWeights()); got != 5 {
		t.Fatalf("expected 5 for one of two correct options, got %d", got)
	}
}

func TestScoreUsesWeights(t *testing.T) {
	q := domain.Question{ID: 1, Options: []string{"A", "B"}, Correct: []int{1}}
	w := Weights{CorrectPoints: 10, IncorrectPoints: -1}
	if got := Score(q, []int{0, 1}, w); got != 9 {
		t.Fatalf("expected 9, got %d", got)
	}
}

func TestReplayFloorsAfterEveryQuestion(t *testing.T) {
	quiz := domain.Quiz{
		ID: "quiz-1",
		Questions: []domain.Question{
			{ID: 1, Options: []string{"A", "B", "C"}, Correct: []int{0}},
			{ID: 2, Options: []string{"A", "B", "C"}, Correct: []int{0}},
			{ID: 3, Options: []string{"A", "B", "C"}, Correct: []int{0}},
		},
	}
	answers := domain.AnswerMap{
		0: {1, 2}, // -4, floored to 0
		1: {0},    // 5
		2: {0, 1}, // 3
	}
	if got := Replay(quiz, answers, DefaultWeights()); got != 8 {
		t.Fatalf("expected 8, got %d", got)
	}
}
