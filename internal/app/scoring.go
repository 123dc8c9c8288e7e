package app

import (
	"context"

	"quiz-score-service/internal/domain"
)

const (
	DefaultCorrectPoints   = 5
	DefaultIncorrectPoints = -2
)

// Weights are the platform-wide points for each selected option.
type Weights struct {
	CorrectPoints   int `json:"correctPoints"`
	IncorrectPoints int `json:"incorrectPoints"`
}

// DefaultWeights returns +5 per correct selection and -2 per wrong one.
func DefaultWeights() Weights {
	return Weights{CorrectPoints: DefaultCorrectPoints, IncorrectPoints: DefaultIncorrectPoints}
}

// WeightsSource supplies the scoring weights currently configured for the platform.
type WeightsSource interface {
	Weights(ctx context.Context) (Weights, error)
}

// StaticWeights serves fixed weights, typically from config.
type StaticWeights Weights

func (w StaticWeights) Weights(context.Context) (Weights, error) {
	return Weights(w), nil
}

// Score computes the point delta for one question. Every selected index
// scores CorrectPoints if it is in the correct set and IncorrectPoints
// otherwise; unselected correct options score nothing. Indices are not
// range-checked.
func Score(question domain.Question, selected []int, weights Weights) int {
	delta := 0
	for _, idx := range selected {
		if question.IsCorrect(idx) {
			delta += weights.CorrectPoints
		} else {
			delta += weights.IncorrectPoints
		}
	}
	return delta
}

// Replay re-derives the cumulative score of an answer map, applying the
// zero floor after every question in order.
func Replay(quiz domain.Quiz, answers domain.AnswerMap, weights Weights) int {
	total := 0
	for i, question := range quiz.Questions {
		selected, ok := answers[i]
		if !ok {
			continue
		}
		total = floorZero(total + Score(question, selected, weights))
	}
	return total
}

func floorZero(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
