package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"quiz-score-service/internal/config"
)

// NewClearScoresCmd removes every score of one quiz and resets its participant counter.
func NewClearScoresCmd(configPath *string) *cobra.Command {
	var quizID string
	cmd := &cobra.Command{
		Use:   "clear-scores",
		Short: "Delete all scores of a quiz",
		RunE: func(cmd *cobra.Command, args []string) error {
			if quizID == "" {
				return fmt.Errorf("--quiz is required")
			}
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			b, err := buildBackend(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer b.Close()

			n, err := b.service.ClearQuizScores(cmd.Context(), quizID)
			if err != nil {
				return err
			}
			logger.Info("scores cleared", "quiz_id", quizID, "deleted", n)
			return nil
		},
	}
	cmd.Flags().StringVar(&quizID, "quiz", "", "quiz id")
	return cmd
}
