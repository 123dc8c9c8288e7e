package cli

import (
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"

	"quiz-score-service/internal/app"
	"quiz-score-service/internal/config"
	"quiz-score-service/internal/infra/postgres"
)

// NewWeightsCmd prints or updates the platform scoring weights stored in Postgres.
func NewWeightsCmd(configPath *string) *cobra.Command {
	var correct, incorrect int
	cmd := &cobra.Command{
		Use:   "weights",
		Short: "Show or set the platform scoring weights",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("weights are stored in postgres; no url configured")
			}
			logger := newLogger(cfg)
			ctx := cmd.Context()

			pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer pool.Close()
			store := postgres.NewStore(pool)

			if cmd.Flags().Changed("correct") || cmd.Flags().Changed("incorrect") {
				current, err := store.Weights(ctx)
				if err != nil {
					return err
				}
				if cmd.Flags().Changed("correct") {
					current.CorrectPoints = correct
				}
				if cmd.Flags().Changed("incorrect") {
					current.IncorrectPoints = incorrect
				}
				if err := store.SaveWeights(ctx, current); err != nil {
					return err
				}
			}

			w, err := store.Weights(ctx)
			if err != nil {
				return err
			}
			logger.Info("scoring weights", "correct_points", w.CorrectPoints, "incorrect_points", w.IncorrectPoints)
			return nil
		},
	}
	cmd.Flags().IntVar(&correct, "correct", app.DefaultCorrectPoints, "points per correct selection")
	cmd.Flags().IntVar(&incorrect, "incorrect", app.DefaultIncorrectPoints, "points per wrong selection")
	return cmd
}
