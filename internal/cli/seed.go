package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"quiz-score-service/internal/config"
	"quiz-score-service/internal/domain"
)

type seedFile struct {
	Quizzes []domain.Quiz `yaml:"quizzes"`
}

// NewSeedCmd loads quiz definitions from a YAML file into the configured store.
func NewSeedCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load quiz definitions from a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Storage.Driver == "memory" {
				return fmt.Errorf("seed needs a persistent storage driver, got %q", cfg.Storage.Driver)
			}
			logger := newLogger(cfg)

			quizzes, err := readSeedFile(file)
			if err != nil {
				return err
			}

			b, err := buildBackend(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer b.Close()

			for _, quiz := range quizzes {
				if err := b.store.SaveQuiz(cmd.Context(), quiz); err != nil {
					return fmt.Errorf("save quiz %s: %w", quiz.ID, err)
				}
				if err := b.quizzes.Invalidate(cmd.Context(), quiz.ID); err != nil {
					logger.Warn("quiz cache not invalidated", "quiz_id", quiz.ID, "err", err)
				}
				logger.Info("quiz seeded", "quiz_id", quiz.ID, "questions", len(quiz.Questions))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "config/quizzes.yaml", "YAML file with quiz definitions")
	return cmd
}

func readSeedFile(path string) ([]domain.Quiz, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	for _, quiz := range seed.Quizzes {
		if err := quiz.Validate(); err != nil {
			return nil, fmt.Errorf("quiz %s: %w", quiz.ID, err)
		}
	}
	return seed.Quizzes, nil
}
