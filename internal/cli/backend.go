package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"

	"quiz-score-service/internal/app"
	"quiz-score-service/internal/config"
	"quiz-score-service/internal/domain"
	"quiz-score-service/internal/infra/memory"
	"quiz-score-service/internal/infra/postgres"
	redisinfra "quiz-score-service/internal/infra/redis"
	"quiz-score-service/internal/infra/sqlite"
	"quiz-score-service/internal/retry"
)

// quizStore is what every storage driver offers beyond app.Store.
type quizStore interface {
	app.Store
	LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	SaveQuiz(ctx context.Context, quiz domain.Quiz) error
}

// quizCache is the read-through cache in front of quizStore.
type quizCache interface {
	app.QuizRepository
	Invalidate(ctx context.Context, quizID string) error
}

type backend struct {
	service *app.QuizService
	store   quizStore
	quizzes quizCache
	driver  string
	closers []func()
}

func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func buildBackend(ctx context.Context, cfg config.Config, logger *slog.Logger) (*backend, error) {
	b := &backend{driver: cfg.Storage.Driver}
	var weights app.WeightsSource = configWeights(cfg)

	switch cfg.Storage.Driver {
	case "postgres":
		if err := runMigrationsWithConfig(ctx, cfg, logger); err != nil {
			return nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		b.closers = append(b.closers, pool.Close)
		pg := postgres.NewStore(pool)
		b.store = pg
		weights = pg
	case "sqlite":
		st, err := sqlite.NewStore(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		b.closers = append(b.closers, func() { _ = st.Close() })
		b.store = st
	case "memory":
		b.store = memory.NewStore(sampleQuizzes())
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		b.closers = append(b.closers, func() { _ = redisClient.Close() })
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	if redisClient != nil {
		b.quizzes = redisinfra.NewQuizRepository(redisClient, b.store, quizTTL)
	} else {
		b.quizzes = memory.NewQuizRepository(b.store, quizTTL)
	}

	sessionTTL := config.TTLDuration(cfg.Session.TTL, config.TTLDuration(cfg.Redis.TTL, 2*time.Hour))
	var sessions app.SessionRepository
	if redisClient != nil {
		sessions = redisinfra.NewSessionStore(redisClient, sessionTTL)
	} else {
		sessions = memory.NewSessionStore(sessionTTL)
	}

	policy := retry.Policy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		Delay:       config.TTLDuration(cfg.Retry.Delay, retry.DefaultDelay),
	}
	store := app.NewRetryingStore(b.store, policy, logger)

	b.service = app.NewQuizService(sessions, b.quizzes, store, app.Options{
		Weights:          weights,
		Logger:           logger,
		LeaderboardLimit: cfg.Leaderboard.Limit,
		GlobalLimit:      cfg.Leaderboard.GlobalLimit,
	})
	logger.Info("backend ready", "storage", cfg.Storage.Driver, "redis", redisClient != nil,
		"retry_attempts", policy.MaxAttempts, "retry_delay", policy.Delay)
	return b, nil
}

func configWeights(cfg config.Config) app.StaticWeights {
	w := app.DefaultWeights()
	if cfg.Scoring.CorrectPoints != nil {
		w.CorrectPoints = *cfg.Scoring.CorrectPoints
	}
	if cfg.Scoring.IncorrectPoints != nil {
		w.IncorrectPoints = *cfg.Scoring.IncorrectPoints
	}
	return app.StaticWeights(w)
}

// sampleQuizzes provides a minimal quiz for the in-memory driver; use `seed`
// to load real definitions into a persistent store.
func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"quiz-1": {
			ID:       "quiz-1",
			Title:    "Warm-up",
			IsActive: true,
			Questions: []domain.Question{
				{
					ID:      1,
					Text:    "Which of these are prime numbers?",
					Options: []string{"2", "4", "5", "9"},
					Correct: []int{0, 2},
				},
				{
					ID:      2,
					Text:    "What is 2 + 2?",
					Options: []string{"3", "4", "5"},
					Correct: []int{1},
				},
			},
		},
	}
}
