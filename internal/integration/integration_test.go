package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"quiz-score-service/internal/app"
	"quiz-score-service/internal/domain"
	"quiz-score-service/internal/infra/postgres"
	pgmigrations "quiz-score-service/internal/infra/postgres/migrations"
	infraredis "quiz-score-service/internal/infra/redis"
	"quiz-score-service/internal/retry"
)

func TestQuizLifecycleEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	migrateDB(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	pg := postgres.NewStore(pool)
	if err := pg.SaveQuiz(ctx, sampleQuiz()); err != nil {
		t.Fatalf("save quiz: %v", err)
	}
	if err := pg.SaveWeights(ctx, app.Weights{CorrectPoints: 10, IncorrectPoints: -3}); err != nil {
		t.Fatalf("save weights: %v", err)
	}

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	quizRepo := infraredis.NewQuizRepository(redisClient, pg, 5*time.Minute)
	sessionStore := infraredis.NewSessionStore(redisClient, 5*time.Minute)
	store := app.NewRetryingStore(pg, retry.Policy{MaxAttempts: 3, Delay: 10 * time.Millisecond}, nil)
	service := app.NewQuizService(sessionStore, quizRepo, store, app.Options{Weights: pg})

	play := func(name string, selections ...[]int) app.AdvanceOutcome {
		t.Helper()
		view, err := service.Start(ctx, "quiz-1", app.Registration{Name: name})
		if err != nil {
			t.Fatalf("start %s: %v", name, err)
		}
		var out app.AdvanceOutcome
		for _, sel := range selections {
			if _, err := service.Answer(ctx, view.ID, sel); err != nil {
				t.Fatalf("answer: %v", err)
			}
			if out, err = service.Advance(ctx, view.ID); err != nil {
				t.Fatalf("advance: %v", err)
			}
		}
		return out
	}

	alice := play("Alice", []int{1}, []int{0, 1})
	if !alice.Result.Completed || alice.Result.Score != 17 || alice.Result.PersistErr != nil {
		t.Fatalf("unexpected alice outcome %+v", alice.Result)
	}
	play("Bob", []int{0, 2}, []int{0})

	if _, err := service.Start(ctx, "quiz-1", app.Registration{Name: "ALICE"}); !errors.Is(err, domain.ErrAlreadyCompleted) {
		t.Fatalf("expected guard refusal, got %v", err)
	}

	board, err := service.Leaderboard(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(board.Entries) != 2 || board.Entries[0].Name != "Alice" || board.Entries[1].Score != 10 {
		t.Fatalf("unexpected leaderboard %+v", board.Entries)
	}

	stats, err := service.PlayerStats(ctx, "bob")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalScore != 10 || stats.QuizzesPlayed != 1 || stats.QuizScores[0].Rank != 2 || stats.QuizScores[0].QuizTitle != "Integration" {
		t.Fatalf("unexpected stats %+v", stats)
	}

	// a second upsert with identical values leaves the row untouched
	p, _ := pg.FindParticipantByName(ctx, "alice")
	before, _ := pg.GetScore(ctx, p.ID, "quiz-1")
	after, err := service.SaveScore(ctx, p.ID, "quiz-1", before.Score, before.Answers)
	if err != nil {
		t.Fatalf("save score again: %v", err)
	}
	if after.ID != before.ID || !after.UpdatedAt.Equal(before.UpdatedAt) {
		t.Fatalf("expected idempotent upsert, got %+v vs %+v", after, before)
	}

	quiz, _ := pg.LoadQuiz(ctx, "quiz-1")
	if quiz.ParticipantsCount != 2 {
		t.Fatalf("expected 2 participants, got %d", quiz.ParticipantsCount)
	}
	n, err := service.ClearQuizScores(ctx, "quiz-1")
	if err != nil || n != 2 {
		t.Fatalf("clear: n=%d err=%v", n, err)
	}
	quiz, _ = pg.LoadQuiz(ctx, "quiz-1")
	if quiz.ParticipantsCount != 0 {
		t.Fatalf("expected counter reset, got %d", quiz.ParticipantsCount)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func migrateDB(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:       "quiz-1",
		Title:    "Integration",
		IsActive: true,
		Questions: []domain.Question{
			{ID: 1, Text: "What is 2 + 2?", Options: []string{"3", "4", "5"}, Correct: []int{1}},
			{ID: 2, Text: "Pick the primes", Options: []string{"2", "4", "5"}, Correct: []int{0, 2}},
		},
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(opts), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
