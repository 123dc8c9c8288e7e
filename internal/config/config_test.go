package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
server:
  port: "9090"
storage:
  driver: sqlite
  sqlite_path: /tmp/quiz.db
scoring:
  correct_points: 10
  incorrect_points: 0
retry:
  max_attempts: 5
  delay: 250ms
leaderboard:
  limit: 20
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Storage.Driver != "sqlite" || cfg.Storage.SQLitePath != "/tmp/quiz.db" {
		t.Fatalf("unexpected server/storage config: %+v", cfg)
	}
	if cfg.Scoring.CorrectPoints == nil || *cfg.Scoring.CorrectPoints != 10 {
		t.Fatalf("expected correct points 10, got %v", cfg.Scoring.CorrectPoints)
	}
	if cfg.Scoring.IncorrectPoints == nil || *cfg.Scoring.IncorrectPoints != 0 {
		t.Fatalf("expected explicit zero incorrect points, got %v", cfg.Scoring.IncorrectPoints)
	}
	if cfg.Retry.MaxAttempts != 5 || TTLDuration(cfg.Retry.Delay, time.Second) != 250*time.Millisecond {
		t.Fatalf("unexpected retry config: %+v", cfg.Retry)
	}
	if cfg.Leaderboard.Limit != 20 {
		t.Fatalf("expected leaderboard limit 20, got %d", cfg.Leaderboard.Limit)
	}
}

func TestLoadMissingFileUsesEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://quiz@localhost/quiz")
	t.Setenv("STORAGE_DRIVER", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Postgres.URL != "postgres://quiz@localhost/quiz" {
		t.Fatalf("expected DATABASE_URL override, got %q", cfg.Postgres.URL)
	}
	if cfg.Storage.Driver != "postgres" {
		t.Fatalf("expected postgres driver inferred from url, got %q", cfg.Storage.Driver)
	}
}

func TestTTLDurationFallback(t *testing.T) {
	if got := TTLDuration("", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback for empty, got %v", got)
	}
	if got := TTLDuration("bogus", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback for invalid, got %v", got)
	}
	if got := TTLDuration("90s", time.Minute); got != 90*time.Second {
		t.Fatalf("expected 90s, got %v", got)
	}
}
