package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"quiz-attempt-service/internal/auth"
	"quiz-attempt-service/internal/config"
)

const seedDoc = `
quizzes:
  - id: quiz-1
    title: Arithmetic
    description: Sums
    entryFee: 5
    questions:
      - questionText: 2 + 2?
        options: ["3", "4"]
        correctOptionIndex: 1
wallets:
  - userId: u1
    amount: 20
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestTokenCommand(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "config.yaml", "auth:\n  secret: cli-secret\n")
	t.Setenv("JWT_SECRET", "")

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"token", "--config", cfgPath, "--user", "u7", "--role", "ADMIN"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("token: %v", err)
	}

	id, err := auth.NewVerifier("cli-secret").Authenticate(context.Background(), strings.TrimSpace(out.String()))
	if err != nil {
		t.Fatalf("minted token does not verify: %v", err)
	}
	if id.UserID != "u7" || !id.IsAdmin() {
		t.Fatalf("unexpected identity %+v", id)
	}
}

func TestMemoryComponentsSeedAndServe(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	seedPath := writeFile(t, dir, "seed.yaml", seedDoc)

	var cfg config.Config
	c, err := buildComponents(ctx, cfg)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer c.Close()
	if c.driver != config.DriverMemory {
		t.Fatalf("expected memory driver, got %s", c.driver)
	}

	if err := seedFromFile(ctx, c, seedPath); err != nil {
		t.Fatalf("seed: %v", err)
	}
	quiz, err := c.quizzes.GetQuiz(ctx, "quiz-1")
	if err != nil || len(quiz.Questions) != 1 {
		t.Fatalf("seeded quiz not served: %+v, %v", quiz, err)
	}
	wallet, err := c.store.Wallets().Balance(ctx, "u1")
	if err != nil || wallet.Balance.String() != "20" {
		t.Fatalf("seeded wallet: %+v, %v", wallet, err)
	}
}

func TestSQLiteComponents(t *testing.T) {
	ctx := context.Background()
	var cfg config.Config
	cfg.SQLite.Path = filepath.Join(t.TempDir(), "quiz.db")

	c, err := buildComponents(ctx, cfg)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer c.Close()
	if c.driver != config.DriverSQLite {
		t.Fatalf("expected sqlite driver, got %s", c.driver)
	}
	if err := seedFromFile(ctx, c, writeFile(t, t.TempDir(), "seed.yaml", seedDoc)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := c.quizzes.GetQuiz(ctx, "quiz-1"); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
}

func TestUnknownDriver(t *testing.T) {
	var cfg config.Config
	cfg.Store.Driver = "cassandra"
	if _, err := buildComponents(context.Background(), cfg); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}
