package seed

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"quiz-attempt-service/internal/domain"
	"quiz-attempt-service/internal/infra/memory"

	"github.com/shopspring/decimal"
)

const validSeed = `
quizzes:
  - id: go-basics
    title: Go basics
    description: Warm-up questions
    entryFee: 10
    questions:
      - questionText: Which keyword starts a goroutine?
        options: [go, async, spawn]
        correctOptionIndex: 0
      - questionText: Zero value of a map?
        options: ["nil", "empty map"]
        correctOptionIndex: 0
        timeLimit: 30
  - title: Untitled ids
    description: Derived identifiers
    questions:
      - questionText: 1 + 1?
        options: ["1", "2"]
        correctOptionIndex: 1
wallets:
  - userId: u1
    amount: 25.5
`

func TestParseAndApply(t *testing.T) {
	f, err := Parse([]byte(validSeed))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(f.Quizzes) != 2 || len(f.Wallets) != 1 {
		t.Fatalf("unexpected file %+v", f)
	}

	loader := memory.NewStaticQuizLoader(nil)
	store := memory.NewStore()
	sum, err := Apply(context.Background(), f, loader, store.Wallets())
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if sum.Quizzes != 2 || sum.Deposits != 1 {
		t.Fatalf("unexpected summary %+v", sum)
	}

	quiz, err := loader.LoadQuiz(context.Background(), "go-basics")
	if err != nil {
		t.Fatalf("load seeded quiz: %v", err)
	}
	if quiz.Status != domain.QuizApproved || !quiz.EntryFee.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("unexpected quiz header %+v", quiz)
	}
	first := quiz.Questions[0]
	if first.TimeLimit != 10 || first.CorrectOptionID != first.Options[0].ID || first.QuizID != "go-basics" {
		t.Fatalf("unexpected first question %+v", first)
	}
	if quiz.Questions[1].TimeLimit != 30 {
		t.Fatalf("expected explicit time limit to be kept")
	}

	wallet, err := store.Wallets().Balance(context.Background(), "u1")
	if err != nil || !wallet.Balance.Equal(decimal.RequireFromString("25.5")) {
		t.Fatalf("unexpected wallet %+v, %v", wallet, err)
	}
}

func TestQuizIDsAreStable(t *testing.T) {
	f, err := Parse([]byte(validSeed))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	a, b := f.Quizzes[1].Quiz(), f.Quizzes[1].Quiz()
	if a.ID == "" || a.ID != b.ID || a.Questions[0].ID != b.Questions[0].ID || a.Questions[0].CorrectOptionID != b.Questions[0].CorrectOptionID {
		t.Fatalf("expected deterministic ids, got %s / %s", a.ID, b.ID)
	}
	if a.Questions[0].CorrectOptionID != a.Questions[0].Options[1].ID {
		t.Fatalf("correct option not mapped from index")
	}
}

func TestParseRejectsInvalidFiles(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "negative fee", doc: "quizzes: [{title: t, description: d, entryFee: -1, questions: [{questionText: q, options: [a, b], correctOptionIndex: 0}]}]"},
		{name: "no questions", doc: "quizzes: [{title: t, description: d, questions: []}]"},
		{name: "one option", doc: "quizzes: [{title: t, description: d, questions: [{questionText: q, options: [a], correctOptionIndex: 0}]}]"},
		{name: "time limit too short", doc: "quizzes: [{title: t, description: d, questions: [{questionText: q, options: [a, b], correctOptionIndex: 0, timeLimit: 5}]}]"},
		{name: "index out of range", doc: "quizzes: [{title: t, description: d, questions: [{questionText: q, options: [a, b], correctOptionIndex: 2}]}]"},
		{name: "missing title", doc: "quizzes: [{description: d, questions: [{questionText: q, options: [a, b], correctOptionIndex: 0}]}]"},
		{name: "zero deposit", doc: "wallets: [{userId: u1, amount: 0}]"},
		{name: "unknown key", doc: "players: []"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.doc)); !errors.Is(err, domain.ErrInvalidInput) {
				t.Fatalf("expected invalid input, got %v", err)
			}
		})
	}
}

func TestLoadReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	if err := os.WriteFile(path, []byte(validSeed), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
