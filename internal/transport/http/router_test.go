package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/auth"
	"quiz-attempt-service/internal/domain"
	"quiz-attempt-service/internal/infra/memory"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const testSecret = "test-secret"

type testEnv struct {
	router   *gin.Engine
	store    *memory.Store
	verifier *auth.Verifier
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	quizzes := memory.NewQuizRepository(memory.NewStaticQuizLoader(sampleQuiz()), time.Minute)
	verifier := auth.NewVerifier(testSecret)
	router := NewRouter(RouterConfig{
		Attempts: app.NewAttemptService(store, quizzes, memory.NewLocker()),
		Wallets:  app.NewWalletService(store),
		Auth:     verifier,
	})
	return testEnv{router: router, store: store, verifier: verifier}
}

func (e testEnv) token(t *testing.T, userID, role string) string {
	t.Helper()
	tok, err := e.verifier.Issue(domain.Identity{UserID: userID, Role: role}, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return tok
}

func (e testEnv) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var out map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

func (e testEnv) fund(t *testing.T, userID string, amount int64) {
	t.Helper()
	if _, err := e.store.Wallets().Credit(context.Background(), userID, decimal.NewFromInt(amount), domain.TransactionDeposit, "seed"); err != nil {
		t.Fatalf("fund: %v", err)
	}
}

func TestAttemptRoutesHappyPath(t *testing.T) {
	env := newTestEnv(t)
	env.fund(t, "u1", 10)
	tok := env.token(t, "u1", "USER")

	rec, body := env.do(t, http.MethodPost, "/api/v1/quizzes/quiz-1/start", tok, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("start: %d %s", rec.Code, rec.Body.String())
	}
	question := body["question"].(map[string]any)
	if question["id"] != "q1" {
		t.Fatalf("expected q1, got %v", question)
	}
	if _, leaked := question["correctOptionId"]; leaked {
		t.Fatalf("question must not expose the answer: %v", question)
	}

	rec, body = env.do(t, http.MethodGet, "/api/v1/quizzes/quiz-1/next?lastQuestionId=q1", tok, nil)
	if rec.Code != http.StatusOK || body["nextQuestion"].(map[string]any)["id"] != "q2" {
		t.Fatalf("next: %d %s", rec.Code, rec.Body.String())
	}

	rec, body = env.do(t, http.MethodPost, "/api/v1/quizzes/quiz-1/answer", tok, map[string]any{
		"questionId": "q1", "selectedOptionId": "o2", "timeTaken": 4,
	})
	if rec.Code != http.StatusOK || body["isCorrect"] != true || body["completed"] != false {
		t.Fatalf("answer q1: %d %s", rec.Code, rec.Body.String())
	}

	rec, body = env.do(t, http.MethodPost, "/api/v1/quizzes/quiz-1/answer", tok, map[string]any{
		"questionId": "q2", "selectedOptionId": "o4", "timeTaken": 0,
	})
	if rec.Code != http.StatusOK || body["isCorrect"] != false || body["completed"] != true || body["nextQuestion"] != nil {
		t.Fatalf("answer q2: %d %s", rec.Code, rec.Body.String())
	}

	rec, body = env.do(t, http.MethodGet, "/api/v1/quizzes/quiz-1/result", tok, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("result: %d %s", rec.Code, rec.Body.String())
	}
	items := body["result"].([]any)
	if len(items) != 2 || body["correct"].(float64) != 1 || body["total"].(float64) != 2 {
		t.Fatalf("unexpected result %s", rec.Body.String())
	}
	first := items[0].(map[string]any)
	if first["correctOption"] != "4" || first["selectedOption"] != "4" || first["questionText"] != "What is 2 + 2?" {
		t.Fatalf("unexpected result item %v", first)
	}

	rec, body = env.do(t, http.MethodPost, "/api/v1/quizzes/quiz-1/complete", tok, nil)
	if rec.Code != http.StatusOK || body["attempt"].(map[string]any)["completed"] != true {
		t.Fatalf("complete: %d %s", rec.Code, rec.Body.String())
	}

	rec, body = env.do(t, http.MethodGet, "/api/v1/wallet", tok, nil)
	if rec.Code != http.StatusOK || body["balance"] != "0" {
		t.Fatalf("wallet: %d %s", rec.Code, rec.Body.String())
	}
}

func TestAttemptRoutesErrors(t *testing.T) {
	env := newTestEnv(t)
	env.fund(t, "rich", 100)
	env.fund(t, "poor", 5)
	rich := env.token(t, "rich", "USER")
	poor := env.token(t, "poor", "USER")
	broke := env.token(t, "broke", "USER")

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		want   int
	}{
		{name: "no token", method: http.MethodPost, path: "/api/v1/quizzes/quiz-1/start", want: http.StatusUnauthorized},
		{name: "bad token", method: http.MethodPost, path: "/api/v1/quizzes/quiz-1/start", token: "nope", want: http.StatusUnauthorized},
		{name: "unknown quiz", method: http.MethodPost, path: "/api/v1/quizzes/missing/start", token: rich, want: http.StatusNotFound},
		{name: "insufficient balance", method: http.MethodPost, path: "/api/v1/quizzes/quiz-1/start", token: poor, want: http.StatusBadRequest},
		{name: "no wallet", method: http.MethodPost, path: "/api/v1/quizzes/quiz-1/start", token: broke, want: http.StatusBadRequest},
		{name: "answer without attempt", method: http.MethodPost, path: "/api/v1/quizzes/quiz-1/answer", token: rich,
			body: map[string]any{"questionId": "q1", "timeTaken": 1}, want: http.StatusBadRequest},
		{name: "answer missing time", method: http.MethodPost, path: "/api/v1/quizzes/quiz-1/answer", token: rich,
			body: map[string]any{"questionId": "q1"}, want: http.StatusBadRequest},
		{name: "answer negative time", method: http.MethodPost, path: "/api/v1/quizzes/quiz-1/answer", token: rich,
			body: map[string]any{"questionId": "q1", "timeTaken": -3}, want: http.StatusBadRequest},
		{name: "answer time out of range", method: http.MethodPost, path: "/api/v1/quizzes/quiz-1/answer", token: rich,
			body: map[string]any{"questionId": "q1", "timeTaken": 3000000000}, want: http.StatusBadRequest},
		{name: "next without attempt", method: http.MethodGet, path: "/api/v1/quizzes/quiz-1/next", token: rich, want: http.StatusBadRequest},
		{name: "complete without attempt", method: http.MethodPost, path: "/api/v1/quizzes/quiz-1/complete", token: rich, want: http.StatusNotFound},
		{name: "result without attempt", method: http.MethodGet, path: "/api/v1/quizzes/quiz-1/result", token: rich, want: http.StatusNotFound},
		{name: "wallet missing", method: http.MethodGet, path: "/api/v1/wallet", token: broke, want: http.StatusNotFound},
		{name: "credit as user", method: http.MethodPost, path: "/api/v1/admin/wallets/poor/credit", token: poor,
			body: map[string]any{"amount": 5}, want: http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := env.do(t, tt.method, tt.path, tt.token, tt.body)
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}

	if wallet, _ := env.store.Wallets().Balance(context.Background(), "poor"); !wallet.Balance.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("rejected start must not touch the balance, got %s", wallet.Balance)
	}
}

func TestStatusForDuplicateResponse(t *testing.T) {
	err := errors.Wrap(domain.ErrDuplicateResponse, "append response")
	if got := statusFor(err, http.StatusBadRequest); got != http.StatusConflict {
		t.Fatalf("expected 409, got %d", got)
	}
	if got := publicMessage(err, http.StatusConflict); got != domain.ErrDuplicateResponse.Error() {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestQuestionRoutesAfterStart(t *testing.T) {
	env := newTestEnv(t)
	env.fund(t, "u1", 20)
	tok := env.token(t, "u1", "USER")
	env.do(t, http.MethodPost, "/api/v1/quizzes/quiz-1/start", tok, nil)

	rec, _ := env.do(t, http.MethodPost, "/api/v1/quizzes/quiz-1/answer", tok, map[string]any{"questionId": "zz", "timeTaken": 1})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown question, got %d", rec.Code)
	}
	rec, _ = env.do(t, http.MethodGet, "/api/v1/quizzes/quiz-1/next?lastQuestionId=zz", tok, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown last question, got %d", rec.Code)
	}

	rec, body := env.do(t, http.MethodPost, "/api/v1/quizzes/quiz-1/start", tok, nil)
	if rec.Code != http.StatusOK || body["resumed"] != true {
		t.Fatalf("expected resume, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestAdminCredit(t *testing.T) {
	env := newTestEnv(t)
	admin := env.token(t, "root", "ADMIN")

	rec, body := env.do(t, http.MethodPost, "/api/v1/admin/wallets/u9/credit", admin, map[string]any{"amount": "12.50"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("credit: %d %s", rec.Code, rec.Body.String())
	}
	if body["transaction"].(map[string]any)["type"] != string(domain.TransactionDeposit) {
		t.Fatalf("unexpected transaction %v", body)
	}

	rec, _ = env.do(t, http.MethodPost, "/api/v1/admin/wallets/u9/credit", admin, map[string]any{"amount": -1})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for negative credit, got %d", rec.Code)
	}

	wallet, err := env.store.Wallets().Balance(context.Background(), "u9")
	if err != nil || !wallet.Balance.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("unexpected wallet %+v, %v", wallet, err)
	}
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	rec, _ := env.do(t, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz: %d %q", rec.Code, rec.Body.String())
	}
}

func sampleQuiz() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"quiz-1": {
			ID:       "quiz-1",
			Title:    "Arithmetic",
			EntryFee: decimal.NewFromInt(10),
			Status:   domain.QuizApproved,
			Questions: []domain.Question{
				{
					ID:              "q1",
					Text:            "What is 2 + 2?",
					Options:         []domain.Option{{ID: "o1", Text: "3"}, {ID: "o2", Text: "4"}, {ID: "o3", Text: "5"}},
					CorrectOptionID: "o2",
					TimeLimit:       10,
				},
				{
					ID:              "q2",
					Text:            "What is 3 * 3?",
					Options:         []domain.Option{{ID: "o4", Text: "6"}, {ID: "o5", Text: "9"}},
					CorrectOptionID: "o5",
					TimeLimit:       10,
				},
			},
		},
	}
}
