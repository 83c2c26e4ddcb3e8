package app

import (
	"context"

	"quiz-attempt-service/internal/domain"

	"github.com/shopspring/decimal"
)

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// WalletLedger holds user balances. Debit must be serializable per user.
type WalletLedger interface {
	Debit(ctx context.Context, userID string, amount decimal.Decimal, description string) (domain.Transaction, error)
	Credit(ctx context.Context, userID string, amount decimal.Decimal, txType domain.TransactionType, description string) (domain.Transaction, error)
	Balance(ctx context.Context, userID string) (domain.Wallet, error)
}

// AttemptStore tracks one attempt per (user, quiz) pair.
type AttemptStore interface {
	FindOpen(ctx context.Context, userID, quizID string) (domain.Attempt, error)
	FindAny(ctx context.Context, userID, quizID string) (domain.Attempt, error)
	Create(ctx context.Context, userID, quizID string) (domain.Attempt, error)
	MarkComplete(ctx context.Context, attemptID string) (domain.Attempt, error)
}

// ResponseLog is the append-only answer record of an attempt.
type ResponseLog interface {
	Append(ctx context.Context, response domain.Response) (domain.Response, error)
	Get(ctx context.Context, attemptID, questionID string) (domain.Response, error)
	ListForAttempt(ctx context.Context, attemptID string) ([]domain.Response, error)
}

// Store is the process-wide storage handle. Repositories obtained from the tx argument of RunInTx
// are bound to one transaction: a non-nil error from fn discards every write made through them.
type Store interface {
	Wallets() WalletLedger
	Attempts() AttemptStore
	Responses() ResponseLog
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}

// Locker serializes work on one key across requests (and instances, for shared backends).
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}
