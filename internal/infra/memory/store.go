package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Store is an in-memory implementation of app.Store. Every operation, and every RunInTx callback,
// runs under one mutex; a failed transaction replays its undo log.
type Store struct {
	mu    sync.Mutex
	now   func() time.Time
	newID func() string

	wallets      map[string]*domain.Wallet
	transactions []domain.Transaction
	attempts     map[string]*domain.Attempt
	attemptByKey map[pairKey]string
	responses    map[string][]domain.Response
}

type pairKey struct {
	userID string
	quizID string
}

func NewStore() *Store {
	return NewStoreWithClock(time.Now)
}

// NewStoreWithClock allows deterministic timestamps in tests.
func NewStoreWithClock(now func() time.Time) *Store {
	return &Store{
		now:          now,
		newID:        uuid.NewString,
		wallets:      make(map[string]*domain.Wallet),
		attempts:     make(map[string]*domain.Attempt),
		attemptByKey: make(map[pairKey]string),
		responses:    make(map[string][]domain.Response),
	}
}

func (s *Store) Wallets() app.WalletLedger  { return &wallets{view{store: s}} }
func (s *Store) Attempts() app.AttemptStore { return &attempts{view{store: s}} }
func (s *Store) Responses() app.ResponseLog { return &responses{view{store: s}} }

func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx app.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &txStore{store: s, log: &undoLog{}}
	if err := fn(ctx, tx); err != nil {
		tx.log.rollback()
		return err
	}
	return nil
}

// Transactions returns a copy of the ledger audit trail for a user.
func (s *Store) Transactions(userID string) []domain.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Transaction
	for _, t := range s.transactions {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out
}

// AttemptCount returns how many attempts exist for a (user, quiz) pair.
func (s *Store) AttemptCount(userID, quizID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, a := range s.attempts {
		if a.UserID == userID && a.QuizID == quizID {
			n++
		}
	}
	return n
}

type txStore struct {
	store *Store
	log   *undoLog
}

func (t *txStore) Wallets() app.WalletLedger  { return &wallets{view{store: t.store, log: t.log}} }
func (t *txStore) Attempts() app.AttemptStore { return &attempts{view{store: t.store, log: t.log}} }
func (t *txStore) Responses() app.ResponseLog { return &responses{view{store: t.store, log: t.log}} }

func (t *txStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx app.Store) error) error {
	return fn(ctx, t)
}

type undoLog struct {
	steps []func()
}

func (l *undoLog) push(step func()) {
	l.steps = append(l.steps, step)
}

func (l *undoLog) rollback() {
	for i := len(l.steps) - 1; i >= 0; i-- {
		l.steps[i]()
	}
	l.steps = nil
}

// view runs an operation either inside a transaction (lock already held) or standalone.
type view struct {
	store *Store
	log   *undoLog
}

func (v view) do(fn func(s *Store, log *undoLog) error) error {
	if v.log != nil {
		return fn(v.store, v.log)
	}
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	return fn(v.store, &undoLog{})
}

type wallets struct{ view }

func (w *wallets) Debit(_ context.Context, userID string, amount decimal.Decimal, description string) (domain.Transaction, error) {
	var out domain.Transaction
	err := w.do(func(s *Store, log *undoLog) error {
		wallet, ok := s.wallets[userID]
		if !ok {
			return domain.ErrUserNotFound
		}
		if wallet.Balance.LessThan(amount) {
			return domain.ErrInsufficientFunds
		}
		before := wallet.Balance
		wallet.Balance = wallet.Balance.Sub(amount)
		log.push(func() { wallet.Balance = before })

		out = s.appendTransaction(log, userID, domain.TransactionQuizAttempt, amount, description)
		return nil
	})
	return out, err
}

func (w *wallets) Credit(_ context.Context, userID string, amount decimal.Decimal, txType domain.TransactionType, description string) (domain.Transaction, error) {
	var out domain.Transaction
	err := w.do(func(s *Store, log *undoLog) error {
		wallet, ok := s.wallets[userID]
		if !ok {
			wallet = &domain.Wallet{UserID: userID}
			s.wallets[userID] = wallet
			log.push(func() { delete(s.wallets, userID) })
		}
		before := wallet.Balance
		wallet.Balance = wallet.Balance.Add(amount)
		log.push(func() { wallet.Balance = before })

		out = s.appendTransaction(log, userID, txType, amount, description)
		return nil
	})
	return out, err
}

func (w *wallets) Balance(_ context.Context, userID string) (domain.Wallet, error) {
	var out domain.Wallet
	err := w.do(func(s *Store, _ *undoLog) error {
		wallet, ok := s.wallets[userID]
		if !ok {
			return domain.ErrUserNotFound
		}
		out = *wallet
		return nil
	})
	return out, err
}

func (s *Store) appendTransaction(log *undoLog, userID string, txType domain.TransactionType, amount decimal.Decimal, description string) domain.Transaction {
	t := domain.Transaction{
		ID:          s.newID(),
		UserID:      userID,
		Type:        txType,
		Amount:      amount,
		Description: description,
		CreatedAt:   s.now(),
	}
	s.transactions = append(s.transactions, t)
	n := len(s.transactions)
	log.push(func() { s.transactions = s.transactions[:n-1] })
	return t
}

type attempts struct{ view }

func (a *attempts) FindOpen(_ context.Context, userID, quizID string) (domain.Attempt, error) {
	var out domain.Attempt
	err := a.do(func(s *Store, _ *undoLog) error {
		attempt, ok := s.lookupAttempt(userID, quizID)
		if !ok || attempt.Completed {
			return domain.ErrAttemptNotFound
		}
		out = *attempt
		return nil
	})
	return out, err
}

func (a *attempts) FindAny(_ context.Context, userID, quizID string) (domain.Attempt, error) {
	var out domain.Attempt
	err := a.do(func(s *Store, _ *undoLog) error {
		attempt, ok := s.lookupAttempt(userID, quizID)
		if !ok {
			return domain.ErrAttemptNotFound
		}
		out = *attempt
		return nil
	})
	return out, err
}

func (a *attempts) Create(_ context.Context, userID, quizID string) (domain.Attempt, error) {
	var out domain.Attempt
	err := a.do(func(s *Store, log *undoLog) error {
		key := pairKey{userID: userID, quizID: quizID}
		if _, exists := s.attemptByKey[key]; exists {
			return domain.ErrAlreadyAttempted
		}
		attempt := &domain.Attempt{
			ID:        s.newID(),
			UserID:    userID,
			QuizID:    quizID,
			StartedAt: s.now(),
		}
		s.attempts[attempt.ID] = attempt
		s.attemptByKey[key] = attempt.ID
		log.push(func() {
			delete(s.attempts, attempt.ID)
			delete(s.attemptByKey, key)
		})
		out = *attempt
		return nil
	})
	return out, err
}

func (a *attempts) MarkComplete(_ context.Context, attemptID string) (domain.Attempt, error) {
	var out domain.Attempt
	err := a.do(func(s *Store, log *undoLog) error {
		attempt, ok := s.attempts[attemptID]
		if !ok {
			return domain.ErrAttemptNotFound
		}
		if !attempt.Completed {
			finished := s.now()
			attempt.Completed = true
			attempt.FinishedAt = &finished
			log.push(func() {
				attempt.Completed = false
				attempt.FinishedAt = nil
			})
		}
		out = *attempt
		return nil
	})
	return out, err
}

func (s *Store) lookupAttempt(userID, quizID string) (*domain.Attempt, bool) {
	id, ok := s.attemptByKey[pairKey{userID: userID, quizID: quizID}]
	if !ok {
		return nil, false
	}
	attempt, ok := s.attempts[id]
	return attempt, ok
}

type responses struct{ view }

func (r *responses) Append(_ context.Context, response domain.Response) (domain.Response, error) {
	err := r.do(func(s *Store, log *undoLog) error {
		for _, existing := range s.responses[response.AttemptID] {
			if existing.QuestionID == response.QuestionID {
				return domain.ErrDuplicateResponse
			}
		}
		response.ID = s.newID()
		response.CreatedAt = s.now()
		s.responses[response.AttemptID] = append(s.responses[response.AttemptID], response)
		n := len(s.responses[response.AttemptID])
		log.push(func() { s.responses[response.AttemptID] = s.responses[response.AttemptID][:n-1] })
		return nil
	})
	return response, err
}

func (r *responses) Get(_ context.Context, attemptID, questionID string) (domain.Response, error) {
	var out domain.Response
	err := r.do(func(s *Store, _ *undoLog) error {
		for _, existing := range s.responses[attemptID] {
			if existing.QuestionID == questionID {
				out = existing
				return nil
			}
		}
		return domain.ErrResponseNotFound
	})
	return out, err
}

func (r *responses) ListForAttempt(_ context.Context, attemptID string) ([]domain.Response, error) {
	var out []domain.Response
	err := r.do(func(s *Store, _ *undoLog) error {
		out = append([]domain.Response(nil), s.responses[attemptID]...)
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, err
}
