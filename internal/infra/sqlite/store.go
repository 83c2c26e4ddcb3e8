package sqlite

import (
	"context"
	"strings"
	"time"

	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/domain"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Store implements app.Store on SQLite through gorm.
type Store struct {
	db   *gorm.DB
	inTx bool
	now  func() time.Time
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Store) Wallets() app.WalletLedger  { return &wallets{s} }
func (s *Store) Attempts() app.AttemptStore { return &attempts{s} }
func (s *Store) Responses() app.ResponseLog { return &responses{s} }

func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx app.Store) error) error {
	if s.inTx {
		return fn(ctx, s)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &Store{db: tx, inTx: true, now: s.now})
	})
}

type wallets struct{ s *Store }

func (w *wallets) Debit(ctx context.Context, userID string, amount decimal.Decimal, description string) (domain.Transaction, error) {
	var out domain.Transaction
	err := w.s.RunInTx(ctx, func(ctx context.Context, tx app.Store) error {
		db := tx.(*Store).db.WithContext(ctx)
		var wallet walletModel
		if err := db.First(&wallet, "user_id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrUserNotFound
			}
			return errors.Wrap(err, "load wallet")
		}
		if wallet.Balance.LessThan(amount) {
			return domain.ErrInsufficientFunds
		}
		if err := db.Model(&wallet).Update("balance", wallet.Balance.Sub(amount)).Error; err != nil {
			return errors.Wrap(err, "debit wallet")
		}
		var err error
		out, err = w.s.record(db, userID, domain.TransactionQuizAttempt, amount, description)
		return err
	})
	return out, err
}

func (w *wallets) Credit(ctx context.Context, userID string, amount decimal.Decimal, txType domain.TransactionType, description string) (domain.Transaction, error) {
	var out domain.Transaction
	err := w.s.RunInTx(ctx, func(ctx context.Context, tx app.Store) error {
		db := tx.(*Store).db.WithContext(ctx)
		var wallet walletModel
		err := db.First(&wallet, "user_id = ?", userID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			wallet = walletModel{UserID: userID, Balance: amount, TotalEarning: decimal.Zero}
			if err := db.Create(&wallet).Error; err != nil {
				return errors.Wrap(err, "create wallet")
			}
		case err != nil:
			return errors.Wrap(err, "load wallet")
		default:
			if err := db.Model(&wallet).Update("balance", wallet.Balance.Add(amount)).Error; err != nil {
				return errors.Wrap(err, "credit wallet")
			}
		}
		out, err = w.s.record(db, userID, txType, amount, description)
		return err
	})
	return out, err
}

func (w *wallets) Balance(ctx context.Context, userID string) (domain.Wallet, error) {
	var wallet walletModel
	if err := w.s.db.WithContext(ctx).First(&wallet, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Wallet{}, domain.ErrUserNotFound
		}
		return domain.Wallet{}, errors.Wrap(err, "load wallet")
	}
	return domain.Wallet{UserID: wallet.UserID, Balance: wallet.Balance, TotalEarning: wallet.TotalEarning}, nil
}

func (s *Store) record(db *gorm.DB, userID string, txType domain.TransactionType, amount decimal.Decimal, description string) (domain.Transaction, error) {
	m := transactionModel{
		ID:          uuid.NewString(),
		UserID:      userID,
		Type:        string(txType),
		Amount:      amount,
		Description: description,
		CreatedAt:   s.now(),
	}
	if err := db.Create(&m).Error; err != nil {
		return domain.Transaction{}, errors.Wrap(err, "insert transaction")
	}
	return domain.Transaction{
		ID:          m.ID,
		UserID:      m.UserID,
		Type:        txType,
		Amount:      m.Amount,
		Description: m.Description,
		CreatedAt:   m.CreatedAt,
	}, nil
}

type attempts struct{ s *Store }

func (a *attempts) FindOpen(ctx context.Context, userID, quizID string) (domain.Attempt, error) {
	return a.find(ctx, userID, quizID, true)
}

func (a *attempts) FindAny(ctx context.Context, userID, quizID string) (domain.Attempt, error) {
	return a.find(ctx, userID, quizID, false)
}

func (a *attempts) find(ctx context.Context, userID, quizID string, openOnly bool) (domain.Attempt, error) {
	q := a.s.db.WithContext(ctx).Where("user_id = ? AND quiz_id = ?", userID, quizID)
	if openOnly {
		q = q.Where("completed = ?", false)
	}
	var m attemptModel
	if err := q.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Attempt{}, domain.ErrAttemptNotFound
		}
		return domain.Attempt{}, errors.Wrap(err, "find attempt")
	}
	return m.toDomain(), nil
}

func (a *attempts) Create(ctx context.Context, userID, quizID string) (domain.Attempt, error) {
	m := attemptModel{
		ID:        uuid.NewString(),
		UserID:    userID,
		QuizID:    quizID,
		StartedAt: a.s.now(),
	}
	if err := a.s.db.WithContext(ctx).Create(&m).Error; err != nil {
		if isDuplicate(err) {
			return domain.Attempt{}, domain.ErrAlreadyAttempted
		}
		return domain.Attempt{}, errors.Wrap(err, "create attempt")
	}
	return m.toDomain(), nil
}

func (a *attempts) MarkComplete(ctx context.Context, attemptID string) (domain.Attempt, error) {
	db := a.s.db.WithContext(ctx)
	var m attemptModel
	if err := db.First(&m, "id = ?", attemptID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Attempt{}, domain.ErrAttemptNotFound
		}
		return domain.Attempt{}, errors.Wrap(err, "load attempt")
	}
	if m.Completed {
		return m.toDomain(), nil
	}
	finished := a.s.now()
	err := db.Model(&m).Updates(map[string]interface{}{"completed": true, "finished_at": finished}).Error
	if err != nil {
		return domain.Attempt{}, errors.Wrap(err, "complete attempt")
	}
	m.Completed, m.FinishedAt = true, &finished
	return m.toDomain(), nil
}

type responses struct{ s *Store }

func (r *responses) Append(ctx context.Context, response domain.Response) (domain.Response, error) {
	m := responseModel{
		ID:               uuid.NewString(),
		AttemptID:        response.AttemptID,
		QuestionID:       response.QuestionID,
		SelectedOptionID: response.SelectedOptionID,
		IsCorrect:        response.IsCorrect,
		TimeTaken:        response.TimeTaken,
		CreatedAt:        r.s.now(),
	}
	if err := r.s.db.WithContext(ctx).Create(&m).Error; err != nil {
		if isDuplicate(err) {
			return domain.Response{}, domain.ErrDuplicateResponse
		}
		return domain.Response{}, errors.Wrap(err, "insert response")
	}
	return m.toDomain(), nil
}

func (r *responses) Get(ctx context.Context, attemptID, questionID string) (domain.Response, error) {
	var m responseModel
	err := r.s.db.WithContext(ctx).First(&m, "user_attempt_id = ? AND question_id = ?", attemptID, questionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Response{}, domain.ErrResponseNotFound
	}
	if err != nil {
		return domain.Response{}, errors.Wrap(err, "get response")
	}
	return m.toDomain(), nil
}

func (r *responses) ListForAttempt(ctx context.Context, attemptID string) ([]domain.Response, error) {
	var rows []responseModel
	err := r.s.db.WithContext(ctx).
		Where("user_attempt_id = ?", attemptID).
		Order("created_at ASC").Order("rowid ASC").
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "list responses")
	}
	out := make([]domain.Response, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.toDomain())
	}
	return out, nil
}

func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed")
}
