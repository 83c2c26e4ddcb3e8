package postgres

import (
	"context"
	"database/sql"
	"time"

	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/domain"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

const uniqueViolation = "23505"

// Store implements app.Store on Postgres through bun. Repositories handed to a RunInTx callback
// share one transaction and lock the attempt rows they read.
type Store struct {
	db   *bun.DB
	conn bun.IDB
	inTx bool
	now  func() time.Time
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db, conn: db, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Store) Wallets() app.WalletLedger  { return &wallets{s} }
func (s *Store) Attempts() app.AttemptStore { return &attempts{s} }
func (s *Store) Responses() app.ResponseLog { return &responses{s} }

func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx app.Store) error) error {
	if s.inTx {
		return fn(ctx, s)
	}
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &Store{db: s.db, conn: &tx, inTx: true, now: s.now})
	})
}

type userRow struct {
	bun.BaseModel `bun:"table:users"`

	ID           string          `bun:"id,pk"`
	Email        sql.NullString  `bun:"email"`
	Balance      decimal.Decimal `bun:"balance,type:numeric"`
	TotalEarning decimal.Decimal `bun:"total_earning,type:numeric"`
}

type transactionRow struct {
	bun.BaseModel `bun:"table:transactions"`

	ID          string          `bun:"id,pk"`
	UserID      string          `bun:"user_id"`
	Type        string          `bun:"type"`
	Amount      decimal.Decimal `bun:"amount,type:numeric"`
	Description string          `bun:"description"`
	CreatedAt   time.Time       `bun:"created_at"`
}

type attemptRow struct {
	bun.BaseModel `bun:"table:user_attempts"`

	ID         string     `bun:"id,pk"`
	UserID     string     `bun:"user_id"`
	QuizID     string     `bun:"quiz_id"`
	Completed  bool       `bun:"completed"`
	StartedAt  time.Time  `bun:"started_at"`
	FinishedAt *time.Time `bun:"finished_at"`
}

func (r attemptRow) toDomain() domain.Attempt {
	return domain.Attempt{
		ID:         r.ID,
		UserID:     r.UserID,
		QuizID:     r.QuizID,
		Completed:  r.Completed,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
	}
}

type responseRow struct {
	bun.BaseModel `bun:"table:responses"`

	ID               string    `bun:"id,pk"`
	AttemptID        string    `bun:"user_attempt_id"`
	QuestionID       string    `bun:"question_id"`
	SelectedOptionID *string   `bun:"selected_option_id"`
	IsCorrect        bool      `bun:"is_correct"`
	TimeTaken        int       `bun:"time_taken"`
	CreatedAt        time.Time `bun:"created_at"`
}

func (r responseRow) toDomain() domain.Response {
	return domain.Response{
		ID:               r.ID,
		AttemptID:        r.AttemptID,
		QuestionID:       r.QuestionID,
		SelectedOptionID: r.SelectedOptionID,
		IsCorrect:        r.IsCorrect,
		TimeTaken:        r.TimeTaken,
		CreatedAt:        r.CreatedAt,
	}
}

type wallets struct{ s *Store }

// Debit is a single conditional UPDATE, so the balance can never go negative even without a transaction.
func (w *wallets) Debit(ctx context.Context, userID string, amount decimal.Decimal, description string) (domain.Transaction, error) {
	var out domain.Transaction
	err := w.s.RunInTx(ctx, func(ctx context.Context, tx app.Store) error {
		conn := tx.(*Store).conn
		var balance decimal.Decimal
		err := conn.QueryRowContext(ctx,
			`UPDATE users SET balance = balance - ? WHERE id = ? AND balance >= ? RETURNING balance`,
			amount, userID, amount).Scan(&balance)
		if errors.Is(err, sql.ErrNoRows) {
			exists, err := conn.NewSelect().Model((*userRow)(nil)).Where("id = ?", userID).Exists(ctx)
			if err != nil {
				return errors.Wrap(err, "check wallet")
			}
			if !exists {
				return domain.ErrUserNotFound
			}
			return domain.ErrInsufficientFunds
		}
		if err != nil {
			return errors.Wrap(err, "debit wallet")
		}
		out, err = w.s.record(ctx, conn, userID, domain.TransactionQuizAttempt, amount, description)
		return err
	})
	return out, err
}

func (w *wallets) Credit(ctx context.Context, userID string, amount decimal.Decimal, txType domain.TransactionType, description string) (domain.Transaction, error) {
	var out domain.Transaction
	err := w.s.RunInTx(ctx, func(ctx context.Context, tx app.Store) error {
		conn := tx.(*Store).conn
		_, err := conn.ExecContext(ctx,
			`INSERT INTO users (id, balance) VALUES (?, ?)
			ON CONFLICT (id) DO UPDATE SET balance = users.balance + EXCLUDED.balance`,
			userID, amount)
		if err != nil {
			return errors.Wrap(err, "credit wallet")
		}
		out, err = w.s.record(ctx, conn, userID, txType, amount, description)
		return err
	})
	return out, err
}

func (w *wallets) Balance(ctx context.Context, userID string) (domain.Wallet, error) {
	var row userRow
	err := w.s.conn.NewSelect().Model(&row).Where("id = ?", userID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Wallet{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.Wallet{}, errors.Wrap(err, "load wallet")
	}
	return domain.Wallet{UserID: row.ID, Balance: row.Balance, TotalEarning: row.TotalEarning}, nil
}

func (s *Store) record(ctx context.Context, conn bun.IDB, userID string, txType domain.TransactionType, amount decimal.Decimal, description string) (domain.Transaction, error) {
	row := transactionRow{
		ID:          uuid.NewString(),
		UserID:      userID,
		Type:        string(txType),
		Amount:      amount,
		Description: description,
		CreatedAt:   s.now(),
	}
	if _, err := conn.NewInsert().Model(&row).Exec(ctx); err != nil {
		return domain.Transaction{}, errors.Wrap(err, "insert transaction")
	}
	return domain.Transaction{
		ID:          row.ID,
		UserID:      row.UserID,
		Type:        txType,
		Amount:      row.Amount,
		Description: row.Description,
		CreatedAt:   row.CreatedAt,
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
	var row attemptRow
	q := a.s.conn.NewSelect().Model(&row).
		Where("user_id = ?", userID).
		Where("quiz_id = ?", quizID)
	if openOnly {
		q = q.Where("completed = FALSE")
	}
	if a.s.inTx {
		q = q.For("UPDATE")
	}
	err := q.Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	if err != nil {
		return domain.Attempt{}, errors.Wrap(err, "find attempt")
	}
	return row.toDomain(), nil
}

// Create relies on the (user_id, quiz_id) unique constraint to reject a second attempt.
func (a *attempts) Create(ctx context.Context, userID, quizID string) (domain.Attempt, error) {
	row := attemptRow{
		ID:        uuid.NewString(),
		UserID:    userID,
		QuizID:    quizID,
		StartedAt: a.s.now(),
	}
	if _, err := a.s.conn.NewInsert().Model(&row).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return domain.Attempt{}, domain.ErrAlreadyAttempted
		}
		return domain.Attempt{}, errors.Wrap(err, "create attempt")
	}
	return row.toDomain(), nil
}

func (a *attempts) MarkComplete(ctx context.Context, attemptID string) (domain.Attempt, error) {
	var row attemptRow
	err := a.s.conn.NewUpdate().Model(&row).
		Set("completed = TRUE").
		Set("finished_at = COALESCE(finished_at, ?)", a.s.now()).
		Where("id = ?", attemptID).
		Returning("*").
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	if err != nil {
		return domain.Attempt{}, errors.Wrap(err, "complete attempt")
	}
	return row.toDomain(), nil
}

type responses struct{ s *Store }

// Append relies on the (user_attempt_id, question_id) unique constraint to reject a second answer.
func (r *responses) Append(ctx context.Context, response domain.Response) (domain.Response, error) {
	row := responseRow{
		ID:               uuid.NewString(),
		AttemptID:        response.AttemptID,
		QuestionID:       response.QuestionID,
		SelectedOptionID: response.SelectedOptionID,
		IsCorrect:        response.IsCorrect,
		TimeTaken:        response.TimeTaken,
		CreatedAt:        r.s.now(),
	}
	if _, err := r.s.conn.NewInsert().Model(&row).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return domain.Response{}, domain.ErrDuplicateResponse
		}
		return domain.Response{}, errors.Wrap(err, "insert response")
	}
	return row.toDomain(), nil
}

func (r *responses) Get(ctx context.Context, attemptID, questionID string) (domain.Response, error) {
	var row responseRow
	err := r.s.conn.NewSelect().Model(&row).
		Where("user_attempt_id = ?", attemptID).
		Where("question_id = ?", questionID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Response{}, domain.ErrResponseNotFound
	}
	if err != nil {
		return domain.Response{}, errors.Wrap(err, "get response")
	}
	return row.toDomain(), nil
}

func (r *responses) ListForAttempt(ctx context.Context, attemptID string) ([]domain.Response, error) {
	var rows []responseRow
	err := r.s.conn.NewSelect().Model(&rows).
		Where("user_attempt_id = ?", attemptID).
		Order("created_at ASC", "id ASC").
		Scan(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list responses")
	}
	out := make([]domain.Response, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	return errors.As(err, &pgErr) && pgErr.Field('C') == uniqueViolation
}
