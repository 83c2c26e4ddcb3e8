package postgres

import (
	"context"
	"encoding/json"

	"quiz-attempt-service/internal/domain"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/pkg/errors"
)

// QuizLoader loads quiz JSONB from Postgres. The status column is authoritative over the document.
type QuizLoader struct {
	pool *pgxpool.Pool
}

func NewQuizLoader(pool *pgxpool.Pool) *QuizLoader {
	return &QuizLoader{pool: pool}
}

func (l *QuizLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	var (
		raw    []byte
		status string
	)
	err := l.pool.QueryRow(ctx, `SELECT data, status FROM quizzes WHERE id=$1`, quizID).Scan(&raw, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, errors.Wrap(err, "load quiz")
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.Quiz{}, errors.Wrap(err, "unmarshal quiz")
	}
	quiz.ID = quizID
	quiz.Status = domain.QuizStatus(status)
	return quiz, nil
}

// PutQuiz inserts or replaces a quiz document.
func (l *QuizLoader) PutQuiz(ctx context.Context, quiz domain.Quiz) error {
	raw, err := json.Marshal(quiz)
	if err != nil {
		return errors.Wrap(err, "marshal quiz")
	}
	_, err = l.pool.Exec(ctx, `
		INSERT INTO quizzes (id, status, data) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, data = EXCLUDED.data, updated_at = now()`,
		quiz.ID, string(quiz.Status), raw)
	return errors.Wrapf(err, "put quiz %s", quiz.ID)
}
