package sqlite

import (
	"time"

	"quiz-attempt-service/internal/domain"

	"github.com/shopspring/decimal"
)

type quizModel struct {
	ID        string `gorm:"primaryKey;size:64"`
	Title     string `gorm:"not null"`
	Status    string `gorm:"size:16;not null;index"`
	Data      string `gorm:"not null"` // JSON document
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (quizModel) TableName() string { return "quizzes" }

// Balances are stored as text to keep decimal precision.
type walletModel struct {
	UserID       string          `gorm:"primaryKey;size:64"`
	Email        *string
	Balance      decimal.Decimal `gorm:"type:text;not null"`
	TotalEarning decimal.Decimal `gorm:"type:text;not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (walletModel) TableName() string { return "users" }

type transactionModel struct {
	ID          string          `gorm:"primaryKey;size:36"`
	UserID      string          `gorm:"size:64;not null;index"`
	Type        string          `gorm:"size:16;not null"`
	Amount      decimal.Decimal `gorm:"type:text;not null"`
	Description string          `gorm:"not null"`
	CreatedAt   time.Time
}

func (transactionModel) TableName() string { return "transactions" }

type attemptModel struct {
	ID         string `gorm:"primaryKey;size:36"`
	UserID     string `gorm:"size:64;not null;uniqueIndex:idx_attempt_user_quiz"`
	QuizID     string `gorm:"size:64;not null;uniqueIndex:idx_attempt_user_quiz"`
	Completed  bool   `gorm:"not null"`
	StartedAt  time.Time
	FinishedAt *time.Time
}

func (attemptModel) TableName() string { return "user_attempts" }

func (m attemptModel) toDomain() domain.Attempt {
	return domain.Attempt{
		ID:         m.ID,
		UserID:     m.UserID,
		QuizID:     m.QuizID,
		Completed:  m.Completed,
		StartedAt:  m.StartedAt,
		FinishedAt: m.FinishedAt,
	}
}

type responseModel struct {
	ID               string `gorm:"primaryKey;size:36"`
	AttemptID        string `gorm:"column:user_attempt_id;size:36;not null;uniqueIndex:idx_response_attempt_question"`
	QuestionID       string `gorm:"size:64;not null;uniqueIndex:idx_response_attempt_question"`
	SelectedOptionID *string
	IsCorrect        bool `gorm:"not null"`
	TimeTaken        int  `gorm:"not null"`
	CreatedAt        time.Time
}

func (responseModel) TableName() string { return "responses" }

func (m responseModel) toDomain() domain.Response {
	return domain.Response{
		ID:               m.ID,
		AttemptID:        m.AttemptID,
		QuestionID:       m.QuestionID,
		SelectedOptionID: m.SelectedOptionID,
		IsCorrect:        m.IsCorrect,
		TimeTaken:        m.TimeTaken,
		CreatedAt:        m.CreatedAt,
	}
}
