package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// QuizStatus is the moderation state of a quiz. Only approved quizzes can be attempted.
type QuizStatus string

const (
	QuizPending  QuizStatus = "PENDING"
	QuizApproved QuizStatus = "APPROVED"
	QuizRejected QuizStatus = "REJECTED"
)

// TransactionType labels ledger audit records.
type TransactionType string

const (
	TransactionQuizAttempt TransactionType = "QuizAttempt"
	TransactionDeposit     TransactionType = "Deposit"
	TransactionRefund      TransactionType = "Refund"
)

// Identity is the authenticated caller as reported by the identity subsystem.
type Identity struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// IsAdmin reports whether the caller may use admin routes.
func (i Identity) IsAdmin() bool {
	return i.Role == "ADMIN"
}

// Option represents a possible answer for a question.
type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Question models an MCQ question with exactly one correct option.
type Question struct {
	ID              string   `json:"id"`
	QuizID          string   `json:"quizId"`
	Text            string   `json:"questionText"`
	Options         []Option `json:"options"`
	CorrectOptionID string   `json:"correctOptionId"`
	TimeLimit       int      `json:"timeLimit"` // seconds
}

// OptionText returns the text of the option with the given id, or "" when the id is unknown.
func (q Question) OptionText(optionID string) string {
	for _, opt := range q.Options {
		if opt.ID == optionID {
			return opt.Text
		}
	}
	return ""
}

// Grade reports whether selected is the correct option. A missing selection is always wrong.
func (q Question) Grade(selected *string) bool {
	if selected == nil || *selected == "" {
		return false
	}
	return *selected == q.CorrectOptionID
}

// View strips the answer key so the question can be sent to players.
func (q Question) View() *QuestionView {
	opts := make([]Option, len(q.Options))
	copy(opts, q.Options)
	return &QuestionView{
		ID:        q.ID,
		QuizID:    q.QuizID,
		Text:      q.Text,
		Options:   opts,
		TimeLimit: q.TimeLimit,
	}
}

// QuestionView is the player-facing shape of a question.
type QuestionView struct {
	ID        string   `json:"id"`
	QuizID    string   `json:"quizId"`
	Text      string   `json:"questionText"`
	Options   []Option `json:"options"`
	TimeLimit int      `json:"timeLimit"`
}

// Quiz is an ordered collection of questions. The slice order is the sequencing contract.
type Quiz struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	EntryFee    decimal.Decimal `json:"entryFee"`
	Status      QuizStatus      `json:"status"`
	CreatedBy   string          `json:"createdBy"`
	Questions   []Question      `json:"questions"`
}

// Wallet holds a user's spendable balance.
type Wallet struct {
	UserID       string          `json:"userId"`
	Balance      decimal.Decimal `json:"balance"`
	TotalEarning decimal.Decimal `json:"totalEarning"`
}

// Transaction is a ledger audit record.
type Transaction struct {
	ID          string          `json:"id"`
	UserID      string          `json:"userId"`
	Type        TransactionType `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// Attempt is one user's single run through one quiz.
type Attempt struct {
	ID         string     `json:"id"`
	UserID     string     `json:"userId"`
	QuizID     string     `json:"quizId"`
	Completed  bool       `json:"completed"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

// Response is a recorded answer to one question within one attempt.
type Response struct {
	ID               string    `json:"id"`
	AttemptID        string    `json:"userAttemptId"`
	QuestionID       string    `json:"questionId"`
	SelectedOptionID *string   `json:"selectedOptionId"`
	IsCorrect        bool      `json:"isCorrect"`
	TimeTaken        int       `json:"timeTaken"`
	CreatedAt        time.Time `json:"createdAt"`
}

// MaxTimeTaken bounds the seconds a client may report for one answer.
const MaxTimeTaken = 86400

// AnswerSubmission models the answer signal from clients.
type AnswerSubmission struct {
	QuestionID       string
	SelectedOptionID *string
	TimeTaken        int
}

// StartResult is returned when an attempt is started or resumed.
type StartResult struct {
	AttemptID string        `json:"attemptId"`
	Question  *QuestionView `json:"question"`
	Resumed   bool          `json:"resumed"`
}

// AnswerResult summarizes the outcome of a submission. A nil NextQuestion means the quiz is done.
type AnswerResult struct {
	QuestionID   string        `json:"questionId"`
	IsCorrect    bool          `json:"isCorrect"`
	NextQuestion *QuestionView `json:"nextQuestion"`
	Completed    bool          `json:"completed"`
	Replayed     bool          `json:"replayed,omitempty"`
}

// ResultItem is one row of the per-question report.
type ResultItem struct {
	QuestionID         string `json:"questionId"`
	QuestionText       string `json:"questionText"`
	CorrectOptionText  string `json:"correctOption"`
	SelectedOptionText string `json:"selectedOption"`
	IsCorrect          bool   `json:"isCorrect"`
	TimeTaken          int    `json:"timeTaken"`
}

// Result is the report for one attempt, items in question order.
type Result struct {
	AttemptID string       `json:"attemptId"`
	QuizID    string       `json:"quizId"`
	Completed bool         `json:"completed"`
	Correct   int          `json:"correct"`
	Total     int          `json:"total"`
	Items     []ResultItem `json:"result"`
}
