package domain

import "errors"

var (
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuizNotAvailable is returned for quizzes that are not approved for play.
	ErrQuizNotAvailable = errors.New("quiz is not available")
	// ErrQuestionNotFound indicates a submitted question ID is invalid for the quiz.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrAttemptNotFound covers "not started" and, for open-attempt lookups, "already completed".
	ErrAttemptNotFound = errors.New("quiz attempt not found or already completed")
	// ErrResponseNotFound is returned when a question has not been answered in an attempt.
	ErrResponseNotFound = errors.New("response not found")
	// ErrUserNotFound indicates the user has no wallet.
	ErrUserNotFound = errors.New("user not found")
	// ErrInsufficientFunds is returned when a debit exceeds the balance.
	ErrInsufficientFunds = errors.New("insufficient balance")
	// ErrAlreadyAttempted is returned when a user starts a quiz they have already completed.
	ErrAlreadyAttempted = errors.New("you already attempted this quiz")
	// ErrDuplicateResponse is returned by the response log for a second answer to one question.
	ErrDuplicateResponse = errors.New("question already answered")
	// ErrUnauthorized is returned for missing or invalid credentials.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is returned when the caller lacks the required role.
	ErrForbidden = errors.New("access denied")
	// ErrInvalidInput indicates a malformed request.
	ErrInvalidInput = errors.New("invalid input")
)
