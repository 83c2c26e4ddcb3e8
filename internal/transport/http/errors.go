package http

import (
	"errors"
	"net/http"

	"quiz-attempt-service/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/golang/glog"
)

// statusFor maps engine errors to HTTP statuses. attemptMissing is the status used for
// ErrAttemptNotFound, which is a client mistake mid-quiz (400) but a missing resource for reads (404).
func statusFor(err error, attemptMissing int) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrInsufficientFunds),
		errors.Is(err, domain.ErrAlreadyAttempted):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrDuplicateResponse):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrAttemptNotFound):
		return attemptMissing
	case errors.Is(err, domain.ErrQuizNotFound),
		errors.Is(err, domain.ErrQuizNotAvailable),
		errors.Is(err, domain.ErrQuestionNotFound),
		errors.Is(err, domain.ErrResponseNotFound),
		errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage hides internal error details from clients.
func publicMessage(err error, status int) string {
	if status == http.StatusInternalServerError {
		return "internal error"
	}
	for _, sentinel := range []error{
		domain.ErrInvalidInput, domain.ErrInsufficientFunds, domain.ErrAlreadyAttempted,
		domain.ErrUnauthorized, domain.ErrForbidden, domain.ErrAttemptNotFound,
		domain.ErrQuizNotFound, domain.ErrQuizNotAvailable, domain.ErrQuestionNotFound,
		domain.ErrResponseNotFound, domain.ErrUserNotFound, domain.ErrDuplicateResponse,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}

func respondError(c *gin.Context, err error, attemptMissing int) {
	status := statusFor(err, attemptMissing)
	if status == http.StatusInternalServerError {
		glog.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": publicMessage(err, status)})
}
