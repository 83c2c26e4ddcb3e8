package http

import (
	"errors"
	"net/http"

	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// Handler serves the attempt and wallet REST routes.
type Handler struct {
	attempts *app.AttemptService
	wallets  *app.WalletService
}

func NewHandler(attempts *app.AttemptService, wallets *app.WalletService) *Handler {
	return &Handler{attempts: attempts, wallets: wallets}
}

type answerRequest struct {
	QuestionID       string  `json:"questionId" binding:"required"`
	SelectedOptionID *string `json:"selectedOptionId"`
	TimeTaken        *int    `json:"timeTaken" binding:"required,min=0,max=86400"`
}

type nextQuery struct {
	LastQuestionID string `form:"lastQuestionId"`
}

type creditRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description" binding:"max=200"`
}

func (h *Handler) start(c *gin.Context) {
	res, err := h.attempts.StartAttempt(c.Request.Context(), identityFrom(c).UserID, c.Param("quizId"))
	if errors.Is(err, domain.ErrUserNotFound) {
		// a user without a wallet has nothing to pay with
		err = domain.ErrInsufficientFunds
	}
	if err != nil {
		respondError(c, err, http.StatusBadRequest)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) answer(c *gin.Context) {
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.attempts.SubmitAnswer(c.Request.Context(), identityFrom(c).UserID, c.Param("quizId"), domain.AnswerSubmission{
		QuestionID:       req.QuestionID,
		SelectedOptionID: req.SelectedOptionID,
		TimeTaken:        *req.TimeTaken,
	})
	if err != nil {
		respondError(c, err, http.StatusBadRequest)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) next(c *gin.Context) {
	var q nextQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	question, err := h.attempts.NextQuestion(c.Request.Context(), identityFrom(c).UserID, c.Param("quizId"), q.LastQuestionID)
	if err != nil {
		respondError(c, err, http.StatusBadRequest)
		return
	}
	c.JSON(http.StatusOK, gin.H{"nextQuestion": question, "completed": question == nil})
}

func (h *Handler) complete(c *gin.Context) {
	attempt, err := h.attempts.CompleteAttempt(c.Request.Context(), identityFrom(c).UserID, c.Param("quizId"))
	if err != nil {
		respondError(c, err, http.StatusNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"attempt": attempt})
}

func (h *Handler) result(c *gin.Context) {
	result, err := h.attempts.BuildResult(c.Request.Context(), identityFrom(c).UserID, c.Param("quizId"))
	if err != nil {
		respondError(c, err, http.StatusNotFound)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) wallet(c *gin.Context) {
	wallet, err := h.wallets.Balance(c.Request.Context(), identityFrom(c).UserID)
	if err != nil {
		respondError(c, err, http.StatusNotFound)
		return
	}
	c.JSON(http.StatusOK, wallet)
}

func (h *Handler) credit(c *gin.Context) {
	var req creditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tx, err := h.wallets.Deposit(c.Request.Context(), c.Param("userId"), req.Amount, req.Description)
	if err != nil {
		respondError(c, err, http.StatusNotFound)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"transaction": tx})
}
