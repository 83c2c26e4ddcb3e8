package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/domain"

	"github.com/golang/glog"
	"github.com/gorilla/websocket"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	writeWait  = 10 * time.Second
)

// WSHandler runs one user's attempt on one quiz over a websocket.
type WSHandler struct {
	service  *app.AttemptService
	auth     Authenticator
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.AttemptService, auth Authenticator) *WSHandler {
	return &WSHandler{
		service: service,
		auth:    auth,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	QuestionID       string  `json:"questionId"`
	SelectedOptionID *string `json:"selectedOptionId"`
	TimeTaken        int     `json:"timeTaken"`
}

type nextPayload struct {
	LastQuestionID string `json:"lastQuestionId"`
}

type nextResult struct {
	NextQuestion *domain.QuestionView `json:"nextQuestion"`
	Completed    bool                 `json:"completed"`
}

type connectedPayload struct {
	QuizID string `json:"quizId"`
	UserID string `json:"userId"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// ServeWS authenticates the token query parameter (or Authorization header), upgrades the
// connection and answers start/answer/next/complete/result messages in order.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	quizID := r.URL.Query().Get("quizId")
	token := r.URL.Query().Get("token")
	if token == "" {
		token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	if quizID == "" {
		http.Error(w, "missing quizId", http.StatusBadRequest)
		return
	}
	identity, err := h.auth.Authenticate(r.Context(), token)
	if err != nil {
		http.Error(w, "invalid or expired token", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		glog.Warningf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage[any], 16)
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case msg, ok := <-send:
				if !ok {
					_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteJSON(msg); err != nil {
					glog.Warningf("ws write error: %v", err)
					return
				}
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					return
				}
			}
		}
	}()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	send <- outboundMessage[any]{Type: "connected", Payload: connectedPayload{QuizID: quizID, UserID: identity.UserID}}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		msg := h.dispatch(r, identity.UserID, quizID, inbound)
		select {
		case send <- msg:
		case <-writerDone:
		}
	}

	close(send)
	<-writerDone
}

func (h *WSHandler) dispatch(r *http.Request, userID, quizID string, inbound inboundMessage) outboundMessage[any] {
	ctx := r.Context()
	switch inbound.Type {
	case "start":
		res, err := h.service.StartAttempt(ctx, userID, quizID)
		if errors.Is(err, domain.ErrUserNotFound) {
			err = domain.ErrInsufficientFunds
		}
		if err != nil {
			return wsError(err, http.StatusBadRequest)
		}
		return outboundMessage[any]{Type: "started", Payload: res}
	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return wsError(domain.ErrInvalidInput, http.StatusBadRequest)
		}
		if payload.TimeTaken < 0 || payload.TimeTaken > domain.MaxTimeTaken {
			return wsError(domain.ErrInvalidInput, http.StatusBadRequest)
		}
		res, err := h.service.SubmitAnswer(ctx, userID, quizID, domain.AnswerSubmission{
			QuestionID:       payload.QuestionID,
			SelectedOptionID: payload.SelectedOptionID,
			TimeTaken:        payload.TimeTaken,
		})
		if err != nil {
			return wsError(err, http.StatusBadRequest)
		}
		return outboundMessage[any]{Type: "answerResult", Payload: res}
	case "next":
		var payload nextPayload
		if len(inbound.Payload) > 0 {
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				return wsError(domain.ErrInvalidInput, http.StatusBadRequest)
			}
		}
		question, err := h.service.NextQuestion(ctx, userID, quizID, payload.LastQuestionID)
		if err != nil {
			return wsError(err, http.StatusBadRequest)
		}
		return outboundMessage[any]{Type: "question", Payload: nextResult{NextQuestion: question, Completed: question == nil}}
	case "complete":
		attempt, err := h.service.CompleteAttempt(ctx, userID, quizID)
		if err != nil {
			return wsError(err, http.StatusNotFound)
		}
		return outboundMessage[any]{Type: "completed", Payload: attempt}
	case "result":
		result, err := h.service.BuildResult(ctx, userID, quizID)
		if err != nil {
			return wsError(err, http.StatusNotFound)
		}
		return outboundMessage[any]{Type: "result", Payload: result}
	default:
		return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type", Status: http.StatusBadRequest}}
	}
}

func wsError(err error, attemptMissing int) outboundMessage[any] {
	status := statusFor(err, attemptMissing)
	if status == http.StatusInternalServerError {
		glog.Errorf("ws: %v", err)
	}
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: publicMessage(err, status), Status: status}}
}
