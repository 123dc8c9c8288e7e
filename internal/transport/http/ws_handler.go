package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"quiz-score-service/internal/app"
	"quiz-score-service/internal/domain"
)

// WSHandler runs one quiz session per websocket connection.
type WSHandler struct {
	service  *app.QuizService
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, logger *slog.Logger) *WSHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSHandler{
		service: service,
		logger:  logger,
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
	Selected []int `json:"selected"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type completedPayload struct {
	Result      app.AdvanceResult  `json:"result"`
	Persisted   bool               `json:"persisted"`
	Leaderboard domain.Leaderboard `json:"leaderboard"`
}

type advancedPayload struct {
	app.AdvanceOutcome
	Persisted bool `json:"persisted"`
}

// ServeWS upgrades the request and drives a session from start to completion.
// A connection that drops before the last question abandons its session.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	quizID := q.Get("quizId")
	name := q.Get("name")
	if quizID == "" || name == "" {
		http.Error(w, "missing quizId or name", http.StatusBadRequest)
		return
	}
	reg := app.Registration{Name: name, IsTeam: q.Get("team") == "1", TeamMembers: q["member"]}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	started, err := h.service.Start(ctx, quizID, reg)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	sessionID := started.ID
	completed := false
	defer func() {
		if completed {
			return
		}
		if err := h.service.Abandon(context.WithoutCancel(ctx), sessionID); err != nil {
			h.logger.Debug("abandon session", "session_id", sessionID, "err", err)
		}
	}()

	send := make(chan outboundMessage, 16)
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Warn("ws write error", "session_id", sessionID, "err", err)
				return
			}
		}
	}()

	sendErr := func(err error) {
		send <- outboundMessage{Type: "error", Payload: errorPayload{Message: err.Error()}}
	}

	send <- outboundMessage{Type: "state", Payload: started}

	for !completed {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				sendErr(&domain.ValidationError{Field: "payload", Msg: "invalid answer payload"})
				continue
			}
			view, err := h.service.Answer(ctx, sessionID, payload.Selected)
			if err != nil {
				sendErr(err)
				continue
			}
			send <- outboundMessage{Type: "state", Payload: view}
		case "advance":
			out, err := h.service.Advance(ctx, sessionID)
			if err != nil {
				sendErr(err)
				continue
			}
			persisted := out.Result.PersistErr == nil
			if !out.Result.Completed {
				send <- outboundMessage{Type: "advanced", Payload: advancedPayload{AdvanceOutcome: out, Persisted: persisted}}
				continue
			}
			completed = true
			board, err := h.service.Leaderboard(ctx, quizID)
			if err != nil {
				h.logger.Warn("leaderboard after completion", "quiz_id", quizID, "err", err)
				board = domain.Leaderboard{QuizID: quizID, Entries: []domain.LeaderboardEntry{}}
			}
			send <- outboundMessage{Type: "completed", Payload: completedPayload{
				Result:      out.Result,
				Persisted:   persisted,
				Leaderboard: board,
			}}
		default:
			sendErr(&domain.ValidationError{Field: "type", Msg: "unsupported message type"})
		}
	}

	close(send)
	<-writerDone
}
