package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/domain"
)

type WSHandler struct {
	service  *app.QuizService
	upgrader websocket.Upgrader
	logger   *slog.Logger
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
	Value string `json:"value"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload,omitempty"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request and binds the connection to the owner's quiz engine.
// Every engine change is pushed as a "state" message; inbound messages are the
// presentation commands answer, restart, retry and logout. When the owner's last
// connection closes without a logout the engine is suspended.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	owner := r.URL.Query().Get("owner")
	if owner == "" {
		http.Error(w, "missing owner", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	ctx, cancelCtx := context.WithCancel(context.Background())
	defer cancelCtx()

	engine := h.service.Engine(owner)
	updates, cancel := engine.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Debug("ws write error", "owner", owner, "err", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "state", Payload: update}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	go h.run(ctx, owner, func(ctx context.Context) error {
		_, err := engine.Start(ctx)
		return err
	})

	loggedOut := false
	for !loggedOut {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}}
				continue
			}
			if snap, applied := engine.SubmitAnswer(ctx, payload.Value); !applied {
				// Stale render: resend the current state instead of mutating.
				send <- outboundMessage[any]{Type: "state", Payload: snap}
			}
		case "restart":
			go h.run(ctx, owner, func(ctx context.Context) error {
				_, err := engine.Restart(ctx)
				return err
			})
		case "retry":
			go h.run(ctx, owner, func(ctx context.Context) error {
				_, err := engine.Start(ctx)
				return err
			})
		case "logout":
			if err := h.service.Logout(ctx, owner); err != nil {
				h.logger.Warn("logout cleanup failed", "owner", owner, "err", err)
			}
			loggedOut = true
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	cancel()
	if !loggedOut && engine.SuspendIfIdle() {
		h.logger.Debug("engine suspended", "owner", owner)
	}
	cancelCtx()
	close(closeSignals)
	<-updatesDone
	if loggedOut {
		send <- outboundMessage[any]{Type: "loggedOut"}
	}
	close(send)
	<-writerDone
}

// run executes a blocking engine command; failures already reach the client as state.
func (h *WSHandler) run(ctx context.Context, owner string, fn func(context.Context) error) {
	if err := fn(ctx); err != nil && ctx.Err() == nil {
		h.logger.Debug("engine command failed", "owner", owner, "reason", domain.ReasonFor(err), "err", err)
	}
}
