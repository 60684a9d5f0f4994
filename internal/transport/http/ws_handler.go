package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
	"github.com/gorilla/websocket"
)

// WSHandler drives a session engine over a websocket: the client sends
// answer/navigation/submission commands and receives state snapshots, a
// once-per-second elapsed-time tick, and score summaries.
type WSHandler struct {
	service  *app.SessionService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.SessionService) *WSHandler {
	return &WSHandler{
		service: service,
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
	OptionID string `json:"optionId"`
}

type gotoPayload struct {
	Index int `json:"index"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type statePayload struct {
	CurrentIndex   int             `json:"currentIndex"`
	QuestionCount  int             `json:"questionCount"`
	Answers        []domain.Answer `json:"answers"`
	ElapsedSeconds int64           `json:"elapsedSeconds"`
}

type tickPayload struct {
	ElapsedSeconds int64 `json:"elapsedSeconds"`
}

type errorPayload struct {
	Message string `json:"message"`
}

func parseMode(raw string) (app.Mode, bool) {
	switch raw {
	case "practice", "":
		return app.ModePractice, true
	case "exam":
		return app.ModeExam, true
	case "review":
		// Post-submission review is practice semantics over the same session.
		return app.ModePractice, true
	}
	return "", false
}

// ServeWS upgrades the request and wires the connection into a session engine.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	sessionKey := r.URL.Query().Get("sessionKey")
	if sessionKey == "" {
		http.Error(w, "missing sessionKey", http.StatusBadRequest)
		return
	}
	mode, ok := parseMode(r.URL.Query().Get("mode"))
	if !ok {
		http.Error(w, "invalid mode", http.StatusBadRequest)
		return
	}

	// A missing session is terminal for this view; reject before upgrading.
	sess, err := h.service.LoadSession(r.Context(), sessionKey, mode)
	if errors.Is(err, domain.ErrSessionNotFound) {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "failed to load session", http.StatusInternalServerError)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	tickerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	// The tick is purely presentational: it re-reads the persisted start
	// timestamp each second and never mutates the session. It goes quiet
	// once a submission freezes the clock.
	go func() {
		defer close(tickerDone)
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if sess.Submitted() {
					continue
				}
				elapsed, err := h.service.LiveElapsed(context.Background(), sessionKey)
				if err != nil {
					continue
				}
				select {
				case send <- outboundMessage[any]{Type: "tick", Payload: tickPayload{ElapsedSeconds: elapsed}}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "quiz", Payload: sess.Quiz()}
	send <- outboundMessage[any]{Type: "state", Payload: snapshot(sess)}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- errMsg("invalid answer payload")
				continue
			}
			if err := sess.RecordAnswer(r.Context(), payload.OptionID); err != nil {
				send <- errMsg(err.Error())
				continue
			}
			send <- outboundMessage[any]{Type: "state", Payload: snapshot(sess)}
		case "goto":
			var payload gotoPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- errMsg("invalid goto payload")
				continue
			}
			if err := sess.GoTo(r.Context(), payload.Index); err != nil {
				send <- errMsg(err.Error())
				continue
			}
			send <- outboundMessage[any]{Type: "state", Payload: snapshot(sess)}
		case "restart":
			if err := sess.Restart(r.Context()); err != nil {
				send <- errMsg(err.Error())
				continue
			}
			send <- outboundMessage[any]{Type: "state", Payload: snapshot(sess)}
		case "retryWrong":
			if err := sess.RetryWrongOnly(r.Context()); err != nil {
				send <- errMsg(err.Error())
				continue
			}
			send <- outboundMessage[any]{Type: "state", Payload: snapshot(sess)}
		case "submit":
			summary, err := sess.Submit(r.Context())
			if err != nil {
				send <- errMsg(err.Error())
				continue
			}
			send <- outboundMessage[any]{Type: "score", Payload: summary}
		default:
			send <- errMsg("unsupported message type")
		}
	}

	close(closeSignals)
	<-tickerDone
	close(send)
	<-writerDone
}

func snapshot(sess *app.Session) statePayload {
	state := sess.State()
	return statePayload{
		CurrentIndex:   state.CurrentIndex,
		QuestionCount:  sess.QuestionCount(),
		Answers:        state.Answers,
		ElapsedSeconds: sess.ElapsedSeconds(),
	}
}

func errMsg(message string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: message}}
}
