package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
)

// Handler exposes session preparation over plain HTTP; the live session
// channel is served by ServeWS.
type Handler struct {
	service *app.SessionService
}

func NewHandler(service *app.SessionService) *Handler {
	return &Handler{service: service}
}

type prepareRequest struct {
	QuizID           string `json:"quizId"`
	ShuffleQuestions bool   `json:"shuffleQuestions"`
	ShuffleOptions   bool   `json:"shuffleOptions"`
}

type prepareResponse struct {
	SessionKey string `json:"sessionKey"`
}

// PrepareSession builds a new session for a quiz and hands back the opaque
// session key the client threads through subsequent navigation.
func (h *Handler) PrepareSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req prepareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.QuizID == "" {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	key, err := h.service.PrepareByID(r.Context(), req.QuizID, app.PrepareOptions{
		ShuffleQuestions: req.ShuffleQuestions,
		ShuffleOptions:   req.ShuffleOptions,
	})
	if errors.Is(err, domain.ErrQuizNotFound) {
		http.Error(w, "quiz not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "failed to prepare session", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(prepareResponse{SessionKey: key})
}
