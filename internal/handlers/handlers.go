package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/SazonovV/boardsNexus/internal/db"
)

type Handler struct {
	UserRepo    *db.UserRepository
	BoardRepo   *db.BoardRepository
	TaskRepo    *db.TaskRepository
	RateLimiter *RateLimiter
	WSHub       *WSHub
}

type errorResponse struct {
	Error string `json:"error"`
}

func sendError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Error: message})
}

func sendJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.WithError(err).Error("encode response")
	}
}

// sendStoreError maps the repository failure taxonomy onto status codes.
// Unanticipated failures stay opaque to the client.
func sendStoreError(w http.ResponseWriter, err error) {
	var usersNotFound *db.UsersNotFoundError
	switch {
	case errors.Is(err, db.ErrTaskNotFound),
		errors.Is(err, db.ErrBoardNotFound),
		errors.Is(err, db.ErrUserNotFound):
		sendError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, db.ErrAuthorNotFound),
		errors.Is(err, db.ErrLoginTaken),
		errors.As(err, &usersNotFound):
		sendError(w, err.Error(), http.StatusBadRequest)
	default:
		log.WithError(err).Error("store operation failed")
		sendError(w, "Server error", http.StatusInternalServerError)
	}
}

func isJSONContentType(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	return strings.HasPrefix(strings.ToLower(ct), "application/json")
}
