package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/SazonovV/boardsNexus/internal/db"
)

/*
handles routes:
- GET /boards - list boards for the caller
- POST /boards - create board (admin)
*/
func (h *Handler) HandleBoards(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listBoards(w, r)
	case http.MethodPost:
		h.AdminMiddleware(h.createBoard)(w, r)
	default:
		sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

/*
handles routes:
- PUT /boards/{id} - update board (admin)
- DELETE /boards/{id} - delete board (admin)
*/
func (h *Handler) HandleBoardByID(w http.ResponseWriter, r *http.Request) {
	boardIDStr := strings.TrimPrefix(r.URL.Path, "/boards/")
	boardID, err := uuid.Parse(boardIDStr)
	if err != nil {
		sendError(w, "board id must be a valid uuid", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodPut, http.MethodPatch:
		h.AdminMiddleware(func(w http.ResponseWriter, r *http.Request) {
			h.updateBoard(w, r, boardID)
		})(w, r)
	case http.MethodDelete:
		h.AdminMiddleware(func(w http.ResponseWriter, r *http.Request) {
			h.deleteBoard(w, r, boardID)
		})(w, r)
	default:
		sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) listBoards(w http.ResponseWriter, r *http.Request) {
	userID := callerID(r)
	if userID == "" {
		sendError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	boards, err := h.BoardRepo.ListByUser(ctx, userID)
	if err != nil {
		sendStoreError(w, err)
		return
	}
	sendJSON(w, http.StatusOK, boards)
}

func (h *Handler) createBoard(w http.ResponseWriter, r *http.Request) {
	if !isJSONContentType(r) {
		sendError(w, "Content-Type must be application/json", http.StatusBadRequest)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB

	var input struct {
		Title   string   `json:"title"`
		UserIDs []string `json:"userIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		sendError(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" || len(input.Title) > 100 {
		sendError(w, "Title is required and must be <= 100 characters", http.StatusBadRequest)
		return
	}
	for _, id := range input.UserIDs {
		if _, err := uuid.Parse(id); err != nil {
			sendError(w, "userIds must be valid uuids", http.StatusBadRequest)
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	board, err := h.BoardRepo.Create(ctx, input.Title, input.UserIDs)
	if err != nil {
		sendStoreError(w, err)
		return
	}

	log.WithField("board_id", board.ID).Info("board created")
	w.Header().Set("Location", "/boards/"+board.ID.String())
	sendJSON(w, http.StatusCreated, board)
}

func (h *Handler) updateBoard(w http.ResponseWriter, r *http.Request, boardID uuid.UUID) {
	if !isJSONContentType(r) {
		sendError(w, "Content-Type must be application/json", http.StatusBadRequest)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var input struct {
		Title *string   `json:"title"`
		Users *[]string `json:"users"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		sendError(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" || len(title) > 100 {
			sendError(w, "Title is required and must be <= 100 characters", http.StatusBadRequest)
			return
		}
		input.Title = &title
	}
	if input.Users != nil {
		for _, id := range *input.Users {
			if _, err := uuid.Parse(id); err != nil {
				sendError(w, "users must be valid uuids", http.StatusBadRequest)
				return
			}
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	board, err := h.BoardRepo.Update(ctx, boardID.String(), db.UpdateBoardInput{
		Title:   input.Title,
		Members: input.Users,
	})
	if err != nil {
		sendStoreError(w, err)
		return
	}
	sendJSON(w, http.StatusOK, board)
}

func (h *Handler) deleteBoard(w http.ResponseWriter, r *http.Request, boardID uuid.UUID) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.BoardRepo.Delete(ctx, boardID.String()); err != nil {
		sendStoreError(w, err)
		return
	}
	log.WithField("board_id", boardID).Info("board deleted")
	w.WriteHeader(http.StatusNoContent)
}
