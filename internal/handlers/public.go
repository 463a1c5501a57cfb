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
	"github.com/SazonovV/boardsNexus/internal/models"
)

// Unauthenticated intake for external integrations (the telegram bot posts
// here). The author is identified by login; when no assignees are given the
// task is assigned to its author.

// POST /public/tasks
func (h *Handler) HandleCreatePublicTask(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !isJSONContentType(r) {
		sendError(w, "Content-Type must be application/json", http.StatusBadRequest)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB

	var input struct {
		Title       string   `json:"title"`
		Description string   `json:"description"`
		BoardID     string   `json:"boardId"`
		AuthorLogin string   `json:"authorLogin"`
		Status      string   `json:"status"`
		Assignees   []string `json:"assignees"` // logins, not ids
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		sendError(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" || input.BoardID == "" || input.AuthorLogin == "" {
		sendError(w, "Required fields: title, boardId, authorLogin", http.StatusBadRequest)
		return
	}
	if _, err := uuid.Parse(input.BoardID); err != nil {
		sendError(w, "boardId must be a valid uuid", http.StatusBadRequest)
		return
	}
	status := models.NormalizeStatus(input.Status)
	if status == "" {
		sendError(w, "Invalid status value", http.StatusBadRequest)
		return
	}
	if len(input.Assignees) == 0 {
		input.Assignees = []string{input.AuthorLogin}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	task, err := h.TaskRepo.Create(ctx, db.CreateTaskInput{
		Title:          input.Title,
		Description:    input.Description,
		BoardID:        input.BoardID,
		Status:         status,
		AuthorLogin:    input.AuthorLogin,
		AssigneeLogins: input.Assignees,
	})
	if err != nil {
		sendStoreError(w, err)
		return
	}

	log.WithFields(log.Fields{"task_id": task.ID, "board_id": task.BoardID}).Info("public task created")
	h.WSHub.BroadcastTaskEvent(task.BoardID, EventTaskCreated, task)
	sendJSON(w, http.StatusCreated, task)
}

// GET /public/boards/{id}/tasks-summary
func (h *Handler) HandlePublicBoard(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/public/boards/")
	boardIDStr, tail, _ := strings.Cut(rest, "/")
	if tail != "tasks-summary" || r.Method != http.MethodGet {
		sendError(w, "Not found", http.StatusNotFound)
		return
	}
	if _, err := uuid.Parse(boardIDStr); err != nil {
		sendError(w, "board id must be a valid uuid", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	summaries, err := h.TaskRepo.SummaryByBoard(ctx, boardIDStr)
	if err != nil {
		sendStoreError(w, err)
		return
	}
	sendJSON(w, http.StatusOK, summaries)
}
