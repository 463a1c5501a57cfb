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

/*
handles routes:
- GET /tasks?board_id={board_id} - list tasks for a board
- POST /tasks - create a new task
*/
func (h *Handler) HandleTasks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listTasks(w, r)
	case http.MethodPost:
		h.createTask(w, r)
	default:
		sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

/*
handles routes:
- GET /tasks/by-user?board_id={board_id} - board tasks grouped by assignee
- PUT /tasks/{id}/move - change status and position
- PATCH /tasks/{id} - update title/description/assignees
- DELETE /tasks/{id}
*/
func (h *Handler) HandleTaskByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/tasks/")

	if rest == "by-user" {
		if r.Method != http.MethodGet {
			sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.listTasksByUser(w, r)
		return
	}

	idStr, action, _ := strings.Cut(rest, "/")
	taskID, err := uuid.Parse(idStr)
	if err != nil {
		sendError(w, "task id must be a valid uuid", http.StatusBadRequest)
		return
	}

	if action == "move" {
		if r.Method != http.MethodPut {
			sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.moveTask(w, r, taskID)
		return
	}
	if action != "" {
		sendError(w, "Not found", http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodPatch, http.MethodPut:
		h.updateTaskDetails(w, r, taskID)
	case http.MethodDelete:
		h.deleteTask(w, r, taskID)
	default:
		sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) listTasks(w http.ResponseWriter, r *http.Request) {
	boardIDStr := r.URL.Query().Get("board_id")
	if _, err := uuid.Parse(boardIDStr); err != nil {
		sendError(w, "board_id is required (uuid)", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	tasks, err := h.TaskRepo.ListByBoard(ctx, boardIDStr)
	if err != nil {
		sendStoreError(w, err)
		return
	}
	sendJSON(w, http.StatusOK, tasks)
}

func (h *Handler) listTasksByUser(w http.ResponseWriter, r *http.Request) {
	boardIDStr := r.URL.Query().Get("board_id")
	if _, err := uuid.Parse(boardIDStr); err != nil {
		sendError(w, "board_id is required (uuid)", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	grouped, err := h.TaskRepo.ListByBoardGroupedByUser(ctx, boardIDStr)
	if err != nil {
		sendStoreError(w, err)
		return
	}
	sendJSON(w, http.StatusOK, grouped)
}

func (h *Handler) createTask(w http.ResponseWriter, r *http.Request) {
	authorLogin := callerLogin(r)
	if authorLogin == "" {
		sendError(w, "Unauthorized", http.StatusUnauthorized)
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
		Status      string   `json:"status"`
		Assignees   []string `json:"assignees"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		sendError(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" || input.BoardID == "" {
		sendError(w, "title and boardId are required", http.StatusBadRequest)
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

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	task, err := h.TaskRepo.Create(ctx, db.CreateTaskInput{
		Title:       input.Title,
		Description: input.Description,
		BoardID:     input.BoardID,
		Status:      status,
		AuthorLogin: authorLogin,
		AssigneeIDs: input.Assignees,
	})
	if err != nil {
		sendStoreError(w, err)
		return
	}

	log.WithFields(log.Fields{"task_id": task.ID, "board_id": task.BoardID}).Info("task created")
	h.WSHub.BroadcastTaskEvent(task.BoardID, EventTaskCreated, task)
	w.Header().Set("Location", "/tasks/"+task.ID.String())
	sendJSON(w, http.StatusCreated, task)
}

func (h *Handler) moveTask(w http.ResponseWriter, r *http.Request, taskID uuid.UUID) {
	if !isJSONContentType(r) {
		sendError(w, "Content-Type must be application/json", http.StatusBadRequest)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var input struct {
		Status   string `json:"status"`
		Position int    `json:"position"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		sendError(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	status := models.NormalizeStatus(input.Status)
	if status == "" {
		sendError(w, "Invalid status value", http.StatusBadRequest)
		return
	}
	if input.Position < 1 {
		sendError(w, "position must be >= 1", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	task, err := h.TaskRepo.Move(ctx, taskID.String(), status, input.Position)
	if err != nil {
		sendStoreError(w, err)
		return
	}

	h.WSHub.BroadcastTaskEvent(task.BoardID, EventTaskMoved, task)
	sendJSON(w, http.StatusOK, task)
}

func (h *Handler) updateTaskDetails(w http.ResponseWriter, r *http.Request, taskID uuid.UUID) {
	if !isJSONContentType(r) {
		sendError(w, "Content-Type must be application/json", http.StatusBadRequest)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var input struct {
		Title       *string   `json:"title"`
		Description *string   `json:"description"`
		Assignees   *[]string `json:"assignees"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		sendError(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			sendError(w, "title cannot be empty", http.StatusBadRequest)
			return
		}
		if len(title) > 200 {
			sendError(w, "title too long (max 200 chars)", http.StatusBadRequest)
			return
		}
		input.Title = &title
	}
	if input.Description != nil && len(*input.Description) > 1000 {
		sendError(w, "description too long (max 1000 chars)", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	task, err := h.TaskRepo.UpdateDetails(ctx, taskID.String(), db.UpdateTaskInput{
		Title:       input.Title,
		Description: input.Description,
		Assignees:   input.Assignees,
	})
	if err != nil {
		sendStoreError(w, err)
		return
	}

	h.WSHub.BroadcastTaskEvent(task.BoardID, EventTaskUpdated, task)
	sendJSON(w, http.StatusOK, task)
}

func (h *Handler) deleteTask(w http.ResponseWriter, r *http.Request, taskID uuid.UUID) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	task, err := h.TaskRepo.GetByID(ctx, taskID.String())
	if err != nil {
		sendStoreError(w, err)
		return
	}
	if err := h.TaskRepo.Delete(ctx, taskID.String()); err != nil {
		sendStoreError(w, err)
		return
	}

	log.WithField("task_id", taskID).Info("task deleted")
	h.WSHub.BroadcastTaskDeleted(task.BoardID, taskID)
	w.WriteHeader(http.StatusNoContent)
}
