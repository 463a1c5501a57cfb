package handlers

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/SazonovV/boardsNexus/internal/models"
)

// WSHub fans task events out to every websocket subscribed to a board.
type WSHub struct {
	connections map[uuid.UUID]map[*websocket.Conn]bool
	mutex       sync.Mutex
}

func NewWSHub() *WSHub {
	return &WSHub{connections: make(map[uuid.UUID]map[*websocket.Conn]bool)}
}

const (
	EventTaskCreated = "task_created"
	EventTaskUpdated = "task_updated"
	EventTaskMoved   = "task_moved"
	EventTaskDeleted = "task_deleted"
)

// BroadcastTaskEvent sends a task event to all subscribers of the board.
// Dead connections are dropped on write failure.
func (hub *WSHub) BroadcastTaskEvent(boardID uuid.UUID, event string, task *models.Task) {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()

	conns, exists := hub.connections[boardID]
	if !exists {
		return
	}

	payload := map[string]any{"event": event}
	if task != nil {
		payload["task"] = task
	}
	message, err := json.Marshal(payload)
	if err != nil {
		log.WithError(err).Error("marshal task event")
		return
	}

	for conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
			log.WithError(err).Warn("drop websocket subscriber")
			delete(conns, conn)
			conn.Close()
		}
	}
}

// BroadcastTaskDeleted carries only the task id, the row is already gone.
func (hub *WSHub) BroadcastTaskDeleted(boardID, taskID uuid.UUID) {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()

	conns, exists := hub.connections[boardID]
	if !exists {
		return
	}
	message, err := json.Marshal(map[string]any{
		"event":   EventTaskDeleted,
		"task_id": taskID,
	})
	if err != nil {
		log.WithError(err).Error("marshal task event")
		return
	}
	for conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
			delete(conns, conn)
			conn.Close()
		}
	}
}

// HandleWebSocket subscribes the caller to one board's task events.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	clientIP := r.RemoteAddr
	if h.RateLimiter != nil && !h.RateLimiter.Allow(clientIP) {
		sendError(w, "Too many connection attempts", http.StatusTooManyRequests)
		return
	}

	boardIDStr := r.URL.Query().Get("board_id")
	boardID, err := uuid.Parse(boardIDStr)
	if err != nil {
		sendError(w, "board_id is required (uuid)", http.StatusBadRequest)
		return
	}
	if _, err := h.BoardRepo.GetByID(r.Context(), boardIDStr); err != nil {
		sendStoreError(w, err)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Error("websocket upgrade failed")
		return
	}

	h.WSHub.mutex.Lock()
	if h.WSHub.connections[boardID] == nil {
		h.WSHub.connections[boardID] = make(map[*websocket.Conn]bool)
	}
	h.WSHub.connections[boardID][conn] = true
	h.WSHub.mutex.Unlock()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.WSHub.mutex.Lock()
			delete(h.WSHub.connections[boardID], conn)
			h.WSHub.mutex.Unlock()
			conn.Close()
			return
		}
	}
}
