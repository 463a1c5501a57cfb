package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type TaskStatus string

const (
	TaskStatusNew        TaskStatus = "new"
	TaskStatusInProgress TaskStatus = "in-progress"
	TaskStatusOnHold     TaskStatus = "on-hold"
	TaskStatusDone       TaskStatus = "done"
)

// convert various user inputs to standard status values
func NormalizeStatus(s string) TaskStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "new":
		return TaskStatusNew
	case "in-progress", "in_progress", "inprogress", "in progress":
		return TaskStatusInProgress
	case "on-hold", "on_hold", "onhold", "on hold":
		return TaskStatusOnHold
	case "done":
		return TaskStatusDone
	default:
		return ""
	}
}

type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Login        string    `json:"login"`
	IsAdmin      bool      `json:"isAdmin"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type Board struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Users     []User    `json:"users"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Task struct {
	ID          uuid.UUID  `json:"id"`
	BoardID     uuid.UUID  `json:"boardId"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
	Position    int        `json:"position"`
	Author      *User      `json:"author,omitempty"`
	Assignees   []User     `json:"assignees"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// TaskSummary is the unauthenticated board overview shape: no author,
// no assignees, no description.
type TaskSummary struct {
	ID       uuid.UUID  `json:"id"`
	Title    string     `json:"title"`
	Status   TaskStatus `json:"status"`
	Position int        `json:"position"`
}

// UserTasks groups a board's tasks by the assigned user.
type UserTasks struct {
	User  User   `json:"user"`
	Tasks []Task `json:"tasks"`
}
