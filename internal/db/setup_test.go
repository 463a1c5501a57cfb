package db

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/SazonovV/boardsNexus/internal/models"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	dbx, err := sql.Open("sqlite3", "file::memory:?_foreign_keys=on")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// a second pooled connection would see its own empty :memory: database
	dbx.SetMaxOpenConns(1)

	ddl := `
CREATE TABLE users (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  login TEXT NOT NULL UNIQUE,
  is_admin BOOLEAN NOT NULL DEFAULT 0,
  password_hash TEXT NOT NULL,
  created_at TIMESTAMP NOT NULL,
  updated_at TIMESTAMP NOT NULL
);
CREATE TABLE boards (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  created_at TIMESTAMP NOT NULL,
  updated_at TIMESTAMP NOT NULL
);
CREATE TABLE board_users (
  board_id TEXT NOT NULL REFERENCES boards(id) ON DELETE CASCADE,
  user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  PRIMARY KEY (board_id, user_id)
);
CREATE TABLE tasks (
  id TEXT PRIMARY KEY,
  board_id TEXT NOT NULL REFERENCES boards(id) ON DELETE CASCADE,
  author_id TEXT REFERENCES users(id) ON DELETE SET NULL,
  title TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL,
  position INTEGER NOT NULL CHECK (position >= 1),
  created_at TIMESTAMP NOT NULL,
  updated_at TIMESTAMP NOT NULL
);
CREATE TABLE task_assignees (
  task_id TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
  user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  PRIMARY KEY (task_id, user_id)
);
`
	if _, err := dbx.Exec(ddl); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	t.Cleanup(func() { dbx.Close() })
	return dbx
}

func insertUser(t *testing.T, dbx *sql.DB, name, login string, admin bool) models.User {
	t.Helper()
	now := time.Now().UTC()
	u := models.User{
		ID:        uuid.New(),
		Name:      name,
		Login:     login,
		IsAdmin:   admin,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := dbx.Exec(
		`INSERT INTO users (id, name, login, is_admin, password_hash, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		u.ID, u.Name, u.Login, u.IsAdmin, "x", u.CreatedAt, u.UpdatedAt)
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}
	return u
}

func insertBoard(t *testing.T, dbx *sql.DB, title string, members ...models.User) models.Board {
	t.Helper()
	now := time.Now().UTC()
	b := models.Board{
		ID:        uuid.New(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := dbx.Exec(
		`INSERT INTO boards (id, title, created_at, updated_at) VALUES ($1,$2,$3,$4)`,
		b.ID, b.Title, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		t.Fatalf("insert board: %v", err)
	}
	for _, m := range members {
		if _, err := dbx.Exec(
			`INSERT INTO board_users (board_id, user_id) VALUES ($1,$2)`, b.ID, m.ID); err != nil {
			t.Fatalf("insert membership: %v", err)
		}
	}
	return b
}

// positions returns the sorted positions of one (board, status) bucket.
func positions(t *testing.T, dbx *sql.DB, boardID uuid.UUID, status models.TaskStatus) []int {
	t.Helper()
	rows, err := dbx.Query(
		`SELECT position FROM tasks WHERE board_id = $1 AND status = $2 ORDER BY position`,
		boardID, status)
	if err != nil {
		t.Fatalf("query positions: %v", err)
	}
	defer rows.Close()

	var out []int
	for rows.Next() {
		var p int
		if err := rows.Scan(&p); err != nil {
			t.Fatalf("scan position: %v", err)
		}
		out = append(out, p)
	}
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// assertContiguous fails unless the bucket's positions are exactly 1..N.
func assertContiguous(t *testing.T, dbx *sql.DB, boardID uuid.UUID, status models.TaskStatus) {
	t.Helper()
	got := positions(t, dbx, boardID, status)
	for i, p := range got {
		if p != i+1 {
			t.Fatalf("bucket (%s, %s) not contiguous: %v", boardID, status, got)
		}
	}
}

func mustCreateTask(t *testing.T, repo *TaskRepository, in CreateTaskInput) *models.Task {
	t.Helper()
	task, err := repo.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	return task
}
