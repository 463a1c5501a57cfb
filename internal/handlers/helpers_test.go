package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/SazonovV/boardsNexus/internal/db"
	"github.com/SazonovV/boardsNexus/internal/models"
)

func setupHandler(t *testing.T) (*Handler, *sql.DB) {
	t.Helper()
	dbx, err := sql.Open("sqlite3", "file::memory:?_foreign_keys=on")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
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

	return &Handler{
		UserRepo:  db.NewUserRepository(dbx),
		BoardRepo: db.NewBoardRepository(dbx),
		TaskRepo:  db.NewTaskRepository(dbx),
		WSHub:     NewWSHub(),
	}, dbx
}

func seedUser(t *testing.T, dbx *sql.DB, name, login string, admin bool) models.User {
	t.Helper()
	now := time.Now().UTC()
	u := models.User{
		ID: uuid.New(), Name: name, Login: login, IsAdmin: admin,
		CreatedAt: now, UpdatedAt: now,
	}
	_, err := dbx.Exec(
		`INSERT INTO users (id, name, login, is_admin, password_hash, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		u.ID, u.Name, u.Login, u.IsAdmin, "x", u.CreatedAt, u.UpdatedAt)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func seedBoard(t *testing.T, dbx *sql.DB, title string, members ...models.User) models.Board {
	t.Helper()
	now := time.Now().UTC()
	b := models.Board{ID: uuid.New(), Title: title, CreatedAt: now, UpdatedAt: now}
	if _, err := dbx.Exec(
		`INSERT INTO boards (id, title, created_at, updated_at) VALUES ($1,$2,$3,$4)`,
		b.ID, b.Title, b.CreatedAt, b.UpdatedAt); err != nil {
		t.Fatalf("seed board: %v", err)
	}
	for _, m := range members {
		if _, err := dbx.Exec(
			`INSERT INTO board_users (board_id, user_id) VALUES ($1,$2)`, b.ID, m.ID); err != nil {
			t.Fatalf("seed membership: %v", err)
		}
	}
	return b
}

// ctxWithCaller mimics what AuthMiddleware puts into the request context.
func ctxWithCaller(r *http.Request, u models.User) *http.Request {
	ctx := context.WithValue(r.Context(), "user_id", u.ID.String())
	ctx = context.WithValue(ctx, "user_login", u.Login)
	ctx = context.WithValue(ctx, "is_admin", u.IsAdmin)
	return r.WithContext(ctx)
}
