package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHandleBoards_MethodNotAllowed(t *testing.T) {
	h, dbx := setupHandler(t)
	user := seedUser(t, dbx, "Admin", "admin", true)

	req := httptest.NewRequest(http.MethodDelete, "/boards", nil)
	req = ctxWithCaller(req, user)
	rec := httptest.NewRecorder()
	h.HandleBoards(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("want 405, got %d", rec.Code)
	}
}

func TestCreateBoard_AdminOnly(t *testing.T) {
	h, dbx := setupHandler(t)
	user := seedUser(t, dbx, "Bob", "bob", false)

	req := httptest.NewRequest(http.MethodPost, "/boards", bytes.NewBufferString(`{"title":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	req = ctxWithCaller(req, user)
	rec := httptest.NewRecorder()
	h.HandleBoards(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("want 403 for non-admin, got %d", rec.Code)
	}
}

func TestCreateBoard(t *testing.T) {
	h, dbx := setupHandler(t)
	admin := seedUser(t, dbx, "Admin", "admin", true)
	alice := seedUser(t, dbx, "Alice", "alice", false)

	body := fmt.Sprintf(`{"title":"Sprint","userIds":["%s","%s"]}`, admin.ID, alice.ID)
	req := httptest.NewRequest(http.MethodPost, "/boards", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req = ctxWithCaller(req, admin)
	rec := httptest.NewRecorder()
	h.HandleBoards(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("want 201, got %d body=%s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Title string `json:"title"`
		Users []struct {
			Login string `json:"login"`
		} `json:"users"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Title != "Sprint" || len(resp.Users) != 2 {
		t.Errorf("unexpected board response: %s", rec.Body.String())
	}
}

func TestCreateBoard_UnknownMember(t *testing.T) {
	h, dbx := setupHandler(t)
	admin := seedUser(t, dbx, "Admin", "admin", true)

	body := `{"title":"Sprint","userIds":["2f9d9f1e-9f1f-4d6a-8c8f-000000000000"]}`
	req := httptest.NewRequest(http.MethodPost, "/boards", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req = ctxWithCaller(req, admin)
	rec := httptest.NewRecorder()
	h.HandleBoards(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("want 400 for unknown member, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestListBoards_OnlyMemberships(t *testing.T) {
	h, dbx := setupHandler(t)
	alice := seedUser(t, dbx, "Alice", "alice", false)
	bob := seedUser(t, dbx, "Bob", "bob", false)
	seedBoard(t, dbx, "Shared", alice, bob)
	seedBoard(t, dbx, "Bob only", bob)

	req := httptest.NewRequest(http.MethodGet, "/boards", nil)
	req = ctxWithCaller(req, alice)
	rec := httptest.NewRecorder()
	h.HandleBoards(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	var boards []struct {
		Title string `json:"title"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &boards); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(boards) != 1 || boards[0].Title != "Shared" {
		t.Errorf("want only the shared board, got %s", rec.Body.String())
	}
}

func TestUpdateBoard_EmptyMemberListClears(t *testing.T) {
	h, dbx := setupHandler(t)
	admin := seedUser(t, dbx, "Admin", "admin", true)
	board := seedBoard(t, dbx, "Sprint", admin)

	req := httptest.NewRequest(http.MethodPut, "/boards/"+board.ID.String(),
		bytes.NewBufferString(`{"users":[]}`))
	req.Header.Set("Content-Type", "application/json")
	req = ctxWithCaller(req, admin)
	rec := httptest.NewRecorder()
	h.HandleBoardByID(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	var count int
	if err := dbx.QueryRow(`SELECT COUNT(*) FROM board_users WHERE board_id = $1`, board.ID).Scan(&count); err != nil {
		t.Fatalf("count memberships: %v", err)
	}
	if count != 0 {
		t.Errorf("want zero members after empty replace, got %d", count)
	}
}

func TestDeleteBoard(t *testing.T) {
	h, dbx := setupHandler(t)
	admin := seedUser(t, dbx, "Admin", "admin", true)
	board := seedBoard(t, dbx, "Sprint", admin)

	req := httptest.NewRequest(http.MethodDelete, "/boards/"+board.ID.String(), nil)
	req = ctxWithCaller(req, admin)
	rec := httptest.NewRecorder()
	h.HandleBoardByID(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("want 204, got %d body=%s", rec.Code, rec.Body.String())
	}

	rec2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodDelete, "/boards/"+board.ID.String(), nil)
	req2 = ctxWithCaller(req2, admin)
	h.HandleBoardByID(rec2, req2)
	if rec2.Code != http.StatusNotFound {
		t.Fatalf("want 404 on second delete, got %d", rec2.Code)
	}
}

func TestHandleBoardByID_InvalidID(t *testing.T) {
	h, dbx := setupHandler(t)
	admin := seedUser(t, dbx, "Admin", "admin", true)

	req := httptest.NewRequest(http.MethodDelete, "/boards/not-a-uuid", nil)
	req = ctxWithCaller(req, admin)
	rec := httptest.NewRecorder()
	h.HandleBoardByID(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("want 400, got %d", rec.Code)
	}
}
