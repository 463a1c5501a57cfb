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

// POST /login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	clientIP := r.RemoteAddr
	if h.RateLimiter != nil && !h.RateLimiter.Allow(clientIP) {
		log.WithField("ip", clientIP).Warn("login rate limit exceeded")
		sendError(w, "Too many login attempts. Please try again later.", http.StatusTooManyRequests)
		return
	}

	var input struct {
		Login    string `json:"login"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		sendError(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	if input.Login == "" || input.Password == "" {
		sendError(w, "login and password are required", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	user, err := h.UserRepo.Authenticate(ctx, input.Login, input.Password)
	if err != nil {
		sendStoreError(w, err)
		return
	}
	if user == nil {
		// unknown login and wrong password are deliberately the same answer
		sendError(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := GenerateToken(user)
	if err != nil {
		log.WithError(err).Error("generate token")
		sendError(w, "Cannot create token", http.StatusInternalServerError)
		return
	}

	log.WithField("login", user.Login).Info("user logged in")
	sendJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  user,
	})
}

/*
handles routes:
- GET /users - list users (admin)
- POST /users - create user (admin)
*/
func (h *Handler) HandleUsers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.AdminMiddleware(h.listUsers)(w, r)
	case http.MethodPost:
		h.AdminMiddleware(h.createUser)(w, r)
	default:
		sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	users, err := h.UserRepo.List(ctx)
	if err != nil {
		sendStoreError(w, err)
		return
	}
	sendJSON(w, http.StatusOK, users)
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	if !isJSONContentType(r) {
		sendError(w, "Content-Type must be application/json", http.StatusBadRequest)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB

	var input struct {
		Name     string  `json:"name"`
		Login    string  `json:"login"`
		IsAdmin  bool    `json:"isAdmin"`
		Password *string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		sendError(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	input.Name = strings.TrimSpace(input.Name)
	input.Login = strings.TrimSpace(input.Login)
	if input.Name == "" || input.Login == "" {
		sendError(w, "name and login are required", http.StatusBadRequest)
		return
	}
	if input.Password != nil && len(*input.Password) < 4 {
		sendError(w, "Password must be at least 4 characters long", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	created, err := h.UserRepo.Create(ctx, db.CreateUserInput{
		Name:     input.Name,
		Login:    input.Login,
		IsAdmin:  input.IsAdmin,
		Password: input.Password,
	})
	if err != nil {
		sendStoreError(w, err)
		return
	}

	log.WithField("login", created.User.Login).Info("user created")
	response := map[string]any{"user": created.User}
	if created.GeneratedPassword != "" {
		// the only place the generated password ever leaves the system
		response["generatedPassword"] = created.GeneratedPassword
	}
	sendJSON(w, http.StatusCreated, response)
}

/*
handles routes:
- GET /users/me - current user
- PUT /users/{id} - update user (admin)
- DELETE /users/{id} - delete user (admin)
*/
func (h *Handler) HandleUserByID(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimPrefix(r.URL.Path, "/users/")
	if idStr == "me" {
		if r.Method != http.MethodGet {
			sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.currentUser(w, r)
		return
	}

	userID, err := uuid.Parse(idStr)
	if err != nil {
		sendError(w, "user id must be a valid uuid", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodPut, http.MethodPatch:
		h.AdminMiddleware(func(w http.ResponseWriter, r *http.Request) {
			h.updateUser(w, r, userID)
		})(w, r)
	case http.MethodDelete:
		h.AdminMiddleware(func(w http.ResponseWriter, r *http.Request) {
			h.deleteUser(w, r, userID)
		})(w, r)
	default:
		sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) {
	userID := callerID(r)
	if userID == "" {
		sendError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	user, err := h.UserRepo.GetByID(ctx, userID)
	if err != nil {
		sendStoreError(w, err)
		return
	}
	sendJSON(w, http.StatusOK, user)
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	if !isJSONContentType(r) {
		sendError(w, "Content-Type must be application/json", http.StatusBadRequest)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var input struct {
		Name    *string `json:"name"`
		Login   *string `json:"login"`
		IsAdmin *bool   `json:"isAdmin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		sendError(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	user, err := h.UserRepo.Update(ctx, userID.String(), db.UpdateUserInput{
		Name:    input.Name,
		Login:   input.Login,
		IsAdmin: input.IsAdmin,
	})
	if err != nil {
		sendStoreError(w, err)
		return
	}
	if user == nil {
		// nothing to change
		sendError(w, "User not found", http.StatusNotFound)
		return
	}
	sendJSON(w, http.StatusOK, user)
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.UserRepo.Delete(ctx, userID.String()); err != nil {
		sendStoreError(w, err)
		return
	}
	log.WithField("user_id", userID).Info("user deleted")
	w.WriteHeader(http.StatusNoContent)
}
