package db

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/SazonovV/boardsNexus/internal/models"
)

type UserRepositoryInterface interface {
	Create(ctx context.Context, in CreateUserInput) (*CreatedUser, error)
	Authenticate(ctx context.Context, login, password string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	Update(ctx context.Context, id string, in UpdateUserInput) (*models.User, error)
	Delete(ctx context.Context, id string) error
}

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

type CreateUserInput struct {
	Name    string
	Login   string
	IsAdmin bool
	// Password, when nil, is generated and returned once in CreatedUser.
	Password *string
}

type CreatedUser struct {
	User models.User
	// GeneratedPassword is set only when the password was generated here.
	// It is never persisted in plaintext and cannot be retrieved again.
	GeneratedPassword string
}

type UpdateUserInput struct {
	Name    *string
	Login   *string
	IsAdmin *bool
}

func (r *UserRepository) Create(ctx context.Context, in CreateUserInput) (*CreatedUser, error) {
	password := ""
	generated := false
	if in.Password != nil {
		password = *in.Password
	} else {
		p, err := generatePassword()
		if err != nil {
			return nil, err
		}
		password = p
		generated = true
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := models.User{
		ID:           uuid.New(),
		Name:         in.Name,
		Login:        in.Login,
		IsAdmin:      in.IsAdmin,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = runInTx(ctx, r.db, func(tx *sql.Tx) error {
		var exists bool
		err := tx.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM users WHERE login = $1)`, in.Login).Scan(&exists)
		if err != nil {
			return err
		}
		if exists {
			return ErrLoginTaken
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO users (id, name, login, is_admin, password_hash, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			user.ID, user.Name, user.Login, user.IsAdmin, user.PasswordHash,
			user.CreatedAt, user.UpdatedAt)
		return err
	})
	if err != nil {
		return nil, err
	}

	created := &CreatedUser{User: user}
	if generated {
		created.GeneratedPassword = password
	}
	return created, nil
}

// Authenticate returns (nil, nil) both for an unknown login and for a wrong
// password; the two cases are indistinguishable to the caller.
func (r *UserRepository) Authenticate(ctx context.Context, login, password string) (*models.User, error) {
	query := `SELECT ` + userColumns + `, password_hash FROM users WHERE login = $1`
	var u models.User
	err := r.db.QueryRowContext(ctx, query, login).Scan(
		&u.ID, &u.Name, &u.Login, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt, &u.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, nil
	}
	u.PasswordHash = ""
	return &u, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	var u models.User
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&u.ID, &u.Name, &u.Login, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) List(ctx context.Context) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, &u)
	}
	return users, rows.Err()
}

// Update replaces any provided field and leaves the rest unchanged. When no
// field is provided at all it is a no-op and returns (nil, nil).
func (r *UserRepository) Update(ctx context.Context, id string, in UpdateUserInput) (*models.User, error) {
	if in.Name == nil && in.Login == nil && in.IsAdmin == nil {
		return nil, nil
	}

	var updated models.User
	err := runInTx(ctx, r.db, func(tx *sql.Tx) error {
		query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
		err := tx.QueryRowContext(ctx, query, id).Scan(
			&updated.ID, &updated.Name, &updated.Login, &updated.IsAdmin,
			&updated.CreatedAt, &updated.UpdatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUserNotFound
		}
		if err != nil {
			return err
		}

		if in.Name != nil {
			updated.Name = *in.Name
		}
		if in.Login != nil && *in.Login != updated.Login {
			var exists bool
			err := tx.QueryRowContext(ctx,
				`SELECT EXISTS(SELECT 1 FROM users WHERE login = $1)`, *in.Login).Scan(&exists)
			if err != nil {
				return err
			}
			if exists {
				return ErrLoginTaken
			}
			updated.Login = *in.Login
		}
		if in.IsAdmin != nil {
			updated.IsAdmin = *in.IsAdmin
		}
		updated.UpdatedAt = time.Now().UTC()

		_, err = tx.ExecContext(ctx,
			`UPDATE users SET name = $1, login = $2, is_admin = $3, updated_at = $4 WHERE id = $5`,
			updated.Name, updated.Login, updated.IsAdmin, updated.UpdatedAt, updated.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes the user; board memberships and task assignments go with it
// through the cascading foreign keys, authored tasks keep a null author.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func generatePassword() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate password: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
