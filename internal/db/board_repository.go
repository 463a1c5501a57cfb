package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/SazonovV/boardsNexus/internal/models"
)

type BoardRepositoryInterface interface {
	Create(ctx context.Context, title string, memberIDs []string) (*models.Board, error)
	GetByID(ctx context.Context, id string) (*models.Board, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Board, error)
	Update(ctx context.Context, id string, in UpdateBoardInput) (*models.Board, error)
	Delete(ctx context.Context, id string) error
}

type BoardRepository struct {
	db *sql.DB
}

func NewBoardRepository(db *sql.DB) *BoardRepository {
	return &BoardRepository{db: db}
}

type UpdateBoardInput struct {
	Title *string
	// Members, when non-nil, replaces the whole membership list
	// (delete-all, insert-all). An empty list removes every member.
	Members *[]string
}

func (r *BoardRepository) Create(ctx context.Context, title string, memberIDs []string) (*models.Board, error) {
	memberIDs = dedupe(memberIDs)

	now := time.Now().UTC()
	board := &models.Board{
		ID:        uuid.New(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := runInTx(ctx, r.db, func(tx *sql.Tx) error {
		found, err := usersByID(ctx, tx, memberIDs)
		if err != nil {
			return err
		}
		var missing []string
		for _, id := range memberIDs {
			if _, ok := found[id]; !ok {
				missing = append(missing, id)
			}
		}
		if len(missing) > 0 {
			return &UsersNotFoundError{Missing: missing}
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO boards (id, title, created_at, updated_at) VALUES ($1, $2, $3, $4)`,
			board.ID, board.Title, board.CreatedAt, board.UpdatedAt)
		if err != nil {
			return err
		}
		for _, userID := range memberIDs {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO board_users (board_id, user_id) VALUES ($1, $2)`,
				board.ID, userID)
			if err != nil {
				return err
			}
			board.Users = append(board.Users, found[userID])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return board, nil
}

func (r *BoardRepository) GetByID(ctx context.Context, id string) (*models.Board, error) {
	return getBoard(ctx, r.db, id)
}

func getBoard(ctx context.Context, q querier, id string) (*models.Board, error) {
	board := &models.Board{}
	err := q.QueryRowContext(ctx,
		`SELECT id, title, created_at, updated_at FROM boards WHERE id = $1`, id).Scan(
		&board.ID, &board.Title, &board.CreatedAt, &board.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBoardNotFound
	}
	if err != nil {
		return nil, err
	}
	members, err := boardMembers(ctx, q, []string{id})
	if err != nil {
		return nil, err
	}
	board.Users = members[id]
	return board, nil
}

// ListByUser returns every board where the user holds membership, each
// hydrated with its full member list.
func (r *BoardRepository) ListByUser(ctx context.Context, userID string) ([]*models.Board, error) {
	query := `SELECT b.id, b.title, b.created_at, b.updated_at
	 FROM boards b
	 WHERE EXISTS (SELECT 1 FROM board_users WHERE board_id = b.id AND user_id = $1)
	 ORDER BY b.created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var boards []*models.Board
	var boardIDs []string
	for rows.Next() {
		board := &models.Board{}
		if err := rows.Scan(&board.ID, &board.Title, &board.CreatedAt, &board.UpdatedAt); err != nil {
			return nil, err
		}
		boards = append(boards, board)
		boardIDs = append(boardIDs, board.ID.String())
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	members, err := boardMembers(ctx, r.db, boardIDs)
	if err != nil {
		return nil, err
	}
	for _, board := range boards {
		board.Users = members[board.ID.String()]
	}
	return boards, nil
}

// Update replaces the title if provided and, if a member list is provided,
// replaces the memberships wholesale rather than diffing them.
func (r *BoardRepository) Update(ctx context.Context, id string, in UpdateBoardInput) (*models.Board, error) {
	var board *models.Board
	err := runInTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`UPDATE boards SET title = COALESCE($1, title), updated_at = $2 WHERE id = $3`,
			in.Title, time.Now().UTC(), id)
		if err != nil {
			return err
		}

		if in.Members != nil {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM board_users WHERE board_id = $1`, id); err != nil {
				return err
			}
			for _, userID := range dedupe(*in.Members) {
				_, err := tx.ExecContext(ctx,
					`INSERT INTO board_users (board_id, user_id) VALUES ($1, $2)`,
					id, userID)
				if err != nil {
					return err
				}
			}
		}

		board, err = getBoard(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return board, nil
}

// Delete removes the board; memberships and tasks cascade.
func (r *BoardRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM boards WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrBoardNotFound
	}
	return nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
