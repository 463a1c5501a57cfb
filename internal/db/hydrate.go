package db

import (
	"context"
	"database/sql"

	"github.com/SazonovV/boardsNexus/internal/models"
)

// Hydration fetches flat rows and groups them by parent id in the
// application, instead of leaning on engine-specific JSON aggregation. This
// keeps the queries portable between the Postgres production driver and the
// sqlite test driver.

const userColumns = `id, name, login, is_admin, created_at, updated_at`

func scanUser(rows *sql.Rows, extra ...any) (models.User, error) {
	var u models.User
	dest := append(extra,
		&u.ID, &u.Name, &u.Login, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt)
	err := rows.Scan(dest...)
	return u, err
}

// usersByParent runs a join query selecting (parent_id, user columns) rows
// and groups the users by parent id.
func usersByParent(ctx context.Context, q querier, query string, parentIDs []string) (map[string][]models.User, error) {
	if len(parentIDs) == 0 {
		return map[string][]models.User{}, nil
	}
	args := make([]any, len(parentIDs))
	for i, id := range parentIDs {
		args[i] = id
	}
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	grouped := make(map[string][]models.User)
	for rows.Next() {
		var parentID string
		u, err := scanUser(rows, &parentID)
		if err != nil {
			return nil, err
		}
		grouped[parentID] = append(grouped[parentID], u)
	}
	return grouped, rows.Err()
}

// boardMembers returns the member list for every given board id.
func boardMembers(ctx context.Context, q querier, boardIDs []string) (map[string][]models.User, error) {
	query := `SELECT bu.board_id, u.id, u.name, u.login, u.is_admin, u.created_at, u.updated_at
	 FROM board_users bu
	 JOIN users u ON u.id = bu.user_id
	 WHERE bu.board_id IN (` + placeholders(1, len(boardIDs)) + `)
	 ORDER BY u.name`
	return usersByParent(ctx, q, query, boardIDs)
}

// taskAssignees returns the assignee list for every given task id.
func taskAssignees(ctx context.Context, q querier, taskIDs []string) (map[string][]models.User, error) {
	query := `SELECT ta.task_id, u.id, u.name, u.login, u.is_admin, u.created_at, u.updated_at
	 FROM task_assignees ta
	 JOIN users u ON u.id = ta.user_id
	 WHERE ta.task_id IN (` + placeholders(1, len(taskIDs)) + `)
	 ORDER BY u.name`
	return usersByParent(ctx, q, query, taskIDs)
}

// usersByID resolves a set of user ids to full user records, keyed by id.
// Unknown ids are simply absent from the result.
func usersByID(ctx context.Context, q querier, ids []string) (map[string]models.User, error) {
	if len(ids) == 0 {
		return map[string]models.User{}, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE id IN (` + placeholders(1, len(ids)) + `)`
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	found := make(map[string]models.User)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		found[u.ID.String()] = u
	}
	return found, rows.Err()
}
