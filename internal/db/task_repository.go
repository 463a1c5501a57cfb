package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/SazonovV/boardsNexus/internal/models"
)

// TaskRepository owns task rows and the position bookkeeping inside each
// (board, status) bucket: positions are unique and contiguous from 1 after
// every committed operation, except for the gap a task leaves behind when it
// moves to another status or is deleted (see Move).
type TaskRepositoryInterface interface {
	Create(ctx context.Context, in CreateTaskInput) (*models.Task, error)
	GetByID(ctx context.Context, id string) (*models.Task, error)
	Move(ctx context.Context, id string, status models.TaskStatus, position int) (*models.Task, error)
	UpdateDetails(ctx context.Context, id string, in UpdateTaskInput) (*models.Task, error)
	Delete(ctx context.Context, id string) error
	ListByBoard(ctx context.Context, boardID string) ([]*models.Task, error)
}

type TaskRepository struct {
	db *sql.DB
}

func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

type CreateTaskInput struct {
	Title       string
	Description string
	BoardID     string
	// Status defaults to "new" when empty.
	Status models.TaskStatus
	// AuthorLogin must resolve to an existing user.
	AuthorLogin string
	// AssigneeIDs and AssigneeLogins are both resolved to users; identifiers
	// that resolve to nobody are dropped silently.
	AssigneeIDs    []string
	AssigneeLogins []string
}

type UpdateTaskInput struct {
	Title       *string
	Description *string
	// Assignees, when non-nil, replaces the whole assignment list (an empty
	// list clears it). When nil, assignments stay untouched.
	Assignees *[]string
}

// Create appends the task at the end of its (board, status) bucket:
// position = 1 + max(position), or 1 for an empty bucket.
func (r *TaskRepository) Create(ctx context.Context, in CreateTaskInput) (*models.Task, error) {
	status := in.Status
	if status == "" {
		status = models.TaskStatusNew
	}

	var task *models.Task
	err := runInTx(ctx, r.db, func(tx *sql.Tx) error {
		var boardExists bool
		err := tx.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM boards WHERE id = $1)`, in.BoardID).Scan(&boardExists)
		if err != nil {
			return err
		}
		if !boardExists {
			return ErrBoardNotFound
		}

		var authorID uuid.UUID
		err = tx.QueryRowContext(ctx,
			`SELECT id FROM users WHERE login = $1`, in.AuthorLogin).Scan(&authorID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrAuthorNotFound
		}
		if err != nil {
			return err
		}

		var position int
		err = tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(position), 0) + 1 FROM tasks WHERE board_id = $1 AND status = $2`,
			in.BoardID, status).Scan(&position)
		if err != nil {
			return err
		}

		id := uuid.New()
		now := time.Now().UTC()
		_, err = tx.ExecContext(ctx,
			`INSERT INTO tasks (id, board_id, author_id, title, description, status, position, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			id, in.BoardID, authorID, in.Title, in.Description, status, position, now, now)
		if err != nil {
			return err
		}

		assigneeIDs, err := resolveAssignees(ctx, tx, in.AssigneeIDs, in.AssigneeLogins)
		if err != nil {
			return err
		}
		for _, userID := range assigneeIDs {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO task_assignees (task_id, user_id) VALUES ($1, $2)`,
				id, userID)
			if err != nil {
				return err
			}
		}

		task, err = getTask(ctx, tx, id.String())
		return err
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (r *TaskRepository) GetByID(ctx context.Context, id string) (*models.Task, error) {
	return getTask(ctx, r.db, id)
}

// Move changes the task's status and position inside its board. The target
// position is 1-based and clamped into the valid range of the target bucket.
// Within one bucket the move behaves like remove-then-insert, so repeating a
// move to the current slot changes nothing. Moving across statuses opens a
// slot in the target bucket but leaves the vacated position in the source
// bucket as a gap.
func (r *TaskRepository) Move(ctx context.Context, id string, status models.TaskStatus, position int) (*models.Task, error) {
	var task *models.Task
	err := runInTx(ctx, r.db, func(tx *sql.Tx) error {
		var boardID string
		var srcStatus models.TaskStatus
		var srcPosition int
		err := tx.QueryRowContext(ctx,
			`SELECT board_id, status, position FROM tasks WHERE id = $1`, id).Scan(
			&boardID, &srcStatus, &srcPosition)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTaskNotFound
		}
		if err != nil {
			return err
		}

		var bucketSize int
		err = tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM tasks WHERE board_id = $1 AND status = $2`,
			boardID, status).Scan(&bucketSize)
		if err != nil {
			return err
		}

		sameBucket := srcStatus == status
		maxPosition := bucketSize
		if !sameBucket {
			maxPosition = bucketSize + 1
		}
		if position < 1 {
			position = 1
		}
		if position > maxPosition {
			position = maxPosition
		}

		if sameBucket {
			// Close the slot the task occupies, then open one at the target.
			// The moving row itself is excluded; it is overwritten below.
			_, err = tx.ExecContext(ctx,
				`UPDATE tasks SET position = position - 1
				 WHERE board_id = $1 AND status = $2 AND position > $3 AND id <> $4`,
				boardID, status, srcPosition, id)
			if err != nil {
				return err
			}
			_, err = tx.ExecContext(ctx,
				`UPDATE tasks SET position = position + 1
				 WHERE board_id = $1 AND status = $2 AND position >= $3 AND id <> $4`,
				boardID, status, position, id)
			if err != nil {
				return err
			}
		} else {
			_, err = tx.ExecContext(ctx,
				`UPDATE tasks SET position = position + 1
				 WHERE board_id = $1 AND status = $2 AND position >= $3`,
				boardID, status, position)
			if err != nil {
				return err
			}
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE tasks SET status = $1, position = $2, updated_at = $3 WHERE id = $4`,
			status, position, time.Now().UTC(), id)
		if err != nil {
			return err
		}

		task, err = getTask(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// UpdateDetails replaces title/description if provided and, if an assignee
// list is provided, replaces the assignments wholesale. Status and position
// are Move's business and stay untouched here.
func (r *TaskRepository) UpdateDetails(ctx context.Context, id string, in UpdateTaskInput) (*models.Task, error) {
	var task *models.Task
	err := runInTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE tasks SET title = COALESCE($1, title),
			        description = COALESCE($2, description),
			        updated_at = $3
			 WHERE id = $4`,
			in.Title, in.Description, time.Now().UTC(), id)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrTaskNotFound
		}

		if in.Assignees != nil {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM task_assignees WHERE task_id = $1`, id); err != nil {
				return err
			}
			assigneeIDs, err := resolveAssignees(ctx, tx, *in.Assignees, nil)
			if err != nil {
				return err
			}
			for _, userID := range assigneeIDs {
				_, err := tx.ExecContext(ctx,
					`INSERT INTO task_assignees (task_id, user_id) VALUES ($1, $2)`,
					id, userID)
				if err != nil {
					return err
				}
			}
		}

		task, err = getTask(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// Delete removes the task; assignment rows cascade. Remaining positions in
// its former bucket are not renumbered.
func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// ListByBoard returns the board's tasks ordered by position, hydrated with
// author and assignees.
func (r *TaskRepository) ListByBoard(ctx context.Context, boardID string) ([]*models.Task, error) {
	tasks, err := listTasks(ctx, r.db, boardID)
	if err != nil {
		return nil, err
	}
	if err := hydrateTasks(ctx, r.db, tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// ListByBoardGroupedByUser returns the board's tasks bucketed per assignee.
// Tasks without assignees are absent from the result.
func (r *TaskRepository) ListByBoardGroupedByUser(ctx context.Context, boardID string) ([]models.UserTasks, error) {
	tasks, err := r.ListByBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}

	order := []uuid.UUID{}
	grouped := map[uuid.UUID]*models.UserTasks{}
	for _, task := range tasks {
		for _, assignee := range task.Assignees {
			group, ok := grouped[assignee.ID]
			if !ok {
				group = &models.UserTasks{User: assignee}
				grouped[assignee.ID] = group
				order = append(order, assignee.ID)
			}
			group.Tasks = append(group.Tasks, *task)
		}
	}

	out := make([]models.UserTasks, 0, len(order))
	for _, userID := range order {
		out = append(out, *grouped[userID])
	}
	return out, nil
}

// SummaryByBoard is the unauthenticated overview: no hydration at all.
func (r *TaskRepository) SummaryByBoard(ctx context.Context, boardID string) ([]models.TaskSummary, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, status, position FROM tasks WHERE board_id = $1 ORDER BY status, position`,
		boardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := []models.TaskSummary{}
	for rows.Next() {
		var s models.TaskSummary
		if err := rows.Scan(&s.ID, &s.Title, &s.Status, &s.Position); err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

func listTasks(ctx context.Context, q querier, boardID string) ([]*models.Task, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, board_id, author_id, title, description, status, position, created_at, updated_at
		 FROM tasks WHERE board_id = $1 ORDER BY position`,
		boardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

func scanTask(rows *sql.Rows) (*models.Task, error) {
	task := &models.Task{}
	var authorID sql.NullString
	err := rows.Scan(
		&task.ID, &task.BoardID, &authorID, &task.Title, &task.Description,
		&task.Status, &task.Position, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if authorID.Valid {
		// carried through hydrateTasks via the placeholder author
		task.Author = &models.User{ID: uuid.MustParse(authorID.String)}
	}
	return task, nil
}

func getTask(ctx context.Context, q querier, id string) (*models.Task, error) {
	task := &models.Task{}
	var authorID sql.NullString
	err := q.QueryRowContext(ctx,
		`SELECT id, board_id, author_id, title, description, status, position, created_at, updated_at
		 FROM tasks WHERE id = $1`, id).Scan(
		&task.ID, &task.BoardID, &authorID, &task.Title, &task.Description,
		&task.Status, &task.Position, &task.CreatedAt, &task.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}
	if authorID.Valid {
		task.Author = &models.User{ID: uuid.MustParse(authorID.String)}
	}
	if err := hydrateTasks(ctx, q, []*models.Task{task}); err != nil {
		return nil, err
	}
	return task, nil
}

// hydrateTasks attaches assignee lists and full author records to tasks that
// so far carry only ids.
func hydrateTasks(ctx context.Context, q querier, tasks []*models.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	taskIDs := make([]string, 0, len(tasks))
	authorIDs := make([]string, 0, len(tasks))
	for _, task := range tasks {
		taskIDs = append(taskIDs, task.ID.String())
		if task.Author != nil {
			authorIDs = append(authorIDs, task.Author.ID.String())
		}
	}

	assignees, err := taskAssignees(ctx, q, taskIDs)
	if err != nil {
		return err
	}
	authors, err := usersByID(ctx, q, dedupe(authorIDs))
	if err != nil {
		return err
	}

	for _, task := range tasks {
		task.Assignees = assignees[task.ID.String()]
		if task.Assignees == nil {
			task.Assignees = []models.User{}
		}
		if task.Author != nil {
			if author, ok := authors[task.Author.ID.String()]; ok {
				task.Author = &author
			}
		}
	}
	return nil
}

// resolveAssignees maps assignee ids and logins to existing user ids,
// silently dropping identifiers that resolve to nobody.
func resolveAssignees(ctx context.Context, q querier, ids, logins []string) ([]string, error) {
	resolved := []string{}
	found, err := usersByID(ctx, q, dedupe(ids))
	if err != nil {
		return nil, err
	}
	for _, id := range dedupe(ids) {
		if _, ok := found[id]; ok {
			resolved = append(resolved, id)
		}
	}

	for _, login := range dedupe(logins) {
		var id string
		err := q.QueryRowContext(ctx, `SELECT id FROM users WHERE login = $1`, login).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, id)
	}
	return dedupe(resolved), nil
}
