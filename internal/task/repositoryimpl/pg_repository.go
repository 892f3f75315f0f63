package repositoryimpl

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/kazz187/taskmarket/internal/task"
	"github.com/kazz187/taskmarket/pkg/cerr"
	"github.com/kazz187/taskmarket/pkg/pgdb"
)

// PgRepository stores tasks in PostgreSQL. It runs against whatever Querier
// it is given, which is a transaction when used from pgstore.
type PgRepository struct {
	db pgdb.Querier
}

func NewPgRepository(db pgdb.Querier) *PgRepository {
	return &PgRepository{db: db}
}

var _ task.Repository = (*PgRepository)(nil)

const taskColumns = `id, author_id, title, description, category_id, budget, location, address,
	start_at, end_at, status, paid, version, created_at, updated_at`

func scanTask(row pgx.Row) (*task.Task, error) {
	var t task.Task
	err := row.Scan(&t.ID, &t.AuthorID, &t.Title, &t.Description, &t.CategoryID, &t.Budget,
		&t.Location, &t.Address, &t.StartAt, &t.EndAt, &t.Status, &t.Paid, &t.Version,
		&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *PgRepository) Create(ctx context.Context, t *task.Task) error {
	if t.Version == 0 {
		t.Version = 1
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		t.ID, t.AuthorID, t.Title, t.Description, t.CategoryID, t.Budget, t.Location, t.Address,
		t.StartAt, t.EndAt, t.Status, t.Paid, t.Version, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		if pgdb.IsUniqueViolation(err, "tasks_pkey") {
			return cerr.NewError(cerr.AlreadyExists, "task already exists", err)
		}
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("create task: %w", err))
	}
	return nil
}

func (r *PgRepository) Get(ctx context.Context, id string) (*task.Task, error) {
	t, err := scanTask(r.db.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
	if err != nil {
		if pgdb.IsNoRows(err) {
			return nil, cerr.NewError(cerr.NotFound, "task not found", err)
		}
		return nil, cerr.NewError(cerr.Internal, "server error", fmt.Errorf("get task %s: %w", id, err))
	}
	return t, nil
}

func (r *PgRepository) List(ctx context.Context, filter task.Filter, sort task.Sort) ([]*task.Task, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.Status != "" {
		where = append(where, "status = "+arg(filter.Status))
	}
	if filter.AuthorID != "" {
		where = append(where, "author_id = "+arg(filter.AuthorID))
	}
	if len(filter.CategoryIDs) > 0 {
		where = append(where, "category_id = ANY("+arg(filter.CategoryIDs)+")")
	}
	if filter.IDs != nil {
		where = append(where, "id = ANY("+arg(filter.IDs)+")")
	}
	if q := strings.TrimSpace(filter.Search); q != "" {
		p := arg("%" + q + "%")
		where = append(where, "(title ILIKE "+p+" OR description ILIKE "+p+")")
	}

	query := `SELECT ` + taskColumns + ` FROM tasks`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, cerr.NewError(cerr.Internal, "server error", fmt.Errorf("list tasks: %w", err))
	}
	defer rows.Close()

	var tasks []*task.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, cerr.NewError(cerr.Internal, "server error", fmt.Errorf("scan task: %w", err))
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, cerr.NewError(cerr.Internal, "server error", fmt.Errorf("list tasks: %w", err))
	}
	// Ordering is done in Go so every backend sorts titles the same way.
	task.SortTasks(tasks, sort)
	return tasks, nil
}

func (r *PgRepository) Update(ctx context.Context, t *task.Task) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE tasks SET title = $3, description = $4, category_id = $5, budget = $6, location = $7,
			address = $8, start_at = $9, end_at = $10, status = $11, paid = $12, updated_at = $13,
			version = version + 1
		WHERE id = $1 AND version = $2`,
		t.ID, t.Version, t.Title, t.Description, t.CategoryID, t.Budget, t.Location, t.Address,
		t.StartAt, t.EndAt, t.Status, t.Paid, t.UpdatedAt)
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("update task %s: %w", t.ID, err))
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.Get(ctx, t.ID); err != nil {
			return err
		}
		return cerr.NewError(cerr.Aborted, "task was modified concurrently",
			fmt.Errorf("task %s: version %d is stale", t.ID, t.Version))
	}
	t.Version++
	return nil
}

func (r *PgRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("delete task %s: %w", id, err))
	}
	if tag.RowsAffected() == 0 {
		return cerr.NewError(cerr.NotFound, "task not found", nil)
	}
	return nil
}
