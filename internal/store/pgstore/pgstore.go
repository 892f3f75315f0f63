// Package pgstore runs workflow units of work as PostgreSQL transactions.
package pgstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kazz187/taskmarket/internal/offer"
	offerrepo "github.com/kazz187/taskmarket/internal/offer/repositoryimpl"
	"github.com/kazz187/taskmarket/internal/task"
	taskrepo "github.com/kazz187/taskmarket/internal/task/repositoryimpl"
	"github.com/kazz187/taskmarket/internal/workflow"
	"github.com/kazz187/taskmarket/pkg/cerr"
	"github.com/kazz187/taskmarket/pkg/pgdb"
)

type Store struct {
	pool *pgxpool.Pool
}

var _ workflow.Store = (*Store)(nil)

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS tasks (
		id          TEXT PRIMARY KEY,
		author_id   TEXT NOT NULL,
		title       TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		category_id INTEGER NOT NULL DEFAULT 0,
		budget      BIGINT NOT NULL CHECK (budget > 0),
		location    TEXT NOT NULL DEFAULT '',
		address     TEXT NOT NULL DEFAULT '',
		start_at    TIMESTAMPTZ,
		end_at      TIMESTAMPTZ,
		status      TEXT NOT NULL,
		paid        BOOLEAN NOT NULL DEFAULT FALSE,
		version     BIGINT NOT NULL DEFAULT 1,
		created_at  TIMESTAMPTZ NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL,
		CHECK (NOT paid OR status = 'Completed')
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_author ON tasks(author_id)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status)`,
	`CREATE TABLE IF NOT EXISTS offers (
		id         TEXT PRIMARY KEY,
		task_id    TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
		worker_id  TEXT NOT NULL,
		amount     BIGINT NOT NULL CHECK (amount > 0),
		accepted   BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_offers_task ON offers(task_id)`,
	`CREATE INDEX IF NOT EXISTS idx_offers_worker ON offers(worker_id)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ` + offerrepo.AcceptedIndex + ` ON offers(task_id) WHERE accepted`,
}

// EnsureSchema creates the tables and indexes if they don't exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

type tx struct {
	tasks  task.Repository
	offers offer.Repository
}

func (t *tx) Tasks() task.Repository   { return t.tasks }
func (t *tx) Offers() offer.Repository { return t.offers }

func newTx(q pgdb.Querier) *tx {
	return &tx{tasks: taskrepo.NewPgRepository(q), offers: offerrepo.NewPgRepository(q)}
}

// Atomic locks the task row for the duration of the transaction. A task that
// does not exist yet is not locked, which is what CreateTask needs.
func (s *Store) Atomic(ctx context.Context, taskID string, fn func(ctx context.Context, tx workflow.Tx) error) error {
	pgTx, err := s.pool.Begin(ctx)
	if err != nil {
		return cerr.NewError(cerr.Unavailable, "database unavailable", fmt.Errorf("begin tx: %w", err))
	}
	defer pgTx.Rollback(context.WithoutCancel(ctx)) //nolint:errcheck

	var locked string
	err = pgTx.QueryRow(ctx, `SELECT id FROM tasks WHERE id = $1 FOR UPDATE`, taskID).Scan(&locked)
	if err != nil && !pgdb.IsNoRows(err) {
		return conflictOr(err, "lock task")
	}

	if err := fn(ctx, newTx(pgTx)); err != nil {
		return conflictOr(err, "")
	}
	if err := pgTx.Commit(ctx); err != nil {
		return conflictOr(err, "commit")
	}
	return nil
}

func (s *Store) View(ctx context.Context, taskID string, fn func(ctx context.Context, tx workflow.Tx) error) error {
	pgTx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return cerr.NewError(cerr.Unavailable, "database unavailable", fmt.Errorf("begin tx: %w", err))
	}
	defer pgTx.Rollback(context.WithoutCancel(ctx)) //nolint:errcheck

	if err := fn(ctx, newTx(pgTx)); err != nil {
		return err
	}
	return pgTx.Commit(ctx)
}

func (s *Store) Tasks() task.Repository   { return taskrepo.NewPgRepository(s.pool) }
func (s *Store) Offers() offer.Repository { return offerrepo.NewPgRepository(s.pool) }

// conflictOr turns errors raised by a concurrent transaction into Aborted
// and leaves everything else as it is.
func conflictOr(err error, op string) error {
	if pgdb.IsConflict(err) {
		return cerr.NewError(cerr.Aborted, "task was modified concurrently", err)
	}
	var ce *cerr.Error
	if errors.As(err, &ce) || op == "" {
		return err
	}
	return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("%s: %w", op, err))
}
