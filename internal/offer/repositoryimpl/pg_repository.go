package repositoryimpl

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/kazz187/taskmarket/internal/offer"
	"github.com/kazz187/taskmarket/pkg/cerr"
	"github.com/kazz187/taskmarket/pkg/pgdb"
)

// AcceptedIndex is the partial unique index that keeps at most one accepted
// offer per task at the database level.
const AcceptedIndex = "offers_one_accepted_per_task"

type PgRepository struct {
	db pgdb.Querier
}

func NewPgRepository(db pgdb.Querier) *PgRepository {
	return &PgRepository{db: db}
}

var _ offer.Repository = (*PgRepository)(nil)

const offerColumns = `id, task_id, worker_id, amount, accepted, created_at`

func scanOffer(row pgx.Row) (*offer.Offer, error) {
	var o offer.Offer
	if err := row.Scan(&o.ID, &o.TaskID, &o.WorkerID, &o.Amount, &o.Accepted, &o.CreatedAt); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *PgRepository) Create(ctx context.Context, o *offer.Offer) error {
	_, err := r.db.Exec(ctx, `INSERT INTO offers (`+offerColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		o.ID, o.TaskID, o.WorkerID, o.Amount, o.Accepted, o.CreatedAt)
	if err != nil {
		if pgdb.IsUniqueViolation(err, "offers_pkey") {
			return cerr.NewError(cerr.AlreadyExists, "offer already exists", err)
		}
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("create offer: %w", err))
	}
	return nil
}

func (r *PgRepository) Get(ctx context.Context, id string) (*offer.Offer, error) {
	o, err := scanOffer(r.db.QueryRow(ctx, `SELECT `+offerColumns+` FROM offers WHERE id = $1`, id))
	if err != nil {
		if pgdb.IsNoRows(err) {
			return nil, cerr.NewError(cerr.NotFound, "offer not found", err)
		}
		return nil, cerr.NewError(cerr.Internal, "server error", fmt.Errorf("get offer %s: %w", id, err))
	}
	return o, nil
}

func (r *PgRepository) query(ctx context.Context, sql string, args ...any) ([]*offer.Offer, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, cerr.NewError(cerr.Internal, "server error", fmt.Errorf("list offers: %w", err))
	}
	defer rows.Close()
	var out []*offer.Offer
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, cerr.NewError(cerr.Internal, "server error", fmt.Errorf("scan offer: %w", err))
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, cerr.NewError(cerr.Internal, "server error", fmt.Errorf("list offers: %w", err))
	}
	return out, nil
}

func (r *PgRepository) ListByTask(ctx context.Context, taskID string) ([]*offer.Offer, error) {
	return r.query(ctx, `SELECT `+offerColumns+` FROM offers WHERE task_id = $1 ORDER BY created_at DESC, id DESC`, taskID)
}

func (r *PgRepository) ListByWorker(ctx context.Context, workerID string) ([]*offer.Offer, error) {
	return r.query(ctx, `SELECT `+offerColumns+` FROM offers WHERE worker_id = $1 ORDER BY created_at DESC, id DESC`, workerID)
}

func (r *PgRepository) GetAccepted(ctx context.Context, taskID string) (*offer.Offer, error) {
	o, err := scanOffer(r.db.QueryRow(ctx, `SELECT `+offerColumns+` FROM offers WHERE task_id = $1 AND accepted`, taskID))
	if err != nil {
		if pgdb.IsNoRows(err) {
			return nil, nil
		}
		return nil, cerr.NewError(cerr.Internal, "server error", fmt.Errorf("get accepted offer of %s: %w", taskID, err))
	}
	return o, nil
}

func (r *PgRepository) SetAccepted(ctx context.Context, id string, accepted bool) error {
	tag, err := r.db.Exec(ctx, `UPDATE offers SET accepted = $2 WHERE id = $1`, id, accepted)
	if err != nil {
		if pgdb.IsUniqueViolation(err, AcceptedIndex) {
			return cerr.NewError(cerr.Aborted, "task already has an accepted offer", err)
		}
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("set accepted on %s: %w", id, err))
	}
	if tag.RowsAffected() == 0 {
		return cerr.NewError(cerr.NotFound, "offer not found", nil)
	}
	return nil
}

func (r *PgRepository) DeleteByTask(ctx context.Context, taskID string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM offers WHERE task_id = $1`, taskID); err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("delete offers of %s: %w", taskID, err))
	}
	return nil
}
