package task

import "context"

type Repository interface {
	Create(ctx context.Context, t *Task) error
	Get(ctx context.Context, id string) (*Task, error)
	List(ctx context.Context, filter Filter, sort Sort) ([]*Task, error)
	// Update fails with cerr.Aborted when t.Version does not match the stored
	// version. On success t.Version is incremented.
	Update(ctx context.Context, t *Task) error
	Delete(ctx context.Context, id string) error
}
