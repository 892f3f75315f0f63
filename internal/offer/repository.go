package offer

import "context"

type Repository interface {
	Create(ctx context.Context, o *Offer) error
	Get(ctx context.Context, id string) (*Offer, error)
	// ListByTask returns the offers on a task, newest first.
	ListByTask(ctx context.Context, taskID string) ([]*Offer, error)
	// ListByWorker returns the offers submitted by a worker, newest first.
	ListByWorker(ctx context.Context, workerID string) ([]*Offer, error)
	// GetAccepted returns (nil, nil) when no offer on the task is accepted.
	GetAccepted(ctx context.Context, taskID string) (*Offer, error)
	SetAccepted(ctx context.Context, id string, accepted bool) error
	DeleteByTask(ctx context.Context, taskID string) error
}
