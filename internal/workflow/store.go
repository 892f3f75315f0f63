package workflow

import (
	"context"

	"github.com/kazz187/taskmarket/internal/offer"
	"github.com/kazz187/taskmarket/internal/task"
)

// Tx exposes the repositories bound to one unit of work.
type Tx interface {
	Tasks() task.Repository
	Offers() offer.Repository
}

// Store persists tasks and offers.
//
// Atomic runs fn as a single unit of work scoped to one task: either every
// write fn makes is applied or none is, and no reader observes a partially
// applied unit. View runs fn with a consistent read of the task. The
// repositories returned by Tasks and Offers are used for cross-task listings
// and carry no such guarantee.
type Store interface {
	Atomic(ctx context.Context, taskID string, fn func(ctx context.Context, tx Tx) error) error
	View(ctx context.Context, taskID string, fn func(ctx context.Context, tx Tx) error) error
	Tasks() task.Repository
	Offers() offer.Repository
}
