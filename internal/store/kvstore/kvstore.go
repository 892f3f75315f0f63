// Package kvstore runs workflow units of work over a blob storage.
//
// Units are serialized per task with an in-process lock and made atomic by
// journaling the prior contents of every blob they touch; on failure the
// journal is replayed backwards. This gives all-or-nothing semantics for a
// single process. Run several processes against the same storage only with
// the pgstore.
package kvstore

import (
	"context"
	"errors"

	"github.com/kazz187/taskmarket/internal/offer"
	offerrepo "github.com/kazz187/taskmarket/internal/offer/repositoryimpl"
	"github.com/kazz187/taskmarket/internal/task"
	taskrepo "github.com/kazz187/taskmarket/internal/task/repositoryimpl"
	"github.com/kazz187/taskmarket/internal/workflow"
	"github.com/kazz187/taskmarket/pkg/cerr"
	"github.com/kazz187/taskmarket/pkg/keylock"
	"github.com/kazz187/taskmarket/pkg/storage"
)

type Store struct {
	storage storage.Storage
	locks   *keylock.Map
	tasks   task.Repository
	offers  offer.Repository
}

var _ workflow.Store = (*Store)(nil)

func New(s storage.Storage) *Store {
	locks := keylock.New()
	return &Store{
		storage: s,
		locks:   locks,
		tasks:   &lockedTasks{Repository: taskrepo.NewYAMLRepository(s), locks: locks},
		offers:  &lockedOffers{Repository: offerrepo.NewYAMLRepository(s), locks: locks},
	}
}

type tx struct {
	tasks  task.Repository
	offers offer.Repository
}

func (t *tx) Tasks() task.Repository   { return t.tasks }
func (t *tx) Offers() offer.Repository { return t.offers }

func (s *Store) Atomic(ctx context.Context, taskID string, fn func(ctx context.Context, tx workflow.Tx) error) error {
	unlock := s.locks.Lock(taskID)
	defer unlock()

	j := newJournal(s.storage)
	unit := &tx{
		tasks:  taskrepo.NewYAMLRepository(j),
		offers: offerrepo.NewYAMLRepository(j),
	}
	err := fn(ctx, unit)
	if err == nil {
		return nil
	}
	if rbErr := j.rollback(context.WithoutCancel(ctx)); rbErr != nil {
		return cerr.NewError(cerr.DataLoss, "failed to roll back task update", errors.Join(err, rbErr))
	}
	return err
}

func (s *Store) View(ctx context.Context, taskID string, fn func(ctx context.Context, tx workflow.Tx) error) error {
	unlock := s.locks.RLock(taskID)
	defer unlock()
	return fn(ctx, &tx{
		tasks:  taskrepo.NewYAMLRepository(s.storage),
		offers: offerrepo.NewYAMLRepository(s.storage),
	})
}

func (s *Store) Tasks() task.Repository   { return s.tasks }
func (s *Store) Offers() offer.Repository { return s.offers }

// lockedTasks and lockedOffers take the shared task lock around reads that
// are scoped to one task, so they never see a unit half applied. Writes
// through them take the exclusive lock and are not journaled.
type lockedTasks struct {
	task.Repository
	locks *keylock.Map
}

func (r *lockedTasks) Get(ctx context.Context, id string) (*task.Task, error) {
	defer r.locks.RLock(id)()
	return r.Repository.Get(ctx, id)
}

func (r *lockedTasks) Create(ctx context.Context, t *task.Task) error {
	defer r.locks.Lock(t.ID)()
	return r.Repository.Create(ctx, t)
}

func (r *lockedTasks) Update(ctx context.Context, t *task.Task) error {
	defer r.locks.Lock(t.ID)()
	return r.Repository.Update(ctx, t)
}

func (r *lockedTasks) Delete(ctx context.Context, id string) error {
	defer r.locks.Lock(id)()
	return r.Repository.Delete(ctx, id)
}

type lockedOffers struct {
	offer.Repository
	locks *keylock.Map
}

func (r *lockedOffers) ListByTask(ctx context.Context, taskID string) ([]*offer.Offer, error) {
	defer r.locks.RLock(taskID)()
	return r.Repository.ListByTask(ctx, taskID)
}

func (r *lockedOffers) GetAccepted(ctx context.Context, taskID string) (*offer.Offer, error) {
	defer r.locks.RLock(taskID)()
	return r.Repository.GetAccepted(ctx, taskID)
}

func (r *lockedOffers) DeleteByTask(ctx context.Context, taskID string) error {
	defer r.locks.Lock(taskID)()
	return r.Repository.DeleteByTask(ctx, taskID)
}
