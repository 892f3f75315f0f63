package repositoryimpl

import (
	"context"
	"fmt"

	"github.com/kazz187/taskmarket/internal/offer"
	"github.com/kazz187/taskmarket/pkg/cerr"
	"github.com/kazz187/taskmarket/pkg/storage"
)

const offersPrefix = "offers"

// YAMLRepository keeps one YAML blob per offer under offers/. Lookups by
// task or worker scan the whole directory.
type YAMLRepository struct {
	storage storage.Storage
}

func NewYAMLRepository(s storage.Storage) *YAMLRepository {
	return &YAMLRepository{storage: s}
}

var _ offer.Repository = (*YAMLRepository)(nil)

func path(id string) string {
	return offersPrefix + "/" + id + ".yaml"
}

func (r *YAMLRepository) Create(ctx context.Context, o *offer.Offer) error {
	exists, err := r.storage.Exists(ctx, path(o.ID))
	if err != nil {
		return cerr.WrapStorage(cerr.OpRead, "offer", err)
	}
	if exists {
		return cerr.NewError(cerr.AlreadyExists, "offer already exists", nil)
	}
	return r.write(ctx, o)
}

func (r *YAMLRepository) Get(ctx context.Context, id string) (*offer.Offer, error) {
	o, err := storage.GetYAML[offer.Offer](ctx, r.storage, path(id))
	if err != nil {
		return nil, cerr.WrapStorage(cerr.OpRead, "offer", err)
	}
	return o, nil
}

func (r *YAMLRepository) list(ctx context.Context, keep func(*offer.Offer) bool) ([]*offer.Offer, error) {
	all, err := storage.ScanYAML[offer.Offer](ctx, r.storage, offersPrefix)
	if err != nil {
		return nil, cerr.WrapStorage(cerr.OpRead, "offers", err)
	}
	var out []*offer.Offer
	for _, o := range all {
		if keep(o) {
			out = append(out, o)
		}
	}
	offer.SortNewestFirst(out)
	return out, nil
}

func (r *YAMLRepository) ListByTask(ctx context.Context, taskID string) ([]*offer.Offer, error) {
	return r.list(ctx, func(o *offer.Offer) bool { return o.TaskID == taskID })
}

func (r *YAMLRepository) ListByWorker(ctx context.Context, workerID string) ([]*offer.Offer, error) {
	return r.list(ctx, func(o *offer.Offer) bool { return o.WorkerID == workerID })
}

func (r *YAMLRepository) GetAccepted(ctx context.Context, taskID string) (*offer.Offer, error) {
	accepted, err := r.list(ctx, func(o *offer.Offer) bool { return o.TaskID == taskID && o.Accepted })
	if err != nil {
		return nil, err
	}
	switch len(accepted) {
	case 0:
		return nil, nil
	case 1:
		return accepted[0], nil
	}
	return nil, cerr.NewError(cerr.Aborted, "task has more than one accepted offer",
		fmt.Errorf("task %s: %d accepted offers", taskID, len(accepted)))
}

func (r *YAMLRepository) SetAccepted(ctx context.Context, id string, accepted bool) error {
	o, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if o.Accepted == accepted {
		return nil
	}
	o.Accepted = accepted
	return r.write(ctx, o)
}

func (r *YAMLRepository) DeleteByTask(ctx context.Context, taskID string) error {
	offers, err := r.ListByTask(ctx, taskID)
	if err != nil {
		return err
	}
	for _, o := range offers {
		if err := r.storage.Delete(ctx, path(o.ID)); err != nil {
			return cerr.WrapStorage(cerr.OpDelete, "offer", err)
		}
	}
	return nil
}

func (r *YAMLRepository) write(ctx context.Context, o *offer.Offer) error {
	if err := storage.PutYAML(ctx, r.storage, path(o.ID), o); err != nil {
		return cerr.WrapStorage(cerr.OpWrite, "offer", err)
	}
	return nil
}
