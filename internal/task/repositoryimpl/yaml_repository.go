package repositoryimpl

import (
	"context"
	"fmt"

	"github.com/kazz187/taskmarket/internal/task"
	"github.com/kazz187/taskmarket/pkg/cerr"
	"github.com/kazz187/taskmarket/pkg/storage"
)

const tasksPrefix = "tasks"

// YAMLRepository keeps one YAML blob per task under tasks/.
type YAMLRepository struct {
	storage storage.Storage
}

func NewYAMLRepository(s storage.Storage) *YAMLRepository {
	return &YAMLRepository{storage: s}
}

var _ task.Repository = (*YAMLRepository)(nil)

func path(id string) string {
	return tasksPrefix + "/" + id + ".yaml"
}

func (r *YAMLRepository) Create(ctx context.Context, t *task.Task) error {
	exists, err := r.storage.Exists(ctx, path(t.ID))
	if err != nil {
		return cerr.WrapStorage(cerr.OpRead, "task", err)
	}
	if exists {
		return cerr.NewError(cerr.AlreadyExists, "task already exists", nil)
	}
	if t.Version == 0 {
		t.Version = 1
	}
	return r.put(ctx, t)
}

func (r *YAMLRepository) Get(ctx context.Context, id string) (*task.Task, error) {
	t, err := storage.GetYAML[task.Task](ctx, r.storage, path(id))
	if err != nil {
		return nil, cerr.WrapStorage(cerr.OpRead, "task", err)
	}
	return t, nil
}

func (r *YAMLRepository) List(ctx context.Context, filter task.Filter, sort task.Sort) ([]*task.Task, error) {
	all, err := storage.ScanYAML[task.Task](ctx, r.storage, tasksPrefix)
	if err != nil {
		return nil, cerr.WrapStorage(cerr.OpRead, "tasks", err)
	}
	return task.Select(all, filter, sort), nil
}

// Update writes t only when the stored version still matches t.Version.
func (r *YAMLRepository) Update(ctx context.Context, t *task.Task) error {
	current, err := r.Get(ctx, t.ID)
	if err != nil {
		return err
	}
	if current.Version != t.Version {
		return cerr.NewError(cerr.Aborted, "task was modified concurrently",
			fmt.Errorf("task %s: stored version %d, write based on %d", t.ID, current.Version, t.Version))
	}
	t.Version++
	if err := r.put(ctx, t); err != nil {
		t.Version--
		return err
	}
	return nil
}

func (r *YAMLRepository) Delete(ctx context.Context, id string) error {
	if err := r.storage.Delete(ctx, path(id)); err != nil {
		return cerr.WrapStorage(cerr.OpDelete, "task", err)
	}
	return nil
}

func (r *YAMLRepository) put(ctx context.Context, t *task.Task) error {
	if err := storage.PutYAML(ctx, r.storage, path(t.ID), t); err != nil {
		return cerr.WrapStorage(cerr.OpWrite, "task", err)
	}
	return nil
}
