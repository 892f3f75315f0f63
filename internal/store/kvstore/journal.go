package kvstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kazz187/taskmarket/pkg/storage"
)

type journalEntry struct {
	path    string
	data    []byte
	existed bool
}

// journal wraps a Storage and remembers what every path held before the
// first mutation of a unit, so the unit can be undone by writing it back.
type journal struct {
	storage.Storage

	mu      sync.Mutex
	entries []journalEntry
	seen    map[string]struct{}
}

func newJournal(s storage.Storage) *journal {
	return &journal{Storage: s, seen: make(map[string]struct{})}
}

func (j *journal) record(ctx context.Context, path string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if _, ok := j.seen[path]; ok {
		return nil
	}
	data, err := j.Storage.Read(ctx, path)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		j.entries = append(j.entries, journalEntry{path: path})
	case err != nil:
		return fmt.Errorf("journal %s: %w", path, err)
	default:
		j.entries = append(j.entries, journalEntry{path: path, data: data, existed: true})
	}
	j.seen[path] = struct{}{}
	return nil
}

func (j *journal) Write(ctx context.Context, path string, data []byte) error {
	if err := j.record(ctx, path); err != nil {
		return err
	}
	return j.Storage.Write(ctx, path, data)
}

func (j *journal) Delete(ctx context.Context, path string) error {
	if err := j.record(ctx, path); err != nil {
		return err
	}
	return j.Storage.Delete(ctx, path)
}

// rollback restores every recorded path in reverse order. It keeps going
// after a failure and returns all errors joined.
func (j *journal) rollback(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	var errs []error
	for i := len(j.entries) - 1; i >= 0; i-- {
		e := j.entries[i]
		var err error
		if e.existed {
			err = j.Storage.Write(ctx, e.path, e.data)
		} else {
			err = j.Storage.Delete(ctx, e.path)
			if errors.Is(err, storage.ErrNotFound) {
				err = nil
			}
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("restore %s: %w", e.path, err))
		}
	}
	j.entries = nil
	return errors.Join(errs...)
}
