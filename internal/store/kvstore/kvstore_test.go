package kvstore

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/taskmarket/internal/offer"
	"github.com/kazz187/taskmarket/internal/task"
	"github.com/kazz187/taskmarket/internal/workflow"
	"github.com/kazz187/taskmarket/pkg/cerr"
	"github.com/kazz187/taskmarket/pkg/storage"
)

// failingStorage fails writes to paths containing failOn once armed. With
// once set only the first such write fails.
type failingStorage struct {
	storage.Storage
	failOn string
	once   bool
	armed  atomic.Bool
}

var errInjected = errors.New("injected write failure")

func (s *failingStorage) Write(ctx context.Context, path string, data []byte) error {
	if !strings.Contains(path, s.failOn) {
		return s.Storage.Write(ctx, path, data)
	}
	if s.once && s.armed.CompareAndSwap(true, false) {
		return errInjected
	}
	if !s.once && s.armed.Load() {
		return errInjected
	}
	return s.Storage.Write(ctx, path, data)
}

func newLocal(t *testing.T) storage.Storage {
	t.Helper()
	s, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return s
}

func seed(t *testing.T, st *Store) {
	t.Helper()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, st.Atomic(ctx, "t1", func(ctx context.Context, tx workflow.Tx) error {
		if err := tx.Tasks().Create(ctx, &task.Task{ID: "t1", AuthorID: "emp", Title: "Fix fence", Budget: 100, Status: task.StatusOpen, CreatedAt: now}); err != nil {
			return err
		}
		return tx.Offers().Create(ctx, &offer.Offer{ID: "o1", TaskID: "t1", WorkerID: "w1", Amount: 80, CreatedAt: now})
	}))
}

func TestJournal_Rollback(t *testing.T) {
	ctx := context.Background()
	base := newLocal(t)
	require.NoError(t, base.Write(ctx, "a.yaml", []byte("old")))

	j := newJournal(base)
	require.NoError(t, j.Write(ctx, "a.yaml", []byte("new")))
	require.NoError(t, j.Write(ctx, "a.yaml", []byte("newer")))
	require.NoError(t, j.Write(ctx, "b.yaml", []byte("created")))
	require.NoError(t, j.Delete(ctx, "a.yaml"))

	require.NoError(t, j.rollback(ctx))

	data, err := base.Read(ctx, "a.yaml")
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))
	exists, err := base.Exists(ctx, "b.yaml")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestStore_AtomicRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	fs := &failingStorage{Storage: newLocal(t), failOn: "tasks/", once: true}
	st := New(fs)
	seed(t, st)

	fs.armed.Store(true)
	err := st.Atomic(ctx, "t1", func(ctx context.Context, tx workflow.Tx) error {
		if err := tx.Offers().SetAccepted(ctx, "o1", true); err != nil {
			return err
		}
		tk, err := tx.Tasks().Get(ctx, "t1")
		if err != nil {
			return err
		}
		tk.Status = task.StatusAssigned
		return tx.Tasks().Update(ctx, tk)
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, errInjected)
	assert.False(t, cerr.IsCode(err, cerr.DataLoss))

	o, err := st.Offers().Get(ctx, "o1")
	require.NoError(t, err)
	assert.False(t, o.Accepted)
	tk, err := st.Tasks().Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, task.StatusOpen, tk.Status)
	assert.Equal(t, int64(1), tk.Version)
}

func TestStore_AtomicReportsFailedRollback(t *testing.T) {
	ctx := context.Background()
	fs := &failingStorage{Storage: newLocal(t), failOn: "tasks/"}
	st := New(fs)
	seed(t, st)

	fs.armed.Store(true)
	err := st.Atomic(ctx, "t1", func(ctx context.Context, tx workflow.Tx) error {
		tk, err := tx.Tasks().Get(ctx, "t1")
		if err != nil {
			return err
		}
		tk.Status = task.StatusAssigned
		return tx.Tasks().Update(ctx, tk)
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, errInjected)
	assert.True(t, cerr.IsCode(err, cerr.DataLoss))
}

func TestStore_AtomicRollsBackCreatedRecords(t *testing.T) {
	ctx := context.Background()
	st := New(newLocal(t))
	boom := errors.New("boom")
	err := st.Atomic(ctx, "t2", func(ctx context.Context, tx workflow.Tx) error {
		if err := tx.Tasks().Create(ctx, &task.Task{ID: "t2", Title: "x", Budget: 1, Status: task.StatusOpen}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	_, err = st.Tasks().Get(ctx, "t2")
	assert.True(t, cerr.IsCode(err, cerr.NotFound))
}

func TestStore_ViewSeesCommittedState(t *testing.T) {
	ctx := context.Background()
	st := New(newLocal(t))
	seed(t, st)

	require.NoError(t, st.View(ctx, "t1", func(ctx context.Context, tx workflow.Tx) error {
		tk, err := tx.Tasks().Get(ctx, "t1")
		require.NoError(t, err)
		assert.Equal(t, "Fix fence", tk.Title)
		offers, err := tx.Offers().ListByTask(ctx, "t1")
		require.NoError(t, err)
		assert.Len(t, offers, 1)
		return nil
	}))
	assert.Equal(t, 0, st.locks.Len())
}
