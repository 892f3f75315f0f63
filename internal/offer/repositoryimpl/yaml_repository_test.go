package repositoryimpl

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/taskmarket/internal/offer"
	"github.com/kazz187/taskmarket/pkg/cerr"
	"github.com/kazz187/taskmarket/pkg/storage"
)

func newRepo(t *testing.T) *YAMLRepository {
	t.Helper()
	s, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return NewYAMLRepository(s)
}

func TestYAMLRepository_Offers(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, o := range []*offer.Offer{
		{ID: "o1", TaskID: "t1", WorkerID: "w1", Amount: 80},
		{ID: "o2", TaskID: "t1", WorkerID: "w2", Amount: 95},
		{ID: "o3", TaskID: "t2", WorkerID: "w1", Amount: 40},
	} {
		o.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.Create(ctx, o))
	}
	assert.True(t, cerr.IsCode(repo.Create(ctx, &offer.Offer{ID: "o1"}), cerr.AlreadyExists))

	onTask, err := repo.ListByTask(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, onTask, 2)
	assert.Equal(t, "o2", onTask[0].ID)

	byWorker, err := repo.ListByWorker(ctx, "w1")
	require.NoError(t, err)
	require.Len(t, byWorker, 2)
	assert.Equal(t, "o3", byWorker[0].ID)

	accepted, err := repo.GetAccepted(ctx, "t1")
	require.NoError(t, err)
	assert.Nil(t, accepted)

	require.NoError(t, repo.SetAccepted(ctx, "o1", true))
	accepted, err = repo.GetAccepted(ctx, "t1")
	require.NoError(t, err)
	require.NotNil(t, accepted)
	assert.Equal(t, "o1", accepted.ID)

	require.NoError(t, repo.SetAccepted(ctx, "o1", false))
	accepted, err = repo.GetAccepted(ctx, "t1")
	require.NoError(t, err)
	assert.Nil(t, accepted)

	assert.True(t, cerr.IsCode(repo.SetAccepted(ctx, "nope", true), cerr.NotFound))

	require.NoError(t, repo.DeleteByTask(ctx, "t1"))
	onTask, err = repo.ListByTask(ctx, "t1")
	require.NoError(t, err)
	assert.Empty(t, onTask)
	_, err = repo.Get(ctx, "o3")
	require.NoError(t, err)
}

func TestYAMLRepository_GetAcceptedDetectsDoubleAccept(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	for i := range 2 {
		require.NoError(t, repo.Create(ctx, &offer.Offer{
			ID: fmt.Sprintf("o%d", i), TaskID: "t1", WorkerID: fmt.Sprintf("w%d", i), Accepted: true,
		}))
	}
	_, err := repo.GetAccepted(ctx, "t1")
	assert.True(t, cerr.IsCode(err, cerr.Aborted))
}
