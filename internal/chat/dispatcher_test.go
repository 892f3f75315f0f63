package chat

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/taskmarket/internal/eventbus"
)

type recordingOpener struct {
	mu    sync.Mutex
	calls [][3]string
}

func (r *recordingOpener) OpenConversation(_ context.Context, taskID, employerID, workerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, [3]string{taskID, employerID, workerID})
	return nil
}

func (r *recordingOpener) snapshot() [][3]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][3]string(nil), r.calls...)
}

func TestDispatcher_OpensConversationOnAccept(t *testing.T) {
	bus := eventbus.New()
	opener := &recordingOpener{}
	d := NewDispatcher(bus, opener)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Start(ctx)
		close(done)
	}()

	// The subscription is taken inside Start, so keep publishing until the
	// dispatcher has seen an event.
	require.Eventually(t, func() bool {
		bus.PublishNew(eventbus.OfferSubmitted, "t0", map[string]string{MetaWorkerID: "w0"})
		bus.PublishNew(eventbus.OfferAccepted, "t1", map[string]string{MetaEmployerID: "emp", MetaWorkerID: "w1"})
		return len(opener.snapshot()) > 0
	}, time.Second, 10*time.Millisecond)
	for _, call := range opener.snapshot() {
		assert.Equal(t, [3]string{"t1", "emp", "w1"}, call)
	}

	cancel()
	<-done
}

func TestDispatcher_IgnoresIncompleteEvent(t *testing.T) {
	opener := &recordingOpener{}
	d := NewDispatcher(eventbus.New(), opener)
	d.handleOfferAccepted(context.Background(), &eventbus.Event{
		Type: eventbus.OfferAccepted, ResourceID: "t2", Metadata: map[string]string{MetaEmployerID: "emp"},
	})
	assert.Empty(t, opener.snapshot())
}

func TestLogOpener(t *testing.T) {
	assert.NoError(t, LogOpener{}.OpenConversation(context.Background(), "t1", "emp", "w1"))
}

type panickingOpener struct{}

func (panickingOpener) OpenConversation(context.Context, string, string, string) error {
	panic("messaging backend exploded")
}

func TestDispatcher_SurvivesPanickingOpener(t *testing.T) {
	d := NewDispatcher(eventbus.New(), panickingOpener{})
	assert.NotPanics(t, func() {
		d.handleOfferAccepted(context.Background(), &eventbus.Event{
			Type:       eventbus.OfferAccepted,
			ResourceID: "t3",
			Metadata:   map[string]string{MetaEmployerID: "emp", MetaWorkerID: "w1"},
		})
	})
}
