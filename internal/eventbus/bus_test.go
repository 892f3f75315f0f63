package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_PublishSubscribe(t *testing.T) {
	b := New()
	id1, ch1 := b.Subscribe(4)
	_, ch2 := b.Subscribe(4)

	b.PublishNew(OfferAccepted, "t1", map[string]string{"offer_id": "o1"})

	for _, ch := range []<-chan *Event{ch1, ch2} {
		ev := <-ch
		assert.Equal(t, OfferAccepted, ev.Type)
		assert.Equal(t, "t1", ev.ResourceID)
		assert.Equal(t, "o1", ev.Metadata["offer_id"])
		assert.NotEmpty(t, ev.ID)
	}

	b.Unsubscribe(id1)
	_, ok := <-ch1
	assert.False(t, ok)
}

func TestBus_DropsWhenBufferFull(t *testing.T) {
	b := New()
	_, ch := b.Subscribe(1)
	b.PublishNew(TaskCreated, "t1", nil)
	b.PublishNew(TaskCreated, "t2", nil)

	ev := <-ch
	require.NotNil(t, ev)
	assert.Equal(t, "t1", ev.ResourceID)
	select {
	case ev := <-ch:
		t.Fatalf("unexpected event %v", ev)
	default:
	}
	assert.Equal(t, int64(1), b.Dropped())
}

func TestBus_FiltersByType(t *testing.T) {
	b := New()
	_, accepted := b.Subscribe(4, OfferAccepted)
	_, all := b.Subscribe(4)

	b.PublishNew(TaskCreated, "t1", nil)
	b.PublishNew(OfferAccepted, "t1", nil)

	ev := <-accepted
	assert.Equal(t, OfferAccepted, ev.Type)
	assert.Len(t, accepted, 0)
	assert.Len(t, all, 2)
	assert.Equal(t, int64(0), b.Dropped())
}

func TestBus_UnsubscribeUnknown(t *testing.T) {
	assert.NotPanics(t, func() { New().Unsubscribe("missing") })
}
