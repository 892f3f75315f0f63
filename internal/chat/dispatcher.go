package chat

import (
	"context"
	"log/slog"

	"github.com/kazz187/taskmarket/internal/eventbus"
	"github.com/kazz187/taskmarket/pkg/panicerr"
)

// Metadata keys carried by eventbus.OfferAccepted.
const (
	MetaEmployerID = "employer_id"
	MetaWorkerID   = "worker_id"
	MetaOfferID    = "offer_id"
)

type Dispatcher struct {
	eventBus *eventbus.Bus
	opener   Opener
}

func NewDispatcher(eventBus *eventbus.Bus, opener Opener) *Dispatcher {
	return &Dispatcher{
		eventBus: eventBus,
		opener:   opener,
	}
}

func (d *Dispatcher) Start(ctx context.Context) {
	subID, ch := d.eventBus.Subscribe(256, eventbus.OfferAccepted)
	defer d.eventBus.Unsubscribe(subID)

	slog.Info("chat dispatcher started")
	for {
		select {
		case <-ctx.Done():
			slog.Info("chat dispatcher stopped")
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			if event.Type == eventbus.OfferAccepted {
				d.handleOfferAccepted(ctx, event)
			}
		}
	}
}

func (d *Dispatcher) handleOfferAccepted(ctx context.Context, event *eventbus.Event) {
	employerID := event.Metadata[MetaEmployerID]
	workerID := event.Metadata[MetaWorkerID]
	if employerID == "" || workerID == "" {
		slog.Warn("chat dispatcher: accepted event without participants", "task_id", event.ResourceID)
		return
	}
	err := panicerr.Call(func() error {
		return d.opener.OpenConversation(ctx, event.ResourceID, employerID, workerID)
	})
	if err != nil {
		slog.Error("chat dispatcher: failed to open conversation", "task_id", event.ResourceID, "error", err)
	}
}
