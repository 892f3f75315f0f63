// Package api exposes the task workflow over HTTP. Handlers report their
// result through cerr.SetJSONResponse or cerr.SetJSONError and rely on the
// cerr and clog chi middlewares to write and log it.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kazz187/taskmarket/internal/chat"
	"github.com/kazz187/taskmarket/internal/eventbus"
	"github.com/kazz187/taskmarket/internal/offer"
	"github.com/kazz187/taskmarket/internal/workflow"
	"github.com/kazz187/taskmarket/pkg/cerr"
	"github.com/kazz187/taskmarket/pkg/clog"
)

type Handler struct {
	engine   *workflow.Engine
	eventBus *eventbus.Bus
}

func NewHandler(engine *workflow.Engine, eventBus *eventbus.Bus) *Handler {
	return &Handler{
		engine:   engine,
		eventBus: eventBus,
	}
}

// Routes returns the router for /api/v1. The caller installs the clog and
// cerr middlewares around it.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(ActorMiddleware())

	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", h.listOpen)
		r.Post("/", h.createTask)
		r.Get("/mine", h.listMine)
		r.Route("/{taskID}", func(r chi.Router) {
			r.Get("/", h.getTask)
			r.Patch("/", h.updateTask)
			r.Delete("/", h.deleteTask)
			r.Get("/offers", h.listOffers)
			r.Post("/offers", h.submitOffer)
			r.Post("/offers/{offerID}/accept", h.acceptOffer)
			r.Post("/done", h.markDone)
			r.Post("/pay", h.pay)
			r.Post("/unassign", h.unassign)
		})
	})
	return r
}

func taskIDParam(r *http.Request) string {
	id := chi.URLParam(r, "taskID")
	clog.AddAttribute(r.Context(), "task_id", id)
	return id
}

func (h *Handler) createTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req createTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	t, err := h.engine.CreateTask(ctx, actorFromContext(ctx), req.fields())
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	clog.AddAttribute(ctx, "task_id", t.ID)
	h.eventBus.PublishNew(eventbus.TaskCreated, t.ID, map[string]string{chat.MetaEmployerID: t.AuthorID})
	cerr.SetJSONResponseWithStatus(ctx, http.StatusCreated, t)
}

func (h *Handler) listOpen(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	f, s, err := parseListQuery(r)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	tasks, err := h.engine.ListOpen(ctx, f, s)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, map[string]any{"tasks": nonNil(tasks)})
}

func (h *Handler) listMine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	f, s, err := parseListQuery(r)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	listings, err := h.engine.ListMine(ctx, actorFromContext(ctx), f, s)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, map[string]any{"tasks": nonNil(listings)})
}

func (h *Handler) getTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	taskID := taskIDParam(r)
	pending, err := parsePending(r)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	view, err := h.engine.View(ctx, actorFromContext(ctx), taskID, pending)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	view.Offers = nonNil(view.Offers)
	cerr.SetJSONResponse(ctx, view)
}

func (h *Handler) updateTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	taskID := taskIDParam(r)
	var req updateTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	t, err := h.engine.UpdateTask(ctx, actorFromContext(ctx), taskID, req.patch())
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	h.eventBus.PublishNew(eventbus.TaskUpdated, t.ID, nil)
	cerr.SetJSONResponse(ctx, t)
}

func (h *Handler) deleteTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	taskID := taskIDParam(r)
	if err := h.engine.DeleteTask(ctx, actorFromContext(ctx), taskID); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	h.eventBus.PublishNew(eventbus.TaskDeleted, taskID, nil)
	cerr.SetJSONResponse(ctx, map[string]string{"id": taskID})
}

func (h *Handler) listOffers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	taskID := taskIDParam(r)
	view, err := h.engine.View(ctx, actorFromContext(ctx), taskID, nil)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, map[string]any{"offers": nonNil(view.Offers)})
}

func (h *Handler) submitOffer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	taskID := taskIDParam(r)
	var req submitOfferRequest
	if err := decodeJSON(r, &req); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	o, err := h.engine.SubmitOffer(ctx, actorFromContext(ctx), taskID, int64(req.Amount))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	h.eventBus.PublishNew(eventbus.OfferSubmitted, taskID, map[string]string{
		chat.MetaOfferID:  o.ID,
		chat.MetaWorkerID: o.WorkerID,
	})
	cerr.SetJSONResponseWithStatus(ctx, http.StatusCreated, o)
}

func (h *Handler) acceptOffer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	taskID := taskIDParam(r)
	offerID := chi.URLParam(r, "offerID")
	t, err := h.engine.AcceptOffer(ctx, actorFromContext(ctx), taskID, offerID)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	meta := map[string]string{chat.MetaEmployerID: t.AuthorID, chat.MetaOfferID: offerID}
	if s, err := h.engine.Snapshot(ctx, taskID); err == nil {
		if o := offer.Accepted(s.Offers); o != nil && o.ID == offerID {
			meta[chat.MetaWorkerID] = o.WorkerID
		}
	}
	h.eventBus.PublishNew(eventbus.OfferAccepted, taskID, meta)
	cerr.SetJSONResponse(ctx, t)
}

func (h *Handler) markDone(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	taskID := taskIDParam(r)
	t, err := h.engine.MarkDone(ctx, actorFromContext(ctx), taskID)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	h.eventBus.PublishNew(eventbus.TaskMarkedDone, taskID, nil)
	cerr.SetJSONResponse(ctx, t)
}

func (h *Handler) pay(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	taskID := taskIDParam(r)
	t, err := h.engine.Pay(ctx, actorFromContext(ctx), taskID)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	h.eventBus.PublishNew(eventbus.TaskPaid, taskID, nil)
	cerr.SetJSONResponse(ctx, t)
}

func (h *Handler) unassign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	taskID := taskIDParam(r)
	t, err := h.engine.Unassign(ctx, actorFromContext(ctx), taskID)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	h.eventBus.PublishNew(eventbus.WorkerUnassigned, taskID, nil)
	cerr.SetJSONResponse(ctx, t)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
