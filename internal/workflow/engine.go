// Package workflow runs the task lifecycle: offers, acceptance, completion,
// payment, unassignment and deletion. Every transition checks the actor and
// the current status inside one unit of work of the Store and returns the
// resulting snapshot. The engine does not log and never retries.
package workflow

import (
	"context"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/kazz187/taskmarket/internal/access"
	"github.com/kazz187/taskmarket/internal/actor"
	"github.com/kazz187/taskmarket/internal/offer"
	"github.com/kazz187/taskmarket/internal/pricing"
	"github.com/kazz187/taskmarket/internal/task"
)

type Engine struct {
	store Store
	now   func() time.Time
	newID func() string
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

func NewEngine(store Store, opts ...Option) *Engine {
	e := &Engine{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
		newID: func() string { return ulid.Make().String() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) CreateTask(ctx context.Context, a actor.Actor, f task.Fields) (*task.Task, error) {
	if !a.Valid() || !a.IsEmployer() {
		return nil, forbidden("only employers can create tasks")
	}
	now := e.now()
	t := &task.Task{
		ID:          e.newID(),
		AuthorID:    a.ID,
		Title:       strings.TrimSpace(f.Title),
		Description: f.Description,
		CategoryID:  f.CategoryID,
		Budget:      f.Budget,
		Location:    f.Location,
		Address:     f.Address,
		StartAt:     f.StartAt,
		EndAt:       f.EndAt,
		Status:      task.StatusOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := validateTask(t); err != nil {
		return nil, err
	}
	err := e.store.Atomic(ctx, t.ID, func(ctx context.Context, tx Tx) error {
		return tx.Tasks().Create(ctx, t)
	})
	if err != nil {
		return nil, normalize(err)
	}
	return t.Clone(), nil
}

func (e *Engine) UpdateTask(ctx context.Context, a actor.Actor, taskID string, p task.Patch) (*task.Task, error) {
	var out *task.Task
	err := e.store.Atomic(ctx, taskID, func(ctx context.Context, tx Tx) error {
		t, err := tx.Tasks().Get(ctx, taskID)
		if err != nil {
			return err
		}
		if !isAuthor(a, t) {
			return forbidden("only the author can edit a task")
		}
		if t.Status != task.StatusOpen {
			return invalidTransition("task is %s, only open tasks can be edited", t.Status)
		}
		p.Apply(t)
		t.Title = strings.TrimSpace(t.Title)
		if err := validateTask(t); err != nil {
			return err
		}
		t.UpdatedAt = e.now()
		if err := tx.Tasks().Update(ctx, t); err != nil {
			return err
		}
		out = t
		return nil
	})
	if err != nil {
		return nil, normalize(err)
	}
	return out.Clone(), nil
}

func (e *Engine) SubmitOffer(ctx context.Context, a actor.Actor, taskID string, amount int64) (*offer.Offer, error) {
	if !a.Valid() || !a.IsWorker() {
		return nil, forbidden("only workers can submit offers")
	}
	if err := pricing.ValidateAmount(amount); err != nil {
		return nil, normalize(err)
	}
	var out *offer.Offer
	err := e.store.Atomic(ctx, taskID, func(ctx context.Context, tx Tx) error {
		t, err := tx.Tasks().Get(ctx, taskID)
		if err != nil {
			return err
		}
		if t.AuthorID == a.ID {
			return forbidden("authors cannot bid on their own task")
		}
		if t.Status != task.StatusOpen {
			return invalidTransition("task is %s, offers are only taken while open", t.Status)
		}
		offers, err := tx.Offers().ListByTask(ctx, taskID)
		if err != nil {
			return err
		}
		if offer.ByWorker(offers, a.ID) != nil {
			return invalidTransition("worker already has an offer on this task")
		}
		o := &offer.Offer{
			ID:        e.newID(),
			TaskID:    taskID,
			WorkerID:  a.ID,
			Amount:    amount,
			CreatedAt: e.now(),
		}
		if err := tx.Offers().Create(ctx, o); err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, normalize(err)
	}
	c := *out
	return &c, nil
}

func (e *Engine) AcceptOffer(ctx context.Context, a actor.Actor, taskID, offerID string) (*task.Task, error) {
	var out *task.Task
	err := e.store.Atomic(ctx, taskID, func(ctx context.Context, tx Tx) error {
		t, err := tx.Tasks().Get(ctx, taskID)
		if err != nil {
			return err
		}
		if !isAuthor(a, t) {
			return forbidden("only the author can accept offers")
		}
		if t.Status != task.StatusOpen {
			return invalidTransition("task is %s, offers can only be accepted while open", t.Status)
		}
		o, err := tx.Offers().Get(ctx, offerID)
		if err != nil {
			return err
		}
		if o.TaskID != taskID {
			return notFound("offer %s not found on task %s", offerID, taskID)
		}
		current, err := tx.Offers().GetAccepted(ctx, taskID)
		if err != nil {
			return err
		}
		if current != nil {
			return conflict("open task already has an accepted offer")
		}

		if err := tx.Offers().SetAccepted(ctx, offerID, true); err != nil {
			return err
		}
		t.Status = task.StatusAssigned
		t.UpdatedAt = e.now()
		if err := tx.Tasks().Update(ctx, t); err != nil {
			return err
		}
		if err := verify(ctx, tx, taskID, task.StatusAssigned, offerID); err != nil {
			return err
		}
		out = t
		return nil
	})
	if err != nil {
		return nil, normalize(err)
	}
	return out.Clone(), nil
}

// MarkDone may be called by the author or by the accepted worker.
func (e *Engine) MarkDone(ctx context.Context, a actor.Actor, taskID string) (*task.Task, error) {
	var out *task.Task
	err := e.store.Atomic(ctx, taskID, func(ctx context.Context, tx Tx) error {
		t, err := tx.Tasks().Get(ctx, taskID)
		if err != nil {
			return err
		}
		accepted, err := tx.Offers().GetAccepted(ctx, taskID)
		if err != nil {
			return err
		}
		isWorker := a.Valid() && a.IsWorker() && accepted != nil && accepted.WorkerID == a.ID
		if !isAuthor(a, t) && !isWorker {
			return forbidden("only the author or the assigned worker can mark a task done")
		}
		if t.Status != task.StatusAssigned {
			return invalidTransition("task is %s, only assigned tasks can be marked done", t.Status)
		}
		t.Status = task.StatusAwaitingPayment
		t.UpdatedAt = e.now()
		if err := tx.Tasks().Update(ctx, t); err != nil {
			return err
		}
		out = t
		return nil
	})
	if err != nil {
		return nil, normalize(err)
	}
	return out.Clone(), nil
}

func (e *Engine) Pay(ctx context.Context, a actor.Actor, taskID string) (*task.Task, error) {
	var out *task.Task
	err := e.store.Atomic(ctx, taskID, func(ctx context.Context, tx Tx) error {
		t, err := tx.Tasks().Get(ctx, taskID)
		if err != nil {
			return err
		}
		if !isAuthor(a, t) {
			return forbidden("only the author can pay for a task")
		}
		if t.Status != task.StatusAwaitingPayment {
			return invalidTransition("task is %s, payment requires the work to be marked done", t.Status)
		}
		t.Status = task.StatusCompleted
		t.Paid = true
		t.UpdatedAt = e.now()
		if err := tx.Tasks().Update(ctx, t); err != nil {
			return err
		}
		out = t
		return nil
	})
	if err != nil {
		return nil, normalize(err)
	}
	return out.Clone(), nil
}

func (e *Engine) Unassign(ctx context.Context, a actor.Actor, taskID string) (*task.Task, error) {
	var out *task.Task
	err := e.store.Atomic(ctx, taskID, func(ctx context.Context, tx Tx) error {
		t, err := tx.Tasks().Get(ctx, taskID)
		if err != nil {
			return err
		}
		if !isAuthor(a, t) {
			return forbidden("only the author can unassign a worker")
		}
		if t.Status != task.StatusAssigned {
			return invalidTransition("task is %s, only assigned tasks can be unassigned", t.Status)
		}
		accepted, err := tx.Offers().GetAccepted(ctx, taskID)
		if err != nil {
			return err
		}
		if accepted == nil {
			return conflict("assigned task has no accepted offer")
		}

		if err := tx.Offers().SetAccepted(ctx, accepted.ID, false); err != nil {
			return err
		}
		t.Status = task.StatusOpen
		t.UpdatedAt = e.now()
		if err := tx.Tasks().Update(ctx, t); err != nil {
			return err
		}
		if err := verify(ctx, tx, taskID, task.StatusOpen, ""); err != nil {
			return err
		}
		out = t
		return nil
	})
	if err != nil {
		return nil, normalize(err)
	}
	return out.Clone(), nil
}

// DeleteTask removes an open task together with its offers.
func (e *Engine) DeleteTask(ctx context.Context, a actor.Actor, taskID string) error {
	err := e.store.Atomic(ctx, taskID, func(ctx context.Context, tx Tx) error {
		t, err := tx.Tasks().Get(ctx, taskID)
		if err != nil {
			return err
		}
		if !isAuthor(a, t) {
			return forbidden("only the author can delete a task")
		}
		if t.Status != task.StatusOpen {
			return invalidTransition("task is %s, only open tasks can be deleted", t.Status)
		}
		if err := tx.Offers().DeleteByTask(ctx, taskID); err != nil {
			return err
		}
		return tx.Tasks().Delete(ctx, taskID)
	})
	return normalize(err)
}

// Snapshot is a task and its offers, newest first, read in one unit.
type Snapshot struct {
	Task   *task.Task     `json:"task" yaml:"task"`
	Offers []*offer.Offer `json:"offers" yaml:"offers"`
}

func (e *Engine) Snapshot(ctx context.Context, taskID string) (*Snapshot, error) {
	var s Snapshot
	err := e.store.View(ctx, taskID, func(ctx context.Context, tx Tx) error {
		t, err := tx.Tasks().Get(ctx, taskID)
		if err != nil {
			return err
		}
		offers, err := tx.Offers().ListByTask(ctx, taskID)
		if err != nil {
			return err
		}
		s.Task, s.Offers = t, offers
		return nil
	})
	if err != nil {
		return nil, normalize(err)
	}
	return &s, nil
}

// TaskView is what an actor sees of a task.
type TaskView struct {
	Task *task.Task `json:"task" yaml:"task"`
	// Offers holds every offer for the author and only the actor's own
	// offer for anyone else.
	Offers         []*offer.Offer `json:"offers" yaml:"offers"`
	Price          int64          `json:"price" yaml:"price"`
	AcceptedAmount int64          `json:"accepted_amount" yaml:"accepted_amount"`
	Flags          access.Flags   `json:"flags" yaml:"flags"`
	Primary        access.Primary `json:"primary" yaml:"primary"`
}

// View evaluates the gate for a on the current snapshot. pending is the
// caller held budget edit, if any.
func (e *Engine) View(ctx context.Context, a actor.Actor, taskID string, pending *int64) (*TaskView, error) {
	s, err := e.Snapshot(ctx, taskID)
	if err != nil {
		return nil, err
	}
	flags := access.For(a, s.Task, s.Offers)
	v := &TaskView{
		Task:           s.Task,
		Offers:         s.Offers,
		Price:          pricing.Resolve(s.Task, s.Offers, pending),
		AcceptedAmount: pricing.AcceptedAmount(s.Task, s.Offers),
		Flags:          flags,
		Primary:        flags.Primary(),
	}
	if !isAuthor(a, s.Task) {
		v.Offers = nil
		if own := offer.ByWorker(s.Offers, a.ID); own != nil && a.ID != "" {
			v.Offers = []*offer.Offer{own}
		}
	}
	return v, nil
}

// ListOpen is the browse listing. The status filter is always Open.
func (e *Engine) ListOpen(ctx context.Context, f task.Filter, s task.Sort) ([]*task.Task, error) {
	f.Status = task.StatusOpen
	tasks, err := e.store.Tasks().List(ctx, f, s)
	if err != nil {
		return nil, normalize(err)
	}
	return tasks, nil
}

// Listing is one row of an actor's own task list.
type Listing struct {
	Task       *task.Task `json:"task" yaml:"task"`
	OfferCount int        `json:"offer_count" yaml:"offer_count"`
	Price      int64      `json:"price" yaml:"price"`
}

// ListMine lists the tasks an employer authored, or the tasks a worker has
// been assigned to.
func (e *Engine) ListMine(ctx context.Context, a actor.Actor, f task.Filter, s task.Sort) ([]*Listing, error) {
	if !a.Valid() {
		return nil, forbidden("actor is required")
	}
	if a.IsEmployer() {
		f.AuthorID = a.ID
		tasks, err := e.store.Tasks().List(ctx, f, s)
		if err != nil {
			return nil, normalize(err)
		}
		out := make([]*Listing, 0, len(tasks))
		for _, t := range tasks {
			offers, err := e.store.Offers().ListByTask(ctx, t.ID)
			if err != nil {
				return nil, normalize(err)
			}
			out = append(out, &Listing{Task: t, OfferCount: len(offers), Price: pricing.Resolve(t, offers, nil)})
		}
		return out, nil
	}

	mine, err := e.store.Offers().ListByWorker(ctx, a.ID)
	if err != nil {
		return nil, normalize(err)
	}
	byTask := make(map[string]*offer.Offer)
	ids := []string{}
	for _, o := range mine {
		if o.Accepted {
			byTask[o.TaskID] = o
			ids = append(ids, o.TaskID)
		}
	}
	if len(ids) == 0 {
		return []*Listing{}, nil
	}
	f.IDs = ids
	tasks, err := e.store.Tasks().List(ctx, f, s)
	if err != nil {
		return nil, normalize(err)
	}
	out := make([]*Listing, 0, len(tasks))
	for _, t := range tasks {
		offers := []*offer.Offer{byTask[t.ID]}
		out = append(out, &Listing{Task: t, OfferCount: 1, Price: pricing.Resolve(t, offers, nil)})
	}
	return out, nil
}

func isAuthor(a actor.Actor, t *task.Task) bool {
	return a.Valid() && a.IsEmployer() && t != nil && t.AuthorID == a.ID
}

func validateTask(t *task.Task) error {
	if t.Title == "" {
		return invalidInput("title.required", "title is required")
	}
	if t.Budget <= 0 {
		return invalidInput("budget.positive", "budget must be a positive number")
	}
	if t.StartAt != nil && t.EndAt != nil && t.EndAt.Before(*t.StartAt) {
		return invalidInput("schedule.order", "end of the schedule is before its start")
	}
	return nil
}

// verify re-reads the task inside the unit and fails it when the writes did
// not land as expected. wantAccepted is the only offer that may be accepted,
// or "" for none.
func verify(ctx context.Context, tx Tx, taskID string, wantStatus task.Status, wantAccepted string) error {
	t, err := tx.Tasks().Get(ctx, taskID)
	if err != nil {
		return err
	}
	if t.Status != wantStatus {
		return conflict("task status is %s after write, expected %s", t.Status, wantStatus)
	}
	offers, err := tx.Offers().ListByTask(ctx, taskID)
	if err != nil {
		return err
	}
	accepted := offer.Accepted(offers)
	switch {
	case offer.CountAccepted(offers) > 1:
		return conflict("task has more than one accepted offer")
	case wantAccepted == "" && accepted != nil:
		return conflict("offer %s is still accepted", accepted.ID)
	case wantAccepted != "" && (accepted == nil || accepted.ID != wantAccepted):
		return conflict("offer %s was not recorded as accepted", wantAccepted)
	}
	return nil
}
