package task

import "time"

// Status is the lifecycle state of a task. The string values are the ones
// persisted by the system of record.
type Status string

const (
	StatusOpen     Status = "Open"
	StatusAssigned Status = "Assigned"
	// StatusAwaitingPayment follows "mark done". The system of record stores
	// it as "Applied"; it has nothing to do with a worker applying.
	StatusAwaitingPayment Status = "Applied"
	StatusCompleted       Status = "Completed"
	StatusCanceled        Status = "Canceled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusAssigned, StatusAwaitingPayment, StatusCompleted, StatusCanceled:
		return true
	}
	return false
}

// HasAcceptedOffer reports whether the status implies exactly one accepted offer.
func (s Status) HasAcceptedOffer() bool {
	return s == StatusAssigned || s == StatusAwaitingPayment || s == StatusCompleted
}

type Task struct {
	ID          string     `yaml:"id" json:"id"`
	AuthorID    string     `yaml:"author_id" json:"author_id"`
	Title       string     `yaml:"title" json:"title"`
	Description string     `yaml:"description" json:"description"`
	CategoryID  int        `yaml:"category_id" json:"category_id"`
	Budget      int64      `yaml:"budget" json:"budget"`
	Location    string     `yaml:"location" json:"location"`
	Address     string     `yaml:"address,omitempty" json:"address,omitempty"`
	StartAt     *time.Time `yaml:"start_at,omitempty" json:"start_at,omitempty"`
	EndAt       *time.Time `yaml:"end_at,omitempty" json:"end_at,omitempty"`
	Status      Status     `yaml:"status" json:"status"`
	Paid        bool       `yaml:"paid" json:"paid"`
	// Version is bumped by every successful Update and checked against the
	// stored value, so a stale write is rejected instead of applied.
	Version   int64     `yaml:"version" json:"version"`
	CreatedAt time.Time `yaml:"created_at" json:"created_at"`
	UpdatedAt time.Time `yaml:"updated_at" json:"updated_at"`
}

// Clone returns a deep copy, so callers can mutate it without touching a
// snapshot held elsewhere.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	if t.StartAt != nil {
		v := *t.StartAt
		c.StartAt = &v
	}
	if t.EndAt != nil {
		v := *t.EndAt
		c.EndAt = &v
	}
	return &c
}

// Fields are the employer supplied attributes of a new task.
type Fields struct {
	Title       string
	Description string
	CategoryID  int
	Budget      int64
	Location    string
	Address     string
	StartAt     *time.Time
	EndAt       *time.Time
}

// Patch is a partial update; nil members are left unchanged.
type Patch struct {
	Title       *string
	Description *string
	CategoryID  *int
	Budget      *int64
	Location    *string
	Address     *string
	StartAt     *time.Time
	EndAt       *time.Time
}

func (p Patch) Apply(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.CategoryID != nil {
		t.CategoryID = *p.CategoryID
	}
	if p.Budget != nil {
		t.Budget = *p.Budget
	}
	if p.Location != nil {
		t.Location = *p.Location
	}
	if p.Address != nil {
		t.Address = *p.Address
	}
	if p.StartAt != nil {
		v := *p.StartAt
		t.StartAt = &v
	}
	if p.EndAt != nil {
		v := *p.EndAt
		t.EndAt = &v
	}
}
