// Package access decides which task actions an actor may see and take.
//
// The gate is a pure function of a Subject. Callers render actions from the
// resulting Flags; the workflow engine enforces the same rules again when an
// action is actually invoked.
package access

import (
	"github.com/kazz187/taskmarket/internal/actor"
	"github.com/kazz187/taskmarket/internal/offer"
	"github.com/kazz187/taskmarket/internal/task"
)

// Subject is the relation between an actor and a task.
type Subject struct {
	Role             actor.Role
	IsAuthor         bool
	Status           task.Status
	HasOffer         bool
	IsAcceptedWorker bool
}

// Primary names the single main action offered to the actor.
type Primary string

const (
	PrimaryNone         Primary = ""
	PrimarySubmitOffer  Primary = "submit_offer"
	PrimaryPendingOffer Primary = "pending_offer"
	PrimaryManageOffers Primary = "manage_offers"
	PrimaryMarkDone     Primary = "mark_done"
	PrimaryPay          Primary = "pay"
	PrimaryCompleted    Primary = "completed"
)

type Flags struct {
	CanSubmitOffer  bool `json:"can_submit_offer" yaml:"can_submit_offer"`
	HasPendingOffer bool `json:"has_pending_offer" yaml:"has_pending_offer"`
	CanManageOffers bool `json:"can_manage_offers" yaml:"can_manage_offers"`
	CanMarkDone     bool `json:"can_mark_done" yaml:"can_mark_done"`
	CanPay          bool `json:"can_pay" yaml:"can_pay"`
	IsCompleted     bool `json:"is_completed" yaml:"is_completed"`

	CanViewAssignedWorker bool `json:"can_view_assigned_worker" yaml:"can_view_assigned_worker"`
	CanUnassign           bool `json:"can_unassign" yaml:"can_unassign"`
	CanDelete             bool `json:"can_delete" yaml:"can_delete"`
	CanEdit               bool `json:"can_edit" yaml:"can_edit"`
}

// Primary returns the primary flag that is set. At most one is set for any
// subject.
func (f Flags) Primary() Primary {
	switch {
	case f.CanSubmitOffer:
		return PrimarySubmitOffer
	case f.HasPendingOffer:
		return PrimaryPendingOffer
	case f.CanManageOffers:
		return PrimaryManageOffers
	case f.CanMarkDone:
		return PrimaryMarkDone
	case f.CanPay:
		return PrimaryPay
	case f.IsCompleted:
		return PrimaryCompleted
	}
	return PrimaryNone
}

func (f Flags) primaryCount() int {
	n := 0
	for _, b := range []bool{f.CanSubmitOffer, f.HasPendingOffer, f.CanManageOffers, f.CanMarkDone, f.CanPay, f.IsCompleted} {
		if b {
			n++
		}
	}
	return n
}

func Evaluate(s Subject) Flags {
	worker := s.Role == actor.RoleWorker && !s.IsAuthor
	owner := s.Role == actor.RoleEmployer && s.IsAuthor
	open := s.Status == task.StatusOpen

	var f Flags
	switch {
	case s.Status == task.StatusCompleted:
		f.IsCompleted = true
	case s.IsAcceptedWorker && s.Status == task.StatusAssigned:
		f.CanMarkDone = true
	case worker && open && !s.HasOffer && !s.IsAcceptedWorker:
		f.CanSubmitOffer = true
	case worker && open && s.HasOffer && !s.IsAcceptedWorker:
		f.HasPendingOffer = true
	case owner && open:
		f.CanManageOffers = true
	case owner && s.Status == task.StatusAwaitingPayment:
		f.CanPay = true
	}

	if owner {
		f.CanViewAssignedWorker = !open
		f.CanUnassign = s.Status == task.StatusAssigned
		f.CanDelete = open
		f.CanEdit = open
	}
	return f
}

// SubjectFor derives the subject of a from the task and its offers.
func SubjectFor(a actor.Actor, t *task.Task, offers []*offer.Offer) Subject {
	s := Subject{Role: a.Role}
	if t == nil {
		return s
	}
	s.Status = t.Status
	s.IsAuthor = a.ID != "" && t.AuthorID == a.ID
	if a.ID == "" {
		return s
	}
	for _, o := range offers {
		if o.WorkerID != a.ID {
			continue
		}
		s.HasOffer = true
		if o.Accepted {
			s.IsAcceptedWorker = true
		}
	}
	return s
}

func For(a actor.Actor, t *task.Task, offers []*offer.Offer) Flags {
	return Evaluate(SubjectFor(a, t, offers))
}
