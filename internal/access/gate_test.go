package access

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kazz187/taskmarket/internal/actor"
	"github.com/kazz187/taskmarket/internal/offer"
	"github.com/kazz187/taskmarket/internal/task"
)

var statuses = []task.Status{
	task.StatusOpen, task.StatusAssigned, task.StatusAwaitingPayment, task.StatusCompleted, task.StatusCanceled,
}

func TestEvaluate_AtMostOnePrimary(t *testing.T) {
	for _, role := range []actor.Role{actor.RoleWorker, actor.RoleEmployer} {
		for _, st := range statuses {
			for _, author := range []bool{false, true} {
				for _, has := range []bool{false, true} {
					for _, acc := range []bool{false, true} {
						s := Subject{Role: role, IsAuthor: author, Status: st, HasOffer: has, IsAcceptedWorker: acc}
						assert.LessOrEqual(t, Evaluate(s).primaryCount(), 1, "%+v", s)
					}
				}
			}
		}
	}
}

func TestEvaluate_Matrix(t *testing.T) {
	tests := []struct {
		name    string
		subject Subject
		want    Primary
	}{
		{"fresh worker on open task", Subject{Role: actor.RoleWorker, Status: task.StatusOpen}, PrimarySubmitOffer},
		{"worker with offer", Subject{Role: actor.RoleWorker, Status: task.StatusOpen, HasOffer: true}, PrimaryPendingOffer},
		{"author on open task", Subject{Role: actor.RoleEmployer, IsAuthor: true, Status: task.StatusOpen}, PrimaryManageOffers},
		{"accepted worker on assigned task", Subject{Role: actor.RoleWorker, Status: task.StatusAssigned, HasOffer: true, IsAcceptedWorker: true}, PrimaryMarkDone},
		{"other worker on assigned task", Subject{Role: actor.RoleWorker, Status: task.StatusAssigned, HasOffer: true}, PrimaryNone},
		{"author on assigned task", Subject{Role: actor.RoleEmployer, IsAuthor: true, Status: task.StatusAssigned}, PrimaryNone},
		{"author awaiting payment", Subject{Role: actor.RoleEmployer, IsAuthor: true, Status: task.StatusAwaitingPayment}, PrimaryPay},
		{"worker awaiting payment", Subject{Role: actor.RoleWorker, Status: task.StatusAwaitingPayment, HasOffer: true, IsAcceptedWorker: true}, PrimaryNone},
		{"anyone on completed task", Subject{Role: actor.RoleWorker, Status: task.StatusCompleted}, PrimaryCompleted},
		{"other employer on open task", Subject{Role: actor.RoleEmployer, Status: task.StatusOpen}, PrimaryNone},
		{"canceled task", Subject{Role: actor.RoleEmployer, IsAuthor: true, Status: task.StatusCanceled}, PrimaryNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Evaluate(tt.subject).Primary())
		})
	}
}

func TestEvaluate_SecondaryFlags(t *testing.T) {
	open := Evaluate(Subject{Role: actor.RoleEmployer, IsAuthor: true, Status: task.StatusOpen})
	assert.True(t, open.CanEdit)
	assert.True(t, open.CanDelete)
	assert.False(t, open.CanUnassign)
	assert.False(t, open.CanViewAssignedWorker)

	assigned := Evaluate(Subject{Role: actor.RoleEmployer, IsAuthor: true, Status: task.StatusAssigned})
	assert.True(t, assigned.CanUnassign)
	assert.True(t, assigned.CanViewAssignedWorker)
	assert.False(t, assigned.CanDelete)
	assert.False(t, assigned.CanEdit)

	worker := Evaluate(Subject{Role: actor.RoleWorker, Status: task.StatusAssigned, IsAcceptedWorker: true, HasOffer: true})
	assert.False(t, worker.CanUnassign)
	assert.False(t, worker.CanViewAssignedWorker)
}

func TestFor_WorkerLifecycle(t *testing.T) {
	employer := actor.Actor{ID: "emp", Role: actor.RoleEmployer}
	workerA := actor.Actor{ID: "a", Role: actor.RoleWorker}
	workerB := actor.Actor{ID: "b", Role: actor.RoleWorker}
	tk := &task.Task{ID: "t1", AuthorID: employer.ID, Status: task.StatusOpen, Budget: 100}

	assert.Equal(t, Flags{CanSubmitOffer: true}, For(workerB, tk, nil))

	offers := []*offer.Offer{{ID: "ob", TaskID: "t1", WorkerID: "b", Amount: 90}}
	f := For(workerB, tk, offers)
	assert.Equal(t, Flags{HasPendingOffer: true}, f)
	assert.False(t, f.CanSubmitOffer)

	offers = append(offers, &offer.Offer{ID: "oa", TaskID: "t1", WorkerID: "a", Amount: 80, Accepted: true})
	tk.Status = task.StatusAssigned
	assert.True(t, For(workerA, tk, offers).CanMarkDone)
	assert.False(t, For(workerB, tk, offers).CanMarkDone)
	assert.False(t, For(employer, tk, offers).CanMarkDone)

	tk.Status = task.StatusAwaitingPayment
	assert.True(t, For(employer, tk, offers).CanPay)
	assert.False(t, For(employer, tk, offers).CanMarkDone)
	assert.False(t, For(workerA, tk, offers).CanMarkDone)
}

func TestSubjectFor(t *testing.T) {
	tk := &task.Task{AuthorID: "emp", Status: task.StatusOpen}
	s := SubjectFor(actor.Actor{ID: "emp", Role: actor.RoleEmployer}, tk, nil)
	assert.True(t, s.IsAuthor)

	anon := SubjectFor(actor.Actor{Role: actor.RoleWorker}, &task.Task{Status: task.StatusOpen}, []*offer.Offer{{WorkerID: ""}})
	assert.False(t, anon.IsAuthor)
	assert.False(t, anon.HasOffer)

	assert.Equal(t, Subject{Role: actor.RoleWorker}, SubjectFor(actor.Actor{ID: "x", Role: actor.RoleWorker}, nil, nil))
}
