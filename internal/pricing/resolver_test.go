package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/taskmarket/internal/offer"
	"github.com/kazz187/taskmarket/internal/task"
	"github.com/kazz187/taskmarket/pkg/cerr"
)

func ptr[T any](v T) *T { return &v }

func TestResolve(t *testing.T) {
	accepted := []*offer.Offer{
		{ID: "o1", Amount: 70},
		{ID: "o2", Amount: 80, Accepted: true},
	}
	unaccepted := []*offer.Offer{{ID: "o1", Amount: 70}}

	tests := []struct {
		name    string
		status  task.Status
		offers  []*offer.Offer
		pending *int64
		want    int64
	}{
		{"open uses budget", task.StatusOpen, unaccepted, nil, 100},
		{"open uses pending edit", task.StatusOpen, unaccepted, ptr(int64(120)), 120},
		{"assigned uses accepted offer", task.StatusAssigned, accepted, ptr(int64(120)), 80},
		{"completed uses accepted offer", task.StatusCompleted, accepted, nil, 80},
		{"assigned without accepted offer degrades to budget", task.StatusAssigned, unaccepted, nil, 100},
		{"awaiting payment uses budget", task.StatusAwaitingPayment, accepted, nil, 100},
		{"canceled uses pending edit", task.StatusCanceled, nil, ptr(int64(5)), 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tk := &task.Task{Budget: 100, Status: tt.status}
			assert.Equal(t, tt.want, Resolve(tk, tt.offers, tt.pending))
		})
	}
	assert.Equal(t, int64(0), Resolve(nil, accepted, nil))
}

func TestAcceptedAmount(t *testing.T) {
	tk := &task.Task{Budget: 100, Status: task.StatusAwaitingPayment}
	assert.Equal(t, int64(80), AcceptedAmount(tk, []*offer.Offer{{Amount: 80, Accepted: true}}))
	assert.Equal(t, int64(100), AcceptedAmount(tk, []*offer.Offer{{Amount: 80}}))
	assert.Equal(t, int64(0), AcceptedAmount(nil, nil))
}

func TestParseAmount(t *testing.T) {
	valid := map[string]int64{
		"80":      80,
		"1,200":   1200,
		"¥ 3000":  3000,
		"12.5":    13,
		"0.6":     1,
		" 42 円 ": 42,
	}
	for in, want := range valid {
		got, err := ParseAmount(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"", "abc", "0", "0.4", "1.2.3", "..."} {
		_, err := ParseAmount(in)
		assert.True(t, cerr.IsCode(err, cerr.InvalidArgument), in)
	}
}

func TestValidateAmount(t *testing.T) {
	assert.NoError(t, ValidateAmount(1))
	assert.True(t, cerr.IsCode(ValidateAmount(0), cerr.InvalidArgument))
}
