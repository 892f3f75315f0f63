package offer

import (
	"slices"
	"strings"
	"time"
)

// Offer is a worker's priced bid on a task. Offers are never deleted on
// their own; Accepted is flipped by accept and unassign, and they go away
// with their task.
type Offer struct {
	ID        string    `yaml:"id" json:"id"`
	TaskID    string    `yaml:"task_id" json:"task_id"`
	WorkerID  string    `yaml:"worker_id" json:"worker_id"`
	Amount    int64     `yaml:"amount" json:"amount"`
	Accepted  bool      `yaml:"accepted" json:"accepted"`
	CreatedAt time.Time `yaml:"created_at" json:"created_at"`
}

// Accepted returns the accepted offer among offers, or nil.
func Accepted(offers []*Offer) *Offer {
	for _, o := range offers {
		if o.Accepted {
			return o
		}
	}
	return nil
}

// CountAccepted is used to verify the at-most-one-accepted invariant.
func CountAccepted(offers []*Offer) int {
	n := 0
	for _, o := range offers {
		if o.Accepted {
			n++
		}
	}
	return n
}

// ByWorker returns the first offer submitted by workerID, or nil.
func ByWorker(offers []*Offer, workerID string) *Offer {
	for _, o := range offers {
		if o.WorkerID == workerID {
			return o
		}
	}
	return nil
}

// SortNewestFirst orders offers by creation time descending, then by ID.
func SortNewestFirst(offers []*Offer) {
	slices.SortStableFunc(offers, func(a, b *Offer) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
}
