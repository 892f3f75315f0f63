// Package pricing computes the authoritative price of a task.
package pricing

import (
	"math"
	"strconv"
	"strings"

	"github.com/kazz187/taskmarket/internal/offer"
	"github.com/kazz187/taskmarket/internal/task"
	"github.com/kazz187/taskmarket/pkg/cerr"
)

// Resolve returns the price a task is worth right now. Once a task is
// Assigned or Completed the accepted offer wins; otherwise the caller held
// pending edit, if any, overrides the budget. A missing accepted offer
// degrades to the budget.
func Resolve(t *task.Task, offers []*offer.Offer, pending *int64) int64 {
	if t == nil {
		return 0
	}
	switch t.Status {
	case task.StatusAssigned, task.StatusCompleted:
		if a := offer.Accepted(offers); a != nil {
			return a.Amount
		}
		return t.Budget
	}
	if pending != nil {
		return *pending
	}
	return t.Budget
}

// AcceptedAmount is the final price shown next to a task: the accepted
// offer's amount in any status, else the budget.
func AcceptedAmount(t *task.Task, offers []*offer.Offer) int64 {
	if t == nil {
		return 0
	}
	if a := offer.Accepted(offers); a != nil {
		return a.Amount
	}
	return t.Budget
}

// ParseAmount reads a user typed amount such as "1,200" or "¥80". Anything
// other than digits and '.' is dropped and the result is rounded to whole
// currency units.
func ParseAmount(s string) (int64, error) {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, s)
	if cleaned == "" {
		return 0, invalidAmount(s)
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsInf(f, 0) || f > math.MaxInt64 {
		return 0, invalidAmount(s)
	}
	v := int64(math.Round(f))
	if v <= 0 {
		return 0, invalidAmount(s)
	}
	return v, nil
}

// ValidateAmount checks an already numeric amount.
func ValidateAmount(v int64) error {
	if v <= 0 {
		return invalidAmount(strconv.FormatInt(v, 10))
	}
	return nil
}

func invalidAmount(raw string) error {
	return cerr.NewError(cerr.InvalidArgument, "amount must be a positive number", nil).
		AddDetailMessageWithCode("invalid amount: "+strconv.Quote(raw), "amount.positive")
}
