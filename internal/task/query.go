package task

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Filter narrows a listing. Zero values mean "any".
type Filter struct {
	Status      Status
	AuthorID    string
	Search      string
	CategoryIDs []int
	// IDs restricts the listing to the given task IDs when non-nil.
	IDs []string
}

// Matches applies Filter to a single task. Search is a case-insensitive
// substring match over title and description.
func (f Filter) Matches(t *Task) bool {
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.AuthorID != "" && t.AuthorID != f.AuthorID {
		return false
	}
	if len(f.CategoryIDs) > 0 && !slices.Contains(f.CategoryIDs, t.CategoryID) {
		return false
	}
	if f.IDs != nil && !slices.Contains(f.IDs, t.ID) {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		if !strings.Contains(strings.ToLower(t.Title+" "+t.Description), q) {
			return false
		}
	}
	return true
}

type SortKey string

const (
	SortByDate  SortKey = "date"
	SortByPrice SortKey = "price"
	SortByTitle SortKey = "title"
)

type Direction string

const (
	// DirDefault sorts dates and prices newest/highest first and titles A to Z.
	DirDefault Direction = ""
	DirAsc     Direction = "asc"
	DirDesc    Direction = "desc"
)

type Sort struct {
	By  SortKey
	Dir Direction
}

func ParseSort(by, dir string) (Sort, error) {
	var s Sort
	switch SortKey(strings.ToLower(by)) {
	case "", SortByDate:
		s.By = SortByDate
	case SortByPrice:
		s.By = SortByPrice
	case SortByTitle:
		s.By = SortByTitle
	default:
		return Sort{}, fmt.Errorf("unknown sort key %q", by)
	}
	switch Direction(strings.ToLower(dir)) {
	case DirDefault:
	case DirAsc:
		s.Dir = DirAsc
	case DirDesc:
		s.Dir = DirDesc
	default:
		return Sort{}, fmt.Errorf("unknown sort direction %q", dir)
	}
	return s, nil
}

// Descending resolves DirDefault for the sort key.
func (s Sort) Descending() bool {
	switch s.Dir {
	case DirAsc:
		return false
	case DirDesc:
		return true
	}
	return s.By != SortByTitle
}

// SortTasks orders tasks in place. Ties fall back to newest first, then ID,
// so the order is total and stable across backends.
func SortTasks(tasks []*Task, s Sort) {
	col := collate.New(language.Und, collate.IgnoreCase)
	desc := s.Descending()
	slices.SortStableFunc(tasks, func(a, b *Task) int {
		var c int
		switch s.By {
		case SortByPrice:
			c = cmpInt64(a.Budget, b.Budget)
		case SortByTitle:
			c = col.CompareString(a.Title, b.Title)
		default:
			c = a.CreatedAt.Compare(b.CreatedAt)
		}
		if desc {
			c = -c
		}
		if c != 0 {
			return c
		}
		if c = b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Select filters and sorts in one pass, as the in-memory repositories do.
func Select(tasks []*Task, f Filter, s Sort) []*Task {
	out := make([]*Task, 0, len(tasks))
	for _, t := range tasks {
		if f.Matches(t) {
			out = append(out, t)
		}
	}
	SortTasks(out, s)
	return out
}
