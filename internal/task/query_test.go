package task

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixtures() []*Task {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return []*Task{
		{ID: "t1", AuthorID: "e1", Title: "paint fence", Description: "white", CategoryID: 1, Budget: 50, Status: StatusOpen, CreatedAt: base},
		{ID: "t2", AuthorID: "e2", Title: "Assemble desk", Description: "ikea", CategoryID: 2, Budget: 120, Status: StatusOpen, CreatedAt: base.Add(time.Hour)},
		{ID: "t3", AuthorID: "e1", Title: "walk dog", Description: "Fence-side park", CategoryID: 3, Budget: 20, Status: StatusAssigned, CreatedAt: base.Add(2 * time.Hour)},
	}
}

func ids(tasks []*Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func TestSelect_Filter(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{name: "all", filter: Filter{}, want: []string{"t3", "t2", "t1"}},
		{name: "status", filter: Filter{Status: StatusOpen}, want: []string{"t2", "t1"}},
		{name: "author", filter: Filter{AuthorID: "e1"}, want: []string{"t3", "t1"}},
		{name: "search title and description", filter: Filter{Search: " FENCE "}, want: []string{"t3", "t1"}},
		{name: "categories", filter: Filter{CategoryIDs: []int{2, 3}}, want: []string{"t3", "t2"}},
		{name: "ids", filter: Filter{IDs: []string{"t1"}}, want: []string{"t1"}},
		{name: "empty ids", filter: Filter{IDs: []string{}}, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(Select(fixtures(), tt.filter, Sort{By: SortByDate})))
		})
	}
}

func TestSelect_Sort(t *testing.T) {
	tests := []struct {
		by, dir string
		want    []string
	}{
		{by: "", dir: "", want: []string{"t3", "t2", "t1"}},
		{by: "date", dir: "asc", want: []string{"t1", "t2", "t3"}},
		{by: "price", dir: "", want: []string{"t2", "t1", "t3"}},
		{by: "price", dir: "asc", want: []string{"t3", "t1", "t2"}},
		{by: "title", dir: "", want: []string{"t2", "t1", "t3"}},
		{by: "title", dir: "desc", want: []string{"t3", "t1", "t2"}},
	}
	for _, tt := range tests {
		t.Run(tt.by+"/"+tt.dir, func(t *testing.T) {
			s, err := ParseSort(tt.by, tt.dir)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(Select(fixtures(), Filter{}, s)))
		})
	}

	_, err := ParseSort("rating", "")
	assert.Error(t, err)
	_, err = ParseSort("date", "sideways")
	assert.Error(t, err)
}

func TestPatch_Apply(t *testing.T) {
	title := "new"
	budget := int64(75)
	tk := &Task{Title: "old", Budget: 50, Location: "Lisbon"}
	Patch{Title: &title, Budget: &budget}.Apply(tk)
	assert.Equal(t, "new", tk.Title)
	assert.Equal(t, int64(75), tk.Budget)
	assert.Equal(t, "Lisbon", tk.Location)
}

func TestTask_Clone(t *testing.T) {
	start := time.Now()
	tk := &Task{ID: "t1", StartAt: &start}
	c := tk.Clone()
	*c.StartAt = start.Add(time.Hour)
	assert.Equal(t, start, *tk.StartAt)
	assert.Nil(t, (*Task)(nil).Clone())
}
