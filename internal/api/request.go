package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kazz187/taskmarket/internal/pricing"
	"github.com/kazz187/taskmarket/internal/task"
	"github.com/kazz187/taskmarket/pkg/cerr"
)

type createTaskRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	CategoryID  int        `json:"category_id"`
	Budget      Amount     `json:"budget"`
	Location    string     `json:"location"`
	Address     string     `json:"address"`
	StartAt     *time.Time `json:"start_at"`
	EndAt       *time.Time `json:"end_at"`
}

func (r *createTaskRequest) fields() task.Fields {
	return task.Fields{
		Title:       r.Title,
		Description: r.Description,
		CategoryID:  r.CategoryID,
		Budget:      int64(r.Budget),
		Location:    r.Location,
		Address:     r.Address,
		StartAt:     r.StartAt,
		EndAt:       r.EndAt,
	}
}

type updateTaskRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	CategoryID  *int       `json:"category_id"`
	Budget      *Amount    `json:"budget"`
	Location    *string    `json:"location"`
	Address     *string    `json:"address"`
	StartAt     *time.Time `json:"start_at"`
	EndAt       *time.Time `json:"end_at"`
}

func (r *updateTaskRequest) patch() task.Patch {
	p := task.Patch{
		Title:       r.Title,
		Description: r.Description,
		CategoryID:  r.CategoryID,
		Location:    r.Location,
		Address:     r.Address,
		StartAt:     r.StartAt,
		EndAt:       r.EndAt,
	}
	if r.Budget != nil {
		b := int64(*r.Budget)
		p.Budget = &b
	}
	return p
}

type submitOfferRequest struct {
	Amount Amount `json:"amount"`
}

// Amount accepts either a JSON number or a user typed string such as
// "1,200". Strings go through pricing.ParseAmount.
type Amount int64

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := pricing.ParseAmount(s)
		if err != nil {
			return err
		}
		*a = Amount(v)
		return nil
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("amount must be a number: %w", err)
	}
	*a = Amount(math.Round(f))
	return nil
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var ce *cerr.Error
		if errors.As(err, &ce) {
			return ce
		}
		return cerr.NewError(cerr.InvalidArgument, "invalid request body", err)
	}
	return nil
}

func parseListQuery(r *http.Request) (task.Filter, task.Sort, error) {
	q := r.URL.Query()
	f := task.Filter{
		Search: q.Get("q"),
	}
	if s := q.Get("status"); s != "" {
		st := task.Status(s)
		if !st.Valid() {
			return f, task.Sort{}, cerr.NewError(cerr.InvalidArgument, fmt.Sprintf("unknown status %q", s), nil)
		}
		f.Status = st
	}
	if cats := q.Get("category"); cats != "" {
		for _, c := range strings.Split(cats, ",") {
			id, err := strconv.Atoi(strings.TrimSpace(c))
			if err != nil {
				return f, task.Sort{}, cerr.NewError(cerr.InvalidArgument, "category must be a list of numbers", err)
			}
			f.CategoryIDs = append(f.CategoryIDs, id)
		}
	}
	s, err := task.ParseSort(q.Get("sort"), q.Get("dir"))
	if err != nil {
		return f, task.Sort{}, cerr.NewError(cerr.InvalidArgument, err.Error(), err)
	}
	return f, s, nil
}

func parsePending(r *http.Request) (*int64, error) {
	raw := r.URL.Query().Get("pending")
	if raw == "" {
		return nil, nil
	}
	v, err := pricing.ParseAmount(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
