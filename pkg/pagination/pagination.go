package pagination

import (
	"net/http"
	"strconv"
)

const (
	DefaultFirst = 20
	MaxFirst     = 100
)

// Params holds cursor pagination parameters in the Relay style the catalog
// backend speaks (`first` items after an opaque `after` cursor).
type Params struct {
	First int    `json:"first"`
	After string `json:"after,omitempty"`
}

// DefaultParams returns sensible pagination defaults.
func DefaultParams() Params {
	return Params{First: DefaultFirst}
}

// Normalize clamps First into [1, MaxFirst], substituting the default for
// non-positive values.
func (p Params) Normalize() Params {
	switch {
	case p.First <= 0:
		p.First = DefaultFirst
	case p.First > MaxFirst:
		p.First = MaxFirst
	}
	return p
}

// FromRequest extracts pagination parameters from an HTTP request.
func FromRequest(r *http.Request) Params {
	p := DefaultParams()
	q := r.URL.Query()

	if first := q.Get("first"); first != "" {
		if v, err := strconv.Atoi(first); err == nil {
			p.First = v
		}
	}
	p.After = q.Get("after")

	return p.Normalize()
}

// Page wraps one page of a cursor-paginated list.
type Page[T any] struct {
	Items     []T    `json:"items"`
	EndCursor string `json:"end_cursor,omitempty"`
	HasNext   bool   `json:"has_next"`
}

// NewPage builds a Page, never returning a nil Items slice.
func NewPage[T any](items []T, endCursor string, hasNext bool) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, EndCursor: endCursor, HasNext: hasNext}
}
