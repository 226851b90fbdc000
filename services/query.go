package services

import (
	"strconv"
	"strings"
)

// Status filters accepted by List, matched exactly. Any other value means no filter.
const (
	StatusAll      = "all"
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// ListDefaults are applied once, when raw query values are parsed.
type ListDefaults struct {
	Limit  int
	Max    int
	Status string
}

// ListQuery is a normalized listing request.
type ListQuery struct {
	Limit  int
	Offset int
	Search string
	Status string
}

// ParseListQuery normalizes raw query strings. Unparseable or non-positive limits fall back to the default,
// limits above the maximum are clamped and negative offsets become zero.
func ParseListQuery(limit, offset, search, status string, d ListDefaults) ListQuery {
	q := ListQuery{
		Limit:  d.Limit,
		Search: strings.TrimSpace(search),
		Status: status,
	}
	if q.Limit <= 0 {
		q.Limit = 12
	}
	if n, err := strconv.Atoi(strings.TrimSpace(limit)); err == nil && n > 0 {
		q.Limit = n
	}
	if d.Max > 0 && q.Limit > d.Max {
		q.Limit = d.Max
	}
	if n, err := strconv.Atoi(strings.TrimSpace(offset)); err == nil && n > 0 {
		q.Offset = n
	}
	if q.Status == "" {
		q.Status = d.Status
	}
	if q.Status == "" {
		q.Status = StatusAll
	}
	return q
}

// Pagination is the metadata returned next to a page of galleries.
type Pagination struct {
	Page            int   `json:"page"`
	Limit           int   `json:"limit"`
	TotalItems      int64 `json:"totalItems"`
	TotalPages      int   `json:"totalPages"`
	HasNextPage     bool  `json:"hasNextPage"`
	HasPreviousPage bool  `json:"hasPreviousPage"`
}

// NewPagination derives page metadata. limit must be positive.
func NewPagination(limit, offset int, total int64) Pagination {
	return Pagination{
		Page:            offset/limit + 1,
		Limit:           limit,
		TotalItems:      total,
		TotalPages:      int((total + int64(limit) - 1) / int64(limit)),
		HasNextPage:     int64(offset+limit) < total,
		HasPreviousPage: offset > 0,
	}
}

// escapeLike escapes LIKE wildcards so search terms match literally. '!' is the escape character.
func escapeLike(s string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return r.Replace(s)
}
