package sqlinspect

import (
	"fmt"
	"strings"
)

// Default page sizes for table browsing and ad-hoc query results.
const (
	DefaultRowsPerPage      = 50
	DefaultQueryRowsPerPage = 1000
)

// Pagination holds page boundaries and navigation flags. It is derived per
// request and never stored.
type Pagination struct {
	Page       int   `json:"page" yaml:"page"`
	PerPage    int   `json:"per_page" yaml:"per_page"`
	TotalRows  int64 `json:"total_rows" yaml:"total_rows"`
	TotalPages int   `json:"total_pages" yaml:"total_pages"`
	HasPrev    bool  `json:"has_prev" yaml:"has_prev"`
	HasNext    bool  `json:"has_next" yaml:"has_next"`
	PrevPage   int   `json:"prev_page" yaml:"prev_page"`
	NextPage   int   `json:"next_page" yaml:"next_page"`
}

// Paginate computes navigation for a 1-based page. The page is not clamped
// into range; out-of-range pages simply have no next page. A perPage below 1
// is treated as 1.
func Paginate(page, perPage int, totalRows int64) Pagination {
	if perPage < 1 {
		perPage = 1
	}

	totalPages := 1
	if totalRows > 0 {
		totalPages = int((totalRows + int64(perPage) - 1) / int64(perPage))
	}

	p := Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalRows:  totalRows,
		TotalPages: totalPages,
		HasPrev:    page > 1,
		HasNext:    page < totalPages,
		PrevPage:   1,
		NextPage:   totalPages,
	}
	if p.HasPrev {
		p.PrevPage = page - 1
	}
	if p.HasNext {
		p.NextPage = page + 1
	}
	return p
}

// Offset is the number of rows to skip for the page. Pages below 1 start at 0.
func (p Pagination) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.PerPage
}

// The wrappers below close the derived table on a new line so that a
// trailing line comment in sql cannot swallow the closing parenthesis.

// CountQuery wraps a SELECT so it returns its row count in a column named count.
func CountQuery(sql string) string {
	return fmt.Sprintf("SELECT COUNT(*) AS count FROM (%s\n) AS _", trimStatement(sql))
}

// PageQuery wraps a SELECT with LIMIT/OFFSET for the given page.
//
// Counting and fetching are two statements; under concurrent writes the
// count can be stale relative to the page.
func PageQuery(sql string, p Pagination) string {
	return fmt.Sprintf("SELECT * FROM (%s\n) AS _ LIMIT %d OFFSET %d", trimStatement(sql), p.PerPage, p.Offset())
}

// OrderedQuery orders a SELECT by a 1-based result column position. A
// negative ordering sorts descending; zero leaves sql unchanged.
func OrderedQuery(sql string, ordering int) string {
	if ordering == 0 {
		return sql
	}
	direction := "ASC"
	if ordering < 0 {
		direction = "DESC"
		ordering = -ordering
	}
	return fmt.Sprintf("SELECT * FROM (%s\n) AS _ ORDER BY %d %s", trimStatement(sql), ordering, direction)
}

func trimStatement(sql string) string {
	return strings.TrimRight(strings.TrimSpace(sql), "; \t\n")
}
