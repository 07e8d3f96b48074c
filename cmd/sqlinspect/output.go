package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"

	sqlinspect "github.com/shakram02/go-sql-inspect"
)

const nullText = "NULL"

// formatter renders command results. Structured formats encode the value as
// is; tabular formats go through go-pretty.
type formatter struct {
	w      io.Writer
	format string
}

func newFormatter(w io.Writer, format string) (*formatter, error) {
	switch strings.ToLower(format) {
	case "table", "json", "yaml", "csv", "md", "markdown":
		return &formatter{w: w, format: strings.ToLower(format)}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

func (f *formatter) structured() bool {
	return f.format == "json" || f.format == "yaml"
}

func (f *formatter) encode(v any) error {
	switch f.format {
	case "json":
		enc := json.NewEncoder(f.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(f.w)
		enc.SetIndent(2)
		defer func() { _ = enc.Close() }()
		return enc.Encode(v)
	}
	return fmt.Errorf("format %q is not structured", f.format)
}

// render writes a header and rows as a table. v is encoded instead when the
// format is structured.
func (f *formatter) render(v any, header []string, rows [][]string) error {
	if f.structured() {
		return f.encode(v)
	}

	t := table.NewWriter()
	t.SetOutputMirror(f.w)
	t.SetStyle(table.StyleLight)

	headerRow := make(table.Row, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	t.AppendHeader(headerRow)

	for _, r := range rows {
		row := make(table.Row, len(r))
		for i, cell := range r {
			row[i] = cell
		}
		t.AppendRow(row)
	}

	switch f.format {
	case "csv":
		t.RenderCSV()
	case "md", "markdown":
		t.RenderMarkdown()
	default:
		t.Render()
	}
	return nil
}

type queryOutput struct {
	Columns      []string               `json:"columns" yaml:"columns"`
	Rows         [][]*string            `json:"rows" yaml:"rows"`
	RowsAffected *uint64                `json:"rows_affected,omitempty" yaml:"rows_affected,omitempty"`
	Pagination   *sqlinspect.Pagination `json:"pagination,omitempty" yaml:"pagination,omitempty"`
	Truncated    bool                   `json:"truncated,omitempty" yaml:"truncated,omitempty"`
}

// capRows cuts res down to maxRows rows and reports whether it did.
// maxRows <= 0 means no limit.
func capRows(res *sqlinspect.QueryResult, maxRows int) bool {
	if maxRows <= 0 || len(res.Rows) <= maxRows {
		return false
	}
	res.Rows = res.Rows[:maxRows]
	return true
}

func (f *formatter) renderQueryResult(res *sqlinspect.QueryResult, p *sqlinspect.Pagination, truncated bool) error {
	if f.structured() {
		return f.encode(queryOutput{
			Columns:      res.Columns,
			Rows:         res.Rows,
			RowsAffected: res.RowsAffected,
			Pagination:   p,
			Truncated:    truncated,
		})
	}

	if res.RowsAffected != nil && len(res.Rows) == 0 {
		_, err := fmt.Fprintf(f.w, "%d rows affected\n", *res.RowsAffected)
		return err
	}
	if len(res.Rows) == 0 {
		_, err := fmt.Fprintln(f.w, "(0 rows)")
		return err
	}

	if err := f.render(res, res.Columns, res.Strings(nullText)); err != nil {
		return err
	}
	if f.format != "table" {
		return nil
	}
	footer := fmt.Sprintf("%d rows", len(res.Rows))
	if p != nil {
		footer += fmt.Sprintf(", page %d of %d, %d total", p.Page, p.TotalPages, p.TotalRows)
	}
	if truncated {
		footer += ", truncated"
	}
	_, err := fmt.Fprintf(f.w, "(%s)\n", footer)
	return err
}

func deref(s *string) string {
	if s == nil {
		return nullText
	}
	return *s
}

// userError replaces err with the text shown to users, e.g. "SQL Error: ...".
func userError(err error) error {
	return errors.New(sqlinspect.ErrorMessage(err))
}
