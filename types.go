package sqlinspect

import (
	"path/filepath"
	"time"
)

// DatabaseInfo describes the connected database. File fields are only
// populated for file-backed dialects and only when the file could be stat'ed.
type DatabaseInfo struct {
	DisplayPath *string    `json:"display_path,omitempty" yaml:"display_path,omitempty"`
	SizeBytes   *uint64    `json:"size_bytes,omitempty" yaml:"size_bytes,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	ModifiedAt  *time.Time `json:"modified_at,omitempty" yaml:"modified_at,omitempty"`
	ReadOnly    bool       `json:"read_only" yaml:"read_only"`
	Dialect     Dialect    `json:"dialect" yaml:"dialect"`
}

// BaseName returns the file name of the database, or "database" when the
// dialect has no file.
func (d *DatabaseInfo) BaseName() string {
	if d.DisplayPath == nil || *d.DisplayPath == "" {
		return "database"
	}
	return filepath.Base(*d.DisplayPath)
}

// TableInfo is a table and its columns in the dialect's natural order.
type TableInfo struct {
	Name    string       `json:"name" yaml:"name"`
	Columns []ColumnInfo `json:"columns" yaml:"columns"`
}

// PrimaryKey returns the names of the primary key columns.
func (t *TableInfo) PrimaryKey() []string {
	var pk []string
	for _, c := range t.Columns {
		if c.IsPrimaryKey {
			pk = append(pk, c.Name)
		}
	}
	return pk
}

// ColumnInfo describes one column. DefaultValue is the default expression as
// the engine reports it, nil when there is none.
type ColumnInfo struct {
	Name         string  `json:"name" yaml:"name"`
	Type         string  `json:"type" yaml:"type"`
	Nullable     bool    `json:"nullable" yaml:"nullable"`
	DefaultValue *string `json:"default_value,omitempty" yaml:"default_value,omitempty"`
	IsPrimaryKey bool    `json:"is_primary_key" yaml:"is_primary_key"`
}

// IndexInfo describes an index. Columns is empty when the dialect adapter
// does not resolve index membership.
type IndexInfo struct {
	Name    string   `json:"name" yaml:"name"`
	Unique  bool     `json:"unique" yaml:"unique"`
	Columns []string `json:"columns" yaml:"columns"`
}

// QueryResult is the dialect-independent shape of any executed statement.
// Every row has len(Columns) cells; a nil cell is SQL NULL.
type QueryResult struct {
	Columns      []string    `json:"columns" yaml:"columns"`
	Rows         [][]*string `json:"rows" yaml:"rows"`
	RowsAffected *uint64     `json:"rows_affected,omitempty" yaml:"rows_affected,omitempty"`
}

// Strings returns the rows with NULL cells replaced by null.
func (r *QueryResult) Strings(null string) [][]string {
	out := make([][]string, len(r.Rows))
	for i, row := range r.Rows {
		cells := make([]string, len(row))
		for j, cell := range row {
			if cell == nil {
				cells[j] = null
			} else {
				cells[j] = *cell
			}
		}
		out[i] = cells
	}
	return out
}
