package sqlinspect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

// Introspector reads schema facts through a dialect adapter.
type Introspector struct {
	db      Querier
	desc    *ConnectionDescriptor
	adapter DialectAdapter
	logger  *slog.Logger
}

// NewIntrospector returns an Introspector for the descriptor's dialect.
func NewIntrospector(db Querier, desc *ConnectionDescriptor, adapter DialectAdapter, logger *slog.Logger) *Introspector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Introspector{db: db, desc: desc, adapter: adapter, logger: logger}
}

// DatabaseInfo reports file metadata for SQLite and the connection flags for
// every dialect. A missing SQLite file is not an error.
func (in *Introspector) DatabaseInfo(_ context.Context) (*DatabaseInfo, error) {
	info := &DatabaseInfo{
		ReadOnly: in.desc.ReadOnly(),
		Dialect:  in.desc.Dialect(),
	}
	if in.desc.Dialect() != DialectSQLite {
		return info, nil
	}

	path := in.desc.FilePath()
	info.DisplayPath = &path

	st, err := os.Stat(path)
	if err != nil {
		in.logger.Debug("stat database file", "path", path, "err", err)
		return info, nil
	}
	size := uint64(st.Size())
	modified := st.ModTime().UTC().Truncate(time.Second)
	info.SizeBytes = &size
	info.ModifiedAt = &modified
	if created, ok := birthTime(path, st); ok {
		created = created.UTC().Truncate(time.Second)
		info.CreatedAt = &created
	}
	return info, nil
}

// Tables lists table names in the dialect's order.
func (in *Introspector) Tables(ctx context.Context) ([]string, error) {
	query, args := in.adapter.ListTablesQuery()
	rows, err := in.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &QueryError{Query: query, Cause: err}
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, &QueryError{Query: query, Cause: err}
	}

	tables := []string{}
	for rows.Next() {
		cells, err := scanStrings(rows, len(columns))
		if err != nil {
			return nil, &QueryError{Query: query, Cause: err}
		}
		if len(cells) == 0 || cells[0] == nil {
			continue
		}
		tables = append(tables, *cells[0])
	}
	if err := rows.Err(); err != nil {
		return nil, &QueryError{Query: query, Cause: err}
	}
	return tables, nil
}

// TableInfo describes a table's columns. A table with no columns, or one the
// driver reports as undefined, yields a TableNotFoundError.
func (in *Introspector) TableInfo(ctx context.Context, table string) (*TableInfo, error) {
	query, args := in.adapter.DescribeColumnsQuery(table)
	rows, err := queryMaps(ctx, in.db, query, args...)
	if err != nil {
		if in.adapter.IsUndefinedTable(err) {
			return nil, &TableNotFoundError{Table: table, Cause: err}
		}
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &TableNotFoundError{Table: table}
	}

	info := &TableInfo{Name: table, Columns: make([]ColumnInfo, 0, len(rows))}
	for _, row := range rows {
		col, err := in.adapter.ScanColumn(row)
		if err != nil {
			return nil, &QueryError{Query: query, Cause: err}
		}
		info.Columns = append(info.Columns, col)
	}
	return info, nil
}

// Indexes lists a table's indexes. Dialects without index support return an
// empty slice without querying. An empty index list from a dialect that
// supports them is checked against the table's columns, so a missing table
// yields a TableNotFoundError.
func (in *Introspector) Indexes(ctx context.Context, table string) ([]IndexInfo, error) {
	query, args, ok := in.adapter.ListIndexesQuery(table)
	if !ok {
		return []IndexInfo{}, nil
	}
	rows, err := queryMaps(ctx, in.db, query, args...)
	if err != nil {
		if in.adapter.IsUndefinedTable(err) {
			return nil, &TableNotFoundError{Table: table, Cause: err}
		}
		return nil, err
	}
	if len(rows) == 0 {
		if _, err := in.TableInfo(ctx, table); err != nil {
			return nil, err
		}
		return []IndexInfo{}, nil
	}

	indexes := make([]IndexInfo, 0, len(rows))
	for _, row := range rows {
		idx, err := in.adapter.ScanIndex(row)
		if err != nil {
			return nil, &QueryError{Query: query, Cause: err}
		}
		indexes = append(indexes, idx)
	}
	return indexes, nil
}

// RowCount returns SELECT COUNT(*) for the quoted table name.
func (in *Introspector) RowCount(ctx context.Context, table string) (int64, error) {
	query := "SELECT COUNT(*) FROM " + in.adapter.QuoteIdentifier(table)
	rows, err := queryMaps(ctx, in.db, query)
	if err != nil {
		if in.adapter.IsUndefinedTable(err) {
			return 0, &TableNotFoundError{Table: table, Cause: err}
		}
		return 0, err
	}
	if len(rows) != 1 {
		return 0, &QueryError{Query: query, Cause: fmt.Errorf("expected 1 row, got %d", len(rows))}
	}
	for _, v := range rows[0] {
		if v == nil {
			return 0, nil
		}
		n, err := strconv.ParseInt(*v, 10, 64)
		if err != nil {
			return 0, &QueryError{Query: query, Cause: fmt.Errorf("parse row count: %w", err)}
		}
		return n, nil
	}
	return 0, &QueryError{Query: query, Cause: errors.New("row count query returned no columns")}
}

// ServerVersion reports the version string of the database engine.
func (in *Introspector) ServerVersion(ctx context.Context) (string, error) {
	query := in.adapter.VersionQuery()
	rows, err := queryMaps(ctx, in.db, query)
	if err != nil {
		return "", err
	}
	for _, row := range rows {
		for _, v := range row {
			if v != nil {
				return *v, nil
			}
		}
	}
	return "", nil
}
