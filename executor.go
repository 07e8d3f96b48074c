package sqlinspect

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cast"
)

// Querier is the subset of *sql.DB the core needs. *sql.Conn and *sql.Tx
// satisfy it too.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Executor runs arbitrary SQL and normalizes the result into a QueryResult.
type Executor struct {
	db      Querier
	adapter DialectAdapter
	logger  *slog.Logger
}

// NewExecutor returns an Executor over db. The adapter is only consulted for
// lexical rules when classifying statements.
func NewExecutor(db Querier, adapter DialectAdapter, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{db: db, adapter: adapter, logger: logger}
}

// Execute runs sql verbatim. Row-returning statements yield columns and
// stringified rows; Columns is empty when no rows come back. Other
// statements yield RowsAffected when the driver reports it.
func (e *Executor) Execute(ctx context.Context, sql string) (*QueryResult, error) {
	start := time.Now()
	defer func() {
		e.logger.Debug("execute", "sql", sql, "duration", time.Since(start))
	}()

	if !returnsRows(e.adapter, sql) {
		return e.exec(ctx, sql)
	}
	return e.query(ctx, sql)
}

func (e *Executor) exec(ctx context.Context, sql string) (*QueryResult, error) {
	res, err := e.db.ExecContext(ctx, sql)
	if err != nil {
		return nil, &QueryError{Query: sql, Cause: err}
	}

	result := &QueryResult{Columns: []string{}, Rows: [][]*string{}}
	if n, err := res.RowsAffected(); err == nil && n >= 0 {
		affected := uint64(n)
		result.RowsAffected = &affected
	}
	return result, nil
}

func (e *Executor) query(ctx context.Context, sql string) (*QueryResult, error) {
	rows, err := e.db.QueryContext(ctx, sql)
	if err != nil {
		return nil, &QueryError{Query: sql, Cause: err}
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, &QueryError{Query: sql, Cause: err}
	}

	result := &QueryResult{Columns: []string{}, Rows: [][]*string{}}
	for rows.Next() {
		cells, err := scanStrings(rows, len(columns))
		if err != nil {
			return nil, &QueryError{Query: sql, Cause: err}
		}
		result.Rows = append(result.Rows, cells)
	}
	if err := rows.Err(); err != nil {
		return nil, &QueryError{Query: sql, Cause: err}
	}

	if len(result.Rows) > 0 {
		result.Columns = columns
	}
	return result, nil
}

// queryMaps runs a metadata query and returns each row keyed by column name.
func queryMaps(ctx context.Context, db Querier, query string, args ...any) ([]map[string]*string, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &QueryError{Query: query, Cause: err}
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, &QueryError{Query: query, Cause: err}
	}

	var out []map[string]*string
	for rows.Next() {
		cells, err := scanStrings(rows, len(columns))
		if err != nil {
			return nil, &QueryError{Query: query, Cause: err}
		}
		row := make(map[string]*string, len(columns))
		for i, col := range columns {
			row[col] = cells[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, &QueryError{Query: query, Cause: err}
	}
	return out, nil
}

// scanStrings scans the current row positionally and stringifies each cell.
func scanStrings(rows *sql.Rows, n int) ([]*string, error) {
	values := make([]any, n)
	ptrs := make([]any, n)
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}

	cells := make([]*string, n)
	for i, v := range values {
		cells[i] = stringify(v)
	}
	return cells, nil
}

// stringify converts a driver value to its text form; SQL NULL is nil.
func stringify(v any) *string {
	var s string
	switch val := v.(type) {
	case nil:
		return nil
	case []byte:
		s = string(val)
	case time.Time:
		s = val.Format(time.RFC3339Nano)
	default:
		var err error
		if s, err = cast.ToStringE(val); err != nil {
			s = fmt.Sprint(val)
		}
	}
	return &s
}
