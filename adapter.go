package sqlinspect

import "fmt"

// DialectAdapter defines the contract for dialect-specific behavior.
// Each supported database (SQLite, MySQL, PostgreSQL) implements this interface.
type DialectAdapter interface {
	// Dialect returns the dialect this adapter serves.
	Dialect() Dialect

	// DriverName returns the database/sql driver name (e.g., "mysql", "postgres", "sqlite").
	DriverName() string

	// DSN converts a connection descriptor into the driver's data source name.
	DSN(desc *ConnectionDescriptor) (string, error)

	// ListTablesQuery returns the SQL query and arguments to list all tables.
	// The table name is read from the first result column by position.
	ListTablesQuery() (string, []any)

	// DescribeColumnsQuery returns the SQL query and arguments to read column info for a table.
	DescribeColumnsQuery(table string) (string, []any)

	// ScanColumn maps a describe row, keyed by result column name, to a ColumnInfo.
	ScanColumn(row map[string]*string) (ColumnInfo, error)

	// ListIndexesQuery returns the SQL query and arguments to list a table's
	// indexes. ok is false when the dialect does not list indexes.
	ListIndexesQuery(table string) (query string, args []any, ok bool)

	// ScanIndex maps an index-list row, keyed by result column name, to an IndexInfo.
	ScanIndex(row map[string]*string) (IndexInfo, error)

	// VersionQuery returns the SQL query reporting the server version.
	VersionQuery() string

	// QuoteIdentifier quotes a table or column name for this dialect.
	QuoteIdentifier(name string) string

	// IsUndefinedTable reports whether a driver error means the table does not exist.
	IsUndefinedTable(err error) bool

	// RemoveStringsAndComments strips string literals and comments from SQL
	// for safe keyword detection.
	RemoveStringsAndComments(sql string) string
}

// AdapterFor returns the adapter for a dialect.
func AdapterFor(d Dialect) (DialectAdapter, error) {
	switch d {
	case DialectSQLite:
		return &SQLiteAdapter{}, nil
	case DialectMySQL:
		return &MySQLAdapter{}, nil
	case DialectPostgres:
		return &PostgresAdapter{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDialect, d)
	}
}

func requireField(row map[string]*string, name string) (string, error) {
	v, ok := row[name]
	if !ok {
		return "", fmt.Errorf("missing column %q in metadata row", name)
	}
	if v == nil {
		return "", nil
	}
	return *v, nil
}

// isTruthy interprets integer and boolean flags as returned by the drivers.
func isTruthy(s string) bool {
	switch s {
	case "", "0", "f", "false", "FALSE", "no", "NO":
		return false
	default:
		return true
	}
}
