package sqlinspect

import (
	"fmt"
	"strings"
	"sync/atomic"

	_ "modernc.org/sqlite"
)

// memoryDBSeq names in-memory databases so that each Open gets its own.
var memoryDBSeq atomic.Uint64

// SQLiteAdapter implements DialectAdapter for SQLite databases.
type SQLiteAdapter struct{}

func (a *SQLiteAdapter) Dialect() Dialect     { return DialectSQLite }
func (a *SQLiteAdapter) DriverName() string   { return "sqlite" }
func (a *SQLiteAdapter) VersionQuery() string { return "SELECT sqlite_version()" }

// DSN builds a file: URI for modernc.org/sqlite. The URL's query parameters
// are passed through, so mode=ro opens the file read-only. Read-only
// connections also get PRAGMA query_only on every pooled connection.
//
// A plain :memory: database is private to one connection, so in-memory
// URLs become a uniquely named shared-cache database that every pooled
// connection sees.
func (a *SQLiteAdapter) DSN(desc *ConnectionDescriptor) (string, error) {
	path := desc.FilePath()
	if path == "" {
		return "", fmt.Errorf("sqlite url %q has no file path", desc.URL())
	}

	query := desc.Query()
	if desc.InMemory() {
		path = fmt.Sprintf("sqlinspect-mem-%d", memoryDBSeq.Add(1))
		query.Set("mode", "memory")
		query.Set("cache", "shared")
	}
	if desc.ReadOnly() {
		query.Add("_pragma", "query_only(1)")
	}
	if len(query) == 0 {
		return "file:" + path, nil
	}
	return "file:" + path + "?" + query.Encode(), nil
}

func (a *SQLiteAdapter) ListTablesQuery() (string, []any) {
	return `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`, nil
}

// DescribeColumnsQuery uses the table-valued form of PRAGMA table_info so the
// table name can be bound rather than embedded.
func (a *SQLiteAdapter) DescribeColumnsQuery(table string) (string, []any) {
	return `SELECT name, type, "notnull", dflt_value, pk FROM pragma_table_info(?) ORDER BY cid`, []any{table}
}

func (a *SQLiteAdapter) ScanColumn(row map[string]*string) (ColumnInfo, error) {
	name, err := requireField(row, "name")
	if err != nil {
		return ColumnInfo{}, err
	}
	colType, err := requireField(row, "type")
	if err != nil {
		return ColumnInfo{}, err
	}
	notNull, err := requireField(row, "notnull")
	if err != nil {
		return ColumnInfo{}, err
	}
	pk, err := requireField(row, "pk")
	if err != nil {
		return ColumnInfo{}, err
	}

	// pragma_table_info reports notnull=0 for INTEGER PRIMARY KEY, but a
	// rowid alias can never hold NULL.
	isPK := isTruthy(pk)
	return ColumnInfo{
		Name:         name,
		Type:         colType,
		Nullable:     !isTruthy(notNull) && !isPK,
		DefaultValue: row["dflt_value"],
		IsPrimaryKey: isPK,
	}, nil
}

// ListIndexesQuery lists index names and uniqueness. Index columns are not
// resolved for SQLite; IndexInfo.Columns stays empty.
func (a *SQLiteAdapter) ListIndexesQuery(table string) (string, []any, bool) {
	return `SELECT name, "unique" FROM pragma_index_list(?) ORDER BY seq`, []any{table}, true
}

func (a *SQLiteAdapter) ScanIndex(row map[string]*string) (IndexInfo, error) {
	name, err := requireField(row, "name")
	if err != nil {
		return IndexInfo{}, err
	}
	unique, err := requireField(row, "unique")
	if err != nil {
		return IndexInfo{}, err
	}
	return IndexInfo{Name: name, Unique: isTruthy(unique), Columns: []string{}}, nil
}

func (a *SQLiteAdapter) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (a *SQLiteAdapter) IsUndefinedTable(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such table")
}

// RemoveStringsAndComments follows SQLite lexing: no # comments, no backslash
// escaping, and backtick and [bracket] identifiers are accepted.
func (a *SQLiteAdapter) RemoveStringsAndComments(sql string) string {
	return stripLiterals(sql, lexRules{brackets: true, backticks: true})
}

