package sqlinspect

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
)

// pgUndefinedTable is SQLSTATE undefined_table.
const pgUndefinedTable = "42P01"

// PostgresDriverPQ and PostgresDriverPGX name the database/sql drivers that
// can serve the Postgres dialect.
const (
	PostgresDriverPQ  = "postgres"
	PostgresDriverPGX = "pgx"
)

// PostgresAdapter implements DialectAdapter for PostgreSQL databases.
// The zero value uses lib/pq.
type PostgresAdapter struct {
	Driver string
}

func (a *PostgresAdapter) Dialect() Dialect     { return DialectPostgres }
func (a *PostgresAdapter) VersionQuery() string { return "SELECT version()" }

func (a *PostgresAdapter) DriverName() string {
	if a.Driver == "" {
		return PostgresDriverPQ
	}
	return a.Driver
}

// DSN passes the URL through without the mode parameter, which neither
// driver understands. Read-only descriptors start every transaction read-only.
func (a *PostgresAdapter) DSN(desc *ConnectionDescriptor) (string, error) {
	u, err := url.Parse(desc.URL())
	if err != nil {
		return "", fmt.Errorf("parse postgres url: %w", err)
	}
	if u.Scheme == "postgresql" {
		u.Scheme = "postgres"
	}

	query := u.Query()
	query.Del("mode")
	if desc.ReadOnly() {
		query.Set("default_transaction_read_only", "on")
	}
	u.RawQuery = query.Encode()
	return u.String(), nil
}

// ListTablesQuery lists tables of the default user schema.
func (a *PostgresAdapter) ListTablesQuery() (string, []any) {
	return `SELECT tablename FROM pg_tables WHERE schemaname = 'public' ORDER BY tablename`, nil
}

func (a *PostgresAdapter) DescribeColumnsQuery(table string) (string, []any) {
	return `SELECT
			c.column_name,
			c.data_type,
			c.is_nullable,
			c.column_default,
			CASE WHEN pk.column_name IS NOT NULL THEN true ELSE false END AS is_primary_key
		FROM information_schema.columns c
		LEFT JOIN (
			SELECT ku.column_name
			FROM information_schema.table_constraints tc
			JOIN information_schema.key_column_usage ku
				ON tc.constraint_name = ku.constraint_name
				AND tc.constraint_schema = ku.constraint_schema
				AND tc.table_name = ku.table_name
			WHERE tc.constraint_type = 'PRIMARY KEY'
				AND tc.table_schema = 'public'
				AND tc.table_name = $1
		) pk ON c.column_name = pk.column_name
		WHERE c.table_schema = 'public' AND c.table_name = $1
		ORDER BY c.ordinal_position`, []any{table}
}

func (a *PostgresAdapter) ScanColumn(row map[string]*string) (ColumnInfo, error) {
	name, err := requireField(row, "column_name")
	if err != nil {
		return ColumnInfo{}, err
	}
	dataType, err := requireField(row, "data_type")
	if err != nil {
		return ColumnInfo{}, err
	}
	nullable, err := requireField(row, "is_nullable")
	if err != nil {
		return ColumnInfo{}, err
	}
	pk, err := requireField(row, "is_primary_key")
	if err != nil {
		return ColumnInfo{}, err
	}

	return ColumnInfo{
		Name:         name,
		Type:         dataType,
		Nullable:     strings.EqualFold(nullable, "YES"),
		DefaultValue: row["column_default"],
		IsPrimaryKey: isTruthy(pk),
	}, nil
}

// ListIndexesQuery is not implemented for PostgreSQL.
func (a *PostgresAdapter) ListIndexesQuery(string) (string, []any, bool) {
	return "", nil, false
}

func (a *PostgresAdapter) ScanIndex(map[string]*string) (IndexInfo, error) {
	return IndexInfo{}, errors.New("postgres: index listing is not supported")
}

func (a *PostgresAdapter) QuoteIdentifier(name string) string {
	return pq.QuoteIdentifier(name)
}

func (a *PostgresAdapter) IsUndefinedTable(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pgUndefinedTable
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUndefinedTable
}

// RemoveStringsAndComments follows PostgreSQL lexing: no # comments, no
// backtick identifiers, $$ dollar-quoted strings, no backslash escaping.
func (a *PostgresAdapter) RemoveStringsAndComments(sql string) string {
	return stripLiterals(sql, lexRules{dollarQuotes: true})
}
