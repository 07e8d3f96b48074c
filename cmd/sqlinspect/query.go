package main

import (
	"errors"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/cobra"

	sqlinspect "github.com/shakram02/go-sql-inspect"
)

var (
	queryPage    int
	queryPerPage int
	queryOrder   int

	browsePage  int
	browseOrder int
)

var queryCmd = &cobra.Command{
	Use:   "query <sql>",
	Short: "Run a SQL statement",
	Long: `Run a SQL statement and print its result.

SELECT results are paginated by wrapping the statement in a derived table.
Write statements are rejected when the connection is read-only.

Examples:
  sqlinspect query "SELECT * FROM users"
  sqlinspect query --page 2 --per-page 100 "SELECT id, name FROM users"
  sqlinspect query --order -1 "SELECT * FROM orders"`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

var browseCmd = &cobra.Command{
	Use:   "browse <table>",
	Short: "Page through the rows of a table",
	Args:  cobra.ExactArgs(1),
	RunE:  runBrowse,
}

func init() {
	queryCmd.Flags().IntVar(&queryPage, "page", 1, "1-based page of a SELECT result")
	queryCmd.Flags().IntVar(&queryPerPage, "per-page", 0, "rows per page (default: pagination.query_rows_per_page)")
	queryCmd.Flags().IntVar(&queryOrder, "order", 0, "1-based column to sort by; negative sorts descending")

	browseCmd.Flags().IntVar(&browsePage, "page", 1, "1-based page")
	browseCmd.Flags().IntVar(&browseOrder, "order", 0, "1-based column to sort by; negative sorts descending")
}

func runQuery(cmd *cobra.Command, args []string) error {
	sql := args[0]
	if strings.TrimSpace(sql) == "" {
		return errors.New("SQL query cannot be empty")
	}

	db, cfg, err := openDB(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if db.Descriptor().ReadOnly() {
		if err := sqlinspect.ReadOnlyViolation(db.Adapter(), sql); err != nil {
			return err
		}
	}

	perPage := queryPerPage
	if perPage <= 0 {
		perPage = cfg.Pagination.QueryRowsPerPage
	}

	ctx, cancel := withQueryTimeout(cmd.Context(), cfg)
	defer cancel()

	var pagination *sqlinspect.Pagination
	if sqlinspect.IsSelect(sql) {
		sql = sqlinspect.OrderedQuery(sql, queryOrder)
		count, err := db.Execute(ctx, sqlinspect.CountQuery(sql))
		if err != nil || len(count.Rows) == 0 {
			slog.Warn("count query failed, running unpaginated", "err", err)
		} else {
			total := parseCount(count)
			p := sqlinspect.Paginate(queryPage, perPage, total)
			pagination = &p
			sql = sqlinspect.PageQuery(sql, p)
		}
	}

	res, err := db.Execute(ctx, sql)
	if err != nil {
		return userError(err)
	}
	fetched := len(res.Rows)
	truncated := capRows(res, cfg.Query.MaxRows)
	if truncated {
		slog.Warn("result truncated", "max_rows", cfg.Query.MaxRows, "rows", fetched)
	}

	f, err := newFormatter(os.Stdout, outputFormat)
	if err != nil {
		return err
	}
	return f.renderQueryResult(res, pagination, truncated)
}

func runBrowse(cmd *cobra.Command, args []string) error {
	table := args[0]

	db, cfg, err := openDB(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	ctx, cancel := withQueryTimeout(cmd.Context(), cfg)
	defer cancel()

	total, err := db.RowCount(ctx, table)
	if err != nil {
		return userError(err)
	}

	p := sqlinspect.Paginate(browsePage, cfg.Pagination.RowsPerPage, total)
	sql := "SELECT * FROM " + db.Adapter().QuoteIdentifier(table)
	sql = sqlinspect.PageQuery(sqlinspect.OrderedQuery(sql, browseOrder), p)

	res, err := db.Execute(ctx, sql)
	if err != nil {
		return userError(err)
	}

	f, err := newFormatter(os.Stdout, outputFormat)
	if err != nil {
		return err
	}
	return f.renderQueryResult(res, &p, false)
}

func parseCount(res *sqlinspect.QueryResult) int64 {
	if len(res.Rows) == 0 || len(res.Rows[0]) == 0 {
		return 0
	}
	return cast.ToInt64(deref(res.Rows[0][0]))
}
