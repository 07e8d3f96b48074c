package main

import (
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	sqlinspect "github.com/shakram02/go-sql-inspect"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show connection and database file details",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, cfg, err := openDB(cmd.Context())
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		ctx, cancel := withQueryTimeout(cmd.Context(), cfg)
		defer cancel()

		info, err := db.DatabaseInfo(ctx)
		if err != nil {
			return err
		}
		conn := db.ConnectionInfo(ctx)

		f, err := newFormatter(os.Stdout, outputFormat)
		if err != nil {
			return err
		}

		rows := [][]string{
			{"Name", info.BaseName()},
			{"Dialect", conn.Dialect.String()},
			{"URL", conn.URL},
			{"Database", conn.Database},
			{"Read-only", strconv.FormatBool(conn.ReadOnly)},
			{"Connected", strconv.FormatBool(conn.Connected)},
			{"Version", deref(conn.Version)},
		}
		if info.SizeBytes != nil {
			rows = append(rows, []string{"Size", sqlinspect.FormatFileSize(*info.SizeBytes)})
		}
		if info.CreatedAt != nil {
			rows = append(rows, []string{"Created", info.CreatedAt.Format(time.DateTime)})
		}
		if info.ModifiedAt != nil {
			rows = append(rows, []string{"Modified", info.ModifiedAt.Format(time.DateTime)})
		}

		return f.render(struct {
			Connection sqlinspect.ConnectionInfo `json:"connection" yaml:"connection"`
			File       *sqlinspect.DatabaseInfo  `json:"file" yaml:"file"`
		}{conn, info}, []string{"Property", "Value"}, rows)
	},
}

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List tables",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, cfg, err := openDB(cmd.Context())
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		ctx, cancel := withQueryTimeout(cmd.Context(), cfg)
		defer cancel()

		tables, err := db.Tables(ctx)
		if err != nil {
			return userError(err)
		}

		f, err := newFormatter(os.Stdout, outputFormat)
		if err != nil {
			return err
		}
		rows := make([][]string, len(tables))
		for i, t := range tables {
			rows[i] = []string{t}
		}
		return f.render(tables, []string{"Table"}, rows)
	},
}

var describeCmd = &cobra.Command{
	Use:   "describe <table>",
	Short: "Describe the columns of a table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, cfg, err := openDB(cmd.Context())
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		ctx, cancel := withQueryTimeout(cmd.Context(), cfg)
		defer cancel()

		info, err := db.TableInfo(ctx, args[0])
		if err != nil {
			return userError(err)
		}

		f, err := newFormatter(os.Stdout, outputFormat)
		if err != nil {
			return err
		}
		rows := make([][]string, len(info.Columns))
		for i, c := range info.Columns {
			rows[i] = []string{
				c.Name,
				c.Type,
				strconv.FormatBool(c.Nullable),
				deref(c.DefaultValue),
				strconv.FormatBool(c.IsPrimaryKey),
			}
		}
		return f.render(info, []string{"Column", "Type", "Nullable", "Default", "Primary key"}, rows)
	},
}

var indexesCmd = &cobra.Command{
	Use:   "indexes <table>",
	Short: "List the indexes of a table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, cfg, err := openDB(cmd.Context())
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		ctx, cancel := withQueryTimeout(cmd.Context(), cfg)
		defer cancel()

		indexes, err := db.Indexes(ctx, args[0])
		if err != nil {
			return userError(err)
		}

		f, err := newFormatter(os.Stdout, outputFormat)
		if err != nil {
			return err
		}
		rows := make([][]string, len(indexes))
		for i, idx := range indexes {
			rows[i] = []string{idx.Name, strconv.FormatBool(idx.Unique)}
		}
		return f.render(indexes, []string{"Index", "Unique"}, rows)
	},
}

var countCmd = &cobra.Command{
	Use:   "count <table>",
	Short: "Count the rows of a table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, cfg, err := openDB(cmd.Context())
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		ctx, cancel := withQueryTimeout(cmd.Context(), cfg)
		defer cancel()

		n, err := db.RowCount(ctx, args[0])
		if err != nil {
			return userError(err)
		}

		f, err := newFormatter(os.Stdout, outputFormat)
		if err != nil {
			return err
		}
		return f.render(map[string]any{"table": args[0], "count": n},
			[]string{"Table", "Rows"}, [][]string{{args[0], strconv.FormatInt(n, 10)}})
	},
}
