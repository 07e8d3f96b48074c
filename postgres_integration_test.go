//go:build integration

package sqlinspect_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	pgcontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	sqlinspect "github.com/shakram02/go-sql-inspect"
)

// startPostgres runs a throwaway server and returns its connection URL.
func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := pgcontainer.Run(ctx,
		"postgres:18-alpine",
		pgcontainer.WithDatabase("inspect"),
		pgcontainer.WithUsername("inspect"),
		pgcontainer.WithPassword("inspect"),
		pgcontainer.BasicWaitStrategies(),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(pgContainer); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	url, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")
	return url
}

func TestPostgresIntegration(t *testing.T) {
	url := startPostgres(t)
	ctx := context.Background()

	desc, err := sqlinspect.ParseURL(url)
	require.NoError(t, err)

	setup, err := sqlinspect.Open(ctx, desc)
	require.NoError(t, err)
	_, err = setup.Execute(ctx, `CREATE TABLE "Order Items" (id SERIAL PRIMARY KEY, sku TEXT NOT NULL, note TEXT DEFAULT 'n/a')`)
	require.NoError(t, err)
	res, err := setup.Execute(ctx, `INSERT INTO "Order Items" (sku) VALUES ('a'), ('b')`)
	require.NoError(t, err)
	require.NotNil(t, res.RowsAffected)
	assert.Equal(t, uint64(2), *res.RowsAffected)
	require.NoError(t, setup.Close())

	for _, driver := range []string{sqlinspect.PostgresDriverPQ, sqlinspect.PostgresDriverPGX} {
		t.Run(driver, func(t *testing.T) {
			db, err := sqlinspect.Open(ctx, desc, sqlinspect.WithPostgresDriver(driver))
			require.NoError(t, err)
			defer func() { _ = db.Close() }()

			tables, err := db.Tables(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"Order Items"}, tables)

			info, err := db.TableInfo(ctx, "Order Items")
			require.NoError(t, err)
			require.Len(t, info.Columns, 3)
			assert.Equal(t, "id", info.Columns[0].Name)
			assert.True(t, info.Columns[0].IsPrimaryKey)
			assert.False(t, info.Columns[0].Nullable)
			assert.Equal(t, "text", info.Columns[1].Type)
			assert.False(t, info.Columns[1].Nullable)
			assert.True(t, info.Columns[2].Nullable)
			require.NotNil(t, info.Columns[2].DefaultValue)

			n, err := db.RowCount(ctx, "Order Items")
			require.NoError(t, err)
			assert.Equal(t, int64(2), n)

			_, err = db.RowCount(ctx, "missing")
			assert.ErrorIs(t, err, sqlinspect.ErrNotFound)

			_, err = db.TableInfo(ctx, "missing")
			assert.ErrorIs(t, err, sqlinspect.ErrNotFound)

			indexes, err := db.Indexes(ctx, "Order Items")
			require.NoError(t, err)
			assert.Empty(t, indexes)

			res, err := db.Execute(ctx, `INSERT INTO "Order Items" (sku) VALUES ('c') RETURNING id`)
			require.NoError(t, err)
			assert.Equal(t, []string{"id"}, res.Columns)
			require.Len(t, res.Rows, 1)

			_, err = db.Execute(ctx, `DELETE FROM "Order Items" WHERE sku = 'c'`)
			require.NoError(t, err)

			conn := db.ConnectionInfo(ctx)
			assert.True(t, conn.Connected)
			require.NotNil(t, conn.Version)
			assert.Contains(t, *conn.Version, "PostgreSQL")
		})
	}
}

func TestPostgresIntegration_ReadOnly(t *testing.T) {
	url := startPostgres(t)
	ctx := context.Background()

	desc, err := sqlinspect.ParseURL(url + "&mode=ro")
	require.NoError(t, err)
	require.True(t, desc.ReadOnly())

	db, err := sqlinspect.Open(ctx, desc)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	_, err = db.Execute(ctx, "CREATE TABLE t (id INT)")
	require.Error(t, err)
	assert.ErrorIs(t, err, sqlinspect.ErrQueryFailed)
	assert.Contains(t, sqlinspect.ErrorMessage(err), "read-only transaction")
}

func TestOpen_ConnectionFailed(t *testing.T) {
	desc, err := sqlinspect.ParseURL("postgres://nobody:pw@127.0.0.1:1/none?sslmode=disable")
	require.NoError(t, err)

	_, err = sqlinspect.Open(context.Background(), desc)
	assert.ErrorIs(t, err, sqlinspect.ErrConnectionFailed)
}
