package mcpserver

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sqlinspect "github.com/shakram02/go-sql-inspect"
)

var discardLogger = slog.New(slog.DiscardHandler)

// newTestServer seeds a SQLite file with table t and serves it. query is
// appended to the connection URL, e.g. "?mode=ro".
func newTestServer(t *testing.T, query string) *Server {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")

	seedDesc, err := sqlinspect.ParseURL("sqlite://" + path)
	require.NoError(t, err)
	seed, err := sqlinspect.Open(ctx, seedDesc, sqlinspect.WithLogger(discardLogger))
	require.NoError(t, err)
	_, err = seed.Pool().Exec(`CREATE TABLE t (id INTEGER PRIMARY KEY, name TEXT)`)
	require.NoError(t, err)
	_, err = seed.Pool().Exec(`INSERT INTO t (id, name) VALUES (1, 'alice'), (2, 'bob'), (3, NULL)`)
	require.NoError(t, err)
	require.NoError(t, seed.Close())

	desc, err := sqlinspect.ParseURL("sqlite://" + path + query)
	require.NoError(t, err)
	db, err := sqlinspect.Open(ctx, desc, sqlinspect.WithLogger(discardLogger))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	s := New(ctx, db, Options{QueryRowsPerPage: 2}, discardLogger)
	t.Cleanup(s.Shutdown)
	return s
}

func request(t *testing.T, method string, params any) []byte {
	t.Helper()
	req := map[string]any{"jsonrpc": "2.0", "id": 1, "method": method}
	if params != nil {
		req["params"] = params
	}
	data, err := json.Marshal(req)
	require.NoError(t, err)
	return data
}

func callTool(t *testing.T, s *Server, name string, args map[string]any) *CallToolResult {
	t.Helper()
	resp := s.HandleMessage(request(t, "tools/call", map[string]any{"name": name, "arguments": args}))
	require.NotNil(t, resp)
	require.Nil(t, resp.Error)
	result, ok := resp.Result.(*CallToolResult)
	require.True(t, ok, "unexpected result type %T", resp.Result)
	require.Len(t, result.Content, 1)
	return result
}

func TestHandleMessage_Protocol(t *testing.T) {
	s := newTestServer(t, "")

	t.Run("initialize", func(t *testing.T) {
		resp := s.HandleMessage(request(t, "initialize", map[string]any{
			"protocolVersion": ProtocolVersion,
			"clientInfo":      map[string]any{"name": "test", "version": "0"},
		}))
		require.Nil(t, resp.Error)
		result := resp.Result.(*InitializeResult)
		assert.Equal(t, ProtocolVersion, result.ProtocolVersion)
		assert.Equal(t, ServerName, result.ServerInfo.Name)
		assert.NotNil(t, result.Capabilities.Tools)
		assert.NotNil(t, result.Capabilities.Resources)
		assert.Contains(t, result.Instructions, `sqlite database "test.db"`)
		assert.True(t, s.initialized)
	})

	t.Run("initialized is a notification", func(t *testing.T) {
		assert.Nil(t, s.HandleMessage(request(t, "initialized", nil)))
	})

	t.Run("parse error", func(t *testing.T) {
		resp := s.HandleMessage([]byte(`{not json`))
		require.NotNil(t, resp.Error)
		assert.Equal(t, ParseError, resp.Error.Code)
	})

	t.Run("wrong version", func(t *testing.T) {
		resp := s.HandleMessage([]byte(`{"jsonrpc":"1.0","id":7,"method":"ping"}`))
		require.NotNil(t, resp.Error)
		assert.Equal(t, InvalidRequest, resp.Error.Code)
	})

	t.Run("unknown method", func(t *testing.T) {
		resp := s.HandleMessage(request(t, "prompts/list", nil))
		require.NotNil(t, resp.Error)
		assert.Equal(t, MethodNotFound, resp.Error.Code)
		assert.Nil(t, resp.Result)
	})

	t.Run("ping", func(t *testing.T) {
		resp := s.HandleMessage(request(t, "ping", nil))
		assert.Nil(t, resp.Error)
		assert.NotNil(t, resp.Result)
	})

	t.Run("unknown tool", func(t *testing.T) {
		resp := s.HandleMessage(request(t, "tools/call", map[string]any{"name": "drop_everything"}))
		require.NotNil(t, resp.Error)
		assert.Equal(t, MethodNotFound, resp.Error.Code)
	})
}

func TestListTools(t *testing.T) {
	s := newTestServer(t, "")

	resp := s.HandleMessage(request(t, "tools/list", nil))
	require.Nil(t, resp.Error)

	var names []string
	for _, tool := range resp.Result.(*ListToolsResult).Tools {
		names = append(names, tool.Name)
	}
	assert.Equal(t, []string{"database_info", "list_tables", "describe_table", "list_indexes", "count_rows", "query"}, names)
}

func TestInspectionTools(t *testing.T) {
	s := newTestServer(t, "")

	t.Run("list_tables", func(t *testing.T) {
		result := callTool(t, s, "list_tables", nil)
		assert.False(t, result.IsError)
		assert.JSONEq(t, `["t"]`, result.Content[0].Text)
	})

	t.Run("describe_table", func(t *testing.T) {
		result := callTool(t, s, "describe_table", map[string]any{"table": "t"})
		require.False(t, result.IsError)

		var info sqlinspect.TableInfo
		require.NoError(t, json.Unmarshal([]byte(result.Content[0].Text), &info))
		require.Len(t, info.Columns, 2)
		assert.True(t, info.Columns[0].IsPrimaryKey)
		assert.True(t, info.Columns[1].Nullable)
	})

	t.Run("describe_table missing", func(t *testing.T) {
		result := callTool(t, s, "describe_table", map[string]any{"table": "nope"})
		assert.True(t, result.IsError)
		assert.Equal(t, `SQL Error: table "nope" not found`, result.Content[0].Text)
	})

	t.Run("describe_table without table", func(t *testing.T) {
		resp := s.HandleMessage(request(t, "tools/call", map[string]any{"name": "describe_table", "arguments": map[string]any{}}))
		require.NotNil(t, resp.Error)
		assert.Equal(t, InvalidParams, resp.Error.Code)
	})

	t.Run("list_indexes", func(t *testing.T) {
		result := callTool(t, s, "list_indexes", map[string]any{"table": "t"})
		assert.False(t, result.IsError)
		assert.JSONEq(t, `[]`, result.Content[0].Text)
	})

	t.Run("count_rows", func(t *testing.T) {
		result := callTool(t, s, "count_rows", map[string]any{"table": "t"})
		assert.False(t, result.IsError)
		assert.JSONEq(t, `{"table":"t","count":3}`, result.Content[0].Text)
	})

	t.Run("database_info", func(t *testing.T) {
		result := callTool(t, s, "database_info", nil)
		require.False(t, result.IsError)

		var out map[string]any
		require.NoError(t, json.Unmarshal([]byte(result.Content[0].Text), &out))
		assert.Equal(t, "test.db", out["name"])
		assert.Equal(t, "sqlite", out["dialect"])
		assert.NotEmpty(t, out["size"])
		conn := out["connection"].(map[string]any)
		assert.Equal(t, true, conn["connected"])
	})
}

func TestQueryTool(t *testing.T) {
	s := newTestServer(t, "")

	t.Run("empty", func(t *testing.T) {
		result := callTool(t, s, "query", map[string]any{"sql": "   "})
		assert.True(t, result.IsError)
		assert.Equal(t, "SQL query cannot be empty", result.Content[0].Text)
	})

	t.Run("paginated select", func(t *testing.T) {
		result := callTool(t, s, "query", map[string]any{"sql": "SELECT id, name FROM t ORDER BY id", "page": 2})
		require.False(t, result.IsError, result.Content[0].Text)

		var out queryOutput
		require.NoError(t, json.Unmarshal([]byte(result.Content[0].Text), &out))
		assert.Equal(t, []string{"id", "name"}, out.Columns)
		require.Len(t, out.Rows, 1)
		assert.Equal(t, "3", *out.Rows[0][0])
		assert.Nil(t, out.Rows[0][1])
		require.NotNil(t, out.Pagination)
		assert.Equal(t, int64(3), out.Pagination.TotalRows)
		assert.Equal(t, 2, out.Pagination.TotalPages)
		assert.True(t, out.Pagination.HasPrev)
		assert.False(t, out.Pagination.HasNext)
	})

	t.Run("ordering", func(t *testing.T) {
		result := callTool(t, s, "query", map[string]any{"sql": "SELECT id FROM t", "order": -1, "per_page": 10})
		require.False(t, result.IsError, result.Content[0].Text)

		var out queryOutput
		require.NoError(t, json.Unmarshal([]byte(result.Content[0].Text), &out))
		require.Len(t, out.Rows, 3)
		assert.Equal(t, "3", *out.Rows[0][0])
		assert.Equal(t, "1", *out.Rows[2][0])
	})

	t.Run("write", func(t *testing.T) {
		result := callTool(t, s, "query", map[string]any{"sql": "UPDATE t SET name = 'x' WHERE id = 1"})
		require.False(t, result.IsError, result.Content[0].Text)
		assert.JSONEq(t, `{"columns":[],"rows":[],"rows_affected":1}`, result.Content[0].Text)
	})

	t.Run("sql error", func(t *testing.T) {
		result := callTool(t, s, "query", map[string]any{"sql": "SELECT * FROM nope"})
		assert.True(t, result.IsError)
		assert.True(t, strings.HasPrefix(result.Content[0].Text, "SQL Error: "), result.Content[0].Text)
	})

	t.Run("invalid page", func(t *testing.T) {
		resp := s.HandleMessage(request(t, "tools/call", map[string]any{
			"name": "query", "arguments": map[string]any{"sql": "SELECT 1", "page": "two"},
		}))
		require.NotNil(t, resp.Error)
		assert.Equal(t, InvalidParams, resp.Error.Code)
	})
}

func TestQueryTool_ReadOnly(t *testing.T) {
	s := newTestServer(t, "?mode=ro")

	rejected := []string{
		"DELETE FROM t",
		"  insert into t values (9, 'z')",
		"DROP TABLE t",
		"/* c */ DELETE FROM t",
		"-- note\nUPDATE t SET name = 'x'",
		"WITH x AS (SELECT 1) DELETE FROM t",
		"SET default_transaction_read_only = off; DELETE FROM t",
		"SELECT 1; DELETE FROM t",
		"REPLACE INTO t VALUES (1, 'a')",
		"PRAGMA query_only = 0",
	}
	for _, sql := range rejected {
		t.Run(sql, func(t *testing.T) {
			result := callTool(t, s, "query", map[string]any{"sql": sql})
			assert.True(t, result.IsError)
			assert.True(t, strings.HasPrefix(result.Content[0].Text, "Write operations are not allowed in read-only mode: "),
				result.Content[0].Text)
		})
	}

	allowed := []string{
		"SELECT name FROM t WHERE name = 'DELETE FROM t'",
		"WITH x AS (SELECT id FROM t) SELECT COUNT(*) FROM x",
		"SELECT \"update\" FROM (SELECT 1 AS \"update\")",
	}
	for _, sql := range allowed {
		t.Run(sql, func(t *testing.T) {
			result := callTool(t, s, "query", map[string]any{"sql": sql})
			assert.False(t, result.IsError, result.Content[0].Text)
		})
	}

	result := callTool(t, s, "count_rows", map[string]any{"table": "t"})
	assert.False(t, result.IsError)
	result = callTool(t, s, "query", map[string]any{"sql": "SELECT COUNT(*) AS n FROM t"})
	assert.Contains(t, result.Content[0].Text, `"3"`)
}

func TestResources(t *testing.T) {
	s := newTestServer(t, "")

	resp := s.HandleMessage(request(t, "resources/list", nil))
	require.Nil(t, resp.Error)
	resources := resp.Result.(*ListResourcesResult).Resources
	require.Len(t, resources, 1)
	assert.Equal(t, "sqlite://test.db/t/schema", resources[0].URI)
	assert.Equal(t, "t", resources[0].Name)
	assert.Equal(t, "application/json", resources[0].MimeType)

	resp = s.HandleMessage(request(t, "resources/read", map[string]any{"uri": resources[0].URI}))
	require.Nil(t, resp.Error)
	contents := resp.Result.(*ReadResourceResult).Contents
	require.Len(t, contents, 1)

	var schema struct {
		Name    string                  `json:"name"`
		Columns []sqlinspect.ColumnInfo `json:"columns"`
		Indexes []sqlinspect.IndexInfo  `json:"indexes"`
	}
	require.NoError(t, json.Unmarshal([]byte(contents[0].Text), &schema))
	assert.Equal(t, "t", schema.Name)
	assert.Len(t, schema.Columns, 2)
	assert.NotNil(t, schema.Indexes)

	for _, uri := range []string{"mysql://test.db/t/schema", "sqlite://test.db/t", "sqlite://test.db//schema"} {
		resp = s.HandleMessage(request(t, "resources/read", map[string]any{"uri": uri}))
		require.NotNil(t, resp.Error, uri)
		assert.Equal(t, InvalidParams, resp.Error.Code)
	}

	resp = s.HandleMessage(request(t, "resources/read", map[string]any{"uri": "sqlite://test.db/nope/schema"}))
	require.NotNil(t, resp.Error)
	assert.Equal(t, InternalError, resp.Error.Code)
}

func TestRun(t *testing.T) {
	s := newTestServer(t, "")

	input := strings.Join([]string{
		string(request(t, "initialize", nil)),
		`{"jsonrpc":"2.0","method":"initialized"}`,
		"",
		string(request(t, "ping", nil)),
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"count_rows","arguments":{"table":"t"}}}`,
	}, "\n")

	var out strings.Builder
	require.NoError(t, s.Run(strings.NewReader(input), &out))

	var responses []JSONRPCResponse
	scanner := bufio.NewScanner(strings.NewReader(out.String()))
	for scanner.Scan() {
		var resp JSONRPCResponse
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &resp))
		responses = append(responses, resp)
	}
	require.Len(t, responses, 3)
	for _, resp := range responses {
		assert.Equal(t, "2.0", resp.JSONRPC)
		assert.Nil(t, resp.Error)
	}
	assert.Equal(t, float64(2), responses[2].ID)
	assert.Contains(t, fmt.Sprint(responses[2].Result), `"count": 3`)
}

func TestRun_Cancelled(t *testing.T) {
	s := newTestServer(t, "")
	s.Shutdown()

	err := s.Run(strings.NewReader(string(request(t, "ping", nil))+"\n"), &strings.Builder{})
	assert.ErrorIs(t, err, context.Canceled)
}
