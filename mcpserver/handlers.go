package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cast"

	sqlinspect "github.com/shakram02/go-sql-inspect"
)

const msgEmptyQuery = "SQL query cannot be empty"

func (s *Server) handleInitialize(params json.RawMessage) (*InitializeResult, *Error) {
	var initParams InitializeParams
	if params != nil {
		if err := json.Unmarshal(params, &initParams); err != nil {
			return nil, invalidParams("Invalid initialize parameters", err)
		}
	}

	s.initialized = true
	s.logger.Info("client initialized",
		"client", initParams.ClientInfo.Name,
		"client_version", initParams.ClientInfo.Version,
	)

	return &InitializeResult{
		ProtocolVersion: ProtocolVersion,
		Capabilities: ServerCapabilities{
			Tools:     &ListChangedCapability{},
			Resources: &ListChangedCapability{},
		},
		ServerInfo: Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		Instructions: fmt.Sprintf("Connected to %s database %q.", s.db.Descriptor().Dialect(), s.db.Descriptor().DatabaseName()),
	}, nil
}

var tableProperty = map[string]Property{
	"table": {Type: "string", Description: "Table name"},
}

func (s *Server) handleListTools() (*ListToolsResult, *Error) {
	one := 1
	queryDescription := "Execute a SQL query. SELECT results are paginated."
	if s.db.Descriptor().ReadOnly() {
		queryDescription = "Execute a read-only SQL query. SELECT results are paginated; write statements are rejected."
	}

	return &ListToolsResult{
		Tools: []Tool{
			{
				Name:        "database_info",
				Description: "Show the connection, engine version and file metadata of the database",
				InputSchema: objectSchema(nil),
			},
			{
				Name:        "list_tables",
				Description: "List the tables of the database",
				InputSchema: objectSchema(nil),
			},
			{
				Name:        "describe_table",
				Description: "Describe the columns of a table",
				InputSchema: objectSchema(tableProperty, "table"),
			},
			{
				Name:        "list_indexes",
				Description: "List the indexes of a table",
				InputSchema: objectSchema(tableProperty, "table"),
			},
			{
				Name:        "count_rows",
				Description: "Count the rows of a table",
				InputSchema: objectSchema(tableProperty, "table"),
			},
			{
				Name:        "query",
				Description: queryDescription,
				InputSchema: objectSchema(
					map[string]Property{
						"sql": {
							Type:        "string",
							Description: "The SQL statement to execute",
						},
						"page": {
							Type:        "integer",
							Description: "1-based page of a SELECT result (default 1)",
							Minimum:     &one,
						},
						"per_page": {
							Type:        "integer",
							Description: fmt.Sprintf("Rows per page (default %d)", s.opts.QueryRowsPerPage),
							Minimum:     &one,
						},
						"order": {
							Type:        "integer",
							Description: "1-based result column to sort by; negative sorts descending",
						},
					},
					"sql",
				),
			},
		},
	}, nil
}

func (s *Server) handleCallTool(params json.RawMessage) (*CallToolResult, *Error) {
	var callParams CallToolParams
	if err := json.Unmarshal(params, &callParams); err != nil {
		return nil, invalidParams("Invalid parameters", err)
	}

	ctx, cancel := context.WithTimeout(s.ctx, s.opts.QueryTimeout)
	defer cancel()

	switch callParams.Name {
	case "database_info":
		return s.databaseInfo(ctx)
	case "list_tables":
		tables, err := s.db.Tables(ctx)
		if err != nil {
			return errorResult(sqlinspect.ErrorMessage(err)), nil
		}
		return jsonResult(tables)
	case "describe_table":
		table, rpcErr := tableArg(callParams.Arguments)
		if rpcErr != nil {
			return nil, rpcErr
		}
		info, err := s.db.TableInfo(ctx, table)
		if err != nil {
			return errorResult(sqlinspect.ErrorMessage(err)), nil
		}
		return jsonResult(info)
	case "list_indexes":
		table, rpcErr := tableArg(callParams.Arguments)
		if rpcErr != nil {
			return nil, rpcErr
		}
		indexes, err := s.db.Indexes(ctx, table)
		if err != nil {
			return errorResult(sqlinspect.ErrorMessage(err)), nil
		}
		return jsonResult(indexes)
	case "count_rows":
		table, rpcErr := tableArg(callParams.Arguments)
		if rpcErr != nil {
			return nil, rpcErr
		}
		n, err := s.db.RowCount(ctx, table)
		if err != nil {
			return errorResult(sqlinspect.ErrorMessage(err)), nil
		}
		return jsonResult(map[string]any{"table": table, "count": n})
	case "query":
		return s.executeQuery(ctx, callParams.Arguments)
	default:
		return nil, newError(MethodNotFound, fmt.Sprintf("Unknown tool: %s", callParams.Name))
	}
}

type databaseInfoOutput struct {
	Name       string                    `json:"name"`
	Size       string                    `json:"size,omitempty"`
	Connection sqlinspect.ConnectionInfo `json:"connection"`
	*sqlinspect.DatabaseInfo
}

func (s *Server) databaseInfo(ctx context.Context) (*CallToolResult, *Error) {
	info, err := s.db.DatabaseInfo(ctx)
	if err != nil {
		return errorResult(sqlinspect.ErrorMessage(err)), nil
	}
	out := databaseInfoOutput{
		Name:         info.BaseName(),
		Connection:   s.db.ConnectionInfo(ctx),
		DatabaseInfo: info,
	}
	if info.SizeBytes != nil {
		out.Size = sqlinspect.FormatFileSize(*info.SizeBytes)
	}
	return jsonResult(out)
}

type queryOutput struct {
	Columns      []string               `json:"columns"`
	Rows         [][]*string            `json:"rows"`
	RowsAffected *uint64                `json:"rows_affected,omitempty"`
	Pagination   *sqlinspect.Pagination `json:"pagination,omitempty"`
	Truncated    bool                   `json:"truncated,omitempty"`
}

func (s *Server) executeQuery(ctx context.Context, args map[string]any) (*CallToolResult, *Error) {
	sqlQuery, _ := args["sql"].(string)
	if strings.TrimSpace(sqlQuery) == "" {
		return errorResult(msgEmptyQuery), nil
	}
	if s.db.Descriptor().ReadOnly() {
		if err := sqlinspect.ReadOnlyViolation(s.db.Adapter(), sqlQuery); err != nil {
			s.logger.Warn("rejected statement in read-only mode", "sql", sqlQuery, "err", err)
			return errorResult(err.Error()), nil
		}
	}

	page, err := intArg(args, "page", 1)
	if err != nil {
		return nil, err
	}
	perPage, err := intArg(args, "per_page", s.opts.QueryRowsPerPage)
	if err != nil {
		return nil, err
	}
	ordering, err := intArg(args, "order", 0)
	if err != nil {
		return nil, err
	}

	stmt := sqlQuery
	var pagination *sqlinspect.Pagination
	if sqlinspect.IsSelect(sqlQuery) {
		stmt = sqlinspect.OrderedQuery(stmt, ordering)
		total, countErr := s.countRows(ctx, stmt)
		if countErr != nil {
			// The statement may still run unwrapped, e.g. a dialect that rejects
			// the derived-table alias.
			s.logger.Warn("count query failed, running unpaginated", "err", countErr)
		} else {
			p := sqlinspect.Paginate(page, perPage, total)
			pagination = &p
			stmt = sqlinspect.PageQuery(stmt, p)
		}
	}

	res, execErr := s.db.Execute(ctx, stmt)
	if execErr != nil {
		return errorResult(sqlinspect.ErrorMessage(execErr)), nil
	}

	out := queryOutput{
		Columns:      res.Columns,
		Rows:         res.Rows,
		RowsAffected: res.RowsAffected,
		Pagination:   pagination,
	}
	if len(out.Rows) > s.opts.MaxRows {
		out.Rows = out.Rows[:s.opts.MaxRows]
		out.Truncated = true
	}
	return jsonResult(out)
}

func (s *Server) countRows(ctx context.Context, stmt string) (int64, error) {
	res, err := s.db.Execute(ctx, sqlinspect.CountQuery(stmt))
	if err != nil {
		return 0, err
	}
	if len(res.Rows) == 0 || len(res.Rows[0]) == 0 || res.Rows[0][0] == nil {
		return 0, nil
	}
	return cast.ToInt64E(*res.Rows[0][0])
}

func (s *Server) resourceURI(table string) string {
	desc := s.db.Descriptor()
	return fmt.Sprintf("%s://%s/%s/schema", desc.Dialect(), desc.DatabaseName(), url.PathEscape(table))
}

func (s *Server) handleListResources() (*ListResourcesResult, *Error) {
	ctx, cancel := context.WithTimeout(s.ctx, s.opts.QueryTimeout)
	defer cancel()

	tables, err := s.db.Tables(ctx)
	if err != nil {
		return nil, newError(InternalError, fmt.Sprintf("Failed to list tables: %s", sqlinspect.ErrorMessage(err)))
	}

	resources := make([]Resource, 0, len(tables))
	for _, table := range tables {
		resources = append(resources, Resource{
			URI:         s.resourceURI(table),
			Name:        table,
			Description: fmt.Sprintf("Schema for table '%s'", table),
			MimeType:    mimeJSON,
		})
	}
	return &ListResourcesResult{Resources: resources}, nil
}

type tableSchema struct {
	*sqlinspect.TableInfo
	Indexes []sqlinspect.IndexInfo `json:"indexes"`
}

func (s *Server) handleReadResource(params json.RawMessage) (*ReadResourceResult, *Error) {
	var readParams ReadResourceParams
	if err := json.Unmarshal(params, &readParams); err != nil {
		return nil, invalidParams("Invalid parameters", err)
	}

	// Parse URI: <dialect>://<database>/<table>/schema
	uri := readParams.URI
	desc := s.db.Descriptor()
	prefix := fmt.Sprintf("%s://%s/", desc.Dialect(), desc.DatabaseName())
	if !strings.HasPrefix(uri, prefix) || !strings.HasSuffix(uri, "/schema") {
		return nil, newError(InvalidParams, fmt.Sprintf("Invalid resource URI format: expected %s<table>/schema", prefix))
	}
	table, err := url.PathUnescape(strings.TrimSuffix(strings.TrimPrefix(uri, prefix), "/schema"))
	if err != nil || table == "" {
		return nil, newError(InvalidParams, "Invalid table name in resource URI")
	}

	ctx, cancel := context.WithTimeout(s.ctx, s.opts.QueryTimeout)
	defer cancel()

	info, err := s.db.TableInfo(ctx, table)
	if err != nil {
		return nil, newError(InternalError, fmt.Sprintf("Failed to get schema: %s", sqlinspect.ErrorMessage(err)))
	}
	indexes, err := s.db.Indexes(ctx, table)
	if err != nil {
		return nil, newError(InternalError, fmt.Sprintf("Failed to get indexes: %s", sqlinspect.ErrorMessage(err)))
	}

	schemaJSON, err := json.MarshalIndent(tableSchema{TableInfo: info, Indexes: indexes}, "", "  ")
	if err != nil {
		return nil, newError(InternalError, fmt.Sprintf("Failed to marshal schema: %v", err))
	}

	return &ReadResourceResult{
		Contents: []ResourceContent{
			{
				URI:      uri,
				MimeType: mimeJSON,
				Text:     string(schemaJSON),
			},
		},
	}, nil
}

func tableArg(args map[string]any) (string, *Error) {
	table, ok := args["table"].(string)
	if !ok || table == "" {
		return "", newError(InvalidParams, "Missing or invalid 'table' parameter")
	}
	return table, nil
}

// intArg reads an optional integer argument. JSON numbers arrive as float64;
// numeric strings are accepted too.
func intArg(args map[string]any, name string, def int) (int, *Error) {
	v, ok := args[name]
	if !ok || v == nil {
		return def, nil
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return 0, invalidParams(fmt.Sprintf("Invalid '%s' parameter", name), err)
	}
	return n, nil
}

func errorResult(text string) *CallToolResult {
	return &CallToolResult{
		Content: textContent(text),
		IsError: true,
	}
}

func jsonResult(v any) (*CallToolResult, *Error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to marshal results: %v", err)), nil
	}
	return &CallToolResult{
		Content: textContent(string(out)),
	}, nil
}
