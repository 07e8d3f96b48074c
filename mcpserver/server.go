// Package mcpserver exposes a sqlinspect database over the Model Context
// Protocol: line-delimited JSON-RPC 2.0 on a reader/writer pair.
package mcpserver

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	sqlinspect "github.com/shakram02/go-sql-inspect"
)

// Defaults applied when Options leaves a field zero.
const (
	DefaultQueryTimeout = 30 * time.Second
	DefaultMaxRows      = 10000
)

// Options bounds tool execution.
type Options struct {
	QueryTimeout     time.Duration
	MaxRows          int
	QueryRowsPerPage int
}

// Server handles MCP requests against one database.
type Server struct {
	db          *sqlinspect.DB
	opts        Options
	logger      *slog.Logger
	initialized bool
	ctx         context.Context
	cancel      context.CancelFunc
}

// New returns a Server bound to db. The server does not own db; the caller
// closes it.
func New(ctx context.Context, db *sqlinspect.DB, opts Options, logger *slog.Logger) *Server {
	if opts.QueryTimeout <= 0 {
		opts.QueryTimeout = DefaultQueryTimeout
	}
	if opts.MaxRows <= 0 {
		opts.MaxRows = DefaultMaxRows
	}
	if opts.QueryRowsPerPage <= 0 {
		opts.QueryRowsPerPage = sqlinspect.DefaultQueryRowsPerPage
	}
	if logger == nil {
		logger = slog.Default()
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		db:     db,
		opts:   opts,
		logger: logger.With("component", "mcp"),
		ctx:    serverCtx,
		cancel: cancel,
	}
}

// Run reads requests from in, one per line, and writes responses to out
// until in is exhausted or the server context is cancelled.
func (s *Server) Run(in io.Reader, out io.Writer) error {
	reader := bufio.NewReader(in)

	for {
		select {
		case <-s.ctx.Done():
			return s.ctx.Err()
		default:
		}

		line, readErr := reader.ReadString('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return fmt.Errorf("failed to read input: %w", readErr)
		}

		line = strings.TrimSpace(line)
		if line != "" {
			if err := s.respond(out, []byte(line)); err != nil {
				return err
			}
		}

		if errors.Is(readErr, io.EOF) {
			return nil
		}
	}
}

func (s *Server) respond(out io.Writer, line []byte) error {
	response := s.HandleMessage(line)
	if response == nil {
		return nil
	}
	responseBytes, err := json.Marshal(response)
	if err != nil {
		s.logger.Error("failed to marshal response", "err", err)
		return nil
	}
	if _, err := fmt.Fprintln(out, string(responseBytes)); err != nil {
		return fmt.Errorf("failed to write response: %w", err)
	}
	return nil
}

// HandleMessage decodes one JSON-RPC message and returns its response, or
// nil for notifications.
func (s *Server) HandleMessage(data []byte) *JSONRPCResponse {
	var req JSONRPCRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return &JSONRPCResponse{
			JSONRPC: "2.0",
			ID:      nil,
			Error:   &Error{Code: ParseError, Message: "Parse error", Data: err.Error()},
		}
	}

	if req.JSONRPC != "2.0" {
		return &JSONRPCResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   newError(InvalidRequest, "Invalid JSON-RPC version"),
		}
	}

	return s.handleRequest(&req)
}

func (s *Server) handleRequest(req *JSONRPCRequest) *JSONRPCResponse {
	var result any
	var err *Error

	s.logger.Debug("request", "method", req.Method, "id", req.ID)

	switch req.Method {
	case "initialize":
		result, err = s.handleInitialize(req.Params)
	case "initialized", "notifications/initialized":
		return nil
	case "tools/list":
		result, err = s.handleListTools()
	case "tools/call":
		result, err = s.handleCallTool(req.Params)
	case "resources/list":
		result, err = s.handleListResources()
	case "resources/read":
		result, err = s.handleReadResource(req.Params)
	case "ping":
		result = map[string]any{}
	default:
		err = newError(MethodNotFound, fmt.Sprintf("Method not found: %s", req.Method))
	}
	if err != nil {
		result = nil
	}

	return &JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result:  result,
		Error:   err,
	}
}

// Shutdown stops Run at the next line boundary.
func (s *Server) Shutdown() {
	if s.cancel != nil {
		s.cancel()
	}
}
