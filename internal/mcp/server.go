package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"iacrules/internal/config"
	"iacrules/internal/logging"
	"iacrules/internal/telemetry"

	"github.com/mark3labs/mcp-go/mcp"
)

// DefaultProtocolVersion is negotiated unless the client asks for another
// version mcp-go knows.
const DefaultProtocolVersion = "2024-11-05"

const maxLineSize = 16 << 20

// ErrUnknownMethod is returned for a request whose method is not served.
var ErrUnknownMethod = errors.New("unknown method")

// Server answers JSON-RPC requests with the tools of a ToolRegistry.
type Server struct {
	config   *config.Config
	logger   *logging.AppLogger
	registry *ToolRegistry
	observer *telemetry.ToolObserver
}

// NewServer creates a server. observer may be nil.
func NewServer(cfg *config.Config, logger *logging.AppLogger, registry *ToolRegistry, observer *telemetry.ToolObserver) *Server {
	if logger == nil {
		logger = logging.GetDefault()
	}
	return &Server{
		config:   cfg,
		logger:   logger,
		registry: registry,
		observer: observer,
	}
}

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *mcp.RequestId  `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

func (r request) hasID() bool {
	return r.ID != nil && !r.ID.IsNil()
}

type toolsCapability struct {
	ListChanged bool `json:"listChanged"`
}

type serverCapabilities struct {
	Tools toolsCapability `json:"tools"`
}

type initializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    serverCapabilities `json:"capabilities"`
	ServerInfo      mcp.Implementation `json:"serverInfo"`
}

// Serve reads one request per line from r and writes one response per line
// to w until r is exhausted or ctx is canceled. Requests are handled one at
// a time in arrival order. Only read and write failures end the loop with an
// error.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	lines := make(chan string)
	readErr := make(chan error, 1)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				readErr <- nil
				return
			}
		}
		readErr <- scanner.Err()
	}()

	s.logger.Info("Serving MCP over stdio", "tools", s.registry.Len())
	out := bufio.NewWriter(w)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("MCP server stopping", "reason", ctx.Err())
			return nil
		case line, ok := <-lines:
			if !ok {
				if err := <-readErr; err != nil {
					return fmt.Errorf("reading requests: %w", err)
				}
				s.logger.Info("MCP input closed")
				return nil
			}

			resp := s.handleLine(ctx, line)
			if resp == nil {
				continue
			}
			if err := writeLine(out, resp); err != nil {
				return fmt.Errorf("writing response: %w", err)
			}
		}
	}
}

func writeLine(out *bufio.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if _, err := out.Write(data); err != nil {
		return err
	}
	return out.Flush()
}

// handleLine returns the response for one input line, or nil for a blank line.
func (s *Server) handleLine(ctx context.Context, line string) any {
	if strings.TrimSpace(line) == "" {
		return nil
	}

	var req request
	if err := json.Unmarshal([]byte(line), &req); err != nil {
		s.logger.Warn("Malformed request", "error", err)
		return parseError(err)
	}
	if req.Method == "" {
		s.logger.Warn("Request without method")
		return parseError(errors.New("missing method"))
	}
	// Every non-blank line is answered, notifications included.
	if !req.hasID() {
		s.logger.Warn("Request without id", "method", req.Method)
		return parseError(errors.New("missing id"))
	}

	s.logger.Debug("Processing request", "method", req.Method, "id", req.ID.String())
	return s.respond(ctx, req)
}

func parseError(err error) mcp.JSONRPCError {
	return mcp.NewJSONRPCError(mcp.NewRequestId(int64(0)), mcp.PARSE_ERROR, "Parse error: "+err.Error(), nil)
}

func (s *Server) respond(ctx context.Context, req request) (resp any) {
	id := *req.ID
	defer func() {
		if p := recover(); p != nil {
			s.logger.Error("Recovered panic while handling request", "method", req.Method, "panic", p)
			resp = mcp.NewJSONRPCError(id, mcp.INTERNAL_ERROR, fmt.Sprintf("Internal error: %v", p), nil)
		}
	}()

	result, err := s.dispatch(ctx, req)
	if err != nil {
		s.logger.Error("Request failed", "method", req.Method, "error", err)
		return mcp.NewJSONRPCError(id, mcp.INTERNAL_ERROR, "Internal error: "+err.Error(), nil)
	}
	return mcp.JSONRPCResponse{JSONRPC: mcp.JSONRPC_VERSION, ID: id, Result: result}
}

func (s *Server) dispatch(ctx context.Context, req request) (any, error) {
	switch req.Method {
	case "initialize":
		return s.initialize(req.Params)
	case "ping":
		return struct{}{}, nil
	case "tools/list":
		return mcp.NewListToolsResult(s.registry.Definitions(), ""), nil
	case "tools/call":
		return s.callTool(ctx, req.Params)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, req.Method)
	}
}

func (s *Server) initialize(params json.RawMessage) (any, error) {
	var p struct {
		ProtocolVersion string             `json:"protocolVersion"`
		ClientInfo      mcp.Implementation `json:"clientInfo"`
	}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, fmt.Errorf("invalid initialize params: %w", err)
		}
	}

	version := DefaultProtocolVersion
	if p.ProtocolVersion != "" && slices.Contains(mcp.ValidProtocolVersions, p.ProtocolVersion) {
		version = p.ProtocolVersion
	}
	s.logger.Info("Client initialized",
		"client", p.ClientInfo.Name,
		"clientVersion", p.ClientInfo.Version,
		"protocolVersion", version)

	return initializeResult{
		ProtocolVersion: version,
		Capabilities:    serverCapabilities{Tools: toolsCapability{ListChanged: false}},
		ServerInfo: mcp.Implementation{
			Name:    s.config.Server.Name,
			Version: s.config.Server.Version,
		},
	}, nil
}

func (s *Server) callTool(ctx context.Context, params json.RawMessage) (any, error) {
	var call mcp.CallToolRequest
	if len(params) > 0 {
		if err := json.Unmarshal(params, &call.Params); err != nil {
			return nil, fmt.Errorf("invalid tool call params: %w", err)
		}
	}

	tool, err := s.registry.Lookup(call.Params.Name)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	text, err := invoke(ctx, tool, call)
	elapsed := time.Since(start)

	obs := telemetry.ToolCall{ToolName: tool.Name(), Start: start, Duration: elapsed, Success: err == nil}
	if err != nil {
		obs.Error = err.Error()
	}
	s.observer.ObserveCall(ctx, obs)
	s.logger.Info("Tool call", "tool", tool.Name(), "duration", elapsed, "success", err == nil)

	if err != nil {
		return nil, fmt.Errorf("error executing %s: %w", tool.Name(), err)
	}
	return mcp.NewToolResultText(text), nil
}

// invoke runs a tool handler, turning a panic into an error.
func invoke(ctx context.Context, tool *Tool, req mcp.CallToolRequest) (text string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return tool.handle(ctx, req)
}
