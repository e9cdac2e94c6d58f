package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"iacrules/internal/config"
	"iacrules/internal/logging"
	"iacrules/internal/rules"
	"iacrules/internal/telemetry"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/trace/noop"
)

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newTestServer(t *testing.T) (*Server, *ToolRegistry) {
	t.Helper()
	reg, _ := newTestRegistry(t)
	logger, _ := logging.NewTestLogger()
	cfg := config.DefaultConfig()
	cfg.Server.Version = "2.0.0"
	return NewServer(&cfg, logger, reg, nil), reg
}

func serve(t *testing.T, s *Server, input string) []response {
	t.Helper()
	var out bytes.Buffer
	require.NoError(t, s.Serve(context.Background(), strings.NewReader(input), &out))

	var responses []response
	for _, line := range strings.Split(strings.TrimRight(out.String(), "\n"), "\n") {
		if line == "" {
			continue
		}
		var r response
		require.NoError(t, json.Unmarshal([]byte(line), &r), line)
		responses = append(responses, r)
	}
	return responses
}

func lines(requests ...string) string {
	return strings.Join(requests, "\n") + "\n"
}

func TestServe_Initialize(t *testing.T) {
	s, _ := newTestServer(t)

	resps := serve(t, s, lines(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","clientInfo":{"name":"test","version":"0"}}}`))

	require.Len(t, resps, 1)
	assert.Equal(t, "2.0", resps[0].JSONRPC)
	assert.JSONEq(t, `1`, string(resps[0].ID))
	assert.JSONEq(t, `{
		"protocolVersion": "2024-11-05",
		"capabilities": {"tools": {"listChanged": false}},
		"serverInfo": {"name": "iacrules", "version": "2.0.0"}
	}`, string(resps[0].Result))
}

func TestServe_InitializeNegotiatesVersion(t *testing.T) {
	s, _ := newTestServer(t)

	resps := serve(t, s, lines(
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26"}}`,
		`{"jsonrpc":"2.0","id":2,"method":"initialize","params":{"protocolVersion":"1999-01-01"}}`,
		`{"jsonrpc":"2.0","id":3,"method":"initialize"}`,
	))

	require.Len(t, resps, 3)
	for i, want := range []string{"2025-03-26", DefaultProtocolVersion, DefaultProtocolVersion} {
		var res initializeResult
		require.NoError(t, json.Unmarshal(resps[i].Result, &res))
		assert.Equal(t, want, res.ProtocolVersion)
	}
}

func TestServe_ResponsesKeepRequestOrder(t *testing.T) {
	s, _ := newTestServer(t)

	resps := serve(t, s, lines(
		`{"jsonrpc":"2.0","id":"a","method":"ping"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"obtener_estadisticas_reglas","arguments":{}}}`,
		`{"jsonrpc":"2.0","id":4,"method":"ping"}`,
	))

	require.Len(t, resps, 4)
	assert.JSONEq(t, `"a"`, string(resps[0].ID))
	assert.JSONEq(t, `{}`, string(resps[0].Result))
	assert.JSONEq(t, `2`, string(resps[1].ID))
	assert.JSONEq(t, `3`, string(resps[2].ID))
	assert.JSONEq(t, `4`, string(resps[3].ID))
}

func TestServe_ToolsList(t *testing.T) {
	s, reg := newTestServer(t)

	resps := serve(t, s, lines(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))

	require.Len(t, resps, 1)
	var result struct {
		Tools []struct {
			Name        string         `json:"name"`
			Description string         `json:"description"`
			InputSchema map[string]any `json:"inputSchema"`
		} `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(resps[0].Result, &result))
	require.Len(t, result.Tools, reg.Len())
	assert.Equal(t, "validar_estructura_modulo", result.Tools[0].Name)
	assert.Equal(t, "object", result.Tools[0].InputSchema["type"])
	assert.Equal(t, []any{"ruta_modulo"}, result.Tools[0].InputSchema["required"])
}

func TestServe_ToolsCall(t *testing.T) {
	s, _ := newTestServer(t)

	req := map[string]any{
		"jsonrpc": "2.0",
		"id":      7,
		"method":  "tools/call",
		"params": map[string]any{
			"name":      "validar_for_each",
			"arguments": map[string]any{"ruta_main": moduleFile(rules.FileMain)},
		},
	}
	data, err := json.Marshal(req)
	require.NoError(t, err)

	resps := serve(t, s, lines(string(data)))

	require.Len(t, resps, 1)
	require.Nil(t, resps[0].Error)
	var result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	require.NoError(t, json.Unmarshal(resps[0].Result, &result))
	require.Len(t, result.Content, 1)
	assert.Equal(t, "text", result.Content[0].Type)
	assert.Contains(t, result.Content[0].Text, "## ⚙️ for_each Usage")
	assert.Contains(t, result.Content[0].Text, "✅ VALID")
}

func TestServe_MalformedLineDoesNotStopTheLoop(t *testing.T) {
	s, _ := newTestServer(t)

	resps := serve(t, s, lines(
		`{"jsonrpc":"2.0","id":1,"method":`,
		`{"jsonrpc":"2.0","id":5}`,
		`{"jsonrpc":"2.0","id":2,"method":"ping"}`,
	))

	require.Len(t, resps, 3)
	for _, r := range resps[:2] {
		require.NotNil(t, r.Error)
		assert.Equal(t, mcp.PARSE_ERROR, r.Error.Code)
		assert.True(t, strings.HasPrefix(r.Error.Message, "Parse error: "), r.Error.Message)
		assert.JSONEq(t, `0`, string(r.ID))
	}
	assert.Nil(t, resps[2].Error)
	assert.JSONEq(t, `2`, string(resps[2].ID))
}

func TestServe_UnknownMethodAndTool(t *testing.T) {
	s, _ := newTestServer(t)

	resps := serve(t, s, lines(
		`{"jsonrpc":"2.0","id":1,"method":"resources/list"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"saludo","arguments":{}}}`,
	))

	require.Len(t, resps, 2)
	assert.Equal(t, mcp.INTERNAL_ERROR, resps[0].Error.Code)
	assert.Equal(t, "Internal error: unknown method: resources/list", resps[0].Error.Message)
	assert.Equal(t, mcp.INTERNAL_ERROR, resps[1].Error.Code)
	assert.Equal(t, "Internal error: unknown tool: saludo", resps[1].Error.Message)
}

func TestServe_HandlerErrorIsInternalError(t *testing.T) {
	s, _ := newTestServer(t)

	resps := serve(t, s, lines(
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"validar_changelog","arguments":{"ruta_changelog":"/nonexistent/CHANGELOG.md"}}}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"validar_changelog","arguments":{}}}`,
	))

	require.Len(t, resps, 2)
	assert.Equal(t, mcp.INTERNAL_ERROR, resps[0].Error.Code)
	assert.Contains(t, resps[0].Error.Message, "Internal error: error executing validar_changelog")
	assert.Contains(t, resps[0].Error.Message, "cannot read CHANGELOG.md")
	assert.Contains(t, resps[1].Error.Message, "missing argument: ruta_changelog")
}

func TestServe_BlankLinesAreSkipped(t *testing.T) {
	s, _ := newTestServer(t)

	resps := serve(t, s, lines(
		``,
		`   `,
		`{"jsonrpc":"2.0","id":1,"method":"ping"}`,
	))

	require.Len(t, resps, 1)
	assert.JSONEq(t, `1`, string(resps[0].ID))
}

func TestServe_NotificationsAreAnsweredInOrder(t *testing.T) {
	s, _ := newTestServer(t)

	resps := serve(t, s, lines(
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":7,"method":"ping"}`,
		`{"jsonrpc":"2.0","id":null,"method":"notifications/cancelled","params":{"requestId":1}}`,
		`{"jsonrpc":"2.0","id":8,"method":"ping"}`,
	))

	require.Len(t, resps, 4)
	for _, i := range []int{0, 2} {
		require.NotNil(t, resps[i].Error)
		assert.JSONEq(t, `0`, string(resps[i].ID))
		assert.Equal(t, mcp.PARSE_ERROR, resps[i].Error.Code)
		assert.Equal(t, "Parse error: missing id", resps[i].Error.Message)
	}
	assert.JSONEq(t, `7`, string(resps[1].ID))
	assert.Nil(t, resps[1].Error)
	assert.JSONEq(t, `8`, string(resps[3].ID))
	assert.Nil(t, resps[3].Error)
}

func TestServe_RequestWithoutIDIsRejected(t *testing.T) {
	s, _ := newTestServer(t)

	resps := serve(t, s, lines(`{"jsonrpc":"2.0","method":"tools/list"}`))

	require.Len(t, resps, 1)
	assert.Equal(t, mcp.PARSE_ERROR, resps[0].Error.Code)
	assert.Equal(t, "Parse error: missing id", resps[0].Error.Message)
}

func TestServe_RecoversFromHandlerPanic(t *testing.T) {
	s, reg := newTestServer(t)
	boom := &Tool{
		definition: mcp.NewTool("explota"),
		handle: func(context.Context, mcp.CallToolRequest) (string, error) {
			panic("boom")
		},
	}
	reg.tools = append(reg.tools, boom)
	reg.byName[boom.Name()] = boom

	resps := serve(t, s, lines(
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"explota"}}`,
		`{"jsonrpc":"2.0","id":2,"method":"ping"}`,
	))

	require.Len(t, resps, 2)
	assert.Equal(t, mcp.INTERNAL_ERROR, resps[0].Error.Code)
	assert.Contains(t, resps[0].Error.Message, "panic: boom")
	assert.Nil(t, resps[1].Error)
}

func TestServe_RecordsToolCalls(t *testing.T) {
	reg, _ := newTestRegistry(t)
	logger, _ := logging.NewTestLogger()
	cfg := config.DefaultConfig()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	observer, err := telemetry.NewToolObserver(mp.Meter("test"), noop.NewTracerProvider().Tracer("test"))
	require.NoError(t, err)
	s := NewServer(&cfg, logger, reg, observer)

	serve(t, s, lines(
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"obtener_estadisticas_reglas"}}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"validar_changelog","arguments":{}}}`,
	))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	var total int64
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != "iacrules.tool.invocations" {
				continue
			}
			for _, dp := range m.Data.(metricdata.Sum[int64]).DataPoints {
				total += dp.Value
			}
		}
	}
	assert.Equal(t, int64(2), total)
}

func TestServe_StopsOnContextCancel(t *testing.T) {
	s, _ := newTestServer(t)
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	var out bytes.Buffer
	go func() { done <- s.Serve(ctx, pr, &out) }()

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("broken pipe")
}

func TestServe_ReturnsWriteErrors(t *testing.T) {
	s, _ := newTestServer(t)

	err := s.Serve(context.Background(), strings.NewReader(lines(`{"jsonrpc":"2.0","id":1,"method":"ping"}`)), failingWriter{})

	assert.ErrorContains(t, err, "broken pipe")
}
