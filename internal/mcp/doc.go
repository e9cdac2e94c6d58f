// Package mcp serves the rule catalog to tool-calling clients over the Model
// Context Protocol.
//
// Requests arrive as line-delimited JSON-RPC 2.0 on an input stream and every
// response is written as a single line on the output stream. Diagnostics go
// to the logger, never to the output stream. Protocol types (tool
// definitions, call requests, envelopes and error codes) come from
// github.com/mark3labs/mcp-go/mcp; the dispatch loop itself lives here.
//
// # Methods
//
//   - initialize: protocol version, capabilities and server info
//   - ping: empty result
//   - tools/list: every registered tool, in registry order
//   - tools/call: runs one tool and returns its text output
//
// Exactly one response line is written per non-blank input line.
//
// # Errors
//
// A line that is not valid JSON, or an envelope without a method or an id
// (notifications included), is answered with code -32700 and id 0. Unknown methods, unknown tools, handler failures
// and recovered handler panics are answered with code -32603. The loop keeps
// serving after every error.
//
// # Usage
//
// The server is normally started by an MCP client as a subprocess:
//
//	iacrules serve
package mcp
