// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes the envtest operations over stdio.
package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/envtest/internal/backend"
	"github.com/starford/envtest/internal/history"
	"github.com/starford/envtest/internal/index"
)

const logsURI = "envtest://logs"

// Server wraps the MCP server with envtest tools.
type Server struct {
	mcp     *server.MCPServer
	backend *backend.Backend
	history *history.Service
}

// New creates a new MCP server with all tools registered.
func New(be *backend.Backend, hist *history.Service, version string) *Server {
	s := &Server{backend: be, history: hist}

	s.mcp = server.NewMCPServer(
		"envtest",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool(backend.OpDebugLog,
		mcp.WithDescription("Append a timestamped game info record for a Steam appid to today's log file "+
			"and return the serialized record."),
		mcp.WithNumber("appid", mcp.Description("Steam application id (defaults to 0)")),
		mcp.WithObject("additional", mcp.Description("Arbitrary game metadata to record")),
	), s.debugLog)

	s.mcp.AddTool(mcp.NewTool(backend.OpPullHeroicData,
		mcp.WithDescription("Look up the Heroic Games Launcher per-game config and matching sideloaded "+
			"library entries for a game."),
		mcp.WithString("appname", mcp.Required(), mcp.Description("Heroic app name: numeric id or game title")),
	), s.pullHeroicData)

	s.mcp.AddTool(mcp.NewTool("list_records",
		mcp.WithDescription("List previously logged records, newest first."),
		mcp.WithNumber("appid", mcp.Description("Only records for this appid")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of records (default 20)")),
	), s.listRecords)

	s.mcp.AddResource(
		mcp.NewResource(logsURI, "Daily log files",
			mcp.WithResourceDescription("Names, sizes and checksums of the daily log files."),
			mcp.WithMIMEType("application/json"),
		),
		s.readLogsResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// call forwards the tool arguments to the backend and returns the envelope as
// the tool result text. Error envelopes are flagged as tool errors.
func (s *Server) call(ctx context.Context, op string, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(req.GetArguments())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	env, callErr := s.backend.Call(ctx, op, raw)
	out, err := backend.Marshal(env)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if callErr != nil || env.Failed() {
		return mcp.NewToolResultError(string(out)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) debugLog(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.call(ctx, backend.OpDebugLog, req)
}

func (s *Server) pullHeroicData(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.call(ctx, backend.OpPullHeroicData, req)
}

func (s *Server) listRecords(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	q := index.RecordQuery{Limit: 20}
	if l, ok := intArg(args, "limit"); ok {
		q.Limit = int(l)
	}
	if appid, ok := intArg(args, "appid"); ok {
		q.AppID = &appid
	}

	items, total, err := s.history.ListRecords(ctx, q)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(map[string]any{"records": items, "total": total}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

// intArg reads a numeric argument. JSON numbers arrive as float64.
func intArg(args map[string]any, key string) (int64, bool) {
	switch v := args[key].(type) {
	case float64:
		return int64(v), true
	case int:
		return int64(v), true
	case int64:
		return v, true
	}
	return 0, false
}

func (s *Server) readLogsResource(ctx context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	logs, err := s.history.ListLogs(ctx)
	if err != nil {
		return nil, err
	}
	out, err := json.MarshalIndent(logs, "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      logsURI,
			MIMEType: "application/json",
			Text:     string(out),
		},
	}, nil
}
