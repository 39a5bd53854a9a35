package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
	"github.com/kirillkom/textbook-rag/internal/core/ports"
)

const (
	serverName    = "textbook-rag"
	serverVersion = "1.0.0"
)

// Server exposes question answering to MCP clients.
type Server struct {
	answerer ports.QuestionAnswerer
	runs     ports.IngestRunReader
	mcp      *server.MCPServer
}

func NewServer(answerer ports.QuestionAnswerer, runs ports.IngestRunReader) *Server {
	s := &Server{
		answerer: answerer,
		runs:     runs,
		mcp:      server.NewMCPServer(serverName, serverVersion, server.WithToolCapabilities(false)),
	}

	s.mcp.AddTool(mcp.NewTool("ask",
		mcp.WithDescription("Answer a question about the science textbook. Returns the answer and the route used."),
		mcp.WithString("question", mcp.Required(), mcp.Description("Question in natural language")),
		mcp.WithBoolean("allow_web", mcp.Description("Allow web search fallback")),
	), s.handleAsk)

	if runs != nil {
		s.mcp.AddTool(mcp.NewTool("get_ingest_run",
			mcp.WithDescription("Return the status and counters of an ingestion run."),
			mcp.WithString("run_id", mcp.Required(), mcp.Description("Ingestion run id")),
		), s.handleGetRun)
	}
	return s
}

func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) StreamableHTTP() *server.StreamableHTTPServer {
	return server.NewStreamableHTTPServer(s.mcp)
}

func (s *Server) handleAsk(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	allowWeb := request.GetBool("allow_web", false)

	answer, err := s.answerer.Answer(ctx, question, allowWeb)
	if err != nil {
		slog.Warn("mcp_ask_failed", "error", err)
		return mcp.NewToolResultError(toolErrorMessage(err)), nil
	}
	return jsonResult(answer)
}

func (s *Server) handleGetRun(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("run_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	run, err := s.runs.GetByID(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(toolErrorMessage(err)), nil
	}
	return jsonResult(run)
}

func toolErrorMessage(err error) string {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return "invalid input: " + err.Error()
	case domain.IsKind(err, domain.ErrRunNotFound):
		return "not found: " + err.Error()
	case domain.IsKind(err, domain.ErrTemporary), domain.IsKind(err, domain.ErrIndexUnavailable):
		return "temporarily unavailable, retry later: " + err.Error()
	default:
		return err.Error()
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal tool result: %w", err)
	}
	return mcp.NewToolResultText(string(raw)), nil
}
