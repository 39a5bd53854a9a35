package mcpadapter

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
)

type answererFake struct {
	question string
	allowWeb bool
	err      error
}

func (f *answererFake) Answer(_ context.Context, question string, allowWeb bool) (*domain.Answer, error) {
	f.question = question
	f.allowWeb = allowWeb
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Answer{Text: "Iron reacts with oxygen and water.", Route: domain.RouteText}, nil
}

type runsFake struct{}

func (runsFake) GetByID(_ context.Context, id string) (*domain.IngestRun, error) {
	if id == "missing" {
		return nil, domain.WrapError(domain.ErrRunNotFound, "get ingest run", errors.New("id=missing"))
	}
	return &domain.IngestRun{ID: id, Status: domain.RunStatusRunning}, nil
}

func callTool(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) == 0 {
		t.Fatalf("empty tool result")
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("unexpected content type %T", res.Content[0])
	}
	return text.Text
}

func TestAskTool(t *testing.T) {
	answerer := &answererFake{}
	srv := NewServer(answerer, nil)

	res, err := srv.handleAsk(context.Background(), callTool("ask", map[string]any{
		"question":  "What is rusting?",
		"allow_web": true,
	}))
	if err != nil {
		t.Fatalf("handleAsk: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}
	text := resultText(t, res)
	if !strings.Contains(text, `"route":"TEXT"`) || !strings.Contains(text, "Iron reacts") {
		t.Fatalf("unexpected result %s", text)
	}
	if answerer.question != "What is rusting?" || !answerer.allowWeb {
		t.Fatalf("arguments not forwarded: %q %v", answerer.question, answerer.allowWeb)
	}
}

func TestAskToolRequiresQuestion(t *testing.T) {
	srv := NewServer(&answererFake{}, nil)
	res, err := srv.handleAsk(context.Background(), callTool("ask", map[string]any{}))
	if err != nil {
		t.Fatalf("handleAsk: %v", err)
	}
	if !res.IsError {
		t.Fatalf("expected tool error for missing question")
	}
}

func TestAskToolReportsTemporaryFailure(t *testing.T) {
	srv := NewServer(&answererFake{err: domain.WrapError(domain.ErrTemporary, "answer", domain.ErrIngestInProgress)}, nil)
	res, err := srv.handleAsk(context.Background(), callTool("ask", map[string]any{"question": "why"}))
	if err != nil {
		t.Fatalf("handleAsk: %v", err)
	}
	if !res.IsError || !strings.HasPrefix(resultText(t, res), "temporarily unavailable") {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestGetIngestRunTool(t *testing.T) {
	srv := NewServer(&answererFake{}, runsFake{})

	res, err := srv.handleGetRun(context.Background(), callTool("get_ingest_run", map[string]any{"run_id": "r1"}))
	if err != nil {
		t.Fatalf("handleGetRun: %v", err)
	}
	if !strings.Contains(resultText(t, res), `"status":"running"`) {
		t.Fatalf("unexpected result %s", resultText(t, res))
	}

	res, _ = srv.handleGetRun(context.Background(), callTool("get_ingest_run", map[string]any{"run_id": "missing"}))
	if !res.IsError || !strings.HasPrefix(resultText(t, res), "not found") {
		t.Fatalf("expected not found error, got %+v", res)
	}
}
