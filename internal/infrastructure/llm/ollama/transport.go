package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
	"github.com/kirillkom/textbook-rag/internal/infrastructure/resilience"
)

// HTTPStatusError is a non-2xx reply. Message holds ollama's {"error": ...}
// text when the body carries one, else the raw body.
type HTTPStatusError struct {
	Operation  string
	StatusCode int
	Message    string
}

func (e *HTTPStatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("ollama %s: status %d", e.Operation, e.StatusCode)
	}
	return fmt.Sprintf("ollama %s: status %d: %s", e.Operation, e.StatusCode, e.Message)
}

func (e *HTTPStatusError) HTTPStatus() int {
	return e.StatusCode
}

// modelMissing reports the 404 ollama returns for a model that was never pulled.
func (e *HTTPStatusError) modelMissing() bool {
	return e.StatusCode == http.StatusNotFound && strings.Contains(strings.ToLower(e.Message), "not found")
}

// call posts payload to path through the executor and decodes the reply into out.
func (c *Client) call(ctx context.Context, operation, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", operation, err)
	}

	call := func(callCtx context.Context) error {
		return c.post(callCtx, operation, path, body, out)
	}
	if c.executor != nil {
		err = c.executor.Execute(ctx, "ollama."+operation, call, resilience.ClassifyTransport)
	} else {
		err = call(ctx)
	}
	if err == nil {
		return nil
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) && statusErr.modelMissing() {
		return domain.WrapError(domain.ErrInvalidInput, "ollama "+operation, err)
	}
	return resilience.WrapTemporary("ollama "+operation, err, resilience.ClassifyTransport)
}

func (c *Client) post(ctx context.Context, operation, path string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ollama %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &HTTPStatusError{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(raw),
		}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

func errorMessage(raw []byte) string {
	var reply struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &reply) == nil && reply.Error != "" {
		return reply.Error
	}
	return strings.TrimSpace(string(raw))
}
