package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
	"github.com/kirillkom/textbook-rag/internal/infrastructure/resilience"
)

const upsertBatchSize = 256

type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	HTTPTimeout        time.Duration
	ResilienceExecutor *resilience.Executor
}

func New(baseURL, collection string) *Client {
	return NewWithOptions(baseURL, collection, Options{})
}

func NewWithOptions(baseURL, collection string, options Options) *Client {
	timeout := options.HTTPTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		httpClient: &http.Client{Timeout: timeout},
		executor:   options.ResilienceExecutor,
	}
}

// EnsureReady fails when the passage collection has not been built yet.
func (c *Client) EnsureReady(ctx context.Context) error {
	err := c.call(ctx, "collection_info", http.MethodGet, c.collectionURL(), nil, nil)
	if err == nil {
		return nil
	}
	var statusErr *StatusError
	if asStatusError(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
		return domain.WrapError(domain.ErrIndexUnavailable, "qdrant collection "+c.collection, err)
	}
	return err
}

// Reset drops the collection and recreates it for the given vector size.
func (c *Client) Reset(ctx context.Context, vectorSize int) error {
	if vectorSize <= 0 {
		return domain.WrapError(domain.ErrInvalidInput, "qdrant reset", fmt.Errorf("vector size must be positive"))
	}

	err := c.call(ctx, "delete_collection", http.MethodDelete, c.collectionURL(), nil, nil)
	var statusErr *StatusError
	if err != nil && !(asStatusError(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound) {
		return err
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     vectorSize,
			"distance": "Cosine",
		},
	}
	return c.call(ctx, "create_collection", http.MethodPut, c.collectionURL(), body, nil)
}

func (c *Client) IndexPassages(ctx context.Context, passages []domain.Passage, vectors [][]float32) error {
	if len(passages) == 0 {
		return nil
	}
	if len(passages) != len(vectors) {
		return fmt.Errorf("passages/vectors mismatch: %d != %d", len(passages), len(vectors))
	}

	type point struct {
		ID      string         `json:"id"`
		Vector  []float32      `json:"vector"`
		Payload map[string]any `json:"payload"`
	}

	for start := 0; start < len(passages); start += upsertBatchSize {
		end := min(start+upsertBatchSize, len(passages))
		points := make([]point, 0, end-start)
		for i := start; i < end; i++ {
			p := passages[i]
			id := p.ID
			if _, err := uuid.Parse(id); err != nil {
				id = uuid.NewString()
			}
			points = append(points, point{
				ID:     id,
				Vector: vectors[i],
				Payload: map[string]any{
					"id":          id,
					"source":      p.Source,
					"page":        p.Page,
					"chunk_index": p.ChunkIndex,
					"text":        p.Text,
				},
			})
		}
		url := c.collectionURL() + "/points?wait=true"
		if err := c.call(ctx, "upsert", http.MethodPut, url, map[string]any{"points": points}, nil); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) Search(ctx context.Context, queryVector []float32, limit int) ([]domain.Passage, error) {
	if limit <= 0 {
		return nil, nil
	}
	reqBody := map[string]any{
		"vector":       queryVector,
		"limit":        limit,
		"with_payload": true,
	}

	var searchResp struct {
		Result []struct {
			ID      any            `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := c.call(ctx, "search", http.MethodPost, c.collectionURL()+"/points/search", reqBody, &searchResp); err != nil {
		return nil, err
	}

	out := make([]domain.Passage, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		id := getStringPayload(r.Payload, "id")
		if id == "" && r.ID != nil {
			id = fmt.Sprintf("%v", r.ID)
		}
		out = append(out, domain.Passage{
			ID:         id,
			Source:     getStringPayload(r.Payload, "source"),
			Page:       getIntPayload(r.Payload, "page"),
			ChunkIndex: getIntPayload(r.Payload, "chunk_index"),
			Text:       getStringPayload(r.Payload, "text"),
			Score:      r.Score,
		})
	}
	return out, nil
}

func (c *Client) collectionURL() string {
	return fmt.Sprintf("%s/collections/%s", c.baseURL, c.collection)
}

func (c *Client) call(ctx context.Context, operation, method, url string, payload any, out any) error {
	call := func(callCtx context.Context) error {
		return c.doJSON(callCtx, operation, method, url, payload, out)
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "qdrant."+operation, call, resilience.ClassifyTransport)
	} else {
		err = call(ctx)
	}
	return resilience.WrapTemporary("qdrant "+operation, err, resilience.ClassifyTransport)
}

func (c *Client) doJSON(ctx context.Context, operation, method, url string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal %s body: %w", operation, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &StatusError{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(raw)),
		}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

func getStringPayload(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func getIntPayload(payload map[string]any, key string) int {
	switch v := payload[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case json.Number:
		n, _ := v.Int64()
		return int(n)
	default:
		return 0
	}
}
