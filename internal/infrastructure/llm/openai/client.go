package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/kirillkom/textbook-rag/internal/infrastructure/resilience"
)

type Config struct {
	APIKey     string
	BaseURL    string
	ChatModel  string
	EmbedModel string
}

// Client serves both the Completer and the Embedder ports from one
// OpenAI-compatible endpoint.
type Client struct {
	client     *goopenai.Client
	chatModel  string
	embedModel string
	executor   *resilience.Executor
}

func New(cfg Config, executor *resilience.Executor) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("openai api key is required")
	}

	clientConfig := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	chatModel := cfg.ChatModel
	if chatModel == "" {
		chatModel = goopenai.GPT4oMini
	}
	embedModel := cfg.EmbedModel
	if embedModel == "" {
		embedModel = string(goopenai.SmallEmbedding3)
	}

	return &Client{
		client:     goopenai.NewClientWithConfig(clientConfig),
		chatModel:  chatModel,
		embedModel: embedModel,
		executor:   executor,
	}, nil
}

func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := resilience.Do(ctx, c.executor, "openai.chat", func(callCtx context.Context) (goopenai.ChatCompletionResponse, error) {
		return c.client.CreateChatCompletion(callCtx, goopenai.ChatCompletionRequest{
			Model: c.chatModel,
			Messages: []goopenai.ChatCompletionMessage{
				{Role: goopenai.ChatMessageRoleUser, Content: prompt},
			},
			Temperature: 0,
		})
	}, classifyOpenAIError)
	if err != nil {
		return "", resilience.WrapTemporary("openai chat", fmt.Errorf("openai chat: %w", err), classifyOpenAIError)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai chat returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := resilience.Do(ctx, c.executor, "openai.embed", func(callCtx context.Context) (goopenai.EmbeddingResponse, error) {
		return c.client.CreateEmbeddings(callCtx, goopenai.EmbeddingRequest{
			Input: texts,
			Model: goopenai.EmbeddingModel(c.embedModel),
		})
	}, classifyOpenAIError)
	if err != nil {
		return nil, resilience.WrapTemporary("openai embed", fmt.Errorf("openai embed: %w", err), classifyOpenAIError)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai embed returned %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	out := make([][]float32, len(texts))
	for i, item := range resp.Data {
		idx := item.Index
		if idx < 0 || idx >= len(out) {
			idx = i
		}
		out[idx] = item.Embedding
	}
	return out, nil
}

func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, errors.New("empty embedding result")
	}
	return vectors[0], nil
}

type apiStatusError struct {
	err    error
	status int
}

func (e *apiStatusError) Error() string   { return e.err.Error() }
func (e *apiStatusError) Unwrap() error   { return e.err }
func (e *apiStatusError) HTTPStatus() int { return e.status }

func classifyOpenAIError(err error) resilience.ErrorClassification {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return resilience.ClassifyTransport(&apiStatusError{err: err, status: apiErr.HTTPStatusCode})
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return resilience.ClassifyTransport(&apiStatusError{err: err, status: reqErr.HTTPStatusCode})
	}
	return resilience.ClassifyTransport(err)
}
