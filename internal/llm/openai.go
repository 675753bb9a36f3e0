package llm

import (
	"context"
	"errors"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient implements Client for OpenAI-compatible providers.
type OpenAIClient struct {
	api *openai.Client
}

// NewOpenAIClient returns a client for apiKey. An empty baseURL means the public
// OpenAI endpoint; otherwise it must include the version prefix (".../v1").
func NewOpenAIClient(apiKey, baseURL string) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIClient{api: openai.NewClientWithConfig(cfg)}
}

func (c *OpenAIClient) Chat(ctx context.Context, params ChatParams) (<-chan StreamEvent, error) {
	stream, err := c.api.CreateChatCompletionStream(ctx, buildRequest(params))
	if err != nil {
		return nil, wrapAPIError(err)
	}

	ch := make(chan StreamEvent, 32)
	go func() {
		defer close(ch)
		defer stream.Close()
		// send gives up once the consumer's context is gone
		send := func(ev StreamEvent) bool {
			select {
			case ch <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}
		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				send(StreamEvent{Type: EventDone})
				return
			}
			if err != nil {
				send(StreamEvent{Type: EventError, Error: wrapAPIError(err)})
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}
			choice := resp.Choices[0]
			if choice.Delta.Content != "" && !send(StreamEvent{Type: EventTextDelta, Text: choice.Delta.Content}) {
				return
			}
			if choice.FinishReason != "" {
				send(StreamEvent{Type: EventDone, Text: string(choice.FinishReason)})
				return
			}
		}
	}()
	return ch, nil
}

func buildRequest(params ChatParams) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, len(params.Messages)+1)
	if params.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: params.System,
		})
	}
	for _, msg := range params.Messages {
		messages = append(messages, openai.ChatCompletionMessage{Role: msg.Role, Content: msg.Content})
	}
	return openai.ChatCompletionRequest{
		Model:    params.Model,
		Messages: messages,
		Stream:   true,
	}
}

func wrapAPIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &APIError{StatusCode: apiErr.HTTPStatusCode, Body: apiErr.Message, Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &APIError{StatusCode: reqErr.HTTPStatusCode, Body: reqErr.Error(), Err: err}
	}
	return fmt.Errorf("llm request: %w", err)
}

// APIError represents an HTTP error from the LLM provider.
type APIError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("LLM API error (status %d): %s", e.StatusCode, e.Body)
}

func (e *APIError) Unwrap() error { return e.Err }

// IsRateLimit returns true if this is a rate limit error.
func (e *APIError) IsRateLimit() bool { return e.StatusCode == 429 }

// IsAuth returns true if this is an authentication error.
func (e *APIError) IsAuth() bool { return e.StatusCode == 401 || e.StatusCode == 403 }
