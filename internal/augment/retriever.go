package augment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"github.com/tidwall/gjson"
)

// ErrNotConfigured is returned when no retrieval base URL is set.
var ErrNotConfigured = errors.New("context API URL not configured")

const maxRetrievalBody = 4 << 20

// HTTPRetriever calls POST {baseURL}/get-relevant-content. Repeated failures
// open a circuit breaker so a dead retrieval service costs nothing per prompt.
type HTTPRetriever struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

type retrievalRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

// NewHTTPRetriever returns a retriever for baseURL. An empty baseURL yields a
// retriever that always fails with ErrNotConfigured.
func NewHTTPRetriever(baseURL string, logger *slog.Logger) *HTTPRetriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPRetriever{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "context-retrieval",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
			},
		}),
	}
}

func (r *HTTPRetriever) Retrieve(ctx context.Context, query string, limit int) ([]string, error) {
	if r.baseURL == "" {
		return nil, ErrNotConfigured
	}
	out, err := r.breaker.Execute(func() (interface{}, error) {
		return r.fetch(ctx, query, limit)
	})
	if err != nil {
		return nil, err
	}
	return out.([]string), nil
}

func (r *HTTPRetriever) fetch(ctx context.Context, query string, limit int) ([]string, error) {
	body, err := json.Marshal(retrievalRequest{Query: query, Limit: limit})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/get-relevant-content", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch context data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("failed to fetch context data: %s", resp.Status)
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxRetrievalBody))
	if err != nil {
		return nil, fmt.Errorf("read context data: %w", err)
	}
	return ParsePassages(raw)
}

// ParsePassages reads the "text" of every item in the body's "message" array.
func ParsePassages(body []byte) ([]string, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.New("context data is not valid JSON")
	}
	items := gjson.GetBytes(body, "message")
	if !items.IsArray() {
		return nil, errors.New("context data must be an array")
	}
	var passages []string
	for i, item := range items.Array() {
		text := item.Get("text")
		if !item.IsObject() || !text.Exists() {
			return nil, fmt.Errorf("context item %d has no text", i)
		}
		passages = append(passages, text.String())
	}
	return passages, nil
}
