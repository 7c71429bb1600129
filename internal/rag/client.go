package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sofialabs/legalaid-ai-platform/pkg/logging"
)

const (
	defaultTimeout = 12 * time.Second
	maxAttempts    = 2
	retryBaseDelay = 250 * time.Millisecond
)

// Client calls the retrieval-augmented answer service over HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string
	endpoint   string
	logger     *logging.Logger
}

// Options configures a Client. BaseURL is required.
type Options struct {
	BaseURL  string
	Endpoint string
	Timeout  time.Duration
	Logger   *logging.Logger
}

// NewClient creates an answer-service client.
func NewClient(opts Options) *Client {
	if opts.Endpoint == "" {
		opts.Endpoint = "/v1/ai/rag-answer"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	return &Client{
		httpClient: &http.Client{Timeout: opts.Timeout},
		baseURL:    opts.BaseURL,
		endpoint:   opts.Endpoint,
		logger:     opts.Logger,
	}
}

type askRequest struct {
	Query string `json:"query"`
}

// envelope tolerates both the wrapped ({data: {...}}) and flat response
// shapes the answer service has used.
type envelope struct {
	Data *Answer `json:"data"`
	Answer
}

type statusError struct {
	status int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("rag: answer service returned status %d", e.status)
}

// Ask sends the query and returns the parsed answer. Transient failures
// (gateway errors, transport errors, timeouts) are retried once with a short
// backoff.
func (c *Client) Ask(ctx context.Context, query, correlationID string) (*Answer, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		answer, err := c.ask(ctx, query, correlationID)
		if err == nil {
			return answer, nil
		}
		lastErr = err
		if !isRetryable(err) || attempt == maxAttempts {
			break
		}
		c.logger.Warn("rag request retry",
			"attempt", attempt,
			"correlation_id", correlationID,
			"error", err.Error())
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryBaseDelay * time.Duration(attempt)):
		}
	}
	return nil, fmt.Errorf("rag: answer request failed: %w", lastErr)
}

func (c *Client) ask(ctx context.Context, query, correlationID string) (*Answer, error) {
	body, err := json.Marshal(askRequest{Query: query})
	if err != nil {
		return nil, fmt.Errorf("rag: failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("rag: failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if correlationID != "" {
		req.Header.Set("x-correlation-id", correlationID)
		req.Header.Set("x-request-id", correlationID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rag: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, &statusError{status: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("rag: failed to read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("rag: failed to decode response: %w", err)
	}
	if env.Data != nil {
		return env.Data, nil
	}
	answer := env.Answer
	return &answer, nil
}

func isRetryable(err error) bool {
	var statusErr *statusError
	if errors.As(err, &statusErr) {
		switch statusErr.status {
		case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
		return false
	}
	// Transport errors and timeouts are worth one retry.
	return true
}
