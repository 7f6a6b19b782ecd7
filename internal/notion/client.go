// Package notion talks to the Notion REST API and pages through database queries.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"notiontable/internal/config"
	"notiontable/internal/logger"
	"notiontable/internal/models"
	"notiontable/pkg/utils"
)

// maxResponseBytes bounds a single query response.
const maxResponseBytes = 32 * 1024 * 1024

// Client errors.
var (
	ErrUnexpectedStatusCode = errors.New("unexpected status code")
	ErrMissingSecret        = errors.New("notion secret is empty")
)

// Client defines the interface for querying a database.
type Client interface {
	QueryDatabase(ctx context.Context, databaseID, cursor string) (*QueryResponse, error)
}

// Ensure HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)

// HTTPClient queries databases over HTTP with config-driven retry logic.
type HTTPClient struct {
	httpClient  *http.Client
	headers     http.Header
	retryPolicy config.RetryPolicy
	logger      *logger.Logger
	baseURL     string
	pageSize    int
}

// QueryRequest is the body of a database query.
type QueryRequest struct {
	StartCursor string `json:"start_cursor,omitempty"`
	PageSize    int    `json:"page_size,omitempty"`
}

// QueryResponse is one page of query results.
type QueryResponse struct {
	NextCursor *string        `json:"next_cursor"`
	Object     string         `json:"object"`
	Results    []*models.Page `json:"results"`
	HasMore    bool           `json:"has_more"`
}

// APIError is a non-200 answer from the API. It matches ErrUnexpectedStatusCode.
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Body       string `json:"-"`
	StatusCode int    `json:"status"`
}

func (e *APIError) Error() string {
	detail := e.Message
	if detail == "" {
		detail = e.Body
	}

	if e.Code != "" {
		return fmt.Sprintf("%s: %d %s: %s", ErrUnexpectedStatusCode, e.StatusCode, e.Code, detail)
	}

	return fmt.Sprintf("%s: %d: %s", ErrUnexpectedStatusCode, e.StatusCode, detail)
}

// Unwrap lets errors.Is match ErrUnexpectedStatusCode.
func (e *APIError) Unwrap() error {
	return ErrUnexpectedStatusCode
}

// NewHTTPClient creates a client for the API described by cfg, authenticated with secret.
func NewHTTPClient(cfg *config.NotionConfig, secret string, log *logger.Logger) (*HTTPClient, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrMissingSecret
	}

	if log == nil {
		log = logger.Discard()
	}

	return &HTTPClient{
		httpClient: &http.Client{
			Timeout: cfg.Retry.GetTimeout(),
		},
		headers:     utils.NewHTTPHelper().BearerHeaders(secret, cfg.Version),
		retryPolicy: cfg.Retry,
		logger:      log,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		pageSize:    cfg.PageSize,
	}, nil
}

// QueryDatabase fetches one page of results starting at cursor ("" for the first page).
// Transport errors and retryable statuses are retried per the retry policy.
func (c *HTTPClient) QueryDatabase(ctx context.Context, databaseID, cursor string) (*QueryResponse, error) {
	if databaseID == "" {
		return nil, config.ErrMissingDatabaseID
	}

	body, err := json.Marshal(QueryRequest{StartCursor: cursor, PageSize: c.pageSize})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/databases/%s/query", c.baseURL, databaseID)

	var lastErr error

	for attempt := 1; attempt <= c.retryPolicy.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := c.retryPolicy.GetRetryDelay(attempt)

			var ra *retryAfterError
			if errors.As(lastErr, &ra) && ra.after > delay {
				delay = ra.after
			}

			c.logger.Warn("retrying database query",
				"attempt", attempt,
				"max_attempts", c.retryPolicy.MaxAttempts,
				"delay", delay,
				"error", lastErr,
			)

			if err := sleep(ctx, delay); err != nil {
				return nil, err
			}
		}

		resp, err := c.post(ctx, endpoint, body)
		if err == nil {
			return resp, nil
		}

		lastErr = err

		if !isRetryable(err) || ctx.Err() != nil {
			break
		}
	}

	return nil, fmt.Errorf("failed to query database %s: %w", databaseID, lastErr)
}

// retryAfterError marks a failure worth retrying, optionally after a server-given delay.
type retryAfterError struct {
	err   error
	after time.Duration
}

func (e *retryAfterError) Error() string { return e.err.Error() }
func (e *retryAfterError) Unwrap() error { return e.err }

func isRetryable(err error) bool {
	var r *retryAfterError
	return errors.As(err, &r)
}

func (c *HTTPClient) post(ctx context.Context, endpoint string, body []byte) (_ *QueryResponse, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header = c.headers.Clone()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		return nil, &retryAfterError{err: fmt.Errorf("request failed: %w", err)}
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close response body: %w", closeErr)
		}
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &retryAfterError{err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(data)}
		// Error bodies are {"object":"error","status":...,"code":...,"message":...}.
		_ = json.Unmarshal(data, apiErr)
		apiErr.StatusCode = resp.StatusCode

		if isRetryableStatus(resp.StatusCode) {
			return nil, &retryAfterError{err: apiErr, after: retryAfter(resp.Header)}
		}

		return nil, apiErr
	}

	var out QueryResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &out, nil
}

// isRetryableStatus determines if we should retry based on HTTP status code.
func isRetryableStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout, // 408
		http.StatusTooManyRequests,     // 429
		http.StatusInternalServerError, // 500
		http.StatusBadGateway,          // 502
		http.StatusServiceUnavailable,  // 503
		http.StatusGatewayTimeout:      // 504
		return true
	}

	return false
}

// retryAfter reads a Retry-After header given in seconds.
func retryAfter(h http.Header) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(h.Get("Retry-After")))
	if err != nil || secs <= 0 {
		return 0
	}

	return time.Duration(secs) * time.Second
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
