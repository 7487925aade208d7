package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/farmadvisor/internal/client/models"
)

const (
	pingPath   = "/api/ping"
	submitPath = "/api/sync/tasks"
)

// HTTPClient implements Client over JSON/HTTP.
type HTTPClient struct {
	baseURL string
	token   string
	http    *http.Client
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient returns a client for baseURL (e.g. "http://127.0.0.1:8080").
func NewHTTPClient(baseURL, token string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+pingPath, nil)
	if err != nil {
		return fmt.Errorf("build ping request: %w", err)
	}
	return c.do(req)
}

func (c *HTTPClient) SubmitTask(ctx context.Context, idempotencyKey string, sub models.Submission) error {
	body, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("encode submission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+submitPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build submit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		req.Header.Set(models.IdempotencyHeader, idempotencyKey)
	}

	err = c.do(req)
	if err != nil && isDuplicate(err) {
		return nil
	}
	return err
}

func (c *HTTPClient) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("status %d", e.code)
	}
	return fmt.Sprintf("status %d: %s", e.code, e.body)
}

// isDuplicate reports a 409, which the backend uses to acknowledge a task
// it has already applied.
func isDuplicate(err error) bool {
	var se *statusError
	return errors.As(err, &se) && se.code == http.StatusConflict
}

func (c *HTTPClient) do(req *http.Request) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return mapStatus(resp.StatusCode, strings.TrimSpace(string(snippet)))
}

// mapStatus converts a non-2xx status into a sentinel-wrapped error.
func mapStatus(code int, body string) error {
	se := &statusError{code: code, body: body}
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("%w: %w", ErrUnauthorized, se)
	case code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= 500:
		return fmt.Errorf("%w: %w", ErrUnavailable, se)
	default:
		return fmt.Errorf("%w: %w", ErrRejected, se)
	}
}
