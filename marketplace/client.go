package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// APIError is the single normalized error shape for every upstream failure.
// The marketplace returns errors as a list of objects, a single object, or a
// bare string; all three collapse into this at the client boundary so callers
// never re-sniff shapes.
type APIError struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Status int    `json:"status"`
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("marketplace: %s - %s", e.Title, e.Detail)
	}
	return fmt.Sprintf("marketplace: %s", e.Title)
}

// Transient reports whether the error came from the connection layer rather
// than an upstream application response. Only transient errors are retried.
func (e *APIError) Transient() bool {
	return e.Status == 0
}

// RateExpired reports whether the upstream rejected a stale quote or rate.
func (e *APIError) RateExpired() bool {
	return e.Type == "rate_unavailable" || e.Type == "quote_expired"
}

// NotFound reports whether the upstream could not locate the resource.
func (e *APIError) NotFound() bool {
	return e.Status == http.StatusNotFound
}

// Client issues HTTP calls against the flights-and-stays marketplace with
// bounded retries for connection-level failures. One instance is shared by
// all workflow invocations; the embedded http.Client pools connections and is
// safe for concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	version    string
	maxRetries int
	logger     *zap.Logger

	// sleep is swappable so tests don't wait out real backoff.
	sleep func(time.Duration)
}

// NewClient builds a marketplace client.
func NewClient(baseURL, token, version string, timeout time.Duration, maxRetries int, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		version:    version,
		maxRetries: maxRetries,
		logger:     logger,
		sleep:      time.Sleep,
	}
}

// Get issues a GET request and decodes the `data` envelope into out.
func (c *Client) Get(ctx context.Context, path string, query map[string]string, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

// Post issues a POST request with a `data`-wrapped body.
func (c *Client) Post(ctx context.Context, path string, body interface{}, out interface{}) error {
	return c.do(ctx, http.MethodPost, path, nil, body, out)
}

// Patch issues a PATCH request with a `data`-wrapped body.
func (c *Client) Patch(ctx context.Context, path string, body interface{}, out interface{}) error {
	return c.do(ctx, http.MethodPatch, path, nil, body, out)
}

type envelope struct {
	Data json.RawMessage `json:"data"`
}

func (c *Client) do(ctx context.Context, method, path string, query map[string]string, body, out interface{}) error {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(map[string]interface{}{"data": body})
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		payload = b
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		err := c.once(ctx, method, path, query, payload, out)
		if err == nil {
			return nil
		}
		apiErr, ok := err.(*APIError)
		if !ok || !apiErr.Transient() || attempt >= c.maxRetries {
			return err
		}
		lastErr = err
		// Exponential backoff: 1s, 2s, 4s...
		delay := time.Duration(1<<attempt) * time.Second
		c.logger.Warn("marketplace request failed, retrying",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", delay),
			zap.Error(lastErr))
		select {
		case <-ctx.Done():
			return &APIError{Type: "client_error", Title: "request cancelled", Detail: ctx.Err().Error()}
		default:
		}
		c.sleep(delay)
	}
}

func (c *Client) once(ctx context.Context, method, path string, query map[string]string, payload []byte, out interface{}) error {
	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/"+strings.TrimLeft(path, "/"), bodyReader)
	if err != nil {
		return &APIError{Type: "client_error", Title: "invalid request", Detail: err.Error()}
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Duffel-Version", c.version)
	req.Header.Set("User-Agent", "tripdesk/1.0")
	if len(query) > 0 {
		q := req.URL.Query()
		for k, v := range query {
			q.Set(k, v)
		}
		req.URL.RawQuery = q.Encode()
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Connection-level failure: timeout, reset, DNS. Status 0 marks it
		// transient and retryable.
		return &APIError{Type: "connection_error", Title: "request failed", Detail: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{Type: "connection_error", Title: "response read failed", Detail: err.Error()}
	}

	if resp.StatusCode >= 400 {
		return normalizeError(raw, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil && len(env.Data) > 0 {
		raw = env.Data
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &APIError{Type: "client_error", Title: "malformed response", Detail: err.Error(), Status: resp.StatusCode}
	}
	return nil
}

// normalizeError folds the three upstream error shapes into one APIError.
func normalizeError(raw []byte, status int) *APIError {
	var listShape struct {
		Errors []APIError `json:"errors"`
	}
	if err := json.Unmarshal(raw, &listShape); err == nil && len(listShape.Errors) > 0 {
		e := listShape.Errors[0]
		e.Status = status
		return &e
	}

	var objShape struct {
		Error *APIError `json:"error"`
	}
	if err := json.Unmarshal(raw, &objShape); err == nil && objShape.Error != nil && objShape.Error.Title != "" {
		e := *objShape.Error
		e.Status = status
		return &e
	}

	var single APIError
	if err := json.Unmarshal(raw, &single); err == nil && single.Title != "" {
		single.Status = status
		return &single
	}

	var bare string
	if err := json.Unmarshal(raw, &bare); err == nil && bare != "" {
		return &APIError{Type: "http_error", Title: fmt.Sprintf("HTTP %d", status), Detail: bare, Status: status}
	}

	detail := strings.TrimSpace(string(raw))
	if detail == "" {
		detail = "Unknown error"
	}
	return &APIError{Type: "http_error", Title: fmt.Sprintf("HTTP %d", status), Detail: detail, Status: status}
}
