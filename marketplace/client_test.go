package marketplace

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL, "test_token", "v2", 2*time.Second, 2, zap.NewNop())
	c.sleep = func(time.Duration) {}
	return c, srv
}

func TestClientUnwrapsDataEnvelope(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test_token", r.Header.Get("Authorization"))
		assert.Equal(t, "v2", r.Header.Get("Duffel-Version"))
		w.Write([]byte(`{"data":{"id":"quo_123","total_amount":"330.00"}}`))
	}))

	var out struct {
		ID          string `json:"id"`
		TotalAmount string `json:"total_amount"`
	}
	err := c.Get(context.Background(), "/stays/quotes/quo_123", nil, &out)
	require.NoError(t, err)
	assert.Equal(t, "quo_123", out.ID)
	assert.Equal(t, "330.00", out.TotalAmount)
}

func TestClientWrapsRequestBody(t *testing.T) {
	var gotBody string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, r.ContentLength)
		r.Body.Read(buf)
		gotBody = string(buf)
		w.Write([]byte(`{"data":{}}`))
	}))

	err := c.Post(context.Background(), "/stays/quotes", map[string]string{"rate_id": "rat_1"}, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":{"rate_id":"rat_1"}}`, gotBody)
}

func TestClientRetriesConnectionFailures(t *testing.T) {
	// A server that drops the first two connections, then answers.
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 2 {
			hj, ok := w.(http.Hijacker)
			require.True(t, ok)
			conn, _, err := hj.Hijack()
			require.NoError(t, err)
			conn.Close()
			return
		}
		w.Write([]byte(`{"data":{"ok":true}}`))
	}))
	t.Cleanup(srv.Close)

	var slept []time.Duration
	c := NewClient(srv.URL, "tok", "v2", time.Second, 2, zap.NewNop())
	c.sleep = func(d time.Duration) { slept = append(slept, d) }

	var out struct {
		OK bool `json:"ok"`
	}
	err := c.Get(context.Background(), "/ping", nil, &out)
	require.NoError(t, err)
	assert.True(t, out.OK)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	// Exponential backoff between attempts.
	assert.Equal(t, []time.Duration{1 * time.Second, 2 * time.Second}, slept)
}

func TestClientDoesNotRetryApplicationErrors(t *testing.T) {
	var calls int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"errors":[{"type":"rate_unavailable","title":"Rate expired","detail":"The selected rate is no longer available"}]}`))
	}))

	err := c.Post(context.Background(), "/stays/quotes", map[string]string{"rate_id": "rat_1"}, nil)
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "application errors must not be retried")

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.True(t, apiErr.RateExpired())
	assert.False(t, apiErr.Transient())
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
}

func TestClientGivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		hj := w.(http.Hijacker)
		conn, _, _ := hj.Hijack()
		conn.Close()
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, "tok", "v2", time.Second, 2, zap.NewNop())
	c.sleep = func(time.Duration) {}

	err := c.Get(context.Background(), "/ping", nil, nil)
	require.Error(t, err)
	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.True(t, apiErr.Transient())
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls), "initial attempt plus two retries")
}

func TestNormalizeErrorShapes(t *testing.T) {
	cases := []struct {
		name   string
		raw    string
		status int
		want   APIError
	}{
		{
			name:   "list of error objects",
			raw:    `{"errors":[{"type":"validation_error","title":"Invalid dates","detail":"check_out must be after check_in"}]}`,
			status: 422,
			want:   APIError{Type: "validation_error", Title: "Invalid dates", Detail: "check_out must be after check_in", Status: 422},
		},
		{
			name:   "single error object",
			raw:    `{"error":{"type":"not_found","title":"Booking not found"}}`,
			status: 404,
			want:   APIError{Type: "not_found", Title: "Booking not found", Status: 404},
		},
		{
			name:   "top-level error object",
			raw:    `{"type":"quote_expired","title":"Quote expired","detail":"Create a new quote"}`,
			status: 422,
			want:   APIError{Type: "quote_expired", Title: "Quote expired", Detail: "Create a new quote", Status: 422},
		},
		{
			name:   "bare JSON string",
			raw:    `"something went wrong"`,
			status: 500,
			want:   APIError{Type: "http_error", Title: "HTTP 500", Detail: "something went wrong", Status: 500},
		},
		{
			name:   "raw text",
			raw:    `upstream exploded`,
			status: 502,
			want:   APIError{Type: "http_error", Title: "HTTP 502", Detail: "upstream exploded", Status: 502},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := normalizeError([]byte(c.raw), c.status)
			require.NotNil(t, got)
			assert.Equal(t, c.want, *got)
		})
	}
}

func TestAPIErrorNotFound(t *testing.T) {
	assert.True(t, (&APIError{Status: http.StatusNotFound}).NotFound())
	assert.False(t, (&APIError{Status: http.StatusUnprocessableEntity}).NotFound())
}
