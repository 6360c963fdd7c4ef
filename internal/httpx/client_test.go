package httpx

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoMergesHeadersLaterWins(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, []string{"request"}, r.Header.Values("X-Layer"))
		assert.Equal(t, "default", r.Header.Get("X-Default"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"ok":true}`)
	}))
	defer srv.Close()

	c := NewClient(WithHeaders(http.Header{
		"X-Layer":   {"default"},
		"X-Default": {"default"},
	}))
	resp, err := c.Do(context.Background(), &Request{
		Method: http.MethodGet,
		URL:    srv.URL,
		Header: http.Header{"X-Layer": {"request"}},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"ok":true}`, string(resp.Body))
}

func TestDoReturnsErrorStatusesAsResponses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	resp, err := NewClient().Do(context.Background(), &Request{Method: http.MethodGet, URL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestDoSendsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		assert.Equal(t, `{"a":1}`, string(data))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	resp, err := NewClient().Do(context.Background(), &Request{
		Method: http.MethodPost,
		URL:    srv.URL,
		Body:   []byte(`{"a":1}`),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestDoConnectError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient().Do(context.Background(), &Request{Method: http.MethodGet, URL: url})
	var connErr *ConnectError
	require.True(t, errors.As(err, &connErr), "expected ConnectError, got %v", err)
	assert.False(t, connErr.Canceled())
}

func TestDoCanceledContext(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewClient().Do(ctx, &Request{Method: http.MethodGet, URL: srv.URL})
	var connErr *ConnectError
	require.True(t, errors.As(err, &connErr))
	assert.True(t, connErr.Canceled())
}

func TestDoRejectsMalformedRequests(t *testing.T) {
	c := NewClient()
	_, err := c.Do(context.Background(), nil)
	assert.Error(t, err)
	_, err = c.Do(context.Background(), &Request{URL: "http://example.invalid"})
	assert.Error(t, err)
}

func TestIsJSON(t *testing.T) {
	cases := map[string]bool{
		"application/json":                true,
		"application/json; charset=utf-8": true,
		"application/json; charset=utf8;": true,
		"application/problem+json":        true,
		"text/json":                       true,
		"text/html":                       false,
		"crap/hell":                       false,
		"":                                false,
	}
	for ct, want := range cases {
		assert.Equal(t, want, IsJSON(ct), ct)
	}
}
