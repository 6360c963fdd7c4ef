package reststore_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ratio1/reststore_go/pkg/codec"
	"github.com/Ratio1/reststore_go/pkg/reststore"
)

func TestExecuteLayersHeaders(t *testing.T) {
	srv := newRecordingServer(t, respond(http.StatusOK, "application/json", `{"ok":true}`))
	exec := reststore.NewExecutor(
		reststore.WithURL(srv.URL+"/users"),
		reststore.WithHeaders(http.Header{
			"X-Api-Key": {"static"},
			"Accept":    {"application/vnd.users+json"},
		}),
	)

	payload, err := exec.Execute(context.Background(), &reststore.Request{
		Header: http.Header{"X-Api-Key": {"per-call"}},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"ok": true}, payload)

	seen := srv.requests()
	require.Len(t, seen, 1)
	got := seen[0]
	assert.Equal(t, http.MethodGet, got.Method)
	assert.Equal(t, "/users", got.Path)
	assert.Equal(t, "XMLHttpRequest", got.Header.Get("X-Requested-With"))
	assert.Equal(t, "application/vnd.users+json", got.Header.Get("Accept"))
	assert.Equal(t, []string{"per-call"}, got.Header.Values("X-Api-Key"))
	assert.Empty(t, got.Header.Get("Content-Type"))
}

func TestExecuteEncodesBodyForWrites(t *testing.T) {
	srv := newRecordingServer(t, respond(http.StatusOK, "application/json", `{}`))
	exec := reststore.NewExecutor(reststore.WithURL(srv.URL + "/users"))
	ctx := context.Background()

	_, err := exec.Execute(ctx, &reststore.Request{Method: "post", Body: map[string]any{"name": "<dan>"}})
	require.NoError(t, err)
	_, err = exec.Execute(ctx, &reststore.Request{Method: http.MethodGet, Body: map[string]any{"ignored": true}})
	require.NoError(t, err)

	seen := srv.requests()
	require.Len(t, seen, 2)
	assert.Equal(t, http.MethodPost, seen[0].Method)
	assert.Equal(t, codec.ContentTypeJSON, seen[0].Header.Get("Content-Type"))
	assert.JSONEq(t, `{"name":"<dan>"}`, seen[0].Body)
	assert.Empty(t, seen[1].Body)
	assert.Empty(t, seen[1].Header.Get("Content-Type"))
}

func TestExecuteNoContentWithJSONType(t *testing.T) {
	noContent := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusNoContent,
			Header:     http.Header{"Content-Type": {"application/json"}},
			Body:       http.NoBody,
			Request:    r,
		}, nil
	})
	payload, err := reststore.NewExecutor(
		reststore.WithURL("http://reststore.test/users"),
		reststore.WithTransport(noContent),
	).Execute(context.Background(), &reststore.Request{Method: http.MethodDelete, ID: "dandean"})
	require.NoError(t, err)
	assert.Nil(t, payload)
}

func TestExecuteKeepsConfiguredContentTypeWithoutBody(t *testing.T) {
	srv := newRecordingServer(t, respond(http.StatusOK, "application/json", `{}`))
	exec := reststore.NewExecutor(
		reststore.WithURL(srv.URL+"/users"),
		reststore.WithHeaders(http.Header{"Content-Type": {"application/vnd.users+json"}}),
	)
	ctx := context.Background()

	_, err := exec.Execute(ctx, &reststore.Request{})
	require.NoError(t, err)
	_, err = exec.Execute(ctx, &reststore.Request{Method: http.MethodDelete, ID: "dandean"})
	require.NoError(t, err)
	_, err = exec.Execute(ctx, &reststore.Request{Method: http.MethodPost, Body: map[string]any{"a": 1}})
	require.NoError(t, err)

	seen := srv.requests()
	require.Len(t, seen, 3)
	for _, got := range seen {
		assert.Equal(t, "application/vnd.users+json", got.Header.Get("Content-Type"), got.Method)
	}
}

func TestExecuteKeepsCallerContentType(t *testing.T) {
	srv := newRecordingServer(t, respond(http.StatusOK, "application/json", `{}`))
	exec := reststore.NewExecutor(reststore.WithURL(srv.URL))

	_, err := exec.Execute(context.Background(), &reststore.Request{
		Method: http.MethodPost,
		Body:   map[string]any{"a": 1},
		Header: http.Header{"Content-Type": {"application/merge-patch+json"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "application/merge-patch+json", srv.requests()[0].Header.Get("Content-Type"))
}

func TestExecuteRequiresID(t *testing.T) {
	srv := newRecordingServer(t, respond(http.StatusOK, "application/json", `{}`))
	exec := reststore.NewExecutor(reststore.WithURL(srv.URL + "/users/"))
	ctx := context.Background()

	for _, method := range []string{http.MethodPut, http.MethodDelete, http.MethodPatch} {
		_, err := exec.Execute(ctx, &reststore.Request{Method: method})
		require.Error(t, err, method)
		assert.ErrorIs(t, err, reststore.ErrArgument)
		assert.Contains(t, err.Error(), method+" requests require the `id` option")
	}
	assert.Empty(t, srv.requests())

	_, err := exec.Execute(ctx, &reststore.Request{Method: http.MethodPut, ID: "42", Body: map[string]any{"id": 42}})
	require.NoError(t, err)
	_, err = exec.Execute(ctx, &reststore.Request{Method: http.MethodDelete, ID: "a b"})
	require.NoError(t, err)

	seen := srv.requests()
	require.Len(t, seen, 2)
	assert.Equal(t, "/users/42", seen[0].Path)
	assert.Equal(t, "/users/a b", seen[1].Path)
}

func TestExecuteArgumentErrors(t *testing.T) {
	ctx := context.Background()

	_, err := reststore.NewExecutor(reststore.WithURL("http://localhost")).Execute(ctx, nil)
	assert.ErrorIs(t, err, reststore.ErrArgument)

	_, err = reststore.NewExecutor().Execute(ctx, &reststore.Request{})
	assert.ErrorIs(t, err, reststore.ErrArgument)

	var exec *reststore.Executor
	_, err = exec.Execute(ctx, &reststore.Request{})
	assert.ErrorIs(t, err, reststore.ErrArgument)
}

func TestExecuteURLOverride(t *testing.T) {
	srv := newRecordingServer(t, respond(http.StatusOK, "application/json", `[]`))
	exec := reststore.NewExecutor(reststore.WithURL(srv.URL + "/users"))

	payload, err := exec.Execute(context.Background(), &reststore.Request{URL: reststore.URL(srv.URL + "/admins")})
	require.NoError(t, err)
	assert.Equal(t, []any{}, payload)
	assert.Equal(t, "/admins", srv.requests()[0].Path)
}

func TestExecuteURLFuncEvaluatedPerRequest(t *testing.T) {
	srv := newRecordingServer(t, respond(http.StatusOK, "application/json", `{}`))
	calls := 0
	exec := reststore.NewExecutor(reststore.WithURLFunc(func() string {
		calls++
		return srv.URL + "/v" + string(rune('0'+calls))
	}))

	for i := 0; i < 2; i++ {
		_, err := exec.Execute(context.Background(), &reststore.Request{})
		require.NoError(t, err)
	}
	seen := srv.requests()
	require.Len(t, seen, 2)
	assert.Equal(t, "/v1", seen[0].Path)
	assert.Equal(t, "/v2", seen[1].Path)
}

func TestExecuteClassifiesStatus(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		contentType string
		body        string
		kind        reststore.Kind
		sentinel    error
		payload     any
	}{
		{name: "ok", status: http.StatusOK, contentType: "application/json", body: `{"id":1}`, payload: map[string]any{"id": float64(1)}},
		{name: "created", status: http.StatusCreated, contentType: "application/json; charset=utf-8", body: `{"id":2}`, payload: map[string]any{"id": float64(2)}},
		{name: "problem json", status: http.StatusOK, contentType: "application/problem+json", body: `[1]`, payload: []any{float64(1)}},
		{name: "no content without type", status: http.StatusNoContent, kind: reststore.KindHTTPResponse, sentinel: reststore.ErrHTTPResponse},
		{name: "not json", status: http.StatusOK, contentType: "text/html", body: "<p>hi</p>", kind: reststore.KindHTTPResponse, sentinel: reststore.ErrHTTPResponse},
		{name: "missing content type", status: http.StatusOK, body: `{"id":1}`, kind: reststore.KindHTTPResponse, sentinel: reststore.ErrHTTPResponse},
		{name: "service unavailable", status: http.StatusServiceUnavailable, contentType: "application/json", body: `{"error":"down"}`, kind: reststore.KindServer, sentinel: reststore.ErrServer},
		{name: "internal error", status: http.StatusInternalServerError, contentType: "text/plain", body: "boom", kind: reststore.KindServer, sentinel: reststore.ErrServer},
		{name: "not found", status: http.StatusNotFound, contentType: "application/json", body: `{"error":"missing"}`, kind: reststore.KindHTTP, sentinel: reststore.ErrHTTP},
		{name: "bad request", status: http.StatusBadRequest, kind: reststore.KindHTTP, sentinel: reststore.ErrHTTP},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				if tc.contentType != "" {
					w.Header().Set("Content-Type", tc.contentType)
				} else {
					w.Header()["Content-Type"] = nil
				}
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			}))
			defer srv.Close()

			payload, err := reststore.NewExecutor(reststore.WithURL(srv.URL)).Execute(context.Background(), &reststore.Request{})
			if tc.kind == "" {
				require.NoError(t, err)
				assert.Equal(t, tc.payload, payload)
				return
			}
			require.Error(t, err)
			assert.Nil(t, payload)
			assert.Equal(t, tc.kind, reststore.KindOf(err))
			assert.ErrorIs(t, err, tc.sentinel)

			var rerr *reststore.Error
			require.True(t, errors.As(err, &rerr))
			assert.Equal(t, tc.status, rerr.StatusCode)
		})
	}
}

func TestExecuteErrorCarriesPayload(t *testing.T) {
	srv := httptest.NewServer(respond(http.StatusServiceUnavailable, "application/json", `{"error":"down"}`))
	defer srv.Close()

	_, err := reststore.NewExecutor(reststore.WithURL(srv.URL)).Execute(context.Background(), &reststore.Request{})
	var rerr *reststore.Error
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, map[string]any{"error": "down"}, rerr.Payload)
	assert.Equal(t, "503 Service Unavailable", rerr.Message)
	assert.Equal(t, "request", rerr.Op)
}

func TestExecuteConnectionErrors(t *testing.T) {
	srv := httptest.NewServer(respond(http.StatusOK, "application/json", `{}`))
	target := srv.URL
	srv.Close()

	_, err := reststore.NewExecutor(reststore.WithURL(target)).Execute(context.Background(), &reststore.Request{})
	require.Error(t, err)
	assert.ErrorIs(t, err, reststore.ErrConnection)

	zero := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: 0,
			Header:     http.Header{"Content-Type": {"application/json"}},
			Body:       io.NopCloser(strings.NewReader(`{}`)),
			Request:    r,
		}, nil
	})
	_, err = reststore.NewExecutor(
		reststore.WithURL("http://reststore.test/users"),
		reststore.WithTransport(zero),
	).Execute(context.Background(), &reststore.Request{})
	assert.Equal(t, reststore.KindConnection, reststore.KindOf(err))
}

func TestExecuteCanceledContext(t *testing.T) {
	srv := newRecordingServer(t, respond(http.StatusOK, "application/json", `{}`))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := reststore.NewExecutor(reststore.WithURL(srv.URL)).Execute(ctx, &reststore.Request{})
	assert.ErrorIs(t, err, reststore.ErrConnection)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExecuteUsesCodec(t *testing.T) {
	srv := newRecordingServer(t, respond(http.StatusOK, "application/json", `{"first_name":"Dan"}`))
	exec := reststore.NewExecutor(
		reststore.WithURL(srv.URL),
		reststore.WithCodec(codec.CaseConverting(codec.JSON{})),
	)

	payload, err := exec.Execute(context.Background(), &reststore.Request{
		Method: http.MethodPost,
		Body:   map[string]any{"lastName": "Dean"},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"firstName": "Dan"}, payload)
	assert.JSONEq(t, `{"last_name":"Dean"}`, srv.requests()[0].Body)
}
