package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFailConfig(t *testing.T) {
	tests := []struct {
		raw     string
		want    failConfig
		wantErr bool
	}{
		{raw: "", want: failConfig{}},
		{raw: "rate=0.5", want: failConfig{rate: 0.5, code: http.StatusInternalServerError}},
		{raw: " rate=1 , code=503 ", want: failConfig{rate: 1, code: http.StatusServiceUnavailable}},
		{raw: "code=404,", want: failConfig{code: http.StatusNotFound}},
		{raw: "rate", wantErr: true},
		{raw: "rate=abc", wantErr: true},
		{raw: "rate=2", wantErr: true},
		{raw: "code=42", wantErr: true},
		{raw: "burst=3", wantErr: true},
	}
	for _, tc := range tests {
		got, err := parseFailConfig(tc.raw)
		if tc.wantErr {
			assert.Error(t, err, tc.raw)
			continue
		}
		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.want, got, tc.raw)
	}
}

func TestInjectFaults(t *testing.T) {
	injected := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "injected"}, []string{"status"})
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) })

	rec := httptest.NewRecorder()
	injectFaults(0, failConfig{rate: 1, code: http.StatusServiceUnavailable}, injected)(ok).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(injected.WithLabelValues("503")))

	rec = httptest.NewRecorder()
	injectFaults(0, failConfig{}, injected)(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)

	rec = httptest.NewRecorder()
	start := time.Now()
	injectFaults(20*time.Millisecond, failConfig{}, nil)(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestInjectFaultsStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true })

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx)
	injectFaults(time.Hour, failConfig{}, nil)(next).ServeHTTP(rec, req)
	assert.False(t, called)
}
