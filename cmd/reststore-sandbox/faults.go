package main

import (
	"fmt"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type failConfig struct {
	rate float64
	code int
}

// injectFaults delays every request and fails a random share of them.
func injectFaults(delay time.Duration, cfg failConfig, injected *prometheus.CounterVec) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if delay > 0 {
				select {
				case <-time.After(delay):
				case <-r.Context().Done():
					return
				}
			}
			if cfg.rate > 0 && rand.Float64() < cfg.rate {
				status := cfg.code
				if status == 0 {
					status = http.StatusInternalServerError
				}
				if injected != nil {
					injected.WithLabelValues(strconv.Itoa(status)).Inc()
				}
				http.Error(w, "failure injected", status)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// parseFailConfig reads "rate=<float>,code=<httpStatus>".
func parseFailConfig(raw string) (failConfig, error) {
	if strings.TrimSpace(raw) == "" {
		return failConfig{}, nil
	}
	cfg := failConfig{code: http.StatusInternalServerError}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, val, ok := strings.Cut(part, "=")
		if !ok {
			return failConfig{}, fmt.Errorf("invalid fail segment %q", part)
		}
		val = strings.TrimSpace(val)
		switch strings.TrimSpace(key) {
		case "rate":
			rate, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return failConfig{}, fmt.Errorf("fail rate: %w", err)
			}
			if rate < 0 || rate > 1 {
				return failConfig{}, fmt.Errorf("fail rate %v outside [0,1]", rate)
			}
			cfg.rate = rate
		case "code":
			code, err := strconv.Atoi(val)
			if err != nil {
				return failConfig{}, fmt.Errorf("fail code: %w", err)
			}
			if code < 100 || code > 599 {
				return failConfig{}, fmt.Errorf("fail code %d is not an HTTP status", code)
			}
			cfg.code = code
		default:
			return failConfig{}, fmt.Errorf("unknown fail key %q", key)
		}
	}
	return cfg, nil
}
