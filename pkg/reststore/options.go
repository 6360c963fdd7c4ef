package reststore

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/Ratio1/reststore_go/internal/httpx"
	"github.com/Ratio1/reststore_go/internal/metrics"
	"github.com/Ratio1/reststore_go/pkg/codec"
)

const tracerName = "github.com/Ratio1/reststore_go/pkg/reststore"

// Location produces a resource URL. It is evaluated once per request.
type Location func() string

// URL returns a Location that always yields s.
func URL(s string) Location {
	return func() string { return s }
}

// DeletePolicy decides when Delete evicts the cached record.
type DeletePolicy int

const (
	// DeleteOptimistic evicts before the remote call and never restores the
	// entry, even if the server rejects the delete.
	DeleteOptimistic DeletePolicy = iota
	// DeleteConfirmed evicts only after the server acknowledged the delete.
	DeleteConfirmed
)

func (p DeletePolicy) String() string {
	switch p {
	case DeleteOptimistic:
		return "optimistic"
	case DeleteConfirmed:
		return "confirmed"
	default:
		return "unknown"
	}
}

// Option configures a Store or Executor.
type Option func(*config)

type config struct {
	url          Location
	staticURL    string
	headers      http.Header
	codec        codec.Codec
	httpOpts     []httpx.Option
	deletePolicy DeletePolicy
	logger       *slog.Logger
	metrics      metrics.Metrics
	tracer       trace.Tracer
	name         string
}

func newConfig(opts []Option) *config {
	cfg := &config{
		headers: make(http.Header),
		codec:   codec.Default,
		logger:  slog.New(slog.DiscardHandler),
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	if cfg.name == "" {
		cfg.name = resourceName(cfg.staticURL)
	}
	return cfg
}

// WithURL sets the base resource URL, e.g. "https://api.example.com/users".
func WithURL(u string) Option {
	return func(c *config) {
		c.staticURL = strings.TrimSpace(u)
		c.url = URL(c.staticURL)
	}
}

// WithURLFunc sets a base URL computed at request time.
func WithURLFunc(fn func() string) Option {
	return func(c *config) {
		if fn != nil {
			c.staticURL = ""
			c.url = fn
		}
	}
}

// WithHeaders adds static headers merged into every request. Later calls
// override earlier ones by header name.
func WithHeaders(h http.Header) Option {
	return func(c *config) {
		for k, values := range h {
			c.headers.Del(k)
			for _, v := range values {
				c.headers.Add(k, v)
			}
		}
	}
}

// WithCodec replaces the default JSON codec.
func WithCodec(cd codec.Codec) Option {
	return func(c *config) {
		if cd != nil {
			c.codec = cd
		}
	}
}

// WithHTTPClient overrides the HTTP client used for exchanges.
func WithHTTPClient(h *http.Client) Option {
	return func(c *config) {
		c.httpOpts = append(c.httpOpts, httpx.WithHTTPClient(h))
	}
}

// WithTransport overrides the round tripper used for exchanges.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *config) {
		c.httpOpts = append(c.httpOpts, httpx.WithTransport(rt))
	}
}

// WithTimeout bounds every exchange. The default is no limit.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.httpOpts = append(c.httpOpts, httpx.WithTimeout(d))
	}
}

// WithDeletePolicy selects optimistic (default) or confirmed eviction.
func WithDeletePolicy(p DeletePolicy) Option {
	return func(c *config) {
		c.deletePolicy = p
	}
}

// WithLogger receives DEBUG records about exchanges and cache changes.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithPrometheus registers request and cache collectors on reg.
func WithPrometheus(reg prometheus.Registerer) Option {
	return func(c *config) {
		c.metrics = metrics.NewPrometheus(reg)
	}
}

// WithTracer overrides the OpenTelemetry tracer (default: global provider).
func WithTracer(t trace.Tracer) Option {
	return func(c *config) {
		if t != nil {
			c.tracer = t
		}
	}
}

// WithName labels the store in logs and metrics. Defaults to the path of a
// static base URL.
func WithName(name string) Option {
	return func(c *config) {
		c.name = strings.TrimSpace(name)
	}
}

func resourceName(raw string) string {
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		return u.Path
	}
	if raw == "" {
		return "default"
	}
	return raw
}
