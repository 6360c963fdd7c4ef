package reststore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Ratio1/reststore_go/internal/httpx"
	"github.com/Ratio1/reststore_go/internal/metrics"
)

// Request describes one outbound exchange against the resource.
type Request struct {
	// Method defaults to GET.
	Method string
	// ID is appended to the location as a path segment. Required for PUT,
	// PATCH and DELETE.
	ID string
	// Body is encoded with the store codec for POST, PUT and PATCH only.
	Body any
	// Header entries override the store's static headers by name.
	Header http.Header
	// URL overrides the configured base location for this request.
	URL Location
}

// Executor turns Requests into classified results: exactly one exchange per
// call, no retries.
type Executor struct {
	cfg    *config
	client *httpx.Client
}

// NewExecutor builds an Executor from the store options.
func NewExecutor(opts ...Option) *Executor {
	return newExecutor(newConfig(opts))
}

func newExecutor(cfg *config) *Executor {
	return &Executor{
		cfg:    cfg,
		client: httpx.NewClient(cfg.httpOpts...),
	}
}

// Execute sends req and returns the decoded payload. The payload may be nil
// on success when the body was empty or did not decode. Every successful
// response, 204 included, must declare a JSON content type.
func (e *Executor) Execute(ctx context.Context, req *Request) (any, error) {
	if e == nil || e.cfg == nil {
		return nil, argumentError("request", "executor is not configured")
	}
	if req == nil {
		return nil, argumentError("request", `"req" argument must not be nil`)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}

	target, err := e.resolve(method, req)
	if err != nil {
		return nil, err
	}

	header := e.buildHeader(req)
	var body []byte
	if hasBody(method) && req.Body != nil {
		body, err = e.cfg.codec.Encode(req.Body)
		if err != nil {
			return nil, &Error{Kind: KindArgument, Op: "request", Message: "encode body", Err: err}
		}
		if header.Get("Content-Type") == "" {
			header.Set("Content-Type", e.cfg.codec.ContentType())
		}
	}

	ctx, span := e.cfg.tracer.Start(ctx, "reststore "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.full", target),
			attribute.String("reststore.resource", e.cfg.name),
		),
	)
	defer span.End()

	start := time.Now()
	payload, status, err := e.send(ctx, &httpx.Request{
		Method: method,
		URL:    target,
		Header: header,
		Body:   body,
	})
	elapsed := time.Since(start)

	outcome := "ok"
	if err != nil {
		outcome = string(KindOf(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	span.SetAttributes(attribute.Int("http.response.status_code", status))
	metrics.ObserveRequest(e.cfg.metrics, method, outcome, elapsed)
	e.cfg.logger.DebugContext(ctx, "request settled",
		"method", method,
		"url", target,
		"status", status,
		"kind", outcome,
		"duration", elapsed,
	)
	return payload, err
}

func (e *Executor) send(ctx context.Context, req *httpx.Request) (any, int, error) {
	resp, err := e.client.Do(ctx, req)
	if err != nil {
		var connErr *httpx.ConnectError
		if errors.As(err, &connErr) {
			return nil, 0, &Error{Kind: KindConnection, Op: "request", Message: "could not connect", Err: err}
		}
		return nil, 0, &Error{Kind: KindArgument, Op: "request", Message: "invalid request", Err: err}
	}
	payload, err := e.classify(resp)
	return payload, resp.StatusCode, err
}

// classify maps a settled exchange onto a payload or a typed error.
func (e *Executor) classify(resp *httpx.Response) (any, error) {
	payload, decodeErr := e.cfg.codec.Decode(resp.Body)
	if decodeErr != nil {
		payload = nil
	}

	status := resp.StatusCode
	switch {
	case status == 0:
		return nil, &Error{Kind: KindConnection, Op: "request", Message: "could not connect"}
	case status < 200 || status > 399:
		kind := KindHTTP
		if status >= 500 {
			kind = KindServer
		}
		return nil, &Error{
			Kind:       kind,
			Op:         "request",
			StatusCode: status,
			Message:    fmt.Sprintf("%d %s", status, http.StatusText(status)),
			Payload:    payload,
		}
	}

	if !httpx.IsJSON(resp.Header.Get("Content-Type")) {
		return nil, &Error{
			Kind:       KindHTTPResponse,
			Op:         "request",
			StatusCode: status,
			Message:    "response is not JSON",
		}
	}
	return payload, nil
}

func (e *Executor) resolve(method string, req *Request) (string, error) {
	var target string
	if req.URL != nil {
		target = strings.TrimSpace(req.URL())
	}
	if target == "" && e.cfg.url != nil {
		target = strings.TrimSpace(e.cfg.url())
	}
	if target == "" {
		return "", argumentError("request", "no resource URL configured")
	}

	id := strings.TrimSpace(req.ID)
	if requiresID(method) && id == "" {
		return "", argumentError("request", "%s requests require the `id` option", method)
	}
	if id != "" {
		target = strings.TrimRight(target, "/") + "/" + url.PathEscape(id)
	}
	return target, nil
}

func (e *Executor) buildHeader(req *Request) http.Header {
	header := http.Header{
		"X-Requested-With": {"XMLHttpRequest"},
		"Accept":           {"application/json"},
	}
	for _, layer := range []http.Header{e.cfg.headers, req.Header} {
		for k, values := range layer {
			header.Del(k)
			for _, v := range values {
				header.Add(k, v)
			}
		}
	}
	return header
}

func requiresID(method string) bool {
	switch method {
	case http.MethodPut, http.MethodDelete, http.MethodPatch:
		return true
	}
	return false
}

func hasBody(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	}
	return false
}
