package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/Ratio1/reststore_go/internal/devseed"
	"github.com/Ratio1/reststore_go/pkg/reststore"
	"github.com/Ratio1/reststore_go/pkg/reststore/mock"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve an in-memory REST resource",
		Long: `Serve an in-memory collection under --resource with GET, POST, PUT,
PATCH and DELETE, plus /not-json (a 200 text response) and /metrics.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			logger := newLogger(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, logger, cmd.OutOrStdout())
		},
	}
	fs := cmd.Flags()
	fs.String("addr", ":8787", "listen address")
	fs.String("seed", "", "path to a JSON or YAML seed file")
	fs.Duration("latency", 0, "artificial latency to inject per request")
	fs.String("fail", "", "failure injection (rate=<float>,code=<httpStatus>)")
	bindFlags(v, fs)
	return cmd
}

type sandbox struct {
	handler  http.Handler
	resource *mock.Resource
}

func newSandbox(cfg *sandboxConfig, logger *slog.Logger, reg *prometheus.Registry) (*sandbox, error) {
	failCfg, err := parseFailConfig(cfg.Fail)
	if err != nil {
		return nil, fmt.Errorf("parse fail flag: %w", err)
	}

	res := mock.New(mock.WithResource(cfg.Resource), mock.WithPrimaryKey(cfg.PrimaryKey))
	if cfg.Seed != "" {
		records, err := devseed.LoadRecords(cfg.Seed)
		if err != nil {
			return nil, fmt.Errorf("load seed: %w", err)
		}
		if err := res.Seed(records); err != nil {
			return nil, fmt.Errorf("apply seed: %w", err)
		}
	}

	factory := promauto.With(reg)
	served := factory.NewCounterVec(prometheus.CounterOpts{
		Name: "reststore_sandbox_requests_total",
		Help: "Requests served by the sandbox by method and status",
	}, []string{"method", "status"})
	injected := factory.NewCounterVec(prometheus.CounterOpts{
		Name: "reststore_sandbox_injected_failures_total",
		Help: "Failures injected by the sandbox by status",
	}, []string{"status"})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(logRequests(logger, served))
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.Group(func(r chi.Router) {
		r.Use(injectFaults(cfg.Latency, failCfg, injected))
		r.Get("/not-json", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			_, _ = io.WriteString(w, "This is not JSON.")
		})
		r.Mount("/", res)
	})
	return &sandbox{handler: r, resource: res}, nil
}

func logRequests(logger *slog.Logger, served *prometheus.CounterVec) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			served.WithLabelValues(r.Method, strconv.Itoa(status)).Inc()
			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

func runServe(ctx context.Context, cfg *sandboxConfig, logger *slog.Logger, out io.Writer) error {
	sb, err := newSandbox(cfg, logger, prometheus.NewRegistry())
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Addr, err)
	}
	server := &http.Server{
		Handler:           sb.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("reststore-sandbox listening",
		"addr", ln.Addr().String(),
		"resource", cfg.Resource,
		"primary_key", cfg.PrimaryKey,
		"records", sb.resource.Len(),
	)
	printExports(out, ln.Addr().String(), cfg.Resource)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("shutting down")
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func printExports(w io.Writer, addr, resource string) {
	host := addr
	if strings.HasPrefix(host, ":") {
		host = "localhost" + host
	} else if h, port, err := net.SplitHostPort(addr); err == nil && (h == "" || h == "::" || h == "0.0.0.0") {
		host = net.JoinHostPort("localhost", port)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "export %s=%s\n", reststore.EnvMode, reststore.ModeHTTP)
	fmt.Fprintf(w, "export %s=http://%s%s\n", reststore.EnvURL, host, resource)
	fmt.Fprintln(w)
}
