package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"truthlens/internal/platform/config"
	"truthlens/internal/platform/health"
	"truthlens/internal/platform/httpclient"
	"truthlens/internal/platform/logger"
	"truthlens/internal/platform/metrics"
	"truthlens/internal/platform/tracer"
	httptransport "truthlens/internal/transport/http"
	"truthlens/internal/verify/backend"
	"truthlens/internal/verify/handler"
	"truthlens/internal/verify/service"
	"truthlens/internal/web"
	"truthlens/pkg/platform/circuit"
	"truthlens/pkg/platform/middleware/request"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Relay logic lives in internal/verify.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	trustedProxies, err := cfg.TrustedProxyPrefixes()
	if err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	log.Info("initializing truthlens gateway",
		"addr", cfg.Addr(),
		"backend", cfg.AnalyzeURL(),
		"backend_timeout", cfg.BackendTimeout,
		"environment", cfg.Environment,
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	outbound := httpclient.New(httpclient.DefaultOptions(cfg.BackendTimeout))
	defer outbound.Close()

	analysis := backend.New(backend.Config{
		BaseURL:    cfg.BackendURL,
		HTTPClient: outbound,
		Metrics:    m,
	})
	breaker := circuit.New("analysis-backend",
		circuit.WithFailureThreshold(cfg.BreakerFailureThreshold),
		circuit.WithSuccessThreshold(cfg.BreakerSuccessThreshold),
		circuit.WithCooldown(cfg.BreakerCooldown),
	)
	verifier := service.New(analysis, log,
		service.WithTimeout(cfg.BackendTimeout),
		service.WithBreaker(breaker),
		service.WithMetrics(m),
		service.WithTracer(tracer.NewOTel()),
	)

	probes := health.New(config.ServiceName, cfg.Environment)
	probes.RegisterCheck("backend", analysis.Health)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Logger:         log,
		AllowedOrigins: cfg.AllowedOrigins,
		MaxUploadBytes: cfg.MaxUploadBytes,
		TrustedProxies: trustedProxies,
		Gatherer:       reg,
		Latency:        request.NewMetrics(reg),
		Routes:         []httptransport.Registrar{probes, handler.New(verifier, log, m)},
		UI:             web.Handler(),
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server gracefully")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		outbound.Close()
		os.Exit(1)
	}

	log.Info("server stopped")
}
