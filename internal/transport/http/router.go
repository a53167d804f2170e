package httptransport

import (
	"log/slog"
	"net/http"
	"net/netip"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"truthlens/internal/platform/privacy"
	"truthlens/pkg/platform/middleware/metadata"
	"truthlens/pkg/platform/middleware/request"
)

// Registrar mounts a group of routes.
type Registrar interface {
	Register(r chi.Router)
}

// RouterConfig carries everything the router wires together.
type RouterConfig struct {
	Logger         *slog.Logger
	AllowedOrigins []string
	MaxUploadBytes int64
	TrustedProxies []netip.Prefix

	// Gatherer backs /metrics; Latency records per-route latency. Both optional.
	Gatherer prometheus.Gatherer
	Latency  *request.Metrics

	// Routes are mounted in order. UI serves GET requests no route claims.
	Routes []Registrar
	UI     http.Handler
}

// NewRouter wires all public endpoints with middleware.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(request.Recovery(cfg.Logger))
	r.Use(request.RequestID)
	r.Use(metadata.NewMiddleware(&metadata.Config{
		TrustedProxies: cfg.TrustedProxies,
		Anonymize:      privacy.AnonymizeIP,
	}).Handler)
	r.Use(request.Logger(cfg.Logger))
	if cfg.Latency != nil {
		r.Use(request.LatencyMiddleware(cfg.Latency))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", request.RequestIDHeader},
		ExposedHeaders: []string{request.RequestIDHeader},
		MaxAge:         300,
	}))
	r.Use(request.BodyLimit(cfg.MaxUploadBytes))

	for _, routes := range cfg.Routes {
		routes.Register(r)
	}

	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}
	if cfg.UI != nil {
		r.Get("/*", cfg.UI.ServeHTTP)
	}

	return r
}
