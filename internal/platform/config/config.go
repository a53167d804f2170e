package config

import (
	"fmt"
	"net/netip"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Defaults applied when the corresponding environment variable is unset or invalid.
const (
	DefaultPort                    = "3000"
	DefaultBackendURL              = "http://localhost:5000"
	DefaultBackendTimeout          = 60 * time.Second
	DefaultShutdownTimeout         = 10 * time.Second
	DefaultReadHeaderTimeout       = 10 * time.Second
	DefaultBreakerFailureThreshold = 5
	DefaultBreakerSuccessThreshold = 3
	DefaultBreakerCooldown         = 10 * time.Second
	DefaultEnvironment             = "development"
	DefaultLogLevel                = "info"
)

// ServiceName is reported by the liveness probe.
const ServiceName = "truthlens-gateway"

// Server captures HTTP server level configuration.
// It is built once at startup and passed to every component that needs it.
type Server struct {
	Port        string
	Environment string
	LogLevel    string

	BackendURL     string
	BackendTimeout time.Duration

	// MaxUploadBytes caps inbound bodies; zero leaves them unbounded.
	MaxUploadBytes int64

	AllowedOrigins []string

	// TrustedProxies lists CIDR ranges allowed to set X-Forwarded-For.
	TrustedProxies []string

	ShutdownTimeout   time.Duration
	ReadHeaderTimeout time.Duration

	BreakerFailureThreshold int
	BreakerSuccessThreshold int
	BreakerCooldown         time.Duration
}

// Addr returns the listen address derived from Port.
func (s Server) Addr() string {
	return ":" + s.Port
}

// AnalyzeURL is the backend endpoint the gateway forwards to.
func (s Server) AnalyzeURL() string {
	return strings.TrimRight(s.BackendURL, "/") + "/analyze"
}

// Validate reports configuration that cannot produce a working gateway.
func (s Server) Validate() error {
	u, err := url.Parse(s.BackendURL)
	if err != nil {
		return fmt.Errorf("invalid BACKEND_URL %q: %w", s.BackendURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid BACKEND_URL %q: scheme must be http or https", s.BackendURL)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid BACKEND_URL %q: missing host", s.BackendURL)
	}
	if p, err := strconv.Atoi(s.Port); err != nil || p <= 0 || p > 65535 {
		return fmt.Errorf("invalid PORT %q", s.Port)
	}
	if s.BackendTimeout <= 0 {
		return fmt.Errorf("BACKEND_TIMEOUT must be positive")
	}
	if _, err := s.TrustedProxyPrefixes(); err != nil {
		return err
	}
	return nil
}

// TrustedProxyPrefixes parses TrustedProxies. A bare address is treated as a
// single-host prefix.
func (s Server) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(s.TrustedProxies))
	for _, raw := range s.TrustedProxies {
		if prefix, err := netip.ParsePrefix(raw); err == nil {
			prefixes = append(prefixes, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid TRUSTED_PROXIES entry %q", raw)
		}
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	return Server{
		Port:        getEnv("PORT", DefaultPort),
		Environment: getEnv("ENVIRONMENT", DefaultEnvironment),
		LogLevel:    getEnv("LOG_LEVEL", DefaultLogLevel),

		BackendURL:     getEnv("BACKEND_URL", DefaultBackendURL),
		BackendTimeout: getDuration("BACKEND_TIMEOUT", DefaultBackendTimeout),

		MaxUploadBytes: getInt64("MAX_UPLOAD_BYTES", 0),
		AllowedOrigins: getList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		TrustedProxies: getList("TRUSTED_PROXIES", nil),

		ShutdownTimeout:   getDuration("SHUTDOWN_TIMEOUT", DefaultShutdownTimeout),
		ReadHeaderTimeout: getDuration("READ_HEADER_TIMEOUT", DefaultReadHeaderTimeout),

		BreakerFailureThreshold: int(getInt64("BREAKER_FAILURE_THRESHOLD", DefaultBreakerFailureThreshold)),
		BreakerSuccessThreshold: int(getInt64("BREAKER_SUCCESS_THRESHOLD", DefaultBreakerSuccessThreshold)),
		BreakerCooldown:         getDuration("BREAKER_COOLDOWN", DefaultBreakerCooldown),
	}
}

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getDuration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}

func getInt64(k string, def int64) int64 {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n >= 0 {
			return n
		}
	}
	return def
}

func getList(k string, def []string) []string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
