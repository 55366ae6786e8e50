package httpx

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"
)

// Defaults applied by NewRouter when a ServerConfig limit is zero.
const (
	DefaultRateLimit      = 100     // requests per minute per IP
	DefaultMaxBodyBytes   = 1 << 20 // 1 MB
	DefaultHandlerTimeout = 30 * time.Second
)

// Middleware is a standard net/http middleware.
type Middleware func(http.Handler) http.Handler

// ServerConfig holds the options for NewRouter.
type ServerConfig struct {
	ServiceName   string
	IsDevelopment bool
	// CORSAllowedOrigins is a comma-separated list of allowed origins.
	// Pass "*" (dev only) to allow all origins.
	CORSAllowedOrigins string
	RateLimit          int
	MaxBodyBytes       int64
	HandlerTimeout     time.Duration
}

// Instrumentation holds the app-specific middlewares installed ahead of the
// chi built-ins. Nil entries are skipped.
type Instrumentation struct {
	Recovery Middleware // catches panics that re-panic from Sentry
	Sentry   Middleware // captures panics, re-panics
	Tracing  Middleware // starts a trace span per request
	Logger   Middleware // logs request + trace_id/span_id
}

// NewRouter returns a chi.Mux pre-wired with the project's standard middleware
// stack.
//
// Middleware order (outermost → innermost):
//  1. Recovery
//  2. Sentry
//  3. RequestID   (unique X-Request-Id per request)
//  4. Tracing
//  5. Logger
//  6. RealIP      (sets RemoteAddr from X-Forwarded-For)
//  7. RateLimit   (cfg.RateLimit req/min per IP)
//  8. CORS
//  9. BodyLimit   (cfg.MaxBodyBytes)
//  10. Timeout    (cfg.HandlerTimeout)
//  11. Security headers (CSP, HSTS, X-Frame-Options, Permissions-Policy)
func NewRouter(cfg ServerConfig, inst Instrumentation) *chi.Mux {
	cfg = withDefaults(cfg)

	sec := secure.New(secure.Options{
		STSSeconds:            63072000,
		STSIncludeSubdomains:  true,
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'self'",
		PermissionsPolicy:     "geolocation=(), microphone=(), camera=(), usb=(), magnetometer=(), gyroscope=()",
		IsDevelopment:         cfg.IsDevelopment,
	})

	r := chi.NewRouter()
	for _, mw := range []Middleware{inst.Recovery, inst.Sentry} {
		if mw != nil {
			r.Use(mw)
		}
	}
	r.Use(middleware.RequestID)
	for _, mw := range []Middleware{inst.Tracing, inst.Logger} {
		if mw != nil {
			r.Use(mw)
		}
	}
	r.Use(
		middleware.RealIP,
		httprate.LimitByIP(cfg.RateLimit, time.Minute),
		CORSMiddleware(cfg.CORSAllowedOrigins),
		RequestBodyLimit(cfg.MaxBodyBytes),
		middleware.Timeout(cfg.HandlerTimeout),
		sec.Handler,
	)
	return r
}

func withDefaults(cfg ServerConfig) ServerConfig {
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = DefaultRateLimit
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.HandlerTimeout <= 0 {
		cfg.HandlerTimeout = DefaultHandlerTimeout
	}
	return cfg
}

// CORSMiddleware returns a CORS handler restricted to the given allowed origins.
// allowedOrigins is a comma-separated list (e.g. "https://app.example.com,http://localhost:3000").
// Pass "*" to allow all origins (development only).
func CORSMiddleware(allowedOrigins string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   parseOrigins(allowedOrigins),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	})
}

// parseOrigins splits a comma-separated origins string, trimming spaces.
// An empty list allows all origins.
func parseOrigins(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// RequestBodyLimit returns middleware that caps the request body at maxBytes.
// Reads past the limit fail with *http.MaxBytesError, which
// validator.ValidateRequest turns into a 413 response.
func RequestBodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// NewServer returns an *http.Server whose write timeout leaves room for the
// handler timeout.
func NewServer(addr string, handler http.Handler, handlerTimeout time.Duration) *http.Server {
	if handlerTimeout <= 0 {
		handlerTimeout = DefaultHandlerTimeout
	}
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      handlerTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MB
	}
}
