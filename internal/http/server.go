// Package http serves the ledger as a JSON API.
package http

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"mkwanja/internal/lock"
	"mkwanja/internal/log"
	"mkwanja/internal/services"
)

type Server struct {
	http.Server

	svc         *services.LedgerService
	gate        *lock.Gate
	rateLimiter *rateLimiter
	logger      *log.Logger
	currency    string
	started     time.Time

	shutdownOnce sync.Once
}

// Option configures a Server.
type Option func(*Server)

// WithRateLimit sets how many mutating requests one client IP may make per
// minute.
func WithRateLimit(perMinute int) Option {
	return func(s *Server) {
		s.rateLimiter = newRateLimiter(perMinute)
	}
}

// WithCurrency sets the display currency label returned with dashboards.
func WithCurrency(code string) Option {
	return func(s *Server) {
		s.currency = code
	}
}

func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewServer(addr string, svc *services.LedgerService, gate *lock.Gate, opts ...Option) *Server {
	s := &Server{
		svc:         svc,
		gate:        gate,
		rateLimiter: newRateLimiter(defaultRateLimit),
		logger:      log.Default(log.ComponentHTTP),
		started:     time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/reports", s.handleReport)
	mux.HandleFunc("GET /api/export.csv", s.handleExportCSV)

	mux.HandleFunc("GET /api/settings", s.handleGetSettings)
	mux.HandleFunc("PUT /api/settings", s.handleSaveSettings)

	mux.HandleFunc("GET /api/categories", s.handleListCategories)
	mux.HandleFunc("POST /api/categories", s.handleAddCategory)
	mux.HandleFunc("DELETE /api/categories/{id}", s.handleDeleteCategory)

	mux.HandleFunc("GET /api/expenses", s.handleListExpenses)
	mux.HandleFunc("POST /api/expenses", s.handleAddExpense)
	mux.HandleFunc("PUT /api/expenses/{id}", s.handleUpdateExpense)
	mux.HandleFunc("DELETE /api/expenses/{id}", s.handleDeleteExpense)

	mux.HandleFunc("POST /api/lock", s.handleLock)
	mux.HandleFunc("POST /api/unlock", s.handleUnlock)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.withMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go s.rateLimiter.startCleanup()
	return s
}

// Shutdown stops the background cleanup and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.logger.InfoContext(ctx, "Shutting down HTTP server", log.FieldOperation, log.OpShutdown)
		s.rateLimiter.stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// withMiddleware adds request ids, security headers, rate limiting of
// mutating requests, the lock gate and request logging.
func (s *Server) withMiddleware(next http.Handler) http.Handler {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := r.Context()
		clientIP := extractClientIP(r)
		logger := log.FromContext(ctx)

		setSecurityHeaders(w.Header())
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		defer func() {
			log.LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
		}()

		if isSuspicious(r) {
			logger.WarnContext(ctx, "Suspicious request",
				log.FieldClientIP, clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
		}

		if isMutating(r.Method) && !s.rateLimiter.allow(clientIP) {
			logger.WarnContext(ctx, "Rate limit exceeded",
				log.FieldClientIP, clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
			ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, try again later").
				Header("Retry-After", "60").
				Write(rw)
			return
		}

		if s.gated(r) {
			LockedError().Write(rw)
			return
		}

		next.ServeHTTP(rw, r)
	})

	return log.Middleware(s.logger, func(r *http.Request) string {
		id := r.Header.Get("X-Request-ID")
		if id == "" || len(id) > 64 {
			id = generateRequestID()
		}
		r.Header.Set("X-Request-ID", id)
		return id
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Request-ID", r.Header.Get("X-Request-ID"))
		inner.ServeHTTP(w, r)
	}))
}

// gated reports whether the lock gate rejects r. Only unlock passes while
// locked.
func (s *Server) gated(r *http.Request) bool {
	if s.gate == nil || !strings.HasPrefix(r.URL.Path, "/api/") {
		return false
	}
	if r.URL.Path == "/api/unlock" {
		return false
	}
	return s.gate.Locked()
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// responseWriter captures the status code for logging.
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}
