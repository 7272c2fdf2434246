package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"despesas/internal/cache"
	"despesas/internal/core"
	"despesas/internal/invoice"
	"despesas/internal/ledger"
	applog "despesas/internal/log"
	"despesas/internal/services"
)

// Server exposes the ledger and summary API over HTTP.
type Server struct {
	http.Server
	store       ledger.Store
	ledgerSvc   *services.LedgerService
	extractor   invoice.Extractor
	rateLimiter *rateLimiter
	metrics     *securityMetrics
	now         func() time.Time
	logger      *applog.Logger

	// Per-user caches for read endpoints, invalidated on writes.
	recordsCache *cache.LRUCache[[]core.LedgerRecord]
	budgetsCache *cache.LRUCache[[]core.Budget]
	cacheManager *cache.Manager

	// One summary coordinator per user, created lazily.
	mu           sync.Mutex
	coordinators map[string]*services.Coordinator

	shutdownOnce sync.Once
}

// Option configures a Server.
type Option func(*Server)

// WithClock overrides the reference time used for monthly aggregation.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// WithExtractor attaches an invoice extraction client.
func WithExtractor(extractor invoice.Extractor) Option {
	return func(s *Server) {
		s.extractor = extractor
	}
}

// WithLogger overrides the request logger.
func WithLogger(logger *applog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer configures routes and returns a ready-to-run http.Server.
func NewServer(addr string, store ledger.Store, ledgerSvc *services.LedgerService, opts ...Option) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		store:        store,
		ledgerSvc:    ledgerSvc,
		rateLimiter:  newRateLimiter(),
		metrics:      &securityMetrics{},
		now:          time.Now,
		recordsCache: cache.NewLRUCache[[]core.LedgerRecord](200, time.Minute),
		budgetsCache: cache.NewLRUCache[[]core.Budget](200, time.Minute),
		cacheManager: cache.NewManager(),
		coordinators: make(map[string]*services.Coordinator),
		logger:       applog.New(applog.Config{Component: applog.ComponentHTTP}),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.cacheManager.Register(s.recordsCache)
	s.cacheManager.Register(s.budgetsCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/api/summary", s.withAPIDefaults(s.handleSummary))
	mux.HandleFunc("/api/summary/refresh", s.withAPIDefaults(s.handleSummaryRefresh))
	mux.HandleFunc("/api/records", s.withAPIDefaults(s.handleRecords))
	mux.HandleFunc("/api/records/", s.withAPIDefaults(s.handleRecordByID))
	mux.HandleFunc("/api/budgets", s.withAPIDefaults(s.handleBudgets))
	mux.HandleFunc("/api/budgets/", s.withAPIDefaults(s.handleBudgetByMonth))
	mux.HandleFunc("/api/invoices/analyze", s.withAPIDefaults(s.handleInvoiceAnalyze))

	// Every request carries a request-ID-tagged logger in its context.
	s.Server.Handler = applog.Middleware(s.logger)(applog.RequestIDMiddleware(requestIDFor)(mux))

	return s
}

// coordinatorFor returns the user's summary coordinator, creating it and
// loading the first snapshot on demand.
func (s *Server) coordinatorFor(ctx context.Context, userID string) (*services.Coordinator, error) {
	s.mu.Lock()
	coord, ok := s.coordinators[userID]
	if !ok {
		coord = services.NewCoordinator(s.store, services.WithClock(s.now))
		s.coordinators[userID] = coord
	}
	s.mu.Unlock()

	if !ok {
		if err := coord.SetUser(ctx, userID); err != nil {
			return nil, err
		}
	}
	return coord, nil
}

// invalidateUser drops the user's cached reads after a write and
// recomputes the published summary so the next read reflects the change.
func (s *Server) invalidateUser(ctx context.Context, userID string) {
	s.recordsCache.Delete(userID)
	s.budgetsCache.Delete(userID)

	s.mu.Lock()
	coord, ok := s.coordinators[userID]
	s.mu.Unlock()
	if !ok {
		// No coordinator yet; the first summary read loads fresh data.
		return
	}
	if err := coord.Refresh(ctx); err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Summary refresh after write failed",
			applog.FieldError, err, applog.FieldUserID, userID)
	}
}

// withAPIDefaults adds security headers, rate limiting, and request logging.
func (s *Server) withAPIDefaults(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ctx := r.Context()
		clientIP := extractClientIP(r)
		logger := applog.FromContext(ctx)

		logger.InfoContext(ctx, "Request started",
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldClientIP, clientIP)

		if detectSuspiciousRequest(r, s.metrics) {
			logger.WarnContext(ctx, "Suspicious request detected",
				applog.FieldClientIP, clientIP,
				applog.FieldPath, r.URL.Path)
		}

		// Rate limit mutating requests only.
		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP, s.metrics) {
			logger.WarnContext(ctx, "Rate limit exceeded",
				applog.FieldClientIP, clientIP,
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cache-Control", "no-store")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		applog.LogHTTPEnd(ctx, logger, r, rw.statusCode, duration.Milliseconds(), clientIP)
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if checker, ok := s.store.(interface{ Healthy(context.Context) error }); ok {
		if err := checker.Healthy(r.Context()); err != nil {
			applog.FromContext(r.Context()).ErrorContext(r.Context(), "Readiness check failed", applog.FieldError, err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("store unavailable"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		if s.cacheManager != nil {
			s.cacheManager.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}
