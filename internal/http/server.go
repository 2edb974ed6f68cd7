package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"hisab/internal/cache"
	"hisab/internal/core"
	"hisab/internal/log"
	"hisab/internal/middleware/ratelimit"
	"hisab/internal/middleware/security"
	"hisab/internal/middleware/trace"
	"hisab/internal/services"
)

// Server exposes the engine as a JSON API. Every route is scoped to a user;
// the X-User-ID header selects one, falling back to the configured default
// for single-user installs.
type Server struct {
	http.Server

	entries     *services.EntryService
	completions *services.CompletionService
	accounts    *services.AccountService
	months      *services.MonthlyAggregator
	balances    *services.BalanceReconstructor
	insights    *services.InsightsService
	store       services.Store

	defaultUserID string

	limiter  *ratelimit.Limiter
	caches   *cache.Manager
	logs     *log.StructuredLogger
	detector *security.Detector
	tracer   *trace.Middleware
	started  time.Time

	// LRU cache for month views; invalidated on every write to the period
	monthCache *cache.LRUCache[core.MonthView]

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr, defaultUserID string, store services.Store, events services.EventPublisher) *Server {
	mux := http.NewServeMux()

	s := &Server{
		entries:       services.NewEntryService(store, events),
		completions:   services.NewCompletionService(store, events),
		accounts:      services.NewAccountService(store),
		months:        services.NewMonthlyAggregator(store),
		balances:      services.NewBalanceReconstructor(store),
		insights:      services.NewInsightsService(store),
		store:         store,
		defaultUserID: defaultUserID,
		limiter:       ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		caches:        cache.NewManager(),
		logs:          log.NewStructuredLogger(log.New(log.DefaultConfig()).WithComponent(log.ComponentHTTP)),
		detector:      security.NewDetector(),
		monthCache:    cache.NewLRUCache[core.MonthView](100, 5*time.Minute),
		started:       time.Now(),
	}

	s.caches.Register(s.monthCache)
	s.caches.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /api/months", s.handleMonthView)
	mux.HandleFunc("POST /api/months/complete-all", s.handleCompleteAll)
	mux.HandleFunc("GET /api/balance", s.handleBalance)

	mux.HandleFunc("GET /api/entries", s.handleListEntries)
	mux.HandleFunc("POST /api/entries", s.handleCreateEntry)
	mux.HandleFunc("GET /api/entries/{id}", s.handleGetEntry)
	mux.HandleFunc("PUT /api/entries/{id}", s.handleUpdateEntry)
	mux.HandleFunc("DELETE /api/entries/{id}", s.handleDeleteEntry)
	mux.HandleFunc("PATCH /api/entries/{id}/amount", s.handleUpdateAmount)
	mux.HandleFunc("PATCH /api/entries/{id}/dates", s.handleUpdateDates)
	mux.HandleFunc("POST /api/entries/{id}/future", s.handleUpdateFuture)
	mux.HandleFunc("POST /api/entries/{id}/complete", s.handleMarkCompleted)
	mux.HandleFunc("POST /api/entries/{id}/revert", s.handleRevertCompletion)

	mux.HandleFunc("GET /api/accounts", s.handleListAccounts)
	mux.HandleFunc("POST /api/accounts", s.handleCreateAccount)
	mux.HandleFunc("GET /api/accounts/{id}", s.handleGetAccount)
	mux.HandleFunc("PUT /api/accounts/{id}", s.handleUpdateAccount)
	mux.HandleFunc("DELETE /api/accounts/{id}", s.handleDeleteAccount)

	mux.HandleFunc("GET /api/categories", s.handleListCategories)
	mux.HandleFunc("POST /api/insights/query", s.handleInsightsQuery)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP)

	var handler http.Handler = mux
	handler = s.withRateLimit(handler)
	handler = s.withSuspicionLog(handler)
	handler = headers.Middleware(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// withSuspicionLog flags requests matching known attack patterns. Flagged
// requests are still served; the signal feeds the metrics endpoint.
func (s *Server) withSuspicionLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			slog.WarnContext(r.Context(), "Suspicious request detected",
				log.FieldRequestID, trace.GetRequestID(r.Context()),
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path,
				log.FieldClientIP, s.detector.ExtractClientIP(r))
		}
		next.ServeHTTP(w, r)
	})
}

// withRateLimit applies the limiter to mutating requests only.
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
			if !s.limiter.Allow(s.detector.ExtractClientIP(r)) {
				w.Header().Set("Retry-After", "60")
				ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded").Write(w)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// userID resolves the acting user from the X-User-ID header.
func (s *Server) userID(r *http.Request) string {
	if id := sanitizeInput(r.Header.Get("X-User-ID")); id != "" {
		return id
	}
	return s.defaultUserID
}

func monthCacheKey(userID string, year, month int) string {
	return userID + ":" + strconv.Itoa(year) + "-" + strconv.Itoa(month)
}

func (s *Server) invalidateMonth(userID string, year, month int) {
	s.monthCache.Delete(monthCacheKey(userID, year, month))
}

// invalidateEntryMonths drops cached views for the periods an entry touches.
// Recurring templates can affect any month, so every cached view for the
// user is dropped.
func (s *Server) invalidateEntryMonths(userID string, e core.Entry) {
	if e.Schedule == core.OneTime {
		if !e.Date.IsEmpty() {
			s.invalidateMonth(userID, e.Date.Year(), e.Date.Month())
		}
		return
	}
	s.monthCache.DeletePrefix(userID + ":")
}
