package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/cache"
	"fintrack/internal/log"
	"fintrack/internal/services"
)

const (
	requestsPerMinute = 60
	cleanupInterval   = 5 * time.Minute

	tokenCacheSize = 1024
	tokenCacheTTL  = 5 * time.Minute
)

// Server exposes the synchronization bridge over a JSON API.
type Server struct {
	http.Server
	bridge   *services.Bridge
	provider *auth.Provider
	logger   *log.Logger
	httpLog  *log.HTTPLogger

	limiter      *rateLimiter
	tokenCache   *cache.LRUCache[string]
	cacheManager *cache.Manager
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

func New(port string, bridge *services.Bridge, provider *auth.Provider, logger *log.Logger) *Server {
	s := &Server{
		bridge:      bridge,
		provider:    provider,
		logger:      logger.WithComponent(log.ComponentHTTP),
		httpLog:     log.NewHTTPLogger(logger),
		limiter:      newRateLimiter(requestsPerMinute),
		tokenCache:   cache.NewLRUCache[string](tokenCacheSize, tokenCacheTTL),
		cacheManager: cache.NewManager(),
		stopCleanup:  make(chan struct{}),
	}
	s.cacheManager.Register(s.tokenCache)

	s.Server.Addr = ":" + port
	s.Server.Handler = s.routes()
	s.Server.ReadTimeout = 10 * time.Second
	s.Server.WriteTimeout = 15 * time.Second
	s.Server.IdleTimeout = 60 * time.Second

	go s.limiter.cleanupLoop(cleanupInterval, s.stopCleanup)
	s.cacheManager.StartCleanup(cleanupInterval)

	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /api/auth/signup", s.handleSignUp)
	mux.HandleFunc("POST /api/auth/signin", s.handleSignIn)
	mux.Handle("POST /api/auth/signout", s.requireAuth(s.handleSignOut))
	mux.Handle("GET /api/session", s.requireAuth(s.handleSession))

	mux.Handle("GET /api/state", s.requireAuth(s.handleState))
	mux.Handle("POST /api/state/refresh", s.requireAuth(s.handleRefresh))

	mux.Handle("POST /api/transactions", s.requireAuth(s.handleTransactionCreate))
	mux.Handle("PUT /api/transactions/{id}", s.requireAuth(s.handleTransactionUpdate))
	mux.Handle("DELETE /api/transactions/{id}", s.requireAuth(s.handleTransactionDelete))

	mux.Handle("POST /api/recurring-transactions", s.requireAuth(s.handleRecurringCreate))
	mux.Handle("PUT /api/recurring-transactions/{id}", s.requireAuth(s.handleRecurringUpdate))
	mux.Handle("DELETE /api/recurring-transactions/{id}", s.requireAuth(s.handleRecurringDelete))

	mux.Handle("POST /api/goals", s.requireAuth(s.handleGoalCreate))
	mux.Handle("PUT /api/goals/{id}", s.requireAuth(s.handleGoalUpdate))
	mux.Handle("DELETE /api/goals/{id}", s.requireAuth(s.handleGoalDelete))

	mux.Handle("POST /api/budgets", s.requireAuth(s.handleBudgetCreate))
	mux.Handle("PUT /api/budgets/{id}", s.requireAuth(s.handleBudgetUpdate))
	mux.Handle("DELETE /api/budgets/{id}", s.requireAuth(s.handleBudgetDelete))

	mux.Handle("POST /api/bills", s.requireAuth(s.handleBillCreate))
	mux.Handle("PUT /api/bills/{id}", s.requireAuth(s.handleBillUpdate))
	mux.Handle("DELETE /api/bills/{id}", s.requireAuth(s.handleBillDelete))
	mux.Handle("POST /api/bills/{id}/pay", s.requireAuth(s.handleBillPay))

	mux.Handle("POST /api/challenges", s.requireAuth(s.handleChallengeCreate))
	mux.Handle("PUT /api/challenges/{id}", s.requireAuth(s.handleChallengeUpdate))
	mux.Handle("DELETE /api/challenges/{id}", s.requireAuth(s.handleChallengeDelete))

	mux.Handle("POST /api/liabilities", s.requireAuth(s.handleLiabilityCreate))
	mux.Handle("PUT /api/liabilities/{id}", s.requireAuth(s.handleLiabilityUpdate))
	mux.Handle("DELETE /api/liabilities/{id}", s.requireAuth(s.handleLiabilityDelete))

	mux.Handle("POST /api/bank-accounts", s.requireAuth(s.handleBankAccountCreate))
	mux.Handle("PUT /api/bank-accounts/{id}", s.requireAuth(s.handleBankAccountUpdate))
	mux.Handle("DELETE /api/bank-accounts/{id}", s.requireAuth(s.handleBankAccountDelete))

	mux.Handle("POST /api/notifications", s.requireAuth(s.handleNotificationCreate))
	mux.Handle("POST /api/notifications/read-all", s.requireAuth(s.handleNotificationsReadAll))
	mux.Handle("POST /api/notifications/{id}/read", s.requireAuth(s.handleNotificationRead))
	mux.Handle("DELETE /api/notifications/{id}", s.requireAuth(s.handleNotificationDelete))

	mux.Handle("PATCH /api/profile", s.requireAuth(s.handleProfileUpdate))
	mux.Handle("PATCH /api/settings", s.requireAuth(s.handleSettingsUpdate))
	mux.Handle("POST /api/settings/currency", s.requireAuth(s.handleCurrencyChange))
	mux.Handle("PUT /api/monthly-budget", s.requireAuth(s.handleMonthlyBudget))

	mux.Handle("GET /api/onboarding", s.requireAuth(s.handleOnboardingStatus))
	mux.Handle("POST /api/onboarding/complete", s.requireAuth(s.handleOnboardingComplete))

	return s.withObservability(s.withRateLimit(mux))
}

// withObservability tags every request with an id and client IP, sets
// security headers and logs the request lifecycle.
func (s *Server) withObservability(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := generateRequestID()
		ip := clientIP(r)

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		ctx = context.WithValue(ctx, clientIPKey, ip)
		r = r.WithContext(ctx)

		w.Header().Set("X-Request-ID", requestID)
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		s.httpLog.LogStart(ctx, r, ip)
		next.ServeHTTP(rw, r)
		s.httpLog.LogEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), ip)
	})
}

func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.allow(clientIP(r)) {
			s.respondError(w, r, http.StatusTooManyRequests, "Too many requests. Please slow down.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireAuth admits only requests carrying a bearer token that verifies
// and matches the active session.
func (s *Server) requireAuth(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			s.respondError(w, r, http.StatusUnauthorized, "Missing or malformed Authorization header.")
			return
		}

		// Signature checks are cached; session liveness is checked on
		// every request, so a cached token dies with its session.
		userID, ok := s.tokenCache.Get(token)
		if !ok {
			verified, err := s.provider.VerifyToken(token)
			if err != nil {
				s.respondError(w, r, http.StatusUnauthorized, auth.FriendlyMessage(err))
				return
			}
			userID = verified
			s.tokenCache.Set(token, userID)
		}

		session, err := s.provider.Current()
		if err != nil || session.User.ID != userID {
			s.respondError(w, r, http.StatusUnauthorized, auth.FriendlyMessage(auth.ErrNotSignedIn))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready"))
}

// Shutdown stops the cleanup goroutine and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		close(s.stopCleanup)
		s.cacheManager.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// responseWriter captures the status code for request logging.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
