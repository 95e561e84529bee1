package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"budget/internal/auth"
	"budget/internal/cache"
	"budget/internal/log"
	"budget/internal/middleware/ratelimit"
	"budget/internal/middleware/security"
	"budget/internal/middleware/trace"
	"budget/internal/session"
	"budget/internal/store"
)

const (
	defaultSessionTTL       = 12 * time.Hour
	defaultSessionCacheSize = 1000
	cacheCleanupInterval    = 10 * time.Minute
	readyTimeout            = 5 * time.Second
)

// Options configures NewServer.
type Options struct {
	Addr     string
	Store    store.TransactionStore
	Provider auth.Provider
	// Codec seals session cookies. Nil generates throwaway keys, so cookies
	// do not survive a restart.
	Codec *auth.SessionCodec
	// Ready reports whether the store can serve requests. Nil is always ready.
	Ready func(ctx context.Context) error

	Logger           *log.Logger
	SessionTTL       time.Duration
	SessionCacheSize int
	ExportLocale     string
	// ExportLocation is the zone export dates are written in. Nil is UTC.
	ExportLocation *time.Location
	RateLimit        ratelimit.Config
}

type appMetrics struct {
	uptime              time.Time
	transactionsCreated int64
	transactionsUpdated int64
	transactionsDeleted int64
	remoteFailures      int64
}

// Server is the JSON API. One session.Session per signed-in owner lives in an
// LRU cache; a sealed cookie names the owner of every request.
type Server struct {
	http.Server

	store    store.TransactionStore
	provider auth.Provider
	codec    *auth.SessionCodec
	ready    func(ctx context.Context) error
	logger   *log.StructuredLogger

	sessionTTL   time.Duration
	exportLocale string
	exportLoc    *time.Location

	sessions     *cache.LRUCache[*session.Session]
	cacheManager *cache.Manager

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware

	appMetrics   appMetrics
	shutdownOnce sync.Once
	now          func() time.Time
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(opts Options) (*Server, error) {
	if opts.Store == nil {
		return nil, errors.New("http server: store is required")
	}
	if opts.Provider == nil {
		return nil, errors.New("http server: auth provider is required")
	}
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	logger := opts.Logger.WithComponent(log.ComponentHTTP)

	codec := opts.Codec
	if codec == nil {
		var err error
		if codec, err = ephemeralCodec(); err != nil {
			return nil, err
		}
		logger.Warn("Session keys not configured, using ephemeral keys")
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = defaultSessionTTL
	}
	if opts.SessionCacheSize <= 0 {
		opts.SessionCacheSize = defaultSessionCacheSize
	}

	s := &Server{
		store:            opts.Store,
		provider:         opts.Provider,
		codec:            codec,
		ready:            opts.Ready,
		logger:           log.NewStructuredLogger(logger),
		sessionTTL:       opts.SessionTTL,
		exportLocale:     opts.ExportLocale,
		exportLoc:        opts.ExportLocation,
		sessions:         cache.NewLRUCache[*session.Session](opts.SessionCacheSize, opts.SessionTTL),
		cacheManager:     cache.NewManager(),
		rateLimiter:      ratelimit.NewLimiter(opts.RateLimit),
		securityDetector: security.NewDetector(),
		appMetrics:       appMetrics{uptime: time.Now()},
		now:              time.Now,
	}
	s.traceMiddleware = trace.NewMiddleware(opts.Logger, s.securityDetector.ExtractClientIP)

	// an evicted session stops listening to the auth provider
	s.sessions.OnEvict(func(owner string, sess *session.Session) {
		sess.Close()
		logger.Debug("Session evicted", log.FieldOwner, owner)
	})
	s.cacheManager.Register(s.sessions)
	s.cacheManager.StartCleanup(cacheCleanupInterval)

	mux := http.NewServeMux()
	s.routes(mux)

	var handler http.Handler = mux
	handler = s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, ratelimit.Mutating)(handler)
	handler = s.securityDetector.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.traceMiddleware.Middleware(handler)
	handler = log.ComponentMiddleware(log.ComponentHTTP)(handler)
	handler = log.Middleware(opts.Logger)(handler)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

func ephemeralCodec() (*auth.SessionCodec, error) {
	enc, err := auth.NewRandomKey()
	if err != nil {
		return nil, fmt.Errorf("generate session key: %w", err)
	}
	sign, err := auth.NewRandomKey()
	if err != nil {
		return nil, fmt.Errorf("generate session key: %w", err)
	}
	return auth.NewSessionCodec(enc, sign)
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /auth/login", s.handleLoginRedirect)
	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.HandleFunc("GET /auth/callback", s.handleCallback)
	mux.HandleFunc("POST /auth/logout", s.handleLogout)
	mux.HandleFunc("GET /auth/me", s.authed(s.handleMe))

	mux.HandleFunc("GET /api/categories", s.handleCategories)
	mux.HandleFunc("GET /api/transactions", s.authed(s.handleListTransactions))
	mux.HandleFunc("POST /api/transactions", s.authed(s.handleCreateTransaction))
	mux.HandleFunc("POST /api/transactions/reload", s.authed(s.handleReload))
	mux.HandleFunc("PATCH /api/transactions/{id}", s.authed(s.handleUpdateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.authed(s.handleDeleteTransaction))
	mux.HandleFunc("GET /api/summary", s.authed(s.handleSummary))
	mux.HandleFunc("GET /api/groups/categories", s.authed(s.handleCategoryGroups))
	mux.HandleFunc("GET /api/groups/months", s.authed(s.handleMonthGroups))
	mux.HandleFunc("GET /api/analytics", s.authed(s.handleAnalytics))
	mux.HandleFunc("GET /api/export", s.authed(s.handleExport))
}

// ActiveSessions returns the number of cached owner sessions.
func (s *Server) ActiveSessions() int {
	return s.sessions.Size()
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

func (s *Server) countRemoteFailure() {
	atomic.AddInt64(&s.appMetrics.remoteFailures, 1)
}
