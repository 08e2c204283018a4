package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"salesbook/internal/analysis"
	"salesbook/internal/log"
	"salesbook/internal/middleware/ratelimit"
	"salesbook/internal/middleware/security"
	"salesbook/internal/middleware/trace"
	"salesbook/internal/services"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the services the handlers call.
type Deps struct {
	Ledger   *services.LedgerService
	Goals    *services.GoalService
	Analyzer analysis.Analyzer
	// Ready is probed by /readyz; nil means always ready.
	Ready  Pinger
	Logger *log.Logger
}

// Options tune request handling.
type Options struct {
	// DevOwnerID is used when X-Owner-ID is absent. Empty rejects such
	// requests with 401.
	DevOwnerID         string
	RateLimitPerMinute int
	// MaxUploadBytes caps import uploads; 0 means 10 MiB.
	MaxUploadBytes int64
	// TrustedProxies are extra CIDRs whose forwarded headers are honoured.
	TrustedProxies []string
}

type Server struct {
	http.Server
	ledger   *services.LedgerService
	goals    *services.GoalService
	analyzer analysis.Analyzer
	ready    Pinger

	devOwner  string
	maxUpload int64
	limiter   *ratelimit.Limiter
	detector  *security.Detector
	now       func() time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, d Deps, o Options) *Server {
	logger := d.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	analyzer := d.Analyzer
	if analyzer == nil {
		analyzer = analysis.NewMockAnalyzer()
	}
	maxUpload := o.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 10 << 20
	}

	rlConfig := ratelimit.DefaultConfig()
	if o.RateLimitPerMinute > 0 {
		rlConfig.RequestsPerMinute = o.RateLimitPerMinute
	}

	s := &Server{
		ledger:    d.Ledger,
		goals:     d.Goals,
		analyzer:  analyzer,
		ready:     d.Ready,
		devOwner:  o.DevOwnerID,
		maxUpload: maxUpload,
		limiter:   ratelimit.NewLimiter(rlConfig),
		detector:  security.NewDetector(),
		now:       time.Now,
	}
	for _, cidr := range o.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", log.FieldError, err)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("DELETE /api/transactions", s.handleDeleteTransactions)
	mux.HandleFunc("GET /api/entries", s.handleListEntries)
	mux.HandleFunc("POST /api/entries", s.handleAddEntries)
	mux.HandleFunc("PUT /api/entries", s.handleReplaceEntry)
	mux.HandleFunc("POST /api/import", s.handleImport)
	mux.HandleFunc("GET /api/export.csv", s.handleExportCSV)
	mux.HandleFunc("GET /api/export.xlsx", s.handleExportXLSX)

	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/periods", s.handlePeriods)
	mux.HandleFunc("GET /api/compare", s.handleCompare)

	mux.HandleFunc("GET /api/goals", s.handleListGoals)
	mux.HandleFunc("PUT /api/goals", s.handleSaveGoal)
	mux.HandleFunc("DELETE /api/goals", s.handleDeleteGoal)
	mux.HandleFunc("GET /api/goals/progress", s.handleGoalProgress)

	mux.HandleFunc("POST /api/talk/analyze", s.handleAnalyze)

	// Outermost first.
	chain := []func(http.Handler) http.Handler{
		log.Middleware(logger),
		log.ComponentMiddleware(log.ComponentHTTP),
		trace.NewMiddleware(s.detector.ExtractClientIP).Middleware,
		s.detector.Middleware,
		security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware,
		s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request, retry time.Duration) {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
				log.FieldClientIP, s.detector.ExtractClientIP(r), log.FieldMethod, r.Method, log.FieldPath, r.URL.Path)
			TooManyRequestsError(retry).Write(w)
		}),
	}
	var h http.Handler = mux
	for i := len(chain) - 1; i >= 0; i-- {
		h = chain[i](h)
	}

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Shutdown stops the rate limiter and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready.Ping(ctx); err != nil {
			log.FromContext(ctx).WarnContext(ctx, "Readiness check failed", log.FieldError, err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
