package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"finledger/internal/core"
	"finledger/internal/log"
	"finledger/internal/middleware/ratelimit"
	"finledger/internal/middleware/security"
	"finledger/internal/middleware/trace"
	"finledger/internal/rollup"
	"finledger/internal/services"
)

// SummaryAPI is the category tree side of the API.
type SummaryAPI interface {
	Summary(ctx context.Context, q services.SummaryQuery) (*rollup.Summary, error)
	ListCategories(ctx context.Context, kind core.CategoryKind) ([]core.Category, error)
	DisableCategory(ctx context.Context, id int64) (core.Category, error)
}

type CashflowAPI interface {
	Project(ctx context.Context, q services.CashflowQuery) (services.CashflowResult, error)
	Balances(ctx context.Context, companyID string, from, to core.Date) ([]core.LedgerRecord, error)
}

type ImportAPI interface {
	Submit(ctx context.Context, req services.SubmitRequest) (core.ImportJob, error)
	GetJob(ctx context.Context, id string) (core.ImportJob, error)
	Logs(ctx context.Context, jobID string) ([]core.ConfirmationLog, error)
	Confirm(ctx context.Context, req services.ConfirmRequest) (services.ConfirmResult, error)
}

type OverviewAPI interface {
	Overview(ctx context.Context, q services.OverviewQuery) (services.Overview, error)
}

// Pinger reports whether the store can serve requests.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the handlers call.
type Deps struct {
	Summaries SummaryAPI
	Cashflow  CashflowAPI
	Imports   ImportAPI
	Overview  OverviewAPI
	Store     Pinger
	// Currency renders unit=major amounts and parses startingBalance.
	Currency  string
	RateLimit ratelimit.Config
}

type Server struct {
	http.Server
	deps     Deps
	logger   *log.Logger
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	now      func() time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
// Call Shutdown to stop it and its background goroutines.
func NewServer(addr string, deps Deps, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Discard()
	}
	if deps.Currency == "" {
		deps.Currency = "CNY"
	}

	s := &Server{
		deps:     deps,
		logger:   logger.WithComponent(log.ComponentHTTP),
		limiter:  ratelimit.NewLimiter(deps.RateLimit),
		detector: security.NewDetector(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, s.logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/v1/financial/overview", s.handleOverview)
	mux.HandleFunc("GET /api/v1/financial/revenue-summary", s.handleRevenueSummary)
	mux.HandleFunc("GET /api/v1/financial/cashflow", s.handleCashflow)
	mux.HandleFunc("GET /api/v1/financial/balances", s.handleBalances)

	mux.HandleFunc("GET /api/v1/categories", s.handleListCategories)
	mux.HandleFunc("POST /api/v1/categories/{id}/disable", s.handleDisableCategory)

	mux.HandleFunc("POST /api/v1/import-jobs", s.handleSubmitImport)
	mux.HandleFunc("GET /api/v1/import-jobs/{id}", s.handleGetImportJob)
	mux.HandleFunc("GET /api/v1/import-jobs/{id}/logs", s.handleImportLogs)
	mux.HandleFunc("POST /api/v1/import-jobs/{id}/confirm", s.handleConfirmImport)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.chain(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// chain wraps h outermost-first: tracing, the request logger, security,
// then write rate limiting.
func (s *Server) chain(h http.Handler) http.Handler {
	h = s.limiter.Middleware(s.detector.ExtractClientIP, ratelimit.WritesOnly, nil)(h)
	h = s.detector.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = log.RequestIDMiddleware(trace.RequestIDFrom)(h)
	h = log.Middleware(s.logger)(h)
	return s.tracer.Middleware(h)
}

// Shutdown gracefully shuts down the server and the rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) today() core.Date {
	now := s.now()
	return core.NewDate(now.Year(), int(now.Month()), now.Day())
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Store.Ping(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			ErrorResponse(http.StatusServiceUnavailable, "not_ready", "store unavailable").Write(w)
			return
		}
	}
	NewJSONResponse().Body(map[string]string{"status": "ready"}).Write(w)
}
