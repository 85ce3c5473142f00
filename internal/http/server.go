package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"moneycoach/internal/cache"
	"moneycoach/internal/intent"
	"moneycoach/internal/log"
	"moneycoach/internal/metrics"
	"moneycoach/internal/middleware/auth"
	"moneycoach/internal/middleware/ratelimit"
	"moneycoach/internal/middleware/security"
	"moneycoach/internal/middleware/trace"
	"moneycoach/internal/services"
)

// Services groups the domain services the handlers call.
type Services struct {
	Goals     *services.GoalService
	Budget    *services.BudgetService
	Habits    *services.HabitService
	Playbooks *services.PlaybookService
	Account   *services.AccountService
}

// Options configures a Server. Verifier and DefaultLocation are required.
type Options struct {
	Verifier           *auth.Verifier
	Views              *cache.Views
	DefaultLocation    *time.Location
	RateLimitPerMinute int

	// TrustedProxies extends the proxies whose forwarding headers are used
	// for the client IP.
	TrustedProxies []string

	// AITimeout bounds handlers that call the model provider. They keep
	// running after a client disconnect until it expires.
	AITimeout time.Duration

	// Ready reports whether storage answers; nil means always ready.
	Ready func(context.Context) error

	Logger *log.Logger
}

type Server struct {
	http.Server
	svc Services

	mux              *http.ServeMux
	views            *cache.Views
	verifier         *auth.Verifier
	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	ready            func(context.Context) error
	location         *time.Location
	aiTimeout        time.Duration
	logger           *log.Logger
	started          time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, svc Services, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}
	if opts.DefaultLocation == nil {
		opts.DefaultLocation = time.UTC
	}
	if opts.AITimeout <= 0 {
		opts.AITimeout = time.Minute
	}

	logger := opts.Logger.WithComponent(log.ComponentHTTP)
	detector := security.NewDetector(opts.Logger)
	for _, cidr := range opts.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", log.FieldError, err)
		}
	}

	s := &Server{
		svc:              svc,
		mux:              http.NewServeMux(),
		views:            opts.Views,
		verifier:         opts.Verifier,
		rateLimiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		securityDetector: detector,
		traceMiddleware:  trace.NewMiddleware(opts.Logger, detector.ExtractClientIP),
		ready:            opts.Ready,
		location:         opts.DefaultLocation,
		aiTimeout:        opts.AITimeout,
		logger:           logger,
		started:          time.Now(),
	}

	s.routes()

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.traceMiddleware.Middleware(headers.Middleware(detector.Middleware(s.mux))),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// AI handlers may run up to AITimeout before writing.
		WriteTimeout: opts.AITimeout + 10*time.Second,
		IdleTimeout:  2 * time.Minute,
	}
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /readyz", s.handleReady)
	s.mux.Handle("GET /metrics", metrics.Handler())

	// Goals
	s.api("POST /api/goals/ai-create", s.handleAssist(intent.Create))
	s.api("POST /api/goals/ai-delete", s.handleAssist(intent.Delete))
	s.api("POST /api/goals/ai-progress", s.handleAssist(intent.UpdateProgress))
	s.api("POST /api/goals/ai-chat", s.handleAssist(intent.Unknown))
	s.api("GET /api/goals", s.handleListGoals)
	s.api("POST /api/goals", s.handleCreateGoal)
	s.api("POST /api/goals/{id}/progress", s.handleGoalProgress)
	s.api("DELETE /api/goals/{id}", s.handleDeleteGoal)

	// Budget
	s.api("POST /api/ai/analyze-spending", s.handleAnalyzeSpending)
	s.api("GET /api/budget", s.handleGetBudget)
	s.api("PUT /api/budget/plan", s.handleSetPlan)
	s.api("POST /api/budget/export", s.handleExportBudget)

	// Daily check-in
	s.api("GET /api/daily-checkin", s.handleCheckIn)
	s.api("POST /api/daily-checkin", s.handleCheckIn)
	s.api("POST /api/daily-checkin/complete-habit", s.handleCompleteHabit)
	s.api("GET /api/daily-checkin/history", s.handleCheckInHistory)

	// Interview and playbook
	s.api("GET /api/ai/interview/questions", s.handleInterviewQuestions)
	s.api("POST /api/ai/interview", s.handleInterview)
	s.api("GET /api/ai/interview/latest", s.handleLatestInterview)

	// 30-day money reset
	s.api("GET /api/money-reset/moments", s.handleMoments)
	s.api("GET /api/money-reset/reflections", s.handleReflections)
	s.api("POST /api/money-reset/reflections", s.handleAddReflection)
	s.api("GET /api/money-reset/progress", s.handleResetProgress)

	s.api("DELETE /api/account/data", s.handleDeleteAccountData)
}

// api registers an authenticated, rate-limited route. Limits are per user.
func (s *Server) api(pattern string, h http.HandlerFunc) {
	authenticate := s.verifier.Middleware(func(w http.ResponseWriter, r *http.Request, err error) {
		UnauthorizedError("authentication required").Write(w)
	})
	limit := s.rateLimiter.Middleware(requestUser, func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldPath, r.URL.Path)
		ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, please try again later").Write(w)
	})
	s.mux.Handle(pattern, authenticate(limit(h)))
}

// Shutdown gracefully shuts down the server and its cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}
