package http

import (
	"context"
	"net/http"
	"time"

	"moneycoach/internal/cache"
)

// allViews is every view a user can have cached. The trailing colon makes
// the budget entry a prefix over all periods.
var allViews = []string{
	cache.ViewGoals, cache.ViewCheckIn, cache.ViewPlaybook,
	cache.ViewMoments, cache.ViewReset, cache.BudgetView(""),
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.ready != nil {
		if err := s.ready(ctx); err != nil {
			checks["storage"] = "failed: " + err.Error()
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		} else {
			checks["storage"] = "ok"
		}
	}

	cacheEntries := 0
	if s.views != nil {
		cacheEntries = s.views.Size()
	}
	checks["cache"] = map[string]any{"entries": cacheEntries, "status": "ok"}
	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
		"total_hits":     s.rateLimiter.GetMetrics().TotalHits,
	}
	detected := s.securityDetector.GetMetrics()
	checks["security"] = map[string]any{
		"suspicious_requests": detected.SuspiciousRequests,
		"blocked_requests":    detected.BlockedRequests,
	}
	traced := s.traceMiddleware.GetMetrics()
	checks["http"] = map[string]any{
		"total_requests": traced.TotalRequests,
		"server_errors":  traced.ServerErrors,
	}

	NewJSONResponse().Status(httpStatus).Body(map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

func (s *Server) handleDeleteAccountData(w http.ResponseWriter, r *http.Request) {
	n, err := s.svc.Account.DeleteData(r.Context(), requestUser(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewJSONResponse().
		Invalidate(allViews...).
		Body(map[string]any{"deletedRecords": n}).
		Write(w)
}
