package http

import (
	"context"
	"net/http"

	"moneycoach/internal/cache"
	"moneycoach/internal/core"
)

type analyzeRequest struct {
	Transactions []core.Transaction `json:"transactions"`
	Period       string             `json:"period"`
}

func (s *Server) handleAnalyzeSpending(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(req.Transactions) == 0 {
		s.writeError(w, r, core.Invalid("transactions", "cannot be empty"))
		return
	}
	loc, err := s.userLocation(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	period, err := s.svc.Budget.Period(req.Period, loc)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx, cancel := s.detached(r)
	defer cancel()

	b, err := s.svc.Budget.Reconcile(ctx, requestUser(r), period, req.Transactions)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewJSONResponse().Invalidate(cache.BudgetView(period)).Body(b).Write(w)
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	loc, err := s.userLocation(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	period, err := s.svc.Budget.Period(r.URL.Query().Get("period"), loc)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.cachedView(w, r, cache.BudgetView(period), func(ctx context.Context, userID string) (any, error) {
		return s.svc.Budget.Breakdown(ctx, userID, period)
	})
}

type planRequest struct {
	Period        string     `json:"period"`
	CategoryID    string     `json:"categoryId"`
	PlannedAmount core.Money `json:"plannedAmount"`
}

func (s *Server) handleSetPlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	loc, err := s.userLocation(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	period, err := s.svc.Budget.Period(req.Period, loc)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	b, err := s.svc.Budget.SetPlanned(r.Context(), requestUser(r), period, sanitizeInput(req.CategoryID), req.PlannedAmount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewJSONResponse().Invalidate(cache.BudgetView(period)).Body(b).Write(w)
}

type exportRequest struct {
	Period string `json:"period"`
}

func (s *Server) handleExportBudget(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	loc, err := s.userLocation(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	period, err := s.svc.Budget.Period(req.Period, loc)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	ref, err := s.svc.Budget.Export(r.Context(), requestUser(r), period)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(map[string]string{"period": period, "ref": ref}).Write(w)
}
