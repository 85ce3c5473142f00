package http

import (
	"net/http"

	"moneycoach/internal/cache"
	"moneycoach/internal/core"
	"moneycoach/internal/services"
)

const (
	defaultHistoryLimit = 30
	maxHistoryLimit     = 365
)

// checkInViews are the views a check-in write makes stale.
var checkInViews = []string{cache.ViewCheckIn, cache.ViewReset, cache.ViewMoments}

// handleCheckIn returns today's check-in, creating it on first access.
// GET and POST behave the same.
func (s *Server) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	loc, err := s.userLocation(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx, cancel := s.detached(r)
	defer cancel()

	res, err := s.svc.Habits.Today(ctx, requestUser(r), loc)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeCheckIn(w, res)
}

func (s *Server) handleCompleteHabit(w http.ResponseWriter, r *http.Request) {
	loc, err := s.userLocation(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx, cancel := s.detached(r)
	defer cancel()

	res, err := s.svc.Habits.CompleteHabit(ctx, requestUser(r), loc)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeCheckIn(w, res)
}

func writeCheckIn(w http.ResponseWriter, res services.CheckInResult) {
	resp := NewJSONResponse()
	if res.Changed {
		resp.Invalidate(checkInViews...)
	}
	resp.Body(res).Write(w)
}

func (s *Server) handleCheckInHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := ParseLimit(r.URL.Query(), defaultHistoryLimit, maxHistoryLimit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	history, err := s.svc.Habits.History(r.Context(), requestUser(r), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if history == nil {
		history = []core.CheckIn{}
	}
	NewJSONResponse().Body(map[string]any{"checkins": history}).Write(w)
}
