package http

import (
	"context"
	"net/http"

	"moneycoach/internal/cache"
	"moneycoach/internal/core"
	"moneycoach/internal/services"
)

func (s *Server) handleMoments(w http.ResponseWriter, r *http.Request) {
	s.cachedView(w, r, cache.ViewMoments, func(ctx context.Context, userID string) (any, error) {
		moments, err := s.svc.Habits.Moments(ctx, userID)
		if err != nil {
			return nil, err
		}
		if moments == nil {
			moments = []core.Moment{}
		}
		return map[string]any{"moments": moments}, nil
	})
}

func (s *Server) handleReflections(w http.ResponseWriter, r *http.Request) {
	s.cachedView(w, r, cache.ViewReset, func(ctx context.Context, userID string) (any, error) {
		reflections, err := s.svc.Habits.Reflections(ctx, userID)
		if err != nil {
			return nil, err
		}
		if reflections == nil {
			reflections = []core.Reflection{}
		}
		return map[string]any{"reflections": reflections}, nil
	})
}

type reflectionRequest struct {
	DayNumber int    `json:"dayNumber"`
	Prompt    string `json:"prompt"`
	Response  string `json:"response"`
}

func (s *Server) handleAddReflection(w http.ResponseWriter, r *http.Request) {
	var req reflectionRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	loc, err := s.userLocation(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	ref, err := s.svc.Habits.AddReflection(r.Context(), requestUser(r), req.DayNumber,
		sanitizeInput(req.Prompt), sanitizeInput(req.Response), loc)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Invalidate(cache.ViewReset).
		Body(map[string]any{"reflection": ref}).
		Write(w)
}

// handleResetProgress is not cached: the unlocked day moves with the clock.
func (s *Server) handleResetProgress(w http.ResponseWriter, r *http.Request) {
	loc, err := s.userLocation(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	progress, err := s.svc.Habits.Progress(r.Context(), requestUser(r), loc)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(map[string]any{
		"progress":         progress,
		"reflectionPrompt": services.ReflectionPrompt(max(progress.UnlockedDay, 1)),
	}).Write(w)
}
