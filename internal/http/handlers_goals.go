package http

import (
	"context"
	"errors"
	"net/http"

	"moneycoach/internal/cache"
	"moneycoach/internal/core"
	"moneycoach/internal/intent"
	"moneycoach/internal/services"
)

type messageRequest struct {
	Message string `json:"message"`
}

// assistResponse is a Reply as the client sees it. ai-delete reports the
// removed goal as deletedGoal; a rejected message names its field.
type assistResponse struct {
	services.Reply
	DeletedGoal *core.Goal `json:"deletedGoal,omitempty"`
	Field       string     `json:"field,omitempty"`
}

// handleAssist answers a goal utterance. expected is the intent implied by
// the endpoint; intent.Unknown lets the classifier decide.
func (s *Server) handleAssist(expected intent.Intent) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req messageRequest
		if err := DecodeJSON(w, r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}
		loc, err := s.userLocation(r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		ctx, cancel := s.detached(r)
		defer cancel()

		reply, err := s.svc.Goals.Assist(ctx, requestUser(r), sanitizeInput(req.Message), expected, loc)
		var verr *core.ValidationError
		if errors.As(err, &verr) {
			NewJSONResponse().Body(assistResponse{
				Reply: services.Reply{
					Intent:   expected,
					Response: "Please check your " + verr.Field + ": " + verr.Reason + ".",
				},
				Field: verr.Field,
			}).Write(w)
			return
		}
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		resp := assistResponse{Reply: reply}
		if reply.GoalDeleted {
			resp.DeletedGoal, resp.Goal = reply.Goal, nil
		}
		NewJSONResponse().Invalidate(reply.Invalidated...).Body(resp).Write(w)
	}
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	s.cachedView(w, r, cache.ViewGoals, func(ctx context.Context, userID string) (any, error) {
		goals, err := s.svc.Goals.List(ctx, userID)
		if err != nil {
			return nil, err
		}
		if goals == nil {
			goals = []core.Goal{}
		}
		return map[string]any{"goals": goals}, nil
	})
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var req core.NewGoal
	if err := DecodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	loc, err := s.userLocation(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	req.Name = sanitizeInput(req.Name)

	g, err := s.svc.Goals.Create(r.Context(), requestUser(r), req, loc)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Invalidate(cache.ViewGoals).
		Body(map[string]any{"goal": g}).
		Write(w)
}

type progressRequest struct {
	Amount core.Money `json:"amount"`
}

func (s *Server) handleGoalProgress(w http.ResponseWriter, r *http.Request) {
	var req progressRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	g, err := s.svc.Goals.AddProgress(r.Context(), requestUser(r), r.PathValue("id"), req.Amount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewJSONResponse().
		Invalidate(cache.ViewGoals).
		Body(map[string]any{"goal": g, "percentComplete": g.PercentComplete()}).
		Write(w)
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	g, err := s.svc.Goals.Delete(r.Context(), requestUser(r), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewJSONResponse().
		Invalidate(cache.ViewGoals).
		Body(map[string]any{"deletedGoal": g}).
		Write(w)
}
