package http

import (
	"context"
	"net/http"
	"time"

	"moneycoach/internal/cache"
	"moneycoach/internal/core"
)

type interviewRequest struct {
	Responses   []core.Answer `json:"responses"`
	CompletedAt *time.Time    `json:"completedAt"`
}

func (s *Server) handleInterviewQuestions(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]any{"questions": core.InterviewQuestions}).Write(w)
}

func (s *Server) handleInterview(w http.ResponseWriter, r *http.Request) {
	var req interviewRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	var completedAt time.Time
	if req.CompletedAt != nil {
		completedAt = *req.CompletedAt
	}
	for i := range req.Responses {
		req.Responses[i].Text = sanitizeInput(req.Responses[i].Text)
	}

	ctx, cancel := s.detached(r)
	defer cancel()

	res, err := s.svc.Playbooks.Generate(ctx, requestUser(r), req.Responses, completedAt)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Invalidate(cache.ViewPlaybook, cache.ViewCheckIn).
		Body(res).
		Write(w)
}

type latestInterviewResponse struct {
	HasInterview bool            `json:"hasInterview"`
	Interview    *core.Interview `json:"interview,omitempty"`
	Playbook     *core.Playbook  `json:"playbook,omitempty"`
}

func (s *Server) handleLatestInterview(w http.ResponseWriter, r *http.Request) {
	s.cachedView(w, r, cache.ViewPlaybook, func(ctx context.Context, userID string) (any, error) {
		res, found, err := s.svc.Playbooks.Latest(ctx, userID)
		if err != nil || !found {
			return latestInterviewResponse{}, err
		}
		return latestInterviewResponse{
			HasInterview: true,
			Interview:    &res.Interview,
			Playbook:     &res.Playbook,
		}, nil
	})
}
