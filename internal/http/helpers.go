package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"moneycoach/internal/core"
	"moneycoach/internal/log"
	"moneycoach/internal/middleware/auth"
	"moneycoach/internal/services"
)

// requestUser returns the authenticated user id. Routes registered through
// api always have one.
func requestUser(r *http.Request) string {
	id, _ := auth.UserID(r.Context())
	return id
}

// userLocation resolves the user's timezone for the request.
func (s *Server) userLocation(r *http.Request) (*time.Location, error) {
	return ParseLocation(r, s.location)
}

// detached returns a context that survives a client disconnect, bounded by
// the AI timeout.
func (s *Server) detached(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(r.Context()), s.aiTimeout)
}

// writeError maps a service error to its HTTP answer.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	logger := log.FromContext(r.Context())

	var verr *core.ValidationError
	switch {
	case errors.Is(err, errBadRequest):
		BadRequestError(err.Error()).Write(w)
	case errors.As(err, &verr):
		UnprocessableEntityError(verr.Field, verr.Error()).Write(w)
	case errors.Is(err, core.ErrExtractionFailed), errors.Is(err, core.ErrClassificationAmbiguous):
		UnprocessableEntityError("", err.Error()).Write(w)
	case errors.Is(err, core.ErrUpstreamProvider):
		logger.WarnContext(r.Context(), "Model provider unavailable",
			log.FieldPath, r.URL.Path,
			log.FieldError, err,
			"error_type", log.ErrorTypeUpstream)
		UnavailableError("the assistant is temporarily unavailable, please try again").Write(w)
	case errors.Is(err, core.ErrNotFound):
		NotFoundError("not found").Write(w)
	case errors.Is(err, services.ErrExportUnavailable):
		ErrorResponse(http.StatusNotImplemented, err.Error()).Write(w)
	default:
		fields := log.NewFields()
		fields[log.FieldPath] = r.URL.Path
		fields["error_type"] = log.ErrorTypeInternal
		log.NewStructuredLogger(logger).LogError(r.Context(), "Request failed", err, log.ComponentHTTP, r.Pattern, fields)
		InternalServerError("internal error").Write(w)
	}
}

// cachedView answers from the per-user view cache, loading and storing the
// body on a miss. A body loaded across an invalidation is served but not
// stored.
func (s *Server) cachedView(w http.ResponseWriter, r *http.Request, view string, load func(ctx context.Context, userID string) (any, error)) {
	userID := requestUser(r)
	var gen uint64
	if s.views != nil {
		if body, ok := s.views.Get(userID, view); ok {
			NewJSONResponse().Header("X-Cache", "hit").Raw(body).Write(w)
			return
		}
		gen = s.views.Generation(userID)
	}

	v, err := load(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := NewJSONResponse().Header("X-Cache", "miss").Body(v)
	if body, err := resp.Encode(); err == nil && s.views != nil {
		s.views.SetIfGeneration(userID, view, body, gen)
	}
	resp.Write(w)
}
