package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestJSONResponseBuilder(t *testing.T) {
	rr := httptest.NewRecorder()
	NewJSONResponse().
		Status(http.StatusCreated).
		Invalidate("goals", "", "checkin", "goals").
		Header("X-Custom", "1").
		Body(map[string]int{"n": 1}).
		Write(rr)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d", rr.Code)
	}
	if got := rr.Header().Get(HeaderInvalidate); got != "goals,checkin" {
		t.Errorf("X-Invalidate = %q", got)
	}
	if got := rr.Header().Get("X-Custom"); got != "1" {
		t.Errorf("X-Custom = %q", got)
	}
	if got := rr.Body.String(); got != "{\"n\":1}\n" {
		t.Errorf("body = %q", got)
	}
}

func TestJSONResponseBuilderRaw(t *testing.T) {
	b := NewJSONResponse().Body(map[string]string{"ignored": "yes"}).Raw([]byte(`{"cached":true}`))
	out, err := b.Encode()
	if err != nil || string(out) != `{"cached":true}` {
		t.Fatalf("Encode = %s, %v", out, err)
	}
}

func TestJSONResponseBuilderEncodeFailure(t *testing.T) {
	rr := httptest.NewRecorder()
	NewJSONResponse().Body(map[string]any{"ch": make(chan int)}).Write(rr)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name    string
		builder *JSONResponseBuilder
		status  int
		header  string
		body    string
	}{
		{"bad request", BadRequestError("nope"), http.StatusBadRequest, "", `{"error":"nope"}`},
		{"unprocessable", UnprocessableEntityError("name", "invalid name: cannot be empty"), http.StatusUnprocessableEntity, "", `"field":"name"`},
		{"unavailable", UnavailableError("provider down"), http.StatusServiceUnavailable, "Retry-After", `"retryable":true`},
		{"unauthorized", UnauthorizedError("who are you"), http.StatusUnauthorized, "WWW-Authenticate", `{"error":"who are you"}`},
		{"not found", NotFoundError("gone"), http.StatusNotFound, "", `{"error":"gone"}`},
		{"internal", InternalServerError("boom"), http.StatusInternalServerError, "", `{"error":"boom"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			tt.builder.Write(rr)
			if rr.Code != tt.status {
				t.Fatalf("status = %d, want %d", rr.Code, tt.status)
			}
			if tt.header != "" && rr.Header().Get(tt.header) == "" {
				t.Errorf("missing %s header", tt.header)
			}
			if !strings.Contains(rr.Body.String(), tt.body) {
				t.Errorf("body %q does not contain %q", rr.Body.String(), tt.body)
			}
		})
	}
}
