package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"moneycoach/internal/core"
)

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name   string     `json:"name"`
		Amount core.Money `json:"amount"`
		Count  int        `json:"count"`
	}

	tests := []struct {
		name        string
		contentType string
		body        string
		wantBad     bool
		wantField   string
	}{
		{name: "valid", contentType: "application/json", body: `{"name": "a", "amount": "12.50"}`},
		{name: "charset", contentType: "application/json; charset=utf-8", body: `{"name": "a"}`},
		{name: "no content type", body: `{"name": "a"}`},
		{name: "empty body", contentType: "application/json"},
		{name: "form", contentType: "application/x-www-form-urlencoded", body: "name=a", wantBad: true},
		{name: "malformed", contentType: "application/json", body: `{"name": `, wantBad: true},
		{name: "trailing", contentType: "application/json", body: `{"name": "a"} {"name": "b"}`, wantBad: true},
		{name: "too large", contentType: "application/json", body: `{"name": "` + strings.Repeat("x", maxBodyBytes) + `"}`, wantBad: true},
		{name: "wrong type", contentType: "application/json", body: `{"count": "three"}`, wantField: "count"},
		{name: "bad amount", contentType: "application/json", body: `{"amount": "lots"}`, wantField: "amount"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			var p payload
			err := DecodeJSON(httptest.NewRecorder(), req, &p)

			switch {
			case tt.wantBad:
				if !errors.Is(err, errBadRequest) {
					t.Fatalf("expected errBadRequest, got %v", err)
				}
			case tt.wantField != "":
				var ve *core.ValidationError
				if !errors.As(err, &ve) || ve.Field != tt.wantField {
					t.Fatalf("expected validation error on %q, got %v", tt.wantField, err)
				}
			default:
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
			}
		})
	}
}

func TestParseLocation(t *testing.T) {
	tests := []struct {
		header  string
		want    string
		wantErr bool
	}{
		{"", "UTC", false},
		{"America/New_York", "America/New_York", false},
		{" Europe/Rome ", "Europe/Rome", false},
		{"Local", "", true},
		{"Nowhere/Special", "", true},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderTimezone, tt.header)
		loc, err := ParseLocation(req, time.UTC)
		if tt.wantErr {
			if !errors.Is(err, core.ErrValidation) {
				t.Fatalf("ParseLocation(%q) expected validation error, got %v", tt.header, err)
			}
			continue
		}
		if err != nil || loc.String() != tt.want {
			t.Fatalf("ParseLocation(%q) = %v, %v; want %s", tt.header, loc, err, tt.want)
		}
	}
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{"", 30, false},
		{"5", 5, false},
		{"1000", 365, false},
		{"0", 0, true},
		{"-3", 0, true},
		{"ten", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseLimit(url.Values{"limit": {tt.raw}}, 30, 365)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Fatalf("ParseLimit(%q) = %d, %v", tt.raw, got, err)
		}
	}
}

func TestSanitizeInput(t *testing.T) {
	if got := sanitizeInput("  save\x00 $5\tnow\n "); got != "save $5\tnow" {
		t.Fatalf("sanitizeInput = %q", got)
	}
}
