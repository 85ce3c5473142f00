// Package http provides the JSON API server and its handlers.
//
// This file implements utilities for parsing and validating HTTP request data.
// Every handler decodes its body, user timezone and query parameters through
// these helpers so malformed input is rejected the same way everywhere.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"moneycoach/internal/core"
)

const (
	// maxBodyBytes bounds every JSON request body.
	maxBodyBytes = 256 << 10

	// HeaderTimezone carries the user's IANA timezone, which decides their day.
	HeaderTimezone = "X-Timezone"
)

// errBadRequest marks input that could not be decoded at all, as opposed
// to decoded input that failed validation.
var errBadRequest = errors.New("bad request")

// DecodeJSON reads a size-limited JSON body into dst. An empty body leaves
// dst untouched.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		return fmt.Errorf("%w: Content-Type must be application/json", errBadRequest)
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("%w: body larger than %d bytes", errBadRequest, tooLarge.Limit)
		}
		var syntax *json.SyntaxError
		if errors.As(err, &syntax) {
			return fmt.Errorf("%w: malformed JSON at offset %d", errBadRequest, syntax.Offset)
		}
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return core.Invalid(typeErr.Field, "has the wrong type")
		}
		if errors.Is(err, core.ErrInvalidAmount) || errors.Is(err, core.ErrAmountTooLarge) {
			return core.Invalid("amount", err.Error())
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: body must contain a single JSON object", errBadRequest)
	}
	return nil
}

// ParseLocation resolves the X-Timezone header, falling back to def.
func ParseLocation(r *http.Request, def *time.Location) (*time.Location, error) {
	name := strings.TrimSpace(r.Header.Get(HeaderTimezone))
	if name == "" {
		return def, nil
	}
	// "Local" would silently pick the server's zone.
	if name == "Local" {
		return nil, core.Invalid(HeaderTimezone, "must be an IANA timezone name")
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, core.Invalid(HeaderTimezone, fmt.Sprintf("unknown timezone %q", name))
	}
	return loc, nil
}

// ParseLimit reads a positive "limit" query parameter, capped at ceiling.
func ParseLimit(query url.Values, def, ceiling int) (int, error) {
	v := strings.TrimSpace(query.Get("limit"))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, core.Invalid("limit", "must be a positive integer")
	}
	return min(n, ceiling), nil
}

// sanitizeInput removes control characters except tab and newlines, and
// trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
