package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewJSONIncludesComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelDebug, Format: "json", Component: ComponentGoals, Output: &buf})

	l.Info("goal created", FieldGoalID, "g1")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected one json line, got %q: %v", buf.String(), err)
	}
	if entry[FieldComponent] != ComponentGoals || entry[FieldGoalID] != "g1" {
		t.Fatalf("unexpected entry %v", entry)
	}
}

func TestWithComponentDoesNotDuplicate(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Format: "text", Component: ComponentApp, Output: &buf}).WithComponent(ComponentLLM)

	l.Warn("slow response")

	if n := strings.Count(buf.String(), "component="); n != 1 {
		t.Fatalf("expected one component attribute, got %d in %q", n, buf.String())
	}
	if !strings.Contains(buf.String(), "component=llm") {
		t.Fatalf("expected llm component, got %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestFromContextFallsBack(t *testing.T) {
	l := FromContext(context.Background())
	if l == nil || l.Component() != "unknown" {
		t.Fatalf("expected fallback logger, got %+v", l)
	}

	stored := Nop().WithComponent(ComponentHTTP)
	if got := FromContext(IntoContext(context.Background(), stored)); got != stored {
		t.Fatalf("expected stored logger back")
	}
}

func TestStructuredLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Format: "text", Output: &buf}))

	r := httptest.NewRequest("GET", "/api/goals", nil)
	sl.LogHTTPEnd(context.Background(), r, 503, 12, "10.0.0.1")
	if !strings.Contains(buf.String(), "level=ERROR") {
		t.Fatalf("expected 5xx to log at error, got %q", buf.String())
	}

	buf.Reset()
	sl.LogError(context.Background(), "save failed", errors.New("disk full"), ComponentStorage, OpCreate, nil)
	if !strings.Contains(buf.String(), "disk full") || !strings.Contains(buf.String(), "operation=create") {
		t.Fatalf("unexpected error line %q", buf.String())
	}
}
