package services

import (
	"path/filepath"
	"testing"
	"time"

	"moneycoach/internal/llm"
	"moneycoach/internal/storage"
)

func newStore(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "services.db"), nil)
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func newLLM(p llm.Provider) *llm.Client {
	return llm.NewClient(p, llm.ClientConfig{Timeout: time.Second}, nil)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// recordingViews captures invalidations instead of caching anything.
type recordingViews struct {
	calls [][]string
}

func (r *recordingViews) Invalidate(userID string, views ...string) int {
	r.calls = append(r.calls, append([]string{userID}, views...))
	return len(views)
}
