package cache

import (
	"strings"
	"sync"
	"time"

	"moneycoach/internal/metrics"
)

// View names shared by the cache, the X-Invalidate header and change events.
const (
	ViewGoals    = "goals"
	ViewCheckIn  = "checkin"
	ViewPlaybook = "playbook"
	ViewMoments  = "moments"
	ViewReset    = "reset"

	budgetViewPrefix = "budget:"
)

// BudgetView names the cached breakdown of one period.
func BudgetView(period string) string {
	return budgetViewPrefix + period
}

// Views caches rendered JSON per user and view.
//
// Each user has a generation that every Invalidate bumps. A reader records
// it before loading and stores through SetIfGeneration, so a body loaded
// before a mutation is never cached after it.
type Views struct {
	lru *LRUCache[[]byte]

	mu  sync.Mutex
	gen map[string]uint64
}

func NewViews(maxSize int, ttl time.Duration) *Views {
	return &Views{
		lru: NewLRUCache[[]byte](maxSize, ttl),
		gen: make(map[string]uint64),
	}
}

// Generation returns the user's current invalidation generation.
func (v *Views) Generation(userID string) uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.gen[userID]
}

// SetIfGeneration stores body only while the user's generation still equals
// gen. It reports whether the body was stored.
func (v *Views) SetIfGeneration(userID, view string, body []byte, gen uint64) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.gen[userID] != gen {
		return false
	}
	v.lru.Set(viewKey(userID, view), body)
	return true
}

func viewKey(userID, view string) string {
	return userID + "\x00" + view
}

func (v *Views) Get(userID, view string) ([]byte, bool) {
	body, ok := v.lru.Get(viewKey(userID, view))
	if ok {
		metrics.CacheLookups.WithLabelValues("hit").Inc()
	} else {
		metrics.CacheLookups.WithLabelValues("miss").Inc()
	}
	return body, ok
}

// Invalidate drops the named views of userID and returns how many entries
// went. No views means all of them; a view ending in ":" is a prefix.
func (v *Views) Invalidate(userID string, views ...string) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.gen[userID]++

	if len(views) == 0 {
		return v.lru.DeletePrefix(viewKey(userID, ""))
	}
	n := 0
	for _, view := range views {
		if strings.HasSuffix(view, ":") {
			n += v.lru.DeletePrefix(viewKey(userID, view))
			continue
		}
		if v.lru.Remove(viewKey(userID, view)) {
			n++
		}
	}
	return n
}

// CleanExpired lets a Manager sweep the underlying LRU.
func (v *Views) CleanExpired() int {
	return v.lru.CleanExpired()
}

func (v *Views) Size() int {
	return v.lru.Size()
}
