// Package cache holds small in-process caches for derived ledger views.
package cache

import (
	"log/slog"
	"sync"
	"time"
)

// Cache is the subset of LRUCache the services depend on.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	// Purge drops every entry.
	Purge()
	Size() int
}

// Cleaner is implemented by caches that can drop expired entries.
type Cleaner interface {
	CleanExpired() int
}

// Janitor periodically sweeps registered caches for expired entries.
type Janitor struct {
	caches      []Cleaner
	stopCleanup chan struct{}
	cleanupDone chan struct{}

	mu       sync.Mutex
	started  bool
	stopOnce sync.Once
}

func NewJanitor(caches ...Cleaner) *Janitor {
	return &Janitor{
		caches:      caches,
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
}

// Start begins sweeping every interval until Stop is called. Calls after
// the first, or after Stop, do nothing.
func (j *Janitor) Start(interval time.Duration) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.started {
		return
	}
	select {
	case <-j.stopCleanup:
		return
	default:
	}
	j.started = true
	go j.run(interval)
}

func (j *Janitor) run(interval time.Duration) {
	defer close(j.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := j.Sweep(); n > 0 {
				slog.Debug("Expired cache entries removed", "count", n)
			}
		case <-j.stopCleanup:
			return
		}
	}
}

// Sweep runs one cleanup pass and returns the number of removed entries.
func (j *Janitor) Sweep() int {
	total := 0
	for _, c := range j.caches {
		total += c.CleanExpired()
	}
	return total
}

// Stop ends the sweep loop started by Start and waits for it to return.
// It is safe to call more than once, and without Start.
func (j *Janitor) Stop() {
	j.stopOnce.Do(func() {
		j.mu.Lock()
		started := j.started
		close(j.stopCleanup)
		j.mu.Unlock()
		if started {
			<-j.cleanupDone
		}
	})
}
