package ratecache

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/simaogato/timedeposit-backend/internal/domain"
)

// Cache holds the latest exchange rate snapshot fetched from a RateProvider
type Cache struct {
	provider domain.RateProvider
	now      func() time.Time

	mu        sync.RWMutex
	snapshot  domain.RateSnapshot
	fetchedAt time.Time
	hasValue  bool
}

// NewCache creates a new Cache instance with no snapshot
func NewCache(provider domain.RateProvider) *Cache {
	return &Cache{
		provider: provider,
		now:      time.Now,
	}
}

// Get returns a copy of the cached snapshot and whether one has ever been fetched
func (c *Cache) Get() (domain.RateSnapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.hasValue {
		return domain.RateSnapshot{}, false
	}
	return c.snapshot.Clone(), true
}

// Snapshot returns the cached snapshot, empty when nothing was fetched yet
func (c *Cache) Snapshot() domain.RateSnapshot {
	snap, _ := c.Get()
	return snap
}

// FetchedAt returns when the cached snapshot was stored
func (c *Cache) FetchedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fetchedAt
}

// Refresh fetches a new snapshot and replaces the cached one wholesale
// On failure the previous snapshot stays in place for ongoing computation, while the caller
// receives an empty snapshot and an error wrapping ErrRateFetchFailure.
func (c *Cache) Refresh(ctx context.Context) (domain.RateSnapshot, error) {
	snap, err := c.provider.FetchRates(ctx)
	if err == nil {
		err = snap.Validate()
	}
	if err == nil && snap.IsEmpty() {
		err = errors.New("rate service returned no rates")
	}
	if err != nil {
		if !errors.Is(err, domain.ErrRateFetchFailure) {
			err = fmt.Errorf("%w: %v", domain.ErrRateFetchFailure, err)
		}
		log.Printf("rate refresh failed, keeping previous snapshot: %v", err)
		return domain.RateSnapshot{}, err
	}

	c.mu.Lock()
	c.snapshot = snap.Clone()
	c.fetchedAt = c.now()
	c.hasValue = true
	c.mu.Unlock()

	return snap.Clone(), nil
}
