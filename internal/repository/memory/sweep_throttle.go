package memory

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// SweepThrottle remembers which owners had their expiry sweep run recently,
// so the opportunistic per-request sweep does not hit the database on every
// prompt. Entries expire on their own; a missing entry means "sweep now".
type SweepThrottle struct {
	cache *cache.Cache
}

func NewSweepThrottle(interval time.Duration) *SweepThrottle {
	c := cache.New(interval, 2*interval)
	return &SweepThrottle{
		cache: c,
	}
}

// TryAcquire returns true when no sweep ran for the owner within the
// interval, and marks the owner as swept.
func (t *SweepThrottle) TryAcquire(ownerEmail string) bool {
	if _, found := t.cache.Get(ownerEmail); found {
		return false
	}
	t.cache.Set(ownerEmail, time.Now(), cache.DefaultExpiration)
	return true
}

// Reset clears the throttle entry for an owner. Used after explicit
// maintenance so the next request sweeps again.
func (t *SweepThrottle) Reset(ownerEmail string) {
	t.cache.Delete(ownerEmail)
}
