package hamcache

import "time"

// DefaultTTL is how long a mapped Hamiltonian stays fresh. Integrals for a
// fixed geometry never change, so the TTL only bounds the cache size.
const DefaultTTL = 7 * 24 * time.Hour

// expiresAt returns the unix expiry for an entry stored now.
func expiresAt(now time.Time, ttl time.Duration) int64 {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return now.Add(ttl).Unix()
}
