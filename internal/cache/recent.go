// Package cache provides the small bounded caches the streaming engine
// leans on for duplicate suppression.
package cache

// RecentHashes is a bounded FIFO set of content hashes. When the cap is
// exceeded the oldest entry is evicted, so a hash seen more than cap
// observations ago reads as new again.
//
// Not safe for concurrent use; each owner guards its own instance.
type RecentHashes struct {
	cap   int
	order []uint64
	seen  map[uint64]struct{}
}

// NewRecentHashes returns a set holding at most cap hashes. A cap of
// zero or less disables tracking entirely.
func NewRecentHashes(cap int) *RecentHashes {
	if cap < 0 {
		cap = 0
	}
	return &RecentHashes{
		cap:  cap,
		seen: make(map[uint64]struct{}, cap+1),
	}
}

// Observe reports whether h is already tracked. Unseen hashes are
// inserted, evicting the oldest entry once the cap is reached.
func (r *RecentHashes) Observe(h uint64) bool {
	if r.cap <= 0 {
		return false
	}
	if _, ok := r.seen[h]; ok {
		return true
	}
	r.seen[h] = struct{}{}
	r.order = append(r.order, h)
	if len(r.order) > r.cap {
		oldest := r.order[0]
		r.order = r.order[1:]
		delete(r.seen, oldest)
	}
	return false
}

// Len reports the number of tracked hashes.
func (r *RecentHashes) Len() int {
	return len(r.order)
}
