package risk

import "sync"

// userLocks serializes assessments per user. A lock is created on first use
// and kept for the lifetime of the process; the arena is bounded by the
// active user population.
type userLocks struct {
	locks sync.Map // user_id -> *sync.Mutex
}

func (ul *userLocks) lock(userID string) func() {
	v, _ := ul.locks.LoadOrStore(userID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
