package swap

import "sync"

// userLocks serializes settlements per user. Two concurrent swaps from the
// same user must not both pass the insufficient-balance check against a
// stale read; requests from different users proceed fully in parallel.
//
// The source system leaned on a database advisory lock for this. Here the
// contract is met by an in-process mutex keyed by user id, held exactly for
// the debit+credit critical section. Lock entries are never removed: the
// user population is bounded and a mutex is tiny.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[string]*sync.Mutex)}
}

// acquire blocks until the user's lock is held and returns the release func.
func (u *userLocks) acquire(userID string) func() {
	u.mu.Lock()
	l, ok := u.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		u.locks[userID] = l
	}
	u.mu.Unlock()

	l.Lock()
	return l.Unlock
}
