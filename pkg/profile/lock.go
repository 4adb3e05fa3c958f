package profile

import "sync"

// userLocks serializes read-modify-write cycles per username.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*userLock
}

type userLock struct {
	sync.Mutex
	refs int
}

// lock blocks until username is free and returns the matching unlock.
func (u *userLocks) lock(username string) func() {
	u.mu.Lock()
	if u.locks == nil {
		u.locks = make(map[string]*userLock)
	}
	ul, ok := u.locks[username]
	if !ok {
		ul = &userLock{}
		u.locks[username] = ul
	}
	ul.refs++
	u.mu.Unlock()

	ul.Lock()
	return func() {
		ul.Unlock()
		u.mu.Lock()
		ul.refs--
		if ul.refs == 0 {
			delete(u.locks, username)
		}
		u.mu.Unlock()
	}
}
