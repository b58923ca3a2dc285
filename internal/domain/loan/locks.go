package loan

import "sync"

// customerLocks serializes work per customer without a global lock.
// Entries are dropped once no goroutine holds or waits on them.
type customerLocks struct {
	mu    sync.Mutex
	locks map[int64]*customerLock
}

type customerLock struct {
	mu   sync.Mutex
	refs int
}

func newCustomerLocks() *customerLocks {
	return &customerLocks{locks: make(map[int64]*customerLock)}
}

func (c *customerLocks) lock(customerID int64) (unlock func()) {
	c.mu.Lock()
	l, ok := c.locks[customerID]
	if !ok {
		l = &customerLock{}
		c.locks[customerID] = l
	}
	l.refs++
	c.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		c.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(c.locks, customerID)
		}
		c.mu.Unlock()
	}
}

func (c *customerLocks) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.locks)
}
