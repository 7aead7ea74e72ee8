package services

import (
	"context"
	"sync"
	"time"

	"github.com/Blokmap/backend/internal/apperrors"
	"github.com/google/uuid"
)

// OpeningLocks serializes admission attempts per opening time within this
// process. Acquisition is bounded: a caller that cannot get the lock in time
// fails with a retryable contention error instead of queueing indefinitely.
// Cross-instance serialization is handled by the row lock inside the
// admission transaction; this keyed lock keeps local contention off the
// database.
type OpeningLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*openingLock
}

type openingLock struct {
	sem  chan struct{}
	refs int
}

// NewOpeningLocks creates an empty lock table.
func NewOpeningLocks() *OpeningLocks {
	return &OpeningLocks{locks: make(map[uuid.UUID]*openingLock)}
}

// Acquire takes the lock for an opening time, waiting at most timeout. On
// success the returned release function must be called exactly once.
func (l *OpeningLocks) Acquire(ctx context.Context, id uuid.UUID, timeout time.Duration) (func(), error) {
	l.mu.Lock()
	entry, ok := l.locks[id]
	if !ok {
		entry = &openingLock{sem: make(chan struct{}, 1)}
		l.locks[id] = entry
	}
	entry.refs++
	l.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case entry.sem <- struct{}{}:
		return func() {
			<-entry.sem
			l.put(id, entry)
		}, nil
	case <-timer.C:
		l.put(id, entry)
		return nil, apperrors.ErrContention
	case <-ctx.Done():
		l.put(id, entry)
		return nil, ctx.Err()
	}
}

// put drops a reference and removes the entry once nobody holds or waits on
// it, so the table does not grow with every opening time ever booked.
func (l *OpeningLocks) put(id uuid.UUID, entry *openingLock) {
	l.mu.Lock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, id)
	}
	l.mu.Unlock()
}
