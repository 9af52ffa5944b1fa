package services

import (
	"sync"

	"github.com/google/uuid"
)

// PartnerLocker serializes eligibility-check + commit sequences for the same
// partner within this process. Unrelated partner ids never block each other.
//
// This is only the first line of defense: the deployment-wide guarantee
// against double-spending a quota slot is the partner row lock taken inside
// the assignment transaction. The in-process lock keeps local contention off
// the database.
type PartnerLocker interface {
	// Lock blocks until the previous holder for the same partner releases,
	// and returns the release function. Callers must arrange for release to
	// run on every exit path, normally via defer.
	Lock(partnerID uuid.UUID) (release func())
}

type partnerLocker struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// NewPartnerLocker creates a new in-process PartnerLocker.
func NewPartnerLocker() PartnerLocker {
	return &partnerLocker{locks: make(map[uuid.UUID]*lockEntry)}
}

var _ PartnerLocker = (*partnerLocker)(nil)

func (l *partnerLocker) Lock(partnerID uuid.UUID) func() {
	l.mu.Lock()
	entry, ok := l.locks[partnerID]
	if !ok {
		entry = &lockEntry{}
		l.locks[partnerID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			entry.mu.Unlock()

			l.mu.Lock()
			entry.refs--
			if entry.refs == 0 {
				delete(l.locks, partnerID)
			}
			l.mu.Unlock()
		})
	}
}
