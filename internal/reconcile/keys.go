package reconcile

import (
	"fmt"
	"sync"
)

// keyMutex serializes reconciliation per run-instance key. Two messages
// for the same (site, process, instance name) observing "no open
// instance" concurrently would both create one.
type keyMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyMutex() *keyMutex {
	return &keyMutex{locks: make(map[string]*sync.Mutex)}
}

func (k *keyMutex) lock(siteID, processID int, instanceName string) func() {
	key := fmt.Sprintf("%d:%d:%s", siteID, processID, instanceName)

	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
