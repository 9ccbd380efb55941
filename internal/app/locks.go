package app

import "sync"

// lockTable hands out reference-counted RWMutexes by key. Entries are
// dropped as soon as the last holder releases, so idle matches cost
// nothing.
//
// Keys in use: "match:{id}" taken shared by submissions and exclusively
// by finalize/cancel/start, "question:{id}" taken exclusively for the
// read-then-write of one scoring pass, and "user:{id}" taken
// exclusively across the stats merge of a finalization.
type lockTable struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	refs int
	rw   sync.RWMutex
}

func newLockTable() *lockTable {
	return &lockTable{entries: make(map[string]*lockEntry)}
}

func (t *lockTable) acquire(key string) *lockEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[key]
	if !ok {
		e = &lockEntry{}
		t.entries[key] = e
	}
	e.refs++
	return e
}

func (t *lockTable) release(key string, e *lockEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(t.entries, key)
	}
}

// lock takes the keyed mutex exclusively and returns the release func.
func (t *lockTable) lock(key string) func() {
	e := t.acquire(key)
	e.rw.Lock()
	return func() {
		e.rw.Unlock()
		t.release(key, e)
	}
}

// lockShared takes the keyed mutex shared and returns the release func.
func (t *lockTable) lockShared(key string) func() {
	e := t.acquire(key)
	e.rw.RLock()
	return func() {
		e.rw.RUnlock()
		t.release(key, e)
	}
}
