// Package lock provides an in-process advisory lock keyed by string.
// The scheduler uses it to serialize allocation batches per patient so the
// read-then-write session numbering cannot race with itself. It does not
// protect against concurrent writers in other processes; the database unique
// constraint on (patient_id, session_number) backstops those.
package lock

import (
	"sync"
)

type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*entry)}
}

// Lock blocks until the lock for key is held. Every Lock must be paired with
// an Unlock for the same key.
func (k *KeyedMutex) Lock(key string) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &entry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
}

func (k *KeyedMutex) Unlock(key string) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if ok {
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
	}
	k.mu.Unlock()

	if ok {
		e.mu.Unlock()
	}
}
