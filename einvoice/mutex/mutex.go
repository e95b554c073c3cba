package mutex

import "sync"

type entry struct {
	mu   sync.Mutex
	refs int
}

// KeyedMutex exclusive lock per key. Entries are dropped once nobody holds
// or waits for them, so the table does not grow with the number of keys seen.
type KeyedMutex[K comparable] struct {
	mu    sync.Mutex
	table map[K]*entry
}

func (m *KeyedMutex[K]) Lock(key K) {
	m.mu.Lock()
	if m.table == nil {
		m.table = make(map[K]*entry)
	}
	e, ok := m.table[key]
	if !ok {
		e = &entry{}
		m.table[key] = e
	}
	e.refs++
	m.mu.Unlock()

	e.mu.Lock()
}

func (m *KeyedMutex[K]) Unlock(key K) {
	m.mu.Lock()
	e, ok := m.table[key]
	if !ok {
		m.mu.Unlock()
		panic("mutex: unlock of unlocked key")
	}
	e.refs--
	if e.refs == 0 {
		delete(m.table, key)
	}
	m.mu.Unlock()

	e.mu.Unlock()
}

// size number of live entries; tests only
func (m *KeyedMutex[K]) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.table)
}
