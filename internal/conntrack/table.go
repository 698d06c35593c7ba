package conntrack

import "sync"

// Table owns every tracked Conn, keyed by flow.
// The dispatch loop is its only writer; the mutex keeps insert and remove
// safe should several loops ever share one table.
type Table struct {
	mu    sync.Mutex
	conns map[Key]*Conn
}

// NewTable creates an empty connection table.
func NewTable() *Table {
	return &Table{conns: make(map[Key]*Conn)}
}

// Get returns the connection for key.
// Returns (conn, true) if found, (nil, false) otherwise.
func (t *Table) Get(key Key) (*Conn, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.conns[key]
	return c, ok
}

// Insert adds c unless its key is already tracked. Reports whether c was added.
func (t *Table) Insert(c *Conn) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.conns[c.Key]; exists {
		return false
	}
	t.conns[c.Key] = c
	return true
}

// Remove deletes the connection for key. Reports whether it existed.
func (t *Table) Remove(key Key) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.conns[key]; !exists {
		return false
	}
	delete(t.conns, key)
	return true
}

// Len returns the number of tracked connections.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.conns)
}

// Range calls f with a copy of every tracked connection until f returns false.
func (t *Table) Range(f func(c Conn) bool) {
	t.mu.Lock()
	snapshot := make([]Conn, 0, len(t.conns))
	for _, c := range t.conns {
		snapshot = append(snapshot, *c)
	}
	t.mu.Unlock()

	for _, c := range snapshot {
		if !f(c) {
			return
		}
	}
}
