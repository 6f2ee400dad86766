package relay

import "sync"

// Registry is the bounded set of connected clients, kept in arrival order.
// The backing slice never leaves the type; callers work on snapshots or
// inside Range.
type Registry struct {
	mu       sync.Mutex
	clients  []*Client
	capacity int
}

func NewRegistry(capacity int) *Registry {
	return &Registry{
		clients:  make([]*Client, 0, capacity),
		capacity: capacity,
	}
}

func (r *Registry) Add(c *Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.clients) >= r.capacity {
		return ErrCapacityExceeded
	}
	if r.indexLocked(c) >= 0 {
		return ErrDuplicateClient
	}

	r.clients = append(r.clients, c)
	return nil
}

// RemoveAt removes the client at index i and shifts later entries down by
// one. The caller guarantees 0 <= i < Len.
func (r *Registry) RemoveAt(i int) *Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.removeAtLocked(i)
}

func (r *Registry) removeAtLocked(i int) *Client {
	c := r.clients[i]
	copy(r.clients[i:], r.clients[i+1:])
	r.clients[len(r.clients)-1] = nil
	r.clients = r.clients[:len(r.clients)-1]
	return c
}

// Remove evicts c and reports whether it was still registered. Both loops
// may race to evict the same client, the loser gets false.
func (r *Registry) Remove(c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexLocked(c)
	if i < 0 {
		return false
	}
	r.removeAtLocked(i)
	return true
}

func (r *Registry) indexLocked(c *Client) int {
	for i, rc := range r.clients {
		if rc == c {
			return i
		}
	}
	return -1
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

func (r *Registry) Capacity() int {
	return r.capacity
}

func (r *Registry) HasRoom() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients) < r.capacity
}

// Snapshot returns a copy of the registered clients in registry order.
func (r *Registry) Snapshot() []*Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Client, len(r.clients))
	copy(out, r.clients)
	return out
}

// Range calls fn for each client in order while holding the registry lock.
// fn must not block on I/O. Iteration stops when fn returns false.
func (r *Registry) Range(fn func(i int, c *Client) bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, c := range r.clients {
		if !fn(i, c) {
			return
		}
	}
}

// Clear empties the registry and returns the removed clients so the caller
// can close them outside the lock.
func (r *Registry) Clear() []*Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := r.clients
	r.clients = make([]*Client, 0, r.capacity)
	return out
}
