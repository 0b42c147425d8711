// Per-session flight counters consumed by responses and the admin layer.
package metrics

import "sync"

// Counters accumulates flight metrics for one session.
type Counters struct {
	Iterations    int     `json:"iterations"`
	TotalDistance float64 `json:"total_distance"`
	CommandsSent  int     `json:"commands_sent"`
}

// Totals aggregates counters across all registered sessions.
type Totals struct {
	Sessions      int     `json:"sessions"`
	Iterations    int     `json:"iterations"`
	TotalDistance float64 `json:"total_distance"`
	CommandsSent  int     `json:"commands_sent"`
}

// Registry tracks counters per session id. Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Counters
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Counters)}
}

// Register creates zeroed counters for a session.
func (r *Registry) Register(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[id] = &Counters{}
}

// Remove drops a session's counters. Safe to call for unknown ids.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// Command counts one received command for a session.
func (r *Registry) Command(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.sessions[id]; ok {
		c.CommandsSent++
	}
}

// Record adds the distance covered by a successful step. The step counts as
// a flight iteration only when the command moved the drone both horizontally
// and vertically; the caller decides that from the command it applied.
func (r *Registry) Record(id string, distance float64, countIteration bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.sessions[id]
	if !ok {
		return
	}
	c.TotalDistance += distance
	if countIteration {
		c.Iterations++
	}
}

// Get returns a copy of a session's counters.
func (r *Registry) Get(id string) (Counters, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.sessions[id]
	if !ok {
		return Counters{}, false
	}
	return *c, true
}

// Totals sums counters across all sessions.
func (r *Registry) Totals() Totals {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t := Totals{Sessions: len(r.sessions)}
	for _, c := range r.sessions {
		t.Iterations += c.Iterations
		t.TotalDistance += c.TotalDistance
		t.CommandsSent += c.CommandsSent
	}
	return t
}
