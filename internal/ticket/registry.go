package ticket

import (
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrNotFound is returned for unknown or expired ticket ids.
var ErrNotFound = errors.New("ticket: not found")

// Registry is a thread-safe in-memory ticket store. Expired tickets are
// removed lazily on access; there is no background sweeper.
type Registry struct {
	mu      sync.Mutex
	tickets map[string]Ticket

	// now is replaceable for tests.
	now func() time.Time
}

// NewRegistry returns an initialised [Registry].
func NewRegistry() *Registry {
	return &Registry{
		tickets: make(map[string]Ticket),
		now:     time.Now,
	}
}

// Put stores a ticket under its id and sweeps expired entries.
func (r *Registry) Put(t Ticket) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.tickets == nil {
		r.tickets = make(map[string]Ticket)
	}
	r.tickets[t.ID] = t
	r.sweepLocked()
}

// Get returns the ticket with the given id. Expired tickets are deleted and
// reported as ErrNotFound.
func (r *Registry) Get(id string) (Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tickets[id]
	if !ok {
		return Ticket{}, ErrNotFound
	}
	if !t.Valid(r.clock()) {
		delete(r.tickets, id)
		return Ticket{}, ErrNotFound
	}
	return t, nil
}

// List returns all unexpired tickets, newest first.
func (r *Registry) List() []Ticket {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sweepLocked()
	out := make([]Ticket, 0, len(r.tickets))
	for _, t := range r.tickets {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].SubmittedAt.After(out[j].SubmittedAt)
	})
	return out
}

// sweepLocked removes expired tickets. Callers must hold r.mu.
func (r *Registry) sweepLocked() {
	now := r.clock()
	for id, t := range r.tickets {
		if !t.Valid(now) {
			delete(r.tickets, id)
		}
	}
}

func (r *Registry) clock() time.Time {
	if r.now != nil {
		return r.now()
	}
	return time.Now()
}
