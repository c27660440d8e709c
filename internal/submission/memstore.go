package submission

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"
)

// Compile-time assertion that MemStore satisfies the Store interface.
var _ Store = (*MemStore)(nil)

// MemStore is a thread-safe, in-memory implementation of [Store].
// It is suitable for single-node deployments and testing.
type MemStore struct {
	mu          sync.RWMutex
	submissions map[string]Submission
}

// NewMemStore returns an initialised [MemStore].
func NewMemStore() *MemStore {
	return &MemStore{
		submissions: make(map[string]Submission),
	}
}

// Create implements [Store.Create].
func (s *MemStore) Create(ctx context.Context, sub Submission) error {
	if !sub.Status.IsValid() {
		return ErrInvalidStatus
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.submissions == nil {
		s.submissions = make(map[string]Submission)
	}
	if _, exists := s.submissions[sub.ID]; exists {
		return ErrDuplicateID
	}
	s.submissions[sub.ID] = clone(sub)
	return nil
}

// Get implements [Store.Get].
func (s *MemStore) Get(ctx context.Context, id string) (Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.submissions[id]
	if !ok {
		return Submission{}, ErrNotFound
	}
	return clone(sub), nil
}

// List implements [Store.List].
func (s *MemStore) List(ctx context.Context, opts ListOptions) ([]Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Submission, 0, len(s.submissions))
	for _, sub := range s.submissions {
		if opts.ServiceID != 0 && sub.ServiceID != opts.ServiceID {
			continue
		}
		if !opts.IncludeFinal && sub.Status.Final() {
			continue
		}
		if opts.Phone != "" && sub.Values["phone"] != opts.Phone {
			continue
		}
		result = append(result, clone(sub))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].SubmittedAt.After(result[j].SubmittedAt)
	})
	return result, nil
}

// UpdateStatus implements [Store.UpdateStatus].
func (s *MemStore) UpdateStatus(ctx context.Context, id string, status Status, changedBy, notes string) (Submission, error) {
	if !status.IsValid() {
		return Submission{}, ErrInvalidStatus
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.submissions[id]
	if !ok {
		return Submission{}, ErrNotFound
	}
	if sub.Status.Final() {
		return Submission{}, ErrFinal
	}

	now := time.Now()
	sub.StatusHistory = append(sub.StatusHistory, StatusChange{
		Status:    status,
		ChangedAt: now,
		ChangedBy: changedBy,
		Notes:     notes,
	})
	sub.Status = status
	sub.ModifiedAt = now
	if notes != "" {
		sub.AdminNotes = notes
	}
	sub.ViewedBy = appendViewer(sub.ViewedBy, changedBy)

	s.submissions[id] = sub
	return clone(sub), nil
}

// UpdateValues implements [Store.UpdateValues].
func (s *MemStore) UpdateValues(ctx context.Context, id string, updates map[string]string, changedBy string) (Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.submissions[id]
	if !ok {
		return Submission{}, ErrNotFound
	}
	if sub.Status.Final() {
		return Submission{}, ErrFinal
	}

	values := make(map[string]string, len(sub.Values)+len(updates))
	for k, v := range sub.Values {
		values[k] = v
	}
	for k, v := range updates {
		values[k] = v
	}
	sub.Values = values
	sub.ModifiedAt = time.Now()
	sub.ViewedBy = appendViewer(sub.ViewedBy, changedBy)

	s.submissions[id] = sub
	return clone(sub), nil
}

// Delete implements [Store.Delete].
func (s *MemStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.submissions[id]; !ok {
		return ErrNotFound
	}
	delete(s.submissions, id)
	return nil
}

// Stats implements [Store.Stats].
func (s *MemStore) Stats(ctx context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{ByStatus: make(map[Status]int)}
	for _, sub := range s.submissions {
		stats.Total++
		if sub.Status.Final() {
			stats.Final++
		} else {
			stats.Active++
		}
		stats.ByStatus[sub.Status]++
	}
	return stats, nil
}

// clone copies a submission deeply enough that callers cannot mutate the
// stored maps and slices.
func clone(sub Submission) Submission {
	if sub.Values != nil {
		values := make(map[string]string, len(sub.Values))
		for k, v := range sub.Values {
			values[k] = v
		}
		sub.Values = values
	}
	sub.StatusHistory = slices.Clone(sub.StatusHistory)
	sub.ViewedBy = slices.Clone(sub.ViewedBy)
	return sub
}

// appendViewer records who touched the submission, keeping entries unique.
func appendViewer(viewers []string, who string) []string {
	if who == "" || slices.Contains(viewers, who) {
		return viewers
	}
	return append(viewers, who)
}
