// Package memory provides an in-process implementation of the incident repository.
// Its contents live as long as the process.
package memory

import (
	"context"
	"sync"

	"github.com/bissquit/risk-ledger/internal/domain"
	"github.com/bissquit/risk-ledger/internal/incidents"
)

// Repository implements incidents.Repository on an ordered slice.
type Repository struct {
	mu        sync.RWMutex
	incidents []domain.Incident
	lastID    int64
	audit     []domain.AuditEntry
}

// NewRepository creates an empty repository.
func NewRepository() *Repository {
	return &Repository{}
}

// List returns a copy of the register in order.
func (r *Repository) List(_ context.Context) ([]domain.Incident, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Incident, len(r.incidents))
	for i, inc := range r.incidents {
		out[i] = clone(inc)
	}
	return out, nil
}

// Get returns a copy of the incident with id.
func (r *Repository) Get(_ context.Context, id int64) (*domain.Incident, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i := r.indexOf(id)
	if i < 0 {
		return nil, incidents.ErrIncidentNotFound
	}
	inc := clone(r.incidents[i])
	return &inc, nil
}

// Create appends inc with the next id.
func (r *Repository) Create(_ context.Context, inc *domain.Incident) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastID++
	inc.ID = r.lastID
	r.incidents = append(r.incidents, clone(*inc))
	return nil
}

// Update replaces the incident with inc.ID in place.
func (r *Repository) Update(_ context.Context, inc *domain.Incident) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(inc.ID)
	if i < 0 {
		return incidents.ErrIncidentNotFound
	}
	r.incidents[i] = clone(*inc)
	return nil
}

// Delete removes the incident with id.
func (r *Repository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return incidents.ErrIncidentNotFound
	}
	r.incidents = append(r.incidents[:i:i], r.incidents[i+1:]...)
	return nil
}

// Replace swaps the register. The id counter never moves backwards.
func (r *Repository) Replace(_ context.Context, list []domain.Incident) error {
	if err := incidents.CheckUniqueIDs(list); err != nil {
		return err
	}

	next := make([]domain.Incident, len(list))
	var maxID int64
	for i, inc := range list {
		next[i] = clone(inc)
		if inc.ID > maxID {
			maxID = inc.ID
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.incidents = next
	if maxID > r.lastID {
		r.lastID = maxID
	}
	return nil
}

// Count returns the number of incidents.
func (r *Repository) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.incidents), nil
}

// AppendAudit records an audit entry.
func (r *Repository) AppendAudit(_ context.Context, entry *domain.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := *entry
	if entry.IncidentID != nil {
		id := *entry.IncidentID
		e.IncidentID = &id
	}
	r.audit = append(r.audit, e)
	return nil
}

// ListAudit returns audit entries newest first.
func (r *Repository) ListAudit(_ context.Context, limit, offset int) ([]domain.AuditEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.AuditEntry, 0, limit)
	for i := len(r.audit) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.audit[i])
	}
	return out, nil
}

// CountAudit returns the number of audit entries.
func (r *Repository) CountAudit(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.audit), nil
}

// Ping always succeeds.
func (r *Repository) Ping(_ context.Context) error {
	return nil
}

func (r *Repository) indexOf(id int64) int {
	for i := range r.incidents {
		if r.incidents[i].ID == id {
			return i
		}
	}
	return -1
}

func clone(inc domain.Incident) domain.Incident {
	if inc.DisruptionDuration != nil {
		d := *inc.DisruptionDuration
		inc.DisruptionDuration = &d
	}
	return inc
}
