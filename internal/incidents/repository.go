package incidents

import (
	"context"

	"github.com/bissquit/risk-ledger/internal/domain"
)

// Repository defines the interface for incident register storage.
// Implementations keep incidents in register order and never reuse an id.
type Repository interface {
	List(ctx context.Context) ([]domain.Incident, error)
	Get(ctx context.Context, id int64) (*domain.Incident, error)
	// Create assigns the next id to inc and appends it to the register.
	Create(ctx context.Context, inc *domain.Incident) error
	// Update replaces every field of the incident with inc.ID, keeping its position.
	Update(ctx context.Context, inc *domain.Incident) error
	Delete(ctx context.Context, id int64) error
	// Replace swaps the whole register for incidents, keeping their ids and order.
	Replace(ctx context.Context, incidents []domain.Incident) error
	Count(ctx context.Context) (int, error)

	AppendAudit(ctx context.Context, entry *domain.AuditEntry) error
	ListAudit(ctx context.Context, limit, offset int) ([]domain.AuditEntry, error)
	CountAudit(ctx context.Context) (int, error)

	Ping(ctx context.Context) error
}
