// Package postgres provides PostgreSQL implementation of the incident repository.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bissquit/risk-ledger/internal/domain"
	"github.com/bissquit/risk-ledger/internal/incidents"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const incidentColumns = `id, date, team, root_cause, affected_clients, cost,
	disruption_duration, ri_criteria, severity, resolution`

// Repository implements the incidents.Repository interface using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func scanIncident(row pgx.Row) (domain.Incident, error) {
	var inc domain.Incident
	err := row.Scan(
		&inc.ID,
		&inc.Date,
		&inc.Team,
		&inc.RootCause,
		&inc.AffectedClients,
		&inc.Cost,
		&inc.DisruptionDuration,
		&inc.RICriteria,
		&inc.Severity,
		&inc.Resolution,
	)
	return inc, err
}

// List returns all incidents in register order.
func (r *Repository) List(ctx context.Context) ([]domain.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents ORDER BY position, id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	defer rows.Close()

	list := make([]domain.Incident, 0)
	for rows.Next() {
		inc, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		list = append(list, inc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate incidents: %w", err)
	}
	return list, nil
}

// Get retrieves an incident by its ID.
func (r *Repository) Get(ctx context.Context, id int64) (*domain.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE id = $1`

	inc, err := scanIncident(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, incidents.ErrIncidentNotFound
		}
		return nil, fmt.Errorf("get incident: %w", err)
	}
	return &inc, nil
}

// Create appends a new incident and sets its ID from the sequence.
func (r *Repository) Create(ctx context.Context, inc *domain.Incident) error {
	query := `
		INSERT INTO incidents (position, date, team, root_cause, affected_clients, cost,
			disruption_duration, ri_criteria, severity, resolution)
		VALUES ((SELECT COALESCE(MAX(position), 0) + 1 FROM incidents), $1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	err := r.db.QueryRow(ctx, query,
		inc.Date,
		string(inc.Team),
		inc.RootCause,
		inc.AffectedClients,
		inc.Cost,
		inc.DisruptionDuration,
		string(inc.RICriteria),
		string(inc.Severity),
		inc.Resolution,
	).Scan(&inc.ID)
	if err != nil {
		return fmt.Errorf("create incident: %w", err)
	}
	return nil
}

// Update replaces all fields of an existing incident.
func (r *Repository) Update(ctx context.Context, inc *domain.Incident) error {
	query := `
		UPDATE incidents
		SET date = $2, team = $3, root_cause = $4, affected_clients = $5, cost = $6,
			disruption_duration = $7, ri_criteria = $8, severity = $9, resolution = $10
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query,
		inc.ID,
		inc.Date,
		string(inc.Team),
		inc.RootCause,
		inc.AffectedClients,
		inc.Cost,
		inc.DisruptionDuration,
		string(inc.RICriteria),
		string(inc.Severity),
		inc.Resolution,
	)
	if err != nil {
		return fmt.Errorf("update incident: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return incidents.ErrIncidentNotFound
	}
	return nil
}

// Delete removes an incident.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM incidents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete incident: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return incidents.ErrIncidentNotFound
	}
	return nil
}

// Replace swaps the whole register in a single transaction.
func (r *Repository) Replace(ctx context.Context, list []domain.Incident) error {
	if err := incidents.CheckUniqueIDs(list); err != nil {
		return err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			slog.Error("failed to rollback transaction", "error", err)
		}
	}()

	if _, err := tx.Exec(ctx, `DELETE FROM incidents`); err != nil {
		return fmt.Errorf("clear incidents: %w", err)
	}

	rows := make([][]any, len(list))
	for i, inc := range list {
		rows[i] = []any{
			inc.ID,
			int64(i + 1),
			inc.Date,
			string(inc.Team),
			inc.RootCause,
			inc.AffectedClients,
			inc.Cost,
			inc.DisruptionDuration,
			string(inc.RICriteria),
			string(inc.Severity),
			inc.Resolution,
		}
	}
	columns := []string{
		"id", "position", "date", "team", "root_cause", "affected_clients", "cost",
		"disruption_duration", "ri_criteria", "severity", "resolution",
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"incidents"}, columns, pgx.CopyFromRows(rows)); err != nil {
		return fmt.Errorf("copy incidents: %w", err)
	}

	// Explicit ids bypass the sequence; move it past them without ever going
	// back. A sequence that never handed out an id stays uncalled so the next
	// insert still gets 1.
	var maxID, lastValue int64
	var isCalled bool
	state := `SELECT (SELECT COALESCE(MAX(id), 0) FROM incidents), last_value, is_called FROM incidents_id_seq`
	if err := tx.QueryRow(ctx, state).Scan(&maxID, &lastValue, &isCalled); err != nil {
		return fmt.Errorf("read incident id sequence: %w", err)
	}
	used := maxID
	if isCalled && lastValue > used {
		used = lastValue
	}
	if used > 0 {
		if _, err := tx.Exec(ctx, `SELECT setval('incidents_id_seq', $1, true)`, used); err != nil {
			return fmt.Errorf("advance incident id sequence: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Count returns the number of incidents.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM incidents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count incidents: %w", err)
	}
	return n, nil
}

// AppendAudit records an audit entry.
func (r *Repository) AppendAudit(ctx context.Context, entry *domain.AuditEntry) error {
	query := `
		INSERT INTO incident_audit_log (id, incident_id, action, request_id, remote_addr, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.Exec(ctx, query,
		entry.ID,
		entry.IncidentID,
		string(entry.Action),
		entry.RequestID,
		entry.RemoteAddr,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

// ListAudit returns audit entries newest first.
func (r *Repository) ListAudit(ctx context.Context, limit, offset int) ([]domain.AuditEntry, error) {
	query := `
		SELECT id, incident_id, action, request_id, remote_addr, created_at
		FROM incident_audit_log
		ORDER BY seq DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.AuditEntry, 0)
	for rows.Next() {
		var e domain.AuditEntry
		err := rows.Scan(&e.ID, &e.IncidentID, &e.Action, &e.RequestID, &e.RemoteAddr, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}

// CountAudit returns the number of audit entries.
func (r *Repository) CountAudit(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM incident_audit_log`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count audit entries: %w", err)
	}
	return n, nil
}

// Ping checks the database connection.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}
