// Package sqlite provides a SQLite implementation of the incident repository.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bissquit/risk-ledger/internal/domain"
	"github.com/bissquit/risk-ledger/internal/incidents"
)

const incidentColumns = `id, date, team, root_cause, affected_clients, cost,
	disruption_duration, ri_criteria, severity, resolution`

// Repository implements the incidents.Repository interface using SQLite.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new SQLite repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanIncident(row scanner) (domain.Incident, error) {
	var (
		inc      domain.Incident
		team     string
		criteria string
		severity string
		duration sql.NullFloat64
	)
	err := row.Scan(
		&inc.ID,
		&inc.Date,
		&team,
		&inc.RootCause,
		&inc.AffectedClients,
		&inc.Cost,
		&duration,
		&criteria,
		&severity,
		&inc.Resolution,
	)
	if err != nil {
		return domain.Incident{}, err
	}

	inc.Team = domain.Team(team)
	inc.RICriteria = domain.RICriteria(criteria)
	inc.Severity = domain.Severity(severity)
	if duration.Valid {
		inc.DisruptionDuration = &duration.Float64
	}
	return inc, nil
}

// List returns all incidents in register order.
func (r *Repository) List(ctx context.Context) ([]domain.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents ORDER BY position, id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

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
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE id = ?`

	inc, err := scanIncident(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, incidents.ErrIncidentNotFound
		}
		return nil, fmt.Errorf("get incident: %w", err)
	}
	return &inc, nil
}

// Create appends a new incident and sets its ID.
func (r *Repository) Create(ctx context.Context, inc *domain.Incident) error {
	query := `
		INSERT INTO incidents (position, date, team, root_cause, affected_clients, cost,
			disruption_duration, ri_criteria, severity, resolution)
		VALUES ((SELECT COALESCE(MAX(position), 0) + 1 FROM incidents), ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	res, err := r.db.ExecContext(ctx, query,
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
		return fmt.Errorf("create incident: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("read incident id: %w", err)
	}
	inc.ID = id
	return nil
}

// Update replaces all fields of an existing incident.
func (r *Repository) Update(ctx context.Context, inc *domain.Incident) error {
	query := `
		UPDATE incidents
		SET date = ?, team = ?, root_cause = ?, affected_clients = ?, cost = ?,
			disruption_duration = ?, ri_criteria = ?, severity = ?, resolution = ?
		WHERE id = ?
	`
	res, err := r.db.ExecContext(ctx, query,
		inc.Date,
		string(inc.Team),
		inc.RootCause,
		inc.AffectedClients,
		inc.Cost,
		inc.DisruptionDuration,
		string(inc.RICriteria),
		string(inc.Severity),
		inc.Resolution,
		inc.ID,
	)
	if err != nil {
		return fmt.Errorf("update incident: %w", err)
	}
	return requireAffected(res)
}

// Delete removes an incident.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM incidents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete incident: %w", err)
	}
	return requireAffected(res)
}

// Replace swaps the whole register in a single transaction.
// AUTOINCREMENT keeps the id sequence above every id ever stored.
func (r *Repository) Replace(ctx context.Context, list []domain.Incident) error {
	if err := incidents.CheckUniqueIDs(list); err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			slog.Error("failed to rollback transaction", "error", err)
		}
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM incidents`); err != nil {
		return fmt.Errorf("clear incidents: %w", err)
	}

	query := `
		INSERT INTO incidents (id, position, date, team, root_cause, affected_clients, cost,
			disruption_duration, ri_criteria, severity, resolution)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	for i, inc := range list {
		_, err := tx.ExecContext(ctx, query,
			inc.ID,
			i+1,
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
			return fmt.Errorf("insert incident %d: %w", inc.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Count returns the number of incidents.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM incidents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count incidents: %w", err)
	}
	return n, nil
}

// AppendAudit records an audit entry.
func (r *Repository) AppendAudit(ctx context.Context, entry *domain.AuditEntry) error {
	query := `
		INSERT INTO incident_audit_log (id, incident_id, action, request_id, remote_addr, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.IncidentID,
		string(entry.Action),
		entry.RequestID,
		entry.RemoteAddr,
		entry.CreatedAt.UTC(),
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
		ORDER BY rowid DESC
		LIMIT ? OFFSET ?
	`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	entries := make([]domain.AuditEntry, 0)
	for rows.Next() {
		var (
			e          domain.AuditEntry
			incidentID sql.NullInt64
			action     string
		)
		if err := rows.Scan(&e.ID, &incidentID, &action, &e.RequestID, &e.RemoteAddr, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.Action = domain.AuditAction(action)
		if incidentID.Valid {
			e.IncidentID = &incidentID.Int64
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
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM incident_audit_log`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count audit entries: %w", err)
	}
	return n, nil
}

// Ping checks the database connection.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("read affected rows: %w", err)
	}
	if n == 0 {
		return incidents.ErrIncidentNotFound
	}
	return nil
}
