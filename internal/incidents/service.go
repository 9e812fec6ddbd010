package incidents

import (
	"context"
	"fmt"
	"time"

	"github.com/bissquit/risk-ledger/internal/analytics"
	"github.com/bissquit/risk-ledger/internal/domain"
	"github.com/bissquit/risk-ledger/internal/pkg/ctxlog"
	"github.com/google/uuid"
)

// Service implements incident register business logic.
type Service struct {
	repo      Repository
	validator *Validator
	formatter *analytics.Formatter
	now       func() time.Time
}

// NewService creates a new incident service.
// A nil formatter renders amounts with English grouping.
func NewService(repo Repository, formatter *analytics.Formatter) *Service {
	return &Service{
		repo:      repo,
		validator: NewValidator(),
		formatter: formatter,
		now:       time.Now,
	}
}

type originKey struct{}

type origin struct {
	requestID  string
	remoteAddr string
}

// WithOrigin attaches the request that causes a change, for the audit log.
func WithOrigin(ctx context.Context, requestID, remoteAddr string) context.Context {
	return context.WithValue(ctx, originKey{}, origin{requestID: requestID, remoteAddr: remoteAddr})
}

func originFrom(ctx context.Context) origin {
	o, _ := ctx.Value(originKey{}).(origin)
	return o
}

// List returns the register in order.
func (s *Service) List(ctx context.Context) ([]domain.Incident, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	return list, nil
}

// Get returns one incident.
func (s *Service) Get(ctx context.Context, id int64) (*domain.Incident, error) {
	inc, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get incident: %w", err)
	}
	return inc, nil
}

// Validate checks fields without committing anything.
func (s *Service) Validate(fields DraftFields) FieldErrors {
	return s.validator.Validate(fields)
}

// Submit commits a draft: a new draft is created, an editing draft replaces
// the incident it was opened from.
func (s *Service) Submit(ctx context.Context, draft Draft) (*domain.Incident, error) {
	if id, ok := draft.Editing(); ok {
		return s.Update(ctx, id, draft.Fields)
	}
	return s.Create(ctx, draft.Fields)
}

// Create validates fields and appends a new incident.
func (s *Service) Create(ctx context.Context, fields DraftFields) (*domain.Incident, error) {
	inc, err := s.parse(fields)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, &inc); err != nil {
		return nil, fmt.Errorf("create incident: %w", err)
	}

	ctxlog.FromContext(ctx).Info("incident created", "incident_id", inc.ID, "team", inc.Team, "severity", inc.Severity)
	s.audit(ctx, domain.AuditActionCreated, &inc.ID)
	s.refreshRegister(ctx)
	return &inc, nil
}

// Update validates fields and replaces every field of the incident with id.
func (s *Service) Update(ctx context.Context, id int64, fields DraftFields) (*domain.Incident, error) {
	inc, err := s.parse(fields)
	if err != nil {
		return nil, err
	}
	inc.ID = id
	ctx = ctxlog.With(ctx, "incident_id", id)

	if err := s.repo.Update(ctx, &inc); err != nil {
		return nil, fmt.Errorf("update incident: %w", err)
	}

	ctxlog.FromContext(ctx).Info("incident updated")
	s.audit(ctx, domain.AuditActionUpdated, &inc.ID)
	s.refreshRegister(ctx)
	return &inc, nil
}

// Delete removes the incident with id.
func (s *Service) Delete(ctx context.Context, id int64) error {
	ctx = ctxlog.With(ctx, "incident_id", id)

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete incident: %w", err)
	}

	ctxlog.FromContext(ctx).Info("incident deleted")
	s.audit(ctx, domain.AuditActionDeleted, &id)
	s.refreshRegister(ctx)
	return nil
}

// Replace swaps the whole register. Every incident must carry a positive id
// and pass validation; ids must be unique.
func (s *Service) Replace(ctx context.Context, list []domain.Incident) error {
	if err := s.checkAll(list); err != nil {
		return err
	}

	if err := s.repo.Replace(ctx, list); err != nil {
		return fmt.Errorf("replace incidents: %w", err)
	}

	ctxlog.FromContext(ctx).Info("incident register replaced", "count", len(list))
	s.audit(ctx, domain.AuditActionReplaced, nil)
	s.refreshRegister(ctx)
	return nil
}

// Seed loads list into an empty register and reports how many incidents
// were loaded. A register that already holds incidents is left untouched.
func (s *Service) Seed(ctx context.Context, list []domain.Incident) (int, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count incidents: %w", err)
	}
	if n > 0 {
		ctxlog.FromContext(ctx).Info("register not empty, skipping seed", "count", n)
		return 0, nil
	}

	if err := s.checkAll(list); err != nil {
		return 0, fmt.Errorf("check seed data: %w", err)
	}
	if err := s.repo.Replace(ctx, list); err != nil {
		return 0, fmt.Errorf("seed incidents: %w", err)
	}

	ctxlog.FromContext(ctx).Info("seeded incident register", "count", len(list))
	s.refreshRegister(ctx)
	return len(list), nil
}

// Dashboard recomputes every derived view from the current register.
func (s *Service) Dashboard(ctx context.Context) (analytics.Dashboard, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return analytics.Dashboard{}, fmt.Errorf("list incidents: %w", err)
	}

	start := time.Now()
	dashboard := analytics.BuildDashboard(list, s.formatter)
	recordDashboardDuration(time.Since(start))

	if dashboard.CostTrend.Skipped > 0 {
		ctxlog.FromContext(ctx).Debug("skipped incidents with unparseable dates",
			"skipped", dashboard.CostTrend.Skipped,
		)
	}
	return dashboard, nil
}

// AuditLog returns a page of audit entries newest first and the total count.
func (s *Service) AuditLog(ctx context.Context, limit, offset int) ([]domain.AuditEntry, int, error) {
	entries, err := s.repo.ListAudit(ctx, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list audit entries: %w", err)
	}
	total, err := s.repo.CountAudit(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("count audit entries: %w", err)
	}
	return entries, total, nil
}

// Ping checks that the storage backend is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func (s *Service) parse(fields DraftFields) (domain.Incident, error) {
	inc, errs := s.validator.Parse(fields)
	if len(errs) > 0 {
		recordValidationFailures(errs)
		return domain.Incident{}, &ValidationError{Fields: errs}
	}
	return inc, nil
}

// checkAll validates a full register. Field errors are keyed by position,
// e.g. "incidents[2].cost".
func (s *Service) checkAll(list []domain.Incident) error {
	errs := FieldErrors{}
	for i, inc := range list {
		prefix := fmt.Sprintf("incidents[%d].", i)
		if inc.ID <= 0 {
			errs[prefix+"id"] = "Incident id must be a positive whole number."
		}
		for field, msg := range s.validator.ValidateIncident(inc) {
			errs[prefix+field] = msg
		}
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return CheckUniqueIDs(list)
}

// audit records a change. The change is already committed, so a failure is
// logged and not returned.
func (s *Service) audit(ctx context.Context, action domain.AuditAction, incidentID *int64) {
	o := originFrom(ctx)
	entry := &domain.AuditEntry{
		ID:         uuid.NewString(),
		IncidentID: incidentID,
		Action:     action,
		RequestID:  o.requestID,
		RemoteAddr: o.remoteAddr,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.repo.AppendAudit(ctx, entry); err != nil {
		ctxlog.FromContext(ctx).Error("failed to record audit entry",
			"action", action,
			"error", err,
		)
	}
}

func (s *Service) refreshRegister(ctx context.Context) {
	list, err := s.repo.List(ctx)
	if err != nil {
		ctxlog.FromContext(ctx).Warn("failed to refresh register metrics", "error", err)
		return
	}
	recordRegister(len(list), analytics.Summarize(list).TotalCost)
}
