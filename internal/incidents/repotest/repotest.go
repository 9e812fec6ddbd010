// Package repotest provides a behavioral test suite shared by every
// incidents.Repository implementation.
package repotest

import (
	"context"
	"testing"
	"time"

	"github.com/bissquit/risk-ledger/internal/domain"
	"github.com/bissquit/risk-ledger/internal/incidents"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty repository for a single subtest.
type Factory func(t *testing.T) incidents.Repository

// Run executes the repository contract against repositories built by newRepo.
func Run(t *testing.T, newRepo Factory) {
	t.Run("CreateAssignsSequentialIDs", func(t *testing.T) { testCreate(t, newRepo(t)) })
	t.Run("GetNotFound", func(t *testing.T) { testGetNotFound(t, newRepo(t)) })
	t.Run("UpdateReplacesAllFields", func(t *testing.T) { testUpdate(t, newRepo(t)) })
	t.Run("DeleteRemovesOnlyTarget", func(t *testing.T) { testDelete(t, newRepo(t)) })
	t.Run("IDsNotReusedAfterDelete", func(t *testing.T) { testNoReuse(t, newRepo(t)) })
	t.Run("ReplaceKeepsOrderAndIDs", func(t *testing.T) { testReplace(t, newRepo(t)) })
	t.Run("ReplaceEmptyThenCreateStartsAtOne", func(t *testing.T) { testReplaceEmptyFresh(t, newRepo(t)) })
	t.Run("ReplaceRejectsDuplicateIDs", func(t *testing.T) { testReplaceDuplicate(t, newRepo(t)) })
	t.Run("AuditNewestFirst", func(t *testing.T) { testAudit(t, newRepo(t)) })
	t.Run("Ping", func(t *testing.T) { require.NoError(t, newRepo(t).Ping(context.Background())) })
}

// Sample returns a valid incident without an id.
func Sample(team domain.Team, cause string, cost float64) domain.Incident {
	duration := 30.0
	return domain.Incident{
		Date:               "2025-04-05",
		Team:               team,
		RootCause:          cause,
		AffectedClients:    2500,
		Cost:               cost,
		DisruptionDuration: &duration,
		RICriteria:         domain.RICriteriaFraud,
		Severity:           domain.SeverityModerate,
		Resolution:         "Restored backup and fixed scripts",
	}
}

func create(t *testing.T, repo incidents.Repository, inc domain.Incident) domain.Incident {
	t.Helper()
	require.NoError(t, repo.Create(context.Background(), &inc))
	return inc
}

func testCreate(t *testing.T, repo incidents.Repository) {
	ctx := context.Background()

	first := create(t, repo, Sample("Siebel", "System crash", 150000))
	second := create(t, repo, Sample("Weavers", "API failure", 12000))

	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, int64(2), second.ID)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.Incident{first, second}, list)

	got, err := repo.Get(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, second, *got)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func testGetNotFound(t *testing.T, repo incidents.Repository) {
	_, err := repo.Get(context.Background(), 42)
	assert.ErrorIs(t, err, incidents.ErrIncidentNotFound)
}

func testUpdate(t *testing.T, repo incidents.Repository) {
	ctx := context.Background()

	a := create(t, repo, Sample("Siebel", "System crash", 150000))
	b := create(t, repo, Sample("Weavers", "API failure", 12000))
	c := create(t, repo, Sample("Falcons", "Security breach", 50000))

	updated := domain.Incident{
		ID:              b.ID,
		Date:            "2025-06-01",
		Team:            "BPM",
		RootCause:       "Data loss incident",
		AffectedClients: 3000,
		Cost:            75000,
		Severity:        domain.SeverityHigh,
		Resolution:      "Restored missing data from backups",
	}
	require.NoError(t, repo.Update(ctx, &updated))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.Incident{a, updated, c}, list)

	missing := updated
	missing.ID = 99
	assert.ErrorIs(t, repo.Update(ctx, &missing), incidents.ErrIncidentNotFound)
}

func testDelete(t *testing.T, repo incidents.Repository) {
	ctx := context.Background()

	a := create(t, repo, Sample("Siebel", "System crash", 150000))
	b := create(t, repo, Sample("Weavers", "API failure", 12000))
	c := create(t, repo, Sample("Falcons", "Security breach", 50000))

	require.NoError(t, repo.Delete(ctx, b.ID))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.Incident{a, c}, list)

	assert.ErrorIs(t, repo.Delete(ctx, b.ID), incidents.ErrIncidentNotFound)
}

func testNoReuse(t *testing.T, repo incidents.Repository) {
	ctx := context.Background()

	create(t, repo, Sample("Siebel", "a", 1))
	last := create(t, repo, Sample("Siebel", "b", 1))
	require.NoError(t, repo.Delete(ctx, last.ID))

	next := create(t, repo, Sample("Siebel", "c", 1))
	assert.Greater(t, next.ID, last.ID)
}

func testReplace(t *testing.T, repo incidents.Repository) {
	ctx := context.Background()

	create(t, repo, Sample("Siebel", "old", 1))
	create(t, repo, Sample("Siebel", "old", 1))
	create(t, repo, Sample("Siebel", "old", 1))

	x := Sample("BI", "x", 10)
	x.ID = 10
	y := Sample("CSA", "y", 20)
	y.ID = 5
	y.DisruptionDuration = nil
	y.RICriteria = ""
	require.NoError(t, repo.Replace(ctx, []domain.Incident{x, y}))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.Incident{x, y}, list)

	next := create(t, repo, Sample("BPM", "z", 30))
	assert.Equal(t, int64(11), next.ID)

	require.NoError(t, repo.Replace(ctx, nil))
	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	after := create(t, repo, Sample("BPM", "w", 30))
	assert.Greater(t, after.ID, next.ID)
}

func testReplaceEmptyFresh(t *testing.T, repo incidents.Repository) {
	ctx := context.Background()

	require.NoError(t, repo.Replace(ctx, nil))
	first := create(t, repo, Sample("Siebel", "a", 1))
	assert.Equal(t, int64(1), first.ID)

	one := Sample("BI", "b", 1)
	one.ID = 1
	require.NoError(t, repo.Replace(ctx, []domain.Incident{one}))
	next := create(t, repo, Sample("BI", "c", 1))
	assert.Equal(t, int64(2), next.ID)
}

func testReplaceDuplicate(t *testing.T, repo incidents.Repository) {
	ctx := context.Background()

	kept := create(t, repo, Sample("Siebel", "kept", 1))

	a := Sample("BI", "a", 1)
	a.ID = 3
	b := Sample("BI", "b", 1)
	b.ID = 3
	assert.ErrorIs(t, repo.Replace(ctx, []domain.Incident{a, b}), incidents.ErrDuplicateID)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.Incident{kept}, list)
}

func testAudit(t *testing.T, repo incidents.Repository) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	for i, action := range []domain.AuditAction{domain.AuditActionCreated, domain.AuditActionUpdated, domain.AuditActionReplaced} {
		entry := &domain.AuditEntry{
			ID:         uuid.NewString(),
			Action:     action,
			RequestID:  "req",
			RemoteAddr: "127.0.0.1",
			CreatedAt:  now.Add(time.Duration(i) * time.Second),
		}
		if action != domain.AuditActionReplaced {
			id := int64(1)
			entry.IncidentID = &id
		}
		require.NoError(t, repo.AppendAudit(ctx, entry))
	}

	n, err := repo.CountAudit(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	page, err := repo.ListAudit(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, domain.AuditActionReplaced, page[0].Action)
	assert.Nil(t, page[0].IncidentID)
	assert.Equal(t, domain.AuditActionUpdated, page[1].Action)
	require.NotNil(t, page[1].IncidentID)
	assert.Equal(t, int64(1), *page[1].IncidentID)
	assert.True(t, page[1].CreatedAt.Equal(now.Add(time.Second)))

	rest, err := repo.ListAudit(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, domain.AuditActionCreated, rest[0].Action)
}
