//go:build integration

package postgres

import (
	"context"
	"log"
	"os"
	"testing"

	"github.com/bissquit/risk-ledger/internal/incidents"
	"github.com/bissquit/risk-ledger/internal/incidents/repotest"
	"github.com/bissquit/risk-ledger/internal/testutil"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	ctx := context.Background()

	container, err := testutil.NewPostgresContainer(ctx)
	if err != nil {
		log.Fatalf("start postgres: %v", err)
	}

	testPool, err = pgxpool.New(ctx, container.ConnectionString)
	if err != nil {
		log.Fatalf("create pool: %v", err)
	}

	code := m.Run()

	testPool.Close()
	if err := container.Terminate(ctx); err != nil {
		log.Printf("terminate postgres: %v", err)
	}
	os.Exit(code)
}

// newTestRepository empties both tables and restarts their sequences.
func newTestRepository(t *testing.T) *Repository {
	t.Helper()

	_, err := testPool.Exec(context.Background(),
		`TRUNCATE incidents, incident_audit_log RESTART IDENTITY`)
	require.NoError(t, err)

	return NewRepository(testPool)
}

func TestRepository_Contract(t *testing.T) {
	repotest.Run(t, func(t *testing.T) incidents.Repository {
		return newTestRepository(t)
	})
}

func TestRepository_PersistsNullDuration(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	inc := repotest.Sample("Digiata", "Data corruption", 99000)
	inc.DisruptionDuration = nil
	require.NoError(t, repo.Create(ctx, &inc))

	got, err := repo.Get(ctx, inc.ID)
	require.NoError(t, err)
	assert.Nil(t, got.DisruptionDuration)
}
