package seed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bissquit/risk-ledger/internal/domain"
	"github.com/bissquit/risk-ledger/internal/incidents"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDemo(t *testing.T) {
	list, err := Demo()
	require.NoError(t, err)
	require.Len(t, list, 7)

	for i, inc := range list {
		assert.Equal(t, int64(i+1), inc.ID)
		assert.Empty(t, incidents.NewValidator().ValidateIncident(inc), "incident %d", inc.ID)
	}

	first := list[0]
	assert.Equal(t, "2025-01-15", first.Date)
	assert.Equal(t, domain.Team("Siebel"), first.Team)
	assert.Equal(t, 150000.0, first.Cost)
	require.NotNil(t, first.DisruptionDuration)
	assert.Equal(t, 45.0, *first.DisruptionDuration)
	assert.Equal(t, domain.RICriteriaMonetaryValue, first.RICriteria)

	assert.Equal(t, domain.RICriteriaReputation, list[6].RICriteria)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	t.Run("valid file", func(t *testing.T) {
		path := filepath.Join(dir, "one.yaml")
		doc := `version: 1
incidents:
  - id: 3
    date: "2025-06-01"
    team: BI
    root_cause: Expired certificate
    affected_clients: 40
    cost: 1200.5
    severity: Low
    resolution: Rotated certificate
`
		require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

		list, err := Load(path)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, int64(3), list[0].ID)
		assert.Equal(t, 1200.5, list[0].Cost)
		assert.Nil(t, list[0].DisruptionDuration)
		assert.Empty(t, list[0].RICriteria)
	})

	t.Run("empty register", func(t *testing.T) {
		path := filepath.Join(dir, "empty.yaml")
		require.NoError(t, os.WriteFile(path, []byte("version: 1\n"), 0o600))

		list, err := Load(path)
		require.NoError(t, err)
		assert.NotNil(t, list)
		assert.Empty(t, list)
	})

	t.Run("unknown version", func(t *testing.T) {
		path := filepath.Join(dir, "v2.yaml")
		require.NoError(t, os.WriteFile(path, []byte("version: 2\nincidents: []\n"), 0o600))

		_, err := Load(path)
		assert.ErrorContains(t, err, "unsupported seed file version 2")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "nope.yaml"))
		assert.ErrorContains(t, err, "read seed file")
	})
}
