//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/bissquit/risk-ledger/internal/domain"
	"github.com/bissquit/risk-ledger/internal/incidents/seed"
	"github.com/bissquit/risk-ledger/internal/testutil"
	"github.com/stretchr/testify/require"
)

// resetToDemo replaces the register with the bundled demo incidents so that
// each test starts from the same state.
func resetToDemo(t *testing.T, client *testutil.Client) []domain.Incident {
	t.Helper()

	demo, err := seed.Demo()
	require.NoError(t, err)

	resp, err := client.PUT("/api/v1/incidents", map[string]interface{}{"incidents": demo})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, testutil.ReadBody(t, resp))
	_ = resp.Body.Close()
	return demo
}

func validDraft() map[string]interface{} {
	return map[string]interface{}{
		"date":                "2025-04-05",
		"team":                "Siebel",
		"root_cause":          "System crash",
		"affected_clients":    "2500",
		"cost":                "150000",
		"disruption_duration": "30",
		"ri_criteria":         string(domain.RICriteriaFraud),
		"severity":            "High",
		"resolution":          "Restored backup",
	}
}

type incidentResponse struct {
	Data domain.Incident `json:"data"`
}

type incidentListResponse struct {
	Data []domain.Incident `json:"data"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Details []struct {
			Field   string `json:"field"`
			Message string `json:"message"`
		} `json:"details"`
	} `json:"error"`
}

func listIncidents(t *testing.T, client *testutil.Client) []domain.Incident {
	t.Helper()

	resp, err := client.GET("/api/v1/incidents")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result incidentListResponse
	testutil.DecodeJSON(t, resp, &result)
	return result.Data
}
