//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/bissquit/risk-ledger/internal/analytics"
	"github.com/bissquit/risk-ledger/internal/domain"
	"github.com/bissquit/risk-ledger/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getDashboard(t *testing.T, client *testutil.Client) analytics.Dashboard {
	t.Helper()

	resp, err := client.GET("/api/v1/dashboard")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Data analytics.Dashboard `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	return result.Data
}

func TestDashboard_Demo(t *testing.T) {
	client := newTestClient(t)
	resetToDemo(t, client)

	d := getDashboard(t, client)

	assert.Equal(t, 7, d.Summary.TotalIncidents)
	assert.Equal(t, 577000.0, d.Summary.TotalCost)
	assert.Equal(t, 82428.57, d.Summary.AvgCost)
	assert.Equal(t, "System crash", d.Summary.MostCommonRootCause)
	assert.Equal(t, "Ops Platform Core", d.Summary.TeamWithHighestCost)
	assert.Equal(t, "577,000", d.TotalCostDisplay)

	require.Len(t, d.Severity.Buckets, 3)
	assert.Equal(t, domain.SeverityLow, d.Severity.Buckets[0].Severity)
	assert.Len(t, d.Severity.Chart.Labels, 3)

	require.Len(t, d.CostTrend.Points, 5)
	assert.Equal(t, []float64{150000, 12000, 50000, 90000, 275000}, d.CostTrend.Chart.Values)
	assert.Equal(t, 0, d.CostTrend.Skipped)
}

func TestDashboard_FollowsRegisterChanges(t *testing.T) {
	client := newTestClient(t)
	resetToDemo(t, client)

	draft := validDraft()
	draft["date"] = "2025-05-20"
	draft["cost"] = "23000"
	resp, err := client.POST("/api/v1/incidents", draft)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	_ = resp.Body.Close()

	d := getDashboard(t, client)
	assert.Equal(t, 8, d.Summary.TotalIncidents)
	assert.Equal(t, 600000.0, d.Summary.TotalCost)
	assert.Equal(t, 75000.0, d.Summary.AvgCost)
	assert.Equal(t, 298000.0, d.CostTrend.Points[len(d.CostTrend.Points)-1].Cost)
}

func TestDashboard_EmptyRegister(t *testing.T) {
	client := newTestClient(t)
	t.Cleanup(func() { resetToDemo(t, client) })

	resp, err := client.PUT("/api/v1/incidents", map[string]interface{}{"incidents": []domain.Incident{}})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	d := getDashboard(t, client)
	assert.Equal(t, 0, d.Summary.TotalIncidents)
	assert.Equal(t, 0.0, d.Summary.TotalCost)
	assert.Equal(t, 0.0, d.Summary.AvgCost)
	assert.Empty(t, d.CostTrend.Points)
	assert.Empty(t, d.TeamCosts)
	for _, b := range d.Severity.Buckets {
		assert.Zero(t, b.Count)
	}
}
