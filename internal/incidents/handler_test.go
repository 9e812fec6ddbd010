package incidents_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/bissquit/risk-ledger/internal/analytics"
	"github.com/bissquit/risk-ledger/internal/domain"
	"github.com/bissquit/risk-ledger/internal/incidents"
	"github.com/bissquit/risk-ledger/internal/incidents/memory"
	"github.com/bissquit/risk-ledger/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validBody = `{
	"date": "2025-01-15",
	"team": "Siebel",
	"root_cause": "System crash",
	"affected_clients": 5000,
	"cost": 150000,
	"disruption_duration": 45,
	"ri_criteria": "Monetary Value of 100k (gain or loss)",
	"severity": "Moderate",
	"resolution": "Patched server issue"
}`

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	formatter, err := analytics.NewFormatter("en")
	require.NoError(t, err)
	handler := incidents.NewHandler(incidents.NewService(memory.NewRepository(), formatter))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	handler.RegisterRoutes(r)
	handler.RegisterWriteRoutes(r)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) (int, envelope) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec.Code, env
}

func TestHandler_CreateAndGet(t *testing.T) {
	h := newTestRouter(t)

	code, env := do(t, h, http.MethodPost, "/incidents", validBody)
	require.Equal(t, http.StatusCreated, code)

	var created domain.Incident
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, int64(1), created.ID)
	assert.Equal(t, domain.SeverityModerate, created.Severity)

	code, env = do(t, h, http.MethodGet, "/incidents/1", "")
	require.Equal(t, http.StatusOK, code)
	var got domain.Incident
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, created, got)

	code, env = do(t, h, http.MethodGet, "/incidents", "")
	require.Equal(t, http.StatusOK, code)
	var list []domain.Incident
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Equal(t, []domain.Incident{created}, list)
}

func TestHandler_CreateValidation(t *testing.T) {
	h := newTestRouter(t)

	tests := []struct {
		name       string
		body       string
		wantFields []httputil.FieldError
	}{
		{
			name: "cost is text",
			body: strings.Replace(validBody, `"cost": 150000`, `"cost": "abc"`, 1),
			wantFields: []httputil.FieldError{
				{Field: "cost", Message: "Enter a valid cost."},
			},
		},
		{
			name: "zero cost and missing team",
			body: strings.Replace(strings.Replace(validBody, `"cost": 150000`, `"cost": 0`, 1),
				`"team": "Siebel"`, `"team": null`, 1),
			wantFields: []httputil.FieldError{
				{Field: "cost", Message: "Enter a valid cost."},
				{Field: "team", Message: "Team selection is required."},
			},
		},
		{
			name: "empty body object",
			body: `{}`,
			wantFields: []httputil.FieldError{
				{Field: "affected_clients", Message: "Affected clients field is required."},
				{Field: "cost", Message: "Enter a valid cost."},
				{Field: "date", Message: "Date is required."},
				{Field: "resolution", Message: "Resolution is required."},
				{Field: "root_cause", Message: "Root cause is required."},
				{Field: "severity", Message: "Select a severity level."},
				{Field: "team", Message: "Team selection is required."},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := do(t, h, http.MethodPost, "/incidents", tt.body)
			require.Equal(t, http.StatusBadRequest, code)
			require.NotNil(t, env.Error)
			assert.Equal(t, "validation error", env.Error.Message)

			var details []httputil.FieldError
			require.NoError(t, json.Unmarshal(env.Error.Details, &details))
			assert.Equal(t, tt.wantFields, details)
		})
	}

	code, env := do(t, h, http.MethodGet, "/incidents", "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `[]`, string(env.Data))
}

func TestHandler_InvalidJSON(t *testing.T) {
	h := newTestRouter(t)

	for _, body := range []string{`{`, `{"cost": {"amount": 1}}`} {
		code, env := do(t, h, http.MethodPost, "/incidents", body)
		assert.Equal(t, http.StatusBadRequest, code)
		require.NotNil(t, env.Error)
		assert.Equal(t, "invalid json", env.Error.Message)
	}
}

func TestHandler_UpdateAndDelete(t *testing.T) {
	h := newTestRouter(t)

	code, _ := do(t, h, http.MethodPost, "/incidents", validBody)
	require.Equal(t, http.StatusCreated, code)

	update := strings.Replace(validBody, `"severity": "Moderate"`, `"severity": "High"`, 1)
	code, env := do(t, h, http.MethodPut, "/incidents/1", update)
	require.Equal(t, http.StatusOK, code)
	var updated domain.Incident
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	assert.Equal(t, int64(1), updated.ID)
	assert.Equal(t, domain.SeverityHigh, updated.Severity)

	code, _ = do(t, h, http.MethodPut, "/incidents/99", update)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = do(t, h, http.MethodPut, "/incidents/1", `{}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, h, http.MethodDelete, "/incidents/1", "")
	assert.Equal(t, http.StatusNoContent, code)

	code, env = do(t, h, http.MethodDelete, "/incidents/1", "")
	assert.Equal(t, http.StatusNotFound, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "incident not found", env.Error.Message)

	code, _ = do(t, h, http.MethodGet, "/incidents/abc", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestHandler_Replace(t *testing.T) {
	h := newTestRouter(t)

	incident := func(id int, team string) string {
		return `{"id": ` + strconv.Itoa(id) + `, "date": "2025-02-10", "team": "` + team + `",
			"root_cause": "API failure", "affected_clients": 1200, "cost": 12000,
			"severity": "Low", "resolution": "Deployed fix"}`
	}

	code, _ := do(t, h, http.MethodPut, "/incidents",
		`{"incidents": [`+incident(3, "Weavers")+`, `+incident(3, "BI")+`]}`)
	assert.Equal(t, http.StatusConflict, code)

	code, env := do(t, h, http.MethodPut, "/incidents",
		`{"incidents": [`+incident(3, "Nobody")+`]}`)
	require.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, string(env.Error.Details), `"incidents[0].team"`)

	code, env = do(t, h, http.MethodPut, "/incidents",
		`{"incidents": [`+incident(8, "Weavers")+`, `+incident(3, "BI")+`]}`)
	require.Equal(t, http.StatusOK, code)
	var replaced []domain.Incident
	require.NoError(t, json.Unmarshal(env.Data, &replaced))
	require.Len(t, replaced, 2)

	code, env = do(t, h, http.MethodPost, "/incidents", validBody)
	require.Equal(t, http.StatusCreated, code)
	var created domain.Incident
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, int64(9), created.ID)

	code, env = do(t, h, http.MethodGet, "/incidents", "")
	require.Equal(t, http.StatusOK, code)
	var list []domain.Incident
	require.NoError(t, json.Unmarshal(env.Data, &list))
	ids := make([]int64, len(list))
	for i, inc := range list {
		ids[i] = inc.ID
	}
	assert.Equal(t, []int64{8, 3, 9}, ids)
}

func TestHandler_Validate(t *testing.T) {
	h := newTestRouter(t)

	code, env := do(t, h, http.MethodPost, "/incidents/validate", validBody)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"valid": true, "errors": []}`, string(env.Data))

	body := strings.Replace(validBody, `"date": "2025-01-15"`, `"date": "15/01/2025"`, 1)
	code, env = do(t, h, http.MethodPost, "/incidents/validate", body)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"valid": false, "errors": [
		{"field": "date", "message": "Date must use the yyyy-MM-dd format."}
	]}`, string(env.Data))

	code, env = do(t, h, http.MethodGet, "/incidents", "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `[]`, string(env.Data))
}

func TestHandler_Dashboard(t *testing.T) {
	h := newTestRouter(t)

	second := strings.NewReplacer(
		`"team": "Siebel"`, `"team": "Weavers"`,
		`"root_cause": "System crash"`, `"root_cause": "API failure"`,
		`"cost": 150000`, `"cost": 12000`,
		`"date": "2025-01-15"`, `"date": "2025-02-10"`,
		`"severity": "Moderate"`, `"severity": "Low"`,
	).Replace(validBody)

	for _, body := range []string{validBody, second} {
		code, _ := do(t, h, http.MethodPost, "/incidents", body)
		require.Equal(t, http.StatusCreated, code)
	}

	code, env := do(t, h, http.MethodGet, "/dashboard", "")
	require.Equal(t, http.StatusOK, code)

	var dashboard analytics.Dashboard
	require.NoError(t, json.Unmarshal(env.Data, &dashboard))
	assert.Equal(t, analytics.Summary{
		TotalIncidents:      2,
		TotalCost:           162000,
		AvgCost:             81000,
		MostCommonRootCause: "System crash",
		TeamWithHighestCost: "Siebel",
	}, dashboard.Summary)
	assert.Equal(t, "162,000", dashboard.TotalCostDisplay)
	assert.Equal(t, []string{"January 2025", "February 2025"}, dashboard.CostTrend.Chart.Labels)
	assert.Equal(t, []string{"Low: Weavers", "Moderate: Siebel", "High: No Teams"}, dashboard.Severity.Chart.Labels)
}

func TestHandler_Reference(t *testing.T) {
	h := newTestRouter(t)

	code, env := do(t, h, http.MethodGet, "/reference", "")
	require.Equal(t, http.StatusOK, code)

	var ref incidents.ReferenceResponse
	require.NoError(t, json.Unmarshal(env.Data, &ref))
	assert.Len(t, ref.Teams, 17)
	assert.Len(t, ref.RICriteria, 7)
	assert.Equal(t, []incidents.SeverityOption{
		{Value: domain.SeverityLow, Color: "#28a745"},
		{Value: domain.SeverityModerate, Color: "#ffc107"},
		{Value: domain.SeverityHigh, Color: "#dc3545"},
	}, ref.Severities)
}

func TestHandler_Audit(t *testing.T) {
	h := newTestRouter(t)

	for i := 0; i < 3; i++ {
		code, _ := do(t, h, http.MethodPost, "/incidents", validBody)
		require.Equal(t, http.StatusCreated, code)
	}

	code, env := do(t, h, http.MethodGet, "/audit?limit=2", "")
	require.Equal(t, http.StatusOK, code)

	var page struct {
		Entries []domain.AuditEntry `json:"entries"`
		Total   int                 `json:"total"`
		Limit   int                 `json:"limit"`
		Offset  int                 `json:"offset"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.Limit)
	require.Len(t, page.Entries, 2)
	require.NotNil(t, page.Entries[0].IncidentID)
	assert.Equal(t, int64(3), *page.Entries[0].IncidentID)
	assert.NotEmpty(t, page.Entries[0].RequestID)

	code, env = do(t, h, http.MethodGet, "/audit?limit=500", "")
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, incidents.MaxAuditLimit, page.Limit)

	for _, q := range []string{"limit=0", "limit=abc", "offset=-1"} {
		code, _ = do(t, h, http.MethodGet, "/audit?"+q, "")
		assert.Equal(t, http.StatusBadRequest, code, q)
	}
}
