package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finledger/internal/core"
	"finledger/internal/middleware/ratelimit"
	"finledger/internal/middleware/trace"
	"finledger/internal/services"
	"finledger/internal/storage"
)

type fixture struct {
	srv  *Server
	repo *storage.SQLiteRepository
}

func newFixture(t *testing.T, rl ratelimit.Config) *fixture {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "finledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	rules := core.Rules{
		DefaultCompanyID: "acme",
		DefaultCurrency:  "CNY",
		Currencies:       []string{"CNY", "USD"},
		MaxCategoryDepth: 4,
	}
	srv := NewServer(":0", Deps{
		Summaries: services.NewSummaryService(repo, services.SummaryConfig{DefaultDepth: 2, MaxDepth: 4}, nil),
		Cashflow:  services.NewCashflowService(repo, nil),
		Imports:   services.NewImportService(repo, nil, services.ImportConfig{Rules: rules}, nil),
		Overview:  services.NewOverviewService(repo, nil),
		Store:     repo,
		Currency:  "CNY",
		RateLimit: rl,
	}, nil)
	srv.now = func() time.Time { return time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { srv.Shutdown(context.Background()) })
	return &fixture{srv: srv, repo: repo}
}

func (f *fixture) do(t *testing.T, method, target string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.RemoteAddr = "203.0.113.10:4000"
	rr := httptest.NewRecorder()
	f.srv.Handler.ServeHTTP(rr, req)

	var out map[string]any
	if rr.Body.Len() > 0 && rr.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	}
	return rr, out
}

func (f *fixture) submit(t *testing.T, candidates ...map[string]any) string {
	t.Helper()
	rr, job := f.do(t, http.MethodPost, "/api/v1/import-jobs", map[string]any{
		"sourceType": "ai_chat",
		"actor":      "alice",
		"model":      "extractor-v1",
		"candidates": candidates,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	require.Equal(t, "pending_review", job["status"])
	return job["id"].(string)
}

func revenueCandidate(amount string) map[string]any {
	return map[string]any{
		"recordType": "revenue",
		"confidence": 0.9,
		"payload": map[string]any{
			"category_path": "A/B",
			"description":   "rent",
			"amount":        amount,
			"date":          "2025-03-05",
		},
	}
}

func approve(kind string, overwrite bool) map[string]any {
	return map[string]any{"recordType": kind, "operation": "approve", "overwrite": overwrite}
}

func TestHealthAndReady(t *testing.T) {
	f := newFixture(t, ratelimit.Config{})

	rr, body := f.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, rr.Header().Get(trace.HeaderRequestID))
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))

	rr, body = f.do(t, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ready", body["status"])
}

type downStore struct{}

func (downStore) Ping(context.Context) error { return errors.New("database is locked") }

func TestReady_StoreDown(t *testing.T) {
	srv := NewServer(":0", Deps{Store: downStore{}}, nil)
	defer srv.Shutdown(context.Background())

	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestImportFlow_ConflictThenOverwrite(t *testing.T) {
	f := newFixture(t, ratelimit.Config{})

	first := f.submit(t, revenueCandidate("1200.00"))
	rr, res := f.do(t, http.MethodPost, "/api/v1/import-jobs/"+first+"/confirm", map[string]any{
		"actor":   "alice",
		"actions": []any{approve("revenue", false)},
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "approved", res["status"])
	assert.EqualValues(t, 1, res["approvedCount"])
	assert.EqualValues(t, 0, res["rejectedCount"])

	second := f.submit(t, revenueCandidate("1300.00"))
	rr, res = f.do(t, http.MethodPost, "/api/v1/import-jobs/"+second+"/confirm", map[string]any{
		"actor":   "alice",
		"actions": []any{approve("revenue", false)},
	})
	require.Equal(t, http.StatusConflict, rr.Code, rr.Body.String())
	assert.Equal(t, "duplicate_record", res["message"])
	assert.Equal(t, "revenue", res["recordType"])
	conflict := res["conflict"].(map[string]any)
	assert.Equal(t, "A", conflict["category"])
	assert.Equal(t, "B", conflict["subcategory"])
	assert.Equal(t, "rent", conflict["description"])
	assert.Equal(t, "2025-03-05", conflict["occurredOn"])

	// The rolled-back call left the job open for another decision.
	rr, job := f.do(t, http.MethodGet, "/api/v1/import-jobs/"+second, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "pending_review", job["status"])

	rr, res = f.do(t, http.MethodPost, "/api/v1/import-jobs/"+second+"/confirm", map[string]any{
		"actor":   "alice",
		"actions": []any{approve("revenue", true)},
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "approved", res["status"])

	rr, logs := f.do(t, http.MethodGet, "/api/v1/import-jobs/"+second+"/logs", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	entries := logs["logs"].([]any)
	require.Len(t, entries, 1)
	assert.Equal(t, "overwritten", entries[0].(map[string]any)["action"])

	rr, sum := f.do(t, http.MethodGet, "/api/v1/financial/revenue-summary?year=2025&unit=major", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "revenue", sum["kind"])
	assert.EqualValues(t, 2, sum["maxLevel"])
	assert.Equal(t, "1300.00", sum["totals"].(map[string]any)["total"])
	nodes := sum["nodes"].([]any)
	require.Len(t, nodes, 1)
	root := nodes[0].(map[string]any)
	assert.Equal(t, "A", root["label"])
	assert.EqualValues(t, 0, root["level"])
	child := root["children"].([]any)[0].(map[string]any)
	assert.Equal(t, "A/B", child["path"])
	assert.Equal(t, "1300.00", child["monthly"].([]any)[2])

	rr, res = f.do(t, http.MethodPost, "/api/v1/import-jobs/"+second+"/confirm", map[string]any{
		"actions": []any{approve("revenue", true)},
	})
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "job_closed", res["message"])
}

func TestSummary_MinorUnitsAndForecast(t *testing.T) {
	f := newFixture(t, ratelimit.Config{})
	job := f.submit(t,
		revenueCandidate("10.00"),
		map[string]any{"recordType": "income_forecast", "payload": map[string]any{
			"category_path": "A", "expected_amount": "5", "cash_in_date": "2025-07-01", "certainty": "uncertain",
		}},
	)
	rr, _ := f.do(t, http.MethodPost, "/api/v1/import-jobs/"+job+"/confirm", map[string]any{
		"actions": []any{approve("revenue", false), approve("income_forecast", false)},
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr, sum := f.do(t, http.MethodGet, "/api/v1/financial/revenue-summary?year=2025&maxLevel=1&includeForecast=true", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "minor", sum["unit"])
	totals := sum["totals"].(map[string]any)
	assert.EqualValues(t, 1000, totals["total"])
	assert.EqualValues(t, 500, totals["forecastUncertainTotal"])
	assert.EqualValues(t, 0, totals["forecastCertainTotal"])

	rr, sum = f.do(t, http.MethodGet, "/api/v1/financial/revenue-summary?year=2025", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	_, hasForecast := sum["totals"].(map[string]any)["forecastUncertainTotal"]
	assert.False(t, hasForecast, "forecast columns are omitted unless requested")
}

func TestCashflow_BalancePlusForecasts(t *testing.T) {
	f := newFixture(t, ratelimit.Config{})
	job := f.submit(t,
		map[string]any{"recordType": "account_balance", "payload": map[string]any{
			"total_balance": "100000.00", "reported_at": "2025-05-31", "account_name": "main",
		}},
		map[string]any{"recordType": "income_forecast", "payload": map[string]any{
			"category_path": "Sales", "expected_amount": "20000.00", "cash_in_date": "2025-06-10", "certainty": "certain",
		}},
		map[string]any{"recordType": "expense_forecast", "payload": map[string]any{
			"category_path": "Rent", "expected_amount": "15000.00", "cash_out_date": "2025-06-20", "description": "office",
		}},
	)
	rr, _ := f.do(t, http.MethodPost, "/api/v1/import-jobs/"+job+"/confirm", map[string]any{
		"actions": []any{approve("account_balance", false), approve("income_forecast", false), approve("expense_forecast", false)},
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr, cf := f.do(t, http.MethodGet, "/api/v1/financial/cashflow?asOf=2025-06-01&unit=major", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "account_balance", cf["startingBalanceSource"])
	assert.Equal(t, "2025-05-31", cf["balanceDate"])
	assert.Equal(t, "100000.00", cf["startingBalance"])
	rows := cf["rows"].([]any)
	require.Len(t, rows, 1)
	row := rows[0].(map[string]any)
	assert.Equal(t, "2025-06", row["month"])
	assert.Equal(t, "100000.00", row["openingBalance"])
	assert.Equal(t, "20000.00", row["certainIncome"])
	assert.Equal(t, "15000.00", row["expense"])
	assert.Equal(t, "105000.00", row["closingBalance"])

	rr, cf = f.do(t, http.MethodGet, "/api/v1/financial/cashflow?asOf=2025-06-01&startingBalance=10&includeCertain=false", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "request", cf["startingBalanceSource"])
	row = cf["rows"].([]any)[0].(map[string]any)
	assert.EqualValues(t, 0, row["certainIncome"])
	assert.EqualValues(t, 1000-1500000, row["closingBalance"])

	rr, bal := f.do(t, http.MethodGet, "/api/v1/financial/balances?companyId=acme&unit=major", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	balances := bal["balances"].([]any)
	require.Len(t, balances, 1)
	assert.Equal(t, "100000.00", balances[0].(map[string]any)["balance"])
	assert.Equal(t, "2025-06-15", bal["to"])
}

func TestCategories_ListAndDisable(t *testing.T) {
	f := newFixture(t, ratelimit.Config{})
	job := f.submit(t, revenueCandidate("1.00"))
	rr, _ := f.do(t, http.MethodPost, "/api/v1/import-jobs/"+job+"/confirm", map[string]any{
		"actions": []any{approve("revenue", false)},
	})
	require.Equal(t, http.StatusOK, rr.Code)

	rr, list := f.do(t, http.MethodGet, "/api/v1/categories?kind=revenue", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	cats := list["categories"].([]any)
	require.Len(t, cats, 2)

	var leafID float64
	for _, c := range cats {
		if c.(map[string]any)["fullPath"] == "A/B" {
			leafID = c.(map[string]any)["id"].(float64)
		}
	}
	require.NotZero(t, leafID)

	rr, cat := f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/categories/%d/disable", int64(leafID)), nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, false, cat["enabled"])

	rr, _ = f.do(t, http.MethodPost, "/api/v1/categories/99999/disable", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCategories_TreeView(t *testing.T) {
	f := newFixture(t, ratelimit.Config{})
	job := f.submit(t, revenueCandidate("1.00"))
	rr, _ := f.do(t, http.MethodPost, "/api/v1/import-jobs/"+job+"/confirm", map[string]any{
		"actions": []any{approve("revenue", false)},
	})
	require.Equal(t, http.StatusOK, rr.Code)

	rr, flat := f.do(t, http.MethodGet, "/api/v1/categories", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	cats := flat["categories"].([]any)
	require.Len(t, cats, 2)
	assert.Equal(t, "A", cats[0].(map[string]any)["fullPath"], "parents come first")
	assert.EqualValues(t, 1, cats[1].(map[string]any)["level"])

	rr, tree := f.do(t, http.MethodGet, "/api/v1/categories?kind=revenue&view=tree", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	roots := tree["categories"].([]any)
	require.Len(t, roots, 1)
	root := roots[0].(map[string]any)
	assert.Equal(t, "A", root["name"])
	assert.EqualValues(t, 0, root["level"])
	children := root["children"].([]any)
	require.Len(t, children, 1)
	assert.Equal(t, "A/B", children[0].(map[string]any)["fullPath"])
	_, hasChildren := children[0].(map[string]any)["children"]
	assert.False(t, hasChildren)
}

func TestOverview(t *testing.T) {
	f := newFixture(t, ratelimit.Config{})
	job := f.submit(t,
		map[string]any{"recordType": "account_balance", "payload": map[string]any{
			"total_balance": "100000.00", "reported_at": "2025-05-31",
		}},
		revenueCandidate("1,200.00"),
		map[string]any{"recordType": "expense", "payload": map[string]any{
			"category_path": "Rent", "description": "office", "amount": "300", "date": "2025-04-02",
		}},
		map[string]any{"recordType": "income_forecast", "payload": map[string]any{
			"category_path": "Sales", "expected_amount": "20000.00", "cash_in_date": "2025-06-20", "certainty": "certain",
		}},
		map[string]any{"recordType": "income_forecast", "payload": map[string]any{
			"category_path": "Sales", "expected_amount": "5", "cash_in_date": "2025-07-01", "certainty": "uncertain",
		}},
	)
	rr, _ := f.do(t, http.MethodPost, "/api/v1/import-jobs/"+job+"/confirm", map[string]any{
		"actions": []any{
			approve("account_balance", false), approve("revenue", false), approve("expense", false),
			approve("income_forecast", false), approve("income_forecast", false),
		},
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr, ov := f.do(t, http.MethodGet, "/api/v1/financial/overview?unit=major", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "2025-06-15", ov["asOf"])
	companies := ov["companies"].([]any)
	require.Len(t, companies, 1)
	acme := companies[0].(map[string]any)
	assert.Equal(t, "acme", acme["companyId"])
	assert.Equal(t, map[string]any{"reportDate": "2025-05-31", "total": "100000.00", "currency": "CNY"}, acme["balance"])
	assert.Equal(t, map[string]any{"period": "2025-03", "amount": "1200.00", "currency": "CNY"}, acme["revenue"])
	assert.Equal(t, map[string]any{"period": "2025-04", "amount": "300.00", "currency": "CNY"}, acme["expense"])
	assert.Equal(t, map[string]any{"certain": "20000.00", "uncertain": "5.00", "currency": "CNY"}, acme["forecast"])

	rr, ov = f.do(t, http.MethodGet, "/api/v1/financial/overview?asOf=2025-04-01", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	acme = ov["companies"].([]any)[0].(map[string]any)
	_, hasBalance := acme["balance"]
	assert.False(t, hasBalance, "the May balance is after asOf")
	_, hasExpense := acme["expense"]
	assert.False(t, hasExpense, "the April expense is after asOf")
	assert.EqualValues(t, 120000, acme["revenue"].(map[string]any)["amount"])
	assert.EqualValues(t, 2000500, acme["forecast"].(map[string]any)["certain"].(float64)+acme["forecast"].(map[string]any)["uncertain"].(float64))

	rr, ov = f.do(t, http.MethodGet, "/api/v1/financial/overview?companyId=ghost", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	companies = ov["companies"].([]any)
	require.Len(t, companies, 1)
	ghost := companies[0].(map[string]any)
	assert.Equal(t, "ghost", ghost["companyId"])
	assert.EqualValues(t, 0, ghost["forecast"].(map[string]any)["certain"])
}

func TestErrorResponses(t *testing.T) {
	f := newFixture(t, ratelimit.Config{})

	tests := []struct {
		name       string
		method     string
		target     string
		body       any
		wantStatus int
		wantField  string
	}{
		{"year not a number", http.MethodGet, "/api/v1/financial/revenue-summary?year=abc", nil, http.StatusUnprocessableEntity, "year"},
		{"summary of balances", http.MethodGet, "/api/v1/financial/revenue-summary?year=2025&kind=account_balance", nil, http.StatusUnprocessableEntity, "kind"},
		{"bad unit", http.MethodGet, "/api/v1/financial/cashflow?unit=cents", nil, http.StatusUnprocessableEntity, "unit"},
		{"bad asOf", http.MethodGet, "/api/v1/financial/cashflow?asOf=soon", nil, http.StatusUnprocessableEntity, "asOf"},
		{"inverted balance range", http.MethodGet, "/api/v1/financial/balances?from=2025-02-01&to=2025-01-01", nil, http.StatusUnprocessableEntity, "to"},
		{"bad category kind", http.MethodGet, "/api/v1/categories?kind=assets", nil, http.StatusUnprocessableEntity, "kind"},
		{"bad category view", http.MethodGet, "/api/v1/categories?view=graph", nil, http.StatusUnprocessableEntity, "view"},
		{"bad overview asOf", http.MethodGet, "/api/v1/financial/overview?asOf=soon", nil, http.StatusUnprocessableEntity, "asOf"},
		{"unknown job", http.MethodGet, "/api/v1/import-jobs/nope", nil, http.StatusNotFound, ""},
		{"confirm unknown job", http.MethodPost, "/api/v1/import-jobs/nope/confirm", map[string]any{"actions": []any{approve("revenue", false)}}, http.StatusNotFound, ""},
		{"confirm without actions", http.MethodPost, "/api/v1/import-jobs/nope/confirm", map[string]any{}, http.StatusUnprocessableEntity, "actions"},
		{"malformed body", http.MethodPost, "/api/v1/import-jobs", `{"candidates":`, http.StatusBadRequest, ""},
		{"unknown source type", http.MethodPost, "/api/v1/import-jobs", map[string]any{"sourceType": "fax"}, http.StatusUnprocessableEntity, "sourceType"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr, body := f.do(t, tt.method, tt.target, tt.body)
			require.Equal(t, tt.wantStatus, rr.Code, rr.Body.String())
			if tt.wantField != "" {
				assert.Equal(t, tt.wantField, body["field"])
			}
		})
	}

	rr, _ := f.do(t, http.MethodDelete, "/api/v1/import-jobs/x", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestSubmit_FailedJob(t *testing.T) {
	f := newFixture(t, ratelimit.Config{})
	rr, job := f.do(t, http.MethodPost, "/api/v1/import-jobs", map[string]any{
		"candidates": []any{map[string]any{"recordType": "revenue", "payload": map[string]any{"amount": "-1", "date": "2025-01-01"}}},
	})
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "failed", job["status"])
	assert.Contains(t, job["errorLog"], "no valid candidates")
	cand := job["candidates"].([]any)[0].(map[string]any)
	assert.Equal(t, "rejected", cand["state"])
	assert.Equal(t, "manual_upload", job["sourceType"])
}

func TestRateLimit_WritesOnly(t *testing.T) {
	f := newFixture(t, ratelimit.Config{RequestsPerWindow: 1})

	rr, _ := f.do(t, http.MethodPost, "/api/v1/import-jobs", map[string]any{})
	require.Equal(t, http.StatusCreated, rr.Code)
	rr, body := f.do(t, http.MethodPost, "/api/v1/import-jobs", map[string]any{})
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "rate_limited", body["message"])

	rr, _ = f.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}
