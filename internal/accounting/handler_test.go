package accounting

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-reports/internal/accounting/reports"
	"github.com/odyssey-erp/odyssey-reports/internal/accounting/runs"
	"github.com/odyssey-erp/odyssey-reports/internal/platform/httpx"
)

func newTestRouter(t *testing.T, opts Options) chi.Router {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts.Logger = logger
	svc := NewService(loadLedger(t, scenarioLedger), opts)
	r := chi.NewRouter()
	NewHandler(logger, svc, 100).MountRoutes(r)
	return r
}

func serve(r http.Handler, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHandleTrialBalanceJSON(t *testing.T) {
	r := newTestRouter(t, Options{})
	rec := serve(r, http.MethodGet, "/reports/trial-balance?company_id=1&as_of=2024-01-31")
	require.Equal(t, http.StatusOK, rec.Code)

	var tb reports.TrialBalance
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tb))
	require.True(t, tb.Balanced)
	require.Equal(t, "1000", tb.TotalDebit.String())
}

func TestHandleBalanceSheetHorizontal(t *testing.T) {
	r := newTestRouter(t, Options{})
	rec := serve(r, http.MethodGet, "/reports/balance-sheet?company_id=1&to=2024-01-31&layout=horizontal")
	require.Equal(t, http.StatusOK, rec.Code)

	var res BalanceSheetResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Nil(t, res.Vertical)
	require.NotNil(t, res.Horizontal)
	require.Len(t, res.Horizontal.Assets, len(res.Horizontal.Liabilities))
}

func TestHandleValidationProblem(t *testing.T) {
	r := newTestRouter(t, Options{})

	rec := serve(r, http.MethodGet, "/reports/profit-loss?company_id=1&from=2024-02-01&to=2024-01-01")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	require.Equal(t, "Validation Failed", problem.Title)
	require.Contains(t, problem.Detail, "start date")

	rec = serve(r, http.MethodGet, "/reports/trial-balance?as_of=2024-01-31")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(r, http.MethodGet, "/reports/cash-flow/export.csv?company_id=1&to=2024-01-31")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleGenerateAndLatest(t *testing.T) {
	store := newMemoryStore()
	r := newTestRouter(t, Options{Store: store})

	rec := serve(r, http.MethodGet, "/reports/profit-loss/runs/latest?company_id=1&from=2024-01-01&to=2024-01-31")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(r, http.MethodPost, "/reports/profit-loss/runs?company_id=1&from=2024-01-01&to=2024-01-31")
	require.Equal(t, http.StatusCreated, rec.Code)
	var created runs.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Equal(t, reports.KindProfitAndLoss, created.Key.Kind)

	rec = serve(r, http.MethodGet, "/reports/profit-loss/runs/latest?company_id=1&from=2024-01-01&to=2024-01-31")
	require.Equal(t, http.StatusOK, rec.Code)
	var latest runs.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &latest))
	require.Equal(t, created.ID, latest.ID)
	require.Len(t, latest.Lines, len(created.Lines))
}

func TestHandleExportCSV(t *testing.T) {
	r := newTestRouter(t, Options{})
	rec := serve(r, http.MethodGet, "/reports/trial-balance/export.csv?company_id=1&as_of=2024-01-31")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Header().Get("Content-Disposition"), "Trial_Balance_31012024.csv")

	records, err := csv.NewReader(strings.NewReader(rec.Body.String())).ReadAll()
	require.NoError(t, err)
	last := records[len(records)-1]
	require.Equal(t, "Total", last[0])
	require.Equal(t, "1000.00", last[2])
	require.Equal(t, "1000.00", last[3])
}

func TestHandleExportText(t *testing.T) {
	r := newTestRouter(t, Options{})
	req := httptest.NewRequest(http.MethodGet, "/reports/profit-loss/export.txt?company_id=1&from=2024-01-01&to=2024-01-31&company_name=Acme", nil)
	req.Header.Set("Accept-Language", "en-US")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, "Acme")
	require.Contains(t, body, "Profit & Loss")
	require.Contains(t, body, "1,000.00")
}

func TestExportRateLimited(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(loadLedger(t, scenarioLedger), Options{Logger: logger})
	r := chi.NewRouter()
	NewHandler(logger, svc, 1).MountRoutes(r)

	target := "/reports/trial-balance/export.csv?company_id=1&as_of=2024-01-31"
	require.Equal(t, http.StatusOK, serve(r, http.MethodGet, target).Code)
	require.Equal(t, http.StatusTooManyRequests, serve(r, http.MethodGet, target).Code)
	require.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/reports/trial-balance?company_id=1&as_of=2024-01-31").Code)
}
