package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-reports/internal/accounting"
	"github.com/odyssey-erp/odyssey-reports/internal/accounting/balances"
	"github.com/odyssey-erp/odyssey-reports/internal/accounting/ledger"
	"github.com/odyssey-erp/odyssey-reports/internal/observability"
	"github.com/odyssey-erp/odyssey-reports/jobs"

	_ "github.com/odyssey-erp/odyssey-reports/testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("REPORT_COMPANIES", "1,7")
	t.Setenv("REPORT_OUTSTANDING_POLICY", "")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.AppAddr)
	require.Equal(t, 10*time.Minute, cfg.ReportCacheTTL)
	require.Equal(t, []int64{1, 7}, cfg.ReportCompanies)
	require.True(t, cfg.ReportPersistRuns)

	policy, err := cfg.OutstandingPolicy()
	require.NoError(t, err)
	require.Equal(t, balances.PolicyOutstanding, policy)
}

func TestLoadConfigRejectsUnknownPolicy(t *testing.T) {
	t.Setenv("REPORT_OUTSTANDING_POLICY", "fifo")
	_, err := LoadConfig()
	require.Error(t, err)
}

func TestLoggerFormat(t *testing.T) {
	buf := new(bytes.Buffer)
	NewLoggerTo(buf, &Config{LogFormat: "json", LogLevel: "warn"}).Info("hidden")
	require.Empty(t, buf.String())

	NewLoggerTo(buf, &Config{LogFormat: "json", LogLevel: "warn"}).Warn("shown")
	require.True(t, strings.HasPrefix(buf.String(), "{"))
}

func newTestRouter(deps map[string]Pinger) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	src := ledger.NewMemorySource()
	svc := accounting.NewService(src, accounting.Options{Logger: logger})
	return NewRouter(RouterParams{
		Logger:         logger,
		Config:         &Config{AppEnv: "test"},
		ReportsHandler: accounting.NewHandler(logger, svc, 0),
		JobHandler:     jobs.NewHandler(nil, logger),
		Metrics:        observability.NewMetrics(),
		Dependencies:   deps,
	})
}

func get(h http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestRouterProbes(t *testing.T) {
	r := newTestRouter(map[string]Pinger{
		"postgres": PingFunc(func(context.Context) error { return nil }),
	})
	require.Equal(t, http.StatusOK, get(r, "/healthz").Code)
	require.Equal(t, http.StatusOK, get(r, "/readyz").Code)
	require.Equal(t, "nosniff", get(r, "/healthz").Header().Get("X-Content-Type-Options"))

	down := newTestRouter(map[string]Pinger{
		"redis": PingFunc(func(context.Context) error { return errors.New("refused") }),
	})
	rec := get(down, "/readyz")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), `"redis":"down"`)
}

func TestRouterMountsReportsJobsAndMetrics(t *testing.T) {
	r := newTestRouter(nil)

	rec := get(r, "/reports/trial-balance?company_id=1&as_of=2024-01-31")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = get(r, "/jobs/health")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), jobs.QueueReports)

	rec = get(r, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "odyssey_http_requests_total")
}

func TestInTestMode(t *testing.T) {
	require.True(t, InTestMode())

	t.Setenv(TestModeEnv, "false")
	RefreshTestMode()
	require.False(t, InTestMode())

	t.Setenv(TestModeEnv, "true")
	RefreshTestMode()
	require.True(t, InTestMode())
}
