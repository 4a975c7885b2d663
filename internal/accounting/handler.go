package accounting

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/language"

	"github.com/odyssey-erp/odyssey-reports/internal/accounting/export"
	"github.com/odyssey-erp/odyssey-reports/internal/accounting/reports"
	"github.com/odyssey-erp/odyssey-reports/internal/accounting/runs"
	"github.com/odyssey-erp/odyssey-reports/internal/platform/httpx"
)

const (
	dateLayout        = "2006-01-02"
	defaultExportRate = 10
)

// Handler wires the statement endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rateLimit func(http.Handler) http.Handler
	builds    singleflight.Group
}

// NewHandler builds a Handler. exportRate caps export downloads per client and
// minute; zero selects the default.
func NewHandler(logger *slog.Logger, service *Service, exportRate int) *Handler {
	if exportRate <= 0 {
		exportRate = defaultExportRate
	}
	limiter := httprate.Limit(exportRate, time.Minute, httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			return "ip:" + r.RemoteAddr, nil
		}
		return "ip:" + host, nil
	}))
	return &Handler{logger: logger, service: service, rateLimit: limiter}
}

// MountRoutes registers HTTP routes for the statements.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/reports/trial-balance", h.handleTrialBalance)
	r.Get("/reports/profit-loss", h.handleProfitAndLoss)
	r.Get("/reports/balance-sheet", h.handleBalanceSheet)
	r.Post("/reports/{kind}/runs", h.handleGenerate)
	r.Get("/reports/{kind}/runs/latest", h.handleLatest)
	r.Post("/reports/cache/invalidate", h.handleInvalidate)
	r.Group(func(r chi.Router) {
		r.Use(h.rateLimit)
		r.Get("/reports/{kind}/export.csv", h.handleExportCSV)
		r.Get("/reports/{kind}/export.txt", h.handleExportText)
	})
}

func (h *Handler) handleTrialBalance(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	companyID, err := parseCompany(q.Get("company_id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	asOf, err := parseDate(q.Get("as_of"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	tb, err := h.service.TrialBalance(r.Context(), TrialBalanceRequest{CompanyID: companyID, AsOf: asOf})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, tb)
}

func (h *Handler) handleProfitAndLoss(w http.ResponseWriter, r *http.Request) {
	key, err := parseKey(r, reports.KindProfitAndLoss)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	pl, err := h.service.ProfitAndLoss(r.Context(), PeriodRequest{CompanyID: key.CompanyID, From: key.From, To: key.To})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, pl)
}

func (h *Handler) handleBalanceSheet(w http.ResponseWriter, r *http.Request) {
	key, err := parseKey(r, reports.KindBalanceSheet)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	horizontal := strings.EqualFold(strings.TrimSpace(r.URL.Query().Get("layout")), "horizontal")
	res, err := h.service.BalanceSheet(r.Context(), BalanceSheetRequest{
		CompanyID:  key.CompanyID,
		From:       key.From,
		To:         key.To,
		Horizontal: horizontal,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	key, err := parseKindKey(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	run, err := h.service.Generate(r.Context(), key)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, run)
}

func (h *Handler) handleLatest(w http.ResponseWriter, r *http.Request) {
	key, err := parseKindKey(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	run, err := h.service.Latest(r.Context(), key)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, run)
}

func (h *Handler) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Invalidate(r.Context()); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.document(w, r)
	if !ok {
		return
	}
	buf := &bytes.Buffer{}
	if err := export.WriteCSV(buf, doc); err != nil {
		h.logger.Error("write report csv", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename+".csv"))
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) handleExportText(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.document(w, r)
	if !ok {
		return
	}
	tag := language.English
	if accept := r.Header.Get("Accept-Language"); accept != "" {
		if tags, _, err := language.ParseAcceptLanguage(accept); err == nil && len(tags) > 0 {
			tag = tags[0]
		}
	}
	buf := &bytes.Buffer{}
	if err := export.NewTextRenderer(tag).Render(buf, doc); err != nil {
		h.logger.Error("render report text", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename+".txt"))
	_, _ = w.Write(buf.Bytes())
}

// document builds the export view, collapsing identical concurrent requests
// into one build.
func (h *Handler) document(w http.ResponseWriter, r *http.Request) (reports.Document, bool) {
	key, err := parseKindKey(r)
	if err != nil {
		h.respondError(w, r, err)
		return reports.Document{}, false
	}
	company := strings.TrimSpace(r.URL.Query().Get("company_name"))
	ctx := r.Context()
	ch := h.builds.DoChan(key.Normalize().String()+"|"+company, func() (any, error) {
		return h.service.Document(context.WithoutCancel(ctx), key, company)
	})
	select {
	case <-ctx.Done():
		h.respondError(w, r, ctx.Err())
		return reports.Document{}, false
	case res := <-ch:
		if res.Err != nil {
			h.respondError(w, r, res.Err)
			return reports.Document{}, false
		}
		return res.Val.(reports.Document), true
	}
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err.Error()))
	case errors.Is(err, runs.ErrRunNotFound):
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrNotFound, err.Error()))
	case errors.Is(err, ErrGenerationInProgress):
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrConflict, err.Error()))
	case errors.Is(err, ErrUnbalancedTrialBalance):
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrUnprocessable, err.Error()))
	default:
		h.logger.Error("report request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

// parseKindKey reads the report kind from the route and the rest of the key
// from the query string.
func parseKindKey(r *http.Request) (runs.Key, error) {
	kind, ok := reports.ParseKind(chi.URLParam(r, "kind"))
	if !ok {
		return runs.Key{}, ErrUnknownReport
	}
	if kind == reports.KindTrialBalance {
		q := r.URL.Query()
		companyID, err := parseCompany(q.Get("company_id"))
		if err != nil {
			return runs.Key{}, err
		}
		raw := q.Get("as_of")
		if raw == "" {
			raw = q.Get("to")
		}
		asOf, err := parseDate(raw)
		if err != nil {
			return runs.Key{}, err
		}
		return runs.Key{Kind: kind, CompanyID: companyID, To: asOf}, nil
	}
	return parseKey(r, kind)
}

func parseKey(r *http.Request, kind reports.Kind) (runs.Key, error) {
	q := r.URL.Query()
	companyID, err := parseCompany(q.Get("company_id"))
	if err != nil {
		return runs.Key{}, err
	}
	var from time.Time
	if raw := strings.TrimSpace(q.Get("from")); raw != "" {
		if from, err = parseDate(raw); err != nil {
			return runs.Key{}, err
		}
	}
	to, err := parseDate(q.Get("to"))
	if err != nil {
		return runs.Key{}, err
	}
	return runs.Key{Kind: kind, CompanyID: companyID, From: from, To: to}, nil
}

func parseCompany(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrCompanyRequired
	}
	return id, nil
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("%w: date required", ErrValidation)
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q", ErrValidation, raw)
	}
	return t, nil
}
