package accounting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-reports/internal/accounting/balances"
	"github.com/odyssey-erp/odyssey-reports/internal/accounting/ledger"
	"github.com/odyssey-erp/odyssey-reports/internal/accounting/reports"
	"github.com/odyssey-erp/odyssey-reports/internal/accounting/runs"
)

// Options carries the optional collaborators of the Service. Zero values are
// valid: no persistence, no cache, no lock, default metrics off.
type Options struct {
	Policy             balances.Policy
	Store              RunStore
	Cache              *Cache
	Locker             *Locker
	Metrics            *Metrics
	Logger             *slog.Logger
	StrictTrialBalance bool
}

// BalanceSheetResult holds exactly one of the two balance sheet layouts.
type BalanceSheetResult struct {
	Vertical   *reports.BalanceSheet           `json:"vertical,omitempty"`
	Horizontal *reports.HorizontalBalanceSheet `json:"horizontal,omitempty"`
}

// Service turns report requests into statement lines.
type Service struct {
	source    ledger.Source
	engine    *balances.Engine
	store     RunStore
	cache     *Cache
	locker    *Locker
	metrics   *Metrics
	logger    *slog.Logger
	validator *validator.Validate
	strictTB  bool
	now       func() time.Time
	newID     func() uuid.UUID
}

// NewService constructs the report service over a ledger source.
func NewService(source ledger.Source, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		source:    source,
		engine:    balances.NewEngine(source, opts.Policy),
		store:     opts.Store,
		cache:     opts.Cache,
		locker:    opts.Locker,
		metrics:   opts.Metrics,
		logger:    logger,
		validator: validator.New(),
		strictTB:  opts.StrictTrialBalance,
		now:       time.Now,
		newID:     uuid.New,
	}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Policy reports the outstanding policy applied to receivables and payables.
func (s *Service) Policy() balances.Policy {
	return s.engine.Policy()
}

// TrialBalance builds the trial balance as of req.AsOf.
func (s *Service) TrialBalance(ctx context.Context, req TrialBalanceRequest) (reports.TrialBalance, error) {
	if err := s.validate(req); err != nil {
		return reports.TrialBalance{}, err
	}
	key := runs.Key{Kind: reports.KindTrialBalance, CompanyID: req.CompanyID, To: req.AsOf}.Normalize()
	var tb reports.TrialBalance
	err := s.cached(ctx, key, &tb, func(ctx context.Context) (any, error) {
		return s.buildTrialBalance(ctx, key)
	})
	return tb, err
}

// ProfitAndLoss builds the profit and loss statement over [req.From, req.To].
func (s *Service) ProfitAndLoss(ctx context.Context, req PeriodRequest) (reports.ProfitAndLoss, error) {
	if err := s.validate(req); err != nil {
		return reports.ProfitAndLoss{}, err
	}
	if err := checkPeriod(req.From, req.To); err != nil {
		return reports.ProfitAndLoss{}, err
	}
	key := runs.Key{Kind: reports.KindProfitAndLoss, CompanyID: req.CompanyID, From: req.From, To: req.To}.Normalize()
	var pl reports.ProfitAndLoss
	err := s.cached(ctx, key, &pl, func(ctx context.Context) (any, error) {
		return s.buildProfitAndLoss(ctx, key)
	})
	return pl, err
}

// BalanceSheet builds the vertical or, when req.Horizontal is set, the two
// column balance sheet as of req.To.
func (s *Service) BalanceSheet(ctx context.Context, req BalanceSheetRequest) (BalanceSheetResult, error) {
	if err := s.validate(req); err != nil {
		return BalanceSheetResult{}, err
	}
	if err := checkRange(req.From, req.To); err != nil {
		return BalanceSheetResult{}, err
	}
	kind := reports.KindBalanceSheet
	if req.Horizontal {
		kind = reports.KindBalanceSheetHorizontal
	}
	key := runs.Key{Kind: kind, CompanyID: req.CompanyID, From: req.From, To: req.To}.Normalize()
	var res BalanceSheetResult
	err := s.cached(ctx, key, &res, func(ctx context.Context) (any, error) {
		return s.buildBalanceSheet(ctx, key)
	})
	return res, err
}

// Lines builds the flat line list of a key without consulting the cache.
// Horizontal balance sheets return the liabilities column followed by the
// assets column.
func (s *Service) Lines(ctx context.Context, key runs.Key) ([]reports.Line, error) {
	if err := s.validateKey(key); err != nil {
		return nil, err
	}
	key = key.Normalize()
	switch key.Kind {
	case reports.KindTrialBalance:
		tb, err := s.buildTrialBalance(ctx, key)
		return tb.Lines, err
	case reports.KindProfitAndLoss:
		pl, err := s.buildProfitAndLoss(ctx, key)
		return pl.Lines, err
	default:
		res, err := s.buildBalanceSheet(ctx, key)
		if err != nil {
			return nil, err
		}
		if res.Horizontal != nil {
			lines := make([]reports.Line, 0, len(res.Horizontal.Liabilities)+len(res.Horizontal.Assets))
			lines = append(lines, res.Horizontal.Liabilities...)
			return append(lines, res.Horizontal.Assets...), nil
		}
		return res.Vertical.Lines, nil
	}
}

// Generate rebuilds the statement of key from the ledger and, when a store is
// configured, replaces the persisted line set of that key. Concurrent
// generations of the same key are rejected with ErrGenerationInProgress.
func (s *Service) Generate(ctx context.Context, key runs.Key) (runs.Run, error) {
	if err := s.validateKey(key); err != nil {
		return runs.Run{}, err
	}
	key = key.Normalize()
	release, err := s.locker.Acquire(ctx, key.String())
	if err != nil {
		return runs.Run{}, err
	}
	defer release()

	lines, err := s.Lines(ctx, key)
	if err != nil {
		return runs.Run{}, err
	}
	run := runs.Run{ID: s.newID(), Key: key, GeneratedAt: s.now().UTC(), Lines: lines}
	if s.store != nil {
		if err := s.store.Replace(ctx, run); err != nil {
			return runs.Run{}, fmt.Errorf("accounting: persist run: %w", err)
		}
	}
	s.logger.Info("report generated",
		slog.String("kind", string(key.Kind)),
		slog.Int64("company_id", key.CompanyID),
		slog.String("run_id", run.ID.String()),
		slog.Int("lines", len(lines)))
	return run, nil
}

// Latest returns the last persisted run of key.
func (s *Service) Latest(ctx context.Context, key runs.Key) (runs.Run, error) {
	if err := s.validateKey(key); err != nil {
		return runs.Run{}, err
	}
	if s.store == nil {
		return runs.Run{}, runs.ErrRunNotFound
	}
	return s.store.Latest(ctx, key.Normalize())
}

// Document builds the presentation view of key for exporters.
func (s *Service) Document(ctx context.Context, key runs.Key, companyName string) (reports.Document, error) {
	if err := s.validateKey(key); err != nil {
		return reports.Document{}, err
	}
	key = key.Normalize()
	doc := reports.Document{
		Kind:        key.Kind,
		CompanyName: companyName,
		Subtitle:    reports.Subtitle(key.Kind, key.From, key.To),
		Filename:    reports.Filename(key.Kind, key.From, key.To),
	}
	switch key.Kind {
	case reports.KindTrialBalance:
		tb, err := s.TrialBalance(ctx, TrialBalanceRequest{CompanyID: key.CompanyID, AsOf: key.To})
		if err != nil {
			return reports.Document{}, err
		}
		doc.Lines = tb.Lines
	case reports.KindProfitAndLoss:
		pl, err := s.ProfitAndLoss(ctx, PeriodRequest{CompanyID: key.CompanyID, From: key.From, To: key.To})
		if err != nil {
			return reports.Document{}, err
		}
		doc.Lines = pl.Lines
	default:
		res, err := s.BalanceSheet(ctx, BalanceSheetRequest{
			CompanyID:  key.CompanyID,
			From:       key.From,
			To:         key.To,
			Horizontal: key.Kind == reports.KindBalanceSheetHorizontal,
		})
		if err != nil {
			return reports.Document{}, err
		}
		if res.Horizontal != nil {
			doc.Lines = res.Horizontal.Liabilities
			doc.Right = res.Horizontal.Assets
		} else {
			doc.Lines = res.Vertical.Lines
		}
	}
	return doc, nil
}

// Invalidate drops every cached statement, typically after ledger postings.
func (s *Service) Invalidate(ctx context.Context) error {
	ver, err := s.cache.Bump(ctx)
	if err != nil {
		return fmt.Errorf("accounting: bump cache: %w", err)
	}
	if ver > 0 {
		s.logger.Info("report cache invalidated", slog.Int64("version", ver))
	}
	return nil
}

func (s *Service) buildTrialBalance(ctx context.Context, key runs.Key) (tb reports.TrialBalance, err error) {
	start := time.Now()
	defer func() { s.metrics.observeBuild(string(key.Kind), start, err) }()

	accounts, err := s.source.AccountsByType(ctx, key.CompanyID, ledger.TrialBalanceTypes())
	if err != nil {
		return reports.TrialBalance{}, fmt.Errorf("accounting: trial balance accounts: %w", err)
	}
	closing, err := s.engine.ClosingBalances(ctx, balances.ClosingQuery{
		CompanyID: key.CompanyID,
		Accounts:  accounts,
		AsOf:      key.To,
	})
	if err != nil {
		return reports.TrialBalance{}, err
	}
	tb = reports.BuildTrialBalance(reports.FromBalances(accounts, closing))
	if !tb.Balanced {
		s.metrics.observeUnbalanced(string(key.Kind))
		s.logger.Warn("trial balance does not balance",
			slog.Int64("company_id", key.CompanyID),
			slog.String("as_of", key.To.Format(time.DateOnly)),
			slog.String("debit", tb.TotalDebit.StringFixed(2)),
			slog.String("credit", tb.TotalCredit.StringFixed(2)),
			slog.String("policy", string(s.engine.Policy())))
		if s.strictTB {
			return reports.TrialBalance{}, fmt.Errorf("%w: difference %s", ErrUnbalancedTrialBalance, tb.Difference.StringFixed(2))
		}
	}
	return tb, nil
}

func (s *Service) buildProfitAndLoss(ctx context.Context, key runs.Key) (pl reports.ProfitAndLoss, err error) {
	start := time.Now()
	defer func() { s.metrics.observeBuild(string(key.Kind), start, err) }()

	accounts, err := s.source.AccountsByType(ctx, key.CompanyID, ledger.ProfitLossTypes())
	if err != nil {
		return reports.ProfitAndLoss{}, fmt.Errorf("accounting: profit and loss accounts: %w", err)
	}
	period, err := s.engine.PeriodResult(ctx, balances.PeriodQuery{
		CompanyID: key.CompanyID,
		Accounts:  accounts,
		From:      key.From,
		To:        key.To,
	})
	if err != nil {
		return reports.ProfitAndLoss{}, err
	}
	return reports.BuildProfitAndLoss(reports.FromBalances(accounts, period.Raw)), nil
}

func (s *Service) buildBalanceSheet(ctx context.Context, key runs.Key) (res BalanceSheetResult, err error) {
	start := time.Now()
	defer func() { s.metrics.observeBuild(string(key.Kind), start, err) }()

	in, err := s.balanceSheetInput(ctx, key)
	if err != nil {
		return BalanceSheetResult{}, err
	}
	var balanced bool
	var liabilities, assets decimal.Decimal
	if key.Kind == reports.KindBalanceSheetHorizontal {
		h := reports.BuildHorizontalBalanceSheet(in)
		res.Horizontal = &h
		balanced, liabilities, assets = h.Balanced, h.TotalLiabilities, h.TotalAssets
	} else {
		v := reports.BuildBalanceSheet(in)
		res.Vertical = &v
		balanced, liabilities, assets = v.Balanced, v.TotalLiabilities, v.TotalAssets
	}
	if !balanced {
		s.metrics.observeUnbalanced(string(key.Kind))
		s.logger.Warn("balance sheet sides differ",
			slog.Int64("company_id", key.CompanyID),
			slog.String("as_of", key.To.Format(time.DateOnly)),
			slog.String("liabilities", liabilities.StringFixed(2)),
			slog.String("assets", assets.StringFixed(2)))
	}
	return res, nil
}

// balanceSheetInput gathers closing balances as of key.To together with the
// profit of the period and the profit accumulated before it.
func (s *Service) balanceSheetInput(ctx context.Context, key runs.Key) (reports.BalanceSheetInput, error) {
	accounts, err := s.source.AccountsByType(ctx, key.CompanyID, ledger.BalanceSheetTypes())
	if err != nil {
		return reports.BalanceSheetInput{}, fmt.Errorf("accounting: balance sheet accounts: %w", err)
	}
	closing, err := s.engine.ClosingBalances(ctx, balances.ClosingQuery{
		CompanyID: key.CompanyID,
		Accounts:  accounts,
		AsOf:      key.To,
	})
	if err != nil {
		return reports.BalanceSheetInput{}, err
	}

	plAccounts, err := s.source.AccountsByType(ctx, key.CompanyID, ledger.ProfitLossTypes())
	if err != nil {
		return reports.BalanceSheetInput{}, fmt.Errorf("accounting: profit and loss accounts: %w", err)
	}
	period, err := s.engine.PeriodResult(ctx, balances.PeriodQuery{
		CompanyID: key.CompanyID,
		Accounts:  plAccounts,
		From:      key.From,
		To:        key.To,
	})
	if err != nil {
		return reports.BalanceSheetInput{}, err
	}
	in := reports.BalanceSheetInput{
		Accounts:   reports.FromBalances(accounts, closing),
		PeriodNet:  period.Net,
		OpeningNet: decimal.Zero,
	}
	if !key.From.IsZero() {
		opening, err := s.engine.PeriodResult(ctx, balances.PeriodQuery{
			CompanyID: key.CompanyID,
			Accounts:  plAccounts,
			To:        key.From.AddDate(0, 0, -1),
		})
		if err != nil {
			return reports.BalanceSheetInput{}, err
		}
		in.OpeningNet = opening.Net
	}
	return in, nil
}

// cached serves key from the statement cache, building it on a miss.
func (s *Service) cached(ctx context.Context, key runs.Key, dest any, build func(context.Context) (any, error)) error {
	if !s.cache.Enabled() {
		value, err := build(ctx)
		if err != nil {
			return err
		}
		return assign(dest, value)
	}
	cacheKey, err := s.cache.Key(ctx, key.String())
	if err != nil {
		s.logger.Warn("report cache unavailable", slog.Any("error", err))
		value, err := build(ctx)
		if err != nil {
			return err
		}
		return assign(dest, value)
	}
	missed := false
	err = s.cache.FetchJSON(ctx, cacheKey, dest, func(ctx context.Context) (any, error) {
		missed = true
		return build(ctx)
	})
	s.metrics.observeCache(string(key.Kind), !missed)
	return err
}

func assign(dest, value any) error {
	switch d := dest.(type) {
	case *reports.TrialBalance:
		*d = value.(reports.TrialBalance)
	case *reports.ProfitAndLoss:
		*d = value.(reports.ProfitAndLoss)
	case *BalanceSheetResult:
		*d = value.(BalanceSheetResult)
	default:
		return fmt.Errorf("accounting: unsupported cache target %T", dest)
	}
	return nil
}

func (s *Service) validate(req any) error {
	err := s.validator.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	for _, fe := range verrs {
		switch fe.Field() {
		case "CompanyID":
			return ErrCompanyRequired
		case "AsOf", "From", "To":
			return ErrInvalidDateRange
		}
	}
	return fmt.Errorf("%w: %s", ErrValidation, verrs[0].Field())
}

func (s *Service) validateKey(key runs.Key) error {
	if kind, ok := reports.ParseKind(string(key.Kind)); !ok || kind != key.Kind {
		return ErrUnknownReport
	}
	if key.CompanyID <= 0 {
		return ErrCompanyRequired
	}
	if key.Kind == reports.KindProfitAndLoss {
		return checkPeriod(key.From, key.To)
	}
	from := key.From
	if key.Kind == reports.KindTrialBalance {
		from = time.Time{}
	}
	return checkRange(from, key.To)
}
