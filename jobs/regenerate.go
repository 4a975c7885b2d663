package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-reports/internal/accounting"
	"github.com/odyssey-erp/odyssey-reports/internal/accounting/reports"
	"github.com/odyssey-erp/odyssey-reports/internal/accounting/runs"
	jobmetrics "github.com/odyssey-erp/odyssey-reports/internal/jobs"
)

const dateLayout = "2006-01-02"

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// ReportService is the part of the report service the jobs drive.
type ReportService interface {
	Generate(ctx context.Context, key runs.Key) (runs.Run, error)
	Invalidate(ctx context.Context) error
}

// RegenerateJob rebuilds persisted statement runs.
type RegenerateJob struct {
	Service   ReportService
	Companies []int64
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
	clock     func() time.Time
}

// NewRegenerateJob constructs the job handler. companies is the default scope
// when a task does not name any.
func NewRegenerateJob(service ReportService, companies []int64, logger *slog.Logger, metrics *jobmetrics.Metrics) *RegenerateJob {
	return &RegenerateJob{
		Service:   service,
		Companies: companies,
		Logger:    logger,
		Metrics:   metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes a regeneration task. A key whose generation is already
// running elsewhere is skipped; any other failure aborts the task so asynq
// retries it.
func (j *RegenerateJob) Handle(ctx context.Context, task *asynq.Task) error {
	if j == nil || j.Service == nil {
		return errors.New("reports regenerate: service not configured")
	}
	var payload RegeneratePayload
	if len(task.Payload()) > 0 {
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return fmt.Errorf("reports regenerate: decode payload: %v: %w", err, asynq.SkipRetry)
		}
	}
	keys, err := j.Plan(payload)
	if err != nil {
		j.log().Error("plan regeneration", slog.Any("error", err))
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if len(keys) == 0 {
		j.log().Info("no companies configured for regeneration")
		return nil
	}

	tracker := j.metrics().Track(TaskReportsRegenerate)
	start := time.Now()
	generated := 0
	for _, key := range keys {
		_, err := j.Service.Generate(ctx, key)
		if errors.Is(err, accounting.ErrGenerationInProgress) {
			j.metrics().Skip(TaskReportsRegenerate, "locked")
			j.log().Info("generation already running", slog.String("key", key.String()))
			continue
		}
		if err != nil {
			j.log().Error("regenerate report", slog.String("key", key.String()), slog.Any("error", err))
			return tracker.End(err)
		}
		generated++
	}
	j.log().Info("regenerated reports", slog.Int("runs", generated), slog.Duration("duration", time.Since(start)))
	return tracker.End(nil)
}

// Plan expands a payload into the keys to generate.
func (j *RegenerateJob) Plan(payload RegeneratePayload) ([]runs.Key, error) {
	companies := payload.CompanyIDs
	if len(companies) == 0 {
		companies = j.Companies
	}
	kinds := reports.Kinds
	if len(payload.Kinds) > 0 {
		kinds = make([]reports.Kind, 0, len(payload.Kinds))
		for _, raw := range payload.Kinds {
			kind, ok := reports.ParseKind(raw)
			if !ok {
				return nil, fmt.Errorf("reports regenerate: unknown kind %q", raw)
			}
			kinds = append(kinds, kind)
		}
	}

	to := j.now()
	if payload.To != "" {
		parsed, err := time.Parse(dateLayout, payload.To)
		if err != nil {
			return nil, fmt.Errorf("reports regenerate: invalid to date %q", payload.To)
		}
		to = parsed
	}
	from := time.Date(to.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	if payload.From != "" {
		parsed, err := time.Parse(dateLayout, payload.From)
		if err != nil {
			return nil, fmt.Errorf("reports regenerate: invalid from date %q", payload.From)
		}
		from = parsed
	}
	if from.After(to) {
		return nil, fmt.Errorf("reports regenerate: from %s after to %s", from.Format(dateLayout), to.Format(dateLayout))
	}

	keys := make([]runs.Key, 0, len(companies)*len(kinds))
	for _, company := range companies {
		for _, kind := range kinds {
			keys = append(keys, runs.Key{Kind: kind, CompanyID: company, From: from, To: to}.Normalize())
		}
	}
	return keys, nil
}

// HandleInvalidate drops every cached statement.
func (j *RegenerateJob) HandleInvalidate(ctx context.Context, _ *asynq.Task) error {
	if j == nil || j.Service == nil {
		return errors.New("reports invalidate: service not configured")
	}
	tracker := j.metrics().Track(TaskReportsInvalidate)
	return tracker.End(j.Service.Invalidate(ctx))
}

func (j *RegenerateJob) metrics() *jobmetrics.Metrics {
	if j != nil && j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *RegenerateJob) log() *slog.Logger {
	if j != nil && j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskReportsRegenerate))
	}
	return slog.Default().With(slog.String("job", TaskReportsRegenerate))
}

func (j *RegenerateJob) now() time.Time {
	if j != nil && j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

// WithClock overrides the internal clock for deterministic tests.
func (j *RegenerateJob) WithClock(clock func() time.Time) {
	if j != nil && clock != nil {
		j.clock = clock
	}
}
