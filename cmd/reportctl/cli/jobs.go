package cli

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/odyssey-reports/jobs"
)

// JobsCLI wraps manual management helpers for the report queues.
type JobsCLI struct {
	client    *jobs.Client
	inspector *asynq.Inspector
}

// NewJobsCLI initialises the CLI helpers using the provided Redis address.
func NewJobsCLI(redisAddr string) (*JobsCLI, error) {
	if redisAddr == "" {
		return nil, errors.New("jobs cli: redis address required")
	}
	opt := asynq.RedisClientOpt{Addr: redisAddr}
	client, err := jobs.NewClient(opt)
	if err != nil {
		return nil, err
	}
	return &JobsCLI{client: client, inspector: asynq.NewInspector(opt)}, nil
}

// Close releases underlying resources.
func (c *JobsCLI) Close() error {
	var err error
	if c.inspector != nil {
		if closeErr := c.inspector.Close(); closeErr != nil {
			err = closeErr
		}
	}
	if c.client != nil {
		if closeErr := c.client.Close(); closeErr != nil {
			err = closeErr
		}
	}
	return err
}

// Regenerate enqueues a statement regeneration with the given scope.
func (c *JobsCLI) Regenerate(ctx context.Context, payload jobs.RegeneratePayload) (*asynq.TaskInfo, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("jobs cli: client not configured")
	}
	return c.client.EnqueueRegenerate(ctx, payload)
}

// Invalidate enqueues a cache invalidation.
func (c *JobsCLI) Invalidate(ctx context.Context) (*asynq.TaskInfo, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("jobs cli: client not configured")
	}
	return c.client.EnqueueInvalidate(ctx)
}

// QueueStats summarises the current queue state.
type QueueStats struct {
	Queue     string
	Pending   int
	Active    int
	Scheduled int
	Retry     int
}

// InspectQueues reports the metrics of the report and default queues.
func (c *JobsCLI) InspectQueues(ctx context.Context) ([]QueueStats, error) {
	if c == nil || c.inspector == nil {
		return nil, errors.New("jobs cli: inspector not configured")
	}
	var out []QueueStats
	for _, name := range []string{jobs.QueueReports, jobs.QueueDefault} {
		stats := QueueStats{Queue: name}
		info, err := c.inspector.GetQueueInfo(name)
		if err != nil && !errors.Is(err, asynq.ErrQueueNotFound) {
			return nil, err
		}
		if info != nil {
			stats.Pending = info.Pending
			stats.Active = info.Active
			stats.Scheduled = info.Scheduled
			stats.Retry = info.Retry
		}
		out = append(out, stats)
	}
	return out, nil
}

func newEnqueueCommand(opts *options) *cobra.Command {
	var kinds []string
	var from, to string
	var all, invalidate bool
	cmd := &cobra.Command{
		Use:   "enqueue",
		Short: "Queue a regeneration of persisted report runs",
		Long: `Queue a reports:regenerate task for the worker. Without --all the task is
scoped to --company; with --all the worker uses REPORT_COMPANIES.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := NewJobsCLI(opts.redisAddr)
			if err != nil {
				return err
			}
			defer client.Close()

			if invalidate {
				info, err := client.Invalidate(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
				return nil
			}
			payload := jobs.RegeneratePayload{Kinds: kinds, From: from, To: to}
			if !all {
				payload.CompanyIDs = []int64{opts.companyID}
			}
			info, err := client.Regenerate(cmd.Context(), payload)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&kinds, "kind", nil, "report kinds to rebuild (default all)")
	cmd.Flags().StringVar(&from, "from", "", "start of the period (default start of year)")
	cmd.Flags().StringVar(&to, "to", "", "end of the period (default today)")
	cmd.Flags().BoolVar(&all, "all", false, "rebuild every configured company")
	cmd.Flags().BoolVar(&invalidate, "invalidate", false, "drop cached statements instead of regenerating")
	return cmd
}

func newQueueCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "queue",
		Short: "Show report queue statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := NewJobsCLI(opts.redisAddr)
			if err != nil {
				return err
			}
			defer client.Close()

			stats, err := client.InspectQueues(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "QUEUE\tPENDING\tACTIVE\tSCHEDULED\tRETRY")
			for _, s := range stats {
				fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\n", s.Queue, s.Pending, s.Active, s.Scheduled, s.Retry)
			}
			return tw.Flush()
		},
	}
}
