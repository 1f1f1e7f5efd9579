package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/JNewman-cell/GoogleCloudFunction/internal/domain"
	"github.com/JNewman-cell/GoogleCloudFunction/internal/matcher"
)

func newRunOnceCmd() *cobra.Command {
	var (
		at     string
		strict bool
	)
	cmd := &cobra.Command{
		Use:   "run-once",
		Short: "Run a single invocation for the current minute and exit",
		Long: "Run a single invocation for the current minute, or for --at HH:MM today in\n" +
			"SCHEDULE_TIMEZONE, and exit. Per-user failures and a failed profile fetch are\n" +
			"reported on stdout and in the logs; the exit status stays 0 so an external\n" +
			"scheduler does not retry the minute. With --strict either one exits 1.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd.Context(), cmd.OutOrStdout(), at, strict, time.Now())
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "evaluate this minute (HH:MM) instead of the current one")
	cmd.Flags().BoolVar(&strict, "strict", false, "exit 1 when profiles cannot be fetched or any due user fails")
	return cmd
}

func runOnce(ctx context.Context, out io.Writer, at string, strict bool, now time.Time) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, false)
	if err != nil {
		return &exitError{code: exitRuntimeError, err: err}
	}
	defer a.Close()

	evaluateAt := now.In(a.loc).Truncate(time.Minute)
	if at != "" {
		if evaluateAt, err = matcher.MinuteOn(evaluateAt, at); err != nil {
			return &exitError{code: exitInvalidConfig, err: err}
		}
	}

	batch := a.notifier.Invoke(ctx, domain.TriggerEvent{
		InvocationID: uuid.New(),
		Source:       domain.TriggerSourceManual,
		EvaluateAt:   evaluateAt,
		FiredAt:      now,
	})
	printBatch(out, batch)

	var failed error
	if batch.Err != nil {
		failed = batch.Err
	} else if failures := batch.Failures(); len(failures) > 0 {
		failed = fmt.Errorf("%d of %d users could not be notified", len(failures), len(batch.Results))
	}
	if failed == nil {
		return nil
	}
	if strict {
		return &exitError{code: exitRuntimeError, err: failed}
	}
	a.log.Warn().Err(failed).Msg("invocation completed with failures")
	return nil
}

func printBatch(out io.Writer, batch domain.BatchResult) {
	fmt.Fprintf(out, "invocation %s evaluated at %s\n", batch.InvocationID, batch.EvaluatedAt.Format("2006-01-02 15:04 MST"))
	if batch.Err != nil {
		fmt.Fprintf(out, "  profiles could not be fetched: %v\n", batch.Err)
	}

	counts := batch.Counts()
	outcomes := make([]string, 0, len(counts))
	for o := range counts {
		outcomes = append(outcomes, string(o))
	}
	sort.Strings(outcomes)
	for _, o := range outcomes {
		fmt.Fprintf(out, "  %-20s %d\n", o, counts[domain.Outcome(o)])
	}
	for _, f := range batch.Failures() {
		fmt.Fprintf(out, "  failed %s (%s): %v\n", f.ProfileKey, f.Outcome, f.Err)
	}
}
