package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/rtfm/internal/harness"
)

// MeasureResult is the output of the measure command.
type MeasureResult struct {
	App     string                 `json:"app"`
	RunID   string                 `json:"run_id"`
	Vectors []harness.VectorTiming `json:"vectors"`
}

// NewMeasureCommand creates the measure command.
func NewMeasureCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AppOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "measure",
		Short: "Measure claim and total times of recorded vectors",
		Long: `Replay every vector of a stored run alone on the scheduler, from a cycle
counter reset to zero, and record the cycle of each start, enter, exit and
finish of the vector's activation. The timing traces are stored with the
run, replacing earlier measurements.

Exit codes:
  0 - All vectors measured
  1 - A vector did not reproduce its recorded outcome
  2 - Command error (database not found, no run, etc.)

Examples:
  rtfm measure --app preempt --db ./rtfm.db`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMeasure(opts, cmd)
		},
	}

	addAppFlags(cmd, opts, true)
	cmd.Flags().StringVar(&opts.RunID, "run", "", "measure this run instead of the latest")

	return cmd
}

func runMeasure(opts *AppOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	formatter := newFormatter(opts.RootOptions, cmd)

	app, err := loadApp(formatter, opts)
	if err != nil {
		return err
	}
	st, run, err := openRun(ctx, formatter, opts, app)
	if err != nil {
		return err
	}
	defer st.Close()

	vectors, err := st.ReadVectors(ctx, run.ID, "")
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to read vectors", err)
	}

	ms, err := harness.Measure(ctx, app, vectors, harness.WithLogger(formatter.Logger()))
	if errors.Is(err, harness.ErrOutcomeMismatch) {
		return formatter.Fail(ExitFailure, ErrCodeGeneric, "measurement aborted", err)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "measurement failed", err)
	}
	if err := st.WriteMeasurements(ctx, run.ID, ms); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to store measurements", err)
	}
	formatter.VerboseLog("Stored %d measurement(s) for run %s", len(ms), run.ID)

	result := MeasureResult{App: app.Spec.Name, RunID: run.ID, Vectors: make([]harness.VectorTiming, 0, len(ms))}
	for _, m := range ms {
		vt, err := harness.Timing(m)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, "unbalanced timing trace", err)
		}
		result.Vectors = append(result.Vectors, vt)
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	outputMeasureText(formatter, result)
	return nil
}

func outputMeasureText(f *OutputFormatter, result MeasureResult) {
	w := f.Writer
	fmt.Fprintf(w, "Run %s: %d vector(s) measured\n\n", result.RunID, len(result.Vectors))
	for _, vt := range result.Vectors {
		fmt.Fprintf(w, "%s %s: total %d cycle(s)\n", shortID(vt.Vector), vt.Task, vt.Total)
		for _, c := range vt.Claims {
			fmt.Fprintf(w, "  claim %s (ceiling %d): %d cycle(s) [%d..%d]\n",
				c.Resource, c.Ceiling, c.Time, c.Enter, c.Exit)
		}
	}
}
