package cli

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/rtfm/internal/harness"
)

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AppOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Compute WCET, blocking and response times",
		Long: `Analyze the stored measurements of a run: the worst-case execution time
of each task over its vectors, the blocking time from lower-priority
critical sections, and the response time against each task's
inter-arrival time. A run without measurements is measured first.

Exit codes:
  0 - No task is unschedulable
  1 - At least one task misses its inter-arrival time
  2 - Command error (database not found, no run, etc.)

Examples:
  rtfm analyze --app preempt --db ./rtfm.db
  rtfm analyze --app preempt --db ./rtfm.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(opts, cmd)
		},
	}

	addAppFlags(cmd, opts, true)
	cmd.Flags().StringVar(&opts.RunID, "run", "", "analyze this run instead of the latest")

	return cmd
}

func runAnalyze(opts *AppOptions, cmd *cobra.Command) error {
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

	ms, err := st.ReadMeasurements(ctx, run.ID)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to read measurements", err)
	}
	if len(ms) == 0 {
		formatter.VerboseLog("Run %s has no measurements, measuring", run.ID)
		vectors, err := st.ReadVectors(ctx, run.ID, "")
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to read vectors", err)
		}
		ms, err = harness.Measure(ctx, app, vectors, harness.WithLogger(formatter.Logger()))
		if errors.Is(err, harness.ErrOutcomeMismatch) {
			return formatter.Fail(ExitFailure, ErrCodeGeneric, "measurement aborted", err)
		}
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, "measurement failed", err)
		}
		if err := st.WriteMeasurements(ctx, run.ID, ms); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to store measurements", err)
		}
	}

	analysis, err := harness.Analyze(app.Spec, ms)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "analysis failed", err)
	}

	if opts.Format == "json" {
		if err := formatter.Success(analysis); err != nil {
			return err
		}
	} else {
		outputAnalysisText(formatter, analysis)
	}

	var missed []string
	for _, tt := range analysis.Tasks {
		if tt.Verdict == harness.Unschedulable {
			missed = append(missed, tt.Task)
		}
	}
	if len(missed) > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("unschedulable: %v", missed))
	}
	return nil
}

func outputAnalysisText(f *OutputFormatter, a *harness.Analysis) {
	w := f.Writer
	fmt.Fprintf(w, "App %s: %d measured vector(s)\n\n", a.App, len(a.Vectors))

	fmt.Fprintln(w, "Tasks:")
	for _, tt := range a.Tasks {
		fmt.Fprintf(w, "  %s (priority %d): WCET %d, blocking %d", tt.Task, tt.Priority, tt.WCET, tt.Blocking)
		if tt.Delay > 0 {
			fmt.Fprintf(w, ", delay %d", tt.Delay)
		}
		switch tt.Verdict {
		case harness.Unknown:
			fmt.Fprint(w, ", response unknown")
		default:
			fmt.Fprintf(w, ", response %d / %d", tt.Response, tt.Interarrival)
		}
		fmt.Fprintf(w, " [%s]\n", tt.Verdict)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Critical sections:")
	for _, rt := range a.Resources {
		fmt.Fprintf(w, "  %s (ceiling %d):", rt.Resource, rt.Ceiling)
		if len(rt.Longest) == 0 {
			fmt.Fprintln(w, " never claimed")
			continue
		}
		tasks := make([]string, 0, len(rt.Longest))
		for task := range rt.Longest {
			tasks = append(tasks, task)
		}
		sort.Strings(tasks)
		for _, task := range tasks {
			fmt.Fprintf(w, " %s=%d", task, rt.Longest[task])
		}
		fmt.Fprintln(w)
	}

	if f.Verbose {
		fmt.Fprintln(w)
		for _, vt := range a.Vectors {
			fmt.Fprintf(w, "  %s %s: total %d, %d claim(s)\n", shortID(vt.Vector), vt.Task, vt.Total, len(vt.Claims))
		}
	}
}
