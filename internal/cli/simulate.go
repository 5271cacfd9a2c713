package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/rtfm/internal/harness"
	"github.com/roach88/rtfm/internal/ir"
	"github.com/roach88/rtfm/internal/tracing"
)

// SimulateOptions holds flags for the simulate command.
type SimulateOptions struct {
	*RootOptions
	OtelOut string
}

// SimulateResult is the output of the simulate command.
type SimulateResult struct {
	Scenario string `json:"scenario"`
	*harness.Result
}

// NewSimulateCommand creates the simulate command.
func NewSimulateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SimulateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "simulate <scenario.yaml>",
		Short: "Run a scenario on the concrete scheduler",
		Long: `Run a YAML scenario: activate the scheduled tasks at their cycles on the
concrete scheduler, print the scheduling trace and check the scenario's
assertions.

With --otel-out the run is also exported as OpenTelemetry spans, one per
activation and claim, to the given file.

Exit codes:
  0 - All assertions held
  1 - One or more assertions failed
  2 - Command error (invalid scenario, unknown app, cycle budget, etc.)

Examples:
  rtfm simulate ./scenarios/preempt_at_release.yaml
  rtfm simulate ./scenarios/preempt_at_release.yaml --otel-out spans.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.OtelOut, "otel-out", "", "write OpenTelemetry spans as JSON to this file")

	return cmd
}

func runSimulate(opts *SimulateOptions, path string, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := formatter.Logger()

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "failed to load scenario", err)
	}
	formatter.VerboseLog("Loaded scenario %s: app %s, %d activation(s)", scenario.Name, scenario.App, len(scenario.Schedule))

	hopts := []harness.Option{harness.WithLogger(logger)}
	var finish func(*harness.Result) error
	if opts.OtelOut != "" {
		obs, done, err := exportSpans(ctx, opts.OtelOut, scenario.Name, logger)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, "failed to set up span export", err)
		}
		hopts = append(hopts, harness.WithObserver(obs))
		finish = done
	}

	result, err := harness.Run(ctx, scenario, hopts...)
	if finish != nil {
		if ferr := finish(result); ferr != nil && err == nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, "failed to export spans", ferr)
		}
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "scenario did not run", err)
	}

	out := SimulateResult{Scenario: scenario.Name, Result: result}
	if opts.Format == "json" {
		if err := formatter.Success(out); err != nil {
			return err
		}
	} else {
		outputSimulateText(formatter, out, opts.OtelOut)
	}

	if !result.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s: %d assertion(s) failed", scenario.Name, len(result.Errors)))
	}
	return nil
}

// exportSpans opens the span file and returns the observer to attach and
// a function that closes the spans and flushes the file.
func exportSpans(ctx context.Context, path, name string, logger *slog.Logger) (*tracing.Observer, func(*harness.Result) error, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	tp, err := tracing.NewProvider(f, ir.EngineVersion)
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	obs := tracing.NewObserver(ctx, tp, name)

	done := func(result *harness.Result) error {
		var last int64
		if result != nil && len(result.Trace) > 0 {
			last = result.Trace[len(result.Trace)-1].Cycle
		}
		obs.End(last)
		if err := tp.Shutdown(ctx); err != nil {
			_ = f.Close()
			return fmt.Errorf("shutdown tracer provider: %w", err)
		}
		logger.Debug("spans exported", "path", path)
		return f.Close()
	}
	return obs, done, nil
}

func outputSimulateText(f *OutputFormatter, out SimulateResult, otelOut string) {
	w := f.Writer
	fmt.Fprintf(w, "Scenario %s\n\n", out.Scenario)

	for _, rec := range out.Trace {
		fmt.Fprintf(w, "  [%3d] @%-4d %-7s %s", rec.Seq, rec.Cycle, rec.Kind, rec.Task)
		if rec.Resource != "" {
			fmt.Fprintf(w, " %s", rec.Resource)
		}
		fmt.Fprintf(w, " L%d", rec.Level)
		if rec.Detail != "" {
			fmt.Fprintf(w, " (%s)", rec.Detail)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w)
	names := make([]string, 0, len(out.Final))
	for name := range out.Final {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %s = %d\n", name, out.Final[name])
	}
	fmt.Fprintln(w)

	if out.Pass {
		fmt.Fprintln(w, "✓ PASS")
	} else {
		fmt.Fprintln(w, "✗ FAIL")
		for _, msg := range out.Errors {
			fmt.Fprintf(w, "  - %s\n", msg)
		}
	}
	if otelOut != "" {
		fmt.Fprintf(w, "\nWrote spans to %s\n", otelOut)
	}
}
