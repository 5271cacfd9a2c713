package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/rtfm/internal/compiler"
	"github.com/roach88/rtfm/internal/ir"
	"github.com/roach88/rtfm/internal/resource"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// ResourceSummary is one row of the resource descriptor table.
type ResourceSummary struct {
	Name      string      `json:"name"`
	Width     int         `json:"width"`
	Init      uint32      `json:"init"`
	Ceiling   ir.Priority `json:"ceiling"`
	Accessors []string    `json:"accessors"`
	Shared    bool        `json:"shared"`
}

// CompilationResult is the compiled declaration and its ceilings.
type CompilationResult struct {
	App       *ir.AppSpec       `json:"app"`
	AppHash   string            `json:"app_hash"`
	Resources []ResourceSummary `json:"resources"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <spec-dir>",
		Short: "Validate an app declaration and print its ceilings",
		Long: `Compile the CUE app declaration in a directory, validate it and print
the resource descriptor table: every resource with its ceiling and the
tasks that may claim it.

Exit codes:
  0 - Declaration is valid
  2 - Load, compile or configuration error`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the compiled declaration as JSON to this file")

	return cmd
}

func runCompile(opts *CompileOptions, specDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	spec, err := compiler.LoadApp(specDir)
	if err != nil {
		return outputCompileErrors(formatter, []error{err})
	}
	formatter.VerboseLog("Compiled app %s from %s", spec.Name, specDir)

	table, err := resource.Build(spec)
	if err != nil {
		return outputCompileErrors(formatter, splitErrors(err))
	}

	hash, err := ir.AppHash(spec)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "hashing declaration", err)
	}
	result := &CompilationResult{App: spec, AppHash: hash, Resources: summarizeResources(spec, table)}

	if opts.Output != "" {
		if err := writeJSONFile(opts.Output, result); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, "writing output file", err)
		}
	}

	return outputCompileSuccess(formatter, result, opts.Output)
}

func summarizeResources(spec *ir.AppSpec, table *resource.Table) []ResourceSummary {
	out := make([]ResourceSummary, 0, len(spec.Resources))
	for _, d := range table.Descriptors() {
		ids := table.Accessors(d.Spec.ID)
		names := make([]string, len(ids))
		for i, id := range ids {
			names[i] = spec.Task(id).Name
		}
		out = append(out, ResourceSummary{
			Name:      d.Spec.Name,
			Width:     d.Spec.Width,
			Init:      d.Spec.Init,
			Ceiling:   d.Ceiling,
			Accessors: names,
			Shared:    table.Shared(d.Spec.ID),
		})
	}
	return out
}

func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, outputFile string) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled app %s: %d task(s), %d resource(s)\n\n",
		result.App.Name, len(result.App.Tasks), len(result.App.Resources))

	fmt.Fprintln(w, "Tasks:")
	for _, t := range result.App.Tasks {
		fmt.Fprintf(w, "  %s: priority %d", t.Name, t.Priority)
		if t.Interarrival > 0 {
			fmt.Fprintf(w, ", interarrival %d", t.Interarrival)
		}
		if t.Reentrant {
			fmt.Fprint(w, ", reentrant")
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Resources:")
	for _, r := range result.Resources {
		shared := ""
		if r.Shared {
			shared = " (shared)"
		}
		fmt.Fprintf(w, "  %s: u%d = %d, ceiling %d, accessors %v%s\n",
			r.Name, r.Width, r.Init, r.Ceiling, r.Accessors, shared)
	}

	if outputFile != "" {
		fmt.Fprintf(w, "\nWrote declaration to %s\n", outputFile)
	}
	return nil
}

// outputCompileErrors reports every error and fails with exit code 2.
func outputCompileErrors(formatter *OutputFormatter, errs []error) error {
	if formatter.Format == "json" {
		cliErrors := make([]CLIError, len(errs))
		for i, err := range errs {
			cliErrors[i] = CLIError{Code: declarationErrorCode(err), Message: err.Error()}
		}
		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(CLIResponse{Status: "error", Error: &cliErrors[0], Data: cliErrors}); err != nil {
			return err
		}
		return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Compilation failed")
	fmt.Fprintln(formatter.Writer)
	for _, err := range errs {
		fmt.Fprintf(formatter.Writer, "  %s: %s\n", declarationErrorCode(err), err.Error())
	}
	return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
}

// splitErrors flattens an errors.Join tree one level.
func splitErrors(err error) []error {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}
	return []error{err}
}

func writeJSONFile(filename string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}
