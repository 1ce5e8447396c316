package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/tokensale/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // scenario file name filter (substring)
	Golden string // golden directory, default <scenarios-dir>/golden
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []harness.Outcome `json:"scenarios"`
	Passed    int               `json:"passed"`
	Failed    int               `json:"failed"`
	Total     int               `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run scenario conformance tests",
		Long: `Run scenario files against a fresh in-memory engine each.

Every scenario's steps run in order; its trace and final state are checked
against its assertions and its trace against <scenarios-dir>/golden.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  tokensale test ./scenarios
  tokensale test ./scenarios --filter transfer
  tokensale test ./scenarios --update
  tokensale test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "only run scenario files whose name contains this")
	cmd.Flags().StringVar(&opts.Golden, "golden", "", "golden file directory (default <scenarios-dir>/golden)")

	return cmd
}

func runTests(opts *TestOptions, scenariosDir string, cmd *cobra.Command) error {
	if _, err := os.Stat(scenariosDir); errors.Is(err, fs.ErrNotExist) {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", scenariosDir))
	}

	goldenDir := opts.Golden
	if goldenDir == "" {
		goldenDir = filepath.Join(scenariosDir, "golden")
	}

	outcomes, err := harness.RunSuite(scenariosDir, harness.SuiteOptions{
		Filter:    opts.Filter,
		GoldenDir: goldenDir,
		Update:    opts.Update,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	result := TestResult{Scenarios: outcomes, Total: len(outcomes)}
	for _, o := range outcomes {
		if o.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	f := newFormatter(opts.RootOptions, cmd)
	if f.Format == "json" {
		status := "ok"
		if result.Failed > 0 {
			status = "error"
		}
		if err := f.encode(CLIResponse{Status: status, Data: result}); err != nil {
			return err
		}
	} else {
		writeTestText(f.Writer, result)
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d scenarios failed", result.Failed, result.Total))
	}
	return nil
}

func writeTestText(w io.Writer, result TestResult) {
	if result.Total == 0 {
		fmt.Fprintln(w, "No scenarios found.")
		return
	}

	for _, o := range result.Scenarios {
		if !o.Pass {
			fmt.Fprintf(w, "✗ %s\n", o.Name)
			for _, e := range o.Errors {
				fmt.Fprintf(w, "  %s\n", e)
			}
			switch o.Golden {
			case harness.GoldenMismatch:
				fmt.Fprintln(w, "  Golden file mismatch (run with --update to regenerate)")
			case harness.GoldenMissing:
				fmt.Fprintln(w, "  Golden file missing (run with --update to create it)")
			}
			continue
		}
		if o.Golden == harness.GoldenUpdated {
			fmt.Fprintf(w, "✓ %s (golden updated)\n", o.Name)
		} else {
			fmt.Fprintf(w, "✓ %s\n", o.Name)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
}
