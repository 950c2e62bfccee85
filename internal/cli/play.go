package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/lucidrun/lucid/internal/catalog"
	"github.com/lucidrun/lucid/internal/harness"
	"github.com/lucidrun/lucid/internal/state"
	"github.com/lucidrun/lucid/internal/wire"
)

// Error codes for play failures.
const (
	ErrCodeScenarioLoad   = "E101" // scenario file missing or malformed
	ErrCodeCatalogLoad    = "E102" // catalog file missing or malformed
	ErrCodeReplay         = "E103" // replay aborted partway
	ErrCodeExpectFailures = "E104" // replay finished but expectations failed
)

// PlayOptions holds flags for the play command.
type PlayOptions struct {
	CatalogPath string
	UUIDs       bool
}

// NewPlayCommand creates the play command.
func NewPlayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlayOptions{}

	cmd := &cobra.Command{
		Use:   "play <scenario.yaml>",
		Short: "Replay a session scenario",
		Long: `Replay a session scenario file and report the trace, per-run
snapshots, and expectation results.

Scenarios drive a fresh session through a sequence of script runs:
client widget events, control declarations, direct writes, staleness
sweeps, and compaction.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(rootOpts, opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.CatalogPath, "catalog", "", "CUE control catalog file (default: built-in)")
	cmd.Flags().BoolVar(&opts.UUIDs, "uuids", false, "mint UUIDv7 widget identifiers instead of fixed ones")

	return cmd
}

func runPlay(rootOpts *RootOptions, opts *PlayOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    rootOpts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   rootOpts.Verbose,
	}

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		_ = formatter.Error(ErrCodeScenarioLoad, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	cat, err := loadCatalog(opts.CatalogPath)
	if err != nil {
		_ = formatter.Error(ErrCodeCatalogLoad, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load catalog", err)
	}

	hopts := []harness.Option{}
	if rootOpts.Verbose {
		logger := slog.New(slog.NewTextHandler(formatter.GetErrWriter(), &slog.HandlerOptions{Level: slog.LevelDebug}))
		hopts = append(hopts, harness.WithLogger(logger))
	}
	if opts.UUIDs {
		hopts = append(hopts, harness.WithIDGenerator(state.UUIDv7IDGenerator{}))
	}

	formatter.VerboseLog("Replaying scenario %q (%d run(s))", scenario.Name, len(scenario.Runs))

	result, err := harness.New(cat, hopts...).Run(scenario)
	if err != nil {
		_ = formatter.Error(ErrCodeReplay, err.Error(), nil)
		return WrapExitError(ExitCommandError, "replay aborted", err)
	}

	return outputPlayResult(formatter, scenario, result)
}

// loadCatalog resolves the control catalog: a CUE file when given,
// otherwise the built-in catalog.
func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.LoadBuiltin()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return catalog.Load(string(data))
}

func outputPlayResult(formatter *OutputFormatter, scenario *harness.Scenario, result *harness.Result) error {
	if formatter.Format == "json" {
		if !result.Pass {
			if err := formatter.Error(ErrCodeExpectFailures, "expectations failed", result); err != nil {
				return err
			}
			return NewExitError(ExitFailure, fmt.Sprintf("replay failed with %d error(s)", len(result.Errors)))
		}
		if err := formatter.Success(result); err != nil {
			return err
		}
		return nil
	}

	fmt.Fprintf(formatter.Writer, "Scenario: %s\n", scenario.Name)
	run := 0
	for _, ev := range result.Trace {
		if ev.Run != run {
			run = ev.Run
			fmt.Fprintf(formatter.Writer, "run %d:\n", run)
		}
		fmt.Fprintf(formatter.Writer, "  %s\n", formatTraceEvent(ev))
	}

	if len(result.Runs) > 0 {
		final := result.Runs[len(result.Runs)-1]
		fmt.Fprintln(formatter.Writer, "final state:")
		snapshot, err := wire.MarshalCanonical(final.State)
		if err != nil {
			return err
		}
		fmt.Fprintf(formatter.Writer, "  %s\n", snapshot)
	}

	if !result.Pass {
		fmt.Fprintln(formatter.Writer, "✗ FAIL")
		for _, msg := range result.Errors {
			fmt.Fprintf(formatter.Writer, "  %s\n", msg)
		}
		return NewExitError(ExitFailure, fmt.Sprintf("replay failed with %d error(s)", len(result.Errors)))
	}

	fmt.Fprintln(formatter.Writer, "✓ PASS")
	return nil
}

// formatTraceEvent renders one trace event as a human-readable line.
func formatTraceEvent(ev harness.TraceEvent) string {
	switch ev.Type {
	case "declare":
		line := fmt.Sprintf("declare %s (id %s)", ev.Control, ev.ID)
		if ev.Key != "" {
			line = fmt.Sprintf("declare %s %q (id %s)", ev.Control, ev.Key, ev.ID)
		}
		line += fmt.Sprintf(" = %v", ev.Value)
		if ev.Changed {
			line += " [push]"
		}
		return line
	case "set":
		if ev.Error != "" {
			return fmt.Sprintf("set %q rejected: %s", ev.Key, ev.Error)
		}
		return fmt.Sprintf("set %q = %v", ev.Key, ev.Value)
	case "delete":
		if ev.Error != "" {
			return fmt.Sprintf("delete %q failed: %s", ev.Key, ev.Error)
		}
		return fmt.Sprintf("delete %q", ev.Key)
	case "form":
		return fmt.Sprintf("form %s", ev.ID)
	default:
		return ev.Type
	}
}
