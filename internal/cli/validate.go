package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lucidrun/lucid/internal/catalog"
	"github.com/lucidrun/lucid/internal/harness"
)

// ScenarioIssue is one problem found in a scenario file.
type ScenarioIssue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool            `json:"valid"`
	Files  int             `json:"files"`
	Issues []ScenarioIssue `json:"issues,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlayOptions{}

	cmd := &cobra.Command{
		Use:   "validate <scenario.yaml>...",
		Short: "Validate scenario files without replaying them",
		Long: `Validate scenario YAML files without executing any run: strict field
checking (catches typos), required fields, step shape, and declared
controls resolving against the catalog.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.CatalogPath, "catalog", "", "CUE control catalog file (default: built-in)")

	return cmd
}

func runValidate(rootOpts *RootOptions, opts *PlayOptions, paths []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    rootOpts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   rootOpts.Verbose,
	}

	cat, err := loadCatalog(opts.CatalogPath)
	if err != nil {
		_ = formatter.Error(ErrCodeCatalogLoad, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load catalog", err)
	}

	result := ValidationResult{Valid: true, Files: len(paths)}
	for _, path := range paths {
		formatter.VerboseLog("Validating %s", path)
		scenario, err := harness.LoadScenario(path)
		if err != nil {
			result.Valid = false
			result.Issues = append(result.Issues, ScenarioIssue{Path: path, Message: err.Error()})
			continue
		}
		for _, msg := range checkControls(scenario, cat) {
			result.Valid = false
			result.Issues = append(result.Issues, ScenarioIssue{Path: path, Message: msg})
		}
	}

	if result.Valid {
		if formatter.Format == "json" {
			return formatter.Success(result)
		}
		fmt.Fprintf(formatter.Writer, "✓ %d scenario(s) valid\n", result.Files)
		return nil
	}

	if formatter.Format == "json" {
		if err := formatter.Error("E201", "scenario validation failed", result); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(formatter.Writer, "✗ Validation failed")
		for _, issue := range result.Issues {
			fmt.Fprintf(formatter.Writer, "  %s: %s\n", issue.Path, issue.Message)
		}
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation found %d issue(s)", len(result.Issues)))
}

// checkControls verifies every declared control resolves in the catalog.
func checkControls(scenario *harness.Scenario, cat *catalog.Catalog) []string {
	var issues []string
	for i, run := range scenario.Runs {
		for j, step := range run.Steps {
			if step.Declare == nil {
				continue
			}
			if _, ok := cat.Lookup(step.Declare.Control); !ok {
				issues = append(issues, fmt.Sprintf("runs[%d].steps[%d]: unknown control %q", i, j, step.Declare.Control))
			}
		}
	}
	return issues
}
