package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lucidrun/lucid/internal/catalog"
	"github.com/lucidrun/lucid/internal/wire"
)

// KindsEntry is one catalog row in JSON output.
type KindsEntry struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Format  string `json:"format,omitempty"`
	Default string `json:"default"`
}

// NewKindsCommand creates the kinds command.
func NewKindsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlayOptions{}

	cmd := &cobra.Command{
		Use:           "kinds",
		Short:         "List the control catalog",
		Long:          "List every control in the catalog with its wire kind, format, and default value.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKinds(rootOpts, opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.CatalogPath, "catalog", "", "CUE control catalog file (default: built-in)")

	return cmd
}

func runKinds(rootOpts *RootOptions, opts *PlayOptions, cmd *cobra.Command) error {
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

	entries := make([]KindsEntry, 0, cat.Len())
	for _, ctrl := range cat.Controls() {
		def, err := wire.MarshalCanonical(defaultForDisplay(ctrl))
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("control %q default", ctrl.Name), err)
		}
		entries = append(entries, KindsEntry{
			Name:    ctrl.Name,
			Kind:    string(ctrl.Kind),
			Format:  ctrl.Format,
			Default: string(def),
		})
	}

	if formatter.Format == "json" {
		return formatter.Success(entries)
	}

	w := tabwriter.NewWriter(formatter.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CONTROL\tKIND\tFORMAT\tDEFAULT")
	for _, e := range entries {
		format := e.Format
		if format == "" {
			format = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Name, e.Kind, format, e.Default)
	}
	return w.Flush()
}

// defaultForDisplay maps a control default into the canonical JSON value
// domain. Bytes defaults render as their length placeholder since raw
// bytes are not canonical JSON values.
func defaultForDisplay(ctrl catalog.Control) any {
	if b, ok := ctrl.Default.([]byte); ok {
		return fmt.Sprintf("<%d bytes>", len(b))
	}
	return ctrl.Default
}
