package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/htmt/internal/diagnostics"
	"github.com/conneroisu/htmt/internal/site"
)

// elementInfo is one row of `htmt list`.
type elementInfo struct {
	Name string   `json:"name" yaml:"name"`
	Uses []string `json:"uses" yaml:"uses"`
}

func newListCommand(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"l"},
		Short:   "List elements and the elements they use",
		Long: `List every element in the manifest, in manifest order, with the
elements each one uses directly.

Examples:
  htmt list            # Table
  htmt list -f json    # JSON
  htmt list -f yaml    # YAML`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runList(cmd, format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format (table, json, yaml)")
	return cmd
}

func (a *app) runList(cmd *cobra.Command, format string) error {
	switch format {
	case "table", "json", "yaml":
	default:
		return fmt.Errorf("unsupported format: %s (supported: table, json, yaml)", format)
	}

	gen := site.NewGenerator(afero.NewOsFs(), a.logger, diagnostics.Discard)
	s, err := gen.Load(cmd.Context(), a.manifestPath(), nil)
	if err != nil {
		return err
	}
	deps, err := s.Elements.Dependencies()
	if err != nil {
		return err
	}

	names := s.Elements.KnownNames()
	rows := make([]elementInfo, 0, len(names))
	for _, name := range names {
		rows = append(rows, elementInfo{Name: name, Uses: deps[name]})
	}
	return writeElements(cmd.OutOrStdout(), format, rows)
}

func writeElements(w io.Writer, format string, rows []elementInfo) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rows); err != nil {
			return err
		}
		return enc.Close()
	default:
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tUSES")
		for _, row := range rows {
			uses := strings.Join(row.Uses, ", ")
			if uses == "" {
				uses = "-"
			}
			fmt.Fprintf(tw, "%s\t%s\n", row.Name, uses)
		}
		return tw.Flush()
	}
}
