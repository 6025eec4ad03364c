package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/conneroisu/htmt/internal/diagnostics"
	"github.com/conneroisu/htmt/internal/errors"
	"github.com/conneroisu/htmt/internal/site"
)

func newCheckCommand(a *app) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:     "check",
		Aliases: []string{"c"},
		Short:   "Expand every page without writing output",
		Long: `Resolve every element and expand every page exactly as build does, but
write nothing. Each diagnostic is printed as "source:line,column; reason".

Examples:
  htmt check            # Report failures and diagnostics
  htmt check --strict   # Also fail when any diagnostic is reported`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runCheck(cmd, strict)
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "treat diagnostics as errors")
	return cmd
}

func (a *app) runCheck(cmd *cobra.Command, strict bool) error {
	collector := diagnostics.NewCollector()
	gen := site.NewGenerator(afero.NewOsFs(), a.logger, collector)

	res, err := gen.Generate(cmd.Context(), site.Options{
		ManifestPath: a.manifestPath(),
		Output:       a.cfg.Build.Output,
		Workers:      a.cfg.Build.Workers,
		DryRun:       true,
	})

	found := collector.Diagnostics()
	sort.SliceStable(found, func(i, j int) bool {
		if found[i].Source != found[j].Source {
			return found[i].Source < found[j].Source
		}
		if found[i].Line != found[j].Line {
			return found[i].Line < found[j].Line
		}
		return found[i].Column < found[j].Column
	})

	out := cmd.OutOrStdout()
	for _, d := range found {
		fmt.Fprintln(out, d.Message())
	}
	if res != nil {
		printResult(out, res, true)
	}
	if n := collector.Count(); n > 0 {
		fmt.Fprintf(out, "%d diagnostics\n", n)
	}

	if err != nil {
		return err
	}
	if strict && collector.Count() > 0 {
		return errors.NewValidationError(errors.ErrCodeDiagnostics,
			fmt.Sprintf("%d diagnostics reported", collector.Count()))
	}
	return nil
}
