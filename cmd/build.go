package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/conneroisu/htmt/internal/config"
	"github.com/conneroisu/htmt/internal/diagnostics"
	"github.com/conneroisu/htmt/internal/monitoring"
	"github.com/conneroisu/htmt/internal/site"
)

func newBuildCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "build",
		Aliases: []string{"b"},
		Short:   "Build the site",
		Long: `Read the manifest, expand every page under pages/ and write the results
to the output directory together with the site's assets.

A failing element aborts the build before any page is written. Failing
pages do not: every other page is still written and the failures are
reported together.

Examples:
  htmt build                          # Build ./manifest.json into ./out
  htmt build -C site -o public        # Build site/manifest.json into site/public
  htmt build --metrics-file build.prom`,
		Args: cobra.NoArgs,
		RunE: a.runBuild,
	}

	cmd.Flags().String("metrics-file", "", "write build metrics in Prometheus text format to this file")
	bind(a.v, config.KeyBuildMetricsFile, cmd.Flags().Lookup("metrics-file"))
	return cmd
}

func (a *app) runBuild(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	var metrics *monitoring.Metrics
	if a.cfg.Build.MetricsFile != "" {
		metrics = monitoring.NewMetrics()
	}

	gen := site.NewGenerator(afero.NewOsFs(), a.logger, diagnostics.NewLogger(a.logger))
	res, err := gen.Generate(ctx, site.Options{
		ManifestPath: a.manifestPath(),
		Output:       a.cfg.Build.Output,
		Workers:      a.cfg.Build.Workers,
		Metrics:      metrics,
	})
	if res != nil {
		printResult(cmd.OutOrStdout(), res, false)
	}

	if metrics != nil {
		path := a.cfg.Build.MetricsFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(a.cfg.Root, path)
		}
		if werr := metrics.WriteTextfile(path); werr != nil {
			a.logger.Error(ctx, werr, "Failed to write metrics", "path", path)
			if err == nil {
				err = werr
			}
		}
	}
	return err
}

func printResult(w io.Writer, res *site.Result, dryRun bool) {
	verb := "Built"
	if dryRun {
		verb = "Checked"
	}
	fmt.Fprintf(w, "%s %d of %d pages with %d elements", verb, res.Pages-res.Failed, res.Pages, res.Elements)
	if !dryRun {
		fmt.Fprintf(w, " into %s", res.Output)
		if res.Assets > 0 {
			fmt.Fprintf(w, " (%d assets)", res.Assets)
		}
	}
	fmt.Fprintf(w, " in %s\n", res.Duration.Round(time.Millisecond))
}
