package cmd

import (
	"context"
	stderrors "errors"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/conneroisu/htmt/internal/config"
	"github.com/conneroisu/htmt/internal/diagnostics"
	"github.com/conneroisu/htmt/internal/site"
	"github.com/conneroisu/htmt/internal/watcher"
)

func newWatchCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "watch",
		Aliases: []string{"w"},
		Short:   "Rebuild the site whenever a source file changes",
		Long: `Build the site, then watch the site root and rebuild everything after
each burst of changes. The output directory is never watched.

Examples:
  htmt watch
  htmt watch --debounce 1s`,
		Args: cobra.NoArgs,
		RunE: a.runWatch,
	}

	cmd.Flags().Duration("debounce", 0, "quiet period before a rebuild (default 300ms)")
	bind(a.v, config.KeyWatchDebounce, cmd.Flags().Lookup("debounce"))
	return cmd
}

func (a *app) runWatch(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gen := site.NewGenerator(afero.NewOsFs(), a.logger, diagnostics.NewLogger(a.logger))
	opts := site.Options{
		ManifestPath: a.manifestPath(),
		Output:       a.cfg.Build.Output,
		Workers:      a.cfg.Build.Workers,
	}

	rebuild := func(ctx context.Context) (*site.Result, error) {
		res, err := gen.Generate(ctx, opts)
		if res != nil {
			printResult(cmd.OutOrStdout(), res, false)
		}
		return res, err
	}

	res, err := rebuild(ctx)
	output := ""
	switch {
	case res != nil:
		output = res.Output
	case err != nil:
		// Keep watching so the next save can fix the site.
		a.logger.Error(ctx, err, "Initial build failed")
	}

	w, err := watcher.New(a.cfg.Watch.Debounce, a.logger)
	if err != nil {
		return err
	}
	defer w.Close()

	root, err := filepath.Abs(a.cfg.Root)
	if err != nil {
		return err
	}
	if output == "" {
		output = filepath.Join(root, "out")
	}
	w.Skip(output)
	w.AddFilter(watcher.NoTempFilter)
	w.AddFilter(watcher.NoHiddenFilter(root))
	if err := w.AddRecursive(root); err != nil {
		return err
	}

	a.logger.Info(ctx, "Watching for changes", "root", root, "debounce", a.cfg.Watch.Debounce)
	err = w.Run(ctx, func(ctx context.Context, events []watcher.ChangeEvent) error {
		a.logger.Info(ctx, "Change detected, rebuilding", "changes", len(events), "first", events[0].Path)
		_, err := rebuild(ctx)
		return err
	})
	if stderrors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
