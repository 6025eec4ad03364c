// Package site builds a static site: it reads the manifest, copies assets,
// registers and resolves the elements, then expands and writes every page.
package site

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/conneroisu/htmt/internal/assets"
	"github.com/conneroisu/htmt/internal/diagnostics"
	"github.com/conneroisu/htmt/internal/element"
	"github.com/conneroisu/htmt/internal/errors"
	"github.com/conneroisu/htmt/internal/logging"
	"github.com/conneroisu/htmt/internal/manifest"
	"github.com/conneroisu/htmt/internal/monitoring"
	"github.com/conneroisu/htmt/internal/page"
)

// Site layout, relative to the manifest directory.
const (
	ElementsDir = "elements"
	PagesDir    = "pages"
	OutputExt   = ".html"
)

// Options controls one build.
type Options struct {
	// ManifestPath locates the manifest; its directory is the site root
	ManifestPath string
	// Output overrides the manifest's outputPath; relative to the site root
	Output string
	// Workers bounds the number of pages compiled at once
	Workers int
	// DryRun expands every page without copying assets or writing output
	DryRun bool
	// Metrics, when set, receives page, element and diagnostic counts
	Metrics *monitoring.Metrics
}

// Result summarizes a build.
type Result struct {
	Root     string
	Output   string
	Elements int
	Assets   int
	Pages    int
	Failed   int
	// Written lists the output files in page discovery order
	Written  []string
	Duration time.Duration
}

// Generator builds sites on a filesystem.
type Generator struct {
	fs     afero.Fs
	logger logging.Logger
	sink   diagnostics.Sink
	assets *assets.Handler
}

// NewGenerator creates a generator. Diagnostics go to sink; a nil sink
// logs them as warnings.
func NewGenerator(fsys afero.Fs, logger logging.Logger, sink diagnostics.Sink) *Generator {
	if logger == nil {
		logger = logging.NewNop()
	}
	if sink == nil {
		sink = diagnostics.NewLogger(logger)
	}
	return &Generator{
		fs:     fsys,
		logger: logger.WithComponent("site"),
		sink:   sink,
		assets: assets.NewHandler(fsys, logger),
	}
}

// Site is a loaded site with its elements registered and resolved.
type Site struct {
	Root     string
	Manifest *manifest.Manifest
	Elements *element.Store
}

// PagesDir returns the directory pages are discovered in.
func (s *Site) PagesDir() string {
	return filepath.Join(s.Root, PagesDir)
}

// Load reads the manifest at manifestPath and registers and resolves every
// element it lists. Diagnostics found while resolving go to sink.
func (g *Generator) Load(ctx context.Context, manifestPath string, sink diagnostics.Sink) (*Site, error) {
	if sink == nil {
		sink = g.sink
	}

	g.logger.Info(ctx, "Reading manifest", "path", manifestPath)
	m, err := manifest.Load(g.fs, manifestPath)
	if err != nil {
		return nil, err
	}

	root := filepath.Dir(manifestPath)
	store := element.NewStore(element.WithSink(sink), element.WithLogger(g.logger))

	elementsDir := filepath.Join(root, ElementsDir)
	g.logger.Info(ctx, "Reading elements", "dir", elementsDir, "count", len(m.Elements))
	for _, name := range m.Elements {
		name = strings.TrimSpace(name)
		file := filepath.Join(elementsDir, name+assets.TemplateExt)
		data, err := afero.ReadFile(g.fs, file)
		if err != nil {
			return nil, errors.WrapIO(err, errors.ErrCodeReadFailed, file)
		}
		if err := store.Register(name, string(data)); err != nil {
			return nil, err
		}
	}

	// Pages must never see a partially resolved store.
	if err := store.Resolve(); err != nil {
		return nil, err
	}

	return &Site{Root: root, Manifest: m, Elements: store}, nil
}

// Generate builds the site described by the manifest at opts.ManifestPath.
//
// Element failures abort the build before any page is touched. Page
// failures do not: every page is attempted, successful pages are written,
// and the failures are returned together.
func (g *Generator) Generate(ctx context.Context, opts Options) (*Result, error) {
	start := time.Now()
	perf := logging.StartOperation(g.logger, "generate")

	sink := g.sink
	if opts.Metrics != nil {
		sink = diagnostics.Multi{g.sink, opts.Metrics}
	}

	site, err := g.Load(ctx, opts.ManifestPath, sink)
	if err != nil {
		perf.EndWithError(ctx, err)
		return nil, err
	}

	res := &Result{
		Root:     site.Root,
		Output:   site.Manifest.OutputDir(site.Root),
		Elements: site.Elements.Len(),
	}
	if opts.Output != "" {
		res.Output = opts.Output
		if !filepath.IsAbs(res.Output) {
			res.Output = filepath.Join(site.Root, res.Output)
		}
	}
	if opts.Metrics != nil {
		opts.Metrics.SetElements(res.Elements)
	}

	if !opts.DryRun {
		if err := g.fs.MkdirAll(res.Output, 0o755); err != nil {
			perf.EndWithError(ctx, err)
			return nil, errors.WrapIO(err, errors.ErrCodeWriteFailed, res.Output)
		}
		n, err := g.assets.Copy(ctx, site.Root, site.PagesDir(), res.Output, site.Manifest.Assets)
		if err != nil {
			perf.EndWithError(ctx, err)
			return nil, err
		}
		res.Assets = n
	}

	pages, err := g.discover(site.PagesDir())
	if err != nil {
		perf.EndWithError(ctx, err)
		return nil, err
	}
	res.Pages = len(pages)
	g.logger.Info(ctx, "Compiling pages", "pages", len(pages), "elements", res.Elements, "workers", opts.Workers)

	compiler := page.NewCompiler(site.Elements, sink)
	written, pageErr := g.compileAll(ctx, site, compiler, pages, res.Output, opts)
	res.Written = written
	res.Failed = len(multierr.Errors(pageErr))
	res.Duration = time.Since(start)

	if opts.Metrics != nil {
		opts.Metrics.BuildDone(res.Duration)
	}
	if pageErr != nil {
		perf.EndWithError(ctx, pageErr)
		return res, errors.WrapBuild(pageErr, errors.ErrCodeBuildFailed,
			"failed to build "+pluralPages(res.Failed))
	}

	perf.End(ctx, "pages", res.Pages, "assets", res.Assets, "output", res.Output)
	return res, nil
}

// discover lists the pages under dir as slash-separated relative paths,
// sorted.
func (g *Generator) discover(dir string) ([]string, error) {
	if ok, err := afero.DirExists(g.fs, dir); err != nil || !ok {
		if err != nil {
			return nil, errors.WrapIO(err, errors.ErrCodeReadFailed, dir)
		}
		return nil, nil
	}

	iofs := afero.NewIOFS(afero.NewBasePathFs(g.fs, dir))
	pages, err := doublestar.Glob(iofs, "**/*"+assets.TemplateExt, doublestar.WithFilesOnly())
	if err != nil {
		return nil, errors.WrapIO(err, errors.ErrCodeReadFailed, dir)
	}
	sort.Strings(pages)
	return pages, nil
}

// compileAll expands pages on a bounded pool. Each worker records its own
// failure and reports success to the group, so one page never cancels its
// siblings.
func (g *Generator) compileAll(ctx context.Context, site *Site, c *page.Compiler, pages []string, outDir string, opts Options) ([]string, error) {
	var (
		mu      sync.Mutex
		errs    error
		written = make([]string, len(pages))
	)

	var group errgroup.Group
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	group.SetLimit(workers)

	for i, rel := range pages {
		i, rel := i, rel
		group.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}

			began := time.Now()
			out, err := g.buildPage(ctx, site, c, rel, outDir, opts.DryRun)
			if opts.Metrics != nil {
				opts.Metrics.PageDone(err, time.Since(began))
			}
			if err != nil {
				g.logger.Error(ctx, err, "Page failed", "page", rel)
				mu.Lock()
				errs = multierr.Append(errs, err)
				mu.Unlock()
				return nil
			}
			written[i] = out
			return nil
		})
	}
	_ = group.Wait()
	if err := ctx.Err(); err != nil {
		errs = multierr.Append(errs, err)
	}

	var files []string
	for _, f := range written {
		if f != "" {
			files = append(files, f)
		}
	}
	return files, errs
}

// buildPage reads, expands and writes one page. It returns the output
// file, or "" in a dry run.
func (g *Generator) buildPage(ctx context.Context, site *Site, c *page.Compiler, rel, outDir string, dryRun bool) (string, error) {
	src := filepath.Join(site.PagesDir(), filepath.FromSlash(rel))
	data, err := afero.ReadFile(g.fs, src)
	if err != nil {
		return "", errors.WrapIO(err, errors.ErrCodeReadFailed, src)
	}

	resolved, err := c.Resolve(page.Page{Name: rel, Path: src, Content: string(data)})
	if err != nil {
		return "", err
	}
	if dryRun {
		return "", nil
	}

	dst := filepath.Join(outDir, filepath.FromSlash(strings.TrimSuffix(rel, path.Ext(rel))+OutputExt))
	if err := g.fs.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", errors.WrapIO(err, errors.ErrCodeWriteFailed, filepath.Dir(dst))
	}
	if err := afero.WriteFile(g.fs, dst, []byte(resolved.Content), 0o644); err != nil {
		return "", errors.WrapIO(err, errors.ErrCodeWriteFailed, dst)
	}
	g.logger.Debug(ctx, "Wrote page", "page", rel, "path", dst)
	return dst, nil
}

func pluralPages(n int) string {
	if n == 1 {
		return "1 page"
	}
	return fmt.Sprintf("%d pages", n)
}
