package site

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/conneroisu/htmt/internal/diagnostics"
	"github.com/conneroisu/htmt/internal/errors"
	"github.com/conneroisu/htmt/internal/monitoring"
	"github.com/conneroisu/htmt/internal/testutils"
)

var basicSite = testutils.Files{
	"/site/manifest.json":          `{"elements": ["layout", "headline"]}`,
	"/site/elements/layout.htmt":   "<html><body>{{ innerhtml }}</body></html>",
	"/site/elements/headline.htmt": `<h1 class="title">{{ text }}</h1>`,
	"/site/pages/index.htmt":       `<layout><headline text="Home"></headline></layout>`,
	"/site/pages/blog/post.htmt":   `<layout><headline text="Post"></headline><p>body</p></layout>`,
	"/site/pages/style.css":        "body{}",
}

func TestGenerator_Generate(t *testing.T) {
	fs := testutils.MemSite(t, basicSite)
	sink := diagnostics.NewCollector()
	g := NewGenerator(fs, nil, sink)

	res, err := g.Generate(context.Background(), Options{ManifestPath: "/site/manifest.json", Workers: 2})
	require.NoError(t, err)

	assert.Equal(t, "/site", res.Root)
	assert.Equal(t, "/site/out", res.Output)
	assert.Equal(t, 2, res.Elements)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, 1, res.Assets)
	assert.Zero(t, res.Failed)
	assert.Equal(t, []string{"/site/out/blog/post.html", "/site/out/index.html"}, res.Written)

	assert.Equal(t, `<html><body><h1 class="title">Home</h1></body></html>`, testutils.ReadFile(t, fs, "/site/out/index.html"))
	assert.Equal(t, `<html><body><h1 class="title">Post</h1><p>body</p></body></html>`, testutils.ReadFile(t, fs, "/site/out/blog/post.html"))
	assert.Equal(t, "body{}", testutils.ReadFile(t, fs, "/site/out/style.css"))
	assert.Zero(t, sink.Count())
}

func TestGenerator_Generate_OutputPaths(t *testing.T) {
	files := basicSite.With(testutils.Files{
		"/site/manifest.json": `{"elements": ["layout", "headline"], "outputPath": "dist"}`,
	})

	t.Run("manifest output path", func(t *testing.T) {
		fs := testutils.MemSite(t, files)
		res, err := NewGenerator(fs, nil, nil).Generate(context.Background(), Options{ManifestPath: "/site/manifest.json", Workers: 1})
		require.NoError(t, err)
		assert.Equal(t, "/site/dist", res.Output)
		ok, _ := afero.Exists(fs, "/site/dist/index.html")
		assert.True(t, ok)
	})

	t.Run("override", func(t *testing.T) {
		fs := testutils.MemSite(t, files)
		res, err := NewGenerator(fs, nil, nil).Generate(context.Background(), Options{ManifestPath: "/site/manifest.json", Output: "public", Workers: 1})
		require.NoError(t, err)
		assert.Equal(t, "/site/public", res.Output)
	})
}

func TestGenerator_Generate_ManifestNotFound(t *testing.T) {
	g := NewGenerator(afero.NewMemMapFs(), nil, nil)

	_, err := g.Generate(context.Background(), Options{ManifestPath: "/site/manifest.json"})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeManifestNotFound))
}

func TestGenerator_Generate_MissingElementFile(t *testing.T) {
	fs := testutils.MemSite(t, testutils.Files{
		"/site/manifest.json": `{"elements": ["ghost"]}`,
	})

	_, err := NewGenerator(fs, nil, nil).Generate(context.Background(), Options{ManifestPath: "/site/manifest.json"})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeReadFailed))
}

func TestGenerator_Generate_DuplicateElement(t *testing.T) {
	fs := testutils.MemSite(t, testutils.Files{
		"/site/manifest.json":      `{"elements": ["card", "Card"]}`,
		"/site/elements/card.htmt": "<div></div>",
		"/site/elements/Card.htmt": "<div></div>",
	})

	_, err := NewGenerator(fs, nil, nil).Generate(context.Background(), Options{ManifestPath: "/site/manifest.json"})
	assert.ErrorIs(t, err, errors.ErrDuplicateElement)
}

func TestGenerator_Generate_CycleAbortsBeforePages(t *testing.T) {
	fs := testutils.MemSite(t, testutils.Files{
		"/site/manifest.json":   `{"elements": ["a", "b"]}`,
		"/site/elements/a.htmt": "<div><b></b></div>",
		"/site/elements/b.htmt": "<div><a></a></div>",
		"/site/pages/x.htmt":    "<p>plain</p>",
	})

	res, err := NewGenerator(fs, nil, nil).Generate(context.Background(), Options{ManifestPath: "/site/manifest.json"})
	assert.ErrorIs(t, err, errors.ErrCycle)
	assert.Nil(t, res)

	ok, _ := afero.Exists(fs, "/site/out/x.html")
	assert.False(t, ok)
}

func TestGenerator_Generate_PageFailuresAreIndependent(t *testing.T) {
	fs := testutils.MemSite(t, testutils.Files{
		"/site/manifest.json":      `{"elements": ["card"]}`,
		"/site/elements/card.htmt": "<div>{{ innerhtml }}</div>",
		"/site/pages/a.htmt":       "<card>a</card>",
		"/site/pages/b.htmt":       `<card id="1" ID="2">b</card>`,
		"/site/pages/c.htmt":       "<card>c</card>",
		"/site/pages/d.htmt":       `<p><card x="1" x="2"></card></p>`,
	})

	metrics := monitoring.NewMetrics()
	res, err := NewGenerator(fs, nil, nil).Generate(context.Background(), Options{
		ManifestPath: "/site/manifest.json",
		Workers:      3,
		Metrics:      metrics,
	})
	require.Error(t, err)
	require.NotNil(t, res)

	assert.Equal(t, 4, res.Pages)
	assert.Equal(t, 2, res.Failed)
	assert.Equal(t, []string{"/site/out/a.html", "/site/out/c.html"}, res.Written)
	assert.Equal(t, "<div>c</div>", testutils.ReadFile(t, fs, "/site/out/c.html"))

	assert.True(t, errors.HasCode(err, errors.ErrCodeBuildFailed))
	assert.ErrorIs(t, err, errors.ErrDuplicateAttribute)

	var pe *errors.PageParsingError
	require.True(t, stderrors.As(err, &pe))
	assert.Contains(t, []string{"b.htmt", "d.htmt"}, pe.Page)
	assert.Len(t, multierr.Errors(stderrors.Unwrap(err)), 2)

	expected := `
# HELP htmt_pages_total Pages processed, by result.
# TYPE htmt_pages_total counter
htmt_pages_total{result="failed"} 2
htmt_pages_total{result="ok"} 2
`
	assert.NoError(t, testutil.GatherAndCompare(metrics.Registry(), strings.NewReader(expected), "htmt_pages_total"))
}

func TestGenerator_Generate_DryRun(t *testing.T) {
	fs := testutils.MemSite(t, basicSite)

	res, err := NewGenerator(fs, nil, nil).Generate(context.Background(), Options{ManifestPath: "/site/manifest.json", DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Pages)
	assert.Empty(t, res.Written)

	ok, _ := afero.DirExists(fs, "/site/out")
	assert.False(t, ok)
}

func TestGenerator_Generate_Diagnostics(t *testing.T) {
	fs := testutils.MemSite(t, testutils.Files{
		"/site/manifest.json":      `{"elements": ["card"]}`,
		"/site/elements/card.htmt": "<div>{{ nothtml }}</div>",
		"/site/pages/index.htmt":   "<card>Test</card>",
	})
	sink := diagnostics.NewCollector()
	metrics := monitoring.NewMetrics()

	_, err := NewGenerator(fs, nil, sink).Generate(context.Background(), Options{ManifestPath: "/site/manifest.json", Metrics: metrics})
	require.NoError(t, err)

	assert.Equal(t, 2, sink.Count())
	assert.Equal(t, "index.htmt", sink.Diagnostics()[0].Source)
	assert.NotContains(t, testutils.ReadFile(t, fs, "/site/out/index.html"), "Test")
}

func TestGenerator_Generate_NoPagesDir(t *testing.T) {
	fs := testutils.MemSite(t, testutils.Files{"/site/manifest.json": `{}`})

	res, err := NewGenerator(fs, nil, nil).Generate(context.Background(), Options{ManifestPath: "/site/manifest.json"})
	require.NoError(t, err)
	assert.Zero(t, res.Pages)
}

func TestGenerator_Generate_Cancelled(t *testing.T) {
	fs := testutils.MemSite(t, basicSite)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewGenerator(fs, nil, nil).Generate(ctx, Options{ManifestPath: "/site/manifest.json"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGenerator_Load(t *testing.T) {
	fs := testutils.MemSite(t, basicSite)

	site, err := NewGenerator(fs, nil, nil).Load(context.Background(), "/site/manifest.json", nil)
	require.NoError(t, err)
	assert.Equal(t, "/site", site.Root)
	assert.Equal(t, "/site/pages", site.PagesDir())
	assert.Equal(t, []string{"layout", "headline"}, site.Elements.KnownNames())
}
