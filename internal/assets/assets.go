// Package assets copies static files into the site output.
package assets

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"

	"github.com/conneroisu/htmt/internal/errors"
	"github.com/conneroisu/htmt/internal/logging"
	"github.com/conneroisu/htmt/internal/manifest"
)

// TemplateExt is the extension of page and element sources; such files
// are never copied as assets unless an include filter asks for them.
const TemplateExt = ".htmt"

// DefaultDir is the asset directory used when the manifest names none.
const DefaultDir = "assets"

// Handler copies assets on a filesystem.
type Handler struct {
	fs     afero.Fs
	logger logging.Logger
}

// NewHandler creates a handler working on fsys.
func NewHandler(fsys afero.Fs, logger logging.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{fs: fsys, logger: logger.WithComponent("assets")}
}

// Copy copies the assets of a site rooted at root into outDir, choosing
// the mode from the manifest. It returns the number of files copied.
func (h *Handler) Copy(ctx context.Context, root, pagesDir, outDir string, a *manifest.Assets) (int, error) {
	if a.Discreet() {
		return h.CopyDiscreet(ctx, root, outDir, a)
	}
	if a == nil {
		a = &manifest.Assets{}
	}
	return h.CopyIntermixed(ctx, pagesDir, outDir, a)
}

// CopyDiscreet copies the whole asset input directory (root/assets unless
// configured) to outDir/assets, or to outDir/<output> when an output is
// configured.
func (h *Handler) CopyDiscreet(ctx context.Context, root, outDir string, a *manifest.Assets) (int, error) {
	src := filepath.Join(root, DefaultDir)
	if a.Input != nil && strings.TrimSpace(*a.Input) != "" {
		src = filepath.Join(root, *a.Input)
	}
	dst := filepath.Join(outDir, DefaultDir)
	if a.Output != nil {
		dst = filepath.Join(outDir, *a.Output)
	}

	if _, err := h.fs.Stat(src); err != nil {
		if os.IsNotExist(err) {
			return 0, errors.NewIOError(errors.ErrCodeFileNotFound, "asset directory does not exist", err).WithLocation(src, 0, 0)
		}
		return 0, errors.WrapIO(err, errors.ErrCodeReadFailed, src)
	}

	h.logger.Info(ctx, "Copying all assets", "from", src, "to", dst)

	copied := 0
	err := afero.Walk(h.fs, src, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return errors.WrapIO(err, errors.ErrCodeReadFailed, p)
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return errors.WrapIO(err, errors.ErrCodeCopyFailed, p)
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			if err := h.fs.MkdirAll(target, 0o755); err != nil {
				return errors.WrapIO(err, errors.ErrCodeWriteFailed, target)
			}
			return nil
		}
		if err := h.copyFile(p, target, info.Mode()); err != nil {
			return err
		}
		copied++
		return nil
	})
	return copied, err
}

// CopyIntermixed copies the non-page files found under pagesDir to the
// same relative location under outDir. Without include filters every file
// but .htmt sources is copied; with them only matching files are. Exclude
// filters always win.
func (h *Handler) CopyIntermixed(ctx context.Context, pagesDir, outDir string, a *manifest.Assets) (int, error) {
	if _, err := h.fs.Stat(pagesDir); err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, errors.WrapIO(err, errors.ErrCodeReadFailed, pagesDir)
	}

	outRel, outInside := within(pagesDir, outDir)

	var files []string
	iofs := afero.NewIOFS(afero.NewBasePathFs(h.fs, pagesDir))
	err := doublestar.GlobWalk(iofs, "**", func(rel string, d fs.DirEntry) error {
		if outInside && (rel == outRel || strings.HasPrefix(rel, outRel+"/")) {
			return nil
		}
		if Included(rel, a.Include, a.Exclude) {
			files = append(files, rel)
		}
		return nil
	}, doublestar.WithFilesOnly())
	if err != nil {
		return 0, errors.WrapIO(err, errors.ErrCodeReadFailed, pagesDir)
	}

	for _, rel := range files {
		src := filepath.Join(pagesDir, filepath.FromSlash(rel))
		dst := filepath.Join(outDir, filepath.FromSlash(rel))
		h.logger.Debug(ctx, "Copying asset file", "from", src, "to", dst)

		info, err := h.fs.Stat(src)
		if err != nil {
			return 0, errors.WrapIO(err, errors.ErrCodeReadFailed, src)
		}
		if err := h.copyFile(src, dst, info.Mode()); err != nil {
			return 0, err
		}
	}
	if len(files) > 0 {
		h.logger.Info(ctx, "Copied intermixed assets", "count", len(files), "to", outDir)
	}
	return len(files), nil
}

// Included applies the intermixed asset rules to a slash-separated path
// relative to the pages directory.
func Included(rel string, include, exclude []string) bool {
	included := len(include) == 0 && path.Ext(rel) != TemplateExt
	for _, f := range include {
		if PathMatchesFilter(rel, f) {
			included = true
		}
	}
	for _, f := range exclude {
		if PathMatchesFilter(rel, f) {
			included = false
		}
	}
	return included
}

// PathMatchesFilter reports whether p matches an asset filter. "*.*" and
// "." match everything; "prefix*" and "*suffix" match by prefix and
// suffix; any other filter matches as a substring. Filters that are glob
// patterns ("**/*.css", "img/?.png") also match through doublestar.
func PathMatchesFilter(p, filter string) bool {
	if filter == "*.*" || filter == "." {
		return true
	}

	if prefix, ok := strings.CutSuffix(filter, "*"); ok && prefix != "" && strings.HasPrefix(p, prefix) {
		return true
	}
	if suffix, ok := strings.CutPrefix(filter, "*"); ok && suffix != "" && strings.HasSuffix(p, suffix) {
		return true
	}
	if strings.Contains(p, filter) {
		return true
	}

	if strings.ContainsAny(filter, "*?[{") {
		if ok, err := doublestar.Match(filter, p); err == nil && ok {
			return true
		}
	}
	return false
}

// within reports whether child lies inside parent and returns its
// slash-separated relative path.
func within(parent, child string) (string, bool) {
	rel, err := filepath.Rel(parent, child)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func (h *Handler) copyFile(src, dst string, mode os.FileMode) error {
	if err := h.fs.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return errors.WrapIO(err, errors.ErrCodeWriteFailed, filepath.Dir(dst))
	}

	in, err := h.fs.Open(src)
	if err != nil {
		return errors.WrapIO(err, errors.ErrCodeReadFailed, src)
	}
	defer in.Close()

	out, err := h.fs.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm())
	if err != nil {
		return errors.WrapIO(err, errors.ErrCodeCopyFailed, dst)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return errors.WrapIO(err, errors.ErrCodeCopyFailed, dst)
	}
	if err := out.Close(); err != nil {
		return errors.WrapIO(err, errors.ErrCodeCopyFailed, dst)
	}
	return nil
}
