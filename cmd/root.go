// Package cmd provides the htmt command-line interface.
//
// Configuration System:
//
//	Settings come from several sources, highest priority first:
//	1. Command-line flags (--manifest, --workers, ...)
//	2. HTMT_<SECTION>_<OPTION> environment variables (HTMT_BUILD_WORKERS)
//	3. The config file: --config, else HTMT_CONFIG_FILE, else .htmt.yml
//	4. Built-in defaults
package cmd

import (
	"context"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/conneroisu/htmt/internal/config"
	"github.com/conneroisu/htmt/internal/errors"
	"github.com/conneroisu/htmt/internal/logging"
	"github.com/conneroisu/htmt/internal/version"
)

// Exit codes returned by the htmt binary.
const (
	ExitOK              = 0
	ExitFailure         = 1
	ExitMissingManifest = 2
)

// app is the state shared by the commands of one invocation.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
	logger  logging.Logger
}

// NewRootCommand builds the htmt command tree around v.
func NewRootCommand(v *viper.Viper) *cobra.Command {
	a := &app{v: v}

	root := &cobra.Command{
		Use:   "htmt",
		Short: "Expand custom HTML elements into static pages",
		Long: `htmt builds a static site from plain HTML pages by expanding custom
elements. Every element listed in the manifest is read from
elements/<name>.htmt; a tag with that name in a page or another element is
replaced by the element's markup, with {{ placeholders }} filled from the
tag's attributes and {{ InnerHtml }} from its content.

Quick Start:
  htmt build                      Build the site described by ./manifest.json
  htmt check                      Expand every page and report diagnostics
  htmt watch                      Rebuild on every change
  htmt list                       List elements and the elements they use`,
		Version:           version.Get().Short(),
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is .htmt.yml, can also use HTMT_CONFIG_FILE env var)")
	flags.StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text, json)")
	flags.StringP("root", "C", ".", "site root directory")
	flags.StringP("manifest", "m", config.DefaultManifest, "manifest path, relative to the site root")
	flags.StringP("output", "o", "", "output directory, relative to the site root (default from manifest)")
	flags.IntP("workers", "j", 0, "pages compiled at once (default number of CPUs)")

	bind(v, config.KeyLogLevel, flags.Lookup("log-level"))
	bind(v, config.KeyLogFormat, flags.Lookup("log-format"))
	bind(v, config.KeyRoot, flags.Lookup("root"))
	bind(v, config.KeyManifest, flags.Lookup("manifest"))
	bind(v, config.KeyBuildOutput, flags.Lookup("output"))
	bind(v, config.KeyBuildWorkers, flags.Lookup("workers"))

	root.AddCommand(
		newBuildCommand(a),
		newCheckCommand(a),
		newWatchCommand(a),
		newListCommand(a),
		newVersionCommand(),
	)
	return root
}

// Execute runs the htmt command line against the global viper instance.
func Execute(ctx context.Context) error {
	return NewRootCommand(viper.GetViper()).ExecuteContext(ctx)
}

// ExitCode maps a command error onto the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.HasCode(err, errors.ErrCodeManifestNotFound):
		return ExitMissingManifest
	default:
		return ExitFailure
	}
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if err := config.Init(a.v, a.cfgFile); err != nil {
		return err
	}
	cfg, err := config.LoadFrom(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = newLogger(cfg.Log, cmd.ErrOrStderr())
	if used := a.v.ConfigFileUsed(); used != "" {
		a.logger.Debug(cmd.Context(), "Using config file", "path", used)
	}
	return nil
}

// manifestPath resolves the configured manifest against the site root.
func (a *app) manifestPath() string {
	if filepath.IsAbs(a.cfg.Manifest) {
		return a.cfg.Manifest
	}
	return filepath.Join(a.cfg.Root, a.cfg.Manifest)
}

func newLogger(c config.LogConfig, out io.Writer) logging.Logger {
	return logging.NewLogger(c.Logger(out)).WithComponent("cli")
}

// bind ties a flag to a configuration key; the flag wins only when set.
func bind(v *viper.Viper, key string, flag *pflag.Flag) {
	_ = v.BindPFlag(key, flag)
}
