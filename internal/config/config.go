// Package config loads htmt settings using Viper, from an optional YAML
// file, HTMT_ environment variables and command-line flags.
//
// Precedence, highest first: flags bound by the cmd package, HTMT_<KEY>
// environment variables (dots become underscores, e.g.
// HTMT_BUILD_WORKERS), the config file, then the defaults set here.
package config

import (
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/conneroisu/htmt/internal/errors"
	"github.com/conneroisu/htmt/internal/logging"
)

// EnvPrefix is the prefix of every environment variable htmt reads.
const EnvPrefix = "HTMT"

// Default file names.
const (
	DefaultConfigName = ".htmt"
	DefaultManifest   = "manifest.json"
)

// Configuration keys.
const (
	KeyRoot             = "root"
	KeyManifest         = "manifest"
	KeyLogLevel         = "log.level"
	KeyLogFormat        = "log.format"
	KeyBuildWorkers     = "build.workers"
	KeyBuildOutput      = "build.output"
	KeyBuildMetricsFile = "build.metrics_file"
	KeyWatchDebounce    = "watch.debounce"
)

type Config struct {
	// Root is the site directory holding elements/ and pages/
	Root string `mapstructure:"root"`
	// Manifest is the manifest path, relative to Root unless absolute
	Manifest string      `mapstructure:"manifest"`
	Log      LogConfig   `mapstructure:"log"`
	Build    BuildConfig `mapstructure:"build"`
	Watch    WatchConfig `mapstructure:"watch"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type BuildConfig struct {
	// Workers bounds the number of pages compiled at once
	Workers int `mapstructure:"workers"`
	// Output overrides the manifest's outputPath when set
	Output string `mapstructure:"output"`
	// MetricsFile, when set, receives the build metrics in Prometheus text format
	MetricsFile string `mapstructure:"metrics_file"`
}

type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyRoot, ".")
	v.SetDefault(KeyManifest, DefaultManifest)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeyBuildWorkers, runtime.NumCPU())
	v.SetDefault(KeyBuildOutput, "")
	v.SetDefault(KeyBuildMetricsFile, "")
	v.SetDefault(KeyWatchDebounce, 300*time.Millisecond)
}

// Init prepares v to read configuration. An explicit cfgFile wins over
// HTMT_CONFIG_FILE, which wins over .htmt.yml in the working directory.
// A missing default file is not an error.
func Init(v *viper.Viper, cfgFile string) error {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	switch {
	case cfgFile != "":
		v.SetConfigFile(cfgFile)
	case os.Getenv(EnvPrefix+"_CONFIG_FILE") != "":
		v.SetConfigFile(os.Getenv(EnvPrefix + "_CONFIG_FILE"))
	default:
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(DefaultConfigName)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return errors.WrapConfig(err, errors.ErrCodeConfigInvalid, "failed to read config file")
	}
	return nil
}

// Load decodes and validates the configuration held by the global viper
// instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom decodes and validates the configuration held by v.
func LoadFrom(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.WrapConfig(err, errors.ErrCodeConfigInvalid, "failed to decode configuration")
	}

	if cfg.Root == "" {
		cfg.Root = "."
	}
	if cfg.Manifest == "" {
		cfg.Manifest = DefaultManifest
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Build.Workers == 0 {
		cfg.Build.Workers = runtime.NumCPU()
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Logger returns the logger configuration for the log section, writing
// to out.
func (c LogConfig) Logger(out io.Writer) *logging.LoggerConfig {
	level, _ := logging.ParseLevel(c.Level)
	return &logging.LoggerConfig{
		Level:  level,
		Format: strings.ToLower(c.Format),
		Output: out,
	}
}
