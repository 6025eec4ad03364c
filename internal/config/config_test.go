package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/htmt/internal/errors"
	"github.com/conneroisu/htmt/internal/logging"
)

func TestLoadFrom_Defaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := LoadFrom(v)
	require.NoError(t, err)

	assert.Equal(t, ".", cfg.Root)
	assert.Equal(t, DefaultManifest, cfg.Manifest)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, runtime.NumCPU(), cfg.Build.Workers)
	assert.Empty(t, cfg.Build.Output)
	assert.Empty(t, cfg.Build.MetricsFile)
	assert.Equal(t, 300*time.Millisecond, cfg.Watch.Debounce)
}

func TestLoadFrom_EmptyViper(t *testing.T) {
	cfg, err := LoadFrom(viper.New())
	require.NoError(t, err)
	assert.Equal(t, ".", cfg.Root)
	assert.Equal(t, DefaultManifest, cfg.Manifest)
	assert.Equal(t, runtime.NumCPU(), cfg.Build.Workers)
}

func TestLoadFrom_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value interface{}
	}{
		{"too many workers", KeyBuildWorkers, MaxWorkers + 1},
		{"negative workers", KeyBuildWorkers, -2},
		{"unknown log level", KeyLogLevel, "verbose"},
		{"unknown log format", KeyLogFormat, "xml"},
		{"negative debounce", KeyWatchDebounce, "-1s"},
		{"blank manifest", KeyManifest, "   "},
		{"control character in output", KeyBuildOutput, "out\x00put"},
		{"undecodable workers", KeyBuildWorkers, "many"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			SetDefaults(v)
			v.Set(tt.key, tt.value)

			cfg, err := LoadFrom(v)
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.True(t, errors.HasCode(err, errors.ErrCodeConfigInvalid))
			assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
		})
	}
}

func TestInit_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "custom.yml")
	require.NoError(t, os.WriteFile(file, []byte(`
root: site
manifest: site.yml
log:
  level: debug
  format: json
build:
  workers: 3
  output: dist
  metrics_file: build.prom
watch:
  debounce: 1s
`), 0o644))

	v := viper.New()
	require.NoError(t, Init(v, file))

	cfg, err := LoadFrom(v)
	require.NoError(t, err)
	assert.Equal(t, "site", cfg.Root)
	assert.Equal(t, "site.yml", cfg.Manifest)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 3, cfg.Build.Workers)
	assert.Equal(t, "dist", cfg.Build.Output)
	assert.Equal(t, "build.prom", cfg.Build.MetricsFile)
	assert.Equal(t, time.Second, cfg.Watch.Debounce)
}

func TestInit_EnvironmentOverridesFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "custom.yml")
	require.NoError(t, os.WriteFile(file, []byte("build:\n  workers: 3\n"), 0o644))
	t.Setenv("HTMT_BUILD_WORKERS", "7")

	v := viper.New()
	require.NoError(t, Init(v, file))

	cfg, err := LoadFrom(v)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Build.Workers)
}

func TestInit_MissingDefaultFileIsFine(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	v := viper.New()
	require.NoError(t, Init(v, ""))

	cfg, err := LoadFrom(v)
	require.NoError(t, err)
	assert.Equal(t, DefaultManifest, cfg.Manifest)
}

func TestInit_MalformedFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "bad.yml")
	require.NoError(t, os.WriteFile(file, []byte("build: [unclosed"), 0o644))

	err := Init(viper.New(), file)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeConfigInvalid))
}

func TestLogConfig_Logger(t *testing.T) {
	lc := LogConfig{Level: "WARN", Format: "JSON"}.Logger(os.Stderr)
	assert.Equal(t, logging.LevelWarn, lc.Level)
	assert.Equal(t, "json", lc.Format)
	assert.Equal(t, os.Stderr, lc.Output)
}
