package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newFlags mirrors the root command's persistent flags.
func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("config", "", "")
	fs.String("project-dir", "", "")
	fs.String("conf-source", "", "")
	fs.String("log-level", "", "")
	fs.BoolP("verbose", "v", false, "")
	fs.String("output", "", "")
	require.NoError(t, fs.Parse(args))
	return fs
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "leaptdda.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	root := t.TempDir()

	cfg, err := LoadConfig("", newFlags(t, "--project-dir", root))
	require.NoError(t, err)

	assert.Equal(t, root, cfg.ProjectRoot)
	assert.Empty(t, cfg.File)
	assert.Equal(t, DefaultConfSource, cfg.ConfSource)
	assert.Equal(t, DefaultBaseEnv, cfg.BaseEnv)
	assert.Equal(t, DefaultEnv, cfg.DefaultEnv)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, DefaultOutput, cfg.Output)
	assert.Equal(t, DefaultTargetDir, cfg.Detect.TargetDir)
	assert.Equal(t, ":memory:", cfg.DuckDB.Path)
}

func TestLoadConfig_Precedence(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, `
conf_source: settings
default_env: local
log_level: warn
output: json
detect:
  target_dir: out/detect
duckdb:
  path: scan.duckdb
  settings:
    threads: "2"
`)

	tests := []struct {
		name  string
		env   map[string]string
		args  []string
		check func(t *testing.T, cfg *Config)
	}{
		{
			name: "file over defaults",
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "settings", cfg.ConfSource)
				assert.Equal(t, "local", cfg.DefaultEnv)
				assert.Equal(t, "warn", cfg.LogLevel)
				assert.Equal(t, "json", cfg.Output)
				assert.Equal(t, "out/detect", cfg.Detect.TargetDir)
				assert.Equal(t, filepath.Join(root, "scan.duckdb"), cfg.DuckDB.Path)
				assert.Equal(t, map[string]string{"threads": "2"}, cfg.DuckDB.Settings)
				assert.Equal(t, filepath.Join(root, "leaptdda.yaml"), cfg.File)
			},
		},
		{
			name: "env over file",
			env: map[string]string{
				"LEAPTDDA_OUTPUT":            "markdown",
				"LEAPTDDA_DETECT_TARGET_DIR": "env_detect",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "markdown", cfg.Output)
				assert.Equal(t, "env_detect", cfg.Detect.TargetDir)
			},
		},
		{
			name: "flags over env",
			env:  map[string]string{"LEAPTDDA_OUTPUT": "markdown"},
			args: []string{"--output", "text", "--conf-source", "cfg"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "text", cfg.Output)
				assert.Equal(t, "cfg", cfg.ConfSource)
			},
		},
		{
			name: "verbose forces debug",
			args: []string{"-v"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "debug", cfg.LogLevel)
				assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			args := append([]string{"--project-dir", root}, tt.args...)
			cfg, err := LoadConfig("", newFlags(t, args...))
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestLoadConfig_ExplicitFileSetsProjectRoot(t *testing.T) {
	root := t.TempDir()
	path := writeConfig(t, root, "base_env: common\n")

	cfg, err := LoadConfig(path, newFlags(t))
	require.NoError(t, err)
	assert.Equal(t, root, cfg.ProjectRoot)
	assert.Equal(t, "common", cfg.BaseEnv)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		args    []string
	}{
		{name: "bad output", args: []string{"--output", "html"}},
		{name: "bad log level", content: "log_level: loud\n"},
		{name: "empty conf source", content: "conf_source: \"\"\n"},
		{name: "malformed yaml", content: "output: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			if tt.content != "" {
				writeConfig(t, root, tt.content)
			}
			args := append([]string{"--project-dir", root}, tt.args...)
			_, err := LoadConfig("", newFlags(t, args...))
			assert.Error(t, err)
		})
	}
}

func TestFindProjectRootUpward(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "conf", "base"), 0o750))
	nested := filepath.Join(root, "src", "pipelines")
	require.NoError(t, os.MkdirAll(nested, 0o750))

	assert.Equal(t, root, findProjectRootUpward(nested))
	assert.Empty(t, findProjectRootUpward(t.TempDir()))
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"LEAPTDDA_OUTPUT":            "output",
		"LEAPTDDA_CONF_SOURCE":       "conf_source",
		"LEAPTDDA_DETECT_TARGET_DIR": "detect.target_dir",
		"LEAPTDDA_DUCKDB_PATH":       "duckdb.path",
	}
	for in, want := range tests {
		assert.Equal(t, want, envKey(in), in)
	}
}

func TestTargetDirPath(t *testing.T) {
	cfg := &Config{ProjectRoot: "/proj", Detect: DetectConfig{TargetDir: "./tdda_detect"}}
	assert.Equal(t, filepath.Join("/proj", "tdda_detect"), cfg.TargetDirPath(""))
	assert.Equal(t, "/abs/out", cfg.TargetDirPath("/abs/out"))
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("LEAPTDDA_TEST_DB", "/data/db.duckdb")
	assert.Equal(t, "/data/db.duckdb", expandEnvVars("${LEAPTDDA_TEST_DB}"))
	assert.Equal(t, "${LEAPTDDA_TEST_UNSET}", expandEnvVars("${LEAPTDDA_TEST_UNSET}"))
}

func TestGetLogger(t *testing.T) {
	assert.NotNil(t, GetLogger(context.Background()))

	logger := slog.New(slog.DiscardHandler)
	ctx := context.WithValue(context.Background(), LoggerKey(), logger)
	assert.Same(t, logger, GetLogger(ctx))
}

func TestFromContext(t *testing.T) {
	cfg := FromContext(context.Background())
	assert.Equal(t, DefaultConfSource, cfg.ConfSource)
	assert.NotEmpty(t, cfg.ProjectRoot)

	loaded := &Config{ConfSource: "custom"}
	ctx := context.WithValue(context.Background(), ConfigKey(), loaded)
	assert.Same(t, loaded, FromContext(ctx))
}
