// Package config provides configuration management for the leaptdda CLI.
//
// Settings are read from leaptdda.yaml at the project root, LEAPTDDA_*
// environment variables and command-line flags, in increasing precedence.
package config

// DetectConfig holds defaults for the detect command.
type DetectConfig struct {
	TargetDir string `koanf:"target_dir" validate:"required"`
}

// DuckDBConfig configures the scanning connection used for file datasets.
type DuckDBConfig struct {
	Path     string            `koanf:"path"`
	Settings map[string]string `koanf:"settings"`
}

// Config holds all CLI configuration options.
type Config struct {
	ConfSource string       `koanf:"conf_source" validate:"required"`
	BaseEnv    string       `koanf:"base_env" validate:"required"`
	DefaultEnv string       `koanf:"default_env" validate:"required"`
	LogLevel   string       `koanf:"log_level" validate:"oneof=debug info warn error"`
	Verbose    bool         `koanf:"verbose"`
	Output     string       `koanf:"output" validate:"oneof=auto text markdown json"`
	Detect     DetectConfig `koanf:"detect"`
	DuckDB     DuckDBConfig `koanf:"duckdb"`

	// ProjectRoot is inferred, never read from the config file.
	ProjectRoot string `koanf:"-"`
	// File is the config file that was loaded, if any.
	File string `koanf:"-"`
}

// Default configuration values.
const (
	DefaultConfSource = "conf"
	DefaultBaseEnv    = "base"
	DefaultEnv        = "base"
	DefaultLogLevel   = "info"
	DefaultOutput     = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultTargetDir  = "./tdda_detect"
	DefaultDuckDBPath = ":memory:"
)

// ConfigFileNames are searched, in order, at the project root.
var ConfigFileNames = []string{"leaptdda.yaml", "leaptdda.yml"}

// Default returns a Config populated with default values.
func Default() *Config {
	return &Config{
		ConfSource: DefaultConfSource,
		BaseEnv:    DefaultBaseEnv,
		DefaultEnv: DefaultEnv,
		LogLevel:   DefaultLogLevel,
		Output:     DefaultOutput,
		Detect:     DetectConfig{TargetDir: DefaultTargetDir},
		DuckDB:     DuckDBConfig{Path: DefaultDuckDBPath},
	}
}
