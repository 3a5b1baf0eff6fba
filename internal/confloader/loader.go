// Package confloader reads environment-layered configuration sections from a
// project's conf directory.
//
// A section (catalog, credentials, tdda, ...) is the union of every YAML file
// under an environment directory whose relative path matches one of the
// section's patterns. The base environment is read first, then the run
// environment; a top-level key defined in the run environment replaces the
// base definition wholesale.
package confloader

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// Well-known section names.
const (
	SectionCatalog     = "catalog"
	SectionCredentials = "credentials"
	SectionTdda        = "tdda"
)

// DefaultPatterns returns the built-in section patterns.
func DefaultPatterns() map[string][]string {
	return map[string][]string{
		SectionCatalog:     {"catalog*", "catalog*/*", "**/catalog*"},
		SectionCredentials: {"credentials*", "credentials*/*", "**/credentials*"},
	}
}

// Section is a merged configuration section with stable key order.
type Section struct {
	Keys   []string
	Values map[string]any
}

// Get returns the value stored under key.
func (s *Section) Get(key string) (any, bool) {
	if s == nil {
		return nil, false
	}
	v, ok := s.Values[key]
	return v, ok
}

// Len returns the number of top-level keys.
func (s *Section) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Keys)
}

// Loader resolves sections for one conf source and environment pair.
type Loader struct {
	confSource string
	baseEnv    string
	env        string
	logger     *slog.Logger

	mu       sync.RWMutex
	patterns map[string][]string
}

// New creates a loader. When env equals baseEnv only one layer is read.
func New(confSource, baseEnv, env string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Loader{
		confSource: confSource,
		baseEnv:    baseEnv,
		env:        env,
		logger:     logger,
		patterns:   DefaultPatterns(),
	}
}

// Register adds or replaces the file patterns of a section.
func (l *Loader) Register(section string, patterns []string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.patterns[section] = append([]string(nil), patterns...)
}

// Patterns returns the registered patterns of a section.
func (l *Loader) Patterns(section string) ([]string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.patterns[section]
	return p, ok
}

// ConfSource returns the conf directory the loader reads from.
func (l *Loader) ConfSource() string { return l.confSource }

// Env returns the run environment.
func (l *Loader) Env() string { return l.env }

// BaseEnv returns the base environment.
func (l *Loader) BaseEnv() string { return l.baseEnv }

// EnvDir returns the directory of an environment.
func (l *Loader) EnvDir(env string) string {
	return filepath.Join(l.confSource, env)
}

// Envs returns the environments read by the loader, base first.
func (l *Loader) Envs() []string {
	if l.env == "" || l.env == l.baseEnv {
		return []string{l.baseEnv}
	}
	return []string{l.baseEnv, l.env}
}

// Get loads and merges a section across the base and run environments.
// A section without matching files is empty, not an error.
func (l *Loader) Get(section string) (*Section, error) {
	patterns, ok := l.Patterns(section)
	if !ok {
		return nil, fmt.Errorf("no config patterns registered for section %q", section)
	}

	k := koanf.New(".")
	out := &Section{}
	seen := make(map[string]bool)

	for _, env := range l.Envs() {
		files, err := matchFiles(l.EnvDir(env), patterns)
		if err != nil {
			return nil, err
		}

		envKeys := make(map[string]string)
		for _, path := range files {
			values, keys, err := readFile(path)
			if err != nil {
				return nil, err
			}
			for _, key := range keys {
				if prev, dup := envKeys[key]; dup {
					return nil, fmt.Errorf("duplicate key %q in %s (already defined in %s)", key, path, prev)
				}
				envKeys[key] = path
				if !seen[key] {
					seen[key] = true
					out.Keys = append(out.Keys, key)
				}
			}
			if err := k.Load(confmap.Provider(values, ""), nil, koanf.WithMergeFunc(replaceTopLevel)); err != nil {
				return nil, fmt.Errorf("failed to merge %s: %w", path, err)
			}
			l.logger.Debug("loaded config file",
				slog.String("section", section),
				slog.String("env", env),
				slog.String("path", path))
		}
	}

	out.Values = k.Raw()
	for key, v := range out.Values {
		out.Values[key] = expandEnv(v)
	}
	return out, nil
}

// replaceTopLevel merges src into dest, replacing whole top-level entries.
func replaceTopLevel(src, dest map[string]any) error {
	for key, v := range src {
		dest[key] = v
	}
	return nil
}

// readFile parses one YAML file through koanf's file provider. keys holds the
// top-level keys in document order with template keys (leading "_") removed.
func readFile(path string) (map[string]any, []string, error) {
	b, err := file.Provider(path).ReadBytes()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	values, err := yaml.Parser().Unmarshal(b)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if values == nil {
		return map[string]any{}, nil, nil
	}

	var doc yamlv3.Node
	if err := yamlv3.Unmarshal(b, &doc); err != nil {
		return nil, nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	var keys []string
	for _, key := range topLevelKeys(&doc) {
		if strings.HasPrefix(key, "_") {
			delete(values, key)
			continue
		}
		keys = append(keys, key)
	}
	return values, keys, nil
}

func topLevelKeys(doc *yamlv3.Node) []string {
	if doc.Kind != yamlv3.DocumentNode || len(doc.Content) == 0 {
		return nil
	}
	root := doc.Content[0]
	if root.Kind != yamlv3.MappingNode {
		return nil
	}
	keys := make([]string, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value == "<<" {
			continue
		}
		keys = append(keys, root.Content[i].Value)
	}
	return keys
}

// matchFiles returns the YAML files under dir whose slash-separated relative
// path matches a pattern, sorted by path. A leading "**/" matches any depth.
func matchFiles(dir string, patterns []string) ([]string, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, nil
	}

	var out []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".yml" && ext != ".yaml" {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if matchAny(filepath.ToSlash(rel), patterns) {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}
	sort.Strings(out)
	return out, nil
}

func matchAny(rel string, patterns []string) bool {
	for _, p := range patterns {
		if deep, ok := strings.CutPrefix(p, "**/"); ok {
			if ok, _ := filepath.Match(deep, filepath.Base(rel)); ok {
				return true
			}
			continue
		}
		if ok, _ := filepath.Match(p, rel); ok {
			return true
		}
	}
	return false
}

var envRef = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnv replaces ${VAR} references in string values. Unset variables are
// left as written.
func expandEnv(v any) any {
	switch x := v.(type) {
	case string:
		return envRef.ReplaceAllStringFunc(x, func(match string) string {
			if val, ok := os.LookupEnv(match[2 : len(match)-1]); ok {
				return val
			}
			return match
		})
	case map[string]any:
		for key, item := range x {
			x[key] = expandEnv(item)
		}
		return x
	case []any:
		for i, item := range x {
			x[i] = expandEnv(item)
		}
		return x
	default:
		return v
	}
}
