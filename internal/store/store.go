// Package store persists constraint specifications, one YAML document per
// dataset, under an environment's tdda directory.
//
// Each file holds a single top-level key equal to the dataset name:
//
//	companies:
//	    creation_metadata:
//	        ...
//	    fields:
//	        id:
//	            max_nulls: 0
//	            type: int
package store

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/leapstack-labs/leaptdda/pkg/core"
	"gopkg.in/yaml.v3"
)

// FileExt is the extension of constraint specification files.
const FileExt = ".yml"

// WriteOutcome reports what Write did.
type WriteOutcome int

// Write outcomes.
const (
	Written WriteOutcome = iota + 1
	Skipped
)

func (o WriteOutcome) String() string {
	switch o {
	case Written:
		return "written"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Store reads and writes specifications in dir. When baseDir is set and
// differs from dir, reads fall back to it for datasets without an
// environment-specific file.
type Store struct {
	dir     string
	baseDir string
	logger  *slog.Logger
}

// New creates a store rooted at dir.
func New(dir, baseDir string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if baseDir == dir {
		baseDir = ""
	}
	return &Store{dir: dir, baseDir: baseDir, logger: logger}
}

// Dir returns the directory specifications are written to.
func (s *Store) Dir() string { return s.dir }

// Path returns the file a dataset's specification is written to.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name+FileExt)
}

// Exists reports whether a specification for name is visible to Read.
func (s *Store) Exists(name string) bool {
	_, ok := s.locate(name)
	return ok
}

func (s *Store) locate(name string) (string, bool) {
	dirs := []string{s.dir}
	if s.baseDir != "" {
		dirs = append(dirs, s.baseDir)
	}
	for _, dir := range dirs {
		path := filepath.Join(dir, name+FileExt)
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}
	return "", false
}

// Write persists spec for name. An existing file is left untouched unless
// overwrite is set, in which case it is replaced atomically.
func (s *Store) Write(name string, spec *core.Spec, overwrite bool) (WriteOutcome, error) {
	path := s.Path(name)
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			s.logger.Debug("specification exists, not overwriting", slog.String("path", path))
			return Skipped, nil
		}
	}

	data, err := Marshal(name, spec)
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return 0, fmt.Errorf("failed to create constraints directory: %w", err)
	}
	if err := writeAtomic(path, data); err != nil {
		return 0, err
	}
	s.logger.Debug("specification written", slog.String("path", path), slog.Int("bytes", len(data)))
	return Written, nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// Read loads the specification for name. found is false, with a nil error,
// when no file exists.
func (s *Store) Read(name string) (*core.Spec, bool, error) {
	path, ok := s.locate(name)
	if !ok {
		return nil, false, nil
	}
	data, err := os.ReadFile(path) //nolint:gosec // path is derived from the tdda directory
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	spec, err := Unmarshal(name, data)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", path, err)
	}
	return spec, true, nil
}

// Names returns the dataset names with a visible specification, sorted.
func (s *Store) Names() []string {
	seen := make(map[string]bool)
	for _, dir := range []string{s.dir, s.baseDir} {
		if dir == "" {
			continue
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				s.logger.Warn("failed to list constraints directory", slog.String("dir", dir), slog.Any("error", err))
			}
			continue
		}
		for _, e := range entries {
			if e.IsDir() || strings.HasPrefix(e.Name(), ".") || filepath.Ext(e.Name()) != FileExt {
				continue
			}
			seen[strings.TrimSuffix(e.Name(), FileExt)] = true
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Marshal renders {name: spec} as YAML with sorted keys and four-space
// indentation.
func Marshal(name string, spec *core.Spec) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(4)
	if err := enc.Encode(map[string]*core.Spec{name: spec}); err != nil {
		return nil, fmt.Errorf("failed to encode specification for %s: %w", name, err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode specification for %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// Unmarshal parses a specification document and returns the entry for name.
func Unmarshal(name string, data []byte) (*core.Spec, error) {
	var doc map[string]*core.Spec
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid specification: %w", err)
	}
	spec, ok := doc[name]
	if !ok || spec == nil {
		return nil, fmt.Errorf("specification has no entry for dataset %q", name)
	}
	spec.Normalize()
	return spec, nil
}

// Decode converts an already-parsed specification (as returned by the
// config loader's tdda section) into a Spec.
func Decode(raw any) (*core.Spec, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("specification must be a mapping, got %T", raw)
	}

	spec := core.NewSpec()
	if md, ok := m["creation_metadata"]; ok && md != nil {
		spec.Metadata = &core.Metadata{}
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			TagName:          "yaml",
			WeaklyTypedInput: true,
			Result:           spec.Metadata,
		})
		if err != nil {
			return nil, err
		}
		if err := dec.Decode(md); err != nil {
			return nil, fmt.Errorf("invalid creation_metadata: %w", err)
		}
	}

	fields, _ := m["fields"].(map[string]any)
	for field, rules := range fields {
		r, ok := rules.(map[string]any)
		if !ok && rules != nil {
			return nil, fmt.Errorf("rules for field %q must be a mapping", field)
		}
		spec.Fields[field] = core.Rules(r)
		if spec.Fields[field] == nil {
			spec.Fields[field] = core.Rules{}
		}
	}
	spec.Normalize()
	return spec, nil
}
