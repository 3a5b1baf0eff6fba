// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

// CatalogYAML is the base catalog of the test project: two CSV datasets and
// one non-tabular entry between them.
const CatalogYAML = `companies:
  type: pandas.CSVDataset
  filepath: data/01_raw/companies.csv

regressor:
  type: pickle.PickleDataset
  filepath: data/06_models/regressor.pkl

reviews:
  type: pandas.CSVDataset
  filepath: data/01_raw/reviews.csv
`

// CompaniesCSV and ReviewsCSV are the raw contents of the test datasets.
const (
	CompaniesCSV = `id,name,rating
1,Acme,4.5
2,Globex,3.0
3,Initech,4.0
`
	ReviewsCSV = `id,company_id,score
10,1,5
11,2,3
`
)

// WriteFile writes content to root/rel, creating parent directories.
func WriteFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("failed to create directory for %s: %v", rel, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", rel, err)
	}
	return path
}

// SetupTestProject creates a temporary project with a base and a local
// environment, a data catalog and its raw data.
func SetupTestProject(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	WriteFile(t, root, "conf/base/catalog.yml", CatalogYAML)
	WriteFile(t, root, "conf/local/credentials.yml", "{}\n")
	WriteFile(t, root, "data/01_raw/companies.csv", CompaniesCSV)
	WriteFile(t, root, "data/01_raw/reviews.csv", ReviewsCSV)
	return root
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}

// AssertValidMarkdown performs basic markdown validation.
// It checks for unclosed code fences and empty headers.
func AssertValidMarkdown(t *testing.T, md string) {
	t.Helper()

	if fenceCount := strings.Count(md, "```"); fenceCount%2 != 0 {
		t.Errorf("unbalanced code fences in markdown: found %d occurrences", fenceCount)
	}

	for i, line := range strings.Split(md, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") && strings.TrimLeft(trimmed, "# ") == "" {
			t.Errorf("empty header at line %d: %q", i+1, line)
		}
	}
}
