package catalog

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/leapstack-labs/leaptdda/pkg/adapters/duckdb"
)

// Dataset type names, without the kedro_datasets. package prefix.
const (
	TypeCSV      = "pandas.CSVDataset"
	TypeParquet  = "pandas.ParquetDataset"
	TypeJSON     = "pandas.JSONDataset"
	TypeSQLTable = "pandas.SQLTableDataset"
	TypeSQLQuery = "pandas.SQLQueryDataset"
)

var typePrefixes = []string{"kedro_datasets.", "kedro.extras.datasets."}

// Entry is one dataset definition from catalog.yml.
type Entry struct {
	Name        string         `mapstructure:"-"`
	Type        string         `mapstructure:"type" validate:"required"`
	Filepath    string         `mapstructure:"filepath"`
	TableName   string         `mapstructure:"table_name"`
	SQL         string         `mapstructure:"sql"`
	Credentials any            `mapstructure:"credentials"`
	LoadArgs    map[string]any `mapstructure:"load_args"`
}

var validate = validator.New()

// decodeEntry converts a raw catalog value into a validated Entry.
// Keys the loader does not use (save_args, versioned, metadata...) are ignored.
func decodeEntry(name string, raw any) (*Entry, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("catalog entry %q must be a mapping, got %T", name, raw)
	}

	e := &Entry{Name: name}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           e,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(m); err != nil {
		return nil, fmt.Errorf("invalid catalog entry %q: %w", name, err)
	}
	if err := validate.Struct(e); err != nil {
		return nil, fmt.Errorf("invalid catalog entry %q: %w", name, err)
	}
	if err := e.check(); err != nil {
		return nil, fmt.Errorf("invalid catalog entry %q: %w", name, err)
	}
	return e, nil
}

func (e *Entry) check() error {
	switch e.DatasetType() {
	case TypeCSV, TypeParquet, TypeJSON:
		if e.Filepath == "" {
			return fmt.Errorf("%s requires filepath", e.Type)
		}
	case TypeSQLTable:
		if e.TableName == "" {
			return fmt.Errorf("%s requires table_name", e.Type)
		}
		if e.Credentials == nil {
			return fmt.Errorf("%s requires credentials", e.Type)
		}
	case TypeSQLQuery:
		if e.SQL == "" && e.Filepath == "" {
			return fmt.Errorf("%s requires sql or filepath", e.Type)
		}
		if e.Credentials == nil {
			return fmt.Errorf("%s requires credentials", e.Type)
		}
	}
	return nil
}

// DatasetType returns the type with any package prefix removed and the
// legacy DataSet spelling folded into Dataset.
func (e *Entry) DatasetType() string {
	t := e.Type
	for _, p := range typePrefixes {
		t = strings.TrimPrefix(t, p)
	}
	if strings.HasSuffix(t, "DataSet") {
		t = strings.TrimSuffix(t, "DataSet") + "Dataset"
	}
	return t
}

// IsTabular reports whether the entry loads as a pandas dataframe.
func (e *Entry) IsTabular() bool {
	return strings.HasPrefix(e.DatasetType(), "pandas.")
}

// Schema returns load_args.schema, the database schema of a table entry.
func (e *Entry) Schema() string {
	s, _ := e.LoadArgs["schema"].(string)
	return s
}

// Loadable reports whether this package can load the entry.
func (e *Entry) Loadable() bool {
	switch e.DatasetType() {
	case TypeCSV, TypeParquet, TypeJSON, TypeSQLTable, TypeSQLQuery:
		return true
	default:
		return false
	}
}

func (e *Entry) fileFormat() (duckdb.Format, bool) {
	switch e.DatasetType() {
	case TypeCSV:
		return duckdb.FormatCSV, true
	case TypeParquet:
		return duckdb.FormatParquet, true
	case TypeJSON:
		return duckdb.FormatJSON, true
	default:
		return "", false
	}
}
