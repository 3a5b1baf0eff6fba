package catalog

import (
	"fmt"
	"strings"
)

// DatasetError reports a dataset that could not be loaded. It is
// recoverable: callers skip the dataset and continue.
type DatasetError struct {
	Name string
	Err  error
}

func (e *DatasetError) Error() string {
	return fmt.Sprintf("failed to load %s from catalog: %v", e.Name, e.Err)
}

func (e *DatasetError) Unwrap() error { return e.Err }

// UnknownDatasetError is wrapped in a DatasetError when a name is not in the
// catalog.
type UnknownDatasetError struct {
	Name      string
	Available []string
}

func (e *UnknownDatasetError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("dataset %q not found in catalog (catalog is empty)", e.Name)
	}
	return fmt.Sprintf("dataset %q not found in catalog\nAvailable datasets: %s", e.Name, strings.Join(e.Available, ", "))
}
