package constraints

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/leapstack-labs/leaptdda/pkg/core"
)

// RowNumberColumn is the first column of a detection file. Row numbers are
// zero-based positions in the loaded dataset.
const RowNumberColumn = "row_number"

// FailuresColumn is the last column of a detection file.
const FailuresColumn = "n_failures"

// indicator holds the per-row outcome of one (field, rule) check.
type indicator struct {
	name string
	ok   []bool
}

// Detect verifies f against spec and, when any check fails, writes every
// failing record to outPath as CSV with one <field>_<rule>_ok column per
// check and a trailing n_failures count. When all checks pass nothing is
// written and a detection file left by an earlier run is removed.
func (e *Engine) Detect(f *core.Frame, spec *core.Spec, outPath string) (*core.Verification, error) {
	v := e.Verify(f, spec)
	if v.Failures == 0 {
		if err := os.Remove(outPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return v, fmt.Errorf("failed to remove stale detection file: %w", err)
		}
		return v, nil
	}

	indicators := rowIndicators(f, spec)
	if err := writeDetection(outPath, f, indicators); err != nil {
		return v, err
	}
	return v, nil
}

func rowIndicators(f *core.Frame, spec *core.Spec) []indicator {
	n := f.NumRows()
	var out []indicator
	for _, field := range spec.FieldNames() {
		rules := spec.Fields[field]
		col := f.Column(field)
		for _, rule := range core.OrderedRules(rules) {
			ind := indicator{name: field + "_" + rule + "_ok", ok: make([]bool, n)}
			if col != nil {
				fillRowChecks(ind.ok, col, rule, rules[rule])
			}
			out = append(out, ind)
		}
	}
	return out
}

// fillRowChecks sets ok[i] for each record. Nulls pass value rules; they
// fail max_nulls only when the column as a whole exceeds the limit.
func fillRowChecks(ok []bool, s *core.Series, rule string, param any) {
	switch rule {
	case core.RuleMaxNulls:
		pass := checkColumn(s, rule, param)
		for i, v := range s.Values {
			ok[i] = pass || v != nil
		}
		return
	case core.RuleNoDuplicates:
		want, isBool := param.(bool)
		if !isBool {
			return
		}
		var dups map[string]bool
		if want {
			dups = duplicateKeys(s.Values)
		}
		for i, v := range s.Values {
			ok[i] = v == nil || !dups[valueKey(v)]
		}
		return
	}

	check, valid := valueCheck(rule, param)
	if !valid {
		return
	}
	for i, v := range s.Values {
		ok[i] = v == nil || check(v)
	}
}

func writeDetection(path string, f *core.Frame, indicators []indicator) (err error) {
	file, err := os.Create(path) //nolint:gosec // path is built from the target directory and dataset name
	if err != nil {
		return fmt.Errorf("failed to create detection file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close detection file: %w", cerr)
		}
	}()

	w := csv.NewWriter(file)
	header := append([]string{RowNumberColumn}, f.Columns()...)
	for _, ind := range indicators {
		header = append(header, ind.name)
	}
	header = append(header, FailuresColumn)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write detection header: %w", err)
	}

	for i := 0; i < f.NumRows(); i++ {
		failures := 0
		for _, ind := range indicators {
			if !ind.ok[i] {
				failures++
			}
		}
		if failures == 0 {
			continue
		}

		record := make([]string, 0, len(header))
		record = append(record, strconv.Itoa(i))
		for _, val := range f.Row(i) {
			record = append(record, FormatValue(val))
		}
		for _, ind := range indicators {
			record = append(record, strconv.FormatBool(ind.ok[i]))
		}
		record = append(record, strconv.Itoa(failures))
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write detection row %d: %w", i, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush detection file: %w", err)
	}
	return nil
}
