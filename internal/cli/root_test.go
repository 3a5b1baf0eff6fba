package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leapstack-labs/leaptdda/internal/cli/output"
	"github.com/leapstack-labs/leaptdda/internal/cli/testutil"
	"github.com/leapstack-labs/leaptdda/internal/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type result struct {
	stdout string
	stderr string
	err    error
}

func execute(t *testing.T, args ...string) result {
	t.Helper()
	cmd := NewRootCmd()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return result{stdout: out.String(), stderr: errOut.String(), err: err}
}

func inProject(root string, args ...string) []string {
	return append(args, "--project-dir", root)
}

const failingCompanies = `companies:
    fields:
        id:
            max: 2
`

func TestRoot_Discover(t *testing.T) {
	root := testutil.SetupTestProject(t)

	res := execute(t, inProject(root, "tdda", "discover")...)
	require.NoError(t, res.err)

	assert.FileExists(t, filepath.Join(root, "conf", "base", "tdda", "companies.yml"))
	assert.FileExists(t, filepath.Join(root, "conf", "base", "tdda", "reviews.yml"))
	assert.NoFileExists(t, filepath.Join(root, "conf", "base", "tdda", "regressor.yml"))

	assert.Contains(t, res.stderr, "TDDA constraints are written to ./conf/base/tdda/companies.yml")
	assert.Contains(t, res.stderr, "run_id=")
	assert.Contains(t, res.stdout, "## TDDA discover (2 datasets)")
	testutil.AssertNoANSI(t, res.stdout)
	testutil.AssertValidMarkdown(t, res.stdout)

	t.Run("second run keeps files", func(t *testing.T) {
		path := filepath.Join(root, "conf", "base", "tdda", "companies.yml")
		before, err := os.ReadFile(path)
		require.NoError(t, err)

		res := execute(t, inProject(root, "tdda", "discover", "-d", "companies")...)
		require.NoError(t, res.err)
		assert.Contains(t, res.stderr, "TDDA discovery for `companies` skipped. File exists: ./conf/base/tdda/companies.yml")

		after, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("discovered constraints verify", func(t *testing.T) {
		res := execute(t, inProject(root, "tdda", "verify")...)
		require.NoError(t, res.err)
		assert.Contains(t, res.stderr, "Verification summary `companies`:")
		assert.Contains(t, res.stderr, "0 failures")
	})
}

func TestRoot_DiscoverOtherEnv(t *testing.T) {
	root := testutil.SetupTestProject(t)

	res := execute(t, inProject(root, "tdda", "discover", "-d", "reviews", "-e", "local")...)
	require.NoError(t, res.err)
	assert.FileExists(t, filepath.Join(root, "conf", "local", "tdda", "reviews.yml"))
	assert.NoFileExists(t, filepath.Join(root, "conf", "base", "tdda", "reviews.yml"))
}

func TestRoot_VerifyFailure(t *testing.T) {
	root := testutil.SetupTestProject(t)
	testutil.WriteFile(t, root, "conf/base/tdda/companies.yml", failingCompanies)

	res := execute(t, inProject(root, "tdda", "verify")...)
	require.Error(t, res.err)

	var verr *report.VerificationError
	require.True(t, errors.As(res.err, &verr))
	assert.Equal(t, "Dataset `companies` deviates from constraint specification:\n✗ id: max", res.err.Error())
	assert.Contains(t, res.stdout, "failed")
}

func TestRoot_VerifyWithoutConstraints(t *testing.T) {
	root := testutil.SetupTestProject(t)

	res := execute(t, inProject(root, "tdda", "verify", "-d", "reviews")...)
	require.NoError(t, res.err)
	assert.Contains(t, res.stderr, "No constraints found for reviews")
}

func TestRoot_Detect(t *testing.T) {
	root := testutil.SetupTestProject(t)
	testutil.WriteFile(t, root, "conf/base/tdda/companies.yml", failingCompanies)

	res := execute(t, inProject(root, "tdda", "detect")...)
	require.NoError(t, res.err)

	out := filepath.Join(root, "tdda_detect", "companies.csv")
	require.FileExists(t, out)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "n_failures")
	assert.Contains(t, string(data), "Initech")

	assert.Contains(t, res.stderr, "Detection for companies written to ./tdda_detect/companies.csv")
	assert.Contains(t, res.stderr, "deviates from constraint specification")
	assert.Contains(t, res.stderr, "No constraints found for reviews")
}

func TestRoot_DetectTargetDir(t *testing.T) {
	root := testutil.SetupTestProject(t)
	testutil.WriteFile(t, root, "conf/base/tdda/companies.yml", failingCompanies)
	target := filepath.Join(t.TempDir(), "anomalies")

	res := execute(t, inProject(root, "tdda", "detect", "-d", "companies", "--target-dir", target)...)
	require.NoError(t, res.err)
	assert.FileExists(t, filepath.Join(target, "companies.csv"))
}

func TestRoot_ListJSON(t *testing.T) {
	root := testutil.SetupTestProject(t)
	testutil.WriteFile(t, root, "conf/base/tdda/companies.yml", failingCompanies)
	testutil.WriteFile(t, root, "conf/base/tdda/shuttles.yml", "shuttles:\n    fields:\n        id:\n            type: int\n")

	res := execute(t, inProject(root, "tdda", "list", "--output", "json")...)
	require.NoError(t, res.err)

	var got output.ListOutput
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &got))
	assert.Equal(t, "base", got.Env)
	assert.Equal(t, "./conf/base/tdda", got.TddaDir)
	assert.Equal(t, []output.DatasetInfo{
		{Name: "companies", Type: "pandas.CSVDataset", Tabular: true, Loadable: true, HasConstraints: true, ConstraintPath: "./conf/base/tdda/companies.yml"},
		{Name: "regressor", Type: "pickle.PickleDataset"},
		{Name: "reviews", Type: "pandas.CSVDataset", Tabular: true, Loadable: true},
	}, got.Datasets)
	assert.Equal(t, []string{"shuttles"}, got.Orphaned)
}

func TestRoot_ListMarkdown(t *testing.T) {
	root := testutil.SetupTestProject(t)
	testutil.WriteFile(t, root, "conf/base/catalog_extra.yml", "sheet:\n  type: pandas.ExcelDataset\n  filepath: data/sheet.xlsx\n")
	testutil.WriteFile(t, root, "conf/base/tdda/shuttles.yml", "shuttles:\n    fields: {}\n")

	res := execute(t, inProject(root, "tdda", "list")...)
	require.NoError(t, res.err)

	testutil.AssertNoANSI(t, res.stdout)
	assert.Contains(t, strings.ToLower(res.stdout), "| loadable |")
	assert.Contains(t, res.stdout, "| sheet")
	assert.Contains(t, res.stdout, "## Orphaned constraints")
	assert.Contains(t, res.stdout, "- shuttles")
}

func TestRoot_PreviewRunsHooks(t *testing.T) {
	root := testutil.SetupTestProject(t)
	testutil.WriteFile(t, root, "conf/base/tdda/companies.yml", failingCompanies)

	res := execute(t, inProject(root, "tdda", "preview", "-d", "companies", "--rows", "2")...)
	require.NoError(t, res.err)

	assert.Contains(t, res.stdout, "Acme")
	assert.NotContains(t, res.stdout, "Initech")
	assert.Contains(t, res.stdout, "(2 of 3 rows)")
	assert.Contains(t, res.stderr, "Dataset `companies` deviates from constraint specification")
}

func TestRoot_Errors(t *testing.T) {
	root := testutil.SetupTestProject(t)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "invalid output", args: inProject(root, "tdda", "list", "--output", "html"), wantErr: "invalid configuration"},
		{name: "missing env", args: inProject(root, "tdda", "verify", "-e", "prod"), wantErr: "does not exist"},
		{name: "preview needs dataset", args: inProject(root, "tdda", "preview"), wantErr: "dataset"},
		{name: "unknown dataset preview", args: inProject(root, "tdda", "preview", "-d", "nope"), wantErr: "failed to load nope"},
		{name: "positional args", args: inProject(root, "tdda", "discover", "companies"), wantErr: "unknown command"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := execute(t, tt.args...)
			require.Error(t, res.err)
			assert.Contains(t, res.err.Error(), tt.wantErr)
		})
	}
}

func TestRoot_VersionAndCompletion(t *testing.T) {
	res := execute(t, "version")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "leaptdda v"+Version)
	assert.Contains(t, res.stdout, "commit: ")

	res = execute(t, "completion", "bash")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "leaptdda")
}
