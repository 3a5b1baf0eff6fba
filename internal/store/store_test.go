package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/leapstack-labs/leaptdda/internal/testutil"
	"github.com/leapstack-labs/leaptdda/pkg/constraints"
	"github.com/leapstack-labs/leaptdda/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSpec() *core.Spec {
	return &core.Spec{
		Metadata: &core.Metadata{
			LocalTime: "2026-01-02 03:04:05",
			UTCTime:   "2026-01-02 03:04:05",
			Creator:   "leaptdda",
			NRecords:  3,
			NSelected: 3,
		},
		Fields: map[string]core.Rules{
			"id":    {"type": "int", "min": int64(1), "max": int64(3), "max_nulls": 0, "no_duplicates": true},
			"score": {"type": "real", "min": -2.0, "max": 4.0, "max_nulls": 1},
			"name":  {"type": "string", "min_length": 1, "max_length": 5, "allowed_values": []any{"1", "acme", "true"}},
			"when":  {"type": "date", "min": "1999-01-02 00:00:00", "max": "2010-12-31 00:00:00"},
			"empty": {},
		},
	}
}

func TestMarshal_Layout(t *testing.T) {
	spec := &core.Spec{Fields: map[string]core.Rules{
		"b": {"type": "int", "max_nulls": 0},
		"a": {"type": "string"},
	}}

	data, err := Marshal("companies", spec)
	require.NoError(t, err)
	assert.Equal(t, `companies:
    fields:
        a:
            type: string
        b:
            max_nulls: 0
            type: int
`, string(data))
}

func TestWriteRead_RoundTrip(t *testing.T) {
	s := New(t.TempDir(), "", testutil.NewTestLogger(t))
	want := sampleSpec()

	outcome, err := s.Write("companies", want, false)
	require.NoError(t, err)
	assert.Equal(t, Written, outcome)

	got, found, err := s.Read("companies")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, want, got)
}

func TestWriteRead_DiscoveredSpecRoundTrip(t *testing.T) {
	f := core.NewFrame("companies")
	require.NoError(t, f.AddSeries(&core.Series{Name: "id", Kind: core.KindInt, Values: []any{int64(1), int64(2)}}))
	require.NoError(t, f.AddSeries(&core.Series{Name: "rating", Kind: core.KindReal, Values: []any{2.0, 5.0}}))
	require.NoError(t, f.AddSeries(&core.Series{Name: "since", Kind: core.KindDate, Values: []any{
		time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), nil,
	}}))

	want := constraints.New().Discover(f)
	s := New(t.TempDir(), "", nil)
	_, err := s.Write("companies", want, true)
	require.NoError(t, err)

	got, found, err := s.Read("companies")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, want, got)
}

func TestWriteRead_TimestampBoundsVerify(t *testing.T) {
	plusOne := time.FixedZone("UTC+1", 3600)
	f := core.NewFrame("events")
	require.NoError(t, f.AddSeries(&core.Series{Name: "at", Kind: core.KindDate, Values: []any{
		time.Date(2024, 1, 1, 12, 0, 0, 0, plusOne),
		time.Date(2024, 1, 1, 12, 0, 0, 500_000, plusOne),
		time.Date(2024, 1, 1, 13, 0, 0, 0, plusOne),
	}}))

	engine := constraints.New()
	data, err := Marshal("events", engine.Discover(f))
	require.NoError(t, err)

	spec, err := Unmarshal("events", data)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01 11:00:00", spec.Fields["at"]["min"])
	assert.Equal(t, "2024-01-01 12:00:00", spec.Fields["at"]["max"])

	v := engine.Verify(f, spec)
	assert.Zero(t, v.Failures)
}

func TestWrite_SkipsExisting(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, "", nil)
	path := s.Path("companies")
	require.NoError(t, os.WriteFile(path, []byte("original"), 0o600))

	outcome, err := s.Write("companies", sampleSpec(), false)
	require.NoError(t, err)
	assert.Equal(t, Skipped, outcome)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))
}

func TestWrite_Overwrite(t *testing.T) {
	s := New(t.TempDir(), "", nil)
	path := s.Path("companies")
	require.NoError(t, os.WriteFile(path, []byte("original"), 0o600))

	outcome, err := s.Write("companies", sampleSpec(), true)
	require.NoError(t, err)
	assert.Equal(t, Written, outcome)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "companies:\n    creation_metadata:")

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file left behind")
}

func TestRead(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		wantFound bool
		wantErr   string
	}{
		{name: "missing", wantFound: false},
		{name: "wrong key", content: "other:\n    fields: {}\n", wantErr: `no entry for dataset "companies"`},
		{name: "invalid yaml", content: "companies: [\n", wantErr: "invalid specification"},
		{name: "valid", content: "companies:\n    fields:\n        id:\n            type: int\n", wantFound: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(t.TempDir(), "", nil)
			if tt.content != "" {
				require.NoError(t, os.WriteFile(s.Path("companies"), []byte(tt.content), 0o600))
			}

			spec, found, err := s.Read("companies")
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantFound, found)
			if found {
				assert.Equal(t, core.Rules{"type": "int"}, spec.Fields["id"])
			}
		})
	}
}

func TestRead_FallsBackToBase(t *testing.T) {
	root := t.TempDir()
	base := filepath.Join(root, "base", "tdda")
	prod := filepath.Join(root, "prod", "tdda")
	require.NoError(t, New(base, "", nil).writeFixture("companies", "a"))
	require.NoError(t, New(base, "", nil).writeFixture("reviews", "b"))
	require.NoError(t, New(prod, "", nil).writeFixture("reviews", "c"))

	s := New(prod, base, nil)
	assert.True(t, s.Exists("companies"))
	assert.False(t, s.Exists("shuttles"))
	assert.Equal(t, []string{"companies", "reviews"}, s.Names())

	spec, found, err := s.Read("reviews")
	require.NoError(t, err)
	require.True(t, found)
	assert.Contains(t, spec.Fields, "c")
}

func (s *Store) writeFixture(name, field string) error {
	_, err := s.Write(name, &core.Spec{Fields: map[string]core.Rules{field: {"type": "int"}}}, true)
	return err
}

func TestDecode(t *testing.T) {
	raw := map[string]any{
		"creation_metadata": map[string]any{"creator": "tdda", "n_records": 10},
		"fields": map[string]any{
			"id":   map[string]any{"type": "real", "min": 1, "max": 2.5},
			"note": nil,
		},
	}

	spec, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "tdda", spec.Metadata.Creator)
	assert.Equal(t, 10, spec.Metadata.NRecords)
	assert.Equal(t, core.Rules{"type": "real", "min": 1.0, "max": 2.5}, spec.Fields["id"])
	assert.Equal(t, core.Rules{}, spec.Fields["note"])

	_, err = Decode("nope")
	require.Error(t, err)
}

func TestWriteOutcome_String(t *testing.T) {
	assert.Equal(t, "written", Written.String())
	assert.Equal(t, "skipped", Skipped.String())
	assert.Equal(t, "unknown", WriteOutcome(0).String())
}
