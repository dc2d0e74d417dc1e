package compare

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/linkrev/linkrev/internal/dataset"
	"github.com/linkrev/linkrev/internal/tabular"
)

func buildTable(t *testing.T, columns []string, rows ...[]string) *tabular.Table {
	t.Helper()
	tbl, err := tabular.NewTable(columns)
	require.NoError(t, err)
	for _, row := range rows {
		values := make([]tabular.Value, len(row))
		for i, cell := range row {
			values[i] = tabular.StringValue(cell)
		}
		require.NoError(t, tbl.AppendRow(values))
	}
	return tbl
}

// loadedRegistry has left rows lid 1,2 and right row rid 1.
func loadedRegistry(t *testing.T) *dataset.Registry {
	t.Helper()
	r := dataset.NewRegistry(zap.NewNop())
	left := buildTable(t, []string{"lid", "name"}, []string{"1", "A"}, []string{"2", "B"})
	require.NoError(t, r.SetDataset(dataset.Left, left, []string{"lid"}))
	right := buildTable(t, []string{"rid", "val"}, []string{"1", "X"})
	require.NoError(t, r.SetDataset(dataset.Right, right, []string{"rid"}))
	return r
}

func TestSet_RequiresLoadedDatasets(t *testing.T) {
	r := dataset.NewRegistry(zap.NewNop())
	s := NewSet(r, zap.NewNop())

	_, err := s.LoadTable(buildTable(t, []string{"lid", "rid"}), DefaultExistThreshold)
	assert.ErrorIs(t, err, ErrPrerequisiteMissing)
}

func TestSet_RequiresIDColumns(t *testing.T) {
	r := loadedRegistry(t)
	s := NewSet(r, zap.NewNop())

	_, err := s.LoadTable(buildTable(t, []string{"lid", "other"}, []string{"1", "x"}), DefaultExistThreshold)
	require.ErrorIs(t, err, ErrMissingColumn)
	assert.Contains(t, err.Error(), `"rid"`)
}

func TestSet_LoadProbesExistence(t *testing.T) {
	// Row 0 resolves on both sides; row 1's right id is absent. The
	// found fraction 0.5 is below the 0.8 threshold: warn, still load.
	r := loadedRegistry(t)
	s := NewSet(r, zap.NewNop())

	pairs := buildTable(t, []string{"lid", "rid"}, []string{"1", "1"}, []string{"2", "9"})
	warnings, err := s.LoadTable(pairs, DefaultExistThreshold)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "50.0%")

	assert.True(t, s.Loaded())
	assert.Equal(t, 2, s.NumRows())
	assert.Equal(t, 0.5, s.FoundFraction())

	row0, err := s.Row(0)
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, row0.LeftID)
	assert.Equal(t, []string{"1"}, row0.RightID)
	assert.Equal(t, IndicatorUnlabeled, row0.Indicator)
	assert.Empty(t, row0.Label)
	assert.True(t, row0.Modified.IsZero())

	row1, err := s.Row(1)
	require.NoError(t, err)
	assert.Equal(t, IndicatorMissing, row1.Indicator)
}

func TestSet_ThresholdZeroDisablesCheck(t *testing.T) {
	r := loadedRegistry(t)
	s := NewSet(r, zap.NewNop())

	pairs := buildTable(t, []string{"lid", "rid"}, []string{"2", "9"})
	warnings, err := s.LoadTable(pairs, 0)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, 0.0, s.FoundFraction())
}

func TestSet_DuplicatePairWarnsButLoads(t *testing.T) {
	r := loadedRegistry(t)
	s := NewSet(r, zap.NewNop())

	pairs := buildTable(t, []string{"lid", "rid"}, []string{"1", "1"}, []string{"1", "1"})
	warnings, err := s.LoadTable(pairs, DefaultExistThreshold)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "duplicate pair ids")
	assert.Equal(t, 2, s.NumRows())
}

func TestSet_PreservesExistingReviewColumns(t *testing.T) {
	r := loadedRegistry(t)
	s := NewSet(r, zap.NewNop())

	pairs := buildTable(t,
		[]string{"lid", "rid", LabelColumn, IndicatorColumn, ModifiedColumn, NoteColumn},
		[]string{"1", "1", "Match", "1", "", "looks right"},
		[]string{"2", "9", "Match", "1", "", ""},
	)
	_, err := s.LoadTable(pairs, 0)
	require.NoError(t, err)

	row0, err := s.Row(0)
	require.NoError(t, err)
	assert.Equal(t, "Match", row0.Label)
	assert.Equal(t, IndicatorLabeled, row0.Indicator)
	assert.Equal(t, "looks right", row0.Note)

	// Missing ids win over a stored label.
	row1, err := s.Row(1)
	require.NoError(t, err)
	assert.Equal(t, "Match", row1.Label)
	assert.Equal(t, IndicatorMissing, row1.Indicator)
}

func TestSet_RowBounds(t *testing.T) {
	r := loadedRegistry(t)
	s := NewSet(r, zap.NewNop())

	_, err := s.Row(0)
	assert.ErrorIs(t, err, ErrNotLoaded)

	_, err = s.LoadTable(buildTable(t, []string{"lid", "rid"}, []string{"1", "1"}), DefaultExistThreshold)
	require.NoError(t, err)

	_, err = s.Row(-1)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = s.Row(1)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestSet_SetLabelAndNote(t *testing.T) {
	r := loadedRegistry(t)
	s := NewSet(r, zap.NewNop())
	_, err := s.LoadTable(buildTable(t, []string{"lid", "rid"}, []string{"1", "1"}), DefaultExistThreshold)
	require.NoError(t, err)

	t0 := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.SetLabel(0, "Match", t0))

	row, err := s.Row(0)
	require.NoError(t, err)
	assert.Equal(t, "Match", row.Label)
	assert.Equal(t, IndicatorLabeled, row.Indicator)
	assert.True(t, row.Modified.Equal(t0))

	t1 := t0.Add(time.Second)
	require.NoError(t, s.SetNote(0, "same person", t1))
	row, err = s.Row(0)
	require.NoError(t, err)
	assert.Equal(t, "same person", row.Note)
	assert.True(t, row.Modified.After(t0))

	// Clearing the label returns the pair to unlabeled.
	require.NoError(t, s.SetLabel(0, "", t1.Add(time.Second)))
	row, err = s.Row(0)
	require.NoError(t, err)
	assert.Equal(t, IndicatorUnlabeled, row.Indicator)
}

func TestSet_LabelOnMissingPairKeepsIndicator(t *testing.T) {
	r := loadedRegistry(t)
	s := NewSet(r, zap.NewNop())
	_, err := s.LoadTable(buildTable(t, []string{"lid", "rid"}, []string{"2", "9"}), 0)
	require.NoError(t, err)

	require.NoError(t, s.SetLabel(0, "Match", time.Now()))
	row, err := s.Row(0)
	require.NoError(t, err)
	assert.Equal(t, IndicatorMissing, row.Indicator)
	assert.Equal(t, "Match", row.Label)
}

func TestSet_LabelCounts(t *testing.T) {
	r := loadedRegistry(t)
	s := NewSet(r, zap.NewNop())
	pairs := buildTable(t,
		[]string{"lid", "rid", LabelColumn},
		[]string{"1", "1", ""},
		[]string{"2", "1", "Match"},
		[]string{"1", "9", "Old Label"},
	)
	_, err := s.LoadTable(pairs, 0)
	require.NoError(t, err)

	choices := []string{"Match", "Not a Match"}
	counts := s.LabelCounts(choices)
	assert.Equal(t, 1, counts[UnlabeledBucket])
	assert.Equal(t, 1, counts["Match"])
	assert.Equal(t, 0, counts["Not a Match"])
	// A label outside the current choices keeps its own bucket.
	assert.Equal(t, 1, counts["Old Label"])

	sum := 0
	for _, c := range counts {
		sum += c
	}
	assert.Equal(t, s.NumRows(), sum)
}

func TestSet_LabelCountsAllUnlabeled(t *testing.T) {
	r := loadedRegistry(t)
	s := NewSet(r, zap.NewNop())
	pairs := buildTable(t, []string{"lid", "rid"}, []string{"1", "1"}, []string{"2", "1"})
	_, err := s.LoadTable(pairs, 0)
	require.NoError(t, err)

	counts := s.LabelCounts([]string{"Match", "Not a Match"})
	assert.Equal(t, map[string]int{
		UnlabeledBucket: 2,
		"Match":         0,
		"Not a Match":   0,
	}, counts)
}

func TestSet_SaveRoundTrip(t *testing.T) {
	r := loadedRegistry(t)
	s := NewSet(r, zap.NewNop())
	dir := t.TempDir()
	src := filepath.Join(dir, "pairs.csv")

	pairs := buildTable(t, []string{"lid", "rid"}, []string{"1", "1"})
	require.NoError(t, tabular.WriteFile(src, pairs))

	_, err := s.Load(src, DefaultExistThreshold)
	require.NoError(t, err)
	assert.Equal(t, src, s.SourcePath())

	require.NoError(t, s.SetLabel(0, "Match", time.Now()))
	require.NoError(t, s.Save(""))

	// Reload and check the review columns round-tripped.
	s2 := NewSet(r, zap.NewNop())
	_, err = s2.Load(src, DefaultExistThreshold)
	require.NoError(t, err)
	row, err := s2.Row(0)
	require.NoError(t, err)
	assert.Equal(t, "Match", row.Label)
	assert.Equal(t, IndicatorLabeled, row.Indicator)
	assert.False(t, row.Modified.IsZero())
}

func TestSet_SaveNoDestination(t *testing.T) {
	r := loadedRegistry(t)
	s := NewSet(r, zap.NewNop())
	_, err := s.LoadTable(buildTable(t, []string{"lid", "rid"}, []string{"1", "1"}), DefaultExistThreshold)
	require.NoError(t, err)

	err = s.Save("")
	assert.ErrorIs(t, err, ErrNoDestination)
}

func TestSet_SaveUnsupportedFormat(t *testing.T) {
	r := loadedRegistry(t)
	s := NewSet(r, zap.NewNop())
	_, err := s.LoadTable(buildTable(t, []string{"lid", "rid"}, []string{"1", "1"}), DefaultExistThreshold)
	require.NoError(t, err)

	err = s.Save(filepath.Join(t.TempDir(), "out.xlsx"))
	assert.ErrorIs(t, err, tabular.ErrUnsupportedFormat)
}

func TestSet_InvalidatedByDatasetReplacement(t *testing.T) {
	r := loadedRegistry(t)
	s := NewSet(r, zap.NewNop())
	_, err := s.LoadTable(buildTable(t, []string{"lid", "rid"}, []string{"1", "1"}), DefaultExistThreshold)
	require.NoError(t, err)
	require.True(t, s.Loaded())

	left := buildTable(t, []string{"lid", "name"}, []string{"7", "Z"})
	require.NoError(t, r.SetDataset(dataset.Left, left, []string{"lid"}))
	assert.False(t, s.Loaded())

	// The stale table is unreachable until reloaded: reads, writes, and
	// saves all refuse, and the row count collapses to zero.
	_, err = s.Row(0)
	assert.ErrorIs(t, err, ErrNotLoaded)
	assert.ErrorIs(t, s.SetLabel(0, "Match", time.Now()), ErrNotLoaded)
	assert.ErrorIs(t, s.SetNote(0, "stale", time.Now()), ErrNotLoaded)
	assert.ErrorIs(t, s.Save(""), ErrNotLoaded)
	assert.Equal(t, 0, s.NumRows())
	assert.Equal(t, 0, s.LabelCounts([]string{"Match"})["Match"])
}
