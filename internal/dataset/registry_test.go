package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

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

func TestSide(t *testing.T) {
	assert.Equal(t, "left", Left.String())
	assert.Equal(t, "right", Right.String())
	assert.Equal(t, Right, Left.Other())
	assert.Equal(t, Left, Right.Other())
}

func TestRegistry_SetAndGet(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	tbl := buildTable(t, []string{"id", "name"}, []string{"1", "A"}, []string{"2", "B"})

	require.NoError(t, r.SetDataset(Left, tbl, []string{"id"}))
	assert.True(t, r.Loaded(Left))
	assert.False(t, r.Loaded(Right))

	rec, err := r.Get(Left, []string{"2"})
	require.NoError(t, err)
	v, ok := rec.Get("name")
	require.True(t, ok)
	assert.Equal(t, "B", v.Str)

	_, err = r.Get(Left, []string{"3"})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = r.Get(Right, []string{"1"})
	assert.ErrorIs(t, err, ErrNotLoaded)
}

func TestRegistry_CompositeIDTuple(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	tbl := buildTable(t, []string{"st", "num", "name"},
		[]string{"CA", "1", "A"},
		[]string{"NY", "1", "B"},
	)
	require.NoError(t, r.SetDataset(Left, tbl, []string{"st", "num"}))

	rec, err := r.Get(Left, []string{"NY", "1"})
	require.NoError(t, err)
	v, _ := rec.Get("name")
	assert.Equal(t, "B", v.Str)

	// Tuple order matters.
	_, err = r.Get(Left, []string{"1", "NY"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegistry_RequiresIDColumns(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	tbl := buildTable(t, []string{"id"}, []string{"1"})

	err := r.SetDataset(Left, tbl, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "id column")
}

func TestRegistry_UnknownIDColumn(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	tbl := buildTable(t, []string{"id"}, []string{"1"})

	err := r.SetDataset(Left, tbl, []string{"uid"})
	require.ErrorIs(t, err, ErrUnknownField)
	assert.Contains(t, err.Error(), `"uid"`)
}

func TestRegistry_NonUniqueIdentifier(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	tbl := buildTable(t, []string{"id", "name"}, []string{"1", "A"}, []string{"1", "B"})

	err := r.SetDataset(Left, tbl, []string{"id"})
	require.ErrorIs(t, err, ErrNonUniqueIdentifier)
	assert.Contains(t, err.Error(), "1")
	assert.False(t, r.Loaded(Left))
}

func TestRegistry_OverlappingIdentifiers(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	left := buildTable(t, []string{"id", "name"}, []string{"1", "A"})
	right := buildTable(t, []string{"id", "val"}, []string{"x", "X"})

	require.NoError(t, r.SetDataset(Left, left, []string{"id"}))
	err := r.SetDataset(Right, right, []string{"id"})
	require.ErrorIs(t, err, ErrOverlappingIdentifiers)
	assert.Contains(t, err.Error(), "id")
	assert.False(t, r.Loaded(Right))
}

func TestRegistry_GenerationBumpsOnReplace(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	tbl := buildTable(t, []string{"id"}, []string{"1"})

	gen := r.Generation()
	require.NoError(t, r.SetDataset(Left, tbl, []string{"id"}))
	assert.Equal(t, gen+1, r.Generation())

	replacement := buildTable(t, []string{"id"}, []string{"9"})
	require.NoError(t, r.SetDataset(Left, replacement, []string{"id"}))
	assert.Equal(t, gen+2, r.Generation())

	// The old dataset is gone wholesale.
	assert.False(t, r.Has(Left, []string{"1"}))
	assert.True(t, r.Has(Left, []string{"9"}))
}

func TestRegistry_InMemorySourceHasNoName(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	tbl := buildTable(t, []string{"id"}, []string{"1"})
	require.NoError(t, r.SetDataset(Left, tbl, []string{"id"}))

	d := r.Dataset(Left)
	assert.Empty(t, d.SourcePath())
	assert.Empty(t, d.SourceName())
}
