package tabular

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path    string
		want    Format
		wantErr bool
	}{
		{"data.csv", FormatCSV, false},
		{"DATA.CSV", FormatCSV, false},
		{"data.parquet", FormatParquet, false},
		{"data.xlsx", 0, true},
		{"data", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := DetectFormat(tt.path)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnsupportedFormat)
				assert.Contains(t, err.Error(), tt.path)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadFile_UnsupportedExtension(t *testing.T) {
	_, err := ReadFile("pairs.xlsx")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestCSV_RoundTrip(t *testing.T) {
	tbl, err := NewTable([]string{"id", "name", "age"})
	require.NoError(t, err)
	require.NoError(t, tbl.AppendRow([]Value{StringValue("1"), StringValue("Beth Johnson"), NumberValue(21)}))
	require.NoError(t, tbl.AppendRow([]Value{StringValue("2"), StringValue("with, comma"), NullValue()}))

	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, WriteFile(path, tbl))

	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "age"}, got.Columns())
	require.Equal(t, 2, got.NumRows())

	v, ok := got.Cell(0, "age")
	require.True(t, ok)
	assert.Equal(t, "21", v.String())

	v, ok = got.Cell(1, "name")
	require.True(t, ok)
	assert.Equal(t, "with, comma", v.Str)

	// Null round-trips as an empty cell.
	v, ok = got.Cell(1, "age")
	require.True(t, ok)
	assert.Equal(t, "", v.String())
}

func TestReadCSV_HeaderOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(path, []byte("id,name\n"), 0o644))

	tbl, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.NumRows())
	assert.Equal(t, []string{"id", "name"}, tbl.Columns())
}

func TestReadCSV_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	_, err := ReadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "header")
}

func TestReadCSV_RaggedRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ragged.csv")
	require.NoError(t, os.WriteFile(path, []byte("id,name\n1\n"), 0o644))

	_, err := ReadFile(path)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "line 2") || strings.Contains(err.Error(), "fields"))
}

func TestParquet_RoundTrip(t *testing.T) {
	tbl, err := NewTable([]string{"id", "score"})
	require.NoError(t, err)
	require.NoError(t, tbl.AppendRow([]Value{StringValue("a"), NumberValue(0.25)}))
	require.NoError(t, tbl.AppendRow([]Value{StringValue("b"), NullValue()}))

	path := filepath.Join(t.TempDir(), "out.parquet")
	require.NoError(t, WriteFile(path, tbl))

	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "score"}, got.Columns())
	require.Equal(t, 2, got.NumRows())

	v, ok := got.Cell(0, "score")
	require.True(t, ok)
	assert.Equal(t, KindNumber, v.Kind)
	assert.Equal(t, 0.25, v.Num)

	v, ok = got.Cell(1, "score")
	require.True(t, ok)
	assert.True(t, v.IsNull())
}
