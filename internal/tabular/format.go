package tabular

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat is returned when a file extension does not map
// to a supported tabular format.
var ErrUnsupportedFormat = errors.New("unsupported tabular format")

// Format is the closed set of supported file encodings.
type Format int

const (
	// FormatCSV is comma-delimited text with a header row.
	FormatCSV Format = iota + 1
	// FormatParquet is the columnar Parquet encoding.
	FormatParquet
)

// String returns the canonical extension for the format.
func (f Format) String() string {
	switch f {
	case FormatCSV:
		return ".csv"
	case FormatParquet:
		return ".parquet"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// DetectFormat maps a file path to its Format by extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".parquet":
		return FormatParquet, nil
	default:
		return 0, fmt.Errorf("%w: %s (extension %q, want .csv or .parquet)",
			ErrUnsupportedFormat, path, filepath.Ext(path))
	}
}

// ReadFile loads a table from path, dispatching on the file extension.
func ReadFile(path string) (*Table, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	switch format {
	case FormatCSV:
		return readCSV(path)
	default:
		return readParquet(path)
	}
}

// WriteFile writes a table to path, dispatching on the file extension.
func WriteFile(path string, t *Table) error {
	format, err := DetectFormat(path)
	if err != nil {
		return err
	}
	switch format {
	case FormatCSV:
		return writeCSV(path, t)
	default:
		return writeParquet(path, t)
	}
}
