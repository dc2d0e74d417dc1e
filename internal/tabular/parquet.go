package tabular

import (
	"context"
	"fmt"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
)

func readParquet(path string) (*Table, error) {
	rdr, err := file.OpenParquetFile(path, false)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer rdr.Close()

	fr, err := pqarrow.NewFileReader(rdr, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	at, err := fr.ReadTable(context.Background())
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	defer at.Release()

	columns := make([]string, at.NumCols())
	for i := range columns {
		columns[i] = at.Schema().Field(i).Name
	}
	t, err := NewTable(columns)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	// Materialize column-major chunks into row-major Values.
	cells := make([][]Value, at.NumCols())
	for ci := 0; ci < int(at.NumCols()); ci++ {
		cells[ci] = make([]Value, 0, at.NumRows())
		for _, chunk := range at.Column(ci).Data().Chunks() {
			for ri := 0; ri < chunk.Len(); ri++ {
				cells[ci] = append(cells[ci], arrowValue(chunk, ri))
			}
		}
	}
	row := make([]Value, at.NumCols())
	for ri := 0; ri < int(at.NumRows()); ri++ {
		for ci := range row {
			row[ci] = cells[ci][ri]
		}
		if err := t.AppendRow(row); err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}
	return t, nil
}

func arrowValue(a arrow.Array, i int) Value {
	if a.IsNull(i) {
		return NullValue()
	}
	switch arr := a.(type) {
	case *array.String:
		return StringValue(arr.Value(i))
	case *array.LargeString:
		return StringValue(arr.Value(i))
	case *array.Float64:
		return NumberValue(arr.Value(i))
	case *array.Float32:
		return NumberValue(float64(arr.Value(i)))
	case *array.Int64:
		return NumberValue(float64(arr.Value(i)))
	case *array.Int32:
		return NumberValue(float64(arr.Value(i)))
	case *array.Int16:
		return NumberValue(float64(arr.Value(i)))
	case *array.Int8:
		return NumberValue(float64(arr.Value(i)))
	default:
		return StringValue(a.ValueStr(i))
	}
}

func writeParquet(path string, t *Table) error {
	fields := make([]arrow.Field, len(t.Columns()))
	numeric := make([]bool, len(t.Columns()))
	for ci, name := range t.Columns() {
		numeric[ci] = columnIsNumeric(t, name)
		dt := arrow.DataType(arrow.BinaryTypes.String)
		if numeric[ci] {
			dt = arrow.PrimitiveTypes.Float64
		}
		fields[ci] = arrow.Field{Name: name, Type: dt, Nullable: true}
	}
	schema := arrow.NewSchema(fields, nil)

	bld := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer bld.Release()
	for ri := 0; ri < t.NumRows(); ri++ {
		for ci, name := range t.Columns() {
			v, _ := t.Cell(ri, name)
			if numeric[ci] {
				fb := bld.Field(ci).(*array.Float64Builder)
				if v.IsNull() {
					fb.AppendNull()
				} else {
					fb.Append(v.Num)
				}
				continue
			}
			sb := bld.Field(ci).(*array.StringBuilder)
			if v.IsNull() {
				sb.AppendNull()
			} else {
				sb.Append(v.String())
			}
		}
	}
	rec := bld.NewRecord()
	defer rec.Release()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	w, err := pqarrow.NewFileWriter(schema, f, parquet.NewWriterProperties(), pqarrow.DefaultWriterProps())
	if err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := w.Write(rec); err != nil {
		w.Close()
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// columnIsNumeric reports whether every non-null value in the column is
// a number, with at least one such value. Mixed columns fall back to
// strings so nothing is lost on write.
func columnIsNumeric(t *Table, name string) bool {
	seen := false
	for ri := 0; ri < t.NumRows(); ri++ {
		v, _ := t.Cell(ri, name)
		if v.IsNull() {
			continue
		}
		if v.Kind != KindNumber {
			return false
		}
		seen = true
	}
	return seen
}
