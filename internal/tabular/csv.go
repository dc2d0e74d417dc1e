package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

func readCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	t, err := readCSVFrom(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return t, nil
}

func readCSVFrom(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty file, expected a header row")
	}
	if err != nil {
		return nil, err
	}

	t, err := NewTable(header)
	if err != nil {
		return nil, err
	}

	for line := 2; ; line++ {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(rec) != len(header) {
			return nil, fmt.Errorf("line %d: %d fields, header has %d", line, len(rec), len(header))
		}
		values := make([]Value, len(rec))
		for i, cell := range rec {
			values[i] = StringValue(cell)
		}
		if err := t.AppendRow(values); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func writeCSV(path string, t *Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(t.Columns()); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	record := make([]string, len(t.Columns()))
	for i := 0; i < t.NumRows(); i++ {
		row, err := t.Row(i)
		if err != nil {
			f.Close()
			return err
		}
		for j, col := range t.Columns() {
			v, _ := row.Get(col)
			record[j] = v.String()
		}
		if err := w.Write(record); err != nil {
			f.Close()
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
