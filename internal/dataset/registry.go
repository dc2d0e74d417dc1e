package dataset

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/linkrev/linkrev/internal/tabular"
)

var (
	// ErrUnknownField is returned when a named id column does not
	// exist in the dataset being registered.
	ErrUnknownField = errors.New("unknown field")

	// ErrNonUniqueIdentifier is returned when two rows share the same
	// id tuple.
	ErrNonUniqueIdentifier = errors.New("id columns do not uniquely identify rows")

	// ErrOverlappingIdentifiers is returned when the id columns of the
	// two sides share a name. The comparison file references both sides
	// by column name, so the namespaces must be disjoint.
	ErrOverlappingIdentifiers = errors.New("id columns overlap between sides")

	// ErrNotFound is returned when no row matches an id tuple.
	ErrNotFound = errors.New("no row with id tuple")

	// ErrNotLoaded is returned when an operation requires a side that
	// has no dataset yet.
	ErrNotLoaded = errors.New("dataset not loaded")
)

// tupleSep joins id-tuple values into index keys. A unit separator
// avoids collisions between ("ab","c") and ("a","bc").
const tupleSep = "\x1f"

// Dataset is one side's table plus its identifier configuration.
type Dataset struct {
	table      *tabular.Table
	idColumns  []string
	sourceName string
	sourcePath string
	index      map[string]int
}

// Table returns the underlying table.
func (d *Dataset) Table() *tabular.Table {
	return d.table
}

// IDColumns returns the ordered id column names.
func (d *Dataset) IDColumns() []string {
	return d.idColumns
}

// SourcePath returns the file the dataset was loaded from, empty for
// in-memory sources.
func (d *Dataset) SourcePath() string {
	return d.sourcePath
}

// SourceName returns the human-readable origin label, empty for
// in-memory sources.
func (d *Dataset) SourceName() string {
	return d.sourceName
}

// Registry owns the left and right datasets.
type Registry struct {
	logger     *zap.Logger
	sides      [2]*Dataset
	generation uint64
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{logger: logger}
}

// SetDataset validates and installs an in-memory table as one side.
// On success any previously registered dataset for that side is
// replaced wholesale and the registry generation is bumped, which
// invalidates the field-group schema and the comparison set.
func (r *Registry) SetDataset(side Side, table *tabular.Table, idColumns []string) error {
	return r.install(side, table, idColumns, "")
}

// LoadDataset reads a tabular file and installs it as one side,
// recording the source path for later export.
func (r *Registry) LoadDataset(side Side, path string, idColumns []string) error {
	table, err := tabular.ReadFile(path)
	if err != nil {
		return err
	}
	return r.install(side, table, idColumns, path)
}

func (r *Registry) install(side Side, table *tabular.Table, idColumns []string, path string) error {
	if table == nil {
		return errors.New("table is required")
	}
	if len(idColumns) == 0 {
		return fmt.Errorf("%s dataset: at least one id column is required", side)
	}
	for _, col := range idColumns {
		if !table.HasColumn(col) {
			return fmt.Errorf("%w: id column %q not in %s dataset (columns: %s)",
				ErrUnknownField, col, side, strings.Join(table.Columns(), ", "))
		}
	}
	if other := r.sides[side.Other()]; other != nil {
		if shared := intersect(idColumns, other.idColumns); len(shared) > 0 {
			return fmt.Errorf("%w: %s shared by %s and %s datasets",
				ErrOverlappingIdentifiers, strings.Join(shared, ", "), side, side.Other())
		}
	}

	index := make(map[string]int, table.NumRows())
	for i := 0; i < table.NumRows(); i++ {
		key := tupleKeyAt(table, i, idColumns)
		if prev, dup := index[key]; dup {
			return fmt.Errorf("%w: rows %d and %d of %s dataset share id tuple (%s)",
				ErrNonUniqueIdentifier, prev, i, side, strings.Join(tupleAt(table, i, idColumns), ", "))
		}
		index[key] = i
	}

	r.sides[side] = &Dataset{
		table:      table,
		idColumns:  append([]string(nil), idColumns...),
		sourceName: filepath.Base(path),
		sourcePath: path,
		index:      index,
	}
	if path == "" {
		r.sides[side].sourceName = ""
	}
	r.generation++
	r.logger.Info("dataset registered",
		zap.Stringer("side", side),
		zap.Strings("id_columns", idColumns),
		zap.Int("rows", table.NumRows()),
		zap.String("source", path),
	)
	return nil
}

// Loaded reports whether a side has a dataset.
func (r *Registry) Loaded(side Side) bool {
	return r.sides[side] != nil
}

// Dataset returns the dataset for a side, or nil when not loaded.
func (r *Registry) Dataset(side Side) *Dataset {
	return r.sides[side]
}

// IDColumns returns the id columns for a side, nil when not loaded.
func (r *Registry) IDColumns(side Side) []string {
	if d := r.sides[side]; d != nil {
		return d.idColumns
	}
	return nil
}

// Get returns the record whose id tuple matches. Tuple values are
// compared in rendered form, in id-column order.
func (r *Registry) Get(side Side, idTuple []string) (tabular.Record, error) {
	d := r.sides[side]
	if d == nil {
		return tabular.Record{}, fmt.Errorf("%w: %s", ErrNotLoaded, side)
	}
	i, ok := d.index[strings.Join(idTuple, tupleSep)]
	if !ok {
		return tabular.Record{}, fmt.Errorf("%w: (%s) in %s dataset",
			ErrNotFound, strings.Join(idTuple, ", "), side)
	}
	return d.table.Row(i)
}

// Has reports whether an id tuple resolves on a side.
func (r *Registry) Has(side Side, idTuple []string) bool {
	d := r.sides[side]
	if d == nil {
		return false
	}
	_, ok := d.index[strings.Join(idTuple, tupleSep)]
	return ok
}

// Generation increases by one every time a dataset is installed.
// Consumers that validated against the registry record the generation
// and treat a mismatch as "must be redefined".
func (r *Registry) Generation() uint64 {
	return r.generation
}

func tupleAt(t *tabular.Table, row int, cols []string) []string {
	tuple := make([]string, len(cols))
	for i, col := range cols {
		v, _ := t.Cell(row, col)
		tuple[i] = v.String()
	}
	return tuple
}

func tupleKeyAt(t *tabular.Table, row int, cols []string) string {
	return strings.Join(tupleAt(t, row, cols), tupleSep)
}

func intersect(a, b []string) []string {
	set := make(map[string]struct{}, len(b))
	for _, s := range b {
		set[s] = struct{}{}
	}
	var shared []string
	for _, s := range a {
		if _, ok := set[s]; ok {
			shared = append(shared, s)
		}
	}
	return shared
}
