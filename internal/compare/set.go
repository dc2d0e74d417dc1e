package compare

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/linkrev/linkrev/internal/dataset"
	"github.com/linkrev/linkrev/internal/tabular"
)

// Reserved review columns, created on first load if absent and
// round-tripped thereafter.
const (
	LabelColumn     = "rlr_label"
	IndicatorColumn = "rlr_label_ind"
	ModifiedColumn  = "rlr_modified"
	NoteColumn      = "rlr_note"
)

// UnlabeledBucket is the label-count bucket that aggregates rows with
// an empty label.
const UnlabeledBucket = "Unlabeled"

// DefaultExistThreshold is the minimum fraction of pairs whose ids must
// resolve in the datasets before loading warns. Zero disables the check.
const DefaultExistThreshold = 0.8

var (
	// ErrPrerequisiteMissing is returned when pairs are loaded before
	// both datasets.
	ErrPrerequisiteMissing = errors.New("both datasets must be loaded before the comparison set")

	// ErrMissingColumn is returned when the comparison table lacks a
	// dataset id column.
	ErrMissingColumn = errors.New("comparison table missing id column")

	// ErrIndexOutOfRange is returned for pair accesses outside the table.
	ErrIndexOutOfRange = errors.New("pair index out of range")

	// ErrNoDestination is returned by Save when no path is resolvable.
	ErrNoDestination = errors.New("no destination path for comparison set")

	// ErrNotLoaded is returned when no comparison table has been
	// loaded, or when a dataset replacement has invalidated the one
	// that was.
	ErrNotLoaded = errors.New("comparison set not loaded")
)

// LabelIndicator is the tri-state review flag on each pair.
type LabelIndicator int

const (
	// IndicatorMissing marks pairs whose ids did not resolve in the
	// datasets at load time. Such pairs cannot be reviewed.
	IndicatorMissing LabelIndicator = -1
	// IndicatorUnlabeled marks pairs awaiting a label.
	IndicatorUnlabeled LabelIndicator = 0
	// IndicatorLabeled marks pairs with a non-empty label.
	IndicatorLabeled LabelIndicator = 1
)

// PairRow is one candidate pair with its review metadata.
type PairRow struct {
	Index     int
	LeftID    []string
	RightID   []string
	Label     string
	Indicator LabelIndicator
	Modified  time.Time
	Note      string
}

// Labeled reports whether the pair carries a non-empty label.
func (p PairRow) Labeled() bool {
	return p.Label != ""
}

// Set is the comparison-pair table plus load state.
type Set struct {
	logger   *zap.Logger
	registry *dataset.Registry

	table         *tabular.Table
	leftIDs       []string
	rightIDs      []string
	sourcePath    string
	generation    uint64
	foundFraction float64
}

// NewSet creates an empty comparison set bound to a registry.
func NewSet(registry *dataset.Registry, logger *zap.Logger) *Set {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Set{logger: logger, registry: registry}
}

// Load reads a comparison file and validates it against the registry.
// Returned warnings are non-fatal data-quality findings; the set is
// loaded even when warnings are present.
func (s *Set) Load(path string, existThreshold float64) ([]string, error) {
	table, err := tabular.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return s.load(table, path, existThreshold)
}

// LoadTable validates an in-memory comparison table. A set loaded this
// way has no backing path: it cannot be autosaved under its original
// name nor exported in a review packet.
func (s *Set) LoadTable(table *tabular.Table, existThreshold float64) ([]string, error) {
	return s.load(table, "", existThreshold)
}

func (s *Set) load(table *tabular.Table, path string, existThreshold float64) ([]string, error) {
	if !s.registry.Loaded(dataset.Left) || !s.registry.Loaded(dataset.Right) {
		return nil, ErrPrerequisiteMissing
	}
	leftIDs := s.registry.IDColumns(dataset.Left)
	rightIDs := s.registry.IDColumns(dataset.Right)
	for _, col := range append(append([]string(nil), leftIDs...), rightIDs...) {
		if !table.HasColumn(col) {
			return nil, fmt.Errorf("%w: %q (comparison columns: %s)",
				ErrMissingColumn, col, strings.Join(table.Columns(), ", "))
		}
	}

	var warnings []string

	// Duplicate review targets are tolerated but flagged.
	seen := make(map[string]int, table.NumRows())
	for i := 0; i < table.NumRows(); i++ {
		key := tupleKey(table, i, leftIDs) + "\x1e" + tupleKey(table, i, rightIDs)
		if prev, dup := seen[key]; dup {
			w := fmt.Sprintf("duplicate pair ids: rows %d and %d reference (%s) / (%s)",
				prev, i, strings.Join(tuple(table, i, leftIDs), ", "), strings.Join(tuple(table, i, rightIDs), ", "))
			warnings = append(warnings, w)
			s.logger.Warn("duplicate pair ids", zap.Int("first", prev), zap.Int("second", i))
		} else {
			seen[key] = i
		}
	}

	if err := ensureReviewColumns(table); err != nil {
		return nil, err
	}

	// Probe every pair against the datasets.
	missing := 0
	for i := 0; i < table.NumRows(); i++ {
		found := s.registry.Has(dataset.Left, tuple(table, i, leftIDs)) &&
			s.registry.Has(dataset.Right, tuple(table, i, rightIDs))
		label := cellString(table, i, LabelColumn)
		ind := IndicatorUnlabeled
		if label != "" {
			ind = IndicatorLabeled
		}
		if !found {
			ind = IndicatorMissing
			missing++
		}
		if err := table.SetCell(i, IndicatorColumn, tabular.NumberValue(float64(ind))); err != nil {
			return nil, err
		}
	}

	fraction := 1.0
	if table.NumRows() > 0 {
		fraction = 1.0 - float64(missing)/float64(table.NumRows())
	}
	if existThreshold > 0 && fraction < existThreshold {
		w := fmt.Sprintf("only %.1f%% of pair ids resolve in the datasets (threshold %.1f%%, %d of %d rows missing)",
			fraction*100, existThreshold*100, missing, table.NumRows())
		warnings = append(warnings, w)
		s.logger.Warn("low id match rate",
			zap.Float64("found_fraction", fraction),
			zap.Float64("threshold", existThreshold),
			zap.Int("missing", missing),
			zap.Int("total", table.NumRows()),
		)
	}

	s.table = table
	s.leftIDs = append([]string(nil), leftIDs...)
	s.rightIDs = append([]string(nil), rightIDs...)
	s.sourcePath = path
	s.generation = s.registry.Generation()
	s.foundFraction = fraction
	s.logger.Info("comparison set loaded",
		zap.String("source", path),
		zap.Int("pairs", table.NumRows()),
		zap.Float64("found_fraction", fraction),
	)
	return warnings, nil
}

func ensureReviewColumns(table *tabular.Table) error {
	defaults := []struct {
		name string
		fill tabular.Value
	}{
		{LabelColumn, tabular.StringValue("")},
		{IndicatorColumn, tabular.NumberValue(0)},
		{ModifiedColumn, tabular.StringValue("")},
		{NoteColumn, tabular.StringValue("")},
	}
	for _, d := range defaults {
		if table.HasColumn(d.name) {
			continue
		}
		if err := table.AddColumn(d.name, d.fill); err != nil {
			return err
		}
	}
	return nil
}

// Loaded reports whether a comparison table is loaded and still valid
// for the datasets currently in the registry.
func (s *Set) Loaded() bool {
	return s.table != nil && s.generation == s.registry.Generation()
}

// Invalidate discards the comparison table.
func (s *Set) Invalidate() {
	s.table = nil
	s.sourcePath = ""
}

// NumRows returns the number of pairs, zero when not loaded.
func (s *Set) NumRows() int {
	if !s.Loaded() {
		return 0
	}
	return s.table.NumRows()
}

// SourcePath returns the file the set was loaded from, empty for
// in-memory sources.
func (s *Set) SourcePath() string {
	return s.sourcePath
}

// FoundFraction returns the fraction of pairs whose ids resolved at
// load time.
func (s *Set) FoundFraction() float64 {
	return s.foundFraction
}

// Row returns the pair at index, bounds-checked. A table invalidated by
// a dataset replacement is unreadable until reloaded.
func (s *Set) Row(index int) (PairRow, error) {
	if !s.Loaded() {
		return PairRow{}, ErrNotLoaded
	}
	if index < 0 || index >= s.table.NumRows() {
		return PairRow{}, fmt.Errorf("%w: %d (have %d pairs)", ErrIndexOutOfRange, index, s.table.NumRows())
	}
	return PairRow{
		Index:     index,
		LeftID:    tuple(s.table, index, s.leftIDs),
		RightID:   tuple(s.table, index, s.rightIDs),
		Label:     cellString(s.table, index, LabelColumn),
		Indicator: cellIndicator(s.table, index),
		Modified:  cellTime(s.table, index, ModifiedColumn),
		Note:      cellString(s.table, index, NoteColumn),
	}, nil
}

// SetLabel writes a label on the pair at index and stamps the modified
// time. Label validity against the configured choices is the session's
// responsibility; missing-id pairs keep their -1 indicator.
func (s *Set) SetLabel(index int, label string, now time.Time) error {
	row, err := s.Row(index)
	if err != nil {
		return err
	}
	if err := s.table.SetCell(index, LabelColumn, tabular.StringValue(label)); err != nil {
		return err
	}
	if row.Indicator != IndicatorMissing {
		ind := IndicatorUnlabeled
		if label != "" {
			ind = IndicatorLabeled
		}
		if err := s.table.SetCell(index, IndicatorColumn, tabular.NumberValue(float64(ind))); err != nil {
			return err
		}
	}
	return s.table.SetCell(index, ModifiedColumn, tabular.StringValue(now.Format(time.RFC3339Nano)))
}

// SetNote writes a note verbatim on the pair at index and stamps the
// modified time.
func (s *Set) SetNote(index int, note string, now time.Time) error {
	if _, err := s.Row(index); err != nil {
		return err
	}
	if err := s.table.SetCell(index, NoteColumn, tabular.StringValue(note)); err != nil {
		return err
	}
	return s.table.SetCell(index, ModifiedColumn, tabular.StringValue(now.Format(time.RFC3339Nano)))
}

// LabelCounts buckets pairs by label. Empty labels aggregate under
// UnlabeledBucket; every configured choice gets an explicit bucket;
// labels present in the data but outside choices get their own buckets.
func (s *Set) LabelCounts(choices []string) map[string]int {
	counts := map[string]int{UnlabeledBucket: 0}
	for _, c := range choices {
		counts[c] = 0
	}
	if !s.Loaded() {
		return counts
	}
	total := 0
	for i := 0; i < s.table.NumRows(); i++ {
		label := cellString(s.table, i, LabelColumn)
		if label == "" {
			label = UnlabeledBucket
		}
		counts[label]++
		total++
	}
	if total != s.table.NumRows() {
		s.logger.Warn("label count mismatch",
			zap.Int("buckets_total", total),
			zap.Int("rows", s.table.NumRows()),
		)
	}
	return counts
}

// Save writes the table back in its format. An empty path resolves to
// the path the set was loaded from.
func (s *Set) Save(path string) error {
	if !s.Loaded() {
		return ErrNotLoaded
	}
	if path == "" {
		path = s.sourcePath
	}
	if path == "" {
		return fmt.Errorf("%w: loaded from an in-memory source and no path given", ErrNoDestination)
	}
	if err := tabular.WriteFile(path, s.table); err != nil {
		return err
	}
	s.logger.Debug("comparison set saved", zap.String("path", path))
	return nil
}

func tuple(t *tabular.Table, row int, cols []string) []string {
	out := make([]string, len(cols))
	for i, col := range cols {
		v, _ := t.Cell(row, col)
		out[i] = v.String()
	}
	return out
}

func tupleKey(t *tabular.Table, row int, cols []string) string {
	return strings.Join(tuple(t, row, cols), "\x1f")
}

func cellString(t *tabular.Table, row int, col string) string {
	v, _ := t.Cell(row, col)
	return v.String()
}

func cellIndicator(t *tabular.Table, row int) LabelIndicator {
	v, _ := t.Cell(row, IndicatorColumn)
	f, ok := v.Float()
	if !ok {
		return IndicatorUnlabeled
	}
	return LabelIndicator(int(f))
}

func cellTime(t *tabular.Table, row int, col string) time.Time {
	v, _ := t.Cell(row, col)
	if v.String() == "" {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339Nano, v.String())
	if err != nil {
		return time.Time{}
	}
	return ts
}
