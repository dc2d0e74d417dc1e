package review

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/linkrev/linkrev/internal/compare"
	"github.com/linkrev/linkrev/internal/dataset"
	"github.com/linkrev/linkrev/internal/schema"
	"github.com/linkrev/linkrev/internal/tabular"
)

var (
	// ErrInvalidLabel is returned when a label is neither empty nor one
	// of the configured choices.
	ErrInvalidLabel = errors.New("label not in configured choices")

	// ErrPrerequisiteMissing is returned when an operation strictly
	// requires a component that is not loaded. This signals a caller
	// bug, not recoverable user input.
	ErrPrerequisiteMissing = errors.New("prerequisite not loaded")

	// ErrIndexOutOfRange is returned for jumps outside the pair table.
	ErrIndexOutOfRange = compare.ErrIndexOutOfRange
)

// RawPair is both full records of a candidate pair.
type RawPair struct {
	Left  tabular.Record
	Right tabular.Record
}

// GroupView is one field group projected onto a candidate pair, in
// schema order with field order preserved.
type GroupView struct {
	Name        string
	LeftValues  []tabular.Value
	RightValues []tabular.Value
}

// Options configures a new session.
type Options struct {
	// LabelChoices are the permitted label strings.
	LabelChoices []string
	// ExistThreshold is the minimum id match rate before comparison
	// loads warn. Zero disables the check.
	ExistThreshold float64
}

// DefaultOptions returns the standard session configuration.
func DefaultOptions() *Options {
	return &Options{
		ExistThreshold: compare.DefaultExistThreshold,
	}
}

// Session owns one reviewer's state: the datasets, the comparison set,
// the schema, the label choices, and the cursor.
type Session struct {
	id     string
	logger *zap.Logger

	registry    *dataset.Registry
	comparisons *compare.Set
	schema      *schema.Schema

	labelChoices   []string
	existThreshold float64
	current        int
	autosave       bool
}

// NewSession creates a session with empty components.
func NewSession(logger *zap.Logger, opts *Options) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts == nil {
		opts = DefaultOptions()
	}
	registry := dataset.NewRegistry(logger)
	s := &Session{
		id:             uuid.NewString(),
		logger:         logger,
		registry:       registry,
		comparisons:    compare.NewSet(registry, logger),
		schema:         schema.New(registry),
		existThreshold: opts.ExistThreshold,
	}
	if len(opts.LabelChoices) > 0 {
		// Construction-time choices go through the same validation as
		// SetLabelChoices; invalid input falls back to unset.
		if err := s.SetLabelChoices(opts.LabelChoices); err != nil {
			logger.Warn("ignoring invalid label choices", zap.Error(err))
		}
	}
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Registry returns the dataset registry.
func (s *Session) Registry() *dataset.Registry {
	return s.registry
}

// Comparisons returns the comparison set.
func (s *Session) Comparisons() *compare.Set {
	return s.comparisons
}

// Schema returns the field-group schema.
func (s *Session) Schema() *schema.Schema {
	return s.schema
}

// LoadDataset reads a tabular file into one side. Replacing a side
// invalidates the schema and the comparison set, which must then be
// redefined against the new columns.
func (s *Session) LoadDataset(side dataset.Side, path string, idColumns []string) error {
	if err := s.registry.LoadDataset(side, path, idColumns); err != nil {
		return err
	}
	s.current = 0
	return nil
}

// SetDataset installs an in-memory table as one side.
func (s *Session) SetDataset(side dataset.Side, table *tabular.Table, idColumns []string) error {
	if err := s.registry.SetDataset(side, table, idColumns); err != nil {
		return err
	}
	s.current = 0
	return nil
}

// LoadComparisons loads the candidate-pair file and resets the cursor.
func (s *Session) LoadComparisons(path string) ([]string, error) {
	warnings, err := s.comparisons.Load(path, s.existThreshold)
	if err != nil {
		return nil, err
	}
	s.current = 0
	return warnings, nil
}

// SetComparisons loads an in-memory candidate-pair table and resets
// the cursor.
func (s *Session) SetComparisons(table *tabular.Table) ([]string, error) {
	warnings, err := s.comparisons.LoadTable(table, s.existThreshold)
	if err != nil {
		return nil, err
	}
	s.current = 0
	return warnings, nil
}

// SetSchema validates and stores the field groups.
func (s *Session) SetSchema(groups []schema.FieldGroup) error {
	return s.schema.Set(groups)
}

// Ready reports whether every piece needed for review is loaded:
// both datasets, the comparison set, the schema, and label choices.
func (s *Session) Ready() bool {
	return s.registry.Loaded(dataset.Left) &&
		s.registry.Loaded(dataset.Right) &&
		s.comparisons.Loaded() &&
		s.schema.Loaded() &&
		len(s.labelChoices) > 0
}

// CurrentIndex returns the cursor position.
func (s *Session) CurrentIndex() int {
	return s.current
}

// NumPairs returns the number of candidate pairs.
func (s *Session) NumPairs() int {
	return s.comparisons.NumRows()
}

// Pair returns the review metadata of the pair at index.
func (s *Session) Pair(index int) (compare.PairRow, error) {
	return s.comparisons.Row(index)
}

// CurrentPair returns the review metadata of the pair under the cursor.
func (s *Session) CurrentPair() (compare.PairRow, error) {
	return s.comparisons.Row(s.current)
}

// RawPairAt returns both full records of the pair at index. The second
// return is false when the pair's ids did not resolve at load time;
// callers render a placeholder for such pairs. This is an expected
// outcome, not an error.
func (s *Session) RawPairAt(index int) (RawPair, bool, error) {
	if !s.comparisons.Loaded() {
		return RawPair{}, false, fmt.Errorf("%w: comparison set", ErrPrerequisiteMissing)
	}
	row, err := s.comparisons.Row(index)
	if err != nil {
		return RawPair{}, false, err
	}
	if row.Indicator == compare.IndicatorMissing {
		return RawPair{}, false, nil
	}
	left, err := s.registry.Get(dataset.Left, row.LeftID)
	if err != nil {
		return RawPair{}, false, err
	}
	right, err := s.registry.Get(dataset.Right, row.RightID)
	if err != nil {
		return RawPair{}, false, err
	}
	return RawPair{Left: left, Right: right}, true, nil
}

// GroupedPairAt returns the pair at index projected onto the field
// groups, order-preserving. Requires the schema to be set.
func (s *Session) GroupedPairAt(index int) ([]GroupView, bool, error) {
	if !s.schema.Loaded() {
		return nil, false, fmt.Errorf("%w: field-group schema", ErrPrerequisiteMissing)
	}
	raw, ok, err := s.RawPairAt(index)
	if err != nil || !ok {
		return nil, ok, err
	}
	groups := s.schema.Groups()
	views := make([]GroupView, len(groups))
	for i, g := range groups {
		view := GroupView{
			Name:        g.Name,
			LeftValues:  make([]tabular.Value, len(g.LeftFields)),
			RightValues: make([]tabular.Value, len(g.RightFields)),
		}
		for j, f := range g.LeftFields {
			view.LeftValues[j], _ = raw.Left.Get(f)
		}
		for j, f := range g.RightFields {
			view.RightValues[j], _ = raw.Right.Get(f)
		}
		views[i] = view
	}
	return views, true, nil
}

// RawPair returns the records of the pair under the cursor.
func (s *Session) RawPair() (RawPair, bool, error) {
	return s.RawPairAt(s.current)
}

// GroupedPair returns the grouped projection of the pair under the
// cursor.
func (s *Session) GroupedPair() ([]GroupView, bool, error) {
	return s.GroupedPairAt(s.current)
}

// Advance moves the cursor forward by one, a no-op at the last pair.
func (s *Session) Advance() int {
	if s.current < s.comparisons.NumRows()-1 {
		s.current++
	}
	return s.current
}

// Retreat moves the cursor back by one, a no-op at the first pair.
func (s *Session) Retreat() int {
	if s.current > 0 {
		s.current--
	}
	return s.current
}

// AdvanceToUnlabeled moves the cursor to the nearest strictly-later
// pair with an empty label, or to the last pair when none exists.
func (s *Session) AdvanceToUnlabeled() int {
	n := s.comparisons.NumRows()
	if n == 0 {
		return s.current
	}
	for i := s.current + 1; i < n; i++ {
		if row, err := s.comparisons.Row(i); err == nil && !row.Labeled() {
			s.current = i
			return s.current
		}
	}
	s.current = n - 1
	return s.current
}

// RetreatToUnlabeled moves the cursor to the nearest strictly-earlier
// pair with an empty label, or to the first pair when none exists.
func (s *Session) RetreatToUnlabeled() int {
	if s.comparisons.NumRows() == 0 {
		return s.current
	}
	for i := s.current - 1; i >= 0; i-- {
		if row, err := s.comparisons.Row(i); err == nil && !row.Labeled() {
			s.current = i
			return s.current
		}
	}
	s.current = 0
	return s.current
}

// JumpTo sets the cursor directly, validating range.
func (s *Session) JumpTo(index int) error {
	if index < 0 || index >= s.comparisons.NumRows() {
		return fmt.Errorf("%w: %d (have %d pairs)", ErrIndexOutOfRange, index, s.comparisons.NumRows())
	}
	s.current = index
	return nil
}

// SaveLabelAt validates and writes a label on the pair at index. An
// empty label clears the pair back to unlabeled.
func (s *Session) SaveLabelAt(index int, label string) error {
	if label != "" && !s.isChoice(label) {
		return fmt.Errorf("%w: %q (choices: %s)", ErrInvalidLabel, label, strings.Join(s.labelChoices, ", "))
	}
	if err := s.comparisons.SetLabel(index, label, time.Now()); err != nil {
		return err
	}
	s.logger.Debug("label saved",
		zap.String("session", s.id),
		zap.Int("pair", index),
		zap.String("label", label),
	)
	return s.autosaveNow()
}

// SaveLabel writes a label on the pair under the cursor.
func (s *Session) SaveLabel(label string) error {
	return s.SaveLabelAt(s.current, label)
}

// SaveNoteAt writes a note verbatim on the pair at index.
func (s *Session) SaveNoteAt(index int, note string) error {
	if err := s.comparisons.SetNote(index, note, time.Now()); err != nil {
		return err
	}
	return s.autosaveNow()
}

// SaveNote writes a note on the pair under the cursor.
func (s *Session) SaveNote(note string) error {
	return s.SaveNoteAt(s.current, note)
}

func (s *Session) autosaveNow() error {
	if !s.autosave {
		return nil
	}
	if err := s.comparisons.Save(""); err != nil {
		return fmt.Errorf("autosave: %w", err)
	}
	return nil
}

// LabelSummary buckets pairs by label for presentation.
func (s *Session) LabelSummary() map[string]int {
	return s.comparisons.LabelCounts(s.labelChoices)
}

// LabelChoices returns the configured label strings in order.
func (s *Session) LabelChoices() []string {
	return s.labelChoices
}

// SetLabelChoices replaces the label choices. Pairs whose stored label
// is no longer in the list keep it; such labels show up as their own
// buckets in LabelSummary.
func (s *Session) SetLabelChoices(choices []string) error {
	if len(choices) == 0 {
		return errors.New("at least one label choice is required")
	}
	for _, c := range choices {
		if c == "" {
			return errors.New("label choices must be non-empty strings")
		}
	}
	s.labelChoices = append([]string(nil), choices...)
	return nil
}

// Autosave reports whether every label/note write persists the
// comparison set immediately.
func (s *Session) Autosave() bool {
	return s.autosave
}

// SetAutosave toggles autosave. Enabling it without a file-backed
// comparison set is rejected with a warning, not an error; the return
// value is the resulting state.
func (s *Session) SetAutosave(enabled bool) bool {
	if enabled && s.comparisons.SourcePath() == "" {
		s.logger.Warn("autosave rejected: comparison set has no backing file")
		return s.autosave
	}
	s.autosave = enabled
	return s.autosave
}

func (s *Session) isChoice(label string) bool {
	for _, c := range s.labelChoices {
		if c == label {
			return true
		}
	}
	return false
}
