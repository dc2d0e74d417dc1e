// Package schema defines the field-group schema: the ordered, named
// groupings of related columns rendered side by side during review.
//
// A schema is only meaningful relative to the pair of datasets it was
// validated against. It records the registry generation at Set time and
// reports itself unset once either dataset is replaced.
package schema

import (
	"errors"
	"fmt"

	"github.com/linkrev/linkrev/internal/dataset"
)

var (
	// ErrUnknownField is returned when a group references a column that
	// does not exist in the corresponding dataset.
	ErrUnknownField = errors.New("unknown field")

	// ErrPrerequisiteMissing is returned when a schema is set before
	// both datasets are loaded.
	ErrPrerequisiteMissing = errors.New("both datasets must be loaded before setting a schema")
)

// FieldGroup maps a subset of left-dataset columns to a subset of
// right-dataset columns under a display name.
type FieldGroup struct {
	Name        string   `json:"name" yaml:"name"`
	LeftFields  []string `json:"lvars" yaml:"lvars"`
	RightFields []string `json:"rvars" yaml:"rvars"`
}

// Schema holds the validated field groups.
type Schema struct {
	registry   *dataset.Registry
	groups     []FieldGroup
	generation uint64
}

// New creates an unset schema bound to a registry.
func New(registry *dataset.Registry) *Schema {
	return &Schema{registry: registry}
}

// Set validates every field against the loaded datasets and stores the
// groups. Fields are validated once here, not re-validated on reads;
// replacing a dataset afterwards marks the schema unset instead.
func (s *Schema) Set(groups []FieldGroup) error {
	if !s.registry.Loaded(dataset.Left) || !s.registry.Loaded(dataset.Right) {
		return ErrPrerequisiteMissing
	}
	if len(groups) == 0 {
		return errors.New("at least one field group is required")
	}
	for _, g := range groups {
		if g.Name == "" {
			return errors.New("field group without a name")
		}
		for _, f := range g.LeftFields {
			if !s.registry.Dataset(dataset.Left).Table().HasColumn(f) {
				return fmt.Errorf("%w: %q in group %q not in left dataset", ErrUnknownField, f, g.Name)
			}
		}
		for _, f := range g.RightFields {
			if !s.registry.Dataset(dataset.Right).Table().HasColumn(f) {
				return fmt.Errorf("%w: %q in group %q not in right dataset", ErrUnknownField, f, g.Name)
			}
		}
	}
	s.groups = append([]FieldGroup(nil), groups...)
	s.generation = s.registry.Generation()
	return nil
}

// Groups returns the field groups in order, or nil when unset.
func (s *Schema) Groups() []FieldGroup {
	if !s.Loaded() {
		return nil
	}
	return s.groups
}

// Loaded reports whether a schema is set and still valid for the
// datasets currently in the registry.
func (s *Schema) Loaded() bool {
	return s.groups != nil && s.generation == s.registry.Generation()
}

// Invalidate discards the schema.
func (s *Schema) Invalidate() {
	s.groups = nil
}
