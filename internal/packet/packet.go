// Package packet provides the review-packet codec: a YAML document
// capturing an entire session's configuration (file paths, id columns,
// field-group schema, label choices, cursor) for one-shot restore.
package packet

import (
	"errors"
	"fmt"
	"os"
	"strings"

	kyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	"gopkg.in/yaml.v3"

	"github.com/linkrev/linkrev/internal/dataset"
	"github.com/linkrev/linkrev/internal/review"
	"github.com/linkrev/linkrev/internal/schema"
)

var (
	// ErrMissingField is returned when a packet lacks a mandatory key.
	ErrMissingField = errors.New("review packet missing field")

	// ErrNotExportable is returned when a session cannot be captured in
	// a packet: it is not ready, or a component was loaded from an
	// in-memory source with no stable path to re-load from.
	ErrNotExportable = errors.New("session not exportable")
)

// requiredKeys are the mandatory packet fields.
var requiredKeys = []string{
	"file_L", "file_L_ids",
	"file_R", "file_R_ids",
	"file_comps",
	"var_group_schema",
	"label_choices",
}

// Group is one field group as serialized in a packet.
type Group struct {
	Name  string   `yaml:"name"`
	LVars []string `yaml:"lvars"`
	RVars []string `yaml:"rvars"`
}

// Document is the review packet. The id fields accept either a single
// string or a list on decode; they always encode as lists.
type Document struct {
	FileL        string   `yaml:"file_L"`
	FileLIDs     []string `yaml:"file_L_ids"`
	FileR        string   `yaml:"file_R"`
	FileRIDs     []string `yaml:"file_R_ids"`
	FileComps    string   `yaml:"file_comps"`
	Schema       []Group  `yaml:"var_group_schema"`
	LabelChoices []string `yaml:"label_choices"`
	CurrentIndex *int     `yaml:"curr_comp_pair_index,omitempty"`
}

// Export captures a ready session's configuration.
func Export(s *review.Session) (*Document, error) {
	if !s.Ready() {
		return nil, fmt.Errorf("%w: session is not ready for review", ErrNotExportable)
	}
	left := s.Registry().Dataset(dataset.Left)
	right := s.Registry().Dataset(dataset.Right)
	if left.SourcePath() == "" {
		return nil, fmt.Errorf("%w: left dataset was loaded from an in-memory source", ErrNotExportable)
	}
	if right.SourcePath() == "" {
		return nil, fmt.Errorf("%w: right dataset was loaded from an in-memory source", ErrNotExportable)
	}
	if s.Comparisons().SourcePath() == "" {
		return nil, fmt.Errorf("%w: comparison set was loaded from an in-memory source", ErrNotExportable)
	}

	groups := s.Schema().Groups()
	docGroups := make([]Group, len(groups))
	for i, g := range groups {
		docGroups[i] = Group{Name: g.Name, LVars: g.LeftFields, RVars: g.RightFields}
	}
	index := s.CurrentIndex()
	return &Document{
		FileL:        left.SourcePath(),
		FileLIDs:     left.IDColumns(),
		FileR:        right.SourcePath(),
		FileRIDs:     right.IDColumns(),
		FileComps:    s.Comparisons().SourcePath(),
		Schema:       docGroups,
		LabelChoices: s.LabelChoices(),
		CurrentIndex: &index,
	}, nil
}

// Encode renders the document as YAML.
func (d *Document) Encode() ([]byte, error) {
	return yaml.Marshal(d)
}

// EncodeFile writes the document to path.
func (d *Document) EncodeFile(path string) error {
	data, err := d.Encode()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// DecodeFile parses a packet file.
func DecodeFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read packet %s: %w", path, err)
	}
	doc, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("packet %s: %w", path, err)
	}
	return doc, nil
}

// Decode parses a packet document, verifying all mandatory keys are
// present. Packets are hand-editable, so the error names every missing
// key at once.
func Decode(data []byte) (*Document, error) {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(data), kyaml.Parser()); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	var missing []string
	for _, key := range requiredKeys {
		if !k.Exists(key) {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingField, strings.Join(missing, ", "))
	}

	doc := &Document{
		FileL:        k.String("file_L"),
		FileR:        k.String("file_R"),
		FileComps:    k.String("file_comps"),
		LabelChoices: k.Strings("label_choices"),
	}
	var err error
	if doc.FileLIDs, err = stringOrList(k.Get("file_L_ids")); err != nil {
		return nil, fmt.Errorf("file_L_ids: %w", err)
	}
	if doc.FileRIDs, err = stringOrList(k.Get("file_R_ids")); err != nil {
		return nil, fmt.Errorf("file_R_ids: %w", err)
	}
	if doc.Schema, err = decodeGroups(k.Get("var_group_schema")); err != nil {
		return nil, err
	}
	if k.Exists("curr_comp_pair_index") {
		index := k.Int("curr_comp_pair_index")
		doc.CurrentIndex = &index
	}
	return doc, nil
}

// Import reconstructs a ready session from a packet: both datasets,
// the comparison set, the schema, the label choices, and optionally the
// cursor. Returned warnings carry the comparison set's data-quality
// findings plus any ignored out-of-range cursor.
func Import(doc *Document, s *review.Session) ([]string, error) {
	if err := s.LoadDataset(dataset.Left, doc.FileL, doc.FileLIDs); err != nil {
		return nil, fmt.Errorf("left dataset: %w", err)
	}
	if err := s.LoadDataset(dataset.Right, doc.FileR, doc.FileRIDs); err != nil {
		return nil, fmt.Errorf("right dataset: %w", err)
	}
	warnings, err := s.LoadComparisons(doc.FileComps)
	if err != nil {
		return nil, fmt.Errorf("comparison set: %w", err)
	}

	groups := make([]schema.FieldGroup, len(doc.Schema))
	for i, g := range doc.Schema {
		groups[i] = schema.FieldGroup{Name: g.Name, LeftFields: g.LVars, RightFields: g.RVars}
	}
	if err := s.SetSchema(groups); err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}
	if err := s.SetLabelChoices(doc.LabelChoices); err != nil {
		return nil, fmt.Errorf("label choices: %w", err)
	}

	if doc.CurrentIndex != nil {
		if err := s.JumpTo(*doc.CurrentIndex); err != nil {
			warnings = append(warnings, fmt.Sprintf("saved cursor %d is out of range, starting at 0", *doc.CurrentIndex))
		}
	}
	return warnings, nil
}

// ImportFile decodes and imports a packet in one call.
func ImportFile(path string, s *review.Session) ([]string, error) {
	doc, err := DecodeFile(path)
	if err != nil {
		return nil, err
	}
	return Import(doc, s)
}

func stringOrList(v any) ([]string, error) {
	switch val := v.(type) {
	case string:
		return []string{val}, nil
	case []any:
		out := make([]string, len(val))
		for i, item := range val {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("element %d is %T, want string", i, item)
			}
			out[i] = s
		}
		return out, nil
	case []string:
		return val, nil
	default:
		return nil, fmt.Errorf("got %T, want string or list of strings", v)
	}
}

func decodeGroups(v any) ([]Group, error) {
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("var_group_schema: got %T, want a list of groups", v)
	}
	groups := make([]Group, len(list))
	for i, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("var_group_schema[%d]: got %T, want a mapping", i, item)
		}
		var missing []string
		for _, key := range []string{"name", "lvars", "rvars"} {
			if _, present := m[key]; !present {
				missing = append(missing, fmt.Sprintf("var_group_schema[%d].%s", i, key))
			}
		}
		if len(missing) > 0 {
			return nil, fmt.Errorf("%w: %s", ErrMissingField, strings.Join(missing, ", "))
		}
		name, ok := m["name"].(string)
		if !ok {
			return nil, fmt.Errorf("var_group_schema[%d].name: got %T, want string", i, m["name"])
		}
		lvars, err := stringOrList(m["lvars"])
		if err != nil {
			return nil, fmt.Errorf("var_group_schema[%d].lvars: %w", i, err)
		}
		rvars, err := stringOrList(m["rvars"])
		if err != nil {
			return nil, fmt.Errorf("var_group_schema[%d].rvars: %w", i, err)
		}
		groups[i] = Group{Name: name, LVars: lvars, RVars: rvars}
	}
	return groups, nil
}
