package httpapi

import (
	"time"

	"github.com/linkrev/linkrev/internal/compare"
	"github.com/linkrev/linkrev/internal/review"
	"github.com/linkrev/linkrev/internal/tabular"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Session string `json:"session"`
}

// SessionResponse is the body of GET /api/v1/session.
type SessionResponse struct {
	Ready        bool     `json:"ready"`
	CurrentIndex int      `json:"current_index"`
	NumPairs     int      `json:"num_pairs"`
	LabelChoices []string `json:"label_choices"`
	Autosave     bool     `json:"autosave"`
}

// GroupJSON is one projected field group of a pair.
type GroupJSON struct {
	Name        string `json:"name"`
	LeftValues  []any  `json:"lvals"`
	RightValues []any  `json:"rvals"`
}

// PairResponse is the body of GET /api/v1/pair. Found is false when the
// pair's ids did not resolve in the datasets; such pairs carry neither
// records nor groups and the client renders a placeholder.
type PairResponse struct {
	Index     int            `json:"index"`
	LeftID    []string       `json:"left_id"`
	RightID   []string       `json:"right_id"`
	Label     string         `json:"label"`
	Indicator int            `json:"label_indicator"`
	Modified  string         `json:"last_modified,omitempty"`
	Note      string         `json:"note"`
	Found     bool           `json:"found"`
	Left      map[string]any `json:"left_record,omitempty"`
	Right     map[string]any `json:"right_record,omitempty"`
	Groups    []GroupJSON    `json:"groups,omitempty"`
}

// SaveRequest is the body of POST /api/v1/pair/:index/label and /note.
type SaveRequest struct {
	Label string `json:"label"`
	Note  string `json:"note"`
}

// NavigateRequest is the body of POST /api/v1/navigate.
type NavigateRequest struct {
	// Action is one of advance, retreat, next-unlabeled,
	// prev-unlabeled, jump.
	Action string `json:"action"`
	// Index is the jump target.
	Index int `json:"index"`
}

// NavigateResponse reports the cursor after a navigation.
type NavigateResponse struct {
	Index int `json:"index"`
}

// SummaryResponse is the body of GET /api/v1/summary.
type SummaryResponse struct {
	Counts map[string]int `json:"counts"`
	Total  int            `json:"total"`
}

// LabelChoicesRequest is the body of PUT /api/v1/labels.
type LabelChoicesRequest struct {
	Choices []string `json:"choices"`
}

// AutosaveRequest is the body of PUT /api/v1/autosave.
type AutosaveRequest struct {
	Enabled bool `json:"enabled"`
}

// AutosaveResponse reports the autosave state after the request. It may
// differ from the requested state when enabling was rejected.
type AutosaveResponse struct {
	Enabled bool `json:"enabled"`
}

// ImportRequest is the body of POST /api/v1/packet/import.
type ImportRequest struct {
	Path string `json:"path"`
}

// ImportResponse reports the import outcome.
type ImportResponse struct {
	Ready    bool     `json:"ready"`
	NumPairs int      `json:"num_pairs"`
	Warnings []string `json:"warnings,omitempty"`
}

func pairResponse(row compare.PairRow, raw review.RawPair, groups []review.GroupView, found bool) PairResponse {
	resp := PairResponse{
		Index:     row.Index,
		LeftID:    row.LeftID,
		RightID:   row.RightID,
		Label:     row.Label,
		Indicator: int(row.Indicator),
		Note:      row.Note,
		Found:     found,
	}
	if !row.Modified.IsZero() {
		resp.Modified = row.Modified.Format(time.RFC3339Nano)
	}
	if !found {
		return resp
	}
	if raw.Left.Columns() != nil {
		resp.Left = recordJSON(raw.Left)
		resp.Right = recordJSON(raw.Right)
	}
	for _, g := range groups {
		resp.Groups = append(resp.Groups, GroupJSON{
			Name:        g.Name,
			LeftValues:  valuesJSON(g.LeftValues),
			RightValues: valuesJSON(g.RightValues),
		})
	}
	return resp
}

func recordJSON(r tabular.Record) map[string]any {
	out := make(map[string]any, len(r.Columns()))
	for _, col := range r.Columns() {
		v, _ := r.Get(col)
		out[col] = valueJSON(v)
	}
	return out
}

func valuesJSON(values []tabular.Value) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = valueJSON(v)
	}
	return out
}

func valueJSON(v tabular.Value) any {
	switch v.Kind {
	case tabular.KindString:
		return v.Str
	case tabular.KindNumber:
		return v.Num
	default:
		return nil
	}
}
