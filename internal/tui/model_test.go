package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/linkrev/linkrev/internal/dataset"
	"github.com/linkrev/linkrev/internal/review"
	"github.com/linkrev/linkrev/internal/schema"
	"github.com/linkrev/linkrev/internal/tabular"
)

func buildTable(t *testing.T, columns []string, rows ...[]string) *tabular.Table {
	t.Helper()
	tbl, err := tabular.NewTable(columns)
	require.NoError(t, err)
	for _, row := range rows {
		values := make([]tabular.Value, len(row))
		for i, cell := range row {
			values[i] = tabular.StringValue(cell)
		}
		require.NoError(t, tbl.AppendRow(values))
	}
	return tbl
}

func testSession(t *testing.T) *review.Session {
	t.Helper()
	s := review.NewSession(zap.NewNop(), &review.Options{
		LabelChoices: []string{"Match", "Not a Match"},
	})
	require.NoError(t, s.SetDataset(dataset.Left,
		buildTable(t, []string{"lid", "first", "last"},
			[]string{"1", "John", "Smith"},
			[]string{"2", "Mary", "Jones"}),
		[]string{"lid"}))
	require.NoError(t, s.SetDataset(dataset.Right,
		buildTable(t, []string{"rid", "fname", "lname"},
			[]string{"a", "Jon", "Smith"},
			[]string{"b", "Marie", "Jones"}),
		[]string{"rid"}))
	_, err := s.SetComparisons(buildTable(t, []string{"lid", "rid"},
		[]string{"1", "a"}, []string{"2", "b"}, []string{"2", "zzz"}))
	require.NoError(t, err)
	require.NoError(t, s.SetSchema([]schema.FieldGroup{
		{Name: "name", LeftFields: []string{"first", "last"}, RightFields: []string{"fname", "lname"}},
	}))
	return s
}

func press(m tea.Model, keys ...string) tea.Model {
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		m, _ = m.Update(msg)
	}
	return m
}

func TestUpdate_Navigation(t *testing.T) {
	s := testSession(t)
	m := press(NewModel(s), "n")
	assert.Equal(t, 1, s.CurrentIndex())

	m = press(m, "p", "p")
	assert.Equal(t, 0, s.CurrentIndex())

	// Jump via the goto prompt; input is 1-based.
	m = press(m, "g", "3", "enter")
	assert.Equal(t, 2, s.CurrentIndex())

	m = press(m, "g", "99", "enter")
	assert.Equal(t, 2, s.CurrentIndex())
	_ = m
}

func TestUpdate_LabelHotkeyAdvances(t *testing.T) {
	s := testSession(t)
	m := press(NewModel(s), "1")

	row, err := s.Pair(0)
	require.NoError(t, err)
	assert.Equal(t, "Match", row.Label)
	assert.Equal(t, 1, s.CurrentIndex())

	// Out-of-range hotkey does nothing.
	m = press(m, "9")
	row, err = s.Pair(1)
	require.NoError(t, err)
	assert.False(t, row.Labeled())
	_ = m
}

func TestUpdate_UnlabelKey(t *testing.T) {
	s := testSession(t)
	require.NoError(t, s.SaveLabel("Match"))

	press(NewModel(s), "u")
	row, err := s.Pair(0)
	require.NoError(t, err)
	assert.False(t, row.Labeled())
}

func TestUpdate_NoteEntry(t *testing.T) {
	s := testSession(t)
	press(NewModel(s), "e", "o", "d", "d", "enter")

	row, err := s.Pair(0)
	require.NoError(t, err)
	assert.Equal(t, "odd", row.Note)
	assert.False(t, row.Labeled())
}

func TestUpdate_NoteEscapeDiscards(t *testing.T) {
	s := testSession(t)
	press(NewModel(s), "e", "x", "esc")

	row, err := s.Pair(0)
	require.NoError(t, err)
	assert.Empty(t, row.Note)
}

func TestUpdate_AutosaveRejectedInMemory(t *testing.T) {
	s := testSession(t)
	press(NewModel(s), "a")
	assert.False(t, s.Autosave())
}

func TestView_ReviewShowsGroupedFields(t *testing.T) {
	s := testSession(t)
	m := NewModel(s)

	view := m.View()
	assert.Contains(t, view, "pair")
	assert.Contains(t, view, "name")
	assert.Contains(t, view, "John")
	assert.Contains(t, view, "Jon")
	assert.Contains(t, view, "unlabeled")
}

func TestView_MissingPairPlaceholder(t *testing.T) {
	s := testSession(t)
	require.NoError(t, s.JumpTo(2))

	view := NewModel(s).View()
	assert.Contains(t, view, "not found")
	assert.Contains(t, view, "zzz")
}

func TestView_Summary(t *testing.T) {
	s := testSession(t)
	require.NoError(t, s.SaveLabel("Match"))

	m := press(NewModel(s), "y")
	view := m.View()
	assert.Contains(t, view, "label summary")
	assert.Contains(t, view, "Match")
	assert.Contains(t, view, "Unlabeled")

	// Any non-quit key returns to review mode.
	m = press(m, "x")
	assert.Contains(t, m.View(), "pair")
}
