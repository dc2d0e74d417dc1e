// Package tui implements the terminal review interface. One model walks
// the comparison pairs, renders the grouped side-by-side view, and
// writes labels and notes through the session.
package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/linkrev/linkrev/internal/review"
	"github.com/linkrev/linkrev/internal/tabular"
)

const (
	summaryChartWidth  = 40
	summaryChartHeight = 8
	fieldColumnWidth   = 28
)

// mode selects what the model is rendering and which keys apply.
type mode int

const (
	modeReview mode = iota
	modeNote
	modeGoto
	modeSummary
)

// Lipgloss styles
var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("51")).
			Bold(true).
			Padding(0, 1)

	groupStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true)

	fieldStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("231")).
			Width(fieldColumnWidth)

	matchStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("46")).
			Width(fieldColumnWidth)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	labeledStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("46")).
			Bold(true)

	unlabeledStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("226")).
			Bold(true)

	missingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	containerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(1, 2)

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			MarginTop(1)

	footerKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("226"))

	barStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51"))
)

// Model is the BubbleTea model for a review session.
type Model struct {
	session *review.Session

	mode     mode
	input    textinput.Model
	status   string
	err      error
	quitting bool

	width  int
	height int
}

// NewModel wraps a ready session for interactive review.
func NewModel(session *review.Session) Model {
	input := textinput.New()
	input.CharLimit = 256
	return Model{
		session: session,
		input:   input,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles key and resize messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case modeNote, modeGoto:
			return m.updateInput(msg)
		case modeSummary:
			switch msg.String() {
			case "q", "ctrl+c":
				m.quitting = true
				return m, tea.Quit
			default:
				m.mode = modeReview
				return m, nil
			}
		default:
			return m.updateReview(msg)
		}
	}
	return m, nil
}

func (m Model) updateReview(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.status = ""
	switch key := msg.String(); key {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "n", "right":
		m.session.Advance()
	case "p", "left":
		m.session.Retreat()
	case "N":
		m.session.AdvanceToUnlabeled()
	case "P":
		m.session.RetreatToUnlabeled()

	case "g":
		m.mode = modeGoto
		m.input.Reset()
		m.input.Placeholder = fmt.Sprintf("pair number (1-%d)", m.session.NumPairs())
		m.input.Focus()
		return m, textinput.Blink

	case "e":
		m.mode = modeNote
		m.input.Reset()
		m.input.Placeholder = "note"
		if row, err := m.session.CurrentPair(); err == nil {
			m.input.SetValue(row.Note)
		}
		m.input.Focus()
		return m, textinput.Blink

	case "u", "0":
		if err := m.session.SaveLabel(""); err != nil {
			m.err = err
		} else {
			m.status = "label cleared"
		}

	case "s":
		if err := m.session.Comparisons().Save(""); err != nil {
			m.err = err
		} else {
			m.status = "saved to " + m.session.Comparisons().SourcePath()
		}

	case "a":
		enabled := m.session.SetAutosave(!m.session.Autosave())
		if enabled {
			m.status = "autosave on"
		} else {
			m.status = "autosave off (needs a file-backed comparison set)"
		}

	case "y":
		m.mode = modeSummary

	default:
		if idx, err := strconv.Atoi(key); err == nil {
			choices := m.session.LabelChoices()
			if idx >= 1 && idx <= len(choices) {
				if err := m.session.SaveLabel(choices[idx-1]); err != nil {
					m.err = err
				} else {
					m.session.Advance()
				}
			}
		}
	}
	return m, nil
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeReview
		m.input.Blur()
		return m, nil

	case "enter":
		value := m.input.Value()
		m.input.Blur()
		if m.mode == modeGoto {
			m.jumpTo(value)
		} else {
			if err := m.session.SaveNote(value); err != nil {
				m.err = err
			} else {
				m.status = "note saved"
			}
		}
		m.mode = modeReview
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// jumpTo parses a 1-based pair number, the numbering shown on screen.
func (m *Model) jumpTo(value string) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		m.status = fmt.Sprintf("not a pair number: %q", value)
		return
	}
	if err := m.session.JumpTo(n - 1); err != nil {
		m.status = fmt.Sprintf("no pair %d (have %d)", n, m.session.NumPairs())
	}
}

// View renders the current mode.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.mode == modeSummary {
		return m.renderSummary()
	}
	return m.renderReview()
}

func (m Model) renderReview() string {
	row, err := m.session.CurrentPair()
	if err != nil {
		return containerStyle.Render(missingStyle.Render("no pairs loaded"))
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(" linkrev "))
	b.WriteString(fmt.Sprintf("  pair %s of %s   %s\n\n",
		footerKeyStyle.Render(strconv.Itoa(row.Index+1)),
		footerKeyStyle.Render(strconv.Itoa(m.session.NumPairs())),
		m.labelBadge(row.Label, row.Labeled())))

	groups, found, err := m.session.GroupedPair()
	switch {
	case err != nil:
		b.WriteString(missingStyle.Render(err.Error()) + "\n")
	case !found:
		b.WriteString(missingStyle.Render("record(s) not found in the loaded datasets") + "\n")
		b.WriteString(dimStyle.Render(fmt.Sprintf("  left id: %s   right id: %s",
			strings.Join(row.LeftID, ", "), strings.Join(row.RightID, ", "))) + "\n")
	default:
		left := dimStyle.Width(fieldColumnWidth).Render("LEFT")
		right := dimStyle.Width(fieldColumnWidth).Render("RIGHT")
		b.WriteString("  " + lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right) + "\n")
		for _, g := range groups {
			b.WriteString(groupStyle.Render("┃ "+g.Name) + "\n")
			for line := 0; line < maxLen(g.LeftValues, g.RightValues); line++ {
				b.WriteString("  " + lipgloss.JoinHorizontal(lipgloss.Top,
					renderCell(valueAt(g.LeftValues, line), cellsEqual(g.LeftValues, g.RightValues, line)),
					"  ",
					renderCell(valueAt(g.RightValues, line), cellsEqual(g.LeftValues, g.RightValues, line)),
				) + "\n")
			}
		}
	}

	if row.Note != "" {
		b.WriteString("\n" + dimStyle.Render("note: ") + row.Note + "\n")
	}

	switch m.mode {
	case modeNote:
		b.WriteString("\n" + dimStyle.Render("note> ") + m.input.View() + "\n")
	case modeGoto:
		b.WriteString("\n" + dimStyle.Render("goto> ") + m.input.View() + "\n")
	default:
		b.WriteString("\n" + m.renderChoices())
		b.WriteString(m.renderFooter())
	}

	if m.status != "" {
		b.WriteString("\n" + statusStyle.Render(m.status))
	}
	if m.err != nil {
		b.WriteString("\n" + missingStyle.Render(m.err.Error()))
	}
	return containerStyle.Render(b.String())
}

func (m Model) renderChoices() string {
	var parts []string
	for i, c := range m.session.LabelChoices() {
		parts = append(parts, footerKeyStyle.Render(fmt.Sprintf("[%d]", i+1))+footerStyle.Render(" "+c))
	}
	parts = append(parts, footerKeyStyle.Render("[u]")+footerStyle.Render(" unlabel"))
	return strings.Join(parts, "  ") + "\n"
}

func (m Model) renderFooter() string {
	return footerKeyStyle.Render("[n/p]") + footerStyle.Render(" move  ") +
		footerKeyStyle.Render("[N/P]") + footerStyle.Render(" unlabeled  ") +
		footerKeyStyle.Render("[g]") + footerStyle.Render(" goto  ") +
		footerKeyStyle.Render("[e]") + footerStyle.Render(" note  ") +
		footerKeyStyle.Render("[y]") + footerStyle.Render(" summary  ") +
		footerKeyStyle.Render("[s]") + footerStyle.Render(" save  ") +
		footerKeyStyle.Render("[a]") + footerStyle.Render(" autosave  ") +
		footerKeyStyle.Render("[q]") + footerStyle.Render(" quit")
}

func (m Model) labelBadge(label string, labeled bool) string {
	if !labeled {
		return unlabeledStyle.Render("· unlabeled")
	}
	return labeledStyle.Render("✓ " + label)
}

func (m Model) renderSummary() string {
	counts := m.session.LabelSummary()
	total := 0
	for _, n := range counts {
		total += n
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(" label summary ") + "\n\n")

	// Stable order: configured choices first, stragglers after.
	order := append([]string(nil), m.session.LabelChoices()...)
	order = append(order, "Unlabeled")
	for label := range counts {
		if !contains(order, label) {
			order = append(order, label)
		}
	}

	bc := barchart.New(summaryChartWidth, summaryChartHeight)
	for _, label := range order {
		n, ok := counts[label]
		if !ok {
			continue
		}
		bc.Push(barchart.BarData{
			Label: truncate(label, 10),
			Values: []barchart.BarValue{
				{Name: label, Value: float64(n), Style: barStyle},
			},
		})
		b.WriteString(fmt.Sprintf("  %s %s\n",
			fieldStyle.Render(label),
			dimStyle.Render(fmt.Sprintf("%d / %d", n, total))))
	}
	bc.Draw()
	b.WriteString("\n" + bc.View() + "\n")
	b.WriteString(footerStyle.Render("any key returns to review, q quits"))
	return containerStyle.Render(b.String())
}

func renderCell(v tabular.Value, equal bool) string {
	text := v.String()
	if v.Kind == tabular.KindNull {
		text = dimStyle.Render("∅")
	}
	if equal {
		return matchStyle.Render(text)
	}
	return fieldStyle.Render(text)
}

func valueAt(values []tabular.Value, i int) tabular.Value {
	if i >= len(values) {
		return tabular.NullValue()
	}
	return values[i]
}

// cellsEqual highlights positions where both sides render identically.
func cellsEqual(left, right []tabular.Value, i int) bool {
	if i >= len(left) || i >= len(right) {
		return false
	}
	return left[i].Kind != tabular.KindNull && left[i].String() == right[i].String()
}

func maxLen(a, b []tabular.Value) int {
	if len(a) > len(b) {
		return len(a)
	}
	return len(b)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Run starts the interactive program and blocks until quit.
func Run(session *review.Session) error {
	p := tea.NewProgram(NewModel(session), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
