// Package statsui provides the Bubble Tea stats interface.
package statsui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/vistrain/internal/model"
	"github.com/verte-zerg/vistrain/internal/stats"
)

const minTableHeight = 3

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	tableStyle  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
)

// Model implements the Bubble Tea stats UI.
type Model struct {
	rows    []stats.Row
	mastery int
	table   table.Model

	width  int
	height int
}

// NewModel constructs a stats UI model from prepared rows.
func NewModel(rows []stats.Row, cfg model.StatsConfig) *Model {
	m := &Model{
		rows:    rows,
		mastery: cfg.Mastery,
	}
	m.initTable()
	return m
}

func (m *Model) initTable() {
	cells := make([][]string, 0, len(m.rows))
	tableRows := make([]table.Row, 0, len(m.rows))
	for _, r := range m.rows {
		c := stats.TableCells(r, m.mastery)
		cells = append(cells, c)
		tableRows = append(tableRows, table.Row(c))
	}
	widths := stats.ColumnWidths(stats.TableHeaders, cells)
	columns := make([]table.Column, len(stats.TableHeaders))
	for i, title := range stats.TableHeaders {
		columns[i] = table.Column{Title: title, Width: widths[i]}
	}

	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("#F0F0F0")).
		Background(lipgloss.Color("#5A4520")).
		Bold(false)

	m.table = table.New(
		table.WithColumns(columns),
		table.WithRows(tableRows),
		table.WithFocused(true),
		table.WithHeight(tableHeight(len(tableRows), 0)),
		table.WithStyles(styles),
	)
}

func tableHeight(rowCount, screenHeight int) int {
	// header row plus its bottom border
	h := rowCount + 2
	if screenHeight > 0 {
		// title, blank line, borders and footer
		limit := screenHeight - 6
		if h > limit {
			h = limit
		}
	}
	if h < minTableHeight {
		h = minTableHeight
	}
	return h
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetHeight(tableHeight(len(m.rows), m.height))
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.String() == "q" || msg.String() == "esc" {
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	var body string
	if len(m.rows) == 0 {
		body = "No subjects found."
	} else {
		body = tableStyle.Render(m.table.View())
	}
	content := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Practice Stats"),
		"",
		body,
		headerStyle.Render(m.summary()),
	)
	if m.width == 0 || m.height == 0 {
		return content
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

func (m *Model) summary() string {
	practices, minutes, best := 0, 0, 0
	for _, r := range m.rows {
		practices += r.Record.Practices
		minutes += r.Record.TotalMinutes
		if r.Record.HighScore > best {
			best = r.Record.HighScore
		}
	}
	return fmt.Sprintf("%d practices · %d minutes · best focus %s   ↑/↓ scroll  q quit",
		practices, minutes, stats.FormatSeconds(best))
}
