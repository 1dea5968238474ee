// Package tui provides the Bubble Tea training interface.
package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/vistrain/internal/model"
	"github.com/verte-zerg/vistrain/internal/picker"
	"github.com/verte-zerg/vistrain/internal/session"
	statsPkg "github.com/verte-zerg/vistrain/internal/stats"
)

const (
	minMinutes    = 1
	maxMinutes    = 10
	tickInterval  = time.Second
	progressWidth = 40
)

type screen int

const (
	screenSelect screen = iota
	screenTraining
	screenSummary
)

// tickMsg carries the ID of the session it was scheduled for.
type tickMsg struct {
	sessionID string
}

// Model implements the Bubble Tea training UI.
type Model struct {
	ctx    context.Context
	config model.Config
	stats  *statsPkg.Store
	engine *session.Engine
	picker *picker.Picker

	width  int
	height int

	subjects []model.Subject
	selected int
	minutes  int

	screen    screen
	state     model.SessionState
	commitErr error
	status    string
	bar       progress.Model

	// set after the first enter/esc on an unsaved summary; the next one discards
	confirmDiscard bool
}

var (
	titleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	valueStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	streakStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#5FA8D3")).Bold(true)
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	footerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	subjectStyle   = lipgloss.NewStyle().Padding(0, 1).Border(lipgloss.RoundedBorder(), true).BorderForeground(lipgloss.Color("#4A4A4A"))
	activeSubStyle = subjectStyle.BorderForeground(lipgloss.Color("#C89A3A")).Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	cardStyle      = lipgloss.NewStyle().Padding(0, 1).Border(lipgloss.RoundedBorder(), true).BorderForeground(lipgloss.Color("#4A4A4A"))
)

// NewModel constructs a training TUI model.
func NewModel(ctx context.Context, cfg model.Config, st *statsPkg.Store, engine *session.Engine, pick *picker.Picker) *Model {
	m := &Model{
		ctx:      ctx,
		config:   cfg,
		stats:    st,
		engine:   engine,
		picker:   pick,
		subjects: cfg.Subjects,
		selected: -1,
		minutes:  clampMinutes(cfg.Minutes),
		bar:      progress.New(progress.WithDefaultGradient(), progress.WithWidth(progressWidth)),
	}
	m.selectSubject(cfg.Subject)
	return m
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
		return m, nil
	case tickMsg:
		return m, m.handleTick(msg)
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		switch m.screen {
		case screenTraining:
			return m, m.updateTraining(msg)
		case screenSummary:
			return m, m.updateSummary(msg)
		default:
			return m, m.updateSelect(msg)
		}
	default:
		return m, nil
	}
}

func (m *Model) updateSelect(msg tea.KeyMsg) tea.Cmd {
	key := msg.String()
	switch key {
	case "q":
		return tea.Quit
	case "left", "h":
		m.moveSubject(-1)
	case "right", "l", "tab":
		m.moveSubject(1)
	case "up", "k", "+", "=":
		m.minutes = clampMinutes(m.minutes + 1)
	case "down", "j", "-":
		m.minutes = clampMinutes(m.minutes - 1)
	case "r":
		m.pickRandom()
	case "enter":
		return m.startSession()
	default:
		if n, err := strconv.Atoi(key); err == nil && n >= 1 && n <= len(m.subjects) {
			m.selected = n - 1
			m.status = ""
		}
	}
	return nil
}

func (m *Model) updateTraining(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "f", " ":
		m.state = m.engine.ReportLostFocus()
	case "e", "esc":
		st, err := m.engine.End(m.ctx)
		m.finish(st, err)
	}
	return nil
}

func (m *Model) updateSummary(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "q":
		return tea.Quit
	case "r":
		if m.commitErr != nil {
			m.commitErr = m.engine.Retry(m.ctx)
			m.confirmDiscard = false
		}
	case "enter", "esc":
		if m.commitErr != nil && !m.confirmDiscard {
			m.confirmDiscard = true
			return nil
		}
		m.screen = screenSelect
		m.commitErr = nil
		m.confirmDiscard = false
		m.status = ""
	}
	return nil
}

func (m *Model) handleTick(msg tickMsg) tea.Cmd {
	if m.screen != screenTraining || msg.sessionID != m.state.ID {
		return nil
	}
	st, err := m.engine.Tick(m.ctx)
	if st.Phase == model.PhaseEnded {
		m.finish(st, err)
		return nil
	}
	m.state = st
	if err != nil {
		m.status = err.Error()
		return nil
	}
	return scheduleTick(st.ID)
}

func (m *Model) startSession() tea.Cmd {
	cfg := model.SessionConfig{
		Subject:         m.currentSubject(),
		DurationSeconds: m.minutes * 60,
	}
	st, err := m.engine.Start(cfg)
	if err != nil {
		m.status = err.Error()
		return nil
	}
	m.state = st
	m.status = ""
	m.commitErr = nil
	m.confirmDiscard = false
	m.screen = screenTraining
	return scheduleTick(st.ID)
}

func (m *Model) finish(st model.SessionState, err error) {
	m.state = st
	m.commitErr = err
	m.screen = screenSummary
}

func scheduleTick(id string) tea.Cmd {
	return tea.Tick(tickInterval, func(time.Time) tea.Msg {
		return tickMsg{sessionID: id}
	})
}

func (m *Model) moveSubject(delta int) {
	if len(m.subjects) == 0 {
		return
	}
	if m.selected < 0 {
		m.selected = 0
		return
	}
	m.selected = (m.selected + delta + len(m.subjects)) % len(m.subjects)
	m.status = ""
}

func (m *Model) pickRandom() {
	if m.picker == nil {
		return
	}
	m.selectSubject(m.picker.PickWeighted(m.subjects, m.stats.Records(), m.config.LeastFactor))
}

func (m *Model) selectSubject(subject model.Subject) {
	for i, s := range m.subjects {
		if s == subject {
			m.selected = i
			m.status = ""
			return
		}
	}
}

func (m *Model) currentSubject() model.Subject {
	if m.selected < 0 || m.selected >= len(m.subjects) {
		return ""
	}
	return m.subjects[m.selected]
}

func clampMinutes(v int) int {
	if v < minMinutes {
		return minMinutes
	}
	if v > maxMinutes {
		return maxMinutes
	}
	return v
}

// View implements tea.Model.
func (m *Model) View() string {
	var body string
	switch m.screen {
	case screenTraining:
		body = m.viewTraining()
	case screenSummary:
		body = m.viewSummary()
	default:
		body = m.viewSelect()
	}
	footer := footerStyle.Render(m.footer())
	if m.width == 0 || m.height == 0 {
		return body + "\n\n" + footer
	}
	if m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, body)
	}
	content := lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, body)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return content + "\n" + footerLine
}

func (m *Model) viewSelect() string {
	lines := []string{titleStyle.Render("Visualization Trainer")}
	if m.config.Mastery > 0 {
		lines = append(lines, mutedStyle.Render(fmt.Sprintf("To master a visualization, hold %s of consistent focus", masteryLabel(m.config.Mastery))))
	}
	lines = append(lines, "")

	buttons := make([]string, 0, len(m.subjects))
	for i, s := range m.subjects {
		label := fmt.Sprintf("%d %s", i+1, s)
		if i == m.selected {
			buttons = append(buttons, activeSubStyle.Render(label))
		} else {
			buttons = append(buttons, subjectStyle.Render(label))
		}
	}
	lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, buttons...))
	lines = append(lines, fmt.Sprintf("Time: %s", valueStyle.Render(fmt.Sprintf("%d minutes", m.minutes))))

	if subject := m.currentSubject(); subject != "" {
		lines = append(lines, "", m.renderStatsCard(subject))
	}
	if m.status != "" {
		lines = append(lines, "", errorStyle.Render(m.status))
	}
	return lipgloss.JoinVertical(lipgloss.Center, lines...)
}

func (m *Model) renderStatsCard(subject model.Subject) string {
	rec := m.stats.Record(subject)
	cells := []string{
		statCell("Practices", fmt.Sprintf("%d", rec.Practices)),
		statCell("Total Minutes", fmt.Sprintf("%d", rec.TotalMinutes)),
		statCell("Best Focus", statsPkg.FormatSeconds(rec.HighScore)),
	}
	if rec.Mastered(m.config.Mastery) {
		cells = append(cells, statCell("Mastered", "yes"))
	}
	header := titleStyle.Render(fmt.Sprintf("%s stats", subject))
	return lipgloss.JoinVertical(lipgloss.Center, header, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
}

func statCell(title, value string) string {
	return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Center, mutedStyle.Render(title), valueStyle.Render(value)))
}

func (m *Model) viewTraining() string {
	st := m.state
	lines := []string{
		titleStyle.Render(string(st.Subject)),
		"",
		m.bar.ViewAs(st.Progress()),
		valueStyle.Render(statsPkg.FormatClock(st.RemainingSeconds)),
		"",
		mutedStyle.Render("Current Focus Streak"),
		streakStyle.Render(statsPkg.FormatSeconds(st.CurrentStreakSeconds)),
		mutedStyle.Render("Best Focus Streak This Session"),
		streakStyle.Render(statsPkg.FormatSeconds(st.BestStreakSeconds)),
	}
	if m.status != "" {
		lines = append(lines, "", errorStyle.Render(m.status))
	}
	return lipgloss.JoinVertical(lipgloss.Center, lines...)
}

func (m *Model) viewSummary() string {
	st := m.state
	lines := []string{
		titleStyle.Render("Session complete"),
		"",
		fmt.Sprintf("%s · %s practiced", st.Subject, statsPkg.FormatClock(st.Elapsed())),
		fmt.Sprintf("Best focus streak: %s", streakStyle.Render(statsPkg.FormatSeconds(st.BestStreakSeconds))),
	}
	if m.commitErr != nil {
		lines = append(lines, "", errorStyle.Render(fmt.Sprintf("Failed to save stats: %v", m.commitErr)))
		if m.confirmDiscard {
			lines = append(lines, errorStyle.Render("This session is not saved. Press enter again to discard it."))
		}
	} else {
		lines = append(lines, "", m.renderStatsCard(st.Subject))
	}
	return lipgloss.JoinVertical(lipgloss.Center, lines...)
}

func (m *Model) footer() string {
	var segments []string
	switch m.screen {
	case screenTraining:
		segments = []string{"f/space lost focus", "e/esc end session", "ctrl+c quit"}
	case screenSummary:
		switch {
		case m.confirmDiscard:
			segments = []string{"r retry save", "enter discard", "q quit"}
		case m.commitErr != nil:
			segments = []string{"r retry save", "enter continue", "q quit"}
		default:
			segments = []string{"enter continue", "q quit"}
		}
	default:
		segments = []string{"←/→ subject", "↑/↓ minutes", "r random", "enter start", "q quit"}
	}
	return strings.Join(segments, "  ")
}

func masteryLabel(seconds int) string {
	if seconds%60 == 0 {
		minutes := seconds / 60
		if minutes == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", minutes)
	}
	return statsPkg.FormatSeconds(seconds)
}
