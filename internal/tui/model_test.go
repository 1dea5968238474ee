package tui

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/vistrain/internal/model"
	"github.com/verte-zerg/vistrain/internal/picker"
	"github.com/verte-zerg/vistrain/internal/session"
	statsPkg "github.com/verte-zerg/vistrain/internal/stats"
	"github.com/verte-zerg/vistrain/internal/store"
)

type flakyBackend struct {
	inner   statsPkg.Backend
	failPut bool
}

func (f *flakyBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return f.inner.Get(ctx, key)
}

func (f *flakyBackend) Put(ctx context.Context, key string, value []byte) error {
	if f.failPut {
		return errors.New("disk full")
	}
	return f.inner.Put(ctx, key, value)
}

func newTestModel(t *testing.T, cfg model.Config) (*Model, *flakyBackend) {
	t.Helper()
	file, err := store.OpenFile(filepath.Join(t.TempDir(), "vistrain.json"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	backend := &flakyBackend{inner: file}
	if cfg.Subjects == nil {
		cfg.Subjects = model.DefaultSubjects
	}
	st := statsPkg.NewStore(backend, cfg.Subjects)
	if _, err := st.Load(context.Background()); err != nil {
		t.Fatalf("load stats: %v", err)
	}
	eng := session.New(st)
	return NewModel(context.Background(), cfg, st, eng, picker.NewWithSeed(1)), backend
}

func runeKey(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func send(m *Model, msg tea.Msg) tea.Cmd {
	_, cmd := m.Update(msg)
	return cmd
}

func tick(m *Model) tea.Cmd {
	return send(m, tickMsg{sessionID: m.state.ID})
}

func TestStartRequiresSubject(t *testing.T) {
	m, _ := newTestModel(t, model.Config{Minutes: 1})
	if cmd := send(m, tea.KeyMsg{Type: tea.KeyEnter}); cmd != nil {
		t.Fatalf("expected no tick without a subject")
	}
	if m.screen != screenSelect {
		t.Fatalf("expected to stay on selection screen")
	}
	if !strings.Contains(m.status, "no subject selected") {
		t.Fatalf("expected config error status, got %q", m.status)
	}
}

func TestSelectionKeys(t *testing.T) {
	m, _ := newTestModel(t, model.Config{Minutes: 10})
	send(m, runeKey("3"))
	if m.currentSubject() != "image3" {
		t.Fatalf("expected image3, got %q", m.currentSubject())
	}
	send(m, tea.KeyMsg{Type: tea.KeyRight})
	if m.currentSubject() != "image4" {
		t.Fatalf("expected image4, got %q", m.currentSubject())
	}
	send(m, tea.KeyMsg{Type: tea.KeyUp})
	if m.minutes != 10 {
		t.Fatalf("expected minutes clamped at 10, got %d", m.minutes)
	}
	send(m, tea.KeyMsg{Type: tea.KeyDown})
	if m.minutes != 9 {
		t.Fatalf("expected 9 minutes, got %d", m.minutes)
	}
	send(m, runeKey("9"))
	if m.currentSubject() != "image4" {
		t.Fatalf("expected out-of-range digit to be ignored")
	}
}

func TestRandomPickSelectsSubject(t *testing.T) {
	m, _ := newTestModel(t, model.Config{Minutes: 1, LeastFactor: 1})
	send(m, runeKey("r"))
	if m.currentSubject() == "" {
		t.Fatalf("expected a random subject to be selected")
	}
}

func TestSessionRunsToCompletion(t *testing.T) {
	m, _ := newTestModel(t, model.Config{Subject: "image2", Minutes: 1})
	if cmd := send(m, tea.KeyMsg{Type: tea.KeyEnter}); cmd == nil {
		t.Fatalf("expected tick command after start")
	}
	if m.screen != screenTraining {
		t.Fatalf("expected training screen")
	}
	for i := 0; i < 30; i++ {
		tick(m)
	}
	send(m, runeKey("f"))
	if m.state.CurrentStreakSeconds != 0 || m.state.BestStreakSeconds != 30 {
		t.Fatalf("unexpected streaks after lapse: %+v", m.state)
	}
	var last tea.Cmd
	for i := 0; i < 30; i++ {
		last = tick(m)
	}
	if last != nil {
		t.Fatalf("expected no further tick after auto end")
	}
	if m.screen != screenSummary || m.commitErr != nil {
		t.Fatalf("expected clean summary, screen=%v err=%v", m.screen, m.commitErr)
	}
	rec := m.stats.Record("image2")
	if rec != (model.StatsRecord{Practices: 1, TotalMinutes: 1, HighScore: 30}) {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if !strings.Contains(m.View(), "Session complete") {
		t.Fatalf("expected summary view")
	}
}

func TestEndKeyCommitsOnce(t *testing.T) {
	m, _ := newTestModel(t, model.Config{Subject: "image1", Minutes: 2})
	send(m, tea.KeyMsg{Type: tea.KeyEnter})
	for i := 0; i < 5; i++ {
		tick(m)
	}
	send(m, runeKey("e"))
	if m.screen != screenSummary {
		t.Fatalf("expected summary screen")
	}
	// A tick scheduled before the end arrives late.
	tick(m)
	rec := m.stats.Record("image1")
	if rec != (model.StatsRecord{Practices: 1, TotalMinutes: 2, HighScore: 5}) {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestStaleTickIgnored(t *testing.T) {
	m, _ := newTestModel(t, model.Config{Subject: "image1", Minutes: 1})
	send(m, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd := send(m, tickMsg{sessionID: "some-older-session"}); cmd != nil {
		t.Fatalf("expected stale tick to be dropped")
	}
	if m.state.RemainingSeconds != 60 {
		t.Fatalf("expected stale tick not to advance the countdown, got %d", m.state.RemainingSeconds)
	}
}

func TestRetryAfterSaveFailure(t *testing.T) {
	m, backend := newTestModel(t, model.Config{Subject: "image5", Minutes: 3})
	send(m, tea.KeyMsg{Type: tea.KeyEnter})
	for i := 0; i < 12; i++ {
		tick(m)
	}
	backend.failPut = true
	send(m, tea.KeyMsg{Type: tea.KeyEsc})
	if !errors.Is(m.commitErr, statsPkg.ErrPersistence) {
		t.Fatalf("expected persistence error, got %v", m.commitErr)
	}
	if !strings.Contains(m.View(), "Failed to save stats") {
		t.Fatalf("expected error in summary view")
	}

	backend.failPut = false
	send(m, runeKey("r"))
	if m.commitErr != nil {
		t.Fatalf("expected retry to succeed, got %v", m.commitErr)
	}
	rec := m.stats.Record("image5")
	if rec != (model.StatsRecord{Practices: 1, TotalMinutes: 3, HighScore: 12}) {
		t.Fatalf("unexpected record after retry: %+v", rec)
	}

	send(m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.screen != screenSelect {
		t.Fatalf("expected to return to selection")
	}
}

func TestFooterPerScreen(t *testing.T) {
	m, _ := newTestModel(t, model.Config{Subject: "image1", Minutes: 1})
	if !strings.Contains(m.footer(), "enter start") {
		t.Fatalf("unexpected selection footer: %s", m.footer())
	}
	send(m, tea.KeyMsg{Type: tea.KeyEnter})
	if !strings.Contains(m.footer(), "lost focus") {
		t.Fatalf("unexpected training footer: %s", m.footer())
	}
}

func TestMasteryLabel(t *testing.T) {
	tests := map[int]string{300: "5 minutes", 60: "1 minute", 90: "90s"}
	for seconds, want := range tests {
		if got := masteryLabel(seconds); got != want {
			t.Fatalf("masteryLabel(%d) = %q, want %q", seconds, got, want)
		}
	}
}

func TestLeavingUnsavedSummaryNeedsConfirmation(t *testing.T) {
	m, backend := newTestModel(t, model.Config{Subject: "image4", Minutes: 1})
	send(m, tea.KeyMsg{Type: tea.KeyEnter})
	for i := 0; i < 8; i++ {
		tick(m)
	}
	backend.failPut = true
	send(m, runeKey("e"))
	if m.commitErr == nil {
		t.Fatalf("expected commit error")
	}

	send(m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.screen != screenSummary {
		t.Fatalf("expected to stay on summary while stats are unsaved")
	}
	if !strings.Contains(m.View(), "not saved") || !strings.Contains(m.footer(), "enter discard") {
		t.Fatalf("expected discard warning, got footer %q", m.footer())
	}

	// A retry attempt resets the confirmation.
	send(m, runeKey("r"))
	send(m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.screen != screenSummary {
		t.Fatalf("expected retry to require a fresh confirmation")
	}

	send(m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.screen != screenSelect {
		t.Fatalf("expected second press to discard and return to selection")
	}
	if m.engine.Committed() {
		t.Fatalf("expected discarded session to stay uncommitted")
	}
	if rec := m.stats.Record("image4"); rec != (model.StatsRecord{}) {
		t.Fatalf("expected no stats for discarded session, got %+v", rec)
	}
}
