// Package main provides the CLI entrypoint for vistrain.
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verte-zerg/vistrain/internal/config"
	"github.com/verte-zerg/vistrain/internal/model"
	"github.com/verte-zerg/vistrain/internal/picker"
	"github.com/verte-zerg/vistrain/internal/session"
	"github.com/verte-zerg/vistrain/internal/stats"
	"github.com/verte-zerg/vistrain/internal/statsui"
	"github.com/verte-zerg/vistrain/internal/store"
	"github.com/verte-zerg/vistrain/internal/tui"
)

const (
	defaultMinutes     = 1
	defaultLeastFactor = 1.0
	defaultMastery     = 300
	minMinutes         = 1
	maxMinutes         = 10
)

var (
	practiceSubject     string
	practiceMinutes     int
	practiceSubjects    []string
	practiceRandom      bool
	practiceLeastFactor float64
	practiceMastery     int

	storeBackend string
	storePath    string

	statsSubject string
	statsFormat  string
	statsPlain   bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "vistrain",
		Short:         "TUI visualization focus trainer",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runPracticeCmd,
	}

	rootCmd.PersistentFlags().StringVar(&storeBackend, "store", store.KindSQLite, "stats backend (sqlite or json)")
	rootCmd.PersistentFlags().StringVar(&storePath, "store-path", "", "stats file path (default: XDG data dir)")
	rootCmd.PersistentFlags().StringSliceVar(&practiceSubjects, "subjects", subjectStrings(model.DefaultSubjects), "known subjects")
	rootCmd.PersistentFlags().IntVar(&practiceMastery, "mastery", defaultMastery, "focus streak in seconds that marks a subject as mastered (0 disables)")

	rootCmd.Flags().StringVar(&practiceSubject, "subject", "", "preselected subject")
	rootCmd.Flags().IntVar(&practiceMinutes, "minutes", defaultMinutes, "session length in minutes (1-10)")
	rootCmd.Flags().BoolVar(&practiceRandom, "random", false, "preselect a random subject, favoring the least practiced")
	rootCmd.Flags().Float64Var(&practiceLeastFactor, "least-factor", defaultLeastFactor, "weight per minute of practice deficit for random picks")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newSubjectsCmd())
	rootCmd.AddCommand(newStatsCmd())

	return rootCmd
}

func runPracticeCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applySharedConfig(cmd, fileCfg)
	applyStringConfig(cmd, "subject", &practiceSubject, fileCfg.Practice.Subject)
	applyIntConfig(cmd, "minutes", &practiceMinutes, fileCfg.Practice.Minutes)
	applyBoolConfig(cmd, "random", &practiceRandom, fileCfg.Practice.Random)
	applyFloatConfig(cmd, "least-factor", &practiceLeastFactor, fileCfg.Practice.LeastFactor)

	cfg := model.Config{
		Subject:     model.Subject(strings.TrimSpace(practiceSubject)),
		Minutes:     practiceMinutes,
		Subjects:    toSubjects(practiceSubjects),
		Random:      practiceRandom,
		LeastFactor: practiceLeastFactor,
		Mastery:     practiceMastery,
	}
	if err := validateConfig(cfg); err != nil {
		return err
	}

	ctx := context.Background()
	backend, statsStore, err := openStats(ctx, cfg.Subjects)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := backend.Close(); cerr != nil {
			logErrf("failed to close store: %v\n", cerr)
		}
	}()

	pick := picker.New()
	if cfg.Random && cfg.Subject == "" {
		cfg.Subject = pick.PickWeighted(cfg.Subjects, statsStore.Records(), cfg.LeastFactor)
	}

	engine := session.New(statsStore)
	ui := tui.NewModel(ctx, cfg, statsStore, engine, pick)
	program := tea.NewProgram(ui, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	if st := engine.State(); st.Phase == model.PhaseEnded && !engine.Committed() {
		logErrf("stats for session %s were not saved\n", st.ID)
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func newSubjectsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "subjects",
		Short: "List known subjects",
		Args:  cobra.NoArgs,
		RunE:  runSubjectsCmd,
	}
}

func runSubjectsCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applySharedConfig(cmd, fileCfg)
	subjects := toSubjects(practiceSubjects)
	if err := validateSubjects(subjects); err != nil {
		return err
	}
	for _, subject := range subjects {
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), subject); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show per-subject stats",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().StringVar(&statsSubject, "subject", "", "only show this subject")
	cmd.Flags().StringVar(&statsFormat, "format", stats.FormatText, "output format for non-interactive use (text, json, yaml)")
	cmd.Flags().BoolVar(&statsPlain, "plain", false, "print instead of opening the stats TUI")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applySharedConfig(cmd, fileCfg)

	cfg := model.StatsConfig{
		Subject: model.Subject(strings.TrimSpace(statsSubject)),
		Format:  strings.ToLower(strings.TrimSpace(statsFormat)),
		Plain:   statsPlain,
		Mastery: practiceMastery,
	}
	switch cfg.Format {
	case stats.FormatText, stats.FormatJSON, stats.FormatYAML:
	default:
		return fmt.Errorf("--format must be one of %s, %s, %s", stats.FormatText, stats.FormatJSON, stats.FormatYAML)
	}
	subjects := toSubjects(practiceSubjects)
	if err := validateSubjects(subjects); err != nil {
		return err
	}

	ctx := context.Background()
	backend, statsStore, err := openStats(ctx, subjects)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := backend.Close(); cerr != nil {
			logErrf("failed to close store: %v\n", cerr)
		}
	}()

	rows := stats.FilterRows(stats.Rows(statsStore.Records(), statsStore.Subjects()), cfg.Subject)
	if cfg.Subject != "" && len(rows) == 0 {
		return fmt.Errorf("unknown subject %q", cfg.Subject)
	}

	interactive := term.IsTerminal(int(os.Stdout.Fd()))
	if cfg.Plain || cfg.Format != stats.FormatText || !interactive {
		return stats.Encode(cmd.OutOrStdout(), cfg.Format, rows, cfg.Mastery)
	}

	program := tea.NewProgram(statsui.NewModel(rows, cfg), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run stats TUI: %w", err)
	}
	return nil
}

// openStats opens the configured backend and loads statistics from it. Load
// failures are logged and leave zeroed statistics in place.
func openStats(ctx context.Context, subjects []model.Subject) (store.Backend, *stats.Store, error) {
	kind := strings.ToLower(strings.TrimSpace(storeBackend))
	path := storePath
	if path == "" {
		path = config.DefaultStorePath(kind)
	}
	backend, err := store.OpenBackend(kind, path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open store: %w", err)
	}
	statsStore := stats.NewStore(backend, subjects)
	if _, err := statsStore.Load(ctx); err != nil {
		logErrf("failed to load stats, starting from zero: %v\n", err)
	}
	return backend, statsStore, nil
}

func applySharedConfig(cmd *cobra.Command, fileCfg config.FileConfig) {
	applyStringConfig(cmd, "store", &storeBackend, fileCfg.Store.Backend)
	applyStringConfig(cmd, "store-path", &storePath, fileCfg.Store.Path)
	applyIntConfig(cmd, "mastery", &practiceMastery, fileCfg.Practice.Mastery)
	if len(fileCfg.Practice.Subjects) > 0 && !cmd.Flags().Changed("subjects") {
		practiceSubjects = fileCfg.Practice.Subjects
	}
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyFloatConfig(cmd *cobra.Command, name string, target, value *float64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# vistrain configuration
# Uncomment a value to enable it. CLI flags override config values.

[practice]
# subject = "image1"          # Preselected subject
# minutes = %d                # Session length in minutes (1-10)
# subjects = [%s]
# random = false              # Preselect a random subject, favoring the least practiced
# least-factor = %.1f         # Weight per minute of practice deficit for random picks
# mastery = %d              # Focus streak in seconds that marks a subject as mastered

[store]
# backend = %q            # sqlite or json
# path = ""                   # Defaults to the XDG data directory
`,
		defaultMinutes,
		quotedList(subjectStrings(model.DefaultSubjects)),
		defaultLeastFactor,
		defaultMastery,
		store.KindSQLite,
	)
}

func validateConfig(cfg model.Config) error {
	if cfg.Minutes < minMinutes || cfg.Minutes > maxMinutes {
		return fmt.Errorf("--minutes must be between %d and %d", minMinutes, maxMinutes)
	}
	if cfg.LeastFactor < 0 {
		return fmt.Errorf("--least-factor must be >= 0")
	}
	if cfg.Mastery < 0 {
		return fmt.Errorf("--mastery must be >= 0")
	}
	if err := validateSubjects(cfg.Subjects); err != nil {
		return err
	}
	if cfg.Subject != "" && !containsSubject(cfg.Subjects, cfg.Subject) {
		return fmt.Errorf("unknown subject %q (available: %s)", cfg.Subject, strings.Join(subjectStrings(cfg.Subjects), ", "))
	}
	return nil
}

func validateSubjects(subjects []model.Subject) error {
	if len(subjects) == 0 {
		return fmt.Errorf("--subjects must not be empty")
	}
	seen := make(map[model.Subject]struct{}, len(subjects))
	for _, s := range subjects {
		if s == "" {
			return fmt.Errorf("--subjects must not contain empty names")
		}
		if _, ok := seen[s]; ok {
			return fmt.Errorf("duplicate subject %q", s)
		}
		seen[s] = struct{}{}
	}
	return nil
}

func containsSubject(subjects []model.Subject, subject model.Subject) bool {
	for _, s := range subjects {
		if s == subject {
			return true
		}
	}
	return false
}

func toSubjects(values []string) []model.Subject {
	out := make([]model.Subject, 0, len(values))
	for _, v := range values {
		out = append(out, model.Subject(strings.TrimSpace(v)))
	}
	return out
}

func subjectStrings(subjects []model.Subject) []string {
	out := make([]string, len(subjects))
	for i, s := range subjects {
		out[i] = string(s)
	}
	return out
}

func quotedList(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = fmt.Sprintf("%q", v)
	}
	return strings.Join(quoted, ", ")
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
