package stats

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/vistrain/internal/model"
)

// Output formats for Encode.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Row is one subject's statistics prepared for display.
type Row struct {
	Subject model.Subject
	Record  model.StatsRecord
}

// Rows orders records by subject list, appending subjects present only in records.
func Rows(records map[model.Subject]model.StatsRecord, subjects []model.Subject) []Row {
	ordered := orderedSubjects(subjects, records)
	rows := make([]Row, 0, len(ordered))
	for _, subject := range ordered {
		rows = append(rows, Row{Subject: subject, Record: records[subject]})
	}
	return rows
}

// FilterRows keeps only the given subject. An empty subject keeps all rows.
func FilterRows(rows []Row, subject model.Subject) []Row {
	if subject == "" {
		return rows
	}
	out := make([]Row, 0, 1)
	for _, r := range rows {
		if r.Subject == subject {
			out = append(out, r)
		}
	}
	return out
}

// TableHeaders are the column titles shared by text and TUI tables.
var TableHeaders = []string{"Subject", "Practices", "Total Minutes", "Best Focus", "Mastered"}

// TableCells formats a row for a table.
func TableCells(r Row, mastery int) []string {
	mastered := ""
	if r.Record.Mastered(mastery) {
		mastered = "yes"
	}
	return []string{
		string(r.Subject),
		fmt.Sprintf("%d", r.Record.Practices),
		fmt.Sprintf("%d", r.Record.TotalMinutes),
		FormatSeconds(r.Record.HighScore),
		mastered,
	}
}

// RenderTable prints per-subject statistics as an aligned text table.
func RenderTable(w io.Writer, rows []Row, mastery int) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No subjects found.")
		return err
	}
	tableRows := make([][]string, 0, len(rows))
	totals := model.StatsRecord{}
	for _, r := range rows {
		tableRows = append(tableRows, TableCells(r, mastery))
		totals.Practices += r.Record.Practices
		totals.TotalMinutes += r.Record.TotalMinutes
		if r.Record.HighScore > totals.HighScore {
			totals.HighScore = r.Record.HighScore
		}
	}
	rightAlign := map[int]bool{1: true, 2: true, 3: true}
	for _, line := range formatTable(TableHeaders, tableRows, rightAlign) {
		if _, err := fmt.Fprintln(w, strings.TrimRight(line, " ")); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w, ""); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Total: %d practices, %d minutes, best focus %s\n",
		totals.Practices, totals.TotalMinutes, FormatSeconds(totals.HighScore))
	return err
}

// Encode writes rows in the requested format. Structured formats use the durable
// {practices, totalMinutes, highScore} shape keyed by subject.
func Encode(w io.Writer, format string, rows []Row, mastery int) error {
	switch strings.ToLower(format) {
	case "", FormatText:
		return RenderTable(w, rows, mastery)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rowsToMap(rows))
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rowsToMap(rows)); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q (available: %s, %s, %s)", format, FormatText, FormatJSON, FormatYAML)
	}
}

func rowsToMap(rows []Row) map[model.Subject]model.StatsRecord {
	out := make(map[model.Subject]model.StatsRecord, len(rows))
	for _, r := range rows {
		out[r.Subject] = r.Record
	}
	return out
}

// FormatSeconds renders seconds as the focus score shown to users, e.g. "42s".
func FormatSeconds(seconds int) string {
	return fmt.Sprintf("%ds", seconds)
}

// FormatClock renders seconds as m:ss.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
