// package formatter renders resource rows as terminal tables, CSV, JSON and Markdown
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/desertthunder/bookclub/internal/resource"
	"github.com/desertthunder/bookclub/internal/shared"
)

// Format is an output format accepted by `--format`.
type Format string

const (
	FormatTable    Format = "table"
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// ParseFormat resolves a format name; "md" is accepted for Markdown.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "table":
		return FormatTable, nil
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	}
	return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, s)
}

// Extension returns the file extension for exports in f.
func (f Format) Extension() string {
	switch f {
	case FormatCSV:
		return ".csv"
	case FormatJSON:
		return ".json"
	case FormatMarkdown:
		return ".md"
	default:
		return ".txt"
	}
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#6c71c4")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#586e75"))
)

func headers(kind resource.Kind) []string {
	h := []string{"ID"}
	for _, c := range kind.Columns {
		h = append(h, c.Title)
	}
	return h
}

func record(kind resource.Kind, row resource.Row) []string {
	rec := []string{row.ID()}
	for _, c := range kind.Columns {
		rec = append(rec, c.Value(row))
	}
	return rec
}

// Table renders rows with the kind's columns as a bordered terminal table.
func Table(kind resource.Kind, rows resource.Rows) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers(kind)...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for _, r := range rows {
		t.Row(record(kind, r)...)
	}
	return t.Render()
}

// ExportToCSV writes an ID column followed by the kind's columns.
func ExportToCSV(kind resource.Kind, rows resource.Rows) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(headers(kind)); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, r := range rows {
		if err := writer.Write(record(kind, r)); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportToJSON writes the raw rows, keeping every field the API returned.
func ExportToJSON(rows resource.Rows, pretty bool) ([]byte, error) {
	if rows == nil {
		rows = resource.Rows{}
	}
	return shared.MarshalJSON(rows, pretty)
}

// ExportToMarkdown writes a heading, the stats block and a pipe table.
func ExportToMarkdown(kind resource.Kind, rows resource.Rows) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", kind.Title))
	for _, line := range statLines(kind, resource.ComputeStats(kind, rows)) {
		buf.WriteString(fmt.Sprintf("- **%s**: %s\n", line[0], line[1]))
	}
	buf.WriteString("\n")

	h := headers(kind)
	buf.WriteString("| " + strings.Join(h, " | ") + " |\n")
	buf.WriteString("|" + strings.Repeat(" --- |", len(h)) + "\n")
	for _, r := range rows {
		cells := record(kind, r)
		for i, c := range cells {
			cells[i] = strings.ReplaceAll(c, "|", `\|`)
		}
		buf.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	return buf.Bytes(), nil
}

// Render produces rows in format f.
func Render(f Format, kind resource.Kind, rows resource.Rows) ([]byte, error) {
	switch f {
	case FormatCSV:
		return ExportToCSV(kind, rows)
	case FormatJSON:
		return ExportToJSON(rows, true)
	case FormatMarkdown:
		return ExportToMarkdown(kind, rows)
	default:
		return []byte(Table(kind, rows) + "\n"), nil
	}
}

func statLines(kind resource.Kind, s resource.Stats) [][2]string {
	lines := [][2]string{
		{"Total", fmt.Sprintf("%d", s.Total)},
		{"Active", fmt.Sprintf("%d", s.Active)},
	}
	if kind.AverageField != "" {
		avg := "n/a"
		if s.AverageCount > 0 {
			avg = fmt.Sprintf("%.2f (%d rows)", s.Average, s.AverageCount)
		}
		lines = append(lines, [2]string{kind.AverageLabel, avg})
	}
	return lines
}

// StatsText renders the summary figures as aligned "label: value" lines.
func StatsText(kind resource.Kind, s resource.Stats) string {
	var b strings.Builder
	for _, line := range statLines(kind, s) {
		b.WriteString(fmt.Sprintf("%-14s %s\n", line[0]+":", line[1]))
	}
	return b.String()
}

// Detail renders every scalar field of a row, sorted by key, and nested objects by dotted path.
func Detail(row resource.Row) string {
	pairs := flatten("", map[string]any(row))
	keys := make([]string, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	width := 0
	for _, k := range keys {
		width = max(width, len(k))
	}

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(fmt.Sprintf("%-*s  %s\n", width, k, pairs[k]))
	}
	return b.String()
}

func flatten(prefix string, obj map[string]any) map[string]string {
	out := map[string]string{}
	for k, v := range obj {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch t := v.(type) {
		case map[string]any:
			for nk, nv := range flatten(key, t) {
				out[nk] = nv
			}
		case []any:
			out[key] = fmt.Sprintf("[%d items]", len(t))
		case nil:
			out[key] = "-"
		default:
			out[key] = resource.Stringify(t)
		}
	}
	return out
}

// WriteExport writes rows for kind into dir as <kind><ext> and returns the path.
func WriteExport(f Format, kind resource.Kind, rows resource.Rows, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := Render(f, kind, rows)
	if err != nil {
		return "", fmt.Errorf("failed to render %s: %w", kind.Name, err)
	}

	path := filepath.Join(dir, kind.Name+f.Extension())
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}
	return path, nil
}
