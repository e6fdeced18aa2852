package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"

	"github.com/imyousuf/metricscarpet/internal/table"
)

// Output formats accepted by --format.
const (
	formatTable = "table"
	formatCSV   = "csv"
	formatJSON  = "json"
)

// Style definitions shared by the listing commands.
var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7571F9"})
	labelStyle = lipgloss.NewStyle().
			Faint(true).
			Width(18)
	valueStyle = lipgloss.NewStyle()
	cellStyle  = lipgloss.NewStyle().Padding(0, 1)
)

func checkFormat(format string) error {
	switch format {
	case formatTable, formatCSV, formatJSON:
		return nil
	default:
		return fmt.Errorf("unknown format %q (want table, csv or json)", format)
	}
}

// renderTable writes t to out in the given format.
func renderTable(out io.Writer, t *table.Table, format string) error {
	switch format {
	case formatCSV:
		return table.WriteCSV(out, t)
	case formatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(t)
	case formatTable:
		if t.Len() == 0 {
			fmt.Fprintln(out, "(no rows)")
			return nil
		}
		rows := make([][]string, len(t.Rows))
		for i, r := range t.Rows {
			rows[i] = make([]string, len(t.Columns))
			for j := range t.Columns {
				if j < len(r) {
					rows[i][j] = table.String(r[j])
				}
			}
		}
		lt := ltable.New().
			Border(lipgloss.NormalBorder()).
			Headers(t.Header()...).
			Rows(rows...).
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == ltable.HeaderRow {
					return cellStyle.Bold(true)
				}
				return cellStyle
			})
		fmt.Fprintln(out, lt.Render())
		return nil
	default:
		return checkFormat(format)
	}
}

func printSection(out io.Writer, title string) {
	fmt.Fprintf(out, "  %s\n", headerStyle.Render(title))
}

func printKV(out io.Writer, label, value string) {
	fmt.Fprintf(out, "    %s%s\n", labelStyle.Render(label+":"), valueStyle.Render(value))
}

func printTitle(out io.Writer, title string) {
	fmt.Fprintln(out, headerStyle.Render(title))
	fmt.Fprintln(out, headerStyle.Render(strings.Repeat("=", len(title))))
}
