// Package ui renders CLI output: styled messages with lipgloss, tables and
// spinners with pterm, markdown with glamour and plain colors with fatih/color.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/pterm/pterm"

	"github.com/satishbabariya/insights-go/internal/core/query/domain"
)

var (
	// Colors
	PrimaryColor   = lipgloss.Color("#00D9FF")
	SuccessColor   = lipgloss.Color("#00FF88")
	WarningColor   = lipgloss.Color("#FFB800")
	ErrorColor     = lipgloss.Color("#FF4444")
	SecondaryColor = lipgloss.Color("#6C757D")

	// Styles
	TitleStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(SuccessColor).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(WarningColor).
			Bold(true)

	InfoStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor)

	SecondaryStyle = lipgloss.NewStyle().
			Foreground(SecondaryColor)

	errorColor = color.New(color.FgRed, color.Bold)
)

// NullText is how NULL values are shown in tables.
const NullText = "NULL"

func width() int {
	if w := pterm.GetTerminalWidth(); w > 0 {
		return w
	}
	return 80
}

// PrintHeader prints a boxed title.
func PrintHeader(title, subtitle string) {
	header := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(PrimaryColor).
		Padding(0, 2).
		Render(lipgloss.JoinVertical(lipgloss.Left,
			TitleStyle.Render(title),
			SecondaryStyle.Render(subtitle),
		))
	fmt.Println(header)
}

// PrintSuccess prints a success message
func PrintSuccess(format string, args ...any) {
	fmt.Println(SuccessStyle.Render("✓ " + fmt.Sprintf(format, args...)))
}

// PrintWarning prints a warning message
func PrintWarning(format string, args ...any) {
	fmt.Println(WarningStyle.Render("⚠ " + fmt.Sprintf(format, args...)))
}

// PrintInfo prints an info message
func PrintInfo(format string, args ...any) {
	fmt.Println(InfoStyle.Render("ℹ " + fmt.Sprintf(format, args...)))
}

// PrintError writes "Error: <kind>: <message>" in red to w.
func PrintError(w io.Writer, err error) {
	if w == nil {
		w = os.Stderr
	}
	errorColor.Fprintln(w, ErrorLine(err))
}

// ErrorLine renders err with its kind.
func ErrorLine(err error) string {
	return fmt.Sprintf("Error: %s: %s", domain.KindOf(err), err.Error())
}

// PrintSection prints an underlined section title.
func PrintSection(title string) {
	fmt.Println(lipgloss.NewStyle().
		Width(width()).
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(SecondaryColor).
		Render(title))
}

// PrintCodeBlock prints code, SQL usually, in a bordered block.
func PrintCodeBlock(code string) {
	fmt.Println(lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(SecondaryColor).
		Padding(0, 1).
		Render(code))
}

// PrintMarkdown renders markdown content
func PrintMarkdown(content string) error {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width()),
	)
	if err != nil {
		return err
	}
	out, err := r.Render(content)
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}

// PrintTable prints a table with a header row.
func PrintTable(headers []string, rows [][]string) error {
	data := pterm.TableData{headers}
	data = append(data, rows...)
	return pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(data).Render()
}

// Spinner starts a spinner; call Stop on it when done.
func Spinner(message string) *pterm.SpinnerPrinter {
	s, err := pterm.DefaultSpinner.WithRemoveWhenDone().Start(message)
	if err != nil {
		return nil
	}
	return s
}

// StopSpinner stops s if it started.
func StopSpinner(s *pterm.SpinnerPrinter) {
	if s != nil {
		_ = s.Stop()
	}
}

// ResultTable converts result columns and display rows to table cells.
func ResultTable(cols []domain.ResultColumn, rows [][]any) ([]string, [][]string) {
	headers := make([]string, len(cols))
	for i, c := range cols {
		headers[i] = c.Name
	}
	cells := make([][]string, len(rows))
	for i, row := range rows {
		line := make([]string, len(row))
		for j, v := range row {
			line[j] = FormatCell(v)
		}
		cells[i] = line
	}
	return headers, cells
}

// FormatCell renders one value for display.
func FormatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return NullText
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format("2006-01-02")
		}
		return x.Format("2006-01-02 15:04:05")
	case float64:
		return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.6f", x), "0"), ".")
	case []byte:
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}

// PrintResult prints a result table followed by a row count and timing.
func PrintResult(cols []domain.ResultColumn, rows [][]any, elapsed time.Duration, cached bool) error {
	headers, cells := ResultTable(cols, rows)
	if len(headers) > 0 {
		if err := PrintTable(headers, cells); err != nil {
			return err
		}
	}
	note := fmt.Sprintf("%d rows in %s", len(rows), elapsed.Round(time.Millisecond))
	if cached {
		note += " (cached)"
	}
	fmt.Println(SecondaryStyle.Render(note))
	return nil
}
