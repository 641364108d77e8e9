package cli

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/skillindex/pkg/descriptor"
	"github.com/matzehuels/skillindex/pkg/pipeline"
	"github.com/matzehuels/skillindex/pkg/skill"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Public Styles
// =============================================================================

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleNumber for numeric values.
	StyleNumber = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleSuccess for success messages.
	StyleSuccess = lipgloss.NewStyle().Foreground(colorGreen)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)
)

// =============================================================================
// Internal Styles
// =============================================================================

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleHeader = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	styleBorder = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// Icons
// =============================================================================

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
)

// =============================================================================
// Status Output
// =============================================================================

func printSuccess(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconSuccess.Render(iconSuccess)+" "+fmt.Sprintf(format, args...))
}

func printError(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconError.Render(iconError)+" "+fmt.Sprintf(format, args...))
}

func printWarning(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconWarning.Render(iconWarning)+" "+StyleWarning.Render(fmt.Sprintf(format, args...)))
}

func printInfo(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconInfo.Render(iconInfo)+" "+fmt.Sprintf(format, args...))
}

// printDetail prints an indented, dimmed line.
func printDetail(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, "  "+StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printKeyValue prints a labeled value.
func printKeyValue(w io.Writer, key, value string) {
	keyStyle := lipgloss.NewStyle().Foreground(colorGray).Width(14)
	fmt.Fprintln(w, keyStyle.Render(key)+" "+StyleValue.Render(value))
}

// newTable returns a rounded table in the CLI palette.
func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(styleBorder).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleHeader.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
}

// =============================================================================
// Run Summary
// =============================================================================

// printRunSummary prints the counters, distributions and errors of a run.
func printRunSummary(w io.Writer, res *pipeline.Result) {
	title := "Index run " + shortRunID(res.RunID)
	if res.DryRun {
		title += StyleWarning.Render(" (dry run)")
	}
	fmt.Fprintln(w, StyleTitle.Render(title))

	printKeyValue(w, "Topics", strings.Join(res.Topics, ", "))
	printKeyValue(w, "Found", strconv.Itoa(res.Found))
	printKeyValue(w, "Candidates", strconv.Itoa(res.RepositoriesFound))

	t := newTable("Indexed", "Updated", "Failed", "Skipped")
	t.Row(strconv.Itoa(res.Indexed), strconv.Itoa(res.Updated), strconv.Itoa(res.Failed), strconv.Itoa(res.Stats.Skipped))
	fmt.Fprintln(w, t.Render())

	if len(res.Stats.ScoreBuckets) > 0 {
		printKeyValue(w, "Scores", formatCounts(res.Stats.ScoreBuckets))
	}
	if len(res.Stats.CategoryCounts) > 0 {
		printKeyValue(w, "Categories", formatCategoryCounts(res.Stats.CategoryCounts))
	}

	if len(res.Errors) == 0 {
		printSuccess(w, "No errors")
		return
	}
	printWarning(w, "%d errors", len(res.Errors))
	for _, e := range res.Errors {
		printDetail(w, "%s", e)
	}
}

// formatCounts renders a count map as "a=1 b=2" sorted by key.
func formatCounts(m map[string]int) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + StyleNumber.Render(strconv.Itoa(m[k]))
	}
	return strings.Join(parts, " ")
}

// formatCategoryCounts renders category counts in catalog display order.
func formatCategoryCounts(m map[skill.Category]int) string {
	var parts []string
	for _, c := range skill.Categories {
		if n, ok := m[c]; ok {
			parts = append(parts, string(c)+"="+StyleNumber.Render(strconv.Itoa(n)))
		}
	}
	return strings.Join(parts, " ")
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// =============================================================================
// Validation Report
// =============================================================================

// printValidation prints the gate report of one descriptor.
func printValidation(w io.Writer, target string, res descriptor.Result) {
	if res.Valid {
		printSuccess(w, "%s is a valid skill package", target)
	} else {
		printError(w, "%s is not installable", target)
	}
	for _, e := range res.Errors {
		printDetail(w, "error: %s", e)
	}
	for _, warn := range res.Warnings {
		printDetail(w, "warning: %s", warn)
	}
	if m := res.Metadata; m != nil {
		printKeyValue(w, "Name", m.Name)
		printKeyValue(w, "Description", m.Description)
		if m.Author != "" {
			printKeyValue(w, "Author", m.Author)
		}
		if len(m.Triggers) > 0 {
			printKeyValue(w, "Triggers", strings.Join(m.Triggers, ", "))
		}
	}
}

// =============================================================================
// Publishers
// =============================================================================

// printPublishers prints the trusted-publisher table.
func printPublishers(w io.Writer, pubs []skill.Publisher) {
	t := newTable("Repository", "Base score", "Excluded")
	for _, p := range pubs {
		excl := "-"
		if len(p.Exclude) > 0 {
			excl = strings.Join(p.Exclude, ", ")
		}
		t.Row(p.FullName(), strconv.FormatFloat(p.BaseScore, 'f', 2, 64), excl)
	}
	fmt.Fprintln(w, t.Render())
}
