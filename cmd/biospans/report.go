package main

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/nerkit/biospans/dataset"
)

// maxIssuesShown limits the sentences listed by the verification report.
const maxIssuesShown = 10

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	failStyle   = cellStyle.Foreground(lipgloss.Color("9"))
)

// renderTable renders rows with a header; rows for which failed returns true are highlighted.
func renderTable(headers []string, rows [][]string, failed func(row int) bool) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case failed != nil && row >= 0 && row < len(rows) && failed(row):
				return failStyle
			default:
				return cellStyle
			}
		}).
		String()
}

func formatCounts(counts map[string]int) string {
	parts := make([]string, 0, len(counts))
	for _, typ := range slices.Sorted(maps.Keys(counts)) {
		parts = append(parts, fmt.Sprintf("%s=%d", typ, counts[typ]))
	}
	return strings.Join(parts, " ")
}

func printConversion(manifest *Manifest) {
	rows := make([][]string, 0, len(manifest.Splits))
	for _, s := range manifest.Splits {
		rows = append(rows, []string{
			s.Name,
			strconv.Itoa(s.Sentences),
			strconv.Itoa(s.Records),
			strconv.Itoa(s.Skipped),
			strconv.Itoa(s.Entities),
			formatCounts(s.EntitiesByType),
			s.Output,
		})
	}
	fmt.Fprintln(stdout, titleStyle.Render("Conversion "+manifest.RunID))
	fmt.Fprintln(stdout, renderTable(
		[]string{"Split", "Sentences", "Records", "Skipped", "Entities", "By type", "Output"},
		rows,
		func(row int) bool { return manifest.Splits[row].Skipped > 0 }))
}

func printVerification(report *dataset.VerifyReport) {
	if report == nil {
		return
	}
	rows := make([][]string, 0, len(report.Totals))
	for _, total := range report.Totals {
		expected, status := "-", "ok"
		if total.Expected >= 0 {
			expected = strconv.Itoa(total.Expected)
		}
		if !total.Matches() {
			status = "MISMATCH"
		}
		rows = append(rows, []string{
			total.Split, total.Type,
			strconv.Itoa(total.Begins), strconv.Itoa(total.Decoded), expected, status,
		})
	}
	fmt.Fprintln(stdout, titleStyle.Render(fmt.Sprintf("Verified %d sentences", report.Sentences)))
	fmt.Fprintln(stdout, renderTable(
		[]string{"Split", "Type", "B tags", "Decoded", "Expected", "Status"},
		rows,
		func(row int) bool { return !report.Totals[row].Matches() }))
	printIssues("invalid sentences (skipped)", report.Invalid)
	printIssues("sentences with mismatched entities", report.Mismatches)
}

func printIssues(what string, issues []dataset.SentenceIssue) {
	if len(issues) == 0 {
		return
	}
	fmt.Fprintf(stdout, "%d %s:\n", len(issues), what)
	for ii, issue := range issues {
		if ii == maxIssuesShown {
			fmt.Fprintf(stdout, "  ... and %d more\n", len(issues)-maxIssuesShown)
			break
		}
		fmt.Fprintf(stdout, "  %s, line %d: %v\n", issue.Split, issue.Line, issue.Err)
	}
}
