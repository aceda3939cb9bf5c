package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"anefwatch/internal/batch"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
	summaryFrame = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7D56F4")).
			Padding(0, 1)
)

// renderSummary formats a run for the terminal.
func renderSummary(r *batch.Result) string {
	s := r.Summary()

	var b strings.Builder
	b.WriteString(titleStyle.Render("ANEF login summary"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "Processed: %d  %s  %s",
		s.Total,
		okStyle.Render(fmt.Sprintf("succeeded: %d", s.Succeeded)),
		failStyle.Render(fmt.Sprintf("failed: %d", s.Failed)))
	if s.Skipped > 0 {
		b.WriteString(mutedStyle.Render(fmt.Sprintf("  skipped: %d", s.Skipped)))
	}
	b.WriteString("\n")

	flags := make([]string, 0, len(s.Flags))
	for flag := range s.Flags {
		flags = append(flags, flag)
	}
	sort.Strings(flags)
	for _, flag := range flags {
		fmt.Fprintf(&b, "  %-16s %d\n", flag, s.Flags[flag])
	}

	if len(s.Failures) > 0 {
		b.WriteString(failStyle.Render("Failures:"))
		b.WriteString("\n")
		for _, f := range s.Failures {
			fmt.Fprintf(&b, "  - %s: %s\n", f.Label, f.Message)
		}
	}
	b.WriteString(mutedStyle.Render(fmt.Sprintf("run %s in %s", r.RunID, r.Elapsed().Round(time.Second))))

	return summaryFrame.Render(b.String())
}
