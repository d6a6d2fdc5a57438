package output

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mj1618/list-import/internal/workflow"
)

// StatusText is the plain status summary of p.
func StatusText(p workflow.Progress) string {
	var lines []string
	switch {
	case p.Running:
		lines = append(lines, runningLine(p))
	case p.Total > 0:
		verb := "Completed"
		if p.Stopped {
			verb = "Stopped by request"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", verb, counts(p)))
	case p.Err == "":
		lines = append(lines, "Ready to add users")
	}
	if len(p.SkippedIDs) > 0 {
		lines = append(lines, "Already in list: "+strings.Join(p.SkippedIDs, ", "))
	}
	if len(p.FailedIDs) > 0 {
		lines = append(lines, "Failed users: "+strings.Join(p.FailedIDs, ", "))
	}
	if p.Err != "" {
		lines = append(lines, "Error: "+p.Err)
	}
	return strings.Join(lines, "\n")
}

func runningLine(p workflow.Progress) string {
	switch p.Phase {
	case workflow.PhaseNavigating:
		return fmt.Sprintf("Opening list... 0/%d", p.Total)
	case workflow.PhaseStopping:
		return fmt.Sprintf("Stopping after current user... %s", counts(p))
	}
	line := fmt.Sprintf("Adding users... %d/%d added, %d skipped, %d failed", p.Succeeded, p.Total, p.Skipped, p.Failed)
	if p.Current != "" {
		line += " (" + p.Current + ")"
	}
	return line
}

func counts(p workflow.Progress) string {
	return fmt.Sprintf("%d added, %d skipped, %d failed", p.Succeeded, p.Skipped, p.Failed)
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	panelStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// RenderStatus is StatusText laid out for a terminal.
func RenderStatus(p workflow.Progress) string {
	header := titleStyle.Render("list-import")
	if p.RunID != "" {
		header += " " + mutedStyle.Render(p.RunID)
	}
	tally := lipgloss.JoinHorizontal(lipgloss.Top,
		okStyle.Render(fmt.Sprintf("%d added", p.Succeeded)), "  ",
		warnStyle.Render(fmt.Sprintf("%d skipped", p.Skipped)), "  ",
		errorStyle.Render(fmt.Sprintf("%d failed", p.Failed)), "  ",
		mutedStyle.Render(fmt.Sprintf("of %d", p.Total)),
	)
	body := []string{header, tally}
	for _, line := range strings.Split(StatusText(p), "\n") {
		style := mutedStyle
		if strings.HasPrefix(line, "Error:") || strings.HasPrefix(line, "Failed") {
			style = errorStyle
		}
		body = append(body, style.Render(line))
	}
	return panelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, body...))
}
