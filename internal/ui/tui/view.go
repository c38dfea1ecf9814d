package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/spoolsmith/spoolsmith/internal/install"
)

// styleFunc is a single-string styling function.
type styleFunc func(string) string

// sf wraps a lipgloss.Style into a styleFunc.
func sf(s lipgloss.Style) styleFunc {
	return func(str string) string { return s.Render(str) }
}

func renderView(m Model) string {
	var b strings.Builder

	renderHeader(&b, m)

	if m.ViewMode == "doctor" {
		renderChecks(&b, m)
	} else {
		renderProgressBar(&b, m)
		renderSteps(&b, m)
	}

	if m.Err != nil {
		renderError(&b, m)
	}

	renderFooter(&b, m)

	return b.String()
}

func renderHeader(b *strings.Builder, m Model) {
	title := "spoolsmith"
	if m.ViewMode == "doctor" {
		title += ": doctor"
	} else {
		title += ": " + m.DeviceName
	}
	b.WriteString(titleStyle.Render(title))
	if m.ViewMode != "doctor" && m.DriverUUID != "" {
		b.WriteString(subtitleStyle.Render(" driver " + m.DriverUUID))
	}

	status := " "
	switch {
	case m.Err != nil:
		status += errStyle.Render("Failed")
	case m.Done:
		status += okStyle.Render("Done")
	case m.Mode == install.ModeReinstall:
		status += warnStyle.Render(currentSpinner(m.SpinnerFrame) + " reinstalling")
	default:
		status += runningStyle.Render(currentSpinner(m.SpinnerFrame) + " installing")
	}
	b.WriteString(status)
	b.WriteString("\n")
}

func renderProgressBar(b *strings.Builder, m Model) {
	progress := calculateProgress(m)
	barWidth := 40
	if m.Width > 0 && m.Width < 80 {
		barWidth = m.Width - 30
		if barWidth < 10 {
			barWidth = 10
		}
	}
	filled := int(float64(barWidth) * progress)
	if filled > barWidth {
		filled = barWidth
	}

	bar := barFillStyle.Render(strings.Repeat("█", filled)) +
		barRestStyle.Render(strings.Repeat("░", barWidth-filled))

	pct := int(progress * 100)
	eta := ""
	if m.EstimatedRemaining > 0 {
		eta = fmt.Sprintf(" ETA %s", formatDuration(m.EstimatedRemaining))
	}
	if m.PerformanceScale != 0 && m.PerformanceScale != 1.0 {
		eta += fmt.Sprintf("  speed x%.2f", m.PerformanceScale)
	}

	fmt.Fprintf(b, "  %s %d%%%s\n", bar, pct, eta)
}

func renderSteps(b *strings.Builder, m Model) {
	b.WriteString(headingStyle.Render("  Pipeline"))
	b.WriteString("\n")

	for _, row := range m.Rows {
		var icon string
		var style styleFunc
		switch row.State {
		case install.StateFailed:
			icon = failMark
			style = sf(errStyle)
		case install.StateSuccess:
			icon = okMark
			style = sf(okStyle)
		case install.StateSkipped:
			icon = warnMark
			style = sf(dimStyle)
		case install.StateRunning:
			icon = currentSpinner(m.SpinnerFrame)
			style = sf(runningStyle)
		default:
			icon = idleMark
			style = sf(dimStyle)
		}

		detail := ""
		switch {
		case row.State == install.StateRunning && row.Percent > 0:
			detail = fmt.Sprintf("%3.0f%%", row.Percent)
		case row.State == install.StateRunning && row.Message != "":
			detail = row.Message
		case row.State == install.StateSkipped:
			detail = "skipped"
		case row.Elapsed > 0:
			detail = formatDuration(row.Elapsed)
		}
		fmt.Fprintf(b, "    %s %-18s %s\n", style(icon), style(row.Name), dimStyle.Render(detail))
	}
}

func renderChecks(b *strings.Builder, m Model) {
	b.WriteString(headingStyle.Render("  Tools"))
	b.WriteString("\n")

	if m.Checks == nil {
		fmt.Fprintf(b, "    %s checking...\n", dimStyle.Render(currentSpinner(m.SpinnerFrame)))
		return
	}

	for _, res := range m.Checks.Results {
		var icon string
		var style styleFunc
		switch {
		case res.Found:
			icon = okMark
			style = sf(okStyle)
		case res.Tool.Required:
			icon = failMark
			style = sf(errStyle)
		default:
			icon = warnMark
			style = sf(warnStyle)
		}
		detail := res.Path
		if !res.Found {
			detail = "not found - " + res.Tool.InstallURL
		} else if res.Version != "" {
			detail += "  " + res.Version
		}
		fmt.Fprintf(b, "    %s %-14s %s\n", style(icon), style(res.Tool.Name), dimStyle.Render(detail))
	}
}

func renderError(b *strings.Builder, m Model) {
	b.WriteString(headingStyle.Render("  Error"))
	b.WriteString("\n")
	fmt.Fprintf(b, "    %s\n", errStyle.Render(m.Err.Error()))

	for _, row := range m.Rows {
		if row.State == install.StateFailed && row.Stderr != "" {
			for _, line := range lastLines(row.Stderr, 5) {
				fmt.Fprintf(b, "    %s\n", dimStyle.Render(line))
			}
		}
	}
}

func renderFooter(b *strings.Builder, m Model) {
	elapsed := formatDuration(time.Since(m.StartTime))
	b.WriteString(footerStyle.Render(fmt.Sprintf("  elapsed %s  •  q to quit", elapsed)))
	b.WriteString("\n")
}

// calculateProgress returns overall pipeline completion in [0, 1].
func calculateProgress(m Model) float64 {
	if len(m.Rows) == 0 {
		return 0
	}
	var done float64
	for _, row := range m.Rows {
		switch row.State {
		case install.StateSuccess, install.StateSkipped:
			done++
		case install.StateRunning:
			done += row.Percent / 100
		}
	}
	return done / float64(len(m.Rows))
}

var spinnerFrames = []string{"[.  ]", "[.. ]", "[...]", "[ ..]", "[  .]", "[   ]"}

func currentSpinner(frame int) string {
	return spinnerFrames[frame%len(spinnerFrames)]
}

// lastLines returns up to n trailing non-empty lines of s.
func lastLines(s string, n int) []string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm%02ds", m, s)
}
