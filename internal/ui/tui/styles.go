package tui

import "github.com/charmbracelet/lipgloss"

// Status icons line up in a fixed-width column so step rows stay aligned
// regardless of terminal font.
const (
	okMark   = "[OK]"
	failMark = "[!!]"
	idleMark = "[  ]"
	warnMark = "[??]"
)

var (
	paletteOK   = lipgloss.Color("#16a34a")
	paletteErr  = lipgloss.Color("#dc2626")
	paletteWarn = lipgloss.Color("#d97706")
	paletteHead = lipgloss.Color("#0891b2")
	paletteDim  = lipgloss.Color("#64748b")
	paletteFg   = lipgloss.Color("#e5e7eb")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(paletteFg)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(paletteDim)

	headingStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(paletteHead).
			MarginTop(1)

	okStyle = lipgloss.NewStyle().
		Foreground(paletteOK)

	errStyle = lipgloss.NewStyle().
			Foreground(paletteErr)

	warnStyle = lipgloss.NewStyle().
			Foreground(paletteWarn)

	dimStyle = lipgloss.NewStyle().
			Foreground(paletteDim)

	runningStyle = lipgloss.NewStyle().
			Foreground(paletteFg).
			Bold(true)

	barFillStyle = lipgloss.NewStyle().Foreground(paletteOK)
	barRestStyle = lipgloss.NewStyle().Foreground(paletteDim)

	footerStyle = lipgloss.NewStyle().
			Foreground(paletteDim).
			MarginTop(1)
)
