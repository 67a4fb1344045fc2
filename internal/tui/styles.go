package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#1F6FB2")).
			Padding(0, 1)

	stepStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	activeStep  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#1F6FB2"))
	errorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#E5484D"))
	okStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#30A46C"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	totalStyle  = lipgloss.NewStyle().Bold(true)
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("238")).Padding(0, 1)
	appStyle    = lipgloss.NewStyle().Margin(1, 2)
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#1F6FB2"))
)
