package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorRed    = lipgloss.Color("#EE0000")
	colorGreen  = lipgloss.Color("#3E8635")
	colorAmber  = lipgloss.Color("#F0AB00")
	colorBlue   = lipgloss.Color("#73BCF7")
	colorFg     = lipgloss.Color("#F0F0F0")
	colorMuted  = lipgloss.Color("#8A8D90")
	colorBorder = lipgloss.Color("#4F5255")
	colorDark   = lipgloss.Color("#151515")
)

var (
	brandStyle   = lipgloss.NewStyle().Foreground(colorRed).Bold(true).Padding(0, 1)
	projectStyle = lipgloss.NewStyle().Foreground(colorFg).Bold(true)
	serverStyle  = lipgloss.NewStyle().Foreground(colorMuted).Padding(0, 1)

	tabStyle       = lipgloss.NewStyle().Foreground(colorMuted).Padding(0, 1)
	activeTabStyle = tabStyle.Foreground(colorDark).Background(colorRed).Bold(true)

	viewportStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)

	spinnerStyle = lipgloss.NewStyle().Foreground(colorRed)

	okStyle   = lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
	warnStyle = lipgloss.NewStyle().Foreground(colorAmber).Bold(true)
	failStyle = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
	noteStyle = lipgloss.NewStyle().Foreground(colorBlue)
	dimStyle  = lipgloss.NewStyle().Foreground(colorMuted)
)

// phaseStyles maps pod, deployment and project phases to a colour
var phaseStyles = map[string]lipgloss.Style{
	"Running":   okStyle,
	"Active":    okStyle,
	"Complete":  okStyle,
	"Succeeded": okStyle,
	"New":       warnStyle,
	"Pending":   warnStyle,
	"Failed":    failStyle,
	"Cancelled": failStyle,
	"Unknown":   failStyle,
}

// RenderTitle renders the header line: brand, project and server
func RenderTitle(project, server string) string {
	return lipgloss.JoinHorizontal(lipgloss.Left,
		brandStyle.Render("shift"),
		projectStyle.Render(project),
		serverStyle.Render("@ "+server),
	)
}

func RenderSuccess(msg string) string { return okStyle.Render("✓ " + msg) }

func RenderError(msg string) string { return failStyle.Render("✗ " + msg) }

func RenderInfo(msg string) string { return noteStyle.Render(msg) }

func RenderHelp(text string) string { return dimStyle.Render(text) }

// RenderStatus renders a coloured dot for a phase
func RenderStatus(phase string) string {
	style, ok := phaseStyles[phase]
	if !ok {
		style = dimStyle
	}
	return style.Render("●")
}

// GetMaxHeight returns the list height for a screen height, leaving room
// for the header, the kind tabs and the help line
func GetMaxHeight(screenHeight int) int {
	return max(screenHeight-6, 10)
}
