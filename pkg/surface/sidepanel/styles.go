package sidepanel

import "github.com/charmbracelet/lipgloss"

// Color palette. Single source of truth for sidepanel colors.
var (
	skyBlue     = lipgloss.Color("#7AA2F7") // primary accent
	mintGreen   = lipgloss.Color("#A8E6CF") // success / answers
	softRed     = lipgloss.Color("#F7768E") // errors
	mutedGray   = lipgloss.Color("#6B7280") // secondary text
	brightWhite = lipgloss.Color("#F9FAFB") // primary text
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(skyBlue).
			Bold(true)

	userStyle = lipgloss.NewStyle().
			Foreground(skyBlue).
			Bold(true)

	screenshotStyle = lipgloss.NewStyle().
			Foreground(mutedGray).
			Italic(true)

	answerStyle = lipgloss.NewStyle().
			Foreground(mintGreen)

	answerLabelStyle = lipgloss.NewStyle().
				Foreground(mintGreen).
				Bold(true)

	optionStyle = lipgloss.NewStyle().
			Foreground(brightWhite)

	errorStyle = lipgloss.NewStyle().
			Foreground(softRed)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(mutedGray).
			Padding(0, 1)

	inputBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(skyBlue).
			Padding(0, 1)

	analyzingStyle = lipgloss.NewStyle().
			Foreground(mutedGray).
			Italic(true)
)
