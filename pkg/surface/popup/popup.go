// Package popup renders the at-a-glance status view: current screenshot,
// analysis activity, selected model and whether asking is possible.
package popup

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/Tranthanh98/screenshot-ai/pkg/types"
)

// Status is everything the popup shows.
type Status struct {
	Screenshot  *types.ScreenshotData
	IsAnalyzing bool
	AskEnabled  bool
	Model       types.Model
	OverlayOn   bool
}

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7AA2F7")).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F9FAFB"))

	activeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A8E6CF")).
			Bold(true)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7AA2F7")).
			Padding(1, 2)
)

// Render formats the status as a bordered panel.
func Render(s Status) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Screenshot AI"))
	b.WriteString("\n\n")

	if s.Screenshot != nil {
		area := s.Screenshot.Area
		taken := time.UnixMilli(s.Screenshot.Timestamp).Format("15:04:05")
		b.WriteString(row("screenshot", fmt.Sprintf("%dx%d taken %s", area.Width, area.Height, taken)))
	} else {
		b.WriteString(row("screenshot", "none"))
	}

	state := "ready"
	if s.IsAnalyzing {
		state = activeStyle.Render("analyzing")
	}
	b.WriteString(row("state", state))
	b.WriteString(row("model", string(s.Model)))
	b.WriteString(row("answer overlay", onOff(s.OverlayOn)))

	ask := "no screenshot"
	if s.IsAnalyzing {
		ask = "busy"
	} else if s.AskEnabled {
		ask = activeStyle.Render("ready")
	}
	b.WriteString(row("ask AI", ask))

	return boxStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func row(label, value string) string {
	return labelStyle.Render(fmt.Sprintf("%-15s", label)) + valueStyle.Render(value) + "\n"
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
