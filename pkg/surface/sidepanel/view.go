package sidepanel

import (
	"fmt"
	"strings"
	"time"

	"github.com/Tranthanh98/screenshot-ai/pkg/types"
)

func (m *model) View() string {
	if !m.ready {
		return "loading..."
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render("Screenshot AI"))
	b.WriteString("\n\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(inputBoxStyle.Width(m.width - 2).Render(m.textarea.View()))
	b.WriteString("\n")
	b.WriteString(m.statusBar())
	return b.String()
}

func (m *model) statusBar() string {
	parts := []string{fmt.Sprintf("model: %s", m.selectedModel)}
	if m.currentScreenshot != nil {
		area := m.currentScreenshot.Area
		parts = append(parts, fmt.Sprintf("screenshot: %dx%d", area.Width, area.Height))
	}
	if m.isAnalyzing {
		parts = append(parts, m.spinner.View()+"analyzing")
	}
	if m.status != "" {
		parts = append(parts, m.status)
	}
	return statusBarStyle.Render(strings.Join(parts, "  |  "))
}

func (m *model) renderMessages() string {
	if len(m.messages) == 0 {
		return screenshotStyle.Render("No messages yet. /screenshot captures a region, or just type a question.")
	}

	var b strings.Builder
	for i, msg := range m.messages {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.renderMessage(msg))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *model) renderMessage(msg types.ChatMessage) string {
	var b strings.Builder
	ts := time.UnixMilli(msg.Timestamp).Format("15:04:05")

	switch msg.Type {
	case types.MessageText:
		b.WriteString(userStyle.Render(fmt.Sprintf("[%s] You", ts)))
		b.WriteString("\n  " + msg.TextQuestion)
	case types.MessagePaste:
		b.WriteString(screenshotStyle.Render(fmt.Sprintf("[%s] Pasted image (%s)", ts, msg.ID)))
	default:
		area := ""
		if msg.Screenshot != nil {
			area = fmt.Sprintf(" %dx%d", msg.Screenshot.Area.Width, msg.Screenshot.Area.Height)
		}
		b.WriteString(screenshotStyle.Render(fmt.Sprintf("[%s] Screenshot%s (%s)", ts, area, msg.ID)))
	}

	switch {
	case msg.IsAnalyzing:
		b.WriteString("\n  " + analyzingStyle.Render("analyzing..."))
	case msg.Error != "":
		b.WriteString("\n  " + errorStyle.Render("error: "+msg.Error))
	case len(msg.Analysis) > 0:
		for _, result := range msg.Analysis {
			b.WriteString("\n" + renderResult(result))
		}
	}
	return b.String()
}

func renderResult(r types.AnalysisResult) string {
	var b strings.Builder
	if r.Type == types.QuestionMarkdown {
		b.WriteString("  " + answerStyle.Render(r.CorrectAnswer.Text()))
		return b.String()
	}

	if r.Question != "" {
		b.WriteString("  " + optionStyle.Render(r.Question) + "\n")
	}
	for _, opt := range r.Options {
		marker := "  "
		if answerMatches(r.CorrectAnswer, opt) {
			marker = answerLabelStyle.Render("> ")
		}
		b.WriteString("   " + marker + optionStyle.Render(opt) + "\n")
	}
	b.WriteString("  " + answerLabelStyle.Render("Answer: ") + answerStyle.Render(r.CorrectAnswer.Text()))
	return b.String()
}

func answerMatches(a types.Answer, option string) bool {
	for _, v := range a.Values {
		if v == option {
			return true
		}
	}
	return false
}
