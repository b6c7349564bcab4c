package sidepanel

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Tranthanh98/screenshot-ai/pkg/conversation"
	"github.com/Tranthanh98/screenshot-ai/pkg/types"
)

// conversationLoadedMsg delivers the persisted history at startup.
type conversationLoadedMsg struct {
	messages []types.ChatMessage
}

// screenshotStateMsg delivers the coordinator's current screenshot at
// startup reconciliation.
type screenshotStateMsg struct {
	screenshot *types.ScreenshotData
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.shouldQuit {
		return m, tea.Quit
	}

	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
	)

	var spinnerCmd tea.Cmd
	m.spinner, spinnerCmd = m.spinner.Update(msg)

	m.textarea, tiCmd = m.textarea.Update(msg)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recalculateLayout()
		if !m.ready {
			m.ready = true
		}
		m.refreshViewport()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			m.shouldQuit = true
			return m, tea.Quit
		case tea.KeyEnter:
			value := strings.TrimSpace(m.textarea.Value())
			m.textarea.Reset()
			if value == "" {
				break
			}
			if strings.HasPrefix(value, "/") {
				m.handleCommand(value)
			} else {
				m.askTextQuestion(value)
			}
			m.refreshViewport()
		}

	case conversationLoadedMsg:
		m.mergeHistory(msg.messages)
		m.refreshViewport()

	case screenshotStateMsg:
		m.currentScreenshot = msg.screenshot
		m.refreshViewport()

	case types.Notification:
		m.handleNotification(msg)
		m.refreshViewport()
	}

	m.viewport, vpCmd = m.viewport.Update(msg)
	return m, tea.Batch(tiCmd, vpCmd, spinnerCmd)
}

// mergeHistory folds the persisted history into the chat. Broadcasts can
// arrive before the history load finishes, so entries already appended in
// memory are kept rather than replaced. A crash mid-analysis can leave a
// loaded entry stuck analyzing; the clear is written back so it does not
// resurface on the next start.
func (m *model) mergeHistory(loaded []types.ChatMessage) {
	seen := make(map[string]struct{}, len(loaded))
	analyzing := false
	for i := range loaded {
		seen[loaded[i].ID] = struct{}{}
		if loaded[i].IsAnalyzing {
			loaded[i].IsAnalyzing = false
			if err := m.conv.Update(context.Background(), loaded[i].ID, conversation.Updates{
				IsAnalyzing: &analyzing,
			}); err != nil {
				m.log.Errorf("failed to clear stale analyzing flag: %v", err)
			}
		}
	}
	for _, entry := range m.messages {
		if _, ok := seen[entry.ID]; !ok {
			loaded = append(loaded, entry)
		}
	}
	m.messages = loaded
}

// handleNotification applies one coordinator broadcast to the chat.
func (m *model) handleNotification(n types.Notification) {
	switch n := n.(type) {
	case types.ScreenshotSaved:
		shot := n.Screenshot
		m.currentScreenshot = &shot
		entryType := m.nextEntryType
		m.nextEntryType = types.MessageScreenshot

		id, ts := conversation.NewMessageID()
		entry := types.ChatMessage{
			ID:         id,
			Timestamp:  ts,
			Type:       entryType,
			Screenshot: &shot,
		}
		if err := m.conv.Append(context.Background(), entry); err != nil {
			m.setStatus(fmt.Sprintf("failed to save chat entry: %v", err))
			return
		}
		m.messages = append(m.messages, entry)
		m.setStatus("screenshot captured")

	case types.ScreenshotCleared:
		m.currentScreenshot = nil
		m.setStatus("screenshot cleared")

	case types.AnalysisComplete:
		m.isAnalyzing = false
		id := m.resolvePending(n.MessageID)
		if id == "" {
			return
		}
		analyzing := false
		if err := m.conv.Update(context.Background(), id, conversation.Updates{
			Analysis:    n.Result,
			IsAnalyzing: &analyzing,
		}); err != nil {
			m.setStatus(fmt.Sprintf("failed to record analysis: %v", err))
		}
		for i := range m.messages {
			if m.messages[i].ID == id {
				m.messages[i].Analysis = n.Result
				m.messages[i].IsAnalyzing = false
			}
		}
		m.setStatus("analysis complete")

	case types.AnalysisError:
		m.isAnalyzing = false
		id := m.resolvePending(n.MessageID)
		if id == "" {
			m.setStatus(fmt.Sprintf("analysis failed: %s", n.Message))
			return
		}
		analyzing := false
		errText := n.Message
		if err := m.conv.Update(context.Background(), id, conversation.Updates{
			Error:       &errText,
			IsAnalyzing: &analyzing,
		}); err != nil {
			m.setStatus(fmt.Sprintf("failed to record error: %v", err))
		}
		for i := range m.messages {
			if m.messages[i].ID == id {
				m.messages[i].Error = n.Message
				m.messages[i].IsAnalyzing = false
			}
		}
		m.setStatus("analysis failed")
	}
}

// resolvePending maps an analysis outcome to its chat entry. Outcomes for
// text questions carry the entry identifier; screenshot analyses fall back
// to the entry that started the analysis, then to the newest entry still
// marked analyzing.
func (m *model) resolvePending(messageID string) string {
	if messageID != "" {
		return messageID
	}
	if m.pendingID != "" {
		id := m.pendingID
		m.pendingID = ""
		return id
	}
	for i := len(m.messages) - 1; i >= 0; i-- {
		if m.messages[i].IsAnalyzing {
			return m.messages[i].ID
		}
	}
	return ""
}

// askTextQuestion appends a text entry and requests its analysis.
func (m *model) askTextQuestion(question string) {
	id, ts := conversation.NewMessageID()
	entry := types.ChatMessage{
		ID:           id,
		Timestamp:    ts,
		Type:         types.MessageText,
		TextQuestion: question,
		IsAnalyzing:  true,
	}
	if err := m.conv.Append(context.Background(), entry); err != nil {
		m.setStatus(fmt.Sprintf("failed to save question: %v", err))
		return
	}
	m.messages = append(m.messages, entry)

	if _, err := m.bus.Send(context.Background(), types.AnalyzeTextQuestionRequest{
		Question:  question,
		MessageID: id,
	}); err != nil {
		m.markEntryFailed(id, err)
		return
	}
	m.isAnalyzing = true
	m.setStatus("analyzing question...")
}

func (m *model) markEntryFailed(id string, cause error) {
	analyzing := false
	errText := cause.Error()
	if err := m.conv.Update(context.Background(), id, conversation.Updates{
		Error:       &errText,
		IsAnalyzing: &analyzing,
	}); err != nil {
		m.log.Errorf("failed to record entry error: %v", err)
	}
	for i := range m.messages {
		if m.messages[i].ID == id {
			m.messages[i].Error = errText
			m.messages[i].IsAnalyzing = false
		}
	}
	m.setStatus(fmt.Sprintf("analysis failed: %v", cause))
}

func (m *model) setStatus(s string) {
	m.status = s
}

func (m *model) recalculateLayout() {
	inputHeight := 3
	statusHeight := 1
	headerHeight := 2
	vpHeight := m.height - inputHeight - statusHeight - headerHeight
	if vpHeight < 1 {
		vpHeight = 1
	}
	if !m.ready {
		m.viewport = newViewport(m.width, vpHeight)
	} else {
		m.viewport.Width = m.width
		m.viewport.Height = vpHeight
	}
	m.textarea.SetWidth(m.width - 4)
}

func (m *model) refreshViewport() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderMessages())
	m.viewport.GotoBottom()
}
