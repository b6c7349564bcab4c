package sidepanel

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/atotto/clipboard"

	"github.com/Tranthanh98/screenshot-ai/pkg/conversation"
	"github.com/Tranthanh98/screenshot-ai/pkg/coordinator"
	"github.com/Tranthanh98/screenshot-ai/pkg/types"
)

func conversationAnalyzing(v bool) conversation.Updates {
	return conversation.Updates{IsAnalyzing: &v}
}

// minAPIKeyLength is the sanity floor for a stored backend key.
const minAPIKeyLength = 10

// handleCommand dispatches a slash command from the prompt.
func (m *model) handleCommand(input string) {
	parts := strings.SplitN(strings.TrimPrefix(input, "/"), " ", 2)
	cmd := parts[0]
	arg := ""
	if len(parts) > 1 {
		arg = strings.TrimSpace(parts[1])
	}

	switch cmd {
	case "screenshot":
		m.startScreenshot()
	case "analyze":
		m.analyzeCurrentScreenshot()
	case "paste":
		m.pasteImage()
	case "upload":
		m.uploadImage(arg)
	case "drop":
		m.dropScreenshot()
	case "model":
		m.toggleModel()
	case "key":
		m.saveAPIKey(arg)
	case "overlay":
		m.toggleOverlay()
	case "delete":
		m.deleteEntry(arg)
	case "clear":
		m.clearConversation()
	case "quit":
		m.shouldQuit = true
	default:
		m.setStatus(fmt.Sprintf("unknown command: /%s", cmd))
	}
}

func (m *model) startScreenshot() {
	if _, err := m.bus.Send(context.Background(), types.StartScreenshotRequest{}); err != nil {
		m.setStatus(fmt.Sprintf("cannot start selection: %v", err))
		return
	}
	m.setStatus("drag to select a region in the browser, Esc cancels")
}

// analyzeCurrentScreenshot asks the coordinator to analyze the current
// screenshot and marks its chat entry as analyzing.
func (m *model) analyzeCurrentScreenshot() {
	if m.currentScreenshot == nil {
		m.setStatus("no screenshot to analyze, use /screenshot first")
		return
	}

	entryID := m.latestScreenshotEntry()
	if entryID != "" {
		if err := m.conv.Update(context.Background(), entryID, conversationAnalyzing(true)); err != nil {
			m.log.Warnf("failed to mark entry analyzing: %v", err)
		}
		for i := range m.messages {
			if m.messages[i].ID == entryID {
				m.messages[i].IsAnalyzing = true
			}
		}
	}

	_, err := m.bus.Send(context.Background(), types.AnalyzeScreenshotRequest{
		ImageBase64: m.currentScreenshot.ImageBase64,
	})
	if err != nil {
		if errors.Is(err, coordinator.ErrAnalysisInFlight) {
			m.setStatus("an analysis is already running")
		} else {
			m.setStatus(fmt.Sprintf("analysis failed to start: %v", err))
		}
		if entryID != "" {
			m.markEntryFailed(entryID, err)
		}
		return
	}
	m.pendingID = entryID
	m.isAnalyzing = true
	m.setStatus("analyzing screenshot...")
}

// latestScreenshotEntry finds the newest image-bearing entry without an
// analysis outcome.
func (m *model) latestScreenshotEntry() string {
	for i := len(m.messages) - 1; i >= 0; i-- {
		msg := m.messages[i]
		if msg.Screenshot != nil && msg.Analysis == nil && msg.Error == "" {
			return msg.ID
		}
	}
	return ""
}

// pasteImage commits a clipboard image to the coordinator. The clipboard
// carries text, so it accepts a PNG data URI or a path to an image file.
func (m *model) pasteImage() {
	content, err := clipboard.ReadAll()
	if err != nil {
		m.setStatus(fmt.Sprintf("clipboard read failed: %v", err))
		return
	}
	content = strings.TrimSpace(content)
	switch {
	case strings.HasPrefix(content, "data:image/"):
		m.commitImage(content, types.MessagePaste)
	case content != "":
		m.uploadAs(content, types.MessagePaste)
	default:
		m.setStatus("clipboard is empty")
	}
}

func (m *model) uploadImage(path string) {
	if path == "" {
		m.setStatus("usage: /upload <path-to-image>")
		return
	}
	m.uploadAs(path, types.MessagePaste)
}

func (m *model) uploadAs(path string, entryType types.MessageType) {
	data, err := os.ReadFile(path)
	if err != nil {
		m.setStatus(fmt.Sprintf("cannot read image: %v", err))
		return
	}
	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(data)
	m.commitImage(dataURL, entryType)
}

// commitImage routes an externally sourced image through the same save
// path as a captured one.
func (m *model) commitImage(dataURL string, entryType types.MessageType) {
	m.nextEntryType = entryType
	_, err := m.bus.Send(context.Background(), types.SaveScreenshotRequest{
		CroppedImage: dataURL,
	})
	if err != nil {
		m.nextEntryType = types.MessageScreenshot
		m.setStatus(fmt.Sprintf("failed to save image: %v", err))
	}
}

func (m *model) dropScreenshot() {
	if _, err := m.bus.Send(context.Background(), types.ClearScreenshotRequest{}); err != nil {
		m.setStatus(fmt.Sprintf("failed to clear screenshot: %v", err))
	}
}

func (m *model) toggleModel() {
	next := types.ModelGemini
	if m.selectedModel == types.ModelGemini {
		next = types.ModelQwenLocal
	}
	if err := m.settings.SetSelectedModel(next); err != nil {
		m.setStatus(fmt.Sprintf("failed to switch model: %v", err))
		return
	}
	m.selectedModel = next
	m.setStatus(fmt.Sprintf("model switched to %s", next))
}

func (m *model) saveAPIKey(key string) {
	if len(key) <= minAPIKeyLength {
		m.setStatus("API key looks too short, not saved")
		return
	}
	if err := m.settings.SetAPIKey(key); err != nil {
		m.setStatus(fmt.Sprintf("failed to save API key: %v", err))
		return
	}
	m.setStatus("API key saved")
}

func (m *model) toggleOverlay() {
	current, err := m.settings.ShowAnswerOverlay()
	if err != nil {
		m.setStatus(fmt.Sprintf("failed to read overlay setting: %v", err))
		return
	}
	if err := m.settings.SetShowAnswerOverlay(!current); err != nil {
		m.setStatus(fmt.Sprintf("failed to save overlay setting: %v", err))
		return
	}
	m.setStatus(fmt.Sprintf("answer overlay %s", onOff(!current)))
}

func (m *model) deleteEntry(id string) {
	if id == "" {
		m.setStatus("usage: /delete <message-id>")
		return
	}
	if err := m.conv.Delete(context.Background(), id); err != nil {
		m.setStatus(fmt.Sprintf("delete failed: %v", err))
		return
	}
	for i := range m.messages {
		if m.messages[i].ID == id {
			m.messages = append(m.messages[:i], m.messages[i+1:]...)
			break
		}
	}
	m.setStatus("message deleted")
}

func (m *model) clearConversation() {
	if err := m.conv.Clear(context.Background()); err != nil {
		m.setStatus(fmt.Sprintf("clear failed: %v", err))
		return
	}
	m.messages = nil
	m.dropScreenshot()
	m.setStatus("conversation cleared")
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
