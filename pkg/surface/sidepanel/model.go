// Package sidepanel is the chat surface: a scrolling conversation of
// screenshots, questions and analysis results with a prompt for new
// questions and slash commands for capture control.
//
// The code is split across files in the usual Bubble Tea shape:
//   - model.go: model state and construction
//   - update.go: the Update loop and bus notification handling
//   - commands.go: slash command dispatch
//   - view.go: rendering
//   - styles.go: colors and styles
//   - surface.go: program lifecycle and bus subscription
package sidepanel

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Tranthanh98/screenshot-ai/pkg/bus"
	"github.com/Tranthanh98/screenshot-ai/pkg/conversation"
	"github.com/Tranthanh98/screenshot-ai/pkg/logging"
	"github.com/Tranthanh98/screenshot-ai/pkg/settings"
	"github.com/Tranthanh98/screenshot-ai/pkg/types"
)

type model struct {
	// Bubble Tea components
	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model

	// Collaborators
	bus      *bus.Bus
	conv     *conversation.Store
	settings *settings.Store
	log      *logging.Logger

	// Conversation state
	messages          []types.ChatMessage
	currentScreenshot *types.ScreenshotData
	isAnalyzing       bool
	// pendingID is the chat entry waiting for an analysis outcome when the
	// broadcast carries no message identifier.
	pendingID string
	// nextEntryType tags the chat entry created by the next screenshot
	// broadcast, so pasted and uploaded images are distinguishable from
	// captured ones.
	nextEntryType types.MessageType

	selectedModel types.Model
	status        string

	// Window dimensions
	width  int
	height int
	ready  bool

	shouldQuit bool
}

func initialModel(b *bus.Bus, conv *conversation.Store, store *settings.Store, logger *logging.Logger) *model {
	ta := textarea.New()
	ta.Placeholder = "Ask a question, or type / for commands"
	ta.Prompt = "> "
	ta.SetHeight(1)
	ta.ShowLineNumbers = false
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = analyzingStyle

	return &model{
		textarea:      ta,
		spinner:       sp,
		bus:           b,
		conv:          conv,
		settings:      store,
		log:           logger,
		nextEntryType: types.MessageScreenshot,
		selectedModel: types.ModelGemini,
	}
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick)
}

func newViewport(width, height int) viewport.Model {
	return viewport.New(width, height)
}
