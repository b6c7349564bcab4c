package sidepanel

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Tranthanh98/screenshot-ai/pkg/bus"
	"github.com/Tranthanh98/screenshot-ai/pkg/conversation"
	"github.com/Tranthanh98/screenshot-ai/pkg/logging"
	"github.com/Tranthanh98/screenshot-ai/pkg/settings"
	"github.com/Tranthanh98/screenshot-ai/pkg/types"
)

// Surface runs the sidepanel chat as a Bubble Tea program, subscribed to
// coordinator broadcasts for the lifetime of the program.
type Surface struct {
	bus      *bus.Bus
	conv     *conversation.Store
	settings *settings.Store
	log      *logging.Logger
	program  *tea.Program
}

func New(b *bus.Bus, conv *conversation.Store, store *settings.Store, logger *logging.Logger) *Surface {
	return &Surface{
		bus:      b,
		conv:     conv,
		settings: store,
		log:      logger,
	}
}

// Run starts the surface and blocks until the user exits.
func (s *Surface) Run(ctx context.Context) error {
	m := initialModel(s.bus, s.conv, s.settings, s.log)

	if model, err := s.settings.SelectedModel(); err == nil {
		m.selectedModel = model
	}

	s.program = tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	subID, events := s.bus.Subscribe(bus.DefaultSubscriberBuffer)
	defer s.bus.Unsubscribe(subID)

	go func() {
		for event := range events {
			s.program.Send(event)
		}
	}()

	// Seed the UI with persisted history and the coordinator's current
	// screenshot, so a reopened surface reflects reality.
	go func() {
		history, err := s.conv.GetAll(ctx)
		if err != nil {
			s.log.Errorf("failed to load conversation history: %v", err)
		} else {
			s.program.Send(conversationLoadedMsg{messages: history})
		}

		resp, err := s.bus.Send(ctx, types.GetScreenshotRequest{})
		if err != nil {
			s.log.Warnf("screenshot state query failed: %v", err)
			return
		}
		if state, ok := resp.(types.GetScreenshotResponse); ok {
			s.program.Send(screenshotStateMsg{screenshot: state.Screenshot})
		}
	}()

	if _, err := s.program.Run(); err != nil {
		return fmt.Errorf("sidepanel: run program: %w", err)
	}
	return nil
}
