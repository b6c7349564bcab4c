package popup

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Tranthanh98/screenshot-ai/pkg/types"
)

func TestRender(t *testing.T) {
	t.Run("no screenshot", func(t *testing.T) {
		out := Render(Status{Model: types.ModelGemini})
		assert.Contains(t, out, "none")
		assert.Contains(t, out, "gemini")
		assert.Contains(t, out, "no screenshot")
	})

	t.Run("analyzing", func(t *testing.T) {
		out := Render(Status{
			Screenshot: &types.ScreenshotData{
				Area: types.ScreenshotArea{Width: 200, Height: 100},
			},
			IsAnalyzing: true,
			Model:       types.ModelQwenLocal,
		})
		assert.Contains(t, out, "200x100")
		assert.Contains(t, out, "analyzing")
		assert.Contains(t, out, "busy")
	})

	t.Run("ready to ask", func(t *testing.T) {
		out := Render(Status{
			Screenshot: &types.ScreenshotData{},
			AskEnabled: true,
			OverlayOn:  true,
			Model:      types.ModelGemini,
		})
		assert.Contains(t, out, "ready")
		assert.Contains(t, out, "on")
	})
}
