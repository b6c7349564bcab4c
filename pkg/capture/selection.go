// Package capture implements region screenshot capture: an interactive
// drag-selection overlay driven through a Playwright browser session, and
// pure helpers for selection geometry and image cropping.
package capture

import (
	"sync"

	"github.com/Tranthanh98/screenshot-ai/pkg/types"
)

// MinSelectionSize is the minimum width and height, in CSS pixels, a drag
// must cover to count as a selection. Smaller drags are treated as
// accidental clicks and cancelled.
const MinSelectionSize = 10

// Tracker turns raw pointer events into a normalized selection rectangle.
// It is safe for concurrent use; page bindings may fire from any goroutine.
type Tracker struct {
	mu       sync.Mutex
	active   bool
	dragging bool
	anchorX  int
	anchorY  int
	curX     int
	curY     int
}

func NewTracker() *Tracker {
	return &Tracker{}
}

// Activate puts the tracker into selection mode. Activating an already
// active tracker is a no-op.
func (t *Tracker) Activate() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active = true
}

// Active reports whether selection mode is on.
func (t *Tracker) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

// Begin anchors a drag at the given point. Ignored outside selection mode.
func (t *Tracker) Begin(x, y int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.active {
		return
	}
	t.dragging = true
	t.anchorX, t.anchorY = x, y
	t.curX, t.curY = x, y
}

// Move updates the drag endpoint. Ignored unless a drag is in progress.
func (t *Tracker) Move(x, y int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.dragging {
		return
	}
	t.curX, t.curY = x, y
}

// End finishes the drag at the given point and leaves selection mode.
// The returned area is the normalized rectangle between the anchor and the
// endpoint; committed is false when either dimension is below
// MinSelectionSize.
func (t *Tracker) End(x, y int) (area types.ScreenshotArea, committed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.dragging {
		t.active = false
		return types.ScreenshotArea{}, false
	}
	t.dragging = false
	t.active = false
	t.curX, t.curY = x, y

	area = normalize(t.anchorX, t.anchorY, t.curX, t.curY)
	if area.Width <= MinSelectionSize || area.Height <= MinSelectionSize {
		return types.ScreenshotArea{}, false
	}
	return area, true
}

// Cancel abandons any drag and leaves selection mode.
func (t *Tracker) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dragging = false
	t.active = false
}

// Rect returns the current normalized rectangle of an in-progress drag.
func (t *Tracker) Rect() (types.ScreenshotArea, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.dragging {
		return types.ScreenshotArea{}, false
	}
	return normalize(t.anchorX, t.anchorY, t.curX, t.curY), true
}

// normalize builds an origin-plus-size rectangle from two corners in any
// drag direction.
func normalize(x1, y1, x2, y2 int) types.ScreenshotArea {
	return types.ScreenshotArea{
		X:      min(x1, x2),
		Y:      min(y1, y2),
		Width:  abs(x2 - x1),
		Height: abs(y2 - y1),
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
