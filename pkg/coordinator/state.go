package coordinator

import (
	"sync"

	"github.com/Tranthanh98/screenshot-ai/pkg/types"
)

// State holds the two coordination variables behind one mutex. Nothing
// outside this package mutates them.
type State struct {
	mu                sync.Mutex
	currentScreenshot *types.ScreenshotData
	isAnalyzing       bool
}

// Snapshot is a point-in-time copy of the coordination state.
type Snapshot struct {
	CurrentScreenshot *types.ScreenshotData
	IsAnalyzing       bool
}

func NewState() *State {
	return &State{}
}

// SetScreenshot replaces the current screenshot. A nil value clears it.
func (s *State) SetScreenshot(img *types.ScreenshotData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentScreenshot = img
}

// CurrentScreenshot returns a copy of the current screenshot, or nil.
func (s *State) CurrentScreenshot() *types.ScreenshotData {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentScreenshot == nil {
		return nil
	}
	cp := *s.currentScreenshot
	return &cp
}

// BeginAnalysis atomically claims the analyzing slot. It returns false if
// an analysis is already in flight.
func (s *State) BeginAnalysis() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isAnalyzing {
		return false
	}
	s.isAnalyzing = true
	return true
}

// EndAnalysis releases the analyzing slot.
func (s *State) EndAnalysis() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isAnalyzing = false
}

// Snapshot copies both variables under one lock acquisition.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{IsAnalyzing: s.isAnalyzing}
	if s.currentScreenshot != nil {
		cp := *s.currentScreenshot
		snap.CurrentScreenshot = &cp
	}
	return snap
}
