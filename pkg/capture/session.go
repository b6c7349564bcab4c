package capture

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/playwright-community/playwright-go"

	"github.com/Tranthanh98/screenshot-ai/pkg/bus"
	"github.com/Tranthanh98/screenshot-ai/pkg/logging"
	"github.com/Tranthanh98/screenshot-ai/pkg/types"
)

const (
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720
)

// SessionOptions configures a capture session.
type SessionOptions struct {
	Headless       bool
	ViewportWidth  int
	ViewportHeight int
	// AllowedURLs restricts navigation; empty allows all.
	AllowedURLs []string
	// StartURL is opened after launch when non-empty.
	StartURL string
}

// Session owns one Playwright browser page and drives region selection on
// it. Pointer events from the injected overlay are forwarded through page
// bindings into the Tracker; a committed selection is sent to the
// coordinator as a capture request.
type Session struct {
	mu          sync.Mutex
	pw          *playwright.Playwright
	browser     playwright.Browser
	context     playwright.BrowserContext
	page        playwright.Page
	initialized bool

	tracker   *Tracker
	allowlist *Allowlist
	bus       *bus.Bus
	log       *logging.Logger

	viewportWidth  int
	viewportHeight int
	startURL       string
	headless       bool
}

// NewSession creates a session. Start must be called before use.
func NewSession(b *bus.Bus, logger *logging.Logger, opts SessionOptions) (*Session, error) {
	if b == nil {
		return nil, fmt.Errorf("capture: bus is required")
	}
	allowlist, err := NewAllowlist(opts.AllowedURLs)
	if err != nil {
		return nil, err
	}
	if opts.ViewportWidth <= 0 {
		opts.ViewportWidth = DefaultViewportWidth
	}
	if opts.ViewportHeight <= 0 {
		opts.ViewportHeight = DefaultViewportHeight
	}
	return &Session{
		tracker:        NewTracker(),
		allowlist:      allowlist,
		bus:            b,
		log:            logger,
		viewportWidth:  opts.ViewportWidth,
		viewportHeight: opts.ViewportHeight,
		startURL:       opts.StartURL,
		headless:       opts.Headless,
	}, nil
}

// Start installs and launches Playwright, opens the page, and registers
// the selection bindings.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}

	// Discard installer output so it does not interfere with the TUI.
	runOpts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}
	if err := playwright.Install(runOpts); err != nil {
		return fmt.Errorf("capture: install playwright: %w", err)
	}
	pw, err := playwright.Run(runOpts)
	if err != nil {
		return fmt.Errorf("capture: start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: &s.headless,
	})
	if err != nil {
		pw.Stop()
		return fmt.Errorf("capture: launch browser: %w", err)
	}

	browserCtx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  s.viewportWidth,
			Height: s.viewportHeight,
		},
	})
	if err != nil {
		browser.Close()
		pw.Stop()
		return fmt.Errorf("capture: create context: %w", err)
	}

	page, err := browserCtx.NewPage()
	if err != nil {
		browserCtx.Close()
		browser.Close()
		pw.Stop()
		return fmt.Errorf("capture: create page: %w", err)
	}

	if err := s.registerBindings(page); err != nil {
		page.Close()
		browserCtx.Close()
		browser.Close()
		pw.Stop()
		return err
	}

	s.pw = pw
	s.browser = browser
	s.context = browserCtx
	s.page = page
	s.initialized = true

	if s.startURL != "" {
		return s.navigateLocked(s.startURL)
	}
	return nil
}

func (s *Session) registerBindings(page playwright.Page) error {
	bindings := map[string]playwright.ExposedFunction{
		"__captureMouseDown": func(args ...interface{}) interface{} {
			s.tracker.Begin(argInt(args, 0), argInt(args, 1))
			return nil
		},
		"__captureMouseMove": func(args ...interface{}) interface{} {
			s.tracker.Move(argInt(args, 0), argInt(args, 1))
			return nil
		},
		"__captureMouseUp": func(args ...interface{}) interface{} {
			s.endSelection(argInt(args, 0), argInt(args, 1))
			return nil
		},
		"__captureCancel": func(args ...interface{}) interface{} {
			s.tracker.Cancel()
			s.logf("selection cancelled")
			return nil
		},
	}
	for name, fn := range bindings {
		if err := page.ExposeFunction(name, fn); err != nil {
			return fmt.Errorf("capture: expose %s: %w", name, err)
		}
	}
	return nil
}

// endSelection resolves a finished drag. The overlay has already removed
// itself; a committed area becomes a capture request on the bus, a
// too-small drag is dropped.
func (s *Session) endSelection(x, y int) {
	area, committed := s.tracker.End(x, y)
	if !committed {
		s.logf("selection below minimum size, ignoring")
		return
	}
	s.logf("selection committed: %dx%d at (%d,%d)", area.Width, area.Height, area.X, area.Y)
	go func() {
		if _, err := s.bus.Send(context.Background(), types.CaptureScreenshotRequest{Area: area}); err != nil {
			s.logf("capture request failed: %v", err)
		}
	}()
}

// Navigate opens a URL in the session page, subject to the allowlist.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return fmt.Errorf("capture: session not started")
	}
	return s.navigateLocked(url)
}

func (s *Session) navigateLocked(url string) error {
	if !s.allowlist.Allows(url) {
		return fmt.Errorf("capture: URL %q not in allowlist", url)
	}
	if _, err := s.page.Goto(url, playwright.PageGotoOptions{}); err != nil {
		return fmt.Errorf("capture: navigate to %s: %w", url, err)
	}
	return nil
}

// StartSelection injects the drag overlay into the current page. Calling
// it while a selection is already active is a no-op.
func (s *Session) StartSelection(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return fmt.Errorf("capture: session not started")
	}
	if s.tracker.Active() {
		return nil
	}
	// The page may have navigated itself since the last Goto.
	if url := s.page.URL(); !s.allowlist.Allows(url) {
		return fmt.Errorf("capture: URL %q not in allowlist", url)
	}
	s.tracker.Activate()
	if _, err := s.page.Evaluate(selectionOverlayScript); err != nil {
		s.tracker.Cancel()
		return fmt.Errorf("capture: inject selection overlay: %w", err)
	}
	return nil
}

// Snapshot captures the visible page as a PNG data URI. The overlay is
// removed by the page before mouseup is forwarded, so it never appears in
// the image.
func (s *Session) Snapshot(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return "", fmt.Errorf("capture: session not started")
	}
	data, err := s.page.Screenshot(playwright.PageScreenshotOptions{
		Type: playwright.ScreenshotTypePng,
	})
	if err != nil {
		return "", fmt.Errorf("capture: take screenshot: %w", err)
	}
	return EncodePNGDataURI(data), nil
}

// Crop extracts the selected area from a full snapshot at the session's
// viewport scale.
func (s *Session) Crop(ctx context.Context, dataURL string, area types.ScreenshotArea) (string, error) {
	return CropToArea(dataURL, area, s.viewportWidth, s.viewportHeight)
}

// CurrentURL returns the page URL, or empty before Start.
func (s *Session) CurrentURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return ""
	}
	return s.page.URL()
}

// Close shuts down the page, browser and Playwright runtime.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return nil
	}
	s.tracker.Cancel()
	_ = s.page.Close()
	_ = s.context.Close()
	_ = s.browser.Close()
	s.initialized = false
	if err := s.pw.Stop(); err != nil {
		return fmt.Errorf("capture: stop playwright: %w", err)
	}
	return nil
}

func (s *Session) logf(format string, v ...interface{}) {
	if s.log != nil {
		s.log.Infof(format, v...)
	}
}

// argInt reads one numeric binding argument. Playwright delivers page
// numbers as float64 or json.Number depending on transport.
func argInt(args []interface{}, i int) int {
	if i >= len(args) {
		return 0
	}
	switch v := args[i].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case json.Number:
		n, _ := v.Int64()
		return int(n)
	default:
		return 0
	}
}
