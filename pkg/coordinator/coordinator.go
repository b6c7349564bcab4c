// Package coordinator owns the extension-wide analysis state: the current
// screenshot and the analyzing flag. All mutation funnels through the
// coordinator's request handler, which enforces at most one in-flight
// analysis and broadcasts every state change to the subscribed surfaces.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Tranthanh98/screenshot-ai/pkg/analyzer"
	"github.com/Tranthanh98/screenshot-ai/pkg/bus"
	"github.com/Tranthanh98/screenshot-ai/pkg/logging"
	"github.com/Tranthanh98/screenshot-ai/pkg/settings"
	"github.com/Tranthanh98/screenshot-ai/pkg/types"
)

// ErrAnalysisInFlight is returned when an analysis is requested while one
// is already running. Duplicate requests are rejected, not queued.
var ErrAnalysisInFlight = errors.New("coordinator: analysis already in progress")

// ErrNoBackend is returned when the selected model has no configured client.
var ErrNoBackend = errors.New("coordinator: no client configured for selected model")

// CaptureDriver is the capture side of the wire protocol: the coordinator
// starts selection, requests snapshots and delegates cropping through it.
type CaptureDriver interface {
	// StartSelection begins interactive region selection. Re-entry while a
	// selection is active is a no-op.
	StartSelection(ctx context.Context) error

	// Snapshot captures the full visible page as a PNG data URI.
	Snapshot(ctx context.Context) (string, error)

	// Crop extracts the selected area from a full snapshot, returning a PNG
	// data URI of exactly the scaled area.
	Crop(ctx context.Context, dataURL string, area types.ScreenshotArea) (string, error)
}

// Config assembles a Coordinator's collaborators.
type Config struct {
	Bus      *bus.Bus
	Settings *settings.Store
	// Clients maps each selectable model to its backend client.
	Clients map[types.Model]analyzer.Client
	// Capture may be nil when no browser is attached (text-only mode).
	Capture CaptureDriver
	Logger  *logging.Logger
}

// Coordinator serializes all coordination-state mutation.
type Coordinator struct {
	state    *State
	bus      *bus.Bus
	settings *settings.Store
	clients  map[types.Model]analyzer.Client
	capture  CaptureDriver
	log      *logging.Logger

	now func() time.Time
}

// New creates a coordinator, reconciles persisted state, and registers its
// request handler on the bus.
//
// currentScreenshot is volatile and always starts absent. A persisted
// isAnalyzing=true means a previous process crashed mid-analysis; no
// analysis goroutine can survive a restart, so the flag is reset to false
// and logged rather than left to permanently disable the ask affordance.
func New(cfg Config) (*Coordinator, error) {
	if cfg.Bus == nil {
		return nil, errors.New("coordinator: bus is required")
	}
	if cfg.Settings == nil {
		return nil, errors.New("coordinator: settings store is required")
	}
	if cfg.Logger == nil {
		logger, err := logging.NewLogger("coordinator")
		if err != nil {
			// Fallback logger is still usable.
			logger.Warnf("file logging unavailable: %v", err)
		}
		cfg.Logger = logger
	}

	c := &Coordinator{
		state:    NewState(),
		bus:      cfg.Bus,
		settings: cfg.Settings,
		clients:  cfg.Clients,
		capture:  cfg.Capture,
		log:      cfg.Logger,
		now:      time.Now,
	}

	stale, err := cfg.Settings.IsAnalyzing()
	if err != nil {
		return nil, fmt.Errorf("coordinator: restore analyzing state: %w", err)
	}
	if stale {
		c.log.Warnf("stale isAnalyzing=true found on startup, resetting")
		if err := cfg.Settings.SetIsAnalyzing(false); err != nil {
			return nil, fmt.Errorf("coordinator: reset analyzing state: %w", err)
		}
	}

	cfg.Bus.SetHandler(c.HandleRequest)
	c.updateAffordances()
	return c, nil
}

// HandleRequest dispatches one bus request. The switch is exhaustive over
// the request union.
func (c *Coordinator) HandleRequest(ctx context.Context, req types.Request) (interface{}, error) {
	switch r := req.(type) {
	case types.StartScreenshotRequest:
		return nil, c.startScreenshot(ctx)

	case types.CaptureScreenshotRequest:
		return nil, c.captureScreenshot(ctx, r.Area)

	case types.CropScreenshotRequest:
		return nil, c.cropScreenshot(ctx, r.DataURL, r.Area)

	case types.SaveScreenshotRequest:
		c.ReceiveCapturedImage(types.ScreenshotData{
			ImageBase64: r.CroppedImage,
			Timestamp:   c.now().UnixMilli(),
			Area:        r.Area,
		})
		return nil, nil

	case types.GetScreenshotRequest:
		return types.GetScreenshotResponse{Screenshot: c.state.CurrentScreenshot()}, nil

	case types.ClearScreenshotRequest:
		c.ClearScreenshot()
		return types.ClearScreenshotResponse{Success: true}, nil

	case types.AnalyzeScreenshotRequest:
		return nil, c.RequestImageAnalysis(r.ImageBase64)

	case types.AnalyzeTextQuestionRequest:
		return nil, c.RequestTextAnalysis(r.Question, r.MessageID)

	default:
		return nil, fmt.Errorf("coordinator: unhandled request %T", req)
	}
}

func (c *Coordinator) startScreenshot(ctx context.Context) error {
	if c.capture == nil {
		return errors.New("coordinator: no capture driver attached")
	}
	return c.capture.StartSelection(ctx)
}

// captureScreenshot services a committed selection: snapshot the page, then
// hand the image back for cropping.
func (c *Coordinator) captureScreenshot(ctx context.Context, area types.ScreenshotArea) error {
	if c.capture == nil {
		return errors.New("coordinator: no capture driver attached")
	}
	dataURL, err := c.capture.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("coordinator: snapshot: %w", err)
	}
	return c.cropScreenshot(ctx, dataURL, area)
}

func (c *Coordinator) cropScreenshot(ctx context.Context, dataURL string, area types.ScreenshotArea) error {
	if c.capture == nil {
		return errors.New("coordinator: no capture driver attached")
	}
	cropped, err := c.capture.Crop(ctx, dataURL, area)
	if err != nil {
		return fmt.Errorf("coordinator: crop: %w", err)
	}
	c.ReceiveCapturedImage(types.ScreenshotData{
		ImageBase64: cropped,
		Timestamp:   c.now().UnixMilli(),
		Area:        area,
	})
	return nil
}

// ReceiveCapturedImage commits a new current screenshot. Last write wins:
// the previous screenshot and any stale analysis association are replaced
// unconditionally, in any state.
func (c *Coordinator) ReceiveCapturedImage(img types.ScreenshotData) {
	c.state.SetScreenshot(&img)
	c.log.Infof("screenshot committed: %dx%d at (%d,%d)",
		img.Area.Width, img.Area.Height, img.Area.X, img.Area.Y)
	c.updateAffordances()
	c.bus.Publish(types.ScreenshotSaved{Screenshot: img})
}

// ClearScreenshot discards the current screenshot.
func (c *Coordinator) ClearScreenshot() {
	c.state.SetScreenshot(nil)
	c.updateAffordances()
	c.bus.Publish(types.ScreenshotCleared{})
}

// RequestImageAnalysis starts an image analysis. It fails with
// ErrAnalysisInFlight while another analysis is running.
func (c *Coordinator) RequestImageAnalysis(imageBase64 string) error {
	return c.requestAnalysis("", func(ctx context.Context, client analyzer.Client) (types.AnalysisResults, error) {
		return client.AnalyzeImage(ctx, imageBase64)
	})
}

// RequestTextAnalysis starts a text analysis for the given chat entry.
func (c *Coordinator) RequestTextAnalysis(question, messageID string) error {
	return c.requestAnalysis(messageID, func(ctx context.Context, client analyzer.Client) (types.AnalysisResults, error) {
		return client.AnalyzeText(ctx, question)
	})
}

func (c *Coordinator) requestAnalysis(messageID string, run func(context.Context, analyzer.Client) (types.AnalysisResults, error)) error {
	if !c.state.BeginAnalysis() {
		c.log.Warnf("analysis requested while one is in flight, ignoring")
		return ErrAnalysisInFlight
	}

	client, err := c.resolveClient()
	if err != nil {
		c.finishAnalysis()
		return err
	}

	// Persist the flag before the async call starts so a crash mid-analysis
	// leaves a recoverable marker instead of silently resetting.
	if err := c.settings.SetIsAnalyzing(true); err != nil {
		c.finishAnalysis()
		return fmt.Errorf("coordinator: persist analyzing flag: %w", err)
	}

	c.updateAffordances()
	c.log.Infof("analysis started via %s", client.Name())

	go c.runAnalysis(client, messageID, run)
	return nil
}

func (c *Coordinator) runAnalysis(client analyzer.Client, messageID string, run func(context.Context, analyzer.Client) (types.AnalysisResults, error)) {
	// In-flight analyses are never cancelled; the UI only prevents
	// re-submission while analyzing.
	result, err := run(context.Background(), client)

	if err != nil {
		c.log.Errorf("analysis failed: %v", err)
		c.finishAnalysis()
		c.updateAffordances()
		c.bus.Publish(types.AnalysisError{Message: err.Error(), MessageID: messageID})
		return
	}

	if err := c.settings.SetLastAnalysis(result); err != nil {
		c.log.Errorf("failed to persist analysis result: %v", err)
	}
	c.finishAnalysis()
	c.updateAffordances()
	c.log.Infof("analysis complete: %d result(s)", len(result))
	c.bus.Publish(types.AnalysisComplete{Result: result, MessageID: messageID})
}

// finishAnalysis resets the analyzing flag in memory and durably. Any
// failure path runs through here so the system never sticks in Analyzing.
func (c *Coordinator) finishAnalysis() {
	c.state.EndAnalysis()
	if err := c.settings.SetIsAnalyzing(false); err != nil {
		c.log.Errorf("failed to persist analyzing flag: %v", err)
	}
}

func (c *Coordinator) resolveClient() (analyzer.Client, error) {
	model, err := c.settings.SelectedModel()
	if err != nil {
		return nil, fmt.Errorf("coordinator: read selected model: %w", err)
	}
	client, ok := c.clients[model]
	if !ok || client == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoBackend, model)
	}
	return client, nil
}

// AskEnabled reports whether the ask affordance is currently available:
// a screenshot is present and no analysis is running.
func (c *Coordinator) AskEnabled() bool {
	snap := c.state.Snapshot()
	return snap.CurrentScreenshot != nil && !snap.IsAnalyzing
}

// Snapshot returns a copy of the coordination state for read-only display.
func (c *Coordinator) Snapshot() Snapshot {
	return c.state.Snapshot()
}

// updateAffordances recomputes menu enablement after a transition. The
// result is only observable through AskEnabled, but recomputing here keeps
// the transition points explicit and logged.
func (c *Coordinator) updateAffordances() {
	c.log.Debugf("affordances: askEnabled=%t", c.AskEnabled())
}
