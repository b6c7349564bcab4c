package coordinator

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tranthanh98/screenshot-ai/pkg/analyzer"
	"github.com/Tranthanh98/screenshot-ai/pkg/bus"
	"github.com/Tranthanh98/screenshot-ai/pkg/logging"
	"github.com/Tranthanh98/screenshot-ai/pkg/settings"
	"github.com/Tranthanh98/screenshot-ai/pkg/types"
)

// fakeClient lets tests control when an analysis completes and what it
// returns.
type fakeClient struct {
	mu      sync.Mutex
	calls   int
	release chan struct{}
	result  types.AnalysisResults
	err     error
}

func (f *fakeClient) Name() string { return "fake" }

func (f *fakeClient) analyze() (types.AnalysisResults, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.release != nil {
		<-f.release
	}
	return f.result, f.err
}

func (f *fakeClient) AnalyzeImage(ctx context.Context, imageBase64 string) (types.AnalysisResults, error) {
	return f.analyze()
}

func (f *fakeClient) AnalyzeText(ctx context.Context, question string) (types.AnalysisResults, error) {
	return f.analyze()
}

func (f *fakeClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeCapture struct {
	snapshot  string
	cropped   string
	selecting bool
}

func (f *fakeCapture) StartSelection(ctx context.Context) error {
	f.selecting = true
	return nil
}

func (f *fakeCapture) Snapshot(ctx context.Context) (string, error) {
	return f.snapshot, nil
}

func (f *fakeCapture) Crop(ctx context.Context, dataURL string, area types.ScreenshotArea) (string, error) {
	return f.cropped, nil
}

type fixture struct {
	coord    *Coordinator
	bus      *bus.Bus
	settings *settings.Store
	client   *fakeClient
	capture  *fakeCapture
	events   <-chan types.Notification
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	store, err := settings.NewStore(filepath.Join(t.TempDir(), "settings.json"))
	require.NoError(t, err)

	logger, _ := logging.NewLogger("test")
	t.Cleanup(func() { logger.Close() })

	b := bus.New()
	t.Cleanup(func() { b.Close() })

	client := &fakeClient{}
	capture := &fakeCapture{
		snapshot: "data:image/png;base64,full",
		cropped:  "data:image/png;base64,cropped",
	}

	coord, err := New(Config{
		Bus:      b,
		Settings: store,
		Clients: map[types.Model]analyzer.Client{
			types.ModelGemini: client,
		},
		Capture: capture,
		Logger:  logger,
	})
	require.NoError(t, err)

	_, events := b.Subscribe(16)
	return &fixture{coord: coord, bus: b, settings: store, client: client, capture: capture, events: events}
}

func waitFor(t *testing.T, events <-chan types.Notification) types.Notification {
	t.Helper()
	select {
	case n := <-events:
		return n
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
		return nil
	}
}

func TestCoordinatorScreenshotLifecycle(t *testing.T) {
	t.Run("save commits screenshot and broadcasts", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.bus.Send(context.Background(), types.SaveScreenshotRequest{
			CroppedImage: "data:image/png;base64,abc",
			Area:         types.ScreenshotArea{X: 10, Y: 20, Width: 100, Height: 50},
		})
		require.NoError(t, err)

		saved, ok := waitFor(t, f.events).(types.ScreenshotSaved)
		require.True(t, ok)
		assert.Equal(t, "data:image/png;base64,abc", saved.Screenshot.ImageBase64)

		resp, err := f.bus.Send(context.Background(), types.GetScreenshotRequest{})
		require.NoError(t, err)
		got := resp.(types.GetScreenshotResponse)
		require.NotNil(t, got.Screenshot)
		assert.Equal(t, types.ScreenshotArea{X: 10, Y: 20, Width: 100, Height: 50}, got.Screenshot.Area)
		assert.True(t, f.coord.AskEnabled())
	})

	t.Run("last write wins on double capture", func(t *testing.T) {
		f := newFixture(t)

		f.coord.ReceiveCapturedImage(types.ScreenshotData{ImageBase64: "first"})
		f.coord.ReceiveCapturedImage(types.ScreenshotData{ImageBase64: "second"})

		snap := f.coord.Snapshot()
		require.NotNil(t, snap.CurrentScreenshot)
		assert.Equal(t, "second", snap.CurrentScreenshot.ImageBase64)
	})

	t.Run("clear discards screenshot and disables ask", func(t *testing.T) {
		f := newFixture(t)
		f.coord.ReceiveCapturedImage(types.ScreenshotData{ImageBase64: "img"})
		drainOne(t, f.events)

		resp, err := f.bus.Send(context.Background(), types.ClearScreenshotRequest{})
		require.NoError(t, err)
		assert.True(t, resp.(types.ClearScreenshotResponse).Success)

		_, ok := waitFor(t, f.events).(types.ScreenshotCleared)
		require.True(t, ok)
		assert.Nil(t, f.coord.Snapshot().CurrentScreenshot)
		assert.False(t, f.coord.AskEnabled())
	})

	t.Run("get with no screenshot returns nil", func(t *testing.T) {
		f := newFixture(t)

		resp, err := f.bus.Send(context.Background(), types.GetScreenshotRequest{})
		require.NoError(t, err)
		assert.Nil(t, resp.(types.GetScreenshotResponse).Screenshot)
	})
}

func TestCoordinatorCaptureFlow(t *testing.T) {
	t.Run("capture request snapshots, crops and commits", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.bus.Send(context.Background(), types.CaptureScreenshotRequest{
			Area: types.ScreenshotArea{X: 1, Y: 2, Width: 30, Height: 40},
		})
		require.NoError(t, err)

		saved, ok := waitFor(t, f.events).(types.ScreenshotSaved)
		require.True(t, ok)
		assert.Equal(t, "data:image/png;base64,cropped", saved.Screenshot.ImageBase64)
		assert.Equal(t, types.ScreenshotArea{X: 1, Y: 2, Width: 30, Height: 40}, saved.Screenshot.Area)
	})

	t.Run("start screenshot delegates to capture driver", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.bus.Send(context.Background(), types.StartScreenshotRequest{})
		require.NoError(t, err)
		assert.True(t, f.capture.selecting)
	})
}

func TestCoordinatorAnalysis(t *testing.T) {
	t.Run("success persists result and broadcasts completion", func(t *testing.T) {
		f := newFixture(t)
		f.client.result = types.AnalysisResults{{
			Question:      "2+2?",
			CorrectAnswer: types.SingleAnswer("4"),
			Type:          types.QuestionShortAnswer,
		}}

		require.NoError(t, f.coord.RequestImageAnalysis("data:image/png;base64,img"))

		done, ok := waitFor(t, f.events).(types.AnalysisComplete)
		require.True(t, ok)
		require.Len(t, done.Result, 1)
		assert.Equal(t, "2+2?", done.Result[0].Question)

		persisted, err := f.settings.LastAnalysis()
		require.NoError(t, err)
		require.Len(t, persisted, 1)

		analyzing, err := f.settings.IsAnalyzing()
		require.NoError(t, err)
		assert.False(t, analyzing)
	})

	t.Run("at most one analysis in flight", func(t *testing.T) {
		f := newFixture(t)
		f.client.release = make(chan struct{})

		require.NoError(t, f.coord.RequestImageAnalysis("img"))
		err := f.coord.RequestTextAnalysis("question", "msg_1")
		assert.ErrorIs(t, err, ErrAnalysisInFlight)

		close(f.client.release)
		waitFor(t, f.events)
		assert.Equal(t, 1, f.client.callCount())
	})

	t.Run("failure returns to ready with screenshot retained", func(t *testing.T) {
		f := newFixture(t)
		f.coord.ReceiveCapturedImage(types.ScreenshotData{ImageBase64: "img"})
		drainOne(t, f.events)
		f.client.err = errors.New("backend exploded")

		require.NoError(t, f.coord.RequestTextAnalysis("question", "msg_9"))

		fail, ok := waitFor(t, f.events).(types.AnalysisError)
		require.True(t, ok)
		assert.Contains(t, fail.Message, "backend exploded")
		assert.Equal(t, "msg_9", fail.MessageID)

		snap := f.coord.Snapshot()
		assert.False(t, snap.IsAnalyzing)
		require.NotNil(t, snap.CurrentScreenshot)
		assert.True(t, f.coord.AskEnabled())

		// A new request is accepted again after the failure.
		f.client.err = nil
		require.NoError(t, f.coord.RequestImageAnalysis("img"))
		waitFor(t, f.events)
	})

	t.Run("analyzing flag persisted while in flight", func(t *testing.T) {
		f := newFixture(t)
		f.client.release = make(chan struct{})

		require.NoError(t, f.coord.RequestImageAnalysis("img"))

		analyzing, err := f.settings.IsAnalyzing()
		require.NoError(t, err)
		assert.True(t, analyzing)
		assert.False(t, f.coord.AskEnabled())

		close(f.client.release)
		waitFor(t, f.events)
	})

	t.Run("unknown model has no backend", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.settings.SetSelectedModel(types.ModelQwenLocal))

		err := f.coord.RequestImageAnalysis("img")
		assert.ErrorIs(t, err, ErrNoBackend)
		assert.False(t, f.coord.Snapshot().IsAnalyzing)
	})
}

func TestCoordinatorStartupReconcile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	path := filepath.Join(t.TempDir(), "settings.json")
	store, err := settings.NewStore(path)
	require.NoError(t, err)
	require.NoError(t, store.SetIsAnalyzing(true))

	logger, _ := logging.NewLogger("test")
	defer logger.Close()
	b := bus.New()
	defer b.Close()

	coord, err := New(Config{Bus: b, Settings: store, Logger: logger})
	require.NoError(t, err)

	analyzing, err := store.IsAnalyzing()
	require.NoError(t, err)
	assert.False(t, analyzing)
	assert.False(t, coord.Snapshot().IsAnalyzing)
	assert.Nil(t, coord.Snapshot().CurrentScreenshot)
}

func drainOne(t *testing.T, events <-chan types.Notification) {
	t.Helper()
	waitFor(t, events)
}
