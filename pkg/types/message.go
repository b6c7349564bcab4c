package types

// Action identifies a message on the coordinator bus. The set is closed:
// requests are handled exhaustively by the coordinator and notifications are
// fanned out to every subscribed surface.
type Action string

const (
	ActionStartScreenshot     Action = "START_SCREENSHOT"
	ActionCaptureScreenshot   Action = "CAPTURE_SCREENSHOT"
	ActionCropScreenshot      Action = "CROP_SCREENSHOT"
	ActionSaveScreenshot      Action = "SAVE_SCREENSHOT"
	ActionGetScreenshot       Action = "GET_SCREENSHOT"
	ActionClearScreenshot     Action = "CLEAR_SCREENSHOT"
	ActionAnalyzeScreenshot   Action = "ANALYZE_SCREENSHOT"
	ActionAnalyzeTextQuestion Action = "ANALYZE_TEXT_QUESTION"
	ActionScreenshotSaved     Action = "SCREENSHOT_SAVED"
	ActionScreenshotCleared   Action = "SCREENSHOT_CLEARED"
	ActionAnalysisComplete    Action = "ANALYSIS_COMPLETE"
	ActionAnalysisError       Action = "ANALYSIS_ERROR"
)

// Request is a command sent to the coordinator. Implementations form a
// closed union; the coordinator switches over the concrete types.
type Request interface {
	Action() Action
}

// StartScreenshotRequest asks the capture session to begin interactive
// region selection.
type StartScreenshotRequest struct{}

func (StartScreenshotRequest) Action() Action { return ActionStartScreenshot }

// CaptureScreenshotRequest asks the coordinator for a full-page snapshot of
// the committed selection area.
type CaptureScreenshotRequest struct {
	Area ScreenshotArea
}

func (CaptureScreenshotRequest) Action() Action { return ActionCaptureScreenshot }

// CropScreenshotRequest hands a full snapshot back to the capture side for
// cropping to the selected area.
type CropScreenshotRequest struct {
	DataURL string
	Area    ScreenshotArea
}

func (CropScreenshotRequest) Action() Action { return ActionCropScreenshot }

// SaveScreenshotRequest commits a cropped image as the current screenshot.
type SaveScreenshotRequest struct {
	CroppedImage string
	Area         ScreenshotArea
}

func (SaveScreenshotRequest) Action() Action { return ActionSaveScreenshot }

// GetScreenshotRequest queries the current screenshot. Surfaces issue it on
// (re)start to reconstruct state instead of relying on broadcasts.
type GetScreenshotRequest struct{}

func (GetScreenshotRequest) Action() Action { return ActionGetScreenshot }

// GetScreenshotResponse answers a GetScreenshotRequest. Screenshot is nil
// when none is held.
type GetScreenshotResponse struct {
	Screenshot *ScreenshotData
}

// ClearScreenshotRequest discards the current screenshot.
type ClearScreenshotRequest struct{}

func (ClearScreenshotRequest) Action() Action { return ActionClearScreenshot }

// ClearScreenshotResponse answers a ClearScreenshotRequest.
type ClearScreenshotResponse struct {
	Success bool
}

// AnalyzeScreenshotRequest triggers image analysis of the given data URI.
type AnalyzeScreenshotRequest struct {
	ImageBase64 string
}

func (AnalyzeScreenshotRequest) Action() Action { return ActionAnalyzeScreenshot }

// AnalyzeTextQuestionRequest triggers text analysis of a typed question.
// MessageID names the chat entry the eventual result belongs to.
type AnalyzeTextQuestionRequest struct {
	Question  string
	MessageID string
}

func (AnalyzeTextQuestionRequest) Action() Action { return ActionAnalyzeTextQuestion }

// Notification is a state-change broadcast from the coordinator to all
// surfaces. Delivery is best effort; surfaces must be able to reconstruct
// state via GetScreenshotRequest.
type Notification interface {
	Action() Action
}

// ScreenshotSaved announces a newly committed current screenshot.
type ScreenshotSaved struct {
	Screenshot ScreenshotData
}

func (ScreenshotSaved) Action() Action { return ActionScreenshotSaved }

// ScreenshotCleared announces that the current screenshot was discarded.
type ScreenshotCleared struct{}

func (ScreenshotCleared) Action() Action { return ActionScreenshotCleared }

// AnalysisComplete announces a successful analysis.
type AnalysisComplete struct {
	Result AnalysisResults
	// MessageID is set for text analyses, naming the chat entry the
	// result belongs to. Empty for image analyses.
	MessageID string
}

func (AnalysisComplete) Action() Action { return ActionAnalysisComplete }

// AnalysisError announces a failed analysis. The current screenshot is
// retained so the user may retry.
type AnalysisError struct {
	Message   string
	MessageID string
}

func (AnalysisError) Action() Action { return ActionAnalysisError }
