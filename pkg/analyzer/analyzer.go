// Package analyzer defines the model-backend abstraction: stateless clients
// that turn an image or a typed question into an ordered list of analysis
// results. Two implementations exist — the remote key-authenticated backend
// (gemini) and the local unauthenticated one (lmstudio) — selected by the
// persisted model setting. Retry policy is the caller's concern; clients
// never retry.
package analyzer

import (
	"context"
	"fmt"
	"strings"

	"github.com/Tranthanh98/screenshot-ai/pkg/types"
)

// ImageAnalyzer turns a data-URI encoded image into analysis results.
type ImageAnalyzer interface {
	AnalyzeImage(ctx context.Context, imageBase64 string) (types.AnalysisResults, error)
}

// TextAnalyzer turns a typed question into analysis results.
type TextAnalyzer interface {
	AnalyzeText(ctx context.Context, question string) (types.AnalysisResults, error)
}

// Client is a full analysis backend.
type Client interface {
	ImageAnalyzer
	TextAnalyzer
	// Name identifies the backend in logs and error messages.
	Name() string
}

// ConfigurationError reports a missing credential for the selected backend.
// It is surfaced to the user as a call to action, not retried.
type ConfigurationError struct {
	Backend string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Backend, e.Reason)
}

// BackendError reports a failed transport call or a non-success status.
// The message carries the backend's identifying detail so the user can
// diagnose and retry.
type BackendError struct {
	Backend    string
	StatusCode int
	Detail     string
	Err        error
}

func (e *BackendError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: request failed with status %d: %s", e.Backend, e.StatusCode, e.Detail)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: request failed: %v", e.Backend, e.Err)
	}
	return fmt.Sprintf("%s: request failed: %s", e.Backend, e.Detail)
}

func (e *BackendError) Unwrap() error { return e.Err }

// EmptyResponseError reports that the backend returned no usable candidate
// content at all.
type EmptyResponseError struct {
	Backend string
}

func (e *EmptyResponseError) Error() string {
	return fmt.Sprintf("%s: no response content", e.Backend)
}

// StripDataURI returns the raw base64 payload of a data URI, passing
// through inputs that carry no prefix.
func StripDataURI(imageBase64 string) string {
	if idx := strings.IndexByte(imageBase64, ','); idx >= 0 {
		return imageBase64[idx+1:]
	}
	return imageBase64
}
