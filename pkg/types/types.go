// Package types defines the shared data model for screenshot-ai: captured
// screenshot regions, analysis results returned by model backends, chat log
// entries, and the message vocabulary exchanged between the coordinator and
// its surfaces.
package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ScreenshotArea is a pixel rectangle in logical page-viewport coordinates.
type ScreenshotArea struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// IsZero reports whether the area carries no selection (pasted and uploaded
// images have a zero area).
func (a ScreenshotArea) IsZero() bool {
	return a.X == 0 && a.Y == 0 && a.Width == 0 && a.Height == 0
}

// ScreenshotData is a cropped capture encoded as a PNG data URI, stamped at
// commit time. Once handed to the coordinator it is replaced wholesale by a
// newer capture or cleared, never mutated.
type ScreenshotData struct {
	ImageBase64 string         `json:"imageBase64"`
	Timestamp   int64          `json:"timestamp"`
	Area        ScreenshotArea `json:"area"`
}

// QuestionType classifies a single detected question in an analysis result.
type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple-choice"
	QuestionShortAnswer    QuestionType = "short-answer"
	QuestionFillInTheBlank QuestionType = "fill-in-the-blank"
	QuestionMarkdown       QuestionType = "markdown"
)

// Answer holds a backend answer that may be a single string or an ordered
// list of strings (fill-in-the-blank answers are lists). It marshals to the
// same JSON union the backends produce.
type Answer struct {
	Values []string
	// Multi forces array encoding even for a single value.
	Multi bool
}

// SingleAnswer wraps one answer string.
func SingleAnswer(s string) Answer {
	return Answer{Values: []string{s}}
}

// MultiAnswer wraps an ordered list of answer strings.
func MultiAnswer(ss ...string) Answer {
	return Answer{Values: ss, Multi: true}
}

// Text renders the answer for display, joining list answers with ", ".
func (a Answer) Text() string {
	return strings.Join(a.Values, ", ")
}

// IsZero reports whether no answer is present.
func (a Answer) IsZero() bool {
	return len(a.Values) == 0
}

// MarshalJSON encodes a single answer as a JSON string and a list answer as
// a JSON array.
func (a Answer) MarshalJSON() ([]byte, error) {
	if !a.Multi && len(a.Values) == 1 {
		return json.Marshal(a.Values[0])
	}
	if a.Values == nil {
		return json.Marshal([]string{})
	}
	return json.Marshal(a.Values)
}

// UnmarshalJSON accepts either a JSON string or a JSON array of strings.
func (a *Answer) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*a = Answer{Values: []string{s}}
		return nil
	}
	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*a = Answer{Values: ss, Multi: true}
		return nil
	}
	return fmt.Errorf("answer must be a string or an array of strings: %s", data)
}

// AnalysisResult is one detected question with its answer.
//
// multiple-choice results carry Options; markdown results carry a single
// free-text answer and no options.
type AnalysisResult struct {
	Question      string       `json:"question,omitempty"`
	Options       []string     `json:"options,omitempty"`
	CorrectAnswer Answer       `json:"correctAnswer"`
	Type          QuestionType `json:"type"`
}

// AnalysisResults is an ordered sequence of results, one per detected
// question, in presentation order.
type AnalysisResults []AnalysisResult

// MessageType classifies a chat log entry by how it was created.
type MessageType string

const (
	MessageScreenshot MessageType = "screenshot"
	MessageText       MessageType = "text"
	MessagePaste      MessageType = "paste"
)

// ChatMessage is one entry in the conversation log. The identifier is
// immutable and assigned at creation; after creation only Analysis, Error
// and IsAnalyzing are ever updated, exactly once per analysis cycle.
type ChatMessage struct {
	ID           string          `json:"id"`
	Timestamp    int64           `json:"timestamp"`
	Type         MessageType     `json:"type"`
	Screenshot   *ScreenshotData `json:"screenshot,omitempty"`
	TextQuestion string          `json:"textQuestion,omitempty"`
	Analysis     AnalysisResults `json:"analysis,omitempty"`
	IsAnalyzing  bool            `json:"isAnalyzing,omitempty"`
	Error        string          `json:"error,omitempty"`
}

// Model identifies a configured analysis backend.
type Model string

const (
	// ModelGemini is the remote key-authenticated backend.
	ModelGemini Model = "gemini"
	// ModelQwenLocal is the local unauthenticated backend.
	ModelQwenLocal Model = "qwen-local"
)

// Valid reports whether m names a known backend.
func (m Model) Valid() bool {
	return m == ModelGemini || m == ModelQwenLocal
}
