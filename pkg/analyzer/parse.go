package analyzer

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/Tranthanh98/screenshot-ai/pkg/types"
)

// jsonSpan matches the first top-level JSON array or object span in a
// free-form payload. Backends asked for strict JSON still occasionally wrap
// it in prose or code fences.
var jsonSpan = regexp.MustCompile(`(?s)\[.*\]|\{.*\}`)

// ParseStructured extracts analysis results from a payload expected to be
// structured JSON. A bare object is wrapped into a one-element sequence.
// Parse failure is not fatal: the raw text degrades to a single
// short-answer result.
func ParseStructured(text string) types.AnalysisResults {
	span := jsonSpan.FindString(text)
	if span != "" {
		var list types.AnalysisResults
		if err := json.Unmarshal([]byte(span), &list); err == nil {
			return list
		}

		var single types.AnalysisResult
		if err := json.Unmarshal([]byte(span), &single); err == nil {
			return types.AnalysisResults{single}
		}
	}

	return types.AnalysisResults{
		{
			CorrectAnswer: types.SingleAnswer(text),
			Type:          types.QuestionShortAnswer,
		},
	}
}

// WrapMarkdown wraps a free-form narrative payload verbatim as a single
// markdown result, preserving the original question when one was supplied.
func WrapMarkdown(question, text string) types.AnalysisResults {
	return types.AnalysisResults{
		{
			Question:      strings.TrimSpace(question),
			CorrectAnswer: types.SingleAnswer(text),
			Type:          types.QuestionMarkdown,
		},
	}
}
