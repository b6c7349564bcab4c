package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tranthanh98/screenshot-ai/pkg/types"
)

func TestParseStructured(t *testing.T) {
	t.Run("JSON array", func(t *testing.T) {
		payload := `[
			{"question": "Q1", "options": ["A", "B"], "correctAnswer": "A", "type": "multiple-choice"},
			{"question": "Q2", "correctAnswer": ["x", "y"], "type": "fill-in-the-blank"}
		]`
		results := ParseStructured(payload)
		require.Len(t, results, 2)
		assert.Equal(t, types.QuestionMultipleChoice, results[0].Type)
		assert.Equal(t, []string{"A", "B"}, results[0].Options)
		assert.Equal(t, types.QuestionFillInTheBlank, results[1].Type)
		assert.Equal(t, "x, y", results[1].CorrectAnswer.Text())
	})

	t.Run("bare object wrapped into sequence", func(t *testing.T) {
		payload := `{"question": "Q", "correctAnswer": "42", "type": "short-answer"}`
		results := ParseStructured(payload)
		require.Len(t, results, 1)
		assert.Equal(t, "42", results[0].CorrectAnswer.Text())
	})

	t.Run("JSON embedded in prose", func(t *testing.T) {
		payload := "Here is what I found:\n```json\n[{\"correctAnswer\": \"yes\", \"type\": \"short-answer\"}]\n```\nDone."
		results := ParseStructured(payload)
		require.Len(t, results, 1)
		assert.Equal(t, "yes", results[0].CorrectAnswer.Text())
	})

	t.Run("malformed payload degrades to raw short answer", func(t *testing.T) {
		payload := "not json at all"
		results := ParseStructured(payload)
		require.Len(t, results, 1)
		assert.Equal(t, types.QuestionShortAnswer, results[0].Type)
		assert.Equal(t, payload, results[0].CorrectAnswer.Text())
	})

	t.Run("broken JSON span degrades to raw short answer", func(t *testing.T) {
		payload := `{"question": truncated`
		results := ParseStructured(payload)
		require.Len(t, results, 1)
		assert.Equal(t, types.QuestionShortAnswer, results[0].Type)
		assert.Equal(t, payload, results[0].CorrectAnswer.Text())
	})
}

func TestWrapMarkdown(t *testing.T) {
	results := WrapMarkdown("  What is 2+2?  ", "## Answer\n\n> 4")
	require.Len(t, results, 1)
	assert.Equal(t, types.QuestionMarkdown, results[0].Type)
	assert.Equal(t, "What is 2+2?", results[0].Question)
	assert.Equal(t, "## Answer\n\n> 4", results[0].CorrectAnswer.Text())
	assert.Empty(t, results[0].Options)
}

func TestStripDataURI(t *testing.T) {
	assert.Equal(t, "aGVsbG8=", StripDataURI("data:image/png;base64,aGVsbG8="))
	assert.Equal(t, "aGVsbG8=", StripDataURI("aGVsbG8="))
}
