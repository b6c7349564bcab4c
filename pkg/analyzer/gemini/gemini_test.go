package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tranthanh98/screenshot-ai/pkg/analyzer"
	"github.com/Tranthanh98/screenshot-ai/pkg/types"
)

func candidateResponse(text string) string {
	resp := map[string]interface{}{
		"candidates": []map[string]interface{}{
			{
				"content": map[string]interface{}{
					"parts": []map[string]interface{}{{"text": text}},
				},
			},
		},
	}
	data, _ := json.Marshal(resp)
	return string(data)
}

func TestAnalyzeImage(t *testing.T) {
	t.Run("parses structured JSON payload", func(t *testing.T) {
		var gotPath, gotKey string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotKey = r.URL.Query().Get("key")

			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Contains(t, body, "contents")

			w.Write([]byte(candidateResponse(`[{"question":"Q","correctAnswer":"A","type":"short-answer"}]`)))
		}))
		defer server.Close()

		client := New("test-key", WithBaseURL(server.URL), WithModel("gemini-test"))
		results, err := client.AnalyzeImage(context.Background(), "data:image/png;base64,aGVsbG8=")
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "A", results[0].CorrectAnswer.Text())

		assert.Equal(t, "/models/gemini-test:generateContent", gotPath)
		assert.Equal(t, "test-key", gotKey)
	})

	t.Run("malformed payload degrades to raw short answer", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(candidateResponse("not json at all")))
		}))
		defer server.Close()

		client := New("test-key", WithBaseURL(server.URL))
		results, err := client.AnalyzeImage(context.Background(), "aGVsbG8=")
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, types.QuestionShortAnswer, results[0].Type)
		assert.Equal(t, "not json at all", results[0].CorrectAnswer.Text())
	})

	t.Run("missing key is a ConfigurationError", func(t *testing.T) {
		client := New("")
		_, err := client.AnalyzeImage(context.Background(), "aGVsbG8=")

		var confErr *analyzer.ConfigurationError
		require.True(t, errors.As(err, &confErr))
		assert.Equal(t, "gemini", confErr.Backend)
	})

	t.Run("key source is consulted on every request", func(t *testing.T) {
		var gotKey string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotKey = r.URL.Query().Get("key")
			w.Write([]byte(candidateResponse(`[{"question":"Q","correctAnswer":"A","type":"short-answer"}]`)))
		}))
		defer server.Close()

		var storedKey string
		client := New("", WithBaseURL(server.URL), WithKeySource(func() (string, error) {
			return storedKey, nil
		}))

		_, err := client.AnalyzeImage(context.Background(), "aGVsbG8=")
		var confErr *analyzer.ConfigurationError
		require.True(t, errors.As(err, &confErr))

		// Saving a key after the client exists takes effect immediately.
		storedKey = "late-key"
		_, err = client.AnalyzeImage(context.Background(), "aGVsbG8=")
		require.NoError(t, err)
		assert.Equal(t, "late-key", gotKey)
	})

	t.Run("HTTP failure is a BackendError with status and body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte("key rejected"))
		}))
		defer server.Close()

		client := New("bad-key", WithBaseURL(server.URL))
		_, err := client.AnalyzeImage(context.Background(), "aGVsbG8=")

		var backendErr *analyzer.BackendError
		require.True(t, errors.As(err, &backendErr))
		assert.Equal(t, http.StatusForbidden, backendErr.StatusCode)
		assert.Contains(t, backendErr.Error(), "403")
		assert.Contains(t, backendErr.Error(), "key rejected")
	})

	t.Run("no candidates is an EmptyResponseError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"candidates": []}`))
		}))
		defer server.Close()

		client := New("test-key", WithBaseURL(server.URL))
		_, err := client.AnalyzeImage(context.Background(), "aGVsbG8=")

		var emptyErr *analyzer.EmptyResponseError
		require.True(t, errors.As(err, &emptyErr))
	})
}

func TestAnalyzeText(t *testing.T) {
	t.Run("wraps markdown response preserving question", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(candidateResponse("## Answer\n\n> 4")))
		}))
		defer server.Close()

		client := New("test-key", WithBaseURL(server.URL))
		results, err := client.AnalyzeText(context.Background(), "What is 2+2?")
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, types.QuestionMarkdown, results[0].Type)
		assert.Equal(t, "What is 2+2?", results[0].Question)
		assert.Equal(t, "## Answer\n\n> 4", results[0].CorrectAnswer.Text())
	})

	t.Run("transport failure is a BackendError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close() // connection refused

		client := New("test-key", WithBaseURL(server.URL))
		_, err := client.AnalyzeText(context.Background(), "Q")

		var backendErr *analyzer.BackendError
		require.True(t, errors.As(err, &backendErr))
		assert.Zero(t, backendErr.StatusCode)
	})
}
