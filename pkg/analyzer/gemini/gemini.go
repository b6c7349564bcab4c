// Package gemini implements the remote key-authenticated analysis backend.
// The credential travels in the request query string; image analysis asks
// for strict-schema JSON while text analysis asks for free-form markdown.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/Tranthanh98/screenshot-ai/pkg/analyzer"
	"github.com/Tranthanh98/screenshot-ai/pkg/types"
)

const backendName = "gemini"

// Client calls a Gemini-style generateContent endpoint.
type Client struct {
	httpClient *http.Client
	keySource  KeySource
	baseURL    string
	model      string
}

// KeySource supplies the API key. It is consulted on every request, so a
// key saved through settings takes effect without rebuilding the client.
type KeySource func() (string, error)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithKeySource reads the API key through fn instead of the static key
// given to New.
func WithKeySource(fn KeySource) ClientOption {
	return func(c *Client) { c.keySource = fn }
}

// WithBaseURL overrides the API base URL, mainly for tests.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) { c.baseURL = baseURL }
}

// WithModel overrides the model name.
func WithModel(model string) ClientOption {
	return func(c *Client) { c.model = model }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = client }
}

// New creates a client. An empty API key is accepted here and reported as a
// ConfigurationError at call time, so the backend can be constructed before
// the user has supplied a key.
func New(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{},
		keySource:  func() (string, error) { return apiKey, nil },
		baseURL:    "https://generativelanguage.googleapis.com/v1beta",
		model:      "gemini-2.5-flash",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the backend identifier.
func (c *Client) Name() string { return backendName }

const imagePrompt = `Analyze this image and extract every question together with its answer options (if any).
Return a JSON array with one element per question, using these shapes:
multiple choice:
  {"question": "...", "options": ["A. ...", "B. ..."], "correctAnswer": "...", "type": "multiple-choice"}
short answer:
  {"question": "...", "correctAnswer": "...", "type": "short-answer"}
fill in the blank:
  {"question": "... (if present)", "correctAnswer": ["...", "..."], "type": "fill-in-the-blank"}
There may be several questions in one image. Return strictly the JSON array with no commentary.`

const textPromptTemplate = `Analyze the following question and give the correct answer in markdown:

Question: %q

Formatting rules:
- use a heading (##) per question if there are several
- use **bold** for the main question
- use > blockquote for the correct answer
- use bullet points (-) for multiple-choice options
- use ` + "`code`" + ` for important keywords

Return plain markdown, not wrapped in a code block or JSON.`

// responseSchema constrains the structured image response.
var responseSchema = map[string]interface{}{
	"type": "array",
	"items": map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"question": map[string]interface{}{"type": "string"},
			"options": map[string]interface{}{
				"type":  "array",
				"items": map[string]interface{}{"type": "string"},
			},
			"correctAnswer": map[string]interface{}{},
			"type": map[string]interface{}{
				"type": "string",
				"enum": []string{"multiple-choice", "short-answer", "fill-in-the-blank"},
			},
		},
		"required": []string{"type", "correctAnswer"},
	},
}

// AnalyzeImage sends the image for structured extraction.
func (c *Client) AnalyzeImage(ctx context.Context, imageBase64 string) (types.AnalysisResults, error) {
	body := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"parts": []map[string]interface{}{
					{"text": imagePrompt},
					{
						"inline_data": map[string]interface{}{
							"mime_type": "image/png",
							"data":      analyzer.StripDataURI(imageBase64),
						},
					},
				},
			},
		},
		"generationConfig": map[string]interface{}{
			"responseMimeType": "application/json",
			"responseSchema":   responseSchema,
		},
	}

	text, err := c.generateContent(ctx, body)
	if err != nil {
		return nil, err
	}
	return analyzer.ParseStructured(text), nil
}

// AnalyzeText sends a typed question for a markdown answer.
func (c *Client) AnalyzeText(ctx context.Context, question string) (types.AnalysisResults, error) {
	body := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"parts": []map[string]interface{}{
					{"text": fmt.Sprintf(textPromptTemplate, question)},
				},
			},
		},
		"generationConfig": map[string]interface{}{
			"temperature":     0.7,
			"maxOutputTokens": 2048,
		},
	}

	text, err := c.generateContent(ctx, body)
	if err != nil {
		return nil, err
	}
	return analyzer.WrapMarkdown(question, text), nil
}

// generateContent posts the request and returns the first candidate's text.
func (c *Client) generateContent(ctx context.Context, body map[string]interface{}) (string, error) {
	apiKey, err := c.keySource()
	if err != nil {
		return "", &analyzer.ConfigurationError{
			Backend: backendName,
			Reason:  fmt.Sprintf("failed to read API key: %v", err),
		}
	}
	if apiKey == "" {
		return "", &analyzer.ConfigurationError{
			Backend: backendName,
			Reason:  "API key not set; add one in settings before analyzing",
		}
	}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &analyzer.BackendError{Backend: backendName, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &analyzer.BackendError{Backend: backendName, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return "", &analyzer.BackendError{
			Backend:    backendName,
			StatusCode: resp.StatusCode,
			Detail:     string(respBody),
		}
	}

	var parsed struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", &analyzer.BackendError{Backend: backendName, Err: fmt.Errorf("malformed response: %w", err)}
	}

	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", &analyzer.EmptyResponseError{Backend: backendName}
	}
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}
