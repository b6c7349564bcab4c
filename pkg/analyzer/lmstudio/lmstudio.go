// Package lmstudio implements the local unauthenticated analysis backend:
// an OpenAI-chat-style endpoint served by LM Studio on loopback. Both image
// and text analysis return free-form markdown wrapped as a single result.
package lmstudio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/openai/openai-go"

	"github.com/Tranthanh98/screenshot-ai/pkg/analyzer"
	"github.com/Tranthanh98/screenshot-ai/pkg/types"
)

const backendName = "lmstudio"

// DefaultBaseURL is the fixed loopback address LM Studio serves on.
const DefaultBaseURL = "http://127.0.0.1:1234/v1"

// Client calls a local OpenAI-compatible chat completion endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	model      string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the endpoint, mainly for tests.
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

// New creates a client. No credential is required for the local backend.
func New(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{},
		baseURL:    DefaultBaseURL,
		model:      "qwen-vl-4b",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the backend identifier.
func (c *Client) Name() string { return backendName }

const imagePrompt = `Analyze this image carefully. Read and extract every question, then answer each one with the correct answer only.

Rules:
- provide only the correct answer, no explanations or steps
- for multiple choice give the correct option (e.g. "B. Hanoi")
- for math problems give only the final result
- for coding problems provide only the complete working code

Format the response in markdown: a heading (##) per question, **bold** for the question text, > blockquote for the answer, --- between questions.`

const textPromptTemplate = `Analyze this question and provide only the correct answer.

Question: %q

Rules:
- provide only the correct answer, no explanations
- for multiple choice give the correct option
- for math problems give only the final result
- for coding problems provide complete working code

Format the response in markdown: **bold** for the question, > blockquote for the answer, fenced code blocks for code.`

// AnalyzeImage sends the image with a markdown-answer prompt. The content
// parts carry the image as a data URL per the OpenAI chat vision format.
func (c *Client) AnalyzeImage(ctx context.Context, imageBase64 string) (types.AnalysisResults, error) {
	dataURL := imageBase64
	if analyzer.StripDataURI(imageBase64) == imageBase64 {
		dataURL = "data:image/png;base64," + imageBase64
	}

	messages := []map[string]interface{}{
		{
			"role": "user",
			"content": []map[string]interface{}{
				{"type": "text", "text": imagePrompt},
				{"type": "image_url", "image_url": map[string]interface{}{"url": dataURL}},
			},
		},
	}

	text, err := c.chatCompletion(ctx, messages)
	if err != nil {
		return nil, err
	}
	return analyzer.WrapMarkdown("", text), nil
}

// AnalyzeText sends a typed question.
func (c *Client) AnalyzeText(ctx context.Context, question string) (types.AnalysisResults, error) {
	prompt := fmt.Sprintf(textPromptTemplate, question)
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.UserMessage(prompt),
	}

	text, err := c.chatCompletion(ctx, messages)
	if err != nil {
		return nil, err
	}
	return analyzer.WrapMarkdown(question, text), nil
}

// chatCompletion posts a non-streaming chat request and returns the first
// choice's content.
func (c *Client) chatCompletion(ctx context.Context, messages interface{}) (string, error) {
	reqBody := map[string]interface{}{
		"model":       c.model,
		"messages":    messages,
		"temperature": 0.7,
		"max_tokens":  4096,
		"stream":      false,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &analyzer.BackendError{
			Backend: backendName,
			Err:     fmt.Errorf("cannot reach LM Studio at %s (is the server running with the model loaded?): %w", c.baseURL, err),
		}
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
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", &analyzer.BackendError{Backend: backendName, Err: fmt.Errorf("malformed response: %w", err)}
	}

	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", &analyzer.EmptyResponseError{Backend: backendName}
	}
	return parsed.Choices[0].Message.Content, nil
}
