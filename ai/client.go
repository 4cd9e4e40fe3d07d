// Package ai is a thin client for one OpenAI-compatible chat-completion
// endpoint. It carries the prompt builders for ideation, scripting and
// review, and degrades to a structured placeholder when no credential is
// configured so callers never have to special-case a missing key.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	defaultBaseURL = "https://api.fireworks.ai/inference/v1"
	defaultModel   = "accounts/fireworks/models/kimi-k2-5-flash"
)

// placeholderContent is returned verbatim in degraded mode.
const placeholderContent = `{"message":"AI features require an API key. Add ai_api_key in Settings."}`

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"` // system, user or assistant
	Content string `json:"content"`
}

// Options tune a single completion call.
type Options struct {
	Temperature float64
	MaxTokens   int
	JSON        bool // request response_format json_object
}

// Usage is the token accounting reported by the endpoint.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// Response is the completion result.
type Response struct {
	Content  string `json:"content"`
	Usage    Usage  `json:"usage"`
	Degraded bool   `json:"degraded,omitempty"`
}

// Client calls the chat-completion endpoint.
type Client struct {
	rc     *resty.Client
	model  string
	apiKey string
}

// New creates a Client. Empty baseURL and model select the defaults;
// empty apiKey puts the client in degraded mode.
func New(apiKey, baseURL, model string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if model == "" {
		model = defaultModel
	}
	return &Client{
		rc:     resty.New().SetBaseURL(baseURL).SetTimeout(60 * time.Second),
		model:  model,
		apiKey: apiKey,
	}
}

// Configured reports whether a credential is present.
func (c *Client) Configured() bool { return c.apiKey != "" }

type chatRequest struct {
	Model          string    `json:"model"`
	Messages       []Message `json:"messages"`
	Temperature    float64   `json:"temperature"`
	MaxTokens      int       `json:"max_tokens"`
	ResponseFormat *struct {
		Type string `json:"type"`
	} `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
}

// Complete sends messages to the chat endpoint. Without a key it returns
// the placeholder response and nil error; callers stay on the happy path.
func (c *Client) Complete(ctx context.Context, messages []Message, opts Options) (*Response, error) {
	if c.apiKey == "" {
		return &Response{Content: placeholderContent, Degraded: true}, nil
	}

	temp := opts.Temperature
	if temp == 0 {
		temp = 0.7
	}
	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = 2048
	}

	req := chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: temp,
		MaxTokens:   maxTokens,
	}
	if opts.JSON {
		req.ResponseFormat = &struct {
			Type string `json:"type"`
		}{Type: "json_object"}
	}

	var out chatResponse
	resp, err := c.rc.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+c.apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		SetResult(&out).
		Post("/chat/completions")
	if err != nil {
		return nil, fmt.Errorf("ai api: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("ai api error (%d): %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	if len(out.Choices) == 0 {
		return nil, fmt.Errorf("ai api: empty choices in response")
	}
	return &Response{Content: out.Choices[0].Message.Content, Usage: out.Usage}, nil
}

// StripFences removes a wrapping markdown code block, which models emit
// even when asked for bare JSON.
func StripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx != -1 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}
	return s
}

// DecodeObject loosely parses a JSON object from model output. Returns
// false when the output is not usable JSON; never an error, because model
// output is expected to sometimes not be valid JSON.
func DecodeObject(raw string, v interface{}) bool {
	return json.Unmarshal([]byte(StripFences(raw)), v) == nil
}

// DecodeIdeaList accepts a bare array, an {"ideas": [...]} wrapper, or a
// single object, mirroring the shapes models actually produce.
func DecodeIdeaList(raw string) []map[string]interface{} {
	s := StripFences(raw)

	var arr []map[string]interface{}
	if json.Unmarshal([]byte(s), &arr) == nil {
		return arr
	}

	var wrapper struct {
		Ideas []map[string]interface{} `json:"ideas"`
	}
	if json.Unmarshal([]byte(s), &wrapper) == nil && len(wrapper.Ideas) > 0 {
		return wrapper.Ideas
	}

	var single map[string]interface{}
	if json.Unmarshal([]byte(s), &single) == nil && len(single) > 0 {
		return []map[string]interface{}{single}
	}
	return nil
}
