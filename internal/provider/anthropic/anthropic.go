// Package anthropic implements the Claude adapter. Claude takes a flat
// messages array with the system prompt in a separate top-level field;
// streams are SSE with deltas carried by content_block_delta events.
package anthropic

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/asgardlabs/giru/internal/domain"
	"github.com/asgardlabs/giru/internal/provider"
)

const (
	defaultBaseURL   = "https://api.anthropic.com/v1"
	anthropicVersion = "2023-06-01"
)

type Adapter struct {
	apiKey  string
	baseURL string
	client  *provider.Client
}

func New(apiKey string, httpClient *http.Client) *Adapter {
	return &Adapter{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		client:  provider.NewClient("anthropic", httpClient),
	}
}

func (a *Adapter) ID() string { return "anthropic" }

func (a *Adapter) Available() bool { return a.apiKey != "" }

func (a *Adapter) Close() { a.client.Close() }

func (a *Adapter) headers() map[string]string {
	return map[string]string{
		"x-api-key":         a.apiKey,
		"anthropic-version": anthropicVersion,
	}
}

func (a *Adapter) Chat(ctx context.Context, req provider.Request) (string, error) {
	body, err := a.client.PostJSON(ctx, a.baseURL+"/messages", a.headers(), toMessagesRequest(req, false))
	if err != nil {
		return "", err
	}

	var resp messagesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &domain.ParseError{Provider: a.ID(), Err: err}
	}

	if len(resp.Content) == 0 {
		return "", &domain.ParseError{Provider: a.ID(), Field: "content[0].text"}
	}
	return resp.Content[0].Text, nil
}

func (a *Adapter) ChatStream(ctx context.Context, req provider.Request) (<-chan string, <-chan error) {
	out := make(chan string)
	errs := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errs)

		body, err := a.client.OpenStream(ctx, a.baseURL+"/messages", a.headers(), toMessagesRequest(req, true))
		if err != nil {
			errs <- err
			return
		}

		a.client.StreamFrames(ctx, body, decodeFrame, out, errs)
	}()

	return out, errs
}

type messagesRequest struct {
	Model       string           `json:"model"`
	MaxTokens   int              `json:"max_tokens"`
	Temperature float64          `json:"temperature"`
	Messages    []domain.Message `json:"messages"`
	System      string           `json:"system,omitempty"`
	Stream      bool             `json:"stream,omitempty"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

type streamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Text string `json:"text"`
	} `json:"delta"`
}

func toMessagesRequest(req provider.Request, stream bool) messagesRequest {
	return messagesRequest{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Messages:    req.Messages,
		System:      req.SystemPrompt,
		Stream:      stream,
	}
}

func decodeFrame(line string) (string, bool, error) {
	data, ok := provider.CutSSE(line)
	if !ok {
		return "", false, nil
	}

	var event streamEvent
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return "", false, err
	}

	switch event.Type {
	case "content_block_delta":
		return event.Delta.Text, false, nil
	case "message_stop":
		return "", true, nil
	default:
		return "", false, nil
	}
}
