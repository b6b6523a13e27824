// Package openaicompat implements the OpenAI-compatible adapter shared
// by four vendors: OpenAI, Groq, Together AI, and OpenRouter. They
// differ only in endpoint and headers; request shape, response shape,
// and SSE framing (terminated by a literal [DONE]) are identical.
package openaicompat

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/asgardlabs/giru/internal/domain"
	"github.com/asgardlabs/giru/internal/provider"
)

// Vendor holds the per-vendor pieces of the shared protocol.
type Vendor struct {
	ID      string
	BaseURL string
	// Headers are sent in addition to the bearer auth header.
	Headers map[string]string
}

type Adapter struct {
	vendor Vendor
	apiKey string
	client *provider.Client
}

func New(vendor Vendor, apiKey string, httpClient *http.Client) *Adapter {
	return &Adapter{
		vendor: vendor,
		apiKey: apiKey,
		client: provider.NewClient(vendor.ID, httpClient),
	}
}

func NewOpenAI(apiKey string, httpClient *http.Client) *Adapter {
	return New(Vendor{ID: "openai", BaseURL: "https://api.openai.com/v1"}, apiKey, httpClient)
}

func NewGroq(apiKey string, httpClient *http.Client) *Adapter {
	return New(Vendor{ID: "groq", BaseURL: "https://api.groq.com/openai/v1"}, apiKey, httpClient)
}

func NewTogether(apiKey string, httpClient *http.Client) *Adapter {
	return New(Vendor{ID: "together", BaseURL: "https://api.together.xyz/v1"}, apiKey, httpClient)
}

func NewOpenRouter(apiKey string, httpClient *http.Client) *Adapter {
	return New(Vendor{
		ID:      "openrouter",
		BaseURL: "https://openrouter.ai/api/v1",
		Headers: map[string]string{
			"HTTP-Referer": "https://asgard.local",
			"X-Title":      "GIRU JARVIS",
		},
	}, apiKey, httpClient)
}

func (a *Adapter) ID() string { return a.vendor.ID }

func (a *Adapter) Available() bool { return a.apiKey != "" }

func (a *Adapter) Close() { a.client.Close() }

func (a *Adapter) headers() map[string]string {
	h := map[string]string{
		"Authorization": "Bearer " + a.apiKey,
	}
	for k, v := range a.vendor.Headers {
		h[k] = v
	}
	return h
}

func (a *Adapter) Chat(ctx context.Context, req provider.Request) (string, error) {
	body, err := a.client.PostJSON(ctx, a.vendor.BaseURL+"/chat/completions", a.headers(), toChatRequest(req, false))
	if err != nil {
		return "", err
	}

	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &domain.ParseError{Provider: a.ID(), Err: err}
	}

	if len(resp.Choices) == 0 {
		return "", &domain.ParseError{Provider: a.ID(), Field: "choices[0].message.content"}
	}
	return resp.Choices[0].Message.Content, nil
}

func (a *Adapter) ChatStream(ctx context.Context, req provider.Request) (<-chan string, <-chan error) {
	out := make(chan string)
	errs := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errs)

		body, err := a.client.OpenStream(ctx, a.vendor.BaseURL+"/chat/completions", a.headers(), toChatRequest(req, true))
		if err != nil {
			errs <- err
			return
		}

		a.client.StreamFrames(ctx, body, decodeFrame, out, errs)
	}()

	return out, errs
}

type chatRequest struct {
	Model       string           `json:"model"`
	MaxTokens   int              `json:"max_tokens"`
	Temperature float64          `json:"temperature"`
	Messages    []domain.Message `json:"messages"`
	Stream      bool             `json:"stream,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

func toChatRequest(req provider.Request, stream bool) chatRequest {
	messages := req.Messages
	// A system message is synthesized only when a prompt was supplied;
	// otherwise the array passes through unmodified.
	if req.SystemPrompt != "" {
		messages = make([]domain.Message, 0, len(req.Messages)+1)
		messages = append(messages, domain.Message{Role: domain.RoleSystem, Content: req.SystemPrompt})
		messages = append(messages, req.Messages...)
	}

	return chatRequest{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Messages:    messages,
		Stream:      stream,
	}
}

func decodeFrame(line string) (string, bool, error) {
	data, ok := provider.CutSSE(line)
	if !ok {
		return "", false, nil
	}

	if data == "[DONE]" {
		return "", true, nil
	}

	var chunk streamChunk
	if err := json.Unmarshal([]byte(data), &chunk); err != nil {
		return "", false, err
	}

	if len(chunk.Choices) == 0 {
		return "", false, nil
	}
	return chunk.Choices[0].Delta.Content, false, nil
}
