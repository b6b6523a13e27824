// Package gemini implements the Google Gemini adapter. Gemini is
// turn-based: history maps onto a contents array of role/parts pairs,
// the system prompt travels in a separate top-level field, and streams
// arrive as newline-delimited JSON objects rather than SSE.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/asgardlabs/giru/internal/domain"
	"github.com/asgardlabs/giru/internal/provider"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

type Adapter struct {
	apiKey  string
	baseURL string
	client  *provider.Client
}

func New(apiKey string, httpClient *http.Client) *Adapter {
	return &Adapter{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		client:  provider.NewClient("google", httpClient),
	}
}

func (a *Adapter) ID() string { return "google" }

func (a *Adapter) Available() bool { return a.apiKey != "" }

func (a *Adapter) Close() { a.client.Close() }

func (a *Adapter) Chat(ctx context.Context, req provider.Request) (string, error) {
	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", a.baseURL, req.Model, a.apiKey)

	body, err := a.client.PostJSON(ctx, url, nil, toGenerateRequest(req))
	if err != nil {
		return "", err
	}

	var resp generateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &domain.ParseError{Provider: a.ID(), Err: err}
	}

	text, ok := resp.text()
	if !ok {
		return "", &domain.ParseError{Provider: a.ID(), Field: "candidates[0].content.parts[0].text"}
	}
	return text, nil
}

func (a *Adapter) ChatStream(ctx context.Context, req provider.Request) (<-chan string, <-chan error) {
	out := make(chan string)
	errs := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errs)

		url := fmt.Sprintf("%s/models/%s:streamGenerateContent?key=%s", a.baseURL, req.Model, a.apiKey)

		body, err := a.client.OpenStream(ctx, url, nil, toGenerateRequest(req))
		if err != nil {
			errs <- err
			return
		}

		a.client.StreamFrames(ctx, body, decodeFrame, out, errs)
	}()

	return out, errs
}

type generateRequest struct {
	Contents          []content        `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens"`
	Temperature     float64 `json:"temperature"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

func (r generateResponse) text() (string, bool) {
	if len(r.Candidates) == 0 || len(r.Candidates[0].Content.Parts) == 0 {
		return "", false
	}
	return r.Candidates[0].Content.Parts[0].Text, true
}

func toGenerateRequest(req provider.Request) generateRequest {
	contents := make([]content, 0, len(req.Messages))
	for _, m := range req.Messages {
		// Gemini knows only two turn roles.
		role := "model"
		if m.Role == domain.RoleUser {
			role = "user"
		}
		contents = append(contents, content{
			Role:  role,
			Parts: []part{{Text: m.Content}},
		})
	}

	out := generateRequest{
		Contents: contents,
		GenerationConfig: generationConfig{
			MaxOutputTokens: req.MaxTokens,
			Temperature:     req.Temperature,
		},
	}

	if req.SystemPrompt != "" {
		out.SystemInstruction = &content{Parts: []part{{Text: req.SystemPrompt}}}
	}

	return out
}

func decodeFrame(line string) (string, bool, error) {
	var resp generateResponse
	if err := json.Unmarshal([]byte(line), &resp); err != nil {
		return "", false, err
	}
	text, _ := resp.text()
	return text, false, nil
}
