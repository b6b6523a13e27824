// Package ollama implements the local Ollama adapter. Ollama's
// generate endpoint takes a single flattened prompt string with
// role-labeled lines and a trailing Assistant: cue; streams are
// newline-delimited JSON objects carrying a response field.
package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/asgardlabs/giru/internal/domain"
	"github.com/asgardlabs/giru/internal/provider"
)

type Adapter struct {
	baseURL string
	client  *provider.Client
}

func New(baseURL string, httpClient *http.Client) *Adapter {
	return &Adapter{
		baseURL: baseURL,
		client:  provider.NewClient("ollama", httpClient),
	}
}

func (a *Adapter) ID() string { return "ollama" }

// Available is always true: Ollama needs no credentials, and whether
// the local daemon is running only shows up when a call is attempted.
func (a *Adapter) Available() bool { return true }

func (a *Adapter) Close() { a.client.Close() }

func (a *Adapter) Chat(ctx context.Context, req provider.Request) (string, error) {
	body, err := a.client.PostJSON(ctx, a.baseURL+"/api/generate", nil, toGenerateRequest(req, false))
	if err != nil {
		return "", err
	}

	var resp generateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &domain.ParseError{Provider: a.ID(), Err: err}
	}

	if resp.Response == nil {
		return "", &domain.ParseError{Provider: a.ID(), Field: "response"}
	}
	return *resp.Response, nil
}

func (a *Adapter) ChatStream(ctx context.Context, req provider.Request) (<-chan string, <-chan error) {
	out := make(chan string)
	errs := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errs)

		body, err := a.client.OpenStream(ctx, a.baseURL+"/api/generate", nil, toGenerateRequest(req, true))
		if err != nil {
			errs <- err
			return
		}

		a.client.StreamFrames(ctx, body, decodeFrame, out, errs)
	}()

	return out, errs
}

type generateRequest struct {
	Model   string  `json:"model"`
	Prompt  string  `json:"prompt"`
	Stream  bool    `json:"stream"`
	Options options `json:"options"`
}

type options struct {
	NumPredict  int     `json:"num_predict"`
	Temperature float64 `json:"temperature"`
}

type generateResponse struct {
	Response *string `json:"response"`
	Done     bool    `json:"done"`
}

// flattenPrompt renders the conversation as role-labeled lines. The
// system prompt becomes a leading System: line, and the trailing
// Assistant: cue asks the model to continue.
func flattenPrompt(req provider.Request) string {
	var b strings.Builder

	if req.SystemPrompt != "" {
		b.WriteString("System: ")
		b.WriteString(req.SystemPrompt)
		b.WriteString("\n\n")
	}

	for _, m := range req.Messages {
		b.WriteString(capitalize(m.Role))
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteString("\n")
	}

	b.WriteString("Assistant:")
	return b.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func toGenerateRequest(req provider.Request, stream bool) generateRequest {
	return generateRequest{
		Model:  req.Model,
		Prompt: flattenPrompt(req),
		Stream: stream,
		Options: options{
			NumPredict:  req.MaxTokens,
			Temperature: req.Temperature,
		},
	}
}

func decodeFrame(line string) (string, bool, error) {
	var resp generateResponse
	if err := json.Unmarshal([]byte(line), &resp); err != nil {
		return "", false, err
	}

	text := ""
	if resp.Response != nil {
		text = *resp.Response
	}
	return text, resp.Done, nil
}
