package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/asgardlabs/giru/internal/domain"
	"github.com/asgardlabs/giru/internal/metrics"
)

// Client wraps the shared HTTP client with the request/response and
// stream plumbing common to every vendor family.
type Client struct {
	id   string
	http *http.Client
}

func NewClient(id string, httpClient *http.Client) *Client {
	return &Client{id: id, http: httpClient}
}

func (c *Client) ID() string { return c.id }

// Close drains idle pooled connections.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

// PostJSON sends payload and returns the raw response body. Errors are
// mapped onto the gateway taxonomy.
func (c *Client) PostJSON(ctx context.Context, url string, headers map[string]string, payload any) ([]byte, error) {
	resp, err := c.post(ctx, url, headers, payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.TransportError{Provider: c.id, Err: err}
	}
	return body, nil
}

// OpenStream sends payload and hands back the response body for frame
// reading. The caller owns closing it.
func (c *Client) OpenStream(ctx context.Context, url string, headers map[string]string, payload any) (io.ReadCloser, error) {
	resp, err := c.post(ctx, url, headers, payload)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (c *Client) post(ctx context.Context, url string, headers map[string]string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &domain.TransportError{Provider: c.id, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, &domain.ProtocolError{Provider: c.id, Status: resp.StatusCode, Body: string(errBody)}
	}

	return resp, nil
}

// FrameDecoder extracts a text increment from one stream line. A
// non-nil error marks the frame undecodable: it is counted and
// skipped, never surfaced to the caller. done ends the stream.
type FrameDecoder func(line string) (text string, done bool, err error)

// StreamFrames reads body line by line, decoding frames and emitting
// non-empty text increments on out until the stream ends, the decoder
// signals done, or ctx is cancelled. A read failure mid-stream is
// reported on errs as a transport error.
func (c *Client) StreamFrames(ctx context.Context, body io.ReadCloser, decode FrameDecoder, out chan<- string, errs chan<- error) {
	defer body.Close()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		text, done, err := decode(line)
		if err != nil {
			metrics.RecordSkippedFrame(c.id)
			continue
		}

		if text != "" {
			select {
			case out <- text:
			case <-ctx.Done():
				return
			}
		}

		if done {
			return
		}
	}

	if err := scanner.Err(); err != nil {
		errs <- &domain.TransportError{Provider: c.id, Err: err}
	}
}

// CutSSE splits an SSE line into its data payload. Lines that are not
// data lines (event names, comments, heartbeats) return "" and ok=false.
func CutSSE(line string) (string, bool) {
	data, ok := strings.CutPrefix(line, "data: ")
	if !ok {
		return "", false
	}
	return data, true
}
