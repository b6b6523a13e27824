// Package provider defines the uniform capability set every vendor
// adapter implements, plus the HTTP and stream scaffolding shared by
// all of them. Per-vendor packages contribute only the differing
// pieces: endpoint, auth headers, request-body mapping, and
// response/stream-frame parsing.
package provider

import (
	"context"

	"github.com/asgardlabs/giru/internal/domain"
)

// Request carries one chat call to a vendor. Model is the
// vendor-facing identifier from the catalog, already clamped and
// resolved by the gateway.
type Request struct {
	Messages     []domain.Message
	Model        string
	MaxTokens    int
	Temperature  float64
	SystemPrompt string
}

// Adapter translates the uniform chat contract into one vendor's wire
// protocol. Adapters never retry; retries happen only at the gateway
// level across different candidate models.
type Adapter interface {
	// ID returns the provider id descriptors reference.
	ID() string

	// Available is a local credential check; it performs no network call.
	Available() bool

	// Chat performs a single-shot completion and returns the generated
	// text. Failures are typed: domain.TransportError on connection
	// failure, domain.ProtocolError on a non-success response,
	// domain.ParseError when the success path is missing expected fields.
	Chat(ctx context.Context, req Request) (string, error)

	// ChatStream starts a streaming completion. Text increments arrive
	// on the first channel; at most one error arrives on the second.
	// Both channels are closed when the stream ends. Individual
	// malformed frames are skipped (and counted); a full connection
	// failure is reported on the error channel.
	ChatStream(ctx context.Context, req Request) (<-chan string, <-chan error)

	// Close releases pooled connections held by the adapter.
	Close()
}
