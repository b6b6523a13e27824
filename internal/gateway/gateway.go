// Package gateway is the fallback orchestrator. It resolves a model
// key against the catalog, walks a priority chain of candidates, and
// returns the first successful completion. Adapters never retry;
// resilience lives entirely in this package.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/asgardlabs/giru/internal/activity"
	"github.com/asgardlabs/giru/internal/catalog"
	"github.com/asgardlabs/giru/internal/domain"
	"github.com/asgardlabs/giru/internal/metrics"
	"github.com/asgardlabs/giru/internal/notifications"
	"github.com/asgardlabs/giru/internal/provider"
	"github.com/asgardlabs/giru/internal/telemetry"
	"github.com/asgardlabs/giru/internal/usage"
)

const defaultMaxTokens = 4096

// defaultPriority is the candidate order when the caller does not pin a
// model: fast free tiers first, paid escalation, local last resort.
var defaultPriority = []string{
	"groq-llama-3.3-70b",
	"groq-mixtral-8x7b",
	"together-llama-3.3-70b",
	"gemini-2.0-flash",
	"gpt-4o-mini",
	"claude-haiku-3.5",
	"gemini-2.5-pro",
	"gpt-4o",
	"claude-sonnet-4",
	"claude-opus-4",
	"ollama-llama3.2",
}

// localFallback replaces an empty chain so the gateway still answers
// when no remote provider has credentials.
var localFallback = []string{"ollama-llama3.2", "ollama-mistral"}

// Request is one chat call into the gateway. ModelKey pins a specific
// catalog entry; when empty the gateway selects one from Complexity.
type Request struct {
	Messages    []domain.Message
	ModelKey    string
	Complexity  string
	MaxTokens   int
	Temperature float64
}

// Result is a completed non-streaming call.
type Result struct {
	Text     string `json:"text"`
	ModelKey string `json:"model"`
}

// ModelInfo is one row of the public model listing.
type ModelInfo struct {
	Key       string       `json:"key"`
	Name      string       `json:"name"`
	Provider  string       `json:"provider"`
	Tier      catalog.Tier `json:"tier"`
	Available bool         `json:"available"`
	Free      bool         `json:"free"`
}

// Config wires the gateway's collaborators. Catalog defaults to the
// built-in registry; Usage, Activity and Notifier default to in-memory
// implementations so tests need no infrastructure.
type Config struct {
	Catalog  *catalog.Catalog
	Adapters map[string]provider.Adapter
	Priority []string
	Usage    usage.Recorder
	Activity activity.Publisher
	Notifier notifications.Notifier
}

type Gateway struct {
	catalog  *catalog.Catalog
	adapters map[string]provider.Adapter
	chain    []string

	recorder usage.Recorder
	activity activity.Publisher
	notifier notifications.Notifier

	lastModel atomic.Value
}

// New validates that every catalog descriptor names a registered
// adapter and builds the fallback chain from the configured priority,
// keeping only models whose adapter reports credentials.
func New(cfg Config) (*Gateway, error) {
	if cfg.Catalog == nil {
		cfg.Catalog = catalog.Default()
	}
	if len(cfg.Adapters) == 0 {
		return nil, fmt.Errorf("gateway: no adapters configured")
	}
	for _, key := range cfg.Catalog.Keys() {
		d, _ := cfg.Catalog.Lookup(key)
		if _, ok := cfg.Adapters[d.Provider]; !ok {
			return nil, fmt.Errorf("model %s: %w: %s", key, domain.ErrAdapterNotFound, d.Provider)
		}
	}

	if cfg.Usage == nil {
		cfg.Usage = usage.NewInMemoryRecorder()
	}
	if cfg.Activity == nil {
		cfg.Activity = activity.NewInMemoryPublisher()
	}
	if cfg.Notifier == nil {
		cfg.Notifier = notifications.NewInMemoryNotifier()
	}

	priority := cfg.Priority
	if len(priority) == 0 {
		priority = defaultPriority
	}

	g := &Gateway{
		catalog:  cfg.Catalog,
		adapters: cfg.Adapters,
		recorder: cfg.Usage,
		activity: cfg.Activity,
		notifier: cfg.Notifier,
	}
	g.chain = g.buildChain(priority)

	slog.Info("gateway initialized",
		"models", cfg.Catalog.Len(),
		"adapters", len(cfg.Adapters),
		"chain", g.chain,
	)

	return g, nil
}

// buildChain filters the priority list down to models that exist in the
// catalog and whose adapter has credentials. An empty result falls back
// to the local pair.
func (g *Gateway) buildChain(priority []string) []string {
	chain := make([]string, 0, len(priority))
	for _, key := range priority {
		d, ok := g.catalog.Lookup(key)
		if !ok {
			continue
		}
		ad, ok := g.adapters[d.Provider]
		if !ok || !ad.Available() {
			continue
		}
		chain = append(chain, key)
	}
	if len(chain) == 0 {
		return append([]string(nil), localFallback...)
	}
	return chain
}

// Chain returns the active fallback chain.
func (g *Gateway) Chain() []string {
	return append([]string(nil), g.chain...)
}

// LastModel returns the key of the model that most recently produced
// output, or "" if none has yet.
func (g *Gateway) LastModel() string {
	if v := g.lastModel.Load(); v != nil {
		return v.(string)
	}
	return ""
}

// SelectModelForTier returns the first chain entry whose descriptor
// matches the tier, the chain head when none matches, or the local
// default when the chain is somehow empty.
func (g *Gateway) SelectModelForTier(tier catalog.Tier) string {
	for _, key := range g.chain {
		if d, ok := g.catalog.Lookup(key); ok && d.Tier == tier {
			return key
		}
	}
	if len(g.chain) > 0 {
		return g.chain[0]
	}
	return localFallback[0]
}

// SelectModelForTask maps a complexity label to a tier and picks a model.
func (g *Gateway) SelectModelForTask(complexity string) string {
	return g.SelectModelForTier(TierFromComplexity(complexity))
}

// AvailableModels lists every catalog entry with its current
// availability, sorted by key for stable output.
func (g *Gateway) AvailableModels() []ModelInfo {
	keys := g.catalog.Keys()
	sort.Strings(keys)

	models := make([]ModelInfo, 0, len(keys))
	for _, key := range keys {
		d, _ := g.catalog.Lookup(key)
		ad, ok := g.adapters[d.Provider]
		models = append(models, ModelInfo{
			Key:       key,
			Name:      d.DisplayName,
			Provider:  d.Provider,
			Tier:      d.Tier,
			Available: ok && ad.Available(),
			Free:      d.Free(),
		})
	}
	return models
}

// candidates returns the attempt order for one call: the pinned or
// selected model first, then the rest of the chain without duplicates.
func (g *Gateway) candidates(req Request) []string {
	first := req.ModelKey
	if first == "" {
		first = g.SelectModelForTask(req.Complexity)
	}
	out := make([]string, 0, len(g.chain)+1)
	out = append(out, first)
	for _, key := range g.chain {
		if key != first {
			out = append(out, key)
		}
	}
	return out
}

// resolve maps a model key to its descriptor and a usable adapter.
// Unknown keys and adapters without credentials are skipped silently;
// the chain moves on.
func (g *Gateway) resolve(key string) (catalog.Descriptor, provider.Adapter, bool) {
	d, ok := g.catalog.Lookup(key)
	if !ok {
		return catalog.Descriptor{}, nil, false
	}
	ad, ok := g.adapters[d.Provider]
	if !ok || !ad.Available() {
		return catalog.Descriptor{}, nil, false
	}
	return d, ad, true
}

func clampTokens(requested, limit int) int {
	if requested <= 0 {
		requested = defaultMaxTokens
	}
	if requested > limit {
		return limit
	}
	return requested
}

func (g *Gateway) providerRequest(req Request, d catalog.Descriptor) provider.Request {
	return provider.Request{
		Messages:     req.Messages,
		Model:        d.ModelID,
		MaxTokens:    clampTokens(req.MaxTokens, d.MaxTokens),
		Temperature:  req.Temperature,
		SystemPrompt: personaPrompt,
	}
}

// record reports one attempt to the usage recorder. Token counts stay
// zero; vendors do not disclose them on every path and accounting must
// not depend on them. Recording failures never fail the call.
func (g *Gateway) record(ctx context.Context, key string, latency time.Duration, isError bool) {
	attempt := usage.Attempt{
		ModelKey:  key,
		LatencyMs: latency.Milliseconds(),
		IsError:   isError,
		Timestamp: time.Now(),
	}
	if err := g.recorder.Record(ctx, attempt); err != nil {
		slog.Warn("usage record failed", "model", key, "error", err)
	}
}

func (g *Gateway) publish(ctx context.Context, event activity.Event) {
	if err := g.activity.Publish(ctx, event); err != nil {
		slog.Warn("activity publish failed", "type", event.Type, "error", err)
	}
}

func (g *Gateway) notifyExhausted(ctx context.Context, lastErr error) {
	n := notifications.Notification{
		Type:    notifications.NotificationProvidersExhausted,
		Message: "every candidate model failed",
	}
	if lastErr != nil {
		n.Data = map[string]string{"last_error": lastErr.Error()}
	}
	if err := g.notifier.Send(ctx, n); err != nil {
		slog.Warn("exhausted notification failed", "error", err)
	}
}

// Chat walks the candidate chain and returns the first successful
// completion. Context cancellation aborts the walk; candidate failures
// advance it. When every candidate fails the caller gets an
// ExhaustedError wrapping the final failure.
func (g *Gateway) Chat(ctx context.Context, req Request) (Result, error) {
	ctx, span := telemetry.StartSpan(ctx, "gateway.chat")
	defer span.End()

	actID := activity.NewID()
	g.publish(ctx, activity.Event{
		ActivityID:  actID,
		Type:        activity.EventStarted,
		Kind:        "conversation",
		Description: "Generating AI response",
		Detail:      map[string]string{"message_count": strconv.Itoa(len(req.Messages))},
		Timestamp:   time.Now(),
	})

	var lastErr error
	for i, key := range g.candidates(req) {
		d, ad, ok := g.resolve(key)
		if !ok {
			continue
		}

		start := time.Now()
		text, err := ad.Chat(ctx, g.providerRequest(req, d))
		latency := time.Since(start)

		g.record(ctx, key, latency, err != nil)
		telemetry.AddAttemptAttributes(span, d.Provider, key, i+1)

		if err != nil {
			metrics.RecordAttempt(d.Provider, key, "error", latency.Seconds())
			// The caller's context decides aborts; a vendor-side timeout
			// inside the attempt is just another candidate failure.
			if ctx.Err() != nil || !domain.IsCandidateFailure(err) {
				g.publishFailed(ctx, actID, err)
				return Result{}, err
			}
			lastErr = err
			metrics.RecordFallback(key)
			slog.Warn("model attempt failed, advancing chain",
				"model", key, "provider", d.Provider, "error", err)
			continue
		}

		metrics.RecordAttempt(d.Provider, key, "success", latency.Seconds())
		g.lastModel.Store(key)
		g.publish(ctx, activity.Event{
			ActivityID:  actID,
			Type:        activity.EventCompleted,
			Kind:        "conversation",
			Description: "AI response generated",
			Detail: map[string]string{
				"model":      key,
				"latency_ms": strconv.FormatInt(latency.Milliseconds(), 10),
			},
			Timestamp: time.Now(),
		})
		return Result{Text: text, ModelKey: key}, nil
	}

	metrics.RecordExhausted()
	g.notifyExhausted(ctx, lastErr)
	err := &domain.ExhaustedError{LastErr: lastErr}
	telemetry.AddErrorAttribute(span, err)
	g.publishFailed(ctx, actID, err)
	return Result{}, err
}

func (g *Gateway) publishFailed(ctx context.Context, actID string, err error) {
	g.publish(ctx, activity.Event{
		ActivityID:  actID,
		Type:        activity.EventFailed,
		Kind:        "conversation",
		Description: "AI response failed",
		Detail:      map[string]string{"error": err.Error()},
		Timestamp:   time.Now(),
	})
}

// ChatStream walks the candidate chain like Chat, but the failover
// window closes once a candidate emits its first increment: output the
// consumer has already seen cannot be retracted, so later errors on the
// same candidate propagate instead of advancing the chain. When every
// candidate fails before emitting, a single apology increment tagged
// with the reserved fallback key is sent and the stream closes cleanly.
func (g *Gateway) ChatStream(ctx context.Context, req Request) (<-chan domain.Delta, <-chan error) {
	out := make(chan domain.Delta)
	errs := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errs)

		metrics.IncActiveStreams()
		defer metrics.DecActiveStreams()

		ctx, span := telemetry.StartSpan(ctx, "gateway.chat_stream")
		defer span.End()

		actID := activity.NewID()
		g.publish(ctx, activity.Event{
			ActivityID:  actID,
			Type:        activity.EventStarted,
			Kind:        "conversation",
			Description: "Streaming AI response",
			Detail:      map[string]string{"message_count": strconv.Itoa(len(req.Messages))},
			Timestamp:   time.Now(),
		})

		var lastErr error
		for i, key := range g.candidates(req) {
			d, ad, ok := g.resolve(key)
			if !ok {
				continue
			}

			start := time.Now()
			chunks, aerrs := ad.ChatStream(ctx, g.providerRequest(req, d))
			telemetry.AddAttemptAttributes(span, d.Provider, key, i+1)

			emitted := false
			for text := range chunks {
				if !emitted {
					emitted = true
					g.lastModel.Store(key)
				}
				select {
				case out <- domain.Delta{Text: text, ModelKey: key}:
				case <-ctx.Done():
					// Adapter goroutines observe the same context and
					// unwind on their own.
					return
				}
			}
			latency := time.Since(start)

			// Both adapter channels are closed now; a buffered error, if
			// any, is still receivable.
			attemptErr := <-aerrs

			if attemptErr != nil {
				g.record(ctx, key, latency, true)
				metrics.RecordAttempt(d.Provider, key, "error", latency.Seconds())
				if emitted || ctx.Err() != nil || !domain.IsCandidateFailure(attemptErr) {
					telemetry.AddErrorAttribute(span, attemptErr)
					g.publishFailed(ctx, actID, attemptErr)
					errs <- attemptErr
					return
				}
				lastErr = attemptErr
				metrics.RecordFallback(key)
				slog.Warn("stream attempt failed, advancing chain",
					"model", key, "provider", d.Provider, "error", attemptErr)
				continue
			}

			// Clean close, even with zero increments, is success.
			g.record(ctx, key, latency, false)
			metrics.RecordAttempt(d.Provider, key, "success", latency.Seconds())
			g.publish(ctx, activity.Event{
				ActivityID:  actID,
				Type:        activity.EventCompleted,
				Kind:        "conversation",
				Description: "AI response streamed",
				Detail: map[string]string{
					"model":      key,
					"latency_ms": strconv.FormatInt(latency.Milliseconds(), 10),
				},
				Timestamp: time.Now(),
			})
			return
		}

		metrics.RecordExhausted()
		g.notifyExhausted(ctx, lastErr)
		g.publish(ctx, activity.Event{
			ActivityID:  actID,
			Type:        activity.EventFailed,
			Kind:        "conversation",
			Description: "AI response failed, apologizing",
			Timestamp:   time.Now(),
		})
		select {
		case out <- domain.Delta{Text: apologyText, ModelKey: FallbackModelKey}:
		case <-ctx.Done():
		}
	}()

	return out, errs
}

// Close releases every adapter's pooled connections.
func (g *Gateway) Close() {
	for _, ad := range g.adapters {
		ad.Close()
	}
}
