package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/asgardlabs/giru/internal/activity"
	"github.com/asgardlabs/giru/internal/catalog"
	"github.com/asgardlabs/giru/internal/domain"
	"github.com/asgardlabs/giru/internal/notifications"
	"github.com/asgardlabs/giru/internal/provider"
	"github.com/asgardlabs/giru/internal/usage"
)

type fakeAdapter struct {
	mu        sync.Mutex
	id        string
	available bool
	closed    bool
	requests  []provider.Request

	chatFn   func(req provider.Request) (string, error)
	streamFn func(req provider.Request) ([]string, error)
}

func (f *fakeAdapter) ID() string      { return f.id }
func (f *fakeAdapter) Available() bool { return f.available }
func (f *fakeAdapter) Close()          { f.closed = true }

func (f *fakeAdapter) record(req provider.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
}

func (f *fakeAdapter) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeAdapter) lastRequest() provider.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return provider.Request{}
	}
	return f.requests[len(f.requests)-1]
}

func (f *fakeAdapter) Chat(ctx context.Context, req provider.Request) (string, error) {
	f.record(req)
	if f.chatFn == nil {
		return "ok", nil
	}
	return f.chatFn(req)
}

func (f *fakeAdapter) ChatStream(ctx context.Context, req provider.Request) (<-chan string, <-chan error) {
	f.record(req)

	out := make(chan string)
	errs := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errs)

		var chunks []string
		var err error
		if f.streamFn != nil {
			chunks, err = f.streamFn(req)
		}
		for _, c := range chunks {
			select {
			case out <- c:
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			errs <- err
		}
	}()

	return out, errs
}

func transportErr(provider string) error {
	return &domain.TransportError{Provider: provider, Err: errors.New("connection refused")}
}

func newTestCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New(map[string]catalog.Descriptor{
		"alpha-fast": {
			Provider: "alpha", ModelID: "alpha-fast-1", DisplayName: "Alpha Fast",
			Tier: catalog.TierStandard, MaxTokens: 4096,
		},
		"beta-big": {
			Provider: "beta", ModelID: "beta-big-1", DisplayName: "Beta Big",
			Tier: catalog.TierExpert, MaxTokens: 8192,
			CostPer1KInput: 0.003, CostPer1KOutput: 0.015,
		},
		"gamma-local": {
			Provider: "gamma", ModelID: "gamma-local-1", DisplayName: "Gamma Local",
			Tier: catalog.TierBasic, MaxTokens: 2048,
		},
	})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	return c
}

var testPriority = []string{"alpha-fast", "beta-big", "gamma-local"}

type testEnv struct {
	gateway  *Gateway
	alpha    *fakeAdapter
	beta     *fakeAdapter
	gamma    *fakeAdapter
	recorder *usage.InMemoryRecorder
	notifier *notifications.InMemoryNotifier
	events   *activity.InMemoryPublisher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		alpha:    &fakeAdapter{id: "alpha", available: true},
		beta:     &fakeAdapter{id: "beta", available: true},
		gamma:    &fakeAdapter{id: "gamma", available: true},
		recorder: usage.NewInMemoryRecorder(),
		notifier: notifications.NewInMemoryNotifier(),
		events:   activity.NewInMemoryPublisher(),
	}

	g, err := New(Config{
		Catalog: newTestCatalog(t),
		Adapters: map[string]provider.Adapter{
			"alpha": env.alpha,
			"beta":  env.beta,
			"gamma": env.gamma,
		},
		Priority: testPriority,
		Usage:    env.recorder,
		Activity: env.events,
		Notifier: env.notifier,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	env.gateway = g
	return env
}

func userMessage(text string) []domain.Message {
	return []domain.Message{{Role: domain.RoleUser, Content: text}}
}

func collect(t *testing.T, chunks <-chan domain.Delta, errs <-chan error) ([]domain.Delta, error) {
	t.Helper()
	var deltas []domain.Delta
	for d := range chunks {
		deltas = append(deltas, d)
	}
	return deltas, <-errs
}

func TestNew_RejectsUnknownProvider(t *testing.T) {
	_, err := New(Config{
		Catalog: newTestCatalog(t),
		Adapters: map[string]provider.Adapter{
			"alpha": &fakeAdapter{id: "alpha", available: true},
		},
	})
	if !errors.Is(err, domain.ErrAdapterNotFound) {
		t.Fatalf("expected ErrAdapterNotFound, got %v", err)
	}
}

func TestChat_FirstCandidateSucceeds(t *testing.T) {
	env := newTestEnv(t)
	env.alpha.chatFn = func(req provider.Request) (string, error) {
		return "As you wish, Sir.", nil
	}

	res, err := env.gateway.Chat(context.Background(), Request{Messages: userMessage("hello")})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if res.Text != "As you wish, Sir." {
		t.Errorf("unexpected text %q", res.Text)
	}
	if res.ModelKey != "alpha-fast" {
		t.Errorf("expected alpha-fast, got %q", res.ModelKey)
	}
	if env.beta.calls() != 0 || env.gamma.calls() != 0 {
		t.Error("later candidates should not be invoked after a success")
	}
	if env.gateway.LastModel() != "alpha-fast" {
		t.Errorf("LastModel = %q", env.gateway.LastModel())
	}
}

func TestChat_FallsBackUntilSuccess(t *testing.T) {
	env := newTestEnv(t)
	env.alpha.chatFn = func(req provider.Request) (string, error) {
		return "", transportErr("alpha")
	}
	env.beta.chatFn = func(req provider.Request) (string, error) {
		return "", &domain.ProtocolError{Provider: "beta", Status: 500, Body: "oops"}
	}
	env.gamma.chatFn = func(req provider.Request) (string, error) {
		return "recovered", nil
	}

	res, err := env.gateway.Chat(context.Background(), Request{Messages: userMessage("hello")})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if res.ModelKey != "gamma-local" {
		t.Errorf("expected gamma-local, got %q", res.ModelKey)
	}
	if env.alpha.calls() != 1 || env.beta.calls() != 1 || env.gamma.calls() != 1 {
		t.Errorf("each candidate should be invoked exactly once, got %d/%d/%d",
			env.alpha.calls(), env.beta.calls(), env.gamma.calls())
	}

	attempts := env.recorder.Attempts()
	if len(attempts) != 3 {
		t.Fatalf("expected 3 usage attempts, got %d", len(attempts))
	}
	if !attempts[0].IsError || !attempts[1].IsError || attempts[2].IsError {
		t.Error("attempt error flags do not match outcomes")
	}
}

func TestChat_Exhausted(t *testing.T) {
	env := newTestEnv(t)
	fail := func(req provider.Request) (string, error) {
		return "", transportErr("x")
	}
	env.alpha.chatFn, env.beta.chatFn, env.gamma.chatFn = fail, fail, fail

	_, err := env.gateway.Chat(context.Background(), Request{Messages: userMessage("hello")})

	var exhausted *domain.ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected ExhaustedError, got %v", err)
	}
	if exhausted.LastErr == nil {
		t.Error("ExhaustedError should wrap the final failure")
	}

	sent := env.notifier.Notifications()
	if len(sent) != 1 || sent[0].Type != notifications.NotificationProvidersExhausted {
		t.Errorf("expected one providers_exhausted notification, got %+v", sent)
	}
}

// vendorTimeoutErr mirrors what the shared http.Client produces when a
// vendor accepts the connection but never answers: a transport error
// whose chain reaches context.DeadlineExceeded.
func vendorTimeoutErr(provider string) error {
	return &domain.TransportError{
		Provider: provider,
		Err:      fmt.Errorf("awaiting headers: %w", context.DeadlineExceeded),
	}
}

func TestChat_VendorTimeoutAdvancesChain(t *testing.T) {
	env := newTestEnv(t)
	env.alpha.chatFn = func(req provider.Request) (string, error) {
		return "", vendorTimeoutErr("alpha")
	}
	env.beta.chatFn = func(req provider.Request) (string, error) {
		return "backup answer", nil
	}

	res, err := env.gateway.Chat(context.Background(), Request{Messages: userMessage("hello")})
	if err != nil {
		t.Fatalf("vendor timeout must not leak to the caller, got %v", err)
	}
	if res.ModelKey != "beta-big" || res.Text != "backup answer" {
		t.Errorf("expected failover to beta-big, got %+v", res)
	}
	if env.alpha.calls() != 1 || env.beta.calls() != 1 {
		t.Errorf("each candidate should be invoked exactly once, got %d/%d",
			env.alpha.calls(), env.beta.calls())
	}
}

func TestChatStream_VendorTimeoutAdvancesChain(t *testing.T) {
	env := newTestEnv(t)
	env.alpha.streamFn = func(req provider.Request) ([]string, error) {
		return nil, vendorTimeoutErr("alpha")
	}
	env.beta.streamFn = func(req provider.Request) ([]string, error) {
		return []string{"saved"}, nil
	}

	chunks, errs := env.gateway.ChatStream(context.Background(), Request{Messages: userMessage("hello")})
	deltas, err := collect(t, chunks, errs)
	if err != nil {
		t.Fatalf("vendor timeout must not leak to the caller, got %v", err)
	}
	if len(deltas) != 1 || deltas[0].ModelKey != "beta-big" || deltas[0].Text != "saved" {
		t.Errorf("expected failover to beta-big, got %+v", deltas)
	}
}

func TestChat_ContextCancellationAborts(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	env.alpha.chatFn = func(req provider.Request) (string, error) {
		cancel()
		return "", ctx.Err()
	}

	_, err := env.gateway.Chat(ctx, Request{Messages: userMessage("hello")})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if env.beta.calls() != 0 {
		t.Error("cancellation must not advance the chain")
	}
}

func TestChat_ClampsMaxTokens(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.gateway.Chat(context.Background(), Request{
		Messages:  userMessage("hello"),
		ModelKey:  "alpha-fast",
		MaxTokens: 100000,
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if got := env.alpha.lastRequest().MaxTokens; got != 4096 {
		t.Errorf("expected clamp to 4096, got %d", got)
	}

	_, err = env.gateway.Chat(context.Background(), Request{
		Messages: userMessage("hello"),
		ModelKey: "beta-big",
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if got := env.beta.lastRequest().MaxTokens; got != 4096 {
		t.Errorf("expected default 4096 under the model limit, got %d", got)
	}

	_, err = env.gateway.Chat(context.Background(), Request{
		Messages: userMessage("hello"),
		ModelKey: "gamma-local",
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if got := env.gamma.lastRequest().MaxTokens; got != 2048 {
		t.Errorf("expected clamp to 2048, got %d", got)
	}
}

func TestChat_InjectsPersonaPrompt(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.gateway.Chat(context.Background(), Request{Messages: userMessage("hello")})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	prompt := env.alpha.lastRequest().SystemPrompt
	if !strings.Contains(prompt, "GIRU") || !strings.Contains(prompt, "ASGARD") {
		t.Error("persona prompt missing from the provider request")
	}
}

func TestChat_PinnedModelLeadsWithoutDuplicate(t *testing.T) {
	env := newTestEnv(t)
	fail := func(req provider.Request) (string, error) {
		return "", transportErr("x")
	}
	env.alpha.chatFn, env.beta.chatFn, env.gamma.chatFn = fail, fail, fail

	_, _ = env.gateway.Chat(context.Background(), Request{
		Messages: userMessage("hello"),
		ModelKey: "beta-big",
	})

	if env.beta.calls() != 1 {
		t.Errorf("pinned model must be attempted exactly once, got %d", env.beta.calls())
	}
	if env.alpha.calls() != 1 || env.gamma.calls() != 1 {
		t.Error("remaining chain entries should still be attempted")
	}
}

func TestBuildChain_SkipsUnavailableAdapters(t *testing.T) {
	env := newTestEnv(t)
	env.beta.available = false

	g, err := New(Config{
		Catalog: newTestCatalog(t),
		Adapters: map[string]provider.Adapter{
			"alpha": env.alpha,
			"beta":  env.beta,
			"gamma": env.gamma,
		},
		Priority: testPriority,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	chain := g.Chain()
	for _, key := range chain {
		if key == "beta-big" {
			t.Error("chain must not contain models from unavailable adapters")
		}
	}
}

func TestBuildChain_EmptyFallsBackToLocalPair(t *testing.T) {
	env := newTestEnv(t)
	env.alpha.available = false
	env.beta.available = false
	env.gamma.available = false

	g, err := New(Config{
		Catalog: newTestCatalog(t),
		Adapters: map[string]provider.Adapter{
			"alpha": env.alpha,
			"beta":  env.beta,
			"gamma": env.gamma,
		},
		Priority: testPriority,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	chain := g.Chain()
	if len(chain) != 2 || chain[0] != "ollama-llama3.2" || chain[1] != "ollama-mistral" {
		t.Errorf("expected local fallback pair, got %v", chain)
	}

	// None of the local keys exists in this catalog, so the chain
	// exhausts without a single adapter call.
	_, err = g.Chat(context.Background(), Request{Messages: userMessage("hello")})
	var exhausted *domain.ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected ExhaustedError, got %v", err)
	}
	if env.alpha.calls()+env.beta.calls()+env.gamma.calls() != 0 {
		t.Error("no adapter should be contacted when everything is unavailable")
	}
}

func TestSelectModelForTier(t *testing.T) {
	env := newTestEnv(t)

	if got := env.gateway.SelectModelForTier(catalog.TierExpert); got != "beta-big" {
		t.Errorf("expert tier: got %q", got)
	}
	if got := env.gateway.SelectModelForTier(catalog.TierBasic); got != "gamma-local" {
		t.Errorf("basic tier: got %q", got)
	}
	// No advanced model registered; fall back to the chain head.
	if got := env.gateway.SelectModelForTier(catalog.TierAdvanced); got != "alpha-fast" {
		t.Errorf("advanced tier: got %q", got)
	}
}

func TestSelectModelForTier_TwoStandardOneExpert(t *testing.T) {
	cat, err := catalog.New(map[string]catalog.Descriptor{
		"std-a":    {Provider: "alpha", ModelID: "a", Tier: catalog.TierStandard, MaxTokens: 4096},
		"std-b":    {Provider: "alpha", ModelID: "b", Tier: catalog.TierStandard, MaxTokens: 4096},
		"expert-c": {Provider: "alpha", ModelID: "c", Tier: catalog.TierExpert, MaxTokens: 8192},
	})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}

	g, err := New(Config{
		Catalog:  cat,
		Adapters: map[string]provider.Adapter{"alpha": &fakeAdapter{id: "alpha", available: true}},
		Priority: []string{"std-a", "std-b", "expert-c"},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if got := g.SelectModelForTier(catalog.TierExpert); got != "expert-c" {
		t.Errorf("expert tier: got %q, want expert-c", got)
	}
	// No basic-tier member; the chain head stands in.
	if got := g.SelectModelForTier(catalog.TierBasic); got != "std-a" {
		t.Errorf("basic tier: got %q, want std-a", got)
	}
}

func TestChat_ComplexitySelectsTier(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.gateway.Chat(context.Background(), Request{
		Messages:   userMessage("hello"),
		Complexity: "expert",
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if env.beta.calls() != 1 {
		t.Error("expert complexity should route to the expert-tier model")
	}
	if env.alpha.calls() != 0 {
		t.Error("standard model should not be attempted before the selected one")
	}
}

func TestChatStream_Success(t *testing.T) {
	env := newTestEnv(t)
	env.alpha.streamFn = func(req provider.Request) ([]string, error) {
		return []string{"Hi", " there"}, nil
	}

	chunks, errs := env.gateway.ChatStream(context.Background(), Request{Messages: userMessage("hello")})
	deltas, err := collect(t, chunks, errs)
	if err != nil {
		t.Fatalf("stream error: %v", err)
	}
	if len(deltas) != 2 {
		t.Fatalf("expected 2 deltas, got %d", len(deltas))
	}
	if deltas[0].Text != "Hi" || deltas[1].Text != " there" {
		t.Errorf("unexpected deltas %+v", deltas)
	}
	for _, d := range deltas {
		if d.ModelKey != "alpha-fast" {
			t.Errorf("delta tagged %q, want alpha-fast", d.ModelKey)
		}
	}
	if env.gateway.LastModel() != "alpha-fast" {
		t.Errorf("LastModel = %q", env.gateway.LastModel())
	}
}

func TestChatStream_FailoverBeforeFirstIncrement(t *testing.T) {
	env := newTestEnv(t)
	env.alpha.streamFn = func(req provider.Request) ([]string, error) {
		return nil, transportErr("alpha")
	}
	env.beta.streamFn = func(req provider.Request) ([]string, error) {
		return []string{"saved"}, nil
	}

	chunks, errs := env.gateway.ChatStream(context.Background(), Request{Messages: userMessage("hello")})
	deltas, err := collect(t, chunks, errs)
	if err != nil {
		t.Fatalf("stream error: %v", err)
	}
	if len(deltas) != 1 || deltas[0].Text != "saved" || deltas[0].ModelKey != "beta-big" {
		t.Errorf("unexpected deltas %+v", deltas)
	}
}

func TestChatStream_ErrorAfterFirstIncrementPropagates(t *testing.T) {
	env := newTestEnv(t)
	env.alpha.streamFn = func(req provider.Request) ([]string, error) {
		return []string{"partial"}, transportErr("alpha")
	}

	chunks, errs := env.gateway.ChatStream(context.Background(), Request{Messages: userMessage("hello")})
	deltas, err := collect(t, chunks, errs)
	if err == nil {
		t.Fatal("expected the mid-stream error to propagate")
	}
	if len(deltas) != 1 || deltas[0].Text != "partial" {
		t.Errorf("unexpected deltas %+v", deltas)
	}
	if env.beta.calls() != 0 {
		t.Error("chain must not advance after output was already emitted")
	}
}

func TestChatStream_ApologyWhenExhausted(t *testing.T) {
	env := newTestEnv(t)
	fail := func(req provider.Request) ([]string, error) {
		return nil, transportErr("x")
	}
	env.alpha.streamFn, env.beta.streamFn, env.gamma.streamFn = fail, fail, fail

	chunks, errs := env.gateway.ChatStream(context.Background(), Request{Messages: userMessage("hello")})
	deltas, err := collect(t, chunks, errs)
	if err != nil {
		t.Fatalf("apology path must not surface an error, got %v", err)
	}
	if len(deltas) != 1 {
		t.Fatalf("expected exactly one apology delta, got %d", len(deltas))
	}
	if deltas[0].Text != apologyText || deltas[0].ModelKey != FallbackModelKey {
		t.Errorf("unexpected apology delta %+v", deltas[0])
	}
}

func TestChatStream_EmptyCleanStreamIsSuccess(t *testing.T) {
	env := newTestEnv(t)
	env.alpha.streamFn = func(req provider.Request) ([]string, error) {
		return nil, nil
	}

	chunks, errs := env.gateway.ChatStream(context.Background(), Request{Messages: userMessage("hello")})
	deltas, err := collect(t, chunks, errs)
	if err != nil {
		t.Fatalf("clean empty stream must not error, got %v", err)
	}
	if len(deltas) != 0 {
		t.Errorf("expected no deltas, got %+v", deltas)
	}
	if env.beta.calls() != 0 {
		t.Error("a clean close must not advance the chain")
	}

	attempts := env.recorder.Attempts()
	if len(attempts) != 1 || attempts[0].IsError {
		t.Errorf("expected one successful usage attempt, got %+v", attempts)
	}
}

func TestAvailableModels(t *testing.T) {
	env := newTestEnv(t)
	env.beta.available = false

	models := env.gateway.AvailableModels()
	if len(models) != 3 {
		t.Fatalf("expected 3 models, got %d", len(models))
	}

	byKey := make(map[string]ModelInfo)
	for _, m := range models {
		byKey[m.Key] = m
	}
	if !byKey["alpha-fast"].Available || byKey["beta-big"].Available {
		t.Error("availability flags do not match adapter state")
	}
	if !byKey["alpha-fast"].Free || byKey["beta-big"].Free {
		t.Error("free flags do not match descriptor pricing")
	}
	if byKey["beta-big"].Tier != catalog.TierExpert {
		t.Errorf("tier mismatch: %+v", byKey["beta-big"])
	}
}

func TestClose_ClosesEveryAdapter(t *testing.T) {
	env := newTestEnv(t)
	env.gateway.Close()

	if !env.alpha.closed || !env.beta.closed || !env.gamma.closed {
		t.Error("Close must release every adapter")
	}
}

func BenchmarkCandidates(b *testing.B) {
	g, err := New(Config{
		Catalog: catalog.Default(),
		Adapters: map[string]provider.Adapter{
			"google":     &fakeAdapter{id: "google", available: true},
			"anthropic":  &fakeAdapter{id: "anthropic", available: true},
			"openai":     &fakeAdapter{id: "openai", available: true},
			"groq":       &fakeAdapter{id: "groq", available: true},
			"together":   &fakeAdapter{id: "together", available: true},
			"openrouter": &fakeAdapter{id: "openrouter", available: true},
			"ollama":     &fakeAdapter{id: "ollama", available: true},
		},
	})
	if err != nil {
		b.Fatalf("New: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		g.candidates(Request{Complexity: "expert"})
	}
}
