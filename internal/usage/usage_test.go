package usage

import (
	"context"
	"testing"
	"time"
)

func TestInMemoryRecorder(t *testing.T) {
	r := NewInMemoryRecorder()
	ctx := context.Background()

	attempts := []Attempt{
		{ModelKey: "groq-llama-3.3-70b", LatencyMs: 100, Timestamp: time.Now()},
		{ModelKey: "groq-llama-3.3-70b", LatencyMs: 300, IsError: true, Timestamp: time.Now()},
		{ModelKey: "gpt-4o-mini", InputTokens: 50, OutputTokens: 200, LatencyMs: 500, Timestamp: time.Now()},
	}
	for _, a := range attempts {
		if err := r.Record(ctx, a); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	if got := len(r.Attempts()); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestInMemoryRecorder_Stats(t *testing.T) {
	r := NewInMemoryRecorder()
	ctx := context.Background()

	now := time.Now()
	r.Record(ctx, Attempt{ModelKey: "groq-llama-3.3-70b", LatencyMs: 100, Timestamp: now})
	r.Record(ctx, Attempt{ModelKey: "groq-llama-3.3-70b", LatencyMs: 300, IsError: true, Timestamp: now})
	r.Record(ctx, Attempt{ModelKey: "gpt-4o-mini", InputTokens: 50, OutputTokens: 200, LatencyMs: 500, Timestamp: now})
	// Outside the window; must be excluded.
	r.Record(ctx, Attempt{ModelKey: "gpt-4o-mini", LatencyMs: 999, Timestamp: now.AddDate(0, 0, -30)})

	stats, err := r.Stats(ctx, 7)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("expected 2 models, got %d", len(stats))
	}

	byModel := make(map[string]ModelStats)
	for _, s := range stats {
		byModel[s.ModelKey] = s
	}

	groq := byModel["groq-llama-3.3-70b"]
	if groq.Requests != 2 || groq.Errors != 1 {
		t.Errorf("groq stats wrong: %+v", groq)
	}
	if groq.AvgLatencyMs != 200 {
		t.Errorf("groq avg latency = %v, want 200", groq.AvgLatencyMs)
	}

	gpt := byModel["gpt-4o-mini"]
	if gpt.Requests != 1 || gpt.InputTokens != 50 || gpt.OutputTokens != 200 {
		t.Errorf("gpt stats wrong: %+v", gpt)
	}
}

func TestInMemoryRecorder_AttemptsIsACopy(t *testing.T) {
	r := NewInMemoryRecorder()
	r.Record(context.Background(), Attempt{ModelKey: "a"})

	got := r.Attempts()
	got[0].ModelKey = "mutated"

	if r.Attempts()[0].ModelKey != "a" {
		t.Error("Attempts must return a copy")
	}
}
