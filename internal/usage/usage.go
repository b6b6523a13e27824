// Package usage is the accounting collaborator the gateway reports to
// after every model attempt. The gateway performs no storage of its
// own; recorders here persist or forward the attempt records.
package usage

import (
	"context"
	"sync"
	"time"
)

// Attempt is one gateway attempt against one model, success or failure.
// Token counts are zero when the vendor did not disclose them.
type Attempt struct {
	ModelKey     string    `json:"model_key"`
	InputTokens  int       `json:"input_tokens"`
	OutputTokens int       `json:"output_tokens"`
	LatencyMs    int64     `json:"latency_ms"`
	IsError      bool      `json:"is_error"`
	Timestamp    time.Time `json:"timestamp"`
}

type Recorder interface {
	Record(ctx context.Context, attempt Attempt) error
}

// ModelStats is an aggregate over recorded attempts for one model.
type ModelStats struct {
	ModelKey     string  `json:"model_key"`
	Requests     int64   `json:"requests"`
	InputTokens  int64   `json:"input_tokens"`
	OutputTokens int64   `json:"output_tokens"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
	Errors       int64   `json:"errors"`
}

// StatsProvider is implemented by recorders that can report aggregates.
type StatsProvider interface {
	Stats(ctx context.Context, days int) ([]ModelStats, error)
}

type InMemoryRecorder struct {
	mu       sync.RWMutex
	attempts []Attempt
}

func NewInMemoryRecorder() *InMemoryRecorder {
	return &InMemoryRecorder{attempts: make([]Attempt, 0)}
}

func (r *InMemoryRecorder) Record(ctx context.Context, attempt Attempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.attempts = append(r.attempts, attempt)
	return nil
}

func (r *InMemoryRecorder) Attempts() []Attempt {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Attempt, len(r.attempts))
	copy(result, r.attempts)
	return result
}

func (r *InMemoryRecorder) Stats(ctx context.Context, days int) ([]ModelStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	since := time.Now().AddDate(0, 0, -days)
	byModel := make(map[string]*ModelStats)
	latency := make(map[string]int64)
	order := make([]string, 0)

	for _, a := range r.attempts {
		if a.Timestamp.Before(since) {
			continue
		}
		s, ok := byModel[a.ModelKey]
		if !ok {
			s = &ModelStats{ModelKey: a.ModelKey}
			byModel[a.ModelKey] = s
			order = append(order, a.ModelKey)
		}
		s.Requests++
		s.InputTokens += int64(a.InputTokens)
		s.OutputTokens += int64(a.OutputTokens)
		latency[a.ModelKey] += a.LatencyMs
		if a.IsError {
			s.Errors++
		}
	}

	result := make([]ModelStats, 0, len(order))
	for _, key := range order {
		s := byModel[key]
		if s.Requests > 0 {
			s.AvgLatencyMs = float64(latency[key]) / float64(s.Requests)
		}
		result = append(result, *s)
	}
	return result, nil
}
