// Package activity publishes the lifecycle of gateway work (started,
// progress, completed, failed) to the assistant's broadcast layer. The
// gateway only emits events; persistence and fan-out to clients happen
// downstream.
package activity

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventStarted   EventType = "started"
	EventProgress  EventType = "progress"
	EventCompleted EventType = "completed"
	EventFailed    EventType = "failed"
)

type Event struct {
	ActivityID  string            `json:"activity_id"`
	Type        EventType         `json:"type"`
	Kind        string            `json:"kind"`
	Description string            `json:"description"`
	Detail      map[string]string `json:"detail,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NewID returns a fresh activity id shared by all events of one activity.
func NewID() string {
	return uuid.New().String()
}

type InMemoryPublisher struct {
	mu     sync.Mutex
	events []Event
}

func NewInMemoryPublisher() *InMemoryPublisher {
	return &InMemoryPublisher{events: make([]Event, 0)}
}

func (p *InMemoryPublisher) Publish(ctx context.Context, event Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, event)
	return nil
}

func (p *InMemoryPublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()

	result := make([]Event, len(p.events))
	copy(result, p.events)
	return result
}
