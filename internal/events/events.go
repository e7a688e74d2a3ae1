package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	AccountCreated       EventType = "account.created"
	ExamSessionStarted   EventType = "exam.session_started"
	ResultSubmitted      EventType = "result.submitted"
	PaymentInitiated     EventType = "payment.initiated"
	PaymentStatusChanged EventType = "payment.status_changed"
)

const (
	eventSource  = "cbt-service"
	eventVersion = "1"
)

// Event is the envelope written to the message bus
type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// NewEvent stamps a new event with an id and the current time
func NewEvent(eventType EventType, data map[string]interface{}) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    eventSource,
		Version:   eventVersion,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// EventPublisher publishes domain events
type EventPublisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}
