package messaging

import (
	"time"
)

// Event types published during a training run
const (
	EventEpisode = "episode"
	EventSummary = "summary"
)

// Event is a progress notification emitted by an experiment
type Event struct {
	RunID     string    // Identifier of the run that produced the event
	Type      string    // EventEpisode or EventSummary
	Payload   any       // core.EpisodeResult for episode events
	Timestamp time.Time // When the event was published
}

// Broker routes progress events from an experiment to its reporters
type Broker interface {
	// Publish delivers an event to every subscriber
	Publish(evt Event) error
	// Subscribe registers a reporter to receive events
	Subscribe(subscriberID string, ch chan<- Event) error
	// Unsubscribe removes a reporter's subscription
	Unsubscribe(subscriberID string) error
}
