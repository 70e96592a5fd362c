package messaging

import (
	"fmt"
	"sync"
)

// SimpleBroker implements the Broker interface
// subscribers is a map where keys are reporter IDs and values are channels for receiving events
type SimpleBroker struct {
	subscribers map[string]chan<- Event
	mu          sync.RWMutex
}

// NewBroker creates a new progress broker
func NewBroker() *SimpleBroker {
	return &SimpleBroker{
		subscribers: make(map[string]chan<- Event),
	}
}

// Publish broadcasts an event to every subscriber
func (b *SimpleBroker) Publish(evt Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subscribers {
		// Non-blocking send; a reporter that falls behind loses events
		// rather than stalling the training loop.
		select {
		case ch <- evt:
		default:
			return fmt.Errorf("subscriber %s's channel is full", id)
		}
	}
	return nil
}

// Subscribe registers a reporter to receive events
func (b *SimpleBroker) Subscribe(subscriberID string, ch chan<- Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[subscriberID]; exists {
		return fmt.Errorf("subscriber %s is already subscribed", subscriberID)
	}

	b.subscribers[subscriberID] = ch
	return nil
}

// Unsubscribe removes a reporter's subscription
func (b *SimpleBroker) Unsubscribe(subscriberID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[subscriberID]; !exists {
		return fmt.Errorf("subscriber %s is not subscribed", subscriberID)
	}

	delete(b.subscribers, subscriberID)
	return nil
}

func (b *SimpleBroker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = make(map[string]chan<- Event)
}
