package events

import (
	"sync"
	"time"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventSignalGenerated    EventType = "SIGNAL_GENERATED"
	EventPlaceholderSignal  EventType = "PLACEHOLDER_SIGNAL"
	EventNoSignal           EventType = "NO_SIGNAL"
	EventEntryAnalysis      EventType = "ENTRY_ANALYSIS"
	EventAnalysisError      EventType = "ANALYSIS_ERROR"
	EventEngineStarted      EventType = "ENGINE_STARTED"
	EventEngineStopped      EventType = "ENGINE_STOPPED"
)

// Event represents a system event
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// Subscriber is a function that handles events
type Subscriber func(Event)

// EventBus manages event publishing and subscriptions
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]Subscriber
	allSubs     []Subscriber // Subscribers to all events
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[EventType][]Subscriber),
		allSubs:     make([]Subscriber, 0),
	}
}

// Subscribe registers a subscriber for a specific event type
func (eb *EventBus) Subscribe(eventType EventType, subscriber Subscriber) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.subscribers[eventType] = append(eb.subscribers[eventType], subscriber)
}

// SubscribeAll registers a subscriber for all events
func (eb *EventBus) SubscribeAll(subscriber Subscriber) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.allSubs = append(eb.allSubs, subscriber)
}

// Publish sends an event to all subscribers
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	// Set timestamp if not provided
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	// Notify specific subscribers
	if subs, ok := eb.subscribers[event.Type]; ok {
		for _, sub := range subs {
			go sub(event) // Run in goroutine to avoid blocking
		}
	}

	// Notify all-event subscribers
	for _, sub := range eb.allSubs {
		go sub(event)
	}
}

// PublishSignal publishes a signal generated event
func (eb *EventBus) PublishSignal(symbol, action, strategyName string, confidence int, entry float64, placeholder bool) {
	eventType := EventSignalGenerated
	if placeholder {
		eventType = EventPlaceholderSignal
	}
	eb.Publish(Event{
		Type: eventType,
		Data: map[string]interface{}{
			"symbol":     symbol,
			"action":     action,
			"strategy":   strategyName,
			"confidence": confidence,
			"entry":      entry,
		},
	})
}

// PublishNoSignal publishes a nothing-to-trade event
func (eb *EventBus) PublishNoSignal(symbol string) {
	eb.Publish(Event{
		Type: EventNoSignal,
		Data: map[string]interface{}{
			"symbol": symbol,
		},
	})
}

// PublishError publishes an analysis error event
func (eb *EventBus) PublishError(source, symbol string, err error) {
	data := map[string]interface{}{
		"source": source,
		"symbol": symbol,
	}
	if err != nil {
		data["error"] = err.Error()
	}
	eb.Publish(Event{
		Type: EventAnalysisError,
		Data: data,
	})
}
