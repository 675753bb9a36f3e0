package agent

import "time"

// EventType constants
const (
	EventTypeStreamStart = "stream_start"
	EventTypeTextDelta   = "text_delta"
	EventTypeAssistant   = "assistant"
	EventTypeError       = "error"
	EventTypeDone        = "done"
)

// Event is a structured event emitted while a prescription is generated.
// The gateway relays these to streaming clients.
type Event struct {
	Type      string    `json:"type"`
	RunID     string    `json:"runId"`
	Seq       int       `json:"seq"`
	Timestamp time.Time `json:"timestamp"`

	// For text_delta and assistant
	Text string `json:"text,omitempty"`

	// For error
	Error string `json:"error,omitempty"`

	// For done
	Model      string `json:"model,omitempty"`
	StopReason string `json:"stopReason,omitempty"`
}

// EventSink receives events from a run.
type EventSink func(Event)

// EventEmitter provides sequential event emission for a single run.
type EventEmitter struct {
	runID string
	sink  EventSink
	seq   int
}

func NewEventEmitter(runID string, sink EventSink) *EventEmitter {
	return &EventEmitter{runID: runID, sink: sink}
}

func (e *EventEmitter) Emit(eventType string, mutators ...func(*Event)) {
	if e.sink == nil {
		return
	}
	e.seq++
	evt := Event{
		Type:      eventType,
		RunID:     e.runID,
		Seq:       e.seq,
		Timestamp: time.Now(),
	}
	for _, m := range mutators {
		m(&evt)
	}
	e.sink(evt)
}
