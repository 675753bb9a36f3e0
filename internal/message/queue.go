package message

import (
	"sync"
)

// Port delivers outbound messages to the parent. targetOrigin follows postMessage
// semantics: "*" always delivers; any other value delivers only when it equals the
// receiver's origin, and is otherwise dropped without error.
type Port interface {
	Post(msg Outbound, targetOrigin string) error
}

// Deliverable reports whether a message addressed to targetOrigin reaches a
// receiver whose origin is receiverOrigin.
func Deliverable(targetOrigin, receiverOrigin string) bool {
	return targetOrigin == "*" || targetOrigin == receiverOrigin
}

// Posted is one message accepted by a Queue.
type Posted struct {
	Message      Outbound
	TargetOrigin string
}

// Queue is an in-memory Port. It collects messages instead of sending them, so
// HTTP callers and tests can read back what the canvas emitted.
type Queue struct {
	mu     sync.Mutex
	origin string
	items  []Posted
}

// NewQueue returns a queue that behaves as a receiver at origin. An empty origin
// accepts every target.
func NewQueue(origin string) *Queue {
	return &Queue{origin: origin}
}

func (q *Queue) Post(msg Outbound, targetOrigin string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.origin != "" && !Deliverable(targetOrigin, q.origin) {
		return nil
	}
	q.items = append(q.items, Posted{Message: msg, TargetOrigin: targetOrigin})
	return nil
}

// Drain returns all collected messages and empties the queue.
func (q *Queue) Drain() []Posted {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}

// Messages returns the collected messages without removing them.
func (q *Queue) Messages() []Outbound {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Outbound, len(q.items))
	for i, it := range q.items {
		out[i] = it.Message
	}
	return out
}

// Types lists the collected message types in order.
func (q *Queue) Types() []Type {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Type, len(q.items))
	for i, it := range q.items {
		out[i] = it.Message.Type
	}
	return out
}

// Len returns the number of pending items.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
