package bridge

import (
	"context"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/sourcegraph/conc"
)

// Event is one inbound cross-window message as the receiving view sees it.
type Event struct {
	Origin     string
	Data       []byte
	ReceivedAt time.Time
}

// Listener handles events dispatched by a Window. Implementations must not panic
// out of HandleMessage; the window recovers anyway and logs it.
type Listener interface {
	HandleMessage(ctx context.Context, ev Event)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(ctx context.Context, ev Event)

func (f ListenerFunc) HandleMessage(ctx context.Context, ev Event) { f(ctx, ev) }

// Window is the listener registry of one view. Every registered listener receives
// every event; listeners run concurrently with each other, but a single listener
// finishes one event before it is handed the next.
type Window struct {
	mu        sync.RWMutex
	listeners map[uint64]*registration
	nextID    uint64
}

type registration struct {
	mu       sync.Mutex
	listener Listener
}

func NewWindow() *Window {
	return &Window{listeners: make(map[uint64]*registration)}
}

// AddListener registers l and returns its remove function. Calling remove more
// than once is a no-op.
func (w *Window) AddListener(l Listener) (remove func()) {
	w.mu.Lock()
	w.nextID++
	id := w.nextID
	w.listeners[id] = &registration{listener: l}
	w.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			w.mu.Lock()
			delete(w.listeners, id)
			w.mu.Unlock()
		})
	}
}

// Len returns the number of registered listeners.
func (w *Window) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.listeners)
}

// Dispatch delivers ev to all listeners and waits for them to finish.
func (w *Window) Dispatch(ctx context.Context, ev Event) {
	if ev.ReceivedAt.IsZero() {
		ev.ReceivedAt = time.Now()
	}

	w.mu.RLock()
	regs := make([]*registration, 0, len(w.listeners))
	for _, r := range w.listeners {
		regs = append(regs, r)
	}
	w.mu.RUnlock()

	var wg conc.WaitGroup
	for _, r := range regs {
		r := r
		wg.Go(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.listener.HandleMessage(ctx, ev)
		})
	}
	if recovered := wg.WaitAndRecover(); recovered != nil {
		slog.Error("message listener panicked", "origin", ev.Origin, "error", recovered.AsError())
	}
}

// AllowList is an exact-match set of origins.
type AllowList []string

func (a AllowList) Contains(origin string) bool {
	if origin == "" {
		return false
	}
	for _, allowed := range a {
		if allowed == origin {
			return true
		}
	}
	return false
}

// OriginOf reduces a URL to its origin (scheme://host[:port]). Values that do not
// parse as absolute URLs are returned unchanged.
func OriginOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return rawURL
	}
	return u.Scheme + "://" + u.Host
}
