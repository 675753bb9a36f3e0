package bridge

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lhdbsbz/canvas/internal/message"
)

type ViewOptions struct {
	Bridge       Options
	ParentAppURL string
	Logger       *slog.Logger
}

// View is the explicit context of one mounted canvas: its listener registry, the
// two listeners, and the in-memory credentials. Create it with Mount when the
// parent connects and Unmount it when the parent goes away.
type View struct {
	Window      *Window
	Bridge      *Bridge
	Auth        *AuthListener
	Credentials *Credentials

	removers    []func()
	unmountOnce sync.Once
}

// Mount wires both listeners to a fresh window. parent may be nil.
func Mount(store StateWriter, parent message.Port, opts ViewOptions) *View {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Bridge.Logger == nil {
		opts.Bridge.Logger = logger
	}

	creds := &Credentials{}
	v := &View{
		Window:      NewWindow(),
		Bridge:      New(store, parent, opts.Bridge),
		Auth:        NewAuthListener(store, parent, opts.ParentAppURL, creds, logger),
		Credentials: creds,
	}
	v.removers = append(v.removers,
		v.Window.AddListener(v.Bridge),
		v.Window.AddListener(v.Auth),
	)
	return v
}

// Receive dispatches one raw message to every listener of the view.
func (v *View) Receive(ctx context.Context, origin string, data []byte) {
	v.Window.Dispatch(ctx, Event{Origin: origin, Data: data, ReceivedAt: time.Now()})
}

// Unmount deregisters the listeners and drops credentials. Safe to call repeatedly.
func (v *View) Unmount() {
	v.unmountOnce.Do(func() {
		for _, remove := range v.removers {
			remove()
		}
		v.Credentials.Clear()
	})
}
