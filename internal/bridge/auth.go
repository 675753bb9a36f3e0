package bridge

import (
	"context"
	"log/slog"
	"sync"

	"github.com/lhdbsbz/canvas/internal/message"
	"github.com/lhdbsbz/canvas/internal/state"
)

// Credentials holds the parent's auth data for the lifetime of a view. It is never persisted.
type Credentials struct {
	mu   sync.RWMutex
	auth *message.Auth
}

func (c *Credentials) Set(a message.Auth) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.auth = &a
}

func (c *Credentials) Get() (message.Auth, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.auth == nil {
		return message.Auth{}, false
	}
	return *c.auth, true
}

func (c *Credentials) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.auth = nil
}

// UserDataWriter is the part of the store the auth listener mutates.
type UserDataWriter interface {
	SetUserData(ctx context.Context, v state.UserData) error
}

// AuthListener is the augmenter-side listener. It trusts only the parent app's
// origin and understands INIT (credentials or user data) and USER_DATA_RESPONSE.
// Failures are logged, never reported to the sender.
type AuthListener struct {
	store        UserDataWriter
	parent       message.Port
	parentOrigin string
	allowed      AllowList
	creds        *Credentials
	log          *slog.Logger
}

func NewAuthListener(store UserDataWriter, parent message.Port, parentAppURL string, creds *Credentials, logger *slog.Logger) *AuthListener {
	if creds == nil {
		creds = &Credentials{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	origin := OriginOf(parentAppURL)
	return &AuthListener{
		store:        store,
		parent:       parent,
		parentOrigin: origin,
		allowed:      AllowList{origin},
		creds:        creds,
		log:          logger,
	}
}

// Credentials returns the holder the listener writes to.
func (l *AuthListener) Credentials() *Credentials { return l.creds }

func (l *AuthListener) HandleMessage(ctx context.Context, ev Event) {
	if !l.allowed.Contains(ev.Origin) {
		l.log.Warn("message from unexpected origin ignored", "origin", ev.Origin)
		return
	}

	in, err := message.DecodeAuth(ev.Data)
	if err != nil {
		l.log.Error("error processing message", "error", err)
		return
	}
	switch m := in.(type) {
	case message.Init:
		if m.Auth != nil {
			l.creds.Set(*m.Auth)
			l.log.Info("received authentication data", "userId", m.Auth.UserID)
		} else if m.User != nil {
			l.setUser(ctx, *m.User, "received and stored user data")
		}
	case message.UserDataResponse:
		l.setUser(ctx, m.User, "received and stored updated user data")
	default:
		l.log.Debug("ignoring message outside auth vocabulary", "type", in.MessageType())
	}
}

func (l *AuthListener) setUser(ctx context.Context, user state.UserData, msg string) {
	if err := l.store.SetUserData(ctx, user); err != nil {
		l.log.Error("error storing user data", "error", err)
		return
	}
	l.log.Info(msg, "userId", user.UserID())
}

// RequestUserData asks the parent app to send a USER_DATA_RESPONSE.
func (l *AuthListener) RequestUserData() error {
	if l.parent == nil {
		return nil
	}
	return l.parent.Post(message.RequestUserDataMessage(), l.parentOrigin)
}
