package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lhdbsbz/canvas/internal/message"
	"github.com/lhdbsbz/canvas/internal/state"
)

// StateWriter is the part of the shared store the bridge mutates.
type StateWriter interface {
	SetDoctorPreferences(ctx context.Context, v state.DoctorPreferences) error
	SetPatientData(ctx context.Context, v state.PatientData) error
	SetUserData(ctx context.Context, v state.UserData) error
}

type Options struct {
	AllowedOrigins    []string
	LogTargetOrigin   string // where CANVAS_LOG goes
	ReplyTargetOrigin string // where CANVAS_ACK / CANVAS_ERROR go
	Logger            *slog.Logger
	Now               func() time.Time
}

func (o *Options) normalize() {
	if o.LogTargetOrigin == "" {
		o.LogTargetOrigin = "*"
	}
	if o.ReplyTargetOrigin == "" {
		o.ReplyTargetOrigin = "*"
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Bridge routes parent messages into the shared store and reports back to the parent.
//
// Messages from origins outside the allow-list are dropped with a local warning and
// no reply. Every accepted message is echoed as CANVAS_LOG before it is decoded;
// it is then acknowledged with CANVAS_ACK, or answered with CANVAS_ERROR when
// decoding or storing fails. Nothing escapes HandleMessage.
type Bridge struct {
	store   StateWriter
	parent  message.Port
	allowed AllowList
	opts    Options
}

// New returns a bridge. parent may be nil when the view has no parent to talk to.
func New(store StateWriter, parent message.Port, opts Options) *Bridge {
	opts.normalize()
	return &Bridge{
		store:   store,
		parent:  parent,
		allowed: AllowList(opts.AllowedOrigins),
		opts:    opts,
	}
}

func (b *Bridge) HandleMessage(ctx context.Context, ev Event) {
	log := b.opts.Logger
	if !b.allowed.Contains(ev.Origin) {
		log.Warn("message from unauthorized origin dropped", "origin", ev.Origin)
		return
	}

	b.post(message.Log(ev.Data, ev.Origin, b.opts.Now()), b.opts.LogTargetOrigin)

	receivedType, err := b.dispatch(ctx, ev.Data)
	if err != nil {
		log.Error("error processing message", "origin", ev.Origin, "error", err)
		b.post(message.Error(err, b.opts.Now()), b.opts.ReplyTargetOrigin)
		return
	}
	b.post(message.Ack(receivedType, b.opts.Now()), b.opts.ReplyTargetOrigin)
}

func (b *Bridge) dispatch(ctx context.Context, raw []byte) (receivedType string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while handling message: %v", r)
		}
	}()

	in, err := message.Decode(raw)
	if err != nil {
		return "", err
	}
	log := b.opts.Logger
	log.Debug("received message", "type", in.MessageType())

	switch m := in.(type) {
	case message.DoctorPreferences:
		err = b.store.SetDoctorPreferences(ctx, m.Preferences)
	case message.PatientData:
		err = b.store.SetPatientData(ctx, m.Patient)
	case message.UserData:
		err = b.storeUser(ctx, m.User)
	case message.Init:
		err = b.storeUser(ctx, m.User)
	default:
		log.Warn("unknown message type", "type", in.MessageType())
	}
	if err != nil {
		return "", err
	}
	return string(in.MessageType()), nil
}

func (b *Bridge) storeUser(ctx context.Context, user *state.UserData) error {
	if user == nil {
		return nil
	}
	if err := b.store.SetUserData(ctx, *user); err != nil {
		return err
	}
	b.opts.Logger.Info("user data stored in canvas store", "userId", user.UserID())
	return nil
}

func (b *Bridge) post(msg message.Outbound, targetOrigin string) {
	if b.parent == nil {
		return
	}
	if err := b.parent.Post(msg, targetOrigin); err != nil {
		b.opts.Logger.Warn("post to parent failed", "type", msg.Type, "error", err)
	}
}
