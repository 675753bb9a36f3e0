package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lhdbsbz/canvas/internal/message"
	"github.com/lhdbsbz/canvas/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	devOrigin   = "http://localhost:4200"
	otherOrigin = "http://localhost:3333"
	evilOrigin  = "https://evil.example.com"
)

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestBridge(store StateWriter, parent message.Port) *Bridge {
	return New(store, parent, Options{
		AllowedOrigins: []string{devOrigin, otherOrigin},
		Logger:         quietLogger(),
		Now:            func() time.Time { return fixedNow },
	})
}

func event(origin, raw string) Event {
	return Event{Origin: origin, Data: []byte(raw), ReceivedAt: fixedNow}
}

type failingStore struct{ err error }

func (f failingStore) SetDoctorPreferences(ctx context.Context, v state.DoctorPreferences) error {
	return f.err
}
func (f failingStore) SetPatientData(ctx context.Context, v state.PatientData) error { return f.err }
func (f failingStore) SetUserData(ctx context.Context, v state.UserData) error       { return f.err }

type panickingStore struct{ failingStore }

func (panickingStore) SetPatientData(ctx context.Context, v state.PatientData) error {
	panic("store exploded")
}

func TestBridge_UntrustedOriginIsDropped(t *testing.T) {
	store := state.NewStore(nil)
	parent := message.NewQueue("")
	b := newTestBridge(store, parent)

	for _, raw := range []string{
		`{"type":"PATIENT_DATA","data":{"name":"x"}}`,
		`{"type":"INIT","data":{"userData":{"userId":1}}}`,
		`garbage`,
	} {
		b.HandleMessage(context.Background(), event(evilOrigin, raw))
		b.HandleMessage(context.Background(), event("", raw))
	}

	assert.True(t, store.Get().Empty())
	assert.Equal(t, 0, parent.Len(), "no log, ack or error goes to an untrusted sender")
}

func TestBridge_StoresSlotAndAcks(t *testing.T) {
	tests := []struct {
		name     string
		msgType  message.Type
		data     string
		readSlot func(t *testing.T, s state.Snapshot) json.RawMessage
	}{
		{
			name:    "doctor preferences",
			msgType: message.TypeDoctorPreferences,
			data:    `{"promptInstructions":"Sempre em português","units":"mg"}`,
			readSlot: func(t *testing.T, s state.Snapshot) json.RawMessage {
				require.NotNil(t, s.DoctorPreferences)
				return s.DoctorPreferences.Raw()
			},
		},
		{
			name:    "patient data",
			msgType: message.TypePatientData,
			data:    `{"name":"José","weight":72.5,"allergies":["dipirona"]}`,
			readSlot: func(t *testing.T, s state.Snapshot) json.RawMessage {
				require.NotNil(t, s.PatientData)
				return s.PatientData.Raw()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := state.NewStore(nil)
			parent := message.NewQueue("")
			b := newTestBridge(store, parent)

			raw := `{"type":"` + string(tt.msgType) + `","data":` + tt.data + `}`
			b.HandleMessage(context.Background(), event(otherOrigin, raw))

			assert.JSONEq(t, tt.data, string(tt.readSlot(t, store.Get())))

			msgs := parent.Messages()
			require.Len(t, msgs, 2)
			assert.Equal(t, message.TypeLog, msgs[0].Type)
			logData := msgs[0].Data.(message.LogData)
			assert.Equal(t, otherOrigin, logData.Origin)
			assert.JSONEq(t, raw, string(logData.Payload))

			assert.Equal(t, message.TypeAck, msgs[1].Type)
			assert.Equal(t, message.AckData{
				ReceivedType: string(tt.msgType),
				Timestamp:    "2025-03-01T12:00:00.000Z",
			}, msgs[1].Data)
		})
	}
}

func TestBridge_UserDataAndInit(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantUserID string
	}{
		{name: "USER_DATA with userData", raw: `{"type":"USER_DATA","data":{"userData":{"userId":10,"name":"Ana"}}}`, wantUserID: "10"},
		{name: "INIT with userData", raw: `{"type":"INIT","data":{"userData":{"userId":"abc"}}}`, wantUserID: "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := state.NewStore(nil)
			parent := message.NewQueue("")
			newTestBridge(store, parent).HandleMessage(context.Background(), event(devOrigin, tt.raw))

			snap := store.Get()
			require.NotNil(t, snap.UserData)
			assert.Equal(t, tt.wantUserID, snap.UserData.UserID())
			assert.Equal(t, []message.Type{message.TypeLog, message.TypeAck}, parent.Types())
		})
	}
}

func TestBridge_MissingUserDataLeavesSlotUnchanged(t *testing.T) {
	ctx := context.Background()
	store := state.NewStore(nil)
	existing, err := state.NewUserData([]byte(`{"userId":1,"name":"Antigo"}`))
	require.NoError(t, err)
	require.NoError(t, store.SetUserData(ctx, existing))

	parent := message.NewQueue("")
	b := newTestBridge(store, parent)
	b.HandleMessage(ctx, event(devOrigin, `{"type":"INIT","data":{"theme":"dark"}}`))
	b.HandleMessage(ctx, event(devOrigin, `{"type":"USER_DATA","data":{}}`))
	b.HandleMessage(ctx, event(devOrigin, `{"type":"INIT","auth":{"token":"t"}}`))

	assert.True(t, existing.Equal(store.Get().UserData.Object))
	assert.Equal(t, []message.Type{
		message.TypeLog, message.TypeAck,
		message.TypeLog, message.TypeAck,
		message.TypeLog, message.TypeAck,
	}, parent.Types())
}

func TestBridge_UnknownTypeIsAcked(t *testing.T) {
	store := state.NewStore(nil)
	parent := message.NewQueue("")
	newTestBridge(store, parent).HandleMessage(context.Background(), event(devOrigin, `{"type":"USER_DATA_RESPONSE","data":{"userId":1}}`))

	assert.True(t, store.Get().Empty(), "the bridge does not handle the auth listener's vocabulary")
	msgs := parent.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "USER_DATA_RESPONSE", msgs[1].Data.(message.AckData).ReceivedType)
}

func TestBridge_MalformedReportsError(t *testing.T) {
	store := state.NewStore(nil)
	parent := message.NewQueue("")
	b := newTestBridge(store, parent)

	b.HandleMessage(context.Background(), event(devOrigin, `{"type":"PATIENT_DATA","data":"not an object"}`))

	assert.True(t, store.Get().Empty())
	msgs := parent.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, message.TypeLog, msgs[0].Type, "the log goes out before the payload is parsed")
	assert.Equal(t, message.TypeError, msgs[1].Type)
	assert.Contains(t, msgs[1].Data.(message.ErrorData).Error, "malformed message")
}

func TestBridge_NonJSONPayloadStillLogged(t *testing.T) {
	parent := message.NewQueue("")
	newTestBridge(state.NewStore(nil), parent).HandleMessage(context.Background(), event(devOrigin, `{{{`))

	msgs := parent.Messages()
	require.Len(t, msgs, 2)
	assert.JSONEq(t, `"{{{"`, string(msgs[0].Data.(message.LogData).Payload))
	assert.Equal(t, message.TypeError, msgs[1].Type)
}

func TestBridge_StoreFailureReportsError(t *testing.T) {
	parent := message.NewQueue("")
	b := newTestBridge(failingStore{err: errors.New("quota exceeded")}, parent)

	b.HandleMessage(context.Background(), event(devOrigin, `{"type":"DOCTOR_PREFERENCES","data":{}}`))

	msgs := parent.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "quota exceeded", msgs[1].Data.(message.ErrorData).Error)
}

func TestBridge_PanicIsContained(t *testing.T) {
	parent := message.NewQueue("")
	b := newTestBridge(panickingStore{}, parent)

	assert.NotPanics(t, func() {
		b.HandleMessage(context.Background(), event(devOrigin, `{"type":"PATIENT_DATA","data":{}}`))
	})
	msgs := parent.Messages()
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[1].Data.(message.ErrorData).Error, "store exploded")
}

func TestBridge_TargetOrigins(t *testing.T) {
	parent := message.NewQueue("")
	b := New(state.NewStore(nil), parent, Options{
		AllowedOrigins:    []string{"https://app.example.com"},
		LogTargetOrigin:   "https://app.example.com",
		ReplyTargetOrigin: "*",
		Logger:            quietLogger(),
	})

	b.HandleMessage(context.Background(), event("https://app.example.com", `{"type":"PATIENT_DATA","data":{}}`))

	items := parent.Drain()
	require.Len(t, items, 2)
	assert.Equal(t, "https://app.example.com", items[0].TargetOrigin)
	assert.Equal(t, "*", items[1].TargetOrigin)
}

func TestBridge_NoParent(t *testing.T) {
	store := state.NewStore(nil)
	b := newTestBridge(store, nil)
	assert.NotPanics(t, func() {
		b.HandleMessage(context.Background(), event(devOrigin, `{"type":"PATIENT_DATA","data":{"a":1}}`))
	})
	assert.NotNil(t, store.Get().PatientData)
}

func TestWindow_RemoveIsIdempotent(t *testing.T) {
	w := NewWindow()
	var calls atomic.Int32
	remove := w.AddListener(ListenerFunc(func(ctx context.Context, ev Event) { calls.Add(1) }))
	keep := w.AddListener(ListenerFunc(func(ctx context.Context, ev Event) { calls.Add(10) }))
	defer keep()

	w.Dispatch(context.Background(), event(devOrigin, `{}`))
	assert.Equal(t, int32(11), calls.Load())

	remove()
	remove()
	assert.Equal(t, 1, w.Len())

	w.Dispatch(context.Background(), event(devOrigin, `{}`))
	assert.Equal(t, int32(21), calls.Load())
}

func TestWindow_ListenerPanicDoesNotStopOthers(t *testing.T) {
	w := NewWindow()
	var reached atomic.Bool
	w.AddListener(ListenerFunc(func(ctx context.Context, ev Event) { panic("bad listener") }))
	w.AddListener(ListenerFunc(func(ctx context.Context, ev Event) { reached.Store(true) }))

	assert.NotPanics(t, func() { w.Dispatch(context.Background(), event(devOrigin, `{}`)) })
	assert.True(t, reached.Load())
}

func TestAllowListAndOriginOf(t *testing.T) {
	list := AllowList{"http://localhost:4200"}
	assert.True(t, list.Contains("http://localhost:4200"))
	assert.False(t, list.Contains("http://localhost:4200/"))
	assert.False(t, list.Contains(""))

	assert.Equal(t, "https://app.example.com", OriginOf("https://app.example.com/canvas?x=1"))
	assert.Equal(t, "http://localhost:4200", OriginOf("http://localhost:4200"))
	assert.Equal(t, "not a url", OriginOf("not a url"))
}
