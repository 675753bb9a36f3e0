package message

import (
	"encoding/json"
	"time"
)

// TimestampLayout matches the ISO-8601 form browsers produce (millisecond precision, UTC).
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Timestamp formats t the way outbound messages carry it.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Outbound is a message posted to the parent.
type Outbound struct {
	Type Type `json:"type"`
	Data any  `json:"data,omitempty"`
}

type AckData struct {
	ReceivedType string `json:"receivedType"`
	Timestamp    string `json:"timestamp"`
}

type ErrorData struct {
	Error     string `json:"error"`
	Timestamp string `json:"timestamp"`
}

type LogData struct {
	Message   string          `json:"message"`
	Payload   json.RawMessage `json:"payload"`
	Origin    string          `json:"origin"`
	Timestamp string          `json:"timestamp"`
}

// LogPrefix is the fixed text of every CANVAS_LOG notification.
const LogPrefix = "Canvas received message:"

func Ack(receivedType string, at time.Time) Outbound {
	return Outbound{Type: TypeAck, Data: AckData{ReceivedType: receivedType, Timestamp: Timestamp(at)}}
}

func Error(err error, at time.Time) Outbound {
	text := "Unknown error"
	if err != nil && err.Error() != "" {
		text = err.Error()
	}
	return Outbound{Type: TypeError, Data: ErrorData{Error: text, Timestamp: Timestamp(at)}}
}

func Log(raw []byte, origin string, at time.Time) Outbound {
	return Outbound{Type: TypeLog, Data: LogData{
		Message:   LogPrefix,
		Payload:   Payload(raw),
		Origin:    origin,
		Timestamp: Timestamp(at),
	}}
}

func RequestUserDataMessage() Outbound {
	return Outbound{Type: TypeRequestUserData}
}
