package state

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/tidwall/gjson"
)

// ErrNotObject is returned when a slot value is not a JSON object.
var ErrNotObject = errors.New("value is not a JSON object")

// Object is a JSON object kept in its received form, so a stored slot equals the
// message that produced it, key order included.
type Object struct {
	raw json.RawMessage
}

// NewObject validates raw and returns it compacted.
func NewObject(raw []byte) (Object, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' || !gjson.ValidBytes(trimmed) {
		return Object{}, ErrNotObject
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return Object{}, ErrNotObject
	}
	return Object{raw: buf.Bytes()}, nil
}

// MustObject is NewObject for literals known to be valid.
func MustObject(raw string) Object {
	o, err := NewObject([]byte(raw))
	if err != nil {
		panic(err)
	}
	return o
}

// Raw returns the compacted JSON.
func (o Object) Raw() json.RawMessage { return o.raw }

// IsZero reports whether o holds no value.
func (o Object) IsZero() bool { return len(o.raw) == 0 }

// Get reads a field using gjson path syntax.
func (o Object) Get(path string) gjson.Result { return gjson.GetBytes(o.raw, path) }

// Equal compares two objects by their compacted encoding.
func (o Object) Equal(other Object) bool { return bytes.Equal(o.raw, other.raw) }

func (o Object) MarshalJSON() ([]byte, error) {
	if o.IsZero() {
		return []byte("null"), nil
	}
	return o.raw, nil
}

func (o *Object) UnmarshalJSON(data []byte) error {
	parsed, err := NewObject(data)
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}

// DoctorPreferences is free-form; promptInstructions is the only known field.
type DoctorPreferences struct{ Object }

// PromptInstructions returns the doctor's extra instructions for the model, if any.
func (p DoctorPreferences) PromptInstructions() string {
	return p.Get("promptInstructions").String()
}

// PatientData is owned entirely by the parent application.
type PatientData struct{ Object }

// UserData identifies the signed-in user. userId is required; everything else is free-form.
type UserData struct{ Object }

// ErrMissingUserID is returned when user data carries no usable userId.
var ErrMissingUserID = errors.New("userData.userId must be a number or a string")

// NewUserData validates raw as user data.
func NewUserData(raw []byte) (UserData, error) {
	o, err := NewObject(raw)
	if err != nil {
		return UserData{}, err
	}
	u := UserData{o}
	switch u.Get("userId").Type {
	case gjson.Number, gjson.String:
		return u, nil
	default:
		return UserData{}, ErrMissingUserID
	}
}

func (u *UserData) UnmarshalJSON(data []byte) error {
	parsed, err := NewUserData(data)
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

// UserID returns the identifier as text, whether it was sent as a number or a string.
func (u UserData) UserID() string { return u.Get("userId").String() }

func (u UserData) Name() string  { return u.Get("name").String() }
func (u UserData) Email() string { return u.Get("email").String() }
