package message

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lhdbsbz/canvas/internal/state"
	"github.com/tidwall/gjson"
)

// Type is the value of an inbound or outbound message's "type" field.
type Type string

// Inbound types.
const (
	TypeDoctorPreferences Type = "DOCTOR_PREFERENCES"
	TypePatientData       Type = "PATIENT_DATA"
	TypeUserData          Type = "USER_DATA"
	TypeInit              Type = "INIT"
	TypeUserDataResponse  Type = "USER_DATA_RESPONSE"
	TypeRequestUserData   Type = "REQUEST_USER_DATA"
)

// Outbound types.
const (
	TypeAck   Type = "CANVAS_ACK"
	TypeError Type = "CANVAS_ERROR"
	TypeLog   Type = "CANVAS_LOG"
)

// ErrMalformed wraps every shape violation found while decoding.
var ErrMalformed = errors.New("malformed message")

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}

// Inbound is one decoded cross-window message. The concrete types below are the
// only implementations.
type Inbound interface {
	MessageType() Type
}

type DoctorPreferences struct {
	Preferences state.DoctorPreferences
}

type PatientData struct {
	Patient state.PatientData
}

// UserData carries data.userData when present; a nil pointer means the field was absent.
type UserData struct {
	User *state.UserData
}

// Init is the parent's first message. It may carry user data, credentials, or both.
// Decode fills only User; DecodeAuth fills Auth, or User when auth is absent.
type Init struct {
	User *state.UserData
	Auth *Auth
}

// UserDataResponse answers a REQUEST_USER_DATA; data is the user record itself.
type UserDataResponse struct {
	User state.UserData
}

type RequestUserData struct{}

// Unrecognized is any message whose type is not part of the vocabulary, including
// messages with no type at all.
type Unrecognized struct {
	Name string
}

// Auth holds credentials the parent hands over on INIT.
type Auth struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
}

func (DoctorPreferences) MessageType() Type { return TypeDoctorPreferences }
func (PatientData) MessageType() Type       { return TypePatientData }
func (UserData) MessageType() Type          { return TypeUserData }
func (Init) MessageType() Type              { return TypeInit }
func (UserDataResponse) MessageType() Type  { return TypeUserDataResponse }
func (RequestUserData) MessageType() Type   { return TypeRequestUserData }
func (u Unrecognized) MessageType() Type    { return Type(u.Name) }

// TypeOf returns the raw "type" field without validating the rest of the payload.
func TypeOf(raw []byte) string {
	return gjson.GetBytes(raw, "type").String()
}

// Decode validates raw against the bridge vocabulary. INIT is read through
// data.userData only; its auth field belongs to the auth listener and is not inspected.
func Decode(raw []byte) (Inbound, error) {
	root, typ, err := parseEnvelope(raw)
	if err != nil {
		return nil, err
	}
	if typ.Type != gjson.String {
		return Unrecognized{Name: typ.String()}, nil
	}
	data := root.Get("data")

	switch Type(typ.Str) {
	case TypeDoctorPreferences:
		obj, err := objectField(data, "data")
		if err != nil {
			return nil, err
		}
		return DoctorPreferences{Preferences: state.DoctorPreferences{Object: obj}}, nil

	case TypePatientData:
		obj, err := objectField(data, "data")
		if err != nil {
			return nil, err
		}
		return PatientData{Patient: state.PatientData{Object: obj}}, nil

	case TypeUserData:
		user, err := nestedUserData(data)
		if err != nil {
			return nil, err
		}
		return UserData{User: user}, nil

	case TypeInit:
		user, err := nestedUserData(data)
		if err != nil {
			return nil, err
		}
		return Init{User: user}, nil

	case TypeUserDataResponse:
		return decodeUserDataResponse(data)

	case TypeRequestUserData:
		return RequestUserData{}, nil

	default:
		return Unrecognized{Name: typ.Str}, nil
	}
}

// DecodeAuth validates raw against the auth listener's vocabulary: INIT and
// USER_DATA_RESPONSE. An INIT carrying auth yields the credentials alone and its
// data.userData is not inspected. Every other type is Unrecognized.
func DecodeAuth(raw []byte) (Inbound, error) {
	root, typ, err := parseEnvelope(raw)
	if err != nil {
		return nil, err
	}
	if typ.Type != gjson.String {
		return Unrecognized{Name: typ.String()}, nil
	}

	switch Type(typ.Str) {
	case TypeInit:
		if a := root.Get("auth"); a.Exists() && a.Type != gjson.Null {
			auth, err := decodeAuth(a)
			if err != nil {
				return nil, err
			}
			return Init{Auth: auth}, nil
		}
		user, err := nestedUserData(root.Get("data"))
		if err != nil {
			return nil, err
		}
		return Init{User: user}, nil

	case TypeUserDataResponse:
		return decodeUserDataResponse(root.Get("data"))

	default:
		return Unrecognized{Name: typ.Str}, nil
	}
}

func parseEnvelope(raw []byte) (gjson.Result, gjson.Result, error) {
	if !gjson.ValidBytes(raw) {
		return gjson.Result{}, gjson.Result{}, malformed("payload is not valid JSON")
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return gjson.Result{}, gjson.Result{}, malformed("payload must be an object")
	}
	return root, root.Get("type"), nil
}

func decodeUserDataResponse(data gjson.Result) (Inbound, error) {
	if !data.Exists() {
		return nil, malformed("data is required")
	}
	user, err := state.NewUserData([]byte(data.Raw))
	if err != nil {
		return nil, malformed("data: %v", err)
	}
	return UserDataResponse{User: user}, nil
}

func objectField(v gjson.Result, name string) (state.Object, error) {
	if !v.Exists() {
		return state.Object{}, malformed("%s is required", name)
	}
	obj, err := state.NewObject([]byte(v.Raw))
	if err != nil {
		return state.Object{}, malformed("%s: %v", name, err)
	}
	return obj, nil
}

// nestedUserData reads data.userData. Absent or null data means no user data.
func nestedUserData(data gjson.Result) (*state.UserData, error) {
	if !data.Exists() || data.Type == gjson.Null {
		return nil, nil
	}
	if !data.IsObject() {
		return nil, malformed("data must be an object")
	}
	field := data.Get("userData")
	if !field.Exists() {
		return nil, nil
	}
	user, err := state.NewUserData([]byte(field.Raw))
	if err != nil {
		return nil, malformed("data.userData: %v", err)
	}
	return &user, nil
}

func decodeAuth(v gjson.Result) (*Auth, error) {
	if !v.IsObject() {
		return nil, malformed("auth must be an object")
	}
	token := v.Get("token")
	if token.Type != gjson.String || token.Str == "" {
		return nil, malformed("auth.token must be a non-empty string")
	}
	auth := &Auth{Token: token.Str}
	switch id := v.Get("userId"); id.Type {
	case gjson.String, gjson.Number:
		auth.UserID = id.String()
	case gjson.Null:
	default:
		if id.Exists() {
			return nil, malformed("auth.userId must be a number or a string")
		}
	}
	return auth, nil
}

// Payload returns raw as JSON when it is valid and as a JSON string otherwise, so
// a log notification can always carry what was received.
func Payload(raw []byte) json.RawMessage {
	if gjson.ValidBytes(raw) {
		return json.RawMessage(raw)
	}
	quoted, _ := json.Marshal(string(raw))
	return quoted
}
