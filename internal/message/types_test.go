package message

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_Vocabulary(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantType Type
		check    func(t *testing.T, in Inbound)
	}{
		{
			name:     "doctor preferences",
			raw:      `{"type":"DOCTOR_PREFERENCES","data":{"promptInstructions":"Seja breve"}}`,
			wantType: TypeDoctorPreferences,
			check: func(t *testing.T, in Inbound) {
				assert.Equal(t, "Seja breve", in.(DoctorPreferences).Preferences.PromptInstructions())
			},
		},
		{
			name:     "patient data",
			raw:      `{"type":"PATIENT_DATA","data":{"name":"Maria"}}`,
			wantType: TypePatientData,
			check: func(t *testing.T, in Inbound) {
				assert.JSONEq(t, `{"name":"Maria"}`, string(in.(PatientData).Patient.Raw()))
			},
		},
		{
			name:     "user data with userData",
			raw:      `{"type":"USER_DATA","data":{"userData":{"userId":3}}}`,
			wantType: TypeUserData,
			check: func(t *testing.T, in Inbound) {
				require.NotNil(t, in.(UserData).User)
				assert.Equal(t, "3", in.(UserData).User.UserID())
			},
		},
		{
			name:     "user data without userData",
			raw:      `{"type":"USER_DATA","data":{"other":true}}`,
			wantType: TypeUserData,
			check: func(t *testing.T, in Inbound) {
				assert.Nil(t, in.(UserData).User)
			},
		},
		{
			name:     "init auth is left to the auth listener",
			raw:      `{"type":"INIT","auth":{"token":""},"data":{"userData":{"userId":1}}}`,
			wantType: TypeInit,
			check: func(t *testing.T, in Inbound) {
				msg := in.(Init)
				require.NotNil(t, msg.User)
				assert.Equal(t, "1", msg.User.UserID())
				assert.Nil(t, msg.Auth)
			},
		},
		{
			name:     "init with user data",
			raw:      `{"type":"INIT","data":{"userData":{"userId":"u1","name":"Ana"}}}`,
			wantType: TypeInit,
			check: func(t *testing.T, in Inbound) {
				msg := in.(Init)
				require.NotNil(t, msg.User)
				assert.Equal(t, "Ana", msg.User.Name())
				assert.Nil(t, msg.Auth)
			},
		},
		{
			name:     "user data response",
			raw:      `{"type":"USER_DATA_RESPONSE","data":{"userId":5}}`,
			wantType: TypeUserDataResponse,
			check: func(t *testing.T, in Inbound) {
				assert.Equal(t, "5", in.(UserDataResponse).User.UserID())
			},
		},
		{
			name:     "request user data",
			raw:      `{"type":"REQUEST_USER_DATA"}`,
			wantType: TypeRequestUserData,
		},
		{
			name:     "unknown type",
			raw:      `{"type":"PING","data":{}}`,
			wantType: Type("PING"),
			check: func(t *testing.T, in Inbound) {
				assert.IsType(t, Unrecognized{}, in)
			},
		},
		{
			name:     "missing type",
			raw:      `{"data":{}}`,
			wantType: Type(""),
			check: func(t *testing.T, in Inbound) {
				assert.IsType(t, Unrecognized{}, in)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := Decode([]byte(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, in.MessageType())
			if tt.check != nil {
				tt.check(t, in)
			}
		})
	}
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "not json", raw: `hello`},
		{name: "array payload", raw: `[1,2,3]`},
		{name: "string payload", raw: `"INIT"`},
		{name: "preferences without data", raw: `{"type":"DOCTOR_PREFERENCES"}`},
		{name: "preferences with array data", raw: `{"type":"DOCTOR_PREFERENCES","data":[1]}`},
		{name: "patient data as string", raw: `{"type":"PATIENT_DATA","data":"x"}`},
		{name: "user data not object", raw: `{"type":"USER_DATA","data":5}`},
		{name: "userData without userId", raw: `{"type":"INIT","data":{"userData":{"name":"x"}}}`},
		{name: "response without data", raw: `{"type":"USER_DATA_RESPONSE"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.raw))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformed), "got %v", err)
		})
	}
}

func TestDecodeAuth(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantUser string
		wantAuth *Auth
		wantType Type
	}{
		{
			name:     "auth only",
			raw:      `{"type":"INIT","auth":{"token":"tkn","userId":7}}`,
			wantType: TypeInit,
			wantAuth: &Auth{Token: "tkn", UserID: "7"},
		},
		{
			name:     "auth wins and userData is not inspected",
			raw:      `{"type":"INIT","auth":{"token":"tkn","userId":7},"data":{"userData":{"name":"x"}}}`,
			wantType: TypeInit,
			wantAuth: &Auth{Token: "tkn", UserID: "7"},
		},
		{
			name:     "null auth falls back to userData",
			raw:      `{"type":"INIT","auth":null,"data":{"userData":{"userId":"u9"}}}`,
			wantType: TypeInit,
			wantUser: "u9",
		},
		{
			name:     "user data response",
			raw:      `{"type":"USER_DATA_RESPONSE","data":{"userId":5}}`,
			wantType: TypeUserDataResponse,
		},
		{
			name:     "bridge vocabulary is unrecognized",
			raw:      `{"type":"PATIENT_DATA","data":"not even an object"}`,
			wantType: TypePatientData,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := DecodeAuth([]byte(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, in.MessageType())
			msg, ok := in.(Init)
			if !ok {
				return
			}
			assert.Equal(t, tt.wantAuth, msg.Auth)
			if tt.wantUser == "" {
				assert.Nil(t, msg.User)
				return
			}
			require.NotNil(t, msg.User)
			assert.Equal(t, tt.wantUser, msg.User.UserID())
		})
	}
}

func TestDecodeAuth_Malformed(t *testing.T) {
	for _, raw := range []string{
		`{"type":"INIT","auth":{"userId":1}}`,
		`{"type":"INIT","auth":{"token":""},"data":{"userData":{"userId":1}}}`,
		`{"type":"INIT","auth":"tkn"}`,
		`{"type":"INIT","data":{"userData":{"name":"x"}}}`,
		`{"type":"USER_DATA_RESPONSE"}`,
		`not json`,
	} {
		_, err := DecodeAuth([]byte(raw))
		assert.ErrorIs(t, err, ErrMalformed, raw)
	}
}

func TestOutbound_Shapes(t *testing.T) {
	at := time.Date(2024, 5, 2, 13, 4, 5, 123_000_000, time.FixedZone("BRT", -3*3600))

	ack, err := json.Marshal(Ack("PATIENT_DATA", at))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"CANVAS_ACK","data":{"receivedType":"PATIENT_DATA","timestamp":"2024-05-02T16:04:05.123Z"}}`, string(ack))

	errMsg, err := json.Marshal(Error(errors.New("boom"), at))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"CANVAS_ERROR","data":{"error":"boom","timestamp":"2024-05-02T16:04:05.123Z"}}`, string(errMsg))

	logMsg, err := json.Marshal(Log([]byte(`{"type":"X"}`), "http://localhost:4200", at))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"CANVAS_LOG","data":{"message":"Canvas received message:","payload":{"type":"X"},"origin":"http://localhost:4200","timestamp":"2024-05-02T16:04:05.123Z"}}`, string(logMsg))

	req, err := json.Marshal(RequestUserDataMessage())
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"REQUEST_USER_DATA"}`, string(req))
}

func TestLog_InvalidPayloadIsQuoted(t *testing.T) {
	data, err := json.Marshal(Log([]byte(`not json`), "o", time.Unix(0, 0)))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"payload":"not json"`)
}

func TestQueue_TargetOrigin(t *testing.T) {
	q := NewQueue("http://localhost:4200")
	require.NoError(t, q.Post(Ack("A", time.Now()), "*"))
	require.NoError(t, q.Post(Ack("B", time.Now()), "http://localhost:4200"))
	require.NoError(t, q.Post(Ack("C", time.Now()), "https://elsewhere.example.com"))

	assert.Equal(t, []Type{TypeAck, TypeAck}, q.Types())
	items := q.Drain()
	require.Len(t, items, 2)
	assert.Equal(t, "*", items[0].TargetOrigin)
	assert.Equal(t, 0, q.Len())
}
