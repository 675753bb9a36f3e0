package augment

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/lhdbsbz/canvas/internal/state"
)

var (
	ErrNoUserData   = errors.New("user data not available, the canvas has not been initialized")
	ErrInvalidExams = errors.New("user data exams must be an array")
)

// FormatUserInfo renders the anamnese and blood markers of the user data. The
// clinical fields live under "data" when the parent nests them there.
func FormatUserInfo(user state.Object) (string, error) {
	if user.IsZero() {
		return "", ErrNoUserData
	}
	info := gjson.ParseBytes(user.Raw())
	if nested := user.Get("data"); nested.IsObject() {
		info = nested
	}

	anamnese := "null"
	if a := info.Get("anamnese"); a.Exists() {
		anamnese = a.Raw
	}

	exams := info.Get("exams")
	if !exams.IsArray() {
		return "", ErrInvalidExams
	}
	markers := make([]string, 0, len(exams.Array()))
	for _, exam := range exams.Array() {
		markers = append(markers, fmt.Sprintf("%s - %s %s",
			scalar(exam.Get("name")), scalar(exam.Get("value")), scalar(exam.Get("unit"))))
	}

	return "<anamnese>" + anamnese + "</anamnese>\n\n" +
		"<marcadores-sanguineos>" + strings.Join(markers, "\n") + "</marcadores-sanguineos>", nil
}

// scalar prints strings unquoted, numbers as sent and anything else as raw JSON.
func scalar(v gjson.Result) string {
	switch v.Type {
	case gjson.String:
		return v.Str
	case gjson.Null:
		if !v.Exists() {
			return ""
		}
		return v.Raw
	default:
		return v.Raw
	}
}

// FormatContext wraps each passage in a context tag, blank line separated.
func FormatContext(passages []string) string {
	blocks := make([]string, len(passages))
	for i, p := range passages {
		blocks[i] = "<context>" + p + "</context>"
	}
	return strings.Join(blocks, "\n\n")
}
