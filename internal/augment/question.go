package augment

import (
	"regexp"

	"github.com/lhdbsbz/canvas/internal/llm"
)

const (
	questionOpen  = "<pergunta-medico>"
	questionClose = "</pergunta-medico>"
)

var questionRe = regexp.MustCompile(`(?s)` + questionOpen + `\n?(.*?)\n?` + questionClose)

// ExtractOriginalQuestion returns the physician's question from an augmented
// prompt. Text without the question block is returned unchanged.
func ExtractOriginalQuestion(text string) string {
	m := questionRe.FindStringSubmatch(text)
	if m == nil {
		return text
	}
	return m[1]
}

// OriginalMessage strips the augmentation from a user turn so history shows what
// the physician typed. Other roles pass through.
func OriginalMessage(msg llm.Message) llm.Message {
	if msg.Role != llm.RoleUser {
		return msg
	}
	msg.Content = ExtractOriginalQuestion(msg.Content)
	return msg
}
