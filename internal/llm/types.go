package llm

// Role constants
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a conversation message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Stream event types.
const (
	EventTextDelta = "text_delta"
	EventDone      = "done"
	EventError     = "error"
)

// StreamEvent represents a single event in a streaming LLM response.
type StreamEvent struct {
	Type string

	// For text_delta; for done it carries the finish reason.
	Text string

	// For error
	Error error
}

// StreamResult is the accumulated result after consuming a full stream.
type StreamResult struct {
	Message    Message // the complete assistant message
	Text       string
	StopReason string
}

func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

func AssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Content: text}
}

func SystemMessage(text string) Message {
	return Message{Role: RoleSystem, Content: text}
}
