package llm

import (
	"context"
	"strings"
)

// Client is the interface the prescription agent talks to.
type Client interface {
	// Chat sends messages to the LLM and returns a stream of events.
	// The caller must consume the channel until it's closed.
	Chat(ctx context.Context, params ChatParams) (<-chan StreamEvent, error)
}

type ChatParams struct {
	Model    string
	Messages []Message
	System   string // sent as the first message
}

// ConsumeStream reads all events from a stream and returns the accumulated result.
// onText, when set, sees every text delta as it arrives.
func ConsumeStream(ctx context.Context, stream <-chan StreamEvent, onText func(string)) (*StreamResult, error) {
	result := &StreamResult{}
	var text strings.Builder

	for event := range stream {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		switch event.Type {
		case EventTextDelta:
			text.WriteString(event.Text)
			if onText != nil {
				onText(event.Text)
			}
		case EventError:
			return nil, event.Error
		case EventDone:
			result.StopReason = event.Text
		}
	}

	result.Text = text.String()
	result.Message = AssistantMessage(result.Text)
	return result, nil
}
