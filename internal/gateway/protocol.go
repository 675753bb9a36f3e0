package gateway

import (
	"github.com/lhdbsbz/canvas/internal/llm"
	"github.com/lhdbsbz/canvas/internal/message"
)

// HTTP request and response bodies of the /api routes.

// MessagesResponse lists what the canvas posted back to the sender.
type MessagesResponse struct {
	Replies []message.Outbound `json:"replies"`
}

type AugmentRequest struct {
	Question string `json:"question" binding:"required"`
}

type AugmentResponse struct {
	Prompt string `json:"prompt"`
}

type OriginalQuestionRequest struct {
	Text string `json:"text"`
}

type OriginalQuestionResponse struct {
	Question string `json:"question"`
}

type PrescriptionRequest struct {
	History  []llm.Message `json:"history"`
	Question string        `json:"question" binding:"required"`
	Stream   bool          `json:"stream"`
}

type PrescriptionResponse struct {
	RunID          string        `json:"runId"`
	Reply          string        `json:"reply"`
	Model          string        `json:"model"`
	StopReason     string        `json:"stopReason,omitempty"`
	Turn           llm.Message   `json:"turn"`
	History        []llm.Message `json:"history"`
	DisplayHistory []llm.Message `json:"displayHistory"`
}

type ExportRequest struct {
	Markdown string `json:"markdown"`
}

type UserDataRequestResponse struct {
	Sent int `json:"sent"`
}
