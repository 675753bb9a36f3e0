package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/lhdbsbz/canvas/internal/augment"
	"github.com/lhdbsbz/canvas/internal/llm"
)

var (
	ErrNoClient      = errors.New("language model is not configured")
	ErrEmptyQuestion = errors.New("question is empty")
)

// Augmenter turns a physician's question into the full prompt.
type Augmenter interface {
	Augment(ctx context.Context, question string) string
}

// Prescriber runs one prescription turn: augment the question, ask the model and
// hand back the turn to store. History keeps user turns in augmented form so the
// model sees the same context on the next turn; DisplayHistory undoes that.
type Prescriber struct {
	Client    llm.Client
	Augmenter Augmenter
	State     augment.SnapshotSource
	Model     string
	Fallbacks []string
	Logger    *slog.Logger
}

type AskParams struct {
	History  []llm.Message
	Question string
	Sink     EventSink // optional
}

type Result struct {
	RunID      string
	Reply      string
	Model      string
	StopReason string
	Turn       llm.Message   // the augmented user turn
	History    []llm.Message // History + Turn + reply
}

func (p *Prescriber) Ask(ctx context.Context, params AskParams) (*Result, error) {
	if p.Client == nil {
		return nil, ErrNoClient
	}
	if strings.TrimSpace(params.Question) == "" {
		return nil, ErrEmptyQuestion
	}
	log := p.logger()

	runID := uuid.NewString()
	emitter := NewEventEmitter(runID, params.Sink)
	emitter.Emit(EventTypeStreamStart)

	prompt := params.Question
	if p.Augmenter != nil {
		prompt = p.Augmenter.Augment(ctx, params.Question)
	}
	turn := llm.UserMessage(prompt)

	messages := append(slices.Clone(params.History), turn)
	chat := llm.ChatParams{
		Messages: messages,
		System:   p.instructions(),
	}

	result, model, err := p.callWithFallback(ctx, chat, emitter)
	if err != nil {
		log.Error("prescription failed", "runId", runID, "error", err)
		emitter.Emit(EventTypeError, func(e *Event) { e.Error = err.Error() })
		return nil, err
	}

	emitter.Emit(EventTypeAssistant, func(e *Event) { e.Text = result.Text })
	emitter.Emit(EventTypeDone, func(e *Event) {
		e.Model = model
		e.StopReason = result.StopReason
	})
	log.Info("prescription generated", "runId", runID, "model", model, "chars", len(result.Text))

	return &Result{
		RunID:      runID,
		Reply:      result.Text,
		Model:      model,
		StopReason: result.StopReason,
		Turn:       turn,
		History:    append(messages, result.Message),
	}, nil
}

// instructions returns the doctor's promptInstructions, used as the system message.
func (p *Prescriber) instructions() string {
	if p.State == nil {
		return ""
	}
	prefs := p.State.Get().DoctorPreferences
	if prefs == nil {
		return ""
	}
	return strings.TrimSpace(prefs.PromptInstructions())
}

// callWithFallback tries the primary model, then fallbacks on rate limit or auth errors.
func (p *Prescriber) callWithFallback(ctx context.Context, params llm.ChatParams, emitter *EventEmitter) (*llm.StreamResult, string, error) {
	candidates := append([]string{p.Model}, p.Fallbacks...)

	var lastErr error
	for _, model := range candidates {
		if model == "" {
			continue
		}
		params.Model = model
		stream, err := p.Client.Chat(ctx, params)
		if err != nil {
			var apiErr *llm.APIError
			if errors.As(err, &apiErr) && (apiErr.IsRateLimit() || apiErr.IsAuth()) {
				p.logger().Warn("model failover", "model", model, "error", err)
				lastErr = err
				continue
			}
			return nil, model, err
		}

		result, err := consumeWithEvents(ctx, stream, emitter)
		if err != nil {
			return nil, model, err
		}
		return result, model, nil
	}
	if lastErr == nil {
		return nil, "", errors.New("no model configured")
	}
	return nil, "", fmt.Errorf("all models failed, last error: %w", lastErr)
}

// consumeWithEvents reads the stream and emits text_delta events in real time.
func consumeWithEvents(ctx context.Context, stream <-chan llm.StreamEvent, emitter *EventEmitter) (*llm.StreamResult, error) {
	return llm.ConsumeStream(ctx, stream, func(text string) {
		emitter.Emit(EventTypeTextDelta, func(e *Event) { e.Text = text })
	})
}

func (p *Prescriber) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

// DisplayHistory returns the conversation as the physician wrote it, with the
// augmentation stripped from user turns.
func DisplayHistory(messages []llm.Message) []llm.Message {
	out := make([]llm.Message, len(messages))
	for i, m := range messages {
		out[i] = augment.OriginalMessage(m)
	}
	return out
}
