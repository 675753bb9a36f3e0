// Package augment builds the prompt sent to the language model: the prescription
// instructions, what the canvas knows about the patient, passages retrieved for
// the question, and the physician's question itself.
package augment

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/lhdbsbz/canvas/internal/prompts"
	"github.com/lhdbsbz/canvas/internal/state"
)

const (
	DefaultLimit   = 10
	DefaultTimeout = 5 * time.Second
)

// SnapshotSource is the read side of the shared store.
type SnapshotSource interface {
	Get() state.Snapshot
}

// Retriever returns passages relevant to a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, limit int) ([]string, error)
}

type Options struct {
	Prompt  string        // instruction template; defaults to the Portuguese prescription prompt
	Limit   int           // passages requested from the retriever
	Timeout time.Duration // bound for each step
	Logger  *slog.Logger
}

// Augmenter composes augmented prompts. Its two steps, user info and retrieval,
// run concurrently and each one is simply left out when it fails.
type Augmenter struct {
	state     SnapshotSource
	retriever Retriever
	opts      Options
}

// New returns an augmenter. retriever may be nil, in which case no context is added.
func New(src SnapshotSource, retriever Retriever, opts Options) *Augmenter {
	if opts.Prompt == "" {
		opts.Prompt = prompts.Get("").Prescription
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Augmenter{state: src, retriever: retriever, opts: opts}
}

// Augment never fails. Whatever could not be produced is omitted.
func (a *Augmenter) Augment(ctx context.Context, question string) string {
	var userInfo, contextBlock string

	var wg conc.WaitGroup
	wg.Go(func() {
		s, err := a.userInfo()
		if err != nil {
			a.opts.Logger.Error("error fetching user info", "error", err)
			return
		}
		userInfo = s
	})
	wg.Go(func() {
		s, err := a.context(ctx, question)
		if err != nil {
			a.opts.Logger.Error("error fetching context data", "error", err)
			return
		}
		contextBlock = s
	})
	if r := wg.WaitAndRecover(); r != nil {
		a.opts.Logger.Error("augment step panicked", "panic", r.Value)
	}

	return Compose(a.opts.Prompt, userInfo, contextBlock, question)
}

func (a *Augmenter) userInfo() (string, error) {
	if a.state == nil {
		return "", ErrNoUserData
	}
	user := a.state.Get().UserData
	if user == nil {
		return "", ErrNoUserData
	}
	return FormatUserInfo(user.Object)
}

func (a *Augmenter) context(ctx context.Context, question string) (string, error) {
	if a.retriever == nil {
		return "", ErrNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, a.opts.Timeout)
	defer cancel()

	passages, err := a.retriever.Retrieve(ctx, question, a.opts.Limit)
	if err != nil {
		return "", err
	}
	return FormatContext(passages), nil
}

// Compose assembles the final prompt. Empty optional blocks are skipped together
// with their separator.
func Compose(prompt, userInfo, contextBlock, question string) string {
	var b strings.Builder
	b.WriteString(prompt)
	b.WriteString("\n\n")
	if userInfo != "" {
		b.WriteString(userInfo)
		b.WriteString("\n\n")
	}
	if contextBlock != "" {
		b.WriteString(contextBlock)
		b.WriteString("\n\n")
	}
	b.WriteString(questionOpen)
	b.WriteString("\n")
	b.WriteString(question)
	b.WriteString("\n")
	b.WriteString(questionClose)
	return b.String()
}
