package testutil

import (
	"context"
	"iter"
	"strings"
	"sync"

	"schoolwijzer/internal/provider"
)

// Turn scripts one provider invocation: its fragments, and an error yielded
// after them (an establishment failure has no fragments).
type Turn struct {
	Fragments []string
	Err       error
}

// FakeProvider replays scripted turns in order. When the script runs out
// the last turn repeats. Safe for concurrent use.
type FakeProvider struct {
	mu    sync.Mutex
	turns []Turn
	calls int

	// LastMessages holds the message list of the most recent call.
	LastMessages []provider.Message
}

// NewFakeProvider creates a provider replaying turns.
func NewFakeProvider(turns ...Turn) *FakeProvider {
	return &FakeProvider{turns: turns}
}

// Calls reports how many times the provider was invoked.
func (f *FakeProvider) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *FakeProvider) next(messages []provider.Message) Turn {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.LastMessages = messages
	idx := f.calls
	f.calls++
	if idx >= len(f.turns) {
		idx = len(f.turns) - 1
	}
	if idx < 0 {
		return Turn{}
	}
	return f.turns[idx]
}

// Complete returns the turn's concatenated fragments, or its error.
func (f *FakeProvider) Complete(ctx context.Context, messages []provider.Message, params provider.Params) (string, error) {
	turn := f.next(messages)
	if turn.Err != nil {
		return "", turn.Err
	}
	return strings.Join(turn.Fragments, ""), nil
}

// Stream yields the turn's fragments in order, then its error if any.
func (f *FakeProvider) Stream(ctx context.Context, messages []provider.Message, params provider.Params) iter.Seq2[string, error] {
	turn := f.next(messages)
	return func(yield func(string, error) bool) {
		for _, fragment := range turn.Fragments {
			if !yield(fragment, nil) {
				return
			}
		}
		if turn.Err != nil {
			yield("", turn.Err)
		}
	}
}
