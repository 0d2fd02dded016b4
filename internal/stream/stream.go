// Package stream drives the per-turn streaming state machine: a user turn
// enters AwaitingFirstToken with a placeholder assistant message, provider
// fragments are batched into the placeholder, and the turn ends in Complete
// or Error. Each controller is bound to one conversation generation; when a
// newer turn starts, the stale controller's mutations become no-ops.
package stream

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"schoolwijzer/internal/conversation"
)

// State of one streaming turn.
type State int

const (
	StateIdle State = iota
	StateAwaitingFirstToken
	StateStreaming
	StateComplete
	StateError
)

// String returns the state's wire name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingFirstToken:
		return "awaiting_first_token"
	case StateStreaming:
		return "streaming"
	case StateComplete:
		return "complete"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// EventType classifies notifier events.
type EventType int

const (
	EventChunk EventType = iota
	EventDone
	EventError
)

// Event is one UI notification: a flushed chunk, a completed turn, or a
// failed turn.
type Event struct {
	Type      EventType
	MessageID uuid.UUID
	Text      string // Delta for EventChunk, full content for EventDone/EventError
}

// Notifier receives events as the turn progresses. Called synchronously
// from the controller; must not block for long.
type Notifier func(Event)

// Buffer flush threshold and pacing delay between flushes. The pacing delay
// exists for perceived smoothness only; correctness never depends on it.
const (
	defaultFlushThreshold = 3
	defaultPacing         = 30 * time.Millisecond
)

// Controller runs one streaming turn against one conversation.
type Controller struct {
	conv   *conversation.Conversation
	notify Notifier
	logger *slog.Logger

	flushThreshold int
	pacing         time.Duration

	state       State
	gen         conversation.Generation
	placeholder uuid.UUID
}

// Option configures a Controller.
type Option func(*Controller)

// WithFlushThreshold overrides the minimum buffered size before a flush.
func WithFlushThreshold(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.flushThreshold = n
		}
	}
}

// WithPacing overrides the delay between flushes. Zero disables pacing.
func WithPacing(d time.Duration) Option {
	return func(c *Controller) {
		c.pacing = d
	}
}

// NewController creates a controller for one turn of conv. notify may be
// nil when no UI is attached.
func NewController(conv *conversation.Conversation, notify Notifier, logger *slog.Logger, opts ...Option) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	if notify == nil {
		notify = func(Event) {}
	}

	c := &Controller{
		conv:           conv,
		notify:         notify,
		logger:         logger,
		flushThreshold: defaultFlushThreshold,
		pacing:         defaultPacing,
		state:          StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current turn state.
func (c *Controller) State() State {
	return c.state
}

// MessageID returns the placeholder assistant message id for this turn.
func (c *Controller) MessageID() uuid.UUID {
	return c.placeholder
}

// Begin starts the turn: appends the user message and an empty streaming
// placeholder, and claims a fresh generation so any in-flight older turn is
// invalidated. Fails if this controller already ran.
func (c *Controller) Begin(input string) error {
	if c.state != StateIdle {
		return fmt.Errorf("cannot begin turn in state %s", c.state)
	}

	c.gen = c.conv.NextGeneration()
	c.conv.Append(conversation.RoleUser, input)
	c.placeholder = c.conv.AppendStreaming()
	c.state = StateAwaitingFirstToken

	c.logger.Debug("turn started",
		"conversation_id", c.conv.ID(),
		"message_id", c.placeholder,
		"generation", c.gen,
	)
	return nil
}

// Consume drains the fragment sequence, flushing batches into the
// placeholder message. It returns the full concatenated response text. A
// fragment error aborts consumption and is returned as-is; the caller maps
// it onto a user-visible failure via Fail.
func (c *Controller) Consume(ctx context.Context, fragments iter.Seq2[string, error]) (string, error) {
	if c.state != StateAwaitingFirstToken {
		return "", fmt.Errorf("cannot consume in state %s", c.state)
	}

	var full, buffer string
	flushed := false

	for fragment, err := range fragments {
		if err != nil {
			return "", err
		}
		if c.state == StateAwaitingFirstToken {
			c.state = StateStreaming
		}

		full += fragment
		buffer += fragment
		if len(buffer) < c.flushThreshold {
			continue
		}

		if flushed {
			c.pace(ctx)
		}
		c.flush(buffer)
		buffer = ""
		flushed = true
	}

	if buffer != "" {
		if flushed {
			c.pace(ctx)
		}
		c.flush(buffer)
	}
	return full, nil
}

// Finish terminates the turn successfully. content is the final message
// body (the validated response, or a substitute if validation rejected it).
// A stale generation makes this a no-op.
func (c *Controller) Finish(content string) {
	c.state = StateComplete
	if !c.conv.Current(c.gen) {
		c.logger.Debug("stale turn finished, dropping", "generation", c.gen)
		return
	}
	c.conv.Complete(c.placeholder, content)
	c.notify(Event{Type: EventDone, MessageID: c.placeholder, Text: content})
}

// Fail terminates the turn with a user-visible error message. A stale
// generation makes this a no-op.
func (c *Controller) Fail(message string) {
	c.state = StateError
	if !c.conv.Current(c.gen) {
		c.logger.Debug("stale turn failed, dropping", "generation", c.gen)
		return
	}
	c.conv.Fail(c.placeholder, message)
	c.notify(Event{Type: EventError, MessageID: c.placeholder, Text: message})
}

// flush writes the buffer into the placeholder and notifies. Stale
// generations drop the write but the returned full text keeps accumulating
// so logging stays accurate.
func (c *Controller) flush(buffer string) {
	if !c.conv.Current(c.gen) {
		return
	}
	c.conv.AppendContent(c.placeholder, buffer)
	c.notify(Event{Type: EventChunk, MessageID: c.placeholder, Text: buffer})
}

// pace sleeps between flushes unless the context is done.
func (c *Controller) pace(ctx context.Context) {
	if c.pacing <= 0 {
		return
	}
	t := time.NewTimer(c.pacing)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
