// Package orchestrator drives one chat turn end to end: context assembly,
// the streaming provider call through the retry controller, post-hoc
// validation, and best-effort persistence. Provider failures never escape;
// every outcome lands in the conversation as an assistant message.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"schoolwijzer/internal/assembler"
	"schoolwijzer/internal/conversation"
	"schoolwijzer/internal/i18n"
	"schoolwijzer/internal/provider"
	"schoolwijzer/internal/stream"
	"schoolwijzer/internal/validator"
)

// ErrEmptyInput is returned when the user turn is blank.
var ErrEmptyInput = errors.New("empty input")

// Syncer persists a conversation's unsaved suffix. Defined here, by the
// consumer, so the engine can run without a database in tests and for
// guest-only deployments.
type Syncer interface {
	Sync(ctx context.Context, conv *conversation.Conversation) (int, error)
}

// FeedbackStore persists per-message feedback.
type FeedbackStore interface {
	UpdateFeedback(ctx context.Context, messageID uuid.UUID, feedback string) error
}

// Engine orchestrates chat turns.
type Engine struct {
	provider  provider.ChatProvider
	retrier   *provider.Retrier
	assembler *assembler.Assembler
	syncer    Syncer        // nil disables persistence
	feedback  FeedbackStore // nil disables feedback persistence
	params    provider.Params
	logger    *slog.Logger

	streamOpts []stream.Option
}

// Config wires an Engine.
type Config struct {
	Provider  provider.ChatProvider
	Retrier   *provider.Retrier
	Assembler *assembler.Assembler
	Syncer    Syncer
	Feedback  FeedbackStore
	Params    provider.Params
	Logger    *slog.Logger

	// StreamOptions are passed to every turn's controller. Tests use them
	// to disable pacing.
	StreamOptions []stream.Option
}

// New creates an Engine. Provider, Retrier, and Assembler are required.
func New(cfg Config) (*Engine, error) {
	if cfg.Provider == nil {
		return nil, errors.New("orchestrator: provider is required")
	}
	if cfg.Retrier == nil {
		return nil, errors.New("orchestrator: retrier is required")
	}
	if cfg.Assembler == nil {
		return nil, errors.New("orchestrator: assembler is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Engine{
		provider:   cfg.Provider,
		retrier:    cfg.Retrier,
		assembler:  cfg.Assembler,
		syncer:     cfg.Syncer,
		feedback:   cfg.Feedback,
		params:     cfg.Params,
		logger:     cfg.Logger,
		streamOpts: cfg.StreamOptions,
	}, nil
}

// Send runs one turn of conv. notify receives streaming events for the UI
// and may be nil. The returned message is the turn's final assistant
// message; provider and store failures are folded into it, never returned
// as the error. The error is non-nil only for caller misuse.
func (e *Engine) Send(ctx context.Context, conv *conversation.Conversation, profile *assembler.Profile, input string, notify stream.Notifier) (conversation.Message, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return conversation.Message{}, ErrEmptyInput
	}

	// Assemble before the turn is opened so the history window holds only
	// prior turns, not the input being sent.
	msgs, err := e.assembler.Assemble(ctx, conv, profile, input)

	ctrl := stream.NewController(conv, notify, e.logger, e.streamOpts...)
	if berr := ctrl.Begin(input); berr != nil {
		return conversation.Message{}, fmt.Errorf("begin turn: %w", berr)
	}

	switch {
	case errors.Is(err, assembler.ErrOffTopic):
		ctrl.Fail(i18n.T("chat.offtopic_redirect"))
	case err != nil:
		e.logger.Error("context assembly failed", "error", err)
		ctrl.Fail(i18n.T("error.provider"))
	default:
		e.runProviderTurn(ctx, ctrl, msgs)
	}

	e.persist(ctx, conv)
	return e.finalMessage(conv, ctrl.MessageID()), nil
}

// runProviderTurn streams the provider response into the controller and
// validates the completed text.
func (e *Engine) runProviderTurn(ctx context.Context, ctrl *stream.Controller, msgs []provider.Message) {
	fragments := e.retrier.Stream(ctx, func(ctx context.Context) iter.Seq2[string, error] {
		return e.provider.Stream(ctx, msgs, e.params)
	})

	full, err := ctrl.Consume(ctx, fragments)
	if err != nil {
		kind := provider.KindOf(err)
		e.logger.Warn("provider turn failed", "kind", kind.String(), "error", err)
		ctrl.Fail(messageFor(kind))
		return
	}

	if verr := validator.Validate(full); verr != nil {
		e.logger.Debug("response rejected by validator", "reason", verr)
		ctrl.Finish(i18n.T("chat.validation_rejected"))
		return
	}
	ctrl.Finish(full)
}

// persist synchronizes conv best-effort. A store failure is logged and the
// turn continues; the suffix is retried on the next turn's pass.
func (e *Engine) persist(ctx context.Context, conv *conversation.Conversation) {
	if e.syncer == nil {
		return
	}
	if _, err := e.syncer.Sync(ctx, conv); err != nil {
		e.logger.Error("conversation sync failed", "conversation_id", conv.ID(), "error", err)
	}
}

// Feedback records feedback on a message, in memory and, for owned
// conversations, in the store.
func (e *Engine) Feedback(ctx context.Context, conv *conversation.Conversation, messageID uuid.UUID, fb conversation.Feedback) error {
	if !conv.SetFeedback(messageID, fb) {
		return fmt.Errorf("message %s not found in conversation", messageID)
	}
	if e.feedback == nil || conv.OwnerID() == "" {
		return nil
	}
	if err := e.feedback.UpdateFeedback(ctx, messageID, string(fb)); err != nil {
		return fmt.Errorf("persist feedback: %w", err)
	}
	return nil
}

func (e *Engine) finalMessage(conv *conversation.Conversation, id uuid.UUID) conversation.Message {
	for _, m := range conv.Messages() {
		if m.ID == id {
			return m
		}
	}
	return conversation.Message{}
}

// messageFor is the single place the failure taxonomy maps onto
// user-visible text.
func messageFor(kind provider.ErrorKind) string {
	switch kind {
	case provider.KindRateLimited:
		return i18n.T("error.rate_limited")
	case provider.KindTimeout:
		return i18n.T("error.timeout")
	case provider.KindConnection:
		return i18n.T("error.connection")
	case provider.KindAuth:
		return i18n.T("error.auth")
	default:
		return i18n.T("error.provider")
	}
}
