package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"schoolwijzer/internal/conversation"
)

// ConversationStore is the store surface the Synchronizer consumes.
// Defined here, by the consumer, so tests can substitute a fake.
type ConversationStore interface {
	CreateConversation(ctx context.Context, ownerID, title string) (Conversation, error)
	Conversation(ctx context.Context, id uuid.UUID) (Conversation, error)
	UpdateTitle(ctx context.Context, id uuid.UUID, title string) error
	MessageCount(ctx context.Context, conversationID uuid.UUID) (int, error)
	AppendMessages(ctx context.Context, conversationID uuid.UUID, messages []Message) error
}

// Synchronizer reconciles an in-memory conversation with durable storage.
// Each call writes only the suffix of terminal messages beyond the store's
// watermark, so calling it after every turn is safe and idempotent.
type Synchronizer struct {
	store  ConversationStore
	logger *slog.Logger
}

// NewSynchronizer creates a Synchronizer on store.
func NewSynchronizer(store ConversationStore, logger *slog.Logger) *Synchronizer {
	if logger == nil {
		logger = slog.Default()
	}

	return &Synchronizer{
		store:  store,
		logger: logger,
	}
}

// Sync persists conv's unsaved suffix. Guest conversations (empty owner)
// are skipped entirely. If the conversation does not exist yet it is
// created with a title derived from the first user message, and conv's id
// is remapped to the store-assigned one. The stored title is updated only
// when the derived title differs.
//
// Returns the number of messages written.
func (s *Synchronizer) Sync(ctx context.Context, conv *conversation.Conversation) (int, error) {
	if conv.OwnerID() == "" {
		return 0, nil
	}

	title := deriveTitle(conv)

	stored, err := s.store.Conversation(ctx, conv.ID())
	switch {
	case errors.Is(err, ErrNotFound):
		created, err := s.store.CreateConversation(ctx, conv.OwnerID(), title)
		if err != nil {
			return 0, fmt.Errorf("create conversation: %w", err)
		}
		conv.SetID(created.ID)
		conv.SetTitle(created.Title)
		stored = created
	case err != nil:
		return 0, fmt.Errorf("load conversation: %w", err)
	default:
		if title != "" && title != stored.Title {
			if err := s.store.UpdateTitle(ctx, stored.ID, title); err != nil {
				return 0, fmt.Errorf("update title: %w", err)
			}
			conv.SetTitle(title)
		}
	}

	watermark, err := s.store.MessageCount(ctx, stored.ID)
	if err != nil {
		return 0, fmt.Errorf("read watermark: %w", err)
	}

	suffix := unsavedSuffix(conv.Messages(), watermark)
	if len(suffix) == 0 {
		return 0, nil
	}

	records := make([]Message, 0, len(suffix))
	for _, m := range suffix {
		records = append(records, Message{
			ID:             m.ID,
			ConversationID: stored.ID,
			Role:           m.Role,
			Content:        m.Content,
			IsError:        m.Error,
			Feedback:       string(m.Feedback),
			CreatedAt:      m.Timestamp,
		})
	}

	if err := s.store.AppendMessages(ctx, stored.ID, records); err != nil {
		return 0, fmt.Errorf("append messages: %w", err)
	}

	s.logger.Debug("synchronized conversation",
		"conversation_id", stored.ID,
		"watermark", watermark,
		"written", len(records),
	)
	return len(records), nil
}

// unsavedSuffix returns the messages beyond the watermark, stopping at the
// first message still streaming: a streaming message and everything after
// it stay in memory until the turn terminates.
func unsavedSuffix(messages []conversation.Message, watermark int) []conversation.Message {
	if watermark >= len(messages) {
		return nil
	}

	suffix := messages[watermark:]
	for i, m := range suffix {
		if m.Streaming {
			return suffix[:i]
		}
	}
	return suffix
}

// deriveTitle builds the conversation title from the first user message,
// truncated at a word boundary.
func deriveTitle(conv *conversation.Conversation) string {
	if t := conv.Title(); t != "" {
		return t
	}
	first, ok := conv.FirstUserMessage()
	if !ok {
		return ""
	}
	return truncateForTitle(first.Content)
}
