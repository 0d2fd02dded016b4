// Package store persists conversations and messages in PostgreSQL and
// reconciles in-memory transcripts with durable state. The Synchronizer
// writes only the unsaved suffix of a conversation, so repeated calls are
// idempotent.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a conversation or message does not exist.
var ErrNotFound = errors.New("not found")

// Conversation is the durable conversation record.
type Conversation struct {
	ID           uuid.UUID
	OwnerID      string
	Title        string
	MessageCount int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Message is the durable message record. Sequence numbers start at 1 and
// are assigned by AppendMessages inside a transaction.
type Message struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	Role           string
	Content        string
	Sequence       int32
	IsError        bool
	Feedback       string
	CreatedAt      time.Time
}

// Store manages conversation persistence with a PostgreSQL backend.
// Safe for concurrent use.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New creates a Store on pool.
func New(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{
		pool:   pool,
		logger: logger,
	}
}

// CreateConversation inserts a new conversation and returns it with the
// store-assigned id.
func (s *Store) CreateConversation(ctx context.Context, ownerID, title string) (Conversation, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO conversations (owner_id, title)
		VALUES ($1, $2)
		RETURNING id, owner_id, title, message_count, created_at, updated_at`,
		ownerID, title,
	)

	conv, err := scanConversation(row)
	if err != nil {
		return Conversation{}, fmt.Errorf("create conversation: %w", err)
	}

	s.logger.Debug("created conversation", "id", conv.ID, "title", conv.Title)
	return conv, nil
}

// Conversation retrieves a conversation by id.
func (s *Store) Conversation(ctx context.Context, id uuid.UUID) (Conversation, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, owner_id, title, message_count, created_at, updated_at
		FROM conversations WHERE id = $1`,
		uuidToPg(id),
	)

	conv, err := scanConversation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Conversation{}, fmt.Errorf("conversation %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Conversation{}, fmt.Errorf("get conversation %s: %w", id, err)
	}
	return conv, nil
}

// UpdateTitle sets a conversation's title.
func (s *Store) UpdateTitle(ctx context.Context, id uuid.UUID, title string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE conversations SET title = $2, updated_at = now() WHERE id = $1`,
		uuidToPg(id), title,
	)
	if err != nil {
		return fmt.Errorf("update title for %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("conversation %s: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteConversation deletes a conversation and its messages (CASCADE).
func (s *Store) DeleteConversation(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM conversations WHERE id = $1`, uuidToPg(id))
	if err != nil {
		return fmt.Errorf("delete conversation %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("conversation %s: %w", id, ErrNotFound)
	}

	s.logger.Debug("deleted conversation", "id", id)
	return nil
}

// Messages returns a conversation's messages ordered by sequence number.
func (s *Store) Messages(ctx context.Context, conversationID uuid.UUID) ([]Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, conversation_id, role, content, sequence_number, is_error, feedback, created_at
		FROM messages WHERE conversation_id = $1
		ORDER BY sequence_number`,
		uuidToPg(conversationID),
	)
	if err != nil {
		return nil, fmt.Errorf("list messages for %s: %w", conversationID, err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var (
			m          Message
			id, convID pgtype.UUID
			feedback   *string
		)
		if err := rows.Scan(&id, &convID, &m.Role, &m.Content, &m.Sequence, &m.IsError, &feedback, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.ID = pgToUUID(id)
		m.ConversationID = pgToUUID(convID)
		if feedback != nil {
			m.Feedback = *feedback
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages for %s: %w", conversationID, err)
	}
	return messages, nil
}

// MessageCount returns the number of stored messages for a conversation.
// A missing conversation counts as zero.
func (s *Store) MessageCount(ctx context.Context, conversationID uuid.UUID) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT count(*) FROM messages WHERE conversation_id = $1`,
		uuidToPg(conversationID),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count messages for %s: %w", conversationID, err)
	}
	return count, nil
}

// AppendMessages appends messages in order, assigning consecutive sequence
// numbers. The conversation row is locked for the duration of the
// transaction so interleaved appends cannot produce duplicate sequences.
// The conversation's message_count and updated_at are updated atomically.
func (s *Store) AppendMessages(ctx context.Context, conversationID uuid.UUID, messages []Message) error {
	if len(messages) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			s.logger.Debug("transaction rollback", "error", err)
		}
	}()

	// Lock the conversation row so sequence assignment is race-free.
	var locked pgtype.UUID
	err = tx.QueryRow(ctx, `SELECT id FROM conversations WHERE id = $1 FOR UPDATE`,
		uuidToPg(conversationID)).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("conversation %s: %w", conversationID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("lock conversation %s: %w", conversationID, err)
	}

	var maxSeq int32
	err = tx.QueryRow(ctx, `
		SELECT coalesce(max(sequence_number), 0) FROM messages WHERE conversation_id = $1`,
		uuidToPg(conversationID)).Scan(&maxSeq)
	if err != nil {
		return fmt.Errorf("max sequence for %s: %w", conversationID, err)
	}

	for i, m := range messages {
		seq := maxSeq + int32(i) + 1 // #nosec G115 -- i bounded by slice length
		var feedback *string
		if m.Feedback != "" {
			feedback = &m.Feedback
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO messages (id, conversation_id, role, content, sequence_number, is_error, feedback, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			uuidToPg(m.ID), uuidToPg(conversationID), m.Role, m.Content, seq, m.IsError, feedback, m.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert message %d: %w", i, err)
		}
	}

	newCount := maxSeq + int32(len(messages)) // #nosec G115 -- len bounded by practical limits
	_, err = tx.Exec(ctx, `
		UPDATE conversations SET message_count = $2, updated_at = now() WHERE id = $1`,
		uuidToPg(conversationID), newCount,
	)
	if err != nil {
		return fmt.Errorf("update conversation metadata: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	s.logger.Debug("appended messages", "conversation_id", conversationID, "count", len(messages))
	return nil
}

// UpdateFeedback sets a message's feedback. An empty feedback clears it.
func (s *Store) UpdateFeedback(ctx context.Context, messageID uuid.UUID, feedback string) error {
	var fb *string
	if feedback != "" {
		fb = &feedback
	}
	tag, err := s.pool.Exec(ctx, `UPDATE messages SET feedback = $2 WHERE id = $1`,
		uuidToPg(messageID), fb)
	if err != nil {
		return fmt.Errorf("update feedback for %s: %w", messageID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("message %s: %w", messageID, ErrNotFound)
	}
	return nil
}

func scanConversation(row pgx.Row) (Conversation, error) {
	var (
		c  Conversation
		id pgtype.UUID
	)
	if err := row.Scan(&id, &c.OwnerID, &c.Title, &c.MessageCount, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return Conversation{}, err
	}
	c.ID = pgToUUID(id)
	return c, nil
}

func uuidToPg(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

func pgToUUID(id pgtype.UUID) uuid.UUID {
	return uuid.UUID(id.Bytes)
}
