// Package conversation holds the in-memory data model for a chat:
// ordered messages, the per-conversation generation counter that guards
// against interleaved turns, and the history windowing used for context
// assembly.
//
// A Conversation is owned by one user session at a time but its methods are
// safe for concurrent use; streaming callbacks and HTTP handlers touch it
// from different goroutines.
package conversation

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Role constants define valid message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Feedback is the user's verdict on an assistant message.
type Feedback string

// Feedback values.
const (
	FeedbackNone    Feedback = ""
	FeedbackLike    Feedback = "like"
	FeedbackDislike Feedback = "dislike"
)

// Message is a single conversation message.
//
// While Streaming is true the content grows monotonically; once a message
// reaches a terminal state (Streaming=false) it is immutable except for
// Feedback.
type Message struct {
	ID        uuid.UUID
	Role      string
	Content   string
	Timestamp time.Time
	Streaming bool
	Error     bool
	Feedback  Feedback
}

// Generation identifies one in-flight turn. Stream callbacks carry the
// generation they were started under; callbacks from a superseded generation
// must not mutate the conversation.
type Generation uint64

// Conversation is an ordered message sequence with identity and title.
//
// OwnerID is empty for guest sessions, which are held purely in memory and
// never synchronized to durable storage.
type Conversation struct {
	mu         sync.RWMutex
	id         uuid.UUID
	ownerID    string
	title      string
	createdAt  time.Time
	updatedAt  time.Time
	messages   []*Message
	generation Generation
}

// New creates an empty conversation with a locally generated id.
// The id is remapped to the store-assigned id on first synchronization.
func New(ownerID string) *Conversation {
	now := time.Now()
	return &Conversation{
		id:        uuid.New(),
		ownerID:   ownerID,
		createdAt: now,
		updatedAt: now,
	}
}

// ID returns the conversation id.
func (c *Conversation) ID() uuid.UUID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.id
}

// SetID remaps the conversation id. Called by the synchronizer after the
// durable store assigns its own id.
func (c *Conversation) SetID(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.id = id
}

// OwnerID returns the owning user's id, or "" for guest sessions.
func (c *Conversation) OwnerID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ownerID
}

// Title returns the conversation title.
func (c *Conversation) Title() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.title
}

// SetTitle sets the conversation title.
func (c *Conversation) SetTitle(title string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.title = title
}

// CreatedAt returns the creation time.
func (c *Conversation) CreatedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.createdAt
}

// LastUpdated returns the time of the last mutation.
func (c *Conversation) LastUpdated() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.updatedAt
}

// Generation returns the current turn generation.
func (c *Conversation) Generation() Generation {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}

// NextGeneration advances and returns the turn generation, invalidating any
// in-flight stream started under a previous generation. A superseded turn's
// callbacks can never land after this, so its still-streaming placeholder is
// failed in place; every message must reach a terminal state exactly once,
// and the synchronizer will not write past a streaming one.
func (c *Conversation) NextGeneration() Generation {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, m := range c.messages {
		if m.Streaming {
			m.Streaming = false
			m.Error = true
			c.updatedAt = time.Now()
		}
	}

	c.generation++
	return c.generation
}

// Current reports whether gen is still the latest generation.
func (c *Conversation) Current(gen Generation) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return gen == c.generation
}

// Append adds a terminal message (user turn or static assistant reply).
func (c *Conversation) Append(role, content string) *Message {
	msg := &Message{
		ID:        uuid.New(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msg)
	c.updatedAt = msg.Timestamp
	return copyMessage(msg)
}

// AppendStreaming adds an empty assistant placeholder in streaming state and
// returns its id.
func (c *Conversation) AppendStreaming() uuid.UUID {
	msg := &Message{
		ID:        uuid.New(),
		Role:      RoleAssistant,
		Timestamp: time.Now(),
		Streaming: true,
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msg)
	c.updatedAt = msg.Timestamp
	return msg.ID
}

// AppendContent grows a streaming message's content in place.
// No-op if the message is unknown or already terminal.
func (c *Conversation) AppendContent(id uuid.UUID, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	msg := c.find(id)
	if msg == nil || !msg.Streaming {
		return
	}
	msg.Content += text
	c.updatedAt = time.Now()
}

// Complete transitions a streaming message to its terminal success state,
// replacing the content (the validator may substitute the whole response).
func (c *Conversation) Complete(id uuid.UUID, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	msg := c.find(id)
	if msg == nil || !msg.Streaming {
		return
	}
	msg.Content = content
	msg.Streaming = false
	c.updatedAt = time.Now()
}

// Fail transitions a streaming message to its terminal error state with the
// user-visible error text.
func (c *Conversation) Fail(id uuid.UUID, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	msg := c.find(id)
	if msg == nil || !msg.Streaming {
		return
	}
	msg.Content = content
	msg.Streaming = false
	msg.Error = true
	c.updatedAt = time.Now()
}

// SetFeedback records user feedback on a message. Feedback is the only field
// mutable after a message turns terminal.
func (c *Conversation) SetFeedback(id uuid.UUID, fb Feedback) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	msg := c.find(id)
	if msg == nil {
		return false
	}
	msg.Feedback = fb
	c.updatedAt = time.Now()
	return true
}

// Messages returns copies of all messages in append order.
func (c *Conversation) Messages() []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Message, len(c.messages))
	for i, m := range c.messages {
		out[i] = *m
	}
	return out
}

// MessageCount returns the number of messages.
func (c *Conversation) MessageCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}

// Window returns copies of the last n messages, excluding error messages.
// Used to build the bounded history context for the provider.
func (c *Conversation) Window(n int) []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Message, 0, n)
	for i := len(c.messages) - 1; i >= 0 && len(out) < n; i-- {
		if c.messages[i].Error {
			continue
		}
		out = append(out, *c.messages[i])
	}

	// Collected newest-first; restore append order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// FirstUserMessage returns the first user message, if any.
// The synchronizer derives the stored title from it.
func (c *Conversation) FirstUserMessage() (Message, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, m := range c.messages {
		if m.Role == RoleUser {
			return *m, true
		}
	}
	return Message{}, false
}

// find returns the message with the given id. Caller must hold the lock.
func (c *Conversation) find(id uuid.UUID) *Message {
	// Scan backwards: the message being mutated is nearly always the last one.
	for i := len(c.messages) - 1; i >= 0; i-- {
		if c.messages[i].ID == id {
			return c.messages[i]
		}
	}
	return nil
}

func copyMessage(m *Message) *Message {
	cp := *m
	return &cp
}
