package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"schoolwijzer/internal/assembler"
	"schoolwijzer/internal/conversation"
	"schoolwijzer/internal/orchestrator"
	"schoolwijzer/internal/stream"
)

// SSE event types for chat streaming.
const (
	EventChunk = "chunk"
	EventDone  = "done"
	EventError = "error"
)

// ChunkPayload is the SSE data payload for streaming text chunks.
type ChunkPayload struct {
	Text string `json:"text"`
}

// DonePayload is the SSE data payload when a turn completes.
type DonePayload struct {
	Response       string `json:"response"`
	ConversationID string `json:"conversationId"`
	MessageID      string `json:"messageId"`
}

// ErrorPayload is the SSE data payload when a turn fails.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// streamInput is the request body for POST /api/v1/chat/stream.
type streamInput struct {
	ConversationID string        `json:"conversationId"`
	UserID         string        `json:"userId"`
	Query          string        `json:"query"`
	Profile        *profileInput `json:"profile"`
}

// profileInput carries the structured user profile over the wire.
type profileInput struct {
	EducationLevel string   `json:"educationLevel"`
	District       string   `json:"district"`
	Interests      []string `json:"interests"`
	Goals          []string `json:"goals"`
	Formality      string   `json:"formality"` // informal | neutral | formal
}

func (p *profileInput) toProfile() *assembler.Profile {
	if p == nil {
		return nil
	}

	formality := assembler.FormalityDefault
	switch p.Formality {
	case "informal":
		formality = assembler.FormalityInformal
	case "neutral":
		formality = assembler.FormalityNeutral
	case "formal":
		formality = assembler.FormalityFormal
	}

	return &assembler.Profile{
		EducationLevel: p.EducationLevel,
		District:       p.District,
		Interests:      p.Interests,
		Goals:          p.Goals,
		Formality:      formality,
	}
}

// chatHandler serves the streaming chat endpoint.
type chatHandler struct {
	engine   *orchestrator.Engine
	registry *registry
	logger   *slog.Logger
}

// stream handles POST /api/v1/chat/stream. Turn progress is relayed as SSE
// events: chunk while streaming, then exactly one done or error.
func (h *chatHandler) stream(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	var input streamInput
	r.Body = http.MaxBytesReader(w, r.Body, 1024*1024)
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		_ = writeEvent(w, flusher, EventError, ErrorPayload{Code: "INVALID_REQUEST", Message: "invalid request body"})
		return
	}
	if input.Query == "" {
		_ = writeEvent(w, flusher, EventError, ErrorPayload{Code: "MISSING_QUERY", Message: "query is required"})
		return
	}

	conv, profile, err := h.resolveConversation(input)
	if err != nil {
		_ = writeEvent(w, flusher, EventError, ErrorPayload{Code: "UNKNOWN_CONVERSATION", Message: err.Error()})
		return
	}

	ctx := r.Context()
	oldID := conv.ID()
	h.logger.Debug("SSE stream started", "conversation_id", oldID)

	notify := func(ev stream.Event) {
		switch ev.Type {
		case stream.EventChunk:
			if err := writeEvent(w, flusher, EventChunk, ChunkPayload{Text: ev.Text}); err != nil {
				h.logger.Debug("failed to write chunk, client likely gone", "error", err)
			}
		case stream.EventDone:
			_ = writeEvent(w, flusher, EventDone, DonePayload{
				Response:       ev.Text,
				ConversationID: conv.ID().String(),
				MessageID:      ev.MessageID.String(),
			})
		case stream.EventError:
			_ = writeEvent(w, flusher, EventError, ErrorPayload{Code: "TURN_FAILED", Message: ev.Text})
		}
	}

	if _, err := h.engine.Send(ctx, conv, profile, input.Query, notify); err != nil {
		if errors.Is(err, orchestrator.ErrEmptyInput) {
			_ = writeEvent(w, flusher, EventError, ErrorPayload{Code: "MISSING_QUERY", Message: "query is required"})
			return
		}
		h.logger.Error("chat turn failed", "error", err)
		_ = writeEvent(w, flusher, EventError, ErrorPayload{Code: "INTERNAL", Message: "internal error"})
		return
	}

	// The first sync of an owned conversation remaps its id.
	h.registry.rekey(oldID, conv)
	h.logger.Debug("SSE stream completed", "conversation_id", conv.ID())
}

// resolveConversation finds the referenced conversation or starts a new one.
func (h *chatHandler) resolveConversation(input streamInput) (*conversation.Conversation, *assembler.Profile, error) {
	if input.ConversationID != "" {
		id, err := uuid.Parse(input.ConversationID)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid conversation id %q", input.ConversationID)
		}
		conv, profile, ok := h.registry.get(id)
		if !ok {
			return nil, nil, fmt.Errorf("conversation %s not found", id)
		}
		if input.Profile != nil {
			profile = input.Profile.toProfile()
		}
		return conv, profile, nil
	}

	conv := conversation.New(input.UserID)
	profile := input.Profile.toProfile()
	h.registry.add(conv, profile)
	return conv, profile, nil
}

// writeEvent writes one SSE event with a JSON payload.
// Format: "event: <type>\ndata: <json>\n\n".
func writeEvent[T any](w io.Writer, flusher http.Flusher, event string, data T) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, jsonData); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	flusher.Flush()
	return nil
}
