package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"schoolwijzer/internal/conversation"
	"schoolwijzer/internal/orchestrator"
	"schoolwijzer/internal/store"
)

// conversationHandler serves conversation CRUD and feedback endpoints.
// store is optional; without it only in-memory conversations are served.
type conversationHandler struct {
	engine   *orchestrator.Engine
	registry *registry
	store    *store.Store
	logger   *slog.Logger
}

type createConversationInput struct {
	UserID  string        `json:"userId"`
	Profile *profileInput `json:"profile"`
}

type conversationResponse struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	MessageCount int       `json:"messageCount"`
	CreatedAt    time.Time `json:"createdAt"`
	LastUpdated  time.Time `json:"lastUpdated"`
}

type messageResponse struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	IsError   bool      `json:"isError"`
	Feedback  string    `json:"feedback,omitempty"`
}

// create handles POST /api/v1/conversations.
func (h *conversationHandler) create(w http.ResponseWriter, r *http.Request) {
	var input createConversationInput
	r.Body = http.MaxBytesReader(w, r.Body, 64*1024)
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	conv := conversation.New(input.UserID)
	h.registry.add(conv, input.Profile.toProfile())

	writeJSON(w, http.StatusCreated, conversationResponse{
		ID:          conv.ID().String(),
		Title:       conv.Title(),
		CreatedAt:   conv.CreatedAt(),
		LastUpdated: conv.LastUpdated(),
	})
}

// messages handles GET /api/v1/conversations/{id}/messages. Live
// conversations come from the registry; otherwise the durable store is
// consulted.
func (h *conversationHandler) messages(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid conversation id")
		return
	}

	if conv, _, ok := h.registry.get(id); ok {
		msgs := conv.Messages()
		out := make([]messageResponse, 0, len(msgs))
		for _, m := range msgs {
			out = append(out, messageResponse{
				ID:        m.ID.String(),
				Role:      m.Role,
				Content:   m.Content,
				Timestamp: m.Timestamp,
				IsError:   m.Error,
				Feedback:  string(m.Feedback),
			})
		}
		writeJSON(w, http.StatusOK, out)
		return
	}

	if h.store == nil {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}

	stored, err := h.store.Messages(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to load messages", "conversation_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load messages")
		return
	}
	if len(stored) == 0 {
		if _, err := h.store.Conversation(r.Context(), id); errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "conversation not found")
			return
		}
	}

	out := make([]messageResponse, 0, len(stored))
	for _, m := range stored {
		out = append(out, messageResponse{
			ID:        m.ID.String(),
			Role:      m.Role,
			Content:   m.Content,
			Timestamp: m.CreatedAt,
			IsError:   m.IsError,
			Feedback:  m.Feedback,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// delete handles DELETE /api/v1/conversations/{id}.
func (h *conversationHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid conversation id")
		return
	}

	_, _, inMemory := h.registry.get(id)
	h.registry.remove(id)

	if h.store != nil {
		if err := h.store.DeleteConversation(r.Context(), id); err != nil && !errors.Is(err, store.ErrNotFound) {
			h.logger.Error("failed to delete conversation", "conversation_id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to delete conversation")
			return
		} else if errors.Is(err, store.ErrNotFound) && !inMemory {
			writeError(w, http.StatusNotFound, "conversation not found")
			return
		}
	} else if !inMemory {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type feedbackInput struct {
	ConversationID string `json:"conversationId"`
	Feedback       string `json:"feedback"` // like | dislike | "" to clear
}

// feedback handles POST /api/v1/messages/{id}/feedback.
func (h *conversationHandler) feedback(w http.ResponseWriter, r *http.Request) {
	messageID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid message id")
		return
	}

	var input feedbackInput
	r.Body = http.MaxBytesReader(w, r.Body, 64*1024)
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	fb := conversation.Feedback(input.Feedback)
	switch fb {
	case conversation.FeedbackNone, conversation.FeedbackLike, conversation.FeedbackDislike:
	default:
		writeError(w, http.StatusBadRequest, "feedback must be like, dislike, or empty")
		return
	}

	if input.ConversationID != "" {
		convID, err := uuid.Parse(input.ConversationID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid conversation id")
			return
		}
		if conv, _, ok := h.registry.get(convID); ok {
			if err := h.engine.Feedback(r.Context(), conv, messageID, fb); err != nil {
				writeError(w, http.StatusNotFound, "message not found")
				return
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}

	// Conversation not live in memory: update the durable record directly.
	if h.store == nil {
		writeError(w, http.StatusNotFound, "message not found")
		return
	}
	if err := h.store.UpdateFeedback(r.Context(), messageID, string(fb)); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "message not found")
			return
		}
		h.logger.Error("failed to update feedback", "message_id", messageID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update feedback")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
