package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"schoolwijzer/internal/conversation"
	"schoolwijzer/internal/log"
	"schoolwijzer/internal/store"
	"schoolwijzer/internal/testutil"
)

func TestStoreIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	s := store.New(db.Pool, log.NewNop())
	ctx := context.Background()

	t.Run("conversation roundtrip", func(t *testing.T) {
		created, err := s.CreateConversation(ctx, "user-1", "Inschrijven")
		if err != nil {
			t.Fatalf("CreateConversation() error = %v", err)
		}
		if created.ID == uuid.Nil {
			t.Fatal("store did not assign an id")
		}

		got, err := s.Conversation(ctx, created.ID)
		if err != nil {
			t.Fatalf("Conversation() error = %v", err)
		}
		if got.Title != "Inschrijven" || got.OwnerID != "user-1" {
			t.Errorf("got %+v", got)
		}

		if err := s.UpdateTitle(ctx, created.ID, "Aanmelden"); err != nil {
			t.Fatalf("UpdateTitle() error = %v", err)
		}
		got, err = s.Conversation(ctx, created.ID)
		if err != nil {
			t.Fatalf("Conversation() error = %v", err)
		}
		if got.Title != "Aanmelden" {
			t.Errorf("title = %q, want %q", got.Title, "Aanmelden")
		}

		if err := s.DeleteConversation(ctx, created.ID); err != nil {
			t.Fatalf("DeleteConversation() error = %v", err)
		}
		if _, err := s.Conversation(ctx, created.ID); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})

	t.Run("append assigns sequences and updates count", func(t *testing.T) {
		conv, err := s.CreateConversation(ctx, "user-2", "")
		if err != nil {
			t.Fatalf("CreateConversation() error = %v", err)
		}

		first := []store.Message{
			{ID: uuid.New(), Role: "user", Content: "Welke niveaus zijn er?", CreatedAt: time.Now()},
			{ID: uuid.New(), Role: "assistant", Content: "Vmbo, havo en vwo.", CreatedAt: time.Now()},
		}
		if err := s.AppendMessages(ctx, conv.ID, first); err != nil {
			t.Fatalf("AppendMessages() error = %v", err)
		}

		second := []store.Message{
			{ID: uuid.New(), Role: "user", Content: "En wat is een brugklas?", CreatedAt: time.Now()},
		}
		if err := s.AppendMessages(ctx, conv.ID, second); err != nil {
			t.Fatalf("AppendMessages() error = %v", err)
		}

		msgs, err := s.Messages(ctx, conv.ID)
		if err != nil {
			t.Fatalf("Messages() error = %v", err)
		}
		if len(msgs) != 3 {
			t.Fatalf("len(msgs) = %d, want 3", len(msgs))
		}
		for i, m := range msgs {
			if m.Sequence != int32(i+1) {
				t.Errorf("msgs[%d].Sequence = %d, want %d", i, m.Sequence, i+1)
			}
		}

		got, err := s.Conversation(ctx, conv.ID)
		if err != nil {
			t.Fatalf("Conversation() error = %v", err)
		}
		if got.MessageCount != 3 {
			t.Errorf("MessageCount = %d, want 3", got.MessageCount)
		}

		count, err := s.MessageCount(ctx, conv.ID)
		if err != nil {
			t.Fatalf("MessageCount() error = %v", err)
		}
		if count != 3 {
			t.Errorf("count = %d, want 3", count)
		}
	})

	t.Run("feedback update", func(t *testing.T) {
		conv, err := s.CreateConversation(ctx, "user-3", "")
		if err != nil {
			t.Fatalf("CreateConversation() error = %v", err)
		}
		msgID := uuid.New()
		msgs := []store.Message{
			{ID: uuid.New(), Role: "user", Content: "Vraag", CreatedAt: time.Now()},
			{ID: msgID, Role: "assistant", Content: "Antwoord", CreatedAt: time.Now()},
		}
		if err := s.AppendMessages(ctx, conv.ID, msgs); err != nil {
			t.Fatalf("AppendMessages() error = %v", err)
		}

		if err := s.UpdateFeedback(ctx, msgID, "like"); err != nil {
			t.Fatalf("UpdateFeedback() error = %v", err)
		}
		stored, err := s.Messages(ctx, conv.ID)
		if err != nil {
			t.Fatalf("Messages() error = %v", err)
		}
		if stored[1].Feedback != "like" {
			t.Errorf("feedback = %q, want %q", stored[1].Feedback, "like")
		}

		if err := s.UpdateFeedback(ctx, uuid.New(), "like"); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})

	t.Run("synchronizer against real store", func(t *testing.T) {
		sync := store.NewSynchronizer(s, log.NewNop())

		conv := conversation.New("user-4")
		conv.Append(conversation.RoleUser, "Hoe werkt de loting precies?")
		id := conv.AppendStreaming()
		conv.Complete(id, "De loting verdeelt plekken over de aanmeldingen.")

		written, err := sync.Sync(ctx, conv)
		if err != nil {
			t.Fatalf("Sync() error = %v", err)
		}
		if written != 2 {
			t.Errorf("written = %d, want 2", written)
		}

		// Idempotent second pass.
		written, err = sync.Sync(ctx, conv)
		if err != nil {
			t.Fatalf("second Sync() error = %v", err)
		}
		if written != 0 {
			t.Errorf("second sync wrote %d, want 0", written)
		}

		stored, err := s.Conversation(ctx, conv.ID())
		if err != nil {
			t.Fatalf("Conversation() error = %v", err)
		}
		if stored.MessageCount != conv.MessageCount() {
			t.Errorf("message_count = %d, want %d", stored.MessageCount, conv.MessageCount())
		}
		if stored.Title != "Hoe werkt de loting precies?" {
			t.Errorf("title = %q", stored.Title)
		}
	})
}
