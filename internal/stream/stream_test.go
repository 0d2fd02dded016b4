package stream

import (
	"context"
	"errors"
	"iter"
	"testing"

	"go.uber.org/goleak"

	"schoolwijzer/internal/conversation"
	"schoolwijzer/internal/log"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func fragmentSeq(fragments []string, finalErr error) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, f := range fragments {
			if !yield(f, nil) {
				return
			}
		}
		if finalErr != nil {
			yield("", finalErr)
		}
	}
}

func TestStreamingReconstruction(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		fragments []string
		threshold int
	}{
		{
			name:      "single fragment",
			fragments: []string{"De aanmeldperiode loopt in februari."},
			threshold: 3,
		},
		{
			name:      "rune by rune",
			fragments: []string{"s", "c", "h", "o", "o", "l"},
			threshold: 3,
		},
		{
			name:      "uneven boundaries",
			fragments: []string{"De ", "aanmeld", "periode loopt ", "in ", "februari", "."},
			threshold: 3,
		},
		{
			name:      "large threshold flushes remainder",
			fragments: []string{"ab", "cd", "ef"},
			threshold: 100,
		},
		{
			name:      "threshold one flushes every fragment",
			fragments: []string{"een", "twee", "drie"},
			threshold: 1,
		},
		{
			name:      "empty stream",
			fragments: nil,
			threshold: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			conv := conversation.New("")
			var notified string
			c := NewController(conv, func(ev Event) {
				if ev.Type == EventChunk {
					notified += ev.Text
				}
			}, log.NewNop(), WithFlushThreshold(tt.threshold), WithPacing(0))

			if err := c.Begin("vraag"); err != nil {
				t.Fatalf("Begin() error = %v", err)
			}
			full, err := c.Consume(context.Background(), fragmentSeq(tt.fragments, nil))
			if err != nil {
				t.Fatalf("Consume() error = %v", err)
			}

			var want string
			for _, f := range tt.fragments {
				want += f
			}
			if full != want {
				t.Errorf("full = %q, want %q", full, want)
			}
			if notified != want {
				t.Errorf("concatenated flushes = %q, want %q", notified, want)
			}

			c.Finish(full)
			msgs := conv.Messages()
			last := msgs[len(msgs)-1]
			if last.Content != want {
				t.Errorf("placeholder content = %q, want %q", last.Content, want)
			}
			if last.Streaming {
				t.Error("placeholder still marked streaming after Finish")
			}
		})
	}
}

func TestConsumeReturnsFragmentError(t *testing.T) {
	t.Parallel()

	conv := conversation.New("")
	c := NewController(conv, nil, log.NewNop(), WithPacing(0))
	if err := c.Begin("vraag"); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}

	wantErr := errors.New("mid-stream drop")
	_, err := c.Consume(context.Background(), fragmentSeq([]string{"deel"}, wantErr))
	if !errors.Is(err, wantErr) {
		t.Fatalf("Consume() error = %v, want %v", err, wantErr)
	}

	c.Fail("Er ging iets mis.")
	msgs := conv.Messages()
	last := msgs[len(msgs)-1]
	if !last.Error {
		t.Error("placeholder not marked as error")
	}
	if last.Streaming {
		t.Error("placeholder still streaming after Fail")
	}
	if last.Content != "Er ging iets mis." {
		t.Errorf("content = %q, want the failure notice", last.Content)
	}
}

func TestStateMachineTransitions(t *testing.T) {
	t.Parallel()

	conv := conversation.New("")
	c := NewController(conv, nil, log.NewNop(), WithPacing(0))

	if c.State() != StateIdle {
		t.Fatalf("initial state = %v, want idle", c.State())
	}
	if _, err := c.Consume(context.Background(), fragmentSeq(nil, nil)); err == nil {
		t.Error("Consume before Begin should fail")
	}

	if err := c.Begin("vraag"); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if c.State() != StateAwaitingFirstToken {
		t.Errorf("state = %v, want awaiting_first_token", c.State())
	}
	if err := c.Begin("nog een vraag"); err == nil {
		t.Error("second Begin on the same controller should fail")
	}

	if _, err := c.Consume(context.Background(), fragmentSeq([]string{"antwoord"}, nil)); err != nil {
		t.Fatalf("Consume() error = %v", err)
	}
	c.Finish("antwoord")
	if c.State() != StateComplete {
		t.Errorf("state = %v, want complete", c.State())
	}
}

func TestStaleGenerationIsNoOp(t *testing.T) {
	t.Parallel()

	conv := conversation.New("")

	first := NewController(conv, nil, log.NewNop(), WithPacing(0), WithFlushThreshold(1))
	if err := first.Begin("eerste vraag"); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}

	// A second turn starts while the first is still in flight.
	second := NewController(conv, nil, log.NewNop(), WithPacing(0), WithFlushThreshold(1))
	if err := second.Begin("tweede vraag"); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}

	// The first turn's late fragments and completion must not mutate state.
	_, err := first.Consume(context.Background(), fragmentSeq([]string{"oud antwoord"}, nil))
	if err != nil {
		t.Fatalf("Consume() error = %v", err)
	}
	first.Finish("oud antwoord")

	// Superseding the turn fails the old placeholder in place; the stale
	// Finish above must not resurrect or overwrite it.
	firstPlaceholder := first.MessageID()
	for _, m := range conv.Messages() {
		if m.ID == firstPlaceholder {
			if m.Content != "" {
				t.Errorf("stale turn wrote content %q", m.Content)
			}
			if m.Streaming {
				t.Error("superseded placeholder left streaming")
			}
			if !m.Error {
				t.Error("superseded placeholder not in error state")
			}
		}
	}

	// The live turn proceeds normally.
	if _, err := second.Consume(context.Background(), fragmentSeq([]string{"nieuw antwoord"}, nil)); err != nil {
		t.Fatalf("Consume() error = %v", err)
	}
	second.Finish("nieuw antwoord")

	found := false
	for _, m := range conv.Messages() {
		if m.ID == second.MessageID() {
			found = true
			if m.Content != "nieuw antwoord" {
				t.Errorf("live turn content = %q", m.Content)
			}
		}
	}
	if !found {
		t.Fatal("live turn placeholder missing")
	}
}

func TestNotifierReceivesDoneAndError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		fail bool
		want EventType
	}{
		{"done event", false, EventDone},
		{"error event", true, EventError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			conv := conversation.New("")
			var events []Event
			c := NewController(conv, func(ev Event) {
				events = append(events, ev)
			}, log.NewNop(), WithPacing(0))

			if err := c.Begin("vraag"); err != nil {
				t.Fatalf("Begin() error = %v", err)
			}
			if tt.fail {
				c.Fail("mislukt")
			} else {
				c.Finish("gelukt en lang genoeg")
			}

			if len(events) == 0 {
				t.Fatal("no events received")
			}
			last := events[len(events)-1]
			if last.Type != tt.want {
				t.Errorf("last event type = %v, want %v", last.Type, tt.want)
			}
		})
	}
}
