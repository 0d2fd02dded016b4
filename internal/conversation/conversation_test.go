package conversation

import (
	"testing"

	"github.com/google/uuid"
)

func TestAppendAndMessages(t *testing.T) {
	t.Parallel()

	conv := New("user-1")
	conv.Append(RoleUser, "Hoe schrijf ik me in?")
	conv.Append(RoleAssistant, "Via de aanmeldprocedure.")

	msgs := conv.Messages()
	if len(msgs) != 2 {
		t.Fatalf("len(msgs) = %d, want 2", len(msgs))
	}
	if msgs[0].Role != RoleUser || msgs[1].Role != RoleAssistant {
		t.Errorf("roles = %q, %q", msgs[0].Role, msgs[1].Role)
	}
	if conv.MessageCount() != 2 {
		t.Errorf("MessageCount() = %d, want 2", conv.MessageCount())
	}

	// Messages returns copies; mutating them must not affect the conversation.
	msgs[0].Content = "gewijzigd"
	if conv.Messages()[0].Content != "Hoe schrijf ik me in?" {
		t.Error("Messages() leaked internal state")
	}
}

func TestStreamingLifecycle(t *testing.T) {
	t.Parallel()

	conv := New("")
	id := conv.AppendStreaming()

	conv.AppendContent(id, "Via de ")
	conv.AppendContent(id, "aanmeldprocedure.")

	msgs := conv.Messages()
	last := msgs[len(msgs)-1]
	if !last.Streaming {
		t.Error("message should still be streaming")
	}
	if last.Content != "Via de aanmeldprocedure." {
		t.Errorf("content = %q", last.Content)
	}

	conv.Complete(id, "Via de aanmeldprocedure.")
	last = conv.Messages()[len(conv.Messages())-1]
	if last.Streaming || last.Error {
		t.Errorf("flags after Complete: %+v", last)
	}

	// Terminal messages are immutable.
	conv.AppendContent(id, " extra")
	if got := conv.Messages()[len(conv.Messages())-1].Content; got != "Via de aanmeldprocedure." {
		t.Errorf("terminal message mutated: %q", got)
	}
}

func TestFailMarksError(t *testing.T) {
	t.Parallel()

	conv := New("")
	id := conv.AppendStreaming()
	conv.Fail(id, "Er ging iets mis.")

	last := conv.Messages()[0]
	if !last.Error || last.Streaming {
		t.Errorf("flags after Fail: %+v", last)
	}
	if last.Content != "Er ging iets mis." {
		t.Errorf("content = %q", last.Content)
	}
}

func TestSetFeedback(t *testing.T) {
	t.Parallel()

	conv := New("")
	msg := conv.Append(RoleAssistant, "Antwoord van voldoende lengte.")

	if !conv.SetFeedback(msg.ID, FeedbackLike) {
		t.Fatal("SetFeedback() = false for existing message")
	}
	if got := conv.Messages()[0].Feedback; got != FeedbackLike {
		t.Errorf("feedback = %q, want like", got)
	}

	if conv.SetFeedback(uuid.New(), FeedbackDislike) {
		t.Error("SetFeedback() = true for unknown id")
	}
}

func TestWindowExcludesErrorsAndBounds(t *testing.T) {
	t.Parallel()

	conv := New("")
	for i := 0; i < 6; i++ {
		conv.Append(RoleUser, "vraag")
		conv.Append(RoleAssistant, "antwoord")
	}
	id := conv.AppendStreaming()
	conv.Fail(id, "fout")

	window := conv.Window(10)
	if len(window) != 10 {
		t.Fatalf("len(window) = %d, want 10", len(window))
	}
	for _, m := range window {
		if m.Error {
			t.Error("error message included in window")
		}
	}

	// Order is append order, ending with the most recent non-error message.
	if window[len(window)-1].Role != RoleAssistant {
		t.Errorf("last window role = %q", window[len(window)-1].Role)
	}

	if got := conv.Window(0); len(got) != 0 {
		t.Errorf("Window(0) = %d messages, want 0", len(got))
	}
}

func TestGenerationGuard(t *testing.T) {
	t.Parallel()

	conv := New("")
	g1 := conv.NextGeneration()
	if !conv.Current(g1) {
		t.Fatal("fresh generation should be current")
	}

	g2 := conv.NextGeneration()
	if conv.Current(g1) {
		t.Error("superseded generation still current")
	}
	if !conv.Current(g2) {
		t.Error("latest generation not current")
	}
}

func TestNextGenerationTerminatesStreamingPlaceholder(t *testing.T) {
	t.Parallel()

	conv := New("marie")
	conv.NextGeneration()
	conv.Append(RoleUser, "eerste vraag")
	id := conv.AppendStreaming()
	conv.AppendContent(id, "half ant")

	// The next turn supersedes the in-flight one; its placeholder must not
	// stay streaming forever.
	conv.NextGeneration()

	var orphan Message
	for _, m := range conv.Messages() {
		if m.ID == id {
			orphan = m
		}
	}
	if orphan.Streaming {
		t.Error("superseded placeholder still streaming")
	}
	if !orphan.Error {
		t.Error("superseded placeholder not in error state")
	}

	// Terminal means immutable: the abandoned turn's late completion is lost.
	conv.Complete(id, "oud antwoord")
	for _, m := range conv.Messages() {
		if m.ID == id && m.Content != "half ant" {
			t.Errorf("content = %q, want partial %q", m.Content, "half ant")
		}
	}
}

func TestFirstUserMessage(t *testing.T) {
	t.Parallel()

	conv := New("")
	if _, ok := conv.FirstUserMessage(); ok {
		t.Error("empty conversation should have no first user message")
	}

	conv.Append(RoleAssistant, "welkom")
	conv.Append(RoleUser, "Hoe schrijf ik me in?")
	first, ok := conv.FirstUserMessage()
	if !ok || first.Content != "Hoe schrijf ik me in?" {
		t.Errorf("FirstUserMessage() = %+v, %v", first, ok)
	}
}

func TestSetIDRemap(t *testing.T) {
	t.Parallel()

	conv := New("user-1")
	newID := uuid.New()
	conv.SetID(newID)
	if conv.ID() != newID {
		t.Errorf("ID() = %s, want %s", conv.ID(), newID)
	}
}
