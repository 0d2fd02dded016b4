package provider

import (
	"context"
	"testing"

	"google.golang.org/genai"
)

func TestGeminiBuildRequest(t *testing.T) {
	t.Parallel()

	g := &Gemini{}
	msgs := []Message{
		{Role: RoleSystem, Content: "Je bent Schoolwijzer."},
		{Role: RoleUser, Content: "Hoe werkt de loting?"},
		{Role: RoleAssistant, Content: "De loting werkt zo."},
		{Role: RoleUser, Content: "En de voorrang?"},
	}

	contents, cfg := g.buildRequest(msgs, Params{}.withDefaults())

	if len(contents) != 3 {
		t.Fatalf("contents = %d, want 3 (system message lifted out)", len(contents))
	}

	wantRoles := []genai.Role{genai.RoleUser, genai.RoleModel, genai.RoleUser}
	for i, c := range contents {
		if genai.Role(c.Role) != wantRoles[i] {
			t.Errorf("contents[%d].Role = %q, want %q", i, c.Role, wantRoles[i])
		}
	}

	if cfg.SystemInstruction == nil {
		t.Fatal("system instruction missing")
	}
	if cfg.Temperature == nil || *cfg.Temperature != 0.3 {
		t.Errorf("temperature = %v, want default 0.3", cfg.Temperature)
	}
}

func TestNewGeminiRequiresKey(t *testing.T) {
	t.Parallel()

	_, err := NewGemini(context.Background(), "")
	if KindOf(err) != KindAuth {
		t.Errorf("KindOf(err) = %v, want auth", KindOf(err))
	}
}
