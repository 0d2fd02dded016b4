// Package provider abstracts chat-completion backends behind a single
// ChatProvider interface. Two implementations exist (Gemini via
// google.golang.org/genai, OpenAI via sashabaranov/go-openai); selection
// happens once at construction and callers never branch on provider
// identity.
//
// All failures surface as *Error values carrying the Kind taxonomy, so the
// retry controller and the orchestrator can react without inspecting SDK
// error types.
package provider

import (
	"context"
	"fmt"
	"iter"
	"time"

	"schoolwijzer/internal/config"
)

// Message roles on the provider wire.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single entry in a provider-ready message list.
type Message struct {
	Role    string
	Content string
}

// Params are the per-call generation parameters. Zero values fall back to
// the defaults from config (temperature 0.3, 4096 output tokens, top_p 0.8,
// 60s timeout).
type Params struct {
	Model           string
	Temperature     float32
	MaxOutputTokens int
	TopP            float32
	Timeout         time.Duration
}

// withDefaults fills zero-valued fields.
func (p Params) withDefaults() Params {
	if p.Temperature == 0 {
		p.Temperature = config.DefaultTemperature
	}
	if p.MaxOutputTokens == 0 {
		p.MaxOutputTokens = config.DefaultMaxOutputTokens
	}
	if p.TopP == 0 {
		p.TopP = config.DefaultTopP
	}
	if p.Timeout == 0 {
		p.Timeout = config.DefaultRequestTimeout
	}
	return p
}

// ChatProvider is the uniform contract over LLM backends.
//
// Stream yields text fragments in order; the sequence is finite and not
// restartable. A mid-stream failure is yielded as the final element's error.
type ChatProvider interface {
	Complete(ctx context.Context, messages []Message, params Params) (string, error)
	Stream(ctx context.Context, messages []Message, params Params) iter.Seq2[string, error]
}

// New constructs the configured provider. This is the only place provider
// identity is examined.
func New(ctx context.Context, cfg *config.Config) (ChatProvider, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		return NewGemini(ctx, cfg.GeminiAPIKey)
	case config.ProviderOpenAI:
		return NewOpenAI(cfg.OpenAIAPIKey), nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidProvider, cfg.Provider)
	}
}

// splitSystem separates leading system messages from the conversational
// remainder. Gemini carries system text out-of-band; OpenAI keeps it in the
// message list.
func splitSystem(messages []Message) (system string, rest []Message) {
	i := 0
	for ; i < len(messages); i++ {
		if messages[i].Role != RoleSystem {
			break
		}
		if system != "" {
			system += "\n\n"
		}
		system += messages[i].Content
	}
	return system, messages[i:]
}
