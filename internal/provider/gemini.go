package provider

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"google.golang.org/genai"
)

// Gemini implements ChatProvider on top of the Google GenAI SDK.
type Gemini struct {
	client *genai.Client
}

// NewGemini creates a Gemini-backed provider.
func NewGemini(ctx context.Context, apiKey string) (*Gemini, error) {
	if apiKey == "" {
		return nil, newError(KindAuth, errors.New("gemini API key is required"))
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	return &Gemini{client: client}, nil
}

// Complete performs a blocking chat completion.
func (g *Gemini) Complete(ctx context.Context, messages []Message, params Params) (string, error) {
	params = params.withDefaults()
	contents, cfg := g.buildRequest(messages, params)

	ctx, cancel := context.WithTimeout(ctx, params.Timeout)
	defer cancel()

	resp, err := g.client.Models.GenerateContent(ctx, params.Model, contents, cfg)
	if err != nil {
		return "", classifyGeminiError(err)
	}

	text := resp.Text()
	if text == "" {
		return "", newError(KindFatal, errors.New("model returned empty response"))
	}
	return text, nil
}

// Stream performs a streaming chat completion, yielding text deltas.
func (g *Gemini) Stream(ctx context.Context, messages []Message, params Params) iter.Seq2[string, error] {
	params = params.withDefaults()
	contents, cfg := g.buildRequest(messages, params)

	return func(yield func(string, error) bool) {
		ctx, cancel := context.WithTimeout(ctx, params.Timeout)
		defer cancel()

		for resp, err := range g.client.Models.GenerateContentStream(ctx, params.Model, contents, cfg) {
			if err != nil {
				yield("", classifyGeminiError(err))
				return
			}
			if text := resp.Text(); text != "" {
				if !yield(text, nil) {
					return
				}
			}
		}
	}
}

// buildRequest converts the uniform message list into genai contents plus
// generation config. Leading system messages become the system instruction.
func (g *Gemini) buildRequest(messages []Message, params Params) ([]*genai.Content, *genai.GenerateContentConfig) {
	system, rest := splitSystem(messages)

	contents := make([]*genai.Content, 0, len(rest))
	for _, m := range rest {
		role := genai.Role(genai.RoleUser)
		if m.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}

	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(params.Temperature),
		TopP:            genai.Ptr(params.TopP),
		MaxOutputTokens: int32(params.MaxOutputTokens), // #nosec G115 -- validated range in config
	}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	return contents, cfg
}

// classifyGeminiError maps genai SDK errors onto the taxonomy.
func classifyGeminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return newError(classifyStatus(apiErr.Code), err)
	}
	return newError(classify(err), err)
}
