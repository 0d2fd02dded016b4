package provider

import (
	"context"
	"errors"
	"io"
	"iter"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAI implements ChatProvider on top of the OpenAI chat completions API.
type OpenAI struct {
	client *openai.Client
}

// NewOpenAI creates an OpenAI-backed provider.
func NewOpenAI(apiKey string) *OpenAI {
	return &OpenAI{client: openai.NewClient(apiKey)}
}

// Complete performs a blocking chat completion.
func (o *OpenAI) Complete(ctx context.Context, messages []Message, params Params) (string, error) {
	params = params.withDefaults()

	ctx, cancel := context.WithTimeout(ctx, params.Timeout)
	defer cancel()

	resp, err := o.client.CreateChatCompletion(ctx, o.buildRequest(messages, params))
	if err != nil {
		return "", classifyOpenAIError(err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", newError(KindFatal, errors.New("model returned empty response"))
	}
	return resp.Choices[0].Message.Content, nil
}

// Stream performs a streaming chat completion, yielding text deltas.
func (o *OpenAI) Stream(ctx context.Context, messages []Message, params Params) iter.Seq2[string, error] {
	params = params.withDefaults()
	req := o.buildRequest(messages, params)

	return func(yield func(string, error) bool) {
		ctx, cancel := context.WithTimeout(ctx, params.Timeout)
		defer cancel()

		stream, err := o.client.CreateChatCompletionStream(ctx, req)
		if err != nil {
			yield("", classifyOpenAIError(err))
			return
		}
		defer func() {
			_ = stream.Close()
		}()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield("", classifyOpenAIError(err))
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}
			if delta := resp.Choices[0].Delta.Content; delta != "" {
				if !yield(delta, nil) {
					return
				}
			}
		}
	}
}

// buildRequest converts the uniform message list into an OpenAI request.
func (o *OpenAI) buildRequest(messages []Message, params Params) openai.ChatCompletionRequest {
	apiMessages := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		apiMessages = append(apiMessages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	return openai.ChatCompletionRequest{
		Model:       params.Model,
		Messages:    apiMessages,
		Temperature: params.Temperature,
		TopP:        params.TopP,
		MaxTokens:   params.MaxOutputTokens,
	}
}

// classifyOpenAIError maps go-openai errors onto the taxonomy.
func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return newError(classifyStatus(apiErr.HTTPStatusCode), err)
	}
	return newError(classify(err), err)
}
