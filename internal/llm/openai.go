package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// openaiProvider drives OpenAI chat completions with strict JSON-schema
// response formatting. Temperature is pinned to 0.
type openaiProvider struct {
	client *openai.Client
	model  string
}

func newOpenAIProvider(apiKey, model string) (*openaiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	if model == "" {
		return nil, fmt.Errorf("model identifier is required")
	}
	return &openaiProvider{client: openai.NewClient(apiKey), model: model}, nil
}

func (p *openaiProvider) Name() string { return "openai" }

func (p *openaiProvider) Close() error { return nil }

func (p *openaiProvider) GenerateStructured(ctx context.Context, req Request) (*Response, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: req.System},
	}

	if len(req.Images) > 0 {
		parts := []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: req.User},
		}
		for _, img := range req.Images {
			parts = append(parts, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL: fmt.Sprintf("data:%s;base64,%s", img.MIMEType, base64.StdEncoding.EncodeToString(img.Data)),
				},
			})
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:         openai.ChatMessageRoleUser,
			MultiContent: parts,
		})
	} else {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: req.User,
		})
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4000
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    messages,
		Temperature: 0,
		MaxTokens:   maxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   req.Schema.Name,
				Schema: req.Schema,
				Strict: true,
			},
		},
	})
	if err != nil {
		return nil, classifyOpenAIError(err)
	}

	if len(resp.Choices) == 0 {
		return &Response{Status: StatusUnknown, Detail: "no choices returned"}, nil
	}

	choice := resp.Choices[0]
	if choice.Message.Refusal != "" {
		return &Response{Status: StatusRefused, Detail: choice.Message.Refusal}, nil
	}

	switch choice.FinishReason {
	case openai.FinishReasonStop:
		return &Response{
			Status: StatusCompleted,
			JSON:   []byte(choice.Message.Content),
			Detail: string(choice.FinishReason),
			Tokens: resp.Usage.TotalTokens,
		}, nil
	case openai.FinishReasonLength:
		return &Response{Status: StatusIncomplete, Detail: "finish_reason=length"}, nil
	case openai.FinishReasonContentFilter:
		return &Response{Status: StatusRefused, Detail: "finish_reason=content_filter"}, nil
	default:
		return &Response{Status: StatusUnknown, Detail: fmt.Sprintf("finish_reason=%s", choice.FinishReason)}, nil
	}
}

func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500 {
			return &transientError{cause: err}
		}
		return err
	}
	// Non-API errors are network-level; the client inspects them further.
	return err
}
