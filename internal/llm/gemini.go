package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// geminiProvider drives Gemini generateContent in JSON mode. The response
// schema travels inside the system instruction; Gemini's JSON MIME type
// guarantees parseable output and the adapter validates conformance.
type geminiProvider struct {
	client *genai.Client
	model  string
}

func newGeminiProvider(ctx context.Context, apiKey, model string) (*geminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if model == "" {
		return nil, fmt.Errorf("model identifier is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &geminiProvider{client: client, model: model}, nil
}

func (p *geminiProvider) Name() string { return "gemini" }

func (p *geminiProvider) Close() error { return nil }

func (p *geminiProvider) GenerateStructured(ctx context.Context, req Request) (*Response, error) {
	system := req.System
	if len(req.Schema.Raw) > 0 {
		system = fmt.Sprintf("%s\n\nRespond with JSON conforming exactly to this schema (%s):\n%s",
			req.System, req.Schema.Name, string(req.Schema.Raw))
	}

	var systemInstruction *genai.Content
	if system != "" {
		systemInstruction = genai.Text(system)[0]
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4000
	}

	genConfig := &genai.GenerateContentConfig{
		SystemInstruction: systemInstruction,
		Temperature:       ptrFloat32(0),
		MaxOutputTokens:   int32(maxTokens),
		ResponseMIMEType:  "application/json",
	}

	parts := []*genai.Part{genai.NewPartFromText(req.User)}
	for _, img := range req.Images {
		parts = append(parts, genai.NewPartFromBytes(img.Data, img.MIMEType))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, genConfig)
	if err != nil {
		if isGeminiTransient(err) {
			return nil, &transientError{cause: err}
		}
		return nil, err
	}

	if len(resp.Candidates) == 0 {
		return &Response{Status: StatusUnknown, Detail: "no candidates returned"}, nil
	}

	candidate := resp.Candidates[0]
	switch candidate.FinishReason {
	case genai.FinishReasonStop:
		if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
			return &Response{Status: StatusUnknown, Detail: "empty content parts"}, nil
		}
		var sb strings.Builder
		for _, part := range candidate.Content.Parts {
			sb.WriteString(part.Text)
		}
		tokens := 0
		if resp.UsageMetadata != nil {
			tokens = int(resp.UsageMetadata.TotalTokenCount)
		}
		return &Response{
			Status: StatusCompleted,
			JSON:   []byte(sb.String()),
			Detail: string(candidate.FinishReason),
			Tokens: tokens,
		}, nil
	case genai.FinishReasonMaxTokens:
		return &Response{Status: StatusIncomplete, Detail: "finish_reason=max_tokens"}, nil
	case genai.FinishReasonSafety, genai.FinishReasonProhibitedContent, genai.FinishReasonRecitation:
		return &Response{Status: StatusRefused, Detail: fmt.Sprintf("finish_reason=%s", candidate.FinishReason)}, nil
	default:
		return &Response{Status: StatusUnknown, Detail: fmt.Sprintf("finish_reason=%s", candidate.FinishReason)}, nil
	}
}

func isGeminiTransient(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "RESOURCE_EXHAUSTED") ||
		strings.Contains(msg, "UNAVAILABLE") ||
		strings.Contains(msg, "503")
}

func ptrFloat32(v float32) *float32 { return &v }
