// Package openai provides an OpenAI implementation of the Provider
// interface, used to score baseline models against fine-tuned ones.
package openai

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/modelsmith/finetune-aws-go/internal/providers"
)

// DefaultModel is the default model used by the OpenAI provider.
const DefaultModel = string(openai.ChatModelGPT4o)

// Provider implements the providers.Provider interface using the OpenAI API.
type Provider struct {
	client *openai.Client
	model  string
}

// Config contains configuration for the OpenAI provider.
type Config struct {
	// APIKey for OpenAI (defaults to OPENAI_API_KEY env var)
	APIKey string
	// Model overrides DefaultModel when set.
	Model string
}

// New creates a new OpenAI provider.
func New(config Config) (*Provider, error) {
	apiKey := config.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY environment variable not set")
	}

	model := config.Model
	if model == "" {
		model = DefaultModel
	}

	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &Provider{client: &client, model: model}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "openai"
}

// Invoke sends one prompt and returns the complete response.
func (p *Provider) Invoke(ctx context.Context, req providers.Request) (*providers.Result, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	var messages []openai.ChatCompletionMessageParamUnion
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(model),
		MaxTokens:   openai.Int(int64(maxTokens)),
		Temperature: openai.Float(req.Temperature),
		Messages:    messages,
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("API call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("empty response from API")
	}

	choice := resp.Choices[0]
	return &providers.Result{
		Text:         choice.Message.Content,
		InputTokens:  int(resp.Usage.PromptTokens),
		OutputTokens: int(resp.Usage.CompletionTokens),
		StopReason:   convertFinishReason(string(choice.FinishReason)),
	}, nil
}

// convertFinishReason converts an OpenAI finish reason to the stop-reason
// vocabulary used in evaluation reports.
func convertFinishReason(reason string) string {
	switch reason {
	case "stop":
		return "end_turn"
	case "length":
		return "max_tokens"
	case "content_filter":
		return "stop_sequence"
	}
	return reason
}
