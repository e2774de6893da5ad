// Package gemini provides a Google Gemini implementation of the Provider
// interface, used to score baseline models against fine-tuned ones.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/modelsmith/finetune-aws-go/internal/providers"
)

// DefaultModel is the default model used by the Gemini provider.
const DefaultModel = "gemini-1.5-flash"

// Provider implements the providers.Provider interface using the Google
// Gemini API.
type Provider struct {
	client *genai.Client
	model  string
}

// Config contains configuration for the Gemini provider.
type Config struct {
	// APIKey for Google AI Studio (defaults to GEMINI_API_KEY env var)
	APIKey string
	// Model overrides DefaultModel when set.
	Model string
}

// New creates a new Gemini provider.
func New(ctx context.Context, config Config) (*Provider, error) {
	apiKey := config.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY environment variable not set")
	}

	model := config.Model
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Provider{client: client, model: model}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "gemini"
}

// Close releases the underlying API client.
func (p *Provider) Close() error {
	return p.client.Close()
}

// Invoke sends one prompt and returns the complete response.
func (p *Provider) Invoke(ctx context.Context, req providers.Request) (*providers.Result, error) {
	name := req.Model
	if name == "" {
		name = p.model
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	model := p.client.GenerativeModel(name)
	model.SetMaxOutputTokens(int32(maxTokens))
	model.SetTemperature(float32(req.Temperature))
	if req.System != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(req.System)},
		}
	}

	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return nil, fmt.Errorf("API call failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, errors.New("empty response from API")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}

	result := &providers.Result{
		Text:       text.String(),
		StopReason: "end_turn",
	}
	if resp.UsageMetadata != nil {
		result.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		result.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return result, nil
}
