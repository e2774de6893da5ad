// Package bedrock invokes custom and foundation models through the Bedrock
// runtime Converse API. Fine-tuned models are addressed by their custom
// model ARN or a provisioned throughput ARN.
package bedrock

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/modelsmith/finetune-aws-go/internal/providers"
)

// ConverseAPI is the slice of the Bedrock runtime client this provider uses.
type ConverseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

var _ ConverseAPI = (*bedrockruntime.Client)(nil)

// Provider invokes Bedrock models.
type Provider struct {
	client ConverseAPI
	model  string
}

// New returns a provider bound to a model id or ARN.
func New(client ConverseAPI, model string) *Provider {
	return &Provider{client: client, model: model}
}

// Name returns the provider name.
func (p *Provider) Name() string { return "bedrock" }

// Invoke sends one prompt through Converse and collects the text blocks of
// the reply.
func (p *Provider) Invoke(ctx context.Context, req providers.Request) (*providers.Result, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	input := &bedrockruntime.ConverseInput{
		ModelId: aws.String(model),
		Messages: []types.Message{{
			Role: types.ConversationRoleUser,
			Content: []types.ContentBlock{
				&types.ContentBlockMemberText{Value: req.Prompt},
			},
		}},
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens:   aws.Int32(int32(maxTokens)),
			Temperature: aws.Float32(float32(req.Temperature)),
		},
	}
	if req.System != "" {
		input.System = []types.SystemContentBlock{
			&types.SystemContentBlockMemberText{Value: req.System},
		}
	}

	resp, err := p.client.Converse(ctx, input)
	if err != nil {
		return nil, err
	}

	result := &providers.Result{StopReason: string(resp.StopReason)}
	if out, ok := resp.Output.(*types.ConverseOutputMemberMessage); ok {
		for _, block := range out.Value.Content {
			if text, ok := block.(*types.ContentBlockMemberText); ok {
				result.Text += text.Value
			}
		}
	}
	if resp.Usage != nil {
		result.InputTokens = int(aws.ToInt32(resp.Usage.InputTokens))
		result.OutputTokens = int(aws.ToInt32(resp.Usage.OutputTokens))
	}
	return result, nil
}
