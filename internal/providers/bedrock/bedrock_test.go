package bedrock

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelsmith/finetune-aws-go/internal/providers"
)

type fakeConverse struct {
	input  *bedrockruntime.ConverseInput
	output *bedrockruntime.ConverseOutput
	err    error
}

func (f *fakeConverse) Converse(_ context.Context, params *bedrockruntime.ConverseInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return f.output, nil
}

func converseReply(text string, in, out int32) *bedrockruntime.ConverseOutput {
	return &bedrockruntime.ConverseOutput{
		Output: &types.ConverseOutputMemberMessage{
			Value: types.Message{
				Role: types.ConversationRoleAssistant,
				Content: []types.ContentBlock{
					&types.ContentBlockMemberText{Value: text},
				},
			},
		},
		StopReason: types.StopReasonEndTurn,
		Usage: &types.TokenUsage{
			InputTokens:  aws.Int32(in),
			OutputTokens: aws.Int32(out),
			TotalTokens:  aws.Int32(in + out),
		},
	}
}

func TestProvider_Name(t *testing.T) {
	assert.Equal(t, "bedrock", New(&fakeConverse{}, "m").Name())
}

func TestInvoke_BuildsConverseInput(t *testing.T) {
	client := &fakeConverse{output: converseReply("To reset your password, visit the portal.", 42, 17)}
	p := New(client, "arn:aws:bedrock:us-east-1:123456789012:custom-model/custom-finetune-abc123")

	result, err := p.Invoke(context.Background(), providers.Request{
		System:      "You are a support assistant.",
		Prompt:      "How do I reset my password?",
		MaxTokens:   500,
		Temperature: 0.1,
	})
	require.NoError(t, err)

	input := client.input
	require.NotNil(t, input)
	assert.Equal(t, "arn:aws:bedrock:us-east-1:123456789012:custom-model/custom-finetune-abc123", aws.ToString(input.ModelId))

	require.Len(t, input.Messages, 1)
	assert.Equal(t, types.ConversationRoleUser, input.Messages[0].Role)
	require.Len(t, input.Messages[0].Content, 1)
	text, ok := input.Messages[0].Content[0].(*types.ContentBlockMemberText)
	require.True(t, ok)
	assert.Equal(t, "How do I reset my password?", text.Value)

	require.Len(t, input.System, 1)
	system, ok := input.System[0].(*types.SystemContentBlockMemberText)
	require.True(t, ok)
	assert.Equal(t, "You are a support assistant.", system.Value)

	require.NotNil(t, input.InferenceConfig)
	assert.Equal(t, int32(500), aws.ToInt32(input.InferenceConfig.MaxTokens))
	assert.InDelta(t, 0.1, float64(aws.ToFloat32(input.InferenceConfig.Temperature)), 1e-6)

	assert.Equal(t, "To reset your password, visit the portal.", result.Text)
	assert.Equal(t, 42, result.InputTokens)
	assert.Equal(t, 17, result.OutputTokens)
	assert.Equal(t, "end_turn", result.StopReason)
}

func TestInvoke_OmitsSystemBlockWhenEmpty(t *testing.T) {
	client := &fakeConverse{output: converseReply("hi", 1, 1)}
	p := New(client, "amazon.nova-micro-v1:0")

	_, err := p.Invoke(context.Background(), providers.Request{Prompt: "hello"})
	require.NoError(t, err)
	assert.Empty(t, client.input.System)
}

func TestInvoke_DefaultsModelAndMaxTokens(t *testing.T) {
	client := &fakeConverse{output: converseReply("hi", 1, 1)}
	p := New(client, "amazon.nova-micro-v1:0")

	_, err := p.Invoke(context.Background(), providers.Request{Prompt: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "amazon.nova-micro-v1:0", aws.ToString(client.input.ModelId))
	assert.Equal(t, int32(4096), aws.ToInt32(client.input.InferenceConfig.MaxTokens))

	_, err = p.Invoke(context.Background(), providers.Request{Prompt: "hello", Model: "other-model"})
	require.NoError(t, err)
	assert.Equal(t, "other-model", aws.ToString(client.input.ModelId))
}

func TestInvoke_ConcatenatesTextBlocks(t *testing.T) {
	client := &fakeConverse{output: &bedrockruntime.ConverseOutput{
		Output: &types.ConverseOutputMemberMessage{
			Value: types.Message{
				Content: []types.ContentBlock{
					&types.ContentBlockMemberText{Value: "part one "},
					&types.ContentBlockMemberText{Value: "part two"},
				},
			},
		},
		StopReason: types.StopReasonMaxTokens,
	}}
	p := New(client, "m")

	result, err := p.Invoke(context.Background(), providers.Request{Prompt: "go"})
	require.NoError(t, err)
	assert.Equal(t, "part one part two", result.Text)
	assert.Equal(t, "max_tokens", result.StopReason)
	assert.Zero(t, result.InputTokens)
	assert.Zero(t, result.OutputTokens)
}
