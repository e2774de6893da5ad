package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	finetune "github.com/modelsmith/finetune-aws-go"
	"github.com/modelsmith/finetune-aws-go/internal/customization"
)

func TestNewRunCmd(t *testing.T) {
	cmd := newRunCmd()

	if cmd.Use != "run" {
		t.Errorf("Use = %q, want 'run'", cmd.Use)
	}

	for flag, def := range map[string]string{
		"epochs":        "3",
		"batch-size":    "8",
		"learning-rate": "0.0001",
		"format":        "text",
	} {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			t.Errorf("missing --%s flag", flag)
			continue
		}
		if f.DefValue != def {
			t.Errorf("--%s default = %q, want %q", flag, f.DefValue, def)
		}
	}
}

func TestRunCommand_RequiresModel(t *testing.T) {
	cmd := newRunCmd()
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--model is required")
}

func TestRunCommand_RequiresTrainingData(t *testing.T) {
	cmd := newRunCmd()
	cmd.SetArgs([]string{"--model", "amazon.nova-micro-v1:0"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--training-data is required")
}

func TestRunOptions_MergePrefersExplicitFlags(t *testing.T) {
	cmd := newRunCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--model", "amazon.nova-micro-v1:0", "--epochs", "5"}))

	opts := runOptions{
		model:        "amazon.nova-micro-v1:0",
		epochs:       5,
		batchSize:    customization.DefaultBatchSize,
		learningRate: customization.DefaultLearningRate,
	}
	opts.merge(cmd, &customization.FileSpec{
		Model:        "meta.llama3-1-8b-instruct-v1:0",
		TrainingData: "s3://bucket/train.jsonl",
		Epochs:       10,
		BatchSize:    4,
		RoleArn:      "arn:aws:iam::123456789012:role/BedrockFineTuningRole",
	})

	assert.Equal(t, "amazon.nova-micro-v1:0", opts.model, "explicit flag wins over file value")
	assert.Equal(t, 5, opts.epochs, "explicit flag wins over file value")
	assert.Equal(t, "s3://bucket/train.jsonl", opts.trainingData)
	assert.Equal(t, 4, opts.batchSize)
	assert.Equal(t, "arn:aws:iam::123456789012:role/BedrockFineTuningRole", opts.roleArn)
	assert.Equal(t, customization.DefaultLearningRate, opts.learningRate, "unset file values leave defaults alone")
}

func TestOutputSubmitResult_Failure(t *testing.T) {
	result := finetune.SubmitResult{
		Errors: []string{"validation failed: bad data"},
	}

	err := outputSubmitResult(result, "text")
	require.Error(t, err)
	assert.EqualError(t, err, "job submission failed")
}

func TestOutputSubmitResult_UnknownFormat(t *testing.T) {
	result := finetune.SubmitResult{Success: true, JobName: "finetune-abc123"}

	err := outputSubmitResult(result, "yaml")
	require.Error(t, err)
	assert.EqualError(t, err, "unknown format: yaml")
}
