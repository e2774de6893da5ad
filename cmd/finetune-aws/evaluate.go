package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/benbjohnson/clock"
	"github.com/spf13/cobra"

	"github.com/modelsmith/finetune-aws-go/internal/awsx"
	"github.com/modelsmith/finetune-aws-go/internal/evaluate"
	"github.com/modelsmith/finetune-aws-go/internal/providers"
	bedrockprovider "github.com/modelsmith/finetune-aws-go/internal/providers/bedrock"
	geminiprovider "github.com/modelsmith/finetune-aws-go/internal/providers/gemini"
	openaiprovider "github.com/modelsmith/finetune-aws-go/internal/providers/openai"
)

func newEvaluateCmd() *cobra.Command {
	var (
		modelID    string
		testData   string
		maxSamples int
		maxTokens  int
		output     string
		region     string
		provider   string
	)

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Score a model against a JSONL test set",
		Long: `Evaluate sends each test sample to the model and scores the responses
by keyword accuracy against the expected completions.

Providers:
    bedrock (default) - invokes the model through the Bedrock runtime
    openai            - baseline comparison via the OpenAI API (OPENAI_API_KEY)
    gemini            - baseline comparison via the Gemini API (GEMINI_API_KEY)

Examples:
    finetune-aws evaluate --model-id arn:aws:bedrock:... --test-data data/test.jsonl
    finetune-aws evaluate --model-id arn:aws:bedrock:... --test-data data/test.jsonl \
        --output results.json
    finetune-aws evaluate --model-id gpt-4o --test-data data/test.jsonl --provider openai`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvaluate(evaluateOptions{
				modelID:    modelID,
				testData:   testData,
				maxSamples: maxSamples,
				maxTokens:  maxTokens,
				output:     output,
				region:     region,
				provider:   provider,
			})
		},
	}

	cmd.Flags().StringVar(&modelID, "model-id", "", "Model to evaluate: custom model ARN, provisioned throughput ARN, or base model ID (required)")
	cmd.Flags().StringVar(&testData, "test-data", "", "Local JSONL file with test samples (required)")
	cmd.Flags().IntVar(&maxSamples, "max-samples", 0, "Maximum number of samples to evaluate (default: all)")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", evaluate.DefaultMaxTokens, "Maximum tokens per response")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the full report as JSON to this file")
	cmd.Flags().StringVar(&region, "region", "", "AWS region (default: from AWS configuration)")
	cmd.Flags().StringVar(&provider, "provider", "bedrock", "Model provider: 'bedrock', 'openai' or 'gemini'")
	cmd.MarkFlagRequired("model-id")
	cmd.MarkFlagRequired("test-data")

	return cmd
}

type evaluateOptions struct {
	modelID    string
	testData   string
	maxSamples int
	maxTokens  int
	output     string
	region     string
	provider   string
}

func runEvaluate(opts evaluateOptions) error {
	ctx := context.Background()

	p, cleanup, err := newProvider(ctx, opts)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer func() {
			_ = cleanup()
		}()
	}

	engine := &evaluate.Engine{
		Provider: p,
		Clock:    clock.New(),
		Out:      os.Stdout,
	}
	report, err := engine.Run(ctx, evaluate.Options{
		ModelID:    opts.modelID,
		TestData:   opts.testData,
		MaxSamples: opts.maxSamples,
		MaxTokens:  opts.maxTokens,
	})
	if err != nil {
		return err
	}

	if opts.output == "" {
		fmt.Println("Tip: Use --output results.json to save detailed results.")
		return nil
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(opts.output, data, 0644); err != nil {
		return err
	}
	fmt.Printf("Results saved to: %s\n", opts.output)
	return nil
}

// newProvider builds the model client for the chosen provider. The cleanup
// func is non-nil when the provider holds a connection to close.
func newProvider(ctx context.Context, opts evaluateOptions) (providers.Provider, func() error, error) {
	switch opts.provider {
	case "bedrock":
		cfg, err := awsx.Load(ctx, opts.region)
		if err != nil {
			return nil, nil, err
		}
		return bedrockprovider.New(bedrockruntime.NewFromConfig(cfg), opts.modelID), nil, nil

	case "openai":
		p, err := openaiprovider.New(openaiprovider.Config{Model: opts.modelID})
		if err != nil {
			return nil, nil, err
		}
		return p, nil, nil

	case "gemini":
		p, err := geminiprovider.New(ctx, geminiprovider.Config{Model: opts.modelID})
		if err != nil {
			return nil, nil, err
		}
		return p, p.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown provider: %s (use 'bedrock', 'openai' or 'gemini')", opts.provider)
	}
}
