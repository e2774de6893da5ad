package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/bedrock"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"

	finetune "github.com/modelsmith/finetune-aws-go"
	"github.com/modelsmith/finetune-aws-go/internal/awsx"
	"github.com/modelsmith/finetune-aws-go/internal/customization"
	"github.com/modelsmith/finetune-aws-go/internal/staging"
)

func newRunCmd() *cobra.Command {
	var (
		model           string
		trainingData    string
		validationData  string
		bucket          string
		jobName         string
		customModelName string
		roleArn         string
		epochs          int
		batchSize       int
		learningRate    float64
		region          string
		configFile      string
		outputFormat    string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start a Bedrock fine-tuning job",
		Long: `Run submits a model-customization job to Bedrock.

Training data can be an existing S3 URI or a local JSONL file; local files
are validated and uploaded to --bucket first.

Examples:
    finetune-aws run --model amazon.nova-micro-v1:0 \
        --training-data s3://my-bucket/training.jsonl

    finetune-aws run --model amazon.nova-micro-v1:0 \
        --training-data data/training.jsonl \
        --bucket my-finetuning-bucket

    finetune-aws run --model amazon.nova-micro-v1:0 \
        --training-data s3://bucket/train.jsonl \
        --validation-data s3://bucket/val.jsonl \
        --job-name mfg-qc-v2 \
        --epochs 5 --batch-size 4 --learning-rate 0.00005`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := runOptions{
				model:           model,
				trainingData:    trainingData,
				validationData:  validationData,
				bucket:          bucket,
				jobName:         jobName,
				customModelName: customModelName,
				roleArn:         roleArn,
				epochs:          epochs,
				batchSize:       batchSize,
				learningRate:    learningRate,
				region:          region,
				format:          outputFormat,
			}
			if configFile != "" {
				fileSpec, err := customization.LoadFileSpec(configFile)
				if err != nil {
					return err
				}
				opts.merge(cmd, fileSpec)
			}
			return runRun(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&model, "model", "", "Base model ID (required)")
	cmd.Flags().StringVar(&trainingData, "training-data", "", "S3 URI or local path to training JSONL file (required)")
	cmd.Flags().StringVar(&validationData, "validation-data", "", "S3 URI or local path to validation JSONL file")
	cmd.Flags().StringVar(&bucket, "bucket", "", "S3 bucket for uploading local data and storing output")
	cmd.Flags().StringVar(&jobName, "job-name", "", "Name for the fine-tuning job (default: auto-generated)")
	cmd.Flags().StringVar(&customModelName, "custom-model-name", "", "Name for the resulting custom model (default: derived from job name)")
	cmd.Flags().StringVar(&roleArn, "role-arn", "", "IAM role ARN for Bedrock fine-tuning (default: auto-detected)")
	cmd.Flags().IntVar(&epochs, "epochs", customization.DefaultEpochs, "Number of training epochs")
	cmd.Flags().IntVar(&batchSize, "batch-size", customization.DefaultBatchSize, "Training batch size")
	cmd.Flags().Float64Var(&learningRate, "learning-rate", customization.DefaultLearningRate, "Learning rate")
	cmd.Flags().StringVar(&region, "region", "", "AWS region (default: from AWS configuration)")
	cmd.Flags().StringVar(&configFile, "config", "", "YAML job spec file; explicit flags override file values")
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")

	return cmd
}

type runOptions struct {
	model           string
	trainingData    string
	validationData  string
	bucket          string
	jobName         string
	customModelName string
	roleArn         string
	epochs          int
	batchSize       int
	learningRate    float64
	region          string
	format          string
}

// merge overlays file-spec values onto every flag the command line left
// unset.
func (o *runOptions) merge(cmd *cobra.Command, spec *customization.FileSpec) {
	flags := cmd.Flags()
	if !flags.Changed("model") && spec.Model != "" {
		o.model = spec.Model
	}
	if !flags.Changed("training-data") && spec.TrainingData != "" {
		o.trainingData = spec.TrainingData
	}
	if !flags.Changed("validation-data") && spec.ValidationData != "" {
		o.validationData = spec.ValidationData
	}
	if !flags.Changed("bucket") && spec.Bucket != "" {
		o.bucket = spec.Bucket
	}
	if !flags.Changed("job-name") && spec.JobName != "" {
		o.jobName = spec.JobName
	}
	if !flags.Changed("custom-model-name") && spec.CustomModelName != "" {
		o.customModelName = spec.CustomModelName
	}
	if !flags.Changed("role-arn") && spec.RoleArn != "" {
		o.roleArn = spec.RoleArn
	}
	if !flags.Changed("epochs") && spec.Epochs != 0 {
		o.epochs = spec.Epochs
	}
	if !flags.Changed("batch-size") && spec.BatchSize != 0 {
		o.batchSize = spec.BatchSize
	}
	if !flags.Changed("learning-rate") && spec.LearningRate != 0 {
		o.learningRate = spec.LearningRate
	}
	if !flags.Changed("region") && spec.Region != "" {
		o.region = spec.Region
	}
}

func runRun(ctx context.Context, opts runOptions) error {
	if opts.model == "" {
		return fmt.Errorf("--model is required (flag or --config)")
	}
	if opts.trainingData == "" {
		return fmt.Errorf("--training-data is required (flag or --config)")
	}

	// In json mode progress goes to stderr so stdout carries only the
	// result document.
	out := io.Writer(os.Stdout)
	if opts.format == "json" {
		out = os.Stderr
	}

	cfg, err := awsx.Load(ctx, opts.region)
	if err != nil {
		return err
	}

	if !customization.IsSupportedBaseModel(opts.model) {
		fmt.Fprintf(out, "WARNING: Model '%s' is not in the known supported list.\n", opts.model)
		fmt.Fprintf(out, "  Supported models: %s\n", customization.SupportedModelsHint())
		fmt.Fprintln(out, "  Proceeding anyway -- the API will reject if truly unsupported.")
		fmt.Fprintln(out)
	}

	spec := customization.JobSpec{
		BaseModel:       opts.model,
		JobName:         opts.jobName,
		CustomModelName: opts.customModelName,
		RoleArn:         opts.roleArn,
		Hyperparameters: customization.Hyperparameters{
			Epochs:       opts.epochs,
			BatchSize:    opts.batchSize,
			LearningRate: opts.learningRate,
		},
	}
	spec.ApplyDefaults()

	banner := strings.Repeat("=", 60)
	fmt.Fprintln(out, banner)
	fmt.Fprintln(out, "Bedrock Fine-Tuning Job Configuration")
	fmt.Fprintln(out, banner)
	fmt.Fprintf(out, "  Base model:    %s\n", spec.BaseModel)
	fmt.Fprintf(out, "  Job name:      %s\n", spec.JobName)
	fmt.Fprintf(out, "  Custom model:  %s\n", spec.CustomModelName)
	fmt.Fprintf(out, "  Epochs:        %d\n", opts.epochs)
	fmt.Fprintf(out, "  Batch size:    %d\n", opts.batchSize)
	fmt.Fprintf(out, "  Learning rate: %v\n", opts.learningRate)
	fmt.Fprintf(out, "  Region:        %s\n", cfg.Region)
	fmt.Fprintln(out)

	resolver := &staging.Resolver{
		Uploader: manager.NewUploader(s3.NewFromConfig(cfg)),
		Bucket:   opts.bucket,
		Out:      out,
	}

	spec.TrainingDataURI, err = resolver.Resolve(ctx, opts.trainingData, spec.KeyPrefix())
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "  Training data: %s\n", spec.TrainingDataURI)

	if opts.validationData != "" {
		spec.ValidationDataURI, err = resolver.Resolve(ctx, opts.validationData, spec.KeyPrefix())
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "  Validation:    %s\n", spec.ValidationDataURI)
	}

	// Output lands next to the training data unless a bucket was given.
	outputBucket := opts.bucket
	if outputBucket == "" {
		outputBucket, _, err = staging.ParseS3URI(spec.TrainingDataURI)
		if err != nil {
			return err
		}
	}
	spec.OutputDataURI = fmt.Sprintf("s3://%s/%s/output/", outputBucket, spec.KeyPrefix())
	fmt.Fprintf(out, "  Output:        %s\n", spec.OutputDataURI)

	if spec.RoleArn == "" {
		spec.RoleArn, err = customization.DetectRole(ctx, iam.NewFromConfig(cfg))
		if err != nil {
			return err
		}
	}
	fmt.Fprintf(out, "  Role ARN:      %s\n", spec.RoleArn)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Submitting fine-tuning job...")

	result := finetune.SubmitResult{
		JobName:           spec.JobName,
		CustomModelName:   spec.CustomModelName,
		BaseModel:         spec.BaseModel,
		Region:            cfg.Region,
		RoleArn:           spec.RoleArn,
		TrainingDataURI:   spec.TrainingDataURI,
		ValidationDataURI: spec.ValidationDataURI,
		OutputDataURI:     spec.OutputDataURI,
		HyperParameters:   spec.Hyperparameters.StringMap(),
	}

	jobArn, err := customization.Submit(ctx, bedrock.NewFromConfig(cfg), spec)
	if err != nil {
		result.Errors = []string{err.Error()}
		return outputSubmitResult(result, opts.format)
	}
	result.Success = true
	result.JobArn = jobArn

	return outputSubmitResult(result, opts.format)
}

func outputSubmitResult(result finetune.SubmitResult, format string) error {
	// Submission failures go to stderr regardless of format
	if !result.Success {
		for _, e := range result.Errors {
			fmt.Fprintln(os.Stderr, e)
		}
		return fmt.Errorf("job submission failed")
	}

	switch format {
	case "json":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))

	case "text":
		banner := strings.Repeat("=", 60)
		fmt.Println()
		fmt.Println(banner)
		fmt.Println("Job submitted successfully!")
		fmt.Println(banner)
		fmt.Printf("  Job ARN: %s\n", result.JobArn)
		fmt.Printf("  Job Name: %s\n", result.JobName)
		fmt.Println()
		fmt.Println("Monitor progress:")
		fmt.Printf("  finetune-aws monitor --job-name %s\n", result.JobName)
		fmt.Printf("  finetune-aws monitor --job-name %s --watch\n", result.JobName)
		fmt.Println()
		fmt.Println("Or via AWS CLI:")
		fmt.Printf("  aws bedrock get-model-customization-job --job-identifier %s\n", result.JobName)
		fmt.Println()

	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	return nil
}
