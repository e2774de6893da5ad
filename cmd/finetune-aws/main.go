// Command finetune-aws operates Bedrock model fine-tuning jobs.
//
// Usage:
//
//	finetune-aws run --model <id> --training-data <path>   Start a fine-tuning job
//	finetune-aws monitor --job-name <name> --watch          Poll a job to completion
//	finetune-aws jobs                                       List jobs, newest first
//	finetune-aws validate data/training.jsonl               Check training data
//	finetune-aws evaluate --model-id <arn> --test-data ...  Score a tuned model
//	finetune-aws version                                    Show version
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "finetune-aws",
		Short: "Run, monitor and evaluate Bedrock fine-tuning jobs",
		Long: `finetune-aws drives Bedrock model customization end to end.

Submit a job from local or S3 training data:

    finetune-aws run --model amazon.nova-micro-v1:0 \
        --training-data data/training.jsonl --bucket my-finetuning-bucket

Watch it to completion, then score the tuned model against a test set:

    finetune-aws monitor --job-name finetune-a1b2c3 --watch
    finetune-aws evaluate --model-id <custom model ARN> --test-data data/test.jsonl`,
	}

	rootCmd.AddCommand(
		newRunCmd(),
		newMonitorCmd(),
		newJobsCmd(),
		newValidateCmd(),
		newEvaluateCmd(),
		newVersionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("finetune-aws %s\n", getVersion())
		},
	}
}
