package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/bedrock"
	"github.com/spf13/cobra"

	finetune "github.com/modelsmith/finetune-aws-go"
	"github.com/modelsmith/finetune-aws-go/internal/awsx"
	"github.com/modelsmith/finetune-aws-go/internal/customization"
)

func newJobsCmd() *cobra.Command {
	var (
		status       string
		max          int32
		region       string
		outputFormat string
	)

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List fine-tuning jobs",
		Long: `Jobs lists the model-customization jobs in the account, newest first.

Examples:
    finetune-aws jobs
    finetune-aws jobs --status InProgress
    finetune-aws jobs --max 5 --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJobs(status, max, region, outputFormat)
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by status: InProgress, Completed, Failed, Stopping or Stopped")
	cmd.Flags().Int32Var(&max, "max", 25, "Maximum number of jobs to list")
	cmd.Flags().StringVar(&region, "region", "", "AWS region (default: from AWS configuration)")
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")

	return cmd
}

func runJobs(status string, max int32, region, format string) error {
	switch status {
	case "", finetune.JobStatusInProgress, finetune.JobStatusCompleted,
		finetune.JobStatusFailed, finetune.JobStatusStopping, finetune.JobStatusStopped:
	default:
		return fmt.Errorf("unknown status: %s (use 'InProgress', 'Completed', 'Failed', 'Stopping' or 'Stopped')", status)
	}

	ctx := context.Background()
	cfg, err := awsx.Load(ctx, region)
	if err != nil {
		return err
	}

	jobs, err := customization.List(ctx, bedrock.NewFromConfig(cfg), status, max)
	if err != nil {
		return err
	}
	if jobs == nil {
		jobs = []finetune.JobSummary{}
	}

	return outputJobsResult(finetune.JobsResult{Jobs: jobs}, format)
}

func outputJobsResult(result finetune.JobsResult, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))

	case "text":
		if len(result.Jobs) == 0 {
			fmt.Println("No fine-tuning jobs found.")
			return nil
		}

		fmt.Printf("Fine-tuning jobs (%d):\n\n", len(result.Jobs))
		for _, job := range result.Jobs {
			created := ""
			if job.CreationTime != nil {
				created = job.CreationTime.UTC().Format("2006-01-02 15:04")
			}
			fmt.Printf("  %-36s %-12s %-32s %s\n",
				job.JobName, job.Status, baseModelID(job.BaseModelArn), created)
		}

	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	return nil
}

// baseModelID trims a foundation-model ARN down to the trailing model id.
func baseModelID(arn string) string {
	if i := strings.LastIndex(arn, "/"); i >= 0 {
		return arn[i+1:]
	}
	return arn
}
