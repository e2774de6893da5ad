package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/bedrock"
	"github.com/benbjohnson/clock"
	"github.com/spf13/cobra"

	finetune "github.com/modelsmith/finetune-aws-go"
	"github.com/modelsmith/finetune-aws-go/internal/awsx"
	"github.com/modelsmith/finetune-aws-go/internal/customization"
	"github.com/modelsmith/finetune-aws-go/internal/monitor"
)

func newMonitorCmd() *cobra.Command {
	var (
		jobName      string
		watch        bool
		interval     int
		region       string
		outputFormat string
	)

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Show the status of a fine-tuning job",
		Long: `Monitor fetches a fine-tuning job and displays its status, timing,
hyperparameters and training metrics.

With --watch it polls until the job reaches a terminal state; a failed job
exits with status 1. Ctrl+C stops watching without touching the job.

Examples:
    finetune-aws monitor --job-name my-finetune-job
    finetune-aws monitor --job-name my-finetune-job --watch
    finetune-aws monitor --job-name my-finetune-job --watch --interval 30
    finetune-aws monitor --job-name my-finetune-job --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMonitor(jobName, watch, interval, region, outputFormat)
		},
	}

	cmd.Flags().StringVar(&jobName, "job-name", "", "Name or ARN of the fine-tuning job (required)")
	cmd.Flags().BoolVar(&watch, "watch", false, "Continuously poll until the job completes or fails")
	cmd.Flags().IntVar(&interval, "interval", 60, "Polling interval in seconds when --watch is enabled")
	cmd.Flags().StringVar(&region, "region", "", "AWS region (default: from AWS configuration)")
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json (one-shot only)")
	cmd.MarkFlagRequired("job-name")

	return cmd
}

func runMonitor(jobName string, watch bool, interval int, region, format string) error {
	if watch && format == "json" {
		return fmt.Errorf("--format json applies to one-shot mode only (drop --watch)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := awsx.Load(ctx, region)
	if err != nil {
		return err
	}
	client := bedrock.NewFromConfig(cfg)

	if !watch {
		detail, err := customization.Get(ctx, client, jobName)
		if err != nil {
			return err
		}
		return outputJobDetail(detail, format)
	}

	// Ctrl+C stops the watch; the job keeps running in AWS.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	watcher := &monitor.Watcher{
		Clock:    clock.New(),
		Interval: time.Duration(interval) * time.Second,
		Out:      os.Stdout,
	}
	detail, err := watcher.Watch(ctx, jobName, func(ctx context.Context) (*finetune.JobDetail, error) {
		return customization.Get(ctx, client, jobName)
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	if detail.Status == finetune.JobStatusFailed {
		os.Exit(1)
	}
	return nil
}

func outputJobDetail(detail *finetune.JobDetail, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(detail, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))

	case "text":
		monitor.Render(os.Stdout, detail, time.Now())

	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	return nil
}
