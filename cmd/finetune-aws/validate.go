package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	finetune "github.com/modelsmith/finetune-aws-go"
	"github.com/modelsmith/finetune-aws-go/internal/dataset"
)

func newValidateCmd() *cobra.Command {
	var (
		strict       bool
		watch        bool
		debounce     time.Duration
		outputFormat string
	)

	cmd := &cobra.Command{
		Use:   "validate [files...]",
		Short: "Check JSONL training data files",
		Long: `Validate checks JSONL training data for problems before a job is
submitted: unparseable lines and records missing every field Bedrock
fine-tuning accepts (prompt, messages, system).

A file with no valid records is always an error. Other findings are
warnings unless --strict is set, which exits with status 2.

Examples:
    finetune-aws validate data/training.jsonl
    finetune-aws validate data/training.jsonl data/validation.jsonl --strict
    finetune-aws validate data/training.jsonl --watch`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if watch && outputFormat == "json" {
				return fmt.Errorf("--format json cannot be combined with --watch")
			}
			opts := validateOptions{
				strict:   strict,
				debounce: debounce,
				format:   outputFormat,
			}
			if watch {
				return runValidateWatch(args, opts)
			}
			return runValidate(args, opts)
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Exit non-zero when any finding is reported")
	cmd.Flags().BoolVar(&watch, "watch", false, "Re-validate whenever the files change")
	cmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "Debounce duration for rapid changes")
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")

	return cmd
}

type validateOptions struct {
	strict   bool
	debounce time.Duration
	format   string
}

func runValidate(files []string, opts validateOptions) error {
	results := make([]finetune.DatasetResult, 0, len(files))
	for _, file := range files {
		report, err := dataset.Validate(file)
		if err != nil {
			return err
		}
		results = append(results, datasetResult(file, report))
	}
	return outputValidateResults(results, opts)
}

func datasetResult(file string, report *dataset.Report) finetune.DatasetResult {
	findings := make([]finetune.DatasetFinding, 0, len(report.Findings))
	for _, f := range report.Findings {
		findings = append(findings, finetune.DatasetFinding{Line: f.Line, Message: f.Message})
	}
	return finetune.DatasetResult{
		File:     file,
		Success:  report.OK(),
		Records:  report.Records,
		Findings: findings,
	}
}

func outputValidateResults(results []finetune.DatasetResult, opts validateOptions) error {
	findingsTotal := 0

	switch opts.format {
	case "json":
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		for _, r := range results {
			findingsTotal += len(r.Findings)
		}

	case "text":
		for _, r := range results {
			printDatasetResult(r)
			findingsTotal += len(r.Findings)
		}

	default:
		return fmt.Errorf("unknown format: %s", opts.format)
	}

	for _, r := range results {
		if r.Records == 0 {
			return fmt.Errorf("no valid JSONL records found in %s", r.File)
		}
	}

	if findingsTotal > 0 && opts.strict {
		os.Exit(2) // Exit code 2 for findings in strict mode
	}

	return nil
}

// printDatasetResult echoes one file's outcome, capping the finding list the
// way the run command's upload path does.
func printDatasetResult(r finetune.DatasetResult) {
	if len(r.Findings) == 0 {
		fmt.Printf("Validated %s: %d records, format OK.\n", r.File, r.Records)
		return
	}
	fmt.Printf("WARNING: Found %d issue(s) in %s:\n", len(r.Findings), r.File)
	for i, f := range r.Findings {
		if i == 5 {
			fmt.Printf("  ... and %d more.\n", len(r.Findings)-5)
			break
		}
		fmt.Printf("  Line %d: %s\n", f.Line, f.Message)
	}
}

// runValidateWatch monitors the files and re-validates on changes.
func runValidateWatch(files []string, opts validateOptions) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() {
		_ = watcher.Close()
	}()

	// Watch each file's directory; editors replace files on save, so
	// watching the path itself misses the rename.
	watched := make(map[string]bool)
	dirs := make(map[string]bool)
	for _, file := range files {
		abs, err := filepath.Abs(file)
		if err != nil {
			return err
		}
		watched[abs] = true

		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		dirs[dir] = true
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		fmt.Printf("Watching: %s\n", dir)
	}

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	fmt.Println("Running initial validation...")
	validatePass(files)

	// Debounce timer
	var debounceTimer *time.Timer
	revalidateChan := make(chan struct{}, 1)

	fmt.Println("\nWatching for changes... (Ctrl+C to stop)")

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			abs, err := filepath.Abs(event.Name)
			if err != nil || !watched[abs] {
				continue
			}

			// Only process write/create events
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			// Debounce: reset timer on each change
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(opts.debounce, func() {
				select {
				case revalidateChan <- struct{}{}:
				default:
				}
			})

		case <-revalidateChan:
			fmt.Printf("\n[%s] Change detected, revalidating...\n", time.Now().Format("15:04:05"))
			validatePass(files)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "Watch error: %v\n", err)

		case <-sigChan:
			fmt.Println("\nStopping watch...")
			return nil
		}
	}
}

// validatePass runs one validation over all files without terminating the
// watch loop on findings.
func validatePass(files []string) {
	for _, file := range files {
		report, err := dataset.Validate(file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Validation error: %v\n", err)
			continue
		}
		printDatasetResult(datasetResult(file, report))
	}
}
