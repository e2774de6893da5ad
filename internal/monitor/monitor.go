// Package monitor renders customization job status for terminals and polls
// jobs until they reach a terminal state.
package monitor

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/fatih/color"

	finetune "github.com/modelsmith/finetune-aws-go"
)

const timestampLayout = "2006-01-02 15:04:05 UTC"

// statusIcons are fixed-width so consecutive polls line up.
var statusIcons = map[string]string{
	finetune.JobStatusInProgress: "[RUNNING]",
	finetune.JobStatusCompleted:  "[  DONE ]",
	finetune.JobStatusFailed:     "[FAILED ]",
	finetune.JobStatusStopping:   "[STOPPING]",
	finetune.JobStatusStopped:    "[STOPPED]",
}

var statusColors = map[string]*color.Color{
	finetune.JobStatusInProgress: color.New(color.FgYellow),
	finetune.JobStatusCompleted:  color.New(color.FgGreen),
	finetune.JobStatusFailed:     color.New(color.FgRed),
	finetune.JobStatusStopping:   color.New(color.FgYellow),
	finetune.JobStatusStopped:    color.New(color.FgHiBlack),
}

// FormatDuration renders a duration the way job runtimes read best: seconds
// under a minute, fractional minutes under an hour, fractional hours beyond.
func FormatDuration(d time.Duration) string {
	seconds := d.Seconds()
	switch {
	case seconds < 60:
		return fmt.Sprintf("%.0fs", seconds)
	case seconds < 3600:
		return fmt.Sprintf("%.1fm", seconds/60)
	default:
		return fmt.Sprintf("%.1fh", seconds/3600)
	}
}

// Render pretty-prints one observation of a customization job. now anchors
// the elapsed time for jobs that have not finished yet.
func Render(w io.Writer, d *finetune.JobDetail, now time.Time) {
	status := d.Status
	if status == "" {
		status = "Unknown"
	}
	icon, ok := statusIcons[status]
	if !ok {
		icon = "[" + status + "]"
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("=", 65))
	fmt.Fprintf(w, "  Fine-Tuning Job: %s\n", orNA(d.JobName))
	statusLine := fmt.Sprintf("%s Status: %s", icon, status)
	if c, ok := statusColors[status]; ok {
		statusLine = c.Sprint(statusLine)
	}
	fmt.Fprintf(w, "  %s\n", statusLine)
	fmt.Fprintln(w, strings.Repeat("=", 65))

	fmt.Fprintf(w, "  Job ARN:        %s\n", orNA(d.JobArn))
	fmt.Fprintf(w, "  Base Model:     %s\n", orNA(d.BaseModelArn))
	fmt.Fprintf(w, "  Custom Model:   %s\n", orNA(d.OutputModelName))

	if d.CreationTime != nil {
		fmt.Fprintf(w, "  Started:        %s\n", d.CreationTime.UTC().Format(timestampLayout))
		ref := now
		if d.EndTime != nil {
			ref = *d.EndTime
		}
		fmt.Fprintf(w, "  Elapsed:        %s\n", FormatDuration(ref.Sub(*d.CreationTime)))
	}
	if d.EndTime != nil {
		fmt.Fprintf(w, "  Completed:      %s\n", d.EndTime.UTC().Format(timestampLayout))
	} else if d.CreationTime != nil && status == finetune.JobStatusInProgress &&
		now.Sub(*d.CreationTime) > 5*time.Minute {
		fmt.Fprintln(w, "  Estimated:      Fine-tuning jobs typically take 1-4 hours")
	}

	if len(d.HyperParameters) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "  Hyperparameters:")
		keys := make([]string, 0, len(d.HyperParameters))
		for k := range d.HyperParameters {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "    %s: %s\n", k, d.HyperParameters[k])
		}
	}

	if d.TrainingDataURI != "" {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "  Training Data:  %s\n", d.TrainingDataURI)
	}
	for _, uri := range d.ValidationDataURIs {
		fmt.Fprintf(w, "  Validation:     %s\n", uri)
	}
	if d.OutputDataURI != "" {
		fmt.Fprintf(w, "  Output:         %s\n", d.OutputDataURI)
	}

	if d.TrainingLoss != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "  Training Metrics:")
		fmt.Fprintf(w, "    Training Loss:   %.6f\n", *d.TrainingLoss)
	}
	if len(d.ValidationLosses) > 0 {
		fmt.Fprintln(w, "  Validation Metrics:")
		for _, loss := range d.ValidationLosses {
			fmt.Fprintf(w, "    Validation Loss: %.6f\n", loss)
		}
	}

	if d.OutputModelArn != "" {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "  Output Model ARN: %s\n", d.OutputModelArn)
		fmt.Fprintln(w)
		fmt.Fprintln(w, "  Next steps:")
		fmt.Fprintln(w, "    1. Create provisioned throughput:")
		fmt.Fprintln(w, "       aws bedrock create-provisioned-model-throughput \\")
		fmt.Fprintf(w, "         --model-id %s \\\n", d.OutputModelArn)
		fmt.Fprintln(w, "         --provisioned-model-name my-custom-model \\")
		fmt.Fprintln(w, "         --model-units 1")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "    2. Or evaluate the model:")
		fmt.Fprintf(w, "       finetune-aws evaluate --model-id %s \\\n", d.OutputModelArn)
		fmt.Fprintln(w, "         --test-data data/validation.jsonl")
	}

	if d.FailureMessage != "" {
		fmt.Fprintln(w)
		line := "Failure Reason: " + d.FailureMessage
		if c, ok := statusColors[finetune.JobStatusFailed]; ok {
			line = c.Sprint(line)
		}
		fmt.Fprintf(w, "  %s\n", line)
	}

	fmt.Fprintln(w)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// FetchFunc returns the current state of the watched job.
type FetchFunc func(ctx context.Context) (*finetune.JobDetail, error)

// Watcher polls a job on a fixed interval, rendering each observation.
type Watcher struct {
	Clock    clock.Clock
	Interval time.Duration
	Out      io.Writer
}

// Watch polls until the job reaches a terminal state and returns the final
// detail. Canceling the context stops the watch; the job itself keeps
// running in AWS, and the returned error is the context's.
func (w *Watcher) Watch(ctx context.Context, jobID string, fetch FetchFunc) (*finetune.JobDetail, error) {
	interval := int(w.Interval.Seconds())
	fmt.Fprintf(w.Out, "Watching job '%s' (polling every %ds, Ctrl+C to stop)...\n", jobID, interval)

	for poll := 1; ; poll++ {
		detail, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		if poll > 1 {
			fmt.Fprintf(w.Out, "\n--- Poll #%d at %s ---\n", poll, w.Clock.Now().Format("15:04:05"))
		}
		Render(w.Out, detail, w.Clock.Now())

		if detail.Terminal() {
			switch detail.Status {
			case finetune.JobStatusCompleted:
				fmt.Fprintln(w.Out, "Job completed successfully!")
			case finetune.JobStatusFailed:
				fmt.Fprintln(w.Out, "Job failed. Check the failure reason above.")
			default:
				fmt.Fprintf(w.Out, "Job reached terminal status: %s\n", detail.Status)
			}
			return detail, nil
		}

		fmt.Fprintf(w.Out, "Next check in %ds... (Ctrl+C to stop watching)\n", interval)
		select {
		case <-ctx.Done():
			fmt.Fprintln(w.Out, "\nStopped watching. Job continues running in AWS.")
			fmt.Fprintf(w.Out, "Resume monitoring: finetune-aws monitor --job-name %s --watch\n", jobID)
			return detail, ctx.Err()
		case <-w.Clock.After(w.Interval):
		}
	}
}
