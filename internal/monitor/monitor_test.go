package monitor

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	finetune "github.com/modelsmith/finetune-aws-go"
)

func plainColors(t *testing.T) {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name string
		d    time.Duration
		want string
	}{
		{"zero", 0, "0s"},
		{"seconds", 45 * time.Second, "45s"},
		{"just under a minute", 59 * time.Second, "59s"},
		{"minutes", 90 * time.Second, "1.5m"},
		{"under an hour", 59*time.Minute + 30*time.Second, "59.5m"},
		{"hours", 2*time.Hour + 30*time.Minute, "2.5h"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatDuration(tt.d))
		})
	}
}

func TestRender_InProgress(t *testing.T) {
	plainColors(t)

	now := time.Date(2026, 1, 15, 10, 40, 0, 0, time.UTC)
	created := now.Add(-10 * time.Minute)
	detail := &finetune.JobDetail{
		JobName:         "finetune-abc123",
		JobArn:          "arn:aws:bedrock:us-east-1:123456789012:model-customization-job/abc",
		Status:          finetune.JobStatusInProgress,
		BaseModelArn:    "arn:aws:bedrock:us-east-1::foundation-model/amazon.nova-micro-v1:0",
		OutputModelName: "custom-finetune-abc123",
		CreationTime:    &created,
		HyperParameters: map[string]string{"epochCount": "3", "batchSize": "8"},
		TrainingDataURI: "s3://bkt/fine-tuning/finetune-abc123/train.jsonl",
		OutputDataURI:   "s3://bkt/fine-tuning/finetune-abc123/output/",
	}

	var buf bytes.Buffer
	Render(&buf, detail, now)
	out := buf.String()

	assert.Contains(t, out, strings.Repeat("=", 65))
	assert.Contains(t, out, "  Fine-Tuning Job: finetune-abc123")
	assert.Contains(t, out, "[RUNNING] Status: InProgress")
	assert.Contains(t, out, "  Started:        2026-01-15 10:30:00 UTC")
	assert.Contains(t, out, "  Elapsed:        10.0m")
	assert.Contains(t, out, "  Estimated:      Fine-tuning jobs typically take 1-4 hours")
	assert.Contains(t, out, "  Training Data:  s3://bkt/fine-tuning/finetune-abc123/train.jsonl")
	assert.Contains(t, out, "  Output:         s3://bkt/fine-tuning/finetune-abc123/output/")
	assert.NotContains(t, out, "Completed:")
	assert.NotContains(t, out, "Next steps:")

	// Hyperparameters print in sorted key order.
	assert.Contains(t, out, "    batchSize: 8")
	assert.Contains(t, out, "    epochCount: 3")
	assert.Less(t, strings.Index(out, "batchSize"), strings.Index(out, "epochCount"))
}

func TestRender_NoEstimateBeforeFiveMinutes(t *testing.T) {
	plainColors(t)

	now := time.Date(2026, 1, 15, 10, 32, 0, 0, time.UTC)
	created := now.Add(-2 * time.Minute)
	detail := &finetune.JobDetail{
		JobName:      "j",
		Status:       finetune.JobStatusInProgress,
		CreationTime: &created,
	}

	var buf bytes.Buffer
	Render(&buf, detail, now)
	assert.NotContains(t, buf.String(), "Estimated:")
}

func TestRender_Completed(t *testing.T) {
	plainColors(t)

	created := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)
	ended := created.Add(2 * time.Hour)
	loss := 0.0231
	detail := &finetune.JobDetail{
		JobName:          "finetune-abc123",
		JobArn:           "arn:job",
		Status:           finetune.JobStatusCompleted,
		OutputModelName:  "custom-finetune-abc123",
		OutputModelArn:   "arn:aws:bedrock:us-east-1:123456789012:custom-model/custom-finetune-abc123",
		CreationTime:     &created,
		EndTime:          &ended,
		TrainingLoss:     &loss,
		ValidationLosses: []float64{0.0312},
	}

	var buf bytes.Buffer
	Render(&buf, detail, ended.Add(24*time.Hour))
	out := buf.String()

	assert.Contains(t, out, "[  DONE ] Status: Completed")
	assert.Contains(t, out, "  Completed:      2026-01-15 12:30:00 UTC")
	assert.Contains(t, out, "  Elapsed:        2.0h")
	assert.Contains(t, out, "    Training Loss:   0.023100")
	assert.Contains(t, out, "    Validation Loss: 0.031200")
	assert.Contains(t, out, "  Output Model ARN: arn:aws:bedrock:us-east-1:123456789012:custom-model/custom-finetune-abc123")
	assert.Contains(t, out, "  Next steps:")
	assert.Contains(t, out, "aws bedrock create-provisioned-model-throughput")
	assert.Contains(t, out, "finetune-aws evaluate --model-id")
	assert.NotContains(t, out, "Estimated:")
}

func TestRender_Failed(t *testing.T) {
	plainColors(t)

	detail := &finetune.JobDetail{
		JobName:        "finetune-abc123",
		Status:         finetune.JobStatusFailed,
		FailureMessage: "Training data validation failed",
	}

	var buf bytes.Buffer
	Render(&buf, detail, time.Now())
	out := buf.String()

	assert.Contains(t, out, "[FAILED ] Status: Failed")
	assert.Contains(t, out, "  Failure Reason: Training data validation failed")
}

func TestRender_MissingFieldsShowNA(t *testing.T) {
	plainColors(t)

	var buf bytes.Buffer
	Render(&buf, &finetune.JobDetail{Status: finetune.JobStatusInProgress}, time.Now())
	out := buf.String()

	assert.Contains(t, out, "  Fine-Tuning Job: N/A")
	assert.Contains(t, out, "  Job ARN:        N/A")
	assert.Contains(t, out, "  Base Model:     N/A")
	assert.Contains(t, out, "  Custom Model:   N/A")
}

func TestWatcher_PollsUntilCompleted(t *testing.T) {
	plainColors(t)

	mock := clock.NewMock()
	var buf syncBuffer

	statuses := []string{
		finetune.JobStatusInProgress,
		finetune.JobStatusInProgress,
		finetune.JobStatusCompleted,
	}
	var mu sync.Mutex
	calls := 0
	fetch := func(ctx context.Context) (*finetune.JobDetail, error) {
		mu.Lock()
		defer mu.Unlock()
		status := statuses[calls]
		calls++
		return &finetune.JobDetail{JobName: "finetune-abc123", Status: status}, nil
	}

	w := &Watcher{Clock: mock, Interval: 60 * time.Second, Out: &buf}

	done := make(chan struct{})
	var detail *finetune.JobDetail
	var err error
	go func() {
		defer close(done)
		detail, err = w.Watch(context.Background(), "finetune-abc123", fetch)
	}()

	require.Eventually(t, func() bool {
		select {
		case <-done:
			return true
		default:
			mock.Add(60 * time.Second)
			return false
		}
	}, 5*time.Second, 5*time.Millisecond)

	require.NoError(t, err)
	require.NotNil(t, detail)
	assert.Equal(t, finetune.JobStatusCompleted, detail.Status)

	out := buf.String()
	assert.Contains(t, out, "Watching job 'finetune-abc123' (polling every 60s, Ctrl+C to stop)...")
	assert.Contains(t, out, "--- Poll #2 at ")
	assert.Contains(t, out, "Next check in 60s... (Ctrl+C to stop watching)")
	assert.Contains(t, out, "Job completed successfully!")

	mu.Lock()
	assert.Equal(t, 3, calls)
	mu.Unlock()
}

func TestWatcher_FailedJobStopsImmediately(t *testing.T) {
	plainColors(t)

	var buf syncBuffer
	w := &Watcher{Clock: clock.NewMock(), Interval: 60 * time.Second, Out: &buf}

	fetch := func(ctx context.Context) (*finetune.JobDetail, error) {
		return &finetune.JobDetail{
			JobName:        "j",
			Status:         finetune.JobStatusFailed,
			FailureMessage: "boom",
		}, nil
	}

	detail, err := w.Watch(context.Background(), "j", fetch)
	require.NoError(t, err)
	assert.Equal(t, finetune.JobStatusFailed, detail.Status)

	out := buf.String()
	assert.Contains(t, out, "Job failed. Check the failure reason above.")
	assert.NotContains(t, out, "Next check in")
}

func TestWatcher_ContextCancelStopsWatch(t *testing.T) {
	plainColors(t)

	mock := clock.NewMock()
	var buf syncBuffer
	w := &Watcher{Clock: mock, Interval: 60 * time.Second, Out: &buf}

	ctx, cancel := context.WithCancel(context.Background())
	fetched := make(chan struct{}, 8)
	fetch := func(ctx context.Context) (*finetune.JobDetail, error) {
		fetched <- struct{}{}
		return &finetune.JobDetail{JobName: "j", Status: finetune.JobStatusInProgress}, nil
	}

	done := make(chan struct{})
	var err error
	go func() {
		defer close(done)
		_, err = w.Watch(ctx, "j", fetch)
	}()

	select {
	case <-fetched:
	case <-time.After(5 * time.Second):
		t.Fatal("watch never fetched")
	}
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop on cancel")
	}

	require.ErrorIs(t, err, context.Canceled)
	out := buf.String()
	assert.Contains(t, out, "Stopped watching. Job continues running in AWS.")
	assert.Contains(t, out, "Resume monitoring: finetune-aws monitor --job-name j --watch")
}

// syncBuffer guards a bytes.Buffer written from the watch goroutine and read
// from the test goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
