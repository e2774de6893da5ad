// Package evaluate runs JSONL test samples against a model provider and
// aggregates keyword-accuracy, latency, and token metrics into a report.
package evaluate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/aws/smithy-go"
	"github.com/benbjohnson/clock"

	finetune "github.com/modelsmith/finetune-aws-go"
	"github.com/modelsmith/finetune-aws-go/internal/dataset"
	"github.com/modelsmith/finetune-aws-go/internal/providers"
	"github.com/modelsmith/finetune-aws-go/internal/scoring"
)

// evalTemperature keeps responses near-deterministic so repeated runs of the
// same model score comparably.
const evalTemperature = 0.1

// DefaultMaxTokens caps model responses when the caller does not.
const DefaultMaxTokens = 1024

const timestampLayout = "2006-01-02T15:04:05.000000Z"

// Options configure one evaluation run.
type Options struct {
	// ModelID names the model under test; it appears in output and the
	// report but routing happens through the Provider.
	ModelID string
	// TestData is the JSONL file of test samples.
	TestData string
	// MaxSamples caps how many samples run. Zero means all.
	MaxSamples int
	// MaxTokens caps each response. Zero means DefaultMaxTokens.
	MaxTokens int
}

// Engine evaluates test samples against a provider.
type Engine struct {
	Provider providers.Provider
	Clock    clock.Clock
	Out      io.Writer
}

// Run evaluates every sample and returns the aggregated report. Progress and
// the summary table go to Out as the run proceeds.
func (e *Engine) Run(ctx context.Context, opts Options) (*finetune.EvalReport, error) {
	records, findings, err := dataset.Load(opts.TestData, opts.MaxSamples)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("test data file not found: %s", opts.TestData)
		}
		return nil, err
	}
	for _, f := range findings {
		fmt.Fprintf(e.Out, "WARNING: Skipping line %d: %s\n", f.Line, f.Message)
	}
	fmt.Fprintf(e.Out, "Loaded %d test samples from %s\n", len(records), opts.TestData)
	if len(records) == 0 {
		return nil, errors.New("no test samples loaded")
	}

	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = DefaultMaxTokens
	}

	fmt.Fprintln(e.Out)
	fmt.Fprintln(e.Out, strings.Repeat("=", 65))
	fmt.Fprintf(e.Out, "  Evaluating: %s\n", opts.ModelID)
	fmt.Fprintf(e.Out, "  Test data:  %s\n", opts.TestData)
	fmt.Fprintf(e.Out, "  Samples:    %d\n", len(records))
	fmt.Fprintln(e.Out, strings.Repeat("=", 65))
	fmt.Fprintln(e.Out)

	var results []finetune.SampleResult
	var accuracies []float64
	var totalLatency float64
	var totalInput, totalOutput int
	errorCount := 0

	for i, record := range records {
		idx := i + 1
		prompt, expected, ok := record.PromptAndExpected()
		if !ok {
			fmt.Fprintf(e.Out, "  [%d/%d] SKIP -- no prompt found in record\n", idx, len(records))
			continue
		}

		fmt.Fprintf(e.Out, "  [%d/%d] Evaluating... ", idx, len(records))

		start := e.Clock.Now()
		result, err := e.Provider.Invoke(ctx, providers.Request{
			System:      record.System,
			Prompt:      prompt,
			MaxTokens:   maxTokens,
			Temperature: evalTemperature,
		})
		latency := round3(e.Clock.Since(start).Seconds())

		if err != nil {
			msg := apiErrorString(err)
			fmt.Fprintf(e.Out, "ERROR: %s\n", msg)
			errorCount++
			results = append(results, finetune.SampleResult{
				SampleIndex:    idx,
				Prompt:         truncate(prompt, 100),
				LatencySeconds: latency,
				Error:          msg,
			})
			continue
		}

		accuracy := scoring.KeywordAccuracy(expected, result.Text)
		accuracies = append(accuracies, accuracy)
		totalLatency += latency
		totalInput += result.InputTokens
		totalOutput += result.OutputTokens

		fmt.Fprintf(e.Out, "OK  latency=%.1fs  tokens=%d+%d  accuracy=%.0f%%  len=%d\n",
			latency, result.InputTokens, result.OutputTokens, accuracy*100,
			utf8.RuneCountInString(result.Text))

		stopReason := result.StopReason
		if stopReason == "" {
			stopReason = "unknown"
		}
		text := result.Text
		acc := round4(accuracy)
		results = append(results, finetune.SampleResult{
			SampleIndex:     idx,
			Prompt:          truncate(prompt, 200),
			Expected:        truncate(expected, 200),
			Response:        &text,
			KeywordAccuracy: &acc,
			LatencySeconds:  latency,
			InputTokens:     result.InputTokens,
			OutputTokens:    result.OutputTokens,
			StopReason:      stopReason,
		})
	}

	successful := len(results) - errorCount
	var avgLatency, avgAccuracy, avgResponseLen float64
	if successful > 0 {
		avgLatency = totalLatency / float64(successful)
		var chars int
		for _, r := range results {
			if r.Error == "" && r.Response != nil {
				chars += utf8.RuneCountInString(*r.Response)
			}
		}
		avgResponseLen = float64(chars) / float64(successful)
	}
	if len(accuracies) > 0 {
		var sum float64
		for _, a := range accuracies {
			sum += a
		}
		avgAccuracy = sum / float64(len(accuracies))
	}

	report := &finetune.EvalReport{
		ModelID:      opts.ModelID,
		Provider:     e.Provider.Name(),
		TestData:     opts.TestData,
		Timestamp:    e.Clock.Now().UTC().Format(timestampLayout),
		TotalSamples: len(records),
		Successful:   successful,
		Errors:       errorCount,
		Metrics: finetune.EvalMetrics{
			AvgKeywordAccuracy:     round4(avgAccuracy),
			AvgLatencySeconds:      round3(avgLatency),
			AvgResponseLengthChars: math.Round(avgResponseLen),
			TotalInputTokens:       totalInput,
			TotalOutputTokens:      totalOutput,
			TotalTokens:            totalInput + totalOutput,
		},
		Results: results,
	}

	e.printSummary(report, accuracies)
	return report, nil
}

func (e *Engine) printSummary(r *finetune.EvalReport, accuracies []float64) {
	fmt.Fprintln(e.Out)
	fmt.Fprintln(e.Out, strings.Repeat("=", 65))
	fmt.Fprintln(e.Out, "  EVALUATION SUMMARY")
	fmt.Fprintln(e.Out, strings.Repeat("=", 65))
	fmt.Fprintf(e.Out, "  Model:              %s\n", r.ModelID)
	fmt.Fprintf(e.Out, "  Samples:            %d total, %d successful, %d errors\n",
		r.TotalSamples, r.Successful, r.Errors)
	fmt.Fprintf(e.Out, "  Keyword Accuracy:   %.1f%%\n", r.Metrics.AvgKeywordAccuracy*100)
	fmt.Fprintf(e.Out, "  Avg Latency:        %.2fs\n", r.Metrics.AvgLatencySeconds)
	fmt.Fprintf(e.Out, "  Avg Response Len:   %.0f chars\n", r.Metrics.AvgResponseLengthChars)
	fmt.Fprintf(e.Out, "  Total Input Tokens: %s\n", withCommas(r.Metrics.TotalInputTokens))
	fmt.Fprintf(e.Out, "  Total Output Tokens:%s\n", withCommas(r.Metrics.TotalOutputTokens))
	fmt.Fprintf(e.Out, "  Total Tokens:       %s\n", withCommas(r.Metrics.TotalTokens))
	fmt.Fprintln(e.Out, strings.Repeat("=", 65))

	if len(accuracies) > 0 {
		fmt.Fprintln(e.Out)
		fmt.Fprintln(e.Out, "  Accuracy Distribution:")
		for _, b := range scoring.Distribution(accuracies) {
			fmt.Fprintf(e.Out, "    %8s: %3d %s\n", b.Label, b.Count, strings.Repeat("#", b.Count))
		}
	}
	fmt.Fprintln(e.Out)
}

// apiErrorString renders AWS API errors as "code: message" so report rows
// stay grep-able by error code.
func apiErrorString(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode() + ": " + apiErr.ErrorMessage()
	}
	return err.Error()
}

// truncate limits s to max runes, marking the cut with an ellipsis.
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max]) + "..."
}

// withCommas renders n with thousands separators.
func withCommas(n int) string {
	if n < 0 {
		return "-" + withCommas(-n)
	}
	s := strconv.Itoa(n)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

func round3(v float64) float64 { return math.Round(v*1000) / 1000 }

func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
