// Package finetune_aws provides the operational toolkit around Bedrock model
// customization: submitting fine-tuning jobs, monitoring them to completion,
// validating JSONL training data, and scoring tuned models against a test set.
//
// This root package defines the machine-readable documents the finetune-aws
// CLI emits (`--format json` output and `evaluate --output` report files).
// Command implementations live under cmd/finetune-aws; the Bedrock, S3, IAM
// and DynamoDB plumbing lives under internal/.
package finetune_aws

import "time"

// Customization job states as reported by the Bedrock control plane.
const (
	JobStatusInProgress = "InProgress"
	JobStatusCompleted  = "Completed"
	JobStatusFailed     = "Failed"
	JobStatusStopping   = "Stopping"
	JobStatusStopped    = "Stopped"
)

// SubmitResult is the JSON output from `finetune-aws run`.
type SubmitResult struct {
	Success           bool              `json:"success"`
	JobName           string            `json:"job_name"`
	JobArn            string            `json:"job_arn,omitempty"`
	CustomModelName   string            `json:"custom_model_name"`
	BaseModel         string            `json:"base_model"`
	Region            string            `json:"region,omitempty"`
	RoleArn           string            `json:"role_arn"`
	TrainingDataURI   string            `json:"training_data_uri"`
	ValidationDataURI string            `json:"validation_data_uri,omitempty"`
	OutputDataURI     string            `json:"output_data_uri"`
	HyperParameters   map[string]string `json:"hyper_parameters"`
	Errors            []string          `json:"errors,omitempty"`
}

// JobDetail is the JSON output from `finetune-aws monitor` and the full view
// of a single customization job. Optional fields are nil/empty until the
// Bedrock API reports them (metrics and the output model ARN only appear on
// completed jobs).
type JobDetail struct {
	JobName            string            `json:"job_name"`
	JobArn             string            `json:"job_arn"`
	Status             string            `json:"status"`
	BaseModelArn       string            `json:"base_model_arn,omitempty"`
	OutputModelName    string            `json:"output_model_name,omitempty"`
	OutputModelArn     string            `json:"output_model_arn,omitempty"`
	CreationTime       *time.Time        `json:"creation_time,omitempty"`
	LastModifiedTime   *time.Time        `json:"last_modified_time,omitempty"`
	EndTime            *time.Time        `json:"end_time,omitempty"`
	HyperParameters    map[string]string `json:"hyper_parameters,omitempty"`
	TrainingDataURI    string            `json:"training_data_uri,omitempty"`
	ValidationDataURIs []string          `json:"validation_data_uris,omitempty"`
	OutputDataURI      string            `json:"output_data_uri,omitempty"`
	TrainingLoss       *float64          `json:"training_loss,omitempty"`
	ValidationLosses   []float64         `json:"validation_losses,omitempty"`
	FailureMessage     string            `json:"failure_message,omitempty"`
}

// Terminal reports whether the job has reached a final state and will not
// transition again.
func (d *JobDetail) Terminal() bool {
	switch d.Status {
	case JobStatusCompleted, JobStatusFailed, JobStatusStopped:
		return true
	}
	return false
}

// JobsResult is the JSON output from `finetune-aws jobs`.
type JobsResult struct {
	Jobs []JobSummary `json:"jobs"`
}

// JobSummary is a single job in the jobs listing.
type JobSummary struct {
	JobName         string     `json:"job_name"`
	JobArn          string     `json:"job_arn"`
	Status          string     `json:"status"`
	BaseModelArn    string     `json:"base_model_arn,omitempty"`
	CustomModelName string     `json:"custom_model_name,omitempty"`
	CreationTime    *time.Time `json:"creation_time,omitempty"`
	EndTime         *time.Time `json:"end_time,omitempty"`
}

// DatasetResult is the JSON output from `finetune-aws validate` for one file.
type DatasetResult struct {
	File     string           `json:"file"`
	Success  bool             `json:"success"`
	Records  int              `json:"records"`
	Findings []DatasetFinding `json:"findings,omitempty"`
}

// DatasetFinding is a single problem found in a JSONL training file.
type DatasetFinding struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// EvalReport is the report document from `finetune-aws evaluate`, written
// verbatim by --output.
type EvalReport struct {
	ModelID      string         `json:"model_id"`
	Provider     string         `json:"provider,omitempty"`
	TestData     string         `json:"test_data"`
	Timestamp    string         `json:"timestamp"`
	TotalSamples int            `json:"total_samples"`
	Successful   int            `json:"successful"`
	Errors       int            `json:"errors"`
	Metrics      EvalMetrics    `json:"metrics"`
	Results      []SampleResult `json:"results"`
}

// EvalMetrics holds the aggregate metrics of an evaluation run.
type EvalMetrics struct {
	AvgKeywordAccuracy     float64 `json:"avg_keyword_accuracy"`
	AvgLatencySeconds      float64 `json:"avg_latency_seconds"`
	AvgResponseLengthChars float64 `json:"avg_response_length_chars"`
	TotalInputTokens       int     `json:"total_input_tokens"`
	TotalOutputTokens      int     `json:"total_output_tokens"`
	TotalTokens            int     `json:"total_tokens"`
}

// SampleResult is the outcome of one evaluated sample. Response is nil and
// Error is set when the model invocation failed; KeywordAccuracy is nil on
// failed samples so they never skew re-aggregation.
type SampleResult struct {
	SampleIndex     int      `json:"sample_index"`
	Prompt          string   `json:"prompt"`
	Expected        string   `json:"expected,omitempty"`
	Response        *string  `json:"response"`
	KeywordAccuracy *float64 `json:"keyword_accuracy,omitempty"`
	LatencySeconds  float64  `json:"latency_seconds"`
	InputTokens     int      `json:"input_tokens"`
	OutputTokens    int      `json:"output_tokens"`
	StopReason      string   `json:"stop_reason,omitempty"`
	Error           string   `json:"error,omitempty"`
}
