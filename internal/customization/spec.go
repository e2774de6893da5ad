package customization

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Default hyperparameter values.
const (
	DefaultEpochs       = 3
	DefaultBatchSize    = 8
	DefaultLearningRate = 0.0001
)

// SupportedBaseModels lists the base models this tooling knows support
// fine-tuning. The list is advisory: unknown models are submitted anyway
// and rejected by the API if truly unsupported.
var SupportedBaseModels = []string{
	"amazon.nova-micro-v1:0",
	"amazon.nova-lite-v1:0",
	"amazon.nova-pro-v1:0",
	"amazon.titan-text-express-v1",
	"anthropic.claude-3-haiku-20240307-v1:0",
	"meta.llama3-1-8b-instruct-v1:0",
	"meta.llama3-1-70b-instruct-v1:0",
	"cohere.command-r-v1:0",
}

// IsSupportedBaseModel reports whether the model id is on the known list.
func IsSupportedBaseModel(id string) bool {
	for _, m := range SupportedBaseModels {
		if m == id {
			return true
		}
	}
	return false
}

// Hyperparameters are the tunable training knobs. The customization API
// takes them string-encoded.
type Hyperparameters struct {
	Epochs       int
	BatchSize    int
	LearningRate float64
}

// StringMap renders the hyperparameters the way the customization API wants
// them. The learning rate uses shortest-form notation, so 0.0001 stays
// "0.0001" while 0.00005 becomes "5e-05".
func (h Hyperparameters) StringMap() map[string]string {
	return map[string]string{
		"epochCount":   strconv.Itoa(h.Epochs),
		"batchSize":    strconv.Itoa(h.BatchSize),
		"learningRate": strconv.FormatFloat(h.LearningRate, 'g', -1, 64),
	}
}

// JobSpec fully describes one fine-tuning job submission.
type JobSpec struct {
	BaseModel         string
	JobName           string
	CustomModelName   string
	RoleArn           string
	TrainingDataURI   string
	ValidationDataURI string
	OutputDataURI     string
	Hyperparameters   Hyperparameters
}

// ApplyDefaults fills in generated names: finetune-<6 hex chars> for the
// job and custom-<job name> for the resulting model.
func (s *JobSpec) ApplyDefaults() {
	if s.JobName == "" {
		s.JobName = "finetune-" + uuid.NewString()[:6]
	}
	if s.CustomModelName == "" {
		s.CustomModelName = "custom-" + s.JobName
	}
}

// KeyPrefix is the S3 key prefix for this job's uploaded data and output.
func (s *JobSpec) KeyPrefix() string {
	return "fine-tuning/" + s.JobName
}

// FileSpec is the YAML job spec accepted by `run --config`. Every field is
// optional; explicit command-line flags override file values.
type FileSpec struct {
	Model           string  `yaml:"model"`
	TrainingData    string  `yaml:"training_data"`
	ValidationData  string  `yaml:"validation_data"`
	Bucket          string  `yaml:"bucket"`
	JobName         string  `yaml:"job_name"`
	CustomModelName string  `yaml:"custom_model_name"`
	RoleArn         string  `yaml:"role_arn"`
	Epochs          int     `yaml:"epochs"`
	BatchSize       int     `yaml:"batch_size"`
	LearningRate    float64 `yaml:"learning_rate"`
	Region          string  `yaml:"region"`
}

// LoadFileSpec reads a YAML job spec from disk.
func LoadFileSpec(path string) (*FileSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var spec FileSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &spec, nil
}

// SupportedModelsHint renders the allowlist for warning and error text.
func SupportedModelsHint() string {
	return strings.Join(SupportedBaseModels, ", ")
}
