// Package customization drives Bedrock model-customization jobs:
// submission, inspection, listing, and detection of the conventional
// fine-tuning IAM role.
package customization

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrock"
	"github.com/aws/aws-sdk-go-v2/service/bedrock/types"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/smithy-go"

	finetune "github.com/modelsmith/finetune-aws-go"
)

// API is the slice of the Bedrock control-plane client this package uses.
type API interface {
	CreateModelCustomizationJob(ctx context.Context, params *bedrock.CreateModelCustomizationJobInput, optFns ...func(*bedrock.Options)) (*bedrock.CreateModelCustomizationJobOutput, error)
	GetModelCustomizationJob(ctx context.Context, params *bedrock.GetModelCustomizationJobInput, optFns ...func(*bedrock.Options)) (*bedrock.GetModelCustomizationJobOutput, error)
	ListModelCustomizationJobs(ctx context.Context, params *bedrock.ListModelCustomizationJobsInput, optFns ...func(*bedrock.Options)) (*bedrock.ListModelCustomizationJobsOutput, error)
}

var _ API = (*bedrock.Client)(nil)

// RoleAPI is the slice of the IAM client used for role detection.
type RoleAPI interface {
	GetRole(ctx context.Context, params *iam.GetRoleInput, optFns ...func(*iam.Options)) (*iam.GetRoleOutput, error)
}

var _ RoleAPI = (*iam.Client)(nil)

// roleProbeOrder lists the conventional fine-tuning role names, most
// specific first.
var roleProbeOrder = []string{
	"BedrockFineTuningRole",
	"AmazonBedrockFineTuningRole",
	"bedrock-finetuning-role",
}

// DetectRole probes IAM for a conventional Bedrock fine-tuning role and
// returns the ARN of the first one that exists.
func DetectRole(ctx context.Context, client RoleAPI) (string, error) {
	for _, name := range roleProbeOrder {
		out, err := client.GetRole(ctx, &iam.GetRoleInput{RoleName: aws.String(name)})
		if err != nil {
			continue
		}
		if out.Role != nil && out.Role.Arn != nil {
			return *out.Role.Arn, nil
		}
	}
	return "", fmt.Errorf(
		"no IAM role found. Tried: %s\n"+
			"  Create a role with Bedrock and S3 permissions, then pass --role-arn <arn>.",
		strings.Join(roleProbeOrder, ", "))
}

// Submit creates the model-customization job and returns the job ARN.
func Submit(ctx context.Context, client API, spec JobSpec) (string, error) {
	input := &bedrock.CreateModelCustomizationJobInput{
		JobName:             aws.String(spec.JobName),
		CustomModelName:     aws.String(spec.CustomModelName),
		RoleArn:             aws.String(spec.RoleArn),
		BaseModelIdentifier: aws.String(spec.BaseModel),
		CustomizationType:   types.CustomizationTypeFineTuning,
		HyperParameters:     spec.Hyperparameters.StringMap(),
		TrainingDataConfig:  &types.TrainingDataConfig{S3Uri: aws.String(spec.TrainingDataURI)},
		OutputDataConfig:    &types.OutputDataConfig{S3Uri: aws.String(spec.OutputDataURI)},
	}
	if spec.ValidationDataURI != "" {
		input.ValidationDataConfig = &types.ValidationDataConfig{
			Validators: []types.Validator{{S3Uri: aws.String(spec.ValidationDataURI)}},
		}
	}

	out, err := client.CreateModelCustomizationJob(ctx, input)
	if err != nil {
		return "", explainSubmitError(err)
	}
	return aws.ToString(out.JobArn), nil
}

// explainSubmitError augments the common submission failures with a hint
// about the likely fix.
func explainSubmitError(err error) error {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	msg := apiErr.ErrorMessage()

	switch apiErr.ErrorCode() {
	case "ValidationException":
		hint := ""
		lower := strings.ToLower(msg)
		switch {
		case strings.Contains(lower, "model"):
			hint = fmt.Sprintf("\n  The base model may not support fine-tuning in this region.\n  Supported models: %s", SupportedModelsHint())
		case strings.Contains(lower, "data"), strings.Contains(lower, "format"):
			hint = "\n  Check your training data format.\n  Expected JSONL with 'prompt'/'completion' or 'messages' fields."
		}
		return fmt.Errorf("validation failed: %s%s", msg, hint)
	case "ResourceNotFoundException":
		return fmt.Errorf("resource not found: %s\n  Verify the S3 bucket and data paths exist.", msg)
	case "AccessDeniedException":
		return fmt.Errorf("access denied: %s\n  Ensure the role has bedrock:CreateModelCustomizationJob permission\n  and a trust policy allowing bedrock.amazonaws.com to assume it.", msg)
	case "ServiceQuotaExceededException":
		return fmt.Errorf("quota exceeded: %s\n  You may have hit the concurrent fine-tuning job limit.\n  Wait for running jobs to finish or request a quota increase.", msg)
	case "ThrottlingException", "TooManyRequestsException":
		return fmt.Errorf("throttled: %s\n  Wait a moment and try again.", msg)
	}
	return err
}

// Get fetches a job by name or ARN and flattens the response into a
// JobDetail document.
func Get(ctx context.Context, client API, jobID string) (*finetune.JobDetail, error) {
	out, err := client.GetModelCustomizationJob(ctx, &bedrock.GetModelCustomizationJobInput{
		JobIdentifier: aws.String(jobID),
	})
	if err != nil {
		return nil, explainGetError(err, jobID)
	}

	detail := &finetune.JobDetail{
		JobName:          aws.ToString(out.JobName),
		JobArn:           aws.ToString(out.JobArn),
		Status:           string(out.Status),
		BaseModelArn:     aws.ToString(out.BaseModelArn),
		OutputModelName:  aws.ToString(out.OutputModelName),
		OutputModelArn:   aws.ToString(out.OutputModelArn),
		CreationTime:     out.CreationTime,
		LastModifiedTime: out.LastModifiedTime,
		EndTime:          out.EndTime,
		HyperParameters:  out.HyperParameters,
		FailureMessage:   aws.ToString(out.FailureMessage),
	}
	if out.TrainingDataConfig != nil {
		detail.TrainingDataURI = aws.ToString(out.TrainingDataConfig.S3Uri)
	}
	if out.ValidationDataConfig != nil {
		for _, v := range out.ValidationDataConfig.Validators {
			detail.ValidationDataURIs = append(detail.ValidationDataURIs, aws.ToString(v.S3Uri))
		}
	}
	if out.OutputDataConfig != nil {
		detail.OutputDataURI = aws.ToString(out.OutputDataConfig.S3Uri)
	}
	if out.TrainingMetrics != nil && out.TrainingMetrics.TrainingLoss != nil {
		loss := float64(*out.TrainingMetrics.TrainingLoss)
		detail.TrainingLoss = &loss
	}
	for _, m := range out.ValidationMetrics {
		if m.ValidationLoss != nil {
			detail.ValidationLosses = append(detail.ValidationLosses, float64(*m.ValidationLoss))
		}
	}
	return detail, nil
}

func explainGetError(err error, jobID string) error {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	switch apiErr.ErrorCode() {
	case "ResourceNotFoundException":
		return fmt.Errorf("job %q not found\n  Check the job name, or pass the full job ARN.\n  List all jobs: finetune-aws jobs", jobID)
	case "AccessDeniedException":
		return errors.New("access denied. Check your IAM permissions for bedrock:GetModelCustomizationJob")
	}
	return fmt.Errorf("%s: %s", apiErr.ErrorCode(), apiErr.ErrorMessage())
}

// List returns customization jobs newest first. A non-empty status keeps
// only jobs in that state; max caps the result when positive.
func List(ctx context.Context, client API, status string, max int32) ([]finetune.JobSummary, error) {
	input := &bedrock.ListModelCustomizationJobsInput{}
	if max > 0 {
		input.MaxResults = aws.Int32(max)
	}

	var jobs []finetune.JobSummary
	paginator := bedrock.NewListModelCustomizationJobsPaginator(client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			var apiErr smithy.APIError
			if errors.As(err, &apiErr) && apiErr.ErrorCode() == "AccessDeniedException" {
				return nil, errors.New("access denied. Check your IAM permissions for bedrock:ListModelCustomizationJobs")
			}
			return nil, err
		}
		for _, s := range page.ModelCustomizationJobSummaries {
			if status != "" && string(s.Status) != status {
				continue
			}
			jobs = append(jobs, finetune.JobSummary{
				JobName:         aws.ToString(s.JobName),
				JobArn:          aws.ToString(s.JobArn),
				Status:          string(s.Status),
				BaseModelArn:    aws.ToString(s.BaseModelArn),
				CustomModelName: aws.ToString(s.CustomModelName),
				CreationTime:    s.CreationTime,
				EndTime:         s.EndTime,
			})
		}
		if max > 0 && len(jobs) >= int(max) {
			jobs = jobs[:max]
			break
		}
	}

	sort.SliceStable(jobs, func(i, j int) bool {
		ti, tj := jobs[i].CreationTime, jobs[j].CreationTime
		if ti == nil {
			return false
		}
		if tj == nil {
			return true
		}
		return ti.After(*tj)
	})
	return jobs, nil
}
