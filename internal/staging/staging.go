// Package staging resolves training-data locations for fine-tuning jobs:
// S3 URIs pass through untouched, local JSONL files are validated and
// uploaded to S3.
package staging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/modelsmith/finetune-aws-go/internal/dataset"
)

// maxPrintedFindings caps how many validation findings are echoed before
// summarizing the rest.
const maxPrintedFindings = 5

// Uploader is the slice of the S3 upload manager the resolver needs.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

var _ Uploader = (*manager.Uploader)(nil)

// IsS3URI reports whether the path is an s3:// URI rather than a local file.
func IsS3URI(path string) bool {
	return strings.HasPrefix(path, "s3://")
}

// ParseS3URI splits an s3://bucket/key URI into bucket and key. The key may
// be empty.
func ParseS3URI(uri string) (bucket, key string, err error) {
	trimmed, ok := strings.CutPrefix(uri, "s3://")
	if !ok {
		return "", "", fmt.Errorf("not an S3 URI: %s", uri)
	}
	bucket, key, _ = strings.Cut(trimmed, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("S3 URI missing bucket: %s", uri)
	}
	return bucket, key, nil
}

// Resolver turns a training-data argument into an S3 URI, uploading local
// files under a key prefix. A Resolver without a Bucket can still resolve
// s3:// inputs.
type Resolver struct {
	Uploader Uploader
	Bucket   string
	// Out receives progress lines; defaults to os.Stdout.
	Out io.Writer
}

// Resolve returns the S3 URI for dataPath. An empty path resolves to an
// empty URI (validation data is optional). Local paths are validated as
// JSONL first and then uploaded to s3://<bucket>/<prefix>/<basename>.
func (r *Resolver) Resolve(ctx context.Context, dataPath, prefix string) (string, error) {
	if dataPath == "" {
		return "", nil
	}
	if IsS3URI(dataPath) {
		return dataPath, nil
	}

	if r.Bucket == "" {
		return "", fmt.Errorf(
			"--bucket is required when using a local file path (%s)\n  Provide --bucket <bucket-name> to upload local data to S3",
			dataPath)
	}

	report, err := dataset.Validate(dataPath)
	if err != nil {
		return "", err
	}
	r.printReport(report)
	if report.Records == 0 {
		return "", fmt.Errorf("no valid JSONL records found in %s", dataPath)
	}

	key := prefix + "/" + filepath.Base(dataPath)
	return r.upload(ctx, dataPath, key)
}

func (r *Resolver) upload(ctx context.Context, localPath, key string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	uri := fmt.Sprintf("s3://%s/%s", r.Bucket, key)
	fmt.Fprintf(r.out(), "Uploading %s -> %s ...\n", localPath, uri)

	if _, err := r.Uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(r.Bucket),
		Key:    aws.String(key),
		Body:   f,
	}); err != nil {
		return "", explainUploadError(err, r.Bucket)
	}

	fmt.Fprintf(r.out(), "Upload complete: %s\n", uri)
	return uri, nil
}

// printReport echoes the validation outcome the way operators expect to see
// it while a job is being prepared.
func (r *Resolver) printReport(report *dataset.Report) {
	w := r.out()
	if len(report.Findings) == 0 {
		fmt.Fprintf(w, "Validated %s: %d records, format OK.\n", report.Path, report.Records)
		return
	}

	fmt.Fprintf(w, "WARNING: Found %d issue(s) in %s:\n", len(report.Findings), report.Path)
	for i, finding := range report.Findings {
		if i == maxPrintedFindings {
			fmt.Fprintf(w, "  ... and %d more.\n", len(report.Findings)-maxPrintedFindings)
			break
		}
		fmt.Fprintf(w, "  Line %d: %s\n", finding.Line, finding.Message)
	}
}

func (r *Resolver) out() io.Writer {
	if r.Out != nil {
		return r.Out
	}
	return os.Stdout
}

// explainUploadError attaches operator guidance to the S3 error codes the
// upload path commonly hits.
func explainUploadError(err error, bucket string) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchBucket":
			return fmt.Errorf("bucket %q does not exist\n  Create it first: aws s3 mb s3://%s", bucket, bucket)
		case "AccessDenied":
			return fmt.Errorf("access denied to bucket %q\n  Check your IAM permissions for s3:PutObject", bucket)
		}
	}
	return fmt.Errorf("S3 upload failed: %w", err)
}
