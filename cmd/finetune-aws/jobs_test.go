package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	finetune "github.com/modelsmith/finetune-aws-go"
)

func TestNewJobsCmd(t *testing.T) {
	cmd := newJobsCmd()

	maxFlag := cmd.Flags().Lookup("max")
	require.NotNil(t, maxFlag, "max flag should exist")
	assert.Equal(t, "25", maxFlag.DefValue)

	formatFlag := cmd.Flags().Lookup("format")
	require.NotNil(t, formatFlag, "format flag should exist")
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestRunJobs_UnknownStatus(t *testing.T) {
	err := runJobs("Running", 25, "", "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown status: Running")
}

func TestOutputJobsResult_UnknownFormat(t *testing.T) {
	err := outputJobsResult(finetune.JobsResult{}, "csv")
	require.Error(t, err)
	assert.EqualError(t, err, "unknown format: csv")
}

func TestBaseModelID(t *testing.T) {
	tests := []struct {
		arn  string
		want string
	}{
		{"arn:aws:bedrock:us-east-1::foundation-model/amazon.nova-micro-v1:0", "amazon.nova-micro-v1:0"},
		{"amazon.titan-text-express-v1", "amazon.titan-text-express-v1"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, baseModelID(tt.arn))
	}
}
