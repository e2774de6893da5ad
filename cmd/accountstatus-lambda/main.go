// Command accountstatus-lambda backs the getAccountStatus action of a
// Bedrock agent: it receives the agent's action invocation, looks the
// account up in DynamoDB, and returns the row in the action-group response
// envelope.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/modelsmith/finetune-aws-go/internal/actiongroup"
	"github.com/modelsmith/finetune-aws-go/internal/awsx"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := awsx.Load(context.Background(), "")
	if err != nil {
		logger.Error("loading AWS config failed", "error", err)
		os.Exit(1)
	}

	table := os.Getenv(actiongroup.TableEnvVar)
	if table == "" {
		table = actiongroup.DefaultTableName
	}

	handler := &actiongroup.Handler{
		Client: dynamodb.NewFromConfig(cfg),
		Table:  table,
		Logger: logger,
	}
	lambda.Start(handler.Handle)
}
