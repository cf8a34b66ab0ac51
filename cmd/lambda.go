package cmd

import (
	"context"

	"feed-processor/core/ingest"
	"feed-processor/core/logger"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// lambdaCmd starts the AWS Lambda runtime loop.
var lambdaCmd = &cobra.Command{
	Use:   "lambda",
	Short: "Serve scheduled runs as an AWS Lambda function",
	Long: `Starts the Lambda runtime. Configuration and parameters are read once at cold start.
Every invocation (usually an EventBridge schedule) runs all enabled feeds and returns
the results. The invocation fails when any feed failed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := newApp(ctx, appOptions{trigger: "schedule"})
		if err != nil {
			return err
		}
		defer a.Close()
		a.ensureBucket(ctx)

		lambda.Start(scheduledHandler(a))
		return nil
	},
}

func init() {
	RootCmd.AddCommand(lambdaCmd)
}

// scheduledResponse is returned to the Lambda runtime.
type scheduledResponse struct {
	Results []*ingest.RunResult `json:"results"`
}

// scheduledHandler runs every enabled feed of a once per invocation.
func scheduledHandler(a *app) func(context.Context, events.CloudWatchEvent) (*scheduledResponse, error) {
	return func(ctx context.Context, event events.CloudWatchEvent) (*scheduledResponse, error) {
		runID := event.ID
		if runID == "" {
			runID = uuid.NewString()
		}
		trigger := event.DetailType
		if trigger == "" {
			trigger = "invoke"
		}
		l := logger.WithRun(a.log, runID, trigger)

		l.Info("Scheduled run started", zap.String("source", event.Source), zap.Strings("resources", event.Resources))
		results, err := a.service.RunAll(ctx)
		if err != nil {
			l.Error("Scheduled run failed", zap.Error(err))
		}
		return &scheduledResponse{Results: results}, err
	}
}
