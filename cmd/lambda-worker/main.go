package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=amd64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-worker

import (
	"context"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"recruit-backend/internal/bootstrap"
	"recruit-backend/internal/shared/config"
	"recruit-backend/internal/shared/metrics"
	"recruit-backend/internal/shared/telemetry"
	"recruit-backend/internal/workerproc"
)

var (
	initOnce sync.Once
	initErr  error
	app      *bootstrap.App
)

func initApp() {
	cfg := config.Load()
	built, err := bootstrap.Build(cfg)
	if err != nil {
		initErr = err
		return
	}
	app = built
}

func handler(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	initOnce.Do(initApp)
	if initErr != nil {
		telemetry.Error("worker.bootstrap_failed", map[string]any{"error": initErr.Error()})
		failures := make([]events.SQSBatchItemFailure, 0, len(event.Records))
		for _, record := range event.Records {
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
		return events.SQSEventResponse{BatchItemFailures: failures}, initErr
	}
	return processBatch(ctx, app.Applications, event), nil
}

// processBatch reports only retryable failures; unrecoverable messages are
// acknowledged so SQS drops them.
func processBatch(ctx context.Context, processor workerproc.Processor, event events.SQSEvent) events.SQSEventResponse {
	failures := make([]events.SQSBatchItemFailure, 0)
	for _, record := range event.Records {
		metrics.IncRecomputeJobsReceived()
		err := workerproc.HandleMessage(ctx, processor, record.Body)
		switch {
		case err == nil:
			metrics.IncRecomputeJobsCompleted()
		case workerproc.Unrecoverable(err):
			telemetry.Error("worker.recompute.dropped", map[string]any{"sqs_message_id": record.MessageId, "error": err.Error()})
			metrics.IncRecomputeJobsDeletedUnrecoverable()
		default:
			telemetry.Error("worker.recompute.failed", map[string]any{"sqs_message_id": record.MessageId, "error": err.Error()})
			metrics.IncRecomputeJobsFailed()
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
	}
	return events.SQSEventResponse{BatchItemFailures: failures}
}

func main() {
	lambda.Start(handler)
}
