package main

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-lambda-go/events"
)

type stubProcessor map[string]error

func (s stubProcessor) ProcessRecompute(ctx context.Context, id string) error {
	return s[id]
}

func TestProcessBatchReportsOnlyRetryableFailures(t *testing.T) {
	proc := stubProcessor{"app-2": errors.New("oracle unavailable")}
	event := events.SQSEvent{Records: []events.SQSMessage{
		{MessageId: "m1", Body: `{"applicationId":"app-1"}`},
		{MessageId: "m2", Body: `{"applicationId":"app-2"}`},
		{MessageId: "m3", Body: `{bad`},
	}}

	resp := processBatch(context.Background(), proc, event)

	if len(resp.BatchItemFailures) != 1 || resp.BatchItemFailures[0].ItemIdentifier != "m2" {
		t.Fatalf("unexpected failures: %+v", resp.BatchItemFailures)
	}
}
