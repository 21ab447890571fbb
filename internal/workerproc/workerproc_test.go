package workerproc

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"recruit-backend/internal/applications"
	"recruit-backend/internal/queue"
)

type recordingProcessor struct {
	ids []string
	err error
}

func (p *recordingProcessor) ProcessRecompute(ctx context.Context, id string) error {
	p.ids = append(p.ids, id)
	return p.err
}

func encode(t *testing.T, msg queue.Message) string {
	t.Helper()
	b, err := queue.EncodeMessage(msg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return string(b)
}

func TestHandleMessageRunsRecompute(t *testing.T) {
	p := &recordingProcessor{}
	body := encode(t, queue.Message{ApplicationID: "app-1", RequestID: "req-1", Version: queue.MessageVersion})
	if err := HandleMessage(context.Background(), p, body); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if len(p.ids) != 1 || p.ids[0] != "app-1" {
		t.Fatalf("unexpected calls %v", p.ids)
	}
}

func TestHandleMessageUsesParsedMessageFromContext(t *testing.T) {
	p := &recordingProcessor{}
	ctx := WithParsedMessage(context.Background(), queue.Message{ApplicationID: "app-ctx"})
	if err := HandleMessage(ctx, p, "ignored"); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if len(p.ids) != 1 || p.ids[0] != "app-ctx" {
		t.Fatalf("unexpected calls %v", p.ids)
	}
}

func TestHandleMessageErrors(t *testing.T) {
	tests := []struct {
		name          string
		body          string
		procErr       error
		unrecoverable bool
	}{
		{name: "empty", body: "  ", unrecoverable: true},
		{name: "bad json", body: "{bad", unrecoverable: true},
		{name: "missing id", body: `{"requestId":"r"}`, unrecoverable: true},
		{name: "application gone", body: `{"applicationId":"a"}`, procErr: applications.ErrNotFound, unrecoverable: true},
		{name: "job gone", body: `{"applicationId":"a"}`, procErr: fmt.Errorf("%w: job-1", applications.ErrJobNotFound), unrecoverable: true},
		{name: "oracle down", body: `{"applicationId":"a"}`, procErr: errors.New("scoring pipeline failed"), unrecoverable: false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			err := HandleMessage(context.Background(), &recordingProcessor{err: tt.procErr}, tt.body)
			if err == nil {
				t.Fatalf("expected error")
			}
			if got := Unrecoverable(err); got != tt.unrecoverable {
				t.Fatalf("Unrecoverable(%v) = %v, want %v", err, got, tt.unrecoverable)
			}
		})
	}
}

func TestComputeMeta(t *testing.T) {
	if m := ComputeMeta(""); m.BodyLen != 0 || m.BodySHA != "" {
		t.Fatalf("unexpected meta for empty body: %+v", m)
	}
	if m := ComputeMeta("abc"); m.BodyLen != 3 || len(m.BodySHA) != 64 {
		t.Fatalf("unexpected meta: %+v", m)
	}
}
