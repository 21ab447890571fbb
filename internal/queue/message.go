package queue

import (
	"context"
	"encoding/json"
)

// MessageVersion is the current payload version.
const MessageVersion = 1

// Message asks a worker to recompute one application.
type Message struct {
	ApplicationID string `json:"applicationId"`
	RequestID     string `json:"requestId"`
	EnqueuedAt    string `json:"enqueuedAt"`
	Version       int    `json:"version"`
}

// Client sends recompute messages to a queue backend.
type Client interface {
	Send(ctx context.Context, msg Message) error
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a Message.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}
