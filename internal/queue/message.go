package queue

import (
	"encoding/json"
	"time"
)

// MessageVersion is bumped when the payload shape changes.
const MessageVersion = 1

// Message asks a worker to execute one extraction run. StartedAt identifies the run;
// a worker that finds a different run on the document drops the job.
type Message struct {
	DocumentID  string    `json:"documentId"`
	StartedAt   time.Time `json:"startedAt"`
	UseOCR      bool      `json:"useOcr"`
	UseAdvanced bool      `json:"useAdvanced"`
	RequestID   string    `json:"requestId,omitempty"`
	EnqueuedAt  string    `json:"enqueuedAt"`
	Version     int       `json:"version"`
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
