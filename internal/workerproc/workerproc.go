package workerproc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"docextract-backend/internal/pipeline"
	"docextract-backend/internal/queue"
	"docextract-backend/internal/shared/metrics"
	"docextract-backend/internal/shared/telemetry"
)

// MessageMeta captures details useful for logging and diagnostics.
type MessageMeta struct {
	BodyLen int
	BodySHA string
}

// ComputeMeta returns the body length and SHA-256 hash.
func ComputeMeta(body []byte) MessageMeta {
	if len(body) == 0 {
		return MessageMeta{}
	}
	sum := sha256.Sum256(body)
	return MessageMeta{BodyLen: len(body), BodySHA: hex.EncodeToString(sum[:])}
}

// ErrEmptyBody indicates an empty queue payload.
type ErrEmptyBody struct {
	Meta MessageMeta
}

func (e ErrEmptyBody) Error() string { return "empty message body" }

// ErrDecode indicates a JSON decode failure.
type ErrDecode struct {
	Meta MessageMeta
	Err  error
}

func (e ErrDecode) Error() string {
	if e.Err == nil {
		return "decode message"
	}
	return "decode message: " + e.Err.Error()
}

// ErrMissingDocumentID indicates a message without a document id.
type ErrMissingDocumentID struct {
	Meta      MessageMeta
	RequestID string
}

func (e ErrMissingDocumentID) Error() string { return "missing document id" }

// ErrMissingRun indicates a message that does not name the run it belongs to.
type ErrMissingRun struct {
	Meta       MessageMeta
	DocumentID string
	RequestID  string
}

func (e ErrMissingRun) Error() string { return "missing run start time" }

// ErrProcess indicates processing failed after successful parsing.
type ErrProcess struct {
	DocumentID string
	RequestID  string
	Err        error
}

func (e ErrProcess) Error() string {
	if e.Err == nil {
		return "process extraction"
	}
	return "process extraction: " + e.Err.Error()
}

func (e ErrProcess) Unwrap() error { return e.Err }

// Processor executes one queued extraction run. *pipeline.Controller satisfies it.
type Processor interface {
	Process(ctx context.Context, msg queue.Message) error
}

// ParseMessage validates and decodes the queue payload.
func ParseMessage(body []byte) (queue.Message, MessageMeta, error) {
	meta := ComputeMeta(body)
	if strings.TrimSpace(string(body)) == "" {
		return queue.Message{}, meta, ErrEmptyBody{Meta: meta}
	}

	msg, err := queue.DecodeMessage(body)
	if err != nil {
		return queue.Message{}, meta, ErrDecode{Meta: meta, Err: err}
	}
	if strings.TrimSpace(msg.DocumentID) == "" {
		return msg, meta, ErrMissingDocumentID{Meta: meta, RequestID: msg.RequestID}
	}
	if msg.StartedAt.IsZero() {
		return msg, meta, ErrMissingRun{Meta: meta, DocumentID: msg.DocumentID, RequestID: msg.RequestID}
	}
	return msg, meta, nil
}

// HandleMessage parses, validates, and processes a message payload.
func HandleMessage(ctx context.Context, processor Processor, body []byte) error {
	if processor == nil {
		return errors.New("extraction processor not configured")
	}
	msg, _, err := ParseMessage(body)
	if err != nil {
		return err
	}
	ctx = pipeline.WithRequestID(ctx, msg.RequestID)
	if err := processor.Process(ctx, msg); err != nil {
		return ErrProcess{DocumentID: msg.DocumentID, RequestID: msg.RequestID, Err: err}
	}
	return nil
}

// Handler adapts a Processor to a queue backend. Malformed jobs are rejected. Parsed jobs
// are acked once processed, including failed runs: the failure is already recorded on
// the document, and a redelivery would find the run finished. A job that never started
// because the worker is shutting down goes back on the queue.
func Handler(processor Processor) queue.Handler {
	return func(ctx context.Context, body []byte) queue.Disposition {
		metrics.IncJobReceived()
		if ctx.Err() != nil {
			return queue.Requeue
		}

		err := HandleMessage(ctx, processor, body)
		if err == nil {
			return queue.Ack
		}

		meta := ComputeMeta(body)
		fields := map[string]any{
			"body_len":    meta.BodyLen,
			"body_sha256": meta.BodySHA,
			"error":       err.Error(),
		}
		var procErr ErrProcess
		if errors.As(err, &procErr) {
			fields["document_id"] = procErr.DocumentID
			if procErr.RequestID != "" {
				fields["request_id"] = procErr.RequestID
			}
			if errors.Is(err, pipeline.ErrSuperseded) {
				telemetry.Info("worker.extraction.superseded", fields)
				return queue.Ack
			}
			metrics.IncJobFailed()
			telemetry.Error("worker.extraction.failed", fields)
			return queue.Ack
		}

		metrics.IncJobFailed()
		telemetry.Error("worker.extraction.invalid_message", fields)
		return queue.Reject
	}
}
