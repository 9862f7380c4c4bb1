package worker

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"resume-pipeline/internal/pipeline"
	"resume-pipeline/internal/queue"
)

// MessageMeta captures details useful for logging and diagnostics.
type MessageMeta struct {
	BodyLen int
	BodySHA string
}

// ComputeMeta returns the body length and SHA-256 hash.
func ComputeMeta(body string) MessageMeta {
	if body == "" {
		return MessageMeta{}
	}
	sum := sha256.Sum256([]byte(body))
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

func (e ErrDecode) Unwrap() error { return e.Err }

// ErrMissingResumeID indicates a message without a resume id.
type ErrMissingResumeID struct {
	Meta      MessageMeta
	RequestID string
}

func (e ErrMissingResumeID) Error() string { return "missing resume id" }

// ErrUnknownTask indicates a task name no worker handles.
type ErrUnknownTask struct {
	Meta      MessageMeta
	Task      string
	RequestID string
}

func (e ErrUnknownTask) Error() string { return "unknown task " + e.Task }

// ParseMessage validates and decodes the queue payload.
func ParseMessage(body string) (queue.Message, MessageMeta, error) {
	meta := ComputeMeta(body)
	if strings.TrimSpace(body) == "" {
		return queue.Message{}, meta, ErrEmptyBody{Meta: meta}
	}

	msg, err := queue.DecodeMessage([]byte(body))
	if err != nil {
		return queue.Message{}, meta, ErrDecode{Meta: meta, Err: err}
	}
	if err := validate(msg, meta); err != nil {
		return msg, meta, err
	}
	return msg, meta, nil
}

func validate(msg queue.Message, meta MessageMeta) error {
	if strings.TrimSpace(msg.ResumeID) == "" {
		return ErrMissingResumeID{Meta: meta, RequestID: msg.RequestID}
	}
	if _, ok := pipeline.ParseTask(msg.Task); !ok {
		return ErrUnknownTask{Meta: meta, Task: msg.Task, RequestID: msg.RequestID}
	}
	return nil
}
