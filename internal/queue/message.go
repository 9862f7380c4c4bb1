package queue

import (
	"encoding/json"
	"time"
)

// MessageVersion is the current payload version.
const MessageVersion = 1

// Task names accepted on the queue.
const (
	TaskProcess = "process"
	TaskParse   = "parse"
	TaskAnalyze = "analyze"
)

// Message is the payload consumed by pipeline workers.
type Message struct {
	Task       string `json:"task"`
	ResumeID   string `json:"resumeId"`
	RequestID  string `json:"requestId,omitempty"`
	EnqueuedAt string `json:"enqueuedAt"`
	Version    int    `json:"version"`
}

// NewMessage builds a message stamped with the current time.
func NewMessage(task, resumeID, requestID string) Message {
	return Message{
		Task:       task,
		ResumeID:   resumeID,
		RequestID:  requestID,
		EnqueuedAt: time.Now().UTC().Format(time.RFC3339),
		Version:    MessageVersion,
	}
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a Message. A missing task means process.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	if msg.Task == "" {
		msg.Task = TaskProcess
	}
	return msg, nil
}
