// Package queue carries pipeline task requests from the API to the workers,
// over SQS or an in-process channel.
package queue

import "context"

// Client enqueues a pipeline task. Delivery is at least once; consumers must
// tolerate running the same task twice.
type Client interface {
	Send(ctx context.Context, msg Message) error
}

var (
	_ Client = (*SQSClient)(nil)
	_ Client = (*LocalQueue)(nil)
)
