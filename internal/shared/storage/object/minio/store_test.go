package minio

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidatesOptions(t *testing.T) {
	cases := []struct {
		name string
		opts Options
		msg  string
	}{
		{"missing endpoint", Options{AccessKey: "a", SecretKey: "s", Bucket: "b"}, "endpoint is required"},
		{"missing credentials", Options{Endpoint: "localhost:9000", Bucket: "b"}, "credentials are required"},
		{"missing bucket", Options{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s"}, "bucket is required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(context.Background(), tc.opts)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.msg)
		})
	}
}
