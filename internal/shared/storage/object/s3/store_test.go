package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	objects map[string][]byte
	puts    []*s3.PutObjectInput
	getErr  error
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	if f.objects == nil {
		f.objects = map[string][]byte{}
	}
	f.objects[aws.ToString(in.Key)] = data
	f.puts = append(f.puts, in)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func TestApplyPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		prefix string
		key    string
		want   string
	}{
		{name: "no prefix", prefix: "", key: "owner/file.pdf", want: "owner/file.pdf"},
		{name: "simple prefix", prefix: "uploads", key: "owner/file.pdf", want: "uploads/owner/file.pdf"},
		{name: "prefix and key slashes", prefix: "/uploads/", key: "/owner/file.pdf", want: "uploads/owner/file.pdf"},
		{name: "empty key", prefix: "uploads", key: "", want: "uploads"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, applyPrefix(tt.prefix, tt.key))
		})
	}
}

func TestSaveUsesPrefixAndEncryption(t *testing.T) {
	fake := &fakeS3{}
	store := NewWithClient(fake, "resumes", "uploads/", "kms-key")

	saved, err := store.Save(context.Background(), 9, "cv.pdf", strings.NewReader("%PDF-1.7 data"))
	require.NoError(t, err)
	require.Len(t, fake.puts, 1)

	put := fake.puts[0]
	assert.Equal(t, "uploads/"+saved.Key, aws.ToString(put.Key))
	assert.Equal(t, s3types.ServerSideEncryptionAwsKms, put.ServerSideEncryption)
	assert.Equal(t, "kms-key", aws.ToString(put.SSEKMSKeyId))
	assert.Equal(t, int64(len("%PDF-1.7 data")), saved.Size)
	assert.Equal(t, "application/pdf", saved.MimeType)

	rc, err := store.Open(context.Background(), saved.Key)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7 data", string(data))
}

func TestSaveDefaultsToAES(t *testing.T) {
	fake := &fakeS3{}
	store := NewWithClient(fake, "resumes", "", "")
	_, err := store.Save(context.Background(), 1, "cv.docx", strings.NewReader("PK"))
	require.NoError(t, err)
	assert.Equal(t, s3types.ServerSideEncryptionAes256, fake.puts[0].ServerSideEncryption)
}

func TestOpenWrapsErrors(t *testing.T) {
	fake := &fakeS3{getErr: errors.New("throttled")}
	store := NewWithClient(fake, "resumes", "", "")
	_, err := store.Open(context.Background(), "k")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket=resumes")
}
