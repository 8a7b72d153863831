package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestS3(t *testing.T, opts S3Options) *S3Service {
	t.Helper()
	client := s3.New(s3.Options{
		Region:       "us-east-1",
		Credentials:  credentials.NewStaticCredentialsProvider("test-key", "test-secret", ""),
		BaseEndpoint: aws.String("http://127.0.0.1:9000"),
		UsePathStyle: true,
	})
	svc, err := NewS3Service(client, opts)
	require.NoError(t, err)
	return svc
}

func TestJoinKey(t *testing.T) {
	assert.Equal(t, "avatars/1/a.jpg", joinKey("", "avatars/1/a.jpg"))
	assert.Equal(t, "tweeter/avatars/1/a.jpg", joinKey("/tweeter/", "/avatars/1/a.jpg"))
	assert.Equal(t, "tweeter", joinKey("tweeter", ""))
}

func TestNewS3Service_RequiresBucket(t *testing.T) {
	_, err := NewS3Service(s3.New(s3.Options{Region: "us-east-1"}), S3Options{})
	require.Error(t, err)
}

func TestObjectURL_PublicBase(t *testing.T) {
	svc := newTestS3(t, S3Options{Bucket: "media", KeyPrefix: "tweeter", PublicBaseURL: "https://cdn.example.com/"})

	url, err := svc.ObjectURL(context.Background(), "avatars/1/x/thumb.jpg")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/tweeter/avatars/1/x/thumb.jpg", url)
}

func TestObjectURL_Presigned(t *testing.T) {
	svc := newTestS3(t, S3Options{Bucket: "media", KeyPrefix: "tweeter", URLExpiry: 10 * time.Minute})

	url, err := svc.ObjectURL(context.Background(), "avatars/1/x/thumb.jpg")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "http://127.0.0.1:9000/media/tweeter/avatars/1/x/thumb.jpg?"), url)
	assert.Contains(t, url, "X-Amz-Expires=600")
}

func TestDeletePrefix_RequiresPrefix(t *testing.T) {
	svc := newTestS3(t, S3Options{Bucket: "media"})

	require.Error(t, svc.DeletePrefix(context.Background(), " / "))
}
