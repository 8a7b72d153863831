package storage

import (
	"context"
	"io"
)

// Service stores attachment objects in remote object storage. Keys are
// relative to the service's configured bucket and key prefix.
type Service interface {
	PutObject(ctx context.Context, key string, body io.Reader, contentType string) error
	DeletePrefix(ctx context.Context, prefix string) error
	ObjectURL(ctx context.Context, key string) (string, error)
}
