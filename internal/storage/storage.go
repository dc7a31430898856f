// Package storage provides the object stores rehosted media is written to:
// S3 (or any S3-compatible endpoint) for deployments and a filesystem store
// for development.
package storage

import "context"

// ObjectStore persists media bytes under a key and returns the canonical
// public URL the bytes are served from.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType, cacheControl string) (string, error)
	PublicURL(key string) string
}
