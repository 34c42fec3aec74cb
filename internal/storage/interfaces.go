// Package storage resolves stored profile files (photos, résumés) to URLs
// that clients can fetch. Uploading is handled elsewhere; this package only
// turns object keys into links.
package storage

import (
	"context"
	"errors"
)

// ErrInvalidKey indicates an object key that cannot be resolved safely.
var ErrInvalidKey = errors.New("invalid object key")

// URLResolver turns an object key into a URL.
// Implementations can return public URLs or time-limited signed URLs.
type URLResolver interface {
	// ResolveURL returns a URL for key. An empty key resolves to "" without error.
	ResolveURL(ctx context.Context, key string) (string, error)
}
