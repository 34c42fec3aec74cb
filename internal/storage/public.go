package storage

import "context"

// PublicResolver serves files from a public base URL (CDN, static file server).
type PublicResolver struct {
	baseURL string
}

// NewPublicResolver creates a PublicResolver.
func NewPublicResolver(baseURL string) *PublicResolver {
	return &PublicResolver{baseURL: baseURL}
}

// ResolveURL implements URLResolver.
func (r *PublicResolver) ResolveURL(_ context.Context, key string) (string, error) {
	cleaned, err := CleanKey(key)
	if err != nil || cleaned == "" {
		return "", err
	}
	return JoinURL(r.baseURL, cleaned), nil
}

var _ URLResolver = (*PublicResolver)(nil)
