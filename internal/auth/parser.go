package auth

import (
	"net/http"
	"strings"
)

// ParseBearer extracts the token from an Authorization header value.
func ParseBearer(header string) (string, error) {
	if header == "" {
		return "", ErrMissingToken
	}

	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, BearerScheme) {
		return "", ErrInvalidAuthorizationHeader
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrInvalidAuthorizationHeader
	}
	return token, nil
}

// BearerFromRequest extracts the bearer token from a request.
func BearerFromRequest(r *http.Request) (string, error) {
	return ParseBearer(r.Header.Get(HeaderAuthorization))
}
