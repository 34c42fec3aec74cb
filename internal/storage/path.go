package storage

import (
	"net/url"
	"path"
	"strings"
)

// CleanKey normalizes an object key and rejects keys that escape the
// storage root or carry a scheme.
//
//	"profile_photos//a.png"  -> "profile_photos/a.png"
//	"/resumes/cv.pdf"        -> "resumes/cv.pdf"
//	"../secrets"             -> ErrInvalidKey
func CleanKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", nil
	}
	if strings.Contains(key, "://") || strings.ContainsAny(key, "\\\x00") {
		return "", ErrInvalidKey
	}

	cleaned := path.Clean("/" + key)
	for _, segment := range strings.Split(key, "/") {
		if segment == ".." {
			return "", ErrInvalidKey
		}
	}

	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}

// JoinURL appends an already cleaned key to base, escaping each segment.
func JoinURL(base, key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.TrimRight(base, "/") + "/" + strings.Join(segments, "/")
}
