package object

import (
	"errors"
	"net/url"
	"strings"
)

const (
	SchemeLocal = "local"
	SchemeS3    = "s3"
	SchemeGCS   = "gs"
	SchemeHTTP  = "http"
	SchemeHTTPS = "https"
)

var (
	// ErrInvalidURL is returned when a cv URL cannot be parsed or uses an unknown scheme.
	ErrInvalidURL = errors.New("invalid object url")
	// ErrNotFound is returned by stores when the addressed object does not exist.
	ErrNotFound = errors.New("object not found")
)

// Location is a parsed cv URL.
type Location struct {
	Scheme string
	Bucket string
	Key    string
	Raw    string
}

// ParseURL splits raw into scheme, bucket and key.
// local://<key> has no bucket; http(s) URLs keep the full URL in Raw.
func ParseURL(raw string) (Location, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Location{}, ErrInvalidURL
	}
	u, err := url.Parse(raw)
	if err != nil {
		return Location{}, ErrInvalidURL
	}
	scheme := strings.ToLower(u.Scheme)
	switch scheme {
	case SchemeLocal:
		key := strings.TrimLeft(strings.TrimPrefix(raw[len(u.Scheme):], "://"), "/")
		if key == "" {
			return Location{}, ErrInvalidURL
		}
		return Location{Scheme: scheme, Key: key, Raw: raw}, nil
	case SchemeS3, SchemeGCS:
		key := strings.TrimLeft(u.Path, "/")
		if u.Host == "" || key == "" {
			return Location{}, ErrInvalidURL
		}
		return Location{Scheme: scheme, Bucket: u.Host, Key: key, Raw: raw}, nil
	case SchemeHTTP, SchemeHTTPS:
		if u.Host == "" {
			return Location{}, ErrInvalidURL
		}
		return Location{Scheme: scheme, Bucket: u.Host, Key: strings.TrimLeft(u.Path, "/"), Raw: raw}, nil
	default:
		return Location{}, ErrInvalidURL
	}
}

// BuildURL formats a stored object address.
func BuildURL(scheme, bucket, key string) string {
	key = strings.TrimLeft(key, "/")
	if scheme == SchemeLocal {
		return SchemeLocal + "://" + key
	}
	return scheme + "://" + bucket + "/" + key
}

// ApplyPrefix joins a store prefix and key with a single slash.
func ApplyPrefix(prefix, key string) string {
	cleanPrefix := strings.Trim(prefix, "/")
	cleanKey := strings.TrimLeft(key, "/")
	if cleanPrefix == "" {
		return cleanKey
	}
	if cleanKey == "" {
		return cleanPrefix
	}
	return cleanPrefix + "/" + cleanKey
}

// StripPrefix is the inverse of ApplyPrefix.
func StripPrefix(prefix, objectKey string) string {
	cleanPrefix := strings.Trim(prefix, "/")
	if cleanPrefix == "" {
		return strings.TrimLeft(objectKey, "/")
	}
	return strings.TrimLeft(strings.TrimPrefix(strings.TrimLeft(objectKey, "/"), cleanPrefix), "/")
}
