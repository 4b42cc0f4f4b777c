// Package source opens the NDJSON streams fed to an import, either from the
// local filesystem or from an S3 compatible bucket.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

var ErrNotFound = errors.New("source: object not found")

type Opener interface {
	Open(ctx context.Context, location string) (io.ReadCloser, error)
}

// Location is a parsed import location. Bucket is empty for local files.
type Location struct {
	Scheme string
	Bucket string
	Key    string
}

// ParseLocation accepts "s3://bucket/key", "file:///path" or a plain path.
func ParseLocation(raw string) (Location, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Location{}, fmt.Errorf("source: location is required")
	}
	switch {
	case strings.HasPrefix(raw, "s3://"):
		rest := strings.TrimPrefix(raw, "s3://")
		bucket, key, ok := strings.Cut(rest, "/")
		key = strings.TrimLeft(key, "/")
		if !ok || strings.TrimSpace(bucket) == "" || key == "" {
			return Location{}, fmt.Errorf("source: invalid s3 location %q, expected s3://bucket/key", raw)
		}
		return Location{Scheme: "s3", Bucket: bucket, Key: key}, nil
	case strings.HasPrefix(raw, "file://"):
		path := strings.TrimPrefix(raw, "file://")
		if path == "" {
			return Location{}, fmt.Errorf("source: invalid file location %q", raw)
		}
		return Location{Scheme: "file", Key: path}, nil
	case strings.Contains(raw, "://"):
		scheme, _, _ := strings.Cut(raw, "://")
		return Location{}, fmt.Errorf("source: unsupported scheme %q", scheme)
	default:
		return Location{Scheme: "file", Key: raw}, nil
	}
}

// Router dispatches a location to the opener registered for its scheme.
type Router struct {
	openers map[string]Opener
}

func NewRouter() *Router {
	return &Router{openers: map[string]Opener{}}
}

func (r *Router) Register(scheme string, opener Opener) *Router {
	if r.openers == nil {
		r.openers = map[string]Opener{}
	}
	r.openers[strings.ToLower(strings.TrimSpace(scheme))] = opener
	return r
}

func (r *Router) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	if r == nil {
		return nil, fmt.Errorf("source: router is nil")
	}
	parsed, err := ParseLocation(location)
	if err != nil {
		return nil, err
	}
	opener, ok := r.openers[parsed.Scheme]
	if !ok || opener == nil {
		return nil, fmt.Errorf("source: no opener registered for %q", parsed.Scheme)
	}
	if parsed.Scheme == "file" {
		return opener.Open(ctx, parsed.Key)
	}
	return opener.Open(ctx, parsed.Bucket+"/"+parsed.Key)
}
