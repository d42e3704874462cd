// Package storage resolves document locations to local files.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

var (
	ErrNotFound            = errors.New("document not found in storage")
	ErrUnsupportedLocation = errors.New("unsupported document location")
)

// Resolver turns a Document.Location into a readable local path. The cleanup
// func must always be called, also on error paths where it is non-nil.
type Resolver interface {
	Resolve(ctx context.Context, location string) (path string, cleanup func(), err error)
	// Stat checks that the location exists without fetching it.
	Stat(ctx context.Context, location string) error
}

func noop() {}

// LocalResolver serves plain paths and file:// URLs.
type LocalResolver struct{}

func (LocalResolver) Resolve(_ context.Context, location string) (string, func(), error) {
	path := strings.TrimPrefix(location, "file://")
	if err := statFile(path); err != nil {
		return "", noop, err
	}
	return path, noop, nil
}

func (LocalResolver) Stat(_ context.Context, location string) error {
	return statFile(strings.TrimPrefix(location, "file://"))
}

func statFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrNotFound, path)
	}
	return nil
}

// Router dispatches s3:// locations to S3 and everything else to Local.
type Router struct {
	Local Resolver
	S3    Resolver // nil when object storage is not configured
}

func NewRouter(s3 Resolver) *Router {
	return &Router{Local: LocalResolver{}, S3: s3}
}

func (r *Router) pick(location string) (Resolver, error) {
	if strings.HasPrefix(location, "s3://") {
		if r.S3 == nil {
			return nil, fmt.Errorf("%w: object storage is not configured for %q", ErrUnsupportedLocation, location)
		}
		return r.S3, nil
	}
	return r.Local, nil
}

func (r *Router) Resolve(ctx context.Context, location string) (string, func(), error) {
	res, err := r.pick(location)
	if err != nil {
		return "", noop, err
	}
	return res.Resolve(ctx, location)
}

func (r *Router) Stat(ctx context.Context, location string) error {
	res, err := r.pick(location)
	if err != nil {
		return err
	}
	return res.Stat(ctx, location)
}

// ParseS3 splits "s3://bucket/key/with/slashes".
func ParseS3(location string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(location, "s3://")
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrUnsupportedLocation, location)
	}
	bucket, key, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("%w: %q must be s3://bucket/key", ErrUnsupportedLocation, location)
	}
	return bucket, key, nil
}
