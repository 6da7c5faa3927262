package manifest

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Loader reads manifests from local files or S3.
type Loader struct {
	s3 *S3Source
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithS3 enables s3:// locations.
func WithS3(source *S3Source) LoaderOption {
	return func(l *Loader) {
		l.s3 = source
	}
}

// NewLoader creates a loader.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads and parses the manifest at location, a file path or an
// s3://bucket/key URL. The format follows the location's extension.
func (l *Loader) Load(ctx context.Context, location string) (*Manifest, error) {
	data, err := l.read(ctx, location)
	if err != nil {
		return nil, err
	}
	return Parse(data, FormatFromPath(location))
}

func (l *Loader) read(ctx context.Context, location string) ([]byte, error) {
	if strings.HasPrefix(location, S3Scheme) {
		if l.s3 == nil {
			return nil, fmt.Errorf("manifest: %s: s3 source not configured", location)
		}
		return l.s3.Fetch(ctx, location)
	}

	data, err := os.ReadFile(location)
	if err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	return data, nil
}

// LoadFile reads a manifest from the local filesystem.
func LoadFile(path string) (*Manifest, error) {
	return NewLoader().Load(context.Background(), path)
}
