// Package storage persists downloaded payloads as uniquely named objects in a
// gocloud.dev blob bucket rooted at the configured storage directory.
package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"

	"github.com/dsorch/orchestrator/internal/clock"
	apperrors "github.com/dsorch/orchestrator/internal/errors"
)

// Kind is the shape of a persisted payload.
type Kind string

// Payload kinds.
const (
	KindJSON   Kind = "json"
	KindText   Kind = "text"
	KindBinary Kind = "binary"
)

// Extension returns the file extension used for the kind.
func (k Kind) Extension() string {
	switch k {
	case KindJSON:
		return ".json"
	case KindText:
		return ".txt"
	default:
		return ".bin"
	}
}

// ContentType returns the content type stored alongside objects of the kind.
func (k Kind) ContentType() string {
	switch k {
	case KindJSON:
		return "application/json"
	case KindText:
		return "text/plain; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}

// KindForMediaType classifies a response media type.
func KindForMediaType(mediaType string) Kind {
	mediaType = strings.ToLower(mediaType)
	switch {
	case mediaType == "application/json", strings.HasSuffix(mediaType, "+json"):
		return KindJSON
	case strings.HasPrefix(mediaType, "text/"):
		return KindText
	default:
		return KindBinary
	}
}

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// FileStore writes payloads under a local directory.
type FileStore struct {
	bucket *blob.Bucket
	dir    string
	clock  clock.Clock
}

// NewFileStore opens a store rooted at dir, creating the directory if absent.
func NewFileStore(dir string, clk clock.Clock) (*FileStore, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage directory: %w", err)
	}

	bucket, err := fileblob.OpenBucket(absDir, &fileblob.Options{
		CreateDir: true,
		// The extension records the kind, so no .attrs sidecar is written.
		Metadata: fileblob.MetadataDontWrite,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open storage bucket: %w", err)
	}

	return &FileStore{bucket: bucket, dir: absDir, clock: clk}, nil
}

// Dir returns the absolute storage directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// Save writes data under a generated name derived from prefix and returns the file path.
// Names follow <prefix>_<UTC timestamp>_<random token><extension>.
func (s *FileStore) Save(ctx context.Context, prefix string, kind Kind, data []byte) (string, error) {
	key := s.objectKey(prefix, kind)

	err := s.bucket.WriteAll(ctx, key, data, &blob.WriterOptions{ContentType: kind.ContentType()})
	if err != nil {
		return "", fmt.Errorf("%w: failed to write %s: %w", apperrors.ErrStorage, key, err)
	}

	return filepath.Join(s.dir, key), nil
}

// Close releases the underlying bucket.
func (s *FileStore) Close() error {
	return s.bucket.Close()
}

func (s *FileStore) objectKey(prefix string, kind Kind) string {
	prefix = strings.Trim(unsafeKeyChars.ReplaceAllString(prefix, "-"), "-")
	if prefix == "" {
		prefix = "payload"
	}
	return fmt.Sprintf(
		"%s_%s_%s%s",
		prefix,
		s.clock.Now().UTC().Format("20060102T150405.000Z"),
		clock.RandomToken(4),
		kind.Extension(),
	)
}
