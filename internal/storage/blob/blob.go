// Package blob stores receipt images. Images are opaque to the rest of the
// system: only their URL is attached to a receipt.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/mmynk/receiptsplit/internal/storage"
)

var (
	ErrUnsupportedType = errors.New("unsupported image type")
	ErrTooLarge        = errors.New("image too large")
	ErrInvalidKey      = errors.New("invalid blob key")
)

// allowedTypes are the image formats phones produce for receipt photos.
var allowedTypes = []string{"image/jpeg", "image/png", "image/webp", "image/heic", "image/heif"}

// Object describes a stored blob.
type Object struct {
	Key         string
	ContentType string
	Size        int64
	URL         string
}

// Store stores and retrieves blobs by key.
type Store interface {
	Put(ctx context.Context, key string, data []byte) (*Object, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// FSStore keeps blobs as files under a root directory and serves them
// below a public base URL.
type FSStore struct {
	root     string
	baseURL  string
	maxBytes int64
}

var _ Store = (*FSStore)(nil)

// NewFSStore creates the root directory if needed.
func NewFSStore(root, baseURL string, maxBytes int64) (*FSStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create blob directory: %w", err)
	}
	return &FSStore{
		root:     root,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		maxBytes: maxBytes,
	}, nil
}

// Put validates that data is a supported image and writes it under key.
// The file extension is chosen from the detected type.
func (s *FSStore) Put(ctx context.Context, key string, data []byte) (*Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrTooLarge, len(data), s.maxBytes)
	}

	mtype := mimetype.Detect(data)
	if !mimetype.EqualsAny(mtype.String(), allowedTypes...) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, mtype.String())
	}

	key = key + mtype.Extension()
	full, err := s.path(key)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return nil, fmt.Errorf("failed to create blob directory: %w", err)
	}
	if err := os.WriteFile(full, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write blob: %w", err)
	}

	return &Object{
		Key:         key,
		ContentType: mtype.String(),
		Size:        int64(len(data)),
		URL:         s.baseURL + "/" + key,
	}, nil
}

// Open returns a reader over the blob stored under key.
func (s *FSStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	full, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("blob %s: %w", key, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open blob: %w", err)
	}
	// Directories are key prefixes, not blobs.
	if info, err := f.Stat(); err != nil || !info.Mode().IsRegular() {
		f.Close()
		return nil, fmt.Errorf("blob %s: %w", key, storage.ErrNotFound)
	}
	return f, nil
}

// Delete removes the blob. Deleting a missing blob is not an error.
func (s *FSStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}

// KeyFromURL maps a URL produced by Put back to its key.
func (s *FSStore) KeyFromURL(url string) (string, bool) {
	prefix := s.baseURL + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	return strings.TrimPrefix(url, prefix), true
}

// Handler serves stored blobs read-only by exact key. Mount it at the base
// URL path with that prefix stripped. Anything that is not a stored blob,
// directories included, is a 404.
func (s *FSStore) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		key := strings.TrimPrefix(r.URL.Path, "/")
		rc, err := s.Open(r.Context(), key)
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, ErrInvalidKey) {
			http.NotFound(w, r)
			return
		}
		if err != nil {
			http.Error(w, "failed to read blob", http.StatusInternalServerError)
			return
		}
		defer rc.Close()
		w.Header().Set("X-Content-Type-Options", "nosniff")

		rs, ok := rc.(io.ReadSeeker)
		if !ok {
			w.Header().Set("Content-Type", "application/octet-stream")
			io.Copy(w, rc)
			return
		}
		if mtype, err := mimetype.DetectReader(rs); err == nil {
			w.Header().Set("Content-Type", mtype.String())
		}
		if _, err := rs.Seek(0, io.SeekStart); err != nil {
			http.Error(w, "failed to read blob", http.StatusInternalServerError)
			return
		}
		http.ServeContent(w, r, path.Base(key), time.Time{}, rs)
	})
}

func (s *FSStore) path(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || path.Clean(key) != key || strings.HasPrefix(key, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(s.root, filepath.FromSlash(key)), nil
}
