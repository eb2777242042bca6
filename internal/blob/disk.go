package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxBytes is the upload limit when none is configured.
const DefaultMaxBytes int64 = 5 << 20

var (
	ErrNotImage    = errors.New("only image files allowed")
	ErrTooLarge    = errors.New("file too large")
	ErrInvalidName = errors.New("invalid blob name")
)

// Upload is one incoming file.
type Upload struct {
	Filename    string // client-supplied, only its extension is kept
	ContentType string
	Body        io.Reader
}

// Store holds uploaded images and hands back an opaque name for each.
type Store interface {
	Put(ctx context.Context, u Upload) (string, error)
	Delete(ctx context.Context, name string) error
}

// DiskStore keeps blobs as flat files in one directory.
type DiskStore struct {
	dir      string
	maxBytes int64
	now      func() time.Time
}

var _ Store = (*DiskStore)(nil)

// NewDiskStore creates dir if needed. maxBytes <= 0 means DefaultMaxBytes.
func NewDiskStore(dir string, maxBytes int64) (*DiskStore, error) {
	if dir == "" {
		return nil, errors.New("blob dir is empty")
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create blob dir: %w", err)
	}
	return &DiskStore{dir: dir, maxBytes: maxBytes, now: time.Now}, nil
}

func (s *DiskStore) Dir() string { return s.dir }

func (s *DiskStore) MaxBytes() int64 { return s.maxBytes }

// Put validates and stores u. The returned name is <unix-millis>-<uuid><ext>.
// Nothing is left on disk when Put fails.
func (s *DiskStore) Put(ctx context.Context, u Upload) (string, error) {
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(u.ContentType)), "image/") {
		return "", ErrNotImage
	}
	if u.Body == nil {
		return "", errors.New("upload body is nil")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", err
	}
	defer func() {
		// no-op once renamed
		_ = os.Remove(tmp.Name())
	}()

	n, err := io.Copy(tmp, io.LimitReader(u.Body, s.maxBytes+1))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", err
	}
	if n > s.maxBytes {
		return "", ErrTooLarge
	}

	name := fmt.Sprintf("%d-%s%s", s.now().UnixMilli(), uuid.NewString(), strings.ToLower(filepath.Ext(u.Filename)))
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return "", err
	}
	return name, nil
}

// Delete removes a stored blob. Missing blobs are not an error.
func (s *DiskStore) Delete(ctx context.Context, name string) error {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return ErrInvalidName
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
