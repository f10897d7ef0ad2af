// Package blob stores the bytes of uploaded files.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
)

// ErrNotFound is returned when the named object does not exist.
var ErrNotFound = errors.New("blob not found")

// Storage saves and retrieves uploaded bytes by storage name.
type Storage interface {
	Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	// Localize returns a filesystem path holding the bytes. cleanup must be
	// called once the path is no longer needed.
	Localize(ctx context.Context, name string) (path string, cleanup func(), err error)
	Delete(ctx context.Context, name string) error
}

// LocalStorage keeps uploads in a directory.
type LocalStorage struct {
	dir string
}

var _ Storage = (*LocalStorage)(nil)

// NewLocalStorage creates dir if needed.
func NewLocalStorage(dir string) (*LocalStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir %s: %w", dir, err)
	}
	return &LocalStorage{dir: dir}, nil
}

func (s *LocalStorage) path(name string) (string, error) {
	clean := filepath.Base(name)
	if clean != name || strings.HasPrefix(clean, ".") {
		return "", fmt.Errorf("invalid storage name %q", name)
	}
	return filepath.Join(s.dir, clean), nil
}

func (s *LocalStorage) Save(_ context.Context, name string, r io.Reader, _ int64, _ string) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}
	f, err := os.Create(p)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", p, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(p)
		return fmt.Errorf("failed to write %s: %w", p, err)
	}
	return f.Close()
}

func (s *LocalStorage) Open(_ context.Context, name string) (io.ReadCloser, error) {
	p, err := s.path(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return f, err
}

func (s *LocalStorage) Localize(_ context.Context, name string) (string, func(), error) {
	p, err := s.path(name)
	if err != nil {
		return "", nil, err
	}
	return p, func() {}, nil
}

func (s *LocalStorage) Delete(_ context.Context, name string) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", p, err)
	}
	return nil
}

// MinIOStorage keeps uploads as objects in a bucket.
type MinIOStorage struct {
	client *minio.Client
	bucket string
	tmpDir string
}

var _ Storage = (*MinIOStorage)(nil)

// NewMinIOStorage stores objects in bucket; Localize downloads into tmpDir.
func NewMinIOStorage(client *minio.Client, bucket, tmpDir string) *MinIOStorage {
	return &MinIOStorage{client: client, bucket: bucket, tmpDir: tmpDir}
}

func (s *MinIOStorage) Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, name, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("failed to upload %s to MinIO: %w", name, err)
	}
	return nil
}

func (s *MinIOStorage) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s from MinIO: %w", name, err)
	}
	// GetObject is lazy; Stat surfaces a missing key.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to stat %s in MinIO: %w", name, err)
	}
	return obj, nil
}

func (s *MinIOStorage) Localize(ctx context.Context, name string) (string, func(), error) {
	tmp, err := os.CreateTemp(s.tmpDir, "extract-*"+filepath.Ext(name))
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmp.Close()
	cleanup := func() { os.Remove(tmp.Name()) }

	if err := s.client.FGetObject(ctx, s.bucket, name, tmp.Name(), minio.GetObjectOptions{}); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to download %s from MinIO: %w", name, err)
	}
	return tmp.Name(), cleanup, nil
}

func (s *MinIOStorage) Delete(ctx context.Context, name string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, name, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete %s from MinIO: %w", name, err)
	}
	return nil
}
