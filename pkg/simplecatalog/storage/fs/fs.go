package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tendant/simple-catalog/pkg/simplecatalog"
)

// Backend is a filesystem implementation of the simplecatalog.BlobStore interface.
// Object keys map to slash-separated paths below BaseDir.
type Backend struct {
	baseDir string
}

// Config options for the filesystem backend
type Config struct {
	BaseDir string // Base directory for storing files
}

// New creates a new filesystem storage backend
func New(config Config) (*Backend, error) {
	if config.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}

	if err := os.MkdirAll(config.BaseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &Backend{baseDir: config.BaseDir}, nil
}

func (b *Backend) path(objectKey string) (string, error) {
	clean := path.Clean("/" + objectKey)
	if objectKey == "" || strings.Contains(objectKey, "..") || clean == "/" {
		return "", fmt.Errorf("invalid object key %q", objectKey)
	}
	return filepath.Join(b.baseDir, filepath.FromSlash(clean)), nil
}

// Exists reports whether a regular file is stored under objectKey
func (b *Backend) Exists(ctx context.Context, objectKey string) (bool, error) {
	filePath, err := b.path(objectKey)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("failed to get file info: %w", err)
	}
	return info.Mode().IsRegular(), nil
}

// GetObjectMeta retrieves metadata for an object in the filesystem
func (b *Backend) GetObjectMeta(ctx context.Context, objectKey string) (*simplecatalog.ObjectMeta, error) {
	filePath, err := b.path(objectKey)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) || (err == nil && info.IsDir()) {
		return nil, fmt.Errorf("%w: %s", simplecatalog.ErrObjectNotFound, objectKey)
	} else if err != nil {
		return nil, fmt.Errorf("failed to get file info: %w", err)
	}

	// Detect content type
	contentType := "application/octet-stream"
	if file, err := os.Open(filePath); err == nil {
		defer file.Close()
		buffer := make([]byte, 512)
		if n, err := file.Read(buffer); err == nil {
			contentType = http.DetectContentType(buffer[:n])
		}
	}

	return &simplecatalog.ObjectMeta{
		Key:         objectKey,
		Size:        info.Size(),
		ContentType: contentType,
		UpdatedAt:   info.ModTime(),
	}, nil
}

// UploadWithParams writes content to a temporary file and renames it into
// place, so readers never observe a partially written object.
func (b *Backend) UploadWithParams(ctx context.Context, reader io.Reader, params simplecatalog.UploadParams) error {
	filePath, err := b.path(params.ObjectKey)
	if err != nil {
		return err
	}

	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, reader); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp.Name(), filePath); err != nil {
		return fmt.Errorf("failed to move file into place: %w", err)
	}
	return nil
}

// Download downloads content directly from the filesystem
func (b *Backend) Download(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	filePath, err := b.path(objectKey)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(filePath)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", simplecatalog.ErrObjectNotFound, objectKey)
	} else if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

// List walks the directory holding prefix and returns every file whose key
// starts with prefix, ordered by key. Temporary upload files are skipped.
func (b *Backend) List(ctx context.Context, prefix string) ([]simplecatalog.ObjectMeta, error) {
	root := b.baseDir
	if dir := path.Dir(prefix + "x"); dir != "." {
		root = filepath.Join(b.baseDir, filepath.FromSlash(dir))
	}

	var out []simplecatalog.ObjectMeta
	err := filepath.WalkDir(root, func(p string, d iofs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipDir
			}
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".upload-") {
			return nil
		}
		rel, err := filepath.Rel(b.baseDir, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		out = append(out, simplecatalog.ObjectMeta{
			Key:       key,
			Size:      info.Size(),
			UpdatedAt: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", prefix, err)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Delete removes a file. The engine never deletes blobs; tools use this to
// clean up.
func (b *Backend) Delete(ctx context.Context, objectKey string) error {
	filePath, err := b.path(objectKey)
	if err != nil {
		return err
	}
	if err := os.Remove(filePath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", simplecatalog.ErrObjectNotFound, objectKey)
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

var _ simplecatalog.BlobStore = (*Backend)(nil)
