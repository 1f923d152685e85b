package blobstore

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Store saves uploaded image files and returns a durable locator URL
// for each stored file.
type Store interface {
	Save(originalName string, r io.Reader) (string, error)
}

// Only these image formats are accepted for upload.
var allowedFormats = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// DiskStore is a Store implementation backed by a local directory.
// Stored files are expected to be served statically under baseURL.
type DiskStore struct {
	dir     string
	baseURL string
}

// NewDiskStore creates a DiskStore rooted at dir, creating the
// directory if it does not exist.
func NewDiskStore(dir, baseURL string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory %s: %w", dir, err)
	}
	return &DiskStore{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// Save writes the file under a unique, time-prefixed name and returns
// its locator URL. Uploads with an extension other than jpg, jpeg or
// png are rejected.
func (s *DiskStore) Save(originalName string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if !allowedFormats[ext] {
		return "", fmt.Errorf("unsupported image format %q: only jpg, jpeg and png are allowed", strings.TrimPrefix(ext, "."))
	}

	// Time prefix plus a short random component so that two uploads of
	// the same file in the same millisecond cannot collide.
	name := fmt.Sprintf("%d-%s-%s", time.Now().UnixMilli(), uuid.New().String()[:8], filepath.Base(originalName))
	path := filepath.Join(s.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create file %s: %w", path, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write file %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close file %s: %w", path, err)
	}

	return s.baseURL + "/" + name, nil
}
