package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/weightandsee/core/internal/domain/entities"
	"github.com/weightandsee/core/internal/ports"
)

// DocumentRepositoryImpl implements the DocumentRepository interface on a
// single JSON file.
type DocumentRepositoryImpl struct {
	path string

	mu   sync.Mutex
	last []byte
}

// NewDocumentRepository creates a new file-backed document repository
func NewDocumentRepository(path string) *DocumentRepositoryImpl {
	return &DocumentRepositoryImpl{path: path}
}

var _ ports.DocumentRepository = (*DocumentRepositoryImpl)(nil)

func (r *DocumentRepositoryImpl) Path() string {
	return r.path
}

func (r *DocumentRepositoryImpl) Load(ctx context.Context) (*entities.Document, ports.DecodeInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, ports.DecodeInfo{}, err
	}

	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, ports.DecodeInfo{}, fmt.Errorf("read document: %w", err)
	}

	r.mu.Lock()
	r.last = data
	r.mu.Unlock()

	return Decode(data)
}

func (r *DocumentRepositoryImpl) Save(ctx context.Context, doc *entities.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := Encode(doc)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := writeFileAtomic(r.path, data); err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	r.last = data
	return nil
}

// Remove deletes the backing file. A missing file is not an error.
func (r *DocumentRepositoryImpl) Remove(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.Remove(r.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove document: %w", err)
	}
	r.last = nil
	return nil
}

// Changed reports whether the file differs from what this repository last
// read or wrote.
func (r *DocumentRepositoryImpl) Changed(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	data, err := os.ReadFile(r.path)

	r.mu.Lock()
	defer r.mu.Unlock()

	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return r.last != nil, nil
		}
		return false, fmt.Errorf("read document: %w", err)
	}
	return !bytes.Equal(data, r.last), nil
}

func (r *DocumentRepositoryImpl) ReadFrom(ctx context.Context, source string) (*entities.Document, ports.DecodeInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, ports.DecodeInfo{}, err
	}

	path, err := ResolvePath(source)
	if err != nil {
		return nil, ports.DecodeInfo{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ports.DecodeInfo{}, fmt.Errorf("read %s: %w", path, err)
	}
	return Decode(data)
}

func (r *DocumentRepositoryImpl) WriteTo(ctx context.Context, target string, doc *entities.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := ResolvePath(target)
	if err != nil {
		return err
	}

	data, err := Encode(doc)
	if err != nil {
		return err
	}

	if err := writeFileAtomic(path, data); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ResolvePath accepts a file system path or a file:// URL.
func ResolvePath(location string) (string, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return "", errors.New("empty path")
	}
	if !strings.HasPrefix(location, "file:") {
		return filepath.Clean(location), nil
	}

	u, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("parse file url: %w", err)
	}
	if u.Host != "" && u.Host != "localhost" {
		return "", fmt.Errorf("unsupported file url host %q", u.Host)
	}
	path := u.Path
	if path == "" {
		path = u.Opaque
	}
	if path == "" {
		return "", errors.New("file url has no path")
	}
	return filepath.FromSlash(path), nil
}

// writeFileAtomic writes to a temp file in the target directory, syncs it
// and renames it over the target.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
