package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"

	"github.com/go-authgate/assetgate/internal/config"
	"github.com/go-authgate/assetgate/internal/core"
	"github.com/go-authgate/assetgate/internal/pathguard"
)

var _ core.ObjectStore = (*LocalStore)(nil)

// LocalStore serves objects from a directory on the local filesystem.
type LocalStore struct {
	root string
}

// NewLocalStore returns a store rooted at root. The directory is created if missing.
func NewLocalStore(root string) (*LocalStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	// Symlinked roots (e.g. /tmp on macOS) must be compared in resolved form.
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	return &LocalStore{root: abs}, nil
}

func (s *LocalStore) Driver() string { return config.StorageDriverLocal }

// Root returns the absolute storage directory.
func (s *LocalStore) Root() string { return s.root }

// resolve maps key to a filesystem path and refuses anything that escapes the root,
// including through symlinks inside the tree.
func (s *LocalStore) resolve(key string) (string, error) {
	if err := pathguard.ValidateStorageKey(key); err != nil {
		return "", err
	}
	full := filepath.Join(s.root, filepath.FromSlash(key))
	if !pathguard.IsWithinBase(s.root, full) {
		return "", ErrOutsideRoot
	}
	resolved, err := filepath.EvalSymlinks(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrObjectNotFound
		}
		return "", err
	}
	if !pathguard.IsWithinBase(s.root, resolved) {
		return "", ErrOutsideRoot
	}
	return resolved, nil
}

func (s *LocalStore) Exists(ctx context.Context, key string) (bool, error) {
	p, err := s.resolve(key)
	if errors.Is(err, ErrObjectNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	info, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

func (s *LocalStore) Open(ctx context.Context, key string) (io.ReadCloser, core.ObjectInfo, error) {
	p, err := s.resolve(key)
	if err != nil {
		return nil, core.ObjectInfo{}, err
	}
	f, err := os.Open(p) // #nosec G304 -- path is validated and contained by resolve
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, core.ObjectInfo{}, ErrObjectNotFound
		}
		return nil, core.ObjectInfo{}, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, core.ObjectInfo{}, err
	}
	if !info.Mode().IsRegular() {
		_ = f.Close()
		return nil, core.ObjectInfo{}, ErrObjectNotFound
	}

	contentType := mime.TypeByExtension(path.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return f, core.ObjectInfo{
		Size:        info.Size(),
		ContentType: contentType,
		ModTime:     info.ModTime(),
	}, nil
}

func (s *LocalStore) Delete(ctx context.Context, key string) error {
	p, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrObjectNotFound
		}
		return err
	}
	return nil
}
