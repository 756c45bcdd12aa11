package blob

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

type FilesystemStore struct {
	root    string
	baseURL string
}

func NewFilesystemStore(root, baseURL string) (*FilesystemStore, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		root = "./data/attachments"
	}
	cleanRoot := filepath.Clean(root)
	if err := os.MkdirAll(cleanRoot, 0o750); err != nil {
		return nil, err
	}
	return &FilesystemStore{root: cleanRoot, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *FilesystemStore) Put(_ context.Context, key, _ string, body []byte) (string, error) {
	path, err := s.resolvePath(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", err
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, body, 0o640); err != nil {
		return "", err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return "", err
	}
	return s.url(key, path), nil
}

func (s *FilesystemStore) Get(_ context.Context, key string) ([]byte, error) {
	path, err := s.resolvePath(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrObjectNotFound
		}
		return nil, err
	}
	return data, nil
}

func (s *FilesystemStore) Delete(_ context.Context, key string) error {
	path, err := s.resolvePath(key)
	if err != nil {
		return err
	}
	err = os.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *FilesystemStore) url(key, path string) string {
	if s.baseURL != "" {
		return s.baseURL + "/" + strings.TrimLeft(key, "/")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return "file://" + abs
}

func (s *FilesystemStore) resolvePath(key string) (string, error) {
	key = strings.TrimSpace(key)
	key = strings.TrimPrefix(filepath.Clean("/"+key), "/")
	if key == "" || key == "." {
		return "", errors.New("invalid blob key")
	}
	path := filepath.Join(s.root, key)
	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(rel, "..") {
		return "", errors.New("invalid blob key path")
	}
	return path, nil
}
