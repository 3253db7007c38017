package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// ErrInvalidName 表示文件名会逃出存储目录。
var ErrInvalidName = errors.New("invalid image name")

// DiskStore 将图片保存在本地目录，通过 URLPrefix 对外提供。
type DiskStore struct {
	fs        afero.Fs
	dir       string
	urlPrefix string
}

// NewDiskStore 在 fs 的 dir 目录上创建 DiskStore，目录不存在时自动创建。
func NewDiskStore(fsys afero.Fs, dir, urlPrefix string) (*DiskStore, error) {
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create image dir %q: %w", dir, err)
	}
	return &DiskStore{fs: fsys, dir: dir, urlPrefix: strings.TrimRight(urlPrefix, "/")}, nil
}

// Store 将图片写入 <dir>/<name>。
func (s *DiskStore) Store(_ context.Context, name string, r io.Reader, _ int64, _ string) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}
	f, err := s.fs.Create(p)
	if err != nil {
		return fmt.Errorf("create %q: %w", name, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = s.fs.Remove(p)
		return fmt.Errorf("write %q: %w", name, err)
	}
	if err := f.Close(); err != nil {
		_ = s.fs.Remove(p)
		return fmt.Errorf("close %q: %w", name, err)
	}
	return nil
}

// Remove 删除图片，文件不存在视为已删除。
func (s *DiskStore) Remove(_ context.Context, name string) error {
	if strings.TrimSpace(name) == "" {
		return nil
	}
	p, err := s.path(name)
	if err != nil {
		return err
	}
	if err := s.fs.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %q: %w", name, err)
	}
	return nil
}

// URL 返回图片的公开路径。
func (s *DiskStore) URL(_ context.Context, name string) (string, error) {
	if _, err := s.path(name); err != nil {
		return "", err
	}
	return s.urlPrefix + "/" + path.Clean(name), nil
}

// List 返回存储目录下的全部普通文件。
func (s *DiskStore) List(_ context.Context) ([]ObjectMeta, error) {
	entries, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		return nil, fmt.Errorf("read image dir: %w", err)
	}
	out := make([]ObjectMeta, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		out = append(out, ObjectMeta{Key: e.Name(), Size: e.Size(), LastModified: e.ModTime()})
	}
	return out, nil
}

func (s *DiskStore) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(s.dir, name), nil
}
