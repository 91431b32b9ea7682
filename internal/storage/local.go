package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// LocalStorage はローカルファイルシステムにファイルを保存する Storage 実装。
// 書き込みは同じディレクトリの一時ファイルに行い、rename で置き換える。
type LocalStorage struct {
	baseDir string // ディスク上のルートディレクトリ (例: "./data")
}

// NewLocalStorage は LocalStorage を生成する。
func NewLocalStorage(baseDir string) *LocalStorage {
	return &LocalStorage{baseDir: baseDir}
}

func (s *LocalStorage) Read(_ context.Context, key string) ([]byte, time.Time, error) {
	path := filepath.Join(s.baseDir, key)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, time.Time{}, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("storage: read: %w", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("storage: stat: %w", err)
	}
	return data, info.ModTime(), nil
}

func (s *LocalStorage) Save(_ context.Context, key string, data []byte) (time.Time, error) {
	dest := filepath.Join(s.baseDir, key)
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return time.Time{}, fmt.Errorf("storage: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dest)+".*.tmp")
	if err != nil {
		return time.Time{}, fmt.Errorf("storage: create: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return time.Time{}, fmt.Errorf("storage: write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return time.Time{}, fmt.Errorf("storage: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return time.Time{}, fmt.Errorf("storage: close: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return time.Time{}, fmt.Errorf("storage: chmod: %w", err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		return time.Time{}, fmt.Errorf("storage: rename: %w", err)
	}

	info, err := os.Stat(dest)
	if err != nil {
		return time.Now(), nil
	}
	return info.ModTime(), nil
}

// Ping はルートディレクトリが存在することを確認する。
func (s *LocalStorage) Ping(_ context.Context) error {
	info, err := os.Stat(s.baseDir)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("storage: %s is not a directory", s.baseDir)
	}
	return nil
}
