package storage

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// LocalStorage keeps generated certificate files on disk under one base
// directory, addressed by relative path.
type LocalStorage struct {
	baseDir string
}

// NewLocalStorage creates the base directory if needed.
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./certificates"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create certificate dir %s: %w", baseDir, err)
	}
	return &LocalStorage{baseDir: baseDir}, nil
}

// Save writes data at the relative path, creating intermediate month
// directories, and returns the relative path back for storage in links.
func (ls *LocalStorage) Save(relPath string, data []byte) (string, error) {
	target := ls.abs(relPath)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("prepare certificate dir: %w", err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", fmt.Errorf("write certificate %s: %w", relPath, err)
	}
	return relPath, nil
}

// Open returns a read handle for a stored certificate.
func (ls *LocalStorage) Open(relPath string) (*os.File, error) {
	file, err := os.Open(ls.abs(relPath))
	if err != nil {
		return nil, fmt.Errorf("open certificate %s: %w", relPath, err)
	}
	return file, nil
}

// Delete removes a stored certificate, tolerating files already gone.
func (ls *LocalStorage) Delete(relPath string) error {
	if err := os.Remove(ls.abs(relPath)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete certificate %s: %w", relPath, err)
	}
	return nil
}

// CleanupOlderThan deletes files whose mtime is past the TTL and reports
// which relative paths went. Aging files out is safe because an approved
// request can always regenerate its certificate.
func (ls *LocalStorage) CleanupOlderThan(ttl time.Duration) ([]string, error) {
	cutoff := time.Now().Add(-ttl)
	var deleted []string

	walk := func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil || entry.IsDir() {
			return walkErr
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		if info.ModTime().After(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
		if rel, err := filepath.Rel(ls.baseDir, path); err == nil {
			deleted = append(deleted, rel)
		}
		return nil
	}
	if err := filepath.WalkDir(ls.baseDir, walk); err != nil {
		return nil, fmt.Errorf("cleanup certificates: %w", err)
	}
	return deleted, nil
}

func (ls *LocalStorage) abs(relPath string) string {
	if filepath.IsAbs(relPath) {
		return relPath
	}
	return filepath.Join(ls.baseDir, relPath)
}
