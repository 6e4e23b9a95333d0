package artifact

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// FileStore serves the regular files directly inside a directory.
// Subdirectories are not listed.
type FileStore struct {
	dir string
}

// NewFileStore returns a FileStore over dir. The directory is created lazily
// by List.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Dir returns the backing directory.
func (s *FileStore) Dir() string { return s.dir }

// List creates the directory if absent and returns its regular files.
// Symlinks are followed.
func (s *FileStore) List() ([]FileInfo, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create files directory: %w", err)
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read files directory: %w", err)
	}

	files := make([]FileInfo, 0, len(entries))
	for _, entry := range entries {
		info, err := os.Stat(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("stat %s: %w", entry.Name(), err)
		}
		if !info.Mode().IsRegular() {
			continue
		}
		files = append(files, FileInfo{Name: entry.Name(), Size: info.Size(), Modified: info.ModTime()})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	return files, nil
}

// Open opens the named file for reading.
func (s *FileStore) Open(name string) (io.ReadSeekCloser, FileInfo, error) {
	if err := ValidateName(name); err != nil {
		return nil, FileInfo{}, err
	}

	f, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, FileInfo{}, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, FileInfo{}, err
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, FileInfo{}, err
	}
	if !info.Mode().IsRegular() {
		_ = f.Close()
		return nil, FileInfo{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	return f, FileInfo{Name: name, Size: info.Size(), Modified: info.ModTime()}, nil
}
