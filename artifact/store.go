package artifact

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// FileInfo describes one stored file.
type FileInfo struct {
	Name     string
	Size     int64
	Modified time.Time
}

// Store lists and opens files by their base name.
type Store interface {
	// List returns every regular file, sorted by name.
	List() ([]FileInfo, error)
	// Open returns the content of the named file. Callers must close it.
	Open(name string) (io.ReadSeekCloser, FileInfo, error)
}

// ValidateName rejects names that could escape the store.
func ValidateName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case strings.ContainsAny(name, `/\`+"\x00"):
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
