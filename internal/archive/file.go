package archive

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// FileArchive stores digests under a local directory
type FileArchive struct {
	dir string
}

// Ensure FileArchive implements ArchiveInterface
var _ ArchiveInterface = (*FileArchive)(nil)

// NewFileArchive creates dir if needed
func NewFileArchive(dir string) (*FileArchive, error) {
	if dir == "" {
		return nil, fmt.Errorf("archive directory is required")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}
	return &FileArchive{dir: dir}, nil
}

// Store writes data to dir/filename, creating intermediate directories
func (f *FileArchive) Store(filename string, data []byte) error {
	path := filepath.Join(f.dir, filepath.FromSlash(filename))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", filename, err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filename, err)
	}

	logrus.Infof("Archived %s to %s", filename, f.dir)
	return nil
}
