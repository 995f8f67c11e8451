package render

import (
	"errors"
	"io/fs"
	"os"
)

// OSFileSystem is the FileSystem backed by the local disk.
type OSFileSystem struct{}

func (OSFileSystem) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func (OSFileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// WriteFile creates new files readable by the owner only. An existing
// file keeps its permissions.
func (OSFileSystem) WriteFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0o600)
}
