// Package filex contains small filesystem helpers used by the payload
// transfer and import paths.
package filex

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureDir creates dir (and parents) if it does not exist and returns the
// absolute path.
func EnsureDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("abs %s: %w", dir, err)
	}
	if err := os.MkdirAll(abs, 0o770); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", abs, err)
	}
	return abs, nil
}

// TempPayloadPath returns a path inside dir suitable for one downloaded
// package payload. The caller is responsible for removing the file.
func TempPayloadPath(dir, name string) (string, error) {
	f, err := os.CreateTemp(dir, name+"-*.hpkg")
	if err != nil {
		return "", fmt.Errorf("create temp payload: %w", err)
	}
	path := f.Name()
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close temp payload: %w", err)
	}
	return path, nil
}
