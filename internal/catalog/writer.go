package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Load reads the catalog at path. A missing file yields an empty catalog
// and exists=false.
func Load(path string) (cat *Catalog, exists bool, err error) {
	b, err := os.ReadFile(path) //nolint:gosec // path is the user-chosen output
	if errors.Is(err, fs.ErrNotExist) {
		return New(), false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read catalog %s: %w", path, err)
	}
	cat, err = Decode(b)
	if err != nil {
		return nil, true, fmt.Errorf("load catalog %s: %w", path, err)
	}
	return cat, true, nil
}

// Save serializes cat to path, creating parent directories as needed. The
// file is replaced atomically.
func Save(path string, cat *Catalog) error {
	b, err := Encode(cat)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("write catalog %s: %w", path, err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(b); err != nil {
		tmp.Close() //nolint:errcheck,gosec
		return fmt.Errorf("write catalog %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write catalog %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil { //nolint:gosec // catalogs are shared documents
		return fmt.Errorf("write catalog %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write catalog %s: %w", path, err)
	}
	return nil
}
