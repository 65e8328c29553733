// Package fsutil holds the atomic write helpers shared by every package that
// rewrites user-owned files.
package fsutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// WriteFileAtomic writes data to a temp file beside path and renames it into
// place, so readers see either the old content or the new, never a prefix.
// An existing file keeps its permission bits; new files get perm.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}

	temp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tempPath := temp.Name()

	if _, err := temp.Write(data); err != nil {
		_ = temp.Close()
		_ = os.Remove(tempPath)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := temp.Sync(); err != nil {
		_ = temp.Close()
		_ = os.Remove(tempPath)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := temp.Close(); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tempPath, perm); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("setting permissions: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// ReplaceDir makes dir contain exactly files (name -> content). The new tree
// is staged in a sibling temp directory and swapped in with renames; on
// failure the previous directory is restored.
func ReplaceDir(dir string, files map[string][]byte, perm os.FileMode) error {
	parent := filepath.Dir(dir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	stage, err := os.MkdirTemp(parent, "."+filepath.Base(dir)+".new.*")
	if err != nil {
		return fmt.Errorf("creating staging directory: %w", err)
	}
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(stage, name), files[name], perm); err != nil {
			_ = os.RemoveAll(stage)
			return fmt.Errorf("writing %s: %w", name, err)
		}
	}
	if err := os.Chmod(stage, 0o755); err != nil {
		_ = os.RemoveAll(stage)
		return fmt.Errorf("setting permissions: %w", err)
	}

	var trash string
	if _, err := os.Lstat(dir); err == nil {
		trash = filepath.Join(parent, "."+filepath.Base(dir)+".old."+filepath.Base(stage))
		if err := os.Rename(dir, trash); err != nil {
			_ = os.RemoveAll(stage)
			return fmt.Errorf("moving old directory aside: %w", err)
		}
	}

	if err := os.Rename(stage, dir); err != nil {
		_ = os.RemoveAll(stage)
		if trash != "" {
			_ = os.Rename(trash, dir)
		}
		return fmt.Errorf("renaming staging directory: %w", err)
	}
	if trash != "" {
		_ = os.RemoveAll(trash)
	}
	return nil
}

// RemoveFile deletes path. A missing file is not an error; the result reports
// whether anything was removed.
func RemoveFile(path string) (bool, error) {
	err := os.Remove(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// RemoveDir deletes dir and its contents. A missing dir is not an error.
func RemoveDir(dir string) (bool, error) {
	if _, err := os.Lstat(dir); errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err := os.RemoveAll(dir); err != nil {
		return false, err
	}
	return true, nil
}

// ReadFileIfExists returns the content of path, or nil and false when it does
// not exist.
func ReadFileIfExists(path string) ([]byte, bool, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: paths come from the resolved layout
	if err == nil {
		return data, true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	return nil, false, err
}
