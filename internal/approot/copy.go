package approot

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// CountFiles recursively counts regular files under each dir. Directories
// that do not exist contribute zero.
func CountFiles(dirs ...string) (int, error) {
	total := 0
	for _, dir := range dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) && path == dir {
					return fs.SkipAll
				}
				return err
			}
			if d.Type().IsRegular() {
				total++
			}
			return nil
		})
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// CopyTree recursively copies the regular files under src into dst,
// preserving relative paths and creating directories as needed. onFile is
// called after each file lands, with the path relative to src. A missing src
// copies nothing. Non-regular entries such as symlinks are skipped.
//
// Errors are returned as *os.PathError naming the file that failed.
func CopyTree(src, dst string, onFile func(rel string)) error {
	if _, err := os.Stat(src); errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return &os.PathError{Op: "walk", Path: path, Err: unwrapPathError(err)}
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return &os.PathError{Op: "rel", Path: path, Err: err}
		}
		target := filepath.Join(dst, rel)

		switch {
		case d.IsDir():
			if err := os.MkdirAll(target, 0755); err != nil {
				return &os.PathError{Op: "mkdir", Path: target, Err: unwrapPathError(err)}
			}
			return nil
		case !d.Type().IsRegular():
			return nil
		}

		if err := CopyFile(path, target); err != nil {
			return &os.PathError{Op: "copy", Path: path, Err: unwrapPathError(err)}
		}
		if onFile != nil {
			onFile(rel)
		}
		return nil
	})
}

// CopyFile copies a file from src to dst with durability guarantees,
// keeping the source permission bits. On failure, attempts to clean up any
// partial destination file.
func CopyFile(src, dst string) error {
	source, err := os.Open(src)
	if err != nil {
		return err
	}
	defer source.Close()

	info, err := source.Stat()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}

	dest, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return err
	}

	success := false
	defer func() {
		dest.Close()
		if !success {
			_ = os.Remove(dst)
		}
	}()

	if _, err = io.Copy(dest, source); err != nil {
		return err
	}

	// Database files must be on disk before the config points at them.
	if err := dest.Sync(); err != nil {
		return err
	}

	success = true
	return nil
}

func unwrapPathError(err error) error {
	var pe *os.PathError
	if errors.As(err, &pe) {
		return pe.Err
	}
	return err
}
