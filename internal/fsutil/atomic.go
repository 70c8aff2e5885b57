// Package fsutil holds the whole-file replace discipline shared by the
// ledger, dataset and runtime-state writers.
package fsutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteFile replaces path with data. The content is written to a temp file
// in the same directory and renamed over path, so readers observe either the
// old or the new file, never a partial one. The parent directory is created
// if missing.
func WriteFile(path string, data []byte, perm os.FileMode) error {
	return Write(path, perm, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// Write is WriteFile with a streaming producer. If fill returns an error the
// temp file is removed and path is left untouched.
func Write(path string, perm os.FileMode, fill func(w io.Writer) error) error {
	tmp, err := stage(path, perm, fill)
	if err != nil {
		return err
	}
	if renameErr := os.Rename(tmp, path); renameErr != nil {
		os.Remove(tmp)
		return fmt.Errorf("fsutil: finalize %s: %w", path, renameErr)
	}
	return nil
}

// stage writes fill's output to a synced temp file next to path and
// returns the temp file's name.
func stage(path string, perm os.FileMode, fill func(w io.Writer) error) (string, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("fsutil: create dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return "", fmt.Errorf("fsutil: create temp for %s: %w", path, err)
	}
	if fillErr := fill(tmp); fillErr != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("fsutil: write %s: %w", path, fillErr)
	}
	if syncErr := tmp.Sync(); syncErr != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("fsutil: sync %s: %w", path, syncErr)
	}
	if closeErr := tmp.Close(); closeErr != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("fsutil: close %s: %w", path, closeErr)
	}
	if err := os.Chmod(tmp.Name(), perm); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("fsutil: chmod %s: %w", path, err)
	}
	return tmp.Name(), nil
}

// Batch replaces several files together. Every file is staged to a temp
// file first; only when all of them are written does Commit rename them
// into place. A failed Stage leaves every target untouched.
type Batch struct {
	staged []staged
}

type staged struct{ tmp, path string }

// Stage writes the new content of path to a temp file. On error the batch
// is discarded.
func (b *Batch) Stage(path string, perm os.FileMode, fill func(w io.Writer) error) error {
	tmp, err := stage(path, perm, fill)
	if err != nil {
		b.Discard()
		return err
	}
	b.staged = append(b.staged, staged{tmp: tmp, path: path})
	return nil
}

// Len returns the number of staged files.
func (b *Batch) Len() int { return len(b.staged) }

// Commit renames every staged file over its target in staging order. If a
// rename fails the remaining temp files are removed.
func (b *Batch) Commit() error {
	defer func() { b.staged = nil }()
	for i, st := range b.staged {
		if err := os.Rename(st.tmp, st.path); err != nil {
			for _, rest := range b.staged[i:] {
				os.Remove(rest.tmp)
			}
			return fmt.Errorf("fsutil: finalize %s: %w", st.path, err)
		}
	}
	return nil
}

// Discard removes every staged temp file.
func (b *Batch) Discard() {
	for _, st := range b.staged {
		os.Remove(st.tmp)
	}
	b.staged = nil
}
