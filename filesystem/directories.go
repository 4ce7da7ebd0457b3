// Package filesystem prepares the harness data root.
package filesystem

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/spf13/afero"
)

// OwnerReadWriteExec is the mode of directories created by the harness.
const OwnerReadWriteExec = 0o700

// ErrLocked is returned when another harness holds the data root.
var ErrLocked = errors.New("data root is locked by another harness")

// ExistOrCreate creates the directory at path unless it already exists.
func ExistOrCreate(fs afero.Fs, path string) error {
	info, err := fs.Stat(path)
	switch {
	case err == nil && !info.IsDir():
		return fmt.Errorf("%s exists and is not a directory", path)
	case err == nil:
		return nil
	case !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := fs.MkdirAll(path, OwnerReadWriteExec); err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	return nil
}

// LockDir takes an exclusive lock on dir/name without blocking.
// The caller releases it with Unlock.
func LockDir(dir, name string) (*flock.Flock, error) {
	fl := flock.New(filepath.Join(dir, name))
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("flock %s: %w", fl.Path(), err)
	}
	if !locked {
		return nil, fmt.Errorf("%w (locking file %s)", ErrLocked, fl.Path())
	}
	return fl, nil
}
