package daemon

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/zeebo/xxh3"

	"github.com/sidkik/foldersync/pkg/errors"
)

// Lock takes an exclusive lock for syncing into `replica`, so that two
// processes never mirror into the same folder at once. The lock is released
// by calling Unlock on the result, or when the process exits.
func Lock(replica string) (*flock.Flock, error) {
	path := LockPath(replica)
	lock := flock.New(path)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, errors.WithContext(err, fmt.Sprintf("lock %q", path))
	}

	if !locked {
		return nil, errors.NewFriendlyError(
			"Another foldersync process is already syncing into %q.\n"+
				"Stop it before starting a new one, or remove %q if no "+
				"other process is running.", replica, path)
	}
	return lock, nil
}

// LockPath returns the path of the lock file for `replica`.
func LockPath(replica string) string {
	sum := xxh3.HashString128(filepath.Clean(replica)).Bytes()
	return filepath.Join(os.TempDir(), fmt.Sprintf("foldersync-%x.lock", sum[:8]))
}
