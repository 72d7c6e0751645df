package pkg

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
)

// SnapshotNameFormat names snapshot directories. Lexicographic order equals chronological order.
const SnapshotNameFormat = "2006-01-02_15-04-05"

// CreateSnapshotDirectory allocates root/<timestamp> for a new snapshot.
// The final directory is created with a single mkdir so an existing snapshot
// from the same second is never reused or clobbered.
func CreateSnapshotDirectory(fs afero.Fs, root string, now time.Time) (string, error) {
	snapshotPath := filepath.Join(root, now.Format(SnapshotNameFormat))

	if err := fs.MkdirAll(root, 0755); err != nil {
		return "", &DirectoryCreateError{Path: snapshotPath, Err: err}
	}

	if err := fs.Mkdir(snapshotPath, 0755); err != nil {
		return "", &DirectoryCreateError{Path: snapshotPath, Err: err}
	}

	return snapshotPath, nil
}

// DeleteSnapshot removes a snapshot directory and everything below it,
// children before parents. A path that does not exist counts as deleted.
func DeleteSnapshot(fs afero.Fs, path string) error {
	info, err := lstat(fs, path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return &DeletionError{Path: path, Err: err}
	}

	if info.IsDir() {
		entries, err := afero.ReadDir(fs, path)
		if os.IsNotExist(err) {
			return nil
		}
		if err != nil {
			return &DeletionError{Path: path, Err: err}
		}

		for _, entry := range entries {
			if err := DeleteSnapshot(fs, filepath.Join(path, entry.Name())); err != nil {
				return err
			}
		}
	}

	if err := fs.Remove(path); err != nil && !os.IsNotExist(err) {
		return &DeletionError{Path: path, Err: err}
	}

	return nil
}

func lstat(fs afero.Fs, path string) (os.FileInfo, error) {
	if lstater, ok := fs.(afero.Lstater); ok {
		info, _, err := lstater.LstatIfPossible(path)
		return info, err
	}
	return fs.Stat(path)
}
