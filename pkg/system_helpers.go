package pkg

import (
	"os"

	"github.com/spf13/afero"
)

// FileOrDirSize gets the size of a directory or file
func FileOrDirSize(fs afero.Fs, path string) (uint64, error) {
	fileStat, err := fs.Stat(path)
	if err != nil {
		return 0, &SizeAccountingError{Path: path, Err: err}
	}

	if fileStat.IsDir() {
		return DirSize(fs, path)
	}

	return uint64(fileStat.Size()), nil
}

// DirSize sums the size of every regular file under path.
// Symlinks are not followed and count as zero. Any unreadable entry aborts
// the walk so the total is never silently under-reported.
func DirSize(fs afero.Fs, path string) (uint64, error) {
	var size uint64
	err := afero.Walk(fs, path, func(walkPath string, info os.FileInfo, err error) error {
		if err != nil {
			return &SizeAccountingError{Path: walkPath, Err: err}
		}
		if info.Mode().IsRegular() {
			size += uint64(info.Size())
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return size, nil
}
