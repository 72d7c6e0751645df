package cmd

import (
	"errors"
	"fmt"

	"github.com/feederco/really-simple-snapshot-backup/pkg"

	"github.com/spf13/afero"
)

// prerequisites makes sure the backup root exists and is a directory
func prerequisites(fs afero.Fs, backupPath string) error {
	dirInfo, err := fs.Stat(backupPath)
	if err != nil && errors.Is(err, afero.ErrFileNotFound) {
		pkg.Log.Infof("Backup directory did not exist. Attempting to create %s", backupPath)
		if err = fs.MkdirAll(backupPath, 0755); err != nil {
			return fmt.Errorf("could not create backup directory at %s: %w", backupPath, err)
		}

		dirInfo, err = fs.Stat(backupPath)
	}

	if err != nil {
		return fmt.Errorf("could not stat backup directory: %w", err)
	}

	if !dirInfo.IsDir() {
		return fmt.Errorf("backup path %s is not a directory", backupPath)
	}

	return nil
}

// backupPrerequisites checks the tools a full backup run shells out to
func backupPrerequisites(databaseConfig pkg.DatabaseConfig) error {
	dumpBinary := databaseConfig.DumpBinary()
	if !pkg.IsBinaryInstalled(dumpBinary) {
		return fmt.Errorf("%s is required to dump a %s database but was not found on PATH", dumpBinary, databaseConfig.Connection)
	}
	return nil
}
