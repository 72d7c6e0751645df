package cmd

import (
	"github.com/feederco/really-simple-snapshot-backup/pkg"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
)

// evictOldest deletes snapshots from the front of oldestFirst while usage is
// above capBytes. It stops at the first failed deletion and returns what was
// removed so far together with the remaining usage.
func evictOldest(fs afero.Fs, oldestFirst []pkg.Snapshot, usage uint64, capBytes uint64) ([]pkg.Snapshot, uint64, error) {
	evicted := make([]pkg.Snapshot, 0)
	remaining := oldestFirst

	for usage > capBytes && len(remaining) > 0 {
		oldest := remaining[0]
		remaining = remaining[1:]

		pkg.Log.Infof("Evicting snapshot %s (%s).", oldest.Name, humanize.IBytes(oldest.SizeBytes))

		if err := pkg.DeleteSnapshot(fs, oldest.Path); err != nil {
			return evicted, usage, err
		}

		evicted = append(evicted, oldest)
		if oldest.SizeBytes >= usage {
			usage = 0
		} else {
			usage -= oldest.SizeBytes
		}
	}

	return evicted, usage, nil
}
