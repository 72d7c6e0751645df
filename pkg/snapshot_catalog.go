package pkg

import (
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/afero"
)

// Snapshot is one timestamped backup directory under the backup root
type Snapshot struct {
	Name      string
	Path      string
	ModTime   time.Time
	SizeBytes uint64
}

// ListSnapshots returns every immediate subdirectory of root as a Snapshot,
// oldest first. Equal modification times fall back to name order.
func ListSnapshots(fs afero.Fs, root string) ([]Snapshot, error) {
	entries, err := afero.ReadDir(fs, root)
	if err != nil {
		return nil, &SizeAccountingError{Path: root, Err: err}
	}

	snapshots := make([]Snapshot, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		snapshotPath := filepath.Join(root, entry.Name())
		size, err := DirSize(fs, snapshotPath)
		if err != nil {
			return nil, err
		}

		snapshots = append(snapshots, Snapshot{
			Name:      entry.Name(),
			Path:      snapshotPath,
			ModTime:   entry.ModTime(),
			SizeBytes: size,
		})
	}

	sort.Slice(snapshots, func(i, j int) bool {
		if !snapshots[i].ModTime.Equal(snapshots[j].ModTime) {
			return snapshots[i].ModTime.Before(snapshots[j].ModTime)
		}
		return snapshots[i].Name < snapshots[j].Name
	})

	return snapshots, nil
}

// TotalSize sums the recorded sizes of snapshots
func TotalSize(snapshots []Snapshot) uint64 {
	var total uint64
	for _, snapshot := range snapshots {
		total += snapshot.SizeBytes
	}
	return total
}
