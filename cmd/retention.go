package cmd

import (
	"github.com/feederco/really-simple-snapshot-backup/pkg"

	"github.com/spf13/afero"
)

const bytesPerGigaByte = 1 << (10 * 3)

// RetentionPolicy caps the total size of the backup root
type RetentionPolicy struct {
	CapBytes                   uint64
	DeleteOldestOnLimitReached bool
}

type evictionReport struct {
	Evicted      []pkg.Snapshot
	BytesFreed   uint64
	InitialUsage uint64
	FinalUsage   uint64

	// StillOverCap is set when every snapshot was considered and usage is
	// still above the cap. Not an error: the new backup is attempted anyway.
	StillOverCap bool
}

func gigaBytesToBytes(sizeInGigaBytes uint64) uint64 {
	return sizeInGigaBytes * bytesPerGigaByte
}

// enforceRetention evicts the oldest snapshots under root until the total
// usage fits under the policy cap. The snapshot list is read once; usage is
// decremented by each evicted snapshot's recorded size instead of
// re-measuring the tree.
func enforceRetention(fs afero.Fs, root string, policy RetentionPolicy) (evictionReport, error) {
	report := evictionReport{}

	totalUsage, err := pkg.DirSize(fs, root)
	if err != nil {
		return report, err
	}

	report.InitialUsage = totalUsage
	report.FinalUsage = totalUsage

	if totalUsage <= policy.CapBytes || !policy.DeleteOldestOnLimitReached {
		return report, nil
	}

	snapshots, err := pkg.ListSnapshots(fs, root)
	if err != nil {
		return report, err
	}

	evicted, remainingUsage, err := evictOldest(fs, snapshots, totalUsage, policy.CapBytes)

	report.Evicted = evicted
	report.BytesFreed = pkg.TotalSize(evicted)
	report.FinalUsage = remainingUsage
	report.StillOverCap = err == nil && remainingUsage > policy.CapBytes

	return report, err
}
