package cmd

import (
	"fmt"

	"github.com/feederco/really-simple-snapshot-backup/pkg"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
)

func runList(fs afero.Fs, configStruct ConfigStruct) int {
	snapshots, err := pkg.ListSnapshots(fs, configStruct.BackupPath)
	if err != nil {
		pkg.ErrorLog.Error("Could not list snapshots.", "err", err)
		return exitFailure
	}

	if len(snapshots) == 0 {
		fmt.Println("No snapshots found")
		return exitOK
	}

	fmt.Printf("Snapshots in %s (%d, oldest first):\n\n", configStruct.BackupPath, len(snapshots))
	for _, snapshot := range snapshots {
		fmt.Printf("  %s  %10s  %s\n", snapshot.Name, humanize.IBytes(snapshot.SizeBytes), humanize.Time(snapshot.ModTime))
	}

	policy := configStruct.RetentionPolicy()
	fmt.Printf("\nTotal: %s of %s\n", humanize.IBytes(pkg.TotalSize(snapshots)), humanize.IBytes(policy.CapBytes))

	return exitOK
}

func runPrune(fs afero.Fs, configStruct ConfigStruct) int {
	report, err := enforceRetention(fs, configStruct.BackupPath, configStruct.RetentionPolicy())
	if err != nil {
		pkg.AlertError(configStruct.Alerting, "Retention could not be enforced.", err)
		return exitFailure
	}

	if len(report.Evicted) == 0 {
		fmt.Println("No snapshots to evict")
	}
	for _, snapshot := range report.Evicted {
		fmt.Printf("  Evicted %s (%s)\n", snapshot.Name, humanize.IBytes(snapshot.SizeBytes))
	}

	fmt.Printf("\nUsage: %s (was %s), cap %s\n",
		humanize.IBytes(report.FinalUsage),
		humanize.IBytes(report.InitialUsage),
		humanize.IBytes(configStruct.RetentionPolicy().CapBytes),
	)

	if report.StillOverCap {
		pkg.AlertMessage(configStruct.Alerting, "Backup storage is still over its cap after evicting every snapshot.")
	}

	return exitOK
}
