package cmd

import (
	"context"
	"path/filepath"
	"time"

	"github.com/feederco/really-simple-snapshot-backup/pkg"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
)

type backupState int

const (
	stateIdle backupState = iota
	stateEnforcingRetention
	stateAllocatingSnapshot
	stateDumpingDatabase
	stateMirroringObjectStore
	stateDone
	stateAborted
)

func (s backupState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateEnforcingRetention:
		return "enforcing retention"
	case stateAllocatingSnapshot:
		return "allocating snapshot"
	case stateDumpingDatabase:
		return "dumping database"
	case stateMirroringObjectStore:
		return "mirroring object store"
	case stateDone:
		return "done"
	case stateAborted:
		return "aborted"
	}
	return "unknown"
}

type databaseDumper interface {
	Dump(ctx context.Context, destination string) (uint64, error)
}

// backupEnvironment is everything a single run needs, resolved up front
type backupEnvironment struct {
	Fs     afero.Fs
	Root   string
	Policy RetentionPolicy

	Dumper       databaseDumper
	DumpFileName string

	Store   pkg.ObjectStore
	Bucket  string
	Mirror  pkg.MirrorOptions
	Alerts  *pkg.AlertingConfig
	NowFunc func() time.Time
}

type backupReport struct {
	State backupState

	Retention    evictionReport
	RetentionErr error

	SnapshotPath string

	DumpPath string
	DumpSize uint64
	DumpErr  error

	Mirror    pkg.MirrorResult
	MirrorErr error
}

// Succeeded is true when every phase of the run completed without error
func (r backupReport) Succeeded() bool {
	return r.State == stateDone && r.RetentionErr == nil && r.DumpErr == nil && r.MirrorErr == nil
}

// performBackup runs retention, allocates a snapshot and fills it. Only a
// failed allocation ends the run early; retention, dump and mirror failures
// are recorded in the report and the remaining phases still run.
func performBackup(ctx context.Context, env backupEnvironment) (backupReport, error) {
	report := backupReport{State: stateIdle}

	nowFunc := env.NowFunc
	if nowFunc == nil {
		nowFunc = time.Now
	}

	report.State = stateEnforcingRetention
	report.Retention, report.RetentionErr = enforceRetention(env.Fs, env.Root, env.Policy)
	if report.RetentionErr != nil {
		pkg.AlertError(env.Alerts, "Retention could not be enforced. Continuing with backup.", report.RetentionErr)
	} else {
		pkg.Log.Infof("Retention: %d snapshot(s) evicted, %s freed, %s in use (cap %s).",
			len(report.Retention.Evicted),
			humanize.IBytes(report.Retention.BytesFreed),
			humanize.IBytes(report.Retention.FinalUsage),
			humanize.IBytes(env.Policy.CapBytes),
		)
		if report.Retention.StillOverCap {
			pkg.AlertMessage(env.Alerts, "Backup storage is still over its cap after evicting every snapshot. Raise BACKUP_MAX_SIZE_GB or investigate.")
		}
	}

	report.State = stateAllocatingSnapshot
	snapshotPath, err := pkg.CreateSnapshotDirectory(env.Fs, env.Root, nowFunc())
	if err != nil {
		report.State = stateAborted
		pkg.AlertError(env.Alerts, "Could not create snapshot directory. Aborting.", err)
		return report, err
	}
	report.SnapshotPath = snapshotPath
	pkg.Log.Infof("Snapshot directory %s created.", snapshotPath)

	report.State = stateDumpingDatabase
	report.DumpPath = filepath.Join(snapshotPath, env.DumpFileName)
	report.DumpSize, report.DumpErr = env.Dumper.Dump(ctx, report.DumpPath)
	if report.DumpErr != nil {
		pkg.AlertError(env.Alerts, "Could not dump database. Continuing with object store.", report.DumpErr)
	} else {
		pkg.Log.Infof("Database dumped to %s (%s).", report.DumpPath, humanize.IBytes(report.DumpSize))
	}

	report.State = stateMirroringObjectStore
	mirrorDirectory := filepath.Join(snapshotPath, pkg.MirrorDirectoryName)
	report.Mirror, report.MirrorErr = pkg.MirrorBucket(ctx, env.Fs, env.Store, env.Bucket, mirrorDirectory, env.Mirror)
	if report.MirrorErr != nil {
		pkg.AlertError(env.Alerts, "Could not mirror object store.", report.MirrorErr)
	} else {
		pkg.Log.Infof("Mirrored %d object(s) (%s) to %s.", report.Mirror.Objects, humanize.IBytes(uint64(report.Mirror.BytesTransferred)), mirrorDirectory)
	}

	report.State = stateDone
	return report, nil
}

func printBackupReport(report backupReport) {
	outcome := "completed"
	if !report.Succeeded() {
		outcome = "completed with errors"
	}
	if report.State == stateAborted {
		outcome = "aborted"
	}

	pkg.Log.Infof("Backup %s.", outcome)
	pkg.Log.Info("Report",
		"snapshot", report.SnapshotPath,
		"evicted", len(report.Retention.Evicted),
		"retention_ok", report.RetentionErr == nil,
		"dump_ok", report.State == stateDone && report.DumpErr == nil,
		"dump_size", humanize.IBytes(report.DumpSize),
		"mirror_ok", report.State == stateDone && report.MirrorErr == nil,
		"objects", report.Mirror.Objects,
		"mirrored", humanize.IBytes(uint64(report.Mirror.BytesTransferred)),
	)
}
