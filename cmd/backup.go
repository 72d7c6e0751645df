package cmd

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/feederco/really-simple-snapshot-backup/pkg"

	"github.com/spf13/afero"
)

// Process exit codes
const (
	exitOK            = 0
	exitFailure       = 1
	exitConfiguration = 2
)

// Begin begin! Returns the process exit code.
func Begin(cliArgs []string) int {
	args := cliArgs[1:]

	if len(args) == 0 {
		pkg.ErrorLog.Errorf("Usage:\n%s perform|prune|list|schedule|test-alert [flags]\n", cliArgs[0])
		return exitConfiguration
	}

	configStruct, err := loadConfig(args[1:])
	if err != nil {
		pkg.ErrorLog.Error("Could not load configuration.", "err", err)
		return exitConfiguration
	}

	pkg.SetVerbose(configStruct.Verbose)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fs := afero.NewOsFs()

	switch args[0] {
	case "perform":
		if err = configStruct.validate(true); err != nil {
			break
		}
		return runBackup(ctx, configStruct)
	case "prune":
		if err = configStruct.validate(false); err != nil {
			break
		}
		return runPrune(fs, configStruct)
	case "list":
		if err = configStruct.validate(false); err != nil {
			break
		}
		return runList(fs, configStruct)
	case "schedule":
		if err = configStruct.validate(true); err != nil {
			break
		}
		if configStruct.Schedule == "" {
			err = &pkg.ConfigurationError{Key: "BACKUP_SCHEDULE", Reason: "required for `schedule`"}
			break
		}
		return runSchedule(ctx, configStruct)
	case "test-alert":
		pkg.AlertError(configStruct.Alerting, "This is a test alert. Please ignore.", errors.New("Test error"))
		return exitOK
	default:
		pkg.ErrorLog.Error("Unknown backup command.", "command", args[0])
		return exitConfiguration
	}

	pkg.ErrorLog.Errorf("Error running `%s`\n\n\t%v\n", args[0], err)
	return exitConfiguration
}

// runBackup performs one complete run against the real filesystem, bucket and database
func runBackup(ctx context.Context, configStruct ConfigStruct) int {
	pkg.Log.Info("Backup started", "at", time.Now().Format(time.RFC3339))
	defer pkg.Log.Info("Backup ended", "at", time.Now().Format(time.RFC3339))

	fs := afero.NewOsFs()

	if err := prerequisites(fs, configStruct.BackupPath); err != nil {
		pkg.AlertError(configStruct.Alerting, "Failed prerequisite tests", err)
		return exitFailure
	}

	if err := backupPrerequisites(configStruct.Database); err != nil {
		// The object store can still be mirrored without the dump tool
		pkg.AlertError(configStruct.Alerting, "Database dump tool missing", err)
	}

	store, err := pkg.NewMinioObjectStore(configStruct.ObjectStorage)
	if err != nil {
		pkg.AlertError(configStruct.Alerting, "Could not construct minio client.", err)
		return exitFailure
	}

	env := backupEnvironment{
		Fs:     fs,
		Root:   configStruct.BackupPath,
		Policy: configStruct.RetentionPolicy(),
		Dumper: &pkg.DatabaseDumper{
			Config:       configStruct.Database,
			Fs:           fs,
			ShowProgress: pkg.VerboseMode,
		},
		DumpFileName: configStruct.Database.DumpFileName(),
		Store:        store,
		Bucket:       configStruct.ObjectStorage.Bucket,
		Mirror: pkg.MirrorOptions{
			Concurrency:  configStruct.MirrorConcurrency,
			ShowProgress: pkg.VerboseMode,
		},
		Alerts: configStruct.Alerting,
	}

	report, err := performBackup(ctx, env)
	printBackupReport(report)

	if err != nil || !report.Succeeded() {
		return exitFailure
	}
	return exitOK
}
