package cmd

import (
	"context"

	"github.com/feederco/really-simple-snapshot-backup/pkg"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/robfig/cron/v3"
)

// newScheduler runs job on every tick of spec. A tick that arrives while the
// previous run is still going is skipped, so runs never overlap.
func newScheduler(spec string, job func()) (*cron.Cron, error) {
	logger := cron.PrintfLogger(pkg.Log.StandardLog())

	scheduler := cron.New(cron.WithChain(
		cron.Recover(logger),
		cron.SkipIfStillRunning(logger),
	))

	if _, err := scheduler.AddFunc(spec, job); err != nil {
		return nil, &pkg.ConfigurationError{Key: "BACKUP_SCHEDULE", Reason: err.Error()}
	}

	return scheduler, nil
}

func runSchedule(ctx context.Context, configStruct ConfigStruct) int {
	scheduler, err := newScheduler(configStruct.Schedule, func() {
		runBackup(ctx, configStruct)
	})
	if err != nil {
		pkg.ErrorLog.Error("Invalid schedule.", "err", err)
		return exitConfiguration
	}

	scheduler.Start()
	pkg.Log.Info("Scheduler started.", "schedule", configStruct.Schedule)

	if _, err = daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		pkg.ErrorLog.Warn("Could not notify systemd.", "err", err)
	}

	<-ctx.Done()

	pkg.Log.Info("Stopping scheduler. Waiting for a running backup to finish.")
	daemon.SdNotify(false, daemon.SdNotifyStopping)
	<-scheduler.Stop().Done()

	return exitOK
}
