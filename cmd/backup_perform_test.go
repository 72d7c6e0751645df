package cmd

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/feederco/really-simple-snapshot-backup/pkg"

	"github.com/spf13/afero"
)

var testRunTime = time.Date(2024, 6, 1, 2, 30, 0, 0, time.UTC)

type fakeDumper struct {
	fs          afero.Fs
	err         error
	destination string
	called      bool
}

func (d *fakeDumper) Dump(ctx context.Context, destination string) (uint64, error) {
	d.called = true
	d.destination = destination
	if d.err != nil {
		return 0, d.err
	}
	if err := afero.WriteFile(d.fs, destination, []byte("dump"), 0644); err != nil {
		return 0, err
	}
	return 4, nil
}

type fakeStore struct {
	fs      afero.Fs
	objects []pkg.BucketObject
	listErr error
	listed  bool
}

func (s *fakeStore) ListObjects(ctx context.Context, bucket string) ([]pkg.BucketObject, error) {
	s.listed = true
	return s.objects, s.listErr
}

func (s *fakeStore) Download(ctx context.Context, bucket string, key string, filePath string) error {
	return afero.WriteFile(s.fs, filePath, []byte(key), 0644)
}

func newTestEnvironment(fs afero.Fs, policy RetentionPolicy) (backupEnvironment, *fakeDumper, *fakeStore) {
	dumper := &fakeDumper{fs: fs}
	store := &fakeStore{fs: fs, objects: []pkg.BucketObject{
		{Key: "uploads/a.jpg", Size: 13},
		{Key: "b.txt", Size: 5},
	}}

	env := backupEnvironment{
		Fs:           fs,
		Root:         "/backups",
		Policy:       policy,
		Dumper:       dumper,
		DumpFileName: "shop.sql.gz",
		Store:        store,
		Bucket:       "assets",
		Mirror:       pkg.MirrorOptions{Concurrency: 2},
		NowFunc:      func() time.Time { return testRunTime },
	}

	return env, dumper, store
}

func TestPerformBackupIntoEmptyRoot(t *testing.T) {
	fs := afero.NewMemMapFs()
	fs.MkdirAll("/backups", 0755)

	env, dumper, store := newTestEnvironment(fs, RetentionPolicy{CapBytes: gigaBytesToBytes(1), DeleteOldestOnLimitReached: true})

	report, err := performBackup(context.Background(), env)
	if err != nil {
		t.Fatal("Should not return error", err)
	}

	expectedSnapshot := "/backups/2024-06-01_02-30-00"
	if report.SnapshotPath != expectedSnapshot {
		t.Error("Incorrect snapshot path", report.SnapshotPath)
	}
	if len(report.Retention.Evicted) != 0 || report.Retention.FinalUsage != 0 {
		t.Errorf("Retention should be a no-op: %+v", report.Retention)
	}

	if dumper.destination != filepath.Join(expectedSnapshot, "shop.sql.gz") {
		t.Error("Dump written to wrong path", dumper.destination)
	}
	if !store.listed {
		t.Error("Bucket was not mirrored")
	}
	if exists, _ := afero.Exists(fs, filepath.Join(expectedSnapshot, pkg.MirrorDirectoryName, "uploads/a.jpg")); !exists {
		t.Error("Mirrored object missing")
	}

	if report.State != stateDone || !report.Succeeded() {
		t.Errorf("Expected successful run, state %s", report.State)
	}
	if report.DumpSize != 4 || report.Mirror.Objects != 2 {
		t.Errorf("Incorrect report: %+v", report)
	}
}

func TestPerformBackupEvictsBeforeAllocating(t *testing.T) {
	fs := afero.NewMemMapFs()
	huge := buildSnapshot(t, fs, "/backups", 0, 50)

	env, _, _ := newTestEnvironment(fs, RetentionPolicy{CapBytes: 10 * testUnit, DeleteOldestOnLimitReached: true})

	report, err := performBackup(context.Background(), env)
	if err != nil {
		t.Fatal("Should not return error", err)
	}

	if len(report.Retention.Evicted) != 1 || report.Retention.Evicted[0].Path != huge {
		t.Error("Oversized snapshot should be evicted", report.Retention.Evicted)
	}

	snapshots, err := pkg.ListSnapshots(fs, "/backups")
	if err != nil {
		t.Fatal(err)
	}
	if len(snapshots) != 1 || snapshots[0].Path != report.SnapshotPath {
		t.Error("Only the new snapshot should remain", snapshots)
	}
}

func TestPerformBackupEvictionDisabledStillBacksUp(t *testing.T) {
	fs := afero.NewMemMapFs()
	old := buildSnapshot(t, fs, "/backups", 0, 5)

	env, dumper, _ := newTestEnvironment(fs, RetentionPolicy{CapBytes: 1 * testUnit, DeleteOldestOnLimitReached: false})

	report, err := performBackup(context.Background(), env)
	if err != nil {
		t.Fatal("Should not return error", err)
	}

	if len(report.Retention.Evicted) != 0 || !snapshotExists(fs, old) {
		t.Error("Nothing should be evicted")
	}
	if report.SnapshotPath == "" || !dumper.called {
		t.Error("New snapshot should still be created and filled")
	}
}

func TestPerformBackupDumpFailureStillMirrors(t *testing.T) {
	fs := afero.NewMemMapFs()
	fs.MkdirAll("/backups", 0755)

	env, dumper, store := newTestEnvironment(fs, RetentionPolicy{CapBytes: gigaBytesToBytes(1), DeleteOldestOnLimitReached: true})
	dumper.err = &pkg.DumpError{Database: "shop", Err: errors.New("access denied")}

	report, err := performBackup(context.Background(), env)
	if err != nil {
		t.Fatal("Dump failure should not abort the run", err)
	}

	if !store.listed || report.MirrorErr != nil {
		t.Error("Mirror should still run and succeed", report.MirrorErr)
	}
	if report.DumpErr == nil || report.Succeeded() {
		t.Error("Run should be reported as failed")
	}
	if report.State != stateDone {
		t.Error("Expected state done, found", report.State)
	}
}

func TestPerformBackupMirrorFailureKeepsDump(t *testing.T) {
	fs := afero.NewMemMapFs()
	fs.MkdirAll("/backups", 0755)

	env, dumper, store := newTestEnvironment(fs, RetentionPolicy{CapBytes: gigaBytesToBytes(1), DeleteOldestOnLimitReached: true})
	store.listErr = errors.New("bucket does not exist")

	report, err := performBackup(context.Background(), env)
	if err != nil {
		t.Fatal("Mirror failure should not abort the run", err)
	}

	var mirrorErr *pkg.MirrorError
	if !errors.As(report.MirrorErr, &mirrorErr) {
		t.Errorf("Expected MirrorError, got %v", report.MirrorErr)
	}
	if report.DumpErr != nil || !dumper.called {
		t.Error("Dump should have succeeded")
	}
	if report.Succeeded() {
		t.Error("Run should be reported as failed")
	}
}

func TestPerformBackupAllocationFailureAborts(t *testing.T) {
	fs := afero.NewMemMapFs()
	fs.MkdirAll("/backups", 0755)

	env, dumper, store := newTestEnvironment(fs, RetentionPolicy{CapBytes: gigaBytesToBytes(1), DeleteOldestOnLimitReached: true})

	// A snapshot from the same second already exists
	fs.MkdirAll(filepath.Join("/backups", testRunTime.Format(pkg.SnapshotNameFormat)), 0755)

	report, err := performBackup(context.Background(), env)

	var createErr *pkg.DirectoryCreateError
	if !errors.As(err, &createErr) {
		t.Fatalf("Expected DirectoryCreateError, got %v", err)
	}
	if report.State != stateAborted || report.Succeeded() {
		t.Error("Expected aborted run, found", report.State)
	}
	if dumper.called || store.listed {
		t.Error("No collaborator should run after a failed allocation")
	}
}

func TestPerformBackupRetentionFailureContinues(t *testing.T) {
	fs := afero.NewMemMapFs()

	// Root does not exist yet: measuring fails, allocation creates it
	env, dumper, _ := newTestEnvironment(fs, RetentionPolicy{CapBytes: 1, DeleteOldestOnLimitReached: true})

	report, err := performBackup(context.Background(), env)
	if err != nil {
		t.Fatal("Should not return error", err)
	}

	if report.RetentionErr == nil {
		t.Error("Expected retention error")
	}
	if !dumper.called || report.State != stateDone {
		t.Error("Backup phases should still run")
	}
	if report.Succeeded() {
		t.Error("Run should be reported as failed")
	}
}

func TestBackupStateNames(t *testing.T) {
	states := map[backupState]string{
		stateIdle:                 "idle",
		stateEnforcingRetention:   "enforcing retention",
		stateAllocatingSnapshot:   "allocating snapshot",
		stateDumpingDatabase:      "dumping database",
		stateMirroringObjectStore: "mirroring object store",
		stateDone:                 "done",
		stateAborted:              "aborted",
	}

	for state, name := range states {
		if state.String() != name {
			t.Errorf("Expected %s, found %s", name, state.String())
		}
	}
}
