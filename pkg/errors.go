package pkg

import "fmt"

// ConfigurationError is a missing or invalid setting. Fatal before any work starts.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Key, e.Reason)
}

// DirectoryCreateError means a snapshot directory could not be allocated
type DirectoryCreateError struct {
	Path string
	Err  error
}

func (e *DirectoryCreateError) Error() string {
	return fmt.Sprintf("could not create snapshot directory %s: %v", e.Path, e.Err)
}

func (e *DirectoryCreateError) Unwrap() error { return e.Err }

// SizeAccountingError means part of a tree could not be read while measuring it
type SizeAccountingError struct {
	Path string
	Err  error
}

func (e *SizeAccountingError) Error() string {
	return fmt.Sprintf("could not measure %s: %v", e.Path, e.Err)
}

func (e *SizeAccountingError) Unwrap() error { return e.Err }

// DeletionError is an I/O failure while removing a snapshot. A path that is
// already gone is never reported as a DeletionError.
type DeletionError struct {
	Path string
	Err  error
}

func (e *DeletionError) Error() string {
	return fmt.Sprintf("could not delete %s: %v", e.Path, e.Err)
}

func (e *DeletionError) Unwrap() error { return e.Err }

// DumpError is a failure of the database dump producer
type DumpError struct {
	Database string
	Err      error
}

func (e *DumpError) Error() string {
	return fmt.Sprintf("dump of database %s failed: %v", e.Database, e.Err)
}

func (e *DumpError) Unwrap() error { return e.Err }

// MirrorError is a failure of the bucket mirror. Failed counts the objects
// that could not be downloaded; it is zero when listing itself failed.
type MirrorError struct {
	Bucket string
	Failed int
	Err    error
}

func (e *MirrorError) Error() string {
	if e.Failed > 0 {
		return fmt.Sprintf("mirror of bucket %s failed for %d object(s): %v", e.Bucket, e.Failed, e.Err)
	}
	return fmt.Sprintf("mirror of bucket %s failed: %v", e.Bucket, e.Err)
}

func (e *MirrorError) Unwrap() error { return e.Err }
