package pkg

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/cheggaaa/pb"
	"github.com/minio/minio-go"
	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/afero"
)

// MirrorDirectoryName is the subtree of a snapshot that holds mirrored objects
const MirrorDirectoryName = "s3_objects"

const defaultMirrorConcurrency = 4

// ObjectStorageConfig sub-config type for the bucket to mirror
type ObjectStorageConfig struct {
	Endpoint        string `json:"endpoint" yaml:"endpoint"`
	Region          string `json:"region" yaml:"region"`
	AccessKeyID     string `json:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key" yaml:"secret_access_key"`
	Bucket          string `json:"bucket" yaml:"bucket"`
}

// BucketObject is a remote object as seen by the mirror
type BucketObject struct {
	Key  string
	Size int64
}

// ObjectStore is the subset of an S3 client the mirror needs
type ObjectStore interface {
	ListObjects(ctx context.Context, bucket string) ([]BucketObject, error)
	Download(ctx context.Context, bucket string, key string, filePath string) error
}

// MinioObjectStore implements ObjectStore with minio-go
type MinioObjectStore struct {
	Client *minio.Client
}

// NewMinioObjectStore builds a client from an endpoint that is either a bare
// host[:port] (TLS) or a URL whose scheme decides TLS.
func NewMinioObjectStore(config ObjectStorageConfig) (*MinioObjectStore, error) {
	host, secure, err := parseEndpoint(config.Endpoint)
	if err != nil {
		return nil, err
	}

	client, err := minio.NewWithRegion(host, config.AccessKeyID, config.SecretAccessKey, secure, config.Region)
	if err != nil {
		return nil, err
	}

	return &MinioObjectStore{Client: client}, nil
}

func parseEndpoint(endpoint string) (string, bool, error) {
	if !strings.Contains(endpoint, "://") {
		return strings.TrimSuffix(endpoint, "/"), true, nil
	}

	parsed, err := url.Parse(endpoint)
	if err != nil {
		return "", false, err
	}

	switch parsed.Scheme {
	case "https":
		return parsed.Host, true, nil
	case "http":
		return parsed.Host, false, nil
	}

	return "", false, fmt.Errorf("unsupported endpoint scheme %q", parsed.Scheme)
}

// ListObjects lists every object in bucket recursively
func (s *MinioObjectStore) ListObjects(ctx context.Context, bucket string) ([]BucketObject, error) {
	doneCh := make(chan struct{})
	defer close(doneCh)

	objects := make([]BucketObject, 0)
	for item := range s.Client.ListObjectsV2(bucket, "", true, doneCh) {
		if item.Err != nil {
			return nil, item.Err
		}
		objects = append(objects, BucketObject{Key: item.Key, Size: item.Size})

		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	return objects, nil
}

// Download fetches one object into filePath
func (s *MinioObjectStore) Download(ctx context.Context, bucket string, key string, filePath string) error {
	return s.Client.FGetObjectWithContext(ctx, bucket, key, filePath, minio.GetObjectOptions{})
}

// MirrorOptions tunes MirrorBucket
type MirrorOptions struct {
	Concurrency  int
	ShowProgress bool
}

// MirrorResult counts what a mirror run transferred
type MirrorResult struct {
	Objects          int64
	BytesTransferred int64
	Failed           int
}

// MirrorBucket downloads every object of bucket below destination, keeping
// the key as relative path. Objects are fetched concurrently and
// independently: one failed download never cancels the others, and the
// returned MirrorError lists every failure.
func MirrorBucket(ctx context.Context, fs afero.Fs, store ObjectStore, bucket string, destination string, options MirrorOptions) (MirrorResult, error) {
	var result MirrorResult

	if err := fs.MkdirAll(destination, 0755); err != nil {
		return result, &MirrorError{Bucket: bucket, Err: err}
	}

	objects, err := store.ListObjects(ctx, bucket)
	if err != nil {
		return result, &MirrorError{Bucket: bucket, Err: fmt.Errorf("listing objects: %w", err)}
	}

	var totalSize int64
	for _, object := range objects {
		totalSize += object.Size
	}

	Log.Infof("Mirroring %d object(s) from bucket %s.", len(objects), bucket)

	bar := pb.New64(totalSize)
	bar.SetUnits(pb.U_BYTES)
	bar.NotPrint = !options.ShowProgress
	bar.Start()

	concurrency := options.Concurrency
	if concurrency < 1 {
		concurrency = defaultMirrorConcurrency
	}

	var objectCount, byteCount atomic.Int64
	var failed int
	var failedMu sync.Mutex

	downloads := pool.New().WithMaxGoroutines(concurrency).WithErrors()
	for _, object := range objects {
		object := object
		downloads.Go(func() error {
			if err := mirrorObject(ctx, fs, store, bucket, destination, object); err != nil {
				ErrorLog.Error("Could not mirror object", "key", object.Key, "err", err)
				failedMu.Lock()
				failed++
				failedMu.Unlock()
				return fmt.Errorf("%s: %w", object.Key, err)
			}

			objectCount.Add(1)
			byteCount.Add(object.Size)
			bar.Add64(object.Size)
			return nil
		})
	}
	err = downloads.Wait()
	bar.Finish()

	result.Objects = objectCount.Load()
	result.BytesTransferred = byteCount.Load()
	result.Failed = failed

	if err != nil {
		return result, &MirrorError{Bucket: bucket, Failed: failed, Err: err}
	}

	return result, nil
}

var errKeyEscapesDestination = errors.New("object key escapes mirror directory")

func mirrorObject(ctx context.Context, fs afero.Fs, store ObjectStore, bucket string, destination string, object BucketObject) error {
	targetPath, err := objectPath(destination, object.Key)
	if err != nil {
		return err
	}

	// Keys ending in a slash are directory markers
	if strings.HasSuffix(object.Key, "/") {
		return fs.MkdirAll(targetPath, 0755)
	}

	if err = fs.MkdirAll(filepath.Dir(targetPath), 0755); err != nil {
		return err
	}

	return store.Download(ctx, bucket, object.Key, targetPath)
}

func objectPath(destination string, key string) (string, error) {
	relative := filepath.Clean(filepath.FromSlash(strings.TrimPrefix(key, "/")))
	if relative == "." || relative == ".." || strings.HasPrefix(relative, ".."+string(filepath.Separator)) || filepath.IsAbs(relative) {
		return "", errKeyEscapesDestination
	}
	return filepath.Join(destination, relative), nil
}
