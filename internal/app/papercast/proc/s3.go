package proc

import (
	"bytes"
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
)

// StorageError reports a failed remote object store call.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// S3Store is an object store backed by an S3-compatible bucket.
type S3Store struct {
	Client   *minio.Client
	Location string
	Bucket   string
}

// Upload writes data under key, overwriting any existing object.
func (s *S3Store) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	if err := s.ensureBucket(ctx); err != nil {
		return err
	}
	_, err := s.Client.PutObject(ctx, s.Bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return &StorageError{Op: "put", Key: key, Err: err}
	}
	return nil
}

// UploadFile writes a local file under key and returns the uploaded byte
// count as reported by the store.
func (s *S3Store) UploadFile(ctx context.Context, key, filePath, contentType string) (int64, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return 0, err
	}
	info, err := s.Client.FPutObject(ctx, s.Bucket, key, filePath,
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return 0, &StorageError{Op: "put", Key: key, Err: err}
	}
	return info.Size, nil
}

// Exists probes object metadata. Any failure, not-found or otherwise, is
// reported as absent: callers re-create idempotent objects rather than
// abort the publish on a flaky probe.
func (s *S3Store) Exists(ctx context.Context, key string) bool {
	_, err := s.Client.StatObject(ctx, s.Bucket, key, minio.StatObjectOptions{})
	return err == nil
}

// Delete removes the object under key. Deleting a missing key is not an
// error at this layer.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	err := s.Client.RemoveObject(ctx, s.Bucket, key, minio.RemoveObjectOptions{})
	if err != nil {
		return &StorageError{Op: "delete", Key: key, Err: err}
	}
	return nil
}

func (s *S3Store) ensureBucket(ctx context.Context) error {
	exists, err := s.Client.BucketExists(ctx, s.Bucket)
	if err != nil {
		return &StorageError{Op: "bucket-head", Key: s.Bucket, Err: err}
	}
	if exists {
		return nil
	}
	if err := s.Client.MakeBucket(ctx, s.Bucket, minio.MakeBucketOptions{Region: s.Location}); err != nil {
		return &StorageError{Op: "bucket-make", Key: s.Bucket, Err: err}
	}
	return nil
}
