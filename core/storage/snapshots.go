package storage

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/minio/minio-go/v7"
)

// Snapshots archives raw feed bodies under environment partitioned keys.
type Snapshots struct {
	client Client
	bucket string
	env    string
}

// NewSnapshots creates an archive in bucket for env.
func NewSnapshots(client Client, bucket, env string) *Snapshots {
	return &Snapshots{client: client, bucket: bucket, env: env}
}

// Key returns "<env>/feeds/<source>/<name>/<YYYYMMDDHH>.txt".
func (s *Snapshots) Key(source, name string, at time.Time) string {
	return fmt.Sprintf("%s/%s%s.txt", s.env, prefix(source, name), at.UTC().Format("2006010215"))
}

func prefix(source, name string) string {
	return fmt.Sprintf("feeds/%s/%s/", source, name)
}

// EnsureBucket creates the bucket if it is missing.
func (s *Snapshots) EnsureBucket(ctx context.Context) error {
	ok, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return errors.Wrapf(err, "check bucket %s", s.bucket)
	}
	if ok {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return errors.Wrapf(err, "create bucket %s", s.bucket)
	}
	return nil
}

// Put stores body under key. An existing object for the same hour is replaced.
func (s *Snapshots) Put(ctx context.Context, key string, body []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: "text/plain; charset=utf-8",
	})
	if err != nil {
		return errors.Wrapf(err, "put snapshot %s", key)
	}
	return nil
}

// List returns the snapshot keys of one feed, newest first.
func (s *Snapshots) List(ctx context.Context, source, name string) ([]string, error) {
	// Cancelling stops the listing goroutine when we return early.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var keys []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    s.env + "/" + prefix(source, name),
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, errors.Wrap(obj.Err, "list snapshots")
		}
		keys = append(keys, obj.Key)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	return keys, nil
}
