// Package storage archives raw feed snapshots in S3 compatible object storage.
//
// It wraps the MinIO Go client behind a small Client interface so archive
// interactions can be mocked in tests (see core/storage/mocks). The same client
// talks to AWS S3 and self-hosted MinIO.
//
// # Snapshots
//
// Each run stores the downloaded body before diffing, under
// "<env>/feeds/<source>/<feed>/<YYYYMMDDHH>.txt". Keys sort chronologically.
//
// # Usage
//
//	client, err := storage.NewClient(cfg.Storage)
//	snaps := storage.NewSnapshots(client, cfg.Storage.Bucket, cfg.App.Env)
//	err = snaps.Put(ctx, snaps.Key("talosintelligence.com", "ipreputation", time.Now()), body)
package storage
