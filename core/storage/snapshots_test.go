package storage_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"feed-processor/core/storage"
	"feed-processor/core/storage/mocks"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSnapshots_Key(t *testing.T) {
	s := storage.NewSnapshots(new(mocks.Client), "snaps", "Dev")
	at := time.Date(2024, 5, 1, 9, 59, 0, 0, time.UTC)
	assert.Equal(t, "Dev/feeds/talosintelligence.com/ipreputation/2024050109.txt",
		s.Key("talosintelligence.com", "ipreputation", at))
}

func TestSnapshots_Put(t *testing.T) {
	ctx := context.Background()
	client := new(mocks.Client)
	client.On("PutObject", ctx, "snaps", "Dev/feeds/a/b/2024050109.txt", mock.Anything, int64(8), mock.Anything).
		Return(minio.UploadInfo{Key: "Dev/feeds/a/b/2024050109.txt"}, nil)

	s := storage.NewSnapshots(client, "snaps", "Dev")
	require.NoError(t, s.Put(ctx, "Dev/feeds/a/b/2024050109.txt", []byte("1.2.3.4\n")))
	client.AssertExpectations(t)

	failing := new(mocks.Client)
	failing.On("PutObject", ctx, "snaps", "k", mock.Anything, int64(0), mock.Anything).
		Return(minio.UploadInfo{}, errors.New("access denied"))
	assert.Error(t, storage.NewSnapshots(failing, "snaps", "Dev").Put(ctx, "k", nil))
}

func TestSnapshots_EnsureBucket(t *testing.T) {
	ctx := context.Background()

	t.Run("Exists", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("BucketExists", ctx, "snaps").Return(true, nil)
		require.NoError(t, storage.NewSnapshots(client, "snaps", "Dev").EnsureBucket(ctx))
		client.AssertNotCalled(t, "MakeBucket", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Created", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("BucketExists", ctx, "snaps").Return(false, nil)
		client.On("MakeBucket", ctx, "snaps", mock.Anything).Return(nil)
		require.NoError(t, storage.NewSnapshots(client, "snaps", "Dev").EnsureBucket(ctx))
		client.AssertExpectations(t)
	})
}

func TestSnapshots_List(t *testing.T) {
	ctx := context.Background()
	ch := make(chan minio.ObjectInfo, 3)
	ch <- minio.ObjectInfo{Key: "Dev/feeds/a/b/2024050108.txt"}
	ch <- minio.ObjectInfo{Key: "Dev/feeds/a/b/2024050110.txt"}
	ch <- minio.ObjectInfo{Key: "Dev/feeds/a/b/2024050109.txt"}
	close(ch)

	client := new(mocks.Client)
	client.On("ListObjects", mock.Anything, "snaps", minio.ListObjectsOptions{Prefix: "Dev/feeds/a/b/", Recursive: true}).
		Return((<-chan minio.ObjectInfo)(ch))

	keys, err := storage.NewSnapshots(client, "snaps", "Dev").List(ctx, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Dev/feeds/a/b/2024050110.txt",
		"Dev/feeds/a/b/2024050109.txt",
		"Dev/feeds/a/b/2024050108.txt",
	}, keys)
}

func TestSnapshots_List_Error(t *testing.T) {
	ch := make(chan minio.ObjectInfo, 3)
	ch <- minio.ObjectInfo{Key: "Dev/feeds/a/b/2024050108.txt"}
	ch <- minio.ObjectInfo{Err: errors.New("access denied")}
	ch <- minio.ObjectInfo{Key: "Dev/feeds/a/b/2024050110.txt"}

	var listCtx context.Context
	client := new(mocks.Client)
	client.On("ListObjects", mock.Anything, "snaps", mock.Anything).
		Run(func(args mock.Arguments) { listCtx = args.Get(0).(context.Context) }).
		Return((<-chan minio.ObjectInfo)(ch))

	keys, err := storage.NewSnapshots(client, "snaps", "Dev").List(context.Background(), "a", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
	assert.Nil(t, keys)

	require.NotNil(t, listCtx)
	assert.ErrorIs(t, listCtx.Err(), context.Canceled)
}
