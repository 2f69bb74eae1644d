//go:build integration

package storage

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailsift/mailsift/internal/testutil"
)

func newTestClient(ctx context.Context, t *testing.T) *S3Client {
	t.Helper()

	rc := testutil.NewRustFSContainer(ctx, t)
	t.Cleanup(func() { _ = rc.Terminate(context.Background()) })

	client, err := NewS3Client(ctx, S3ClientConfig{
		Endpoint:        rc.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     "rustfsadmin",
		SecretAccessKey: "rustfsadmin",
		Bucket:          "mailsift-test",
		UsePathStyle:    true,
	})
	require.NoError(t, err)
	require.NoError(t, client.EnsureBucket(ctx))
	return client
}

func TestS3Client_ArchiveRoundTrip(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(ctx, t)

	payload := []byte(`{"id":"msg-1","subject":"Invoice"}` + "\n")
	key := "imports/20240315T120000Z-test.jsonl"

	require.NoError(t, client.ArchiveImport(ctx, key, payload))

	obj, err := client.GetObject(ctx, key)
	require.NoError(t, err)
	defer obj.Body.Close()

	got, err := io.ReadAll(obj.Body)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	require.NoError(t, client.DeleteObject(ctx, key))
}

func TestS3Client_EnsureBucketIdempotent(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(ctx, t)

	assert.NoError(t, client.EnsureBucket(ctx))
	assert.NoError(t, client.EnsureBucket(ctx))
}

func TestS3Client_GetMissingObject(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(ctx, t)

	_, err := client.GetObject(ctx, "imports/does-not-exist.jsonl")
	assert.Error(t, err)
}
