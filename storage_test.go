package scgenomisc

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinPath(t *testing.T) {
	assert.Equal(t, "gs://bucket/dir/matrix.mtx", JoinPath("gs://bucket/dir", "matrix.mtx"))
	assert.Equal(t, "gs://bucket/dir/matrix.mtx", JoinPath("gs://bucket/dir/", "matrix.mtx"))
	assert.Equal(t, filepath.Join("a", "b", "c.tsv"), JoinPath("a", "b", "c.tsv"))
}

func TestSplitGoogleStoragePath(t *testing.T) {
	bucket, object, err := SplitGoogleStoragePath("gs://my-bucket/runs/1/out.tsv")
	require.NoError(t, err)
	assert.Equal(t, "my-bucket", bucket)
	assert.Equal(t, "runs/1/out.tsv", object)

	_, _, err = SplitGoogleStoragePath("gs://only-bucket")
	assert.Error(t, err)
}

func TestCreateOpenRoundTrip(t *testing.T) {
	ctx := context.Background()
	o := &Opener{}

	for _, name := range []string{"plain.tsv", "nested/dir/compressed.tsv.gz"} {
		p := filepath.Join(t.TempDir(), name)

		w, err := o.Create(ctx, p)
		require.NoError(t, err)
		_, err = io.WriteString(w, "gene\tvalue\nA\t1\n")
		require.NoError(t, err)
		require.NoError(t, w.Close())

		exists, err := o.Exists(ctx, p)
		require.NoError(t, err)
		assert.True(t, exists)

		r, err := o.Open(ctx, p)
		require.NoError(t, err)
		b, err := io.ReadAll(r)
		require.NoError(t, err)
		require.NoError(t, r.Close())

		assert.Equal(t, "gene\tvalue\nA\t1\n", string(b), name)
	}
}

func TestGzipOutputIsCompressedOnDisk(t *testing.T) {
	p := filepath.Join(t.TempDir(), "x.tsv.gz")

	w, err := (&Opener{}).Create(context.Background(), p)
	require.NoError(t, err)
	_, err = io.WriteString(w, "hello")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	raw, err := os.ReadFile(p)
	require.NoError(t, err)
	require.True(t, len(raw) > 3)
	assert.Equal(t, []byte{0x1f, 0x8b, 0x08}, raw[:3])
}

func TestOpenMissingFile(t *testing.T) {
	_, err := (&Opener{}).Open(context.Background(), filepath.Join(t.TempDir(), "nope.tsv"))
	assert.Error(t, err)

	exists, err := (&Opener{}).Exists(context.Background(), filepath.Join(t.TempDir(), "nope.tsv"))
	assert.NoError(t, err)
	assert.False(t, exists)
}

func TestGoogleStorageWithoutClient(t *testing.T) {
	_, err := (&Opener{}).Open(context.Background(), "gs://bucket/file.tsv")
	assert.Error(t, err)
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"matrix.mtx", "barcodes.tsv", "genes.tsv"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0755))

	names, err := (&Opener{}).List(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"barcodes.tsv", "genes.tsv", "matrix.mtx"}, names)
}
