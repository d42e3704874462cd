package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalResolver(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lease.pdf")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	got, cleanup, err := LocalResolver{}.Resolve(context.Background(), "file://"+path)
	require.NoError(t, err)
	cleanup()
	assert.Equal(t, path, got)
	assert.FileExists(t, path, "local cleanup must not delete the source")

	_, _, err = LocalResolver{}.Resolve(context.Background(), filepath.Join(t.TempDir(), "nope.pdf"))
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, LocalResolver{}.Stat(context.Background(), t.TempDir()), ErrNotFound)
}

func TestRouter_S3NotConfigured(t *testing.T) {
	r := NewRouter(nil)
	_, cleanup, err := r.Resolve(context.Background(), "s3://contracts/lease.pdf")
	require.NotNil(t, cleanup)
	cleanup()
	assert.ErrorIs(t, err, ErrUnsupportedLocation)
	assert.ErrorIs(t, r.Stat(context.Background(), "s3://contracts/lease.pdf"), ErrUnsupportedLocation)
}

func TestParseS3(t *testing.T) {
	bucket, key, err := ParseS3("s3://contracts/2024/lease.docx")
	require.NoError(t, err)
	assert.Equal(t, "contracts", bucket)
	assert.Equal(t, "2024/lease.docx", key)

	for _, bad := range []string{"/tmp/x.pdf", "s3://bucket-only", "s3:///key", "s3://bucket/"} {
		_, _, err := ParseS3(bad)
		assert.ErrorIs(t, err, ErrUnsupportedLocation, bad)
	}
}

func TestNewMinioResolver(t *testing.T) {
	m, err := NewMinioResolver(MinioConfig{Endpoint: "localhost:9000", AccessKey: "k", SecretKey: "s"}, nil)
	require.NoError(t, err)
	assert.NotNil(t, m)

	_, _, err = m.Resolve(context.Background(), "not-s3")
	assert.ErrorIs(t, err, ErrUnsupportedLocation)
}
