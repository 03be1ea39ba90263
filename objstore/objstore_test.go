package objstore

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseS3URL(t *testing.T) {
	bucket, key, err := ParseS3URL("s3://mail-bucket/user/a/report.pdf")
	require.NoError(t, err)
	assert.Equal(t, "mail-bucket", bucket)
	assert.Equal(t, "user/a/report.pdf", key)

	_, _, err = ParseS3URL("s3://mail-bucket/")
	assert.Error(t, err)
	_, _, err = ParseS3URL("https://example.com/x")
	assert.Error(t, err)
}

func TestLocalStore(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello"), 0o600))
	s := &LocalStore{Root: root}
	dst := filepath.Join(t.TempDir(), "out")

	require.NoError(t, s.Download(context.Background(), "a.txt", dst))
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	require.NoError(t, s.Download(context.Background(), "../../a.txt", dst), "relative keys stay under root")

	err = s.Download(context.Background(), "missing.txt", dst)
	assert.True(t, errors.Is(err, ErrNotFound))
}

type fakeS3 struct {
	objects map[string]string
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	body, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewBufferString(body))}, nil
}

func TestS3StoreAndRouter(t *testing.T) {
	s := &S3Store{client: &fakeS3{objects: map[string]string{"b/k/file.csv": "a,b\n1,2\n"}}}
	r := &Router{S3: s, Local: &LocalStore{Root: t.TempDir()}}
	dst := filepath.Join(t.TempDir(), "file.csv")

	require.NoError(t, r.Download(context.Background(), "s3://b/k/file.csv", dst))
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(data))

	err = r.Download(context.Background(), "s3://b/none", dst)
	assert.True(t, errors.Is(err, ErrNotFound))

	err = (&Router{}).Download(context.Background(), "s3://b/k/file.csv", dst)
	assert.Error(t, err)
}

type deadlineStore struct {
	hasDeadline bool
}

func (d *deadlineStore) Download(ctx context.Context, raw, dst string) error {
	_, d.hasDeadline = ctx.Deadline()
	return nil
}

func TestWithTimeout(t *testing.T) {
	inner := &deadlineStore{}
	require.NoError(t, WithTimeout(inner, time.Second).Download(context.Background(), "s3://b/k", "dst"))
	assert.True(t, inner.hasDeadline)

	assert.Same(t, inner, WithTimeout(inner, 0))
}
