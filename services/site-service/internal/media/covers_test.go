package media

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePutter struct {
	bucket, object, contentType string
	body                        string
	err                         error
}

func (f *fakePutter) PutObject(_ context.Context, bucket, object string, r io.Reader, _ int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if f.err != nil {
		return minio.UploadInfo{}, f.err
	}
	b, _ := io.ReadAll(r)
	f.bucket, f.object, f.contentType, f.body = bucket, object, opts.ContentType, string(b)
	return minio.UploadInfo{Bucket: bucket, Key: object}, nil
}

func newTestStore(p objectPutter) *CoverStore {
	s := newCoverStore(p, "blog-covers", "https://cdn.example.com/blog-covers/")
	s.now = func() time.Time { return time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC) }
	s.newID = func() string { return "fixed" }
	return s
}

func TestUploadReturnsPublicURL(t *testing.T) {
	p := &fakePutter{}
	url, err := newTestStore(p).Upload(context.Background(), "image/png", strings.NewReader("png"), 3)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/blog-covers/covers/2025/03/fixed.png", url)
	assert.Equal(t, "blog-covers", p.bucket)
	assert.Equal(t, "image/png", p.contentType)
	assert.Equal(t, "png", p.body)
}

func TestUploadRejectsNonImages(t *testing.T) {
	_, err := newTestStore(&fakePutter{}).Upload(context.Background(), "application/pdf", strings.NewReader("x"), 1)
	require.ErrorIs(t, err, ErrUnsupportedType)

	_, err = newTestStore(&fakePutter{}).Upload(context.Background(), "image/jpeg", strings.NewReader(""), MaxCoverBytes+1)
	require.Error(t, err)
}

func TestUploadWrapsStoreErrors(t *testing.T) {
	boom := errors.New("bucket missing")
	_, err := newTestStore(&fakePutter{err: boom}).Upload(context.Background(), "image/jpeg", strings.NewReader("x"), 1)
	require.ErrorIs(t, err, boom)
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("MINIO_ENDPOINT", "")
	_, ok := ConfigFromEnv()
	assert.False(t, ok)

	t.Setenv("MINIO_ENDPOINT", "minio:9000")
	t.Setenv("MINIO_USE_SSL", "true")
	cfg, ok := ConfigFromEnv()
	assert.True(t, ok)
	assert.True(t, cfg.UseSSL)
	assert.Equal(t, "blog-covers", cfg.Bucket)
}
