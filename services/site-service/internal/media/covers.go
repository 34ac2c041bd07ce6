package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/seiflawfirm/site/libs/config"
)

// ErrUnsupportedType is returned for uploads that are not images.
var ErrUnsupportedType = errors.New("unsupported image type")

// MaxCoverBytes caps a single cover upload.
const MaxCoverBytes = 5 << 20

var coverTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicURL prefixes object keys in returned URLs, e.g. a CDN host.
	PublicURL string
}

// ConfigFromEnv reports ok=false when MINIO_ENDPOINT is unset.
func ConfigFromEnv() (Config, bool) {
	cfg := Config{
		Endpoint:  config.String("MINIO_ENDPOINT", ""),
		AccessKey: config.String("MINIO_ACCESS_KEY", ""),
		SecretKey: config.String("MINIO_SECRET_KEY", ""),
		Bucket:    config.String("MINIO_BUCKET", "blog-covers"),
		UseSSL:    config.Bool("MINIO_USE_SSL", false),
		PublicURL: config.String("MINIO_PUBLIC_URL", ""),
	}
	return cfg, cfg.Endpoint != ""
}

type objectPutter interface {
	PutObject(ctx context.Context, bucket, object string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// CoverStore uploads blog cover images to an S3 compatible bucket.
type CoverStore struct {
	client    objectPutter
	bucket    string
	publicURL string
	now       func() time.Time
	newID     func() string
}

func NewCoverStore(cfg Config) (*CoverStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	publicURL := cfg.PublicURL
	if publicURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		publicURL = fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, cfg.Bucket)
	}
	return newCoverStore(client, cfg.Bucket, publicURL), nil
}

func newCoverStore(client objectPutter, bucket, publicURL string) *CoverStore {
	return &CoverStore{
		client:    client,
		bucket:    bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Upload stores the image under covers/YYYY/MM/ and returns its public URL.
func (s *CoverStore) Upload(ctx context.Context, contentType string, r io.Reader, size int64) (string, error) {
	ext, ok := coverTypes[strings.ToLower(strings.TrimSpace(contentType))]
	if !ok {
		return "", ErrUnsupportedType
	}
	if size <= 0 || size > MaxCoverBytes {
		return "", fmt.Errorf("cover size %d out of range", size)
	}
	key := path.Join("covers", s.now().UTC().Format("2006/01"), s.newID()+ext)
	if _, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType}); err != nil {
		return "", fmt.Errorf("put object %s/%s: %w", s.bucket, key, err)
	}
	return s.publicURL + "/" + key, nil
}
