package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"docanchor/internal/config"
	"docanchor/internal/domain"
)

// presignExpiry bounds the lifetime of download URLs handed back to callers.
const presignExpiry = 24 * time.Hour

// minioStore implements Store using an S3-compatible backend (MinIO, AWS S3,
// etc.). Blobs live under documents/<locator> so the bucket itself is
// content-addressed. It is safe for concurrent use by multiple goroutines.
type minioStore struct {
	client *minio.Client
	bucket string
}

// NewMinIO creates the direct-native blob store backed by MinIO.
// It validates connectivity and ensures the bucket exists (creates it if missing).
func NewMinIO(cfg config.MinIOConfig) (Store, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("minio credentials are required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("minio bucket is required")
	}

	cli, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	ms := &minioStore{client: cli, bucket: cfg.Bucket}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Ensure bucket exists.
	exists, err := cli.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		if err := cli.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}

	return ms, nil
}

func objectKey(locator string) string {
	return "documents/" + locator
}

// Upload stores the blob under its derived locator and returns a presigned
// download URL.
func (m *minioStore) Upload(ctx context.Context, content []byte, name string) (UploadResult, error) {
	locator := LocatorFor(content)
	key := objectKey(locator)

	_, err := m.client.PutObject(ctx, m.bucket, key, bytes.NewReader(content), int64(len(content)),
		minio.PutObjectOptions{
			ContentType:  "application/octet-stream",
			UserMetadata: map[string]string{"original-filename": name},
		})
	if err != nil {
		return UploadResult{}, fmt.Errorf("put object: %w", err)
	}

	u, err := m.client.PresignedGetObject(ctx, m.bucket, key, presignExpiry, url.Values{})
	if err != nil {
		return UploadResult{}, fmt.Errorf("presign object: %w", err)
	}

	return UploadResult{
		Locator: locator,
		Size:    int64(len(content)),
		URL:     u.String(),
	}, nil
}

// IsAvailable stats the object; a missing key is a normal false.
func (m *minioStore) IsAvailable(ctx context.Context, locator string) (bool, error) {
	_, err := m.client.StatObject(ctx, m.bucket, objectKey(locator), minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Download reads the full object into memory.
func (m *minioStore) Download(ctx context.Context, locator string) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, objectKey(locator), minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	b, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return b, nil
}

// Metadata stats the object without reading its content.
func (m *minioStore) Metadata(ctx context.Context, locator string) (BlobMetadata, error) {
	st, err := m.client.StatObject(ctx, m.bucket, objectKey(locator), minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return BlobMetadata{}, domain.ErrNotFound
		}
		return BlobMetadata{}, err
	}
	return BlobMetadata{
		Size:        st.Size,
		ContentType: st.ContentType,
		Modified:    st.LastModified,
	}, nil
}

// HealthCheck verifies the bucket is still reachable.
func (m *minioStore) HealthCheck(ctx context.Context) bool {
	ok, err := m.client.BucketExists(ctx, m.bucket)
	return err == nil && ok
}
