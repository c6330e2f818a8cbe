package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var ErrInvalidFileName = errors.New("invalid file name")

// PhotoStore issues upload URLs for report and alert photos.
type PhotoStore struct {
	client *minio.Client
	bucket string
	ttl    time.Duration
}

// Upload describes a presigned upload.
type Upload struct {
	UploadURL string    `json:"upload_url"`
	ObjectKey string    `json:"object_key"`
	PublicURL string    `json:"public_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

func NewClient(endpoint, accessKey, secretKey, region string, useSSL bool) (*minio.Client, error) {
	return minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
		Region: region,
	})
}

func NewPhotoStore(client *minio.Client, bucket string, ttl time.Duration) *PhotoStore {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &PhotoStore{client: client, bucket: bucket, ttl: ttl}
}

func (s *PhotoStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
}

// PresignUpload returns a PUT URL for a new object under the project's prefix.
func (s *PhotoStore) PresignUpload(ctx context.Context, projectID, fileName string) (Upload, error) {
	key, err := ObjectKey(projectID, fileName)
	if err != nil {
		return Upload{}, err
	}
	u, err := s.client.PresignedPutObject(ctx, s.bucket, key, s.ttl)
	if err != nil {
		return Upload{}, fmt.Errorf("presign upload: %w", err)
	}
	public := *s.client.EndpointURL()
	public.Path = "/" + s.bucket + "/" + key
	return Upload{
		UploadURL: u.String(),
		ObjectKey: key,
		PublicURL: public.String(),
		ExpiresAt: time.Now().Add(s.ttl).UTC(),
	}, nil
}

// ObjectKey builds a collision free key projects/{project}/{uuid}-{name}.
func ObjectKey(projectID, fileName string) (string, error) {
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(fileName), "\\", "/"))
	if projectID == "" || name == "" || name == "." || name == "/" || name == ".." {
		return "", ErrInvalidFileName
	}
	return fmt.Sprintf("projects/%s/%s-%s", projectID, uuid.NewString(), name), nil
}
