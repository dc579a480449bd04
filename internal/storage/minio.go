// Package storage holds uploaded profile and post images in a MinIO bucket.
package storage

import (
	"context"
	"fmt"
	"io"
	"log"
	"mime"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"peerbridge/internal/config"
)

// ImageStore abstracts the object store so handlers can be tested without a
// running MinIO instance.
type ImageStore interface {
	UploadImage(ctx context.Context, folder, fileName string, file io.Reader, size int64) (string, string, error)
	DeleteImage(ctx context.Context, objectName string) error
}

// Folders for the two image kinds the application stores.
const (
	ProfileImageFolder = "profile_images"
	PostImageFolder    = "post_images"
)

type MinIOStorage struct {
	client   *minio.Client
	bucket   string
	endpoint string
	useSSL   bool
}

func NewMinIOStorage(ctx context.Context, cfg config.MinIOConfig) (*MinIOStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %v", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %v", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %v", cfg.Bucket, err)
		}
		log.Printf("Created MinIO bucket %s", cfg.Bucket)
	}

	return &MinIOStorage{
		client:   client,
		bucket:   cfg.Bucket,
		endpoint: cfg.Endpoint,
		useSSL:   cfg.UseSSL,
	}, nil
}

// UploadImage stores the file under a random object name inside folder and
// returns the object name together with a public URL for it.
func (s *MinIOStorage) UploadImage(ctx context.Context, folder, fileName string, file io.Reader, size int64) (string, string, error) {
	fileExt := strings.ToLower(filepath.Ext(fileName))
	if fileExt == "" {
		fileExt = ".jpg"
	}

	contentType := mime.TypeByExtension(fileExt)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	objectName := fmt.Sprintf("%s/%s%s", folder, uuid.New().String(), fileExt)

	_, err := s.client.PutObject(ctx, s.bucket, objectName, file, size,
		minio.PutObjectOptions{
			ContentType: contentType,
			UserMetadata: map[string]string{
				"original-filename": fileName,
			},
		})
	if err != nil {
		return "", "", fmt.Errorf("failed to upload image: %v", err)
	}

	scheme := "http"
	if s.useSSL {
		scheme = "https"
	}
	imageURL := fmt.Sprintf("%s://%s/%s/%s", scheme, s.endpoint, s.bucket, objectName)

	return objectName, imageURL, nil
}

// DeleteImage removes the object. A missing object is not an error; the
// caller only cares that it is gone.
func (s *MinIOStorage) DeleteImage(ctx context.Context, objectName string) error {
	err := s.client.RemoveObject(ctx, s.bucket, objectName, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to delete image %s: %v", objectName, err)
	}
	return nil
}

// ObjectNameFromURL recovers the object name from a stored image URL so old
// images can be deleted when they are replaced.
func ObjectNameFromURL(imageURL, bucket string) string {
	marker := "/" + bucket + "/"
	idx := strings.Index(imageURL, marker)
	if idx < 0 {
		return ""
	}
	return imageURL[idx+len(marker):]
}
