package minio

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	cfg "github.com/feichai0017/idrouter/config"
	"github.com/feichai0017/idrouter/pkg/logger"
)

// API is the subset of the MinIO client the archive uses.
type API interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (*minio.Object, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

// MinioStorage mirrors routed documents into a MinIO bucket.
type MinioStorage struct {
	client     API
	bucketName string
	logger     logger.Logger
}

// NewWithClient wraps an existing client without checking the bucket.
func NewWithClient(client API, bucket string, log logger.Logger) *MinioStorage {
	if log == nil {
		log = logger.NewNop()
	}
	return &MinioStorage{client: client, bucketName: bucket, logger: log.Named("minio")}
}

// Store uploads a routed PDF under key. The routing folder is kept as object
// metadata so the bucket can be searched by identifier.
func (m *MinioStorage) Store(ctx context.Context, reader io.Reader, size int64, key string) (string, error) {
	_, err := m.client.PutObject(ctx, m.bucketName, key, reader, size, minio.PutObjectOptions{
		ContentType:  "application/pdf",
		UserMetadata: map[string]string{"folder": path.Base(path.Dir(key))},
	})
	if err != nil {
		m.logger.Error("Failed to store file to MinIO",
			logger.String("bucket", m.bucketName),
			logger.String("key", key),
			logger.Error(err),
		)
		return "", fmt.Errorf("failed to store file: %w", err)
	}

	return key, nil
}

// Get implements Storage.Get
func (m *MinioStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := m.client.GetObject(ctx, m.bucketName, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	return obj, nil
}

// Delete implements Storage.Delete
func (m *MinioStorage) Delete(ctx context.Context, key string) error {
	if err := m.client.RemoveObject(ctx, m.bucketName, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// NewMinioStorage connects and creates the bucket when missing.
func NewMinioStorage(ctx context.Context, minioConfig cfg.MinioConfig, log logger.Logger) (*MinioStorage, error) {
	if log == nil {
		log = logger.NewNop()
	}
	client, err := minio.New(minioConfig.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(minioConfig.AccessKey, minioConfig.SecretKey, ""),
		Secure: minioConfig.UseSSL,
		Region: minioConfig.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	exists, err := client.BucketExists(ctx, minioConfig.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		err = client.MakeBucket(ctx, minioConfig.BucketName, minio.MakeBucketOptions{
			Region: minioConfig.Region,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
		log.Info("Created MinIO bucket", logger.String("bucket", minioConfig.BucketName))
	}

	return NewWithClient(client, minioConfig.BucketName, log), nil
}
