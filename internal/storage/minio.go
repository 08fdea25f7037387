package storage

import (
	"context"
	"fmt"
	"mime"
	"path"
	"path/filepath"

	"github.com/fhuszti/media-pipeline-go/internal/logger"
	"github.com/fhuszti/media-pipeline-go/internal/model"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type minioClient interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	FPutObject(ctx context.Context, bucketName, objectName, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// MinioDisk persists files into one MinIO bucket, keyed by each item's
// destination path.
type MinioDisk struct {
	client minioClient
	bucket string
}

// compile-time check: *MinioDisk must satisfy Disk
var _ Disk = (*MinioDisk)(nil)

// NewMinioDisk connects to a MinIO endpoint and ensures the bucket
// exists, creating it when missing.
func NewMinioDisk(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*MinioDisk, error) {
	logger.Info(context.Background(), "initialising minio client...")
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, mapMinioErr(err)
	}

	d := &MinioDisk{client: client, bucket: bucket}
	if err := d.initBucket(context.Background()); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *MinioDisk) initBucket(ctx context.Context) error {
	ok, err := d.client.BucketExists(ctx, d.bucket)
	if err != nil {
		return mapMinioErr(err)
	}
	if !ok {
		logger.Infof(ctx, "bucket %q does not exist, creating it...", d.bucket)
		if err := d.client.MakeBucket(ctx, d.bucket, minio.MakeBucketOptions{}); err != nil {
			return mapMinioErr(err)
		}
	}
	return nil
}

func (d *MinioDisk) Name() string { return "minio" }

func (d *MinioDisk) Store(ctx context.Context, items []*model.MediaItem) error {
	for _, item := range items {
		if !item.Downloaded() {
			continue
		}
		key := filepath.ToSlash(item.DestPath)
		logger.Debugf(ctx, "saving file %q into bucket %q...", key, d.bucket)

		opts := minio.PutObjectOptions{}
		if ct := mime.TypeByExtension(path.Ext(key)); ct != "" {
			opts.ContentType = ct
		}

		if _, err := d.client.FPutObject(ctx, d.bucket, key, item.LocalPath, opts); err != nil {
			return fmt.Errorf("saving %q: %w", key, mapMinioErr(err))
		}
	}
	return nil
}
