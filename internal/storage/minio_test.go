package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/fhuszti/media-pipeline-go/internal/model"
	"github.com/minio/minio-go/v7"
)

type mockMinio struct {
	bucketExistsFn func(ctx context.Context, bucketName string) (bool, error)
	makeBucketFn   func(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	fPutObjectFn   func(ctx context.Context, bucketName, objectName, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

func (m *mockMinio) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	return m.bucketExistsFn(ctx, bucketName)
}
func (m *mockMinio) MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error {
	return m.makeBucketFn(ctx, bucketName, opts)
}
func (m *mockMinio) FPutObject(ctx context.Context, bucketName, objectName, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	return m.fPutObjectFn(ctx, bucketName, objectName, filePath, opts)
}

func TestMinioDisk_InitBucket(t *testing.T) {
	tests := []struct {
		name           string
		exists         bool
		existsErr      error
		makeErr        error
		wantMakeCalled bool
		wantErr        bool
	}{
		{name: "bucket exists, no create", exists: true},
		{name: "bucket missing, create succeeds", wantMakeCalled: true},
		{name: "BucketExists error bubbles up", existsErr: errors.New("exist fail"), wantErr: true},
		{name: "MakeBucket error bubbles up", makeErr: errors.New("make fail"), wantMakeCalled: true, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			makeCalled := false
			mock := &mockMinio{
				bucketExistsFn: func(ctx context.Context, bucketName string) (bool, error) {
					return tc.exists, tc.existsErr
				},
				makeBucketFn: func(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error {
					makeCalled = true
					return tc.makeErr
				},
			}

			d := &MinioDisk{client: mock, bucket: "media"}
			err := d.initBucket(context.Background())

			if tc.wantErr && err == nil {
				t.Fatal("expected error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if makeCalled != tc.wantMakeCalled {
				t.Errorf("MakeBucket called = %v; want %v", makeCalled, tc.wantMakeCalled)
			}
		})
	}
}

func TestMinioDisk_StoreUsesDestPathAsKey(t *testing.T) {
	var keys []string
	mock := &mockMinio{
		fPutObjectFn: func(ctx context.Context, bucketName, objectName, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
			if bucketName != "media" {
				t.Errorf("bucket = %q; want media", bucketName)
			}
			keys = append(keys, objectName)
			return minio.UploadInfo{}, nil
		},
	}
	d := &MinioDisk{client: mock, bucket: "media"}

	item := model.NewImage("a.jpg", "u", "bilibili/42_0 - alice.jpg", "", nil, 0, 0)
	item.LocalPath = "/tmp/x/a.jpg"
	skipped := model.NewImage("b.jpg", "u", "bilibili/42_1 - alice.jpg", "", nil, 0, 0)

	if err := d.Store(context.Background(), []*model.MediaItem{item, skipped}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(keys) != 1 || keys[0] != "bilibili/42_0 - alice.jpg" {
		t.Errorf("object keys = %v; want the downloaded item's DestPath only", keys)
	}
}

func TestMinioDisk_StoreMapsErrors(t *testing.T) {
	mock := &mockMinio{
		fPutObjectFn: func(ctx context.Context, bucketName, objectName, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
			e := minio.ToErrorResponse(errors.New("ignored"))
			e.Code = "NoSuchBucket"
			return minio.UploadInfo{}, e
		},
	}
	d := &MinioDisk{client: mock, bucket: "media"}

	item := model.NewImage("a.jpg", "u", "d/a.jpg", "", nil, 0, 0)
	item.LocalPath = "/tmp/x/a.jpg"

	err := d.Store(context.Background(), []*model.MediaItem{item})
	if !errors.Is(err, ErrBucketNotFound) {
		t.Fatalf("err = %v; want ErrBucketNotFound", err)
	}
}
