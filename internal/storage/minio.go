package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	json "github.com/goccy/go-json"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/gogotex/gogotex/backend/go-realtime/internal/realtime/migration"
)

// MinIOConfig holds MinIO connection configuration
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

// objectStore is the part of the MinIO client the archive uses.
type objectStore interface {
	StatObject(ctx context.Context, bucket, key string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}

// minioObjects adapts *minio.Client to objectStore.
type minioObjects struct {
	*minio.Client
}

func (m minioObjects) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	return m.Client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
}

// MinIOStorage archives document data to a MinIO bucket. Migrations use it to
// keep every document's pre-migration data; rollbacks read it back.
type MinIOStorage struct {
	objects objectStore
	bucket  string
}

// NewMinIOStorage creates a new MinIO storage client and ensures the bucket exists.
func NewMinIOStorage(ctx context.Context, cfg *MinIOConfig) (*MinIOStorage, error) {
	if cfg == nil || cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio config missing")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("minio bucket missing")
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio new: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mc.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
		exist, xerr := mc.BucketExists(ctx, cfg.Bucket)
		if xerr != nil || !exist {
			return nil, fmt.Errorf("minio bucket ensure: %w", err)
		}
	}
	return &MinIOStorage{objects: minioObjects{mc}, bucket: cfg.Bucket}, nil
}

// ArchiveKey is the object key of a document archived before migrating it from one version to another.
func ArchiveKey(collection, id string, from, to int) string {
	return fmt.Sprintf("migrations/%s/v%d-v%d/%s.json", collection, from, to, id)
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}

// Archive stores data as JSON under ArchiveKey. An existing copy is kept:
// a rerun after a failed migration sees partially migrated data, and only the
// first copy holds the document as it was before the migration.
func (s *MinIOStorage) Archive(ctx context.Context, collection, id string, from, to int, data map[string]any) error {
	key := ArchiveKey(collection, id, from, to)
	_, err := s.objects.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err == nil {
		return nil
	}
	if !isNoSuchKey(err) {
		return fmt.Errorf("stat %s: %w", key, err)
	}
	b, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, id, err)
	}
	_, err = s.objects.PutObject(ctx, s.bucket, key, bytes.NewReader(b), int64(len(b)), minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// Restore reads back data archived by Archive. Documents never archived for
// this migration return migration.ErrNotArchived.
func (s *MinIOStorage) Restore(ctx context.Context, collection, id string, from, to int) (map[string]any, error) {
	key := ArchiveKey(collection, id, from, to)
	if _, err := s.objects.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err != nil {
		if isNoSuchKey(err) {
			return nil, fmt.Errorf("%s: %w", key, migration.ErrNotArchived)
		}
		return nil, fmt.Errorf("stat %s: %w", key, err)
	}
	obj, err := s.objects.GetObject(ctx, s.bucket, key)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	defer obj.Close()
	var out map[string]any
	if err := json.NewDecoder(obj).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode archived %s/%s: %w", collection, id, err)
	}
	return out, nil
}
