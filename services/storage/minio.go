package storagesvc

import (
	"context"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

// MinioStore stores objects in a single bucket of an S3-compatible server.
type MinioStore struct {
	client *minio.Client
	bucket string
}

var _ core.ObjectStore = (*MinioStore)(nil)

func NewMinioStore(conf *core.Config) (*MinioStore, error) {
	sc := conf.Storage
	client, err := minio.New(sc.Endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(sc.AccessKey, sc.SecretKey, ""),
		Secure:       sc.UseTLS,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating minio client")
	}
	return &MinioStore{client: client, bucket: sc.Bucket}, nil
}

// EnsureBucket creates the bucket when missing.
func (s *MinioStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return errors.Wrap(err, "checking bucket")
	}
	if exists {
		return nil
	}
	return errors.Wrap(s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}), "creating bucket")
}

func (s *MinioStore) Bucket() string { return s.bucket }

func (s *MinioStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (core.ObjectInfo, error) {
	info, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return core.ObjectInfo{}, errors.Wrap(err, "putting object")
	}
	return core.ObjectInfo{Key: info.Key, Bucket: info.Bucket, Size: info.Size, ContentType: contentType}, nil
}

func (s *MinioStore) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, trapNotFound(err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, trapNotFound(err)
	}
	return data, nil
}

func (s *MinioStore) Stat(ctx context.Context, key string) (core.ObjectInfo, error) {
	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return core.ObjectInfo{}, trapNotFound(err)
	}
	return core.ObjectInfo{Key: info.Key, Bucket: s.bucket, Size: info.Size, ContentType: info.ContentType}, nil
}

func (s *MinioStore) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, expiry, url.Values{})
	if err != nil {
		return "", errors.Wrap(err, "presigning object")
	}
	return u.String(), nil
}

func trapNotFound(err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return core.ErrObjectNotFound
	}
	return errors.Wrap(err, "getting object")
}
