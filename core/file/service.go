package file

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

var ErrInvalidKey = core.Invalid("object key is required")

// Upload describes a stored file.
type Upload struct {
	ObjectKey string `json:"object_key"`
	Bucket    string `json:"bucket"`
	MimeType  string `json:"mime_type"`
	Size      int64  `json:"size"`
}

type Service interface {
	// Upload stores r under a new random key keeping the extension of `name`.
	Upload(ctx context.Context, name, contentType string, size int64, r io.Reader) (Upload, error)
	// Presign returns a temporary download URL of an object.
	Presign(ctx context.Context, objectKey string) (string, error)
	// Download returns the content of an object.
	Download(ctx context.Context, objectKey string) ([]byte, error)
}

type service struct {
	store  core.ObjectStore
	expiry time.Duration
}

var _ Service = (*service)(nil)

func NewService(conf *core.Config, store core.ObjectStore) Service {
	return &service{store: store, expiry: conf.Storage.PresignExpiry}
}

func (svc *service) Upload(ctx context.Context, name, contentType string, size int64, r io.Reader) (Upload, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	key := NewObjectKey(name)
	info, err := svc.store.Put(ctx, key, r, size, contentType)
	if err != nil {
		return Upload{}, errors.Wrap(err, "storing object")
	}
	return Upload{ObjectKey: info.Key, Bucket: info.Bucket, MimeType: contentType, Size: info.Size}, nil
}

func (svc *service) Presign(ctx context.Context, objectKey string) (string, error) {
	objectKey = strings.TrimSpace(objectKey)
	if objectKey == "" {
		return "", ErrInvalidKey
	}
	url, err := svc.store.PresignGet(ctx, objectKey, svc.expiry)
	return url, errors.Wrap(err, "presigning object")
}

func (svc *service) Download(ctx context.Context, objectKey string) ([]byte, error) {
	objectKey = strings.TrimSpace(objectKey)
	if objectKey == "" {
		return nil, ErrInvalidKey
	}
	data, err := svc.store.Get(ctx, objectKey)
	return data, errors.Wrap(err, "downloading object")
}

// NewObjectKey returns a random object key with the extension of `name`.
func NewObjectKey(name string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(name)))
	if ext == "." {
		ext = ""
	}
	return uuid.NewString() + ext
}
