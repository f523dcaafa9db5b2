package storagesvc

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

type memObject struct {
	data        []byte
	contentType string
}

// MemoryStore keeps objects in memory. Presigned URLs point to a fake host.
type MemoryStore struct {
	mu      sync.RWMutex
	bucket  string
	objects map[string]memObject
}

var _ core.ObjectStore = (*MemoryStore)(nil)

func NewMemoryStore(bucket string) *MemoryStore {
	return &MemoryStore{bucket: bucket, objects: make(map[string]memObject)}
}

func (s *MemoryStore) Bucket() string { return s.bucket }

func (s *MemoryStore) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) (core.ObjectInfo, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return core.ObjectInfo{}, errors.Wrap(err, "reading object")
	}
	s.mu.Lock()
	s.objects[key] = memObject{data: data, contentType: contentType}
	s.mu.Unlock()
	return core.ObjectInfo{Key: key, Bucket: s.bucket, Size: int64(len(data)), ContentType: contentType}, nil
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	if !ok {
		return nil, core.ErrObjectNotFound
	}
	return bytes.Clone(obj.data), nil
}

func (s *MemoryStore) Stat(_ context.Context, key string) (core.ObjectInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	if !ok {
		return core.ObjectInfo{}, core.ErrObjectNotFound
	}
	return core.ObjectInfo{Key: key, Bucket: s.bucket, Size: int64(len(obj.data)), ContentType: obj.contentType}, nil
}

func (s *MemoryStore) PresignGet(_ context.Context, key string, expiry time.Duration) (string, error) {
	u := url.URL{
		Scheme:   "http",
		Host:     "storage.local",
		Path:     "/" + s.bucket + "/" + key,
		RawQuery: url.Values{"X-Amz-Expires": {expiry.String()}}.Encode(),
	}
	return u.String(), nil
}
