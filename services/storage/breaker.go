package storagesvc

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/sony/gobreaker/v2"

	"github.com/trezcool/darasa/core"
)

var ErrUnavailable = core.Unavailable("Object store unavailable")

// BreakerStore fails fast with ErrUnavailable once `store` keeps failing.
// Missing objects are not failures.
type BreakerStore struct {
	store core.ObjectStore
	cb    *gobreaker.CircuitBreaker[interface{}]
}

var _ core.ObjectStore = (*BreakerStore)(nil)

type BreakerSettings struct {
	// MaxFailures is the number of consecutive failures opening the breaker.
	MaxFailures uint32
	// Timeout is how long the breaker stays open before probing `store` again.
	Timeout time.Duration
}

func NewBreakerStore(store core.ObjectStore, settings BreakerSettings, logger core.Logger) *BreakerStore {
	if settings.MaxFailures == 0 {
		settings.MaxFailures = 5
	}
	if settings.Timeout == 0 {
		settings.Timeout = 30 * time.Second
	}
	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        "object-store",
		MaxRequests: 1,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Cause(err) == core.ErrObjectNotFound
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn(fmt.Sprintf("circuit breaker %s: %s -> %s", name, from, to))
		},
	})
	return &BreakerStore{store: store, cb: cb}
}

func (s *BreakerStore) execute(fn func() (interface{}, error)) (interface{}, error) {
	res, err := s.cb.Execute(fn)
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return nil, ErrUnavailable
	}
	return res, err
}

func (s *BreakerStore) Bucket() string { return s.store.Bucket() }

func (s *BreakerStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (core.ObjectInfo, error) {
	res, err := s.execute(func() (interface{}, error) {
		return s.store.Put(ctx, key, r, size, contentType)
	})
	if err != nil {
		return core.ObjectInfo{}, err
	}
	return res.(core.ObjectInfo), nil
}

func (s *BreakerStore) Get(ctx context.Context, key string) ([]byte, error) {
	res, err := s.execute(func() (interface{}, error) {
		return s.store.Get(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	return res.([]byte), nil
}

func (s *BreakerStore) Stat(ctx context.Context, key string) (core.ObjectInfo, error) {
	res, err := s.execute(func() (interface{}, error) {
		return s.store.Stat(ctx, key)
	})
	if err != nil {
		return core.ObjectInfo{}, err
	}
	return res.(core.ObjectInfo), nil
}

func (s *BreakerStore) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	res, err := s.execute(func() (interface{}, error) {
		return s.store.PresignGet(ctx, key, expiry)
	})
	if err != nil {
		return "", err
	}
	return res.(string), nil
}
