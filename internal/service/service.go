// Package service is the access control core. Every operation takes the
// caller id explicitly; uuid.Nil means nobody is signed in.
package service

import (
	"context"
	"io"
	"sync"
	"time"

	"gpsr/internal/domain/storage"
	"gpsr/internal/notifications"
	"gpsr/internal/visibility"

	"go.uber.org/zap"
)

// Notifier delivers request and decision events. Failures are logged and
// never affect the operation that triggered them.
type Notifier interface {
	AccessRequested(ctx context.Context, ev notifications.AccessEvent) error
	AccessDecided(ctx context.Context, ev notifications.AccessEvent) error
}

// BlobStore keeps product documents as opaque blobs keyed by path.
type BlobStore interface {
	Upload(ctx context.Context, path string, r io.Reader) (string, error)
	Delete(ctx context.Context, path string) error
}

const (
	// UnknownResource labels ledger rows whose resource no longer exists.
	UnknownResource = "Unknown"

	notifyTimeout = 15 * time.Second
)

type Service struct {
	store    *storage.Container
	resolver visibility.Resolver
	names    *NameCache
	notifier Notifier
	blobs    BlobStore
	logger   *zap.SugaredLogger

	// EnrichConcurrency bounds parallel name lookups when listing requests.
	EnrichConcurrency int

	bg sync.WaitGroup
}

func New(
	store *storage.Container,
	resolver visibility.Resolver,
	names *NameCache,
	notifier Notifier,
	blobs BlobStore,
	logger *zap.SugaredLogger,
) *Service {
	if names == nil {
		names = NewNameCache(store.Users, 0, time.Minute)
	}
	return &Service{
		store:             store,
		resolver:          resolver,
		names:             names,
		notifier:          notifier,
		blobs:             blobs,
		logger:            logger,
		EnrichConcurrency: 8,
	}
}

// Wait blocks until in-flight notifications finish. Called on shutdown.
func (s *Service) Wait() {
	s.bg.Wait()
}

func (s *Service) background(name string, fn func(ctx context.Context) error) {
	if s.notifier == nil {
		return
	}
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			s.logger.Warnw("notification failed", "event", name, "error", err)
		}
	}()
}
