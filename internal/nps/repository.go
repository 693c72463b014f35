package nps

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/joeblew999/plat-parks/internal/logging"
	"github.com/joeblew999/plat-parks/internal/service"
)

// Fetcher loads the normalized park list for the configured region.
type Fetcher interface {
	Parks(ctx context.Context) ([]service.ParkData, error)
}

// Archive receives every successfully fetched batch.
type Archive interface {
	ArchiveParks(ctx context.Context, parks []service.ParkData) error
}

// Repository memoizes the first successful fetch. Concurrent callers share
// one in-flight request; a failed fetch is returned to every waiting caller
// and not cached, so the next page load tries again.
type Repository struct {
	fetcher Fetcher
	archive Archive
	log     *zerolog.Logger

	mu       sync.Mutex
	parks    []service.ParkData
	loaded   bool
	inflight *fetchCall
}

type fetchCall struct {
	done  chan struct{}
	parks []service.ParkData
	err   error
}

// NewRepository creates a repository over fetcher. archive may be nil.
func NewRepository(fetcher Fetcher, archive Archive, log *zerolog.Logger) *Repository {
	if log == nil {
		log = logging.Default()
	}
	return &Repository{fetcher: fetcher, archive: archive, log: log}
}

// Parks returns the park list, fetching it if no fetch has succeeded yet.
// The returned slice is the caller's to keep.
func (r *Repository) Parks(ctx context.Context) ([]service.ParkData, error) {
	r.mu.Lock()
	if r.loaded {
		parks := clone(r.parks)
		r.mu.Unlock()
		return parks, nil
	}
	call := r.inflight
	if call == nil {
		call = &fetchCall{done: make(chan struct{})}
		r.inflight = call
		go r.fetch(context.WithoutCancel(ctx), call)
	}
	r.mu.Unlock()

	select {
	case <-call.done:
		if call.err != nil {
			return nil, call.err
		}
		return clone(call.parks), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Cached returns the memoized park list, if any.
func (r *Repository) Cached() ([]service.ParkData, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return clone(r.parks), r.loaded
}

func (r *Repository) fetch(ctx context.Context, call *fetchCall) {
	ctx, cancel := context.WithTimeout(ctx, FetchTimeout)
	defer cancel()

	parks, err := r.fetcher.Parks(ctx)

	r.mu.Lock()
	call.parks, call.err = parks, err
	r.inflight = nil
	if err == nil {
		r.parks, r.loaded = parks, true
	}
	r.mu.Unlock()
	close(call.done)

	if err != nil {
		r.log.Error().Err(err).Msg("Park fetch failed")
		return
	}
	r.log.Info().Int("parks", len(parks)).Msg("Parks fetched")

	if r.archive != nil {
		if err := r.archive.ArchiveParks(ctx, parks); err != nil {
			r.log.Warn().Err(err).Msg("Archiving parks failed")
		}
	}
}

func clone(parks []service.ParkData) []service.ParkData {
	if parks == nil {
		return nil
	}
	out := make([]service.ParkData, len(parks))
	copy(out, parks)
	return out
}
