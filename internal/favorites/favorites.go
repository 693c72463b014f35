// Package favorites persists the set of favorite park IDs.
//
// Storage problems never surface to callers: an unreadable store loads as
// empty and a failed write leaves favorites session-only.
package favorites

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog"

	"github.com/joeblew999/plat-parks/internal/kv"
	"github.com/joeblew999/plat-parks/internal/logging"
)

// Key is the storage key holding the JSON array of favorite IDs.
const Key = "favorites"

// Store reads and writes favorites through a kv.Store.
type Store struct {
	kv  kv.Store
	log *zerolog.Logger
}

// New creates a favorites store. A nil backend behaves as disabled storage.
func New(backend kv.Store, log *zerolog.Logger) *Store {
	if log == nil {
		log = logging.Default()
	}
	return &Store{kv: backend, log: log}
}

// Load returns the stored favorite IDs in stored order. Missing or
// unavailable storage yields an empty set. Content that is not a JSON array
// of strings also yields an empty set and is overwritten with it.
func (s *Store) Load(ctx context.Context) []string {
	if s.kv == nil {
		return []string{}
	}
	raw, err := s.kv.Get(ctx, Key)
	if errors.Is(err, kv.ErrNotFound) {
		return []string{}
	}
	if err != nil {
		s.log.Debug().Err(err).Msg("Favorites storage unavailable")
		return []string{}
	}

	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil || ids == nil {
		s.log.Warn().Str("stored", truncate(raw, 64)).Msg("Discarding malformed favorites")
		ids = []string{}
		s.Save(ctx, ids)
	}
	return ids
}

// Save writes ids as a JSON array. Failures are logged and swallowed.
func (s *Store) Save(ctx context.Context, ids []string) {
	if s.kv == nil {
		return
	}
	if ids == nil {
		ids = []string{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		s.log.Debug().Err(err).Msg("Encoding favorites failed")
		return
	}
	if err := s.kv.Set(ctx, Key, string(data)); err != nil {
		s.log.Debug().Err(err).Msg("Saving favorites failed; keeping them for this session only")
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
