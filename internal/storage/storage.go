package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/samvad-hq/signed-book-watch/internal/domain"
)

// Package storage keeps an optional local history of snapshots.

// Store records snapshots and returns the most recent one.
type Store interface {
	Close() error
	SaveSnapshot(snap domain.Snapshot) error
	LatestSnapshot() (domain.Snapshot, bool, error)
}

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	SnapshotTTL     time.Duration
	CleanupInterval time.Duration
}

const (
	defaultSnapshotTTL     = 90 * 24 * time.Hour
	defaultCleanupInterval = 24 * time.Hour
)

// NewStore creates the configured storage backend.
func NewStore(typ, path string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path, opts)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

// Enabled reports whether s keeps history at all.
func Enabled(s Store) bool {
	if s == nil {
		return false
	}
	_, noop := s.(noopStore)
	return !noop
}

func normalizeOptions(opts Options) Options {
	if opts.SnapshotTTL <= 0 {
		opts.SnapshotTTL = defaultSnapshotTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

type noopStore struct{}

func (noopStore) Close() error                       { return nil }
func (noopStore) SaveSnapshot(domain.Snapshot) error { return nil }
func (noopStore) LatestSnapshot() (domain.Snapshot, bool, error) {
	return domain.Snapshot{}, false, nil
}
