package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/samvad-hq/signed-book-watch/internal/domain"
	bolt "go.etcd.io/bbolt"
)

var historyBucket = []byte("snapshots")

// expiryPrefix is the length of the big-endian unix expiry stored ahead of
// each snapshot's JSON.
const expiryPrefix = 8

// boltStore keeps snapshot history in a single bbolt bucket keyed by
// timestamp, so cursor order is chronological order.
type boltStore struct {
	db    *bolt.DB
	ttl   time.Duration
	every time.Duration
	now   func() time.Time

	mu        sync.Mutex
	nextPrune time.Time
}

func openBolt(path string, opts Options) (Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(historyBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create history bucket: %w", err)
	}

	s := &boltStore{db: db, ttl: opts.SnapshotTTL, every: opts.CleanupInterval, now: time.Now}
	s.nextPrune = s.now().Add(s.every)
	return s, nil
}

func (s *boltStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveSnapshot records snap under its timestamp. A second snapshot with the
// same timestamp replaces the first.
func (s *boltStore) SaveSnapshot(snap domain.Snapshot) error {
	if snap.Timestamp == "" {
		return fmt.Errorf("snapshot timestamp is empty")
	}
	now := s.now()
	value, err := encodeEntry(snap, now.Add(s.ttl))
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(historyBucket)
		if err := s.maybePrune(b, now); err != nil {
			return err
		}
		return b.Put([]byte(snap.Timestamp), value)
	})
}

// LatestSnapshot returns the newest snapshot that has not expired.
func (s *boltStore) LatestSnapshot() (domain.Snapshot, bool, error) {
	now := s.now()
	var (
		snap  domain.Snapshot
		found bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(historyBucket).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			expires, ok := entryExpiry(v)
			if !ok || !expires.After(now) {
				continue
			}
			if err := json.Unmarshal(v[expiryPrefix:], &snap); err != nil {
				return fmt.Errorf("decode snapshot %s: %w", k, err)
			}
			found = true
			return nil
		}
		return nil
	})
	return snap, found, err
}

// maybePrune deletes expired entries once per cleanup interval.
func (s *boltStore) maybePrune(b *bolt.Bucket, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if now.Before(s.nextPrune) {
		return nil
	}

	var expired [][]byte
	err := b.ForEach(func(k, v []byte) error {
		if expires, ok := entryExpiry(v); !ok || !expires.After(now) {
			expired = append(expired, append([]byte(nil), k...))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan history: %w", err)
	}
	for _, k := range expired {
		if err := b.Delete(k); err != nil {
			return fmt.Errorf("prune snapshot %s: %w", k, err)
		}
	}
	s.nextPrune = now.Add(s.every)
	return nil
}

func encodeEntry(snap domain.Snapshot, expires time.Time) ([]byte, error) {
	body, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	value := make([]byte, expiryPrefix, expiryPrefix+len(body))
	binary.BigEndian.PutUint64(value, uint64(expires.Unix()))
	return append(value, body...), nil
}

func entryExpiry(value []byte) (time.Time, bool) {
	if len(value) < expiryPrefix {
		return time.Time{}, false
	}
	unix := int64(binary.BigEndian.Uint64(value[:expiryPrefix]))
	if unix <= 0 {
		return time.Time{}, false
	}
	return time.Unix(unix, 0), true
}
