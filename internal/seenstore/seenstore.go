// Package seenstore is the persistent at-most-once guard: a fingerprint is
// marked seen only after a successful alert post, never on intake, so a
// crash before the post replays the item rather than silently losing it.
package seenstore

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.etcd.io/bbolt"

	"alertwatcher/internal/errs"
)

var bucketName = []byte("seen")

// Record is the persisted value for one fingerprint.
type Record struct {
	Fingerprint string    `json:"fingerprint"`
	FirstSeenAt time.Time `json:"first_seen_at"`
	Source      string    `json:"source"`
	Weight      int       `json:"weight"`
}

// Store wraps a bbolt database. Many concurrent readers and occasional
// writers are safe: bbolt serializes writers internally and readers never
// block on a writer's in-flight transaction.
type Store struct {
	db  *bbolt.DB
	ttl time.Duration

	mu        sync.Mutex
	lastPurge time.Time
}

// Open creates or opens the seen-store file at path. ttl controls eviction
// age; the zero value defaults to 7 days per spec.
func Open(path string, ttl time.Duration) (*Store, error) {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	db, err := bbolt.Open(path, 0644, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, errs.Wrap(errs.Store, "open seen-store", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, errs.Wrap(errs.Store, "init seen-store bucket", err)
	}
	return &Store{db: db, ttl: ttl}, nil
}

// Close releases the underlying file handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Seen reports whether fingerprint has already been marked. An unreadable
// or corrupt record is treated as not-seen per spec, rather than erroring
// the whole cycle out.
func (s *Store) Seen(fingerprint string) bool {
	var found bool
	_ = s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName)
		if b == nil {
			return nil
		}
		raw := b.Get([]byte(fingerprint))
		if raw == nil {
			return nil
		}
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			// Corrupt record: self-heal as not-seen.
			return nil
		}
		found = true
		return nil
	})
	return found
}

// Mark records fingerprint as seen with the given source/weight metadata.
// Callers invoke this only after a 2xx webhook response.
func (s *Store) Mark(fingerprint, source string, weight int, now time.Time) error {
	rec := Record{
		Fingerprint: fingerprint,
		FirstSeenAt: now,
		Source:      source,
		Weight:      weight,
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return errs.Wrap(errs.Store, "marshal seen record", err)
	}
	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(fingerprint), b)
	})
	if err != nil {
		return errs.Wrap(errs.Store, "write seen record", err)
	}
	return nil
}

// MaybePurgeExpired evicts records older than the configured TTL, but does
// so at most once per hour regardless of how often it's called, so the
// orchestrator can call it unconditionally at the top of every cycle.
func (s *Store) MaybePurgeExpired(now time.Time) (evicted int, err error) {
	s.mu.Lock()
	if !s.lastPurge.IsZero() && now.Sub(s.lastPurge) < time.Hour {
		s.mu.Unlock()
		return 0, nil
	}
	s.lastPurge = now
	s.mu.Unlock()

	var stale [][]byte
	cutoff := now.Add(-s.ttl)
	err = s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName)
		return b.ForEach(func(k, v []byte) error {
			var rec Record
			if jsonErr := json.Unmarshal(v, &rec); jsonErr != nil {
				// Corrupt entries are swept too; copy k since it's only
				// valid for the lifetime of this transaction.
				key := make([]byte, len(k))
				copy(key, k)
				stale = append(stale, key)
				return nil
			}
			if rec.FirstSeenAt.Before(cutoff) {
				key := make([]byte, len(k))
				copy(key, k)
				stale = append(stale, key)
			}
			return nil
		})
	})
	if err != nil {
		return 0, errs.Wrap(errs.Store, "scan seen-store for purge", err)
	}
	if len(stale) == 0 {
		return 0, nil
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName)
		for _, k := range stale {
			if delErr := b.Delete(k); delErr != nil {
				return delErr
			}
		}
		return nil
	})
	if err != nil {
		return 0, errs.Wrap(errs.Store, "delete expired seen records", err)
	}
	return len(stale), nil
}

// Stats is a lightweight snapshot for the health endpoint.
type Stats struct {
	EntryCount int
}

// Snapshot returns basic counters for /health/detailed.
func (s *Store) Snapshot() (Stats, error) {
	var st Stats
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName)
		st.EntryCount = b.Stats().KeyN
		return nil
	})
	if err != nil {
		return st, fmt.Errorf("seen-store snapshot: %w", err)
	}
	return st, nil
}
