package local

import (
	"crypto/rand"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.etcd.io/bbolt"
)

var (
	bucketSyncQueue = []byte("sync_queue")
	bucketSyncKeys  = []byte("sync_queue_keys")
	bucketDevice    = []byte("device")
)

// Store is the device-local durable database. One file holds the offline queue
// and the cached device fingerprint.
type Store struct {
	db *bbolt.DB

	mu      sync.Mutex
	entropy io.Reader
}

// Open opens or creates the bbolt file at path.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open local store %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketSyncQueue, bucketSyncKeys, bucketDevice} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	slog.Info("Local store opened", "path", path)

	return &Store{
		db:      db,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// nextKey returns a ULID greater than every key already in the queue bucket,
// even when the wall clock moved backwards or the process restarted. Must run
// inside an update tx.
func (s *Store) nextKey(b *bbolt.Bucket, now time.Time) (ulid.ULID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if now.IsZero() {
		now = time.Now()
	}
	ms := ulid.Timestamp(now)
	if last, _ := b.Cursor().Last(); last != nil {
		if prev, err := ulid.ParseStrict(string(last)); err == nil && prev.Time() >= ms {
			return successor(prev)
		}
	}
	return ulid.New(ms, s.entropy)
}

// successor returns the smallest ULID sorting after prev. The entropy is
// carried into the timestamp when it overflows.
func successor(prev ulid.ULID) (ulid.ULID, error) {
	next := prev
	for i := len(next) - 1; i >= 6; i-- {
		next[i]++
		if next[i] != 0 {
			return next, nil
		}
	}
	if prev.Time() >= ulid.MaxTime() {
		return ulid.ULID{}, ulid.ErrBigTime
	}
	err := next.SetTime(prev.Time() + 1)
	return next, err
}
