package local

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/pkg/fingerprint"
	"go.etcd.io/bbolt"
)

var keyFingerprint = []byte("fingerprint")

// CachedFingerprint is the device identity computed on first launch.
type CachedFingerprint struct {
	Fingerprint string                 `json:"fingerprint"`
	Attributes  fingerprint.Attributes `json:"attributes"`
	ComputedAt  time.Time              `json:"computed_at"`
}

// DeviceCache persists the fingerprint in the device bucket.
type DeviceCache struct {
	store *Store
}

func NewDeviceCache(store *Store) *DeviceCache {
	return &DeviceCache{store: store}
}

// Load returns the cached fingerprint, or nil when none was stored yet.
func (c *DeviceCache) Load() (*CachedFingerprint, error) {
	var cached *CachedFingerprint
	err := c.store.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(bucketDevice).Get(keyFingerprint)
		if raw == nil {
			return nil
		}
		var fp CachedFingerprint
		if err := json.Unmarshal(raw, &fp); err != nil {
			return fmt.Errorf("decode cached fingerprint: %w", err)
		}
		cached = &fp
		return nil
	})
	return cached, err
}

func (c *DeviceCache) Save(fp CachedFingerprint) error {
	raw, err := json.Marshal(fp)
	if err != nil {
		return err
	}
	return c.store.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketDevice).Put(keyFingerprint, raw)
	})
}

// Resolve returns the cached fingerprint when the attributes still hash to it,
// otherwise computes, stores and returns a new one.
func (c *DeviceCache) Resolve(attrs fingerprint.Attributes) (CachedFingerprint, error) {
	current := fingerprint.Compute(attrs)

	cached, err := c.Load()
	if err != nil {
		return CachedFingerprint{}, err
	}
	if cached != nil && cached.Fingerprint == current {
		return *cached, nil
	}

	fp := CachedFingerprint{Fingerprint: current, Attributes: attrs, ComputedAt: time.Now().UTC()}
	if err := c.Save(fp); err != nil {
		return CachedFingerprint{}, fmt.Errorf("save fingerprint: %w", err)
	}
	return fp, nil
}
