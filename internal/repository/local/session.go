package local

import (
	"go.etcd.io/bbolt"
)

var keyOpenBreak = []byte("open_break")

// SessionState remembers the break the device started so the matching end
// carries the same id, including across restarts and offline periods.
type SessionState struct {
	store *Store
}

func NewSessionState(store *Store) *SessionState {
	return &SessionState{store: store}
}

// OpenBreak returns the id of the break in progress, or "".
func (s *SessionState) OpenBreak() (string, error) {
	var id string
	err := s.store.db.View(func(tx *bbolt.Tx) error {
		id = string(tx.Bucket(bucketDevice).Get(keyOpenBreak))
		return nil
	})
	return id, err
}

func (s *SessionState) SetOpenBreak(id string) error {
	return s.store.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketDevice).Put(keyOpenBreak, []byte(id))
	})
}

func (s *SessionState) ClearOpenBreak() error {
	return s.store.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketDevice).Delete(keyOpenBreak)
	})
}
