// Package badgerstore persists audit journal/decisions entries in an
// embedded Badger KV store, following the key-namespace and
// db.Update/db.View idiom observed in
// marmos91-dittofs/pkg/metadata/store/badger/{root,server}.go.
package badgerstore

import (
	"encoding/binary"
	"fmt"

	badgerdb "github.com/dgraph-io/badger/v4"
)

// Key namespace: "<ring>:<seq padded to 20 digits>" -> encoded entry bytes.
// Zero-padding keeps lexicographic iteration order equal to seq order.
const seqKeyFormat = "%s:%020d"

// Store wraps a Badger database dedicated to audit persistence.
type Store struct {
	db *badgerdb.DB
}

// Open opens (creating if absent) a Badger database rooted at dir.
func Open(dir string) (*Store, error) {
	opts := badgerdb.DefaultOptions(dir).WithLogger(nil)
	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open audit badger store at %s: %w", dir, err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put persists one ring entry keyed by (ring, seq).
func (s *Store) Put(ring string, seq uint64, value []byte) error {
	key := []byte(fmt.Sprintf(seqKeyFormat, ring, seq))
	return s.db.Update(func(txn *badgerdb.Txn) error {
		if err := txn.Set(key, value); err != nil {
			return fmt.Errorf("persist audit entry ring=%s seq=%d: %w", ring, seq, err)
		}
		return nil
	})
}

// Delete removes a persisted entry, used when the owning ring truncates it.
func (s *Store) Delete(ring string, seq uint64) error {
	key := []byte(fmt.Sprintf(seqKeyFormat, ring, seq))
	return s.db.Update(func(txn *badgerdb.Txn) error {
		err := txn.Delete(key)
		if err != nil && err != badgerdb.ErrKeyNotFound {
			return fmt.Errorf("delete audit entry ring=%s seq=%d: %w", ring, seq, err)
		}
		return nil
	})
}

// LoadAll replays every persisted entry for ring, in seq order, calling fn
// with the decoded bytes. Used at boot to repopulate an in-memory ring.
func (s *Store) LoadAll(ring string, fn func(seq uint64, value []byte) error) error {
	prefix := []byte(ring + ":")
	return s.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = true

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			key := item.Key()
			seq := seqFromKey(key, len(prefix))
			if err := item.Value(func(val []byte) error {
				buf := make([]byte, len(val))
				copy(buf, val)
				return fn(seq, buf)
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

func seqFromKey(key []byte, prefixLen int) uint64 {
	var seq uint64
	for _, c := range key[prefixLen:] {
		if c < '0' || c > '9' {
			break
		}
		seq = seq*10 + uint64(c-'0')
	}
	return seq
}

// PutU64 is a small helper for persisting scalar offsets (e.g. a cursor's
// last-read position) alongside ring entries.
func (s *Store) PutU64(key string, v uint64) error {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set([]byte("scalar:"+key), buf)
	})
}

// GetU64 reads a scalar offset previously stored with PutU64.
func (s *Store) GetU64(key string) (uint64, bool, error) {
	var v uint64
	var found bool
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte("scalar:" + key))
		if err == badgerdb.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			if len(val) != 8 {
				return fmt.Errorf("scalar %s: malformed value length %d", key, len(val))
			}
			v = binary.BigEndian.Uint64(val)
			return nil
		})
	})
	if err != nil {
		return 0, false, fmt.Errorf("read scalar %s: %w", key, err)
	}
	return v, found, nil
}
