package substate

import (
	"encoding/binary"
	"fmt"

	"github.com/cockroachdb/pebble"

	"github.com/radixcore/engine/internal/addressing"
	"github.com/radixcore/engine/internal/sbor"
)

// rootMarkerPrefix namespaces root-set membership keys away from
// substate entry keys within the same pebble keyspace.
var rootMarkerPrefix = []byte{0xFF}

// PebbleStore is a Store backed by a cockroachdb/pebble database,
// used for on-disk runs of the CLI harness. Substates are stored as
// SBOR-encoded values under a SubstateId-derived key; ScanKV performs
// a pebble prefix iteration over a separately derived ordered key,
// since the SubstateId key itself does not preserve lexical order
// across kinds. The scan visits entries in ascending raw-key order, but
// ScanKV returns them as a map, which does not keep that order.
type PebbleStore struct {
	db *pebble.DB
}

var _ Store = (*PebbleStore)(nil)

// OpenPebbleStore opens (creating if absent) a pebble database at dir.
func OpenPebbleStore(dir string) (*PebbleStore, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("substate: open pebble store: %w", err)
	}
	return &PebbleStore{db: db}, nil
}

// Close releases the underlying pebble database.
func (s *PebbleStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("substate: close pebble store: %w", err)
	}
	return nil
}

func (s *PebbleStore) Get(id SubstateId) (OutputValue, error) {
	raw, closer, err := s.db.Get(id.key())
	if err == pebble.ErrNotFound {
		return OutputValue{}, ErrNotFound
	}
	if err != nil {
		return OutputValue{}, fmt.Errorf("substate: pebble get: %w", err)
	}
	defer closer.Close()
	cp := make([]byte, len(raw))
	copy(cp, raw)
	return decodeOutputValue(cp)
}

func (s *PebbleStore) Put(id SubstateId, value OutputValue) error {
	enc, err := encodeOutputValue(value)
	if err != nil {
		return err
	}
	if err := s.db.Set(id.key(), enc, pebble.Sync); err != nil {
		return fmt.Errorf("substate: pebble set: %w", err)
	}
	if kvKey, ok := kvOrderedKey(id); ok {
		if err := s.db.Set(kvKey, id.key(), pebble.Sync); err != nil {
			return fmt.Errorf("substate: pebble set ordered index: %w", err)
		}
	}
	return nil
}

func (s *PebbleStore) IsRoot(id SubstateId) bool {
	key := append(append([]byte{}, rootMarkerPrefix...), id.key()...)
	_, closer, err := s.db.Get(key)
	if err != nil {
		return false
	}
	closer.Close()
	return true
}

func (s *PebbleStore) SetRoot(id SubstateId) {
	key := append(append([]byte{}, rootMarkerPrefix...), id.key()...)
	_ = s.db.Set(key, []byte{1}, pebble.Sync)
}

// ScanKV walks the ordered secondary index over a key-value space and
// loads each referenced substate in ascending raw key order. The
// canonical key does not preserve lexical order, so a second, ordered
// mapping is maintained specifically to make this scan possible.
func (s *PebbleStore) ScanKV(kv addressing.KeyValueStoreId) (map[string]Substate, error) {
	lower := kvOrderedPrefix(kv)
	upper := append(append([]byte{}, lower...), 0xFF)
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return nil, fmt.Errorf("substate: pebble scan: %w", err)
	}
	defer iter.Close()

	out := make(map[string]Substate)
	for iter.First(); iter.Valid(); iter.Next() {
		rawKey := iter.Key()[len(lower):]
		primaryKey := append([]byte{}, iter.Value()...)
		raw, closer, err := s.db.Get(primaryKey)
		if err != nil {
			return nil, fmt.Errorf("substate: pebble scan lookup: %w", err)
		}
		ov, err := decodeOutputValue(append([]byte{}, raw...))
		closer.Close()
		if err != nil {
			return nil, err
		}
		out[string(rawKey)] = ov.Substate
	}
	return out, nil
}

// kvOrderedPrefix is the fixed-length ordered-index prefix for entries
// under kv: a distinct namespace byte followed by the kv id, so the
// secondary index sorts by (kv id, raw entry key) ascending.
func kvOrderedPrefix(kv addressing.KeyValueStoreId) []byte {
	buf := []byte{0xFE}
	buf = append(buf, kv.TxHash[:]...)
	var counterBytes [4]byte
	binary.BigEndian.PutUint32(counterBytes[:], kv.Counter)
	return append(buf, counterBytes[:]...)
}

// kvOrderedKey returns the ordered-index key for a KeyValueStoreEntry
// SubstateId, or ok=false for any other kind (which has no ordered
// index).
func kvOrderedKey(id SubstateId) (key []byte, ok bool) {
	if id.Kind != KindKeyValueStoreEntry {
		return nil, false
	}
	prefix := kvOrderedPrefix(id.KVStore)
	return append(prefix, id.KVStoreEntryKey...), true
}

func encodeOutputValue(ov OutputValue) ([]byte, error) {
	v, err := encodeSubstate(ov.Substate)
	if err != nil {
		return nil, err
	}
	wrapped := sbor.Struct(sbor.U64(uint64(ov.Version)), v)
	return sbor.Encode(wrapped), nil
}

func decodeOutputValue(b []byte) (OutputValue, error) {
	v, err := sbor.Decode(b)
	if err != nil {
		return OutputValue{}, fmt.Errorf("substate: decode output value: %w", err)
	}
	if v.Type != sbor.TypeStruct || len(v.Fields) != 2 {
		return OutputValue{}, fmt.Errorf("substate: decode output value: malformed wrapper")
	}
	sub, err := decodeSubstate(v.Fields[1])
	if err != nil {
		return OutputValue{}, err
	}
	return OutputValue{Version: Version(v.Fields[0].U64), Substate: sub}, nil
}
