package intents

import (
	"encoding/binary"
	"fmt"
	"math/big"

	bolt "go.etcd.io/bbolt"

	"intentnet/core/types"
)

var (
	bucketIntents = []byte("intents")
	bucketMeta    = []byte("meta")
	keySequence   = []byte("sequence")
)

const storedIntentSize = 20 + 4 + 4 + 32 + 32 + 1 + 1 + 8

// BoltStore persists intents in a bbolt database so escrowed inventory
// survives restarts. Amounts are stored as fixed 32-byte words.
type BoltStore struct {
	db *bolt.DB
}

// OpenBoltStore opens (or creates) the intent database at path.
func OpenBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("intents store: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketIntents); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketMeta)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("intents store: init: %w", err)
	}
	return &BoltStore{db: db}, nil
}

// Close releases the underlying database.
func (s *BoltStore) Close() error { return s.db.Close() }

func encodeIntent(intent *types.Intent) ([]byte, error) {
	amountIn, err := types.ToUint256(intent.AmountIn)
	if err != nil {
		return nil, err
	}
	amountOut, err := types.ToUint256(intent.AmountOut)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 0, storedIntentSize)
	buf = append(buf, intent.Owner[:]...)
	buf = append(buf, intent.AssetIn.Bytes()...)
	buf = append(buf, intent.AssetOut.Bytes()...)
	in32 := amountIn.Bytes32()
	out32 := amountOut.Bytes32()
	buf = append(buf, in32[:]...)
	buf = append(buf, out32[:]...)
	buf = append(buf, byte(intent.SwapType))
	if intent.Partial {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	deadline := make([]byte, 8)
	binary.BigEndian.PutUint64(deadline, uint64(intent.Deadline))
	buf = append(buf, deadline...)
	return buf, nil
}

func decodeIntent(id types.IntentID, raw []byte) (*types.Intent, error) {
	if len(raw) != storedIntentSize {
		return nil, fmt.Errorf("intents store: corrupt record for %s: %d bytes", id, len(raw))
	}
	intent := &types.Intent{ID: id}
	copy(intent.Owner[:], raw[:20])
	raw = raw[20:]
	intent.AssetIn = types.AssetID(binary.BigEndian.Uint32(raw[:4]))
	intent.AssetOut = types.AssetID(binary.BigEndian.Uint32(raw[4:8]))
	raw = raw[8:]
	intent.AmountIn = new(big.Int).SetBytes(raw[:32])
	intent.AmountOut = new(big.Int).SetBytes(raw[32:64])
	raw = raw[64:]
	intent.SwapType = types.SwapType(raw[0])
	intent.Partial = raw[1] == 1
	intent.Deadline = int64(binary.BigEndian.Uint64(raw[2:10]))
	return intent, nil
}

func (s *BoltStore) IntentPut(intent *types.Intent) error {
	raw, err := encodeIntent(intent)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketIntents).Put(intent.ID.Bytes(), raw)
	})
}

func (s *BoltStore) IntentGet(id types.IntentID) (*types.Intent, bool) {
	var intent *types.Intent
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketIntents).Get(id.Bytes())
		if raw == nil {
			return nil
		}
		decoded, err := decodeIntent(id, raw)
		if err != nil {
			return err
		}
		intent = decoded
		return nil
	})
	if err != nil || intent == nil {
		return nil, false
	}
	return intent, true
}

func (s *BoltStore) IntentRemove(id types.IntentID) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketIntents).Delete(id.Bytes())
	})
}

// IntentIterate walks intents in key order, which sorts by deadline because
// the deadline occupies the identifier's high bits.
func (s *BoltStore) IntentIterate(fn func(*types.Intent) bool) error {
	return s.db.View(func(tx *bolt.Tx) error {
		cursor := tx.Bucket(bucketIntents).Cursor()
		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			id, err := types.IntentIDFromBytes(k)
			if err != nil {
				return err
			}
			intent, err := decodeIntent(id, v)
			if err != nil {
				return err
			}
			if !fn(intent) {
				return nil
			}
		}
		return nil
	})
}

func (s *BoltStore) NextSequence() (uint64, error) {
	var seq uint64
	err := s.db.Update(func(tx *bolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		raw := meta.Get(keySequence)
		if raw != nil {
			seq = binary.BigEndian.Uint64(raw)
		}
		next := make([]byte, 8)
		binary.BigEndian.PutUint64(next, seq+1)
		return meta.Put(keySequence, next)
	})
	if err != nil {
		return 0, err
	}
	return seq, nil
}
