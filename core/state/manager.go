package state

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"bondfarm/storage"
)

// ErrTxClosed is returned when a committed or discarded transaction is used.
var ErrTxClosed = errors.New("state: transaction closed")

// Manager owns the backing database and hands out transactions. Commits are
// serialised; the host is responsible for ordering the transactions
// themselves.
type Manager struct {
	db storage.Database
	mu sync.Mutex
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

// Begin opens a transaction reading through to the committed state.
func (m *Manager) Begin() *Tx {
	return &Tx{manager: m, writes: make(map[string]pendingWrite)}
}

type pendingWrite struct {
	value   []byte
	deleted bool
}

// Tx buffers every write of one operation. Nothing reaches the database until
// Commit, which applies the whole set in a single batch.
type Tx struct {
	manager *Manager
	writes  map[string]pendingWrite
	closed  bool
}

func kvKey(key []byte) []byte {
	return ethcrypto.Keccak256(key)
}

func (tx *Tx) get(hashed []byte) ([]byte, bool, error) {
	if tx.closed {
		return nil, false, ErrTxClosed
	}
	if w, ok := tx.writes[string(hashed)]; ok {
		if w.deleted {
			return nil, false, nil
		}
		return w.value, true, nil
	}
	data, err := tx.manager.db.Get(hashed)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, len(data) > 0, nil
}

func (tx *Tx) put(hashed, value []byte) error {
	if tx.closed {
		return ErrTxClosed
	}
	tx.writes[string(hashed)] = pendingWrite{value: append([]byte(nil), value...)}
	return nil
}

// Dirty reports the number of keys written by the transaction.
func (tx *Tx) Dirty() int { return len(tx.writes) }

// Commit writes every buffered change atomically and closes the transaction.
func (tx *Tx) Commit() error {
	if tx.closed {
		return ErrTxClosed
	}
	tx.closed = true
	if len(tx.writes) == 0 {
		return nil
	}
	keys := make([]string, 0, len(tx.writes))
	for k := range tx.writes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	batch := new(storage.Batch)
	for _, k := range keys {
		w := tx.writes[k]
		if w.deleted {
			batch.Delete([]byte(k))
			continue
		}
		batch.Put([]byte(k), w.value)
	}
	tx.manager.mu.Lock()
	defer tx.manager.mu.Unlock()
	if err := tx.manager.db.Write(batch); err != nil {
		return fmt.Errorf("state: commit %d keys: %w", batch.Len(), err)
	}
	return nil
}

// Discard drops every buffered change.
func (tx *Tx) Discard() {
	tx.closed = true
	tx.writes = nil
}

// KVPut stores the provided value under the supplied key using RLP encoding.
// The key is hashed with keccak256 before it reaches the database.
func (tx *Tx) KVPut(key []byte, value interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return tx.put(kvKey(key), encoded)
}

// KVGet decodes the value stored under key into out. The boolean reports
// whether the key existed.
func (tx *Tx) KVGet(key []byte, out interface{}) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	data, ok, err := tx.get(kvKey(key))
	if err != nil || !ok {
		return false, err
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

// KVDelete removes key.
func (tx *Tx) KVDelete(key []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	if tx.closed {
		return ErrTxClosed
	}
	tx.writes[string(kvKey(key))] = pendingWrite{deleted: true}
	return nil
}

// KVAppend appends value to the byte-slice list stored under key. Duplicates
// are ignored and the list is kept sorted for deterministic iteration.
func (tx *Tx) KVAppend(key []byte, value []byte) error {
	var list [][]byte
	if err := tx.KVGetList(key, &list); err != nil {
		return err
	}
	for _, existing := range list {
		if bytes.Equal(existing, value) {
			return nil
		}
	}
	list = append(list, append([]byte(nil), value...))
	sort.Slice(list, func(i, j int) bool { return bytes.Compare(list[i], list[j]) < 0 })
	return tx.KVPut(key, list)
}

// KVRemove drops value from the list stored under key.
func (tx *Tx) KVRemove(key []byte, value []byte) error {
	var list [][]byte
	if err := tx.KVGetList(key, &list); err != nil {
		return err
	}
	kept := list[:0]
	for _, existing := range list {
		if !bytes.Equal(existing, value) {
			kept = append(kept, existing)
		}
	}
	return tx.KVPut(key, kept)
}

// KVGetList decodes the RLP list stored under key into the slice pointed to by
// out. A missing key yields an empty slice.
func (tx *Tx) KVGetList(key []byte, out interface{}) error {
	val := reflect.ValueOf(out)
	if val.Kind() != reflect.Ptr || val.IsNil() {
		return fmt.Errorf("kv: destination must be a non-nil pointer")
	}
	elem := val.Elem()
	if elem.Kind() != reflect.Slice {
		return fmt.Errorf("kv: destination must point to a slice")
	}
	ok, err := tx.KVGet(key, out)
	if err != nil {
		return err
	}
	if !ok {
		elem.Set(reflect.MakeSlice(elem.Type(), 0, 0))
	}
	return nil
}
