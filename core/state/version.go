package state

import (
	"errors"
	"fmt"
	"math"
)

// StateVersion identifies the expected on-disk schema layout. Increment it
// whenever a stored record changes shape.
const StateVersion uint32 = 1

var (
	stateVersionKey = []byte("state/version")
	// ErrStateVersionMismatch indicates the stored schema version does not
	// match the version supported by the current binary.
	ErrStateVersionMismatch = errors.New("state: schema version mismatch")
)

// SetStateVersion records the provided schema version.
func (tx *Tx) SetStateVersion(version uint32) error {
	return tx.KVPut(stateVersionKey, uint64(version))
}

// StateVersion returns the stored schema version and whether it was present.
func (tx *Tx) StateVersion() (uint32, bool, error) {
	var stored uint64
	ok, err := tx.KVGet(stateVersionKey, &stored)
	if err != nil {
		return 0, false, err
	}
	if !ok {
		return 0, false, nil
	}
	if stored > uint64(math.MaxUint32) {
		return 0, false, fmt.Errorf("state: schema version overflow: %d", stored)
	}
	return uint32(stored), true, nil
}

// EnsureStateVersion stamps a fresh database with StateVersion and rejects a
// database written by a different schema unless allowMigrate is set.
func EnsureStateVersion(m *Manager, allowMigrate bool) error {
	if m == nil {
		return fmt.Errorf("state: manager must not be nil")
	}
	tx := m.Begin()
	version, ok, err := tx.StateVersion()
	if err != nil {
		tx.Discard()
		return err
	}
	if !ok {
		if err := tx.SetStateVersion(StateVersion); err != nil {
			tx.Discard()
			return err
		}
		return tx.Commit()
	}
	tx.Discard()
	if version == StateVersion || allowMigrate {
		return nil
	}
	return fmt.Errorf("%w: on-disk=%d expected=%d", ErrStateVersionMismatch, version, StateVersion)
}

var genesisKey = []byte("state/genesis")

// GenesisTime returns the timestamp at which genesis was applied, if any.
func (tx *Tx) GenesisTime() (int64, bool, error) {
	var stored uint64
	ok, err := tx.KVGet(genesisKey, &stored)
	if err != nil || !ok {
		return 0, ok, err
	}
	return decodeTime(stored), true, nil
}

// MarkGenesis records that genesis was applied at ts.
func (tx *Tx) MarkGenesis(ts int64) error {
	return tx.KVPut(genesisKey, encodeTime(ts))
}
