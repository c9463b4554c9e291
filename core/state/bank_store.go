package state

import (
	"strings"

	"bondfarm/crypto"
	"bondfarm/native/swap"
)

// BankBalance returns the stored balance, zero when absent.
func (tx *Tx) BankBalance(asset string, addr crypto.Address) (uint64, error) {
	var amount uint64
	if _, err := tx.KVGet(bankBalanceKey(asset, addr.Bytes()), &amount); err != nil {
		return 0, err
	}
	return amount, nil
}

// PutBankBalance stores a balance. Zero balances are removed.
func (tx *Tx) PutBankBalance(asset string, addr crypto.Address, amount uint64) error {
	key := bankBalanceKey(asset, addr.Bytes())
	if amount == 0 {
		return tx.KVDelete(key)
	}
	return tx.KVPut(key, amount)
}

// VaultOwner returns the registered signing authority of a vault.
func (tx *Tx) VaultOwner(vault crypto.Address) (crypto.Address, bool, error) {
	var encoded string
	ok, err := tx.KVGet(bankVaultOwnerKey(vault.Bytes()), &encoded)
	if err != nil || !ok {
		return crypto.Address{}, false, err
	}
	owner, err := decodeAddress(encoded)
	if err != nil {
		return crypto.Address{}, false, err
	}
	return owner, true, nil
}

// PutVaultOwner registers owner as the signing authority of vault.
func (tx *Tx) PutVaultOwner(vault, owner crypto.Address) error {
	return tx.KVPut(bankVaultOwnerKey(vault.Bytes()), encodeAddress(owner))
}

type storedSwapPool struct {
	ID        string
	AssetA    string
	AssetB    string
	FeeBps    uint64
	Authority string
	Vault     string
}

// SwapPool loads an AMM pool definition.
func (tx *Tx) SwapPool(id string) (*swap.Pool, bool, error) {
	var stored storedSwapPool
	ok, err := tx.KVGet(swapPoolKey(id), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	pool := &swap.Pool{ID: stored.ID, AssetA: stored.AssetA, AssetB: stored.AssetB, FeeBps: stored.FeeBps}
	if err := decodeAddresses(
		[]*crypto.Address{&pool.Authority, &pool.Vault},
		[]string{stored.Authority, stored.Vault},
	); err != nil {
		return nil, false, err
	}
	return pool, true, nil
}

// PutSwapPool stores an AMM pool definition.
func (tx *Tx) PutSwapPool(pool *swap.Pool) error {
	return tx.KVPut(swapPoolKey(pool.ID), &storedSwapPool{
		ID:        pool.ID,
		AssetA:    pool.AssetA,
		AssetB:    pool.AssetB,
		FeeBps:    pool.FeeBps,
		Authority: encodeAddress(pool.Authority),
		Vault:     encodeAddress(pool.Vault),
	})
}

// IsPaused reports whether module has been paused by an operator. Read
// errors are treated as not paused.
func (tx *Tx) IsPaused(module string) bool {
	var paused bool
	ok, err := tx.KVGet(pauseKey(module), &paused)
	return err == nil && ok && paused
}

// SetPaused records the pause flag of module.
func (tx *Tx) SetPaused(module string, paused bool) error {
	if strings.TrimSpace(module) == "" {
		return nil
	}
	return tx.KVPut(pauseKey(module), paused)
}

// AccountNonce returns the highest nonce accepted from addr.
func (tx *Tx) AccountNonce(addr crypto.Address) (uint64, error) {
	var nonce uint64
	if _, err := tx.KVGet(accountNonceKey(addr.Bytes()), &nonce); err != nil {
		return 0, err
	}
	return nonce, nil
}

// PutAccountNonce records nonce as the highest accepted from addr.
func (tx *Tx) PutAccountNonce(addr crypto.Address, nonce uint64) error {
	return tx.KVPut(accountNonceKey(addr.Bytes()), nonce)
}
