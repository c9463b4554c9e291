package swap

import (
	"strings"

	"bondfarm/crypto"
)

var (
	poolAuthoritySeed = []byte("swap/pool/")
	poolVaultSeed     = []byte("swap/vault/")
)

func normalizePoolID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

func normalizeAsset(asset string) string {
	return strings.ToUpper(strings.TrimSpace(asset))
}

// PoolAuthority signs transfers out of the pool's reserve vault.
func PoolAuthority(id string) crypto.Address {
	return crypto.DeriveAddress(poolAuthoritySeed, []byte(normalizePoolID(id)))
}

// PoolVault holds both reserves of the pool.
func PoolVault(id string) crypto.Address {
	return crypto.DeriveAddress(poolVaultSeed, []byte(normalizePoolID(id)))
}
