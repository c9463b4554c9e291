package farm

import "bondfarm/crypto"

var (
	stateSeed     = []byte("farm/state")
	rewardSeed    = []byte("farm/reward-vault")
	feeSeed       = []byte("farm/fee-vault")
	poolSeed      = []byte("farm/pool")
	poolVaultSeed = []byte("farm/pool-vault")
)

// StateAddress is the derived identity that signs reward and fee vault
// transfers.
func StateAddress() crypto.Address { return crypto.DeriveAddress(stateSeed) }

// RewardVaultAddress holds the emission token.
func RewardVaultAddress() crypto.Address { return crypto.DeriveAddress(rewardSeed) }

// FeeVaultAddress collects early-withdraw fees of every pool.
func FeeVaultAddress() crypto.Address { return crypto.DeriveAddress(feeSeed) }

// PoolAddress is the derived authority of the pool's vault.
func PoolAddress(asset string) crypto.Address {
	return crypto.DeriveAddress(poolSeed, []byte(NormalizeAsset(asset)))
}

// PoolVaultAddress holds the staked balance of the pool.
func PoolVaultAddress(asset string) crypto.Address {
	return crypto.DeriveAddress(poolVaultSeed, []byte(NormalizeAsset(asset)))
}
