package bond

import (
	"strings"

	"bondfarm/crypto"
)

// Assets names the tokens and AMM pool a bond program trades.
type Assets struct {
	Main         string
	Stable       string
	Intermediate string
	SwapPool     string
}

func (a Assets) normalized() Assets {
	return Assets{
		Main:         normalizeAsset(a.Main),
		Stable:       normalizeAsset(a.Stable),
		Intermediate: normalizeAsset(a.Intermediate),
		SwapPool:     strings.TrimSpace(a.SwapPool),
	}
}

// Config is the single global bond configuration. BondedTotal never exceeds
// BondCap.
type Config struct {
	Authority          crypto.Address
	Developer          crypto.Address
	StateAddress       crypto.Address
	Assets             Assets
	MainVault          crypto.Address
	TreasuryVault      crypto.Address
	IntermediateVault  crypto.Address
	BondPrice          uint64
	BondCap            uint64
	BondedTotal        uint64
	BondOpen           bool
	VestDuration       int64
	RebaseRatioPercent uint64
	StartTime          int64
	TreasuryUnlocked   bool
}

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// Position tracks one owner's vesting allocation. VestDuration is captured at
// bond time so later admin changes do not affect it.
type Position struct {
	Owner           crypto.Address
	TotalBonded     uint64
	LastInteraction int64
	VestDuration    int64
}

// Clone returns a copy of the position.
func (p *Position) Clone() *Position {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}

func normalizeAsset(asset string) string {
	return strings.ToUpper(strings.TrimSpace(asset))
}

var (
	stateSeed = []byte("bond/state")
	vaultSeed = []byte("bond/vault")
)

// StateAddress signs transfers out of the bond vaults.
func StateAddress() crypto.Address { return crypto.DeriveAddress(stateSeed) }

// VaultAddress is the bond program's vault for asset.
func VaultAddress(asset string) crypto.Address {
	return crypto.DeriveAddress(vaultSeed, []byte(normalizeAsset(asset)))
}
