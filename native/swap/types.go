package swap

import "bondfarm/crypto"

// BasisPoints is the fee denominator.
const BasisPoints uint64 = 10_000

// MaxFeeBps bounds the pool fee at 10%.
const MaxFeeBps uint64 = 1_000

// Pool is a two-asset constant-product pool. Reserves are the ledger balances
// of Vault.
type Pool struct {
	ID        string
	AssetA    string
	AssetB    string
	FeeBps    uint64
	Authority crypto.Address
	Vault     crypto.Address
}

// Clone returns a copy of the pool definition.
func (p *Pool) Clone() *Pool {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}

func (p *Pool) other(asset string) (string, bool) {
	switch asset {
	case p.AssetA:
		return p.AssetB, true
	case p.AssetB:
		return p.AssetA, true
	default:
		return "", false
	}
}
