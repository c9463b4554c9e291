package farm

import (
	"strings"

	"github.com/holiman/uint256"

	"bondfarm/crypto"
)

// EmissionState is the single farm-wide record. TotalPoints always equals the
// sum of Point across live pools.
type EmissionState struct {
	Authority    crypto.Address
	RewardAsset  string
	StateAddress crypto.Address
	RewardVault  crypto.Address
	FeeVault     crypto.Address
	TotalPoints  uint64
	EmissionRate uint64
	StartTime    int64
}

// Clone returns a deep copy of the emission state.
func (s *EmissionState) Clone() *EmissionState {
	if s == nil {
		return nil
	}
	clone := *s
	return &clone
}

// Pool aggregates every staker of a single asset.
type Pool struct {
	Asset            string
	Address          crypto.Address
	Vault            crypto.Address
	Point            uint64
	Deposited        uint64
	AccPerShare      *uint256.Int
	LastAccrual      int64
	LockDuration     int64
	AmountMultiplier uint64
	TotalUsers       uint64
}

// Clone returns a deep copy of the pool.
func (p *Pool) Clone() *Pool {
	if p == nil {
		return nil
	}
	clone := *p
	clone.AccPerShare = cloneWide(p.AccPerShare)
	return &clone
}

// Staker is the position of one owner inside one pool. RewardDebt equals
// Amount*AccPerShare/Precision after every balance-affecting operation.
type Staker struct {
	Asset         string
	Owner         crypto.Address
	Amount        uint64
	RewardDebt    *uint256.Int
	PendingReward *uint256.Int
	ExtraReward   *uint256.Int
	LastAction    int64
}

// Clone returns a deep copy of the staker.
func (s *Staker) Clone() *Staker {
	if s == nil {
		return nil
	}
	clone := *s
	clone.RewardDebt = cloneWide(s.RewardDebt)
	clone.PendingReward = cloneWide(s.PendingReward)
	clone.ExtraReward = cloneWide(s.ExtraReward)
	return &clone
}

func (s *Staker) ensureDefaults() {
	if s.RewardDebt == nil {
		s.RewardDebt = new(uint256.Int)
	}
	if s.PendingReward == nil {
		s.PendingReward = new(uint256.Int)
	}
	if s.ExtraReward == nil {
		s.ExtraReward = new(uint256.Int)
	}
}

func cloneWide(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return v.Clone()
}

// NormalizeAsset canonicalises asset identifiers used as pool keys.
func NormalizeAsset(asset string) string {
	return strings.ToUpper(strings.TrimSpace(asset))
}
