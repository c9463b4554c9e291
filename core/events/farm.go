package events

import (
	"github.com/holiman/uint256"

	"bondfarm/core/types"
	"bondfarm/crypto"
)

const (
	TypeFarmRateChanged       = "farm.rateChanged"
	TypeFarmPoolCreated       = "farm.poolCreated"
	TypeFarmPoolClosed        = "farm.poolClosed"
	TypeFarmPoolPointChanged  = "farm.poolPointChanged"
	TypeFarmMultiplierChanged = "farm.poolMultiplierChanged"
	TypeFarmUserCreated       = "farm.userCreated"
	TypeFarmDeposit           = "farm.deposit"
	TypeFarmWithdraw          = "farm.withdraw"
	TypeFarmHarvest           = "farm.harvest"
)

// FarmRateChanged is emitted after every pool was settled under the old rate.
type FarmRateChanged struct {
	Rate uint64
}

func (FarmRateChanged) EventType() string { return TypeFarmRateChanged }

func (e FarmRateChanged) Event() *types.Event {
	return &types.Event{Type: TypeFarmRateChanged, Attributes: map[string]string{
		"rate": formatUint(e.Rate),
	}}
}

// FarmPoolCreated announces a new pool keyed by its staked asset.
type FarmPoolCreated struct {
	Asset      string
	Pool       crypto.Address
	Point      uint64
	Multiplier uint64
}

func (FarmPoolCreated) EventType() string { return TypeFarmPoolCreated }

func (e FarmPoolCreated) Event() *types.Event {
	return &types.Event{Type: TypeFarmPoolCreated, Attributes: map[string]string{
		"asset":      normalizeAsset(e.Asset),
		"pool":       e.Pool.String(),
		"point":      formatUint(e.Point),
		"multiplier": formatUint(e.Multiplier),
	}}
}

// FarmPoolClosed records removal of an empty pool from the emission split.
type FarmPoolClosed struct {
	Asset string
	Pool  crypto.Address
}

func (FarmPoolClosed) EventType() string { return TypeFarmPoolClosed }

func (e FarmPoolClosed) Event() *types.Event {
	return &types.Event{Type: TypeFarmPoolClosed, Attributes: map[string]string{
		"asset": normalizeAsset(e.Asset),
		"pool":  e.Pool.String(),
	}}
}

type FarmPoolPointChanged struct {
	Asset       string
	Point       uint64
	TotalPoints uint64
}

func (FarmPoolPointChanged) EventType() string { return TypeFarmPoolPointChanged }

func (e FarmPoolPointChanged) Event() *types.Event {
	return &types.Event{Type: TypeFarmPoolPointChanged, Attributes: map[string]string{
		"asset":       normalizeAsset(e.Asset),
		"point":       formatUint(e.Point),
		"totalPoints": formatUint(e.TotalPoints),
	}}
}

type FarmMultiplierChanged struct {
	Asset      string
	Multiplier uint64
}

func (FarmMultiplierChanged) EventType() string { return TypeFarmMultiplierChanged }

func (e FarmMultiplierChanged) Event() *types.Event {
	return &types.Event{Type: TypeFarmMultiplierChanged, Attributes: map[string]string{
		"asset":      normalizeAsset(e.Asset),
		"multiplier": formatUint(e.Multiplier),
	}}
}

type FarmUserCreated struct {
	Asset string
	Owner crypto.Address
}

func (FarmUserCreated) EventType() string { return TypeFarmUserCreated }

func (e FarmUserCreated) Event() *types.Event {
	return &types.Event{Type: TypeFarmUserCreated, Attributes: map[string]string{
		"asset": normalizeAsset(e.Asset),
		"owner": e.Owner.String(),
	}}
}

type FarmDeposit struct {
	Asset  string
	Owner  crypto.Address
	Amount uint64
}

func (FarmDeposit) EventType() string { return TypeFarmDeposit }

func (e FarmDeposit) Event() *types.Event {
	return &types.Event{Type: TypeFarmDeposit, Attributes: map[string]string{
		"asset":  normalizeAsset(e.Asset),
		"owner":  e.Owner.String(),
		"amount": formatUint(e.Amount),
	}}
}

// FarmWithdraw carries both the gross amount and the early-exit fee.
type FarmWithdraw struct {
	Asset  string
	Owner  crypto.Address
	Amount uint64
	Fee    uint64
}

func (FarmWithdraw) EventType() string { return TypeFarmWithdraw }

func (e FarmWithdraw) Event() *types.Event {
	return &types.Event{Type: TypeFarmWithdraw, Attributes: map[string]string{
		"asset":  normalizeAsset(e.Asset),
		"owner":  e.Owner.String(),
		"amount": formatUint(e.Amount),
		"fee":    formatUint(e.Fee),
	}}
}

type FarmHarvest struct {
	Asset       string
	Owner       crypto.Address
	Amount      uint64
	AccPerShare *uint256.Int
}

func (FarmHarvest) EventType() string { return TypeFarmHarvest }

func (e FarmHarvest) Event() *types.Event {
	return &types.Event{Type: TypeFarmHarvest, Attributes: map[string]string{
		"asset":       normalizeAsset(e.Asset),
		"owner":       e.Owner.String(),
		"amount":      formatUint(e.Amount),
		"accPerShare": formatWide(e.AccPerShare),
	}}
}

// AuthorityChanged is shared by the farm and bond modules.
type AuthorityChanged struct {
	Module    string
	Authority crypto.Address
}

func (e AuthorityChanged) EventType() string { return e.Module + ".authorityChanged" }

func (e AuthorityChanged) Event() *types.Event {
	return &types.Event{Type: e.EventType(), Attributes: map[string]string{
		"authority": e.Authority.String(),
	}}
}

// VaultRecovered records an administrative drain of a module vault.
type VaultRecovered struct {
	Module string
	Vault  crypto.Address
	To     crypto.Address
	Asset  string
	Amount uint64
}

func (e VaultRecovered) EventType() string { return e.Module + ".recovered" }

func (e VaultRecovered) Event() *types.Event {
	return &types.Event{Type: e.EventType(), Attributes: map[string]string{
		"vault":  e.Vault.String(),
		"to":     e.To.String(),
		"asset":  normalizeAsset(e.Asset),
		"amount": formatUint(e.Amount),
	}}
}
