package events

import (
	"strconv"

	"bondfarm/core/types"
	"bondfarm/crypto"
)

const (
	TypeBondPositionCreated = "bond.positionCreated"
	TypeBondBonded          = "bond.bonded"
	TypeBondClaimed         = "bond.claimed"
	TypeBondConfigUpdated   = "bond.configUpdated"
)

type BondPositionCreated struct {
	Owner crypto.Address
}

func (BondPositionCreated) EventType() string { return TypeBondPositionCreated }

func (e BondPositionCreated) Event() *types.Event {
	return &types.Event{Type: TypeBondPositionCreated, Attributes: map[string]string{
		"owner": e.Owner.String(),
	}}
}

// BondBonded records a stablecoin deposit converted into a vesting allocation.
type BondBonded struct {
	Owner        crypto.Address
	AmountIn     uint64
	Received     uint64
	AmountOut    uint64
	BondedTotal  uint64
	VestDuration int64
}

func (BondBonded) EventType() string { return TypeBondBonded }

func (e BondBonded) Event() *types.Event {
	return &types.Event{Type: TypeBondBonded, Attributes: map[string]string{
		"owner":        e.Owner.String(),
		"amountIn":     formatUint(e.AmountIn),
		"received":     formatUint(e.Received),
		"amountOut":    formatUint(e.AmountOut),
		"bondedTotal":  formatUint(e.BondedTotal),
		"vestDuration": strconv.FormatInt(e.VestDuration, 10),
	}}
}

type BondClaimed struct {
	Owner     crypto.Address
	Amount    uint64
	Remaining uint64
}

func (BondClaimed) EventType() string { return TypeBondClaimed }

func (e BondClaimed) Event() *types.Event {
	return &types.Event{Type: TypeBondClaimed, Attributes: map[string]string{
		"owner":     e.Owner.String(),
		"amount":    formatUint(e.Amount),
		"remaining": formatUint(e.Remaining),
	}}
}

// BondConfigUpdated is emitted by every bond admin setter.
type BondConfigUpdated struct {
	Field string
	Value string
}

func (BondConfigUpdated) EventType() string { return TypeBondConfigUpdated }

func (e BondConfigUpdated) Event() *types.Event {
	return &types.Event{Type: TypeBondConfigUpdated, Attributes: map[string]string{
		"field": e.Field,
		"value": e.Value,
	}}
}
