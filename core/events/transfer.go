package events

import (
	"bondfarm/core/types"
	"bondfarm/crypto"
)

const (
	// TypeTransfer is emitted for every ledger balance movement.
	TypeTransfer = "bank.transfer"
	// TypeMint is emitted when genesis or an operator credits new supply.
	TypeMint = "bank.mint"
)

type Transfer struct {
	Asset     string
	From      crypto.Address
	To        crypto.Address
	Authority crypto.Address
	Amount    uint64
}

func (Transfer) EventType() string { return TypeTransfer }

func (e Transfer) Event() *types.Event {
	attrs := map[string]string{
		"from":   e.From.String(),
		"to":     e.To.String(),
		"amount": formatUint(e.Amount),
	}
	if asset := normalizeAsset(e.Asset); asset != "" {
		attrs["asset"] = asset
	}
	if !e.Authority.IsZero() && !e.Authority.Equal(e.From) {
		attrs["authority"] = e.Authority.String()
	}
	return &types.Event{Type: TypeTransfer, Attributes: attrs}
}

type Mint struct {
	Asset  string
	To     crypto.Address
	Amount uint64
}

func (Mint) EventType() string { return TypeMint }

func (e Mint) Event() *types.Event {
	return &types.Event{Type: TypeMint, Attributes: map[string]string{
		"asset":  normalizeAsset(e.Asset),
		"to":     e.To.String(),
		"amount": formatUint(e.Amount),
	}}
}
