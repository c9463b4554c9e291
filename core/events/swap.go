package events

import (
	"strings"

	"bondfarm/core/types"
	"bondfarm/crypto"
)

const (
	// TypeSwapExecuted is emitted whenever an AMM pool fills a swap.
	TypeSwapExecuted = "swap.executed"
	// TypeSwapPoolCreated is emitted when a constant-product pool is seeded.
	TypeSwapPoolCreated = "swap.poolCreated"
)

type SwapExecuted struct {
	PoolID    string
	Trader    crypto.Address
	AssetIn   string
	AssetOut  string
	AmountIn  uint64
	AmountOut uint64
}

func (SwapExecuted) EventType() string { return TypeSwapExecuted }

func (e SwapExecuted) Event() *types.Event {
	return &types.Event{
		Type: TypeSwapExecuted,
		Attributes: map[string]string{
			"poolId":    strings.TrimSpace(e.PoolID),
			"trader":    e.Trader.String(),
			"assetIn":   normalizeAsset(e.AssetIn),
			"assetOut":  normalizeAsset(e.AssetOut),
			"amountIn":  formatUint(e.AmountIn),
			"amountOut": formatUint(e.AmountOut),
		},
	}
}

type SwapPoolCreated struct {
	PoolID   string
	AssetA   string
	AssetB   string
	ReserveA uint64
	ReserveB uint64
	FeeBps   uint64
}

func (SwapPoolCreated) EventType() string { return TypeSwapPoolCreated }

func (e SwapPoolCreated) Event() *types.Event {
	return &types.Event{
		Type: TypeSwapPoolCreated,
		Attributes: map[string]string{
			"poolId":   strings.TrimSpace(e.PoolID),
			"assetA":   normalizeAsset(e.AssetA),
			"assetB":   normalizeAsset(e.AssetB),
			"reserveA": formatUint(e.ReserveA),
			"reserveB": formatUint(e.ReserveB),
			"feeBps":   formatUint(e.FeeBps),
		},
	}
}
