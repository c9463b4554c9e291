package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	coreerrors "bondfarm/core/errors"
	"bondfarm/crypto"
	nativecommon "bondfarm/native/common"
	"bondfarm/native/swap"
)

const (
	moduleBank = "bank"
	moduleSwap = "swap"
	moduleFarm = "farm"
	moduleBond = "bond"
)

var errPauseDenied = fmt.Errorf("core: caller may not pause module: %w", coreerrors.ErrUnauthorized)

// Transfer moves amount of asset from from to to on from's own authority.
func (n *Node) Transfer(ctx context.Context, asset string, from, to crypto.Address, amount uint64) error {
	_, err := n.update(ctx, OpTransfer, func(m *modules) error {
		return m.transfer(asset, from, to, amount)
	})
	return err
}

func (m *modules) transfer(asset string, from, to crypto.Address, amount uint64) error {
	if err := nativecommon.Guard(m.tx, moduleBank); err != nil {
		return err
	}
	if amount == 0 {
		return fmt.Errorf("core: transfer amount must be positive: %w", coreerrors.ErrInvalidParameter)
	}
	return m.bank.Transfer(asset, from, to, from, amount)
}

// Balance returns the balance of asset held by addr.
func (n *Node) Balance(ctx context.Context, asset string, addr crypto.Address) (uint64, error) {
	var amount uint64
	err := n.view(ctx, "bank.balance", func(m *modules) error {
		var err error
		amount, err = m.bank.Balance(asset, addr)
		return err
	})
	return amount, err
}

// Swap trades amountIn of assetIn through pool id on trader's authority.
func (n *Node) Swap(ctx context.Context, trader crypto.Address, id, assetIn string, amountIn, minOut uint64) (uint64, error) {
	var out uint64
	_, err := n.update(ctx, OpSwap, func(m *modules) error {
		var err error
		out, err = m.swapExact(trader, id, assetIn, amountIn, minOut)
		return err
	})
	return out, err
}

func (m *modules) swapExact(trader crypto.Address, id, assetIn string, amountIn, minOut uint64) (uint64, error) {
	if err := nativecommon.Guard(m.tx, moduleSwap); err != nil {
		return 0, err
	}
	return m.swap.Swap(id, trader, trader, trader, assetIn, amountIn, minOut)
}

// SwapAddLiquidity moves both pool assets from provider into pool id.
func (n *Node) SwapAddLiquidity(ctx context.Context, provider crypto.Address, id string, amountA, amountB uint64) error {
	_, err := n.update(ctx, OpAddLiquidity, func(m *modules) error {
		return m.addLiquidity(provider, id, amountA, amountB)
	})
	return err
}

func (m *modules) addLiquidity(provider crypto.Address, id string, amountA, amountB uint64) error {
	if err := nativecommon.Guard(m.tx, moduleSwap); err != nil {
		return err
	}
	return m.swap.AddLiquidity(id, provider, amountA, amountB)
}

// SwapCreatePool registers a constant-product pool. Only the farm or bond
// authority may do so.
func (n *Node) SwapCreatePool(ctx context.Context, caller crypto.Address, id, assetA, assetB string, feeBps uint64) (*swap.Pool, error) {
	var pool *swap.Pool
	_, err := n.update(ctx, OpCreateSwapPool, func(m *modules) error {
		var err error
		pool, err = m.createSwapPool(caller, id, assetA, assetB, feeBps)
		return err
	})
	return pool, err
}

func (m *modules) createSwapPool(caller crypto.Address, id, assetA, assetB string, feeBps uint64) (*swap.Pool, error) {
	ok, err := m.isOperator(caller, "")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("core: swap pool creation: %w", coreerrors.ErrUnauthorized)
	}
	return m.swap.CreatePool(id, assetA, assetB, feeBps)
}

// SwapPool returns pool id with its current reserves.
func (n *Node) SwapPool(ctx context.Context, id string) (*swap.Pool, uint64, uint64, error) {
	var (
		pool               *swap.Pool
		reserveA, reserveB uint64
	)
	err := n.view(ctx, "swap.pool", func(m *modules) error {
		var err error
		if pool, err = m.swap.Pool(id); err != nil {
			return err
		}
		reserveA, reserveB, err = m.swap.Reserves(id)
		return err
	})
	return pool, reserveA, reserveB, err
}

// SwapQuote previews the output of swapping amountIn of assetIn.
func (n *Node) SwapQuote(ctx context.Context, id, assetIn string, amountIn uint64) (uint64, error) {
	var out uint64
	err := n.view(ctx, "swap.quote", func(m *modules) error {
		var err error
		out, err = m.swap.Quote(id, assetIn, amountIn)
		return err
	})
	return out, err
}

// SetPaused toggles the pause flag of module. The farm authority controls
// the farm module, the bond authority controls the bond module, and either
// controls the bank and swap modules.
func (n *Node) SetPaused(ctx context.Context, caller crypto.Address, module string, paused bool) error {
	_, err := n.update(ctx, OpSetPaused, func(m *modules) error {
		return m.setPaused(caller, module, paused)
	})
	return err
}

func (m *modules) setPaused(caller crypto.Address, module string, paused bool) error {
	module = strings.ToLower(strings.TrimSpace(module))
	switch module {
	case moduleFarm, moduleBond, moduleBank, moduleSwap:
	default:
		return fmt.Errorf("core: unknown module %q: %w", module, coreerrors.ErrInvalidParameter)
	}
	ok, err := m.isOperator(caller, module)
	if err != nil {
		return err
	}
	if !ok {
		return errPauseDenied
	}
	return m.tx.SetPaused(module, paused)
}

// Paused reports the pause flag of module.
func (n *Node) Paused(ctx context.Context, module string) (bool, error) {
	var paused bool
	err := n.view(ctx, "admin.paused", func(m *modules) error {
		paused = m.tx.IsPaused(module)
		return nil
	})
	return paused, err
}

// isOperator reports whether caller administers module. An empty module
// accepts either authority.
func (m *modules) isOperator(caller crypto.Address, module string) (bool, error) {
	if module == "" || module == moduleFarm || module == moduleBank || module == moduleSwap {
		st, err := m.farm.Emission()
		switch {
		case err == nil && st.Authority.Equal(caller):
			return true, nil
		case err != nil && !errors.Is(err, coreerrors.ErrNotFound):
			return false, err
		}
		if module == moduleFarm {
			return false, nil
		}
	}
	cfg, err := m.bond.Config()
	if err != nil {
		if errors.Is(err, coreerrors.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return cfg.Authority.Equal(caller), nil
}
