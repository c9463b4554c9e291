package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"bondfarm/core/genesis"
	"bondfarm/native/bond"
)

// ErrGenesisApplied is returned when genesis already ran on the database.
var ErrGenesisApplied = errors.New("core: genesis already applied")

// GenesisApplied reports whether the database has been initialised.
func (n *Node) GenesisApplied(ctx context.Context) (bool, error) {
	var applied bool
	err := n.view(ctx, "genesis.status", func(m *modules) error {
		var err error
		_, applied, err = m.tx.GenesisTime()
		return err
	})
	return applied, err
}

// ApplyGenesis writes spec into a fresh database in one transaction. The
// spec time, when set, replaces the node clock for every genesis step.
func (n *Node) ApplyGenesis(ctx context.Context, spec *genesis.Spec) error {
	if spec == nil {
		return fmt.Errorf("core: genesis spec must not be nil")
	}
	if err := spec.Validate(); err != nil {
		return fmt.Errorf("core: genesis: %w", err)
	}
	_, err := n.updateAt(ctx, "genesis.apply", spec.Time, func(m *modules) error {
		if _, applied, err := m.tx.GenesisTime(); err != nil {
			return err
		} else if applied {
			return ErrGenesisApplied
		}
		if err := applyGenesis(m, spec); err != nil {
			return err
		}
		return m.tx.MarkGenesis(m.now)
	})
	return err
}

func applyGenesis(m *modules, spec *genesis.Spec) error {
	for i, b := range spec.Balances {
		if err := m.bank.Mint(b.Asset, b.Recipient(), b.Amount); err != nil {
			return fmt.Errorf("genesis: balances[%d]: %w", i, err)
		}
	}
	for i, p := range spec.SwapPools {
		if _, err := m.swap.CreatePool(p.ID, p.AssetA, p.AssetB, p.FeeBps); err != nil {
			return fmt.Errorf("genesis: swap_pools[%d]: %w", i, err)
		}
		if p.AmountA == 0 && p.AmountB == 0 {
			continue
		}
		if err := m.swap.AddLiquidity(p.ID, p.ProviderAddress(), p.AmountA, p.AmountB); err != nil {
			return fmt.Errorf("genesis: swap_pools[%d]: liquidity: %w", i, err)
		}
	}
	authority := spec.AuthorityAddress()
	if f := spec.Farm; f != nil {
		if _, err := m.farm.Initialize(authority, f.RewardAsset, f.EmissionRate); err != nil {
			return fmt.Errorf("genesis: farm: %w", err)
		}
		pools := append([]genesis.FarmPoolSpec(nil), f.Pools...)
		sort.Slice(pools, func(i, j int) bool {
			return strings.ToUpper(pools[i].Asset) < strings.ToUpper(pools[j].Asset)
		})
		for _, pool := range pools {
			if _, err := m.farm.CreatePool(authority, pool.Asset, pool.Point, pool.Multiplier); err != nil {
				return fmt.Errorf("genesis: farm pool %s: %w", pool.Asset, err)
			}
		}
		if f.Fund > 0 {
			if err := m.farm.Fund(authority, f.Fund); err != nil {
				return fmt.Errorf("genesis: farm fund: %w", err)
			}
		}
	}
	if b := spec.Bond; b != nil {
		cfg, err := m.bond.Initialize(authority, spec.DeveloperAddress(), bond.Assets{
			Main:         b.MainAsset,
			Stable:       b.StableAsset,
			Intermediate: b.IntermediateAsset,
			SwapPool:     b.SwapPool,
		})
		if err != nil {
			return fmt.Errorf("genesis: bond: %w", err)
		}
		if b.Price > 0 {
			if err := m.bond.SetPrice(authority, b.Price); err != nil {
				return fmt.Errorf("genesis: bond price: %w", err)
			}
		}
		if b.Cap > 0 {
			if err := m.bond.SetCap(authority, b.Cap); err != nil {
				return fmt.Errorf("genesis: bond cap: %w", err)
			}
		}
		if secs := int64(b.VestDuration.Seconds()); secs > 0 {
			if err := m.bond.SetVestDuration(authority, secs); err != nil {
				return fmt.Errorf("genesis: bond vest duration: %w", err)
			}
		}
		if b.Fund > 0 {
			if err := m.bond.Fund(authority, b.Fund); err != nil {
				return fmt.Errorf("genesis: bond fund: %w", err)
			}
		}
		if b.TreasuryFloat > 0 {
			if err := m.bank.Mint(cfg.Assets.Stable, cfg.TreasuryVault, b.TreasuryFloat); err != nil {
				return fmt.Errorf("genesis: bond treasury float: %w", err)
			}
		}
		if b.Open {
			if err := m.bond.SetOpen(authority, true); err != nil {
				return fmt.Errorf("genesis: bond open: %w", err)
			}
		}
	}
	for _, module := range spec.Paused {
		if err := m.tx.SetPaused(module, true); err != nil {
			return fmt.Errorf("genesis: pause %s: %w", module, err)
		}
	}
	return nil
}
