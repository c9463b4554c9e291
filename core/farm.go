package core

import (
	"context"

	"bondfarm/crypto"
	"bondfarm/native/farm"
)

// FarmJoin registers owner as a staker of the pool for asset.
func (n *Node) FarmJoin(ctx context.Context, owner crypto.Address, asset string) (*farm.Staker, error) {
	var staker *farm.Staker
	_, err := n.update(ctx, "farm.join", func(m *modules) error {
		var err error
		staker, err = m.farm.Join(owner, asset)
		return err
	})
	return staker, err
}

// FarmDeposit stakes amount of asset for owner.
func (n *Node) FarmDeposit(ctx context.Context, owner crypto.Address, asset string, amount uint64) (*farm.Staker, error) {
	var staker *farm.Staker
	_, err := n.update(ctx, "farm.deposit", func(m *modules) error {
		var err error
		staker, err = m.farm.Deposit(owner, asset, amount)
		return err
	})
	return staker, err
}

// FarmWithdraw unstakes amount of asset and returns the early-exit fee kept.
func (n *Node) FarmWithdraw(ctx context.Context, owner crypto.Address, asset string, amount uint64) (uint64, error) {
	var fee uint64
	_, err := n.update(ctx, "farm.withdraw", func(m *modules) error {
		var err error
		fee, err = m.farm.Withdraw(owner, asset, amount)
		return err
	})
	return fee, err
}

// FarmHarvest pays out owner's accrued reward from the pool for asset.
func (n *Node) FarmHarvest(ctx context.Context, owner crypto.Address, asset string) (uint64, error) {
	var paid uint64
	_, err := n.update(ctx, "farm.harvest", func(m *modules) error {
		var err error
		paid, err = m.farm.Harvest(owner, asset)
		return err
	})
	return paid, err
}

// FarmPending previews what FarmHarvest would pay now.
func (n *Node) FarmPending(ctx context.Context, owner crypto.Address, asset string) (uint64, error) {
	var pending uint64
	err := n.view(ctx, "farm.pending", func(m *modules) error {
		var err error
		pending, err = m.farm.Pending(owner, asset)
		return err
	})
	return pending, err
}

// FarmEmission returns the emission controller state.
func (n *Node) FarmEmission(ctx context.Context) (*farm.EmissionState, error) {
	var st *farm.EmissionState
	err := n.view(ctx, "farm.emission", func(m *modules) error {
		var err error
		st, err = m.farm.Emission()
		return err
	})
	return st, err
}

// FarmPool returns the pool for asset as last stored.
func (n *Node) FarmPool(ctx context.Context, asset string) (*farm.Pool, error) {
	var pool *farm.Pool
	err := n.view(ctx, "farm.pool", func(m *modules) error {
		var err error
		pool, err = m.farm.Pool(asset)
		return err
	})
	return pool, err
}

// FarmPools returns every live pool ordered by asset.
func (n *Node) FarmPools(ctx context.Context) ([]*farm.Pool, error) {
	var pools []*farm.Pool
	err := n.view(ctx, "farm.pools", func(m *modules) error {
		assets, err := m.tx.FarmPoolAssets()
		if err != nil {
			return err
		}
		pools = make([]*farm.Pool, 0, len(assets))
		for _, asset := range assets {
			pool, err := m.farm.Pool(asset)
			if err != nil {
				return err
			}
			pools = append(pools, pool)
		}
		return nil
	})
	return pools, err
}

// FarmStaker returns owner's staker record for asset.
func (n *Node) FarmStaker(ctx context.Context, owner crypto.Address, asset string) (*farm.Staker, error) {
	var staker *farm.Staker
	err := n.view(ctx, "farm.staker", func(m *modules) error {
		var err error
		staker, err = m.farm.Staker(owner, asset)
		return err
	})
	return staker, err
}

// FarmInitialize creates the emission controller.
func (n *Node) FarmInitialize(ctx context.Context, authority crypto.Address, rewardAsset string, rate uint64) (*farm.EmissionState, error) {
	var st *farm.EmissionState
	_, err := n.update(ctx, "farm.initialize", func(m *modules) error {
		var err error
		st, err = m.farm.Initialize(authority, rewardAsset, rate)
		return err
	})
	return st, err
}

// FarmSetAuthority hands farm administration to next.
func (n *Node) FarmSetAuthority(ctx context.Context, caller, next crypto.Address) error {
	_, err := n.update(ctx, "farm.setAuthority", func(m *modules) error {
		return m.farm.SetAuthority(caller, next)
	})
	return err
}

// FarmFund moves reward tokens from caller into the reward vault.
func (n *Node) FarmFund(ctx context.Context, caller crypto.Address, amount uint64) error {
	_, err := n.update(ctx, "farm.fund", func(m *modules) error {
		return m.farm.Fund(caller, amount)
	})
	return err
}

// FarmSetEmissionRate settles every pool and changes the emission rate.
func (n *Node) FarmSetEmissionRate(ctx context.Context, caller crypto.Address, rate uint64) error {
	_, err := n.update(ctx, "farm.setEmissionRate", func(m *modules) error {
		return m.farm.ChangeEmissionRate(caller, rate)
	})
	return err
}

// FarmCreatePool settles every pool and adds a pool for asset.
func (n *Node) FarmCreatePool(ctx context.Context, caller crypto.Address, asset string, point, multiplier uint64) (*farm.Pool, error) {
	var pool *farm.Pool
	_, err := n.update(ctx, "farm.createPool", func(m *modules) error {
		var err error
		pool, err = m.farm.CreatePool(caller, asset, point, multiplier)
		return err
	})
	return pool, err
}

// FarmSetPoolPoint settles every pool and reweights the pool for asset.
func (n *Node) FarmSetPoolPoint(ctx context.Context, caller crypto.Address, asset string, point uint64) error {
	_, err := n.update(ctx, "farm.setPoolPoint", func(m *modules) error {
		return m.farm.ChangePoolPoint(caller, asset, point)
	})
	return err
}

// FarmSetPoolMultiplier updates the stored amount multiplier of a pool.
func (n *Node) FarmSetPoolMultiplier(ctx context.Context, caller crypto.Address, asset string, multiplier uint64) error {
	_, err := n.update(ctx, "farm.setPoolMultiplier", func(m *modules) error {
		return m.farm.ChangePoolMultiplier(caller, asset, multiplier)
	})
	return err
}

// FarmClosePool removes an empty pool.
func (n *Node) FarmClosePool(ctx context.Context, caller crypto.Address, asset string) error {
	_, err := n.update(ctx, "farm.closePool", func(m *modules) error {
		return m.farm.ClosePool(caller, asset)
	})
	return err
}

// FarmRecoverRewards drains the reward vault to to.
func (n *Node) FarmRecoverRewards(ctx context.Context, caller, to crypto.Address) (uint64, error) {
	var amount uint64
	_, err := n.update(ctx, "farm.recoverRewards", func(m *modules) error {
		var err error
		amount, err = m.farm.RecoverRewards(caller, to)
		return err
	})
	return amount, err
}

// FarmRecoverFees drains collected fees of asset to to.
func (n *Node) FarmRecoverFees(ctx context.Context, caller crypto.Address, asset string, to crypto.Address) (uint64, error) {
	var amount uint64
	_, err := n.update(ctx, "farm.recoverFees", func(m *modules) error {
		var err error
		amount, err = m.farm.RecoverFees(caller, asset, to)
		return err
	})
	return amount, err
}
