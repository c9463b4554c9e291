package farm

import (
	"fmt"

	"github.com/holiman/uint256"

	coreerrors "bondfarm/core/errors"
	"bondfarm/core/events"
	"bondfarm/crypto"
	nativecommon "bondfarm/native/common"
)

func (e *Engine) authorize(caller crypto.Address) (*EmissionState, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	st, err := e.emission()
	if err != nil {
		return nil, err
	}
	if caller.IsZero() || !caller.Equal(st.Authority) {
		return nil, fmt.Errorf("farm engine: caller %s is not the authority: %w", caller.String(), coreerrors.ErrUnauthorized)
	}
	return st, nil
}

// Initialize creates the farm-wide emission state and its vaults. It may run
// only once.
func (e *Engine) Initialize(authority crypto.Address, rewardAsset string, rate uint64) (*EmissionState, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if authority.IsZero() {
		return nil, errZeroAddress
	}
	asset := NormalizeAsset(rewardAsset)
	if asset == "" {
		return nil, errEmptyAsset
	}
	if _, exists, err := e.state.FarmEmission(); err != nil {
		return nil, err
	} else if exists {
		return nil, fmt.Errorf("farm engine: emission state: %w", coreerrors.ErrAlreadyExists)
	}
	st := &EmissionState{
		Authority:    authority,
		RewardAsset:  asset,
		StateAddress: StateAddress(),
		RewardVault:  RewardVaultAddress(),
		FeeVault:     FeeVaultAddress(),
		EmissionRate: rate,
		StartTime:    e.now(),
	}
	if err := e.bank.SetOwner(st.RewardVault, st.StateAddress); err != nil {
		return nil, err
	}
	if err := e.bank.SetOwner(st.FeeVault, st.StateAddress); err != nil {
		return nil, err
	}
	if err := e.state.PutFarmEmission(st); err != nil {
		return nil, err
	}
	return st.Clone(), nil
}

// SetAuthority hands farm administration to next.
func (e *Engine) SetAuthority(caller, next crypto.Address) error {
	st, err := e.authorize(caller)
	if err != nil {
		return err
	}
	if next.IsZero() {
		return errZeroAddress
	}
	st.Authority = next
	if err := e.state.PutFarmEmission(st); err != nil {
		return err
	}
	e.emit(events.AuthorityChanged{Module: moduleName, Authority: next})
	return nil
}

// Fund moves reward tokens from the caller into the reward vault.
func (e *Engine) Fund(caller crypto.Address, amount uint64) error {
	st, err := e.authorize(caller)
	if err != nil {
		return err
	}
	if amount == 0 {
		return errZeroAmount
	}
	return e.bank.Transfer(st.RewardAsset, caller, st.RewardVault, caller, amount)
}

// ChangeEmissionRate settles every pool under the old rate, then applies rate.
func (e *Engine) ChangeEmissionRate(caller crypto.Address, rate uint64) error {
	st, err := e.authorize(caller)
	if err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if err := e.sweep(st, e.now()); err != nil {
		return err
	}
	st.EmissionRate = rate
	if err := e.state.PutFarmEmission(st); err != nil {
		return err
	}
	e.emit(events.FarmRateChanged{Rate: rate})
	return nil
}

// CreatePool adds a pool for asset with the given weight.
func (e *Engine) CreatePool(caller crypto.Address, asset string, point, multiplier uint64) (*Pool, error) {
	st, err := e.authorize(caller)
	if err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	key := NormalizeAsset(asset)
	if key == "" {
		return nil, errEmptyAsset
	}
	if _, exists, err := e.state.FarmPool(key); err != nil {
		return nil, err
	} else if exists {
		return nil, fmt.Errorf("farm engine: pool %s: %w", key, coreerrors.ErrAlreadyExists)
	}
	now := e.now()
	if err := e.sweep(st, now); err != nil {
		return nil, err
	}
	total, err := nativecommon.AddU64(st.TotalPoints, point)
	if err != nil {
		return nil, err
	}
	st.TotalPoints = total
	pool := &Pool{
		Asset:            key,
		Address:          PoolAddress(key),
		Vault:            PoolVaultAddress(key),
		Point:            point,
		AccPerShare:      new(uint256.Int),
		LastAccrual:      now,
		LockDuration:     e.params.LockDuration,
		AmountMultiplier: multiplier,
	}
	if err := e.bank.SetOwner(pool.Vault, pool.Address); err != nil {
		return nil, err
	}
	if err := e.state.PutFarmPool(pool); err != nil {
		return nil, err
	}
	if err := e.state.PutFarmEmission(st); err != nil {
		return nil, err
	}
	e.emit(events.FarmPoolCreated{Asset: key, Pool: pool.Address, Point: point, Multiplier: multiplier})
	return pool.Clone(), nil
}

// ChangePoolPoint reweights a pool after settling every pool.
func (e *Engine) ChangePoolPoint(caller crypto.Address, asset string, point uint64) error {
	st, err := e.authorize(caller)
	if err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if _, err := e.pool(asset); err != nil {
		return err
	}
	if err := e.sweep(st, e.now()); err != nil {
		return err
	}
	// Reload after the sweep so the stored accumulator is kept.
	pool, err := e.pool(asset)
	if err != nil {
		return err
	}
	total, err := nativecommon.SubU64(st.TotalPoints, pool.Point)
	if err != nil {
		return err
	}
	if total, err = nativecommon.AddU64(total, point); err != nil {
		return err
	}
	st.TotalPoints = total
	pool.Point = point
	if err := e.state.PutFarmPool(pool); err != nil {
		return err
	}
	if err := e.state.PutFarmEmission(st); err != nil {
		return err
	}
	e.emit(events.FarmPoolPointChanged{Asset: pool.Asset, Point: point, TotalPoints: total})
	return nil
}

// ChangePoolMultiplier updates the stored amount multiplier. It does not
// take part in accrual.
func (e *Engine) ChangePoolMultiplier(caller crypto.Address, asset string, multiplier uint64) error {
	if _, err := e.authorize(caller); err != nil {
		return err
	}
	pool, err := e.pool(asset)
	if err != nil {
		return err
	}
	pool.AmountMultiplier = multiplier
	if err := e.state.PutFarmPool(pool); err != nil {
		return err
	}
	e.emit(events.FarmMultiplierChanged{Asset: pool.Asset, Multiplier: multiplier})
	return nil
}

// ClosePool removes an empty pool and its weight from the emission split.
func (e *Engine) ClosePool(caller crypto.Address, asset string) error {
	st, err := e.authorize(caller)
	if err != nil {
		return err
	}
	pool, err := e.pool(asset)
	if err != nil {
		return err
	}
	if pool.Deposited > 0 {
		return fmt.Errorf("farm engine: pool %s holds %d: %w", pool.Asset, pool.Deposited, coreerrors.ErrPoolWorking)
	}
	if err := e.sweep(st, e.now()); err != nil {
		return err
	}
	if st.TotalPoints, err = nativecommon.SubU64(st.TotalPoints, pool.Point); err != nil {
		return err
	}
	if err := e.state.DeleteFarmPool(pool.Asset); err != nil {
		return err
	}
	if err := e.state.PutFarmEmission(st); err != nil {
		return err
	}
	e.emit(events.FarmPoolClosed{Asset: pool.Asset, Pool: pool.Address})
	return nil
}

// RecoverRewards drains the reward vault to to.
func (e *Engine) RecoverRewards(caller, to crypto.Address) (uint64, error) {
	st, err := e.authorize(caller)
	if err != nil {
		return 0, err
	}
	return e.drain(st.RewardVault, st.StateAddress, st.RewardAsset, to)
}

// RecoverFees drains the fee vault's balance of asset to to.
func (e *Engine) RecoverFees(caller crypto.Address, asset string, to crypto.Address) (uint64, error) {
	st, err := e.authorize(caller)
	if err != nil {
		return 0, err
	}
	key := NormalizeAsset(asset)
	if key == "" {
		return 0, errEmptyAsset
	}
	return e.drain(st.FeeVault, st.StateAddress, key, to)
}

func (e *Engine) drain(vault, authority crypto.Address, asset string, to crypto.Address) (uint64, error) {
	if to.IsZero() {
		return 0, errZeroAddress
	}
	balance, err := e.bank.Balance(asset, vault)
	if err != nil {
		return 0, err
	}
	if balance > 0 {
		if err := e.bank.Transfer(asset, vault, to, authority, balance); err != nil {
			return 0, err
		}
	}
	e.emit(events.VaultRecovered{Module: moduleName, Vault: vault, To: to, Asset: asset, Amount: balance})
	return balance, nil
}
