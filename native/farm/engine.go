package farm

import (
	"errors"
	"fmt"
	"sort"

	"github.com/holiman/uint256"

	coreerrors "bondfarm/core/errors"
	"bondfarm/core/events"
	"bondfarm/crypto"
	nativecommon "bondfarm/native/common"
)

var (
	errNilState     = errors.New("farm engine: state not configured")
	errNilBank      = errors.New("farm engine: transfer ledger not configured")
	errNilPool      = errors.New("farm engine: pool not loaded")
	errNotInit      = fmt.Errorf("farm engine: emission state not initialised: %w", coreerrors.ErrNotFound)
	errPoolMissing  = fmt.Errorf("farm engine: pool not found: %w", coreerrors.ErrNotFound)
	errStakerAbsent = fmt.Errorf("farm engine: staker not joined: %w", coreerrors.ErrNotFound)
	errZeroAmount   = fmt.Errorf("farm engine: amount must be positive: %w", coreerrors.ErrInvalidParameter)
	errEmptyAsset   = fmt.Errorf("farm engine: asset required: %w", coreerrors.ErrInvalidParameter)
	errZeroAddress  = fmt.Errorf("farm engine: address required: %w", coreerrors.ErrInvalidParameter)
)

type engineState interface {
	FarmEmission() (*EmissionState, bool, error)
	PutFarmEmission(state *EmissionState) error
	FarmPool(asset string) (*Pool, bool, error)
	PutFarmPool(pool *Pool) error
	DeleteFarmPool(asset string) error
	FarmPoolAssets() ([]string, error)
	FarmStaker(asset string, owner crypto.Address) (*Staker, bool, error)
	PutFarmStaker(staker *Staker) error
}

// Transferer moves fungible balances. Authority must be the source address
// or its registered owner.
type Transferer interface {
	Transfer(asset string, from, to, authority crypto.Address, amount uint64) error
	Balance(asset string, addr crypto.Address) (uint64, error)
	SetOwner(vault, owner crypto.Address) error
}

// Engine applies farm state transitions. It is not safe for concurrent use;
// the host serialises calls and wraps each in a state transaction.
type Engine struct {
	state   engineState
	bank    Transferer
	emitter events.Emitter
	pauses  nativecommon.PauseView
	nowFn   func() int64
	params  Params
}

// NewEngine constructs a farm engine with the supplied parameters.
func NewEngine(params Params) *Engine {
	return &Engine{params: params.normalized(), emitter: events.NoopEmitter{}}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetBank wires the asset transfer collaborator.
func (e *Engine) SetBank(bank Transferer) { e.bank = bank }

func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

// SetEmitter configures the event emitter used for farm notifications.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the clock used by the engine.
func (e *Engine) SetNowFunc(now func() int64) { e.nowFn = now }

// Params returns the active farm parameters.
func (e *Engine) Params() Params { return e.params }

func (e *Engine) now() int64 {
	if e.nowFn != nil {
		return e.nowFn()
	}
	return 0
}

func (e *Engine) emit(evt events.Event) {
	if e.emitter != nil {
		e.emitter.Emit(evt)
	}
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.bank == nil {
		return errNilBank
	}
	return nil
}

func (e *Engine) emission() (*EmissionState, error) {
	st, ok, err := e.state.FarmEmission()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errNotInit
	}
	return st, nil
}

func (e *Engine) pool(asset string) (*Pool, error) {
	key := NormalizeAsset(asset)
	if key == "" {
		return nil, errEmptyAsset
	}
	pool, ok, err := e.state.FarmPool(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", errPoolMissing, key)
	}
	if pool.AccPerShare == nil {
		pool.AccPerShare = new(uint256.Int)
	}
	return pool, nil
}

func (e *Engine) staker(asset string, owner crypto.Address) (*Staker, error) {
	staker, ok, err := e.state.FarmStaker(NormalizeAsset(asset), owner)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errStakerAbsent
	}
	staker.ensureDefaults()
	return staker, nil
}

// forEachPool loads, mutates and stores every live pool in key order.
func (e *Engine) forEachPool(fn func(*Pool) error) error {
	assets, err := e.state.FarmPoolAssets()
	if err != nil {
		return err
	}
	sort.Strings(assets)
	for _, asset := range assets {
		pool, err := e.pool(asset)
		if err != nil {
			return err
		}
		if err := fn(pool); err != nil {
			return err
		}
		if err := e.state.PutFarmPool(pool); err != nil {
			return err
		}
	}
	return nil
}

// sweep settles every pool under the current emission parameters. It must run
// before any change to the rate or to the point split.
func (e *Engine) sweep(st *EmissionState, now int64) error {
	return e.forEachPool(func(p *Pool) error {
		return p.Accrue(now, st.EmissionRate, st.TotalPoints)
	})
}

// Join registers owner as a staker of the pool.
func (e *Engine) Join(owner crypto.Address, asset string) (*Staker, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if owner.IsZero() {
		return nil, errZeroAddress
	}
	pool, err := e.pool(asset)
	if err != nil {
		return nil, err
	}
	if _, exists, err := e.state.FarmStaker(pool.Asset, owner); err != nil {
		return nil, err
	} else if exists {
		return nil, fmt.Errorf("farm engine: staker already joined %s: %w", pool.Asset, coreerrors.ErrAlreadyExists)
	}
	total, err := nativecommon.AddU64(pool.TotalUsers, 1)
	if err != nil {
		return nil, err
	}
	pool.TotalUsers = total
	staker := &Staker{Asset: pool.Asset, Owner: owner, LastAction: e.now()}
	staker.ensureDefaults()
	if err := e.state.PutFarmPool(pool); err != nil {
		return nil, err
	}
	if err := e.state.PutFarmStaker(staker); err != nil {
		return nil, err
	}
	e.emit(events.FarmUserCreated{Asset: pool.Asset, Owner: owner})
	return staker.Clone(), nil
}

// Deposit stakes amount of the pool asset from owner.
func (e *Engine) Deposit(owner crypto.Address, asset string, amount uint64) (*Staker, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if amount == 0 {
		return nil, errZeroAmount
	}
	st, err := e.emission()
	if err != nil {
		return nil, err
	}
	pool, err := e.pool(asset)
	if err != nil {
		return nil, err
	}
	staker, err := e.staker(pool.Asset, owner)
	if err != nil {
		return nil, err
	}
	now := e.now()
	if err := pool.Accrue(now, st.EmissionRate, st.TotalPoints); err != nil {
		return nil, err
	}
	if err := staker.settle(pool); err != nil {
		return nil, err
	}
	if staker.Amount, err = nativecommon.AddU64(staker.Amount, amount); err != nil {
		return nil, err
	}
	if pool.Deposited, err = nativecommon.AddU64(pool.Deposited, amount); err != nil {
		return nil, err
	}
	if err := staker.resetDebt(pool); err != nil {
		return nil, err
	}
	staker.LastAction = now
	if err := e.store(pool, staker); err != nil {
		return nil, err
	}
	if err := e.bank.Transfer(pool.Asset, owner, pool.Vault, owner, amount); err != nil {
		return nil, err
	}
	e.emit(events.FarmDeposit{Asset: pool.Asset, Owner: owner, Amount: amount})
	return staker.Clone(), nil
}

// Withdraw unstakes amount and returns the early-exit fee charged, if any.
func (e *Engine) Withdraw(owner crypto.Address, asset string, amount uint64) (uint64, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return 0, err
	}
	if amount == 0 {
		return 0, errZeroAmount
	}
	st, err := e.emission()
	if err != nil {
		return 0, err
	}
	pool, err := e.pool(asset)
	if err != nil {
		return 0, err
	}
	staker, err := e.staker(pool.Asset, owner)
	if err != nil {
		return 0, err
	}
	if amount > staker.Amount {
		return 0, fmt.Errorf("farm engine: withdraw %d of %d: %w", amount, staker.Amount, coreerrors.ErrInsufficientBalance)
	}
	now := e.now()
	unlockAt, err := nativecommon.AddSeconds(staker.LastAction, pool.LockDuration)
	if err != nil {
		return 0, err
	}
	var fee uint64
	if now < unlockAt {
		if fee, err = nativecommon.MulDivU64(amount, e.params.WithdrawFeePercent, 100); err != nil {
			return 0, err
		}
	}
	net := amount - fee

	if err := pool.Accrue(now, st.EmissionRate, st.TotalPoints); err != nil {
		return 0, err
	}
	if err := staker.settle(pool); err != nil {
		return 0, err
	}
	if staker.Amount, err = nativecommon.SubU64(staker.Amount, amount); err != nil {
		return 0, err
	}
	if pool.Deposited, err = nativecommon.SubU64(pool.Deposited, amount); err != nil {
		return 0, err
	}
	if err := staker.resetDebt(pool); err != nil {
		return 0, err
	}
	staker.LastAction = now
	if err := e.store(pool, staker); err != nil {
		return 0, err
	}
	if net > 0 {
		if err := e.bank.Transfer(pool.Asset, pool.Vault, owner, pool.Address, net); err != nil {
			return 0, err
		}
	}
	if fee > 0 {
		if err := e.bank.Transfer(pool.Asset, pool.Vault, st.FeeVault, pool.Address, fee); err != nil {
			return 0, err
		}
	}
	e.emit(events.FarmWithdraw{Asset: pool.Asset, Owner: owner, Amount: amount, Fee: fee})
	return fee, nil
}

// Harvest pays out the owner's settled and extra reward.
func (e *Engine) Harvest(owner crypto.Address, asset string) (uint64, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return 0, err
	}
	st, err := e.emission()
	if err != nil {
		return 0, err
	}
	pool, err := e.pool(asset)
	if err != nil {
		return 0, err
	}
	staker, err := e.staker(pool.Asset, owner)
	if err != nil {
		return 0, err
	}
	if err := pool.Accrue(e.now(), st.EmissionRate, st.TotalPoints); err != nil {
		return 0, err
	}
	if err := staker.settle(pool); err != nil {
		return 0, err
	}
	total, err := staker.harvestable()
	if err != nil {
		return 0, err
	}
	if !total.IsUint64() {
		return 0, fmt.Errorf("farm engine: harvest %s exceeds 64 bits: %w", total.Dec(), coreerrors.ErrMathOverflow)
	}
	payout := total.Uint64()
	staker.PendingReward = new(uint256.Int)
	staker.ExtraReward = new(uint256.Int)
	if err := staker.resetDebt(pool); err != nil {
		return 0, err
	}
	if err := e.store(pool, staker); err != nil {
		return 0, err
	}
	if payout > 0 {
		if err := e.bank.Transfer(st.RewardAsset, st.RewardVault, owner, st.StateAddress, payout); err != nil {
			return 0, err
		}
	}
	e.emit(events.FarmHarvest{Asset: pool.Asset, Owner: owner, Amount: payout, AccPerShare: pool.AccPerShare.Clone()})
	return payout, nil
}

// Pending projects the reward owner could harvest at the current time
// without mutating state.
func (e *Engine) Pending(owner crypto.Address, asset string) (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	st, err := e.emission()
	if err != nil {
		return 0, err
	}
	pool, err := e.pool(asset)
	if err != nil {
		return 0, err
	}
	staker, err := e.staker(pool.Asset, owner)
	if err != nil {
		return 0, err
	}
	projected := pool.Clone()
	if err := projected.Accrue(e.now(), st.EmissionRate, st.TotalPoints); err != nil {
		return 0, err
	}
	view := staker.Clone()
	if err := view.settle(projected); err != nil {
		return 0, err
	}
	total, err := view.harvestable()
	if err != nil {
		return 0, err
	}
	if !total.IsUint64() {
		return 0, fmt.Errorf("farm engine: pending exceeds 64 bits: %w", coreerrors.ErrMathOverflow)
	}
	return total.Uint64(), nil
}

// Emission returns a copy of the farm-wide state.
func (e *Engine) Emission() (*EmissionState, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	st, err := e.emission()
	if err != nil {
		return nil, err
	}
	return st.Clone(), nil
}

// Pool returns a copy of the pool for asset.
func (e *Engine) Pool(asset string) (*Pool, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	pool, err := e.pool(asset)
	if err != nil {
		return nil, err
	}
	return pool.Clone(), nil
}

// Staker returns a copy of owner's position in the pool.
func (e *Engine) Staker(owner crypto.Address, asset string) (*Staker, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	staker, err := e.staker(asset, owner)
	if err != nil {
		return nil, err
	}
	return staker.Clone(), nil
}

func (e *Engine) store(pool *Pool, staker *Staker) error {
	if err := e.state.PutFarmPool(pool); err != nil {
		return err
	}
	return e.state.PutFarmStaker(staker)
}
