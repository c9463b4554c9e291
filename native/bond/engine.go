package bond

import (
	"errors"
	"fmt"

	coreerrors "bondfarm/core/errors"
	"bondfarm/core/events"
	"bondfarm/crypto"
	nativecommon "bondfarm/native/common"
)

var (
	errNilState     = errors.New("bond engine: state not configured")
	errNilBank      = errors.New("bond engine: transfer ledger not configured")
	errNilSwap      = errors.New("bond engine: swap router not configured")
	errNotInit      = fmt.Errorf("bond engine: config not initialised: %w", coreerrors.ErrNotFound)
	errNoPosition   = fmt.Errorf("bond engine: position not initialised: %w", coreerrors.ErrNotFound)
	errZeroAmount   = fmt.Errorf("bond engine: amount must be positive: %w", coreerrors.ErrInvalidParameter)
	errZeroAddress  = fmt.Errorf("bond engine: address required: %w", coreerrors.ErrInvalidParameter)
	errBondClosed   = fmt.Errorf("bond engine: bonding is closed: %w", coreerrors.ErrClosed)
	errOverTxLimit  = fmt.Errorf("bond engine: amount exceeds per-transaction limit: %w", coreerrors.ErrCapacityExceeded)
	errOverCap      = fmt.Errorf("bond engine: bond cap reached: %w", coreerrors.ErrCapacityExceeded)
	errNothingOwed  = fmt.Errorf("bond engine: no vested balance: %w", coreerrors.ErrNothingToClaim)
	errZeroReceived = fmt.Errorf("bond engine: swap produced nothing to bond: %w", coreerrors.ErrInvalidParameter)
)

type engineState interface {
	BondConfig() (*Config, bool, error)
	PutBondConfig(cfg *Config) error
	BondPosition(owner crypto.Address) (*Position, bool, error)
	PutBondPosition(pos *Position) error
}

// Transferer moves fungible balances. Authority must be the source address
// or its registered owner.
type Transferer interface {
	Transfer(asset string, from, to, authority crypto.Address, amount uint64) error
	Balance(asset string, addr crypto.Address) (uint64, error)
	SetOwner(vault, owner crypto.Address) error
}

// Swapper executes a swap on an external venue. Its return value is not
// trusted; the engine measures the destination balance instead.
type Swapper interface {
	Swap(poolID string, from, to, authority crypto.Address, assetIn string, amountIn, minOut uint64) (uint64, error)
}

// Engine applies bond state transitions.
type Engine struct {
	state   engineState
	bank    Transferer
	swap    Swapper
	emitter events.Emitter
	pauses  nativecommon.PauseView
	nowFn   func() int64
}

// NewEngine returns an unwired bond engine.
func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

func (e *Engine) SetBank(bank Transferer) { e.bank = bank }

func (e *Engine) SetSwapper(swap Swapper) { e.swap = swap }

func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

// SetEmitter configures the event emitter used for bond notifications.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the clock used by the engine.
func (e *Engine) SetNowFunc(now func() int64) { e.nowFn = now }

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

func (e *Engine) config() (*Config, error) {
	cfg, ok, err := e.state.BondConfig()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errNotInit
	}
	return cfg, nil
}

func (e *Engine) position(owner crypto.Address) (*Position, error) {
	pos, ok, err := e.state.BondPosition(owner)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errNoPosition
	}
	return pos, nil
}

// InitPosition creates the owner's empty bond position.
func (e *Engine) InitPosition(owner crypto.Address) (*Position, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if owner.IsZero() {
		return nil, errZeroAddress
	}
	if _, err := e.config(); err != nil {
		return nil, err
	}
	if _, exists, err := e.state.BondPosition(owner); err != nil {
		return nil, err
	} else if exists {
		return nil, fmt.Errorf("bond engine: position %s: %w", owner.String(), coreerrors.ErrAlreadyExists)
	}
	pos := &Position{Owner: owner}
	if err := e.state.PutBondPosition(pos); err != nil {
		return nil, err
	}
	e.emit(events.BondPositionCreated{Owner: owner})
	return pos.Clone(), nil
}

// Bond swaps treasury stablecoin into the intermediate asset, credits the
// measured output as a vesting allocation, and pulls amountIn from owner.
func (e *Engine) Bond(owner crypto.Address, amountIn uint64) (uint64, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	if e.swap == nil {
		return 0, errNilSwap
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return 0, err
	}
	if amountIn == 0 {
		return 0, errZeroAmount
	}
	cfg, err := e.config()
	if err != nil {
		return 0, err
	}
	if !cfg.BondOpen {
		return 0, errBondClosed
	}
	if amountIn > MaxBondPerTx {
		return 0, fmt.Errorf("%w: %d > %d", errOverTxLimit, amountIn, MaxBondPerTx)
	}
	pos, err := e.position(owner)
	if err != nil {
		return 0, err
	}

	before, err := e.bank.Balance(cfg.Assets.Intermediate, cfg.IntermediateVault)
	if err != nil {
		return 0, err
	}
	if _, err := e.swap.Swap(cfg.Assets.SwapPool, cfg.TreasuryVault, cfg.IntermediateVault, cfg.StateAddress, cfg.Assets.Stable, amountIn, 1); err != nil {
		return 0, fmt.Errorf("bond engine: swap: %w", err)
	}
	after, err := e.bank.Balance(cfg.Assets.Intermediate, cfg.IntermediateVault)
	if err != nil {
		return 0, err
	}
	received, err := nativecommon.SubU64(after, before)
	if err != nil {
		return 0, err
	}
	amountOut, err := AmountOut(received, cfg.BondPrice)
	if err != nil {
		return 0, err
	}
	if amountOut == 0 {
		return 0, errZeroReceived
	}
	bonded, err := nativecommon.AddU64(cfg.BondedTotal, amountOut)
	if err != nil {
		return 0, err
	}
	if bonded > cfg.BondCap {
		return 0, fmt.Errorf("%w: %d > %d", errOverCap, bonded, cfg.BondCap)
	}
	if pos.TotalBonded, err = nativecommon.AddU64(pos.TotalBonded, amountOut); err != nil {
		return 0, err
	}
	cfg.BondedTotal = bonded
	pos.LastInteraction = e.now()
	pos.VestDuration = cfg.VestDuration
	if err := e.state.PutBondPosition(pos); err != nil {
		return 0, err
	}
	if err := e.state.PutBondConfig(cfg); err != nil {
		return 0, err
	}
	if err := e.bank.Transfer(cfg.Assets.Stable, owner, cfg.TreasuryVault, owner, amountIn); err != nil {
		return 0, err
	}
	e.emit(events.BondBonded{
		Owner:        owner,
		AmountIn:     amountIn,
		Received:     received,
		AmountOut:    amountOut,
		BondedTotal:  bonded,
		VestDuration: pos.VestDuration,
	})
	return amountOut, nil
}

// Claim pays out the vested part of owner's position and restarts the vesting
// clock for the remainder.
func (e *Engine) Claim(owner crypto.Address) (uint64, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return 0, err
	}
	cfg, err := e.config()
	if err != nil {
		return 0, err
	}
	pos, err := e.position(owner)
	if err != nil {
		return 0, err
	}
	now := e.now()
	claimable, err := ClaimableAt(pos, cfg.RebaseRatioPercent, now)
	if err != nil {
		return 0, err
	}
	if claimable == 0 {
		return 0, errNothingOwed
	}
	if pos.TotalBonded, err = nativecommon.SubU64(pos.TotalBonded, claimable); err != nil {
		return 0, err
	}
	pos.LastInteraction = now
	if err := e.state.PutBondPosition(pos); err != nil {
		return 0, err
	}
	if err := e.bank.Transfer(cfg.Assets.Main, cfg.MainVault, owner, cfg.StateAddress, claimable); err != nil {
		return 0, err
	}
	e.emit(events.BondClaimed{Owner: owner, Amount: claimable, Remaining: pos.TotalBonded})
	return claimable, nil
}

// Claimable reports what Claim would pay at the current time.
func (e *Engine) Claimable(owner crypto.Address) (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	cfg, err := e.config()
	if err != nil {
		return 0, err
	}
	pos, err := e.position(owner)
	if err != nil {
		return 0, err
	}
	return ClaimableAt(pos, cfg.RebaseRatioPercent, e.now())
}

// Config returns a copy of the global bond configuration.
func (e *Engine) Config() (*Config, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	cfg, err := e.config()
	if err != nil {
		return nil, err
	}
	return cfg.Clone(), nil
}

// Position returns a copy of owner's position.
func (e *Engine) Position(owner crypto.Address) (*Position, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	pos, err := e.position(owner)
	if err != nil {
		return nil, err
	}
	return pos.Clone(), nil
}
