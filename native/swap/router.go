package swap

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	coreerrors "bondfarm/core/errors"
	"bondfarm/core/events"
	"bondfarm/crypto"
)

var (
	errNilState      = errors.New("swap router: state not configured")
	errPoolMissing   = fmt.Errorf("swap router: pool not found: %w", coreerrors.ErrNotFound)
	errInvalidPool   = fmt.Errorf("swap router: invalid pool definition: %w", coreerrors.ErrInvalidParameter)
	errUnknownAsset  = fmt.Errorf("swap router: asset not traded by pool: %w", coreerrors.ErrInvalidParameter)
	errZeroAmount    = fmt.Errorf("swap router: amount must be positive: %w", coreerrors.ErrInvalidParameter)
	errNoLiquidity   = fmt.Errorf("swap router: insufficient liquidity: %w", coreerrors.ErrInsufficientFunds)
	errSlippage      = fmt.Errorf("swap router: output below minimum: %w", coreerrors.ErrInvalidParameter)
	errOutputTooWide = fmt.Errorf("swap router: output exceeds 64 bits: %w", coreerrors.ErrMathOverflow)
)

type routerState interface {
	SwapPool(id string) (*Pool, bool, error)
	PutSwapPool(pool *Pool) error
}

type ledger interface {
	Transfer(asset string, from, to, authority crypto.Address, amount uint64) error
	Balance(asset string, addr crypto.Address) (uint64, error)
	SetOwner(vault, owner crypto.Address) error
}

// Router executes swaps against constant-product pools held in state.
type Router struct {
	state   routerState
	bank    ledger
	emitter events.Emitter
}

// NewRouter wires a router to its state and ledger.
func NewRouter(state routerState, bank ledger) *Router {
	return &Router{state: state, bank: bank, emitter: events.NoopEmitter{}}
}

// SetEmitter configures where swap events are sent.
func (r *Router) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		r.emitter = events.NoopEmitter{}
		return
	}
	r.emitter = emitter
}

func (r *Router) ready() error {
	if r == nil || r.state == nil || r.bank == nil {
		return errNilState
	}
	return nil
}

// CreatePool registers a pool. Reserves are added with AddLiquidity.
func (r *Router) CreatePool(id, assetA, assetB string, feeBps uint64) (*Pool, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	pool := &Pool{
		ID:     normalizePoolID(id),
		AssetA: normalizeAsset(assetA),
		AssetB: normalizeAsset(assetB),
		FeeBps: feeBps,
	}
	if pool.ID == "" || pool.AssetA == "" || pool.AssetB == "" || pool.AssetA == pool.AssetB || feeBps > MaxFeeBps {
		return nil, errInvalidPool
	}
	if _, exists, err := r.state.SwapPool(pool.ID); err != nil {
		return nil, err
	} else if exists {
		return nil, fmt.Errorf("swap router: pool %s: %w", pool.ID, coreerrors.ErrAlreadyExists)
	}
	pool.Authority = PoolAuthority(pool.ID)
	pool.Vault = PoolVault(pool.ID)
	if err := r.bank.SetOwner(pool.Vault, pool.Authority); err != nil {
		return nil, err
	}
	if err := r.state.PutSwapPool(pool); err != nil {
		return nil, err
	}
	return pool.Clone(), nil
}

// AddLiquidity moves both assets from provider into the pool vault.
func (r *Router) AddLiquidity(id string, provider crypto.Address, amountA, amountB uint64) error {
	pool, err := r.pool(id)
	if err != nil {
		return err
	}
	if err := r.bank.Transfer(pool.AssetA, provider, pool.Vault, provider, amountA); err != nil {
		return err
	}
	if err := r.bank.Transfer(pool.AssetB, provider, pool.Vault, provider, amountB); err != nil {
		return err
	}
	reserveA, reserveB, err := r.Reserves(pool.ID)
	if err != nil {
		return err
	}
	r.emitter.Emit(events.SwapPoolCreated{
		PoolID: pool.ID, AssetA: pool.AssetA, AssetB: pool.AssetB,
		ReserveA: reserveA, ReserveB: reserveB, FeeBps: pool.FeeBps,
	})
	return nil
}

// Pool returns the pool definition for id.
func (r *Router) Pool(id string) (*Pool, error) {
	pool, err := r.pool(id)
	if err != nil {
		return nil, err
	}
	return pool.Clone(), nil
}

func (r *Router) pool(id string) (*Pool, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	pool, ok, err := r.state.SwapPool(normalizePoolID(id))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", errPoolMissing, id)
	}
	return pool, nil
}

// Reserves returns the current balances of the pool vault.
func (r *Router) Reserves(id string) (uint64, uint64, error) {
	pool, err := r.pool(id)
	if err != nil {
		return 0, 0, err
	}
	reserveA, err := r.bank.Balance(pool.AssetA, pool.Vault)
	if err != nil {
		return 0, 0, err
	}
	reserveB, err := r.bank.Balance(pool.AssetB, pool.Vault)
	if err != nil {
		return 0, 0, err
	}
	return reserveA, reserveB, nil
}

// Quote returns the output of swapping amountIn of assetIn without executing.
func (r *Router) Quote(id, assetIn string, amountIn uint64) (uint64, error) {
	pool, err := r.pool(id)
	if err != nil {
		return 0, err
	}
	_, out, err := r.quote(pool, normalizeAsset(assetIn), amountIn)
	return out, err
}

func (r *Router) quote(pool *Pool, assetIn string, amountIn uint64) (string, uint64, error) {
	if amountIn == 0 {
		return "", 0, errZeroAmount
	}
	assetOut, ok := pool.other(assetIn)
	if !ok {
		return "", 0, fmt.Errorf("%w: %s", errUnknownAsset, assetIn)
	}
	reserveIn, err := r.bank.Balance(assetIn, pool.Vault)
	if err != nil {
		return "", 0, err
	}
	reserveOut, err := r.bank.Balance(assetOut, pool.Vault)
	if err != nil {
		return "", 0, err
	}
	out, err := ConstantProductOut(reserveIn, reserveOut, amountIn, pool.FeeBps)
	if err != nil {
		return "", 0, err
	}
	return assetOut, out, nil
}

// ConstantProductOut returns
// reserveOut*amountIn*(10000-fee) / (reserveIn*10000 + amountIn*(10000-fee)).
func ConstantProductOut(reserveIn, reserveOut, amountIn, feeBps uint64) (uint64, error) {
	if reserveIn == 0 || reserveOut == 0 {
		return 0, errNoLiquidity
	}
	if feeBps > BasisPoints {
		return 0, errInvalidPool
	}
	inWithFee := new(uint256.Int).Mul(uint256.NewInt(amountIn), uint256.NewInt(BasisPoints-feeBps))
	numerator := new(uint256.Int).Mul(uint256.NewInt(reserveOut), inWithFee)
	denominator := new(uint256.Int).Mul(uint256.NewInt(reserveIn), uint256.NewInt(BasisPoints))
	denominator.Add(denominator, inWithFee)
	out := new(uint256.Int).Div(numerator, denominator)
	if !out.IsUint64() {
		return 0, errOutputTooWide
	}
	if out.IsZero() || out.Uint64() >= reserveOut {
		return 0, errNoLiquidity
	}
	return out.Uint64(), nil
}

// Swap sells amountIn of assetIn from `from` and delivers the output to `to`.
// authority must be allowed to move funds out of from.
func (r *Router) Swap(id string, from, to, authority crypto.Address, assetIn string, amountIn, minOut uint64) (uint64, error) {
	pool, err := r.pool(id)
	if err != nil {
		return 0, err
	}
	assetIn = normalizeAsset(assetIn)
	assetOut, out, err := r.quote(pool, assetIn, amountIn)
	if err != nil {
		return 0, err
	}
	if out < minOut {
		return 0, fmt.Errorf("%w: %d < %d", errSlippage, out, minOut)
	}
	if err := r.bank.Transfer(assetIn, from, pool.Vault, authority, amountIn); err != nil {
		return 0, err
	}
	if err := r.bank.Transfer(assetOut, pool.Vault, to, pool.Authority, out); err != nil {
		return 0, err
	}
	r.emitter.Emit(events.SwapExecuted{
		PoolID: pool.ID, Trader: from, AssetIn: assetIn, AssetOut: assetOut,
		AmountIn: amountIn, AmountOut: out,
	})
	return out, nil
}
