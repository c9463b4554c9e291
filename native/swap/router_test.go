package swap

import (
	"bytes"
	"errors"
	"testing"

	coreerrors "bondfarm/core/errors"
	"bondfarm/crypto"
	"bondfarm/native/bank"
)

type memState struct {
	pools    map[string]*Pool
	balances map[string]uint64
	owners   map[string]crypto.Address
}

func newMemState() *memState {
	return &memState{
		pools:    make(map[string]*Pool),
		balances: make(map[string]uint64),
		owners:   make(map[string]crypto.Address),
	}
}

func (m *memState) SwapPool(id string) (*Pool, bool, error) {
	pool, ok := m.pools[id]
	return pool.Clone(), ok, nil
}

func (m *memState) PutSwapPool(pool *Pool) error {
	m.pools[pool.ID] = pool.Clone()
	return nil
}

func (m *memState) BankBalance(asset string, addr crypto.Address) (uint64, error) {
	return m.balances[asset+string(addr.Bytes())], nil
}

func (m *memState) PutBankBalance(asset string, addr crypto.Address, amount uint64) error {
	m.balances[asset+string(addr.Bytes())] = amount
	return nil
}

func (m *memState) VaultOwner(vault crypto.Address) (crypto.Address, bool, error) {
	owner, ok := m.owners[string(vault.Bytes())]
	return owner, ok, nil
}

func (m *memState) PutVaultOwner(vault, owner crypto.Address) error {
	m.owners[string(vault.Bytes())] = owner
	return nil
}

func addr(b byte) crypto.Address {
	return crypto.NewAddress(crypto.AccountPrefix, bytes.Repeat([]byte{b}, 20))
}

func newSeededRouter(t *testing.T) (*Router, *bank.Ledger) {
	t.Helper()
	state := newMemState()
	ledger := bank.NewLedger(state)
	router := NewRouter(state, ledger)
	if _, err := router.CreatePool("USDC-WSOL", "usdc", "wsol", 30); err != nil {
		t.Fatalf("create pool: %v", err)
	}
	provider := addr(0x10)
	_ = ledger.Mint("USDC", provider, 1_000_000)
	_ = ledger.Mint("WSOL", provider, 1_000_000)
	if err := router.AddLiquidity("usdc-wsol", provider, 1_000_000, 1_000_000); err != nil {
		t.Fatalf("add liquidity: %v", err)
	}
	return router, ledger
}

func TestConstantProductOut(t *testing.T) {
	out, err := ConstantProductOut(1_000_000, 1_000_000, 10_000, 30)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	// 1e6*10000*9970 / (1e6*10000 + 10000*9970)
	if out != 9871 {
		t.Fatalf("out %d, want 9871", out)
	}
	if _, err := ConstantProductOut(0, 10, 1, 30); !errors.Is(err, coreerrors.ErrInsufficientFunds) {
		t.Fatalf("expected liquidity error, got %v", err)
	}
}

func TestSwapMovesReserves(t *testing.T) {
	router, ledger := newSeededRouter(t)
	trader, dest := addr(0x01), addr(0x02)
	_ = ledger.Mint("USDC", trader, 10_000)

	quoted, err := router.Quote("usdc-wsol", "USDC", 10_000)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	out, err := router.Swap("USDC-WSOL", trader, dest, trader, "usdc", 10_000, 1)
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	if out != quoted {
		t.Fatalf("swap %d differs from quote %d", out, quoted)
	}
	if got, _ := ledger.Balance("WSOL", dest); got != out {
		t.Fatalf("dest received %d, want %d", got, out)
	}
	reserveA, reserveB, _ := router.Reserves("usdc-wsol")
	if reserveA != 1_010_000 || reserveB != 1_000_000-out {
		t.Fatalf("reserves %d/%d", reserveA, reserveB)
	}
}

func TestSwapSlippageAndAuthority(t *testing.T) {
	router, ledger := newSeededRouter(t)
	trader := addr(0x01)
	_ = ledger.Mint("USDC", trader, 10_000)

	if _, err := router.Swap("usdc-wsol", trader, trader, trader, "USDC", 10_000, 10_000); !errors.Is(err, coreerrors.ErrInvalidParameter) {
		t.Fatalf("expected slippage error, got %v", err)
	}
	if _, err := router.Swap("usdc-wsol", trader, trader, addr(0x66), "USDC", 10_000, 1); !errors.Is(err, coreerrors.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := router.Swap("usdc-wsol", trader, trader, trader, "LFG", 10, 1); !errors.Is(err, coreerrors.ErrInvalidParameter) {
		t.Fatalf("expected unknown asset, got %v", err)
	}
	if _, err := router.Swap("missing", trader, trader, trader, "USDC", 10, 1); !errors.Is(err, coreerrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreatePoolValidation(t *testing.T) {
	router, _ := newSeededRouter(t)
	if _, err := router.CreatePool("usdc-wsol", "USDC", "WSOL", 30); !errors.Is(err, coreerrors.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	if _, err := router.CreatePool("same", "USDC", "usdc", 30); !errors.Is(err, coreerrors.ErrInvalidParameter) {
		t.Fatalf("expected invalid pool, got %v", err)
	}
	if _, err := router.CreatePool("fee", "USDC", "LFG", MaxFeeBps+1); !errors.Is(err, coreerrors.ErrInvalidParameter) {
		t.Fatalf("expected invalid fee, got %v", err)
	}
}
