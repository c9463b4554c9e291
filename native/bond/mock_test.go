package bond

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	coreerrors "bondfarm/core/errors"
	"bondfarm/crypto"
)

type mockEngineState struct {
	config    *Config
	positions map[string]*Position
}

func newMockEngineState() *mockEngineState {
	return &mockEngineState{positions: make(map[string]*Position)}
}

func (m *mockEngineState) BondConfig() (*Config, bool, error) {
	if m.config == nil {
		return nil, false, nil
	}
	return m.config.Clone(), true, nil
}

func (m *mockEngineState) PutBondConfig(cfg *Config) error {
	m.config = cfg.Clone()
	return nil
}

func (m *mockEngineState) BondPosition(owner crypto.Address) (*Position, bool, error) {
	pos, ok := m.positions[string(owner.Bytes())]
	if !ok {
		return nil, false, nil
	}
	return pos.Clone(), true, nil
}

func (m *mockEngineState) PutBondPosition(pos *Position) error {
	m.positions[string(pos.Owner.Bytes())] = pos.Clone()
	return nil
}

type mockBank struct {
	balances map[string]uint64
	owners   map[string]crypto.Address
}

func newMockBank() *mockBank {
	return &mockBank{balances: make(map[string]uint64), owners: make(map[string]crypto.Address)}
}

func balanceKey(asset string, addr crypto.Address) string {
	return asset + "/" + string(addr.Bytes())
}

func (b *mockBank) mint(asset string, addr crypto.Address, amount uint64) {
	b.balances[balanceKey(asset, addr)] += amount
}

func (b *mockBank) balance(asset string, addr crypto.Address) uint64 {
	return b.balances[balanceKey(asset, addr)]
}

func (b *mockBank) Transfer(asset string, from, to, authority crypto.Address, amount uint64) error {
	if !authority.Equal(from) {
		owner, ok := b.owners[string(from.Bytes())]
		if !ok || !owner.Equal(authority) {
			return fmt.Errorf("mock bank: %w", coreerrors.ErrUnauthorized)
		}
	}
	if b.balance(asset, from) < amount {
		return fmt.Errorf("mock bank: %w", coreerrors.ErrInsufficientFunds)
	}
	b.balances[balanceKey(asset, from)] -= amount
	b.balances[balanceKey(asset, to)] += amount
	return nil
}

func (b *mockBank) Balance(asset string, addr crypto.Address) (uint64, error) {
	return b.balance(asset, addr), nil
}

func (b *mockBank) SetOwner(vault, owner crypto.Address) error {
	b.owners[string(vault.Bytes())] = owner
	return nil
}

// mockSwapper converts at num/den and reports a fixed, unrelated output.
type mockSwapper struct {
	bank     *mockBank
	reserve  crypto.Address
	num, den uint64
	reported uint64
	err      error
}

func (s *mockSwapper) Swap(_ string, from, to, authority crypto.Address, assetIn string, amountIn, _ uint64) (uint64, error) {
	if s.err != nil {
		return 0, s.err
	}
	if err := s.bank.Transfer(assetIn, from, s.reserve, authority, amountIn); err != nil {
		return 0, err
	}
	s.bank.mint(intermediateAsset, to, amountIn*s.num/s.den)
	return s.reported, nil
}

const (
	mainAsset         = "LFG"
	stableAsset       = "USDC"
	intermediateAsset = "WSOL"
)

func testAddress(b byte) crypto.Address {
	return crypto.NewAddress(crypto.AccountPrefix, bytes.Repeat([]byte{b}, 20))
}

type fixture struct {
	t         *testing.T
	engine    *Engine
	state     *mockEngineState
	bank      *mockBank
	swap      *mockSwapper
	admin     crypto.Address
	developer crypto.Address
	now       int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		t:         t,
		state:     newMockEngineState(),
		bank:      newMockBank(),
		admin:     testAddress(0xAA),
		developer: testAddress(0xDE),
		now:       1_700_000_000,
	}
	f.swap = &mockSwapper{bank: f.bank, reserve: testAddress(0x50), num: 1, den: 1, reported: 999}
	f.engine = NewEngine()
	f.engine.SetState(f.state)
	f.engine.SetBank(f.bank)
	f.engine.SetSwapper(f.swap)
	f.engine.SetNowFunc(func() int64 { return f.now })
	assets := Assets{Main: mainAsset, Stable: stableAsset, Intermediate: intermediateAsset, SwapPool: "usdc-wsol"}
	if _, err := f.engine.Initialize(f.admin, f.developer, assets); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if err := f.engine.SetOpen(f.admin, true); err != nil {
		t.Fatalf("open: %v", err)
	}
	f.bank.mint(stableAsset, VaultAddress(stableAsset), 10_000_000_000)
	f.bank.mint(mainAsset, VaultAddress(mainAsset), 10_000_000_000)
	return f
}

func (f *fixture) advance(seconds int64) { f.now += seconds }

func (f *fixture) user(b byte, stable uint64) crypto.Address {
	f.t.Helper()
	addr := testAddress(b)
	if _, err := f.engine.InitPosition(addr); err != nil {
		f.t.Fatalf("init position: %v", err)
	}
	f.bank.mint(stableAsset, addr, stable)
	return addr
}

func expectErr(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("expected %v, got %v", target, err)
	}
}
