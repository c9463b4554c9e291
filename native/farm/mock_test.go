package farm

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	coreerrors "bondfarm/core/errors"
	"bondfarm/crypto"
)

type mockEngineState struct {
	emission *EmissionState
	pools    map[string]*Pool
	stakers  map[string]*Staker
}

func newMockEngineState() *mockEngineState {
	return &mockEngineState{
		pools:   make(map[string]*Pool),
		stakers: make(map[string]*Staker),
	}
}

func stakerKey(asset string, owner crypto.Address) string {
	return asset + "/" + string(owner.Bytes())
}

func (m *mockEngineState) FarmEmission() (*EmissionState, bool, error) {
	if m.emission == nil {
		return nil, false, nil
	}
	return m.emission.Clone(), true, nil
}

func (m *mockEngineState) PutFarmEmission(st *EmissionState) error {
	m.emission = st.Clone()
	return nil
}

func (m *mockEngineState) FarmPool(asset string) (*Pool, bool, error) {
	pool, ok := m.pools[asset]
	if !ok {
		return nil, false, nil
	}
	return pool.Clone(), true, nil
}

func (m *mockEngineState) PutFarmPool(pool *Pool) error {
	m.pools[pool.Asset] = pool.Clone()
	return nil
}

func (m *mockEngineState) DeleteFarmPool(asset string) error {
	delete(m.pools, asset)
	return nil
}

func (m *mockEngineState) FarmPoolAssets() ([]string, error) {
	out := make([]string, 0, len(m.pools))
	for asset := range m.pools {
		out = append(out, asset)
	}
	return out, nil
}

func (m *mockEngineState) FarmStaker(asset string, owner crypto.Address) (*Staker, bool, error) {
	staker, ok := m.stakers[stakerKey(asset, owner)]
	if !ok {
		return nil, false, nil
	}
	return staker.Clone(), true, nil
}

func (m *mockEngineState) PutFarmStaker(staker *Staker) error {
	m.stakers[stakerKey(staker.Asset, staker.Owner)] = staker.Clone()
	return nil
}

type mockBank struct {
	balances map[string]uint64
	owners   map[string]crypto.Address
	fail     error
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
	if b.fail != nil {
		return b.fail
	}
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

func testAddress(b byte) crypto.Address {
	return crypto.NewAddress(crypto.AccountPrefix, bytes.Repeat([]byte{b}, 20))
}

const rewardAsset = "LFG"

type fixture struct {
	t      *testing.T
	engine *Engine
	state  *mockEngineState
	bank   *mockBank
	admin  crypto.Address
	now    int64
}

func newFixture(t *testing.T, rate uint64) *fixture {
	t.Helper()
	f := &fixture{
		t:     t,
		state: newMockEngineState(),
		bank:  newMockBank(),
		admin: testAddress(0xAA),
		now:   1_700_000_000,
	}
	f.engine = NewEngine(DefaultParams())
	f.engine.SetState(f.state)
	f.engine.SetBank(f.bank)
	f.engine.SetNowFunc(func() int64 { return f.now })
	if _, err := f.engine.Initialize(f.admin, rewardAsset, rate); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	f.bank.mint(rewardAsset, RewardVaultAddress(), 1_000_000_000_000)
	return f
}

func (f *fixture) advance(seconds int64) { f.now += seconds }

func (f *fixture) createPool(asset string, point uint64) {
	f.t.Helper()
	if _, err := f.engine.CreatePool(f.admin, asset, point, 1); err != nil {
		f.t.Fatalf("create pool %s: %v", asset, err)
	}
}

func (f *fixture) stake(owner crypto.Address, asset string, amount uint64) {
	f.t.Helper()
	if _, ok, _ := f.state.FarmStaker(NormalizeAsset(asset), owner); !ok {
		if _, err := f.engine.Join(owner, asset); err != nil {
			f.t.Fatalf("join: %v", err)
		}
	}
	f.bank.mint(NormalizeAsset(asset), owner, amount)
	if _, err := f.engine.Deposit(owner, asset, amount); err != nil {
		f.t.Fatalf("deposit: %v", err)
	}
}

func (f *fixture) harvest(owner crypto.Address, asset string) uint64 {
	f.t.Helper()
	paid, err := f.engine.Harvest(owner, asset)
	if err != nil {
		f.t.Fatalf("harvest: %v", err)
	}
	return paid
}

func expectErr(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("expected %v, got %v", target, err)
	}
}
