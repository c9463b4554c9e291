package core

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	coreerrors "bondfarm/core/errors"
	"bondfarm/core/events"
	"bondfarm/core/genesis"
	"bondfarm/core/types"
	"bondfarm/crypto"
	nativecommon "bondfarm/native/common"
	"bondfarm/native/farm"
	"bondfarm/storage"
)

const (
	genesisTime = int64(1_700_000_000)
	rewardAsset = "LFG"
	lpAsset     = "LP"
	stable      = "USDC"
	inter       = "WSOL"
	swapPoolID  = "usdc-wsol"
)

type testNode struct {
	*Node
	t        *testing.T
	now      int64
	recorder *events.Recorder
	admin    *crypto.PrivateKey
	user     *crypto.PrivateKey
	nonce    uint64
}

func mustKey(t *testing.T) *crypto.PrivateKey {
	t.Helper()
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return key
}

func testGenesis(admin, user crypto.Address) *genesis.Spec {
	return &genesis.Spec{
		Time:      genesisTime,
		Authority: admin.String(),
		Balances: []genesis.BalanceSpec{
			{Address: admin.String(), Asset: rewardAsset, Amount: 10_000_000},
			{Address: admin.String(), Asset: stable, Amount: 1_000_000_000},
			{Address: admin.String(), Asset: inter, Amount: 1_000_000_000},
			{Address: user.String(), Asset: lpAsset, Amount: 5_000},
			{Address: user.String(), Asset: stable, Amount: 100_000},
		},
		SwapPools: []genesis.SwapSpec{{
			ID: swapPoolID, AssetA: stable, AssetB: inter,
			Provider: admin.String(), AmountA: 1_000_000_000, AmountB: 1_000_000_000,
		}},
		Farm: &genesis.FarmSpec{
			RewardAsset:  rewardAsset,
			EmissionRate: 100,
			Fund:         5_000_000,
			Pools:        []genesis.FarmPoolSpec{{Asset: lpAsset, Point: 1000, Multiplier: 1}},
		},
		Bond: &genesis.BondSpec{
			MainAsset:         rewardAsset,
			StableAsset:       stable,
			IntermediateAsset: inter,
			SwapPool:          swapPoolID,
			Fund:              1_000_000,
			TreasuryFloat:     50_000,
			Open:              true,
		},
	}
}

func newTestNodeWithDB(t *testing.T, db storage.Database, spec func(admin, user crypto.Address) *genesis.Spec) *testNode {
	t.Helper()
	tn := &testNode{
		t:        t,
		now:      genesisTime,
		recorder: events.NewRecorder(0),
		admin:    mustKey(t),
		user:     mustKey(t),
	}
	node, err := NewNode(db, WithClock(func() int64 { return tn.now }), WithEmitter(tn.recorder))
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	tn.Node = node
	if spec != nil {
		if err := node.ApplyGenesis(context.Background(), spec(tn.adminAddr(), tn.userAddr())); err != nil {
			t.Fatalf("apply genesis: %v", err)
		}
	}
	return tn
}

func newTestNode(t *testing.T) *testNode {
	t.Helper()
	return newTestNodeWithDB(t, storage.NewMemDB(), testGenesis)
}

func (tn *testNode) adminAddr() crypto.Address { return tn.admin.PubKey().Address() }
func (tn *testNode) userAddr() crypto.Address  { return tn.user.PubKey().Address() }

func (tn *testNode) advance(seconds int64) { tn.now += seconds }

func (tn *testNode) balance(asset string, addr crypto.Address) uint64 {
	tn.t.Helper()
	amount, err := tn.Balance(context.Background(), asset, addr)
	if err != nil {
		tn.t.Fatalf("balance %s: %v", asset, err)
	}
	return amount
}

func (tn *testNode) envelope(key *crypto.PrivateKey, op string, payload interface{}) *types.Envelope {
	tn.t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		tn.t.Fatalf("marshal payload: %v", err)
	}
	tn.nonce++
	env := &types.Envelope{Operation: op, Payload: raw, Nonce: tn.nonce}
	if err := env.Sign(key); err != nil {
		tn.t.Fatalf("sign: %v", err)
	}
	return env
}

func expectErr(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("expected %v, got %v", target, err)
	}
}

func TestFarmLifecycleThroughNode(t *testing.T) {
	tn := newTestNode(t)
	ctx := context.Background()
	user := tn.userAddr()

	if _, err := tn.FarmJoin(ctx, user, lpAsset); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := tn.FarmDeposit(ctx, user, lpAsset, 1000); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	tn.advance(100)

	pending, err := tn.FarmPending(ctx, user, lpAsset)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if pending != 10_000 {
		t.Fatalf("expected pending 10000, got %d", pending)
	}
	paid, err := tn.FarmHarvest(ctx, user, lpAsset)
	if err != nil {
		t.Fatalf("harvest: %v", err)
	}
	if paid != 10_000 {
		t.Fatalf("expected harvest 10000, got %d", paid)
	}
	if got := tn.balance(rewardAsset, user); got != 10_000 {
		t.Fatalf("expected reward balance 10000, got %d", got)
	}

	// Past the lock window the full stake comes back without a fee.
	tn.advance(farm.DefaultLockDuration)
	fee, err := tn.FarmWithdraw(ctx, user, lpAsset, 1000)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if fee != 0 {
		t.Fatalf("expected no fee after the lock, got %d", fee)
	}
	if got := tn.balance(lpAsset, user); got != 5_000 {
		t.Fatalf("expected LP balance restored to 5000, got %d", got)
	}
}

func TestFailedHarvestRollsBackSettlement(t *testing.T) {
	unfunded := func(admin, user crypto.Address) *genesis.Spec {
		spec := testGenesis(admin, user)
		spec.Farm.Fund = 0
		return spec
	}
	tn := newTestNodeWithDB(t, storage.NewMemDB(), unfunded)
	ctx := context.Background()
	user := tn.userAddr()

	if _, err := tn.FarmJoin(ctx, user, lpAsset); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := tn.FarmDeposit(ctx, user, lpAsset, 1000); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	before, err := tn.FarmPool(ctx, lpAsset)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	tn.advance(100)

	_, err = tn.FarmHarvest(ctx, user, lpAsset)
	expectErr(t, err, coreerrors.ErrInsufficientFunds)

	after, err := tn.FarmPool(ctx, lpAsset)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	if after.LastAccrual != before.LastAccrual || after.AccPerShare.Cmp(before.AccPerShare) != 0 {
		t.Fatalf("failed harvest must not persist the accrual: before %d/%s after %d/%s",
			before.LastAccrual, before.AccPerShare, after.LastAccrual, after.AccPerShare)
	}
	staker, err := tn.FarmStaker(ctx, user, lpAsset)
	if err != nil {
		t.Fatalf("staker: %v", err)
	}
	if !staker.PendingReward.IsZero() || !staker.RewardDebt.IsZero() {
		t.Fatalf("failed harvest must not persist the settlement: pending %s debt %s", staker.PendingReward, staker.RewardDebt)
	}
	// The reward is still owed once the vault is funded.
	if err := tn.FarmFund(ctx, tn.adminAddr(), 1_000_000); err != nil {
		t.Fatalf("fund: %v", err)
	}
	paid, err := tn.FarmHarvest(ctx, user, lpAsset)
	if err != nil {
		t.Fatalf("harvest after funding: %v", err)
	}
	if paid != 10_000 {
		t.Fatalf("expected 10000 after funding, got %d", paid)
	}
}

func TestEventsForwardedOnlyAfterCommit(t *testing.T) {
	tn := newTestNode(t)
	ctx := context.Background()
	user := tn.userAddr()
	base := len(tn.recorder.Recent())

	_, err := tn.FarmDeposit(ctx, user, lpAsset, 1000)
	if err == nil {
		t.Fatalf("deposit without joining must fail")
	}
	if got := len(tn.recorder.Recent()); got != base {
		t.Fatalf("failed operation leaked %d events", got-base)
	}

	if _, err := tn.FarmJoin(ctx, user, lpAsset); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := tn.FarmDeposit(ctx, user, lpAsset, 1000); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	recent := tn.recorder.Recent()
	var sawDeposit bool
	for _, evt := range recent[base:] {
		if evt.Type == events.TypeFarmDeposit && evt.Attributes["amount"] == "1000" {
			sawDeposit = true
		}
	}
	if !sawDeposit {
		t.Fatalf("expected a committed deposit event, got %+v", recent[base:])
	}
}

func TestBondThroughNode(t *testing.T) {
	tn := newTestNode(t)
	ctx := context.Background()
	user := tn.userAddr()

	if _, err := tn.BondInitPosition(ctx, user); err != nil {
		t.Fatalf("init position: %v", err)
	}
	cfg, err := tn.BondConfig(ctx)
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	quoted, err := tn.SwapQuote(ctx, swapPoolID, stable, 10_000)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	out, err := tn.BondBond(ctx, user, 10_000)
	if err != nil {
		t.Fatalf("bond: %v", err)
	}
	want := quoted * 1000 / cfg.BondPrice
	if out != want {
		t.Fatalf("expected allocation %d, got %d", want, out)
	}
	if got := tn.balance(stable, user); got != 90_000 {
		t.Fatalf("expected user stable 90000, got %d", got)
	}
	if got := tn.balance(stable, cfg.TreasuryVault); got != 50_000 {
		t.Fatalf("treasury must be refilled to its float, got %d", got)
	}
	if got := tn.balance(inter, cfg.IntermediateVault); got != quoted {
		t.Fatalf("expected intermediate vault %d, got %d", quoted, got)
	}

	_, err = tn.BondClaim(ctx, user)
	expectErr(t, err, coreerrors.ErrNothingToClaim)

	tn.advance(cfg.VestDuration)
	claimable, err := tn.BondClaimable(ctx, user)
	if err != nil {
		t.Fatalf("claimable: %v", err)
	}
	claimed, err := tn.BondClaim(ctx, user)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if claimed != claimable || claimed != out*cfg.RebaseRatioPercent/100 {
		t.Fatalf("expected claim %d (preview %d), got %d", out*cfg.RebaseRatioPercent/100, claimable, claimed)
	}
	if got := tn.balance(rewardAsset, user); got != claimed {
		t.Fatalf("expected main balance %d, got %d", claimed, got)
	}
}

func TestBondCapFailureLeavesBalances(t *testing.T) {
	tn := newTestNode(t)
	ctx := context.Background()
	user := tn.userAddr()
	if _, err := tn.BondInitPosition(ctx, user); err != nil {
		t.Fatalf("init position: %v", err)
	}
	if err := tn.BondSetCap(ctx, tn.adminAddr(), 10); err != nil {
		t.Fatalf("set cap: %v", err)
	}
	cfg, err := tn.BondConfig(ctx)
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	_, reserveA, reserveB, err := tn.SwapPool(ctx, swapPoolID)
	if err != nil {
		t.Fatalf("swap pool: %v", err)
	}

	_, err = tn.BondBond(ctx, user, 10_000)
	expectErr(t, err, coreerrors.ErrCapacityExceeded)

	if got := tn.balance(stable, user); got != 100_000 {
		t.Fatalf("user stable changed to %d", got)
	}
	if got := tn.balance(stable, cfg.TreasuryVault); got != 50_000 {
		t.Fatalf("treasury changed to %d", got)
	}
	_, afterA, afterB, err := tn.SwapPool(ctx, swapPoolID)
	if err != nil {
		t.Fatalf("swap pool: %v", err)
	}
	if afterA != reserveA || afterB != reserveB {
		t.Fatalf("swap reserves moved: %d/%d -> %d/%d", reserveA, reserveB, afterA, afterB)
	}
}

func TestSubmitConsumesNonceAtomically(t *testing.T) {
	tn := newTestNode(t)
	ctx := context.Background()

	if _, err := tn.Submit(ctx, tn.envelope(tn.user, OpFarmJoin, AssetPayload{Asset: lpAsset})); err != nil {
		t.Fatalf("join: %v", err)
	}
	deposit := tn.envelope(tn.user, OpFarmDeposit, AmountPayload{Asset: lpAsset, Amount: 500})
	receipt, err := tn.Submit(ctx, deposit)
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if !receipt.Signer.Equal(tn.userAddr()) || receipt.Nonce != deposit.Nonce {
		t.Fatalf("unexpected receipt %+v", receipt)
	}
	if len(receipt.Events) == 0 {
		t.Fatalf("expected events in the receipt")
	}

	_, err = tn.Submit(ctx, deposit)
	expectErr(t, err, ErrNonceUsed)

	// A failing operation must not burn its nonce.
	overdraw := tn.envelope(tn.user, OpFarmWithdraw, AmountPayload{Asset: lpAsset, Amount: 10_000})
	_, err = tn.Submit(ctx, overdraw)
	expectErr(t, err, coreerrors.ErrInsufficientBalance)
	nonce, err := tn.AccountNonce(ctx, tn.userAddr())
	if err != nil {
		t.Fatalf("nonce: %v", err)
	}
	if nonce != deposit.Nonce {
		t.Fatalf("expected nonce %d after failure, got %d", deposit.Nonce, nonce)
	}

	staker, err := tn.FarmStaker(ctx, tn.userAddr(), lpAsset)
	if err != nil {
		t.Fatalf("staker: %v", err)
	}
	if staker.Amount != 500 {
		t.Fatalf("expected staked 500, got %d", staker.Amount)
	}
}

func TestSubmitRejectsExpiredAndUnknown(t *testing.T) {
	tn := newTestNode(t)
	ctx := context.Background()

	env := &types.Envelope{Operation: OpBondClaim, Nonce: 1, Expiry: genesisTime - 1}
	if err := env.Sign(tn.user); err != nil {
		t.Fatalf("sign: %v", err)
	}
	_, err := tn.Submit(ctx, env)
	expectErr(t, err, ErrEnvelopeExpired)

	_, err = tn.Submit(ctx, tn.envelope(tn.user, "farm.mint", AssetPayload{}))
	expectErr(t, err, ErrUnknownOperation)

	_, err = tn.Submit(ctx, &types.Envelope{Operation: OpBondClaim, Nonce: 9})
	expectErr(t, err, coreerrors.ErrUnauthorized)
}

func TestSubmitAdminOperationUsesSigner(t *testing.T) {
	tn := newTestNode(t)
	ctx := context.Background()

	_, err := tn.Submit(ctx, tn.envelope(tn.user, OpFarmSetRate, RatePayload{Rate: 1}))
	expectErr(t, err, coreerrors.ErrUnauthorized)

	if _, err := tn.Submit(ctx, tn.envelope(tn.admin, OpFarmSetRate, RatePayload{Rate: 7})); err != nil {
		t.Fatalf("set rate: %v", err)
	}
	st, err := tn.FarmEmission(ctx)
	if err != nil {
		t.Fatalf("emission: %v", err)
	}
	if st.EmissionRate != 7 {
		t.Fatalf("expected rate 7, got %d", st.EmissionRate)
	}
}

func TestPauseRequiresModuleAuthority(t *testing.T) {
	tn := newTestNode(t)
	ctx := context.Background()
	user := tn.userAddr()

	expectErr(t, tn.SetPaused(ctx, user, "farm", true), coreerrors.ErrUnauthorized)
	expectErr(t, tn.SetPaused(ctx, tn.adminAddr(), "escrow", true), coreerrors.ErrInvalidParameter)

	if err := tn.SetPaused(ctx, tn.adminAddr(), "farm", true); err != nil {
		t.Fatalf("pause: %v", err)
	}
	_, err := tn.FarmJoin(ctx, user, lpAsset)
	expectErr(t, err, nativecommon.ErrModulePaused)

	if err := tn.SetPaused(ctx, tn.adminAddr(), "farm", false); err != nil {
		t.Fatalf("unpause: %v", err)
	}
	if _, err := tn.FarmJoin(ctx, user, lpAsset); err != nil {
		t.Fatalf("join after unpause: %v", err)
	}

	if err := tn.SetPaused(ctx, tn.adminAddr(), "bank", true); err != nil {
		t.Fatalf("pause bank: %v", err)
	}
	expectErr(t, tn.Transfer(ctx, stable, user, tn.adminAddr(), 1), nativecommon.ErrModulePaused)
}

func TestGenesisAppliesOnce(t *testing.T) {
	tn := newTestNode(t)
	ctx := context.Background()
	applied, err := tn.GenesisApplied(ctx)
	if err != nil {
		t.Fatalf("genesis status: %v", err)
	}
	if !applied {
		t.Fatalf("expected genesis to be recorded")
	}
	err = tn.ApplyGenesis(ctx, testGenesis(tn.adminAddr(), tn.userAddr()))
	expectErr(t, err, ErrGenesisApplied)

	st, err := tn.FarmEmission(ctx)
	if err != nil {
		t.Fatalf("emission: %v", err)
	}
	if st.StartTime != genesisTime {
		t.Fatalf("expected genesis clock %d, got %d", genesisTime, st.StartTime)
	}
	if got := tn.balance(rewardAsset, st.RewardVault); got != 5_000_000 {
		t.Fatalf("expected funded reward vault, got %d", got)
	}
}

func TestStatePersistsAcrossRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state")
	db, err := storage.NewLevelDB(path)
	if err != nil {
		t.Fatalf("open leveldb: %v", err)
	}
	tn := newTestNodeWithDB(t, db, testGenesis)
	ctx := context.Background()
	if _, err := tn.FarmJoin(ctx, tn.userAddr(), lpAsset); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := tn.FarmDeposit(ctx, tn.userAddr(), lpAsset, 1234); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	tn.Close()

	reopened, err := storage.NewLevelDB(path)
	if err != nil {
		t.Fatalf("reopen leveldb: %v", err)
	}
	node, err := NewNode(reopened, WithClock(func() int64 { return genesisTime + int64(time.Hour/time.Second) }))
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	defer node.Close()
	staker, err := node.FarmStaker(ctx, tn.userAddr(), lpAsset)
	if err != nil {
		t.Fatalf("staker: %v", err)
	}
	if staker.Amount != 1234 {
		t.Fatalf("expected persisted stake 1234, got %d", staker.Amount)
	}
	pools, err := node.FarmPools(ctx)
	if err != nil {
		t.Fatalf("pools: %v", err)
	}
	if len(pools) != 1 || pools[0].Deposited != 1234 {
		t.Fatalf("unexpected pools %+v", pools)
	}
}
