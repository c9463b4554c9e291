package farm

import (
	"testing"

	"github.com/holiman/uint256"

	coreerrors "bondfarm/core/errors"
	nativecommon "bondfarm/native/common"
)

func TestSingleStakerEarnsFullEmission(t *testing.T) {
	f := newFixture(t, 100)
	f.createPool("USDC", 100)
	alice := testAddress(0x01)

	f.stake(alice, "USDC", 1000)
	f.advance(10)
	f.stake(alice, "USDC", 500)
	f.advance(40)
	if _, err := f.engine.Withdraw(alice, "USDC", 300); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	f.advance(50)
	paid := f.harvest(alice, "USDC")

	const emitted = 100 * 100
	if paid > emitted || emitted-paid > 3 {
		t.Fatalf("harvested %d, want ~%d", paid, emitted)
	}
	if got := f.bank.balance(rewardAsset, alice); got != paid {
		t.Fatalf("reward balance %d, want %d", got, paid)
	}
	staker, err := f.engine.Staker(alice, "USDC")
	if err != nil {
		t.Fatalf("staker: %v", err)
	}
	if !staker.PendingReward.IsZero() || !staker.ExtraReward.IsZero() {
		t.Fatalf("reward fields not cleared after harvest")
	}
	pool, _ := f.engine.Pool("USDC")
	debt, _ := RewardDebtFor(staker.Amount, pool.AccPerShare)
	if staker.RewardDebt.Cmp(debt) != 0 {
		t.Fatalf("reward debt %s, want %s", staker.RewardDebt.Dec(), debt.Dec())
	}
}

func TestEqualStakersSplitEmission(t *testing.T) {
	f := newFixture(t, 7)
	f.createPool("USDC", 100)
	owners := []byte{0x01, 0x02, 0x03}
	for _, b := range owners {
		f.stake(testAddress(b), "USDC", 1000)
	}
	f.advance(10)
	const emitted = 7 * 10
	share := uint64(emitted / len(owners))
	for _, b := range owners {
		paid := f.harvest(testAddress(b), "USDC")
		if paid+1 < share || paid > share+1 {
			t.Fatalf("staker %x harvested %d, want %d±1", b, paid, share)
		}
	}
}

func TestRateChangeSettlesEveryPool(t *testing.T) {
	f := newFixture(t, 100)
	f.createPool("USDC", 50)
	f.createPool("SOL", 50)
	alice, bob := testAddress(0x01), testAddress(0x02)
	f.stake(alice, "USDC", 1000)
	f.stake(bob, "SOL", 1000)

	f.advance(10)
	if err := f.engine.ChangeEmissionRate(f.admin, 300); err != nil {
		t.Fatalf("change rate: %v", err)
	}
	for _, asset := range []string{"USDC", "SOL"} {
		pool, err := f.engine.Pool(asset)
		if err != nil {
			t.Fatalf("pool %s: %v", asset, err)
		}
		if pool.LastAccrual != f.now {
			t.Fatalf("pool %s not swept before rate change", asset)
		}
	}
	f.advance(10)

	// 10s at 100/s plus 10s at 300/s, half the weight each.
	if paid := f.harvest(alice, "USDC"); paid != 2000 {
		t.Fatalf("alice harvested %d, want 2000", paid)
	}
	if paid := f.harvest(bob, "SOL"); paid != 2000 {
		t.Fatalf("bob harvested %d, want 2000", paid)
	}
}

func TestPointChangeDoesNotRewriteHistory(t *testing.T) {
	f := newFixture(t, 100)
	f.createPool("USDC", 50)
	f.createPool("SOL", 50)
	alice, bob := testAddress(0x01), testAddress(0x02)
	f.stake(alice, "USDC", 1000)
	f.stake(bob, "SOL", 1000)

	f.advance(10)
	if err := f.engine.ChangePoolPoint(f.admin, "USDC", 150); err != nil {
		t.Fatalf("change point: %v", err)
	}
	st, _ := f.engine.Emission()
	if st.TotalPoints != 200 {
		t.Fatalf("total points %d, want 200", st.TotalPoints)
	}
	f.advance(10)

	if paid := f.harvest(alice, "USDC"); paid != 1250 {
		t.Fatalf("alice harvested %d, want 1250", paid)
	}
	if paid := f.harvest(bob, "SOL"); paid != 750 {
		t.Fatalf("bob harvested %d, want 750", paid)
	}
}

func TestCreatePoolSettlesExistingPools(t *testing.T) {
	f := newFixture(t, 100)
	f.createPool("USDC", 100)
	alice := testAddress(0x01)
	f.stake(alice, "USDC", 1000)

	f.advance(10)
	f.createPool("SOL", 100)
	f.advance(10)

	if paid := f.harvest(alice, "USDC"); paid != 1500 {
		t.Fatalf("harvested %d, want 1500", paid)
	}
	pool, _ := f.engine.Pool("SOL")
	if pool.LockDuration != DefaultLockDuration {
		t.Fatalf("lock duration %d, want %d", pool.LockDuration, DefaultLockDuration)
	}
}

func TestAccumulatorNeverDecreases(t *testing.T) {
	f := newFixture(t, 40)
	f.createPool("USDC", 30)
	f.createPool("SOL", 70)
	users := []byte{0x01, 0x02, 0x03}
	last := map[string]*uint256.Int{"USDC": new(uint256.Int), "SOL": new(uint256.Int)}
	check := func(step int) {
		for asset, prev := range last {
			pool, err := f.engine.Pool(asset)
			if err != nil {
				t.Fatalf("pool: %v", err)
			}
			if pool.AccPerShare.Lt(prev) {
				t.Fatalf("step %d: %s accumulator decreased", step, asset)
			}
			last[asset] = pool.AccPerShare
		}
	}
	for step := 0; step < 30; step++ {
		f.advance(int64(step%7 + 1))
		owner := testAddress(users[step%len(users)])
		asset := "USDC"
		if step%2 == 1 {
			asset = "SOL"
		}
		switch step % 5 {
		case 0, 1:
			f.stake(owner, asset, uint64(100+step*13))
		case 2:
			staker, err := f.engine.Staker(owner, asset)
			if err == nil && staker.Amount > 0 {
				if _, err := f.engine.Withdraw(owner, asset, staker.Amount/2+1); err != nil {
					t.Fatalf("withdraw: %v", err)
				}
			}
		case 3:
			if err := f.engine.ChangeEmissionRate(f.admin, uint64(10+step)); err != nil {
				t.Fatalf("rate: %v", err)
			}
		case 4:
			if err := f.engine.ChangePoolPoint(f.admin, asset, uint64(step+1)); err != nil {
				t.Fatalf("point: %v", err)
			}
		}
		check(step)
	}
}

func TestWithdrawFeeInsideLock(t *testing.T) {
	f := newFixture(t, 0)
	f.createPool("USDC", 100)
	alice := testAddress(0x01)
	f.stake(alice, "USDC", 1000)

	f.advance(100)
	fee, err := f.engine.Withdraw(alice, "USDC", 100)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if fee != 10 {
		t.Fatalf("fee %d, want 10", fee)
	}
	if got := f.bank.balance("USDC", alice); got != 90 {
		t.Fatalf("user received %d, want 90", got)
	}
	if got := f.bank.balance("USDC", FeeVaultAddress()); got != 10 {
		t.Fatalf("fee vault holds %d, want 10", got)
	}

	f.advance(DefaultLockDuration)
	fee, err = f.engine.Withdraw(alice, "USDC", 100)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if fee != 0 {
		t.Fatalf("fee %d after lock, want 0", fee)
	}
	if got := f.bank.balance("USDC", alice); got != 190 {
		t.Fatalf("user balance %d, want 190", got)
	}
	pool, _ := f.engine.Pool("USDC")
	if pool.Deposited != 800 {
		t.Fatalf("deposited %d, want 800", pool.Deposited)
	}

	treasury := testAddress(0x77)
	recovered, err := f.engine.RecoverFees(f.admin, "usdc", treasury)
	if err != nil {
		t.Fatalf("recover fees: %v", err)
	}
	if recovered != 10 || f.bank.balance("USDC", treasury) != 10 {
		t.Fatalf("recovered %d to treasury", recovered)
	}
}

func TestWithdrawMoreThanStaked(t *testing.T) {
	f := newFixture(t, 100)
	f.createPool("USDC", 100)
	alice := testAddress(0x01)
	f.stake(alice, "USDC", 1000)
	_, err := f.engine.Withdraw(alice, "USDC", 1001)
	expectErr(t, err, coreerrors.ErrInsufficientBalance)
}

func TestPendingIsReadOnly(t *testing.T) {
	f := newFixture(t, 100)
	f.createPool("USDC", 100)
	alice := testAddress(0x01)
	f.stake(alice, "USDC", 1000)
	before, _ := f.engine.Pool("USDC")

	f.advance(10)
	pending, err := f.engine.Pending(alice, "USDC")
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if pending != 1000 {
		t.Fatalf("pending %d, want 1000", pending)
	}
	after, _ := f.engine.Pool("USDC")
	if after.LastAccrual != before.LastAccrual || after.AccPerShare.Cmp(before.AccPerShare) != 0 {
		t.Fatalf("pending view mutated the pool")
	}
	if paid := f.harvest(alice, "USDC"); paid != pending {
		t.Fatalf("harvest %d differs from pending %d", paid, pending)
	}
}

func TestExtraRewardPaidOnHarvest(t *testing.T) {
	f := newFixture(t, 100)
	f.createPool("USDC", 100)
	alice := testAddress(0x01)
	f.stake(alice, "USDC", 1000)

	staker, _, _ := f.state.FarmStaker("USDC", alice)
	staker.ExtraReward = uint256.NewInt(42)
	_ = f.state.PutFarmStaker(staker)

	f.advance(1)
	if paid := f.harvest(alice, "USDC"); paid != 142 {
		t.Fatalf("harvested %d, want 142", paid)
	}
}

func TestHarvestUnfundedVault(t *testing.T) {
	f := newFixture(t, 100)
	f.createPool("USDC", 100)
	alice := testAddress(0x01)
	f.stake(alice, "USDC", 1000)
	if _, err := f.engine.RecoverRewards(f.admin, testAddress(0x77)); err != nil {
		t.Fatalf("recover rewards: %v", err)
	}
	f.advance(10)
	_, err := f.engine.Harvest(alice, "USDC")
	expectErr(t, err, coreerrors.ErrInsufficientFunds)
}

func TestAdminOperationsRequireAuthority(t *testing.T) {
	f := newFixture(t, 100)
	mallory := testAddress(0x66)
	if _, err := f.engine.CreatePool(mallory, "USDC", 10, 1); err == nil {
		t.Fatalf("expected unauthorized")
	} else {
		expectErr(t, err, coreerrors.ErrUnauthorized)
	}
	if _, ok, _ := f.state.FarmPool("USDC"); ok {
		t.Fatalf("pool created by unauthorized caller")
	}
	expectErr(t, f.engine.ChangeEmissionRate(mallory, 1), coreerrors.ErrUnauthorized)
	_, err := f.engine.RecoverRewards(mallory, mallory)
	expectErr(t, err, coreerrors.ErrUnauthorized)

	next := testAddress(0x02)
	if err := f.engine.SetAuthority(f.admin, next); err != nil {
		t.Fatalf("set authority: %v", err)
	}
	expectErr(t, f.engine.ChangeEmissionRate(f.admin, 1), coreerrors.ErrUnauthorized)
	if err := f.engine.ChangeEmissionRate(next, 1); err != nil {
		t.Fatalf("new authority rejected: %v", err)
	}
}

func TestCreateOnceGuards(t *testing.T) {
	f := newFixture(t, 100)
	_, err := f.engine.Initialize(f.admin, rewardAsset, 1)
	expectErr(t, err, coreerrors.ErrAlreadyExists)

	f.createPool("USDC", 10)
	_, err = f.engine.CreatePool(f.admin, "usdc", 10, 1)
	expectErr(t, err, coreerrors.ErrAlreadyExists)

	alice := testAddress(0x01)
	if _, err := f.engine.Join(alice, "USDC"); err != nil {
		t.Fatalf("join: %v", err)
	}
	_, err = f.engine.Join(alice, "USDC")
	expectErr(t, err, coreerrors.ErrAlreadyExists)
	pool, _ := f.engine.Pool("USDC")
	if pool.TotalUsers != 1 {
		t.Fatalf("total users %d, want 1", pool.TotalUsers)
	}
}

func TestClosePool(t *testing.T) {
	f := newFixture(t, 100)
	f.createPool("USDC", 40)
	f.createPool("SOL", 60)
	alice := testAddress(0x01)
	f.stake(alice, "USDC", 1000)

	expectErr(t, f.engine.ClosePool(f.admin, "USDC"), coreerrors.ErrPoolWorking)
	if err := f.engine.ClosePool(f.admin, "SOL"); err != nil {
		t.Fatalf("close: %v", err)
	}
	st, _ := f.engine.Emission()
	if st.TotalPoints != 40 {
		t.Fatalf("total points %d, want 40", st.TotalPoints)
	}
	_, err := f.engine.Pool("SOL")
	expectErr(t, err, coreerrors.ErrNotFound)

	if err := f.engine.ChangePoolMultiplier(f.admin, "USDC", 3); err != nil {
		t.Fatalf("multiplier: %v", err)
	}
	pool, _ := f.engine.Pool("USDC")
	if pool.AmountMultiplier != 3 {
		t.Fatalf("multiplier %d, want 3", pool.AmountMultiplier)
	}
}

func TestClockRegressionRejected(t *testing.T) {
	f := newFixture(t, 100)
	f.createPool("USDC", 100)
	alice := testAddress(0x01)
	f.stake(alice, "USDC", 1000)
	f.advance(-5)
	f.bank.mint("USDC", alice, 10)
	_, err := f.engine.Deposit(alice, "USDC", 10)
	expectErr(t, err, coreerrors.ErrNegativeElapsed)
}

type pausedModules map[string]bool

func (p pausedModules) IsPaused(module string) bool { return p[module] }

func TestPausedFarmRejectsStakerOps(t *testing.T) {
	f := newFixture(t, 100)
	f.createPool("USDC", 100)
	f.engine.SetPauses(pausedModules{moduleName: true})
	_, err := f.engine.Join(testAddress(0x01), "USDC")
	expectErr(t, err, nativecommon.ErrModulePaused)
}
