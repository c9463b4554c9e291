package farm

import (
	"fmt"

	"github.com/holiman/uint256"

	coreerrors "bondfarm/core/errors"
	nativecommon "bondfarm/native/common"
)

// Wide values are u128 in meaning even though they are carried in 256 bits.
const wideBits = 128

var precision = uint256.NewInt(Precision)

func checkWide(v *uint256.Int, op string) (*uint256.Int, error) {
	if v.BitLen() > wideBits {
		return nil, fmt.Errorf("farm: %s exceeds 128 bits: %w", op, coreerrors.ErrMathOverflow)
	}
	return v, nil
}

func mulWide(a, b *uint256.Int, op string) (*uint256.Int, error) {
	out, overflow := new(uint256.Int).MulOverflow(a, b)
	if overflow {
		return nil, fmt.Errorf("farm: %s: %w", op, coreerrors.ErrMathOverflow)
	}
	return checkWide(out, op)
}

func addWide(a, b *uint256.Int, op string) (*uint256.Int, error) {
	out, overflow := new(uint256.Int).AddOverflow(a, b)
	if overflow {
		return nil, fmt.Errorf("farm: %s: %w", op, coreerrors.ErrMathOverflow)
	}
	return checkWide(out, op)
}

func subWide(a, b *uint256.Int, op string) (*uint256.Int, error) {
	out, underflow := new(uint256.Int).SubOverflow(a, b)
	if underflow {
		return nil, fmt.Errorf("farm: %s: %w", op, coreerrors.ErrMathUnderflow)
	}
	return out, nil
}

func divWide(a *uint256.Int, b uint64, op string) (*uint256.Int, error) {
	if b == 0 {
		return nil, fmt.Errorf("farm: %s: division by zero: %w", op, coreerrors.ErrMathOverflow)
	}
	return new(uint256.Int).Div(a, uint256.NewInt(b)), nil
}

// RewardDebtFor returns amount*accPerShare/Precision.
func RewardDebtFor(amount uint64, accPerShare *uint256.Int) (*uint256.Int, error) {
	scaled, err := mulWide(uint256.NewInt(amount), cloneWide(accPerShare), "reward debt")
	if err != nil {
		return nil, err
	}
	return scaled.Div(scaled, precision), nil
}

// PendingFor returns the reward accrued by amount since rewardDebt was last
// recomputed. A debt above the accrued total is ErrMathUnderflow.
func PendingFor(amount uint64, accPerShare, rewardDebt *uint256.Int) (*uint256.Int, error) {
	accrued, err := RewardDebtFor(amount, accPerShare)
	if err != nil {
		return nil, err
	}
	return subWide(accrued, cloneWide(rewardDebt), "pending reward")
}

// PerShareDelta returns rate*elapsed*point*Precision/totalPoints/deposited.
func PerShareDelta(rate, elapsed, point, totalPoints, deposited uint64) (*uint256.Int, error) {
	out := uint256.NewInt(rate)
	var err error
	for _, factor := range []uint64{elapsed, point, Precision} {
		if out, err = mulWide(out, uint256.NewInt(factor), "per-share delta"); err != nil {
			return nil, err
		}
	}
	if out, err = divWide(out, totalPoints, "per-share delta"); err != nil {
		return nil, err
	}
	return divWide(out, deposited, "per-share delta")
}

// Accrue brings the pool accumulator up to now under the given emission. The
// accrual timestamp always advances, even when nothing is added, so an empty
// pool never banks idle seconds for its first depositor.
func (p *Pool) Accrue(now int64, rate, totalPoints uint64) error {
	if p == nil {
		return errNilPool
	}
	elapsed, err := nativecommon.Elapsed(now, p.LastAccrual)
	if err != nil {
		return fmt.Errorf("farm: accrue %s: %w", p.Asset, err)
	}
	if p.AccPerShare == nil {
		p.AccPerShare = new(uint256.Int)
	}
	if p.Deposited > 0 && elapsed > 0 && p.Point > 0 {
		delta, err := PerShareDelta(rate, elapsed, p.Point, totalPoints, p.Deposited)
		if err != nil {
			return err
		}
		next, err := addWide(p.AccPerShare, delta, "accumulator")
		if err != nil {
			return err
		}
		p.AccPerShare = next
	}
	p.LastAccrual = now
	return nil
}

// settle moves the reward accrued since the last debt snapshot into
// PendingReward.
func (s *Staker) settle(pool *Pool) error {
	s.ensureDefaults()
	pending, err := PendingFor(s.Amount, pool.AccPerShare, s.RewardDebt)
	if err != nil {
		return err
	}
	total, err := addWide(s.PendingReward, pending, "pending reward")
	if err != nil {
		return err
	}
	s.PendingReward = total
	return nil
}

func (s *Staker) resetDebt(pool *Pool) error {
	debt, err := RewardDebtFor(s.Amount, pool.AccPerShare)
	if err != nil {
		return err
	}
	s.RewardDebt = debt
	return nil
}

func (s *Staker) harvestable() (*uint256.Int, error) {
	s.ensureDefaults()
	return addWide(s.PendingReward, s.ExtraReward, "harvest total")
}
