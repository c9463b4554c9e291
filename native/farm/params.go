package farm

const (
	moduleName = "farm"

	// Precision scales AccPerShare so that small stakes still accrue reward.
	Precision uint64 = 100_000_000_000

	// DefaultLockDuration is the window after a deposit or withdraw during
	// which a further withdraw pays the early-exit fee.
	DefaultLockDuration int64 = 2 * 86_400

	// DefaultWithdrawFeePercent is charged on early withdrawals.
	DefaultWithdrawFeePercent uint64 = 10
)

// Params holds the tunables applied to newly created pools and withdrawals.
type Params struct {
	LockDuration       int64
	WithdrawFeePercent uint64
}

// DefaultParams returns the production farm parameters.
func DefaultParams() Params {
	return Params{
		LockDuration:       DefaultLockDuration,
		WithdrawFeePercent: DefaultWithdrawFeePercent,
	}
}

func (p Params) normalized() Params {
	if p.LockDuration < 0 {
		p.LockDuration = 0
	}
	if p.WithdrawFeePercent > 100 {
		p.WithdrawFeePercent = 100
	}
	return p
}
