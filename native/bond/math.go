package bond

import (
	"fmt"

	coreerrors "bondfarm/core/errors"
	nativecommon "bondfarm/native/common"
)

// AmountOut converts the intermediate amount received by the swap into bonded
// token units at price.
func AmountOut(received, price uint64) (uint64, error) {
	if price == 0 {
		return 0, fmt.Errorf("bond: price not set: %w", coreerrors.ErrInvalidParameter)
	}
	return nativecommon.MulDivU64(received, PriceScale, price)
}

// ClaimableAt returns the part of pos unlocked at now. The rebase-adjusted
// balance vests linearly over the captured duration since the last
// interaction.
func ClaimableAt(pos *Position, rebasePercent uint64, now int64) (uint64, error) {
	if pos == nil {
		return 0, nil
	}
	elapsed, err := nativecommon.Elapsed(now, pos.LastInteraction)
	if err != nil {
		return 0, err
	}
	full, err := nativecommon.MulDivU64(pos.TotalBonded, rebasePercent, 100)
	if err != nil {
		return 0, err
	}
	if pos.VestDuration <= 0 || elapsed >= uint64(pos.VestDuration) {
		return full, nil
	}
	return nativecommon.MulDivU64(full, elapsed, uint64(pos.VestDuration))
}

func validVestDuration(d int64) bool {
	return d >= MinVestDuration && d <= MaxVestDuration
}
