package bond

const (
	moduleName = "bond"

	// MaxBondPerTx caps the stablecoin accepted by a single bond.
	MaxBondPerTx uint64 = 5_000_000_000

	// PriceScale expresses BondPrice: 1000 units equal one unit of the
	// intermediate asset.
	PriceScale uint64 = 1_000

	DefaultBondPrice          uint64 = 1_000
	DefaultBondCap            uint64 = 1_000_000_000_000
	DefaultVestDuration       int64  = 5 * 86_400
	DefaultRebaseRatioPercent uint64 = 50

	MinVestDuration int64 = 5 * 86_400
	MaxVestDuration int64 = 30 * 86_400
)
