package genesis

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"bondfarm/crypto"
)

// Duration wraps time.Duration to support YAML unmarshalling.
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses human readable duration strings.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return nil
	}
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration must be string")
	}
	if value.Value == "" {
		d.Duration = 0
		return nil
	}
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", value.Value, err)
	}
	d.Duration = parsed
	return nil
}

// Spec describes the initial state written into a fresh database.
type Spec struct {
	Time      int64         `yaml:"time"`
	Authority string        `yaml:"authority"`
	Developer string        `yaml:"developer"`
	Balances  []BalanceSpec `yaml:"balances"`
	SwapPools []SwapSpec    `yaml:"swap_pools"`
	Farm      *FarmSpec     `yaml:"farm"`
	Bond      *BondSpec     `yaml:"bond"`
	Paused    []string      `yaml:"paused"`

	authority crypto.Address
	developer crypto.Address
}

// BalanceSpec mints amount of asset to address.
type BalanceSpec struct {
	Address string `yaml:"address"`
	Asset   string `yaml:"asset"`
	Amount  uint64 `yaml:"amount"`

	addr crypto.Address
}

// SwapSpec registers an AMM pool and seeds its reserves from provider.
type SwapSpec struct {
	ID       string `yaml:"id"`
	AssetA   string `yaml:"asset_a"`
	AssetB   string `yaml:"asset_b"`
	FeeBps   uint64 `yaml:"fee_bps"`
	Provider string `yaml:"provider"`
	AmountA  uint64 `yaml:"amount_a"`
	AmountB  uint64 `yaml:"amount_b"`

	provider crypto.Address
}

// FarmSpec initialises the emission controller and its pools.
type FarmSpec struct {
	RewardAsset  string         `yaml:"reward_asset"`
	EmissionRate uint64         `yaml:"emission_rate"`
	Fund         uint64         `yaml:"fund"`
	Pools        []FarmPoolSpec `yaml:"pools"`
}

// FarmPoolSpec creates one staking pool.
type FarmPoolSpec struct {
	Asset      string `yaml:"asset"`
	Point      uint64 `yaml:"point"`
	Multiplier uint64 `yaml:"multiplier"`
}

// BondSpec initialises the bond configuration. Zero values keep the module
// defaults.
type BondSpec struct {
	MainAsset         string   `yaml:"main_asset"`
	StableAsset       string   `yaml:"stable_asset"`
	IntermediateAsset string   `yaml:"intermediate_asset"`
	SwapPool          string   `yaml:"swap_pool"`
	Price             uint64   `yaml:"price"`
	Cap               uint64   `yaml:"cap"`
	VestDuration      Duration `yaml:"vest_duration"`
	Open              bool     `yaml:"open"`
	Fund              uint64   `yaml:"fund"`
	TreasuryFloat     uint64   `yaml:"treasury_float"`
}

// Load reads and validates a genesis file.
func Load(path string) (*Spec, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("genesis path must be provided")
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open genesis %q: %w", path, err)
	}
	defer file.Close()
	var spec Spec
	dec := yaml.NewDecoder(file)
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("decode genesis %q: %w", path, err)
	}
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid genesis %q: %w", path, err)
	}
	return &spec, nil
}

// AuthorityAddress returns the decoded authority. Validate must have run.
func (s *Spec) AuthorityAddress() crypto.Address { return s.authority }

// DeveloperAddress returns the decoded developer, or the authority when none
// was configured. Validate must have run.
func (s *Spec) DeveloperAddress() crypto.Address {
	if s.developer.IsZero() {
		return s.authority
	}
	return s.developer
}

// Recipient returns the decoded recipient. Validate must have run.
func (b BalanceSpec) Recipient() crypto.Address { return b.addr }

// ProviderAddress returns the decoded liquidity provider. Validate must have run.
func (p SwapSpec) ProviderAddress() crypto.Address { return p.provider }

// Validate checks the spec and decodes its addresses.
func (s *Spec) Validate() error {
	if s == nil {
		return fmt.Errorf("genesis spec must not be nil")
	}
	if s.Time < 0 {
		return fmt.Errorf("time must not be negative")
	}
	needsAuthority := s.Farm != nil || s.Bond != nil
	if strings.TrimSpace(s.Authority) != "" {
		addr, err := parseAddress(s.Authority)
		if err != nil {
			return fmt.Errorf("authority: %w", err)
		}
		s.authority = addr
	} else if needsAuthority {
		return fmt.Errorf("authority required when farm or bond is configured")
	}
	if strings.TrimSpace(s.Developer) != "" {
		addr, err := parseAddress(s.Developer)
		if err != nil {
			return fmt.Errorf("developer: %w", err)
		}
		s.developer = addr
	}
	for i := range s.Balances {
		b := &s.Balances[i]
		addr, err := parseAddress(b.Address)
		if err != nil {
			return fmt.Errorf("balances[%d]: %w", i, err)
		}
		if strings.TrimSpace(b.Asset) == "" {
			return fmt.Errorf("balances[%d]: asset required", i)
		}
		b.addr = addr
	}
	swapIDs := make(map[string]*SwapSpec, len(s.SwapPools))
	for i := range s.SwapPools {
		p := &s.SwapPools[i]
		id := strings.ToLower(strings.TrimSpace(p.ID))
		if id == "" {
			return fmt.Errorf("swap_pools[%d]: id required", i)
		}
		if _, dup := swapIDs[id]; dup {
			return fmt.Errorf("swap_pools[%d]: duplicate id %q", i, p.ID)
		}
		swapIDs[id] = p
		if p.AmountA > 0 || p.AmountB > 0 {
			addr, err := parseAddress(p.Provider)
			if err != nil {
				return fmt.Errorf("swap_pools[%d]: provider: %w", i, err)
			}
			p.provider = addr
		}
	}
	if s.Farm != nil {
		if strings.TrimSpace(s.Farm.RewardAsset) == "" {
			return fmt.Errorf("farm: reward_asset required")
		}
		seen := make(map[string]struct{}, len(s.Farm.Pools))
		for i, pool := range s.Farm.Pools {
			key := strings.ToUpper(strings.TrimSpace(pool.Asset))
			if key == "" {
				return fmt.Errorf("farm.pools[%d]: asset required", i)
			}
			if _, dup := seen[key]; dup {
				return fmt.Errorf("farm.pools[%d]: duplicate asset %q", i, pool.Asset)
			}
			seen[key] = struct{}{}
		}
	}
	if s.Bond != nil {
		b := s.Bond
		if b.MainAsset == "" || b.StableAsset == "" || b.IntermediateAsset == "" || b.SwapPool == "" {
			return fmt.Errorf("bond: main_asset, stable_asset, intermediate_asset and swap_pool required")
		}
		pool, ok := swapIDs[strings.ToLower(strings.TrimSpace(b.SwapPool))]
		if !ok {
			return fmt.Errorf("bond: swap_pool %q not declared in swap_pools", b.SwapPool)
		}
		if !tradesPair(pool, b.StableAsset, b.IntermediateAsset) {
			return fmt.Errorf("bond: swap_pool %q must trade %s against %s", b.SwapPool, b.StableAsset, b.IntermediateAsset)
		}
		if b.VestDuration.Duration%time.Second != 0 {
			return fmt.Errorf("bond: vest_duration must be whole seconds")
		}
	}
	for i, module := range s.Paused {
		if strings.TrimSpace(module) == "" {
			return fmt.Errorf("paused[%d]: module required", i)
		}
	}
	return nil
}

func parseAddress(raw string) (crypto.Address, error) {
	addr, err := crypto.DecodeAddress(strings.TrimSpace(raw))
	if err != nil {
		return crypto.Address{}, err
	}
	if addr.IsZero() {
		return crypto.Address{}, fmt.Errorf("zero address")
	}
	return addr, nil
}

func tradesPair(pool *SwapSpec, x, y string) bool {
	a := strings.ToUpper(strings.TrimSpace(pool.AssetA))
	b := strings.ToUpper(strings.TrimSpace(pool.AssetB))
	x = strings.ToUpper(strings.TrimSpace(x))
	y = strings.ToUpper(strings.TrimSpace(y))
	return (a == x && b == y) || (a == y && b == x)
}
