package bond

import (
	"fmt"
	"strconv"

	coreerrors "bondfarm/core/errors"
	"bondfarm/core/events"
	"bondfarm/crypto"
)

func (e *Engine) authorize(caller crypto.Address) (*Config, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	cfg, err := e.config()
	if err != nil {
		return nil, err
	}
	if caller.IsZero() || !caller.Equal(cfg.Authority) {
		return nil, fmt.Errorf("bond engine: caller %s is not the authority: %w", caller.String(), coreerrors.ErrUnauthorized)
	}
	return cfg, nil
}

// Initialize creates the global bond configuration with production defaults.
// Bonding starts closed.
func (e *Engine) Initialize(authority, developer crypto.Address, assets Assets) (*Config, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if authority.IsZero() {
		return nil, errZeroAddress
	}
	assets = assets.normalized()
	if assets.Main == "" || assets.Stable == "" || assets.Intermediate == "" || assets.SwapPool == "" {
		return nil, fmt.Errorf("bond engine: assets and swap pool required: %w", coreerrors.ErrInvalidParameter)
	}
	if _, exists, err := e.state.BondConfig(); err != nil {
		return nil, err
	} else if exists {
		return nil, fmt.Errorf("bond engine: config: %w", coreerrors.ErrAlreadyExists)
	}
	cfg := &Config{
		Authority:          authority,
		Developer:          developer,
		StateAddress:       StateAddress(),
		Assets:             assets,
		MainVault:          VaultAddress(assets.Main),
		TreasuryVault:      VaultAddress(assets.Stable),
		IntermediateVault:  VaultAddress(assets.Intermediate),
		BondPrice:          DefaultBondPrice,
		BondCap:            DefaultBondCap,
		VestDuration:       DefaultVestDuration,
		RebaseRatioPercent: DefaultRebaseRatioPercent,
		StartTime:          e.now(),
	}
	for _, vault := range []crypto.Address{cfg.MainVault, cfg.TreasuryVault, cfg.IntermediateVault} {
		if err := e.bank.SetOwner(vault, cfg.StateAddress); err != nil {
			return nil, err
		}
	}
	if err := e.state.PutBondConfig(cfg); err != nil {
		return nil, err
	}
	return cfg.Clone(), nil
}

func (e *Engine) update(caller crypto.Address, field, value string, apply func(*Config) error) error {
	cfg, err := e.authorize(caller)
	if err != nil {
		return err
	}
	if err := apply(cfg); err != nil {
		return err
	}
	if err := e.state.PutBondConfig(cfg); err != nil {
		return err
	}
	e.emit(events.BondConfigUpdated{Field: field, Value: value})
	return nil
}

// SetAuthority hands bond administration to next.
func (e *Engine) SetAuthority(caller, next crypto.Address) error {
	if next.IsZero() {
		return errZeroAddress
	}
	if err := e.update(caller, "authority", next.String(), func(cfg *Config) error {
		cfg.Authority = next
		return nil
	}); err != nil {
		return err
	}
	e.emit(events.AuthorityChanged{Module: moduleName, Authority: next})
	return nil
}

// SetPrice updates the bond price. Zero is rejected.
func (e *Engine) SetPrice(caller crypto.Address, price uint64) error {
	if price == 0 {
		return fmt.Errorf("bond engine: price must be positive: %w", coreerrors.ErrInvalidParameter)
	}
	return e.update(caller, "bondPrice", strconv.FormatUint(price, 10), func(cfg *Config) error {
		cfg.BondPrice = price
		return nil
	})
}

// SetCap updates the bond cap. It may not drop below the bonded total.
func (e *Engine) SetCap(caller crypto.Address, limit uint64) error {
	return e.update(caller, "bondCap", strconv.FormatUint(limit, 10), func(cfg *Config) error {
		if limit < cfg.BondedTotal {
			return fmt.Errorf("bond engine: cap %d below bonded total %d: %w", limit, cfg.BondedTotal, coreerrors.ErrInvalidParameter)
		}
		cfg.BondCap = limit
		return nil
	})
}

// SetVestDuration updates the vesting window applied to future bonds.
func (e *Engine) SetVestDuration(caller crypto.Address, seconds int64) error {
	if !validVestDuration(seconds) {
		return fmt.Errorf("bond engine: vest duration %ds outside [%d, %d]: %w", seconds, MinVestDuration, MaxVestDuration, coreerrors.ErrInvalidParameter)
	}
	return e.update(caller, "vestDuration", strconv.FormatInt(seconds, 10), func(cfg *Config) error {
		cfg.VestDuration = seconds
		return nil
	})
}

// SetOpen opens or closes bonding and stamps the start time.
func (e *Engine) SetOpen(caller crypto.Address, open bool) error {
	return e.update(caller, "bondOpen", strconv.FormatBool(open), func(cfg *Config) error {
		cfg.BondOpen = open
		cfg.StartTime = e.now()
		return nil
	})
}

// SetTreasuryUnlocked allows the authority to recover the treasury vault.
func (e *Engine) SetTreasuryUnlocked(caller crypto.Address, unlocked bool) error {
	return e.update(caller, "treasuryUnlocked", strconv.FormatBool(unlocked), func(cfg *Config) error {
		cfg.TreasuryUnlocked = unlocked
		return nil
	})
}

// Fund moves main tokens from the authority into the main vault.
func (e *Engine) Fund(caller crypto.Address, amount uint64) error {
	cfg, err := e.authorize(caller)
	if err != nil {
		return err
	}
	if amount == 0 {
		return errZeroAmount
	}
	return e.bank.Transfer(cfg.Assets.Main, caller, cfg.MainVault, caller, amount)
}

// RecoverTreasury drains the stablecoin treasury. The authority may do so
// once the treasury is unlocked; the developer address may do so at any time.
func (e *Engine) RecoverTreasury(caller, to crypto.Address) (uint64, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	cfg, err := e.config()
	if err != nil {
		return 0, err
	}
	isAuthority := !caller.IsZero() && caller.Equal(cfg.Authority)
	isDeveloper := !cfg.Developer.IsZero() && caller.Equal(cfg.Developer)
	if !(isAuthority && cfg.TreasuryUnlocked) && !isDeveloper {
		return 0, fmt.Errorf("bond engine: treasury locked for %s: %w", caller.String(), coreerrors.ErrUnauthorized)
	}
	return e.drain(cfg, cfg.TreasuryVault, cfg.Assets.Stable, to)
}

// RecoverMain drains the main token vault to to.
func (e *Engine) RecoverMain(caller, to crypto.Address) (uint64, error) {
	cfg, err := e.authorize(caller)
	if err != nil {
		return 0, err
	}
	return e.drain(cfg, cfg.MainVault, cfg.Assets.Main, to)
}

func (e *Engine) drain(cfg *Config, vault crypto.Address, asset string, to crypto.Address) (uint64, error) {
	if to.IsZero() {
		return 0, errZeroAddress
	}
	balance, err := e.bank.Balance(asset, vault)
	if err != nil {
		return 0, err
	}
	if balance > 0 {
		if err := e.bank.Transfer(asset, vault, to, cfg.StateAddress, balance); err != nil {
			return 0, err
		}
	}
	e.emit(events.VaultRecovered{Module: moduleName, Vault: vault, To: to, Asset: asset, Amount: balance})
	return balance, nil
}
