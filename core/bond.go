package core

import (
	"context"

	"bondfarm/crypto"
	"bondfarm/native/bond"
)

// BondInitPosition opens an empty vesting position for owner.
func (n *Node) BondInitPosition(ctx context.Context, owner crypto.Address) (*bond.Position, error) {
	var pos *bond.Position
	_, err := n.update(ctx, "bond.initPosition", func(m *modules) error {
		var err error
		pos, err = m.bond.InitPosition(owner)
		return err
	})
	return pos, err
}

// BondBond exchanges amountIn stablecoin for a vesting allocation and
// returns the allocated amount.
func (n *Node) BondBond(ctx context.Context, owner crypto.Address, amountIn uint64) (uint64, error) {
	var out uint64
	_, err := n.update(ctx, "bond.bond", func(m *modules) error {
		var err error
		out, err = m.bond.Bond(owner, amountIn)
		return err
	})
	return out, err
}

// BondClaim releases the vested share of owner's position.
func (n *Node) BondClaim(ctx context.Context, owner crypto.Address) (uint64, error) {
	var claimed uint64
	_, err := n.update(ctx, "bond.claim", func(m *modules) error {
		var err error
		claimed, err = m.bond.Claim(owner)
		return err
	})
	return claimed, err
}

// BondClaimable previews what BondClaim would release now.
func (n *Node) BondClaimable(ctx context.Context, owner crypto.Address) (uint64, error) {
	var amount uint64
	err := n.view(ctx, "bond.claimable", func(m *modules) error {
		var err error
		amount, err = m.bond.Claimable(owner)
		return err
	})
	return amount, err
}

// BondConfig returns the global bond configuration.
func (n *Node) BondConfig(ctx context.Context) (*bond.Config, error) {
	var cfg *bond.Config
	err := n.view(ctx, "bond.config", func(m *modules) error {
		var err error
		cfg, err = m.bond.Config()
		return err
	})
	return cfg, err
}

// BondPosition returns owner's vesting position.
func (n *Node) BondPosition(ctx context.Context, owner crypto.Address) (*bond.Position, error) {
	var pos *bond.Position
	err := n.view(ctx, "bond.position", func(m *modules) error {
		var err error
		pos, err = m.bond.Position(owner)
		return err
	})
	return pos, err
}

// BondInitialize creates the bond configuration. Bonding starts closed.
func (n *Node) BondInitialize(ctx context.Context, authority, developer crypto.Address, assets bond.Assets) (*bond.Config, error) {
	var cfg *bond.Config
	_, err := n.update(ctx, "bond.initialize", func(m *modules) error {
		var err error
		cfg, err = m.bond.Initialize(authority, developer, assets)
		return err
	})
	return cfg, err
}

// BondSetAuthority hands bond administration to next.
func (n *Node) BondSetAuthority(ctx context.Context, caller, next crypto.Address) error {
	return n.bondAdmin(ctx, "bond.setAuthority", func(e *bond.Engine) error { return e.SetAuthority(caller, next) })
}

// BondSetPrice sets the stablecoin price per 1000 main tokens.
func (n *Node) BondSetPrice(ctx context.Context, caller crypto.Address, price uint64) error {
	return n.bondAdmin(ctx, "bond.setPrice", func(e *bond.Engine) error { return e.SetPrice(caller, price) })
}

// BondSetCap sets the cumulative allocation cap.
func (n *Node) BondSetCap(ctx context.Context, caller crypto.Address, limit uint64) error {
	return n.bondAdmin(ctx, "bond.setCap", func(e *bond.Engine) error { return e.SetCap(caller, limit) })
}

// BondSetVestDuration sets the vesting window applied to future bonds.
func (n *Node) BondSetVestDuration(ctx context.Context, caller crypto.Address, seconds int64) error {
	return n.bondAdmin(ctx, "bond.setVestDuration", func(e *bond.Engine) error { return e.SetVestDuration(caller, seconds) })
}

// BondSetOpen opens or closes bonding.
func (n *Node) BondSetOpen(ctx context.Context, caller crypto.Address, open bool) error {
	return n.bondAdmin(ctx, "bond.setOpen", func(e *bond.Engine) error { return e.SetOpen(caller, open) })
}

// BondSetTreasuryUnlocked lets the authority recover the treasury.
func (n *Node) BondSetTreasuryUnlocked(ctx context.Context, caller crypto.Address, unlocked bool) error {
	return n.bondAdmin(ctx, "bond.setTreasuryUnlocked", func(e *bond.Engine) error { return e.SetTreasuryUnlocked(caller, unlocked) })
}

// BondFund moves main tokens from caller into the main vault.
func (n *Node) BondFund(ctx context.Context, caller crypto.Address, amount uint64) error {
	return n.bondAdmin(ctx, "bond.fund", func(e *bond.Engine) error { return e.Fund(caller, amount) })
}

// BondRecoverTreasury drains the stablecoin treasury to to.
func (n *Node) BondRecoverTreasury(ctx context.Context, caller, to crypto.Address) (uint64, error) {
	var amount uint64
	err := n.bondAdmin(ctx, "bond.recoverTreasury", func(e *bond.Engine) error {
		var err error
		amount, err = e.RecoverTreasury(caller, to)
		return err
	})
	return amount, err
}

// BondRecoverMain drains the main token vault to to.
func (n *Node) BondRecoverMain(ctx context.Context, caller, to crypto.Address) (uint64, error) {
	var amount uint64
	err := n.bondAdmin(ctx, "bond.recoverMain", func(e *bond.Engine) error {
		var err error
		amount, err = e.RecoverMain(caller, to)
		return err
	})
	return amount, err
}

func (n *Node) bondAdmin(ctx context.Context, op string, fn func(*bond.Engine) error) error {
	_, err := n.update(ctx, op, func(m *modules) error { return fn(m.bond) })
	return err
}
