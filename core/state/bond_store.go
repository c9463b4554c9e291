package state

import (
	"bondfarm/crypto"
	"bondfarm/native/bond"
)

type storedBondConfig struct {
	Authority          string
	Developer          string
	StateAddress       string
	MainAsset          string
	StableAsset        string
	IntermediateAsset  string
	SwapPool           string
	MainVault          string
	TreasuryVault      string
	IntermediateVault  string
	BondPrice          uint64
	BondCap            uint64
	BondedTotal        uint64
	BondOpen           bool
	VestDuration       uint64
	RebaseRatioPercent uint64
	StartTime          uint64
	TreasuryUnlocked   bool
}

type storedBondPosition struct {
	Owner           string
	TotalBonded     uint64
	LastInteraction uint64
	VestDuration    uint64
}

// BondConfig loads the global bond configuration.
func (tx *Tx) BondConfig() (*bond.Config, bool, error) {
	var stored storedBondConfig
	ok, err := tx.KVGet(bondConfigKey, &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	cfg := &bond.Config{
		Assets: bond.Assets{
			Main:         stored.MainAsset,
			Stable:       stored.StableAsset,
			Intermediate: stored.IntermediateAsset,
			SwapPool:     stored.SwapPool,
		},
		BondPrice:          stored.BondPrice,
		BondCap:            stored.BondCap,
		BondedTotal:        stored.BondedTotal,
		BondOpen:           stored.BondOpen,
		VestDuration:       decodeTime(stored.VestDuration),
		RebaseRatioPercent: stored.RebaseRatioPercent,
		StartTime:          decodeTime(stored.StartTime),
		TreasuryUnlocked:   stored.TreasuryUnlocked,
	}
	if err := decodeAddresses(
		[]*crypto.Address{&cfg.Authority, &cfg.Developer, &cfg.StateAddress, &cfg.MainVault, &cfg.TreasuryVault, &cfg.IntermediateVault},
		[]string{stored.Authority, stored.Developer, stored.StateAddress, stored.MainVault, stored.TreasuryVault, stored.IntermediateVault},
	); err != nil {
		return nil, false, err
	}
	return cfg, true, nil
}

// PutBondConfig stores the global bond configuration.
func (tx *Tx) PutBondConfig(cfg *bond.Config) error {
	return tx.KVPut(bondConfigKey, &storedBondConfig{
		Authority:          encodeAddress(cfg.Authority),
		Developer:          encodeAddress(cfg.Developer),
		StateAddress:       encodeAddress(cfg.StateAddress),
		MainAsset:          cfg.Assets.Main,
		StableAsset:        cfg.Assets.Stable,
		IntermediateAsset:  cfg.Assets.Intermediate,
		SwapPool:           cfg.Assets.SwapPool,
		MainVault:          encodeAddress(cfg.MainVault),
		TreasuryVault:      encodeAddress(cfg.TreasuryVault),
		IntermediateVault:  encodeAddress(cfg.IntermediateVault),
		BondPrice:          cfg.BondPrice,
		BondCap:            cfg.BondCap,
		BondedTotal:        cfg.BondedTotal,
		BondOpen:           cfg.BondOpen,
		VestDuration:       encodeTime(cfg.VestDuration),
		RebaseRatioPercent: cfg.RebaseRatioPercent,
		StartTime:          encodeTime(cfg.StartTime),
		TreasuryUnlocked:   cfg.TreasuryUnlocked,
	})
}

// BondPosition loads owner's bond position.
func (tx *Tx) BondPosition(owner crypto.Address) (*bond.Position, bool, error) {
	var stored storedBondPosition
	ok, err := tx.KVGet(bondPositionKey(owner.Bytes()), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	pos := &bond.Position{
		TotalBonded:     stored.TotalBonded,
		LastInteraction: decodeTime(stored.LastInteraction),
		VestDuration:    decodeTime(stored.VestDuration),
	}
	if pos.Owner, err = decodeAddress(stored.Owner); err != nil {
		return nil, false, err
	}
	return pos, true, nil
}

// PutBondPosition stores a bond position.
func (tx *Tx) PutBondPosition(pos *bond.Position) error {
	return tx.KVPut(bondPositionKey(pos.Owner.Bytes()), &storedBondPosition{
		Owner:           encodeAddress(pos.Owner),
		TotalBonded:     pos.TotalBonded,
		LastInteraction: encodeTime(pos.LastInteraction),
		VestDuration:    encodeTime(pos.VestDuration),
	})
}
